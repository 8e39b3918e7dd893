package memory

import (
	"context"
	"sort"

	"github.com/tradesmatepro/fulfillment-service/internal/domain"
)

type jobRepository struct {
	store *Store
}

func (r *jobRepository) Save(ctx context.Context, job *domain.Job) error {
	unlock := r.store.lock(ctx)
	defer unlock()

	if stored, ok := r.store.jobs[job.ID]; ok && stored.Version != job.Version {
		return domain.ErrConcurrentModification
	}

	job.Version++
	r.store.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *jobRepository) FindByID(ctx context.Context, jobID string) (*domain.Job, error) {
	unlock := r.store.lock(ctx)
	defer unlock()

	stored, ok := r.store.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return cloneJob(stored), nil
}

type reservationRepository struct {
	store *Store
}

func (r *reservationRepository) Save(ctx context.Context, reservation *domain.Reservation) error {
	unlock := r.store.lock(ctx)
	defer unlock()

	r.store.reservations[reservation.ID] = cloneReservation(reservation)
	return nil
}

func (r *reservationRepository) FindActiveByJob(ctx context.Context, jobID string) ([]*domain.Reservation, error) {
	unlock := r.store.lock(ctx)
	defer unlock()

	var out []*domain.Reservation
	for _, stored := range r.store.reservations {
		if stored.JobID == jobID && stored.IsActive() {
			out = append(out, cloneReservation(stored))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *reservationRepository) FindActiveByJobAndItem(ctx context.Context, jobID, itemID, locationID string) (*domain.Reservation, error) {
	unlock := r.store.lock(ctx)
	defer unlock()

	for _, stored := range r.store.reservations {
		if stored.JobID == jobID && stored.ItemID == itemID && stored.LocationID == locationID && stored.IsActive() {
			return cloneReservation(stored), nil
		}
	}
	return nil, nil
}

type pickListRepository struct {
	store *Store
}

func (r *pickListRepository) Save(ctx context.Context, pickList *domain.PickList) error {
	unlock := r.store.lock(ctx)
	defer unlock()

	if stored, ok := r.store.pickLists[pickList.ID]; ok && stored.Version != pickList.Version {
		return domain.ErrConcurrentModification
	}

	pickList.Version++
	r.store.pickLists[pickList.ID] = clonePickList(pickList)
	return nil
}

func (r *pickListRepository) FindByID(ctx context.Context, pickListID string) (*domain.PickList, error) {
	unlock := r.store.lock(ctx)
	defer unlock()

	stored, ok := r.store.pickLists[pickListID]
	if !ok {
		return nil, domain.ErrPickListNotFound
	}
	return clonePickList(stored), nil
}

func (r *pickListRepository) FindCurrentByJob(ctx context.Context, jobID string) (*domain.PickList, error) {
	unlock := r.store.lock(ctx)
	defer unlock()

	var current *domain.PickList
	for _, stored := range r.store.pickLists {
		if stored.JobID != jobID || stored.Status == domain.PickListStatusDiscarded {
			continue
		}
		if current == nil || stored.CreatedAt.After(current.CreatedAt) {
			current = stored
		}
	}
	if current == nil {
		return nil, nil
	}
	return clonePickList(current), nil
}

type movementRepository struct {
	store *Store
}

func (r *movementRepository) Insert(ctx context.Context, movement *domain.Movement) error {
	unlock := r.store.lock(ctx)
	defer unlock()

	r.store.movements = append(r.store.movements, cloneMovement(movement))
	return nil
}

func (r *movementRepository) FindByItemLocation(ctx context.Context, itemID, locationID string, limit int) ([]*domain.Movement, error) {
	unlock := r.store.lock(ctx)
	defer unlock()

	var out []*domain.Movement
	for _, stored := range r.store.movements {
		if stored.ItemID == itemID && stored.LocationID == locationID {
			out = append(out, cloneMovement(stored))
		}
	}

	// Most recent first; insertion order breaks CreatedAt ties.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type stockLevelRepository struct {
	store *Store
}

func (r *stockLevelRepository) Find(ctx context.Context, itemID, locationID string) (*domain.StockLevel, error) {
	unlock := r.store.lock(ctx)
	defer unlock()

	stored, ok := r.store.levels[levelKey(itemID, locationID)]
	if !ok {
		return nil, nil
	}
	return cloneLevel(stored), nil
}

func (r *stockLevelRepository) Save(ctx context.Context, level *domain.StockLevel, expectedVersion int64) error {
	unlock := r.store.lock(ctx)
	defer unlock()

	key := levelKey(level.ItemID, level.LocationID)
	if stored, ok := r.store.levels[key]; ok && stored.Version != expectedVersion {
		return domain.ErrConcurrentModification
	}

	level.Version = expectedVersion + 1
	r.store.levels[key] = cloneLevel(level)
	return nil
}
