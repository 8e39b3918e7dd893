// Package memory provides an in-process implementation of the repository
// interfaces. It backs unit tests and the standalone dev mode; the semantics
// mirror the mongodb package, including version checks and transactional
// all-or-nothing writes.
package memory

import (
	"context"
	"sync"

	"github.com/tradesmatepro/fulfillment-service/internal/domain"
)

type txMarker struct{}

// Store holds all aggregates behind a single mutex. Transactions take the
// lock for their whole duration and snapshot the maps, so a failed
// transaction restores every write it made.
type Store struct {
	mu sync.Mutex

	jobs         map[string]*domain.Job
	reservations map[string]*domain.Reservation
	pickLists    map[string]*domain.PickList
	movements    []*domain.Movement
	levels       map[string]*domain.StockLevel
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		jobs:         make(map[string]*domain.Job),
		reservations: make(map[string]*domain.Reservation),
		pickLists:    make(map[string]*domain.PickList),
		movements:    make([]*domain.Movement, 0),
		levels:       make(map[string]*domain.StockLevel),
	}
}

// Jobs returns the job repository view
func (s *Store) Jobs() domain.JobRepository { return &jobRepository{store: s} }

// Reservations returns the reservation repository view
func (s *Store) Reservations() domain.ReservationRepository { return &reservationRepository{store: s} }

// PickLists returns the pick list repository view
func (s *Store) PickLists() domain.PickListRepository { return &pickListRepository{store: s} }

// Movements returns the movement repository view
func (s *Store) Movements() domain.MovementRepository { return &movementRepository{store: s} }

// StockLevels returns the stock level repository view
func (s *Store) StockLevels() domain.StockLevelRepository { return &stockLevelRepository{store: s} }

// Tx returns the transaction runner
func (s *Store) Tx() domain.TxRunner { return &txRunner{store: s} }

// inTx reports whether ctx carries this store's transaction marker, meaning
// the caller already holds the lock.
func inTx(ctx context.Context) bool {
	return ctx.Value(txMarker{}) != nil
}

// lock acquires the store lock unless the context shows a transaction in
// progress. It returns the matching unlock, a no-op inside a transaction.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type txRunner struct {
	store *Store
}

// WithinTx runs fn holding the store lock. On error every map is restored
// from the entry snapshot so partial writes never become visible.
// Transactions do not nest.
func (t *txRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	snapJobs := cloneJobMap(t.store.jobs)
	snapReservations := cloneReservationMap(t.store.reservations)
	snapPickLists := clonePickListMap(t.store.pickLists)
	snapMovements := make([]*domain.Movement, len(t.store.movements))
	copy(snapMovements, t.store.movements)
	snapLevels := cloneLevelMap(t.store.levels)

	err := fn(context.WithValue(ctx, txMarker{}, struct{}{}))
	if err != nil {
		t.store.jobs = snapJobs
		t.store.reservations = snapReservations
		t.store.pickLists = snapPickLists
		t.store.movements = snapMovements
		t.store.levels = snapLevels
	}

	return err
}

// Clone helpers. Aggregates cross the store boundary by value so callers
// cannot mutate stored state without going through Save.

func cloneJob(j *domain.Job) *domain.Job {
	c := *j
	c.LineItems = make([]domain.JobLineItem, len(j.LineItems))
	for i, item := range j.LineItems {
		c.LineItems[i] = item
		if item.UsedQuantity != nil {
			q := *item.UsedQuantity
			c.LineItems[i].UsedQuantity = &q
		}
	}
	return &c
}

func cloneReservation(r *domain.Reservation) *domain.Reservation {
	c := *r
	if r.ReleasedAt != nil {
		t := *r.ReleasedAt
		c.ReleasedAt = &t
	}
	return &c
}

func clonePickList(p *domain.PickList) *domain.PickList {
	c := *p
	c.Lines = make([]domain.PickListLine, len(p.Lines))
	copy(c.Lines, p.Lines)
	if p.PickedAt != nil {
		t := *p.PickedAt
		c.PickedAt = &t
	}
	return &c
}

func cloneLevel(l *domain.StockLevel) *domain.StockLevel {
	c := *l
	return &c
}

func cloneMovement(m *domain.Movement) *domain.Movement {
	c := *m
	return &c
}

func cloneJobMap(in map[string]*domain.Job) map[string]*domain.Job {
	out := make(map[string]*domain.Job, len(in))
	for k, v := range in {
		out[k] = cloneJob(v)
	}
	return out
}

func cloneReservationMap(in map[string]*domain.Reservation) map[string]*domain.Reservation {
	out := make(map[string]*domain.Reservation, len(in))
	for k, v := range in {
		out[k] = cloneReservation(v)
	}
	return out
}

func clonePickListMap(in map[string]*domain.PickList) map[string]*domain.PickList {
	out := make(map[string]*domain.PickList, len(in))
	for k, v := range in {
		out[k] = clonePickList(v)
	}
	return out
}

func cloneLevelMap(in map[string]*domain.StockLevel) map[string]*domain.StockLevel {
	out := make(map[string]*domain.StockLevel, len(in))
	for k, v := range in {
		out[k] = cloneLevel(v)
	}
	return out
}

func levelKey(itemID, locationID string) string {
	return itemID + "/" + locationID
}
