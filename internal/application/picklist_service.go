package application

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tradesmatepro/fulfillment-service/internal/domain"
	"github.com/tradesmatepro/fulfillment-service/pkg/kafka"
	"github.com/tradesmatepro/fulfillment-service/pkg/logging"
	"github.com/tradesmatepro/fulfillment-service/pkg/metrics"
	"github.com/tradesmatepro/fulfillment-service/pkg/resilience"
	"github.com/tradesmatepro/fulfillment-service/pkg/tenant"
)

// PickListService manages the physical-pick checklist of a job, from
// generation out of reservations through auto-fill to the confirmation that
// moves picked quantities into hard allocations on the ledger.
type PickListService struct {
	pickLists    domain.PickListRepository
	jobs         domain.JobRepository
	reservations domain.ReservationRepository
	levels       domain.StockLevelRepository
	ledger       *LedgerService
	allocator    *Allocator
	tx           domain.TxRunner
	publisher    EventPublisher
	logger       *logging.Logger
	metrics      *metrics.Metrics
	retry        *resilience.RetryConfig
}

// NewPickListService creates a new pick list service
func NewPickListService(
	pickLists domain.PickListRepository,
	jobs domain.JobRepository,
	reservations domain.ReservationRepository,
	levels domain.StockLevelRepository,
	ledger *LedgerService,
	tx domain.TxRunner,
	publisher EventPublisher,
	logger *logging.Logger,
	m *metrics.Metrics,
) *PickListService {
	return &PickListService{
		pickLists:    pickLists,
		jobs:         jobs,
		reservations: reservations,
		levels:       levels,
		ledger:       ledger,
		allocator:    NewAllocator(),
		tx:           tx,
		publisher:    publisher,
		logger:       logger,
		metrics:      m,
		retry:        concurrencyRetry(),
	}
}

// GenerateForJob creates or refreshes the job's pick list from its active
// reservations. Repeating the call yields the same line set, and pick
// progress on surviving lines is preserved.
func (s *PickListService) GenerateForJob(ctx context.Context, jobID string) (*PickListDTO, error) {
	if _, err := s.jobs.FindByID(ctx, jobID); err != nil {
		return nil, err
	}

	var pickList *domain.PickList
	err := resilience.Retry(ctx, s.retry, func() error {
		return s.tx.WithinTx(ctx, func(txCtx context.Context) error {
			p, txErr := s.generateInTx(txCtx, jobID)
			if txErr != nil {
				return txErr
			}
			pickList = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return toPickListDTO(pickList), nil
}

// generateInTx refreshes the current list, or starts a new one when the job
// has none. A picked list is immutable and returned unchanged.
func (s *PickListService) generateInTx(ctx context.Context, jobID string) (*domain.PickList, error) {
	pickList, err := s.pickLists.FindCurrentByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pick list: %w", err)
	}
	if pickList != nil && pickList.Status == domain.PickListStatusPicked {
		return pickList, nil
	}
	if pickList == nil {
		pickList = domain.NewPickList(tenant.IDOrDefault(ctx, DefaultTenantID), jobID)
	}

	active, err := s.reservations.FindActiveByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}

	if err := pickList.RefreshFromReservations(active); err != nil {
		return nil, err
	}
	pickList.RecomputeStatus()

	if err := s.pickLists.Save(ctx, pickList); err != nil {
		return nil, fmt.Errorf("failed to save pick list: %w", err)
	}

	return pickList, nil
}

// Get returns a pick list by ID.
func (s *PickListService) Get(ctx context.Context, pickListID string) (*PickListDTO, error) {
	pickList, err := s.pickLists.FindByID(ctx, pickListID)
	if err != nil {
		return nil, err
	}
	return toPickListDTO(pickList), nil
}

// GetByJob returns the job's current pick list.
func (s *PickListService) GetByJob(ctx context.Context, jobID string) (*PickListDTO, error) {
	pickList, err := s.pickLists.FindCurrentByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pick list: %w", err)
	}
	if pickList == nil {
		return nil, domain.ErrPickListNotFound
	}
	return toPickListDTO(pickList), nil
}

// Badge returns the pick-progress badge for a job. Jobs without a pick list
// read as pick_needed.
func (s *PickListService) Badge(ctx context.Context, jobID string) (domain.Badge, error) {
	pickList, err := s.pickLists.FindCurrentByJob(ctx, jobID)
	if err != nil {
		return "", fmt.Errorf("failed to load pick list: %w", err)
	}
	return domain.BadgeFor(pickList), nil
}

// AddManualLine appends a technician-entered line for a part no reservation
// covers.
func (s *PickListService) AddManualLine(ctx context.Context, cmd AddManualLineCommand) (*PickListDTO, error) {
	return s.mutateList(ctx, cmd.PickListID, func(pickList *domain.PickList) error {
		return pickList.AddManualLine(cmd.ItemID, cmd.LocationID, cmd.Quantity)
	})
}

// SetLinePicked updates the picked quantity on one line. The quantity is
// monotonic and capped by the line's requested quantity.
func (s *PickListService) SetLinePicked(ctx context.Context, cmd SetLinePickedCommand) (*PickListDTO, error) {
	return s.mutateList(ctx, cmd.PickListID, func(pickList *domain.PickList) error {
		return pickList.SetLinePicked(cmd.LineIndex, cmd.Quantity)
	})
}

func (s *PickListService) mutateList(ctx context.Context, pickListID string, mutate func(*domain.PickList) error) (*PickListDTO, error) {
	var pickList *domain.PickList
	err := resilience.Retry(ctx, s.retry, func() error {
		return s.tx.WithinTx(ctx, func(txCtx context.Context) error {
			p, txErr := s.pickLists.FindByID(txCtx, pickListID)
			if txErr != nil {
				return txErr
			}
			if txErr := mutate(p); txErr != nil {
				return txErr
			}
			p.RecomputeStatus()
			if txErr := s.pickLists.Save(txCtx, p); txErr != nil {
				return fmt.Errorf("failed to save pick list: %w", txErr)
			}
			pickList = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return toPickListDTO(pickList), nil
}

// AutoFillRemaining pencils the unfulfilled remainder of the job's line items
// onto the pick list, limited by available stock plus the job's own
// reservations. Nothing moves on the ledger until the pick is confirmed.
func (s *PickListService) AutoFillRemaining(ctx context.Context, jobID string) (*PickListDTO, error) {
	var pickList *domain.PickList
	err := resilience.Retry(ctx, s.retry, func() error {
		return s.tx.WithinTx(ctx, func(txCtx context.Context) error {
			p, txErr := s.autoFillInTx(txCtx, jobID)
			if txErr != nil {
				return txErr
			}
			pickList = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return toPickListDTO(pickList), nil
}

func (s *PickListService) autoFillInTx(ctx context.Context, jobID string) (*domain.PickList, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	pickList, err := s.generateInTx(ctx, jobID)
	if err != nil {
		return nil, err
	}

	active, err := s.reservations.FindActiveByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}

	// Availability covers every pair the allocator may plan for, so manual
	// lines for parts outside the job's line items are filled too.
	available := make(map[string]decimal.Decimal)
	loadAvailable := func(itemID, locationID string) error {
		key := pairKey(itemID, locationID)
		if _, ok := available[key]; ok {
			return nil
		}
		level, lErr := s.levels.Find(ctx, itemID, locationID)
		if lErr != nil {
			return fmt.Errorf("failed to load stock level: %w", lErr)
		}
		if level != nil {
			available[key] = level.Available()
		} else {
			available[key] = decimal.Zero
		}
		return nil
	}
	for _, item := range job.LineItems {
		if err := loadAvailable(item.ItemID, item.LocationID); err != nil {
			return nil, err
		}
	}
	for i := range pickList.Lines {
		line := &pickList.Lines[i]
		if err := loadAvailable(line.ItemID, line.LocationID); err != nil {
			return nil, err
		}
	}

	plans := s.allocator.Plan(job, pickList, active, available)
	for _, plan := range plans {
		if plan.LineIndex >= 0 {
			err = pickList.SetLinePicked(plan.LineIndex, plan.Quantity)
		} else {
			err = pickList.AddAutoFilledLine(plan.ItemID, plan.LocationID, plan.Quantity)
		}
		if err != nil {
			return nil, err
		}
	}
	pickList.RecomputeStatus()

	if err := s.pickLists.Save(ctx, pickList); err != nil {
		return nil, fmt.Errorf("failed to save pick list: %w", err)
	}

	return pickList, nil
}

// ConfirmPick marks the list picked and converts every picked quantity into
// a hard allocation on the ledger, consuming the job's own reservations
// first. The conversion is all or nothing: if any line cannot be covered the
// whole confirmation rolls back and the list stays unpicked.
func (s *PickListService) ConfirmPick(ctx context.Context, pickListID string) (*PickListDTO, error) {
	var pickList *domain.PickList
	err := resilience.Retry(ctx, s.retry, func() error {
		return s.tx.WithinTx(ctx, func(txCtx context.Context) error {
			p, txErr := s.confirmPickInTx(txCtx, pickListID)
			if txErr != nil {
				return txErr
			}
			pickList = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordPickListConfirmed()
	}
	s.publishPicked(ctx, pickList)

	return toPickListDTO(pickList), nil
}

func (s *PickListService) confirmPickInTx(ctx context.Context, pickListID string) (*domain.PickList, error) {
	pickList, err := s.pickLists.FindByID(ctx, pickListID)
	if err != nil {
		return nil, err
	}

	if err := pickList.MarkPicked(); err != nil {
		return nil, err
	}

	for i := range pickList.Lines {
		line := &pickList.Lines[i]
		if !line.QuantityPicked.IsPositive() {
			continue
		}

		if err := s.convertLine(ctx, pickList, line); err != nil {
			return nil, err
		}
	}

	if err := s.pickLists.Save(ctx, pickList); err != nil {
		return nil, fmt.Errorf("failed to save pick list: %w", err)
	}

	return pickList, nil
}

// convertLine swaps the picked quantity's soft hold for a hard allocation.
// The portion covered by the job's own reservation is released first so it
// is not double counted against available stock.
func (s *PickListService) convertLine(ctx context.Context, pickList *domain.PickList, line *domain.PickListLine) error {
	reservation, err := s.reservations.FindActiveByJobAndItem(ctx, pickList.JobID, line.ItemID, line.LocationID)
	if err != nil {
		return fmt.Errorf("failed to load reservation: %w", err)
	}

	if reservation != nil {
		fromOwn := decimal.Min(line.QuantityPicked, reservation.Remaining())
		if fromOwn.IsPositive() {
			release, mErr := domain.NewMovement(pickList.TenantID, line.ItemID, line.LocationID, domain.MovementRelease, fromOwn.Neg(), pickList.JobID)
			if mErr != nil {
				return fmt.Errorf("failed to create release movement: %w", mErr)
			}
			if _, mErr := s.ledger.appendInTx(ctx, release); mErr != nil {
				return mErr
			}

			if mErr := reservation.ConsumeForAllocation(fromOwn); mErr != nil {
				return mErr
			}
			if mErr := s.reservations.Save(ctx, reservation); mErr != nil {
				return fmt.Errorf("failed to save reservation: %w", mErr)
			}
		}
	}

	allocation, err := domain.NewMovement(pickList.TenantID, line.ItemID, line.LocationID, domain.MovementAllocation, line.QuantityPicked, pickList.ID)
	if err != nil {
		return fmt.Errorf("failed to create allocation movement: %w", err)
	}
	if _, err := s.ledger.appendInTx(ctx, allocation); err != nil {
		return err
	}

	return nil
}

func (s *PickListService) publishPicked(ctx context.Context, p *domain.PickList) {
	if s.publisher == nil || p == nil || p.PickedAt == nil {
		return
	}

	event := &domain.PickListPickedEvent{
		PickListID: p.ID,
		JobID:      p.JobID,
		LineCount:  len(p.Lines),
		PickedAt:   *p.PickedAt,
	}

	if err := s.publisher.Publish(ctx, kafka.Topics.PickingEvents, p.JobID, event.EventType(), event); err != nil {
		s.logger.WithContext(ctx).Warn("Failed to publish pick event",
			"pickListId", p.ID,
			"error", err.Error(),
		)
	}
}
