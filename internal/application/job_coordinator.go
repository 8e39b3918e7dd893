package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradesmatepro/fulfillment-service/internal/domain"
	"github.com/tradesmatepro/fulfillment-service/pkg/kafka"
	"github.com/tradesmatepro/fulfillment-service/pkg/logging"
	"github.com/tradesmatepro/fulfillment-service/pkg/metrics"
	"github.com/tradesmatepro/fulfillment-service/pkg/resilience"
	"github.com/tradesmatepro/fulfillment-service/pkg/tenant"
)

// JobCoordinator drives the job lifecycle. It is the single writer of job
// status and the only component that triggers inventory side effects from
// transitions: reserving on schedule, converting picks to usage on
// completion, releasing holds on cancellation. Each transition and its side
// effects commit atomically.
type JobCoordinator struct {
	jobs         domain.JobRepository
	pickLists    domain.PickListRepository
	reservations *ReservationService
	pickListSvc  *PickListService
	ledger       *LedgerService
	tx           domain.TxRunner
	publisher    EventPublisher
	logger       *logging.Logger
	metrics      *metrics.Metrics
	retry        *resilience.RetryConfig
}

// NewJobCoordinator creates a new job coordinator
func NewJobCoordinator(
	jobs domain.JobRepository,
	pickLists domain.PickListRepository,
	reservations *ReservationService,
	pickListSvc *PickListService,
	ledger *LedgerService,
	tx domain.TxRunner,
	publisher EventPublisher,
	logger *logging.Logger,
	m *metrics.Metrics,
) *JobCoordinator {
	return &JobCoordinator{
		jobs:         jobs,
		pickLists:    pickLists,
		reservations: reservations,
		pickListSvc:  pickListSvc,
		ledger:       ledger,
		tx:           tx,
		publisher:    publisher,
		logger:       logger,
		metrics:      m,
		retry:        concurrencyRetry(),
	}
}

// CreateJob creates a job in quote status.
func (s *JobCoordinator) CreateJob(ctx context.Context, cmd CreateJobCommand) (*JobDTO, error) {
	jobID := cmd.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	items := make([]domain.JobLineItem, len(cmd.LineItems))
	for i, in := range cmd.LineItems {
		items[i] = domain.JobLineItem{
			ItemID:           in.ItemID,
			LocationID:       in.LocationID,
			QuantityRequired: in.QuantityRequired,
		}
	}

	job, err := domain.NewJob(jobID, tenant.IDOrDefault(ctx, DefaultTenantID), items)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	return toJobDTO(job, domain.BadgePickNeeded), nil
}

// GetJob returns a job with its pick-progress badge.
func (s *JobCoordinator) GetJob(ctx context.Context, jobID string) (*JobDTO, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	badge, err := s.pickListSvc.Badge(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return toJobDTO(job, badge), nil
}

// RecordUsedQuantity stores the actually consumed quantity for a job line
// item, overriding the picked-quantity default at completion. Rejected once
// the job is terminal.
func (s *JobCoordinator) RecordUsedQuantity(ctx context.Context, cmd RecordUsedQuantityCommand) (*JobDTO, error) {
	var job *domain.Job
	err := resilience.Retry(ctx, s.retry, func() error {
		return s.tx.WithinTx(ctx, func(txCtx context.Context) error {
			j, txErr := s.jobs.FindByID(txCtx, cmd.JobID)
			if txErr != nil {
				return txErr
			}
			if j.Status.IsTerminal() {
				return domain.ErrLineItemsImmutable
			}
			if txErr := j.RecordUsedQuantity(cmd.ItemID, cmd.LocationID, cmd.Quantity); txErr != nil {
				return txErr
			}
			if txErr := s.jobs.Save(txCtx, j); txErr != nil {
				return fmt.Errorf("failed to save job: %w", txErr)
			}
			job = j
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	badge, err := s.pickListSvc.Badge(ctx, cmd.JobID)
	if err != nil {
		return nil, err
	}

	return toJobDTO(job, badge), nil
}

// Transition moves a job to the requested status, running the status's
// inventory side effects in the same transaction. Requesting the current
// status is an idempotent no-op so callers can retry safely.
func (s *JobCoordinator) Transition(ctx context.Context, cmd TransitionJobCommand) (*JobDTO, error) {
	to := domain.JobStatus(cmd.To)
	if !to.IsValid() {
		return nil, fmt.Errorf("unknown job status %q: %w", cmd.To, domain.ErrInvalidQuantity)
	}

	var (
		job  *domain.Job
		from domain.JobStatus
		noop bool
	)
	err := resilience.Retry(ctx, s.retry, func() error {
		return s.tx.WithinTx(ctx, func(txCtx context.Context) error {
			j, txErr := s.jobs.FindByID(txCtx, cmd.JobID)
			if txErr != nil {
				return txErr
			}

			if j.Status == to {
				job, noop = j, true
				return nil
			}

			from = j.Status
			if txErr := j.Transition(to); txErr != nil {
				return txErr
			}
			if txErr := s.jobs.Save(txCtx, j); txErr != nil {
				return fmt.Errorf("failed to save job: %w", txErr)
			}

			if txErr := s.applyEffects(txCtx, j, to); txErr != nil {
				return txErr
			}

			job, noop = j, false
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if !noop {
		if s.metrics != nil {
			s.metrics.RecordJobTransition(string(from), string(to))
		}
		s.publishStatusChanged(ctx, job, from, to)
	}

	badge, err := s.pickListSvc.Badge(ctx, cmd.JobID)
	if err != nil {
		return nil, err
	}

	return toJobDTO(job, badge), nil
}

// applyEffects runs the inventory side effects of entering a status.
func (s *JobCoordinator) applyEffects(ctx context.Context, job *domain.Job, to domain.JobStatus) error {
	switch to {
	case domain.JobStatusScheduled:
		return s.reserveLineItems(ctx, job)
	case domain.JobStatusInProgress:
		_, err := s.pickListSvc.generateInTx(ctx, job.ID)
		return err
	case domain.JobStatusCompleted:
		return s.completeInTx(ctx, job)
	case domain.JobStatusCancelled:
		return s.cancelInTx(ctx, job.ID)
	default:
		return nil
	}
}

// reserveLineItems places best-effort holds for every line item. Shortfalls
// are logged, not failed: a job may be scheduled before all parts arrive.
func (s *JobCoordinator) reserveLineItems(ctx context.Context, job *domain.Job) error {
	for _, item := range job.LineItems {
		if !item.QuantityRequired.IsPositive() {
			continue
		}

		reservation, granted, err := s.reservations.reserveInTx(ctx, job.ID, item.ItemID, item.LocationID, item.QuantityRequired)
		if err != nil {
			return err
		}

		held := decimal.Zero
		if reservation != nil {
			held = reservation.Quantity
		}
		if held.LessThan(item.QuantityRequired) {
			s.logger.WithContext(ctx).Warn("Reservation shortfall on schedule",
				"jobId", job.ID,
				"itemId", item.ItemID,
				"locationId", item.LocationID,
				"required", item.QuantityRequired.String(),
				"held", held.String(),
				"granted", granted.String(),
			)
		}
	}

	return nil
}

// completeInTx converts the job's picked quantities into permanent usage.
// The picked pick list is the default consumption record; a recorded used
// quantity overrides it per line item. Remaining reservations are released
// so unpicked holds return to stock.
func (s *JobCoordinator) completeInTx(ctx context.Context, job *domain.Job) error {
	pickList, err := s.pickLists.FindCurrentByJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("failed to load pick list: %w", err)
	}

	if pickList != nil {
		switch pickList.Status {
		case domain.PickListStatusInProgress, domain.PickListStatusFulfilled:
			confirmed, cErr := s.pickListSvc.confirmPickInTx(ctx, pickList.ID)
			if cErr != nil {
				return cErr
			}
			pickList = confirmed
		}
	}

	picked := make(map[string]decimal.Decimal)
	if pickList != nil && pickList.Status == domain.PickListStatusPicked {
		for i := range pickList.Lines {
			line := &pickList.Lines[i]
			key := pairKey(line.ItemID, line.LocationID)
			picked[key] = picked[key].Add(line.QuantityPicked)
		}
	}

	// Line items first: used quantity overrides picked.
	seen := make(map[string]bool)
	for _, item := range job.LineItems {
		key := pairKey(item.ItemID, item.LocationID)
		if seen[key] {
			continue
		}
		seen[key] = true

		used := picked[key]
		if item.UsedQuantity != nil {
			used = *item.UsedQuantity
		}

		if err := s.consume(ctx, job.ID, item.ItemID, item.LocationID, picked[key], used); err != nil {
			return err
		}
	}

	// Manual picks for parts outside the job's line items consume as picked.
	if pickList != nil && pickList.Status == domain.PickListStatusPicked {
		for i := range pickList.Lines {
			line := &pickList.Lines[i]
			key := pairKey(line.ItemID, line.LocationID)
			if seen[key] {
				continue
			}
			seen[key] = true

			if err := s.consume(ctx, job.ID, line.ItemID, line.LocationID, picked[key], picked[key]); err != nil {
				return err
			}
		}
	}

	if _, err := s.reservations.releaseForJobInTx(ctx, job.ID); err != nil {
		return err
	}

	return nil
}

// consume releases the hard allocation placed at pick time and records the
// permanent usage for one item/location pair.
func (s *JobCoordinator) consume(ctx context.Context, jobID, itemID, locationID string, allocated, used decimal.Decimal) error {
	tenantID := tenant.IDOrDefault(ctx, DefaultTenantID)

	if allocated.IsPositive() {
		release, err := domain.NewMovement(tenantID, itemID, locationID, domain.MovementAllocation, allocated.Neg(), jobID)
		if err != nil {
			return fmt.Errorf("failed to create allocation release: %w", err)
		}
		if _, err := s.ledger.appendInTx(ctx, release); err != nil {
			return err
		}
	}

	if used.IsPositive() {
		usage, err := domain.NewMovement(tenantID, itemID, locationID, domain.MovementUsage, used.Neg(), jobID)
		if err != nil {
			return fmt.Errorf("failed to create usage movement: %w", err)
		}
		if _, err := s.ledger.appendInTx(ctx, usage); err != nil {
			return err
		}
	}

	return nil
}

// cancelInTx releases the job's holds and discards its unpicked pick list.
// Usage already recorded stays on the ledger; cancellation never rewrites
// history.
func (s *JobCoordinator) cancelInTx(ctx context.Context, jobID string) error {
	if _, err := s.reservations.releaseForJobInTx(ctx, jobID); err != nil {
		return err
	}

	pickList, err := s.pickLists.FindCurrentByJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load pick list: %w", err)
	}
	if pickList == nil {
		return nil
	}

	switch pickList.Status {
	case domain.PickListStatusPicked, domain.PickListStatusDiscarded:
		return nil
	}

	if err := pickList.Discard(); err != nil {
		return err
	}
	if err := s.pickLists.Save(ctx, pickList); err != nil {
		return fmt.Errorf("failed to save pick list: %w", err)
	}

	return nil
}

func (s *JobCoordinator) publishStatusChanged(ctx context.Context, job *domain.Job, from, to domain.JobStatus) {
	if s.publisher == nil {
		return
	}

	event := &domain.JobStatusChangedEvent{
		JobID:     job.ID,
		From:      from,
		To:        to,
		ChangedAt: job.UpdatedAt,
	}

	if err := s.publisher.Publish(ctx, kafka.Topics.JobsEvents, job.ID, event.EventType(), event); err != nil {
		s.logger.WithContext(ctx).Warn("Failed to publish job status event",
			"jobId", job.ID,
			"error", err.Error(),
		)
	}
}
