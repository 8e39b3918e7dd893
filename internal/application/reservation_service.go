package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tradesmatepro/fulfillment-service/internal/domain"
	"github.com/tradesmatepro/fulfillment-service/pkg/kafka"
	"github.com/tradesmatepro/fulfillment-service/pkg/logging"
	"github.com/tradesmatepro/fulfillment-service/pkg/metrics"
	"github.com/tradesmatepro/fulfillment-service/pkg/resilience"
	"github.com/tradesmatepro/fulfillment-service/pkg/tenant"
)

// ReservationService manages soft holds against available stock. Holds are
// granted best effort: when availability cannot cover the request the service
// reserves what it can and reports the shortfall instead of failing.
type ReservationService struct {
	reservations domain.ReservationRepository
	levels       domain.StockLevelRepository
	ledger       *LedgerService
	tx           domain.TxRunner
	publisher    EventPublisher
	logger       *logging.Logger
	metrics      *metrics.Metrics
	retry        *resilience.RetryConfig
}

// NewReservationService creates a new reservation service
func NewReservationService(
	reservations domain.ReservationRepository,
	levels domain.StockLevelRepository,
	ledger *LedgerService,
	tx domain.TxRunner,
	publisher EventPublisher,
	logger *logging.Logger,
	m *metrics.Metrics,
) *ReservationService {
	retry := resilience.DefaultRetryConfig()
	retry.RetryableErrors = func(err error) bool {
		return errors.Is(err, domain.ErrConcurrentModification) ||
			errors.Is(err, domain.ErrInsufficientStock)
	}

	return &ReservationService{
		reservations: reservations,
		levels:       levels,
		ledger:       ledger,
		tx:           tx,
		publisher:    publisher,
		logger:       logger,
		metrics:      m,
		retry:        retry,
	}
}

// Reserve places or tops up a hold for one job line item. Repeating the call
// with the same quantity is a no-op once the hold covers it, so schedule
// retries are safe. The grant is capped by current availability and recorded
// as a RESERVATION movement so reserved stock counts against other jobs.
func (s *ReservationService) Reserve(ctx context.Context, cmd ReserveStockCommand) (*ReserveResultDTO, error) {
	if !cmd.Quantity.IsPositive() {
		return nil, fmt.Errorf("reserve quantity must be positive: %w", domain.ErrInvalidQuantity)
	}

	var (
		reservation *domain.Reservation
		granted     decimal.Decimal
	)
	err := resilience.Retry(ctx, s.retry, func() error {
		return s.tx.WithinTx(ctx, func(txCtx context.Context) error {
			r, g, txErr := s.reserveInTx(txCtx, cmd.JobID, cmd.ItemID, cmd.LocationID, cmd.Quantity)
			if txErr != nil {
				return txErr
			}
			reservation, granted = r, g
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	result := &ReserveResultDTO{
		Requested: cmd.Quantity,
		Granted:   granted,
		Shortfall: decimal.Zero,
		Partial:   false,
	}
	if reservation != nil {
		result.Reservation = toReservationDTO(reservation)
		result.Partial = reservation.Partial
		if reservation.Quantity.LessThan(cmd.Quantity) {
			result.Shortfall = cmd.Quantity.Sub(reservation.Quantity)
		}
	} else {
		result.Shortfall = cmd.Quantity
		result.Partial = true
	}

	if granted.IsPositive() {
		if s.metrics != nil {
			s.metrics.RecordReservationCreated(result.Partial)
		}
		s.publishCreated(ctx, reservation, result.Shortfall)
	}

	return result, nil
}

// reserveInTx grants min(still required, available). Callers own the
// transaction and the concurrency retry.
func (s *ReservationService) reserveInTx(ctx context.Context, jobID, itemID, locationID string, required decimal.Decimal) (*domain.Reservation, decimal.Decimal, error) {
	existing, err := s.reservations.FindActiveByJobAndItem(ctx, jobID, itemID, locationID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to load reservation: %w", err)
	}

	held := decimal.Zero
	if existing != nil {
		held = existing.Quantity
	}
	if held.GreaterThanOrEqual(required) {
		return existing, decimal.Zero, nil
	}
	additional := required.Sub(held)

	level, err := s.levels.Find(ctx, itemID, locationID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to load stock level: %w", err)
	}
	available := decimal.Zero
	if level != nil {
		available = level.Available()
	}

	grant := decimal.Min(additional, available)
	if !grant.IsPositive() {
		return existing, decimal.Zero, nil
	}
	partial := grant.LessThan(additional)

	movement, err := domain.NewMovement(tenant.IDOrDefault(ctx, DefaultTenantID), itemID, locationID, domain.MovementReservation, grant, jobID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to create reservation movement: %w", err)
	}
	if _, err := s.ledger.appendInTx(ctx, movement); err != nil {
		return nil, decimal.Zero, err
	}

	if existing != nil {
		if err := existing.TopUp(grant, partial); err != nil {
			return nil, decimal.Zero, err
		}
		if err := s.reservations.Save(ctx, existing); err != nil {
			return nil, decimal.Zero, fmt.Errorf("failed to save reservation: %w", err)
		}
		return existing, grant, nil
	}

	reservation, err := domain.NewReservation(tenant.IDOrDefault(ctx, DefaultTenantID), jobID, itemID, locationID, grant, partial)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if err := s.reservations.Save(ctx, reservation); err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to save reservation: %w", err)
	}

	return reservation, grant, nil
}

// ReleaseForJob returns every remaining hold of a job to available stock.
// Used on cancellation and at completion for quantity that was reserved but
// never picked. Already released holds are skipped, so the call is safe to
// repeat.
func (s *ReservationService) ReleaseForJob(ctx context.Context, jobID string) ([]ReservationDTO, error) {
	var released []*domain.Reservation
	err := resilience.Retry(ctx, s.retry, func() error {
		return s.tx.WithinTx(ctx, func(txCtx context.Context) error {
			r, txErr := s.releaseForJobInTx(txCtx, jobID)
			if txErr != nil {
				return txErr
			}
			released = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	for _, r := range released {
		s.publishReleased(ctx, r)
	}

	return toReservationDTOs(released), nil
}

// releaseForJobInTx releases all active holds of a job inside the caller's
// transaction and returns the ones it released.
func (s *ReservationService) releaseForJobInTx(ctx context.Context, jobID string) ([]*domain.Reservation, error) {
	active, err := s.reservations.FindActiveByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}

	released := make([]*domain.Reservation, 0, len(active))
	for _, r := range active {
		remaining := r.Remaining()
		if remaining.IsPositive() {
			movement, mErr := domain.NewMovement(r.TenantID, r.ItemID, r.LocationID, domain.MovementRelease, remaining.Neg(), jobID)
			if mErr != nil {
				return nil, fmt.Errorf("failed to create release movement: %w", mErr)
			}
			if _, mErr := s.ledger.appendInTx(ctx, movement); mErr != nil {
				return nil, mErr
			}
		}

		r.Release()
		if err := s.reservations.Save(ctx, r); err != nil {
			return nil, fmt.Errorf("failed to save reservation: %w", err)
		}
		released = append(released, r)
	}

	return released, nil
}

// ActiveByJob lists the active holds of a job.
func (s *ReservationService) ActiveByJob(ctx context.Context, jobID string) ([]ReservationDTO, error) {
	active, err := s.reservations.FindActiveByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}
	return toReservationDTOs(active), nil
}

func (s *ReservationService) publishCreated(ctx context.Context, r *domain.Reservation, shortfall decimal.Decimal) {
	if s.publisher == nil || r == nil {
		return
	}

	event := &domain.ReservationCreatedEvent{
		ReservationID: r.ID,
		JobID:         r.JobID,
		ItemID:        r.ItemID,
		LocationID:    r.LocationID,
		Quantity:      r.Quantity,
		Shortfall:     shortfall,
		Partial:       r.Partial,
		CreatedAt:     r.CreatedAt,
	}

	if err := s.publisher.Publish(ctx, kafka.Topics.InventoryEvents, r.JobID, event.EventType(), event); err != nil {
		s.logger.WithContext(ctx).Warn("Failed to publish reservation event",
			"reservationId", r.ID,
			"error", err.Error(),
		)
	}
}

func (s *ReservationService) publishReleased(ctx context.Context, r *domain.Reservation) {
	if s.publisher == nil {
		return
	}

	event := &domain.ReservationReleasedEvent{
		ReservationID: r.ID,
		JobID:         r.JobID,
		ItemID:        r.ItemID,
		Quantity:      r.Quantity,
		ReleasedAt:    r.UpdatedAt,
	}

	if err := s.publisher.Publish(ctx, kafka.Topics.InventoryEvents, r.JobID, event.EventType(), event); err != nil {
		s.logger.WithContext(ctx).Warn("Failed to publish reservation release event",
			"reservationId", r.ID,
			"error", err.Error(),
		)
	}
}
