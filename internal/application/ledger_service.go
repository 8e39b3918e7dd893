package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tradesmatepro/fulfillment-service/internal/domain"
	"github.com/tradesmatepro/fulfillment-service/pkg/kafka"
	"github.com/tradesmatepro/fulfillment-service/pkg/logging"
	"github.com/tradesmatepro/fulfillment-service/pkg/metrics"
	"github.com/tradesmatepro/fulfillment-service/pkg/resilience"
	"github.com/tradesmatepro/fulfillment-service/pkg/tenant"
)

// EventPublisher publishes domain events to the message bus. A nil publisher
// disables publishing; event delivery is best effort and never fails the
// originating operation.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key, eventType string, payload any) error
}

// DefaultTenantID scopes all single-tenant deployments.
const DefaultTenantID = "default"

func retryableConcurrency(err error) bool {
	return errors.Is(err, domain.ErrConcurrentModification)
}

func concurrencyRetry() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryableErrors = retryableConcurrency
	return cfg
}

// LedgerService owns the append-only movement log and the materialized stock
// levels derived from it. Every quantity change in the engine funnels through
// Append, so the no-negative-counter checks in the domain cannot be bypassed.
type LedgerService struct {
	movements domain.MovementRepository
	levels    domain.StockLevelRepository
	tx        domain.TxRunner
	publisher EventPublisher
	logger    *logging.Logger
	metrics   *metrics.Metrics
	retry     *resilience.RetryConfig
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	movements domain.MovementRepository,
	levels domain.StockLevelRepository,
	tx domain.TxRunner,
	publisher EventPublisher,
	logger *logging.Logger,
	m *metrics.Metrics,
) *LedgerService {
	return &LedgerService{
		movements: movements,
		levels:    levels,
		tx:        tx,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		retry:     concurrencyRetry(),
	}
}

// Append validates and appends a single movement, updating the stock level
// for its item/location pair. Lost version races are retried with backoff
// because a concurrent append invalidates the level read, not the request.
func (s *LedgerService) Append(ctx context.Context, cmd AppendMovementCommand) (*StockSnapshotDTO, error) {
	movType := domain.MovementType(cmd.Type)
	if !movType.IsValid() {
		return nil, fmt.Errorf("unknown movement type %q: %w", cmd.Type, domain.ErrInvalidQuantity)
	}

	tenantID := tenant.IDOrDefault(ctx, DefaultTenantID)
	movement, err := domain.NewMovement(tenantID, cmd.ItemID, cmd.LocationID, movType, cmd.Quantity, cmd.ReferenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to create movement: %w", err)
	}

	var level *domain.StockLevel
	err = resilience.Retry(ctx, s.retry, func() error {
		return s.tx.WithinTx(ctx, func(txCtx context.Context) error {
			applied, txErr := s.appendInTx(txCtx, movement)
			if txErr != nil {
				return txErr
			}
			level = applied
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordMovementAppended(string(movement.Type))
	}
	s.publishAppended(ctx, movement, level)

	return toSnapshotDTO(level.ToSnapshot()), nil
}

// appendInTx folds one movement into its stock level and inserts the log
// entry. Callers own the transaction and the concurrency retry.
func (s *LedgerService) appendInTx(ctx context.Context, movement *domain.Movement) (*domain.StockLevel, error) {
	level, err := s.levels.Find(ctx, movement.ItemID, movement.LocationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock level: %w", err)
	}
	if level == nil {
		level = domain.NewStockLevel(movement.TenantID, movement.ItemID, movement.LocationID)
	}

	expected := level.Version
	if err := level.Apply(movement); err != nil {
		return nil, err
	}

	if err := s.levels.Save(ctx, level, expected); err != nil {
		return nil, err
	}
	if err := s.movements.Insert(ctx, movement); err != nil {
		return nil, fmt.Errorf("failed to insert movement: %w", err)
	}

	return level, nil
}

// Snapshot returns the current totals for an item/location pair. Pairs with
// no movement history read as all zeroes.
func (s *LedgerService) Snapshot(ctx context.Context, itemID, locationID string) (*StockSnapshotDTO, error) {
	level, err := s.levels.Find(ctx, itemID, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock level: %w", err)
	}
	if level == nil {
		tenantID := tenant.IDOrDefault(ctx, DefaultTenantID)
		level = domain.NewStockLevel(tenantID, itemID, locationID)
	}

	return toSnapshotDTO(level.ToSnapshot()), nil
}

// History returns the most recent ledger entries for an item/location pair.
func (s *LedgerService) History(ctx context.Context, itemID, locationID string, limit int) ([]MovementDTO, error) {
	if limit <= 0 {
		limit = 100
	}

	movements, err := s.movements.FindByItemLocation(ctx, itemID, locationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load movements: %w", err)
	}

	return toMovementDTOs(movements), nil
}

// Recompute rebuilds the stock level from the full movement log. It is the
// repair path for a level suspected of drifting from its entries; each
// counter is a pure sum of its movement types, so replay always converges.
func (s *LedgerService) Recompute(ctx context.Context, itemID, locationID string) (*StockSnapshotDTO, error) {
	tenantID := tenant.IDOrDefault(ctx, DefaultTenantID)

	var rebuilt *domain.StockLevel
	err := resilience.Retry(ctx, s.retry, func() error {
		return s.tx.WithinTx(ctx, func(txCtx context.Context) error {
			movements, txErr := s.movements.FindByItemLocation(txCtx, itemID, locationID, 0)
			if txErr != nil {
				return fmt.Errorf("failed to load movements: %w", txErr)
			}

			current, txErr := s.levels.Find(txCtx, itemID, locationID)
			if txErr != nil {
				return fmt.Errorf("failed to load stock level: %w", txErr)
			}

			level := domain.NewStockLevel(tenantID, itemID, locationID)
			for _, m := range movements {
				switch m.Type {
				case domain.MovementAdjustment, domain.MovementUsage:
					level.OnHand = level.OnHand.Add(m.Quantity)
				case domain.MovementReservation, domain.MovementRelease:
					level.Reserved = level.Reserved.Add(m.Quantity)
				case domain.MovementAllocation:
					level.Allocated = level.Allocated.Add(m.Quantity)
				}
			}
			level.UpdatedAt = time.Now().UTC()

			var expected int64
			if current != nil {
				expected = current.Version
				level.Version = current.Version
			}

			if txErr := s.levels.Save(txCtx, level, expected); txErr != nil {
				return txErr
			}
			rebuilt = level
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Info("Stock level recomputed from ledger",
		"itemId", itemID,
		"locationId", locationID,
		"onHand", rebuilt.OnHand.String(),
		"available", rebuilt.Available().String(),
	)

	return toSnapshotDTO(rebuilt.ToSnapshot()), nil
}

func (s *LedgerService) publishAppended(ctx context.Context, m *domain.Movement, level *domain.StockLevel) {
	if s.publisher == nil {
		return
	}

	event := &domain.MovementAppendedEvent{
		MovementID:  m.ID,
		ItemID:      m.ItemID,
		LocationID:  m.LocationID,
		Type:        m.Type,
		Quantity:    m.Quantity,
		ReferenceID: m.ReferenceID,
		OnHand:      level.OnHand,
		Available:   level.Available(),
		AppendedAt:  m.CreatedAt,
	}

	key := m.ItemID + "/" + m.LocationID
	if err := s.publisher.Publish(ctx, kafka.Topics.InventoryEvents, key, event.EventType(), event); err != nil {
		s.logger.WithContext(ctx).Warn("Failed to publish movement event",
			"movementId", m.ID,
			"error", err.Error(),
		)
	}
}
