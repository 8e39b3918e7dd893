package domain

import "context"

// JobRepository persists Job aggregates. Save performs an optimistic
// concurrency check on Version and returns ErrConcurrentModification when the
// stored version has moved.
type JobRepository interface {
	Save(ctx context.Context, job *Job) error
	FindByID(ctx context.Context, jobID string) (*Job, error)
}

// ReservationRepository persists Reservation aggregates.
type ReservationRepository interface {
	Save(ctx context.Context, reservation *Reservation) error
	FindActiveByJob(ctx context.Context, jobID string) ([]*Reservation, error)
	FindActiveByJobAndItem(ctx context.Context, jobID, itemID, locationID string) (*Reservation, error)
}

// PickListRepository persists PickList aggregates. Save is versioned like
// JobRepository.Save.
type PickListRepository interface {
	Save(ctx context.Context, pickList *PickList) error
	FindByID(ctx context.Context, pickListID string) (*PickList, error)
	FindCurrentByJob(ctx context.Context, jobID string) (*PickList, error)
}

// MovementRepository is the append-only movement log. Entries are never
// updated or deleted.
type MovementRepository interface {
	Insert(ctx context.Context, movement *Movement) error
	FindByItemLocation(ctx context.Context, itemID, locationID string, limit int) ([]*Movement, error)
}

// StockLevelRepository persists the materialized running totals. Save checks
// expectedVersion and returns ErrConcurrentModification on a lost race; this
// is the serialization point for all quantity checks.
type StockLevelRepository interface {
	Find(ctx context.Context, itemID, locationID string) (*StockLevel, error)
	Save(ctx context.Context, level *StockLevel, expectedVersion int64) error
}

// TxRunner executes fn atomically: either every write inside fn becomes
// visible, or none do. Multi-row operations (pick confirmation, completion)
// run inside a transaction so the ledger never ends up with allocations that
// have no corresponding picked list.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
