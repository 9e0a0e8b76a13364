package store

import (
	"context"

	"toolcrib/holding"
	"toolcrib/hwset"
)

// Store is the unified storage interface for hardware sets and project
// holdings. Instead of embedding per-entity sub-interfaces, we explicitly
// declare all methods to keep the full contract in one place.
//
// Every method is a single logical record operation and must be atomic with
// respect to concurrent callers. Store implementations provide no
// multi-record transaction; sequencing two dependent writes (and undoing
// the first when the second fails) is the caller's job.
type Store interface {
	// Hardware set methods
	//
	// CreateSet persists a new set and fails with toolcrib.ErrSetExists if
	// the name is already taken. GetSet fails with toolcrib.ErrSetNotFound.
	CreateSet(ctx context.Context, s *hwset.Set) error
	GetSet(ctx context.Context, name string) (*hwset.Set, error)
	ListSetNames(ctx context.Context) ([]string, error)

	// AdjustAvailability applies delta (positive for check-in, negative for
	// checkout) to the set's availability. It is the single mutation point
	// for availability. It fails with toolcrib.ErrAvailabilityRange, writing
	// nothing, when the result would leave [0, capacity], and with
	// toolcrib.ErrSetNotFound when the set is absent. Implementations must
	// re-check the range and apply the delta in one atomic operation.
	AdjustAvailability(ctx context.Context, name string, delta int) error

	// Reserve decrements availability by amount only if availability is at
	// least amount, as a single atomic conditional operation. It fails with
	// toolcrib.ErrInsufficientAvailability, writing nothing, otherwise.
	Reserve(ctx context.Context, name string, amount int) error

	// Holding methods
	//
	// HoldingQuantity returns the quantity the project currently has checked
	// out, or 0 when no record exists; absence is not an error.
	HoldingQuantity(ctx context.Context, projectID, setName string) (int, error)

	// ApplyHoldingDelta adds delta to the project's holding of the named
	// set. With q the current quantity (0 when absent) and newQ = q + delta:
	// newQ < 0 fails with toolcrib.ErrHoldingRange and writes nothing;
	// newQ == 0 deletes any existing record; newQ > 0 upserts the record.
	// When no record exists and delta <= 0 it fails with
	// toolcrib.ErrHoldingRange. A zero-quantity record is never persisted.
	ApplyHoldingDelta(ctx context.Context, projectID, setName string, delta int) error

	// ListHoldings returns every holding record for the project, in no
	// particular order. All returned quantities are positive; a project
	// with nothing checked out gets an empty slice.
	ListHoldings(ctx context.Context, projectID string) ([]holding.Holding, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
