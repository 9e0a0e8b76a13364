package toolcrib

import (
	"context"
	"fmt"
	"log/slog"

	"toolcrib/holding"
	"toolcrib/hwset"
	"toolcrib/store"
)

// Version is reported by the HTTP root endpoint.
const Version = "1.0.0"

// Crib is the inventory-consistency core. It composes single-record reads
// and writes against the store to implement checkout, check-in and set
// creation, and runs the compensating write that keeps availability and
// holdings synchronized when the second of two dependent writes fails.
//
// Crib holds no per-operation state and no in-process locks; each call is a
// short-lived sequence of store operations, and correctness under
// concurrency relies on the store's per-record atomicity.
type Crib struct {
	store  store.Store
	logger *slog.Logger
}

// New creates a new Crib instance.
func New(s store.Store, opts ...Option) *Crib {
	c := &Crib{
		store:  s,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures a Crib instance.
type Option func(*Crib)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crib) {
		c.logger = logger
	}
}

// Start migrates the store and verifies connectivity. Call it once at
// process start, before serving requests.
func (c *Crib) Start(ctx context.Context) error {
	if err := c.store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}
	c.logger.Info("store connection successful")
	return nil
}

// Close releases the underlying store connection.
func (c *Crib) Close() error {
	return c.store.Close()
}

// CreateSet registers a new hardware set with the given capacity. The set
// starts fully available. It fails with ErrSetExists when the name is
// already taken and ErrInvalidInput when the name is empty or capacity is
// not positive.
func (c *Crib) CreateSet(ctx context.Context, name string, capacity int) (*hwset.Set, error) {
	if name == "" {
		return nil, ValidationError{Field: "hwSetName", Message: "must not be empty"}
	}
	if capacity <= 0 {
		return nil, ValidationError{Field: "capacity", Message: "must be a positive integer"}
	}

	s := hwset.New(name, capacity)
	if err := c.store.CreateSet(ctx, s); err != nil {
		return nil, err
	}

	c.logger.Info("hardware set created", "set", name, "capacity", capacity)
	return s, nil
}

// Set returns the named hardware set, or ErrSetNotFound.
func (c *Crib) Set(ctx context.Context, name string) (*hwset.Set, error) {
	if name == "" {
		return nil, ValidationError{Field: "hwSetName", Message: "must not be empty"}
	}
	return c.store.GetSet(ctx, name)
}

// SetNames returns the names of all hardware sets, in no particular order.
func (c *Crib) SetNames(ctx context.Context) ([]string, error) {
	return c.store.ListSetNames(ctx)
}

// Holding returns the quantity of the named set currently checked out by
// the project; 0 when the project holds nothing.
func (c *Crib) Holding(ctx context.Context, projectID, setName string) (int, error) {
	if projectID == "" {
		return 0, ValidationError{Field: "projectId", Message: "must not be empty"}
	}
	if setName == "" {
		return 0, ValidationError{Field: "hwSetName", Message: "must not be empty"}
	}
	return c.store.HoldingQuantity(ctx, projectID, setName)
}

// ProjectHoldings returns every set the project currently has units of,
// with quantities. Projects holding nothing get an empty slice.
func (c *Crib) ProjectHoldings(ctx context.Context, projectID string) ([]holding.Holding, error) {
	if projectID == "" {
		return nil, ValidationError{Field: "projectId", Message: "must not be empty"}
	}
	return c.store.ListHoldings(ctx, projectID)
}

// Checkout moves qty units of the named set from availability into the
// project's holding.
//
// The reservation is one atomic conditional store operation; the holding
// update is a second, dependent write. When the holding write fails Checkout
// issues a compensating availability adjustment to undo the reservation and
// returns ErrOperationFailed. The compensation is best-effort: when it also
// fails, availability remains overcounted by qty relative to recorded
// holdings until manually reconciled, and the condition is logged.
func (c *Crib) Checkout(ctx context.Context, projectID, setName string, qty int, userID string) error {
	if err := validateRequest(projectID, setName, qty, userID); err != nil {
		return err
	}

	s, err := c.store.GetSet(ctx, setName)
	if err != nil {
		return err
	}
	if s.Availability < qty {
		return ErrInsufficientAvailability
	}

	if err := c.store.Reserve(ctx, setName, qty); err != nil {
		// The pre-check passed, so this is a race with a concurrent
		// checkout or a store failure; either way no write happened.
		return fmt.Errorf("%w: reserve %d of %s: %v", ErrOperationFailed, qty, setName, err)
	}

	if err := c.store.ApplyHoldingDelta(ctx, projectID, setName, qty); err != nil {
		c.compensate(ctx, setName, qty, err)
		return fmt.Errorf("%w: record checkout for project %s: %v", ErrOperationFailed, projectID, err)
	}

	c.logger.Info("checked out", "project", projectID, "set", setName, "qty", qty, "user", userID)
	return nil
}

// Checkin returns qty units of the named set from the project's holding to
// availability.
//
// Both range checks (holding large enough, capacity not exceeded) run
// before either store write. Mirrors Checkout: the availability adjustment
// lands first, and a failure of the dependent holding write triggers a
// best-effort compensating adjustment before ErrOperationFailed surfaces.
func (c *Crib) Checkin(ctx context.Context, projectID, setName string, qty int, userID string) error {
	if err := validateRequest(projectID, setName, qty, userID); err != nil {
		return err
	}

	s, err := c.store.GetSet(ctx, setName)
	if err != nil {
		return err
	}

	held, err := c.store.HoldingQuantity(ctx, projectID, setName)
	if err != nil {
		return fmt.Errorf("%w: read holding for project %s: %v", ErrOperationFailed, projectID, err)
	}
	if held < qty {
		return ErrHoldingRange
	}
	if s.Availability+qty > s.Capacity {
		return ErrCapacityExceeded
	}

	if err := c.store.AdjustAvailability(ctx, setName, qty); err != nil {
		return fmt.Errorf("%w: release %d of %s: %v", ErrOperationFailed, qty, setName, err)
	}

	if err := c.store.ApplyHoldingDelta(ctx, projectID, setName, -qty); err != nil {
		c.compensate(ctx, setName, -qty, err)
		return fmt.Errorf("%w: record check-in for project %s: %v", ErrOperationFailed, projectID, err)
	}

	c.logger.Info("checked in", "project", projectID, "set", setName, "qty", qty, "user", userID)
	return nil
}

// compensate undoes a prior availability write of delta units after the
// dependent holding write failed with cause. A failed compensation leaves
// capacity-availability overcounted by delta relative to recorded holdings;
// that inconsistency is logged here and the original cause still surfaces
// to the caller.
func (c *Crib) compensate(ctx context.Context, setName string, delta int, cause error) {
	if err := c.store.AdjustAvailability(ctx, setName, delta); err != nil {
		c.logger.Error("compensation failed, availability inconsistent with holdings",
			"set", setName, "delta", delta, "cause", cause, "error", err)
		return
	}
	c.logger.Warn("holding write failed, reservation compensated",
		"set", setName, "delta", delta, "cause", cause)
}

func validateRequest(projectID, setName string, qty int, userID string) error {
	if projectID == "" {
		return ValidationError{Field: "projectId", Message: "must not be empty"}
	}
	if setName == "" {
		return ValidationError{Field: "hwSetName", Message: "must not be empty"}
	}
	if qty <= 0 {
		return ValidationError{Field: "qty", Message: "must be a positive integer"}
	}
	if userID == "" {
		return ValidationError{Field: "userId", Message: "must not be empty"}
	}
	return nil
}
