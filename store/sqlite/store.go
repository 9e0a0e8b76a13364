// Package sqlite provides an embedded SQL Store backend. Availability
// mutations are single conditional UPDATE statements, which keeps each
// logical record operation atomic without explicit locking.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"toolcrib"
	"toolcrib/holding"
	"toolcrib/hwset"
	"toolcrib/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path. WAL and a busy
// timeout keep concurrent request handlers from tripping over "database is
// locked" errors.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout=5000&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("toolcrib/sqlite: open: %w", err)
	}
	db.SetConnMaxIdleTime(2 * time.Minute)
	return &Store{db: db}, nil
}

// New creates a Store on an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate creates the required tables. The CHECK constraints restate the
// structural invariants so a bug above this layer cannot persist an
// out-of-range counter or a zero-quantity holding.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS hardware_sets (
			hw_set_name  TEXT PRIMARY KEY,
			capacity     INTEGER NOT NULL CHECK (capacity > 0),
			availability INTEGER NOT NULL CHECK (availability BETWEEN 0 AND capacity)
		);`,
		`CREATE TABLE IF NOT EXISTS project_checkouts (
			project_id  TEXT NOT NULL,
			hw_set_name TEXT NOT NULL,
			quantity    INTEGER NOT NULL CHECK (quantity > 0),
			PRIMARY KEY (project_id, hw_set_name)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("toolcrib/sqlite: migrate: %w", err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Hardware set methods

func (s *Store) CreateSet(ctx context.Context, set *hwset.Set) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO hardware_sets (hw_set_name, capacity, availability)
		 VALUES (?, ?, ?)
		 ON CONFLICT (hw_set_name) DO NOTHING`,
		set.Name, set.Capacity, set.Availability,
	)
	if err != nil {
		return fmt.Errorf("toolcrib/sqlite: create set: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("toolcrib/sqlite: create set: %w", err)
	}
	if n == 0 {
		return toolcrib.ErrSetExists
	}
	return nil
}

func (s *Store) GetSet(ctx context.Context, name string) (*hwset.Set, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT hw_set_name, capacity, availability
		 FROM hardware_sets WHERE hw_set_name = ?`, name,
	)
	var set hwset.Set
	if err := row.Scan(&set.Name, &set.Capacity, &set.Availability); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, toolcrib.ErrSetNotFound
		}
		return nil, fmt.Errorf("toolcrib/sqlite: get set: %w", err)
	}
	return &set, nil
}

func (s *Store) ListSetNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT hw_set_name FROM hardware_sets`)
	if err != nil {
		return nil, fmt.Errorf("toolcrib/sqlite: list set names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("toolcrib/sqlite: list set names: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) AdjustAvailability(ctx context.Context, name string, delta int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE hardware_sets
		 SET availability = availability + ?
		 WHERE hw_set_name = ? AND availability + ? BETWEEN 0 AND capacity`,
		delta, name, delta,
	)
	if err != nil {
		return fmt.Errorf("toolcrib/sqlite: adjust availability: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("toolcrib/sqlite: adjust availability: %w", err)
	}
	if n == 0 {
		if _, err := s.GetSet(ctx, name); err != nil {
			return err
		}
		return toolcrib.ErrAvailabilityRange
	}
	return nil
}

func (s *Store) Reserve(ctx context.Context, name string, amount int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE hardware_sets
		 SET availability = availability - ?
		 WHERE hw_set_name = ? AND availability >= ?`,
		amount, name, amount,
	)
	if err != nil {
		return fmt.Errorf("toolcrib/sqlite: reserve: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("toolcrib/sqlite: reserve: %w", err)
	}
	if n == 0 {
		if _, err := s.GetSet(ctx, name); err != nil {
			return err
		}
		return toolcrib.ErrInsufficientAvailability
	}
	return nil
}

// Holding methods

func (s *Store) HoldingQuantity(ctx context.Context, projectID, setName string) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT quantity FROM project_checkouts
		 WHERE project_id = ? AND hw_set_name = ?`, projectID, setName,
	)
	var q int
	if err := row.Scan(&q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("toolcrib/sqlite: get holding: %w", err)
	}
	return q, nil
}

func (s *Store) ListHoldings(ctx context.Context, projectID string) ([]holding.Holding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT project_id, hw_set_name, quantity FROM project_checkouts
		 WHERE project_id = ?`, projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("toolcrib/sqlite: list holdings: %w", err)
	}
	defer rows.Close()

	holdings := []holding.Holding{}
	for rows.Next() {
		var h holding.Holding
		if err := rows.Scan(&h.ProjectID, &h.SetName, &h.Quantity); err != nil {
			return nil, fmt.Errorf("toolcrib/sqlite: list holdings: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func (s *Store) ApplyHoldingDelta(ctx context.Context, projectID, setName string, delta int) error {
	if delta > 0 {
		// Atomic upsert; both the insert and the incremented value are
		// positive, so the quantity > 0 invariant holds.
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO project_checkouts (project_id, hw_set_name, quantity)
			 VALUES (?, ?, ?)
			 ON CONFLICT (project_id, hw_set_name)
			 DO UPDATE SET quantity = quantity + excluded.quantity`,
			projectID, setName, delta,
		)
		if err != nil {
			return fmt.Errorf("toolcrib/sqlite: upsert holding: %w", err)
		}
		return nil
	}

	need := -delta

	// Exact check-in deletes the record rather than leaving quantity 0.
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM project_checkouts
		 WHERE project_id = ? AND hw_set_name = ? AND quantity = ?`,
		projectID, setName, need,
	)
	if err != nil {
		return fmt.Errorf("toolcrib/sqlite: delete holding: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("toolcrib/sqlite: delete holding: %w", err)
	} else if n == 1 {
		return nil
	}

	// Partial check-in decrements only while the result stays positive.
	res, err = s.db.ExecContext(ctx,
		`UPDATE project_checkouts
		 SET quantity = quantity + ?
		 WHERE project_id = ? AND hw_set_name = ? AND quantity > ?`,
		delta, projectID, setName, need,
	)
	if err != nil {
		return fmt.Errorf("toolcrib/sqlite: update holding: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("toolcrib/sqlite: update holding: %w", err)
	}
	if n == 0 {
		return toolcrib.ErrHoldingRange
	}
	return nil
}
