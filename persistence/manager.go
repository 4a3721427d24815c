/*
manager.go - Transaction lifecycle: begin if absent, reuse if present

PURPOSE:
  Manager owns the begin/commit/rollback lifecycle for one database. Execute
  is the only entry point: it opens a transaction at serializable isolation,
  publishes it as the ambient scope, runs the given function, and commits or
  rolls back depending on the outcome. A nested Execute on the same database
  is a no-op wrapper - the outermost call owns commit/rollback.

CANCELLATION:
  The transaction is begun with the caller's context, so database/sql rolls
  it back automatically if the context is cancelled mid-flight. A cancelled
  call can therefore never leave a charge half-committed: either Commit was
  acknowledged or the transaction is gone.

SEE ALSO:
  - scope.go: Scope carrier and QuerierFor
  - orders/placer.go: Wraps charge+decrement in one Execute (unified mode)
*/
package persistence

import (
	"context"
	"database/sql"
	"fmt"
)

// =============================================================================
// MANAGER
// =============================================================================

// Manager begins and finishes transactions on a single database.
type Manager struct {
	db        *sql.DB
	isolation sql.IsolationLevel
}

// NewManager creates a Manager with serializable isolation, the level the
// ledger invariants are specified against.
func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db, isolation: sql.LevelSerializable}
}

// NewManagerWithIsolation creates a Manager with an explicit isolation level.
// Only tests and non-ledger workloads should weaken the default.
func NewManagerWithIsolation(db *sql.DB, level sql.IsolationLevel) *Manager {
	return &Manager{db: db, isolation: level}
}

// DB returns the database this manager transacts on.
func (m *Manager) DB() *sql.DB { return m.db }

// Execute runs fn within a transaction on the manager's database.
//
// If the call chain already carries a scope on this database, fn runs
// directly against it: no new transaction, no commit, no rollback - the
// outermost Execute owns those. Otherwise a new transaction is begun,
// published as the ambient scope for fn, committed if fn returns nil and
// rolled back if it returns an error (the error is propagated unchanged).
func (m *Manager) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := scopeOn(ctx, m.db); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: m.isolation})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	parent, _ := ScopeFrom(ctx)
	scope := &Scope{db: m.db, tx: tx, parent: parent}

	if err := fn(WithScope(ctx, scope)); err != nil {
		// Rollback can only fail if the transaction is already finished
		// (e.g. context cancellation); the original error still wins.
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Run is the value-returning form of Execute.
func Run[T any](ctx context.Context, m *Manager, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := m.Execute(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// RunMaybe is Run for an optional manager: with a nil manager fn runs
// directly, relying on the backend's own atomicity.
func RunMaybe[T any](ctx context.Context, m *Manager, fn func(ctx context.Context) (T, error)) (T, error) {
	if m == nil {
		return fn(ctx)
	}
	return Run(ctx, m, fn)
}
