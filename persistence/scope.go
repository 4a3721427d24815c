/*
Package persistence provides the ambient transaction scope for the engine.

PURPOSE:
  Lets deeply nested calls (workflow -> cash service -> storage, workflow ->
  inventory service -> repository) share exactly one database transaction
  without threading a *sql.Tx through every function signature. The scope
  travels in the context.Context of one logical call chain; it is never
  process-global, so concurrent requests cannot observe each other's
  transactions.

SCOPING DISCIPLINE:
  - A Scope is pushed by Manager.Execute and visible only to the context it
    returns to the wrapped function. Contexts are immutable, so "pop" is
    automatic: when the function returns, callers still hold the previous
    context with the previous scope (or none).
  - Nested Execute calls on the same database reuse the active scope and
    defer commit/rollback to the outermost call.
  - A Scope is bound to the *sql.DB it was opened on. A store backed by a
    different database ignores it and runs on its own pool. This is what
    keeps compensating-mode deployments (independent cash and inventory
    engines) from accidentally enlisting in a foreign transaction.
  - A scope opened on another database shadows but does not replace an
    enclosing one: resolution walks the chain, so a store still finds the
    transaction of its own database under interleaved scopes.

SEE ALSO:
  - manager.go: Begin/commit/rollback lifecycle
  - store/sqlite: Stores that resolve their querier through QuerierFor
*/
package persistence

import (
	"context"
	"database/sql"
)

// Querier is the subset of *sql.DB and *sql.Tx the stores execute against.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// SCOPE - One in-flight transaction, bound to a call chain
// =============================================================================

// Scope is the transient state of one in-flight transaction: the database it
// was opened on, the transaction handle, and the scope it shadowed (if any).
// It exists only for the duration of one Manager.Execute call and never
// outlives it.
type Scope struct {
	db     *sql.DB
	tx     *sql.Tx
	parent *Scope
}

// Tx returns the transaction handle.
func (s *Scope) Tx() *sql.Tx { return s.tx }

// On reports whether this scope was opened on db.
func (s *Scope) On(db *sql.DB) bool { return s.db == db }

type scopeKey struct{}

// WithScope returns a child context carrying s as the ambient scope.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom returns the ambient scope of the call chain, if any.
func ScopeFrom(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok && s != nil
}

// QuerierFor resolves where a store should execute: the innermost ambient
// transaction opened on db, otherwise db's own pool. Stores call this on
// every operation so a single read outside any transaction still works
// (single-operation connection from the pool).
func QuerierFor(ctx context.Context, db *sql.DB) Querier {
	if s, ok := scopeOn(ctx, db); ok {
		return s.tx
	}
	return db
}

// scopeOn finds the innermost scope opened on db, walking the chain of
// shadowed scopes. A scope on another database does not hide an enclosing
// one on db.
func scopeOn(ctx context.Context, db *sql.DB) (*Scope, bool) {
	s, ok := ScopeFrom(ctx)
	if !ok {
		return nil, false
	}
	for ; s != nil; s = s.parent {
		if s.On(db) {
			return s, true
		}
	}
	return nil, false
}
