/*
Package sqlite provides SQLite-backed implementations of the engine's
storage interfaces.

PURPOSE:
  Implements cash.Storage, inventory.Repository, orders.Log and
  reporting.Repository over database/sql + mattn/go-sqlite3. In production
  the same patterns apply to PostgreSQL - only minor dialect differences.

AMBIENT TRANSACTIONS:
  Every statement resolves its querier through persistence.QuerierFor: when
  the call chain carries an ambient scope opened on this database, the
  statement runs on that transaction; otherwise it runs on the pool as a
  single-operation call. A store never begins, commits or rolls back a
  transaction itself - that is the persistence.Manager's job.

UNIFIED vs COMPENSATING DEPLOYMENTS:
  Unified mode opens ONE database and hands it to every store, so one
  Manager scope covers cash and inventory atomically. Compensating mode
  opens a separate database per ledger; a scope on one never captures
  statements against the other.

INVARIANTS IN THE SCHEMA:
  quantity INTEGER CHECK (quantity >= 0) and the balance CHECK back the
  not-negative invariants at the storage layer, behind the services' own
  read-modify-write validation.

WAL MODE:
  Databases are opened with WAL for better concurrency and crash recovery.
  The pool is capped at one connection: SQLite allows a single writer, and
  a capped pool turns writer contention into queueing instead of
  SQLITE_BUSY errors. It also makes ":memory:" safe to share.

SEE ALSO:
  - persistence/: Scope resolution and transaction lifecycle
  - cash/storage.go, inventory/repository.go: The contracts implemented here
*/
package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (creating if needed) a SQLite database for the engine.
// Use ":memory:" for an in-memory database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
