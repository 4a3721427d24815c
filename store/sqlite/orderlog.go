// orderlog.go - Durable orders.Log: append-only audit trail of confirmed
// orders. No UPDATE, no DELETE.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vendmatic/vending-engine/machine"
	"github.com/vendmatic/vending-engine/orders"
	"github.com/vendmatic/vending-engine/persistence"
)

// OrderLog implements orders.Log on a SQLite database.
type OrderLog struct {
	db *sql.DB
}

func NewOrderLog(db *sql.DB) *OrderLog {
	return &OrderLog{db: db}
}

// EnsureSchema creates the order log table. Idempotent.
func (l *OrderLog) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS order_log (
		id TEXT PRIMARY KEY,
		product_code TEXT NOT NULL,
		product_name TEXT NOT NULL,
		price TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_order_log_created_at
		ON order_log(created_at DESC);
	`
	if _, err := persistence.QuerierFor(ctx, l.db).ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure order log schema: %w", err)
	}
	return nil
}

// Append adds one record to the log.
func (l *OrderLog) Append(ctx context.Context, record orders.Record) error {
	query := `
	INSERT INTO order_log (id, product_code, product_name, price, status, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := persistence.QuerierFor(ctx, l.db).ExecContext(ctx, query,
		record.ID.String(),
		record.ProductCode,
		record.ProductName,
		record.Price.String(),
		string(record.Status),
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append order record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (l *OrderLog) Recent(ctx context.Context, limit int) ([]orders.Record, error) {
	if limit <= 0 {
		return nil, &machine.InvalidArgumentError{Field: "limit", Reason: "must be positive"}
	}

	query := `
	SELECT id, product_code, product_name, price, status, created_at
	FROM order_log
	ORDER BY created_at DESC
	LIMIT ?
	`
	rows, err := persistence.QuerierFor(ctx, l.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list order records: %w", err)
	}
	defer rows.Close()

	var records []orders.Record
	for rows.Next() {
		var rec orders.Record
		var id, price, status, createdAt string
		if err := rows.Scan(&id, &rec.ProductCode, &rec.ProductName, &price, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan order record: %w", err)
		}
		rec.ID, _ = uuid.Parse(id)
		if rec.Price, err = machine.ParseStoredDecimal(price); err != nil {
			return nil, fmt.Errorf("scan order record: %w", err)
		}
		rec.Status = orders.Status(status)
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}
