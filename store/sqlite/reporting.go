// reporting.go - Durable reporting.Repository. Aggregates are computed in Go
// over decimal strings so money never passes through floating point.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendmatic/vending-engine/machine"
	"github.com/vendmatic/vending-engine/persistence"
)

// ReportingRepository implements reporting.Repository on a SQLite database.
type ReportingRepository struct {
	db *sql.DB
}

func NewReportingRepository(db *sql.DB) *ReportingRepository {
	return &ReportingRepository{db: db}
}

// EnsureSchema creates the confirmed-orders table. Idempotent.
func (r *ReportingRepository) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS confirmed_orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_code TEXT NOT NULL,
		total TEXT NOT NULL,
		ordered_at TEXT NOT NULL
	);
	`
	if _, err := persistence.QuerierFor(ctx, r.db).ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure reporting schema: %w", err)
	}
	return nil
}

// RecordOrder appends one confirmed order to the projection.
func (r *ReportingRepository) RecordOrder(ctx context.Context, productCode string, price decimal.Decimal, orderedAt time.Time) error {
	query := `
	INSERT INTO confirmed_orders (product_code, total, ordered_at)
	VALUES (?, ?, ?)
	`
	_, err := persistence.QuerierFor(ctx, r.db).ExecContext(ctx, query,
		productCode, price.String(), orderedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record order: %w", err)
	}
	return nil
}

// DashboardStats aggregates all confirmed orders.
func (r *ReportingRepository) DashboardStats(ctx context.Context) (machine.DashboardStats, error) {
	rows, err := persistence.QuerierFor(ctx, r.db).QueryContext(ctx,
		"SELECT total FROM confirmed_orders")
	if err != nil {
		return machine.DashboardStats{}, fmt.Errorf("read confirmed orders: %w", err)
	}
	defer rows.Close()

	stats := machine.DashboardStats{
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
	}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return machine.DashboardStats{}, fmt.Errorf("scan confirmed order: %w", err)
		}
		total, err := machine.ParseStoredDecimal(raw)
		if err != nil {
			return machine.DashboardStats{}, fmt.Errorf("scan confirmed order: %w", err)
		}
		stats.TotalRevenue = stats.TotalRevenue.Add(total)
		stats.OrderCount++
	}
	if err := rows.Err(); err != nil {
		return machine.DashboardStats{}, err
	}

	if stats.OrderCount > 0 {
		stats.AverageOrderValue = stats.TotalRevenue.
			Div(decimal.NewFromInt(int64(stats.OrderCount))).
			Round(2)
	}
	return stats, nil
}
