// cash.go - Durable cash.Storage: one balance row, stored as a decimal string.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vendmatic/vending-engine/machine"
	"github.com/vendmatic/vending-engine/persistence"
)

// CashStorage implements cash.Storage on a SQLite database.
type CashStorage struct {
	db *sql.DB
}

func NewCashStorage(db *sql.DB) *CashStorage {
	return &CashStorage{db: db}
}

// EnsureSchema creates the cash table and seeds the balance row. Idempotent.
func (s *CashStorage) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS cash_state (
		property TEXT PRIMARY KEY,
		value TEXT NOT NULL CHECK (CAST(value AS NUMERIC) >= 0)
	);

	INSERT INTO cash_state (property, value)
	VALUES ('balance', '0')
	ON CONFLICT (property) DO NOTHING;
	`
	if _, err := persistence.QuerierFor(ctx, s.db).ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure cash schema: %w", err)
	}
	return nil
}

// Balance reads the current balance. An absent row reads as zero.
func (s *CashStorage) Balance(ctx context.Context) (decimal.Decimal, error) {
	var value string
	err := persistence.QuerierFor(ctx, s.db).QueryRowContext(ctx,
		"SELECT value FROM cash_state WHERE property = 'balance'",
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}

	balance, err := machine.ParseStoredDecimal(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

// SetBalance overwrites the balance. Negative values fail with InvalidValue
// before touching the database; the CHECK constraint is the backstop.
func (s *CashStorage) SetBalance(ctx context.Context, balance decimal.Decimal) error {
	if balance.Sign() < 0 {
		return fmt.Errorf("balance %s: %w", balance.StringFixed(2), machine.ErrInvalidValue)
	}

	query := `
	INSERT INTO cash_state (property, value)
	VALUES ('balance', ?)
	ON CONFLICT (property) DO UPDATE SET value = excluded.value
	`
	if _, err := persistence.QuerierFor(ctx, s.db).ExecContext(ctx, query, balance.String()); err != nil {
		return fmt.Errorf("write balance: %w", err)
	}
	return nil
}
