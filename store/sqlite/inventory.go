// inventory.go - Durable inventory.Repository: products and stock in one table,
// quantity guarded by a CHECK constraint.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vendmatic/vending-engine/machine"
	"github.com/vendmatic/vending-engine/persistence"
)

// InventoryRepository implements inventory.Repository on a SQLite database.
type InventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// EnsureSchema creates the inventory table. Idempotent.
func (r *InventoryRepository) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS inventory_items (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0)
	);
	`
	if _, err := persistence.QuerierFor(ctx, r.db).ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure inventory schema: %w", err)
	}
	return nil
}

// All returns every product ordered by code.
func (r *InventoryRepository) All(ctx context.Context) ([]machine.Product, error) {
	rows, err := persistence.QuerierFor(ctx, r.db).QueryContext(ctx,
		"SELECT code, name, price FROM inventory_items ORDER BY code",
	)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []machine.Product
	for rows.Next() {
		var p machine.Product
		var price string
		if err := rows.Scan(&p.Code, &p.Name, &price); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if p.Price, err = machine.ParseStoredDecimal(price); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ByCode returns one product. Fails with NotFound.
func (r *InventoryRepository) ByCode(ctx context.Context, code string) (machine.Product, error) {
	var p machine.Product
	var price string
	err := persistence.QuerierFor(ctx, r.db).QueryRowContext(ctx,
		"SELECT code, name, price FROM inventory_items WHERE code = ?", code,
	).Scan(&p.Code, &p.Name, &price)

	if errors.Is(err, sql.ErrNoRows) {
		return machine.Product{}, &machine.NotFoundError{Code: code}
	}
	if err != nil {
		return machine.Product{}, fmt.Errorf("read product: %w", err)
	}
	if p.Price, err = machine.ParseStoredDecimal(price); err != nil {
		return machine.Product{}, fmt.Errorf("read product: %w", err)
	}
	return p, nil
}

// Quantity returns the stock level. Unknown codes read as zero.
func (r *InventoryRepository) Quantity(ctx context.Context, code string) (int, error) {
	var quantity int
	err := persistence.QuerierFor(ctx, r.db).QueryRowContext(ctx,
		"SELECT quantity FROM inventory_items WHERE code = ?", code,
	).Scan(&quantity)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quantity: %w", err)
	}
	return quantity, nil
}

// Upsert inserts a product with zero stock or updates name and price in
// place, leaving the quantity untouched.
func (r *InventoryRepository) Upsert(ctx context.Context, product machine.Product) error {
	query := `
	INSERT INTO inventory_items (code, name, price, quantity)
	VALUES (?, ?, ?, 0)
	ON CONFLICT (code) DO UPDATE SET
		name = excluded.name,
		price = excluded.price
	`
	_, err := persistence.QuerierFor(ctx, r.db).ExecContext(ctx, query,
		product.Code, product.Name, product.Price.String())
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

// Delete removes a product. Fails with NotFound for unknown codes.
func (r *InventoryRepository) Delete(ctx context.Context, code string) error {
	result, err := persistence.QuerierFor(ctx, r.db).ExecContext(ctx,
		"DELETE FROM inventory_items WHERE code = ?", code)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &machine.NotFoundError{Code: code}
	}
	return nil
}

// SetQuantity overwrites the stock level. Fails with NotFound for unknown
// codes and InvalidValue for negative quantities.
func (r *InventoryRepository) SetQuantity(ctx context.Context, code string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("quantity %d: %w", quantity, machine.ErrInvalidValue)
	}

	result, err := persistence.QuerierFor(ctx, r.db).ExecContext(ctx,
		"UPDATE inventory_items SET quantity = ? WHERE code = ?", quantity, code)
	if err != nil {
		return fmt.Errorf("write quantity: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &machine.NotFoundError{Code: code}
	}
	return nil
}
