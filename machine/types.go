/*
Package machine provides the shared domain kernel for the vending engine.

PURPOSE:
  This package contains the value types and error taxonomy shared by the
  cash, inventory, orders and reporting packages. It has no dependencies
  on persistence or transport - pure domain vocabulary.

KEY CONCEPTS IN THIS FILE (types.go):
  - Product: catalog entry with a normalized code and a decimal price
  - StockLevel: per-product quantity, never negative
  - Receipt: the value returned to a buyer after a successful order
  - DashboardStats: read-side aggregate consumed by the reporting package

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all money, never float64
  2. Normalization: product codes are trimmed and uppercased exactly once,
     at the boundary, via NormalizeCode
  3. Values, not aggregates: Receipt and DashboardStats are computed values,
     they carry no identity and are never mutated

SEE ALSO:
  - errors.go: Error taxonomy used across the engine
  - inventory/: Catalog and stock operations on these types
  - orders/: Produces Receipt values
*/
package machine

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PRODUCT - Catalog entry
// =============================================================================

// Product is a catalog entry. Code is unique, case-insensitive, and stored
// normalized (trimmed, uppercase). Price is always >= 0.
type Product struct {
	Code  string
	Name  string
	Price decimal.Decimal
}

// StockLevel is the quantity on hand for one product. Quantity is never
// negative; the stores back this with a CHECK constraint.
type StockLevel struct {
	Code     string
	Quantity int
}

// =============================================================================
// RECEIPT - Result of a successful order
// =============================================================================

// Receipt is returned to the caller after a successful purchase.
// BalanceAfter and StockAfter are re-read from the ledgers after the
// mutation, not computed client-side.
type Receipt struct {
	ProductCode  string
	Price        decimal.Decimal
	BalanceAfter decimal.Decimal
	StockAfter   int
}

// =============================================================================
// REPORTING VALUES
// =============================================================================

// OrderConfirmed is the domain event emitted after an order commits.
// Publishing it is best-effort and never affects the order outcome.
type OrderConfirmed struct {
	ProductCode string
	Price       decimal.Decimal
	OrderedAt   time.Time
}

// DashboardStats is the reporting projection over confirmed orders.
type DashboardStats struct {
	TotalRevenue      decimal.Decimal
	OrderCount        int
	AverageOrderValue decimal.Decimal
}

// =============================================================================
// CODE NORMALIZATION
// =============================================================================

// NormalizeCode trims and uppercases a product code. Returns
// ErrInvalidArgument if the code is blank after trimming.
//
// Every external boundary (API, workflow, repositories) normalizes through
// this single function so "cola", " Cola " and "COLA" address the same row.
func NormalizeCode(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", &InvalidArgumentError{Field: "code", Reason: "product code is required"}
	}
	return strings.ToUpper(trimmed), nil
}

// ParseStoredDecimal parses a decimal string read back from a store. Stored
// money must always parse; a failure means the row is corrupt and is
// surfaced as an error, never silently read as zero.
func ParseStoredDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("corrupt stored decimal %q: %w", s, err)
	}
	return d, nil
}
