/*
errors.go - Centralized error taxonomy for the vending engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Domain packages wrap these sentinels with additional context; callers
  classify with errors.Is / errors.As, never by string matching.

ERROR CATEGORIES:
  1. Input errors      - InvalidArgument, InvalidValue
  2. Lookup errors     - NotFound
  3. Business rejects  - OutOfStock, InsufficientFunds, InsufficientStock, Conflict
  4. Workflow outcomes - OrderFailed, OrderFailedCompensated, CompensationFailed

RETRY SEMANTICS:
  - Input and lookup errors: never retried, caller must fix input.
  - Business rejects: safe to retry after state changes (restock, insert cash).
  - OrderFailed: fully rolled back, safe to retry immediately.
  - OrderFailedCompensated: consistent state, no purchase happened.
  - CompensationFailed: fatal, requires operator intervention. Never retried
    silently.

SEE ALSO:
  - orders/placer.go: Produces the workflow outcome errors
  - api/handlers.go: Maps this taxonomy to HTTP status codes
*/
package machine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidArgument is returned for malformed input: blank product code,
	// non-positive amount or quantity.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidValue is returned when a write would violate a store
	// invariant, e.g. a negative balance or quantity.
	ErrInvalidValue = errors.New("invalid value")

	// ErrNotFound is returned for an unknown product code.
	ErrNotFound = errors.New("not found")

	// ErrOutOfStock is returned when a purchase targets a product with
	// zero quantity. No mutation has occurred.
	ErrOutOfStock = errors.New("out of stock")

	// ErrInsufficientFunds is returned when a charge exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientStock is returned when a stock removal exceeds the
	// quantity on hand.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrConflict is returned when an operation conflicts with current
	// state, e.g. deleting a product that still has stock.
	ErrConflict = errors.New("conflict")

	// ErrOrderFailed is returned when the stock decrement failed inside a
	// unified transaction. Everything was rolled back; state is unchanged.
	ErrOrderFailed = errors.New("order failed")

	// ErrOrderFailedCompensated is returned when the stock decrement failed
	// in compensating mode. The cash charge was refunded; state is
	// consistent but no purchase occurred.
	ErrOrderFailedCompensated = errors.New("order failed, charge refunded")

	// ErrCompensationFailed is returned when the compensating refund itself
	// failed. Cash was charged, stock was not decremented, and the refund
	// did not land: observable financial inconsistency.
	ErrCompensationFailed = errors.New("order failed and refund failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidArgumentError reports which input field was malformed.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// NotFoundError reports which product code was unknown.
type NotFoundError struct {
	Code string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown product code %q", e.Code)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// OutOfStockError reports a purchase attempt on an empty slot.
type OutOfStockError struct {
	Code string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %s is out of stock", e.Code)
}

func (e *OutOfStockError) Unwrap() error { return ErrOutOfStock }

// InsufficientFundsError reports the shortfall on a rejected charge.
type InsufficientFundsError struct {
	Requested decimal.Decimal
	Balance   decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: requested %s, balance %s",
		e.Requested.StringFixed(2), e.Balance.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// InsufficientStockError reports the shortfall on a rejected removal.
type InsufficientStockError struct {
	Code      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.Code, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// OrderFailedError wraps a stock-decrement failure inside a unified
// transaction. The transaction was rolled back; no state changed.
type OrderFailedError struct {
	Cause error
}

func (e *OrderFailedError) Error() string {
	return fmt.Sprintf("order failed, transaction rolled back: %v", e.Cause)
}

func (e *OrderFailedError) Unwrap() []error { return []error{ErrOrderFailed, e.Cause} }

// OrderFailedCompensatedError wraps a stock-decrement failure in
// compensating mode after the refund landed. The message states the refund
// explicitly: state is consistent, but no purchase occurred.
type OrderFailedCompensatedError struct {
	Refunded decimal.Decimal
	Cause    error
}

func (e *OrderFailedCompensatedError) Error() string {
	return fmt.Sprintf("order failed, charge of %s was refunded: %v",
		e.Refunded.StringFixed(2), e.Cause)
}

func (e *OrderFailedCompensatedError) Unwrap() []error {
	return []error{ErrOrderFailedCompensated, e.Cause}
}

// CompensationFailedError carries both the original decrement failure and
// the refund failure. Surfaced loudly, never swallowed.
type CompensationFailedError struct {
	Amount      decimal.Decimal
	OriginalErr error
	RefundErr   error
}

func (e *CompensationFailedError) Error() string {
	return fmt.Sprintf("order failed (%v) and refund of %s failed (%v): balance is inconsistent",
		e.OriginalErr, e.Amount.StringFixed(2), e.RefundErr)
}

func (e *CompensationFailedError) Unwrap() []error {
	return []error{ErrCompensationFailed, e.OriginalErr, e.RefundErr}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input or
// a business-rule rejection the client can act on.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrOutOfStock) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrConflict)
}

// IsNotFound returns true if the error indicates a missing product.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable returns true if the same call might succeed on retry without
// any external state change.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrOrderFailed)
}

// IsFatal returns true for errors that require operator intervention.
func IsFatal(err error) bool {
	return errors.Is(err, ErrCompensationFailed)
}
