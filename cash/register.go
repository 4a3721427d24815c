/*
Package cash provides the cash ledger: a single non-negative balance.

PURPOSE:
  The Register is the only writer of the machine's cash balance. All
  mutations are read-modify-write through a Storage backend and run under
  the ambient transaction when one is active, so a charge and a stock
  decrement wrapped in one scope commit or roll back together.

OPERATIONS:
  Insert(amount)  balance += amount    amount must be > 0
  Charge(amount)  balance -= amount    amount must be > 0 and <= balance
  RefundAll()     returns balance, resets it to 0
  Balance()       pure read

CONCURRENCY:
  When constructed with a transaction manager, every mutation runs in its
  own serializable transaction unless the call chain already carries one.
  Storage backends without a manager (the in-memory one) serialize with
  their own lock.

SEE ALSO:
  - storage.go: Storage contract and in-memory implementation
  - store/sqlite: Durable Storage over the shared or dedicated database
  - orders/: Wraps Charge in the order-placement scope
*/
package cash

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vendmatic/vending-engine/machine"
	"github.com/vendmatic/vending-engine/persistence"
)

// =============================================================================
// REGISTER - Cash ledger service
// =============================================================================

// Register mutates the cash balance through Storage. A nil manager means the
// storage backend is responsible for its own atomicity.
type Register struct {
	storage Storage
	txm     *persistence.Manager
}

// NewRegister creates a Register. txm may be nil for storage backends that
// serialize internally (e.g. the in-memory one).
func NewRegister(storage Storage, txm *persistence.Manager) *Register {
	return &Register{storage: storage, txm: txm}
}

// Insert adds money to the balance. The amount must be positive.
func (r *Register) Insert(ctx context.Context, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return &machine.InvalidArgumentError{Field: "amount", Reason: "must be positive"}
	}

	return r.inTx(ctx, func(ctx context.Context) error {
		balance, err := r.storage.Balance(ctx)
		if err != nil {
			return fmt.Errorf("read balance: %w", err)
		}
		return r.storage.SetBalance(ctx, balance.Add(amount))
	})
}

// Charge removes money from the balance. The amount must be positive and
// must not exceed the current balance; otherwise InsufficientFunds is
// returned and the balance is unchanged.
func (r *Register) Charge(ctx context.Context, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return &machine.InvalidArgumentError{Field: "amount", Reason: "must be positive"}
	}

	return r.inTx(ctx, func(ctx context.Context) error {
		balance, err := r.storage.Balance(ctx)
		if err != nil {
			return fmt.Errorf("read balance: %w", err)
		}
		if balance.LessThan(amount) {
			return &machine.InsufficientFundsError{Requested: amount, Balance: balance}
		}
		return r.storage.SetBalance(ctx, balance.Sub(amount))
	})
}

// RefundAll returns the current balance and resets it to zero. Refunding an
// empty register is a no-op returning zero.
func (r *Register) RefundAll(ctx context.Context) (decimal.Decimal, error) {
	return persistence.RunMaybe(ctx, r.txm, func(ctx context.Context) (decimal.Decimal, error) {
		balance, err := r.storage.Balance(ctx)
		if err != nil {
			return decimal.Zero, fmt.Errorf("read balance: %w", err)
		}
		if balance.IsZero() {
			return decimal.Zero, nil
		}
		if err := r.storage.SetBalance(ctx, decimal.Zero); err != nil {
			return decimal.Zero, err
		}
		return balance, nil
	})
}

// Balance reads the current balance.
func (r *Register) Balance(ctx context.Context) (decimal.Decimal, error) {
	return r.storage.Balance(ctx)
}

// EnsureSchema initializes the underlying storage. Idempotent.
func (r *Register) EnsureSchema(ctx context.Context) error {
	return r.storage.EnsureSchema(ctx)
}

func (r *Register) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.txm == nil {
		return fn(ctx)
	}
	return r.txm.Execute(ctx, fn)
}
