/*
storage.go - Storage contract for the cash balance

PURPOSE:
  Defines the interface between the Register and its backing store, plus the
  in-memory implementation used by tests and dev mode.

CONTRACT:
  Balance()       absent state reads as zero, never an error
  SetBalance(v)   rejects negative values with InvalidValue
  EnsureSchema()  idempotent create-if-absent, callable any number of times

IMPLEMENTATIONS:
  - Memory (this file): mutex-guarded, for tests and dev
  - store/sqlite.CashStorage: durable, ambient-transaction aware

SEE ALSO:
  - register.go: The only caller of SetBalance
*/
package cash

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vendmatic/vending-engine/machine"
)

// Storage persists the single cash balance.
type Storage interface {
	// Balance returns the current balance. Absent state is zero, not an error.
	Balance(ctx context.Context) (decimal.Decimal, error)

	// SetBalance overwrites the balance. Fails with InvalidValue if negative.
	SetBalance(ctx context.Context, balance decimal.Decimal) error

	// EnsureSchema initializes the store. Idempotent.
	EnsureSchema(ctx context.Context) error
}

// =============================================================================
// MEMORY STORAGE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is an in-memory Storage guarded by a mutex.
type Memory struct {
	mu      sync.RWMutex
	balance decimal.Decimal
}

func NewMemory() *Memory {
	return &Memory{balance: decimal.Zero}
}

func (m *Memory) Balance(_ context.Context) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balance, nil
}

func (m *Memory) SetBalance(_ context.Context, balance decimal.Decimal) error {
	if balance.Sign() < 0 {
		return fmt.Errorf("balance %s: %w", balance.StringFixed(2), machine.ErrInvalidValue)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance = balance
	return nil
}

func (m *Memory) EnsureSchema(_ context.Context) error { return nil }
