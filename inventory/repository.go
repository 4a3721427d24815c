/*
repository.go - Repository contract for products and stock

PURPOSE:
  Defines the interface between the inventory Service and its backing
  store, plus the in-memory implementation used by tests and dev mode.

CONTRACT:
  All()               products ordered by code
  ByCode(code)        NotFound for unknown codes
  Quantity(code)      unknown codes read as zero, never an error
  Upsert(product)     insert with zero stock, or update name/price in place
  Delete(code)        NotFound for unknown codes; no stock check here -
                      the Service enforces delete-only-at-zero
  SetQuantity(c, q)   NotFound for unknown codes, InvalidValue if negative
  EnsureSchema()      idempotent create-if-absent

  Codes passed to a Repository are already normalized; normalization is the
  Service's job.

IMPLEMENTATIONS:
  - Memory (this file): mutex-guarded, for tests and dev
  - store/sqlite.InventoryRepository: durable, ambient-transaction aware
*/
package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vendmatic/vending-engine/machine"
)

// Repository persists products and their stock levels.
type Repository interface {
	All(ctx context.Context) ([]machine.Product, error)
	ByCode(ctx context.Context, code string) (machine.Product, error)
	Quantity(ctx context.Context, code string) (int, error)
	Upsert(ctx context.Context, product machine.Product) error
	Delete(ctx context.Context, code string) error
	SetQuantity(ctx context.Context, code string, quantity int) error
	EnsureSchema(ctx context.Context) error
}

// =============================================================================
// MEMORY REPOSITORY - In-memory implementation (for testing/dev)
// =============================================================================

type record struct {
	product  machine.Product
	quantity int
}

// Memory is an in-memory Repository guarded by a mutex.
type Memory struct {
	mu    sync.RWMutex
	items map[string]*record
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]*record)}
}

func (m *Memory) All(_ context.Context) ([]machine.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	products := make([]machine.Product, 0, len(m.items))
	for _, rec := range m.items {
		products = append(products, rec.product)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Code < products[j].Code })
	return products, nil
}

func (m *Memory) ByCode(_ context.Context, code string) (machine.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.items[code]
	if !ok {
		return machine.Product{}, &machine.NotFoundError{Code: code}
	}
	return rec.product, nil
}

func (m *Memory) Quantity(_ context.Context, code string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.items[code]
	if !ok {
		return 0, nil
	}
	return rec.quantity, nil
}

func (m *Memory) Upsert(_ context.Context, product machine.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.items[product.Code]; ok {
		rec.product = product
		return nil
	}
	m.items[product.Code] = &record{product: product}
	return nil
}

func (m *Memory) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[code]; !ok {
		return &machine.NotFoundError{Code: code}
	}
	delete(m.items, code)
	return nil
}

func (m *Memory) SetQuantity(_ context.Context, code string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("quantity %d: %w", quantity, machine.ErrInvalidValue)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.items[code]
	if !ok {
		return &machine.NotFoundError{Code: code}
	}
	rec.quantity = quantity
	return nil
}

func (m *Memory) EnsureSchema(_ context.Context) error { return nil }
