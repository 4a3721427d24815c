// repository.go - Storage contract for the reporting projection.
package reporting

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendmatic/vending-engine/machine"
)

// Repository persists confirmed orders and computes dashboard aggregates.
type Repository interface {
	RecordOrder(ctx context.Context, productCode string, price decimal.Decimal, orderedAt time.Time) error
	DashboardStats(ctx context.Context) (machine.DashboardStats, error)
	EnsureSchema(ctx context.Context) error
}

// =============================================================================
// MEMORY REPOSITORY - In-memory implementation (for testing/dev)
// =============================================================================

type confirmedOrder struct {
	code      string
	price     decimal.Decimal
	orderedAt time.Time
}

// Memory is an in-memory Repository guarded by a mutex.
type Memory struct {
	mu     sync.RWMutex
	orders []confirmedOrder
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) RecordOrder(_ context.Context, productCode string, price decimal.Decimal, orderedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, confirmedOrder{code: productCode, price: price, orderedAt: orderedAt})
	return nil
}

func (m *Memory) DashboardStats(_ context.Context) (machine.DashboardStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := machine.DashboardStats{
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
	}
	for _, order := range m.orders {
		stats.TotalRevenue = stats.TotalRevenue.Add(order.price)
	}
	stats.OrderCount = len(m.orders)
	if stats.OrderCount > 0 {
		stats.AverageOrderValue = stats.TotalRevenue.
			Div(decimal.NewFromInt(int64(stats.OrderCount))).
			Round(2)
	}
	return stats, nil
}

func (m *Memory) EnsureSchema(_ context.Context) error { return nil }
