/*
events.go - OrderConfirmed publishing and the append-only order log

PURPOSE:
  Defines the two best-effort collaborators of a placer: the event publisher
  the reporting projection subscribes through, and the append-only audit log
  of confirmed orders. Both are fire-and-forget from the workflow's
  perspective; neither participates in the order's transactional outcome.

SEE ALSO:
  - reporting/: Implements EventPublisher to feed the dashboard
  - store/sqlite: Durable Log implementation
*/
package orders

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendmatic/vending-engine/machine"
)

// EventPublisher delivers domain events to interested subsystems.
// Publishing is best-effort: an error is logged by the caller, never
// propagated to the buyer.
type EventPublisher interface {
	PublishOrderConfirmed(ctx context.Context, event machine.OrderConfirmed) error
}

// =============================================================================
// ORDER LOG - Append-only audit trail
// =============================================================================

// Status of a logged order. Only confirmed orders are logged today; the
// status column exists so the log can absorb other outcomes later without a
// schema change.
type Status string

const StatusConfirmed Status = "confirmed"

// Record is one row of the order log.
type Record struct {
	ID          uuid.UUID
	ProductCode string
	ProductName string
	Price       decimal.Decimal
	Status      Status
	CreatedAt   time.Time
}

// NewRecord builds a confirmed-order record with a fresh ID.
func NewRecord(code, name string, price decimal.Decimal, at time.Time) Record {
	return Record{
		ID:          uuid.New(),
		ProductCode: code,
		ProductName: name,
		Price:       price,
		Status:      StatusConfirmed,
		CreatedAt:   at,
	}
}

// Log stores order records. Append-only: no update, no delete.
type Log interface {
	Append(ctx context.Context, record Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	EnsureSchema(ctx context.Context) error
}

// =============================================================================
// MEMORY LOG - In-memory implementation (for testing/dev)
// =============================================================================

// MemoryLog is an in-memory Log guarded by a mutex. Records are returned
// newest first, like the durable implementation.
type MemoryLog struct {
	mu      sync.RWMutex
	records []Record
}

func NewMemoryLog() *MemoryLog { return &MemoryLog{} }

func (l *MemoryLog) Append(_ context.Context, record Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	return nil
}

func (l *MemoryLog) Recent(_ context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, &machine.InvalidArgumentError{Field: "limit", Reason: "must be positive"}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []Record
	for i := len(l.records) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, l.records[i])
	}
	return result, nil
}

func (l *MemoryLog) EnsureSchema(_ context.Context) error { return nil }
