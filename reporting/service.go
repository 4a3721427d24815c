/*
Package reporting provides the read-side projection over confirmed orders.

PURPOSE:
  A pure read-side subsystem: it consumes OrderConfirmed events, records
  them, and serves dashboard aggregates (total revenue, order count,
  average order value). It never participates in the order-placement
  transaction - the Projector is wired into the workflow as its best-effort
  event publisher.

SEE ALSO:
  - orders/events.go: The EventPublisher contract Projector implements
  - repository.go: Storage contract and in-memory implementation
  - store/sqlite: Durable repository
*/
package reporting

import (
	"context"
	"fmt"

	"github.com/vendmatic/vending-engine/machine"
)

// =============================================================================
// SERVICE - Dashboard reads
// =============================================================================

// Service serves reporting queries.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Dashboard returns the aggregate stats over all confirmed orders.
func (s *Service) Dashboard(ctx context.Context) (machine.DashboardStats, error) {
	return s.repo.DashboardStats(ctx)
}

// EnsureSchema initializes the underlying repository. Idempotent.
func (s *Service) EnsureSchema(ctx context.Context) error {
	return s.repo.EnsureSchema(ctx)
}

// =============================================================================
// PROJECTOR - OrderConfirmed consumer
// =============================================================================

// Projector records confirmed orders into the reporting store. It is the
// reporting side of the orders.EventPublisher contract.
type Projector struct {
	repo Repository
}

func NewProjector(repo Repository) *Projector {
	return &Projector{repo: repo}
}

// PublishOrderConfirmed records one confirmed order.
func (p *Projector) PublishOrderConfirmed(ctx context.Context, event machine.OrderConfirmed) error {
	normalized, err := machine.NormalizeCode(event.ProductCode)
	if err != nil {
		return err
	}
	if event.Price.Sign() < 0 {
		return &machine.InvalidArgumentError{Field: "price", Reason: "must be zero or positive"}
	}

	if err := p.repo.RecordOrder(ctx, normalized, event.Price, event.OrderedAt); err != nil {
		return fmt.Errorf("record confirmed order: %w", err)
	}
	return nil
}
