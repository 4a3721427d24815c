/*
Package orders implements the order-placement workflow.

PURPOSE:
  PlaceOrder coordinates the cash ledger and the inventory ledger to fulfill
  a purchase: validate, charge cash, decrement stock, return a receipt. The
  two mutations span two aggregates, so partial failure between them is the
  central hazard this package exists to handle.

TWO STRATEGIES, ONE INTERFACE:
  Whether both ledgers share one transactional store is a deployment-time
  property, so the strategy is chosen at construction, not per call:

  UnifiedPlacer      both ledgers on one database. Charge and decrement run
                     inside a single serializable ambient transaction; a
                     decrement failure rolls everything back and surfaces as
                     OrderFailed. No intermediate charged state is ever
                     durably observable.

  CompensatingPlacer ledgers on independent engines with no shared
                     transaction. The charge commits first; if the decrement
                     then fails, an explicit compensating Insert restores
                     the balance and the call fails with
                     OrderFailedCompensated. If the refund itself fails the
                     call fails with the fatal CompensationFailed.

ORDERING:
  Charge-then-decrement is fixed. Compensation only ever reverses cash,
  which is correct precisely because the stock decrement is the last
  mutating step. Any step added after the decrement would require extending
  the compensation path; a test pins this dependency.

EVENTS:
  On success the workflow appends to the order log and publishes
  OrderConfirmed, both best-effort after commit. Neither can affect the
  order outcome.

SEE ALSO:
  - events.go: Publisher and order-log contracts
  - machine/errors.go: OrderFailed / OrderFailedCompensated / CompensationFailed
  - cash/, inventory/: The two ledgers
*/
package orders

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendmatic/vending-engine/cash"
	"github.com/vendmatic/vending-engine/inventory"
	"github.com/vendmatic/vending-engine/machine"
	"github.com/vendmatic/vending-engine/persistence"
)

// Placer places orders. Implementations differ only in how they make the
// charge and the decrement atomic (or recover when they cannot be).
type Placer interface {
	PlaceOrder(ctx context.Context, code string) (machine.Receipt, error)
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

// Option configures optional collaborators on a placer.
type Option func(*workflow)

// WithPublisher sets the best-effort OrderConfirmed publisher.
func WithPublisher(p EventPublisher) Option {
	return func(w *workflow) { w.publisher = p }
}

// WithLog sets the append-only order log.
func WithLog(l Log) Option {
	return func(w *workflow) { w.log = l }
}

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(w *workflow) { w.now = now }
}

// workflow holds the collaborators shared by both strategies.
type workflow struct {
	register  *cash.Register
	stock     *inventory.Service
	publisher EventPublisher
	log       Log
	now       func() time.Time
}

func newWorkflow(register *cash.Register, stock *inventory.Service, opts []Option) workflow {
	w := workflow{register: register, stock: stock, now: time.Now}
	for _, opt := range opts {
		opt(&w)
	}
	return w
}

// =============================================================================
// UNIFIED STRATEGY - One store, one transaction
// =============================================================================

// UnifiedPlacer runs the whole order inside one ambient transaction on the
// store both ledgers share.
type UnifiedPlacer struct {
	workflow
	txm *persistence.Manager
}

// NewUnifiedPlacer creates the single-store strategy. txm must be the same
// manager (same database) the cash register and inventory service use, or
// their operations will not enlist in the order's transaction.
func NewUnifiedPlacer(register *cash.Register, stock *inventory.Service, txm *persistence.Manager, opts ...Option) *UnifiedPlacer {
	return &UnifiedPlacer{workflow: newWorkflow(register, stock, opts), txm: txm}
}

func (p *UnifiedPlacer) PlaceOrder(ctx context.Context, code string) (machine.Receipt, error) {
	normalized, err := machine.NormalizeCode(code)
	if err != nil {
		return machine.Receipt{}, err
	}

	var productName string
	receipt, err := persistence.Run(ctx, p.txm, func(ctx context.Context) (machine.Receipt, error) {
		product, err := p.loadAndValidate(ctx, normalized)
		if err != nil {
			return machine.Receipt{}, err
		}
		productName = product.Name

		if err := p.register.Charge(ctx, product.Price); err != nil {
			return machine.Receipt{}, err
		}
		if err := p.stock.RemoveStock(ctx, normalized, 1); err != nil {
			// Returning the error aborts the ambient transaction: the
			// charge above is rolled back together with everything else.
			return machine.Receipt{}, &machine.OrderFailedError{Cause: err}
		}

		return p.buildReceipt(ctx, normalized, product.Price)
	})
	if err != nil {
		return machine.Receipt{}, err
	}

	p.confirm(ctx, receipt, productName)
	return receipt, nil
}

// =============================================================================
// COMPENSATING STRATEGY - Independent stores, saga-lite
// =============================================================================

// CompensatingPlacer coordinates ledgers that cannot share a transaction.
// Each ledger operation commits on its own engine; a decrement failure is
// recovered with an explicit compensating refund.
type CompensatingPlacer struct {
	workflow
}

// NewCompensatingPlacer creates the cross-store strategy.
func NewCompensatingPlacer(register *cash.Register, stock *inventory.Service, opts ...Option) *CompensatingPlacer {
	return &CompensatingPlacer{workflow: newWorkflow(register, stock, opts)}
}

func (p *CompensatingPlacer) PlaceOrder(ctx context.Context, code string) (machine.Receipt, error) {
	normalized, err := machine.NormalizeCode(code)
	if err != nil {
		return machine.Receipt{}, err
	}

	product, err := p.loadAndValidate(ctx, normalized)
	if err != nil {
		return machine.Receipt{}, err
	}

	if err := p.register.Charge(ctx, product.Price); err != nil {
		return machine.Receipt{}, err
	}

	if removeErr := p.stock.RemoveStock(ctx, normalized, 1); removeErr != nil {
		// The charge has already durably committed on its own engine.
		// Issue the compensating insert before reporting failure.
		if refundErr := p.register.Insert(ctx, product.Price); refundErr != nil {
			return machine.Receipt{}, &machine.CompensationFailedError{
				Amount:      product.Price,
				OriginalErr: removeErr,
				RefundErr:   refundErr,
			}
		}
		return machine.Receipt{}, &machine.OrderFailedCompensatedError{
			Refunded: product.Price,
			Cause:    removeErr,
		}
	}

	receipt, err := p.buildReceipt(ctx, normalized, product.Price)
	if err != nil {
		return machine.Receipt{}, err
	}

	p.confirm(ctx, receipt, product.Name)
	return receipt, nil
}

// =============================================================================
// SHARED STEPS
// =============================================================================

// loadAndValidate performs the three independent reads and the advisory
// checks. No mutation has happened when it returns; the services re-check
// the same invariants under their own read-modify-write to close races.
func (w *workflow) loadAndValidate(ctx context.Context, code string) (machine.Product, error) {
	product, err := w.stock.ByCode(ctx, code)
	if err != nil {
		return machine.Product{}, err
	}
	quantity, err := w.stock.Quantity(ctx, code)
	if err != nil {
		return machine.Product{}, err
	}
	balance, err := w.register.Balance(ctx)
	if err != nil {
		return machine.Product{}, err
	}

	if quantity <= 0 {
		return machine.Product{}, &machine.OutOfStockError{Code: code}
	}
	if balance.LessThan(product.Price) {
		return machine.Product{}, &machine.InsufficientFundsError{
			Requested: product.Price,
			Balance:   balance,
		}
	}
	return product, nil
}

// buildReceipt re-reads both ledgers so the receipt reflects stored state,
// not client-side arithmetic.
func (w *workflow) buildReceipt(ctx context.Context, code string, price decimal.Decimal) (machine.Receipt, error) {
	balance, err := w.register.Balance(ctx)
	if err != nil {
		return machine.Receipt{}, err
	}
	quantity, err := w.stock.Quantity(ctx, code)
	if err != nil {
		return machine.Receipt{}, err
	}
	return machine.Receipt{
		ProductCode:  code,
		Price:        price,
		BalanceAfter: balance,
		StockAfter:   quantity,
	}, nil
}

// confirm appends to the order log and publishes OrderConfirmed. Both are
// best-effort: failures are logged and never surface to the buyer.
func (w *workflow) confirm(ctx context.Context, receipt machine.Receipt, productName string) {
	orderedAt := w.now()

	if w.log != nil {
		record := NewRecord(receipt.ProductCode, productName, receipt.Price, orderedAt)
		if err := w.log.Append(ctx, record); err != nil {
			log.Printf("orders: append to order log failed: %v", err)
		}
	}

	if w.publisher != nil {
		event := machine.OrderConfirmed{
			ProductCode: receipt.ProductCode,
			Price:       receipt.Price,
			OrderedAt:   orderedAt,
		}
		if err := w.publisher.PublishOrderConfirmed(ctx, event); err != nil {
			log.Printf("orders: publish OrderConfirmed failed: %v", err)
		}
	}
}
