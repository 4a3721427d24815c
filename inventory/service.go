/*
Package inventory provides the product catalog and the stock ledger.

PURPOSE:
  The Service is the only writer of products and stock levels. Stock
  mutations are read-modify-write through a Repository backend and run under
  the ambient transaction when one is active, giving the order workflow an
  atomic charge+decrement on unified deployments.

OPERATIONS:
  Catalog: Create, Update, Upsert, Delete (only at zero stock), ByCode, List
  Stock:   Add, Remove, Set, Quantity

INVARIANTS:
  - Product codes are normalized (trimmed, uppercase) at every entry point.
  - Quantity is never negative; Remove rejects with InsufficientStock
    before writing, and the durable stores back this with a CHECK constraint.
  - Deleting a product with nonzero stock fails with Conflict.

SEE ALSO:
  - repository.go: Repository contract and in-memory implementation
  - store/sqlite: Durable Repository
  - orders/: Wraps RemoveStock in the order-placement scope
*/
package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vendmatic/vending-engine/machine"
	"github.com/vendmatic/vending-engine/persistence"
)

// =============================================================================
// SERVICE - Catalog and stock ledger
// =============================================================================

// Service mutates products and stock through a Repository. A nil manager
// means the repository is responsible for its own atomicity.
type Service struct {
	repo Repository
	txm  *persistence.Manager
}

// NewService creates a Service. txm may be nil for repositories that
// serialize internally (e.g. the in-memory one).
func NewService(repo Repository, txm *persistence.Manager) *Service {
	return &Service{repo: repo, txm: txm}
}

// EnsureSchema initializes the underlying repository. Idempotent.
func (s *Service) EnsureSchema(ctx context.Context) error {
	return s.repo.EnsureSchema(ctx)
}

// =============================================================================
// CATALOG OPERATIONS
// =============================================================================

// Create adds a new product with zero stock. Fails with Conflict if the
// code is already taken.
func (s *Service) Create(ctx context.Context, product machine.Product) error {
	normalized, err := validateProduct(&product)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.ByCode(ctx, normalized); err == nil {
			return fmt.Errorf("product %s already exists: %w", normalized, machine.ErrConflict)
		} else if !machine.IsNotFound(err) {
			return err
		}
		return s.repo.Upsert(ctx, product)
	})
}

// Update changes the name and price of an existing product. Stock is
// untouched. Fails with NotFound for an unknown code.
func (s *Service) Update(ctx context.Context, product machine.Product) error {
	normalized, err := validateProduct(&product)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.ByCode(ctx, normalized); err != nil {
			return err
		}
		return s.repo.Upsert(ctx, product)
	})
}

// Upsert creates the product or updates its name and price in place.
func (s *Service) Upsert(ctx context.Context, product machine.Product) error {
	if _, err := validateProduct(&product); err != nil {
		return err
	}
	return s.inTx(ctx, func(ctx context.Context) error {
		return s.repo.Upsert(ctx, product)
	})
}

// Delete removes a product. Fails with NotFound for an unknown code and
// with Conflict while any stock remains.
func (s *Service) Delete(ctx context.Context, code string) error {
	normalized, err := machine.NormalizeCode(code)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.ByCode(ctx, normalized); err != nil {
			return err
		}
		quantity, err := s.repo.Quantity(ctx, normalized)
		if err != nil {
			return err
		}
		if quantity != 0 {
			return fmt.Errorf("product %s has %d units in stock: %w",
				normalized, quantity, machine.ErrConflict)
		}
		return s.repo.Delete(ctx, normalized)
	})
}

// ByCode returns the product for a code. Fails with NotFound.
func (s *Service) ByCode(ctx context.Context, code string) (machine.Product, error) {
	normalized, err := machine.NormalizeCode(code)
	if err != nil {
		return machine.Product{}, err
	}
	return s.repo.ByCode(ctx, normalized)
}

// List returns all products ordered by code.
func (s *Service) List(ctx context.Context) ([]machine.Product, error) {
	return s.repo.All(ctx)
}

// =============================================================================
// STOCK OPERATIONS
// =============================================================================

// Quantity returns the stock level for a code. Unknown codes read as zero.
func (s *Service) Quantity(ctx context.Context, code string) (int, error) {
	normalized, err := machine.NormalizeCode(code)
	if err != nil {
		return 0, err
	}
	return s.repo.Quantity(ctx, normalized)
}

// AddStock increases the quantity for an existing product. quantity must be
// positive.
func (s *Service) AddStock(ctx context.Context, code string, quantity int) error {
	normalized, err := machine.NormalizeCode(code)
	if err != nil {
		return err
	}
	if quantity <= 0 {
		return &machine.InvalidArgumentError{Field: "quantity", Reason: "must be positive"}
	}

	return s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.ByCode(ctx, normalized); err != nil {
			return err
		}
		current, err := s.repo.Quantity(ctx, normalized)
		if err != nil {
			return err
		}
		return s.repo.SetQuantity(ctx, normalized, current+quantity)
	})
}

// RemoveStock decreases the quantity for an existing product. quantity must
// be positive and must not exceed the level on hand; otherwise
// InsufficientStock is returned and the level is unchanged.
func (s *Service) RemoveStock(ctx context.Context, code string, quantity int) error {
	normalized, err := machine.NormalizeCode(code)
	if err != nil {
		return err
	}
	if quantity <= 0 {
		return &machine.InvalidArgumentError{Field: "quantity", Reason: "must be positive"}
	}

	return s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.ByCode(ctx, normalized); err != nil {
			return err
		}
		current, err := s.repo.Quantity(ctx, normalized)
		if err != nil {
			return err
		}
		if current < quantity {
			return &machine.InsufficientStockError{
				Code:      normalized,
				Requested: quantity,
				Available: current,
			}
		}
		return s.repo.SetQuantity(ctx, normalized, current-quantity)
	})
}

// SetStock overwrites the quantity for an existing product. quantity must
// be zero or positive.
func (s *Service) SetStock(ctx context.Context, code string, quantity int) error {
	normalized, err := machine.NormalizeCode(code)
	if err != nil {
		return err
	}
	if quantity < 0 {
		return &machine.InvalidArgumentError{Field: "quantity", Reason: "must be zero or positive"}
	}

	return s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.ByCode(ctx, normalized); err != nil {
			return err
		}
		return s.repo.SetQuantity(ctx, normalized, quantity)
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txm == nil {
		return fn(ctx)
	}
	return s.txm.Execute(ctx, fn)
}

// validateProduct normalizes the code in place and checks name and price.
func validateProduct(p *machine.Product) (string, error) {
	normalized, err := machine.NormalizeCode(p.Code)
	if err != nil {
		return "", err
	}
	p.Code = normalized

	if p.Name == "" {
		return "", &machine.InvalidArgumentError{Field: "name", Reason: "product name is required"}
	}
	if p.Price.LessThan(decimal.Zero) {
		return "", &machine.InvalidArgumentError{Field: "price", Reason: "must be zero or positive"}
	}
	return normalized, nil
}
