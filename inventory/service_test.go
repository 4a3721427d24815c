package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendmatic/vending-engine/inventory"
	"github.com/vendmatic/vending-engine/machine"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService() *inventory.Service {
	// In-memory repository serializes internally; no transaction manager needed.
	return inventory.NewService(inventory.NewMemory(), nil)
}

func cola() machine.Product {
	return machine.Product{Code: "COLA", Name: "Cola", Price: dec("3.50")}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =============================================================================
// CATALOG OPERATIONS
// =============================================================================

func TestService_Create_ThenByCode(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, cola()))

	got, err := svc.ByCode(ctx, "COLA")
	require.NoError(t, err)
	assert.Equal(t, "COLA", got.Code)
	assert.Equal(t, "Cola", got.Name)
	assert.True(t, got.Price.Equal(dec("3.50")))

	quantity, err := svc.Quantity(ctx, "COLA")
	require.NoError(t, err)
	assert.Equal(t, 0, quantity, "new products start with zero stock")
}

func TestService_Create_DuplicateCode_Conflict(t *testing.T) {
	// GIVEN: COLA already exists
	// WHEN: Creating a product with code "cola" (different case)
	// THEN: The create is rejected with Conflict

	svc := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, cola()))

	dup := machine.Product{Code: "cola", Name: "Other Cola", Price: dec("1.00")}
	err := svc.Create(ctx, dup)
	assert.ErrorIs(t, err, machine.ErrConflict)
}

func TestService_CodeNormalization_SharedAcrossSpellings(t *testing.T) {
	// GIVEN: A product created as "  cola "
	// WHEN: Reading it as "COLA", "cola" and " Cola "
	// THEN: All spellings address the same row

	svc := newTestService()
	ctx := context.Background()

	messy := machine.Product{Code: "  cola ", Name: "Cola", Price: dec("3.50")}
	require.NoError(t, svc.Create(ctx, messy))

	for _, spelling := range []string{"COLA", "cola", " Cola "} {
		got, err := svc.ByCode(ctx, spelling)
		require.NoError(t, err, "spelling %q should resolve", spelling)
		assert.Equal(t, "COLA", got.Code)
	}
}

func TestService_Update_UnknownCode_NotFound(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	err := svc.Update(ctx, cola())
	assert.ErrorIs(t, err, machine.ErrNotFound)
}

func TestService_Update_PreservesStock(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, cola()))
	require.NoError(t, svc.AddStock(ctx, "COLA", 5))

	updated := machine.Product{Code: "COLA", Name: "Cola Zero", Price: dec("3.75")}
	require.NoError(t, svc.Update(ctx, updated))

	got, err := svc.ByCode(ctx, "COLA")
	require.NoError(t, err)
	assert.Equal(t, "Cola Zero", got.Name)
	assert.True(t, got.Price.Equal(dec("3.75")))

	quantity, err := svc.Quantity(ctx, "COLA")
	require.NoError(t, err)
	assert.Equal(t, 5, quantity, "update must not touch stock")
}

func TestService_Upsert_CreatesThenUpdates(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, cola()))
	require.NoError(t, svc.Upsert(ctx, machine.Product{Code: "COLA", Name: "Cola Max", Price: dec("4.00")}))

	got, err := svc.ByCode(ctx, "COLA")
	require.NoError(t, err)
	assert.Equal(t, "Cola Max", got.Name)
}

func TestService_Delete_WithStock_Conflict(t *testing.T) {
	// GIVEN: COLA with 3 units on hand
	// WHEN: Deleting COLA
	// THEN: The delete is rejected with Conflict until stock reaches zero

	svc := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, cola()))
	require.NoError(t, svc.AddStock(ctx, "COLA", 3))

	err := svc.Delete(ctx, "COLA")
	assert.ErrorIs(t, err, machine.ErrConflict)

	require.NoError(t, svc.SetStock(ctx, "COLA", 0))
	require.NoError(t, svc.Delete(ctx, "COLA"))

	_, err = svc.ByCode(ctx, "COLA")
	assert.ErrorIs(t, err, machine.ErrNotFound)
}

func TestService_Validation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	blankCode := machine.Product{Code: "   ", Name: "Cola", Price: dec("1.00")}
	assert.ErrorIs(t, svc.Create(ctx, blankCode), machine.ErrInvalidArgument)

	noName := machine.Product{Code: "COLA", Name: "", Price: dec("1.00")}
	assert.ErrorIs(t, svc.Create(ctx, noName), machine.ErrInvalidArgument)

	negativePrice := machine.Product{Code: "COLA", Name: "Cola", Price: dec("-0.01")}
	assert.ErrorIs(t, svc.Create(ctx, negativePrice), machine.ErrInvalidArgument)
}

// =============================================================================
// STOCK OPERATIONS
// =============================================================================

func TestService_Quantity_UnknownCode_ReadsZero(t *testing.T) {
	svc := newTestService()

	quantity, err := svc.Quantity(context.Background(), "GHOST")
	require.NoError(t, err)
	assert.Equal(t, 0, quantity)
}

func TestService_AddStock_Accumulates(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, cola()))

	require.NoError(t, svc.AddStock(ctx, "COLA", 5))
	require.NoError(t, svc.AddStock(ctx, "cola", 2))

	quantity, err := svc.Quantity(ctx, "COLA")
	require.NoError(t, err)
	assert.Equal(t, 7, quantity)
}

func TestService_AddStock_UnknownCode_NotFound(t *testing.T) {
	svc := newTestService()

	err := svc.AddStock(context.Background(), "GHOST", 1)
	assert.ErrorIs(t, err, machine.ErrNotFound)
}

func TestService_RemoveStock_InsufficientStock_LevelUnchanged(t *testing.T) {
	// GIVEN: COLA with 2 units
	// WHEN: Removing 3 units
	// THEN: InsufficientStock is returned and the level is untouched

	svc := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, cola()))
	require.NoError(t, svc.AddStock(ctx, "COLA", 2))

	err := svc.RemoveStock(ctx, "COLA", 3)
	assert.ErrorIs(t, err, machine.ErrInsufficientStock)

	var stockErr *machine.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)

	quantity, err := svc.Quantity(ctx, "COLA")
	require.NoError(t, err)
	assert.Equal(t, 2, quantity, "failed removal must not change the level")
}

func TestService_RemoveStock_DrainsToZero(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, cola()))
	require.NoError(t, svc.AddStock(ctx, "COLA", 2))

	require.NoError(t, svc.RemoveStock(ctx, "COLA", 2))

	quantity, err := svc.Quantity(ctx, "COLA")
	require.NoError(t, err)
	assert.Equal(t, 0, quantity)

	err = svc.RemoveStock(ctx, "COLA", 1)
	assert.ErrorIs(t, err, machine.ErrInsufficientStock, "removing from zero is rejected")
}

func TestService_StockQuantityValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, cola()))

	assert.ErrorIs(t, svc.AddStock(ctx, "COLA", 0), machine.ErrInvalidArgument)
	assert.ErrorIs(t, svc.AddStock(ctx, "COLA", -1), machine.ErrInvalidArgument)
	assert.ErrorIs(t, svc.RemoveStock(ctx, "COLA", 0), machine.ErrInvalidArgument)
	assert.ErrorIs(t, svc.SetStock(ctx, "COLA", -1), machine.ErrInvalidArgument)
	assert.NoError(t, svc.SetStock(ctx, "COLA", 0), "setting zero is allowed")
}

func TestService_List_OrderedByCode(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, machine.Product{Code: "WATER", Name: "Water", Price: dec("1.00")}))
	require.NoError(t, svc.Create(ctx, cola()))
	require.NoError(t, svc.Create(ctx, machine.Product{Code: "CHIPS", Name: "Chips", Price: dec("2.25")}))

	products, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "CHIPS", products[0].Code)
	assert.Equal(t, "COLA", products[1].Code)
	assert.Equal(t, "WATER", products[2].Code)
}
