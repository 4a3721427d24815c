package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendmatic/vending-engine/machine"
	"github.com/vendmatic/vending-engine/orders"
	"github.com/vendmatic/vending-engine/persistence"
	"github.com/vendmatic/vending-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestDB(t *testing.T) *sql.DB {
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =============================================================================
// SCHEMA
// =============================================================================

func TestEnsureSchema_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	stores := []interface {
		EnsureSchema(ctx context.Context) error
	}{
		sqlite.NewCashStorage(db),
		sqlite.NewInventoryRepository(db),
		sqlite.NewOrderLog(db),
		sqlite.NewReportingRepository(db),
	}

	for _, store := range stores {
		require.NoError(t, store.EnsureSchema(ctx))
		require.NoError(t, store.EnsureSchema(ctx), "second EnsureSchema must be a no-op")
	}
}

// =============================================================================
// CASH STORAGE
// =============================================================================

func TestCashStorage_FreshSchema_ReadsZero(t *testing.T) {
	db := newTestDB(t)
	storage := sqlite.NewCashStorage(db)
	ctx := context.Background()
	require.NoError(t, storage.EnsureSchema(ctx))

	balance, err := storage.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestCashStorage_SetAndReadBack_ExactDecimal(t *testing.T) {
	db := newTestDB(t)
	storage := sqlite.NewCashStorage(db)
	ctx := context.Background()
	require.NoError(t, storage.EnsureSchema(ctx))

	require.NoError(t, storage.SetBalance(ctx, dec("12.34")))

	balance, err := storage.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("12.34")), "decimal text storage must round-trip exactly")
}

func TestCashStorage_RejectsNegativeBalance(t *testing.T) {
	db := newTestDB(t)
	storage := sqlite.NewCashStorage(db)
	ctx := context.Background()
	require.NoError(t, storage.EnsureSchema(ctx))
	require.NoError(t, storage.SetBalance(ctx, dec("5.00")))

	err := storage.SetBalance(ctx, dec("-0.01"))
	assert.ErrorIs(t, err, machine.ErrInvalidValue)

	balance, err := storage.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("5.00")))
}

func TestCashStorage_CorruptBalanceRow_SurfacesError(t *testing.T) {
	// GIVEN: A balance row holding a non-decimal value
	// WHEN: Reading the balance
	// THEN: An error surfaces; corrupt money never reads as zero

	db := newTestDB(t)
	storage := sqlite.NewCashStorage(db)
	ctx := context.Background()
	require.NoError(t, storage.EnsureSchema(ctx))

	_, err := db.Exec("UPDATE cash_state SET value = 'garbage' WHERE property = 'balance'")
	require.NoError(t, err)

	_, err = storage.Balance(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")
}

// =============================================================================
// INVENTORY REPOSITORY
// =============================================================================

func seedProduct(t *testing.T, repo *sqlite.InventoryRepository) {
	ctx := context.Background()
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.Upsert(ctx, machine.Product{Code: "COLA", Name: "Cola", Price: dec("3.50")}))
}

func TestInventoryRepository_UpsertPreservesQuantity(t *testing.T) {
	// GIVEN: COLA with 5 units
	// WHEN: Upserting new name and price for COLA
	// THEN: Name and price change, quantity survives

	db := newTestDB(t)
	repo := sqlite.NewInventoryRepository(db)
	ctx := context.Background()
	seedProduct(t, repo)
	require.NoError(t, repo.SetQuantity(ctx, "COLA", 5))

	require.NoError(t, repo.Upsert(ctx, machine.Product{Code: "COLA", Name: "Cola Zero", Price: dec("3.75")}))

	product, err := repo.ByCode(ctx, "COLA")
	require.NoError(t, err)
	assert.Equal(t, "Cola Zero", product.Name)
	assert.True(t, product.Price.Equal(dec("3.75")))

	quantity, err := repo.Quantity(ctx, "COLA")
	require.NoError(t, err)
	assert.Equal(t, 5, quantity)
}

func TestInventoryRepository_UnknownCode(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewInventoryRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.EnsureSchema(ctx))

	_, err := repo.ByCode(ctx, "GHOST")
	assert.ErrorIs(t, err, machine.ErrNotFound)

	quantity, err := repo.Quantity(ctx, "GHOST")
	require.NoError(t, err)
	assert.Equal(t, 0, quantity, "unknown codes read as zero stock")

	assert.ErrorIs(t, repo.SetQuantity(ctx, "GHOST", 1), machine.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "GHOST"), machine.ErrNotFound)
}

func TestInventoryRepository_SetQuantity_RejectsNegative(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewInventoryRepository(db)
	seedProduct(t, repo)

	err := repo.SetQuantity(context.Background(), "COLA", -1)
	assert.ErrorIs(t, err, machine.ErrInvalidValue)
}

// =============================================================================
// AMBIENT TRANSACTION ATOMICITY
// =============================================================================

func TestStores_SharedScope_RollsBackTogether(t *testing.T) {
	// GIVEN: Cash and inventory on one database, one ambient scope
	// WHEN: The wrapped function writes both ledgers and then fails
	// THEN: Neither write is durable

	db := newTestDB(t)
	storage := sqlite.NewCashStorage(db)
	repo := sqlite.NewInventoryRepository(db)
	txm := persistence.NewManager(db)
	ctx := context.Background()

	require.NoError(t, storage.EnsureSchema(ctx))
	seedProduct(t, repo)
	require.NoError(t, storage.SetBalance(ctx, dec("10.00")))
	require.NoError(t, repo.SetQuantity(ctx, "COLA", 5))

	boom := errors.New("boom")
	err := txm.Execute(ctx, func(ctx context.Context) error {
		if err := storage.SetBalance(ctx, dec("6.50")); err != nil {
			return err
		}
		if err := repo.SetQuantity(ctx, "COLA", 4); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	balance, err := storage.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("10.00")), "cash write must roll back")

	quantity, err := repo.Quantity(ctx, "COLA")
	require.NoError(t, err)
	assert.Equal(t, 5, quantity, "inventory write must roll back")
}

func TestStores_SharedScope_CommitsTogether(t *testing.T) {
	db := newTestDB(t)
	storage := sqlite.NewCashStorage(db)
	repo := sqlite.NewInventoryRepository(db)
	txm := persistence.NewManager(db)
	ctx := context.Background()

	require.NoError(t, storage.EnsureSchema(ctx))
	seedProduct(t, repo)
	require.NoError(t, storage.SetBalance(ctx, dec("10.00")))
	require.NoError(t, repo.SetQuantity(ctx, "COLA", 5))

	err := txm.Execute(ctx, func(ctx context.Context) error {
		if err := storage.SetBalance(ctx, dec("6.50")); err != nil {
			return err
		}
		return repo.SetQuantity(ctx, "COLA", 4)
	})
	require.NoError(t, err)

	balance, err := storage.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("6.50")))

	quantity, err := repo.Quantity(ctx, "COLA")
	require.NoError(t, err)
	assert.Equal(t, 4, quantity)
}

// =============================================================================
// ORDER LOG
// =============================================================================

func TestOrderLog_AppendAndRecent_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	orderLog := sqlite.NewOrderLog(db)
	ctx := context.Background()
	require.NoError(t, orderLog.EnsureSchema(ctx))

	base := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	first := orders.NewRecord("COLA", "Cola", dec("3.50"), base)
	second := orders.NewRecord("CHIPS", "Chips", dec("2.25"), base.Add(time.Minute))
	require.NoError(t, orderLog.Append(ctx, first))
	require.NoError(t, orderLog.Append(ctx, second))

	records, err := orderLog.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "CHIPS", records[0].ProductCode, "newest first")
	assert.Equal(t, "COLA", records[1].ProductCode)
	assert.Equal(t, first.ID, records[1].ID)
	assert.True(t, records[1].Price.Equal(dec("3.50")))
	assert.Equal(t, orders.StatusConfirmed, records[1].Status)
	assert.True(t, records[1].CreatedAt.Equal(base))
}

func TestOrderLog_Recent_LimitAndValidation(t *testing.T) {
	db := newTestDB(t)
	orderLog := sqlite.NewOrderLog(db)
	ctx := context.Background()
	require.NoError(t, orderLog.EnsureSchema(ctx))

	base := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := orders.NewRecord("COLA", "Cola", dec("3.50"), base.Add(time.Duration(i)*time.Second))
		require.NoError(t, orderLog.Append(ctx, rec))
	}

	records, err := orderLog.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	_, err = orderLog.Recent(ctx, 0)
	assert.ErrorIs(t, err, machine.ErrInvalidArgument)
}

// =============================================================================
// REPORTING REPOSITORY
// =============================================================================

func TestReportingRepository_DashboardStats(t *testing.T) {
	// GIVEN: Three confirmed orders totalling 8.00
	// WHEN: Reading the dashboard
	// THEN: Revenue 8.00, count 3, average 2.67 (rounded to cents)

	db := newTestDB(t)
	repo := sqlite.NewReportingRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.EnsureSchema(ctx))

	at := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordOrder(ctx, "COLA", dec("3.50"), at))
	require.NoError(t, repo.RecordOrder(ctx, "COLA", dec("3.50"), at))
	require.NoError(t, repo.RecordOrder(ctx, "WATER", dec("1.00"), at))

	stats, err := repo.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.OrderCount)
	assert.True(t, stats.TotalRevenue.Equal(dec("8.00")), "revenue should be 8.00, got %s", stats.TotalRevenue)
	assert.True(t, stats.AverageOrderValue.Equal(dec("2.67")), "average should round to 2.67, got %s", stats.AverageOrderValue)
}

func TestReportingRepository_EmptyDashboard(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewReportingRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.EnsureSchema(ctx))

	stats, err := repo.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.OrderCount)
	assert.True(t, stats.TotalRevenue.IsZero())
	assert.True(t, stats.AverageOrderValue.IsZero(), "no orders means average zero, not division by zero")
}
