package cart

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zestcart/zestcart/internal/domain"
	"github.com/zestcart/zestcart/pkg/common"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL",
		filepath.Join(t.TempDir(), "test.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Tables...))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewService(db, NewGormCartRepository(db)), db
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price float64, qty int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ID:       common.UUIDint64(),
		Name:     name,
		Price:    price,
		Quantity: qty,
		InStock:  qty > 0,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// TestGetCreatesEmptyCart verifies first access returns a usable empty
// cart instead of not found.
func TestGetCreatesEmptyCart(t *testing.T) {
	svc, _ := newTestService(t)

	crt, err := svc.Get(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), crt.UserID)
	assert.Empty(t, crt.Items)
	assert.Zero(t, crt.Total)
}

// TestAddItemSnapshotsPriceAndName verifies a new line copies the
// product price and name at insertion time.
func TestAddItemSnapshotsPriceAndName(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 19.99, 10)

	crt, err := svc.AddItem(context.Background(), 1, p.ID, 2)
	require.NoError(t, err)
	require.Len(t, crt.Items, 1)

	line := crt.Items[0]
	assert.Equal(t, "USB Hub", line.Name)
	assert.InDelta(t, 19.99, line.Price, 0.001)
	assert.Equal(t, 2, line.Quantity)
	assert.InDelta(t, 39.98, line.Subtotal, 0.001)
	assert.InDelta(t, 39.98, crt.Total, 0.001)
}

// TestAddItemMergeRepricesLine verifies merging into an existing line
// adopts the current product price for the whole quantity.
func TestAddItemMergeRepricesLine(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 10.00, 10)

	_, err := svc.AddItem(context.Background(), 1, p.ID, 1)
	require.NoError(t, err)

	require.NoError(t, db.Model(&domain.Product{}).Where("id = ?", p.ID).
		Update("price", 12.50).Error)

	crt, err := svc.AddItem(context.Background(), 1, p.ID, 2)
	require.NoError(t, err)
	require.Len(t, crt.Items, 1)

	line := crt.Items[0]
	assert.Equal(t, 3, line.Quantity)
	assert.InDelta(t, 12.50, line.Price, 0.001)
	assert.InDelta(t, 37.50, line.Subtotal, 0.001)
	assert.InDelta(t, 37.50, crt.Total, 0.001)
}

// TestAddItemUnknownProduct verifies adding a product that does not
// exist reports not found.
func TestAddItemUnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AddItem(context.Background(), 1, 424242, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestAddItemOutOfStock verifies a product pulled from sale cannot be
// added.
func TestAddItemOutOfStock(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 19.99, 0)

	_, err := svc.AddItem(context.Background(), 1, p.ID, 1)
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
}

// TestAddItemInsufficientMergedQuantity verifies the stock check runs
// against the merged line quantity, not just the increment.
func TestAddItemInsufficientMergedQuantity(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 19.99, 5)

	_, err := svc.AddItem(context.Background(), 1, p.ID, 3)
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), 1, p.ID, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficient)

	var stockErr *domain.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)
}

// TestAddItemRejectsNonPositive verifies bad quantities are refused up
// front.
func TestAddItemRejectsNonPositive(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 19.99, 5)

	_, err := svc.AddItem(context.Background(), 1, p.ID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.AddItem(context.Background(), 1, p.ID, -2)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// TestUpdateItemKeepsSnapshotPrice verifies quantity changes reprice
// the subtotal from the stored line price, ignoring later product
// price changes.
func TestUpdateItemKeepsSnapshotPrice(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 10.00, 10)

	crt, err := svc.AddItem(context.Background(), 1, p.ID, 1)
	require.NoError(t, err)
	itemID := crt.Items[0].ID

	require.NoError(t, db.Model(&domain.Product{}).Where("id = ?", p.ID).
		Update("price", 99.00).Error)

	crt, err = svc.UpdateItem(context.Background(), 1, itemID, 4)
	require.NoError(t, err)
	require.Len(t, crt.Items, 1)

	line := crt.Items[0]
	assert.Equal(t, 4, line.Quantity)
	assert.InDelta(t, 10.00, line.Price, 0.001)
	assert.InDelta(t, 40.00, line.Subtotal, 0.001)
	assert.InDelta(t, 40.00, crt.Total, 0.001)
}

// TestUpdateItemMissingLine verifies updating an unknown line reports
// item not found.
func TestUpdateItemMissingLine(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpdateItem(context.Background(), 1, 5555, 2)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

// TestUpdateItemProductGone verifies updating a line whose product was
// deleted reports the product as gone.
func TestUpdateItemProductGone(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 10.00, 10)

	crt, err := svc.AddItem(context.Background(), 1, p.ID, 1)
	require.NoError(t, err)
	itemID := crt.Items[0].ID

	require.NoError(t, db.Delete(&domain.Product{}, p.ID).Error)

	_, err = svc.UpdateItem(context.Background(), 1, itemID, 2)
	assert.ErrorIs(t, err, domain.ErrProductGone)
}

// TestUpdateItemInsufficient verifies the new quantity is validated
// against the current stock.
func TestUpdateItemInsufficient(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 10.00, 3)

	crt, err := svc.AddItem(context.Background(), 1, p.ID, 2)
	require.NoError(t, err)

	_, err = svc.UpdateItem(context.Background(), 1, crt.Items[0].ID, 7)
	assert.ErrorIs(t, err, domain.ErrInsufficient)
}

// TestRemoveItemMissingLineSucceeds verifies removing an absent line
// is a no-op success.
func TestRemoveItemMissingLineSucceeds(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)

	crt, err := svc.RemoveItem(context.Background(), 1, 90210)
	require.NoError(t, err)
	assert.Empty(t, crt.Items)
}

// TestRemoveItemRecomputesTotal verifies the total shrinks to the
// remaining lines.
func TestRemoveItemRecomputesTotal(t *testing.T) {
	svc, db := newTestService(t)
	a := seedProduct(t, db, "USB Hub", 10.00, 10)
	b := seedProduct(t, db, "HDMI Cable", 5.00, 10)

	_, err := svc.AddItem(context.Background(), 1, a.ID, 1)
	require.NoError(t, err)
	crt, err := svc.AddItem(context.Background(), 1, b.ID, 2)
	require.NoError(t, err)
	require.Len(t, crt.Items, 2)

	var hubLine int64
	for _, line := range crt.Items {
		if line.ProductID == a.ID {
			hubLine = line.ID
		}
	}

	crt, err = svc.RemoveItem(context.Background(), 1, hubLine)
	require.NoError(t, err)
	require.Len(t, crt.Items, 1)
	assert.InDelta(t, 10.00, crt.Total, 0.001)
}

// TestClearCart verifies clearing leaves an empty cart with zero
// total, and clearing an account with no cart succeeds.
func TestClearCart(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 10.00, 10)

	_, err := svc.AddItem(context.Background(), 1, p.ID, 3)
	require.NoError(t, err)

	crt, err := svc.Clear(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, crt.Items)
	assert.Zero(t, crt.Total)

	crt, err = svc.Clear(context.Background(), 777)
	require.NoError(t, err)
	assert.Empty(t, crt.Items)
}

// TestPruneProductDropsLinesEverywhere verifies a product removal
// cleans every cart holding it and repairs the totals.
func TestPruneProductDropsLinesEverywhere(t *testing.T) {
	svc, db := newTestService(t)
	a := seedProduct(t, db, "USB Hub", 10.00, 50)
	b := seedProduct(t, db, "HDMI Cable", 5.00, 50)

	for _, userID := range []int64{1, 2} {
		_, err := svc.AddItem(context.Background(), userID, a.ID, 1)
		require.NoError(t, err)
		_, err = svc.AddItem(context.Background(), userID, b.ID, 2)
		require.NoError(t, err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.Product{}, a.ID).Error; err != nil {
			return err
		}
		return PruneProduct(context.Background(), tx, a.ID)
	})
	require.NoError(t, err)

	for _, userID := range []int64{1, 2} {
		crt, err := svc.Get(context.Background(), userID)
		require.NoError(t, err)
		require.Len(t, crt.Items, 1)
		assert.Equal(t, b.ID, crt.Items[0].ProductID)
		assert.InDelta(t, 10.00, crt.Total, 0.001)
	}
}

// TestTotalMatchesLineSubtotals verifies the total invariant holds
// across a mixed operation sequence.
func TestTotalMatchesLineSubtotals(t *testing.T) {
	svc, db := newTestService(t)
	a := seedProduct(t, db, "USB Hub", 12.34, 50)
	b := seedProduct(t, db, "HDMI Cable", 7.89, 50)

	_, err := svc.AddItem(context.Background(), 1, a.ID, 3)
	require.NoError(t, err)
	crt, err := svc.AddItem(context.Background(), 1, b.ID, 2)
	require.NoError(t, err)

	crt, err = svc.UpdateItem(context.Background(), 1, crt.Items[0].ID, 1)
	require.NoError(t, err)

	var sum float64
	for _, line := range crt.Items {
		sum += line.Subtotal
	}
	assert.InDelta(t, sum, crt.Total, 0.001)
}
