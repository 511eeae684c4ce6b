package order

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zestcart/zestcart/internal/cart"
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

func newTestService(t *testing.T) (*Service, *cart.Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewService(db, NewGormOrderRepository(db), nil)
	cartSvc := cart.NewService(db, cart.NewGormCartRepository(db))
	return svc, cartSvc, db
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

func loadProduct(t *testing.T, db *gorm.DB, id int64) *domain.Product {
	t.Helper()
	var p domain.Product
	require.NoError(t, db.First(&p, id).Error)
	return &p
}

// fillCart puts one line per product into the user's cart.
func fillCart(t *testing.T, cartSvc *cart.Service, userID int64, lines map[*domain.Product]int) {
	t.Helper()
	for p, qty := range lines {
		_, err := cartSvc.AddItem(context.Background(), userID, p.ID, qty)
		require.NoError(t, err)
	}
}

// TestCreateSnapshotsCartAndReservesStock verifies checkout produces a
// pending order priced from the cart lines, decrements stock and drops
// the cart.
func TestCreateSnapshotsCartAndReservesStock(t *testing.T) {
	svc, cartSvc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 10.00, 5)
	fillCart(t, cartSvc, 1, map[*domain.Product]int{p: 2})

	o, err := svc.Create(context.Background(), 1, "1 Ocean Drive, Miami", "")
	require.NoError(t, err)

	assert.Equal(t, domain.OrderPending, o.Status)
	assert.InDelta(t, 20.00, o.Total, 0.001)
	assert.Equal(t, "1 Ocean Drive, Miami", o.ShippingAddress)
	require.Len(t, o.Items, 1)
	assert.Equal(t, p.ID, o.Items[0].ProductID)
	assert.Equal(t, "USB Hub", o.Items[0].Name)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.InDelta(t, 20.00, o.Items[0].Subtotal, 0.001)

	assert.Equal(t, 3, loadProduct(t, db, p.ID).Quantity)

	err = db.Where("user_id = ?", int64(1)).First(&domain.Cart{}).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// TestCreateEmptyCart verifies checkout refuses when the account has no
// cart at all and when the cart holds no lines.
func TestCreateEmptyCart(t *testing.T) {
	svc, cartSvc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), 1, "1 Ocean Drive, Miami", "")
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	_, err = cartSvc.Get(context.Background(), 1)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 1, "1 Ocean Drive, Miami", "")
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

// TestCreateInsufficientRollsBack verifies a reservation miss aborts
// checkout leaving the cart and the stock untouched.
func TestCreateInsufficientRollsBack(t *testing.T) {
	svc, cartSvc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 10.00, 2)
	fillCart(t, cartSvc, 1, map[*domain.Product]int{p: 2})

	// The stock shrinks between add to cart and checkout.
	require.NoError(t, db.Model(&domain.Product{}).Where("id = ?", p.ID).
		Update("quantity", 1).Error)

	_, err := svc.Create(context.Background(), 1, "1 Ocean Drive, Miami", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficient)

	var stockErr *domain.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, p.ID, stockErr.ProductID)
	assert.Equal(t, 2, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)

	assert.Equal(t, 1, loadProduct(t, db, p.ID).Quantity)

	crt, err := cartSvc.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, crt.Items, 1)
	assert.Equal(t, 2, crt.Items[0].Quantity)

	var orders int64
	db.Model(&domain.Order{}).Count(&orders)
	assert.Zero(t, orders)
}

// TestCreateAtomicAcrossLines verifies that when one line out of
// several cannot be reserved, none of the earlier reservations stick.
func TestCreateAtomicAcrossLines(t *testing.T) {
	svc, cartSvc, db := newTestService(t)
	a := seedProduct(t, db, "USB Hub", 10.00, 10)
	b := seedProduct(t, db, "HDMI Cable", 5.00, 10)
	c := seedProduct(t, db, "Webcam", 45.00, 10)
	d := seedProduct(t, db, "Laptop Stand", 30.00, 10)
	for _, p := range []*domain.Product{a, b, c, d} {
		_, err := cartSvc.AddItem(context.Background(), 1, p.ID, 2)
		require.NoError(t, err)
	}

	require.NoError(t, db.Model(&domain.Product{}).Where("id = ?", c.ID).
		Update("quantity", 1).Error)

	_, err := svc.Create(context.Background(), 1, "1 Ocean Drive, Miami", "")
	assert.ErrorIs(t, err, domain.ErrInsufficient)

	assert.Equal(t, 10, loadProduct(t, db, a.ID).Quantity)
	assert.Equal(t, 10, loadProduct(t, db, b.ID).Quantity)
	assert.Equal(t, 1, loadProduct(t, db, c.ID).Quantity)
	assert.Equal(t, 10, loadProduct(t, db, d.ID).Quantity)

	crt, err := cartSvc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, crt.Items, 4)

	var orders int64
	db.Model(&domain.Order{}).Count(&orders)
	assert.Zero(t, orders)
}

// TestCreateKeepsCartPrices verifies the order totals come from the
// cart snapshots even when the product was repriced before checkout.
func TestCreateKeepsCartPrices(t *testing.T) {
	svc, cartSvc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 10.00, 5)
	fillCart(t, cartSvc, 1, map[*domain.Product]int{p: 2})

	require.NoError(t, db.Model(&domain.Product{}).Where("id = ?", p.ID).
		Update("price", 99.00).Error)

	o, err := svc.Create(context.Background(), 1, "1 Ocean Drive, Miami", "")
	require.NoError(t, err)
	assert.InDelta(t, 20.00, o.Total, 0.001)
	assert.InDelta(t, 10.00, o.Items[0].Price, 0.001)
}

// TestCancelPendingReleasesStock verifies cancelling a pending order
// returns the units and puts a drained product back on sale.
func TestCancelPendingReleasesStock(t *testing.T) {
	svc, cartSvc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 10.00, 2)
	fillCart(t, cartSvc, 1, map[*domain.Product]int{p: 2})

	o, err := svc.Create(context.Background(), 1, "1 Ocean Drive, Miami", "")
	require.NoError(t, err)

	drained := loadProduct(t, db, p.ID)
	assert.Equal(t, 0, drained.Quantity)
	assert.False(t, drained.InStock)

	cancelled, err := svc.Cancel(context.Background(), 1, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, cancelled.Status)

	restocked := loadProduct(t, db, p.ID)
	assert.Equal(t, 2, restocked.Quantity)
	assert.True(t, restocked.InStock)
}

// TestCancelRequiresOwner verifies only the buyer may cancel.
func TestCancelRequiresOwner(t *testing.T) {
	svc, cartSvc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 10.00, 5)
	fillCart(t, cartSvc, 1, map[*domain.Product]int{p: 1})

	o, err := svc.Create(context.Background(), 1, "1 Ocean Drive, Miami", "")
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), 2, o.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, 4, loadProduct(t, db, p.ID).Quantity)
}

// TestCancelDeliveredRejected verifies a delivered order stays
// delivered and keeps the stock.
func TestCancelDeliveredRejected(t *testing.T) {
	svc, cartSvc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 10.00, 5)
	fillCart(t, cartSvc, 1, map[*domain.Product]int{p: 2})

	o, err := svc.Create(context.Background(), 1, "1 Ocean Drive, Miami", "")
	require.NoError(t, err)
	for _, next := range []string{domain.OrderConfirmed, domain.OrderShipped, domain.OrderDelivered} {
		_, err = svc.UpdateStatus(context.Background(), o.ID, next)
		require.NoError(t, err)
	}

	_, err = svc.Cancel(context.Background(), 1, o.ID)
	require.Error(t, err)

	var trErr *domain.TransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, domain.OrderDelivered, trErr.From)
	assert.Equal(t, domain.OrderCancelled, trErr.To)

	got, err := svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderDelivered, got.Status)
	assert.Equal(t, 3, loadProduct(t, db, p.ID).Quantity)
}

// TestCancelTwiceReleasesOnce verifies a second cancel fails and the
// stock is returned exactly once.
func TestCancelTwiceReleasesOnce(t *testing.T) {
	svc, cartSvc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 10.00, 5)
	fillCart(t, cartSvc, 1, map[*domain.Product]int{p: 2})

	o, err := svc.Create(context.Background(), 1, "1 Ocean Drive, Miami", "")
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), 1, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, loadProduct(t, db, p.ID).Quantity)

	_, err = svc.Cancel(context.Background(), 1, o.ID)
	require.Error(t, err)
	var trErr *domain.TransitionError
	assert.ErrorAs(t, err, &trErr)
	assert.Equal(t, 5, loadProduct(t, db, p.ID).Quantity)
}

// TestCancelStaleSnapshotRollsBack replays the write sequence of a
// cancel that read the order before a concurrent cancel committed. The
// guarded status write must reject the replay and roll back its stock
// release, so the stock comes back exactly once.
func TestCancelStaleSnapshotRollsBack(t *testing.T) {
	svc, cartSvc, db := newTestService(t)
	ctx := context.Background()
	p := seedProduct(t, db, "USB Hub", 10.00, 5)
	fillCart(t, cartSvc, 1, map[*domain.Product]int{p: 2})

	o, err := svc.Create(ctx, 1, "1 Ocean Drive, Miami", "")
	require.NoError(t, err)

	// The snapshot a second canceller would hold after its read, still
	// showing pending.
	stale := *o

	_, err = svc.Cancel(ctx, 1, o.ID)
	require.NoError(t, err)
	require.Equal(t, 5, loadProduct(t, db, p.ID).Quantity)

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := releaseItems(ctx, tx, &stale); err != nil {
			return err
		}
		return setStatus(ctx, tx, &stale, domain.OrderCancelled)
	})
	require.Error(t, err)
	var trErr *domain.TransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, domain.OrderCancelled, trErr.From)
	assert.Equal(t, domain.OrderCancelled, trErr.To)

	assert.Equal(t, 5, loadProduct(t, db, p.ID).Quantity)
}

// TestUpdateStatusStaleSnapshotRejected replays an admin confirm whose
// read happened before a concurrent cancel committed. The transition
// check passes on the stale status, the guarded write must still
// refuse to pull the order out of its terminal state.
func TestUpdateStatusStaleSnapshotRejected(t *testing.T) {
	svc, cartSvc, db := newTestService(t)
	ctx := context.Background()
	p := seedProduct(t, db, "USB Hub", 10.00, 5)
	fillCart(t, cartSvc, 1, map[*domain.Product]int{p: 2})

	o, err := svc.Create(ctx, 1, "1 Ocean Drive, Miami", "")
	require.NoError(t, err)
	stale := *o

	_, err = svc.Cancel(ctx, 1, o.ID)
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := checkTransition(stale.Status, domain.OrderConfirmed); err != nil {
			return err
		}
		return setStatus(ctx, tx, &stale, domain.OrderConfirmed)
	})
	require.Error(t, err)
	var trErr *domain.TransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, domain.OrderCancelled, trErr.From)
	assert.Equal(t, domain.OrderConfirmed, trErr.To)

	got, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, got.Status)
	assert.Equal(t, 5, loadProduct(t, db, p.ID).Quantity)
}

// TestCancelMissingOrder verifies cancelling an unknown order reports
// not found.
func TestCancelMissingOrder(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Cancel(context.Background(), 1, 404404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestUpdateStatusWalksLifecycle verifies the forward path through the
// status machine and that delivered is terminal.
func TestUpdateStatusWalksLifecycle(t *testing.T) {
	svc, cartSvc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 10.00, 5)
	fillCart(t, cartSvc, 1, map[*domain.Product]int{p: 1})

	o, err := svc.Create(context.Background(), 1, "1 Ocean Drive, Miami", "")
	require.NoError(t, err)

	for _, next := range []string{domain.OrderConfirmed, domain.OrderShipped, domain.OrderDelivered} {
		updated, err := svc.UpdateStatus(context.Background(), o.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	for _, next := range []string{domain.OrderPending, domain.OrderConfirmed, domain.OrderShipped, domain.OrderCancelled} {
		_, err := svc.UpdateStatus(context.Background(), o.ID, next)
		assert.Error(t, err, "delivered -> %s must fail", next)
	}
	assert.Equal(t, 4, loadProduct(t, db, p.ID).Quantity)
}

// TestUpdateStatusRejectsSkips verifies stage skipping is refused with
// the offending pair reported.
func TestUpdateStatusRejectsSkips(t *testing.T) {
	svc, cartSvc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 10.00, 5)
	fillCart(t, cartSvc, 1, map[*domain.Product]int{p: 1})

	o, err := svc.Create(context.Background(), 1, "1 Ocean Drive, Miami", "")
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), o.ID, domain.OrderDelivered)
	require.Error(t, err)

	var trErr *domain.TransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, domain.OrderPending, trErr.From)
	assert.Equal(t, domain.OrderDelivered, trErr.To)
}

// TestUpdateStatusValidation verifies unknown statuses and unknown
// orders are rejected up front.
func TestUpdateStatusValidation(t *testing.T) {
	svc, cartSvc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 10.00, 5)
	fillCart(t, cartSvc, 1, map[*domain.Product]int{p: 1})

	o, err := svc.Create(context.Background(), 1, "1 Ocean Drive, Miami", "")
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), o.ID, "refunded")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateStatus(context.Background(), 404404, domain.OrderConfirmed)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestAdminCancelReleasesExactQuantities verifies an operator cancel
// of a confirmed order restores every line by its own quantity.
func TestAdminCancelReleasesExactQuantities(t *testing.T) {
	svc, cartSvc, db := newTestService(t)
	a := seedProduct(t, db, "USB Hub", 10.00, 10)
	b := seedProduct(t, db, "HDMI Cable", 5.00, 10)
	fillCart(t, cartSvc, 1, map[*domain.Product]int{a: 2, b: 3})

	o, err := svc.Create(context.Background(), 1, "1 Ocean Drive, Miami", "")
	require.NoError(t, err)
	assert.Equal(t, 8, loadProduct(t, db, a.ID).Quantity)
	assert.Equal(t, 7, loadProduct(t, db, b.ID).Quantity)

	_, err = svc.UpdateStatus(context.Background(), o.ID, domain.OrderConfirmed)
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), o.ID, domain.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, updated.Status)
	assert.Equal(t, 10, loadProduct(t, db, a.ID).Quantity)
	assert.Equal(t, 10, loadProduct(t, db, b.ID).Quantity)
}

// TestCancelSkipsDeletedProduct verifies cancellation still lands when
// a snapshot line points at a product removed after checkout.
func TestCancelSkipsDeletedProduct(t *testing.T) {
	svc, cartSvc, db := newTestService(t)
	a := seedProduct(t, db, "USB Hub", 10.00, 5)
	b := seedProduct(t, db, "HDMI Cable", 5.00, 5)
	fillCart(t, cartSvc, 1, map[*domain.Product]int{a: 1, b: 2})

	o, err := svc.Create(context.Background(), 1, "1 Ocean Drive, Miami", "")
	require.NoError(t, err)

	require.NoError(t, db.Delete(&domain.Product{}, a.ID).Error)

	cancelled, err := svc.Cancel(context.Background(), 1, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, cancelled.Status)
	assert.Equal(t, 5, loadProduct(t, db, b.ID).Quantity)
}

// TestConcurrentCheckoutLastUnit verifies two simultaneous checkouts
// for the final unit produce exactly one order.
func TestConcurrentCheckoutLastUnit(t *testing.T) {
	svc, cartSvc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 10.00, 1)
	fillCart(t, cartSvc, 1, map[*domain.Product]int{p: 1})
	fillCart(t, cartSvc, 2, map[*domain.Product]int{p: 1})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, userID := range []int64{1, 2} {
		wg.Add(1)
		go func(slot int, uid int64) {
			defer wg.Done()
			_, errs[slot] = svc.Create(context.Background(), uid, "1 Ocean Drive, Miami", "")
		}(i, userID)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			failures++
			var stockErr *domain.StockError
			assert.ErrorAs(t, err, &stockErr)
		}
	}
	assert.Equal(t, 1, failures)

	final := loadProduct(t, db, p.ID)
	assert.Equal(t, 0, final.Quantity)
	assert.False(t, final.InStock)

	var orders int64
	db.Model(&domain.Order{}).Count(&orders)
	assert.Equal(t, int64(1), orders)
}

// TestGetMissing verifies order lookup maps a missing row to not found.
func TestGetMissing(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Get(context.Background(), 987654)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestListFiltersAndCounts verifies the admin listing filters by
// status, that status counts group correctly and that revenue totals
// ignore cancelled orders.
func TestListFiltersAndCounts(t *testing.T) {
	svc, cartSvc, db := newTestService(t)
	p := seedProduct(t, db, "USB Hub", 10.00, 100)

	var orderIDs []int64
	for userID := int64(1); userID <= 3; userID++ {
		fillCart(t, cartSvc, userID, map[*domain.Product]int{p: 1})
		o, err := svc.Create(context.Background(), userID, "1 Ocean Drive, Miami", "")
		require.NoError(t, err)
		orderIDs = append(orderIDs, o.ID)
	}
	_, err := svc.UpdateStatus(context.Background(), orderIDs[0], domain.OrderConfirmed)
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), 3, orderIDs[2])
	require.NoError(t, err)

	pending, total, err := svc.List(context.Background(), Query{Status: domain.OrderPending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, pending, 1)
	assert.Equal(t, orderIDs[1], pending[0].ID)

	counts, err := svc.repo.StatusCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.OrderPending])
	assert.Equal(t, int64(1), counts[domain.OrderConfirmed])
	assert.Equal(t, int64(1), counts[domain.OrderCancelled])

	totals, err := svc.repo.TotalsSince(context.Background(), time.Now().AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Len(t, totals, 2)

	mine, total, err := svc.ListByUser(context.Background(), 1, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, mine, 1)
	assert.Equal(t, orderIDs[0], mine[0].ID)
}
