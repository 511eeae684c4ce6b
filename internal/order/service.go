// Package order implements the checkout flow and the order status
// machine. Creating an order snapshots the cart, reserves stock and
// deletes the cart in one transaction, cancellation returns the
// reserved units the same way.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zestcart/zestcart/internal/cart"
	"github.com/zestcart/zestcart/internal/domain"
	"github.com/zestcart/zestcart/internal/inventory"
	"github.com/zestcart/zestcart/internal/notify"
	"github.com/zestcart/zestcart/pkg/common"
	"github.com/zestcart/zestcart/pkg/metrics"
)

type Service struct {
	db   *gorm.DB
	repo OrderRepository
	bus  EventBus.Bus
}

// NewService wires the order service, bus may be nil when no
// notifications are wanted.
func NewService(db *gorm.DB, repo OrderRepository, bus EventBus.Bus) *Service {
	return &Service{db: db, repo: repo, bus: bus}
}

// Create turns the user's cart into a pending order. Inside a single
// transaction it snapshots the cart lines, reserves stock for each and
// deletes the cart, any reservation failure rolls back the whole
// checkout. Prices are the cart line snapshots, not the current product
// prices.
func (s *Service) Create(ctx context.Context, userID int64, shippingAddress, notes string) (*domain.Order, error) {
	var created *domain.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var userCart domain.Cart
		err := tx.Preload("Items").Where("user_id = ?", userID).First(&userCart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrEmptyCart
		}
		if err != nil {
			return err
		}
		if len(userCart.Items) == 0 {
			return domain.ErrEmptyCart
		}

		items := make([]domain.OrderItem, 0, len(userCart.Items))
		var total float64
		for _, line := range userCart.Items {
			if err := inventory.Reserve(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
			items = append(items, domain.OrderItem{
				ProductID: line.ProductID,
				Name:      line.Name,
				Price:     line.Price,
				Quantity:  line.Quantity,
				Subtotal:  line.Subtotal,
			})
			total += line.Subtotal
		}

		o := &domain.Order{
			ID:              common.UUIDint64(),
			UserID:          userID,
			Status:          domain.OrderPending,
			Total:           total,
			Items:           items,
			ShippingAddress: shippingAddress,
			Notes:           notes,
		}
		if err := tx.Create(o).Error; err != nil {
			return err
		}
		if err := cart.DeleteCart(ctx, tx, userID); err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncrCounter(metrics.OrdersCreated, 1)
	metrics.IncrCounter(metrics.OrdersRevenue, int64(created.Total))
	s.publishCreated(ctx, created)
	return created, nil
}

// Cancel moves a pending order owned by userID to cancelled and returns
// the reserved stock. Any other status is rejected with a transition
// error.
func (s *Service) Cancel(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	var cancelled *domain.Order
	var prev string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := loadOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return domain.ErrForbidden
		}
		if o.Status != domain.OrderPending {
			return &domain.TransitionError{From: o.Status, To: domain.OrderCancelled}
		}
		prev = o.Status
		if err := releaseItems(ctx, tx, o); err != nil {
			return err
		}
		if err := setStatus(ctx, tx, o, domain.OrderCancelled); err != nil {
			return err
		}
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishStatusChanged(ctx, cancelled, prev, domain.OrderCancelled)
	return cancelled, nil
}

// UpdateStatus applies an admin status change, enforcing the status
// machine. Moving to cancelled releases the reserved stock.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, next string) (*domain.Order, error) {
	if !domain.ValidOrderStatus(next) {
		return nil, domain.ErrValidation
	}

	var updated *domain.Order
	var prev string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := loadOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := checkTransition(o.Status, next); err != nil {
			return err
		}
		prev = o.Status
		if next == domain.OrderCancelled {
			if err := releaseItems(ctx, tx, o); err != nil {
				return err
			}
		}
		if err := setStatus(ctx, tx, o, next); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishStatusChanged(ctx, updated, prev, next)
	return updated, nil
}

// Get returns one order, access control stays with the caller.
func (s *Service) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// List returns a page of orders matching the query.
func (s *Service) List(ctx context.Context, q Query) ([]domain.Order, int64, error) {
	return s.repo.List(ctx, q)
}

// ListByUser returns a page of the user's own orders.
func (s *Service) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]domain.Order, int64, error) {
	return s.repo.ListByUser(ctx, userID, page, pageSize)
}

// loadOrder reads an order inside tx. The read takes no lock, the
// status write in setStatus guards against the snapshot going stale.
func loadOrder(ctx context.Context, tx *gorm.DB, orderID int64) (*domain.Order, error) {
	var o domain.Order
	err := tx.WithContext(ctx).First(&o, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// releaseItems returns every snapshot line to stock. A product deleted
// since checkout only gets a warning, the cancellation itself proceeds.
func releaseItems(ctx context.Context, tx *gorm.DB, o *domain.Order) error {
	for _, item := range o.Items {
		err := inventory.Release(ctx, tx, item.ProductID, item.Quantity)
		if errors.Is(err, domain.ErrNotFound) {
			zap.L().Warn("release stock skipped, product missing",
				zap.Int64("order_id", o.ID),
				zap.Int64("product_id", item.ProductID))
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// setStatus applies the transition as a conditional update guarded on
// the status the caller validated. Zero rows means another transaction
// moved the order first, the returned transition error rolls the
// caller's transaction back together with any stock release it ran.
func setStatus(ctx context.Context, tx *gorm.DB, o *domain.Order, next string) error {
	res := tx.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND status = ?", o.ID, o.Status).
		Updates(map[string]interface{}{
			"status":     next,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return staleTransition(ctx, tx, o, next)
	}
	o.Status = next
	return nil
}

// staleTransition re-reads the committed status so the rejection names
// it, the stale snapshot status is the fallback when the row is gone.
func staleTransition(ctx context.Context, tx *gorm.DB, o *domain.Order, next string) error {
	from := o.Status
	var current domain.Order
	if err := tx.WithContext(ctx).Select("status").First(&current, o.ID).Error; err == nil {
		from = current.Status
	}
	return &domain.TransitionError{From: from, To: next}
}

func (s *Service) publishCreated(ctx context.Context, o *domain.Order) {
	if s.bus == nil {
		return
	}
	user, err := s.loadUser(ctx, o.UserID)
	if err != nil {
		zap.L().Warn("load user for order notification failed",
			zap.Int64("order_id", o.ID), zap.Error(err))
		return
	}
	s.bus.Publish(notify.TopicOrderCreated, notify.OrderCreatedEvent{
		OrderID:  o.ID,
		UserID:   o.UserID,
		Email:    user.Email,
		Username: user.Username,
		Total:    o.Total,
		Items:    o.Items,
	})
}

func (s *Service) publishStatusChanged(ctx context.Context, o *domain.Order, from, to string) {
	if s.bus == nil {
		return
	}
	user, err := s.loadUser(ctx, o.UserID)
	if err != nil {
		zap.L().Warn("load user for order notification failed",
			zap.Int64("order_id", o.ID), zap.Error(err))
		return
	}
	s.bus.Publish(notify.TopicOrderStatusChanged, notify.OrderStatusChangedEvent{
		OrderID:  o.ID,
		UserID:   o.UserID,
		Email:    user.Email,
		Username: user.Username,
		From:     from,
		To:       to,
		Total:    o.Total,
	})
}

func (s *Service) loadUser(ctx context.Context, userID int64) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
