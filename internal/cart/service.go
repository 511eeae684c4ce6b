// Package cart maintains per-user shopping carts. Every mutation runs
// in a transaction and leaves the cart total equal to the sum of its
// line subtotals.
package cart

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/zestcart/zestcart/internal/domain"
	"github.com/zestcart/zestcart/pkg/common"
)

type Service struct {
	db   *gorm.DB
	repo CartRepository
}

func NewService(db *gorm.DB, repo CartRepository) *Service {
	return &Service{db: db, repo: repo}
}

// Get returns the user's cart with lines, creating an empty cart on
// first access.
func (s *Service) Get(ctx context.Context, userID int64) (*domain.Cart, error) {
	if _, err := s.repo.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.GetWithItems(ctx, userID)
}

// AddItem puts qty units of a product into the cart. An existing line
// for the same product is merged and re-priced from the current product
// price, a new line snapshots price and name at insertion. Stock is
// checked against the merged quantity but not reserved.
func (s *Service) AddItem(ctx context.Context, userID, productID int64, qty int) (*domain.Cart, error) {
	if qty <= 0 {
		return nil, domain.ErrValidation
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := loadOrCreateCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		var product domain.Product
		err = tx.First(&product, productID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return domain.ErrNotFound
		case err != nil:
			return err
		}
		if !product.InStock {
			return &domain.StockError{
				Err:         domain.ErrOutOfStock,
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   qty,
				Available:   product.Quantity,
			}
		}

		var line domain.CartItem
		err = tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&line).Error
		merge := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		newQty := qty
		if merge {
			newQty = line.Quantity + qty
		}
		if product.Quantity < newQty {
			return &domain.StockError{
				Err:         domain.ErrInsufficient,
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   newQty,
				Available:   product.Quantity,
			}
		}

		if merge {
			err = tx.Model(&domain.CartItem{}).Where("id = ?", line.ID).
				Updates(map[string]interface{}{
					"name":       product.Name,
					"price":      product.Price,
					"quantity":   newQty,
					"subtotal":   product.Price * float64(newQty),
					"updated_at": time.Now(),
				}).Error
		} else {
			err = tx.Create(&domain.CartItem{
				ID:        common.UUIDint64(),
				CartID:    cart.ID,
				ProductID: product.ID,
				Name:      product.Name,
				Price:     product.Price,
				Quantity:  qty,
				Subtotal:  product.Price * float64(qty),
			}).Error
		}
		if err != nil {
			return err
		}
		return RecomputeTotal(ctx, tx, cart.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetWithItems(ctx, userID)
}

// UpdateItem sets the quantity of an existing cart line, re-validating
// against the current product stock. The line keeps its snapshot price.
func (s *Service) UpdateItem(ctx context.Context, userID, itemID int64, qty int) (*domain.Cart, error) {
	if qty < 1 {
		return nil, domain.ErrValidation
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := findCart(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrItemNotFound
			}
			return err
		}

		var line domain.CartItem
		err = tx.Where("id = ? AND cart_id = ?", itemID, cart.ID).First(&line).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return domain.ErrItemNotFound
		case err != nil:
			return err
		}

		var product domain.Product
		err = tx.First(&product, line.ProductID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return &domain.StockError{
				Err:         domain.ErrProductGone,
				ProductID:   line.ProductID,
				ProductName: line.Name,
				Requested:   qty,
			}
		case err != nil:
			return err
		}
		if product.Quantity < qty {
			return &domain.StockError{
				Err:         domain.ErrInsufficient,
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   qty,
				Available:   product.Quantity,
			}
		}

		err = tx.Model(&domain.CartItem{}).Where("id = ?", line.ID).
			Updates(map[string]interface{}{
				"quantity":   qty,
				"subtotal":   line.Price * float64(qty),
				"updated_at": time.Now(),
			}).Error
		if err != nil {
			return err
		}
		return RecomputeTotal(ctx, tx, cart.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetWithItems(ctx, userID)
}

// RemoveItem drops a cart line. Removing a line that is already gone is
// not an error.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID int64) (*domain.Cart, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := findCart(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		err = tx.Where("id = ? AND cart_id = ?", itemID, cart.ID).
			Delete(&domain.CartItem{}).Error
		if err != nil {
			return err
		}
		return RecomputeTotal(ctx, tx, cart.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// Clear removes every line from the user's cart.
func (s *Service) Clear(ctx context.Context, userID int64) (*domain.Cart, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := findCart(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		err = tx.Where("cart_id = ?", cart.ID).Delete(&domain.CartItem{}).Error
		if err != nil {
			return err
		}
		return RecomputeTotal(ctx, tx, cart.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// PruneProduct removes a deleted product from every cart and fixes the
// affected totals. It runs on the caller's transaction so the product
// delete and the prune commit together.
func PruneProduct(ctx context.Context, tx *gorm.DB, productID int64) error {
	var cartIDs []int64
	err := tx.WithContext(ctx).Model(&domain.CartItem{}).
		Distinct("cart_id").Where("product_id = ?", productID).
		Pluck("cart_id", &cartIDs).Error
	if err != nil {
		return err
	}
	if len(cartIDs) == 0 {
		return nil
	}

	err = tx.WithContext(ctx).Where("product_id = ?", productID).
		Delete(&domain.CartItem{}).Error
	if err != nil {
		return err
	}
	for _, cartID := range cartIDs {
		if err := RecomputeTotal(ctx, tx, cartID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteCart drops the user's cart together with its lines, used by
// checkout after the order snapshot is taken.
func DeleteCart(ctx context.Context, tx *gorm.DB, userID int64) error {
	cart, err := findCart(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if err := tx.WithContext(ctx).Where("cart_id = ?", cart.ID).Delete(&domain.CartItem{}).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Delete(&domain.Cart{}, cart.ID).Error
}

// RecomputeTotal rewrites the cart total from the stored line subtotals.
func RecomputeTotal(ctx context.Context, tx *gorm.DB, cartID int64) error {
	var total float64
	err := tx.WithContext(ctx).Model(&domain.CartItem{}).
		Where("cart_id = ?", cartID).
		Select("COALESCE(SUM(subtotal), 0)").Scan(&total).Error
	if err != nil {
		return err
	}
	return tx.WithContext(ctx).Model(&domain.Cart{}).Where("id = ?", cartID).
		Updates(map[string]interface{}{"total": total, "updated_at": time.Now()}).Error
}

func loadOrCreateCart(ctx context.Context, tx *gorm.DB, userID int64) (*domain.Cart, error) {
	cart, err := findCart(ctx, tx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fresh := domain.Cart{ID: common.UUIDint64(), UserID: userID, Total: 0}
		if err := tx.WithContext(ctx).Create(&fresh).Error; err != nil {
			return nil, err
		}
		return &fresh, nil
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func findCart(ctx context.Context, tx *gorm.DB, userID int64) (*domain.Cart, error) {
	var cart domain.Cart
	err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}
