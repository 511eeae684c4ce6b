// Package inventory implements atomic stock reservation on the
// products table. Reserve and Release run on the caller's transaction
// handle so checkout can roll back every movement at once.
package inventory

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/zestcart/zestcart/internal/domain"
)

// Reserve decrements product stock by qty using a conditional update,
// the decrement only lands when the product is in stock and holds at
// least qty units. On a miss the product row is re-read to classify the
// failure into a StockError. A product drained to zero is flagged out
// of stock in the same call.
func Reserve(ctx context.Context, tx *gorm.DB, productID int64, qty int) error {
	if qty <= 0 {
		return domain.ErrValidation
	}

	res := tx.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ? AND in_stock = ? AND quantity >= ?", productID, true, qty).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return classifyMiss(ctx, tx, productID, qty)
	}

	return tx.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ? AND quantity <= 0", productID).
		Update("in_stock", false).Error
}

// Release returns qty units to a product and puts it back on sale.
func Release(ctx context.Context, tx *gorm.DB, productID int64, qty int) error {
	if qty <= 0 {
		return domain.ErrValidation
	}

	res := tx.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", qty),
			"in_stock":   true,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// classifyMiss explains a failed reservation. The re-read happens on
// the same transaction, so the row state matches what the conditional
// update saw.
func classifyMiss(ctx context.Context, tx *gorm.DB, productID int64, qty int) error {
	var product domain.Product
	err := tx.WithContext(ctx).First(&product, productID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &domain.StockError{Err: domain.ErrProductGone, ProductID: productID, Requested: qty}
	case err != nil:
		return err
	case !product.InStock:
		return &domain.StockError{
			Err:         domain.ErrOutOfStock,
			ProductID:   productID,
			ProductName: product.Name,
			Requested:   qty,
			Available:   product.Quantity,
		}
	default:
		return &domain.StockError{
			Err:         domain.ErrInsufficient,
			ProductID:   productID,
			ProductName: product.Name,
			Requested:   qty,
			Available:   product.Quantity,
		}
	}
}
