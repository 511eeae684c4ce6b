package cart

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/zestcart/zestcart/internal/domain"
	"github.com/zestcart/zestcart/pkg/common"
)

// CartRepository provides data access for carts and cart lines. Line
// lookups inside mutations stay on the service's transaction handle and
// are not part of this interface.
type CartRepository interface {
	// GetOrCreate returns the user's cart, creating an empty one on first use.
	GetOrCreate(ctx context.Context, userID int64) (*domain.Cart, error)

	// GetWithItems returns the user's cart with all lines preloaded.
	GetWithItems(ctx context.Context, userID int64) (*domain.Cart, error)
}

// GormCartRepository implements CartRepository using GORM.
type GormCartRepository struct {
	db *gorm.DB
}

func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

func (r *GormCartRepository) GetOrCreate(ctx context.Context, userID int64) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = domain.Cart{ID: common.UUIDint64(), UserID: userID, Total: 0}
		if err := r.db.WithContext(ctx).Create(&cart).Error; err != nil {
			return nil, err
		}
		return &cart, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormCartRepository) GetWithItems(ctx context.Context, userID int64) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.db.WithContext(ctx).Preload("Items").Where("user_id = ?", userID).First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}
