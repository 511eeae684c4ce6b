// Package review manages product reviews, one review per user and
// product enforced by a lookup before insert.
package review

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/zestcart/zestcart/internal/domain"
	"github.com/zestcart/zestcart/pkg/common"
)

// minCommentLen is the shortest accepted comment, whitespace trimmed.
const minCommentLen = 4

type Service struct {
	db *gorm.DB
}

func validComment(comment string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(comment)) >= minCommentLen
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create adds a review for a product. The product must exist, the
// user must not have reviewed it before and the comment must carry at
// least minCommentLen characters.
func (s *Service) Create(ctx context.Context, user *domain.User, productID int64, rating int, comment string) (*domain.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, domain.ErrValidation
	}
	if !validComment(comment) {
		return nil, domain.ErrValidation
	}

	var created *domain.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product domain.Product
		err := tx.First(&product, productID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		var count int64
		err = tx.Model(&domain.Review{}).
			Where("product_id = ? AND user_id = ?", productID, user.ID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrConflict
		}

		created = &domain.Review{
			ID:        common.UUIDint64(),
			ProductID: productID,
			UserID:    user.ID,
			Username:  user.Username,
			Rating:    rating,
			Comment:   comment,
		}
		return tx.Create(created).Error
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update changes rating or comment on the caller's own review, nil
// fields are left untouched.
func (s *Service) Update(ctx context.Context, userID, reviewID int64, rating *int, comment *string) (*domain.Review, error) {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, domain.ErrValidation
	}
	if comment != nil && !validComment(*comment) {
		return nil, domain.ErrValidation
	}

	var item domain.Review
	err := s.db.WithContext(ctx).First(&item, reviewID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, domain.ErrForbidden
	}

	values := map[string]interface{}{"updated_at": time.Now()}
	if rating != nil {
		values["rating"] = *rating
	}
	if comment != nil {
		values["comment"] = *comment
	}
	err = s.db.WithContext(ctx).Model(&domain.Review{}).
		Where("id = ?", reviewID).Updates(values).Error
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).First(&item, reviewID).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete removes a review, allowed for its author and for admins.
func (s *Service) Delete(ctx context.Context, actor *domain.User, reviewID int64) error {
	var item domain.Review
	err := s.db.WithContext(ctx).First(&item, reviewID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	if item.UserID != actor.ID && actor.Role != domain.RoleAdmin {
		return domain.ErrForbidden
	}
	return s.db.WithContext(ctx).Delete(&domain.Review{}, reviewID).Error
}

// ListByProduct returns a page of reviews for a product, newest first.
func (s *Service) ListByProduct(ctx context.Context, productID int64, page, pageSize int) ([]domain.Review, int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ?", productID).Count(&count).Error
	if err != nil {
		return nil, 0, err
	}
	if count == 0 {
		return nil, 0, domain.ErrNotFound
	}

	query := s.db.WithContext(ctx).Model(&domain.Review{}).Where("product_id = ?", productID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 20
	}

	var reviews []domain.Review
	err = query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}
