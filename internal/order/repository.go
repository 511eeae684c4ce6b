package order

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/zestcart/zestcart/internal/domain"
)

// Query filters the admin order listing.
type Query struct {
	Status      string
	UserID      int64
	CreatedFrom time.Time
	CreatedTo   time.Time
	Sort        string
	Desc        bool
	Page        int
	PageSize    int
}

var orderSortFields = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"total":      "total",
	"status":     "status",
}

// OrderRepository provides read access to orders, writes go through the
// service transactions.
type OrderRepository interface {
	// GetByID returns one order.
	GetByID(ctx context.Context, id int64) (*domain.Order, error)

	// List returns a page of orders matching the query plus the total count.
	List(ctx context.Context, q Query) ([]domain.Order, int64, error)

	// ListByUser returns a page of the user's orders, newest first.
	ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]domain.Order, int64, error)

	// StatusCounts returns the number of orders per status.
	StatusCounts(ctx context.Context) (map[string]int64, error)

	// TotalsSince returns the totals of all non cancelled orders created
	// after since, used for revenue statistics.
	TotalsSince(ctx context.Context, since time.Time) ([]float64, error)
}

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).First(&o, id).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormOrderRepository) List(ctx context.Context, q Query) ([]domain.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Order{})
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.UserID > 0 {
		query = query.Where("user_id = ?", q.UserID)
	}
	if !q.CreatedFrom.IsZero() {
		query = query.Where("created_at >= ?", q.CreatedFrom)
	}
	if !q.CreatedTo.IsZero() {
		query = query.Where("created_at <= ?", q.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sort, ok := orderSortFields[q.Sort]
	if !ok {
		sort = "created_at"
	}
	direction := " ASC"
	if q.Desc {
		direction = " DESC"
	}

	page, pageSize := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 20
	}

	var orders []domain.Order
	err := query.Order(sort + direction).
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *GormOrderRepository) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]domain.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Order{}).Where("user_id = ?", userID)

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

	var orders []domain.Order
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *GormOrderRepository) StatusCounts(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		Num    int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&domain.Order{}).
		Select("status, COUNT(*) AS num").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, item := range rows {
		counts[item.Status] = item.Num
	}
	return counts, nil
}

func (r *GormOrderRepository) TotalsSince(ctx context.Context, since time.Time) ([]float64, error) {
	var totals []float64
	err := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("created_at >= ? AND status <> ?", since, domain.OrderCancelled).
		Pluck("total", &totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}
