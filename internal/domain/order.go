package domain

import "time"

// Order statuses.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

// Order checkout record. Items is an immutable snapshot of the cart at
// checkout time and is stored as a JSON column, later price or name
// changes on the products never touch it.
type Order struct {
	ID              int64       `json:"id,string" form:"id"` // primary key
	UserID          int64       `json:"user_id,string" form:"user_id" gorm:"index"`
	Status          string      `json:"status" form:"status" gorm:"index;size:16;default:'pending'"`
	Total           float64     `json:"total"`
	Items           []OrderItem `json:"items" gorm:"serializer:json;type:text"`
	ShippingAddress string      `json:"shipping_address" gorm:"size:1024"`
	Notes           string      `json:"notes" gorm:"size:1024"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// TableName Specify table name
func (Order) TableName() string {
	return "orders"
}

// OrderItem one snapshot line inside Order.Items.
type OrderItem struct {
	ProductID int64   `json:"product_id,string"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}
