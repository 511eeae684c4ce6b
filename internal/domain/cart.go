package domain

import "time"

// Cart per-user shopping cart, one row per user. Total always equals
// the sum of the item subtotals and is recomputed inside the same
// transaction as any item change.
type Cart struct {
	ID        int64      `json:"id,string" form:"id"` // primary key
	UserID    int64      `json:"user_id,string" form:"user_id" gorm:"uniqueIndex"`
	Total     float64    `json:"total" gorm:"default:0"`
	Items     []CartItem `json:"items" gorm:"foreignKey:CartID"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName Specify table name
func (Cart) TableName() string {
	return "carts"
}

// CartItem cart line, at most one per product within a cart. Name and
// Price are snapshots taken when the line was last touched, Subtotal is
// Price times Quantity.
type CartItem struct {
	ID        int64     `json:"id,string" form:"id"` // primary key
	CartID    int64     `json:"cart_id,string" gorm:"index"`
	ProductID int64     `json:"product_id,string" gorm:"index"`
	Name      string    `json:"name" gorm:"size:191"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	Subtotal  float64   `json:"subtotal"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (CartItem) TableName() string {
	return "cart_items"
}
