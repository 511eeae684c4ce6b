package domain

import "time"

// Category product grouping, names are unique across the store.
type Category struct {
	ID          int64     `json:"id,string" form:"id"` // primary key
	Name        string    `json:"name" form:"name" gorm:"uniqueIndex;size:191"`
	Description string    `json:"description" form:"description" gorm:"size:1024"`
	Image       string    `json:"image" form:"image" gorm:"size:1024"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Category) TableName() string {
	return "categories"
}

// Product catalog item. Quantity is the on-hand stock counter and
// never drops below zero, InStock follows Quantity on writes unless an
// operator overrides it to pull the product from sale.
type Product struct {
	ID          int64     `json:"id,string" form:"id"` // primary key
	Name        string    `json:"name" form:"name" gorm:"index;size:191"`
	Description string    `json:"description" form:"description" gorm:"type:text"`
	Price       float64   `json:"price" form:"price"`
	Quantity    int       `json:"quantity" form:"quantity" gorm:"default:0"`
	InStock     bool      `json:"in_stock" form:"in_stock" gorm:"index"`
	CategoryID  int64     `json:"category_id,string" form:"category_id" gorm:"index"`
	OwnerID     int64     `json:"owner_id,string" form:"owner_id" gorm:"index"` // vendor account that listed the product
	Image       string    `json:"image" form:"image" gorm:"size:1024"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "products"
}
