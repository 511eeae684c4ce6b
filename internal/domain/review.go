package domain

import "time"

// Review product rating, one per user and product. Username is a
// display snapshot taken at creation so listings need no join.
type Review struct {
	ID        int64     `json:"id,string" form:"id"` // primary key
	ProductID int64     `json:"product_id,string" form:"product_id" gorm:"index"`
	UserID    int64     `json:"user_id,string" form:"user_id" gorm:"index"`
	Username  string    `json:"username" gorm:"size:64"`
	Rating    int       `json:"rating" form:"rating"` // 1..5
	Comment   string    `json:"comment" form:"comment" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Review) TableName() string {
	return "reviews"
}
