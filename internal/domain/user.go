package domain

import "time"

// User account roles.
const (
	RoleAdmin    = "admin"
	RoleVendor   = "vendor"
	RoleCustomer = "customer"
)

// User store account, password column holds a bcrypt hash only.
type User struct {
	ID            int64     `json:"id,string" form:"id"` // primary key
	Email         string    `json:"email" form:"email" gorm:"uniqueIndex;size:191"`
	Username      string    `json:"username" form:"username" gorm:"size:64"`
	Password      string    `json:"-" form:"-" gorm:"size:128"`
	Role          string    `json:"role" form:"role" gorm:"index;size:16;default:'customer'"`
	Avatar        string    `json:"avatar" form:"avatar" gorm:"size:1024"`
	Status        string    `json:"status" form:"status" gorm:"index;size:16;default:'enabled'"` // enabled | disabled
	ResetToken    string    `json:"-" gorm:"index;size:64"`
	ResetExpireAt time.Time `json:"-"`
	LastLogin     time.Time `json:"last_login"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName Specify table name
func (User) TableName() string {
	return "users"
}

// ValidRole reports whether r is one of the known account roles.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleVendor, RoleCustomer:
		return true
	}
	return false
}
