// Package notify delivers transactional email. Services publish events
// on the process bus, the dispatcher persists them to an outbox and a
// worker pool sends the rendered messages over SMTP.
package notify

import (
	"github.com/zestcart/zestcart/internal/domain"
)

// Bus topics published by the trade and account services.
const (
	TopicUserRegistered     = "user.registered"
	TopicPasswordReset      = "user.password_reset"
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
	TopicLowStock           = "inventory.low_stock"
)

type UserRegisteredEvent struct {
	UserID   int64  `json:"user_id,string"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type PasswordResetEvent struct {
	UserID   int64  `json:"user_id,string"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

type OrderCreatedEvent struct {
	OrderID  int64              `json:"order_id,string"`
	UserID   int64              `json:"user_id,string"`
	Email    string             `json:"email"`
	Username string             `json:"username"`
	Total    float64            `json:"total"`
	Items    []domain.OrderItem `json:"items"`
}

type OrderStatusChangedEvent struct {
	OrderID  int64   `json:"order_id,string"`
	UserID   int64   `json:"user_id,string"`
	Email    string  `json:"email"`
	Username string  `json:"username"`
	From     string  `json:"from"`
	To       string  `json:"to"`
	Total    float64 `json:"total"`
}

type LowStockProduct struct {
	ProductID int64  `json:"product_id,string"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

type LowStockEvent struct {
	Products []LowStockProduct `json:"products"`
}
