package app

import (
	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/zestcart/zestcart/config"
	"github.com/zestcart/zestcart/internal/auth"
	"github.com/zestcart/zestcart/internal/cart"
	"github.com/zestcart/zestcart/internal/order"
	"github.com/zestcart/zestcart/internal/review"
	"github.com/zestcart/zestcart/internal/storage"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SettingsProvider provides system settings access
type SettingsProvider interface {
	GetSettingsStringValue(category, key string) string
	GetSettingsInt64Value(category, key string) int64
	GetSettingsBoolValue(category, key string) bool
	SaveSettings(settings map[string]interface{}) error
	DecodeSettings(category string, out interface{}) error
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// BusProvider provides the process event bus
type BusProvider interface {
	Bus() EventBus.Bus
}

// ServiceProvider provides the long lived trade services
type ServiceProvider interface {
	CartService() *cart.Service
	OrderService() *order.Service
	ReviewService() *review.Service
	Tokens() *auth.TokenService
	Assets() storage.Store
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SettingsProvider
	SchedulerProvider
	BusProvider
	ServiceProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
}
