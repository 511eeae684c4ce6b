package app

import (
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/zestcart/zestcart/config"
	"github.com/zestcart/zestcart/internal/auth"
	"github.com/zestcart/zestcart/internal/cart"
	"github.com/zestcart/zestcart/internal/domain"
	"github.com/zestcart/zestcart/internal/notify"
	"github.com/zestcart/zestcart/internal/order"
	"github.com/zestcart/zestcart/internal/review"
	"github.com/zestcart/zestcart/internal/storage"
	"github.com/zestcart/zestcart/pkg/common"
	"github.com/zestcart/zestcart/pkg/metrics"
)

type Application struct {
	appConfig     *config.AppConfig
	gormDB        *gorm.DB
	sched         *cron.Cron
	settings      *SettingsManager
	bus           EventBus.Bus
	revoker       auth.RevocationStore
	tokens        *auth.TokenService
	assets        storage.Store
	dispatcher    *notify.Dispatcher
	cartService   *cart.Service
	orderService  *order.Service
	reviewService *review.Service
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SettingsProvider  = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ BusProvider       = (*Application)(nil)
	_ ServiceProvider   = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
	a.settings = NewSettingsManager(db)
	a.cartService = cart.NewService(db, cart.NewGormCartRepository(db))
	a.orderService = order.NewService(db, order.NewGormOrderRepository(db), a.bus)
	a.reviewService = review.NewService(db)
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	// Initialize zap logger
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Configure output paths
	zapConfig.OutputPaths = []string{"stdout"}
	if cfg.Logger.FileEnable {
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, cfg.Logger.Filename)
	}

	// Build logger with file rotation if enabled
	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)

	common.MustMakeDir(cfg.GetDataDir())

	// Initialize metrics with workdir convention
	err = metrics.InitMetrics(cfg.System.Workdir)
	if err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	// Initialize database connection
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	a.gormDB = getDatabase(cfg.Database, cfg.System.Workdir)
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	// Ensure database schema is migrated before loading settings
	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	// wait for database initialization to complete
	go func() {
		time.Sleep(3 * time.Second)
		a.checkSuper()
		a.checkSettings()
		a.checkCategories()
	}()

	a.settings = NewSettingsManager(a.gormDB)
	a.bus = EventBus.New()

	// Token revocation needs a shared store, fall back to process memory
	// when redis is not reachable (single node only).
	redisStore, err := auth.NewRedisRevocationStore(cfg.Redis)
	if err != nil {
		zap.S().Warnf("redis unavailable, using in process token revocation: %s", err.Error())
		a.revoker = auth.NewMemoryRevocationStore()
	} else {
		a.revoker = redisStore
	}
	a.tokens = auth.NewTokenService(cfg.Web.Secret, cfg.System.Appid,
		time.Hour*time.Duration(cfg.Web.JwtExpire), a.revoker)

	a.assets, err = storage.New(cfg.Storage, cfg.System.Workdir)
	if err != nil {
		zap.S().Panicf("init asset storage error %s", err.Error())
	}

	outbox, err := notify.OpenOutbox(filepath.Join(cfg.GetDataDir(), "outbox.db"))
	if err != nil {
		zap.S().Panicf("open notify outbox error %s", err.Error())
	}
	a.dispatcher, err = notify.NewDispatcher(a.bus, outbox, notify.NewSMTPSender(a.settings), a.settings, 4)
	if err != nil {
		zap.S().Panicf("init notify dispatcher error %s", err.Error())
	}
	if err = a.dispatcher.Start(); err != nil {
		zap.S().Panicf("start notify dispatcher error %s", err.Error())
	}

	a.cartService = cart.NewService(a.gormDB, cart.NewGormCartRepository(a.gormDB))
	a.orderService = order.NewService(a.gormDB, order.NewGormOrderRepository(a.gormDB), a.bus)
	a.reviewService = review.NewService(a.gormDB)

	a.initJob()
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	if track {
		if err := a.gormDB.Debug().Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	} else {
		if err := a.gormDB.Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	}
	return nil
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
	a.checkSuper()
	a.checkSettings()
	a.checkCategories()
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// Bus returns the process event bus
func (a *Application) Bus() EventBus.Bus {
	return a.bus
}

// CartService returns the cart service
func (a *Application) CartService() *cart.Service {
	return a.cartService
}

// OrderService returns the order service
func (a *Application) OrderService() *order.Service {
	return a.orderService
}

// ReviewService returns the review service
func (a *Application) ReviewService() *review.Service {
	return a.reviewService
}

// Tokens returns the access token service
func (a *Application) Tokens() *auth.TokenService {
	return a.tokens
}

// Assets returns the asset store
func (a *Application) Assets() storage.Store {
	return a.assets
}

// GetSettingsStringValue retrieves a string configuration value
func (a *Application) GetSettingsStringValue(category, key string) string {
	return a.settings.GetString(category, key)
}

// GetSettingsInt64Value retrieves an int64 configuration value
func (a *Application) GetSettingsInt64Value(category, key string) int64 {
	return a.settings.GetInt64(category, key)
}

// GetSettingsBoolValue retrieves a boolean configuration value
func (a *Application) GetSettingsBoolValue(category, key string) bool {
	return a.settings.GetBool(category, key)
}

// SaveSettings saves configuration settings
func (a *Application) SaveSettings(settings map[string]interface{}) error {
	return a.settings.Save(settings)
}

// DecodeSettings loads one settings category into a typed struct
func (a *Application) DecodeSettings(category string, out interface{}) error {
	return a.settings.DecodeSettings(category, out)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}

	if a.dispatcher != nil {
		a.dispatcher.Stop()
	}

	if closer, ok := a.revoker.(io.Closer); ok && closer != nil {
		_ = closer.Close()
	}

	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	metrics.Close()
	_ = zap.L().Sync()
}
