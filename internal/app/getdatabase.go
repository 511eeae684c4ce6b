package app

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/zestcart/zestcart/config"
	"github.com/zestcart/zestcart/pkg/common"
)

// getDatabase opens the configured database, postgres for production
// and sqlite for single node and development setups.
func getDatabase(cfg config.DBConfig, workdir string) *gorm.DB {
	switch cfg.Type {
	case "sqlite":
		return getSqliteDatabase(cfg, workdir)
	default:
		return getPgDatabase(cfg)
	}
}

func gormConfig(cfg config.DBConfig) *gorm.Config {
	level := gormlogger.Silent
	if cfg.Debug {
		level = gormlogger.Info
	}
	return &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	}
}

func getPgDatabase(cfg config.DBConfig) *gorm.DB {
	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s password=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Name, cfg.Passwd)
	pgdb, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), gormConfig(cfg))
	if err != nil {
		zap.S().Panicf("connect postgres error %s", err.Error())
	}

	sqlDB, err := pgdb.DB()
	if err != nil {
		zap.S().Panicf("acquire sql db error %s", err.Error())
	}
	sqlDB.SetMaxIdleConns(cfg.IdleConn)
	sqlDB.SetMaxOpenConns(cfg.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return pgdb
}

// getSqliteDatabase opens the file store with busy timeout and
// immediate transactions so concurrent checkouts serialize instead of
// failing on a locked database.
func getSqliteDatabase(cfg config.DBConfig, workdir string) *gorm.DB {
	file := filepath.Join(workdir, "data", fmt.Sprintf("%s.db", common.IfEmptyStr(cfg.Name, "zestcart")))
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL", file)
	litedb, err := gorm.Open(sqlite.Open(dsn), gormConfig(cfg))
	if err != nil {
		zap.S().Panicf("connect sqlite error %s", err.Error())
	}
	return litedb
}
