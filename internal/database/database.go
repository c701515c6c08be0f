package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/psds-microservice/crm-service/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open открывает БД выбранного драйвера. Для sqlite каталог файла создаётся при необходимости.
func Open(cfg *config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if cfg.LogLevel == "debug" || cfg.LogLevel == "trace" {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch cfg.DB.Driver {
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.DB.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.DSN())
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.DB.Driver)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DB.Driver, err)
	}
	if cfg.DB.Driver == config.DriverSQLite {
		// один писатель: sqlite сериализует запись, лишние соединения дают SQLITE_BUSY
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}
