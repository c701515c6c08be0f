// Package testutil содержит общие помощники тестов: мигрированная sqlite-база во временном каталоге
// и тихий логгер.
package testutil

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/psds-microservice/crm-service/internal/config"
	"github.com/psds-microservice/crm-service/internal/database"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Logger возвращает логгер, который ничего не пишет.
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// Config — конфигурация sqlite-базы в t.TempDir().
func Config(t testing.TB) *config.Config {
	t.Helper()
	cfg := &config.Config{AppEnv: "test", LogLevel: "error", PhoneRegion: "DE"}
	cfg.DB.Driver = config.DriverSQLite
	cfg.DB.Path = filepath.Join(t.TempDir(), "crm.db")
	return cfg
}

// DB открывает новую sqlite-базу и применяет все миграции.
func DB(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := Config(t)
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.MigrateUp(context.Background(), db, cfg.DB.Driver, Logger()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
