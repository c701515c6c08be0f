package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/psds-microservice/crm-service/internal/config"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ensureDatabase создаёт базу Postgres, если её ещё нет (подключение к служебной БД postgres).
func ensureDatabase(databaseURL string, log logrus.FieldLogger) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}
	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return fmt.Errorf("database name is empty in url")
	}
	u.Path = "/postgres"
	db, err := sql.Open("postgres", u.String())
	if err != nil {
		return fmt.Errorf("open admin connection: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping admin connection: %w", err)
	}
	var exists bool
	if err := db.QueryRow("SELECT true FROM pg_database WHERE datname = $1", dbName).Scan(&exists); err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("check database existence: %w", err)
	}
	if exists {
		return nil
	}
	if _, err = db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(dbName)); err != nil {
		return fmt.Errorf("create database %q: %w", dbName, err)
	}
	log.WithField("database", dbName).Info("database: created")
	return nil
}

// EnsureDatabase — для postgres создаёт базу до Open; для sqlite ничего не делает.
func EnsureDatabase(cfg *config.Config, log logrus.FieldLogger) error {
	if cfg.DB.Driver != config.DriverPostgres {
		return nil
	}
	return ensureDatabase(cfg.DatabaseURL(), log)
}

func newProvider(db *gorm.DB, driver string) (*goose.Provider, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql db: %w", err)
	}
	dialect := goose.DialectSQLite3
	if driver == config.DriverPostgres {
		dialect = goose.DialectPostgres
	}
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(dialect, sqlDB, fsys)
}

// MigrateUp применяет все ожидающие миграции.
func MigrateUp(ctx context.Context, db *gorm.DB, driver string, log logrus.FieldLogger) error {
	p, err := newProvider(db, driver)
	if err != nil {
		return fmt.Errorf("migrate provider: %w", err)
	}
	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	if len(results) == 0 {
		log.Info("migrate: no pending migrations")
		return nil
	}
	for _, r := range results {
		log.WithFields(logrus.Fields{
			"version":  r.Source.Version,
			"duration": r.Duration.String(),
		}).Info("migrate: applied")
	}
	return nil
}

// MigrateDown откатывает последнюю применённую миграцию.
func MigrateDown(ctx context.Context, db *gorm.DB, driver string, log logrus.FieldLogger) error {
	p, err := newProvider(db, driver)
	if err != nil {
		return fmt.Errorf("migrate provider: %w", err)
	}
	r, err := p.Down(ctx)
	if err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	log.WithField("version", r.Source.Version).Info("migrate: rolled back")
	return nil
}

type MigrationState struct {
	Version int64
	Applied bool
}

func MigrateStatus(ctx context.Context, db *gorm.DB, driver string) ([]MigrationState, error) {
	p, err := newProvider(db, driver)
	if err != nil {
		return nil, fmt.Errorf("migrate provider: %w", err)
	}
	statuses, err := p.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate status: %w", err)
	}
	out := make([]MigrationState, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationState{Version: s.Source.Version, Applied: s.State == goose.StateApplied})
	}
	return out, nil
}
