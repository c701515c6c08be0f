package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "HTTP_PORT", "PORT", "DB_DRIVER", "DB_PATH", "EXTRACTION_TIMEOUT", "SESSION_TTL", "PHONE_REGION", "KAFKA_BROKERS"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3001", cfg.HTTPPort)
	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, 30*time.Second, cfg.Extraction.Timeout)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "DE", cfg.PhoneRegion)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("EXTRACTION_TIMEOUT", "5s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, 5*time.Second, cfg.Extraction.Timeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Contains(t, cfg.DSN(), "dbname=")
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("EXTRACTION_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{PhoneRegion: "DE", SessionTTL: time.Hour}
	cfg.Extraction.Timeout = time.Second
	cfg.DB.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg.DB.Driver = DriverSQLite
	assert.Error(t, cfg.Validate(), "empty path")
	cfg.DB.Path = "crm.db"
	assert.NoError(t, cfg.Validate())

	cfg.PhoneRegion = "DEU"
	assert.Error(t, cfg.Validate())
}

func TestSQLiteDSN(t *testing.T) {
	dsn := SQLiteDSN("/tmp/x.db")
	assert.Contains(t, dsn, "file:/tmp/x.db?")
	assert.Contains(t, dsn, "foreign_keys(1)")
}
