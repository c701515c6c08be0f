package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	AppHost  string
	HTTPPort string
	AppEnv   string
	LogLevel string

	// DefaultCustomerID — клиент, к которому привязываются импортированные тикеты без распознанного отправителя.
	DefaultCustomerID string
	// PhoneRegion — регион по умолчанию для нормализации телефонов (ISO 3166-1 alpha-2).
	PhoneRegion string

	CORSAllowedOrigins []string

	// KafkaBrokers / KafkaTopic — если заданы, события клиентов и тикетов уходят в Kafka.
	KafkaBrokers []string
	KafkaTopic   string

	// RedisAddress — если задан, сессии и блокировки импорта живут в Redis, иначе в памяти процесса.
	RedisAddress string
	SessionTTL   time.Duration

	DB struct {
		Driver   string
		Path     string
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}

	Extraction struct {
		APIKey  string
		BaseURL string
		Model   string
		Timeout time.Duration
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		AppHost:            getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:           firstEnv("APP_PORT", "HTTP_PORT", "PORT", "3001"),
		AppEnv:             getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DefaultCustomerID:  getEnv("DEFAULT_CUSTOMER_ID", ""),
		PhoneRegion:        strings.ToUpper(getEnv("PHONE_REGION", "DE")),
		CORSAllowedOrigins: SplitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		KafkaBrokers:       SplitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "crm.events"),
		RedisAddress:       getEnv("REDIS_ADDRESS", ""),
	}
	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 12*time.Hour); err != nil {
		return nil, err
	}

	cfg.DB.Driver = strings.ToLower(getEnv("DB_DRIVER", DriverSQLite))
	cfg.DB.Path = getEnv("DB_PATH", filepath.Join("data", "omnicrm.db"))
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "crm_service")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Extraction.APIKey = firstEnv("EXTRACTION_API_KEY", "GEMINI_API_KEY", "API_KEY", "")
	cfg.Extraction.BaseURL = getEnv("EXTRACTION_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/")
	cfg.Extraction.Model = getEnv("EXTRACTION_MODEL", "gemini-2.5-flash")
	if cfg.Extraction.Timeout, err = getDuration("EXTRACTION_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.Path == "" {
			return errors.New("config: DB_PATH is required for sqlite")
		}
	case DriverPostgres:
		if c.DB.Host == "" || c.DB.Database == "" {
			return errors.New("config: DB_HOST and DB_DATABASE are required")
		}
		if c.AppEnv == "production" && c.DB.Password == "" {
			return errors.New("config: in production DB_PASSWORD is required")
		}
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q (sqlite, postgres)", c.DB.Driver)
	}
	if c.Extraction.Timeout <= 0 {
		return errors.New("config: EXTRACTION_TIMEOUT must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	if len(c.PhoneRegion) != 2 {
		return fmt.Errorf("config: PHONE_REGION must be a two-letter region, got %q", c.PhoneRegion)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// DSN — строка подключения для gorm-драйвера выбранной БД.
func (c *Config) DSN() string {
	if c.DB.Driver == DriverSQLite {
		return SQLiteDSN(c.DB.Path)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

// SQLiteDSN включает WAL, внешние ключи и ожидание блокировки для файла path.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// SplitList разбивает "a,b, c" на слайс без пустых элементов.
func SplitList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	for _, k := range keysAndDef[:len(keysAndDef)-1] {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
