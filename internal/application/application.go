package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/psds-microservice/crm-service/internal/config"
	"github.com/psds-microservice/crm-service/internal/database"
	"github.com/psds-microservice/crm-service/internal/extraction"
	"github.com/psds-microservice/crm-service/internal/handler"
	"github.com/psds-microservice/crm-service/internal/kafka"
	"github.com/psds-microservice/crm-service/internal/lock"
	"github.com/psds-microservice/crm-service/internal/reconcile"
	"github.com/psds-microservice/crm-service/internal/router"
	"github.com/psds-microservice/crm-service/internal/service"
	"github.com/psds-microservice/crm-service/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// importLockTTL ограничивает удержание блокировки импорта в Redis, если процесс упал посреди импорта.
const importLockTTL = time.Minute

type assistant interface {
	extraction.Extractor
	extraction.Summarizer
}

// Services — явный контекст приложения: база, сервисы и внешние клиенты. Общий для API и CLI-команд.
type Services struct {
	Config *config.Config
	Log    logrus.FieldLogger

	DB     *gorm.DB
	Redis  redis.UniversalClient
	Events *kafka.Producer

	Customers *service.CustomerService
	Tickets   *service.TicketService
	Users     *service.UserService
	Settings  *service.SettingsService
	Stats     *service.StatsService
	Sessions  *session.Manager
	Assistant assistant
	Importer  *reconcile.Importer
}

// NewServices проверяет конфиг, готовит базу (создание, миграции) и собирает сервисы.
func NewServices(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Services, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.EnsureDatabase(cfg, log); err != nil {
		return nil, fmt.Errorf("ensure database: %w", err)
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := database.MigrateUp(ctx, db, cfg.DB.Driver, log); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s := &Services{Config: cfg, Log: log, DB: db}

	var (
		store  session.Store = session.NewMemory()
		locker lock.Locker   = lock.NewLocal()
	)
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddress, err)
		}
		s.Redis = rdb
		store = session.NewRedis(rdb)
		locker = lock.NewRedis(rdb, importLockTTL)
		log.WithField("addr", cfg.RedisAddress).Info("redis: sessions and import locks shared")
	}

	s.Events = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	// nil-интерфейс вместо пустого *Producer: сервисы пропускают отправку
	var events kafka.EventProducer
	if s.Events.Enabled() {
		events = s.Events
	}

	if cfg.Extraction.APIKey != "" {
		s.Assistant = extraction.NewClient(cfg.Extraction.APIKey, cfg.Extraction.BaseURL, cfg.Extraction.Model, log)
	} else {
		log.Warn("extraction: no API key configured, email import and summaries are unavailable")
		s.Assistant = extraction.Disabled{}
	}

	s.Customers = service.NewCustomerService(db, events, cfg.PhoneRegion)
	s.Tickets = service.NewTicketService(db, events)
	s.Users = service.NewUserService(db)
	s.Settings = service.NewSettingsService(db)
	s.Stats = service.NewStatsService(db)
	s.Sessions = session.NewManager(store, cfg.SessionTTL)
	s.Importer = reconcile.NewImporter(reconcile.Deps{
		Customers: s.Customers,
		Tickets:   s.Tickets,
		Extractor: s.Assistant,
		Locker:    locker,
		Events:    events,
		Log:       log,
	}, reconcile.Config{
		DefaultCustomerID: cfg.DefaultCustomerID,
		ExtractionTimeout: cfg.Extraction.Timeout,
	})
	return s, nil
}

// Close освобождает соединения; ошибки собираются, а не обрывают закрытие.
func (s *Services) Close() error {
	var errList []error
	if err := s.Events.Close(); err != nil {
		errList = append(errList, fmt.Errorf("kafka: %w", err))
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errList = append(errList, fmt.Errorf("redis: %w", err))
		}
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errList = append(errList, fmt.Errorf("database: %w", err))
		}
	}
	return errors.Join(errList...)
}

// API приложение: HTTP-сервер (режим api).
type API struct {
	svc     *Services
	httpSrv *http.Server
}

// NewAPI создаёт приложение для режима api.
func NewAPI(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*API, error) {
	svc, err := NewServices(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	sqlDB, err := svc.DB.DB()
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("database: %w", err)
	}

	h := router.New(router.Handlers{
		Health:    handler.NewHealthHandler(sqlDB),
		Customers: handler.NewCustomerHandler(svc.Customers, svc.Tickets, svc.Assistant, cfg.Extraction.Timeout),
		Tickets:   handler.NewTicketHandler(svc.Tickets),
		Import:    handler.NewImportHandler(svc.Importer),
		Auth:      handler.NewAuthHandler(svc.Users, svc.Sessions),
		Users:     handler.NewUserHandler(svc.Users, svc.Sessions),
		Settings:  handler.NewSettingsHandler(svc.Settings, svc.Stats),
	}, router.Options{AllowedOrigins: cfg.CORSAllowedOrigins, Log: log})

	return &API{
		svc: svc,
		httpSrv: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			// импорт ждёт модель до EXTRACTION_TIMEOUT
			WriteTimeout: cfg.Extraction.Timeout + 30*time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}, nil
}

// Run запускает HTTP-сервер, блокируется до отмены ctx.
func (a *API) Run(ctx context.Context) error {
	defer func() {
		if err := a.svc.Close(); err != nil {
			a.svc.Log.WithError(err).Warn("close services")
		}
	}()
	cfg := a.svc.Config
	host := cfg.AppHost
	if host == "0.0.0.0" || host == "" {
		host = "localhost"
	}
	base := "http://" + host + ":" + cfg.HTTPPort
	a.svc.Log.WithFields(logrus.Fields{
		"addr":    a.httpSrv.Addr,
		"swagger": base + "/swagger",
		"health":  base + "/health",
		"metrics": base + "/metrics",
		"api":     base + "/api/",
	}).Info("HTTP server listening")

	errCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
