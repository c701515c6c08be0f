package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/psds-microservice/crm-service/internal/config"
	"github.com/psds-microservice/crm-service/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "crm-service",
	Short:         "CRM API: customers, tickets and email-to-ticket import",
	RunE:          runAPI,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(importEmailCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(publishEventsCmd)
}

// setup загружает .env и переменные окружения и создаёт логгер.
func setup() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	return cfg, logger.New(cfg.LogLevel, cfg.AppEnv), nil
}

// signalContext отменяется по SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
