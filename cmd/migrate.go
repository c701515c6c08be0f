package cmd

import (
	"fmt"

	"github.com/psds-microservice/crm-service/internal/config"
	"github.com/psds-microservice/crm-service/internal/database"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the last applied migration",
	RunE:  runMigrateDown,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE:  runMigrateStatus,
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func openForMigrate() (*config.Config, *logrus.Logger, *gorm.DB, error) {
	cfg, log, err := setup()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("config: %w", err)
	}
	if err := database.EnsureDatabase(cfg, log); err != nil {
		return nil, nil, nil, fmt.Errorf("ensure database: %w", err)
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, log, db, err := openForMigrate()
	if err != nil {
		return err
	}
	if err := database.MigrateUp(cmd.Context(), db, cfg.DB.Driver, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("migrate up: ok")
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	cfg, log, db, err := openForMigrate()
	if err != nil {
		return err
	}
	if err := database.MigrateDown(cmd.Context(), db, cfg.DB.Driver, log); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	log.Info("migrate down: ok")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	cfg, _, db, err := openForMigrate()
	if err != nil {
		return err
	}
	states, err := database.MigrateStatus(cmd.Context(), db, cfg.DB.Driver)
	if err != nil {
		return fmt.Errorf("migrate status: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, s := range states {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Fprintf(out, "%05d  %s\n", s.Version, state)
	}
	return nil
}
