package cmd

import (
	"github.com/psds-microservice/crm-service/internal/application"
	"github.com/spf13/cobra"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run HTTP API (applies pending migrations first)",
	RunE:  runAPI,
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	app, err := application.NewAPI(ctx, cfg, log)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
