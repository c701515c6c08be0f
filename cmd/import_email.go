package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/psds-microservice/crm-service/internal/application"
	"github.com/psds-microservice/crm-service/internal/reconcile"
	"github.com/spf13/cobra"
)

var importEmailFile string

var importEmailCmd = &cobra.Command{
	Use:   "import-email",
	Short: "Import one email as a ticket (match or create the sender customer)",
	RunE:  runImportEmail,
}

func init() {
	importEmailCmd.Flags().StringVarP(&importEmailFile, "file", "f", "-", "file with the email text, - for stdin")
}

func readEmail(cmd *cobra.Command, path string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read email: %w", err)
	}
	return string(b), nil
}

func runImportEmail(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	text, err := readEmail(cmd, importEmailFile)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	svc, err := application.NewServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	res, err := svc.Importer.Import(ctx, text)
	if err != nil {
		var partial *reconcile.PartialImportError
		if errors.As(err, &partial) {
			return fmt.Errorf("import partially failed, customer %s created without ticket: %w", partial.Customer.ID, err)
		}
		return fmt.Errorf("import (%s): %w", reconcile.OutcomeOf(err), err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
