package cmd

import (
	"fmt"

	"github.com/psds-microservice/crm-service/internal/application"
	"github.com/psds-microservice/crm-service/internal/service"
	"github.com/spf13/cobra"
)

var userInput service.UserInput

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage operator accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an operator account",
	RunE:  runUserCreate,
}

func init() {
	f := userCreateCmd.Flags()
	f.StringVar(&userInput.Username, "username", "", "login name (unique, case-insensitive)")
	f.StringVar(&userInput.Password, "password", "", "password, at least 8 characters")
	f.StringVar(&userInput.Name, "name", "", "display name")
	f.StringVar(&userInput.Role, "role", "", "role (default \"Support Agent\")")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")
	_ = userCreateCmd.MarkFlagRequired("name")
	userCmd.AddCommand(userCreateCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	svc, err := application.NewServices(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	u, err := svc.Users.Create(cmd.Context(), userInput)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", u.Username, u.ID)
	return nil
}
