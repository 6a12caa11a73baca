package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"installment_app_echo/internal/auth"
	"installment_app_echo/internal/bootstrap"
	"installment_app_echo/internal/config"
	"installment_app_echo/internal/logger"
	"installment_app_echo/internal/models"
)

// systemUser is recorded as the creator of rows written by this tool
const systemUser = "ctl"

var rootCmd = &cobra.Command{
	Use:   "ctl",
	Short: "Operator commands for the installment tracker",
	Long: `ctl talks to the same database, identity provider and storage as the server.
It reads its configuration from .env and the environment.`,
	SilenceUsage: true,
}

func Execute() {
	log := logger.WithComponent("ctl")

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openApp loads configuration and connects everything a command may need
func openApp(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, cfg)
}

// sessionFor acts on behalf of an existing account, with that account's role
func sessionFor(ctx context.Context, app *bootstrap.App, uid string) (auth.Session, error) {
	if uid == "" {
		return auth.Session{}, fmt.Errorf("--as is required")
	}
	account, err := app.Accounts.Get(ctx, uid)
	if err != nil {
		return auth.Session{}, fmt.Errorf("account %s: %w", uid, err)
	}
	role, err := app.Roles.RoleOf(ctx, uid)
	if err != nil {
		return auth.Session{}, err
	}
	return auth.NewSession(auth.Identity{UID: account.UID, Email: account.Email, Name: account.DisplayName}, role), nil
}

func systemSession() auth.Session {
	return auth.Session{UserID: systemUser, Role: models.RoleAdmin}
}
