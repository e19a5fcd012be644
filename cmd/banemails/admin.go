package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"bannedemails/config"
	"bannedemails/internal/adapters/auth"
	"bannedemails/internal/domain"
	"bannedemails/internal/repository/postgres"

	"github.com/spf13/cobra"
)

// cliUserID identifies saves made from the command line in logs and tokens.
const cliUserID = "cli"

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the settings table if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := config.NewLogger()
			db, err := postgres.Open(cmd.Context(), cfg.DBUrl)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			logger.Info("migration complete")
			return nil
		},
	}
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the banned email list, one per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()
			emails, err := a.service.BannedEmails(cmd.Context())
			if err != nil {
				return err
			}
			for _, e := range emails {
				fmt.Fprintln(cmd.OutOrStdout(), e)
			}
			return nil
		},
	}
}

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Replace the banned email list with the emails in file (\"-\" reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()
			token := a.nonces.Create(domain.BannedEmailsNonceAction, cliUserID)
			if err := a.service.SaveBannedEmails(cmd.Context(), raw, token, cliUserID); err != nil {
				return err
			}
			emails, err := a.settings.GetStrings(cmd.Context(), domain.BannedEmailsKey)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d banned emails\n", len(emails))
			return nil
		},
	}
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func newTokenCommand() *cobra.Command {
	var (
		email string
		ttl   time.Duration
		roles []string
	)
	cmd := &cobra.Command{
		Use:   "token [user-id]",
		Short: "Issue a session token for the admin routes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			token, err := auth.NewJWTIssuer(cfg.SessionSecret).Issue(args[0], email, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	cmd.Flags().StringSliceVar(&roles, "role", []string{domain.RoleAdmin}, "role claims")
	return cmd
}
