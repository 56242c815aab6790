package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"blogflow/backend/internal/migrations"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, logger, err := loadConfig(opts)
				if err != nil {
					return err
				}
				if err := migrations.Up(cmd.Context(), cfg.DatabaseURL(), logger.Logger); err != nil {
					return err
				}
				logger.Info("Migrations applied")
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, logger, err := loadConfig(opts)
				if err != nil {
					return err
				}
				if err := migrations.Down(cmd.Context(), cfg.DatabaseURL(), logger.Logger); err != nil {
					return err
				}
				logger.Info("Migration rolled back")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show applied and pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, _, err := loadConfig(opts)
				if err != nil {
					return err
				}
				status, err := migrations.Status(cmd.Context(), cfg.DatabaseURL())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "current version: %d\n", status.CurrentVersion)
				fmt.Fprintf(out, "total migrations: %d\n", status.TotalMigrations)
				if status.HasPendingChanges {
					fmt.Fprintf(out, "pending: %v\n", status.PendingMigrations)
				} else {
					fmt.Fprintln(out, "pending: none")
				}
				return nil
			},
		},
	)
	return cmd
}
