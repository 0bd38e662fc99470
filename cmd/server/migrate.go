package main

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MindFlow-Startup/MindFlow/internal/platform/config"
	"github.com/MindFlow-Startup/MindFlow/internal/platform/postgres"
)

func newMigrateCommand(load func() (config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd, load, func(db *sql.DB) error {
					if err := postgres.Migrate(db); err != nil {
						return err
					}
					return printVersion(cmd, db)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd, load, func(db *sql.DB) error {
					if err := postgres.Rollback(db); err != nil {
						return err
					}
					return printVersion(cmd, db)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd, load, func(db *sql.DB) error {
					return printVersion(cmd, db)
				})
			},
		},
	)
	return cmd
}

// withDatabase opens the configured PostgreSQL database for fn. Other store
// drivers manage their schema on open and have nothing to migrate.
func withDatabase(cmd *cobra.Command, load func() (config.Config, error), fn func(db *sql.DB) error) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	if cfg.Store.Driver != config.StorePostgres {
		return errors.New("migrations require STORE_DRIVER=postgres")
	}
	db, err := postgres.Open(cmd.Context(), cfg.Store.DatabaseDriver, cfg.Store.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func printVersion(cmd *cobra.Command, db *sql.DB) error {
	version, dirty, err := postgres.Version(db)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
	return nil
}
