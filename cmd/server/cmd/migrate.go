package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Togather-Foundation/gallery/internal/config"
	"github.com/Togather-Foundation/gallery/internal/jobs"
	"github.com/Togather-Foundation/gallery/internal/storage/postgres"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	var skipRiver bool
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending application and River migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			logger := config.NewLogger(cfg.Logging)

			if err := postgres.MigrateUp(cfg.Database.URL); err != nil {
				return err
			}
			version, dirty, err := postgres.MigrationVersion(cfg.Database.URL)
			if err != nil {
				return err
			}
			logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema migrated")

			if skipRiver {
				return nil
			}
			pool, err := postgres.Connect(cmd.Context(), postgres.PoolConfig{URL: cfg.Database.URL, MaxConnections: 2})
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := jobs.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			logger.Info().Msg("river schema migrated")
			return nil
		},
	}
	up.Flags().BoolVar(&skipRiver, "skip-river", false, "do not migrate the River job tables")

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back application migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if err := postgres.MigrateDown(cfg.Database.URL, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			version, dirty, err := postgres.MigrationVersion(cfg.Database.URL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}
