package admin

import (
	"fmt"

	"github.com/cloo-solutions/taskpriority/internal/config"
	"github.com/cloo-solutions/taskpriority/internal/database"
	"github.com/spf13/cobra"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  "Apply or revert the SQL migrations",
	}

	cmd.PersistentFlags().String("dir", database.DefaultMigrationsDir, "Directory holding SQL migrations")

	cmd.AddCommand(migrateDirectionCmd(database.Up, "Apply all pending migrations"))
	cmd.AddCommand(migrateDirectionCmd(database.Down, "Revert all migrations"))

	return cmd
}

func migrateDirectionCmd(direction database.Direction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(direction),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			dir, _ := cmd.Flags().GetString("dir")
			return database.Migrate(cfg.DatabaseURL, dir, direction)
		},
	}
}
