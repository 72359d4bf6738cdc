package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ocrforge/hpcbroker/internal/config"
	"github.com/ocrforge/hpcbroker/internal/db"
	"github.com/ocrforge/hpcbroker/internal/logger"
)

// GetMigrateCmd returns the command applying the database schema. Connecting
// runs the migration, so this only needs the database variables set.
func GetMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			if _, err := db.New(config.DatabaseOptions()); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
			logger.Infof("Database schema up to date")
			return nil
		},
	}
}
