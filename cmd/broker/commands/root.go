// Package commands defines the broker process entrypoints: the HTTP server,
// the two queue workers and the schema migration.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ocrforge/hpcbroker/internal/logger"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "hpcbroker",
	Short: "HPC broker for OCR workflow jobs",
	Long: `hpcbroker submits OCR workflow jobs to a SLURM cluster and reconciles
their outcomes. It runs as one of several processes sharing a database and a
message queue: the HTTP server, the submit worker and the status worker.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// A missing .env file is fine, the environment may be set directly.
		_ = godotenv.Load()
		logger.Init()
	},
}

func init() {
	RootCmd.AddCommand(GetServerCmd())
	RootCmd.AddCommand(GetSubmitWorkerCmd())
	RootCmd.AddCommand(GetStatusWorkerCmd())
	RootCmd.AddCommand(GetMigrateCmd())
}
