package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ocrforge/hpcbroker/internal/api"
	"github.com/ocrforge/hpcbroker/internal/broker"
	"github.com/ocrforge/hpcbroker/internal/config"
	"github.com/ocrforge/hpcbroker/internal/db"
	"github.com/ocrforge/hpcbroker/internal/logger"
	"github.com/ocrforge/hpcbroker/internal/messaging"
)

// GetServerCmd returns the command running the HTTP front-end.
func GetServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			conn, err := db.New(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}

			channel, err := messaging.DialAMQP(cfg.AMQPURL)
			if err != nil {
				return fmt.Errorf("failed to connect to message queue: %w", err)
			}
			defer func() { _ = channel.Close() }()

			app := api.NewApp(broker.NewStore(conn), channel, cfg.JobsDir)

			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-interrupt
				logger.Infof("Received signal %s, shutting down server", sig)
				_ = app.Shutdown()
			}()

			logger.Infof("Listening on %s", cfg.ServerAddress)
			return app.Listen(cfg.ServerAddress)
		},
	}
}
