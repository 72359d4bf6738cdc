package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ocrforge/hpcbroker/internal/broker"
	"github.com/ocrforge/hpcbroker/internal/config"
	"github.com/ocrforge/hpcbroker/internal/db"
	"github.com/ocrforge/hpcbroker/internal/hpc"
	"github.com/ocrforge/hpcbroker/internal/logger"
	"github.com/ocrforge/hpcbroker/internal/messaging"
)

// GetSubmitWorkerCmd returns the command running the submission consumer.
func GetSubmitWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit-worker",
		Short: "Run the job submission worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd, func(store *broker.Store, client *hpc.Client, testBatch bool) workerBuilder {
				return broker.NewSubmitWorker(store, client, client, testBatch).Worker
			})
		},
	}
}

// GetStatusWorkerCmd returns the command running the status reconciliation
// consumer.
func GetStatusWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status-worker",
		Short: "Run the job status worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd, func(store *broker.Store, client *hpc.Client, _ bool) workerBuilder {
				return broker.NewStatusWorker(store, client, client).Worker
			})
		},
	}
}

type workerBuilder func(channel messaging.Channel) *broker.Worker

// runWorker wires the shared worker plumbing: configuration, database,
// cluster gateway, queue channel and signal-driven shutdown. Any failure
// before the consume loop starts is fatal.
func runWorker(cmd *cobra.Command, build func(*broker.Store, *hpc.Client, bool) workerBuilder) error {
	cmd.SilenceUsage = true

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ValidateHPC(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	conn, err := db.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	client, err := hpc.Dial(cfg.HPC)
	if err != nil {
		return fmt.Errorf("failed to connect to cluster: %w", err)
	}
	defer func() { _ = client.Close() }()

	channel, err := messaging.DialAMQP(cfg.AMQPURL)
	if err != nil {
		return fmt.Errorf("failed to connect to message queue: %w", err)
	}
	defer func() { _ = channel.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := build(broker.NewStore(conn), client, cfg.TestBatch)(channel)
	logger.Infof("Worker started, consuming until interrupted")
	if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("worker stopped: %w", err)
	}
	logger.Infof("Worker stopped")
	return nil
}
