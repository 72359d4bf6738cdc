package broker

import (
	"context"
	"fmt"

	"github.com/ocrforge/hpcbroker/internal/logger"
	"github.com/ocrforge/hpcbroker/internal/messaging"
)

// HandleFunc resolves one message body. Implementations resolve every
// failure internally; the worker acknowledges after the handler returns, on
// every path, so no error can escape the per-message path and kill the loop.
type HandleFunc func(ctx context.Context, body []byte)

// Worker consumes one queue strictly sequentially: one message in flight at
// a time, acknowledgement order equal to delivery order.
type Worker struct {
	channel messaging.Channel
	queue   string
	handle  HandleFunc
}

// NewWorker creates a worker bound to one queue.
func NewWorker(channel messaging.Channel, queue string, handle HandleFunc) *Worker {
	return &Worker{channel: channel, queue: queue, handle: handle}
}

// Run consumes until ctx is cancelled or the delivery stream closes. A
// cancellation mid-message is observed by the handler at its checkpoints; it
// finalizes the message through its failure path and the delivery is still
// acknowledged before Run returns, so no message stays invisible in the
// queue across a graceful restart.
func (w *Worker) Run(ctx context.Context) error {
	deliveries, err := w.channel.Consume(ctx, w.queue)
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", w.queue, err)
	}
	logger.Infof("Worker started on queue: %s", w.queue)

	for delivery := range deliveries {
		w.handleSafely(ctx, delivery.Body)
		if err := delivery.Ack(); err != nil {
			logger.Errorf("Failed to acknowledge delivery: %v", err)
		}
	}
	logger.Infof("Worker stopped on queue: %s", w.queue)
	return nil
}

// handleSafely shields the consume loop from handler panics; a panicking
// message is logged and treated as a permanent failure.
func (w *Worker) handleSafely(ctx context.Context, body []byte) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Message handling panicked, dropping message: %v", r)
		}
	}()
	w.handle(ctx, body)
}
