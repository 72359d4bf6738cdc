package messaging

import "context"

// Delivery is a single consumed message. Ack permanently removes it from the
// queue; the workers never negative-acknowledge, because once remote side
// effects happened a redelivery is unsafe without a compensating transaction.
type Delivery struct {
	Body []byte
	Ack  func() error
}

// Channel is an at-least-once delivery queue with explicit acknowledgement.
type Channel interface {
	// Consume returns a stream of deliveries from the named queue. The
	// stream closes when ctx is cancelled or the connection drops.
	Consume(ctx context.Context, queue string) (<-chan Delivery, error)
	// Publish enqueues a message body on the named queue.
	Publish(ctx context.Context, queue string, body []byte) error
	// Close releases the underlying connection.
	Close() error
}
