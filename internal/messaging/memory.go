package messaging

import (
	"context"
	"fmt"
	"sync"
)

// MemChannel is an in-memory Channel used in tests. It enforces the channel
// contract the workers rely on: an acknowledged message is gone for good and
// acknowledging the same delivery twice is an error.
type MemChannel struct {
	mu     sync.Mutex
	buffer int
	queues map[string]chan Delivery
	acked  map[string][][]byte
	closed bool
}

// NewMemChannel creates an in-memory channel with the given per-queue buffer.
func NewMemChannel(buffer int) *MemChannel {
	return &MemChannel{
		buffer: buffer,
		queues: make(map[string]chan Delivery),
		acked:  make(map[string][][]byte),
	}
}

func (c *MemChannel) queue(name string) chan Delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.queues[name]
	if !ok {
		q = make(chan Delivery, c.buffer)
		c.queues[name] = q
	}
	return q
}

// Publish implements Channel.Publish.
func (c *MemChannel) Publish(_ context.Context, queue string, body []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("channel closed")
	}
	c.mu.Unlock()

	acked := false
	c.queue(queue) <- Delivery{
		Body: body,
		Ack: func() error {
			c.mu.Lock()
			defer c.mu.Unlock()
			if acked {
				return fmt.Errorf("delivery already acknowledged")
			}
			acked = true
			c.acked[queue] = append(c.acked[queue], body)
			return nil
		},
	}
	return nil
}

// Consume implements Channel.Consume.
func (c *MemChannel) Consume(ctx context.Context, queue string) (<-chan Delivery, error) {
	q := c.queue(queue)
	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-q:
				if !ok {
					return
				}
				select {
				case <-ctx.Done():
					return
				case out <- delivery:
				}
			}
		}
	}()
	return out, nil
}

// Close implements Channel.Close.
func (c *MemChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Acked returns the bodies acknowledged on the named queue, in ack order.
func (c *MemChannel) Acked(queue string) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.acked[queue]...)
}

// Pending returns how many published messages on the named queue have not
// been consumed yet.
func (c *MemChannel) Pending(queue string) int {
	return len(c.queue(queue))
}
