package messaging

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ocrforge/hpcbroker/internal/logger"
)

// AMQPChannel implements Channel on a RabbitMQ connection.
type AMQPChannel struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// DialAMQP connects to the broker at the given URL and opens a channel with
// a prefetch of one, so each worker process holds exactly one unacknowledged
// message at a time.
func DialAMQP(url string) (*AMQPChannel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to amqp broker: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open amqp channel: %w", err)
	}
	if err := channel.Qos(1, 0, false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set amqp prefetch: %w", err)
	}
	return &AMQPChannel{conn: conn, channel: channel}, nil
}

// Consume implements Channel.Consume with manual acknowledgement.
func (c *AMQPChannel) Consume(ctx context.Context, queue string) (<-chan Delivery, error) {
	if _, err := c.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	deliveries, err := c.channel.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming from %s: %w", queue, err)
	}
	logger.Infof("Consuming from queue: %s", queue)

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for delivery := range deliveries {
			tag := delivery.DeliveryTag
			out <- Delivery{
				Body: delivery.Body,
				Ack: func() error {
					logger.Debugf("Ack delivery tag: %d", tag)
					return c.channel.Ack(tag, false)
				},
			}
		}
	}()
	return out, nil
}

// Publish implements Channel.Publish on a durable queue.
func (c *AMQPChannel) Publish(ctx context.Context, queue string, body []byte) error {
	if _, err := c.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return c.channel.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Close implements Channel.Close.
func (c *AMQPChannel) Close() error {
	if err := c.channel.Close(); err != nil {
		_ = c.conn.Close()
		return err
	}
	return c.conn.Close()
}
