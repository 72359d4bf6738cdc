package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemChannelDeliversInOrder(t *testing.T) {
	channel := NewMemChannel(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, channel.Publish(ctx, "q", []byte("first")))
	require.NoError(t, channel.Publish(ctx, "q", []byte("second")))

	deliveries, err := channel.Consume(ctx, "q")
	require.NoError(t, err)

	first := <-deliveries
	require.Equal(t, "first", string(first.Body))
	require.NoError(t, first.Ack())

	second := <-deliveries
	require.Equal(t, "second", string(second.Body))
	require.NoError(t, second.Ack())

	require.Equal(t, [][]byte{[]byte("first"), []byte("second")}, channel.Acked("q"))
}

func TestMemChannelRejectsDoubleAck(t *testing.T) {
	channel := NewMemChannel(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, channel.Publish(ctx, "q", []byte("once")))
	deliveries, err := channel.Consume(ctx, "q")
	require.NoError(t, err)

	delivery := <-deliveries
	require.NoError(t, delivery.Ack())
	require.Error(t, delivery.Ack(), "an acknowledged message must not be acknowledgeable again")
}

func TestMemChannelConsumeStopsOnCancel(t *testing.T) {
	channel := NewMemChannel(8)
	ctx, cancel := context.WithCancel(context.Background())

	deliveries, err := channel.Consume(ctx, "q")
	require.NoError(t, err)
	cancel()

	select {
	case _, open := <-deliveries:
		require.False(t, open, "delivery stream must close on cancellation")
	case <-time.After(time.Second):
		t.Fatal("delivery stream did not close")
	}
}
