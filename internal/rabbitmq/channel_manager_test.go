package rabbitmq

import (
	"context"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitConfirm(t *testing.T) {
	t.Run("matching ack confirms the publish", func(t *testing.T) {
		confirms := make(chan amqp.Confirmation, 1)
		confirms <- amqp.Confirmation{DeliveryTag: 1, Ack: true}

		assert.NoError(t, awaitConfirm(context.Background(), confirms, 1, time.Second))
	})

	t.Run("stale confirmation from a timed-out publish is not misattributed", func(t *testing.T) {
		// Publish 1 timed out and its late ack is still buffered. Publish 2
		// must wait for its own tag instead of claiming tag 1.
		confirms := make(chan amqp.Confirmation, 2)
		confirms <- amqp.Confirmation{DeliveryTag: 1, Ack: true}
		confirms <- amqp.Confirmation{DeliveryTag: 2, Ack: false}

		err := awaitConfirm(context.Background(), confirms, 2, time.Second)
		require.ErrorIs(t, err, ErrPublishNotConfirmed)
	})

	t.Run("stale confirmation alone still times out", func(t *testing.T) {
		confirms := make(chan amqp.Confirmation, 1)
		confirms <- amqp.Confirmation{DeliveryTag: 1, Ack: true}

		err := awaitConfirm(context.Background(), confirms, 2, 20*time.Millisecond)
		require.ErrorIs(t, err, ErrPublishTimeout)
	})

	t.Run("nack is reported as not confirmed", func(t *testing.T) {
		confirms := make(chan amqp.Confirmation, 1)
		confirms <- amqp.Confirmation{DeliveryTag: 3, Ack: false}

		err := awaitConfirm(context.Background(), confirms, 3, time.Second)
		require.ErrorIs(t, err, ErrPublishNotConfirmed)
	})

	t.Run("no confirmation times out", func(t *testing.T) {
		confirms := make(chan amqp.Confirmation)

		err := awaitConfirm(context.Background(), confirms, 1, 20*time.Millisecond)
		require.ErrorIs(t, err, ErrPublishTimeout)
	})

	t.Run("closed confirm stream means the channel died", func(t *testing.T) {
		confirms := make(chan amqp.Confirmation)
		close(confirms)

		err := awaitConfirm(context.Background(), confirms, 1, time.Second)
		require.ErrorIs(t, err, ErrChannelClosed)
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := awaitConfirm(ctx, make(chan amqp.Confirmation), 1, time.Second)
		require.ErrorIs(t, err, context.Canceled)
	})
}
