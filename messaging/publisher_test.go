package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cartline/messaging-go/contracts"
	"github.com/cartline/messaging-go/internal/reliability"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) PublishWithConfirm(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	args := m.Called(ctx, exchange, routingKey, msg)
	return args.Error(0)
}

func fastPolicy(maxRetries int) reliability.RetryPolicy {
	return &reliability.ExponentialBackoff{
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		Multiplier:      1.0,
		MaxAttempts:     maxRetries,
	}
}

func TestNewEventPublisher(t *testing.T) {
	t.Run("creates publisher with defaults", func(t *testing.T) {
		transport := &mockTransport{}
		p := NewEventPublisher(transport)

		assert.Equal(t, DefaultExchange, p.exchange)
		assert.NotNil(t, p.retryPolicy)
		assert.NotNil(t, p.logger)
	})

	t.Run("applies options", func(t *testing.T) {
		transport := &mockTransport{}
		p := NewEventPublisher(transport, WithExchange("shop.events"))

		assert.Equal(t, "shop.events", p.exchange)
	})
}

func TestPublishEvent(t *testing.T) {
	t.Run("publishes persistent JSON with event type as routing key", func(t *testing.T) {
		transport := &mockTransport{}
		transport.On("PublishWithConfirm", mock.Anything, DefaultExchange, "order.created", mock.Anything).Return(nil)

		p := NewEventPublisher(transport)
		env, err := p.PublishEvent(context.Background(), "order.created", map[string]string{"orderId": "o1"})

		require.NoError(t, err)
		transport.AssertExpectations(t)

		assert.NotEmpty(t, env.EventID)
		assert.Equal(t, "order.created", env.EventType)
		assert.Equal(t, 1, env.Version)

		msg := transport.Calls[0].Arguments[3].(amqp.Publishing)
		assert.Equal(t, "application/json", msg.ContentType)
		assert.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)
		assert.Equal(t, env.EventID, msg.MessageId)
		assert.Equal(t, env.CorrelationID, msg.CorrelationId)

		parsed, err := contracts.ParseEnvelope(msg.Body)
		require.NoError(t, err)
		assert.Equal(t, env.EventID, parsed.EventID)
	})

	t.Run("propagates envelope options", func(t *testing.T) {
		transport := &mockTransport{}
		transport.On("PublishWithConfirm", mock.Anything, DefaultExchange, "payment.pending", mock.Anything).Return(nil)

		p := NewEventPublisher(transport)
		env, err := p.PublishEvent(context.Background(), "payment.pending", map[string]string{"orderId": "o1"},
			contracts.WithVersion(3),
			contracts.WithCorrelationID("corr-7"))

		require.NoError(t, err)
		assert.Equal(t, 3, env.Version)
		assert.Equal(t, "corr-7", env.CorrelationID)
	})

	t.Run("retries transient failures and succeeds", func(t *testing.T) {
		transport := &mockTransport{}
		transport.On("PublishWithConfirm", mock.Anything, DefaultExchange, "order.created", mock.Anything).
			Return(errors.New("broker hiccup")).Once()
		transport.On("PublishWithConfirm", mock.Anything, DefaultExchange, "order.created", mock.Anything).
			Return(nil).Once()

		p := NewEventPublisher(transport, WithRetryPolicy(fastPolicy(2)))
		env, err := p.PublishEvent(context.Background(), "order.created", map[string]string{"orderId": "o1"})

		require.NoError(t, err)
		assert.NotNil(t, env)
		transport.AssertNumberOfCalls(t, "PublishWithConfirm", 2)
	})

	t.Run("surfaces the error after exhausting attempts but returns the envelope", func(t *testing.T) {
		transport := &mockTransport{}
		transport.On("PublishWithConfirm", mock.Anything, DefaultExchange, "order.created", mock.Anything).
			Return(errors.New("broker down"))

		p := NewEventPublisher(transport, WithRetryPolicy(fastPolicy(2)))
		env, err := p.PublishEvent(context.Background(), "order.created", map[string]string{"orderId": "o1"})

		require.Error(t, err)
		require.NotNil(t, env)
		assert.NotEmpty(t, env.EventID)
		transport.AssertNumberOfCalls(t, "PublishWithConfirm", 3) // initial + 2 retries
	})

	t.Run("rejects unserializable data without publishing", func(t *testing.T) {
		transport := &mockTransport{}

		p := NewEventPublisher(transport)
		env, err := p.PublishEvent(context.Background(), "order.created", func() {})

		assert.Error(t, err)
		assert.Nil(t, env)
		transport.AssertNotCalled(t, "PublishWithConfirm", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("publish attempts option bounds total attempts", func(t *testing.T) {
		transport := &mockTransport{}
		transport.On("PublishWithConfirm", mock.Anything, DefaultExchange, "order.created", mock.Anything).
			Return(errors.New("broker down"))

		p := NewEventPublisher(transport, WithPublishAttempts(1))
		_, err := p.PublishEvent(context.Background(), "order.created", map[string]string{"orderId": "o1"})

		require.Error(t, err)
		transport.AssertNumberOfCalls(t, "PublishWithConfirm", 1)
	})
}
