package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cartline/messaging-go/contracts"
	"github.com/cartline/messaging-go/internal/rabbitmq"
	"github.com/cartline/messaging-go/internal/reliability"
)

// DefaultExchange is the shared durable topic exchange for domain events.
const DefaultExchange = "domain.events"

// DefaultPublishAttempts is the total number of publish attempts before the
// error surfaces to the caller.
const DefaultPublishAttempts = 3

// EventPublisher publishes domain events with delivery confirmation and
// retries transient failures with exponential backoff. Publishing with
// confirms plus caller-side retry gives at-least-once delivery without a
// two-phase commit with the relational store; a publish can still fail after
// a database write succeeded, and callers compensate via reconciliation when
// they need stronger consistency.
type EventPublisher struct {
	transport   TransportPublisher
	exchange    string
	retryPolicy reliability.RetryPolicy
	logger      *slog.Logger
}

// PublisherOption configures the EventPublisher.
type PublisherOption func(*EventPublisher)

// WithPublisherLogger sets the logger.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *EventPublisher) {
		p.logger = logger
	}
}

// WithExchange overrides the target exchange.
func WithExchange(exchange string) PublisherOption {
	return func(p *EventPublisher) {
		p.exchange = exchange
	}
}

// WithPublishAttempts sets the total attempt budget.
func WithPublishAttempts(attempts int) PublisherOption {
	return func(p *EventPublisher) {
		if attempts < 1 {
			attempts = 1
		}
		p.retryPolicy = publishBackoff(attempts)
	}
}

// WithRetryPolicy replaces the backoff policy entirely.
func WithRetryPolicy(policy reliability.RetryPolicy) PublisherOption {
	return func(p *EventPublisher) {
		p.retryPolicy = policy
	}
}

func publishBackoff(attempts int) reliability.RetryPolicy {
	return reliability.NewExponentialBackoff(500*time.Millisecond, 10*time.Second, 2.0, attempts-1)
}

// NewEventPublisher creates a publisher over the given transport.
func NewEventPublisher(transport TransportPublisher, options ...PublisherOption) *EventPublisher {
	p := &EventPublisher{
		transport:   transport,
		exchange:    DefaultExchange,
		retryPolicy: publishBackoff(DefaultPublishAttempts),
		logger:      slog.Default(),
	}

	for _, opt := range options {
		opt(p)
	}

	return p
}

// PublishEvent builds an envelope around data and publishes it to the topic
// exchange with the event type as routing key. The message is persistent and
// the call waits for broker confirmation.
//
// The constructed envelope is returned even when publishing fails, so callers
// can log the eventId on failure paths. The error is never swallowed.
func (p *EventPublisher) PublishEvent(ctx context.Context, eventType string, data interface{}, options ...contracts.EnvelopeOption) (*contracts.Envelope, error) {
	env, err := contracts.NewEnvelope(eventType, data, options...)
	if err != nil {
		return nil, err
	}

	body, err := env.Marshal()
	if err != nil {
		return env, err
	}

	msg := rabbitmq.PersistentJSON(body, env.EventID, env.CorrelationID, nil)

	err = reliability.Retry(ctx, p.retryPolicy, func() error {
		return p.transport.PublishWithConfirm(ctx, p.exchange, eventType, msg)
	})
	if err != nil {
		p.logger.Error("failed to publish event",
			"eventType", eventType,
			"eventId", env.EventID,
			"correlationId", env.CorrelationID,
			"exchange", p.exchange,
			"error", err)
		return env, fmt.Errorf("messaging: failed to publish %s event %s: %w", eventType, env.EventID, err)
	}

	p.logger.Debug("event published",
		"eventType", eventType,
		"eventId", env.EventID,
		"correlationId", env.CorrelationID)

	return env, nil
}
