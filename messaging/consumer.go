package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cartline/messaging-go/contracts"
	"github.com/cartline/messaging-go/internal/rabbitmq"
	"github.com/cartline/messaging-go/internal/reliability"
	"github.com/cartline/messaging-go/schema"
)

// DefaultMaxRetries is the retry budget before a message is declared poison.
const DefaultMaxRetries = 5

// State is the consumer loop's lifecycle phase.
type State int32

const (
	StateConnecting State = iota
	StateBound
	StateConsuming
	StateChannelClosed
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateBound:
		return "bound"
	case StateConsuming:
		return "consuming"
	case StateChannelClosed:
		return "channel-closed"
	case StateShuttingDown:
		return "shutting-down"
	default:
		return "unknown"
	}
}

// ConsumerLoop consumes a service's work queue and dispatches each validated
// envelope to its registered handler. Handler failures run through the
// retry/dead-letter policy; channel loss sends the loop back to connecting.
type ConsumerLoop struct {
	transport  Transport
	topology   rabbitmq.Topology
	dispatcher *Dispatcher
	registry   *schema.Registry

	maxRetries     int
	connectBackoff reliability.RetryPolicy
	retryBackoff   reliability.RetryPolicy
	consumerTag    string
	logger         *slog.Logger

	state atomic.Int32
}

// ConsumerOption configures the ConsumerLoop.
type ConsumerOption func(*ConsumerLoop)

// WithConsumerLogger sets the logger.
func WithConsumerLogger(logger *slog.Logger) ConsumerOption {
	return func(l *ConsumerLoop) {
		l.logger = logger
	}
}

// WithMaxRetries sets the retry budget before dead-lettering.
func WithMaxRetries(maxRetries int) ConsumerOption {
	return func(l *ConsumerLoop) {
		l.maxRetries = maxRetries
	}
}

// WithConsumerTag overrides the generated consumer tag.
func WithConsumerTag(tag string) ConsumerOption {
	return func(l *ConsumerLoop) {
		l.consumerTag = tag
	}
}

// WithConnectBackoff replaces the reconnect backoff policy.
func WithConnectBackoff(policy reliability.RetryPolicy) ConsumerOption {
	return func(l *ConsumerLoop) {
		l.connectBackoff = policy
	}
}

// WithRetryBackoff replaces the per-message retry backoff policy.
func WithRetryBackoff(policy reliability.RetryPolicy) ConsumerOption {
	return func(l *ConsumerLoop) {
		l.retryBackoff = policy
	}
}

// NewConsumerLoop creates a consumer loop for the given topology. The
// dispatcher decides which handler runs per event type; the registry
// validates payloads before any handler sees them.
func NewConsumerLoop(transport Transport, topology rabbitmq.Topology, dispatcher *Dispatcher, registry *schema.Registry, options ...ConsumerOption) *ConsumerLoop {
	l := &ConsumerLoop{
		transport:  transport,
		topology:   topology,
		dispatcher: dispatcher,
		registry:   registry,
		maxRetries: DefaultMaxRetries,
		// Reconnect: 500ms doubling to 30s. Message retry: 250ms doubling to 5s.
		// MaxAttempts is irrelevant here, only NextDelay is consulted.
		connectBackoff: &reliability.ExponentialBackoff{InitialInterval: 500 * time.Millisecond, MaxInterval: 30 * time.Second, Multiplier: 2.0, Jitter: true},
		retryBackoff:   &reliability.ExponentialBackoff{InitialInterval: 250 * time.Millisecond, MaxInterval: 5 * time.Second, Multiplier: 2.0, Jitter: true},
		consumerTag:    fmt.Sprintf("%s-%d", topology.Queue, time.Now().UnixNano()),
		logger:         slog.Default(),
	}

	for _, opt := range options {
		opt(l)
	}

	return l
}

// State returns the loop's current lifecycle phase.
func (l *ConsumerLoop) State() State {
	return State(l.state.Load())
}

func (l *ConsumerLoop) setState(s State) {
	l.state.Store(int32(s))
}

// Run drives the loop until ctx is cancelled. Connection failures are retried
// indefinitely with backoff; a lost channel rebuilds topology and resumes.
// Run only returns on shutdown.
func (l *ConsumerLoop) Run(ctx context.Context) error {
	attempt := 0

	for {
		if ctx.Err() != nil {
			l.setState(StateShuttingDown)
			return nil
		}

		l.setState(StateConnecting)
		ch, err := l.transport.Channel(ctx)
		if err != nil {
			l.logger.Warn("broker unavailable, retrying",
				"queue", l.topology.Queue,
				"attempt", attempt+1,
				"error", err)
			if reliability.Sleep(ctx, l.connectBackoff, attempt) != nil {
				l.setState(StateShuttingDown)
				return nil
			}
			attempt++
			continue
		}

		l.setState(StateBound)
		if err := l.topology.Declare(ch); err != nil {
			l.logger.Error("topology declaration failed",
				"queue", l.topology.Queue,
				"error", err)
			l.transport.Reset()
			if reliability.Sleep(ctx, l.connectBackoff, attempt) != nil {
				l.setState(StateShuttingDown)
				return nil
			}
			attempt++
			continue
		}

		deliveries, err := ch.Consume(l.topology.Queue, l.consumerTag, false, false, false, false, nil)
		if err != nil {
			l.logger.Error("failed to start consuming",
				"queue", l.topology.Queue,
				"error", err)
			l.transport.Reset()
			if reliability.Sleep(ctx, l.connectBackoff, attempt) != nil {
				l.setState(StateShuttingDown)
				return nil
			}
			attempt++
			continue
		}

		attempt = 0
		closed := ch.NotifyClose(make(chan *amqp.Error, 1))

		l.setState(StateConsuming)
		l.logger.Info("consuming",
			"queue", l.topology.Queue,
			"bindings", l.topology.Bindings,
			"prefetch", l.topology.Prefetch,
			"consumerTag", l.consumerTag)

		if !l.consume(ctx, ch, deliveries, closed) {
			l.setState(StateShuttingDown)
			l.logger.Info("consumer loop stopped", "queue", l.topology.Queue)
			return nil
		}

		// Self-healing path: rebuild topology and resume on a fresh channel.
		l.setState(StateChannelClosed)
		l.transport.Reset()
	}
}

// consume processes deliveries until shutdown (returns false) or channel loss
// (returns true). Each delivery is handled in its own goroutine so one
// message's retry backoff cannot stall the ones queued behind it; the
// prefetch window bounds how many run at once, because the broker stops
// delivering while that many messages are unacked.
func (l *ConsumerLoop) consume(ctx context.Context, ch rabbitmq.Channel, deliveries <-chan amqp.Delivery, closed <-chan *amqp.Error) bool {
	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		select {
		case <-ctx.Done():
			if err := ch.Cancel(l.consumerTag, false); err != nil {
				l.logger.Warn("failed to cancel consumer registration",
					"consumerTag", l.consumerTag,
					"error", err)
			}
			return false

		case reason := <-closed:
			l.logger.Warn("channel closed, reconnecting",
				"queue", l.topology.Queue,
				"reason", reason)
			return true

		case d, ok := <-deliveries:
			if !ok {
				l.logger.Warn("delivery stream closed, reconnecting",
					"queue", l.topology.Queue)
				return true
			}
			inflight.Add(1)
			go func(d amqp.Delivery) {
				defer inflight.Done()
				l.handleDelivery(ctx, d)
			}(d)
		}
	}
}

// handleDelivery runs one message through validation, dispatch, and the
// ack/retry/dead-letter decision.
func (l *ConsumerLoop) handleDelivery(ctx context.Context, d amqp.Delivery) {
	env, err := contracts.ParseEnvelope(d.Body)
	if err != nil {
		// Structurally invalid messages can never succeed on redelivery.
		l.logger.Error("dropping unparseable message",
			"queue", l.topology.Queue,
			"messageId", d.MessageId,
			"error", err)
		l.ack(d)
		return
	}

	if err := l.registry.Validate(env); err != nil {
		l.logger.Error("dropping message with invalid payload",
			"eventType", env.EventType,
			"version", env.Version,
			"eventId", env.EventID,
			"correlationId", env.CorrelationID,
			"error", err)
		l.ack(d)
		return
	}

	handler, ok := l.dispatcher.Lookup(env.EventType)
	if !ok {
		l.logger.Error("dropping message with no registered handler",
			"eventType", env.EventType,
			"eventId", env.EventID,
			"correlationId", env.CorrelationID)
		l.ack(d)
		return
	}

	err = handler.Handle(ctx, env)
	if err == nil {
		l.ack(d)
		l.logger.Debug("event processed",
			"eventType", env.EventType,
			"eventId", env.EventID,
			"correlationId", env.CorrelationID)
		return
	}

	if ctx.Err() != nil {
		// Shutdown began while this message was in flight: requeue so the
		// work is redelivered rather than lost.
		l.nack(d, true)
		return
	}

	l.retryOrDeadLetter(ctx, d, env, err)
}

// retryOrDeadLetter applies the retry policy to a failed delivery. Under the
// budget, the same payload is republished directly to the work queue with an
// incremented retry count; over it, the message is poison and goes to the
// dead-letter queue. Either way the original delivery is acknowledged once
// the republish is confirmed, so the broker does not double-count it. If the
// republish itself fails, the original is requeued instead: correctness over
// precision under partial failure.
func (l *ConsumerLoop) retryOrDeadLetter(ctx context.Context, d amqp.Delivery, env *contracts.Envelope, cause error) {
	rc := RetryContextFrom(d)

	if rc.Count >= l.maxRetries {
		l.logger.Error("poison message, escalating to dead-letter queue",
			"eventType", env.EventType,
			"eventId", env.EventID,
			"correlationId", env.CorrelationID,
			"retryCount", rc.Count,
			"dlq", l.topology.DLQ(),
			"error", cause)

		msg := rabbitmq.PersistentJSON(d.Body, env.EventID, env.CorrelationID, rc.DLQHeaders(DLQReasonPoison))
		if err := l.transport.PublishWithConfirm(ctx, "", l.topology.DLQ(), msg); err != nil {
			l.logger.Error("dead-letter publish failed, requeueing original",
				"eventId", env.EventID,
				"error", err)
			l.nack(d, true)
			return
		}
		l.ack(d)
		return
	}

	next := rc.Next()
	l.logger.Warn("handler failed, scheduling retry",
		"eventType", env.EventType,
		"eventId", env.EventID,
		"correlationId", env.CorrelationID,
		"retryCount", next.Count,
		"maxRetries", l.maxRetries,
		"error", cause)

	// Space retries out before republishing; delay grows with the retry count.
	if reliability.Sleep(ctx, l.retryBackoff, rc.Count) != nil {
		l.nack(d, true)
		return
	}

	msg := rabbitmq.PersistentJSON(d.Body, env.EventID, env.CorrelationID, next.Headers())
	if err := l.transport.PublishWithConfirm(ctx, "", l.topology.Queue, msg); err != nil {
		l.logger.Error("retry republish failed, requeueing original",
			"eventId", env.EventID,
			"retryCount", next.Count,
			"error", err)
		l.nack(d, true)
		return
	}
	l.ack(d)
}

func (l *ConsumerLoop) ack(d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		l.logger.Error("failed to ack message",
			"deliveryTag", d.DeliveryTag,
			"error", err)
	}
}

func (l *ConsumerLoop) nack(d amqp.Delivery, requeue bool) {
	if err := d.Nack(false, requeue); err != nil {
		l.logger.Error("failed to nack message",
			"deliveryTag", d.DeliveryTag,
			"requeue", requeue,
			"error", err)
	}
}
