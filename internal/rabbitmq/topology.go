package rabbitmq

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultPrefetch bounds how many unacknowledged messages a consumer holds.
const DefaultPrefetch = 10

// Topology describes the durable objects one consuming service depends on:
// the shared topic exchange, its work queue, the bindings for the event types
// it consumes, and the queue's dead-letter companion.
type Topology struct {
	Exchange string
	Queue    string
	Bindings []string
	Prefetch int
}

// DLQ returns the deterministic dead-letter queue name for the work queue.
func (t Topology) DLQ() string {
	return t.Queue + ".dlq"
}

// Declare idempotently establishes the topology on the given channel and
// applies the prefetch limit. The dead-letter queue is created eagerly so
// first-failure escalation never races queue creation.
func (t Topology) Declare(ch Channel) error {
	if err := ch.ExchangeDeclare(t.Exchange, "topic", true, false, false, false, nil); err != nil {
		return &TopologyError{Component: "exchange", Name: t.Exchange, Err: err}
	}

	if _, err := ch.QueueDeclare(t.DLQ(), true, false, false, false, nil); err != nil {
		return &TopologyError{Component: "queue", Name: t.DLQ(), Err: err}
	}

	if _, err := ch.QueueDeclare(t.Queue, true, false, false, false, nil); err != nil {
		return &TopologyError{Component: "queue", Name: t.Queue, Err: err}
	}

	for _, routingKey := range t.Bindings {
		if err := ch.QueueBind(t.Queue, routingKey, t.Exchange, false, nil); err != nil {
			return &TopologyError{Component: "binding", Name: t.Queue + " -> " + routingKey, Err: err}
		}
	}

	prefetch := t.Prefetch
	if prefetch <= 0 {
		prefetch = DefaultPrefetch
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return &TopologyError{Component: "qos", Name: t.Queue, Err: err}
	}

	return nil
}

// PersistentJSON builds a publishing with the wire-contract metadata every
// domain event carries.
func PersistentJSON(body []byte, messageID, correlationID string, headers amqp.Table) amqp.Publishing {
	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     messageID,
		CorrelationId: correlationID,
		Headers:       headers,
		Body:          body,
	}
}
