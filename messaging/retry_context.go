package messaging

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// Transport-level retry metadata headers. These travel outside the envelope
// so the original eventId and occurredAt survive redelivery for audit.
const (
	HeaderRetryCount         = "x-retry-count"
	HeaderOriginalExchange   = "x-original-exchange"
	HeaderOriginalRoutingKey = "x-original-routing-key"
	HeaderDLQReason          = "dlq-reason"

	// DLQReasonPoison marks a message that exhausted its retry budget.
	DLQReasonPoison = "poison-message"
)

// RetryContext carries a delivery's retry bookkeeping: how often it has been
// retried and where it was originally routed. Provenance matters once a
// message is requeued directly or dead-lettered, because the redelivered
// copy no longer shows the exchange and routing key of the first publish.
type RetryContext struct {
	Count              int
	OriginalExchange   string
	OriginalRoutingKey string
}

// RetryContextFrom reads the retry metadata off a delivery. A missing count
// defaults to zero; provenance falls back to the delivery's own routing,
// which is correct on the first failure.
func RetryContextFrom(d amqp.Delivery) RetryContext {
	rc := RetryContext{
		Count:              headerInt(d.Headers, HeaderRetryCount),
		OriginalExchange:   headerString(d.Headers, HeaderOriginalExchange),
		OriginalRoutingKey: headerString(d.Headers, HeaderOriginalRoutingKey),
	}

	if rc.OriginalRoutingKey == "" {
		rc.OriginalExchange = d.Exchange
		rc.OriginalRoutingKey = d.RoutingKey
	}

	return rc
}

// Next returns the context for the following retry attempt.
func (rc RetryContext) Next() RetryContext {
	rc.Count++
	return rc
}

// Headers renders the context as transport headers for republishing.
func (rc RetryContext) Headers() amqp.Table {
	return amqp.Table{
		HeaderRetryCount:         int32(rc.Count),
		HeaderOriginalExchange:   rc.OriginalExchange,
		HeaderOriginalRoutingKey: rc.OriginalRoutingKey,
	}
}

// DLQHeaders renders the context plus the dead-letter reason.
func (rc RetryContext) DLQHeaders(reason string) amqp.Table {
	headers := rc.Headers()
	headers[HeaderDLQReason] = reason
	return headers
}

func headerString(headers amqp.Table, key string) string {
	if headers == nil {
		return ""
	}
	if v, ok := headers[key].(string); ok {
		return v
	}
	return ""
}

func headerInt(headers amqp.Table, key string) int {
	if headers == nil {
		return 0
	}
	switch v := headers[key].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
