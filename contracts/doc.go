// Package contracts defines the event envelope, the only data contract shared
// across service boundaries.
//
// An Envelope wraps a schema-versioned event payload:
//   - EventID: opaque unique identifier for logging and tracing
//   - EventType: dot-namespaced name, doubles as the broker routing key
//   - Version: positive integer schema version of the payload
//   - OccurredAt: UTC timestamp set by the publisher at creation time
//   - CorrelationID: request-scoped identifier propagated across services
//   - Data: the schema-specific payload, opaque at this layer
//
// Envelopes are constructed once by a publisher, serialized to UTF-8 JSON,
// and never mutated afterwards. Retry bookkeeping lives in transport headers,
// outside the envelope, so the original EventID and OccurredAt survive
// redelivery for audit.
package contracts
