package contracts

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContentType is the MIME type of every serialized envelope.
const ContentType = "application/json"

// Envelope wraps an event payload for transport.
type Envelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	Version       int             `json:"version"`
	OccurredAt    string          `json:"occurredAt"`
	CorrelationID string          `json:"correlationId"`
	Data          json.RawMessage `json:"data"`
}

// EnvelopeOption configures envelope construction.
type EnvelopeOption func(*Envelope)

// WithVersion sets the payload schema version.
func WithVersion(version int) EnvelopeOption {
	return func(e *Envelope) {
		e.Version = version
	}
}

// WithCorrelationID propagates an existing correlation identifier instead of
// generating a fresh one.
func WithCorrelationID(correlationID string) EnvelopeOption {
	return func(e *Envelope) {
		if correlationID != "" {
			e.CorrelationID = correlationID
		}
	}
}

// NewEnvelope builds an envelope around data, which is marshaled to JSON.
// EventID and CorrelationID are generated, OccurredAt is set to now (UTC),
// and Version defaults to 1.
func NewEnvelope(eventType string, data interface{}, options ...EnvelopeOption) (*Envelope, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("contracts: failed to marshal event data: %w", err)
	}

	e := &Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Version:       1,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
		CorrelationID: uuid.NewString(),
		Data:          body,
	}

	for _, opt := range options {
		opt(e)
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}

	return e, nil
}

// ParseEnvelope deserializes and validates an envelope from wire bytes.
// A consumer that receives an envelope without a correlation identifier
// defaults one so downstream emissions stay traceable.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, &ValidationError{Field: "body", Reason: fmt.Sprintf("not valid JSON: %v", err)}
	}

	if e.CorrelationID == "" {
		e.CorrelationID = uuid.NewString()
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}

	return &e, nil
}

// Validate checks the envelope invariants. All fields are required.
func (e *Envelope) Validate() error {
	if e.EventID == "" {
		return &ValidationError{Field: "eventId", Reason: "required"}
	}
	if e.EventType == "" {
		return &ValidationError{Field: "eventType", Reason: "required"}
	}
	if !strings.Contains(e.EventType, ".") {
		return &ValidationError{Field: "eventType", Reason: "must be dot-namespaced, e.g. order.created"}
	}
	if e.Version < 1 {
		return &ValidationError{Field: "version", Reason: "must be a positive integer"}
	}
	if e.OccurredAt == "" {
		return &ValidationError{Field: "occurredAt", Reason: "required"}
	}
	if _, err := time.Parse(time.RFC3339, e.OccurredAt); err != nil {
		return &ValidationError{Field: "occurredAt", Reason: "must be an RFC 3339 timestamp"}
	}
	if e.CorrelationID == "" {
		return &ValidationError{Field: "correlationId", Reason: "required"}
	}
	if len(e.Data) == 0 {
		return &ValidationError{Field: "data", Reason: "required"}
	}
	return nil
}

// Marshal serializes the envelope to its wire representation.
func (e *Envelope) Marshal() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("contracts: failed to marshal envelope %s: %w", e.EventID, err)
	}
	return body, nil
}
