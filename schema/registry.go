package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cartline/messaging-go/contracts"
)

// Decoder validates a raw payload and returns the decoded value.
type Decoder func(data json.RawMessage) (interface{}, error)

// Validator is implemented by payload types that carry their own field rules.
type Validator interface {
	Validate() error
}

// UnknownSchemaError reports an envelope whose (eventType, version) pair has
// no registered decoder. Permanent by definition: no amount of redelivery
// teaches this process a schema it does not know.
type UnknownSchemaError struct {
	EventType string
	Version   int
}

func (e *UnknownSchemaError) Error() string {
	return fmt.Sprintf("schema: no decoder registered for %s v%d", e.EventType, e.Version)
}

// IsRetryable marks unknown schemas as non-retryable.
func (e *UnknownSchemaError) IsRetryable() bool {
	return false
}

// Registry holds payload decoders keyed by event type and version.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

// NewRegistry creates an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{
		decoders: make(map[string]Decoder),
	}
}

func key(eventType string, version int) string {
	return fmt.Sprintf("%s@%d", eventType, version)
}

// Register binds a decoder to an event type and version. Registering the same
// pair twice replaces the previous decoder.
func (r *Registry) Register(eventType string, version int, decoder Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[key(eventType, version)] = decoder
}

// RegisterType binds a payload struct type to an event type and version.
// The decoder unmarshals into a fresh T and runs its Validate method when the
// type implements Validator.
func RegisterType[T any](r *Registry, eventType string, version int) {
	r.Register(eventType, version, func(data json.RawMessage) (interface{}, error) {
		var payload T
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, &contracts.ValidationError{
				Field:  "data",
				Reason: fmt.Sprintf("does not match %s v%d schema: %v", eventType, version, err),
			}
		}
		if v, ok := any(&payload).(Validator); ok {
			if err := v.Validate(); err != nil {
				return nil, err
			}
		}
		return &payload, nil
	})
}

// Decode validates an envelope's payload against its registered schema and
// returns the decoded value.
func (r *Registry) Decode(env *contracts.Envelope) (interface{}, error) {
	r.mu.RLock()
	decoder, ok := r.decoders[key(env.EventType, env.Version)]
	r.mu.RUnlock()

	if !ok {
		return nil, &UnknownSchemaError{EventType: env.EventType, Version: env.Version}
	}

	return decoder(env.Data)
}

// Validate checks an envelope's payload against its registered schema,
// discarding the decoded value.
func (r *Registry) Validate(env *contracts.Envelope) error {
	_, err := r.Decode(env)
	return err
}

// Known reports whether a decoder is registered for the pair.
func (r *Registry) Known(eventType string, version int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.decoders[key(eventType, version)]
	return ok
}
