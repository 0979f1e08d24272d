package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cartline/messaging-go/contracts"
)

// EventHandler processes a validated envelope. Handlers must be idempotent:
// at-least-once delivery means the same logical event can arrive more than
// once. Returning nil acknowledges the message; any error is treated as a
// retryable failure by the consumer loop.
type EventHandler interface {
	Handle(ctx context.Context, env *contracts.Envelope) error
}

// EventHandlerFunc is a function adapter for EventHandler.
type EventHandlerFunc func(ctx context.Context, env *contracts.Envelope) error

// Handle implements EventHandler.
func (f EventHandlerFunc) Handle(ctx context.Context, env *contracts.Envelope) error {
	return f(ctx, env)
}

// Dispatcher routes envelopes to the handler registered for their event type.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]EventHandler
	logger   *slog.Logger
}

// DispatcherOption configures the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(options ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string]EventHandler),
		logger:   slog.Default(),
	}

	for _, opt := range options {
		opt(d)
	}

	return d
}

// Register binds a handler to an event type. One handler per event type.
func (d *Dispatcher) Register(eventType string, handler EventHandler) error {
	if eventType == "" {
		return fmt.Errorf("messaging: event type cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("messaging: handler cannot be nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.handlers[eventType]; exists {
		return fmt.Errorf("messaging: handler already registered for %s", eventType)
	}

	d.handlers[eventType] = handler
	d.logger.Info("registered event handler", "eventType", eventType)
	return nil
}

// RegisterFunc binds a handler function to an event type.
func (d *Dispatcher) RegisterFunc(eventType string, handler EventHandlerFunc) error {
	return d.Register(eventType, handler)
}

// Lookup returns the handler for an event type.
func (d *Dispatcher) Lookup(eventType string) (EventHandler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	handler, ok := d.handlers[eventType]
	return handler, ok
}

// EventTypes returns the event types with a registered handler; these are the
// routing keys a consuming service binds its queue to.
func (d *Dispatcher) EventTypes() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	types := make([]string, 0, len(d.handlers))
	for eventType := range d.handlers {
		types = append(types, eventType)
	}
	return types
}
