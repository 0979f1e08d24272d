package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cartline/messaging-go/contracts"
)

// EventEmitter publishes derived events. Satisfied by messaging.EventPublisher.
type EventEmitter interface {
	PublishEvent(ctx context.Context, eventType string, data interface{}, options ...contracts.EnvelopeOption) (*contracts.Envelope, error)
}

// OrderCreatedHandler ensures a payment record exists for every created
// order. ONLINE orders get a PENDING payment and a payment.pending event;
// anything else gets a NOT_REQUIRED payment and payment.not_required.
type OrderCreatedHandler struct {
	store   Store
	emitter EventEmitter
	logger  *slog.Logger
}

// HandlerOption configures the OrderCreatedHandler.
type HandlerOption func(*OrderCreatedHandler)

// WithHandlerLogger sets the logger.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *OrderCreatedHandler) {
		h.logger = logger
	}
}

// NewOrderCreatedHandler creates the handler.
func NewOrderCreatedHandler(store Store, emitter EventEmitter, options ...HandlerOption) *OrderCreatedHandler {
	h := &OrderCreatedHandler{
		store:   store,
		emitter: emitter,
		logger:  slog.Default(),
	}

	for _, opt := range options {
		opt(h)
	}

	return h
}

// Handle processes one order.created envelope. Returning nil acknowledges
// the message; only transient store failures return an error, which the
// consumer loop routes through its retry policy.
func (h *OrderCreatedHandler) Handle(ctx context.Context, env *contracts.Envelope) error {
	var order OrderCreated
	if err := json.Unmarshal(env.Data, &order); err != nil {
		// Schema validation runs before dispatch, so this cannot normally
		// happen; drop rather than retry forever if it does.
		h.logger.Error("undecodable order.created payload, dropping",
			"eventId", env.EventID,
			"correlationId", env.CorrelationID,
			"error", err)
		return nil
	}

	if !order.SubtotalValid() {
		// A malformed upstream amount is permanent: retrying cannot fix it.
		h.logger.Error("order.created with unusable subtotal, dropping",
			"orderId", order.OrderID,
			"subtotal", order.Subtotal,
			"eventId", env.EventID,
			"correlationId", env.CorrelationID)
		return nil
	}

	status := StatusNotRequired
	derivedEvent := EventPaymentNotRequired
	if order.PaymentMethod == MethodOnline {
		status = StatusPending
		derivedEvent = EventPaymentPending
	}

	payment := Payment{
		ID:        uuid.NewString(),
		OrderID:   order.OrderID,
		UserID:    order.UserID,
		Amount:    order.Subtotal,
		Currency:  order.Currency,
		Method:    order.PaymentMethod,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}

	err := h.store.Insert(ctx, payment)
	if errors.Is(err, ErrDuplicateOrder) {
		// Redelivery of an event already processed: the row exists and the
		// derived event was already attempted, so just acknowledge.
		h.logger.Info("payment already exists for order, skipping",
			"orderId", order.OrderID,
			"eventId", env.EventID,
			"correlationId", env.CorrelationID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("payments: failed to persist payment for order %s: %w", order.OrderID, err)
	}

	h.logger.Info("payment created",
		"paymentId", payment.ID,
		"orderId", order.OrderID,
		"status", status,
		"correlationId", env.CorrelationID)

	h.emitDerived(ctx, env, payment, derivedEvent)
	return nil
}

// emitDerived publishes the downstream payment event. Best-effort: the
// persisted row is the source of truth, so a publish failure is logged but
// does not fail the inbound message. Retrying order.created would re-hit the
// duplicate guard and attempt the same publish again anyway.
func (h *OrderCreatedHandler) emitDerived(ctx context.Context, env *contracts.Envelope, payment Payment, eventType string) {
	var data interface{}
	switch eventType {
	case EventPaymentPending:
		data = PaymentPending{
			PaymentID: payment.ID,
			OrderID:   payment.OrderID,
			Amount:    payment.Amount,
			Currency:  payment.Currency,
		}
	default:
		data = PaymentNotRequired{
			PaymentID: payment.ID,
			OrderID:   payment.OrderID,
		}
	}

	if _, err := h.emitter.PublishEvent(ctx, eventType, data, contracts.WithCorrelationID(env.CorrelationID)); err != nil {
		h.logger.Error("failed to publish derived payment event",
			"eventType", eventType,
			"orderId", payment.OrderID,
			"paymentId", payment.ID,
			"correlationId", env.CorrelationID,
			"error", err)
	}
}
