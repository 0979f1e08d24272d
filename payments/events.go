package payments

import (
	"math"

	"github.com/cartline/messaging-go/contracts"
	"github.com/cartline/messaging-go/schema"
)

// Event types this service consumes and emits.
const (
	EventOrderCreated       = "order.created"
	EventPaymentPending     = "payment.pending"
	EventPaymentNotRequired = "payment.not_required"
)

// Payment methods carried on order.created.
const (
	MethodOnline = "ONLINE"
	MethodCOD    = "COD"
)

// OrderCreated is the v1 payload of order.created.
type OrderCreated struct {
	OrderID       string  `json:"orderId"`
	UserID        string  `json:"userId"`
	Subtotal      float64 `json:"subtotal"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"paymentMethod"`
}

// Validate implements schema.Validator. Subtotal sanity is checked in the
// handler: a malformed amount is a business-permanent error, not a schema
// violation, and must ack rather than drop-log as unparseable.
func (o *OrderCreated) Validate() error {
	if o.OrderID == "" {
		return &contracts.ValidationError{Field: "data.orderId", Reason: "required"}
	}
	if o.UserID == "" {
		return &contracts.ValidationError{Field: "data.userId", Reason: "required"}
	}
	if o.Currency == "" {
		return &contracts.ValidationError{Field: "data.currency", Reason: "required"}
	}
	if o.PaymentMethod == "" {
		return &contracts.ValidationError{Field: "data.paymentMethod", Reason: "required"}
	}
	return nil
}

// SubtotalValid reports whether the order amount is a usable finite number.
func (o *OrderCreated) SubtotalValid() bool {
	return !math.IsNaN(o.Subtotal) && !math.IsInf(o.Subtotal, 0) && o.Subtotal > 0
}

// PaymentPending is the v1 payload of payment.pending.
type PaymentPending struct {
	PaymentID string  `json:"paymentId"`
	OrderID   string  `json:"orderId"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

// Validate implements schema.Validator.
func (p *PaymentPending) Validate() error {
	if p.PaymentID == "" {
		return &contracts.ValidationError{Field: "data.paymentId", Reason: "required"}
	}
	if p.OrderID == "" {
		return &contracts.ValidationError{Field: "data.orderId", Reason: "required"}
	}
	return nil
}

// PaymentNotRequired is the v1 payload of payment.not_required.
type PaymentNotRequired struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
}

// Validate implements schema.Validator.
func (p *PaymentNotRequired) Validate() error {
	if p.PaymentID == "" {
		return &contracts.ValidationError{Field: "data.paymentId", Reason: "required"}
	}
	if p.OrderID == "" {
		return &contracts.ValidationError{Field: "data.orderId", Reason: "required"}
	}
	return nil
}

// RegisterSchemas registers every payload schema this service touches.
func RegisterSchemas(r *schema.Registry) {
	schema.RegisterType[OrderCreated](r, EventOrderCreated, 1)
	schema.RegisterType[PaymentPending](r, EventPaymentPending, 1)
	schema.RegisterType[PaymentNotRequired](r, EventPaymentNotRequired, 1)
}
