package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartline/messaging-go/contracts"
)

type orderPayload struct {
	OrderID  string  `json:"orderId"`
	Subtotal float64 `json:"subtotal"`
}

func (o *orderPayload) Validate() error {
	if o.OrderID == "" {
		return &contracts.ValidationError{Field: "data.orderId", Reason: "required"}
	}
	return nil
}

func newEnvelope(t *testing.T, eventType string, version int, data string) *contracts.Envelope {
	t.Helper()
	return &contracts.Envelope{
		EventID:       "e1",
		EventType:     eventType,
		Version:       version,
		OccurredAt:    "2026-08-29T10:00:00Z",
		CorrelationID: "c1",
		Data:          []byte(data),
	}
}

func TestRegistryDecode(t *testing.T) {
	t.Run("decodes a registered payload", func(t *testing.T) {
		r := NewRegistry()
		RegisterType[orderPayload](r, "order.created", 1)

		env := newEnvelope(t, "order.created", 1, `{"orderId":"o1","subtotal":1500}`)
		decoded, err := r.Decode(env)

		require.NoError(t, err)
		payload := decoded.(*orderPayload)
		assert.Equal(t, "o1", payload.OrderID)
		assert.Equal(t, 1500.0, payload.Subtotal)
	})

	t.Run("unknown type and version is permanent", func(t *testing.T) {
		r := NewRegistry()
		RegisterType[orderPayload](r, "order.created", 1)

		env := newEnvelope(t, "order.created", 2, `{"orderId":"o1"}`)
		_, err := r.Decode(env)

		var unknown *UnknownSchemaError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "order.created", unknown.EventType)
		assert.Equal(t, 2, unknown.Version)
		assert.False(t, unknown.IsRetryable())
	})

	t.Run("payload failing its own validation", func(t *testing.T) {
		r := NewRegistry()
		RegisterType[orderPayload](r, "order.created", 1)

		env := newEnvelope(t, "order.created", 1, `{"subtotal":10}`)
		err := r.Validate(env)

		var verr *contracts.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "data.orderId", verr.Field)
	})

	t.Run("payload not matching the struct shape", func(t *testing.T) {
		r := NewRegistry()
		RegisterType[orderPayload](r, "order.created", 1)

		env := newEnvelope(t, "order.created", 1, `{"orderId":{"nested":true}}`)
		err := r.Validate(env)

		var verr *contracts.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.False(t, verr.IsRetryable())
	})
}

func TestRegistryKnown(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Known("order.created", 1))

	RegisterType[orderPayload](r, "order.created", 1)
	assert.True(t, r.Known("order.created", 1))
	assert.False(t, r.Known("order.created", 2))
}
