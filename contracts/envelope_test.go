package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	t.Run("populates defaults", func(t *testing.T) {
		env, err := NewEnvelope("order.created", map[string]string{"orderId": "o1"})

		require.NoError(t, err)
		assert.NotEmpty(t, env.EventID)
		assert.Equal(t, "order.created", env.EventType)
		assert.Equal(t, 1, env.Version)
		assert.NotEmpty(t, env.CorrelationID)
		assert.JSONEq(t, `{"orderId":"o1"}`, string(env.Data))

		occurred, err := time.Parse(time.RFC3339, env.OccurredAt)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC(), occurred, 5*time.Second)
	})

	t.Run("applies options", func(t *testing.T) {
		env, err := NewEnvelope("order.created", map[string]string{"orderId": "o1"},
			WithVersion(2),
			WithCorrelationID("corr-1"))

		require.NoError(t, err)
		assert.Equal(t, 2, env.Version)
		assert.Equal(t, "corr-1", env.CorrelationID)
	})

	t.Run("empty correlation id option keeps generated one", func(t *testing.T) {
		env, err := NewEnvelope("order.created", map[string]string{"orderId": "o1"},
			WithCorrelationID(""))

		require.NoError(t, err)
		assert.NotEmpty(t, env.CorrelationID)
	})

	t.Run("rejects unmarshalable data", func(t *testing.T) {
		_, err := NewEnvelope("order.created", func() {})
		assert.Error(t, err)
	})

	t.Run("rejects event type without namespace", func(t *testing.T) {
		_, err := NewEnvelope("ordercreated", map[string]string{"a": "b"})

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "eventType", verr.Field)
	})

	t.Run("rejects non-positive version", func(t *testing.T) {
		_, err := NewEnvelope("order.created", map[string]string{"a": "b"}, WithVersion(0))

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "version", verr.Field)
	})
}

func TestEnvelopeWireFormat(t *testing.T) {
	env, err := NewEnvelope("payment.pending", map[string]string{"orderId": "o1"})
	require.NoError(t, err)

	body, err := env.Marshal()
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &fields))

	for _, key := range []string{"eventId", "eventType", "version", "occurredAt", "correlationId", "data"} {
		assert.Contains(t, fields, key)
	}
}

func TestParseEnvelope(t *testing.T) {
	t.Run("round trips", func(t *testing.T) {
		env, err := NewEnvelope("order.created", map[string]string{"orderId": "o1"})
		require.NoError(t, err)

		body, err := env.Marshal()
		require.NoError(t, err)

		parsed, err := ParseEnvelope(body)
		require.NoError(t, err)
		assert.Equal(t, env.EventID, parsed.EventID)
		assert.Equal(t, env.EventType, parsed.EventType)
		assert.Equal(t, env.CorrelationID, parsed.CorrelationID)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		_, err := ParseEnvelope([]byte("not json"))

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.False(t, verr.IsRetryable())
	})

	t.Run("defaults a missing correlation id", func(t *testing.T) {
		body := []byte(`{"eventId":"e1","eventType":"order.created","version":1,` +
			`"occurredAt":"2026-08-29T10:00:00Z","data":{"orderId":"o1"}}`)

		parsed, err := ParseEnvelope(body)
		require.NoError(t, err)
		assert.NotEmpty(t, parsed.CorrelationID)
	})

	t.Run("rejects missing required fields", func(t *testing.T) {
		body := []byte(`{"eventType":"order.created","version":1,` +
			`"occurredAt":"2026-08-29T10:00:00Z","data":{}}`)

		_, err := ParseEnvelope(body)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "eventId", verr.Field)
	})

	t.Run("rejects bad timestamp", func(t *testing.T) {
		body := []byte(`{"eventId":"e1","eventType":"order.created","version":1,` +
			`"occurredAt":"yesterday","correlationId":"c1","data":{}}`)

		_, err := ParseEnvelope(body)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "occurredAt", verr.Field)
	})
}
