// Package payments is the worked example of an idempotent event consumer:
// on order.created it ensures a payment record exists and emits the derived
// payment event. Redelivery is safe because the store rejects a second
// payment for the same order as a duplicate, and a duplicate never emits a
// second downstream event.
package payments
