package messaging

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cartline/messaging-go/internal/rabbitmq"
)

// TransportPublisher publishes one message and waits for the broker's
// acknowledgment when publisher confirms are available.
type TransportPublisher interface {
	PublishWithConfirm(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
}

// Transport is the full broker surface the consumer loop needs: channel
// acquisition, confirmed republishing for the retry policy, and a reset hook
// that discards broken handles so the next acquisition reconnects.
type Transport interface {
	TransportPublisher

	// Channel returns the shared channel, connecting lazily if needed.
	Channel(ctx context.Context) (rabbitmq.Channel, error)

	// Reset discards cached connection state after a channel-level failure.
	Reset()
}
