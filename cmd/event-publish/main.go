// Command event-publish sends a single domain event, for smoke-testing the
// publish path against a running broker:
//
//	event-publish -type order.created -data '{"orderId":"o1","userId":"u1","subtotal":1500,"currency":"LKR","paymentMethod":"ONLINE"}'
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cartline/messaging-go/config"
	"github.com/cartline/messaging-go/contracts"
	"github.com/cartline/messaging-go/internal/rabbitmq"
	"github.com/cartline/messaging-go/messaging"
)

func main() {
	eventType := flag.String("type", "", "event type (routing key), e.g. order.created")
	data := flag.String("data", "", "event payload as a JSON object")
	correlationID := flag.String("correlation-id", "", "optional correlation id to propagate")
	version := flag.Int("version", 1, "payload schema version")
	timeout := flag.Duration("timeout", 30*time.Second, "overall publish timeout")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *eventType == "" || *data == "" {
		fmt.Fprintln(os.Stderr, "both -type and -data are required")
		flag.Usage()
		os.Exit(2)
	}

	var payload json.RawMessage
	if err := json.Unmarshal([]byte(*data), &payload); err != nil {
		fmt.Fprintf(os.Stderr, "-data is not valid JSON: %v\n", err)
		os.Exit(2)
	}

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	manager := rabbitmq.NewChannelManager(cfg.BrokerURL, cfg.Exchange,
		rabbitmq.WithLogger(logger),
		rabbitmq.WithEnvironment(cfg.AppEnv))
	defer manager.Close()

	publisher := messaging.NewEventPublisher(manager,
		messaging.WithExchange(cfg.Exchange),
		messaging.WithPublishAttempts(cfg.PublishAttempts),
		messaging.WithPublisherLogger(logger))

	env, err := publisher.PublishEvent(ctx, *eventType, payload,
		contracts.WithVersion(*version),
		contracts.WithCorrelationID(*correlationID))
	if err != nil {
		logger.Error("publish failed", "error", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(env, "", "  ")
	fmt.Println(string(out))
}
