// Command payment-worker consumes order.created events and maintains payment
// records, emitting payment.pending or payment.not_required downstream.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartline/messaging-go/config"
	"github.com/cartline/messaging-go/health"
	"github.com/cartline/messaging-go/internal/rabbitmq"
	"github.com/cartline/messaging-go/messaging"
	"github.com/cartline/messaging-go/payments"
	"github.com/cartline/messaging-go/schema"
)

const defaultQueue = "payment-service.q"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	queue := cfg.ServiceQueue
	if queue == "" {
		queue = defaultQueue
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store payments.Store
	var checkers []health.Checker
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := payments.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to ensure database schema", "error", err)
			os.Exit(1)
		}
		store = payments.NewPostgresStore(pool)
		checkers = append(checkers, health.NewDatabaseChecker(pool))
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory payment store")
		store = payments.NewMemoryStore()
	}

	manager := rabbitmq.NewChannelManager(cfg.BrokerURL, cfg.Exchange,
		rabbitmq.WithLogger(logger),
		rabbitmq.WithEnvironment(cfg.AppEnv))
	defer manager.Close()

	publisher := messaging.NewEventPublisher(manager,
		messaging.WithExchange(cfg.Exchange),
		messaging.WithPublishAttempts(cfg.PublishAttempts),
		messaging.WithPublisherLogger(logger))

	registry := schema.NewRegistry()
	payments.RegisterSchemas(registry)

	dispatcher := messaging.NewDispatcher(messaging.WithDispatcherLogger(logger))
	handler := payments.NewOrderCreatedHandler(store, publisher, payments.WithHandlerLogger(logger))
	if err := dispatcher.Register(payments.EventOrderCreated, handler); err != nil {
		logger.Error("failed to register handler", "error", err)
		os.Exit(1)
	}

	topology := rabbitmq.Topology{
		Exchange: cfg.Exchange,
		Queue:    queue,
		Bindings: dispatcher.EventTypes(),
		Prefetch: cfg.PrefetchCount,
	}

	loop := messaging.NewConsumerLoop(manager, topology, dispatcher, registry,
		messaging.WithConsumerLogger(logger),
		messaging.WithMaxRetries(cfg.MaxRetries))

	checkers = append(checkers, health.NewBrokerChecker(manager, cfg.Exchange))
	monitor := health.NewMonitor(checkers, health.WithLogger(logger))
	go monitor.Run(ctx)

	logger.Info("payment worker starting",
		"queue", queue,
		"exchange", cfg.Exchange,
		"broker", rabbitmq.SanitizeURL(cfg.BrokerURL))

	if err := loop.Run(ctx); err != nil {
		logger.Error("consumer loop failed", "error", err)
		os.Exit(1)
	}
}
