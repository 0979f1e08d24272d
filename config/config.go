// Package config loads the messaging core's tunables from the environment.
// Every knob has a safe default so a service boots with zero configuration
// in development.
package config

import (
	"github.com/cartline/messaging-go/internal/rabbitmq"
	"github.com/cartline/messaging-go/messaging"
)

// Config holds the environment-level knobs of the messaging core.
type Config struct {
	AppEnv          string
	BrokerURL       string
	Exchange        string
	ServiceQueue    string
	DatabaseURL     string
	PublishAttempts int
	MaxRetries      int
	PrefetchCount   int
}

// Load reads configuration from the environment, falling back to the
// documented defaults.
func Load() Config {
	return Config{
		AppEnv:          String("APP_ENV", "dev"),
		BrokerURL:       String("BROKER_URL", rabbitmq.DefaultURL),
		Exchange:        String("EVENT_EXCHANGE", messaging.DefaultExchange),
		ServiceQueue:    String("SERVICE_QUEUE", ""),
		DatabaseURL:     String("DATABASE_URL", ""),
		PublishAttempts: Int("PUBLISH_ATTEMPTS", messaging.DefaultPublishAttempts),
		MaxRetries:      Int("CONSUMER_MAX_RETRIES", messaging.DefaultMaxRetries),
		PrefetchCount:   Int("PREFETCH_COUNT", rabbitmq.DefaultPrefetch),
	}
}
