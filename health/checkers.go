package health

import (
	"context"
	"fmt"
	"time"

	"github.com/cartline/messaging-go/internal/rabbitmq"
)

// ChannelSource yields a live broker channel, connecting lazily if needed.
// Satisfied by rabbitmq.ChannelManager.
type ChannelSource interface {
	Channel(ctx context.Context) (rabbitmq.Channel, error)
}

// BrokerChecker verifies the broker connection by acquiring a channel and
// re-declaring the durable event exchange. The redeclaration is idempotent,
// so it doubles as a round-trip liveness probe.
type BrokerChecker struct {
	source   ChannelSource
	exchange string
}

// NewBrokerChecker creates a broker checker for the given exchange.
func NewBrokerChecker(source ChannelSource, exchange string) *BrokerChecker {
	return &BrokerChecker{
		source:   source,
		exchange: exchange,
	}
}

func (c *BrokerChecker) Name() string {
	return "broker"
}

func (c *BrokerChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
	}

	ch, err := c.source.Channel(ctx)
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = "failed to acquire channel"
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result
	}

	if err := ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		result.Status = StatusDegraded
		result.Message = fmt.Sprintf("exchange %s probe failed", c.exchange)
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result
	}

	result.Status = StatusHealthy
	result.Message = "broker reachable"
	result.Duration = time.Since(start)
	return result
}

// Pinger is the slice of a connection pool the database checker needs.
// Satisfied by pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseChecker verifies the payment store's database connection.
type DatabaseChecker struct {
	pool Pinger
}

// NewDatabaseChecker creates a database checker over a connection pool.
func NewDatabaseChecker(pool Pinger) *DatabaseChecker {
	return &DatabaseChecker{pool: pool}
}

func (c *DatabaseChecker) Name() string {
	return "database"
}

func (c *DatabaseChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
	}

	if err := c.pool.Ping(ctx); err != nil {
		result.Status = StatusUnhealthy
		result.Message = "database unreachable"
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result
	}

	result.Status = StatusHealthy
	result.Message = "database reachable"
	result.Duration = time.Since(start)
	return result
}
