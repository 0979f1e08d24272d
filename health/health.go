// Package health runs periodic liveness checks against the broker and the
// payment store and reports the results through structured logs.
package health

import (
	"context"
	"log/slog"
	"time"
)

// Status is the outcome of a single check.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of one checker run.
type CheckResult struct {
	Name      string
	Status    Status
	Message   string
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// Checker probes one dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// DefaultInterval is how often the monitor re-runs its checks.
const DefaultInterval = 30 * time.Second

// DefaultCheckTimeout bounds a single checker run.
const DefaultCheckTimeout = 5 * time.Second

// Monitor periodically runs a set of checkers and logs each result.
type Monitor struct {
	checkers []Checker
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// MonitorOption configures the Monitor.
type MonitorOption func(*Monitor)

// WithInterval sets the time between check rounds.
func WithInterval(interval time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.interval = interval
	}
}

// WithCheckTimeout bounds each individual check.
func WithCheckTimeout(timeout time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.timeout = timeout
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// NewMonitor creates a monitor over the given checkers.
func NewMonitor(checkers []Checker, options ...MonitorOption) *Monitor {
	m := &Monitor{
		checkers: checkers,
		interval: DefaultInterval,
		timeout:  DefaultCheckTimeout,
		logger:   slog.Default(),
	}

	for _, opt := range options {
		opt(m)
	}

	return m
}

// CheckAll runs every checker once and returns the results.
func (m *Monitor) CheckAll(ctx context.Context) []CheckResult {
	results := make([]CheckResult, 0, len(m.checkers))
	for _, c := range m.checkers {
		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		results = append(results, c.Check(checkCtx))
		cancel()
	}
	return results
}

// Healthy reports whether every result is healthy.
func Healthy(results []CheckResult) bool {
	for _, r := range results {
		if r.Status != StatusHealthy {
			return false
		}
	}
	return true
}

// Run checks once immediately, then re-checks on the configured interval
// until ctx is cancelled. Results are logged; an unhealthy dependency is a
// warning, not a crash, since the consumer loop already reconnects on its
// own. The immediate round surfaces a dead dependency at boot instead of
// one interval later.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logResults(m.CheckAll(ctx))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.logResults(m.CheckAll(ctx))
		}
	}
}

func (m *Monitor) logResults(results []CheckResult) {
	for _, r := range results {
		if r.Status == StatusHealthy {
			m.logger.Debug("health check passed",
				"check", r.Name,
				"durationMs", r.Duration.Milliseconds())
			continue
		}
		m.logger.Warn("health check failed",
			"check", r.Name,
			"status", string(r.Status),
			"message", r.Message,
			"error", r.Error,
			"durationMs", r.Duration.Milliseconds())
	}
}
