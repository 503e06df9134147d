package retry

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"time"

	"openstocks/pkg/errors"
)

// Strategy defines the retry strategy
type Strategy string

const (
	// StrategyExponential uses exponential backoff
	StrategyExponential Strategy = "exponential"
	// StrategyLinear uses linear backoff
	StrategyLinear Strategy = "linear"
	// StrategyFixed uses fixed delay
	StrategyFixed Strategy = "fixed"
)

// Config contains retry configuration
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Strategy     Strategy
	Multiplier   float64 // For exponential backoff
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Strategy:     StrategyExponential,
		Multiplier:   2.0,
	}
}

// Middleware provides retry functionality with backoff for broker HTTP calls
type Middleware struct {
	config Config
}

// New creates a new retry middleware
func New(config Config) *Middleware {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.Strategy == "" {
		config.Strategy = StrategyExponential
	}

	return &Middleware{config: config}
}

// Do executes the function with retry logic
func (m *Middleware) Do(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= m.config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !isRetryableError(err) {
			return err
		}

		// Don't sleep after last attempt
		if attempt == m.config.MaxRetries {
			break
		}

		delay := m.calculateDelay(attempt)

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "retry cancelled")
		case <-time.After(delay):
		}
	}

	return errors.NewDomainError("MAX_RETRIES",
		fmt.Sprintf("max retries (%d) exceeded", m.config.MaxRetries), lastErr)
}

// calculateDelay calculates the backoff delay based on the strategy
func (m *Middleware) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch m.config.Strategy {
	case StrategyExponential:
		delay = time.Duration(float64(m.config.InitialDelay) * math.Pow(m.config.Multiplier, float64(attempt)))
	case StrategyLinear:
		delay = m.config.InitialDelay * time.Duration(1+attempt)
	case StrategyFixed:
		delay = m.config.InitialDelay
	default:
		delay = m.config.InitialDelay
	}

	if delay > m.config.MaxDelay {
		delay = m.config.MaxDelay
	}

	return delay
}

// isRetryableError determines if an error is worth retrying
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Network errors are generally retryable
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	// HTTP status codes that are retryable
	var httpErr interface{ StatusCode() int }
	if errors.As(err, &httpErr) {
		code := httpErr.StatusCode()
		return code == http.StatusTooManyRequests ||
			code == http.StatusRequestTimeout ||
			code >= 500
	}

	return false
}
