package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"openstocks/pkg/errors"
)

// Limiter provides rate limiting functionality for broker API calls
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// NewLimiter creates a new rate limiter
// requestsPerMinute: maximum number of requests allowed per minute
func NewLimiter(name string, requestsPerMinute int) *Limiter {
	rps := float64(requestsPerMinute) / 60.0

	// Allow burst of 10% of per-minute limit
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    name,
	}
}

// Wait blocks until the rate limiter allows the request
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter %s: %w: %w", l.name, errors.ErrRateLimitExceeded, err)
	}
	return nil
}

// Allow checks if a request is allowed without blocking
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// MultiLimiter manages multiple rate limiters (per endpoint, global, etc.)
type MultiLimiter struct {
	limiters map[string]*Limiter
	mu       sync.RWMutex
}

// NewMultiLimiter creates a new multi-limiter
func NewMultiLimiter() *MultiLimiter {
	return &MultiLimiter{
		limiters: make(map[string]*Limiter),
	}
}

// AddLimiter adds a rate limiter for a specific key
func (m *MultiLimiter) AddLimiter(key string, limiter *Limiter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[key] = limiter
}

// Wait waits for all specified limiters
func (m *MultiLimiter) Wait(ctx context.Context, keys ...string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, key := range keys {
		if limiter, ok := m.limiters[key]; ok {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
	}

	return nil
}

// BrokerLimiters contains rate limiters for the supported brokerages.
type BrokerLimiters struct {
	Robinhood *MultiLimiter
	Schwab    *MultiLimiter
}

// NewBrokerLimiters creates rate limiters for all brokers. The limits are
// conservative client-side budgets, not documented API contracts.
func NewBrokerLimiters() *BrokerLimiters {
	bl := &BrokerLimiters{
		Robinhood: NewMultiLimiter(),
		Schwab:    NewMultiLimiter(),
	}

	// Robinhood throttles aggressively on bursts from the private API.
	bl.Robinhood.AddLimiter("global", NewLimiter("robinhood-global", 60))
	bl.Robinhood.AddLimiter("order", NewLimiter("robinhood-order", 30))

	// Schwab Trader API allows 120 requests/min per app.
	bl.Schwab.AddLimiter("global", NewLimiter("schwab-global", 120))
	bl.Schwab.AddLimiter("order", NewLimiter("schwab-order", 60))

	return bl
}
