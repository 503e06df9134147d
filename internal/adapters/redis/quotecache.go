package redis

import (
	"context"
	"strings"
	"time"

	"openstocks/internal/brokers"
	"openstocks/internal/metrics"
	"openstocks/pkg/logger"
)

// QuoteCache caches successful quote responses per broker and symbol.
// Quotes go stale in seconds, so the TTL is short and misses are cheap.
type QuoteCache struct {
	client *Client
	log    *logger.Logger
	ttl    time.Duration
}

func NewQuoteCache(client *Client, ttl time.Duration, log *logger.Logger) *QuoteCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if log == nil {
		log = logger.Get()
	}
	return &QuoteCache{client: client, log: log, ttl: ttl}
}

func (c *QuoteCache) key(broker, symbol string) string {
	return "quote:" + broker + ":" + strings.ToUpper(symbol)
}

// Get returns the cached response for the broker and symbol, or nil on
// a miss. Cache errors are logged and reported as misses.
func (c *QuoteCache) Get(ctx context.Context, broker, symbol string) brokers.Response {
	if c == nil || c.client == nil {
		return nil
	}

	var cached brokers.Response
	found, err := c.client.Get(ctx, c.key(broker, symbol), &cached)
	if err != nil {
		metrics.RecordCacheLookup("error")
		c.log.Warnf("Quote cache read failed: %v", err)
		return nil
	}
	if !found {
		metrics.RecordCacheLookup("miss")
		return nil
	}
	metrics.RecordCacheLookup("hit")
	return cached
}

// Put stores a quote response. Only successful responses are cached.
func (c *QuoteCache) Put(ctx context.Context, broker, symbol string, response brokers.Response) {
	if c == nil || c.client == nil || !response.IsSuccess() {
		return
	}
	if err := c.client.Set(ctx, c.key(broker, symbol), response, c.ttl); err != nil {
		c.log.Warnf("Quote cache write failed: %v", err)
	}
}
