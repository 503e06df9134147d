package shared

import (
	"context"

	"openstocks/internal/brokers"
	"openstocks/pkg/logger"
)

// QuoteCache interface to avoid a hard dependency on Redis. A nil
// cache means quotes always go to the broker.
type QuoteCache interface {
	Get(ctx context.Context, broker, symbol string) brokers.Response
	Put(ctx context.Context, broker, symbol string, response brokers.Response)
}

// HealthChecker reports connectivity for an infrastructure dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps bundles dependencies required by concrete tool implementations
type Deps struct {
	Coordinator *brokers.Coordinator
	Registry    *brokers.Registry
	QuoteCache  QuoteCache
	RedisHealth HealthChecker
	Log         *logger.Logger
}

// HasQuoteCache reports whether the quote cache is wired
func (d Deps) HasQuoteCache() bool {
	return d.QuoteCache != nil
}

// ResolveBroker returns the requested broker when it is authenticated
// and available, or an error envelope describing why it is not.
func (d Deps) ResolveBroker(name, operation string) (brokers.Broker, brokers.Response) {
	return d.Coordinator.AuthenticatedBrokerOrError(name, operation)
}
