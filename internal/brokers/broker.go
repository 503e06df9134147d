package brokers

import (
	"context"

	"github.com/shopspring/decimal"
)

// Broker defines the unified contract each brokerage adapter must satisfy.
//
// Authenticate never returns an error: every failure mode is recorded in
// the adapter's own AuthInfo and reported as false. The registry relies on
// this so one broker's failure cannot abort authentication of the others.
// Financial operations check availability themselves and return the
// standardized unavailable payload instead of attempting the call.
type Broker interface {
	Name() string
	AuthInfo() AuthInfo

	// Authentication lifecycle
	Authenticate(ctx context.Context) bool
	IsAuthenticated(ctx context.Context) bool
	Logout(ctx context.Context)
	IsAvailable() bool
	IsConfigured() bool
	UnavailableResponse(operation string) Response

	// Account
	AccountInfo(ctx context.Context) Response
	Portfolio(ctx context.Context) Response
	Positions(ctx context.Context) Response

	// Market data
	StockQuote(ctx context.Context, symbol string) Response
	StockPrice(ctx context.Context, symbol string) Response

	// Trading
	BuyMarket(ctx context.Context, symbol string, quantity decimal.Decimal) Response
	SellMarket(ctx context.Context, symbol string, quantity decimal.Decimal) Response
}
