package robinhood

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"openstocks/internal/brokers"
	"openstocks/internal/brokers/ratelimit"
	"openstocks/pkg/crypto"
	"openstocks/pkg/logger"
)

const setupInstructions = "Set ROBINHOOD_USERNAME and ROBINHOOD_PASSWORD environment variables"

// Config configures the Robinhood broker adapter.
type Config struct {
	Username  string
	Password  string
	MFACode   string
	ExpiresIn time.Duration

	// TokenDir is where the session cache lives.
	TokenDir string
	// Encryptor, when set, encrypts the cached session at rest.
	Encryptor *crypto.Encryptor

	// BaseURL and HTTPClient exist for tests.
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *ratelimit.MultiLimiter
}

// Broker is the Robinhood adapter. It authenticates with the password
// grant, caches the resulting session on disk, and reuses it across
// restarts until it expires.
type Broker struct {
	brokers.Base

	cfg    Config
	log    *logger.Logger
	store  *SessionStore
	client *client

	accountURL string
}

var _ brokers.Broker = (*Broker)(nil)

// New constructs the adapter. Credential problems are recorded in the
// auth info rather than returned: a half-configured or unconfigured
// broker still registers, it just reports NotConfigured.
func New(cfg Config, log *logger.Logger) *Broker {
	if cfg.ExpiresIn <= 0 {
		cfg.ExpiresIn = 24 * time.Hour
	}
	if log == nil {
		log = logger.Get()
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.NewBrokerLimiters().Robinhood
	}

	b := &Broker{
		Base:   brokers.NewBase("robinhood"),
		cfg:    cfg,
		log:    log.With("broker", "robinhood"),
		store:  NewSessionStore(cfg.TokenDir, cfg.Encryptor),
		client: newClient(cfg.BaseURL, cfg.HTTPClient, limiter),
	}

	switch {
	case cfg.Username != "" && cfg.Password != "":
		b.SetConfigured()
	case cfg.Username != "" || cfg.Password != "":
		b.SetConfigurationError("Both username and password required for Robinhood")
	default:
		b.SetNotConfigured(setupInstructions, false)
	}

	return b
}

// Authenticate performs the full login flow: reuse a cached session when
// still valid, otherwise run the password grant. Never panics; failures
// are recorded in the auth info and reported as false.
func (b *Broker) Authenticate(ctx context.Context) bool {
	if !b.IsConfigured() {
		return false
	}

	b.BeginAuth()
	b.log.Info("Authenticating with Robinhood...")

	cached, err := b.store.Load()
	if err != nil {
		b.log.Warnf("Ignoring unreadable session cache: %v", err)
	}
	if cached.Valid() {
		b.client.setSession(cached)
		if err := b.primeAccount(ctx); err == nil {
			b.MarkAuthenticated()
			b.log.Info("Robinhood authentication successful (cached session)")
			return true
		}
		b.log.Warn("Cached session rejected, performing fresh login")
	}

	deviceToken := ""
	if cached != nil {
		deviceToken = cached.DeviceToken
	}
	if deviceToken == "" {
		deviceToken = uuid.NewString()
	}

	res, err := b.client.login(ctx, b.cfg.Username, b.cfg.Password, b.cfg.MFACode, deviceToken, b.cfg.ExpiresIn)
	if err != nil {
		b.MarkAuthFailed(err.Error())
		b.log.Errorf("Robinhood authentication error: %v", err)
		return false
	}

	if res.MFARequired && res.AccessToken == "" {
		b.MarkMFARequired("Multi-factor verification pending - supply ROBINHOOD_MFA_CODE and retry")
		b.log.Warn("Robinhood requires MFA verification")
		return false
	}
	if res.AccessToken == "" {
		msg := res.Detail
		if msg == "" {
			msg = "Authentication failed - check username/password"
		}
		b.MarkAuthFailed(msg)
		b.log.Error("Robinhood authentication failed")
		return false
	}

	session := &Session{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    res.TokenType,
		ExpiresAt:    time.Now().Add(time.Duration(res.ExpiresIn) * time.Second),
		DeviceToken:  deviceToken,
	}
	b.client.setSession(session)

	if err := b.primeAccount(ctx); err != nil {
		b.MarkAuthFailed(err.Error())
		b.log.Errorf("Robinhood account lookup failed after login: %v", err)
		return false
	}

	if err := b.store.Save(session); err != nil {
		b.log.Warnf("Could not persist session cache: %v", err)
	}

	b.MarkAuthenticated()
	b.log.Info("Robinhood authentication successful")
	return true
}

// primeAccount resolves the account URL needed for order placement and
// doubles as a liveness probe for the session.
func (b *Broker) primeAccount(ctx context.Context) error {
	account, err := b.client.account(ctx)
	if err != nil {
		return err
	}
	b.accountURL = account.URL
	return nil
}

// IsAuthenticated checks session validity, downgrading to TokenExpired
// when a previously good session has lapsed.
func (b *Broker) IsAuthenticated(ctx context.Context) bool {
	// The session pointer is replaced only inside Authenticate and
	// Logout, which the registry serializes per broker, so the unlocked
	// read here never races a write.
	session := b.client.session
	if session.Valid() {
		return true
	}
	b.MarkTokenExpired("Session expired")
	return false
}

// Logout revokes the token, clears the session cache, and resets state.
// Best effort: errors are logged, never returned.
func (b *Broker) Logout(ctx context.Context) {
	if err := b.client.revoke(ctx); err != nil {
		b.log.Warnf("Token revocation failed: %v", err)
	}
	if err := b.store.Clear(); err != nil {
		b.log.Warnf("Could not clear session cache: %v", err)
	}
	b.client.setSession(nil)
	b.accountURL = ""
	b.MarkLoggedOut()
	b.log.Info("Logged out from Robinhood")
}

// AccountInfo returns basic account data.
func (b *Broker) AccountInfo(ctx context.Context) brokers.Response {
	if !b.IsAvailable() {
		return b.UnavailableResponse("get_account_info")
	}

	account, err := b.client.account(ctx)
	if err != nil {
		return brokers.Error(err.Error())
	}

	return brokers.Success(map[string]interface{}{
		"broker":          "robinhood",
		"account_number":  account.AccountNumber,
		"account_type":    account.Type,
		"buying_power":    account.BuyingPower,
		"cash":            account.Cash,
		"day_trade_count": account.DayTradeCount,
		"withdrawable":    account.WithdrawableCash,
	})
}

// Portfolio returns equity and market value totals.
func (b *Broker) Portfolio(ctx context.Context) brokers.Response {
	if !b.IsAvailable() {
		return b.UnavailableResponse("get_portfolio")
	}

	portfolio, err := b.client.portfolio(ctx)
	if err != nil {
		return brokers.Error(err.Error())
	}

	return brokers.Success(map[string]interface{}{
		"broker":                "robinhood",
		"equity":                portfolio.Equity,
		"extended_hours_equity": portfolio.ExtendedHoursEquity,
		"market_value":          portfolio.MarketValue,
		"previous_close":        portfolio.AdjustedEquityPrevClose,
		"uncleared_deposits":    portfolio.UnclearedDeposits,
		"unsettled_funds":       portfolio.UnsettledFunds,
		"portfolio_start_date":  portfolio.StartDate,
		"excess_margin":         portfolio.ExcessMargin,
		"last_core_equity":      portfolio.LastCoreEquity,
	})
}

// Positions returns nonzero holdings.
func (b *Broker) Positions(ctx context.Context) brokers.Response {
	if !b.IsAvailable() {
		return b.UnavailableResponse("get_positions")
	}

	positions, err := b.client.positions(ctx)
	if err != nil {
		return brokers.Error(err.Error())
	}

	rows := make([]map[string]interface{}, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, map[string]interface{}{
			"symbol":            p.Symbol,
			"quantity":          p.Quantity,
			"average_buy_price": p.AverageBuyPrice,
		})
	}

	return brokers.Success(map[string]interface{}{
		"broker":    "robinhood",
		"positions": rows,
		"count":     len(rows),
	})
}

// StockQuote returns the full quote for a symbol.
func (b *Broker) StockQuote(ctx context.Context, symbol string) brokers.Response {
	if !b.IsAvailable() {
		return b.UnavailableResponse("get stock quote for " + symbol)
	}

	quote, err := b.client.quote(ctx, symbol)
	if err != nil {
		return brokers.Error(err.Error())
	}

	return brokers.Success(map[string]interface{}{
		"broker":         "robinhood",
		"symbol":         quote.Symbol,
		"last_price":     quote.LastTradePrice,
		"bid_price":      quote.BidPrice,
		"bid_size":       quote.BidSize,
		"ask_price":      quote.AskPrice,
		"ask_size":       quote.AskSize,
		"previous_close": quote.PreviousClose,
		"trading_halted": quote.TradingHalted,
		"updated_at":     quote.UpdatedAt,
	})
}

// StockPrice returns only the last trade price for a symbol.
func (b *Broker) StockPrice(ctx context.Context, symbol string) brokers.Response {
	if !b.IsAvailable() {
		return b.UnavailableResponse("get stock price for " + symbol)
	}

	quote, err := b.client.quote(ctx, symbol)
	if err != nil {
		return brokers.Error(err.Error())
	}

	price, err := decimal.NewFromString(quote.LastTradePrice)
	if err != nil {
		return brokers.Error("unparseable price for " + symbol)
	}

	return brokers.Success(map[string]interface{}{
		"broker": "robinhood",
		"symbol": quote.Symbol,
		"price":  price.String(),
	})
}

// BuyMarket places a market buy order.
func (b *Broker) BuyMarket(ctx context.Context, symbol string, quantity decimal.Decimal) brokers.Response {
	return b.marketOrder(ctx, symbol, "buy", quantity)
}

// SellMarket places a market sell order.
func (b *Broker) SellMarket(ctx context.Context, symbol string, quantity decimal.Decimal) brokers.Response {
	return b.marketOrder(ctx, symbol, "sell", quantity)
}

func (b *Broker) marketOrder(ctx context.Context, symbol, side string, quantity decimal.Decimal) brokers.Response {
	if !b.IsAvailable() {
		return b.UnavailableResponse("place " + side + " order for " + symbol)
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return brokers.Error("order quantity must be positive")
	}

	order, err := b.client.placeMarketOrder(ctx, b.accountURL, symbol, side, quantity)
	if err != nil {
		return brokers.Error(err.Error())
	}

	return brokers.Success(map[string]interface{}{
		"broker":     "robinhood",
		"order_id":   order.ID,
		"symbol":     symbol,
		"side":       side,
		"type":       "market",
		"quantity":   order.Quantity,
		"state":      order.State,
		"created_at": order.CreatedAt,
	})
}
