package schwab

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"openstocks/internal/brokers"
	"openstocks/internal/brokers/ratelimit"
	"openstocks/pkg/logger"
)

const setupInstructions = "Create an app at developer.schwab.com, set SCHWAB_API_KEY and SCHWAB_APP_SECRET, then run the interactive authorization flow to produce a token file"

// Config configures the Schwab broker adapter.
type Config struct {
	APIKey      string
	AppSecret   string
	CallbackURL string

	// TokenPath is the token file location. When empty it defaults to
	// schwab_token.json under TokenDir.
	TokenPath string
	TokenDir  string

	// BaseURL and HTTPClient exist for tests.
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *ratelimit.MultiLimiter
}

// Broker is the Schwab adapter. Authentication is non-interactive: it
// requires a token file produced by a prior interactive authorization
// run, and refreshes the access token from it.
type Broker struct {
	brokers.Base

	cfg    Config
	log    *logger.Logger
	store  *TokenStore
	client *client

	accountHash string
}

var _ brokers.Broker = (*Broker)(nil)

func New(cfg Config, log *logger.Logger) *Broker {
	if log == nil {
		log = logger.Get()
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.NewBrokerLimiters().Schwab
	}

	b := &Broker{
		Base:   brokers.NewBase("schwab"),
		cfg:    cfg,
		log:    log.With("broker", "schwab"),
		store:  NewTokenStore(cfg.TokenPath, cfg.TokenDir),
		client: newClient(cfg.BaseURL, cfg.HTTPClient, limiter, cfg.APIKey, cfg.AppSecret),
	}

	if cfg.APIKey != "" && cfg.AppSecret != "" {
		b.SetConfigured()
	} else {
		b.SetNotConfigured(setupInstructions, true)
	}

	return b
}

// Authenticate loads the token file and refreshes the access token.
// There is no interactive fallback here: a missing or stale token file
// is an authentication failure pointing the operator at setup.
func (b *Broker) Authenticate(ctx context.Context) bool {
	if !b.IsConfigured() {
		return false
	}

	b.BeginAuth()
	b.log.Info("Authenticating with Schwab...")

	token, err := b.store.Load()
	if err != nil {
		b.MarkAuthFailed(err.Error())
		b.log.Errorf("Schwab token load failed: %v", err)
		return false
	}
	if token == nil {
		b.MarkAuthFailed(fmt.Sprintf("No token file found at %s. Run the interactive authorization flow first.", b.store.Path()))
		b.log.Warnf("Schwab token file missing at %s", b.store.Path())
		return false
	}

	if token.Valid() {
		b.client.setToken(token)
		if err := b.primeAccount(ctx); err == nil {
			b.MarkAuthenticated()
			b.log.Info("Schwab authentication successful (existing token)")
			return true
		}
		b.log.Warn("Existing access token rejected, refreshing")
	}

	if !token.Refreshable() {
		b.MarkAuthFailed("Refresh token expired (7-day limit). Re-run the interactive authorization flow.")
		b.log.Warn("Schwab refresh token expired")
		return false
	}

	grant, err := b.client.refresh(ctx, token.RefreshToken)
	if err != nil {
		b.MarkAuthFailed(err.Error())
		b.log.Errorf("Schwab token refresh failed: %v", err)
		return false
	}

	refreshed := &Token{
		AccessToken:     grant.AccessToken,
		RefreshToken:    grant.RefreshToken,
		TokenType:       grant.TokenType,
		Scope:           grant.Scope,
		ExpiresAt:       time.Now().Add(time.Duration(grant.ExpiresIn) * time.Second),
		RefreshIssuedAt: token.RefreshIssuedAt,
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = token.RefreshToken
	} else if refreshed.RefreshToken != token.RefreshToken {
		refreshed.RefreshIssuedAt = time.Now()
	}
	b.client.setToken(refreshed)

	if err := b.primeAccount(ctx); err != nil {
		b.MarkAuthFailed(err.Error())
		b.log.Errorf("Schwab account lookup failed after refresh: %v", err)
		return false
	}

	if err := b.store.Save(refreshed); err != nil {
		b.log.Warnf("Could not persist refreshed token: %v", err)
	}

	b.MarkAuthenticated()
	b.log.Info("Schwab authentication successful")
	return true
}

func (b *Broker) primeAccount(ctx context.Context) error {
	hash, err := b.client.accountHash(ctx)
	if err != nil {
		return err
	}
	b.accountHash = hash
	return nil
}

// IsAuthenticated checks token validity, downgrading to TokenExpired
// when the access token has lapsed.
func (b *Broker) IsAuthenticated(ctx context.Context) bool {
	// The token pointer is replaced only inside Authenticate and Logout,
	// which the registry serializes per broker, so the unlocked read here
	// never races a write.
	if b.client.token.Valid() {
		return true
	}
	b.MarkTokenExpired("Access token expired")
	return false
}

// Logout drops the in-memory token and resets state. The token file is
// kept so the next startup can refresh without an interactive run.
func (b *Broker) Logout(ctx context.Context) {
	b.client.setToken(nil)
	b.accountHash = ""
	b.MarkLoggedOut()
	b.log.Info("Logged out from Schwab")
}

// AccountInfo returns balances for the first linked account.
func (b *Broker) AccountInfo(ctx context.Context) brokers.Response {
	if !b.IsAvailable() {
		return b.UnavailableResponse("get_account_info")
	}

	account, err := b.firstAccount(ctx)
	if err != nil {
		return brokers.Error(err.Error())
	}

	return brokers.Success(map[string]interface{}{
		"broker":         "schwab",
		"account_number": account.AccountNumber,
		"account_type":   account.Type,
		"is_day_trader":  account.IsDayTrader,
		"buying_power":   account.CurrentBalances.BuyingPower,
		"cash":           account.CurrentBalances.CashBalance,
	})
}

// Portfolio returns total value figures for the first linked account.
func (b *Broker) Portfolio(ctx context.Context) brokers.Response {
	if !b.IsAvailable() {
		return b.UnavailableResponse("get_portfolio")
	}

	account, err := b.firstAccount(ctx)
	if err != nil {
		return brokers.Error(err.Error())
	}

	return brokers.Success(map[string]interface{}{
		"broker":            "schwab",
		"equity":            account.CurrentBalances.Equity,
		"market_value":      account.CurrentBalances.LongMarketValue,
		"liquidation_value": account.CurrentBalances.LiquidationValue,
		"cash":              account.CurrentBalances.CashBalance,
	})
}

// Positions returns holdings for the first linked account.
func (b *Broker) Positions(ctx context.Context) brokers.Response {
	if !b.IsAvailable() {
		return b.UnavailableResponse("get_positions")
	}

	account, err := b.firstAccount(ctx)
	if err != nil {
		return brokers.Error(err.Error())
	}

	rows := make([]map[string]interface{}, 0, len(account.Positions))
	for _, p := range account.Positions {
		quantity := p.LongQuantity - p.ShortQuantity
		rows = append(rows, map[string]interface{}{
			"symbol":            p.Instrument.Symbol,
			"quantity":          quantity,
			"average_buy_price": p.AveragePrice,
			"market_value":      p.MarketValue,
		})
	}

	return brokers.Success(map[string]interface{}{
		"broker":    "schwab",
		"positions": rows,
		"count":     len(rows),
	})
}

func (b *Broker) firstAccount(ctx context.Context) (*securitiesAccount, error) {
	accounts, err := b.client.accounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("schwab api: no linked accounts")
	}
	return &accounts[0], nil
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
		"broker":         "schwab",
		"symbol":         quote.Symbol,
		"last_price":     quote.Quote.LastPrice,
		"bid_price":      quote.Quote.BidPrice,
		"bid_size":       quote.Quote.BidSize,
		"ask_price":      quote.Quote.AskPrice,
		"ask_size":       quote.Quote.AskSize,
		"previous_close": quote.Quote.ClosePrice,
		"volume":         quote.Quote.TotalVol,
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

	return brokers.Success(map[string]interface{}{
		"broker": "schwab",
		"symbol": quote.Symbol,
		"price":  decimal.NewFromFloat(quote.Quote.LastPrice).String(),
	})
}

// BuyMarket places a market buy order.
func (b *Broker) BuyMarket(ctx context.Context, symbol string, quantity decimal.Decimal) brokers.Response {
	return b.marketOrder(ctx, symbol, "BUY", quantity)
}

// SellMarket places a market sell order.
func (b *Broker) SellMarket(ctx context.Context, symbol string, quantity decimal.Decimal) brokers.Response {
	return b.marketOrder(ctx, symbol, "SELL", quantity)
}

func (b *Broker) marketOrder(ctx context.Context, symbol, instruction string, quantity decimal.Decimal) brokers.Response {
	if !b.IsAvailable() {
		return b.UnavailableResponse("place " + instruction + " order for " + symbol)
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return brokers.Error("order quantity must be positive")
	}
	if b.accountHash == "" {
		if err := b.primeAccount(ctx); err != nil {
			return brokers.Error(err.Error())
		}
	}

	orderID, err := b.client.placeMarketOrder(ctx, b.accountHash, symbol, instruction, quantity)
	if err != nil {
		return brokers.Error(err.Error())
	}

	return brokers.Success(map[string]interface{}{
		"broker":   "schwab",
		"order_id": orderID,
		"symbol":   symbol,
		"side":     instruction,
		"type":     "market",
		"quantity": quantity.String(),
		"state":    "submitted",
	})
}
