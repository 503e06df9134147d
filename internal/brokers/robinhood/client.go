package robinhood

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"openstocks/internal/brokers/ratelimit"
	"openstocks/internal/brokers/retry"
	"openstocks/internal/metrics"
)

const (
	defaultBaseURL     = "https://api.robinhood.com"
	defaultHTTPTimeout = 15 * time.Second

	// Public client id used by the web frontend for the password grant.
	oauthClientID = "c82SH0WZOsabOXGP2sxqcj34FxkvfnWRZBKlBjFS"
)

// apiError carries the HTTP status so the retry middleware can classify it.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("robinhood api: status %d: %s", e.Status, e.Body)
}

func (e *apiError) StatusCode() int {
	return e.Status
}

// tokenResponse is the shape returned by the oauth2 token endpoint.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`

	// Challenge flow fields
	MFARequired   bool   `json:"mfa_required"`
	ChallengeType string `json:"challenge_type"`
	Detail        string `json:"detail"`
}

// client is a minimal hand-rolled HTTP client for the private Robinhood
// API. It covers only the endpoints the broker adapter needs.
type client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.MultiLimiter
	retrier    *retry.Middleware

	session *Session
}

func newClient(baseURL string, httpClient *http.Client, limiter *ratelimit.MultiLimiter) *client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		limiter:    limiter,
		retrier:    retry.New(retry.DefaultConfig()),
	}
}

func (c *client) setSession(session *Session) {
	c.session = session
}

// login performs the password grant. An MFA code is included when given;
// a response with mfa_required and no token means the account needs an
// interactive verification step.
func (c *client) login(ctx context.Context, username, password, mfaCode, deviceToken string, expiresIn time.Duration) (*tokenResponse, error) {
	if deviceToken == "" {
		deviceToken = uuid.NewString()
	}

	form := url.Values{
		"grant_type":   {"password"},
		"client_id":    {oauthClientID},
		"scope":        {"internal"},
		"username":     {username},
		"password":     {password},
		"device_token": {deviceToken},
		"expires_in":   {fmt.Sprintf("%d", int(expiresIn.Seconds()))},
	}
	if mfaCode != "" {
		form.Set("mfa_code", mfaCode)
	}

	var res tokenResponse
	err := c.retrier.Do(ctx, func() error {
		return c.postForm(ctx, "/oauth2/token/", form, &res)
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// revoke invalidates the current access token. Best effort.
func (c *client) revoke(ctx context.Context) error {
	if c.session == nil || c.session.AccessToken == "" {
		return nil
	}
	form := url.Values{
		"client_id": {oauthClientID},
		"token":     {c.session.AccessToken},
	}
	return c.postForm(ctx, "/oauth2/revoke_token/", form, nil)
}

type accountPayload struct {
	AccountNumber    string `json:"account_number"`
	BuyingPower      string `json:"buying_power"`
	Cash             string `json:"cash"`
	PortfolioCash    string `json:"portfolio_cash"`
	Type             string `json:"type"`
	DayTradeCount    int    `json:"day_trade_count"`
	DeactivatedAt    string `json:"deactivated"`
	URL              string `json:"url"`
	WithdrawableCash string `json:"cash_available_for_withdrawal"`
}

func (c *client) account(ctx context.Context) (*accountPayload, error) {
	var res struct {
		Results []accountPayload `json:"results"`
	}
	if err := c.getJSON(ctx, "/accounts/", nil, &res); err != nil {
		return nil, err
	}
	if len(res.Results) == 0 {
		return nil, &apiError{Status: http.StatusNotFound, Body: "no accounts returned"}
	}
	return &res.Results[0], nil
}

type portfolioPayload struct {
	Equity                  string `json:"equity"`
	ExtendedHoursEquity     string `json:"extended_hours_equity"`
	MarketValue             string `json:"market_value"`
	LastCoreEquity          string `json:"last_core_equity"`
	ExcessMargin            string `json:"excess_margin"`
	UnclearedDeposits       string `json:"uncleared_deposits"`
	UnsettledFunds          string `json:"unsettled_funds"`
	StartDate               string `json:"start_date"`
	AdjustedEquityPrevClose string `json:"adjusted_equity_previous_close"`
}

func (c *client) portfolio(ctx context.Context) (*portfolioPayload, error) {
	var res struct {
		Results []portfolioPayload `json:"results"`
	}
	if err := c.getJSON(ctx, "/portfolios/", nil, &res); err != nil {
		return nil, err
	}
	if len(res.Results) == 0 {
		return nil, &apiError{Status: http.StatusNotFound, Body: "no portfolio returned"}
	}
	return &res.Results[0], nil
}

type positionPayload struct {
	Symbol          string `json:"symbol"`
	Quantity        string `json:"quantity"`
	AverageBuyPrice string `json:"average_buy_price"`
	Instrument      string `json:"instrument"`
}

func (c *client) positions(ctx context.Context) ([]positionPayload, error) {
	var res struct {
		Results []positionPayload `json:"results"`
	}
	params := url.Values{"nonzero": {"true"}}
	if err := c.getJSON(ctx, "/positions/", params, &res); err != nil {
		return nil, err
	}
	return res.Results, nil
}

type quotePayload struct {
	Symbol                  string `json:"symbol"`
	LastTradePrice          string `json:"last_trade_price"`
	LastExtendedHoursPrice  string `json:"last_extended_hours_trade_price"`
	BidPrice                string `json:"bid_price"`
	BidSize                 int64  `json:"bid_size"`
	AskPrice                string `json:"ask_price"`
	AskSize                 int64  `json:"ask_size"`
	PreviousClose           string `json:"previous_close"`
	AdjustedPreviousClose   string `json:"adjusted_previous_close"`
	TradingHalted           bool   `json:"trading_halted"`
	HasTraded               bool   `json:"has_traded"`
	UpdatedAt               string `json:"updated_at"`
	InstrumentURL           string `json:"instrument"`
	LastNonRegularTradeTime string `json:"last_non_reg_trade_time"`
}

func (c *client) quote(ctx context.Context, symbol string) (*quotePayload, error) {
	var res quotePayload
	path := fmt.Sprintf("/quotes/%s/", strings.ToUpper(symbol))
	if err := c.getJSON(ctx, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

type orderPayload struct {
	ID            string `json:"id"`
	State         string `json:"state"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Quantity      string `json:"quantity"`
	Price         string `json:"price"`
	AveragePrice  string `json:"average_price"`
	CreatedAt     string `json:"created_at"`
	RefID         string `json:"ref_id"`
	InstrumentURL string `json:"instrument"`
}

// placeMarketOrder submits a market order. The ref_id makes retried
// submissions idempotent on the broker side.
func (c *client) placeMarketOrder(ctx context.Context, accountURL, symbol, side string, quantity decimal.Decimal) (*orderPayload, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, "order"); err != nil {
			return nil, err
		}
	}

	body := map[string]interface{}{
		"account":       accountURL,
		"symbol":        strings.ToUpper(symbol),
		"side":          side,
		"type":          "market",
		"time_in_force": "gfd",
		"trigger":       "immediate",
		"quantity":      quantity.String(),
		"ref_id":        uuid.NewString(),
	}

	var res orderPayload
	if err := c.postJSON(ctx, "/orders/", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// HTTP plumbing -------------------------------------------------------------

func (c *client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	return c.retrier.Do(ctx, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, "global"); err != nil {
				return err
			}
		}

		endpoint := c.baseURL + path
		if len(params) > 0 {
			endpoint += "?" + params.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		c.authorize(req)

		return c.do(req, out)
	})
}

func (c *client) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, "global"); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	return c.do(req, out)
}

func (c *client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, "global"); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, out)
}

func (c *client) authorize(req *http.Request) {
	if c.session != nil && c.session.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.AccessToken)
	}
}

func (c *client) do(req *http.Request, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordBrokerAPICall("robinhood", req.URL.Path, time.Since(start), err)
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		return &apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
