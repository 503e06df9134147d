package schwab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"openstocks/internal/brokers/ratelimit"
	"openstocks/internal/brokers/retry"
	"openstocks/internal/metrics"
)

const (
	defaultBaseURL     = "https://api.schwabapi.com"
	defaultHTTPTimeout = 15 * time.Second
)

// apiError carries the HTTP status so the retry middleware can classify it.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("schwab api: status %d: %s", e.Status, e.Body)
}

func (e *apiError) StatusCode() int {
	return e.Status
}

type tokenGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
}

// client is a minimal hand-rolled client for the Schwab Trader and
// Market Data APIs. It holds a token set and refreshes it via the
// refresh grant; the initial authorization-code exchange is out of band.
type client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.MultiLimiter
	retrier    *retry.Middleware

	apiKey    string
	appSecret string

	token *Token
}

func newClient(baseURL string, httpClient *http.Client, limiter *ratelimit.MultiLimiter, apiKey, appSecret string) *client {
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
		apiKey:     apiKey,
		appSecret:  appSecret,
	}
}

func (c *client) setToken(token *Token) {
	c.token = token
}

// refresh exchanges the refresh token for a new access token.
func (c *client) refresh(ctx context.Context, refreshToken string) (*tokenGrant, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.apiKey, c.appSecret)

	var grant tokenGrant
	if err := c.dispatch(req, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

type balances struct {
	CashBalance      float64 `json:"cashBalance"`
	BuyingPower      float64 `json:"buyingPower"`
	LiquidationValue float64 `json:"liquidationValue"`
	Equity           float64 `json:"equity"`
	LongMarketValue  float64 `json:"longMarketValue"`
}

type positionEntry struct {
	LongQuantity  float64 `json:"longQuantity"`
	ShortQuantity float64 `json:"shortQuantity"`
	AveragePrice  float64 `json:"averagePrice"`
	MarketValue   float64 `json:"marketValue"`
	Instrument    struct {
		Symbol    string `json:"symbol"`
		AssetType string `json:"assetType"`
	} `json:"instrument"`
}

type securitiesAccount struct {
	AccountNumber   string          `json:"accountNumber"`
	Type            string          `json:"type"`
	IsDayTrader     bool            `json:"isDayTrader"`
	CurrentBalances balances        `json:"currentBalances"`
	InitialBalances balances        `json:"initialBalances"`
	Positions       []positionEntry `json:"positions"`
}

type accountEnvelope struct {
	SecuritiesAccount securitiesAccount `json:"securitiesAccount"`
}

// accounts fetches every linked account including positions.
func (c *client) accounts(ctx context.Context) ([]securitiesAccount, error) {
	var envelopes []accountEnvelope
	params := url.Values{"fields": {"positions"}}
	if err := c.getJSON(ctx, "/trader/v1/accounts", params, &envelopes); err != nil {
		return nil, err
	}

	accounts := make([]securitiesAccount, 0, len(envelopes))
	for _, e := range envelopes {
		accounts = append(accounts, e.SecuritiesAccount)
	}
	return accounts, nil
}

type accountNumberHash struct {
	AccountNumber string `json:"accountNumber"`
	HashValue     string `json:"hashValue"`
}

// accountHash resolves the opaque account hash required by the order
// endpoints. The first linked account is used.
func (c *client) accountHash(ctx context.Context) (string, error) {
	var hashes []accountNumberHash
	if err := c.getJSON(ctx, "/trader/v1/accounts/accountNumbers", nil, &hashes); err != nil {
		return "", err
	}
	if len(hashes) == 0 {
		return "", fmt.Errorf("schwab api: no linked accounts")
	}
	return hashes[0].HashValue, nil
}

type quoteDetail struct {
	LastPrice  float64 `json:"lastPrice"`
	BidPrice   float64 `json:"bidPrice"`
	BidSize    int64   `json:"bidSize"`
	AskPrice   float64 `json:"askPrice"`
	AskSize    int64   `json:"askSize"`
	ClosePrice float64 `json:"closePrice"`
	TotalVol   int64   `json:"totalVolume"`
	TradeTime  int64   `json:"tradeTime"`
}

type quotePayload struct {
	Symbol    string      `json:"symbol"`
	AssetType string      `json:"assetMainType"`
	Quote     quoteDetail `json:"quote"`
}

// quote fetches the market data quote for a single symbol.
func (c *client) quote(ctx context.Context, symbol string) (*quotePayload, error) {
	symbol = strings.ToUpper(symbol)

	var res map[string]quotePayload
	params := url.Values{"symbols": {symbol}}
	if err := c.getJSON(ctx, "/marketdata/v1/quotes", params, &res); err != nil {
		return nil, err
	}

	payload, ok := res[symbol]
	if !ok {
		return nil, fmt.Errorf("schwab api: no quote returned for %s", symbol)
	}
	payload.Symbol = symbol
	return &payload, nil
}

// placeMarketOrder submits a single-leg market order. Schwab returns
// the new order id in the Location header rather than the body.
func (c *client) placeMarketOrder(ctx context.Context, accountHash, symbol, instruction string, quantity decimal.Decimal) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, "order"); err != nil {
			return "", err
		}
	}

	qty, _ := quantity.Float64()
	body := map[string]interface{}{
		"orderType":         "MARKET",
		"session":           "NORMAL",
		"duration":          "DAY",
		"orderStrategyType": "SINGLE",
		"orderLegCollection": []map[string]interface{}{
			{
				"instruction": instruction,
				"quantity":    qty,
				"instrument": map[string]interface{}{
					"symbol":    strings.ToUpper(symbol),
					"assetType": "EQUITY",
				},
			},
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/trader/v1/accounts/%s/orders", c.baseURL, accountHash)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RecordBrokerAPICall("schwab", req.URL.Path, time.Since(start), err)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", &apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	// Location: .../orders/{orderID}
	location := resp.Header.Get("Location")
	return path.Base(location), nil
}

// HTTP plumbing -------------------------------------------------------------

func (c *client) getJSON(ctx context.Context, p string, params url.Values, out interface{}) error {
	return c.retrier.Do(ctx, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, "global"); err != nil {
				return err
			}
		}

		endpoint := c.baseURL + p
		if len(params) > 0 {
			endpoint += "?" + params.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		c.authorize(req)

		return c.dispatch(req, out)
	})
}

func (c *client) authorize(req *http.Request) {
	if c.token != nil && c.token.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.token.AccessToken)
	}
}

func (c *client) dispatch(req *http.Request, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordBrokerAPICall("schwab", req.URL.Path, time.Since(start), err)
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
