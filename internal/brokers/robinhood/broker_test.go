package robinhood

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openstocks/internal/brokers"
)

func testConfig(serverURL, tokenDir string) Config {
	return Config{
		Username: "trader@example.com",
		Password: "hunter2",
		TokenDir: tokenDir,
		BaseURL:  serverURL,
	}
}

func accountsHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"results": []map[string]interface{}{{
			"account_number":                "RH123456",
			"buying_power":                  "2500.00",
			"cash":                          "1200.50",
			"type":                          "margin",
			"day_trade_count":               1,
			"url":                           "https://api.robinhood.com/accounts/RH123456/",
			"cash_available_for_withdrawal": "1000.00",
		}},
	})
}

func TestNew_ConfigurationStates(t *testing.T) {
	dir := t.TempDir()

	full := New(Config{Username: "u", Password: "p", TokenDir: dir}, nil)
	assert.True(t, full.IsConfigured())
	assert.Equal(t, brokers.StatusNotAuthenticated, full.AuthInfo().Status)

	partial := New(Config{Username: "u", TokenDir: dir}, nil)
	assert.False(t, partial.IsConfigured())
	assert.Equal(t, "Both username and password required for Robinhood", partial.AuthInfo().ErrorMessage)

	empty := New(Config{TokenDir: dir}, nil)
	assert.False(t, empty.IsConfigured())
	info := empty.AuthInfo()
	assert.Equal(t, brokers.StatusNotConfigured, info.Status)
	assert.Equal(t, setupInstructions, info.SetupInstructions)
}

func TestBroker_AuthenticateSuccess(t *testing.T) {
	mux := http.NewServeMux()
	var loginForm map[string][]string
	mux.HandleFunc("/oauth2/token/", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		loginForm = r.PostForm
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "fresh-token",
			"refresh_token": "refresh",
			"token_type":    "Bearer",
			"expires_in":    86400,
		})
	})
	mux.HandleFunc("/accounts/", accountsHandler)
	server := httptest.NewServer(mux)
	defer server.Close()

	dir := t.TempDir()
	broker := New(testConfig(server.URL, dir), nil)

	require.True(t, broker.Authenticate(context.Background()))
	assert.True(t, broker.IsAvailable())
	assert.Equal(t, brokers.StatusAuthenticated, broker.AuthInfo().Status)
	assert.Equal(t, []string{"password"}, loginForm["grant_type"])
	assert.Equal(t, []string{"trader@example.com"}, loginForm["username"])
	assert.NotEmpty(t, loginForm["device_token"])

	// The session must be cached for the next restart.
	cached, err := NewSessionStore(dir, nil).Load()
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "fresh-token", cached.AccessToken)
}

func TestBroker_AuthenticateReusesCachedSession(t *testing.T) {
	loginCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token/", func(w http.ResponseWriter, r *http.Request) {
		loginCalls++
		w.WriteHeader(http.StatusBadRequest)
	})
	mux.HandleFunc("/accounts/", accountsHandler)
	server := httptest.NewServer(mux)
	defer server.Close()

	dir := t.TempDir()
	store := NewSessionStore(dir, nil)
	require.NoError(t, store.Save(&Session{
		AccessToken: "cached-token",
		ExpiresAt:   time.Now().Add(12 * time.Hour),
		DeviceToken: "device-1",
	}))

	broker := New(testConfig(server.URL, dir), nil)
	require.True(t, broker.Authenticate(context.Background()))
	assert.True(t, broker.IsAvailable())
	assert.Zero(t, loginCalls)
}

func TestBroker_AuthenticateMFARequired(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"mfa_required":   true,
			"challenge_type": "sms",
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	broker := New(testConfig(server.URL, t.TempDir()), nil)

	assert.False(t, broker.Authenticate(context.Background()))
	info := broker.AuthInfo()
	assert.Equal(t, brokers.StatusMFARequired, info.Status)
	assert.Contains(t, info.ErrorMessage, "ROBINHOOD_MFA_CODE")
}

func TestBroker_AuthenticateRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"detail": "Unable to log in with provided credentials.",
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	broker := New(testConfig(server.URL, t.TempDir()), nil)

	assert.False(t, broker.Authenticate(context.Background()))
	info := broker.AuthInfo()
	assert.Equal(t, brokers.StatusAuthFailed, info.Status)
	assert.Equal(t, "Unable to log in with provided credentials.", info.ErrorMessage)
}

func TestBroker_AuthenticateNotConfigured(t *testing.T) {
	broker := New(Config{TokenDir: t.TempDir()}, nil)

	assert.False(t, broker.Authenticate(context.Background()))
	assert.Equal(t, brokers.StatusNotConfigured, broker.AuthInfo().Status)
}

func TestBroker_OperationsUnavailableBeforeAuth(t *testing.T) {
	broker := New(Config{TokenDir: t.TempDir()}, nil)
	ctx := context.Background()

	for name, resp := range map[string]brokers.Response{
		"account_info": broker.AccountInfo(ctx),
		"portfolio":    broker.Portfolio(ctx),
		"positions":    broker.Positions(ctx),
		"quote":        broker.StockQuote(ctx, "AAPL"),
		"price":        broker.StockPrice(ctx, "AAPL"),
		"buy":          broker.BuyMarket(ctx, "AAPL", decimal.NewFromInt(1)),
		"sell":         broker.SellMarket(ctx, "AAPL", decimal.NewFromInt(1)),
	} {
		assert.Equal(t, brokers.ResultBrokerUnavailable, resp.Status(), name)
		assert.NotEmpty(t, resp.ErrorMessage(), name)
	}
}

func TestBroker_QuoteAndPrice(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 86400})
	})
	mux.HandleFunc("/accounts/", accountsHandler)
	mux.HandleFunc("/quotes/AAPL/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"symbol":           "AAPL",
			"last_trade_price": "189.2500",
			"bid_price":        "189.20",
			"bid_size":         100,
			"ask_price":        "189.30",
			"ask_size":         200,
			"previous_close":   "187.00",
			"trading_halted":   false,
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	broker := New(testConfig(server.URL, t.TempDir()), nil)
	ctx := context.Background()
	require.True(t, broker.Authenticate(ctx))

	quote := broker.StockQuote(ctx, "aapl")
	require.True(t, quote.IsSuccess())
	result := quote.Result()
	assert.Equal(t, "AAPL", result["symbol"])
	assert.Equal(t, "189.2500", result["last_price"])

	price := broker.StockPrice(ctx, "AAPL")
	require.True(t, price.IsSuccess())
	assert.Equal(t, "189.25", price.Result()["price"])
}

func TestBroker_MarketOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 86400})
	})
	mux.HandleFunc("/accounts/", accountsHandler)
	var orderBody map[string]interface{}
	mux.HandleFunc("/orders/", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&orderBody))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         "order-1",
			"state":      "queued",
			"side":       "buy",
			"quantity":   "5.00000000",
			"created_at": "2025-03-14T09:30:00Z",
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	broker := New(testConfig(server.URL, t.TempDir()), nil)
	ctx := context.Background()
	require.True(t, broker.Authenticate(ctx))

	resp := broker.BuyMarket(ctx, "aapl", decimal.NewFromInt(5))
	require.True(t, resp.IsSuccess())
	result := resp.Result()
	assert.Equal(t, "order-1", result["order_id"])
	assert.Equal(t, "buy", result["side"])
	assert.Equal(t, "queued", result["state"])

	assert.Equal(t, "AAPL", orderBody["symbol"])
	assert.Equal(t, "market", orderBody["type"])
	assert.Equal(t, "5", orderBody["quantity"])
	assert.NotEmpty(t, orderBody["ref_id"])
	assert.Equal(t, "https://api.robinhood.com/accounts/RH123456/", orderBody["account"])
}

func TestBroker_MarketOrderRejectsNonPositiveQuantity(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 86400})
	})
	mux.HandleFunc("/accounts/", accountsHandler)
	server := httptest.NewServer(mux)
	defer server.Close()

	broker := New(testConfig(server.URL, t.TempDir()), nil)
	ctx := context.Background()
	require.True(t, broker.Authenticate(ctx))

	resp := broker.SellMarket(ctx, "AAPL", decimal.Zero)
	assert.Equal(t, brokers.ResultError, resp.Status())
	assert.Equal(t, "order quantity must be positive", resp.ErrorMessage())
}

func TestBroker_Logout(t *testing.T) {
	revoked := false
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 86400})
	})
	mux.HandleFunc("/oauth2/revoke_token/", func(w http.ResponseWriter, r *http.Request) {
		revoked = true
	})
	mux.HandleFunc("/accounts/", accountsHandler)
	server := httptest.NewServer(mux)
	defer server.Close()

	dir := t.TempDir()
	broker := New(testConfig(server.URL, dir), nil)
	ctx := context.Background()
	require.True(t, broker.Authenticate(ctx))

	broker.Logout(ctx)

	assert.True(t, revoked)
	assert.False(t, broker.IsAvailable())
	assert.Equal(t, brokers.StatusNotAuthenticated, broker.AuthInfo().Status)

	cached, err := NewSessionStore(dir, nil).Load()
	require.NoError(t, err)
	assert.Nil(t, cached)
}
