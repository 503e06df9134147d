package brokers

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBroker is a minimal Broker used by registry and coordinator tests.
// It embeds Base so the registry's panic recovery can mark it failed the
// same way it would a real adapter.
type fakeBroker struct {
	Base

	authResult    bool
	panicOnAuth   bool
	panicOnLogout bool
	authCalls     int
	logoutCalls   int
}

func newFakeBroker(name string, configured, authResult bool) *fakeBroker {
	f := &fakeBroker{Base: NewBase(name), authResult: authResult}
	if configured {
		f.SetConfigured()
	}
	return f
}

func (f *fakeBroker) Authenticate(ctx context.Context) bool {
	f.authCalls++
	if f.panicOnAuth {
		panic("adapter bug")
	}
	f.BeginAuth()
	if f.authResult {
		f.MarkAuthenticated()
	} else {
		f.MarkAuthFailed("login rejected")
	}
	return f.authResult
}

func (f *fakeBroker) IsAuthenticated(ctx context.Context) bool { return f.IsAvailable() }

func (f *fakeBroker) Logout(ctx context.Context) {
	f.logoutCalls++
	if f.panicOnLogout {
		panic("teardown bug")
	}
	f.MarkLoggedOut()
}

func (f *fakeBroker) AccountInfo(ctx context.Context) Response {
	return Success(map[string]interface{}{"broker": f.Name()})
}

func (f *fakeBroker) Portfolio(ctx context.Context) Response {
	return Success(map[string]interface{}{"broker": f.Name()})
}

func (f *fakeBroker) Positions(ctx context.Context) Response {
	return Success(map[string]interface{}{"broker": f.Name()})
}

func (f *fakeBroker) StockQuote(ctx context.Context, symbol string) Response {
	return Success(map[string]interface{}{"symbol": symbol})
}

func (f *fakeBroker) StockPrice(ctx context.Context, symbol string) Response {
	return Success(map[string]interface{}{"symbol": symbol})
}

func (f *fakeBroker) BuyMarket(ctx context.Context, symbol string, quantity decimal.Decimal) Response {
	return Success(map[string]interface{}{"symbol": symbol, "side": "buy"})
}

func (f *fakeBroker) SellMarket(ctx context.Context, symbol string, quantity decimal.Decimal) Response {
	return Success(map[string]interface{}{"symbol": symbol, "side": "sell"})
}

func TestRegistry_RegisterAndActiveDefault(t *testing.T) {
	registry := NewRegistry(nil)
	assert.Empty(t, registry.ActiveBroker())
	assert.Empty(t, registry.ListBrokers())

	registry.Register(newFakeBroker("robinhood", true, true))
	registry.Register(newFakeBroker("schwab", true, true))

	assert.Equal(t, "robinhood", registry.ActiveBroker())
	assert.Equal(t, []string{"robinhood", "schwab"}, registry.ListBrokers())
}

func TestRegistry_RegisterReplaceKeepsPosition(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register(newFakeBroker("robinhood", true, true))
	registry.Register(newFakeBroker("schwab", true, true))

	replacement := newFakeBroker("robinhood", false, false)
	registry.Register(replacement)

	assert.Equal(t, []string{"robinhood", "schwab"}, registry.ListBrokers())
	broker, ok := registry.GetBroker("robinhood")
	require.True(t, ok)
	assert.False(t, broker.IsConfigured())
}

func TestRegistry_GetBroker(t *testing.T) {
	registry := NewRegistry(nil)

	// Empty registry has no active broker to fall back to.
	_, ok := registry.GetBroker("")
	assert.False(t, ok)

	registry.Register(newFakeBroker("robinhood", true, true))

	broker, ok := registry.GetBroker("")
	require.True(t, ok)
	assert.Equal(t, "robinhood", broker.Name())

	broker, ok = registry.GetBroker("robinhood")
	require.True(t, ok)
	assert.Equal(t, "robinhood", broker.Name())

	_, ok = registry.GetBroker("fidelity")
	assert.False(t, ok)
}

func TestRegistry_GetBrokerOrError(t *testing.T) {
	registry := NewRegistry(nil)
	ready := newFakeBroker("robinhood", true, true)
	ready.MarkAuthenticated()
	registry.Register(ready)
	registry.Register(newFakeBroker("schwab", false, false))

	broker, errResp := registry.GetBrokerOrError("robinhood", "account_info")
	require.Nil(t, errResp)
	assert.Equal(t, "robinhood", broker.Name())

	broker, errResp = registry.GetBrokerOrError("fidelity", "account_info")
	assert.Nil(t, broker)
	require.NotNil(t, errResp)
	assert.Equal(t, ResultBrokerNotFound, errResp.Status())

	broker, errResp = registry.GetBrokerOrError("schwab", "account_info")
	assert.Nil(t, broker)
	require.NotNil(t, errResp)
	assert.Equal(t, ResultBrokerUnavailable, errResp.Status())
}

func TestRegistry_SetActiveBroker(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register(newFakeBroker("robinhood", true, true))
	registry.Register(newFakeBroker("schwab", true, true))

	assert.True(t, registry.SetActiveBroker("schwab"))
	assert.Equal(t, "schwab", registry.ActiveBroker())

	assert.False(t, registry.SetActiveBroker("fidelity"))
	assert.Equal(t, "schwab", registry.ActiveBroker())
}

func TestRegistry_AuthenticateAll(t *testing.T) {
	registry := NewRegistry(nil)
	good := newFakeBroker("robinhood", true, true)
	bad := newFakeBroker("schwab", true, false)
	unconfigured := newFakeBroker("fidelity", false, false)
	registry.Register(good)
	registry.Register(bad)
	registry.Register(unconfigured)

	results := registry.AuthenticateAll(context.Background(), false)

	assert.Equal(t, map[string]bool{
		"robinhood": true,
		"schwab":    false,
		"fidelity":  false,
	}, results)
	assert.Equal(t, 1, good.authCalls)
	assert.Equal(t, 1, bad.authCalls)
	assert.Equal(t, 0, unconfigured.authCalls)
	assert.Equal(t, 1, registry.AuthAttempts("robinhood"))
	assert.Equal(t, 0, registry.AuthAttempts("fidelity"))
	assert.Equal(t, []string{"robinhood"}, registry.AvailableBrokers())
}

func TestRegistry_AuthenticateAllFailFast(t *testing.T) {
	registry := NewRegistry(nil)
	failing := newFakeBroker("robinhood", true, false)
	never := newFakeBroker("schwab", true, true)
	registry.Register(failing)
	registry.Register(never)

	results := registry.AuthenticateAll(context.Background(), true)

	// Iteration stops at the first failure; later brokers have no entry.
	assert.Equal(t, map[string]bool{"robinhood": false}, results)
	assert.Equal(t, 0, never.authCalls)
}

func TestRegistry_AuthenticateAllContainsPanic(t *testing.T) {
	registry := NewRegistry(nil)
	panicking := newFakeBroker("robinhood", true, true)
	panicking.panicOnAuth = true
	healthy := newFakeBroker("schwab", true, true)
	registry.Register(panicking)
	registry.Register(healthy)

	results := registry.AuthenticateAll(context.Background(), false)

	assert.Equal(t, map[string]bool{"robinhood": false, "schwab": true}, results)
	info := panicking.AuthInfo()
	assert.Equal(t, StatusAuthFailed, info.Status)
	assert.Contains(t, info.ErrorMessage, "authenticate panicked")
	assert.True(t, healthy.IsAvailable())
}

func TestRegistry_EnsureAuthenticated(t *testing.T) {
	registry := NewRegistry(nil)
	broker := newFakeBroker("robinhood", true, true)
	registry.Register(broker)

	assert.False(t, registry.EnsureAuthenticated(context.Background(), "fidelity"))

	assert.True(t, registry.EnsureAuthenticated(context.Background(), "robinhood"))
	assert.Equal(t, 1, broker.authCalls)
	assert.Equal(t, 1, registry.AuthAttempts("robinhood"))

	// Already available: no second login is attempted.
	assert.True(t, registry.EnsureAuthenticated(context.Background(), "robinhood"))
	assert.Equal(t, 1, broker.authCalls)
	assert.Equal(t, 1, registry.AuthAttempts("robinhood"))
}

func TestRegistry_EnsureAuthenticatedNotConfigured(t *testing.T) {
	registry := NewRegistry(nil)
	broker := newFakeBroker("schwab", false, true)
	registry.Register(broker)

	assert.False(t, registry.EnsureAuthenticated(context.Background(), "schwab"))
	assert.Equal(t, 0, broker.authCalls)
}

func TestRegistry_EnsureAuthenticatedConcurrent(t *testing.T) {
	registry := NewRegistry(nil)
	broker := newFakeBroker("robinhood", true, true)
	registry.Register(broker)

	const callers = 8
	results := make([]bool, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot] = registry.EnsureAuthenticated(context.Background(), "robinhood")
		}(i)
	}
	wg.Wait()

	for i, ok := range results {
		assert.True(t, ok, "caller %d", i)
	}

	// The per-broker guard serializes re-authentication: the first
	// caller logs in, the rest observe the fresh state.
	assert.Equal(t, 1, broker.authCalls)
	assert.Equal(t, 1, registry.AuthAttempts("robinhood"))
}

func TestRegistry_AuthStatus(t *testing.T) {
	registry := NewRegistry(nil)
	ready := newFakeBroker("robinhood", true, true)
	ready.Authenticate(context.Background())
	registry.Register(ready)
	registry.Register(newFakeBroker("schwab", false, false))

	status := registry.AuthStatus()
	require.Len(t, status, 2)
	assert.Equal(t, "authenticated", status["robinhood"].Status)
	assert.True(t, status["robinhood"].IsAvailable)
	assert.Equal(t, "not_configured", status["schwab"].Status)
	assert.False(t, status["schwab"].IsConfigured)
}

func TestRegistry_LogoutAll(t *testing.T) {
	registry := NewRegistry(nil)
	first := newFakeBroker("robinhood", true, true)
	second := newFakeBroker("schwab", true, true)
	registry.Register(first)
	registry.Register(second)
	registry.AuthenticateAll(context.Background(), false)
	require.Len(t, registry.AvailableBrokers(), 2)

	registry.LogoutAll(context.Background())

	assert.Equal(t, 1, first.logoutCalls)
	assert.Equal(t, 1, second.logoutCalls)
	assert.Empty(t, registry.AvailableBrokers())
}

func TestRegistry_LogoutAllContainsPanic(t *testing.T) {
	registry := NewRegistry(nil)
	panicking := newFakeBroker("robinhood", true, true)
	panicking.panicOnLogout = true
	healthy := newFakeBroker("schwab", true, true)
	registry.Register(panicking)
	registry.Register(healthy)
	registry.AuthenticateAll(context.Background(), false)
	require.Len(t, registry.AvailableBrokers(), 2)

	registry.LogoutAll(context.Background())

	// The panicking adapter never reached MarkLoggedOut, but its
	// sibling still completed its own teardown.
	assert.Equal(t, 1, panicking.logoutCalls)
	assert.Equal(t, 1, healthy.logoutCalls)
	assert.Equal(t, StatusNotAuthenticated, healthy.AuthInfo().Status)
	assert.Equal(t, []string{"robinhood"}, registry.AvailableBrokers())
}
