package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openstocks/internal/brokers"
	"openstocks/pkg/logger"
)

func logTest() *logger.Logger { return logger.Get() }

type stubBroker struct {
	brokers.Base
}

func newStubBroker(name string, available bool) *stubBroker {
	b := &stubBroker{Base: brokers.NewBase(name)}
	b.SetConfigured()
	if available {
		b.MarkAuthenticated()
	}
	return b
}

func (b *stubBroker) Authenticate(ctx context.Context) bool    { return b.IsAvailable() }
func (b *stubBroker) IsAuthenticated(ctx context.Context) bool { return b.IsAvailable() }
func (b *stubBroker) Logout(ctx context.Context)               { b.MarkLoggedOut() }

func (b *stubBroker) AccountInfo(ctx context.Context) brokers.Response { return brokers.Success(nil) }
func (b *stubBroker) Portfolio(ctx context.Context) brokers.Response   { return brokers.Success(nil) }
func (b *stubBroker) Positions(ctx context.Context) brokers.Response   { return brokers.Success(nil) }
func (b *stubBroker) StockQuote(ctx context.Context, symbol string) brokers.Response {
	return brokers.Success(nil)
}
func (b *stubBroker) StockPrice(ctx context.Context, symbol string) brokers.Response {
	return brokers.Success(nil)
}
func (b *stubBroker) BuyMarket(ctx context.Context, symbol string, quantity decimal.Decimal) brokers.Response {
	return brokers.Success(nil)
}
func (b *stubBroker) SellMarket(ctx context.Context, symbol string, quantity decimal.Decimal) brokers.Response {
	return brokers.Success(nil)
}

type stubChecker struct {
	err error
}

func (c *stubChecker) Health(ctx context.Context) error { return c.err }

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) HealthStatus {
	t.Helper()
	var status HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	return status
}

func TestHandleLiveness(t *testing.T) {
	handler := New(logTest(), brokers.NewRegistry(nil), nil, "openstocks", "1.0.0")

	rec := httptest.NewRecorder()
	handler.HandleLiveness(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}

func TestHandleReadiness_NoBrokers(t *testing.T) {
	registry := brokers.NewRegistry(nil)
	registry.Register(newStubBroker("robinhood", false))
	handler := New(logTest(), registry, nil, "openstocks", "1.0.0")

	rec := httptest.NewRecorder()
	handler.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	status := decodeStatus(t, rec)
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "unhealthy", status.Checks["brokers"].Status)
	assert.Equal(t, "disabled", status.Checks["redis"].Status)
}

func TestHandleReadiness_Ready(t *testing.T) {
	registry := brokers.NewRegistry(nil)
	registry.Register(newStubBroker("robinhood", true))
	handler := New(logTest(), registry, nil, "openstocks", "1.0.0")

	rec := httptest.NewRecorder()
	handler.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	status := decodeStatus(t, rec)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "openstocks", status.Service)
}

func TestHandleReadiness_RedisDownDoesNotBlock(t *testing.T) {
	registry := brokers.NewRegistry(nil)
	registry.Register(newStubBroker("robinhood", true))
	redis := &stubChecker{err: context.DeadlineExceeded}
	handler := New(logTest(), registry, redis, "openstocks", "1.0.0")

	rec := httptest.NewRecorder()
	handler.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	status := decodeStatus(t, rec)
	assert.Equal(t, "unhealthy", status.Checks["redis"].Status)
}

func TestHandleHealth_Degraded(t *testing.T) {
	registry := brokers.NewRegistry(nil)
	registry.Register(newStubBroker("robinhood", true))
	registry.Register(newStubBroker("schwab", false))
	redis := &stubChecker{err: context.DeadlineExceeded}
	handler := New(logTest(), registry, redis, "openstocks", "1.0.0")

	rec := httptest.NewRecorder()
	handler.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	status := decodeStatus(t, rec)
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "some brokers unavailable", status.Checks["brokers"].Detail)
}

func TestHandleHealth_Unhealthy(t *testing.T) {
	registry := brokers.NewRegistry(nil)
	registry.Register(newStubBroker("robinhood", false))
	handler := New(logTest(), registry, nil, "openstocks", "1.0.0")

	rec := httptest.NewRecorder()
	handler.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	status := decodeStatus(t, rec)
	assert.Equal(t, "unhealthy", status.Status)
}
