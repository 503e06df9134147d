package brokers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObserver struct {
	attempts  map[string]bool
	available []int
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{attempts: make(map[string]bool)}
}

func (o *fakeObserver) ObserveAuthAttempt(broker string, success bool) {
	o.attempts[broker] = success
}

func (o *fakeObserver) SetAvailableBrokers(count int) {
	o.available = append(o.available, count)
}

func TestCoordinator_AttemptBrokerLoginsEmptyRegistry(t *testing.T) {
	coordinator := NewCoordinator(NewRegistry(nil), nil)

	successful, total, failed := coordinator.AttemptBrokerLogins(context.Background(), true)

	assert.Zero(t, successful)
	assert.Zero(t, total)
	assert.Empty(t, failed)
}

func TestCoordinator_AttemptBrokerLoginsMixedOutcomes(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register(newFakeBroker("robinhood", true, true))
	registry.Register(newFakeBroker("schwab", true, false))
	registry.Register(newFakeBroker("fidelity", false, false))
	coordinator := NewCoordinator(registry, nil)

	successful, total, failed := coordinator.AttemptBrokerLogins(context.Background(), false)

	assert.Equal(t, 1, successful)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"schwab", "fidelity"}, failed)
}

func TestCoordinator_AttemptBrokerLoginsAllSucceed(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register(newFakeBroker("robinhood", true, true))
	registry.Register(newFakeBroker("schwab", true, true))
	coordinator := NewCoordinator(registry, nil)

	successful, total, failed := coordinator.AttemptBrokerLogins(context.Background(), true)

	assert.Equal(t, 2, successful)
	assert.Equal(t, 2, total)
	assert.Empty(t, failed)
}

func TestCoordinator_ObserverNotifications(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register(newFakeBroker("robinhood", true, true))
	registry.Register(newFakeBroker("schwab", true, false))
	coordinator := NewCoordinator(registry, nil)
	observer := newFakeObserver()
	coordinator.SetObserver(observer)

	coordinator.AttemptBrokerLogins(context.Background(), false)

	assert.Equal(t, map[string]bool{"robinhood": true, "schwab": false}, observer.attempts)
	require.NotEmpty(t, observer.available)
	assert.Equal(t, 1, observer.available[len(observer.available)-1])

	coordinator.LogoutAll(context.Background())
	assert.Equal(t, 0, observer.available[len(observer.available)-1])
}

func TestCoordinator_AuthenticatedBrokerOrError(t *testing.T) {
	registry := NewRegistry(nil)
	ready := newFakeBroker("robinhood", true, true)
	ready.Authenticate(context.Background())
	registry.Register(ready)
	coordinator := NewCoordinator(registry, nil)

	broker, errResp := coordinator.AuthenticatedBrokerOrError("", "portfolio")
	require.Nil(t, errResp)
	assert.Equal(t, "robinhood", broker.Name())

	broker, errResp = coordinator.AuthenticatedBrokerOrError("fidelity", "portfolio")
	assert.Nil(t, broker)
	require.NotNil(t, errResp)
	assert.Equal(t, ResultBrokerNotFound, errResp.Status())
}

func TestCoordinator_UnauthenticatedResponse(t *testing.T) {
	coordinator := NewCoordinator(NewRegistry(nil), nil)

	resp := coordinator.UnauthenticatedResponse("robinhood")
	result := resp.Result()
	require.NotNil(t, result)
	assert.Equal(t, ResultNoAuthenticatedBrokers, result["status"])
	assert.Equal(t,
		"Robinhood is not available. Please check authentication status with the 'broker_status' tool.",
		result["error"])
	assert.Equal(t, "Check logs for authentication errors or run 'broker_status' tool", result["help"])

	resp = coordinator.UnauthenticatedResponse("")
	assert.Equal(t,
		"No authenticated brokers available. Please check authentication status with the 'broker_status' tool.",
		resp.ErrorMessage())
}
