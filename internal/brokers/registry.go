package brokers

import (
	"context"
	"fmt"
	"sync"

	"openstocks/pkg/logger"
)

// statusMutator is satisfied by adapters embedding Base. The registry uses
// it as a second line of defense when an adapter panics despite the
// Authenticate contract.
type statusMutator interface {
	MarkAuthFailed(message string)
}

// Registry owns all broker instances and the active default selection.
//
// Mutation (Register, SetActiveBroker, AuthenticateAll) is expected during
// startup and admin operations; tool-call-time lookups only read state and
// are safe from many concurrent invocations.
type Registry struct {
	log *logger.Logger

	mu       sync.RWMutex
	brokers  map[string]Broker
	order    []string
	active   string
	attempts map[string]int

	// Per-broker re-authentication guards for EnsureAuthenticated.
	authMu map[string]*sync.Mutex
}

// NewRegistry constructs an empty broker registry.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Get()
	}
	return &Registry{
		log:      log.With("component", "broker_registry"),
		brokers:  make(map[string]Broker),
		attempts: make(map[string]int),
		authMu:   make(map[string]*sync.Mutex),
	}
}

// Register inserts or replaces a broker by name. The first registered
// broker becomes the active default; replacing keeps the original
// registration position.
func (r *Registry) Register(broker Broker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := broker.Name()
	r.log.Infof("Registering broker: %s", name)

	if _, exists := r.brokers[name]; !exists {
		r.order = append(r.order, name)
		r.attempts[name] = 0
		r.authMu[name] = &sync.Mutex{}
	}
	r.brokers[name] = broker

	if r.active == "" {
		r.active = name
		r.log.Infof("Set active broker: %s", name)
	}
}

// GetBroker resolves a broker by name, or the active broker when name is
// empty. The second return is false when no broker matches; callers
// distinguish "not found" from "found but unavailable".
func (r *Registry) GetBroker(name string) (Broker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.active
	}
	if name == "" {
		r.log.Warn("No active broker set")
		return nil, false
	}

	broker, ok := r.brokers[name]
	if !ok {
		r.log.Warnf("Broker not found: %s", name)
		return nil, false
	}
	return broker, true
}

// GetBrokerOrError resolves a broker and verifies availability. It returns
// (broker, nil) when ready, or (nil, payload) carrying either the
// broker_not_found envelope or the broker's own unavailable response.
func (r *Registry) GetBrokerOrError(name, operation string) (Broker, Response) {
	broker, ok := r.GetBroker(name)
	if !ok {
		return nil, NotFound(name)
	}
	if !broker.IsAvailable() {
		return nil, broker.UnavailableResponse(operation)
	}
	return broker, nil
}

// SetActiveBroker switches the active default. Returns false without
// mutation when the name is not registered.
func (r *Registry) SetActiveBroker(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.brokers[name]; !ok {
		r.log.Errorf("Cannot set active broker - not registered: %s", name)
		return false
	}
	r.active = name
	r.log.Infof("Active broker changed to: %s", name)
	return true
}

// ActiveBroker returns the name of the active default, or "".
func (r *Registry) ActiveBroker() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// ListBrokers returns all registered broker names in registration order.
func (r *Registry) ListBrokers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// AvailableBrokers returns the names of brokers that are authenticated.
func (r *Registry) AvailableBrokers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	available := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if r.brokers[name].IsAvailable() {
			available = append(available, name)
		}
	}
	return available
}

// AuthStatus returns a point-in-time auth snapshot for every broker.
func (r *Registry) AuthStatus() map[string]AuthSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := make(map[string]AuthSnapshot, len(r.brokers))
	for name, broker := range r.brokers {
		status[name] = broker.AuthInfo().Snapshot()
	}
	return status
}

// AuthenticateAll authenticates every registered broker sequentially in
// registration order. Unconfigured brokers are skipped and recorded as
// false. Adapter panics are contained: the broker is marked AuthFailed and
// iteration continues unless failFast is set, in which case iteration
// stops at the first configured-but-failed broker and later brokers have
// no entry in the result. Never returns an error.
func (r *Registry) AuthenticateAll(ctx context.Context, failFast bool) map[string]bool {
	r.log.Info("Starting authentication for all registered brokers")

	r.mu.RLock()
	order := make([]string, len(r.order))
	copy(order, r.order)
	r.mu.RUnlock()

	results := make(map[string]bool, len(order))

	for _, name := range order {
		broker, ok := r.GetBroker(name)
		if !ok {
			continue
		}

		if !broker.IsConfigured() {
			r.log.Warnf("Broker %s not configured - skipping authentication", name)
			results[name] = false
			continue
		}

		r.log.Infof("Authenticating broker: %s", name)
		r.mu.Lock()
		r.attempts[name]++
		r.mu.Unlock()

		success := r.safeAuthenticate(ctx, broker)
		results[name] = success

		if success {
			r.log.Infof("Broker %s authenticated successfully", name)
			continue
		}

		r.log.Warnf("Broker %s authentication failed: %s", name, broker.AuthInfo().ErrorMessage)
		if failFast {
			r.log.Error("Fail-fast enabled, stopping authentication")
			break
		}
	}

	successful := 0
	for _, ok := range results {
		if ok {
			successful++
		}
	}
	total := len(results)
	r.log.Infof("Authentication complete: %d/%d brokers authenticated", successful, total)

	if successful == 0 && total > 0 {
		r.log.Warn("No brokers authenticated - running in limited mode")
	} else if successful < total {
		r.log.Warnf("Partial authentication - %d broker(s) unavailable", total-successful)
	}

	return results
}

// safeAuthenticate invokes Authenticate inside a panic boundary. Correct
// adapters never panic; this keeps a misbehaving one from aborting the
// sequential loop.
func (r *Registry) safeAuthenticate(ctx context.Context, broker Broker) (success bool) {
	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("authenticate panicked: %v", rec)
			r.log.Errorf("Broker %s %s", broker.Name(), msg)
			if m, ok := broker.(statusMutator); ok {
				m.MarkAuthFailed(msg)
			}
			success = false
		}
	}()
	return broker.Authenticate(ctx)
}

// EnsureAuthenticated re-authenticates a specific broker if needed. At
// most one re-authentication runs per broker at a time; concurrent
// callers wait and then observe the fresh state instead of triggering a
// duplicate login.
func (r *Registry) EnsureAuthenticated(ctx context.Context, name string) bool {
	broker, ok := r.GetBroker(name)
	if !ok {
		r.log.Errorf("Cannot authenticate unknown broker: %s", name)
		return false
	}

	if broker.IsAvailable() {
		return true
	}
	if !broker.IsConfigured() {
		r.log.Warnf("Cannot authenticate %s - not configured", name)
		return false
	}

	r.mu.RLock()
	guard := r.authMu[broker.Name()]
	r.mu.RUnlock()
	if guard != nil {
		guard.Lock()
		defer guard.Unlock()
	}

	if broker.IsAvailable() {
		return true
	}

	r.log.Infof("Re-authenticating broker: %s", name)
	r.mu.Lock()
	r.attempts[broker.Name()]++
	r.mu.Unlock()

	return r.safeAuthenticate(ctx, broker)
}

// AuthAttempts returns how many times authentication was attempted for a
// broker through this registry.
func (r *Registry) AuthAttempts(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.attempts[name]
}

// LogoutAll logs out every registered broker concurrently. Logouts are
// independent teardown calls; a panic or failure in one does not prevent
// the others from completing.
func (r *Registry) LogoutAll(ctx context.Context) {
	r.log.Info("Logging out all brokers")

	r.mu.RLock()
	targets := make([]Broker, 0, len(r.order))
	for _, name := range r.order {
		targets = append(targets, r.brokers[name])
	}
	r.mu.RUnlock()

	var wg sync.WaitGroup
	for _, broker := range targets {
		wg.Add(1)
		go func(b Broker) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Errorf("Error logging out %s: %v", b.Name(), rec)
				}
			}()
			b.Logout(ctx)
			r.log.Infof("Broker %s logged out", b.Name())
		}(broker)
	}
	wg.Wait()
}
