package brokers

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Base carries the name and auth state shared by every broker adapter.
// Adapters embed it and drive transitions through the Mark helpers; all
// state access is mutex-guarded so tool-call-time reads are safe against
// a concurrent re-authentication.
type Base struct {
	name string

	mu   sync.RWMutex
	auth AuthInfo
}

// NewBase constructs broker state in the NotConfigured status.
func NewBase(name string) Base {
	return Base{
		name: name,
		auth: AuthInfo{
			Status:     StatusNotConfigured,
			BrokerName: name,
		},
	}
}

// Name returns the stable lowercase broker identifier.
func (b *Base) Name() string {
	return b.name
}

// AuthInfo returns a copy of the current authentication state.
func (b *Base) AuthInfo() AuthInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.auth
}

// IsAvailable reports whether the broker is authenticated and ready.
func (b *Base) IsAvailable() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.auth.Status == StatusAuthenticated
}

// IsConfigured reports whether credentials were supplied at construction.
func (b *Base) IsConfigured() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.auth.Status != StatusNotConfigured
}

// SetNotConfigured records missing credentials with optional setup guidance.
func (b *Base) SetNotConfigured(setupInstructions string, requiresSetup bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.auth.Status = StatusNotConfigured
	b.auth.SetupInstructions = setupInstructions
	b.auth.RequiresSetup = requiresSetup
}

// SetConfigured transitions NotConfigured into NotAuthenticated.
func (b *Base) SetConfigured() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.auth.Status = StatusNotAuthenticated
}

// SetConfigurationError records credentials that are present but unusable.
func (b *Base) SetConfigurationError(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.auth.Status = StatusNotConfigured
	b.auth.ErrorMessage = message
}

// BeginAuth stamps the attempt time and moves into Authenticating.
func (b *Base) BeginAuth() {
	now := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.auth.LastAuthAttempt = &now
	b.auth.Status = StatusAuthenticating
}

// MarkAuthenticated records a successful login and clears any prior error.
func (b *Base) MarkAuthenticated() {
	now := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.auth.Status = StatusAuthenticated
	b.auth.LastSuccessfulAuth = &now
	b.auth.ErrorMessage = ""
}

// MarkAuthFailed records a rejected or errored login.
func (b *Base) MarkAuthFailed(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.auth.Status = StatusAuthFailed
	b.auth.ErrorMessage = message
}

// MarkMFARequired records a pending interactive MFA step.
func (b *Base) MarkMFARequired(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.auth.Status = StatusMFARequired
	b.auth.ErrorMessage = message
}

// MarkTokenExpired downgrades an authenticated broker whose session lapsed.
// Only applied when currently Authenticated.
func (b *Base) MarkTokenExpired(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.auth.Status != StatusAuthenticated {
		return
	}
	b.auth.Status = StatusTokenExpired
	b.auth.ErrorMessage = message
}

// MarkLoggedOut resets to NotAuthenticated and clears the error, whatever
// the prior status.
func (b *Base) MarkLoggedOut() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.auth.Status = StatusNotAuthenticated
	b.auth.ErrorMessage = ""
}

// UnavailableResponse builds the standardized error payload for a broker
// that cannot serve the given operation, keyed off its current status.
func (b *Base) UnavailableResponse(operation string) Response {
	b.mu.RLock()
	auth := b.auth
	b.mu.RUnlock()

	title := titleCase(b.name)
	var message string

	switch auth.Status {
	case StatusNotConfigured:
		message = fmt.Sprintf(
			"%s is not configured. Please set %s_USERNAME and %s_PASSWORD environment variables.",
			title, strings.ToUpper(b.name), strings.ToUpper(b.name),
		)
		if auth.SetupInstructions != "" {
			message += "\n\nSetup: " + auth.SetupInstructions
		}
	case StatusAuthFailed:
		message = fmt.Sprintf("%s authentication failed: %s", title, auth.ErrorMessage)
	case StatusTokenExpired:
		message = fmt.Sprintf("%s session expired. Please restart the server to re-authenticate.", title)
	case StatusMFARequired:
		message = fmt.Sprintf("%s requires MFA verification. Please complete authentication and restart server.", title)
	case StatusAuthenticating:
		message = fmt.Sprintf("%s authentication in progress. Please try again.", title)
	default:
		message = fmt.Sprintf("%s is not available for %s.", title, operation)
	}

	return Response{
		"result": map[string]interface{}{
			"error":          message,
			"status":         ResultBrokerUnavailable,
			"broker":         b.name,
			"auth_status":    auth.Status.String(),
			"requires_setup": auth.RequiresSetup,
		},
	}
}

func titleCase(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
