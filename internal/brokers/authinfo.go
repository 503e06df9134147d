package brokers

import "time"

// AuthStatus enumerates the authentication lifecycle of a broker.
type AuthStatus string

const (
	// StatusNotConfigured means no credentials were provided.
	StatusNotConfigured AuthStatus = "not_configured"
	// StatusNotAuthenticated means credentials exist but no login happened yet.
	StatusNotAuthenticated AuthStatus = "not_authenticated"
	// StatusAuthenticating means a login is in progress.
	StatusAuthenticating AuthStatus = "authenticating"
	// StatusAuthenticated means the broker is logged in and usable.
	StatusAuthenticated AuthStatus = "authenticated"
	// StatusAuthFailed means the last login attempt was rejected.
	StatusAuthFailed AuthStatus = "auth_failed"
	// StatusTokenExpired means a previously valid session has lapsed.
	StatusTokenExpired AuthStatus = "token_expired"
	// StatusMFARequired means an interactive MFA step is pending.
	StatusMFARequired AuthStatus = "mfa_required"
)

// String returns the wire value of the status.
func (s AuthStatus) String() string {
	return string(s)
}

// AuthInfo captures authentication state and diagnostics for one broker.
// LastSuccessfulAuth is set only while the status is Authenticated;
// ErrorMessage is cleared on every transition into Authenticated or
// NotAuthenticated.
type AuthInfo struct {
	Status             AuthStatus
	BrokerName         string
	LastAuthAttempt    *time.Time
	LastSuccessfulAuth *time.Time
	ErrorMessage       string
	RequiresSetup      bool
	SetupInstructions  string
}

// AuthSnapshot is the JSON-facing form of AuthInfo used by status tools.
type AuthSnapshot struct {
	Status             string  `json:"status"`
	LastAuthAttempt    *string `json:"last_auth_attempt"`
	LastSuccessfulAuth *string `json:"last_successful_auth"`
	ErrorMessage       string  `json:"error_message,omitempty"`
	IsAvailable        bool    `json:"is_available"`
	IsConfigured       bool    `json:"is_configured"`
	RequiresSetup      bool    `json:"requires_setup"`
	SetupInstructions  string  `json:"setup_instructions,omitempty"`
}

// Snapshot serializes the auth info with ISO-8601 timestamps (nil when unset).
func (a AuthInfo) Snapshot() AuthSnapshot {
	return AuthSnapshot{
		Status:             a.Status.String(),
		LastAuthAttempt:    isoTime(a.LastAuthAttempt),
		LastSuccessfulAuth: isoTime(a.LastSuccessfulAuth),
		ErrorMessage:       a.ErrorMessage,
		IsAvailable:        a.Status == StatusAuthenticated,
		IsConfigured:       a.Status != StatusNotConfigured,
		RequiresSetup:      a.RequiresSetup,
		SetupInstructions:  a.SetupInstructions,
	}
}

func isoTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
