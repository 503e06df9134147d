package schwab

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"openstocks/pkg/errors"
)

// Token is the persisted OAuth token set. The file is produced by an
// interactive authorization run and refreshed in place afterwards.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Scope        string    `json:"scope"`
	ExpiresAt    time.Time `json:"expires_at"`
	// RefreshIssuedAt tracks the seven-day refresh token lifetime.
	RefreshIssuedAt time.Time `json:"refresh_issued_at"`
}

func (t *Token) Valid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return time.Now().Add(time.Minute).Before(t.ExpiresAt)
}

// Refreshable reports whether the refresh token is still inside its
// seven-day window.
func (t *Token) Refreshable() bool {
	if t == nil || t.RefreshToken == "" {
		return false
	}
	if t.RefreshIssuedAt.IsZero() {
		return true
	}
	return time.Since(t.RefreshIssuedAt) < 7*24*time.Hour
}

// TokenStore reads and writes the token file.
type TokenStore struct {
	path string
}

func NewTokenStore(path, fallbackDir string) *TokenStore {
	if path == "" {
		path = filepath.Join(fallbackDir, "schwab_token.json")
	}
	return &TokenStore{path: path}
}

func (s *TokenStore) Path() string { return s.path }

// Load returns nil without error when no token file exists yet.
func (s *TokenStore) Load() (*Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read schwab token")
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, errors.Wrap(err, "decode schwab token")
	}
	return &token, nil
}

func (s *TokenStore) Save(token *Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode schwab token")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "create token dir")
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return errors.Wrap(err, "write schwab token")
	}
	return nil
}

func (s *TokenStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove schwab token")
	}
	return nil
}
