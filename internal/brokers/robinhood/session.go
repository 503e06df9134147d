package robinhood

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"openstocks/pkg/crypto"
	"openstocks/pkg/errors"
)

// Session holds the OAuth tokens issued by the Robinhood token endpoint.
// The device token is generated once per installation and reused so the
// service is not challenged on every login.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	DeviceToken  string    `json:"device_token"`
}

// Valid reports whether the session holds a non-expired access token.
// A one-minute safety margin avoids using a token about to lapse mid-call.
func (s *Session) Valid() bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	return time.Now().Add(time.Minute).Before(s.ExpiresAt)
}

// SessionStore persists sessions to disk, encrypted when an encryptor is
// configured.
type SessionStore struct {
	path      string
	encryptor *crypto.Encryptor
}

// NewSessionStore creates a store writing to dir/robinhood_session.json.
func NewSessionStore(dir string, encryptor *crypto.Encryptor) *SessionStore {
	return &SessionStore{
		path:      filepath.Join(dir, "robinhood_session.json"),
		encryptor: encryptor,
	}
}

// Load reads the cached session. A missing file is not an error; it
// returns (nil, nil).
func (s *SessionStore) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read session file")
	}

	if s.encryptor != nil {
		plain, err := s.encryptor.Decrypt(data)
		if err != nil {
			return nil, errors.Wrap(err, "decrypt session file")
		}
		data = []byte(plain)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrap(err, "parse session file")
	}
	return &session, nil
}

// Save writes the session, creating the token directory if needed.
func (s *SessionStore) Save(session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}

	if s.encryptor != nil {
		data, err = s.encryptor.EncryptBytes(data)
		if err != nil {
			return errors.Wrap(err, "encrypt session")
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "create token dir")
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return errors.Wrap(err, "write session file")
	}
	return nil
}

// Clear removes the cached session. Missing files are ignored.
func (s *SessionStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove session file")
	}
	return nil
}
