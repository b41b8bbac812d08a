package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// Token is what a sign-in leaves on disk.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	APIURL       string    `json:"api_url,omitempty"`
}

// Store keeps the token in a single JSON file readable only by the owner.
type Store struct {
	path string
}

func NewStore(path string) *Store { return &Store{path: path} }

// DefaultPath is session.json under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "locate config dir")
	}
	return filepath.Join(dir, "profile-admin", "session.json"), nil
}

// Path returns the file location.
func (s *Store) Path() string { return s.path }

// Load reads the token. A missing file is ErrNoSession.
func (s *Store) Load() (*Token, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, errors.Wrap(err, "read session file")
	}
	var t Token
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, errors.Wrap(err, "decode session file")
	}
	if t.AccessToken == "" {
		return nil, ErrNoSession
	}
	return &t, nil
}

// Save writes the token with 0600 permissions, replacing any previous one.
func (s *Store) Save(t Token) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "create session dir")
	}
	raw, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.Wrap(err, "write session file")
	}
	return errors.Wrap(os.Rename(tmp, s.path), "replace session file")
}

// Clear removes the file. Clearing a missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove session file")
	}
	return nil
}
