// Package client implements the Dardasha chat client: session storage, the
// HTTP API, the real-time event channel, and the engine that drives the UI.
package client

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/phvlvck/dardasha/pkg/model"
)

// SessionStore persists the login session as YAML next to the binary.
// Exactly two values, kept until logout; no expiry is enforced here — a
// revoked token only surfaces when a server call fails.
type SessionStore struct {
	path string
}

type sessionFile struct {
	Token    string `yaml:"token"`
	Username string `yaml:"username"`
}

// NewSessionStore creates a session store using a file next to the executable.
func NewSessionStore() *SessionStore {
	exePath, err := os.Executable()
	if err != nil {
		exePath = "."
	}
	return &SessionStore{
		path: filepath.Join(filepath.Dir(exePath), "session.yaml"),
	}
}

// NewSessionStoreAt creates a session store backed by the given file path.
func NewSessionStoreAt(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Set persists the token and display name, replacing any previous session.
func (s *SessionStore) Set(token, username string) error {
	data, err := yaml.Marshal(sessionFile{Token: token, Username: username})
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Get returns the stored session. The second return is false when no
// session is stored or the stored one has no token.
func (s *SessionStore) Get() (model.Session, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return model.Session{}, false
	}
	var f sessionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return model.Session{}, false
	}
	if f.Token == "" {
		return model.Session{}, false
	}
	return model.Session{Token: f.Token, Username: f.Username}, true
}

// Clear removes the stored session. Removing an absent session is not an
// error.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
