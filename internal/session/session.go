// Package session persists the authentication token and user profile.
// Exactly one session exists per user; it is created by login, read by
// every network operation and destroyed by logout.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotAuthenticated is returned when an operation needs a session and
// none is stored. Callers must not attempt the network call and should
// direct the user to `assist login`.
var ErrNotAuthenticated = errors.New("not authenticated: run `assist login`")

// Profile holds the minimal user profile returned by the backend.
type Profile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Initials returns the user's uppercase initials for the TUI header,
// or "?" when no profile is stored.
func (p Profile) Initials() string {
	first, last := "", ""
	for _, r := range p.FirstName {
		first = string(r)
		break
	}
	for _, r := range p.LastName {
		last = string(r)
		break
	}
	if first == "" && last == "" {
		return "?"
	}
	s := first + last
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}

// Session is the stored authentication state.
type Session struct {
	Token   string   `json:"token"`
	Profile *Profile `json:"profile,omitempty"`
}

// Provider exposes the current session to components that make network
// calls. Stores and clients take a Provider rather than reading ambient
// state.
type Provider interface {
	// Get returns the current session, or false when logged out.
	Get() (Session, bool)
}

// Store is a file-backed session Provider.
type Store struct {
	mu      sync.RWMutex
	path    string
	current *Session
	loaded  bool
}

// NewStore creates a store persisting to path (normally
// config.Dir()/session.json).
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the conventional session file location inside the
// given config directory.
func DefaultPath(configDir string) string {
	return filepath.Join(configDir, "session.json")
}

// Get returns the stored session. The file is read lazily once and then
// served from memory.
func (s *Store) Get() (Session, bool) {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		if s.current == nil || s.current.Token == "" {
			return Session{}, false
		}
		return *s.current, true
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.current = readFile(s.path)
		s.loaded = true
	}
	if s.current == nil || s.current.Token == "" {
		return Session{}, false
	}
	return *s.current, true
}

// Set stores a new session and persists it.
func (s *Store) Set(sess Session) error {
	if sess.Token == "" {
		return fmt.Errorf("refusing to store session without token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := json.MarshalIndent(&sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	// 0600: the token is a credential.
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	s.current = &sess
	s.loaded = true
	return nil
}

// Clear removes every persisted session field. Missing file is not an
// error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	s.loaded = true
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

func readFile(path string) *Session {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// Corrupt session file: treat as logged out.
		return nil
	}
	return &sess
}

// Static is a fixed in-memory Provider, used by tests and one-shot CLI
// commands that already hold a token.
type Static struct {
	Session Session
}

func (s Static) Get() (Session, bool) {
	return s.Session, s.Session.Token != ""
}
