// Package session holds the signed-in user of a client process.
package session

import (
	"sync"

	"github.com/noah-isme/hostel-out-api/internal/models"
)

// Session is the identity a client acts as.
type Session struct {
	UserID       string          `json:"user_id"`
	Role         models.UserRole `json:"role"`
	Email        string          `json:"email"`
	FullName     string          `json:"full_name"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
}

// Holder keeps the current session for the lifetime of the process. It is
// safe for concurrent use.
type Holder struct {
	mu      sync.RWMutex
	current *Session
	store   Store
}

// Store persists a session between processes.
type Store interface {
	Load() (*Session, error)
	Save(Session) error
	Clear() error
}

// NewHolder returns an empty holder. A nil store keeps the session in memory only.
func NewHolder(store Store) *Holder {
	return &Holder{store: store}
}

// Restore loads a previously saved session from the store, if any.
func (h *Holder) Restore() error {
	if h.store == nil {
		return nil
	}
	s, err := h.store.Load()
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.current = s
	h.mu.Unlock()
	return nil
}

// Set replaces the current session. Nothing changes when the store fails.
func (h *Holder) Set(s Session) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.store != nil {
		if err := h.store.Save(s); err != nil {
			return err
		}
	}
	h.current = &s
	return nil
}

// Current returns a copy of the session and whether one is set.
func (h *Holder) Current() (Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return Session{}, false
	}
	return *h.current, true
}

// IsLoggedIn reports whether a session with an access token is held.
func (h *Holder) IsLoggedIn() bool {
	s, ok := h.Current()
	return ok && s.AccessToken != ""
}

// UpdateTokens swaps the tokens after a refresh, keeping the identity. The
// held tokens are untouched when the store fails.
func (h *Holder) UpdateTokens(access, refresh string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return nil
	}
	s := *h.current
	s.AccessToken = access
	s.RefreshToken = refresh
	if h.store != nil {
		if err := h.store.Save(s); err != nil {
			return err
		}
	}
	h.current = &s
	return nil
}

// Clear forgets the session.
func (h *Holder) Clear() error {
	h.mu.Lock()
	h.current = nil
	h.mu.Unlock()
	if h.store != nil {
		return h.store.Clear()
	}
	return nil
}
