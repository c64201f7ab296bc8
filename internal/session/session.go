// Package session holds the authenticated session shared by the HTTP and
// socket clients. The token is opaque to this client; a 401 anywhere
// invalidates the session once and notifies subscribers.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is returned by clients once the session has been invalidated.
var ErrInvalid = errors.New("session invalid")

// Session is the explicit session context injected into the REST and socket
// clients instead of ambient global state.
type Session struct {
	mu           sync.RWMutex
	token        string
	userID       string
	username     string
	valid        bool
	onInvalidate []func(reason string)
}

// New creates a session from a persisted token and identity.
func New(token, userID, username string) *Session {
	return &Session{
		token:    token,
		userID:   userID,
		username: username,
		valid:    token != "",
	}
}

// Token returns the bearer token, or "" after invalidation.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// UserID returns the signed-in user's id.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Username returns the signed-in user's display name.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Valid reports whether the session is still usable.
func (s *Session) Valid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valid
}

// OnInvalidate registers a hook fired exactly once when the session dies.
// The auth layer uses this to clear persisted state and route to login.
func (s *Session) OnInvalidate(fn func(reason string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onInvalidate = append(s.onInvalidate, fn)
}

// Invalidate clears the token and fires hooks. Idempotent.
func (s *Session) Invalidate(reason string) {
	s.mu.Lock()
	if !s.valid {
		s.mu.Unlock()
		return
	}
	s.valid = false
	s.token = ""
	hooks := s.onInvalidate
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(reason)
	}
}

// ExpiresAt probes the token for a JWT exp claim without verifying the
// signature (verification is the server's job). Returns false for opaque
// tokens or tokens without an expiry.
func (s *Session) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired reports whether the token carries an exp claim in the past.
func (s *Session) Expired(now time.Time) bool {
	exp, ok := s.ExpiresAt()
	return ok && exp.Before(now)
}
