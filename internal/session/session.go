// internal/session/session.go
//
// Pesquisa – operator session.
//
// Context
//   The dashboard talks to the backend with the operator's access/refresh
//   token pair.  Those credentials live in one explicit Session object per
//   login rather than in globals:
//
//      Create (login) → SetTokens (refresh) → Clear (logout or refresh
//      exhausted) → gone from the Store
//
//   A Session satisfies api.TokenSource, so the auth transport refreshes and
//   clears it directly.  Browsers only ever see an opaque id in a cookie.
//
// Notes
//   •  ExpiresAt is read from the access token's `exp` claim without
//      verifying the signature.  The backend is the authority; we only use
//      the value to show the operator when the token lapses.
//   •  Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yanizio/pesquisa/internal/api"
)

// Session is one logged-in operator.
type Session struct {
	ID string

	mu        sync.RWMutex
	user      api.User
	tokens    api.Tokens
	expiresAt time.Time
	lastSeen  time.Time
}

func newSession(id string, u api.User, t api.Tokens) *Session {
	s := &Session{ID: id, user: u, lastSeen: time.Now()}
	s.SetTokens(t)
	return s
}

// User returns the operator.
func (s *Session) User() api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// SetUser replaces the operator, e.g. after the backend re-verified the
// token.
func (s *Session) SetUser(u api.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

// ExpiresAt returns the access token's expiry, zero when unknown.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Authenticated reports whether the session still holds an access token.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Access != ""
}

// Tokens implements api.TokenSource.
func (s *Session) Tokens() api.Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// SetTokens implements api.TokenSource.
func (s *Session) SetTokens(t api.Tokens) {
	exp := tokenExpiry(t.Access)
	s.mu.Lock()
	s.tokens = t
	s.expiresAt = exp
	s.mu.Unlock()
}

// Clear implements api.TokenSource.  A cleared session is dropped by the
// Store on next lookup.
func (s *Session) Clear() {
	s.mu.Lock()
	s.tokens = api.Tokens{}
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idle(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastSeen)
}

// tokenExpiry reads `exp` from a JWT without verifying it.
func tokenExpiry(access string) time.Time {
	if access == "" {
		return time.Time{}
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
