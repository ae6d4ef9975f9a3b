// internal/session/cookie.go
//
// Cookie and context helpers.
//
// Context
//   The cookie carries nothing but the opaque session id.  Tokens never
//   leave the server.  Downstream handlers read the session from the
//   request context once Require has resolved it.
//
// Usage
// -----
//     s := store.Create(res.User, res.Tokens)
//     session.Attach(w, r, s.ID, ttl)
//
//     // later, behind Require:
//     s := session.FromContext(r.Context())
//
//------------------------------------------------------------------------------

package session

import (
	"context"
	"net/http"
	"time"
)

// CookieName is the session cookie.
const CookieName = "pesquisa_session"

// Attach sets the session cookie.
func Attach(w http.ResponseWriter, r *http.Request, id string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil, // only send over HTTPS
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ttl),
	})
}

// Detach clears the session cookie.
func Detach(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// FromRequest resolves the cookie against st.
func FromRequest(r *http.Request, st *Store) (*Session, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil, ErrNotFound
	}
	return st.Get(c.Value)
}

// sessionKey is unexported to avoid context-key collisions.
type sessionKey struct{}

// WithSession returns a new context carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored by WithSession, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}
