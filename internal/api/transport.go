// internal/api/transport.go
//
// Bearer-token RoundTripper with one refresh-and-retry on 401.
//
// Context
//   Dashboard requests carry the operator's access token.  When the backend
//   answers 401 the transport trades the refresh token for a new pair and
//   replays the request exactly once.  If the refresh fails, the token
//   source is cleared and the caller gets ErrSessionExpired, which the web
//   layer turns into a redirect to /login.
//
// Notes
//   •  Concurrent 401s sharing one refresh token trigger a single refresh
//      call (singleflight keyed by the refresh token).  Client hands the
//      same Group to every transport it builds.
//   •  Requests whose body cannot be replayed (no GetBody) are not retried.
//
//------------------------------------------------------------------------------

package api

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/pesquisa/internal/metrics"
)

// TokenSource holds the credentials of one operator session.
type TokenSource interface {
	Tokens() Tokens
	SetTokens(Tokens)
	Clear()
}

// RefreshFunc obtains a new pair for a refresh token.
type RefreshFunc func(ctx context.Context, refresh string) (Tokens, error)

// AuthTransport decorates Base with bearer auth.  Group, when set, is
// shared with other transports; nil uses a private one.
type AuthTransport struct {
	Base    http.RoundTripper
	Source  TokenSource
	Refresh RefreshFunc
	Group   *singleflight.Group

	own singleflight.Group
}

// RoundTrip implements http.RoundTripper.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok := t.Source.Tokens()

	resp, err := t.base().RoundTrip(withBearer(req, tok.Access))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if tok.Refresh == "" || (req.Body != nil && req.GetBody == nil) {
		return resp, nil
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	fresh, err := t.refresh(req.Context(), tok.Refresh)
	if err != nil {
		return nil, ErrSessionExpired
	}

	retry := withBearer(req, fresh.Access)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	return t.base().RoundTrip(retry)
}

func (t *AuthTransport) refresh(ctx context.Context, refresh string) (Tokens, error) {
	g := t.Group
	if g == nil {
		g = &t.own
	}
	v, err, _ := g.Do(refresh, func() (any, error) {
		// Another request may have refreshed while we waited on the 401.
		if cur := t.Source.Tokens(); cur.Refresh != refresh && cur.Access != "" {
			return cur, nil
		}
		fresh, err := t.Refresh(ctx, refresh)
		if err != nil {
			metrics.TokenRefreshTotal.WithLabelValues("failed").Inc()
			zap.S().Infow("token refresh failed, clearing session", "err", err)
			t.Source.Clear()
			return nil, err
		}
		metrics.TokenRefreshTotal.WithLabelValues("ok").Inc()
		t.Source.SetTokens(fresh)
		return fresh, nil
	})
	if err != nil {
		return Tokens{}, err
	}
	return v.(Tokens), nil
}

func (t *AuthTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// withBearer clones req with the Authorization header set.  RoundTrippers
// must not mutate the caller's request.
func withBearer(req *http.Request, access string) *http.Request {
	r := req.Clone(req.Context())
	if access != "" {
		r.Header.Set("Authorization", "Bearer "+access)
	}
	return r
}
