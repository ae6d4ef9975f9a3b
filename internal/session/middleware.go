// internal/session/middleware.go
//
// Chi middleware that gates the dashboard.

package session

import (
	"net/http"

	"go.uber.org/zap"
)

// Require resolves the session cookie and attaches the session to the
// request context.  Requests without a live session are redirected to
// loginPath.  When roles are given, the operator must hold ANY of them.
func Require(st *Store, loginPath string, roles ...string) func(http.Handler) http.Handler {
	allowSet := make(map[string]struct{}, len(roles))
	for _, n := range roles {
		allowSet[n] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := FromRequest(r, st)
			if err != nil {
				Detach(w)
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			if len(allowSet) > 0 {
				if _, ok := allowSet[s.User().Role]; !ok {
					zap.S().Infow("dashboard access denied", "user", s.User().Username, "role", s.User().Role)
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}
