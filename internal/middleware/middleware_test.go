package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestForceHTTPS(t *testing.T) {
	cases := []struct {
		name     string
		enabled  bool
		host     string
		tls      bool
		fwd      string
		wantCode int
	}{
		{"disabled", false, "pesquisa.example", false, "", http.StatusOK},
		{"redirects plain http", true, "pesquisa.example", false, "", http.StatusPermanentRedirect},
		{"localhost exempt", true, "localhost:8080", false, "", http.StatusOK},
		{"tls passes", true, "pesquisa.example", true, "", http.StatusOK},
		{"proxy https passes", true, "pesquisa.example", false, "https", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://"+tc.host+"/r/ana?x=1", nil)
			r.Host = tc.host
			if tc.tls {
				r.TLS = &tls.ConnectionState{}
			}
			if tc.fwd != "" {
				r.Header.Set("X-Forwarded-Proto", tc.fwd)
			}
			w := httptest.NewRecorder()
			ForceHTTPS(tc.enabled, ok).ServeHTTP(w, r)
			assert.Equal(t, tc.wantCode, w.Code)
			if tc.wantCode == http.StatusPermanentRedirect {
				assert.Equal(t, "https://pesquisa.example/r/ana?x=1", w.Header().Get("Location"))
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	Security(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	for _, h := range []string{
		"Strict-Transport-Security", "Content-Security-Policy", "X-Frame-Options",
		"X-Content-Type-Options", "Referrer-Policy", "Permissions-Policy",
	} {
		assert.NotEmpty(t, w.Header().Get(h), h)
	}
}
