// internal/server/timeouts.go
//
// HTTP server helper with robust timeouts.
//
// Production hardening recommends:
//
//   • ReadTimeout   – abort slow-loris headers (10 s default)
//   • WriteTimeout  – cap total response time (15 s default)
//   • IdleTimeout   – close keep-alives on idle clients (60 s default)
//
// The values come from config.HTTP; zero falls back to the defaults above
// so tests and the CLI can build a server without a config tree.
//

package server

import (
	"net/http"
	"time"
)

// Defaults applied when a caller passes zero.
const (
	DefaultRead  = 10 * time.Second
	DefaultWrite = 15 * time.Second
	DefaultIdle  = 60 * time.Second
)

// New constructs an *http.Server with the given timeouts.
func New(addr string, handler http.Handler, read, write, idle time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: or(read, DefaultRead),
		ReadTimeout:       or(read, DefaultRead),
		WriteTimeout:      or(write, DefaultWrite),
		IdleTimeout:       or(idle, DefaultIdle),
	}
}

func or(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
