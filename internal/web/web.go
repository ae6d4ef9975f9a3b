// internal/web/web.go
//
// HTTP surface of Pesquisa.
//
// Context
// -------
// One chi router serves three audiences:
//
//   • respondents  – the intake form, its confirmation page, and the
//     keystroke mask endpoint;
//   • operators    – login, the dashboard, survey detail, and the xlsx
//     export;
//   • the platform – /metrics and /healthz.
//
// Respondents are anonymous.  A cookie carries a random id that maps to a
// submission.Controller in the Registry, so a retained record survives a
// failed attempt and the confirmation page can read the outcome.  Operators
// hold a session.Session whose tokens authenticate every backend call.
//
// Views are html/template files embedded in the binary.  Each page is
// parsed once together with layout.html and rendered into a buffer, so a
// template error never leaves half a page on the wire.
//
// Notes
// -----
//   • Security headers and HTTPS redirects come from internal/middleware.
//   • Oxford commas, two spaces after periods.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/pesquisa/internal/api"
	"github.com/yanizio/pesquisa/internal/audit"
	"github.com/yanizio/pesquisa/internal/form"
	"github.com/yanizio/pesquisa/internal/logger"
	"github.com/yanizio/pesquisa/internal/middleware"
	"github.com/yanizio/pesquisa/internal/requestinfo"
	"github.com/yanizio/pesquisa/internal/session"
	"github.com/yanizio/pesquisa/internal/submission"
)

//go:embed templates/*.html static/*
var assets embed.FS

// Paths shared by handlers and templates.
const (
	loginPath        = "/login"
	adminPath        = "/admin"
	confirmationPath = "/confirmacao"
	exportPath       = adminPath + "/export.xlsx"
)

// AttemptCounter tallies submit outcomes for the dashboard.
type AttemptCounter interface {
	CountSince(ctx context.Context, t time.Time) ([]audit.Count, error)
}

// Deps is everything the handlers need.  API, Registry, Sessions, and CSRF
// are required; the rest have usable zero values.
type Deps struct {
	API        *api.Client
	Registry   *submission.Registry
	Sessions   *session.Store
	SessionTTL time.Duration
	Roles      []string // dashboard roles; empty admits any operator
	CSRF       *form.Signer
	Geo        *requestinfo.GeoDB
	ForceHTTPS bool
	Location   *time.Location // export and dashboard timestamps
	Messaging  bool           // delivery mode, for the confirmation wording
	Attempts   AttemptCounter // nil hides the attempt tally
}

// Server owns the parsed views and the dependencies.
type Server struct {
	Deps
	views map[string]*template.Template
}

// pages lists the templates parsed with layout.html.
var pages = []string{"form", "confirmacao", "login", "admin", "pesquisa"}

// New parses the embedded views.
func New(d Deps) (*Server, error) {
	if d.API == nil || d.Registry == nil || d.Sessions == nil || d.CSRF == nil {
		return nil, fmt.Errorf("web: API, Registry, Sessions, and CSRF are required")
	}
	if d.SessionTTL <= 0 {
		d.SessionTTL = session.DefaultIdleTTL
	}
	if d.Location == nil {
		d.Location = time.Local
	}

	s := &Server{Deps: d, views: make(map[string]*template.Template, len(pages))}
	for _, p := range pages {
		t, err := template.New(p).Funcs(s.funcs()).ParseFS(assets,
			"templates/layout.html", "templates/"+p+".html")
		if err != nil {
			return nil, fmt.Errorf("web: parse %s: %w", p, err)
		}
		s.views[p] = t
	}
	return s, nil
}

// Routes builds the root handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(accessLog)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Security)
	r.Use(requestinfo.Enrich(s.Geo))

	// Platform.
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", s.handleHealth)

	static, _ := fs.Sub(assets, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	// Respondents.
	for _, p := range []string{"/", "/r/{responsavel}", "/pesquisa-mercado/{responsavel}"} {
		r.Get(p, s.handleFormGET)
		r.Post(p, s.handleFormPOST)
	}
	r.Get(confirmationPath, s.handleConfirmation)
	r.Post("/nova", s.handleAnother)
	r.Get("/mask", s.handleMask)

	// Operators.
	r.Get(loginPath, s.handleLoginGET)
	r.Post(loginPath, s.handleLoginPOST)
	r.Post("/logout", s.handleLogout)
	r.Group(func(r chi.Router) {
		r.Use(session.Require(s.Sessions, loginPath, s.Roles...))
		r.Get(adminPath, s.handleDashboard)
		r.Get(adminPath+"/pesquisas/{id}", s.handleDetail)
		r.Get(exportPath, s.handleExport)
	})

	return middleware.ForceHTTPS(s.ForceHTTPS, r)
}

/*──────────────────────────── rendering ───────────────────────────────────*/

// render executes page into a buffer and writes it with status.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	t, ok := s.views[page]
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		logger.FromContext(r.Context()).Errorw("render failed", "page", page, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) funcs() template.FuncMap {
	return template.FuncMap{
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(s.Location).Format("02/01/2006 15:04")
		},
	}
}

// csrfToken issues a token or logs why it could not.
func (s *Server) csrfToken(r *http.Request) string {
	tok, err := s.CSRF.Token()
	if err != nil {
		logger.FromContext(r.Context()).Errorw("csrf token", "err", err)
	}
	return tok
}

/*──────────────────────────── middleware ───────────────────────────────────*/

// accessLog attaches a request-scoped logger and logs one line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := zap.S().With("req_id", chimw.GetReqID(r.Context()))
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), log)))

		log.Infow("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"dur", time.Since(start),
		)
	})
}

/*──────────────────────────── platform ────────────────────────────────────*/

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.API.Health(r.Context()); err != nil {
		logger.FromContext(r.Context()).Warnw("backend health failed", "err", err)
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
