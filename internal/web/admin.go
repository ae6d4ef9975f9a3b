// internal/web/admin.go
//
// Operator handlers: login, logout, dashboard, survey detail, and the
// spreadsheet export.
//
// Every backend call made for an operator goes through
// api.Client.WithCredentials(session), so a 401 is cured by one token
// refresh.  When the refresh fails the session is already cleared; the
// handler drops it from the store and sends the operator back to /login.

package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/pesquisa/internal/api"
	"github.com/yanizio/pesquisa/internal/audit"
	"github.com/yanizio/pesquisa/internal/delivery"
	"github.com/yanizio/pesquisa/internal/export"
	"github.com/yanizio/pesquisa/internal/logger"
	"github.com/yanizio/pesquisa/internal/session"
)

// Login messages.
const (
	msgBadCredentials = "Usuário ou senha inválidos."
	msgLoginRequired  = "Informe usuário e senha."
	msgBackendDown    = "Não foi possível carregar os dados. Tente novamente."
	msgNotFound       = "Pesquisa não encontrada."
)

// attemptWindow is how far back the dashboard tallies submit attempts.
const attemptWindow = 7 * 24 * time.Hour

// loginView feeds login.html.
type loginView struct {
	CSRF     string
	Username string
	Error    string
}

// adminView feeds admin.html.
type adminView struct {
	CSRF        string
	User        api.User
	Stats       api.Stats
	Items       []api.Pesquisa
	Pagination  api.Pagination
	Query       api.ListQuery
	ExportURL   string
	PrevURL     string
	NextURL     string
	ReferralURL string
	Attempts    []audit.Count
	Error       string
}

// detailView feeds pesquisa.html.
type detailView struct {
	CSRF     string
	User     api.User
	Pesquisa api.Pesquisa
	BackURL  string
	Error    string
}

/*──────────────────────────── login / logout ──────────────────────────────*/

// handleLoginGET resumes a stored session when the backend still accepts
// its token, and shows the login form otherwise.
func (s *Server) handleLoginGET(w http.ResponseWriter, r *http.Request) {
	if sess, err := session.FromRequest(r, s.Sessions); err == nil && sess.Authenticated() {
		u, err := s.API.WithCredentials(sess).VerifyToken(r.Context())
		switch {
		case err == nil:
			if u.Username != "" {
				sess.SetUser(u)
			}
			http.Redirect(w, r, adminPath, http.StatusSeeOther)
			return
		case api.IsUnauthorized(err):
			logger.FromContext(r.Context()).Infow("stored session rejected", "user", sess.User().Username)
			sess.Clear()
			s.Sessions.Delete(sess.ID)
			session.Detach(w)
		default:
			// Backend trouble; the dashboard reports it.
			logger.FromContext(r.Context()).Warnw("token verify failed", "err", err)
			http.Redirect(w, r, adminPath, http.StatusSeeOther)
			return
		}
	}
	s.render(w, r, http.StatusOK, "login", loginView{CSRF: s.csrfToken(r)})
}

func (s *Server) handleLoginPOST(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	cr := api.Credentials{
		Username: strings.TrimSpace(r.PostForm.Get("username")),
		Password: r.PostForm.Get("password"),
	}
	fail := func(status int, msg string) {
		s.render(w, r, status, "login", loginView{CSRF: s.csrfToken(r), Username: cr.Username, Error: msg})
	}

	if !s.CSRF.Verify(r.PostForm.Get("csrf_token")) {
		fail(http.StatusForbidden, msgExpiredForm)
		return
	}
	if cr.Username == "" || cr.Password == "" {
		fail(http.StatusUnprocessableEntity, msgLoginRequired)
		return
	}

	res, err := s.API.Login(r.Context(), cr)
	if err != nil {
		var te *api.TransportError
		switch {
		case errors.As(err, &te):
			log.Warnw("login: backend unreachable", "err", err)
			fail(http.StatusBadGateway, delivery.MsgNetwork)
		case api.IsUnauthorized(err):
			log.Infow("login rejected", "user", cr.Username)
			fail(http.StatusUnauthorized, msgBadCredentials)
		default:
			log.Warnw("login failed", "user", cr.Username, "err", err)
			fail(http.StatusUnauthorized, msgBadCredentials)
		}
		return
	}

	sess := s.Sessions.Create(res.User, res.Tokens)
	session.Attach(w, r, sess.ID, s.SessionTTL)
	log.Infow("operator logged in", "user", res.User.Username, "role", res.User.Role)
	http.Redirect(w, r, adminPath, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || !s.CSRF.Verify(r.PostForm.Get("csrf_token")) {
		http.Error(w, msgExpiredForm, http.StatusForbidden)
		return
	}
	if sess, err := session.FromRequest(r, s.Sessions); err == nil {
		// Advisory; the local session goes regardless.
		if err := s.API.WithCredentials(sess).Logout(r.Context()); err != nil {
			logger.FromContext(r.Context()).Debugw("backend logout failed", "err", err)
		}
		sess.Clear()
		s.Sessions.Delete(sess.ID)
	}
	session.Detach(w)
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

/*──────────────────────────── dashboard ───────────────────────────────────*/

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	cli := s.API.WithCredentials(sess)
	q := listQuery(r.URL.Query())

	view := adminView{
		CSRF:      s.csrfToken(r),
		User:      sess.User(),
		Query:     q,
		ExportURL: exportPath + "?" + filterValues(q, 0).Encode(),
	}
	view.ReferralURL = referralURL(r, view.User)

	page, err := cli.ListPesquisas(r.Context(), q)
	if s.expired(w, r, sess, err) {
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Warnw("dashboard list failed", "err", err)
		view.Error = msgBackendDown
	}
	view.Items, view.Pagination = page.Items, page.Pagination
	if p := view.Pagination; p.Page > 1 {
		view.PrevURL = adminPath + "?" + filterValues(q, p.Page-1).Encode()
	}
	if p := view.Pagination; p.Page < p.TotalPages {
		view.NextURL = adminPath + "?" + filterValues(q, p.Page+1).Encode()
	}

	stats, err := cli.Stats(r.Context())
	if s.expired(w, r, sess, err) {
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Warnw("dashboard stats failed", "err", err)
		view.Error = msgBackendDown
	}
	view.Stats = stats

	if s.Attempts != nil {
		counts, err := s.Attempts.CountSince(r.Context(), time.Now().Add(-attemptWindow))
		if err != nil {
			logger.FromContext(r.Context()).Warnw("attempt tally failed", "err", err)
		}
		view.Attempts = counts
	}

	s.render(w, r, http.StatusOK, "admin", view)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	view := detailView{CSRF: s.csrfToken(r), User: sess.User(), BackURL: adminPath}
	// Back to the same filtered page the operator came from.
	if u, err := url.Parse(r.Referer()); err == nil && u.Path == adminPath && u.RawQuery != "" {
		view.BackURL = adminPath + "?" + u.RawQuery
	}

	p, err := s.API.WithCredentials(sess).GetPesquisa(r.Context(), chi.URLParam(r, "id"))
	if s.expired(w, r, sess, err) {
		return
	}
	var se *api.StatusError
	switch {
	case err == nil:
		view.Pesquisa = p
		s.render(w, r, http.StatusOK, "pesquisa", view)
	case errors.As(err, &se) && se.Status == http.StatusNotFound:
		view.Error = msgNotFound
		s.render(w, r, http.StatusNotFound, "pesquisa", view)
	default:
		logger.FromContext(r.Context()).Warnw("survey detail failed", "err", err)
		view.Error = msgBackendDown
		s.render(w, r, http.StatusBadGateway, "pesquisa", view)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	cli := s.API.WithCredentials(sess)

	items, err := export.Collect(r.Context(), cli, listQuery(r.URL.Query()))
	if s.expired(w, r, sess, err) {
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Warnw("export failed", "err", err)
		http.Error(w, msgBackendDown, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(time.Now().In(s.Location))+`"`)
	if err := export.Write(w, items, s.Location); err != nil {
		logger.FromContext(r.Context()).Errorw("export write failed", "err", err)
		return
	}
	logger.FromContext(r.Context()).Infow("export served", "user", sess.User().Username, "rows", len(items))
}

// expired handles a session the backend no longer accepts.  It reports
// whether the response has been written.
func (s *Server) expired(w http.ResponseWriter, r *http.Request, sess *session.Session, err error) bool {
	if err == nil || !api.IsUnauthorized(err) {
		return false
	}
	logger.FromContext(r.Context()).Infow("operator session expired", "user", sess.User().Username)
	sess.Clear()
	s.Sessions.Delete(sess.ID)
	session.Detach(w)
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
	return true
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// listQuery reads dashboard filters from the query string.
func listQuery(v url.Values) api.ListQuery {
	page, _ := strconv.Atoi(v.Get("page"))
	limit, _ := strconv.Atoi(v.Get("limit"))
	if limit > 100 {
		limit = 100
	}
	return api.ListQuery{
		Page:             page,
		Limit:            limit,
		Search:           strings.TrimSpace(v.Get("search")),
		Nome:             strings.TrimSpace(v.Get("nome")),
		Bairro:           strings.TrimSpace(v.Get("bairro")),
		ProvedorAtual:    strings.TrimSpace(v.Get("provedor_atual")),
		Satisfacao:       v.Get("satisfacao"),
		Interesse:        v.Get("interesse"),
		FiltroSatisfacao: v.Get("filtro_satisfacao"),
		FiltroInteresse:  v.Get("filtro_interesse"),
	}
}

// filterValues renders q for a link to page; page 0 drops paging.
func filterValues(q api.ListQuery, page int) url.Values {
	v := q.Values()
	v.Del("page")
	if q.Limit == 0 || page == 0 {
		v.Del("limit")
	}
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	return v
}

// referralURL is the link an operator hands to respondents.
func referralURL(r *http.Request, u api.User) string {
	name := u.Name
	if name == "" {
		name = u.Username
	}
	if name == "" {
		return ""
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/pesquisa-mercado/" + url.PathEscape(name)
}
