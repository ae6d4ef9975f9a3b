// internal/web/respondent.go
//
// Respondent handlers: the intake form, the confirmation page, "submit
// another", and the mask endpoint.
//
// Flow
// ----
//   GET  form      → render the controller's record and state.
//   POST form      → CSRF check, form.Decode, Controller.Submit.
//                      Success            → 303 to /confirmacao.
//                      ValidationFailed   → re-render with the ordered list.
//                      delivery failure   → re-render with one notice, record
//                                           retained.
//                      busy               → re-render the current state.
//   GET  /confirmacao → receipt id, or the messaging link opened in a new tab.
//   POST /nova        → Reset, back to the form.

package web

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yanizio/pesquisa/internal/form"
	"github.com/yanizio/pesquisa/internal/logger"
	"github.com/yanizio/pesquisa/internal/submission"
	"github.com/yanizio/pesquisa/internal/survey"
)

// respondentCookie maps a browser to its controller.
const respondentCookie = "pesquisa_respondent"

// msgExpiredForm is shown when the CSRF token no longer verifies.
const msgExpiredForm = "O formulário expirou. Revise os dados e envie novamente."

// formView feeds form.html.
type formView struct {
	Action        string
	CSRF          string
	Record        survey.Record
	State         submission.State
	Progress      int
	Notice        string
	Satisfactions []survey.Satisfaction
	Usages        []survey.Usage
	Interests     []survey.Interest
}

// confirmView feeds confirmacao.html.
type confirmView struct {
	CSRF      string
	ReceiptID string
	Link      string
	Referral  string
	Messaging bool
}

/*──────────────────────────── form ────────────────────────────────────────*/

func (s *Server) handleFormGET(w http.ResponseWriter, r *http.Request) {
	ctl := s.controller(w, r)
	st := ctl.State()

	// A finished success belongs to the confirmation page.
	if st.Phase == submission.Success {
		http.Redirect(w, r, confirmationPath, http.StatusSeeOther)
		return
	}
	s.renderForm(w, r, http.StatusOK, ctl.Record(), st, "")
}

func (s *Server) handleFormPOST(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	ctl := s.controller(w, r)
	rec := form.Decode(r.PostForm, ctl.Referral())

	if !s.CSRF.Verify(r.PostForm.Get("csrf_token")) {
		log.Infow("form rejected, bad csrf token")
		s.renderForm(w, r, http.StatusForbidden, rec, ctl.State(), msgExpiredForm)
		return
	}

	if !ctl.Submit(r.Context(), rec) {
		// An attempt is already in flight for this respondent.
		s.renderForm(w, r, http.StatusOK, rec, ctl.State(), "")
		return
	}

	st := ctl.State()
	switch {
	case st.Phase == submission.Success:
		http.Redirect(w, r, confirmationPath, http.StatusSeeOther)
	case st.Phase == submission.ValidationFailed:
		s.renderForm(w, r, http.StatusUnprocessableEntity, ctl.Record(), st, "")
	default:
		s.renderForm(w, r, http.StatusOK, ctl.Record(), st, st.Message)
	}
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, status int, rec survey.Record, st submission.State, notice string) {
	s.render(w, r, status, "form", formView{
		Action:        r.URL.Path,
		CSRF:          s.csrfToken(r),
		Record:        rec,
		State:         st,
		Progress:      int(rec.Progress() + 0.5),
		Notice:        notice,
		Satisfactions: survey.Satisfactions,
		Usages:        survey.Usages,
		Interests:     survey.Interests,
	})
}

/*──────────────────────────── confirmation ────────────────────────────────*/

func (s *Server) handleConfirmation(w http.ResponseWriter, r *http.Request) {
	ctl := s.controller(w, r)
	st := ctl.State()
	if st.Phase != submission.Success {
		http.Redirect(w, r, formPath(ctl.Referral()), http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "confirmacao", confirmView{
		CSRF:      s.csrfToken(r),
		ReceiptID: st.ReceiptID,
		Link:      st.Link,
		Referral:  ctl.Referral(),
		Messaging: s.Messaging,
	})
}

func (s *Server) handleAnother(w http.ResponseWriter, r *http.Request) {
	ctl := s.controller(w, r)
	if err := r.ParseForm(); err != nil || !s.CSRF.Verify(r.PostForm.Get("csrf_token")) {
		http.Error(w, msgExpiredForm, http.StatusForbidden)
		return
	}
	ctl.Reset()
	http.Redirect(w, r, formPath(ctl.Referral()), http.StatusSeeOther)
}

/*──────────────────────────── mask ────────────────────────────────────────*/

// handleMask serves GET /mask?kind=phone|cpf&value=… for the keystroke
// script.
func (s *Server) handleMask(w http.ResponseWriter, r *http.Request) {
	kind, ok := survey.ParseFieldKind(r.URL.Query().Get("kind"))
	if !ok {
		http.Error(w, "unknown kind", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"value": survey.Mask(kind, r.URL.Query().Get("value")),
	})
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// controller resolves (and, for new browsers, issues) the respondent id.
// The referral comes from the {responsavel} path segment when present.
func (s *Server) controller(w http.ResponseWriter, r *http.Request) *submission.Controller {
	id := ""
	if c, err := r.Cookie(respondentCookie); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     respondentCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
			Expires:  time.Now().Add(submission.IdleTTL),
		})
	}
	return s.Registry.Get(id, referralParam(r))
}

// referralParam returns the decoded {responsavel} segment, "" on "/".
// chi matches against RawPath when the request has one, and the segment
// is still escaped only then.
func referralParam(r *http.Request) string {
	v := chi.URLParam(r, "responsavel")
	if r.URL.RawPath != "" {
		if u, err := url.PathUnescape(v); err == nil {
			v = u
		}
	}
	return strings.TrimSpace(v)
}

// formPath returns the form URL for a referral.
func formPath(referral string) string {
	if referral == "" {
		return "/"
	}
	return "/r/" + url.PathEscape(referral)
}
