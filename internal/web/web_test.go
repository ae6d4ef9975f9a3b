package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/yanizio/pesquisa/internal/api"
	"github.com/yanizio/pesquisa/internal/audit"
	"github.com/yanizio/pesquisa/internal/delivery"
	"github.com/yanizio/pesquisa/internal/export"
	"github.com/yanizio/pesquisa/internal/form"
	"github.com/yanizio/pesquisa/internal/session"
	"github.com/yanizio/pesquisa/internal/submission"
)

/*──────────────────────────── fake backend ────────────────────────────────*/

// storedPesquisa is the one survey the fake backend holds.
var storedPesquisa = map[string]any{
	"_id": "p1", "nome": "Maria Lima", "whatsapp": "11987654321",
	"provedor_atual": "NetX", "satisfacao": "Satisfeito", "bairro": "Centro",
	"valor_mensal": "R$ 99,90", "uso_internet": "trabalho",
	"interesse_proposta": "Sim, tenho interesse", "responsavel": "Ana",
	"createdAt": "2026-03-01T12:30:00Z",
}

// backend emulates the pesquisa REST API.
type backend struct {
	mu           sync.Mutex
	created      []map[string]any
	createStatus int    // 0 means 201
	createCode   string // error discriminator for non-2xx
	listStatus   int    // 0 means 200
	verifyStatus int    // 0 means 200
}

func (b *backend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, status int, body any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}

	mux.HandleFunc("POST /pesquisas", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		b.mu.Lock()
		status, code := b.createStatus, b.createCode
		if status == 0 {
			b.created = append(b.created, in)
		}
		b.mu.Unlock()
		if status != 0 {
			reply(w, status, map[string]any{"success": false, "error": code, "message": "conflict"})
			return
		}
		reply(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]any{"_id": "abc123"}})
	})

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var cr api.Credentials
		_ = json.NewDecoder(r.Body).Decode(&cr)
		if cr.Password != "secret" {
			reply(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Credenciais inválidas"})
			return
		}
		reply(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"user":         map[string]any{"id": 1, "username": cr.Username, "name": "Ana Souza", "role": "admin"},
			"token":        "access-1",
			"refreshToken": "refresh-1",
		}})
	})

	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusUnauthorized, map[string]any{"success": false})
	})

	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusOK, map[string]any{"success": true})
	})

	mux.HandleFunc("GET /pesquisas", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		status := b.listStatus
		b.mu.Unlock()
		if status != 0 {
			reply(w, status, map[string]any{"success": false})
			return
		}
		if r.Header.Get("Authorization") != "Bearer access-1" {
			reply(w, http.StatusUnauthorized, map[string]any{"success": false})
			return
		}
		reply(w, http.StatusOK, map[string]any{
			"success":    true,
			"data":       []map[string]any{storedPesquisa},
			"pagination": map[string]any{"page": 1, "limit": 10, "total": 1, "totalPages": 1},
		})
	})

	mux.HandleFunc("GET /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		status := b.verifyStatus
		b.mu.Unlock()
		if status != 0 || r.Header.Get("Authorization") != "Bearer access-1" {
			reply(w, http.StatusUnauthorized, map[string]any{"success": false})
			return
		}
		reply(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"user": map[string]any{"id": 1, "username": "ana", "name": "Ana Souza", "role": "admin"},
		}})
	})

	mux.HandleFunc("GET /pesquisas/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			reply(w, http.StatusUnauthorized, map[string]any{"success": false})
			return
		}
		if r.PathValue("id") != "p1" {
			reply(w, http.StatusNotFound, map[string]any{"success": false, "message": "Pesquisa não encontrada"})
			return
		}
		reply(w, http.StatusOK, map[string]any{"success": true, "data": storedPesquisa})
	})

	mux.HandleFunc("GET /pesquisas/estatisticas", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"total_pesquisas": 1}})
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusOK, map[string]any{"success": true})
	})

	return mux
}

func (b *backend) failCreate(status int, code string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.createStatus, b.createCode = status, code
}

func (b *backend) failList(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listStatus = status
}

func (b *backend) failVerify(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.verifyStatus = status
}

func (b *backend) createdCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.created)
}

/*──────────────────────────── harness ─────────────────────────────────────*/

type harness struct {
	back   *backend
	site   *httptest.Server
	client *http.Client
}

func newHarness(t *testing.T, messaging bool) *harness {
	t.Helper()
	return newHarnessWith(t, messaging, nil)
}

func newHarnessWith(t *testing.T, messaging bool, attempts AttemptCounter) *harness {
	t.Helper()
	b := &backend{}
	bs := httptest.NewServer(b.handler(t))
	t.Cleanup(bs.Close)

	cli, err := api.New(bs.URL)
	require.NoError(t, err)

	var strategy delivery.Strategy = &delivery.Remote{Client: cli}
	if messaging {
		strategy = &delivery.Messaging{Recipient: "22996057202", Open: delivery.DeferredOpener{}}
	}

	reg := submission.NewRegistry(strategy, time.Minute, 100, time.Minute)
	t.Cleanup(reg.Stop)

	signer, err := form.NewSigner("", 0)
	require.NoError(t, err)

	srv, err := New(Deps{
		API:       cli,
		Registry:  reg,
		Sessions:  session.NewStore(10, time.Hour),
		CSRF:      signer,
		Messaging: messaging,
		Attempts:  attempts,
	})
	require.NoError(t, err)

	site := httptest.NewServer(srv.Routes())
	t.Cleanup(site.Close)

	jar, _ := cookiejar.New(nil)
	return &harness{
		back: b,
		site: site,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

var csrfRe = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func (h *harness) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.Get(h.site.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (h *harness) post(t *testing.T, path string, v url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.PostForm(h.site.URL+path, v)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

// token fetches a page and returns its CSRF token.
func (h *harness) token(t *testing.T, path string) string {
	t.Helper()
	_, body := h.get(t, path)
	m := csrfRe.FindStringSubmatch(body)
	require.Len(t, m, 2, "no csrf token on %s", path)
	return m[1]
}

func validForm(tok string) url.Values {
	return url.Values{
		"csrf_token":        {tok},
		"nome":              {"Maria Lima"},
		"whatsapp":          {"11987654321"},
		"provedorAtual":     {"NetX"},
		"satisfacao":        {"Satisfeito"},
		"bairro":            {"Centro"},
		"valorMensal":       {"R$ 99,90"},
		"usoInternet":       {"trabalho", "estudos"},
		"interesseProposta": {"Sim, tenho interesse"},
		"responsavel":       {"Ana"},
	}
}

/*──────────────────────────── respondent ──────────────────────────────────*/

func TestFormReferralLock(t *testing.T) {
	h := newHarness(t, false)
	for _, p := range []string{"/r/Ana", "/pesquisa-mercado/Ana"} {
		resp, body := h.get(t, p)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `name="responsavel" value="Ana" readonly`)
		assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
	}
}

func TestFormReferralDecodedOnce(t *testing.T) {
	cases := map[string]string{
		"/r/Ana%20Souza": "Ana Souza",
		"/r/50%2541":     "50%41", // a literal percent sign stays literal
		"/r/a%2Fb":       "a/b",   // escaped slash keeps the segment whole
	}
	for path, want := range cases {
		h := newHarness(t, false)
		resp, body := h.get(t, path)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, body, `name="responsavel" value="`+want+`" readonly`, path)
	}
}

func TestSubmitSuccessAndAnother(t *testing.T) {
	h := newHarness(t, false)
	tok := h.token(t, "/")

	resp, _ := h.post(t, "/", validForm(tok))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, confirmationPath, resp.Header.Get("Location"))

	h.back.mu.Lock()
	require.Len(t, h.back.created, 1)
	assert.Equal(t, "11987654321", h.back.created[0]["whatsapp"])
	assert.Equal(t, "trabalho, estudos", h.back.created[0]["uso_internet"])
	h.back.mu.Unlock()

	resp, body := h.get(t, confirmationPath)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "abc123")

	// The form redirects to the confirmation until the respondent resets.
	resp, _ = h.get(t, "/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	m := csrfRe.FindStringSubmatch(body)
	require.Len(t, m, 2)
	resp, _ = h.post(t, "/nova", url.Values{"csrf_token": {m[1]}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, body = h.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "Maria Lima")
}

func TestSubmitValidationFailure(t *testing.T) {
	h := newHarness(t, false)
	tok := h.token(t, "/")

	v := validForm(tok)
	v.Del("nome")
	v.Set("whatsapp", "123")
	resp, body := h.post(t, "/", v)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Nome é obrigatório")
	assert.Contains(t, body, "WhatsApp deve ter um formato válido")
	assert.Less(t, strings.Index(body, "Nome é obrigatório"), strings.Index(body, "WhatsApp deve ter"))
	assert.Zero(t, h.back.createdCount())
}

func TestSubmitDuplicateKeepsRecord(t *testing.T) {
	h := newHarness(t, false)
	h.back.failCreate(http.StatusConflict, api.CodeWhatsAppDuplicate)
	tok := h.token(t, "/")

	resp, body := h.post(t, "/", validForm(tok))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Este número de WhatsApp já foi cadastrado")
	assert.Contains(t, body, `value="Maria Lima"`)
	assert.Contains(t, body, `value="(11) 98765-4321"`)
}

func TestSubmitBadCSRF(t *testing.T) {
	h := newHarness(t, false)
	resp, body := h.post(t, "/", validForm("forged"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body, "O formulário expirou")
	assert.Zero(t, h.back.createdCount())
}

func TestMessagingConfirmation(t *testing.T) {
	h := newHarness(t, true)
	tok := h.token(t, "/")

	resp, _ := h.post(t, "/", validForm(tok))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := h.get(t, confirmationPath)
	assert.Contains(t, body, "https://wa.me/5522996057202?text=")
	assert.Contains(t, body, "data-autoopen")
	assert.Zero(t, h.back.createdCount(), "messaging mode must not call the backend")
}

func TestMask(t *testing.T) {
	h := newHarness(t, false)

	resp, body := h.get(t, "/mask?kind=phone&value=11987654321")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"value":"(11) 98765-4321"}`, body)

	_, body = h.get(t, "/mask?kind=cpf&value=12345678901")
	assert.JSONEq(t, `{"value":"123.456.789-01"}`, body)

	resp, _ = h.get(t, "/mask?kind=zip&value=1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

/*──────────────────────────── operators ───────────────────────────────────*/

func TestAdminRequiresLogin(t *testing.T) {
	h := newHarness(t, false)
	resp, _ := h.get(t, adminPath)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, loginPath, resp.Header.Get("Location"))
}

func login(t *testing.T, h *harness, password string) *http.Response {
	t.Helper()
	tok := h.token(t, loginPath)
	resp, _ := h.post(t, loginPath, url.Values{
		"csrf_token": {tok}, "username": {"ana"}, "password": {password},
	})
	return resp
}

func TestLoginDashboardExport(t *testing.T) {
	h := newHarness(t, false)

	resp := login(t, h, "secret")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, adminPath, resp.Header.Get("Location"))

	resp, body := h.get(t, adminPath)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Maria Lima")
	assert.Contains(t, body, "/pesquisa-mercado/Ana%20Souza")

	assert.Contains(t, body, `href="/admin/pesquisas/p1"`)
	assert.NotContains(t, body, "Tentativas de envio", "no tally without an audit log")

	resp, body = h.get(t, exportPath)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, export.ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")

	wb, err := excelize.OpenReader(strings.NewReader(body))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, export.Header, rows[0])
	assert.Equal(t, "Maria Lima", rows[1][1])
}

func TestSurveyDetail(t *testing.T) {
	h := newHarness(t, false)
	require.Equal(t, http.StatusSeeOther, login(t, h, "secret").StatusCode)

	resp, body := h.get(t, adminPath+"/pesquisas/p1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Maria Lima")
	assert.Contains(t, body, "NetX")
	assert.Contains(t, body, "Não informado", "blank CPF")

	resp, body = h.get(t, adminPath+"/pesquisas/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, msgNotFound)
}

func TestLoginPageResumesVerifiedSession(t *testing.T) {
	h := newHarness(t, false)
	require.Equal(t, http.StatusSeeOther, login(t, h, "secret").StatusCode)

	resp, _ := h.get(t, loginPath)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, adminPath, resp.Header.Get("Location"))

	// The backend no longer accepts the token: the login form is shown and
	// the stored session is dropped.
	h.back.failVerify(http.StatusUnauthorized)
	resp, body := h.get(t, loginPath)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="password"`)

	resp, _ = h.get(t, adminPath)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, loginPath, resp.Header.Get("Location"))
}

type fixedCounter struct {
	since time.Time
	rows  []audit.Count
}

func (f *fixedCounter) CountSince(_ context.Context, t time.Time) ([]audit.Count, error) {
	f.since = t
	return f.rows, nil
}

func TestDashboardAttemptTally(t *testing.T) {
	counter := &fixedCounter{rows: []audit.Count{{Result: "success", Total: 9}, {Result: "duplicate_conflict", Total: 2}}}
	h := newHarnessWith(t, false, counter)
	require.Equal(t, http.StatusSeeOther, login(t, h, "secret").StatusCode)

	resp, body := h.get(t, adminPath)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Tentativas de envio")
	assert.Contains(t, body, "duplicate_conflict: 2")
	assert.WithinDuration(t, time.Now().Add(-attemptWindow), counter.since, time.Minute)
}

func TestLoginBadCredentials(t *testing.T) {
	h := newHarness(t, false)
	resp := login(t, h, "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDashboardExpiredSession(t *testing.T) {
	h := newHarness(t, false)
	require.Equal(t, http.StatusSeeOther, login(t, h, "secret").StatusCode)

	// Backend rejects the token and the refresh fails.
	h.back.failList(http.StatusUnauthorized)
	resp, _ := h.get(t, adminPath)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, loginPath, resp.Header.Get("Location"))

	// The session is gone, so the gate redirects too.
	h.back.failList(0)
	resp, _ = h.get(t, adminPath)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	h := newHarness(t, false)
	require.Equal(t, http.StatusSeeOther, login(t, h, "secret").StatusCode)

	_, body := h.get(t, adminPath)
	m := csrfRe.FindStringSubmatch(body)
	require.Len(t, m, 2)

	resp, _ := h.post(t, "/logout", url.Values{"csrf_token": {m[1]}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = h.get(t, adminPath)
	assert.Equal(t, loginPath, resp.Header.Get("Location"))
}

/*──────────────────────────── platform ────────────────────────────────────*/

func TestHealthz(t *testing.T) {
	h := newHarness(t, false)
	resp, body := h.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)
}

func TestStaticAssets(t *testing.T) {
	h := newHarness(t, false)
	resp, _ := h.get(t, "/static/app.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
