// internal/delivery/delivery_test.go
//
// Strategy tests against httptest backends and fake openers.
//
// Run: go test ./internal/delivery -v

package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/pesquisa/internal/api"
	"github.com/yanizio/pesquisa/internal/payload"
	"github.com/yanizio/pesquisa/internal/survey"
)

func sampleRecord() survey.Record {
	r := survey.NewRecord("Carlos")
	r.Set(survey.KeyFullName, "Ana Souza")
	r.Set(survey.KeyPhone, "11987654321")
	r.Set(survey.KeyProvider, "Vivo")
	r.Set(survey.KeySatisfaction, string(survey.Satisfied))
	r.Set(survey.KeyNeighborhood, "Centro")
	r.Set(survey.KeyMonthlyFee, "99,90")
	r.SetUsage([]string{string(survey.UsageWork), string(survey.UsageStreaming)})
	r.Set(survey.KeyInterest, string(survey.Interested))
	return r
}

func remoteAgainst(t *testing.T, h http.HandlerFunc) *Remote {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := api.New(srv.URL + "/api")
	require.NoError(t, err)
	return &Remote{Client: c}
}

func reply(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

/*──────────────────────────── Remote ───────────────────────────────────────*/

func TestRemote_Success(t *testing.T) {
	s := remoteAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		var got payload.RemotePayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "11987654321", got.WhatsApp)
		assert.Equal(t, "trabalho, filmes e series", got.UsoInternet)
		reply(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]any{"id": 7}})
	})

	rc, err := s.Deliver(context.Background(), sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, "7", rc.ID)
	assert.False(t, rc.At.IsZero())
}

func TestRemote_ErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    map[string]any
		kind    Kind
		field   survey.FieldKind
		message string
	}{
		{"dup phone", 409, map[string]any{"success": false, "error": api.CodeWhatsAppDuplicate}, KindDuplicate, survey.FieldPhone, MsgDuplicatePhone},
		{"dup cpf", 409, map[string]any{"success": false, "error": api.CodeCPFDuplicate}, KindDuplicate, survey.FieldNationalID, MsgDuplicateCPF},
		{"409 other", 409, map[string]any{"success": false, "message": "conflito"}, KindUnexpected, 0, "conflito"},
		{"500 with message", 500, map[string]any{"success": false, "message": "falha interna"}, KindUnexpected, 0, "falha interna"},
		{"500 bare", 500, nil, KindUnexpected, 0, MsgUnexpected},
		{"2xx rejected", 200, map[string]any{"success": false}, KindUnexpected, 0, MsgUnexpected},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := remoteAgainst(t, func(w http.ResponseWriter, r *http.Request) {
				if tc.body == nil {
					w.WriteHeader(tc.status)
					return
				}
				reply(w, tc.status, tc.body)
			})

			_, err := s.Deliver(context.Background(), sampleRecord())
			var de *Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tc.kind, de.Kind)
			assert.Equal(t, tc.field, de.Field)
			assert.Equal(t, tc.message, de.Message)
		})
	}
}

func TestRemote_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := api.New(base)
	require.NoError(t, err)

	_, err = (&Remote{Client: c}).Deliver(context.Background(), sampleRecord())
	de := AsError(err)
	assert.Equal(t, KindNetwork, de.Kind)
	assert.Equal(t, MsgNetwork, de.Message)
	assert.NotEmpty(t, de.Detail)
}

/*──────────────────────────── Messaging ────────────────────────────────────*/

func TestMessaging_Link(t *testing.T) {
	fixed := time.Date(2025, 3, 4, 17, 5, 9, 0, time.UTC)
	m := &Messaging{Recipient: "(22) 99605-7202", Message: payload.MessageOptions{Location: time.UTC}}

	link, err := m.Link(sampleRecord(), fixed)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(link, "https://wa.me/5522996057202?text="), link)
	assert.NotContains(t, link, "+")
	assert.Contains(t, link, "%20")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, payload.ToMessage(sampleRecord(), fixed, m.Message), u.Query().Get("text"))
}

func TestMessaging_LinkKeepsCountryCode(t *testing.T) {
	m := &Messaging{Host: "chat.example", Recipient: "+55 22 99605-7202"}
	link, err := m.Link(sampleRecord(), time.Now())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://chat.example/5522996057202?"), link)
}

func TestMessaging_Deliver(t *testing.T) {
	var opened string
	m := &Messaging{
		Open: OpenerFunc(func(_ context.Context, link string) error { opened = link; return nil }),
		now:  func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) },
	}

	rc, err := m.Deliver(context.Background(), sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, opened, rc.Link)
	assert.Empty(t, rc.ID)
}

func TestMessaging_Failures(t *testing.T) {
	boom := errors.New("no handler")

	cases := map[string]*Messaging{
		"opener error": {Open: OpenerFunc(func(context.Context, string) error { return boom })},
		"no opener":    {},
		"bad recipient": {
			Recipient: "none",
			Open:      DeferredOpener{},
		},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := m.Deliver(context.Background(), sampleRecord())
			de := AsError(err)
			assert.Equal(t, KindUnexpected, de.Kind)
			assert.Equal(t, MsgLink, de.Message)
		})
	}
}

/*──────────────────────────── selection ────────────────────────────────────*/

func TestNew(t *testing.T) {
	c, err := api.New("http://backend.invalid")
	require.NoError(t, err)

	s, err := New(Settings{Mode: ModeRemote, Client: c})
	require.NoError(t, err)
	assert.Equal(t, "remote", s.Name())

	s, err = New(Settings{Mode: ModeMessaging, Messaging: &Messaging{Open: DeferredOpener{}}})
	require.NoError(t, err)
	assert.Equal(t, "messaging", s.Name())

	_, err = New(Settings{Mode: ModeMessaging})
	assert.Error(t, err)
	_, err = New(Settings{Mode: "pigeon"})
	assert.Error(t, err)
}

func TestAsError_Foreign(t *testing.T) {
	de := AsError(errors.New("x"))
	assert.Equal(t, KindUnexpected, de.Kind)
	assert.Equal(t, MsgUnexpected, de.Message)
}
