package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/pesquisa/internal/api"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("any-secret"))
	require.NoError(t, err)
	return s
}

var operator = api.User{ID: "1", Username: "admin", Role: "admin"}

func TestSession_ExpiryFromToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	st := NewStore(0, 0)
	s := st.Create(operator, api.Tokens{Access: signed(t, exp), Refresh: "r"})

	assert.True(t, s.ExpiresAt().Equal(exp))
	assert.True(t, s.Authenticated())

	s.SetTokens(api.Tokens{Access: "not-a-jwt", Refresh: "r"})
	assert.True(t, s.ExpiresAt().IsZero())
}

func TestStore_Lifecycle(t *testing.T) {
	st := NewStore(10, time.Hour)
	s := st.Create(operator, api.Tokens{Access: "a", Refresh: "r"})

	got, err := st.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, "admin", got.User().Username)

	// Refresh exhaustion clears; the store then forgets the session.
	s.Clear()
	_, err = st.Get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, st.Len())
}

func TestStore_IdleExpiry(t *testing.T) {
	st := NewStore(10, time.Minute)
	now := time.Now()
	st.now = func() time.Time { return now }
	s := st.Create(operator, api.Tokens{Access: "a"})

	st.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err := st.Get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteAndBound(t *testing.T) {
	st := NewStore(2, time.Hour)
	a := st.Create(operator, api.Tokens{Access: "a"})
	st.Create(operator, api.Tokens{Access: "b"})
	st.Create(operator, api.Tokens{Access: "c"})

	_, err := st.Get(a.ID)
	assert.ErrorIs(t, err, ErrNotFound, "oldest session should be pushed out")
	assert.Equal(t, 2, st.Len())

	d := st.Create(operator, api.Tokens{Access: "d"})
	st.Delete(d.ID)
	assert.False(t, d.Authenticated())
	_, err = st.Get(d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequire(t *testing.T) {
	st := NewStore(10, time.Hour)
	admin := st.Create(operator, api.Tokens{Access: "a"})
	viewer := st.Create(api.User{Username: "v", Role: "viewer"}, api.Tokens{Access: "b"})

	var seen *Session
	h := Require(st, "/login", "admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	cases := []struct {
		name   string
		cookie string
		status int
	}{
		{"no cookie", "", http.StatusSeeOther},
		{"unknown", "nope", http.StatusSeeOther},
		{"wrong role", viewer.ID, http.StatusForbidden},
		{"admin", admin.ID, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tc.cookie})
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tc.status, rr.Code)
			if tc.status == http.StatusSeeOther {
				assert.Equal(t, "/login", rr.Header().Get("Location"))
			}
			if tc.status == http.StatusOK {
				assert.Same(t, admin, seen)
			}
		})
	}
}

func TestAttachDetach(t *testing.T) {
	rr := httptest.NewRecorder()
	Attach(rr, httptest.NewRequest(http.MethodPost, "/login", nil), "abc", time.Hour)
	c := rr.Result().Cookies()
	require.Len(t, c, 1)
	assert.Equal(t, "abc", c[0].Value)
	assert.True(t, c[0].HttpOnly)

	rr = httptest.NewRecorder()
	Detach(rr)
	c = rr.Result().Cookies()
	require.Len(t, c, 1)
	assert.Equal(t, -1, c[0].MaxAge)
}
