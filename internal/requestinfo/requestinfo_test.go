package requestinfo

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name   string
		xff    string
		xrip   string
		remote string
		want   string
	}{
		{"xff first valid", "garbage, 203.0.113.9, 10.0.0.1", "", "1.1.1.1:80", "203.0.113.9"},
		{"x-real-ip", "", "198.51.100.7", "1.1.1.1:80", "198.51.100.7"},
		{"remote addr", "", "", "192.0.2.1:5555", "192.0.2.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xrip != "" {
				r.Header.Set("X-Real-Ip", tc.xrip)
			}
			if got := clientIP(r).String(); got != tc.want {
				t.Fatalf("clientIP = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestPrimaryLang(t *testing.T) {
	if got := primaryLang("pt-BR,pt;q=0.9,en;q=0.8"); got != "pt-br" {
		t.Fatalf("primaryLang = %q", got)
	}
	if got := primaryLang(""); got != "" {
		t.Fatalf("primaryLang(\"\") = %q", got)
	}
}

func TestEnrich_AttachesInfoWithoutGeoDB(t *testing.T) {
	const android = "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36"

	var got *RequestInfo
	h := Enrich(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("User-Agent", android)
	r.Header.Set("Accept-Language", "pt-BR")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if got == nil {
		t.Fatalf("RequestInfo not attached")
	}
	if got.UA.Device != "Mobile" {
		t.Fatalf("Device = %q, want Mobile", got.UA.Device)
	}
	if got.UA.PrimaryLang != "pt-br" {
		t.Fatalf("PrimaryLang = %q", got.UA.PrimaryLang)
	}
	if got.Geo.CountryISO != "" {
		t.Fatalf("no geo DB, country should be empty")
	}
}

func TestOpenGeo_Blank(t *testing.T) {
	g, err := OpenGeo("")
	if err != nil || g != nil {
		t.Fatalf("OpenGeo(\"\") = %v, %v", g, err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
	if _, err := OpenGeo("/does/not/exist.mmdb"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
