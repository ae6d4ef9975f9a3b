package form

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func TestSignerRoundTrip(t *testing.T) {
	key := base64.RawURLEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	s, err := NewSigner(key, time.Hour)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	tok, err := s.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if !s.Verify(tok) {
		t.Fatal("fresh token rejected")
	}

	// Flip one signature byte.
	raw, _ := base64.RawURLEncoding.DecodeString(tok)
	raw[len(raw)-1] ^= 0xff
	if s.Verify(base64.RawURLEncoding.EncodeToString(raw)) {
		t.Fatal("tampered token accepted")
	}
	if s.Verify("not-a-token") {
		t.Fatal("garbage accepted")
	}
}

func TestSignerExpiry(t *testing.T) {
	s, err := NewSigner("", time.Minute)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	tok, _ := s.Token()

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	if s.Verify(tok) {
		t.Fatal("expired token accepted")
	}

	s.now = func() time.Time { return base.Add(-5 * time.Minute) }
	if s.Verify(tok) {
		t.Fatal("future token accepted")
	}
}

func TestSignerKeyErrors(t *testing.T) {
	if _, err := NewSigner("%%%", 0); err == nil {
		t.Fatal("malformed key accepted")
	}
	short := base64.RawURLEncoding.EncodeToString([]byte("short"))
	if _, err := NewSigner(short, 0); err == nil {
		t.Fatal("short key accepted")
	}
}

func TestSignerKeysDiffer(t *testing.T) {
	a, _ := NewSigner("", 0)
	b, _ := NewSigner("", 0)
	tok, _ := a.Token()
	if b.Verify(tok) {
		t.Fatal("token verified under a different key")
	}
}
