package vault

import (
	"context"
	"testing"
	"time"
)

func TestParseRef(t *testing.T) {
	cases := []struct {
		ref     string
		path    string
		key     string
		wantErr bool
	}{
		{"secret/pesquisa#audit_dsn", "secret/pesquisa", "audit_dsn", false},
		{"kv/app/db#pw", "kv/app/db", "pw", false},
		{"secret/pesquisa", "", "", true},
		{"secret/pesquisa#", "", "", true},
		{"#key", "", "", true},
		{"nomount#key", "", "", true},
	}
	for _, tc := range cases {
		p, k, err := ParseRef(tc.ref)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseRef(%q) err = %v, wantErr %v", tc.ref, err, tc.wantErr)
		}
		if p != tc.path || k != tc.key {
			t.Fatalf("ParseRef(%q) = %q, %q", tc.ref, p, k)
		}
	}
}

func TestSplitMount(t *testing.T) {
	m, r := splitMount("secret/a/b")
	if m != "secret" || r != "a/b" {
		t.Fatalf("splitMount = %q, %q", m, r)
	}
}

func TestGetKV_CacheHit(t *testing.T) {
	// A cached value is served without touching the API client.
	c := &Client{cache: map[string]cached{
		"secret/x#k": {val: "v", exp: time.Now().Add(time.Minute)},
	}}
	got, err := c.GetKV(context.Background(), "secret/x", "k", time.Minute)
	if err != nil || got != "v" {
		t.Fatalf("GetKV = %q, %v", got, err)
	}
	if _, err := c.GetKV(context.Background(), "", "k", 0); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestBackoffHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	backoff(ctx, time.Hour)
	if time.Since(start) > time.Second {
		t.Fatalf("backoff ignored cancelled context")
	}
}
