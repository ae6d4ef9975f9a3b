package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNew_WritesDailyFile(t *testing.T) {
	prev := zap.L()
	defer zap.ReplaceGlobals(prev)

	dir := t.TempDir()
	log, err := New(dir, "debug", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Debugw("hello", "k", 1)
	_ = log.Sync()

	name := filepath.Join(dir, time.Now().Format("2006-01-02")+".log")
	b, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(b) == 0 {
		t.Fatalf("log file empty")
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New(t.TempDir(), "loud", false); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatalf("global fallback should never be nil")
	}

	l := zap.NewNop().Sugar()
	ctx := WithContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatalf("context logger not returned")
	}
}
