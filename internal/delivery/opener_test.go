package delivery

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserOpener_OutlivesCallerContext(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("fake launcher is an xdg-open shell script")
	}

	dir := t.TempDir()
	marker := filepath.Join(dir, "opened")
	script := "#!/bin/sh\nsleep 0.2\nprintf '%s' \"$1\" > " + marker + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "xdg-open"), []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	ctx, cancel := context.WithCancel(context.Background())
	link := "https://wa.me/5522996057202?text=oi"
	require.NoError(t, BrowserOpener{}.Open(ctx, link))
	cancel()

	var got []byte
	assert.Eventually(t, func() bool {
		b, err := os.ReadFile(marker)
		if err != nil || len(b) == 0 {
			return false
		}
		got = b
		return true
	}, 3*time.Second, 50*time.Millisecond, "launcher killed by cancellation")
	assert.Equal(t, link, string(got))
}

func TestBrowserOpener_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, BrowserOpener{}.Open(ctx, "https://wa.me/1"), context.Canceled)
}
