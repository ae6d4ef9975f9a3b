// internal/delivery/opener.go
//
// Opener implementations.

package delivery

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"go.uber.org/zap"
)

// BrowserOpener launches the link with the desktop's URL handler.  Used by
// the CLI.
type BrowserOpener struct{}

// Open implements Opener.  The launcher outlives ctx: callers cancel as
// soon as Deliver returns, and the handler still has to receive the link.
func (BrowserOpener) Open(ctx context.Context, link string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", link)
	case "darwin":
		cmd = exec.Command("open", link)
	default:
		cmd = exec.Command("xdg-open", link)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", cmd.Path, err)
	}
	// Reap the child without blocking the caller.
	go func() { _ = cmd.Wait() }()
	return nil
}

// DeferredOpener accepts every link without opening it.  The web surface
// uses it: the link travels back in Receipt.Link and the confirmation page
// opens it in a new tab.
type DeferredOpener struct{}

// Open implements Opener.
func (DeferredOpener) Open(_ context.Context, link string) error {
	zap.S().Debugw("messaging link deferred to browser", "len", len(link))
	return nil
}
