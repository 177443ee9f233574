// Package shutdown ties process lifetime to SIGINT/SIGTERM.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// NotifyContext is cancelled on the first interrupt or terminate signal.
// Call stop to restore default signal handling so a second signal kills the process.
func NotifyContext(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
