package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler returns a context canceled on SIGINT or SIGTERM, for
// driving the daemon's graceful shutdown. The returned stop function
// releases the signal registration; after the first signal (or after stop)
// a further signal terminates the process with the default behavior, so a
// wedged shutdown can still be interrupted.
func SetupSignalHandler() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
