package runtime

import (
	"context"
	"os/signal"
	"syscall"
)

// SignalContext is cancelled on SIGINT or SIGTERM; every background loop in the
// service exits on it.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
