package cmdutil

import (
	"context"
	"os"
	"os/signal"
)

// WaitForSignal blocks until one of the given signals arrives or the
// context is canceled. It returns the received signal, nil on cancel.
func WaitForSignal(ctx context.Context, signals ...os.Signal) os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, signals...)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		return sig

	case <-ctx.Done():
		return nil
	}
}
