package lifecycle

import (
	"context"
	"os/signal"
	"time"
)

// NotifyContext returns a context cancelled by the first termination signal.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, TerminationSignals()...)
}

// Shutdown runs each step with a shared deadline and returns the first error.
// Every step runs even if an earlier one fails.
func Shutdown(timeout time.Duration, steps ...func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var first error
	for _, step := range steps {
		if step == nil {
			continue
		}
		if err := step(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
