package runtime

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"
)

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Shutdowner is one step of graceful shutdown, e.g. http.Server.Shutdown.
type Shutdowner struct {
	Name string
	Fn   func(context.Context) error
}

// Shutdown runs the steps in order under a shared timeout, logging failures
// and returning them joined.
func Shutdown(logger *slog.Logger, timeout time.Duration, steps ...Shutdowner) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, s := range steps {
		if s.Fn == nil {
			continue
		}
		if err := s.Fn(ctx); err != nil {
			logger.Error("shutdown failed", "component", s.Name, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
