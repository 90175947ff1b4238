package graceful

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

type Operation func(ctx context.Context) error

// Stage is a set of clean up operations run concurrently. Stages run in
// order, so producers stop before the storage they write to.
type Stage map[string]Operation

// GracefulShutdown waits for termination syscalls or ctx cancellation and
// runs the clean up stages after that.
func GracefulShutdown(ctx context.Context, timeout time.Duration, stages []Stage, logger *slog.Logger) <-chan struct{} {
	op := "GracefulShutdown()"
	log := logger.With(
		slog.String("op", op))

	wait := make(chan struct{})
	go func() {
		s := make(chan os.Signal, 1)
		signal.Notify(s, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(s)

		select {
		case sig := <-s:
			log.Info("shutting down", slog.String("signal", sig.String()))
		case <-ctx.Done():
			log.Info("shutting down", slog.String("reason", context.Cause(ctx).Error()))
		}

		ctxTimeout, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		Run(ctxTimeout, stages, logger)
		log.Info("graceful shutdown completed")

		close(wait)
	}()

	return wait
}

// Run executes the stages one after another. A failing operation is logged
// and does not stop the rest.
func Run(ctx context.Context, stages []Stage, logger *slog.Logger) {
	op := "graceful.Run()"
	log := logger.With(
		slog.String("op", op))

	for _, stage := range stages {
		var g errgroup.Group
		for key, operation := range stage {
			key, operation := key, operation
			g.Go(func() error {
				log.Info("cleaning up", slog.String("process", key))
				if err := operation(ctx); err != nil {
					log.Error("error clean up", slog.String("process", key), slog.String("error", err.Error()))
					return nil
				}

				log.Info("shutdown gracefully", slog.String("process", key))
				return nil
			})
		}
		_ = g.Wait()
	}
}
