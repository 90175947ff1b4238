package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"OplatymBot/internal/utils/logger/sl"

	"github.com/robfig/cron/v3"
)

const scheduledRunTimeout = 5 * time.Minute

// Scheduler runs Publish on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

// NewScheduler validates spec (standard 5-field cron syntax).
func NewScheduler(logger *slog.Logger, spec string, svc *Service) (*Scheduler, error) {
	op := "broadcast.NewScheduler"
	log := logger.With(slog.String("op", op), slog.String("schedule", spec))

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), scheduledRunTimeout)
		defer cancel()

		res, err := svc.Publish(ctx)
		switch {
		case errors.Is(err, ErrNoReviews):
			log.Debug("scheduled publish: nothing to send")
		case err != nil:
			log.Error("scheduled publish failed", sl.Err(err))
		default:
			log.Info("scheduled publish done",
				slog.Int("reviews", res.Reviews),
				slog.Int("chunks", res.Chunks))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Scheduler{cron: c, log: log}, nil
}

func (s *Scheduler) Start() {
	s.log.Info("review schedule started")
	s.cron.Start()
}

// Shutdown stops the schedule and waits for a running publish.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	op := "Scheduler.Shutdown"
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("force exit %s: %w", op, ctx.Err())
	}
}
