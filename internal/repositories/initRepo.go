package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"OplatymBot/internal/config"
	"OplatymBot/internal/storage"
	"OplatymBot/internal/storage/filestore"
	"OplatymBot/internal/storage/pgstore"
)

var ErrNotFound = errors.New("not found")

// Repository gives typed access to the bot documents.
type Repository struct {
	store storage.DocumentStore
	log   *slog.Logger
	now   func() time.Time
}

// New opens the backend selected by cfg.Storage.Driver.
func New(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*Repository, error) {
	op := "repositories.New()"
	log := logger.With(
		slog.String("op", op),
		slog.String("driver", cfg.Storage.Driver))

	var (
		store storage.DocumentStore
		err   error
	)
	switch cfg.Storage.Driver {
	case "", "file":
		store, err = filestore.New(logger, cfg.Storage.DataDir)
	case "postgres":
		store, err = pgstore.New(ctx, logger, cfg.Storage.DB)
	default:
		err = fmt.Errorf("%w: %q", storage.ErrUnknownDriver, cfg.Storage.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("storage opened")
	return NewWithStore(logger, store), nil
}

// NewWithStore wraps an already opened document store.
func NewWithStore(logger *slog.Logger, store storage.DocumentStore) *Repository {
	return &Repository{
		store: store,
		log:   logger.With(slog.String("component", "repositories")),
		now:   time.Now,
	}
}

// Shutdown closes the underlying store.
func (r *Repository) Shutdown(ctx context.Context) error {
	op := "Repository.Shutdown"
	done := make(chan error, 1)
	go func() { done <- r.store.Close() }()

	select {
	case <-ctx.Done():
		return fmt.Errorf("force exit %s: %w", op, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("error exit %s: %w", op, err)
		}
		return nil
	}
}
