package graceful

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunStagesInOrder(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	var mu sync.Mutex
	var order []string
	record := func(name string, err error) Operation {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return err
		}
	}

	Run(context.Background(), []Stage{
		{"bot": record("bot", nil), "http": record("http", errors.New("boom"))},
		{"storage": record("storage", nil)},
	}, log)

	require.Len(t, order, 3)
	require.ElementsMatch(t, []string{"bot", "http"}, order[:2])
	require.Equal(t, "storage", order[2])
}

func TestGracefulShutdownOnCancel(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())

	var opErr error
	called := false
	wait := GracefulShutdown(ctx, time.Second, []Stage{
		{"op": func(ctx context.Context) error {
			called = true
			opErr = ctx.Err()
			return nil
		}},
	}, log)

	cancel()
	select {
	case <-wait:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	require.True(t, called)
	// the clean up context outlives the cancelled parent
	require.NoError(t, opErr)
}
