package filestore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(slog.New(slog.NewTextHandler(io.Discard, nil)), t.TempDir())
	require.NoError(t, err)
	return s
}

func TestLoadMissingReturnsDefault(t *testing.T) {
	s := newStore(t)
	list := []string{}
	require.NoError(t, s.Load(context.Background(), "reviews", &list))
	require.Empty(t, list)
}

func TestLoadCorruptedReturnsDefault(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(s.Path("clients"), []byte("{broken"), 0o644))

	m := map[string]string{}
	require.NoError(t, s.Load(context.Background(), "clients", &m))
	require.Empty(t, m)
}

func TestSaveThenLoad(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "orders", map[string]string{"1001": "VPN"}))

	raw, err := os.ReadFile(s.Path("orders"))
	require.NoError(t, err)
	require.Equal(t, "{\n  \"1001\": \"VPN\"\n}\n", string(raw))

	got := map[string]string{}
	require.NoError(t, s.Load(ctx, "orders", &got))
	require.Equal(t, map[string]string{"1001": "VPN"}, got)

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestUpdateAbortsOnError(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "logs", []int{1}))

	boom := errors.New("boom")
	var list []int
	err := s.Update(ctx, "logs", &list, func() error {
		list = append(list, 2)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var reread []int
	require.NoError(t, s.Load(ctx, "logs", &reread))
	require.Equal(t, []int{1}, reread)
}

func TestUpdateIsSerialised(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var list []int
			assert.NoError(t, s.Update(ctx, "logs", &list, func() error {
				list = append(list, len(list))
				return nil
			}))
		}()
	}
	wg.Wait()

	var list []int
	require.NoError(t, s.Load(ctx, "logs", &list))
	require.Len(t, list, 20)
}

func TestCancelledContext(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Save(ctx, "stats", map[string]int{}), context.Canceled)
}
