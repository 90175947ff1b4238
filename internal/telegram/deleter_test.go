package telegram

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestDeleter() (*deleter, *fakeAPI) {
	api := &fakeAPI{}
	return newDeleter(api, slog.New(slog.NewTextHandler(io.Discard, nil))), api
}

func deletedCount(api *fakeAPI) int {
	api.mu.Lock()
	defer api.mu.Unlock()
	return len(api.deleted)
}

func pendingCount(d *deleter) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func TestDeleterFires(t *testing.T) {
	d, api := newTestDeleter()

	d.schedule(-900, 5, 10*time.Millisecond)
	require.Eventually(t, func() bool { return deletedCount(api) == 1 }, time.Second, 5*time.Millisecond)
	require.Zero(t, pendingCount(d))

	api.mu.Lock()
	require.Equal(t, msgKey{chatID: -900, messageID: 5}, api.deleted[0])
	api.mu.Unlock()
}

func TestDeleterCancel(t *testing.T) {
	d, api := newTestDeleter()

	d.schedule(-900, 5, 20*time.Millisecond)
	require.True(t, d.cancel(-900, 5))
	require.False(t, d.cancel(-900, 5))

	time.Sleep(50 * time.Millisecond)
	require.Zero(t, deletedCount(api))
}

func TestDeleterRescheduleDeletesOnce(t *testing.T) {
	d, api := newTestDeleter()

	d.schedule(-900, 5, 10*time.Millisecond)
	d.schedule(-900, 5, 30*time.Millisecond)
	require.Equal(t, 1, pendingCount(d))

	require.Eventually(t, func() bool { return deletedCount(api) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, deletedCount(api))
}

func TestDeleterStop(t *testing.T) {
	d, api := newTestDeleter()

	d.schedule(-900, 1, 20*time.Millisecond)
	d.schedule(-900, 2, 20*time.Millisecond)
	require.Equal(t, 2, d.stop())

	d.schedule(-900, 3, time.Millisecond)
	require.Zero(t, pendingCount(d))

	time.Sleep(50 * time.Millisecond)
	require.Zero(t, deletedCount(api))
}
