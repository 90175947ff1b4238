package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sessionCount(s *sessionStore) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func TestSessionExpires(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	s := newSessionStore(10 * time.Minute)
	s.now = func() time.Time { return now }

	s.set(1, RepliesTo{ClientID: "42"})
	require.Equal(t, RepliesTo{ClientID: "42"}, s.get(1))

	now = now.Add(9 * time.Minute)
	require.Equal(t, RepliesTo{ClientID: "42"}, s.get(1))

	now = now.Add(2 * time.Minute)
	require.Equal(t, Idle{}, s.get(1))
	require.Zero(t, sessionCount(s))
}

func TestSessionSetIdleClears(t *testing.T) {
	s := newSessionStore(0)
	require.Equal(t, defaultSessionTTL, s.ttl)

	s.set(1, CreatingOrder{})
	s.set(2, AwaitingReview{})
	require.Equal(t, 2, sessionCount(s))

	s.set(1, Idle{})
	s.clear(2)
	require.Equal(t, Idle{}, s.get(1))
	require.Zero(t, sessionCount(s))
}

func TestSessionPrunesExpired(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	s := newSessionStore(time.Minute)
	s.now = func() time.Time { return now }

	s.set(1, AwaitingReview{})
	now = now.Add(2 * time.Minute)
	s.set(2, AwaitingReview{})

	require.Equal(t, 1, sessionCount(s))
}
