package broadcast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"OplatymBot/internal/metrics"
	"OplatymBot/internal/models/domain"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	reviews   []domain.Review
	removed   []uuid.UUID
	removeErr error
}

func (m *memStore) ListReviews(context.Context) ([]domain.Review, error) {
	return append([]domain.Review(nil), m.reviews...), nil
}

func (m *memStore) RemoveReviews(_ context.Context, ids []uuid.UUID) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.removed = append(m.removed, ids...)
	drop := map[uuid.UUID]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	var kept []domain.Review
	for _, r := range m.reviews {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	m.reviews = kept
	return nil
}

type fakeSender struct {
	sent   []*bot.SendMessageParams
	failAt int // 1-based call number that fails; 0 never
}

func (f *fakeSender) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	if f.failAt > 0 && len(f.sent)+1 == f.failAt {
		return nil, errors.New("telegram: Too Many Requests")
	}
	f.sent = append(f.sent, p)
	return &models.Message{ID: len(f.sent)}, nil
}

func newService(store ReviewStore, sender Sender) *Service {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), store, sender,
		func() int64 { return -100500 }, DefaultLimit, 0, metrics.New())
}

func review(author int64, username, text string) domain.Review {
	return domain.Review{ID: uuid.New(), AuthorID: author, AuthorUsername: username, Text: text}
}

// reassemble checks that chunks are consecutive slices of text with only
// whitespace dropped between them.
func reassemble(t *testing.T, text string, chunks []string) {
	t.Helper()
	rest := text
	for i, c := range chunks {
		if i > 0 {
			rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		}
		require.True(t, strings.HasPrefix(rest, c), "chunk %d is not the next slice", i)
		rest = rest[len(c):]
	}
	require.Empty(t, strings.TrimSpace(rest))
}

func TestRender(t *testing.T) {
	got := Render([]domain.Review{
		review(1, "alice", "Быстро и надёжно"),
		review(2, "", "Спасибо!"),
	})
	require.Equal(t, "📣 НОВЫЕ ОТЗЫВЫ:\n\n"+
		"1. От: alice\nБыстро и надёжно\n---\n"+
		"2. От: id:2\nСпасибо!\n---", got)
}

func TestSplitShortText(t *testing.T) {
	require.Equal(t, []string{"hello"}, Split("hello", 10))
	require.Nil(t, Split("", 10))
}

func TestSplitPrefersNewlineThenSpace(t *testing.T) {
	require.Equal(t, []string{"aaa bbb", "ccc"}, Split("aaa bbb\nccc", 9))
	require.Equal(t, []string{"aaaa", "bbbbbb"}, Split("aaaa bbbbbb", 9))
	require.Equal(t, []string{"abcde", "fghij", "k"}, Split("abcdefghijk", 5))
}

func TestSplitLongBroadcast(t *testing.T) {
	long := strings.Repeat("Отличный обменник, всё пришло вовремя. ", 150)
	text := Render([]domain.Review{review(1, "alice", long), review(2, "bob", "ок")})
	require.Greater(t, utf8.RuneCountInString(text), DefaultLimit)

	chunks := Split(text, DefaultLimit)
	require.GreaterOrEqual(t, len(chunks), 2)
	for _, c := range chunks {
		require.LessOrEqual(t, utf8.RuneCountInString(c), DefaultLimit)
		require.NotEmpty(t, c)
	}
	reassemble(t, text, chunks)
}

func TestSplitWithoutBreaks(t *testing.T) {
	text := strings.Repeat("ж", 9001)
	chunks := Split(text, DefaultLimit)
	require.Len(t, chunks, 3)
	require.Equal(t, text, strings.Join(chunks, ""))
}

func TestPublishNoReviews(t *testing.T) {
	store := &memStore{}
	sender := &fakeSender{}
	_, err := newService(store, sender).Publish(context.Background())
	require.ErrorIs(t, err, ErrNoReviews)
	require.Empty(t, sender.sent)
	require.Empty(t, store.removed)
}

func TestPublishSendsAndClears(t *testing.T) {
	store := &memStore{reviews: []domain.Review{
		review(1, "alice", strings.Repeat("слово ", 700)),
		review(2, "bob", "Всё супер"),
	}}
	sender := &fakeSender{}

	res, err := newService(store, sender).Publish(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, res.Reviews)
	require.Equal(t, len(sender.sent), res.Chunks)
	require.GreaterOrEqual(t, res.Chunks, 2)
	for _, p := range sender.sent {
		require.Equal(t, int64(-100500), p.ChatID)
	}
	require.Empty(t, store.reviews)
}

func TestPublishKeepsReviewsOnFailure(t *testing.T) {
	store := &memStore{reviews: []domain.Review{
		review(1, "alice", strings.Repeat("слово ", 1500)),
	}}
	sender := &fakeSender{failAt: 2}

	res, err := newService(store, sender).Publish(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, res.Chunks)
	require.Len(t, sender.sent, 1, "remaining chunks are not sent")
	require.Len(t, store.reviews, 1)
	require.Empty(t, store.removed)
}

func TestPublishReportsUnclearedReviews(t *testing.T) {
	store := &memStore{
		reviews:   []domain.Review{review(1, "alice", "Отлично")},
		removeErr: errors.New("disk full"),
	}
	sender := &fakeSender{}

	res, err := newService(store, sender).Publish(context.Background())
	require.ErrorIs(t, err, ErrNotCleared)
	require.Equal(t, Result{Reviews: 1, Chunks: 1}, res)
	require.Len(t, sender.sent, 1)
	require.Len(t, store.reviews, 1)
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	svc := newService(&memStore{}, &fakeSender{})
	_, err := NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)), "every day", svc)
	require.Error(t, err)

	s, err := NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)), "0 20 * * *", svc)
	require.NoError(t, err)
	s.Start()
	require.NoError(t, s.Shutdown(context.Background()))
}
