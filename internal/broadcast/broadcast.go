// Package broadcast publishes pending reviews to the public channel.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"OplatymBot/internal/metrics"
	"OplatymBot/internal/models/domain"
	"OplatymBot/internal/utils/logger/sl"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// DefaultLimit leaves headroom below Telegram's 4096 characters per message.
const DefaultLimit = 4000

const header = "📣 НОВЫЕ ОТЗЫВЫ:\n\n"

var ErrNoReviews = errors.New("no reviews to publish")

// ErrNotCleared means every chunk was delivered but the published reviews
// are still stored, so the next publish repeats them.
var ErrNotCleared = errors.New("reviews published but not cleared")

type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type ReviewStore interface {
	ListReviews(ctx context.Context) ([]domain.Review, error)
	RemoveReviews(ctx context.Context, ids []uuid.UUID) error
}

// Result describes one publish run.
type Result struct {
	Reviews int
	Chunks  int
}

// Render builds the channel post for all reviews.
func Render(reviews []domain.Review) string {
	parts := make([]string, 0, len(reviews))
	for i, r := range reviews {
		author := r.AuthorUsername
		if author == "" {
			author = fmt.Sprintf("id:%d", r.AuthorID)
		}
		parts = append(parts, fmt.Sprintf("%d. От: %s\n%s\n---", i+1, author, r.Text))
	}
	return header + strings.Join(parts, "\n")
}

// Split cuts text into pieces of at most limit characters. Each cut is made
// at the last newline, else the last space, before the limit, else exactly
// at the limit. Whitespace at the start of the remainder is dropped.
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	runes := []rune(text)
	var parts []string
	for len(runes) > limit {
		head := runes[:limit]
		cut := lastIndex(head, '\n')
		if cut <= 0 {
			cut = lastIndex(head, ' ')
		}
		if cut <= 0 {
			cut = limit
		}
		parts = append(parts, string(runes[:cut]))
		runes = trimLeftSpace(runes[cut:])
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func lastIndex(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

func trimLeftSpace(runes []rune) []rune {
	i := 0
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return runes[i:]
}

type Service struct {
	store   ReviewStore
	sender  Sender
	chatID  func() int64
	limit   int
	limiter *rate.Limiter
	metrics *metrics.Metrics
	log     *slog.Logger

	// one publish at a time, so /end and the schedule cannot double-post
	mu sync.Mutex
}

// New creates a publisher. interval paces consecutive messages; zero
// disables pacing.
func New(
	logger *slog.Logger,
	store ReviewStore,
	sender Sender,
	chatID func() int64,
	limit int,
	interval time.Duration,
	m *metrics.Metrics,
) *Service {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if interval > 0 {
		limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return &Service{
		store:   store,
		sender:  sender,
		chatID:  chatID,
		limit:   limit,
		limiter: limiter,
		metrics: m,
		log:     logger.With(slog.String("component", "broadcast")),
	}
}

// Publish sends all pending reviews and removes them from the store once
// every chunk was delivered. On a send error the remaining chunks are
// skipped and the reviews stay pending.
func (s *Service) Publish(ctx context.Context) (Result, error) {
	op := "broadcast.Publish"
	log := s.log.With(slog.String("op", op))

	s.mu.Lock()
	defer s.mu.Unlock()

	reviews, err := s.store.ListReviews(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(reviews) == 0 {
		return Result{}, ErrNoReviews
	}

	chatID := s.chatID()
	chunks := Split(Render(reviews), s.limit)
	res := Result{Reviews: len(reviews)}

	for _, chunk := range chunks {
		if err := s.limiter.Wait(ctx); err != nil {
			return res, fmt.Errorf("%s: %w", op, err)
		}
		if _, err := s.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   chunk,
		}); err != nil {
			s.metrics.BroadcastFailures.Inc()
			log.Error("review chunk not sent",
				slog.Int("sent", res.Chunks),
				slog.Int("total", len(chunks)),
				slog.String("error", err.Error()))
			return res, fmt.Errorf("%s: chunk %d/%d: %w", op, res.Chunks+1, len(chunks), err)
		}
		res.Chunks++
		s.metrics.BroadcastChunks.Inc()
	}

	ids := make([]uuid.UUID, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.ID)
	}
	if err := s.store.RemoveReviews(ctx, ids); err != nil {
		s.metrics.ReviewsPublished.Add(float64(len(reviews)))
		log.Error("published reviews not removed", slog.Int("reviews", len(reviews)), sl.Err(err))
		return res, fmt.Errorf("%s: %w: %w", op, ErrNotCleared, err)
	}

	s.metrics.ReviewsPublished.Add(float64(len(reviews)))
	log.Info("reviews published",
		slog.Int("reviews", res.Reviews),
		slog.Int("chunks", res.Chunks),
		slog.Int64("chat_id", chatID))
	return res, nil
}
