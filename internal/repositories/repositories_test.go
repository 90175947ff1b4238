package repositories

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"OplatymBot/internal/models/domain"
	"OplatymBot/internal/storage/filestore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := filestore.New(log, t.TempDir())
	require.NoError(t, err)
	repo := NewWithStore(log, store)
	repo.now = func() time.Time { return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC) }
	return repo
}

func TestAddAndRemoveReviews(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	first, err := repo.AddReview(ctx, 1, "alice", "Всё быстро, спасибо!")
	require.NoError(t, err)
	second, err := repo.AddReview(ctx, 2, "", "  как есть  ")
	require.NoError(t, err)

	reviews, err := repo.ListReviews(ctx)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	require.Equal(t, first.ID, reviews[0].ID)
	require.Equal(t, "  как есть  ", reviews[1].Text)

	require.NoError(t, repo.RemoveReviews(ctx, []uuid.UUID{first.ID}))
	reviews, err = repo.ListReviews(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.Review{second}, reviews)
}

func TestNextOrderID(t *testing.T) {
	require.Equal(t, "1001", NextOrderID(nil))
	require.Equal(t, "1001", NextOrderID(map[string]domain.Order{"abc": {}}))
	require.Equal(t, "1008", NextOrderID(map[string]domain.Order{"1002": {}, "1007": {}, "x": {}}))
	require.Equal(t, "1001", NextOrderID(map[string]domain.Order{"5": {}}))
}

func TestCreateOrderAndStatus(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	id, order, err := repo.CreateOrder(ctx, domain.Order{Client: "alice", Item: "VPN", Price: "500"})
	require.NoError(t, err)
	require.Equal(t, "1001", id)
	require.Equal(t, domain.OrderAwaitingPayment, order.Status)

	id2, _, err := repo.CreateOrder(ctx, domain.Order{Client: "bob", Item: "Steam", Price: "1000"})
	require.NoError(t, err)
	require.Equal(t, "1002", id2)

	closed, err := repo.SetOrderStatus(ctx, id, domain.OrderClosed)
	require.NoError(t, err)
	require.Equal(t, domain.OrderClosed, closed.Status)

	_, err = repo.SetOrderStatus(ctx, "9999", domain.OrderCancelled)
	require.ErrorIs(t, err, ErrNotFound)

	got, err := repo.GetOrder(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Client)
}

func TestClientsCreatedImplicitly(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	_, err := repo.GetClient(ctx, "42")
	require.ErrorIs(t, err, ErrNotFound)

	c, err := repo.TouchClient(ctx, "42", "alice", "привет")
	require.NoError(t, err)
	require.Equal(t, domain.ClientInProgress, c.Status)

	c, err = repo.SetClientStatus(ctx, "42", domain.ClientOnHold)
	require.NoError(t, err)
	require.Equal(t, "alice", c.Username)
	require.Equal(t, "привет", c.LastMessage)

	c, err = repo.TouchClient(ctx, "42", "", "ещё вопрос")
	require.NoError(t, err)
	require.Equal(t, "alice", c.Username)
	require.Equal(t, domain.ClientOnHold, c.Status)

	c, err = repo.SetClientStatus(ctx, "77", domain.ClientScam)
	require.NoError(t, err)
	require.Equal(t, domain.ClientScam, c.Status)

	clients, err := repo.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 2)
}

func TestLogsAndStats(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	require.NoError(t, repo.AppendLog(ctx, 7, domain.ActionReply, "42"))
	require.NoError(t, repo.AppendLog(ctx, 7, domain.ActionOrderCreate, "1001"))

	logs, err := repo.ListLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, domain.ActionReply, logs[0].Action)

	stats := map[string]domain.ManagerStats{"7": {Clients: 1, Orders: 1}}
	require.NoError(t, repo.SaveStats(ctx, stats))
	got, err := repo.LoadStats(ctx)
	require.NoError(t, err)
	require.Equal(t, stats, got)
}
