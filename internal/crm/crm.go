// Package crm holds the manager panel logic: order entry, status changes and
// per-manager statistics replayed from the action log.
package crm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"OplatymBot/internal/metrics"
	"OplatymBot/internal/models/domain"
	"OplatymBot/internal/repositories"
	"OplatymBot/internal/utils/logger/sl"
)

var ErrBadOrderFormat = errors.New("order must be \"@client, item, price\"")

// OrderUsage is shown to managers after a malformed order entry.
const OrderUsage = "⚠️ Неверный формат. Введите: @клиент, товар, цена\nНапример: @alice, VPN, 500"

// ParseOrderInput splits "@client, item, price" into its fields.
func ParseOrderInput(text string) (client, item, price string, err error) {
	parts := strings.Split(text, ",")
	if len(parts) != 3 {
		return "", "", "", ErrBadOrderFormat
	}
	client = strings.TrimPrefix(strings.TrimSpace(parts[0]), "@")
	item = strings.TrimSpace(parts[1])
	price = strings.TrimSpace(parts[2])
	if client == "" || item == "" || price == "" {
		return "", "", "", ErrBadOrderFormat
	}
	return client, item, price, nil
}

// ReplayStats folds the log into per-manager counters.
func ReplayStats(logs []domain.LogEntry) map[string]domain.ManagerStats {
	stats := make(map[string]domain.ManagerStats)
	for _, e := range logs {
		key := strconv.FormatInt(e.ManagerID, 10)
		s := stats[key]
		switch e.Action {
		case domain.ActionReply, domain.ActionQuickReply,
			domain.ActionClientOnHold, domain.ActionClientDone, domain.ActionClientScam:
			s.Clients++
		case domain.ActionOrderCreate, domain.ActionOrderClosed, domain.ActionOrderCancelled:
			s.Orders++
		case domain.ActionError:
			s.Errors++
		default:
			continue
		}
		stats[key] = s
	}
	return stats
}

// Service wraps the repository with action logging.
type Service struct {
	repo    *repositories.Repository
	metrics *metrics.Metrics
	log     *slog.Logger
}

func New(logger *slog.Logger, repo *repositories.Repository, m *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		metrics: m,
		log:     logger.With(slog.String("component", "crm")),
	}
}

// CreateOrder parses a manager entry and stores the order. A malformed entry
// is logged as an error action and ErrBadOrderFormat is returned.
func (s *Service) CreateOrder(ctx context.Context, managerID int64, input string) (string, domain.Order, error) {
	op := "crm.CreateOrder"
	client, item, price, err := ParseOrderInput(input)
	if err != nil {
		s.logAction(ctx, managerID, domain.ActionError, "order_format")
		return "", domain.Order{}, err
	}

	id, order, err := s.repo.CreateOrder(ctx, domain.Order{
		Client:    client,
		Item:      item,
		Price:     price,
		Status:    domain.OrderAwaitingPayment,
		CreatedBy: managerID,
	})
	if err != nil {
		return "", domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.OrdersCreated.Inc()
	s.logAction(ctx, managerID, domain.ActionOrderCreate, id)
	return id, order, nil
}

// SetOrderStatus closes or cancels an order.
func (s *Service) SetOrderStatus(ctx context.Context, managerID int64, orderID string, status domain.OrderStatus) (domain.Order, error) {
	op := "crm.SetOrderStatus"
	var action string
	switch status {
	case domain.OrderClosed:
		action = domain.ActionOrderClosed
	case domain.OrderCancelled:
		action = domain.ActionOrderCancelled
	default:
		return domain.Order{}, fmt.Errorf("%s: unsupported status %q", op, status)
	}

	order, err := s.repo.SetOrderStatus(ctx, orderID, status)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}
	s.logAction(ctx, managerID, action, orderID)
	return order, nil
}

// SetClientStatus moves a client to on_hold, done or scam.
func (s *Service) SetClientStatus(ctx context.Context, managerID int64, clientID string, status domain.ClientStatus) (domain.Client, error) {
	op := "crm.SetClientStatus"
	var action string
	switch status {
	case domain.ClientOnHold:
		action = domain.ActionClientOnHold
	case domain.ClientDone:
		action = domain.ActionClientDone
	case domain.ClientScam:
		action = domain.ActionClientScam
	default:
		return domain.Client{}, fmt.Errorf("%s: unsupported status %q", op, status)
	}

	client, err := s.repo.SetClientStatus(ctx, clientID, status)
	if err != nil {
		return domain.Client{}, fmt.Errorf("%s: %w", op, err)
	}
	s.logAction(ctx, managerID, action, clientID)
	return client, nil
}

// RecordReply logs a relayed manager message. sendErr is the outcome of the
// relay; a failed relay counts as an error for the manager.
func (s *Service) RecordReply(ctx context.Context, managerID int64, clientID, action string, sendErr error) {
	if sendErr != nil {
		s.logAction(ctx, managerID, domain.ActionError, clientID)
		return
	}
	if err := s.repo.MarkClientAnswered(ctx, clientID); err != nil {
		s.log.Error("failed to update client", slog.String("client_id", clientID), sl.Err(err))
	}
	s.logAction(ctx, managerID, action, clientID)
}

// RefreshStats replays the log, persists the result and returns it.
func (s *Service) RefreshStats(ctx context.Context) (map[string]domain.ManagerStats, error) {
	op := "crm.RefreshStats"
	logs, err := s.repo.ListLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	stats := ReplayStats(logs)
	if err := s.repo.SaveStats(ctx, stats); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}

// Stats replays the log like RefreshStats. When the log cannot be read it
// falls back to the last saved stats and reports fresh=false.
func (s *Service) Stats(ctx context.Context) (map[string]domain.ManagerStats, bool, error) {
	op := "crm.Stats"
	stats, err := s.RefreshStats(ctx)
	if err == nil {
		return stats, true, nil
	}
	s.log.Error("stats replay failed, using saved stats", slog.String("op", op), sl.Err(err))

	saved, loadErr := s.repo.LoadStats(ctx)
	if loadErr != nil {
		return nil, false, fmt.Errorf("%s: %w", op, errors.Join(err, loadErr))
	}
	return saved, false, nil
}

func (s *Service) logAction(ctx context.Context, managerID int64, action, target string) {
	if err := s.repo.AppendLog(ctx, managerID, action, target); err != nil {
		s.log.Error("failed to append manager log",
			slog.Int64("manager_id", managerID),
			slog.String("action", action),
			sl.Err(err))
	}
}
