package repositories

import (
	"context"
	"fmt"

	"OplatymBot/internal/models/domain"
	"OplatymBot/internal/storage"

	"github.com/google/uuid"
)

// AppendLog records one manager action.
func (r *Repository) AppendLog(ctx context.Context, managerID int64, action, target string) error {
	op := "Repository.AppendLog"
	entry := domain.LogEntry{
		ID:        uuid.New(),
		ManagerID: managerID,
		Action:    action,
		Target:    target,
		At:        r.now(),
	}
	var logs []domain.LogEntry
	err := r.store.Update(ctx, storage.DocLogs, &logs, func() error {
		logs = append(logs, entry)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Repository) ListLogs(ctx context.Context) ([]domain.LogEntry, error) {
	op := "Repository.ListLogs"
	var logs []domain.LogEntry
	if err := r.store.Load(ctx, storage.DocLogs, &logs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return logs, nil
}

func (r *Repository) SaveStats(ctx context.Context, stats map[string]domain.ManagerStats) error {
	op := "Repository.SaveStats"
	if err := r.store.Save(ctx, storage.DocStats, stats); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Repository) LoadStats(ctx context.Context) (map[string]domain.ManagerStats, error) {
	op := "Repository.LoadStats"
	stats := map[string]domain.ManagerStats{}
	if err := r.store.Load(ctx, storage.DocStats, &stats); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}
