package repositories

import (
	"context"
	"fmt"

	"OplatymBot/internal/models/domain"
	"OplatymBot/internal/storage"
)

// TouchClient records an incoming private message. The client is created
// with status in_progress on first contact.
func (r *Repository) TouchClient(ctx context.Context, clientID, username, lastMessage string) (domain.Client, error) {
	op := "Repository.TouchClient"
	var out domain.Client
	clients := map[string]domain.Client{}
	err := r.store.Update(ctx, storage.DocClients, &clients, func() error {
		c := r.clientOrNew(clients, clientID)
		if username != "" {
			c.Username = username
		}
		c.LastMessage = lastMessage
		c.UpdatedAt = r.now()
		clients[clientID] = c
		out = c
		return nil
	})
	if err != nil {
		return domain.Client{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// SetClientStatus changes the status, creating the client if it was never seen.
func (r *Repository) SetClientStatus(ctx context.Context, clientID string, status domain.ClientStatus) (domain.Client, error) {
	op := "Repository.SetClientStatus"
	var out domain.Client
	clients := map[string]domain.Client{}
	err := r.store.Update(ctx, storage.DocClients, &clients, func() error {
		c := r.clientOrNew(clients, clientID)
		c.Status = status
		c.UpdatedAt = r.now()
		clients[clientID] = c
		out = c
		return nil
	})
	if err != nil {
		return domain.Client{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// MarkClientAnswered bumps UpdatedAt after a manager reply, creating the
// client if it was never seen.
func (r *Repository) MarkClientAnswered(ctx context.Context, clientID string) error {
	op := "Repository.MarkClientAnswered"
	clients := map[string]domain.Client{}
	err := r.store.Update(ctx, storage.DocClients, &clients, func() error {
		c := r.clientOrNew(clients, clientID)
		c.UpdatedAt = r.now()
		clients[clientID] = c
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetClient returns ErrNotFound for unknown ids.
func (r *Repository) GetClient(ctx context.Context, clientID string) (domain.Client, error) {
	op := "Repository.GetClient"
	clients, err := r.ListClients(ctx)
	if err != nil {
		return domain.Client{}, fmt.Errorf("%s: %w", op, err)
	}
	c, ok := clients[clientID]
	if !ok {
		return domain.Client{}, fmt.Errorf("%s: client %s: %w", op, clientID, ErrNotFound)
	}
	return c, nil
}

func (r *Repository) ListClients(ctx context.Context) (map[string]domain.Client, error) {
	op := "Repository.ListClients"
	clients := map[string]domain.Client{}
	if err := r.store.Load(ctx, storage.DocClients, &clients); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return clients, nil
}

func (r *Repository) clientOrNew(clients map[string]domain.Client, clientID string) domain.Client {
	c, ok := clients[clientID]
	if !ok {
		c = domain.Client{Status: domain.ClientInProgress}
	}
	return c
}
