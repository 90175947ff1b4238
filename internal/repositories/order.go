package repositories

import (
	"context"
	"fmt"
	"strconv"

	"OplatymBot/internal/models/domain"
	"OplatymBot/internal/storage"
)

// FirstOrderID is used when no numeric order id exists yet.
const FirstOrderID = 1001

// NextOrderID returns one above the largest numeric key, or FirstOrderID.
// Non-numeric keys are ignored.
func NextOrderID(orders map[string]domain.Order) string {
	next := FirstOrderID
	for key := range orders {
		n, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		if n+1 > next {
			next = n + 1
		}
	}
	return strconv.Itoa(next)
}

// CreateOrder allocates the next id and stores the order in one step.
func (r *Repository) CreateOrder(ctx context.Context, order domain.Order) (string, domain.Order, error) {
	op := "Repository.CreateOrder"
	var id string
	orders := map[string]domain.Order{}
	err := r.store.Update(ctx, storage.DocOrders, &orders, func() error {
		id = NextOrderID(orders)
		if order.Status == "" {
			order.Status = domain.OrderAwaitingPayment
		}
		order.CreatedAt = r.now()
		orders[id] = order
		return nil
	})
	if err != nil {
		return "", domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}
	return id, order, nil
}

// SetOrderStatus returns ErrNotFound for unknown ids.
func (r *Repository) SetOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	op := "Repository.SetOrderStatus"
	var out domain.Order
	orders := map[string]domain.Order{}
	err := r.store.Update(ctx, storage.DocOrders, &orders, func() error {
		o, ok := orders[orderID]
		if !ok {
			return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		o.Status = status
		orders[orderID] = o
		out = o
		return nil
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *Repository) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	op := "Repository.GetOrder"
	orders, err := r.ListOrders(ctx)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}
	o, ok := orders[orderID]
	if !ok {
		return domain.Order{}, fmt.Errorf("%s: order %s: %w", op, orderID, ErrNotFound)
	}
	return o, nil
}

func (r *Repository) ListOrders(ctx context.Context) (map[string]domain.Order, error) {
	op := "Repository.ListOrders"
	orders := map[string]domain.Order{}
	if err := r.store.Load(ctx, storage.DocOrders, &orders); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}
