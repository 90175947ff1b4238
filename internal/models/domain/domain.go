package domain

import (
	"time"

	"github.com/google/uuid"
)

// ClientStatus is the lifecycle status of a CRM client.
type ClientStatus string

const (
	ClientInProgress ClientStatus = "in_progress"
	ClientOnHold     ClientStatus = "on_hold"
	ClientDone       ClientStatus = "done"
	ClientScam       ClientStatus = "scam"
)

// OrderStatus is the lifecycle status of an order.
type OrderStatus string

const (
	OrderAwaitingPayment OrderStatus = "awaiting_payment"
	OrderClosed          OrderStatus = "closed"
	OrderCancelled       OrderStatus = "cancelled"
)

// Review is a customer feedback waiting to be published.
type Review struct {
	ID             uuid.UUID `json:"id"`
	AuthorID       int64     `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}

// Client is a customer tracked by managers, keyed by chat id.
type Client struct {
	Username    string       `json:"username"`
	Status      ClientStatus `json:"status"`
	LastMessage string       `json:"last_message"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Order is keyed by a numeric string id starting at 1001.
type Order struct {
	Client    string      `json:"client"`
	Item      string      `json:"item"`
	Price     string      `json:"price"`
	Status    OrderStatus `json:"status"`
	CreatedBy int64       `json:"created_by,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// LogEntry is one manager action in the append-only log.
type LogEntry struct {
	ID        uuid.UUID `json:"id"`
	ManagerID int64     `json:"manager_id"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	At        time.Time `json:"at"`
}

// ManagerStats are counters derived by replaying the action log.
type ManagerStats struct {
	Clients int `json:"clients"`
	Orders  int `json:"orders"`
	Errors  int `json:"errors"`
}

// Manager log actions.
const (
	ActionReply          = "reply"
	ActionQuickReply     = "quick_reply"
	ActionClientOnHold   = "client_on_hold"
	ActionClientDone     = "client_done"
	ActionClientScam     = "client_scam"
	ActionOrderCreate    = "order_create"
	ActionOrderClosed    = "order_closed"
	ActionOrderCancelled = "order_cancelled"
	ActionError          = "error"
)
