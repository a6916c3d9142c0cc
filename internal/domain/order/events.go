package order

import (
	"context"
	"time"
)

// EventType identifies an order lifecycle event.
type EventType string

const (
	EventCreated  EventType = "OrderCreated"
	EventUpdated  EventType = "OrderUpdated"
	EventCanceled EventType = "OrderCanceled"
	EventDeleted  EventType = "OrderDeleted"
	EventPaid     EventType = "OrderPaid"
	EventShipped  EventType = "OrderShipped"
)

// Event is the envelope published after an order mutation commits. Order
// carries the post-mutation record; for EventDeleted it is the last state
// before removal.
type Event struct {
	ID         string    `json:"event_id"`
	Type       EventType `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Order      Snapshot  `json:"order"`
}

// Snapshot is the wire form of an order embedded in an event.
type Snapshot struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	Total      string `json:"total"`
	Status     Status `json:"status"`
	CustomerID string `json:"customer_id"`
}

// Snap converts an order into its event wire form.
func Snap(o Order) Snapshot {
	return Snapshot{
		ID:         o.ID,
		ProductID:  o.ProductID,
		Quantity:   o.Quantity,
		Total:      o.Total.StringFixed(2),
		Status:     o.Status,
		CustomerID: o.CustomerID,
	}
}

// Publisher delivers lifecycle events to interested consumers. Publishing
// happens after the storage transaction commits and must not block the
// request path.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}
