// internal/pkg/events/events.go
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderCreated is published once the commerce backend accepted an order
type OrderCreated struct {
	EventID           string          `json:"event_id"`
	OrderID           string          `json:"order_id"`
	SessionID         string          `json:"session_id"`
	UserID            uint            `json:"user_id"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	PaymentURLPresent bool            `json:"payment_url_present"`
	OccurredAt        time.Time       `json:"occurred_at"`
}

// PaymentCompleted is published when the payment redirect reports an outcome
type PaymentCompleted struct {
	EventID       string           `json:"event_id"`
	OrderID       string           `json:"order_id"`
	Status        string           `json:"status"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	PaymentMethod string           `json:"payment_method,omitempty"`
	ServiceType   string           `json:"service_type,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// NewEventID returns a fresh event id
func NewEventID() string {
	return uuid.NewString()
}

// Publisher emits checkout events
type Publisher interface {
	PublishOrderCreated(ctx context.Context, evt OrderCreated) error
	PublishPaymentCompleted(ctx context.Context, evt PaymentCompleted) error
	Close() error
}

// NoopPublisher drops every event. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderCreated(context.Context, OrderCreated) error         { return nil }
func (NoopPublisher) PublishPaymentCompleted(context.Context, PaymentCompleted) error { return nil }
func (NoopPublisher) Close() error                                                    { return nil }
