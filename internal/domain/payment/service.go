// internal/domain/payment/service.go
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/battery-checkout/internal/domain/order"
	"github.com/your-org/battery-checkout/internal/pkg/events"
)

// Placement describes an order accepted by the commerce backend
type Placement struct {
	SessionID string
	UserID    uint
	ProductID string
	PromoCode string
	TradeIn   bool
	Result    *order.CreationResult
}

// Service records placed orders and payment outcomes. Persistence and
// publishing failures are logged and never undo a created order.
type Service struct {
	orders    order.Repository
	publisher events.Publisher
	logger    *logrus.Logger
	now       func() time.Time
}

// NewService creates a new payment service. orders may be nil when order
// history is disabled.
func NewService(orders order.Repository, publisher events.Publisher, logger *logrus.Logger) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		orders:    orders,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// RecordOrder writes the order history entry and publishes OrderCreated
func (s *Service) RecordOrder(ctx context.Context, p Placement) {
	log := s.logger.WithFields(logrus.Fields{
		"order_id":   p.Result.OrderID,
		"session_id": p.SessionID,
	})

	if s.orders != nil {
		rec := order.NewRecord(p.Result, p.SessionID, p.UserID, p.ProductID, p.PromoCode, p.TradeIn)
		if err := s.orders.Create(ctx, rec); err != nil {
			log.WithError(err).Error("failed to record order")
		}
	}

	err := s.publisher.PublishOrderCreated(ctx, events.OrderCreated{
		EventID:           events.NewEventID(),
		OrderID:           p.Result.OrderID,
		SessionID:         p.SessionID,
		UserID:            p.UserID,
		TotalAmount:       p.Result.TotalAmount,
		PaymentURLPresent: p.Result.HasPaymentURL(),
		OccurredAt:        s.now().UTC(),
	})
	if err != nil {
		log.WithError(err).Warn("failed to publish order created event")
	}
}

// CompleteRedirect applies a payment outcome to the order history and
// publishes PaymentCompleted. With history enabled, only orders recorded for
// userID are settled and published; unknown or foreign orders are ignored.
// The returned record is nil when nothing was settled.
func (s *Service) CompleteRedirect(ctx context.Context, userID uint, r *Redirect) *order.Record {
	now := s.now().UTC()
	log := s.logger.WithFields(logrus.Fields{
		"order_id": r.OrderID,
		"user_id":  userID,
		"outcome":  r.Outcome,
	})

	var rec *order.Record
	if s.orders != nil {
		var owned bool
		rec, owned = s.settle(ctx, log, userID, r, now)
		if !owned {
			return nil
		}
	}

	err := s.publisher.PublishPaymentCompleted(ctx, events.PaymentCompleted{
		EventID:       events.NewEventID(),
		OrderID:       r.OrderID,
		Status:        string(r.Outcome.PaymentStatus()),
		Amount:        r.Amount,
		PaymentMethod: r.PaymentMethod,
		ServiceType:   r.ServiceType,
		OccurredAt:    now,
	})
	if err != nil {
		log.WithError(err).Warn("failed to publish payment completed event")
	}

	log.Info("payment redirect processed")
	return rec
}

// settle reports whether the order belongs to userID alongside the updated
// record, which is nil when the update itself failed.
func (s *Service) settle(ctx context.Context, log *logrus.Entry, userID uint, r *Redirect, now time.Time) (*order.Record, bool) {
	if r.OrderID == "" {
		log.Warn("payment redirect without order id")
		return nil, false
	}
	existing, err := s.orders.GetByOrderID(ctx, r.OrderID)
	switch {
	case errors.Is(err, order.ErrRecordNotFound):
		log.Warn("payment redirect for unknown order")
		return nil, false
	case err != nil:
		log.WithError(err).Error("failed to load order record")
		return nil, false
	case existing.UserID != userID:
		log.WithField("owner_id", existing.UserID).Warn("payment redirect for another user's order")
		return nil, false
	}

	outcome := order.PaymentOutcome{
		Status:        r.Outcome.PaymentStatus(),
		PaymentMethod: r.PaymentMethod,
		CompletedAt:   now,
	}
	if r.Amount != nil {
		outcome.Amount = *r.Amount
	}

	updated, err := s.orders.UpdatePaymentOutcome(ctx, r.OrderID, outcome)
	if err != nil {
		log.WithError(err).Error("failed to record payment outcome")
		return nil, true
	}
	return updated, true
}
