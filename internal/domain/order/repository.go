// internal/domain/order/repository.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrRecordNotFound is returned when no history entry exists for an order id
var ErrRecordNotFound = errors.New("order record not found")

// PaymentOutcome is the settled result applied to a record
type PaymentOutcome struct {
	Status        PaymentStatus
	Amount        decimal.Decimal
	PaymentMethod string
	CompletedAt   time.Time
}

// Repository persists order history
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByOrderID(ctx context.Context, orderID string) (*Record, error)
	UpdatePaymentOutcome(ctx context.Context, orderID string, outcome PaymentOutcome) (*Record, error)
}

// GormRepository stores records in postgres through gorm
type GormRepository struct {
	db *gorm.DB
}

// NewRepository creates a new gorm-backed repository
func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Create inserts a record; a duplicate order id keeps the first entry
func (r *GormRepository) Create(ctx context.Context, rec *Record) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "order_id"}}, DoNothing: true}).
		Create(rec).Error
	if err != nil {
		return fmt.Errorf("failed to create order record: %w", err)
	}
	return nil
}

// GetByOrderID loads a record by the commerce order id
func (r *GormRepository) GetByOrderID(ctx context.Context, orderID string) (*Record, error) {
	var rec Record
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order record: %w", err)
	}
	return &rec, nil
}

// UpdatePaymentOutcome settles a record. A paid record is never downgraded
// by a later failure redirect for the same order.
func (r *GormRepository) UpdatePaymentOutcome(ctx context.Context, orderID string, outcome PaymentOutcome) (*Record, error) {
	var rec Record
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ?", orderID).First(&rec).Error; err != nil {
			return err
		}

		if rec.PaymentStatus == PaymentStatusPaid {
			return nil
		}

		completedAt := outcome.CompletedAt.UTC()
		updates := map[string]interface{}{
			"payment_status": outcome.Status,
			"completed_at":   &completedAt,
		}
		if outcome.PaymentMethod != "" {
			updates["payment_method"] = outcome.PaymentMethod
		}
		if outcome.Status == PaymentStatusPaid {
			updates["paid_amount"] = outcome.Amount
		}
		return tx.Model(&rec).Updates(updates).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update payment outcome: %w", err)
	}
	return &rec, nil
}
