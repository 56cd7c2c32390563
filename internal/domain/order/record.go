// internal/domain/order/record.go
package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents payment status of a recorded order
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Record is the local history entry for an order placed through checkout
type Record struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OrderID       string          `gorm:"uniqueIndex;not null;size:100" json:"order_id"`
	SessionID     string          `gorm:"index;size:64" json:"session_id"`
	UserID        uint            `gorm:"index" json:"user_id"`
	ProductID     string          `gorm:"size:100" json:"product_id"`
	PromoCode     string          `gorm:"size:50" json:"promo_code,omitempty"`
	TradeIn       bool            `gorm:"default:false" json:"trade_in"`
	Status        string          `gorm:"size:50" json:"status"`
	PaymentStatus PaymentStatus   `gorm:"not null;size:20;default:'pending'" json:"payment_status"`
	PaymentURL    string          `gorm:"size:1000" json:"payment_url,omitempty"`
	PaymentID     string          `gorm:"size:100" json:"payment_id,omitempty"`
	PaymentMethod string          `gorm:"size:50" json:"payment_method,omitempty"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	PaidAmount    decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"paid_amount"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName overrides
func (Record) TableName() string { return "checkout_orders" }

// NewRecord builds a pending history entry from a creation result
func NewRecord(result *CreationResult, sessionID string, userID uint, productID, promoCode string, tradeIn bool) *Record {
	rec := &Record{
		OrderID:       result.OrderID,
		SessionID:     sessionID,
		UserID:        userID,
		ProductID:     productID,
		PromoCode:     promoCode,
		TradeIn:       tradeIn,
		Status:        result.Status,
		PaymentStatus: PaymentStatusPending,
		TotalAmount:   result.TotalAmount,
		PaidAmount:    decimal.Zero,
	}
	if result.PaymentURL != nil {
		rec.PaymentURL = *result.PaymentURL
	}
	if result.PaymentID != nil {
		rec.PaymentID = *result.PaymentID
	}
	return rec
}

// IsSettled reports whether a payment outcome was already recorded
func (r *Record) IsSettled() bool {
	return r.PaymentStatus == PaymentStatusPaid || r.PaymentStatus == PaymentStatusFailed
}
