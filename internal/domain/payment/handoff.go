// internal/domain/payment/handoff.go
package payment

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/your-org/battery-checkout/internal/domain/order"
)

// ErrMissingPaymentURL means the order exists but the gateway cannot be
// opened. The screen shows a recoverable error; nothing is retried.
var ErrMissingPaymentURL = errors.New("order created without a payment url")

// Handoff is what the payment screen needs to open the gateway
type Handoff struct {
	OrderID     string          `json:"order_id"`
	PaymentURL  string          `json:"payment_url"`
	PaymentID   string          `json:"payment_id,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewHandoff builds the hand-off for a created order
func NewHandoff(res *order.CreationResult) (*Handoff, error) {
	if res == nil {
		return nil, errors.New("no order to hand off")
	}
	if !res.HasPaymentURL() {
		return nil, ErrMissingPaymentURL
	}
	h := &Handoff{
		OrderID:     res.OrderID,
		PaymentURL:  strings.TrimSpace(*res.PaymentURL),
		TotalAmount: res.TotalAmount,
	}
	if res.PaymentID != nil {
		h.PaymentID = *res.PaymentID
	}
	return h, nil
}
