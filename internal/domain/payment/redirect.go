// internal/domain/payment/redirect.go
package payment

import (
	"errors"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/your-org/battery-checkout/internal/domain/order"
)

// ErrUnknownRedirectStatus is returned when neither status nor paid carries a
// recognised value
var ErrUnknownRedirectStatus = errors.New("unknown payment redirect status")

// Outcome is the terminal result of a payment
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// PaymentStatus maps the outcome onto the order history status
func (o Outcome) PaymentStatus() order.PaymentStatus {
	if o == OutcomeSuccess {
		return order.PaymentStatusPaid
	}
	return order.PaymentStatusFailed
}

// Redirect is the parameter set the app is re-entered with after the gateway
type Redirect struct {
	Outcome       Outcome          `json:"outcome"`
	OrderID       string           `json:"order_id,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	PaymentMethod string           `json:"payment_method,omitempty"`
	ServiceType   string           `json:"service_type,omitempty"`
}

// ParseRedirect reads status=success|failed, or the legacy paid=true|false.
// When both are present, status wins.
func ParseRedirect(params url.Values) (*Redirect, error) {
	outcome, ok := parseStatus(first(params, "status"))
	if !ok {
		outcome, ok = parsePaid(first(params, "paid"))
	}
	if !ok {
		return nil, ErrUnknownRedirectStatus
	}

	r := &Redirect{
		Outcome:       outcome,
		OrderID:       first(params, "orderId", "order_id"),
		PaymentMethod: first(params, "paymentMethod", "payment_method"),
		ServiceType:   first(params, "serviceType", "service_type"),
	}
	if raw := first(params, "amount"); raw != "" {
		if amount, err := decimal.NewFromString(raw); err == nil && !amount.IsNegative() {
			r.Amount = &amount
		}
	}
	return r, nil
}

func parseStatus(v string) (Outcome, bool) {
	switch strings.ToLower(v) {
	case "success":
		return OutcomeSuccess, true
	case "failed":
		return OutcomeFailed, true
	}
	return "", false
}

func parsePaid(v string) (Outcome, bool) {
	switch strings.ToLower(v) {
	case "true":
		return OutcomeSuccess, true
	case "false":
		return OutcomeFailed, true
	}
	return "", false
}

// first returns the first non-empty value among keys
func first(params url.Values, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(params.Get(k)); v != "" {
			return v
		}
	}
	return ""
}
