// internal/domain/pricing/engine.go
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FixedTradeInDiscount is the client-side trade-in estimate. The commerce
// backend may return a different trade-in discount, which then wins.
var FixedTradeInDiscount = decimal.RequireFromString("20.00")

// Estimator computes optimistic totals shown before the server responds
type Estimator struct {
	TradeInDiscount decimal.Decimal
}

// NewEstimator creates an estimator; a negative trade-in discount falls back to the default
func NewEstimator(tradeInDiscount decimal.Decimal) Estimator {
	if tradeInDiscount.IsNegative() {
		tradeInDiscount = FixedTradeInDiscount
	}
	return Estimator{TradeInDiscount: tradeInDiscount}
}

// Estimate returns subtotal + deliveryFee - tradeIn - promoDiscount, floored at zero
func (e Estimator) Estimate(subtotal, deliveryFee decimal.Decimal, tradeInActive bool, promoDiscount decimal.Decimal) decimal.Decimal {
	total := subtotal.Add(deliveryFee)
	if tradeInActive {
		total = total.Sub(e.TradeInDiscount)
	}
	if promoDiscount.IsPositive() {
		total = total.Sub(promoDiscount)
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total.Round(2)
}

// ComputeLocalEstimate uses the fixed client-side trade-in discount
func ComputeLocalEstimate(subtotal, deliveryFee decimal.Decimal, tradeInActive bool, promoDiscount decimal.Decimal) decimal.Decimal {
	return Estimator{TradeInDiscount: FixedTradeInDiscount}.Estimate(subtotal, deliveryFee, tradeInActive, promoDiscount)
}

// DiscountAmount converts a resolved discount into money against a subtotal.
// Percentages are clamped to 0-100 and fixed amounts never exceed the subtotal.
func DiscountAmount(info DiscountInfo, subtotal decimal.Decimal) decimal.Decimal {
	if !info.Amount.IsPositive() || !subtotal.IsPositive() {
		return decimal.Zero
	}
	if info.Type == DiscountPercentage {
		pct := decimal.Min(info.Amount, decimal.NewFromInt(100))
		return subtotal.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
	}
	return decimal.Min(info.Amount, subtotal).Round(2)
}

// FromCents converts an integer minor-unit price into money
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FormatDiscountMessage renders "RM50.00 OFF" or "10.00% OFF"
func FormatDiscountMessage(amount decimal.Decimal, discountType DiscountType, currency string) string {
	if discountType == DiscountPercentage {
		return fmt.Sprintf("%s%% OFF", amount.StringFixed(2))
	}
	return fmt.Sprintf("%s%s OFF", currency, amount.StringFixed(2))
}
