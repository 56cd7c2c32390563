// internal/domain/order/entity.go
package order

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/your-org/battery-checkout/internal/domain/pricing"
)

// Calculation is one priced snapshot of an order. It is replaced wholesale
// by the next successful server response and never merged.
type Calculation struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	PromoDiscount   decimal.Decimal `json:"promo_discount"`
	TradeInDiscount decimal.Decimal `json:"trade_in_discount"`
	Total           decimal.Decimal `json:"total"` // server value, authoritative
	PromoCode       *string         `json:"promo_code,omitempty"`
	IsPromoValid    bool            `json:"is_promo_valid"`
}

// LocalTotal recomputes the total from the components. Only used for
// diagnostics; Total from the server is what the customer pays.
func (c *Calculation) LocalTotal() decimal.Decimal {
	return c.Subtotal.Add(c.DeliveryFee).Sub(c.PromoDiscount).Sub(c.TradeInDiscount)
}

// Equal compares two calculations value by value
func (c *Calculation) Equal(other *Calculation) bool {
	if c == nil || other == nil {
		return c == other
	}
	samePromo := (c.PromoCode == nil && other.PromoCode == nil) ||
		(c.PromoCode != nil && other.PromoCode != nil && *c.PromoCode == *other.PromoCode)
	return samePromo &&
		c.IsPromoValid == other.IsPromoValid &&
		c.Subtotal.Equal(other.Subtotal) &&
		c.DeliveryFee.Equal(other.DeliveryFee) &&
		c.PromoDiscount.Equal(other.PromoDiscount) &&
		c.TradeInDiscount.Equal(other.TradeInDiscount) &&
		c.Total.Equal(other.Total)
}

// PromoDetails describes an applied promo
type PromoDetails struct {
	DiscountType       pricing.DiscountType `json:"discount_type"`
	DiscountValue      decimal.Decimal      `json:"discount_value"`
	MinimumOrderAmount *decimal.Decimal     `json:"minimum_order_amount,omitempty"` // informational only
}

// PromoDetailsFrom builds details from a resolved discount
func PromoDetailsFrom(info pricing.DiscountInfo) *PromoDetails {
	return &PromoDetails{DiscountType: info.Type, DiscountValue: info.Amount}
}

// Location is supplied by the location picker and read-only to checkout
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// Validate checks coordinate ranges
func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("latitude %.6f out of range", l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("longitude %.6f out of range", l.Longitude)
	}
	return nil
}

// Customer is collected by the customer form
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// MissingField returns the first empty field name, or "" when complete.
// Format validation (phone, email) happens in the form, not here.
func (c Customer) MissingField() string {
	switch {
	case strings.TrimSpace(c.Name) == "":
		return "name"
	case strings.TrimSpace(c.Phone) == "":
		return "phone"
	case strings.TrimSpace(c.Email) == "":
		return "email"
	}
	return ""
}

// Vehicle identifies the car the battery is for
type Vehicle struct {
	PlateNumber string `json:"plate_number"`
}

// MissingField returns "plate_number" when the plate is blank
func (v Vehicle) MissingField() string {
	if strings.TrimSpace(v.PlateNumber) == "" {
		return "plate_number"
	}
	return ""
}

// CreationResult is returned by the commerce backend when an order is placed
type CreationResult struct {
	OrderID     string          `json:"order_id"`
	Status      string          `json:"status"`
	PaymentURL  *string         `json:"payment_url,omitempty"`
	PaymentID   *string         `json:"payment_id,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// HasPaymentURL reports whether the customer can be sent to the gateway
func (r *CreationResult) HasPaymentURL() bool {
	return r != nil && r.PaymentURL != nil && strings.TrimSpace(*r.PaymentURL) != ""
}
