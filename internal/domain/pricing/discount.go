// internal/domain/pricing/discount.go
package pricing

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// DiscountType represents how a promo discount value is interpreted
type DiscountType string

const (
	DiscountFixed      DiscountType = "fixed"
	DiscountPercentage DiscountType = "percentage"
)

// ParseDiscountType maps a wire value onto a DiscountType.
// The boolean is false when the value is not recognised.
func ParseDiscountType(raw string) (DiscountType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "fixed", "fixed_amount", "flat", "amount":
		return DiscountFixed, true
	case "percentage", "percent", "%":
		return DiscountPercentage, true
	}
	return DiscountFixed, false
}

// DiscountInfo is the discount amount and type resolved from a promo response
type DiscountInfo struct {
	Amount decimal.Decimal `json:"amount"`
	Type   DiscountType    `json:"type"`
}

// IsZero reports whether no discount was resolved
func (d DiscountInfo) IsZero() bool {
	return d.Amount.IsZero()
}

type amountSource struct {
	name    string
	extract func(body map[string]any) (decimal.Decimal, bool)
}

type typeSource struct {
	name    string
	extract func(body map[string]any) (DiscountType, bool)
}

// Ordered by priority; the first source that yields a usable value wins.
// New response shapes are added here, not as extra branches.
var amountSources = []amountSource{
	{name: "promo_code.value", extract: promoCodeValue},
	{name: "promo_discount", extract: numberAt("promo_discount")},
	{name: "discount", extract: numberAt("discount")},
	{name: "discount_amount", extract: numberAt("discount_amount")},
	{name: "amount", extract: numberAt("amount")},
}

var typeSources = []typeSource{
	{name: "promo_code.value_type", extract: discountTypeAt("promo_code", "value_type")},
	{name: "promo_details.discount_type", extract: discountTypeAt("promo_details", "discount_type")},
}

// ExtractDiscountInfo resolves a discount amount and type from any of the
// response shapes the commerce backend has shipped. It never fails: when no
// source yields an amount the result is a zero fixed discount.
func ExtractDiscountInfo(body map[string]any) DiscountInfo {
	amount, ok := resolveAmount(body)
	if !ok {
		return DiscountInfo{Amount: decimal.Zero, Type: DiscountFixed}
	}
	return DiscountInfo{Amount: amount, Type: resolveType(body)}
}

func resolveAmount(body map[string]any) (decimal.Decimal, bool) {
	for _, src := range amountSources {
		if v, ok := src.extract(body); ok {
			return v, true
		}
	}
	return decimal.Zero, false
}

func resolveType(body map[string]any) DiscountType {
	for _, src := range typeSources {
		if t, ok := src.extract(body); ok {
			return t
		}
	}
	return DiscountFixed
}

// promoCodeValue reads promo_code.value, which may be "RM50", "10" or a bare number
func promoCodeValue(body map[string]any) (decimal.Decimal, bool) {
	raw, ok := lookup(body, "promo_code", "value")
	if !ok {
		return decimal.Zero, false
	}
	if s, isString := raw.(string); isString {
		return parseMoneyString(s)
	}
	return toDecimal(raw)
}

func numberAt(path ...string) func(map[string]any) (decimal.Decimal, bool) {
	return func(body map[string]any) (decimal.Decimal, bool) {
		raw, ok := lookup(body, path...)
		if !ok {
			return decimal.Zero, false
		}
		return toDecimal(raw)
	}
}

func discountTypeAt(path ...string) func(map[string]any) (DiscountType, bool) {
	return func(body map[string]any) (DiscountType, bool) {
		raw, ok := lookup(body, path...)
		if !ok {
			return "", false
		}
		s, isString := raw.(string)
		if !isString {
			return "", false
		}
		return ParseDiscountType(s)
	}
}

// lookup walks nested JSON objects; any non-object step or null is a miss
func lookup(body map[string]any, path ...string) (any, bool) {
	var current any = body
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok || current == nil {
			return nil, false
		}
	}
	return current, true
}

// parseMoneyString keeps only digits and decimal points before parsing
func parseMoneyString(s string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func toDecimal(raw any) (decimal.Decimal, bool) {
	var (
		d   decimal.Decimal
		err error
	)
	switch v := raw.(type) {
	case float64:
		d = decimal.NewFromFloat(v)
	case float32:
		d = decimal.NewFromFloat32(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case int64:
		d = decimal.NewFromInt(v)
	case json.Number:
		d, err = decimal.NewFromString(v.String())
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(v))
	default:
		return decimal.Zero, false
	}
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// MoneyAt reads a non-negative money value at a nested path. Numbers and
// numeric strings are accepted; anything else is a miss.
func MoneyAt(body map[string]any, path ...string) (decimal.Decimal, bool) {
	raw, ok := lookup(body, path...)
	if !ok {
		return decimal.Zero, false
	}
	return toDecimal(raw)
}
