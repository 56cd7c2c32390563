// internal/domain/product/entity.go
package product

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultWarrantyMonths applies when the backend omits warranty_period
const DefaultWarrantyMonths = 12

// ProductID keeps the wire form of a product id. The commerce backend sends
// either strings or numbers and expects the same form back on requests.
type ProductID struct {
	value   string
	num     int64
	numeric bool
}

// StringID creates a string-form product id
func StringID(s string) ProductID {
	return ProductID{value: strings.TrimSpace(s)}
}

// NumericID creates a numeric-form product id
func NumericID(n int64) ProductID {
	return ProductID{value: strconv.FormatInt(n, 10), num: n, numeric: true}
}

// String returns the normalized string form
func (id ProductID) String() string {
	return id.value
}

// IsNumeric reports whether the id arrived as a JSON number
func (id ProductID) IsNumeric() bool {
	return id.numeric
}

// Int64 returns the numeric form when the id arrived as a number
func (id ProductID) Int64() (int64, bool) {
	return id.num, id.numeric
}

// IsValid reports whether the id can be used for selection
func (id ProductID) IsValid() bool {
	return id.value != ""
}

// Matches compares ids by their normalized string form
func (id ProductID) Matches(other ProductID) bool {
	return id.IsValid() && id.value == other.value
}

// MarshalJSON writes the id back in the form it was received
func (id ProductID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(strconv.FormatInt(id.num, 10)), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON accepts strings and integral numbers. Anything else yields
// an empty, unusable id instead of an error.
func (id *ProductID) UnmarshalJSON(data []byte) error {
	*id = ProductID{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			*id = StringID(s)
		}
		return nil
	}

	if n, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*id = NumericID(n)
		return nil
	}
	if f, err := strconv.ParseFloat(string(data), 64); err == nil && f == float64(int64(f)) {
		*id = NumericID(int64(f))
	}
	return nil
}

// Item represents a purchasable battery
type Item struct {
	ID               ProductID `json:"id"`
	Name             string    `json:"name"`
	Brand            string    `json:"brand,omitempty"`
	ManufacturerName string    `json:"manufacturer_name,omitempty"`
	Category         string    `json:"category"`
	Consumable       bool      `json:"consumable"`
	PriceCents       int64     `json:"price_cents"` // authoritative for math
	Price            string    `json:"price"`       // pre-formatted, display only
	WarrantyPeriod   int       `json:"warranty_period"`
	WarrantyMileage  *int      `json:"warranty_mileage,omitempty"`
	ImageURL         string    `json:"image_url,omitempty"`
	IsAvailable      bool      `json:"is_available"`
	IsRecommended    bool      `json:"is_recommended"`
}

// wireItem reads every scalar as raw JSON so that one off-type field
// degrades to its default instead of failing the item.
type wireItem struct {
	ID                ProductID       `json:"id"`
	Name              json.RawMessage `json:"name"`
	Brand             json.RawMessage `json:"brand"`
	ManufacturerName  json.RawMessage `json:"manufacturer_name"`
	Category          json.RawMessage `json:"category"`
	Consumable        json.RawMessage `json:"consumable"`
	PriceCents        json.RawMessage `json:"price_cents"`
	Price             json.RawMessage `json:"price"`
	WarrantyPeriod    json.RawMessage `json:"warranty_period"`
	WarrantyMileage   json.RawMessage `json:"warranty_mileage"`
	ImageURL          json.RawMessage `json:"image_url"`
	IsAvailable       json.RawMessage `json:"is_available"`
	IsRecommended     json.RawMessage `json:"is_recommended"`
	RecommendedLegacy json.RawMessage `json:"recommended"`
}

// UnmarshalJSON applies the wire defaults: warranty 12 months, available
// unless stated otherwise, recommended if either recommendation flag is set.
// Only a non-object item is an error.
func (i *Item) UnmarshalJSON(data []byte) error {
	var w wireItem
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	priceCents, _ := rawInt64(w.PriceCents)
	consumable, _ := rawBool(w.Consumable)
	recommended, _ := rawBool(w.IsRecommended)
	legacyRecommended, _ := rawBool(w.RecommendedLegacy)

	*i = Item{
		ID:               w.ID,
		Name:             rawAsString(w.Name),
		Brand:            brandName(w.Brand),
		ManufacturerName: rawAsString(w.ManufacturerName),
		Category:         rawAsString(w.Category),
		Consumable:       consumable,
		PriceCents:       priceCents,
		Price:            rawAsString(w.Price),
		WarrantyPeriod:   DefaultWarrantyMonths,
		ImageURL:         rawAsString(w.ImageURL),
		IsAvailable:      true,
		IsRecommended:    recommended || legacyRecommended,
	}
	if n, ok := rawInt64(w.WarrantyPeriod); ok && n > 0 {
		i.WarrantyPeriod = int(n)
	}
	if km, ok := rawInt64(w.WarrantyMileage); ok {
		mileage := int(km)
		i.WarrantyMileage = &mileage
	}
	if available, ok := rawBool(w.IsAvailable); ok {
		i.IsAvailable = available
	}
	return nil
}

// Subtotal returns the item price as money
func (i *Item) Subtotal() decimal.Decimal {
	return decimal.New(i.PriceCents, -2)
}

// IsSelectable reports whether the item can be chosen at checkout
func (i *Item) IsSelectable() bool {
	return i.ID.IsValid() && i.IsAvailable
}

// List is the product catalogue offered for one customer/vehicle/location
type List struct {
	Products []Item `json:"products"`
	BrandID  *int   `json:"brand_id,omitempty"`
}

// Find returns the item whose id matches, comparing normalized forms
func (l *List) Find(id ProductID) (*Item, bool) {
	if l == nil {
		return nil, false
	}
	for idx := range l.Products {
		if l.Products[idx].ID.Matches(id) {
			return &l.Products[idx], true
		}
	}
	return nil, false
}

// Recommended returns the items flagged as recommended
func (l *List) Recommended() []Item {
	if l == nil {
		return nil
	}
	var out []Item
	for _, item := range l.Products {
		if item.IsRecommended {
			out = append(out, item)
		}
	}
	return out
}

// rawInt64 reads a number or numeric string; fractions are truncated
func rawInt64(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(text)
	}
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return v, true
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return int64(f), true
	}
	return 0, false
}

// rawBool reads true/false, "true"/"false", "1"/"0" and 1/0
func rawBool(raw json.RawMessage) (bool, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false, false
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return false, false
		}
	}
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}

func rawAsString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// brandName accepts either "Amaron" or {"name": "Amaron"}
func brandName(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return rawAsString(raw)
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	return obj.Name
}
