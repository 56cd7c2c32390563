// internal/pkg/commerce/orders.go
package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/your-org/battery-checkout/internal/domain/order"
	"github.com/your-org/battery-checkout/internal/domain/pricing"
	"github.com/your-org/battery-checkout/internal/domain/product"
)

// CalculateRequest prices an order without committing it
type CalculateRequest struct {
	Location  order.Location
	ProductID product.ProductID
	PromoCode *string
	TradeIn   bool
}

// CalculateResult is a priced order plus the promo information found in the
// same response
type CalculateResult struct {
	Calculation *order.Calculation
	Discount    pricing.DiscountInfo
	Details     *order.PromoDetails
	Message     string
}

// ProductsRequest asks for the catalogue offered to one customer and vehicle
type ProductsRequest struct {
	Customer           order.Customer
	Location           order.Location
	VehiclePlateNumber string
}

// CreateOrderRequest places an order
type CreateOrderRequest struct {
	Customer    order.Customer
	Location    order.Location
	Vehicle     order.Vehicle
	ProductID   product.ProductID
	BrandID     *int
	PaymentType string
	TradeIn     bool
	PromoCode   *string
	Notes       string
	RedirectURL string
	LeadReason  string
	OrderType   string
}

// PromoValidation is the standalone result of /promo_codes/validate
type PromoValidation struct {
	Code     string               `json:"code"`
	Valid    bool                 `json:"valid"`
	Discount pricing.DiscountInfo `json:"discount"`
	Details  *order.PromoDetails  `json:"details,omitempty"`
	Message  string               `json:"message,omitempty"`
}

type calculateOrderBody struct {
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
	ProductID product.ProductID `json:"product_id"`
	PromoCode *string           `json:"promo_code,omitempty"`
	TradeIn   bool              `json:"trade_in"`
}

type createOrderBody struct {
	Latitude    float64           `json:"latitude"`
	Longitude   float64           `json:"longitude"`
	ProductID   product.ProductID `json:"product_id"`
	BrandID     *int              `json:"brand_id,omitempty"`
	PaymentType string            `json:"payment_type,omitempty"`
	TradeIn     bool              `json:"trade_in"`
	PromoCode   *string           `json:"promo_code,omitempty"`
	LeadReason  string            `json:"lead_reason,omitempty"`
	OrderType   string            `json:"order_type,omitempty"`
	Customer    order.Customer    `json:"customer"`
	Vehicle     order.Vehicle     `json:"vehicle"`
	Address     string            `json:"address"`
	Notes       string            `json:"notes,omitempty"`
	RedirectURL string            `json:"redirect_url,omitempty"`
}

type productsOrderBody struct {
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`
	VehiclePlateNumber string  `json:"vehicle_plate_number"`
}

// CalculateOrder prices an order. Missing numeric fields default to zero;
// a missing trade-in discount on a trade-in order uses the configured amount.
func (c *Client) CalculateOrder(ctx context.Context, token string, req CalculateRequest) (*CalculateResult, error) {
	payload := map[string]any{
		"order": calculateOrderBody{
			Latitude:  req.Location.Latitude,
			Longitude: req.Location.Longitude,
			ProductID: req.ProductID,
			PromoCode: req.PromoCode,
			TradeIn:   req.TradeIn,
		},
	}

	body, err := c.do(ctx, "calculate order", http.MethodPost, endpointCalculate, token, payload)
	if err != nil {
		return nil, err
	}
	return c.parseCalculation(body, req), nil
}

// ValidatePromo checks a code without pricing an order
func (c *Client) ValidatePromo(ctx context.Context, token, code string) (*PromoValidation, error) {
	body, err := c.do(ctx, "validate promo", http.MethodPost, endpointValidatePromo, token, map[string]string{"code": code})
	if err != nil {
		return nil, err
	}
	body = unwrapData(body, "promo_code")

	result := &PromoValidation{
		Code:     code,
		Valid:    true,
		Discount: pricing.ExtractDiscountInfo(body),
		Details:  parsePromoDetails(body),
	}
	for _, key := range []string{"valid", "is_valid", "is_promo_valid"} {
		if v, ok := boolValue(body[key]); ok {
			result.Valid = v
			break
		}
	}
	if s, ok := nonEmptyString(body["message"]); ok {
		result.Message = s
	}
	if result.Details == nil && !result.Discount.IsZero() {
		result.Details = order.PromoDetailsFrom(result.Discount)
	}
	return result, nil
}

// LoadProducts fetches the catalogue. The array may sit under "products" or "data".
func (c *Client) LoadProducts(ctx context.Context, token string, req ProductsRequest) (*product.List, error) {
	payload := map[string]any{
		"user": req.Customer,
		"order": productsOrderBody{
			Latitude:           req.Location.Latitude,
			Longitude:          req.Location.Longitude,
			VehiclePlateNumber: req.VehiclePlateNumber,
		},
	}

	body, err := c.do(ctx, "load products", http.MethodPost, endpointProducts, token, payload)
	if err != nil {
		return nil, err
	}
	return c.parseProductList(body), nil
}

// CreateOrder places an order. Unlike the other calls, a success response
// that cannot be fully understood is an error.
func (c *Client) CreateOrder(ctx context.Context, token string, req CreateOrderRequest) (*order.CreationResult, error) {
	payload := map[string]any{
		"order": createOrderBody{
			Latitude:    req.Location.Latitude,
			Longitude:   req.Location.Longitude,
			ProductID:   req.ProductID,
			BrandID:     req.BrandID,
			PaymentType: req.PaymentType,
			TradeIn:     req.TradeIn,
			PromoCode:   req.PromoCode,
			LeadReason:  req.LeadReason,
			OrderType:   req.OrderType,
			Customer:    req.Customer,
			Vehicle:     req.Vehicle,
			Address:     req.Location.Address,
			Notes:       req.Notes,
			RedirectURL: req.RedirectURL,
		},
	}

	body, err := c.do(ctx, "create order", http.MethodPost, endpointCreateOrder, token, payload)
	if err != nil {
		return nil, err
	}
	result, err := parseCreationResult(body)
	if err != nil {
		return nil, &ParseError{Op: "create order", Err: err}
	}
	return result, nil
}

func (c *Client) parseCalculation(body map[string]any, req CalculateRequest) *CalculateResult {
	b := unwrapData(body, "total")

	money := func(key string) decimal.Decimal {
		v, _ := pricing.MoneyAt(b, key)
		return v
	}

	calc := &order.Calculation{
		Subtotal:      money("subtotal"),
		DeliveryFee:   money("delivery_fee"),
		PromoDiscount: money("promo_discount"),
	}

	if v, ok := pricing.MoneyAt(b, "trade_in_discount"); ok {
		calc.TradeInDiscount = v
	} else if req.TradeIn {
		calc.TradeInDiscount = pricing.NewEstimator(c.tradeInDiscount).TradeInDiscount
	}

	if v, ok := pricing.MoneyAt(b, "total"); ok {
		calc.Total = v
	} else {
		calc.Total = decimal.Max(calc.LocalTotal(), decimal.Zero)
	}

	calc.PromoCode = promoCodeString(b["promo_code"])
	if valid, ok := boolValue(b["is_promo_valid"]); ok {
		calc.IsPromoValid = valid
	} else {
		calc.IsPromoValid = calc.PromoCode != nil && calc.PromoDiscount.IsPositive()
	}

	result := &CalculateResult{
		Calculation: calc,
		Discount:    pricing.ExtractDiscountInfo(b),
		Details:     parsePromoDetails(b),
	}
	if s, ok := nonEmptyString(b["message"]); ok {
		result.Message = s
	}
	return result
}

func parsePromoDetails(body map[string]any) *order.PromoDetails {
	raw, ok := body["promo_details"].(map[string]any)
	if !ok {
		return nil
	}
	details := &order.PromoDetails{DiscountType: pricing.DiscountFixed}
	if s, ok := raw["discount_type"].(string); ok {
		if t, ok := pricing.ParseDiscountType(s); ok {
			details.DiscountType = t
		}
	}
	details.DiscountValue, _ = pricing.MoneyAt(raw, "discount_value")
	if v, ok := pricing.MoneyAt(raw, "minimum_order_amount"); ok {
		details.MinimumOrderAmount = &v
	}
	return details
}

// parseProductList decodes items one by one; an item that cannot be read is
// skipped so the rest of the catalogue stays usable.
func (c *Client) parseProductList(body map[string]any) *product.List {
	var rawProducts any
	source := body
	switch {
	case body["products"] != nil:
		rawProducts = body["products"]
	case body["data"] != nil:
		rawProducts = body["data"]
		// {"data": {"products": [...], "brand_id": 3}}
		if inner, ok := rawProducts.(map[string]any); ok {
			source = inner
			rawProducts = inner["products"]
		}
	}

	list := &product.List{Products: []product.Item{}}
	items, _ := rawProducts.([]any)
	for idx, raw := range items {
		var item product.Item
		data, err := json.Marshal(raw)
		if err == nil {
			err = json.Unmarshal(data, &item)
		}
		if err != nil {
			c.logger.WithError(err).WithField("index", idx).Warn("skipping unreadable product")
			continue
		}
		list.Products = append(list.Products, item)
	}

	if n, ok := source["brand_id"].(json.Number); ok {
		if v, err := n.Int64(); err == nil {
			id := int(v)
			list.BrandID = &id
		}
	}
	return list
}

func parseCreationResult(body map[string]any) (*order.CreationResult, error) {
	b := unwrapData(body, "order_id")

	orderID, ok := idString(b["order_id"])
	if !ok {
		return nil, errors.New("order_id missing")
	}
	status, ok := b["status"].(string)
	if !ok || strings.TrimSpace(status) == "" {
		return nil, errors.New("status missing")
	}
	total, ok := pricing.MoneyAt(b, "total_amount")
	if !ok {
		return nil, fmt.Errorf("total_amount missing or invalid for order %s", orderID)
	}

	result := &order.CreationResult{
		OrderID:     orderID,
		Status:      status,
		TotalAmount: total,
	}
	if s, ok := nonEmptyString(b["payment_url"]); ok {
		result.PaymentURL = &s
	}
	if s, ok := idString(b["payment_id"]); ok {
		result.PaymentID = &s
	}
	return result, nil
}

// promoCodeString accepts "CODE" or {"code": "CODE", ...}
func promoCodeString(v any) *string {
	switch p := v.(type) {
	case string:
		if p != "" {
			return &p
		}
	case map[string]any:
		if s, ok := nonEmptyString(p["code"]); ok {
			return &s
		}
	}
	return nil
}

func idString(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		if strings.TrimSpace(id) != "" {
			return strings.TrimSpace(id), true
		}
	case json.Number:
		return id.String(), true
	}
	return "", false
}

func boolValue(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
	case json.Number:
		return b.String() != "0", true
	}
	return false, false
}
