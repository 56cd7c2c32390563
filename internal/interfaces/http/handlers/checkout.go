// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/battery-checkout/internal/domain/checkout"
	"github.com/your-org/battery-checkout/internal/domain/order"
	"github.com/your-org/battery-checkout/internal/domain/payment"
	"github.com/your-org/battery-checkout/internal/domain/pricing"
	"github.com/your-org/battery-checkout/internal/domain/product"
	"github.com/your-org/battery-checkout/internal/interfaces/http/middleware"
	"github.com/your-org/battery-checkout/internal/pkg/commerce"
)

// PromoValidator previews a promo code without touching a session
type PromoValidator interface {
	ValidatePromo(ctx context.Context, token, code string) (*commerce.PromoValidation, error)
}

// CheckoutHandler drives checkout sessions
type CheckoutHandler struct {
	registry *checkout.Registry
	promos   PromoValidator
	payments *payment.Service
	currency string
	logger   *logrus.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(registry *checkout.Registry, promos PromoValidator, payments *payment.Service, currency string, logger *logrus.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		registry: registry,
		promos:   promos,
		payments: payments,
		currency: currency,
		logger:   logger,
	}
}

// SessionView is the checkout screen state returned by every session endpoint
type SessionView struct {
	ID                string                                     `json:"id"`
	ProductID         *product.ProductID                         `json:"product_id"`
	Products          []product.Item                             `json:"products"`
	BrandID           *int                                       `json:"brand_id,omitempty"`
	Location          *order.Location                            `json:"location"`
	Customer          order.Customer                             `json:"customer"`
	Vehicle           order.Vehicle                              `json:"vehicle"`
	TradeIn           bool                                       `json:"trade_in"`
	Promo             *checkout.Promo                            `json:"promo"`
	PromoDetails      *order.PromoDetails                        `json:"promo_details,omitempty"`
	LatestCalculation *order.Calculation                         `json:"latest_calculation"`
	LocalEstimate     decimal.Decimal                            `json:"local_estimate"`
	DisplayTotal      decimal.Decimal                            `json:"display_total"`
	DiscountMessage   string                                     `json:"discount_message,omitempty"`
	Statuses          map[checkout.OperationKind]checkout.Status `json:"statuses"`
	Order             *order.CreationResult                      `json:"order,omitempty"`
	UpdatedAt         time.Time                                  `json:"updated_at"`
}

func (h *CheckoutHandler) view(s *checkout.Session) SessionView {
	snap := s.Snapshot()
	products := snap.Products
	if products == nil {
		products = []product.Item{}
	}
	return SessionView{
		ID:                snap.ID,
		ProductID:         snap.ProductID,
		Products:          products,
		BrandID:           snap.BrandID,
		Location:          snap.Location,
		Customer:          snap.Customer,
		Vehicle:           snap.Vehicle,
		TradeIn:           snap.TradeIn,
		Promo:             snap.Promo,
		PromoDetails:      snap.PromoDetails,
		LatestCalculation: snap.LatestCalculation,
		LocalEstimate:     s.LocalEstimate(),
		DisplayTotal:      s.DisplayTotal(),
		DiscountMessage:   s.DiscountMessage(h.currency),
		Statuses:          snap.Statuses,
		Order:             snap.Order,
		UpdatedAt:         snap.UpdatedAt,
	}
}

func (h *CheckoutHandler) respondView(c *gin.Context, status int, message string, s *checkout.Session) {
	c.JSON(status, gin.H{
		"message": message,
		"data":    h.view(s),
	})
}

// requestContext carries the caller's bearer token to the commerce backend
func requestContext(c *gin.Context) context.Context {
	return checkout.ContextWithToken(c.Request.Context(), middleware.GetAccessTokenFromContext(c))
}

// session loads the :id session of the authenticated user
func (h *CheckoutHandler) session(c *gin.Context) (*checkout.Session, bool) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return nil, false
	}

	s, err := h.registry.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}
	return s, true
}

// respondTransition answers a session transition. Failures of the
// operation itself are reported through the session statuses, so only
// precondition errors change the HTTP status.
func (h *CheckoutHandler) respondTransition(c *gin.Context, s *checkout.Session, err error, message string) {
	var validationErr *checkout.ValidationError
	if errors.As(err, &validationErr) {
		respondError(c, h.logger, err)
		return
	}
	h.respondView(c, http.StatusOK, message, s)
}

// CreateSession handles POST /checkout/sessions
func (h *CheckoutHandler) CreateSession(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	s, err := h.registry.Create(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondView(c, http.StatusCreated, "Checkout session created", s)
}

// GetSession handles GET /checkout/sessions/:id
func (h *CheckoutHandler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.respondView(c, http.StatusOK, "Checkout session retrieved successfully", s)
}

// DeleteSession handles DELETE /checkout/sessions/:id
func (h *CheckoutHandler) DeleteSession(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	if err := h.registry.Destroy(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout session deleted",
	})
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Address   string   `json:"address"`
}

func (r locationRequest) toLocation() order.Location {
	return order.Location{Latitude: *r.Latitude, Longitude: *r.Longitude, Address: strings.TrimSpace(r.Address)}
}

// LoadProducts handles POST /checkout/sessions/:id/products
func (h *CheckoutHandler) LoadProducts(c *gin.Context) {
	var req struct {
		Customer order.Customer  `json:"customer"`
		Vehicle  order.Vehicle   `json:"vehicle"`
		Location locationRequest `json:"location" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	s, ok := h.session(c)
	if !ok {
		return
	}
	err := s.LoadProducts(requestContext(c), req.Customer, req.Vehicle, req.Location.toLocation())
	h.respondTransition(c, s, err, "Products loaded")
}

// SetProduct handles PUT /checkout/sessions/:id/product
func (h *CheckoutHandler) SetProduct(c *gin.Context) {
	var req struct {
		ProductID *product.ProductID `json:"product_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	s, ok := h.session(c)
	if !ok {
		return
	}
	err := s.SetProduct(requestContext(c), *req.ProductID)
	h.respondTransition(c, s, err, "Product selected")
}

// SetLocation handles PUT /checkout/sessions/:id/location
func (h *CheckoutHandler) SetLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	s, ok := h.session(c)
	if !ok {
		return
	}
	err := s.SetLocation(requestContext(c), req.toLocation())
	h.respondTransition(c, s, err, "Location updated")
}

// SetTradeIn handles PUT /checkout/sessions/:id/trade-in
func (h *CheckoutHandler) SetTradeIn(c *gin.Context) {
	var req struct {
		TradeIn *bool `json:"trade_in" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	s, ok := h.session(c)
	if !ok {
		return
	}
	err := s.SetTradeIn(requestContext(c), *req.TradeIn)
	h.respondTransition(c, s, err, "Trade-in updated")
}

// Recalculate handles POST /checkout/sessions/:id/recalculate
func (h *CheckoutHandler) Recalculate(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	err := s.Recalculate(requestContext(c))
	h.respondTransition(c, s, err, "Order recalculated")
}

// ApplyPromo handles POST /checkout/sessions/:id/promo. A rejected code
// answers 422 with the reason and the unchanged session.
func (h *CheckoutHandler) ApplyPromo(c *gin.Context) {
	var req struct {
		Code           string           `json:"code" binding:"required"`
		DiscountAmount *decimal.Decimal `json:"discount_amount"`
		DiscountType   string           `json:"discount_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	hint := checkout.PromoHint{Amount: req.DiscountAmount}
	if t, ok := pricing.ParseDiscountType(req.DiscountType); ok {
		hint.Type = t
	}

	s, ok := h.session(c)
	if !ok {
		return
	}

	err := s.ApplyPromo(requestContext(c), req.Code, hint)
	var validationErr *checkout.ValidationError
	switch {
	case err == nil:
		h.respondView(c, http.StatusOK, "Promo code applied", s)
	case errors.Is(err, checkout.ErrStaleResponse):
		h.respondView(c, http.StatusOK, "Promo request superseded", s)
	case errors.As(err, &validationErr):
		respondError(c, h.logger, err)
	default:
		_ = c.Error(err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
			"data":  h.view(s),
		})
	}
}

// RemovePromo handles DELETE /checkout/sessions/:id/promo
func (h *CheckoutHandler) RemovePromo(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	err := s.RemovePromo(requestContext(c))
	h.respondTransition(c, s, err, "Promo code removed")
}

// ClearErrors handles POST /checkout/sessions/:id/clear-errors
func (h *CheckoutHandler) ClearErrors(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.ClearErrors(c.Request.Context())
	h.respondView(c, http.StatusOK, "Errors cleared", s)
}

// CreateOrder handles POST /checkout/sessions/:id/orders. On success the
// caller receives the payment hand-off and the session is closed.
func (h *CheckoutHandler) CreateOrder(c *gin.Context) {
	var req struct {
		Customer    order.Customer   `json:"customer"`
		Vehicle     order.Vehicle    `json:"vehicle"`
		Location    *locationRequest `json:"location"`
		TradeIn     *bool            `json:"trade_in"`
		PromoCode   *string          `json:"promo_code"`
		Notes       string           `json:"notes"`
		RedirectURL string           `json:"redirect_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	s, ok := h.session(c)
	if !ok {
		return
	}

	in := checkout.CreateOrderInput{
		Customer:    req.Customer,
		Vehicle:     req.Vehicle,
		TradeIn:     req.TradeIn,
		PromoCode:   req.PromoCode,
		Notes:       req.Notes,
		RedirectURL: req.RedirectURL,
	}
	if req.Location != nil {
		loc := req.Location.toLocation()
		in.Location = &loc
	}

	ctx := requestContext(c)
	result, err := s.CreateOrder(ctx, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	snap := s.Snapshot()
	placement := payment.Placement{
		SessionID: s.ID(),
		UserID:    s.UserID(),
		TradeIn:   snap.TradeIn,
		Result:    result,
	}
	if snap.ProductID != nil {
		placement.ProductID = snap.ProductID.String()
	}
	if snap.Promo != nil {
		placement.PromoCode = snap.Promo.Code
	}
	h.payments.RecordOrder(ctx, placement)

	handoff, err := payment.NewHandoff(result)
	if err != nil {
		// the order exists; the session stays so the customer can retry payment
		c.JSON(errorStatus(err), gin.H{
			"error": "Payment link unavailable for this order",
			"data":  result,
		})
		return
	}

	if err := h.registry.Destroy(c.Request.Context(), s.ID(), s.UserID()); err != nil {
		h.logger.WithError(err).WithField("session_id", s.ID()).Warn("failed to close checkout session")
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully",
		"data":    handoff,
	})
}

// ValidatePromo handles POST /checkout/promo/validate
func (h *CheckoutHandler) ValidatePromo(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		respondError(c, h.logger, &checkout.ValidationError{Field: "code", Message: "promo code is required"})
		return
	}

	res, err := h.promos.ValidatePromo(c.Request.Context(), middleware.GetAccessTokenFromContext(c), code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	data := gin.H{
		"code":    res.Code,
		"valid":   res.Valid,
		"amount":  res.Discount.Amount,
		"type":    res.Discount.Type,
		"message": pricing.FormatDiscountMessage(res.Discount.Amount, res.Discount.Type, h.currency),
		"details": res.Details,
	}
	if !res.Valid {
		reason := res.Message
		if reason == "" {
			reason = "Promo code is not valid"
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": reason,
			"data":  data,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Promo code is valid",
		"data":    data,
	})
}
