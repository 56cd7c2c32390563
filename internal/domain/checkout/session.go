// internal/domain/checkout/session.go
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/battery-checkout/internal/domain/order"
	"github.com/your-org/battery-checkout/internal/domain/pricing"
	"github.com/your-org/battery-checkout/internal/domain/product"
	"github.com/your-org/battery-checkout/internal/pkg/commerce"
)

// OrderAPI is the remote commerce backend a session drives
type OrderAPI interface {
	CalculateOrder(ctx context.Context, token string, req commerce.CalculateRequest) (*commerce.CalculateResult, error)
	LoadProducts(ctx context.Context, token string, req commerce.ProductsRequest) (*product.List, error)
	CreateOrder(ctx context.Context, token string, req commerce.CreateOrderRequest) (*order.CreationResult, error)
}

// Metrics records the outcome of every transition
type Metrics interface {
	RecordOperation(ctx context.Context, op OperationKind, outcome string)
}

// TokenSource supplies the bearer token forwarded to the backend
type TokenSource func(ctx context.Context) string

type tokenKey struct{}

// ContextWithToken attaches the caller's bearer token to ctx
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext is the default TokenSource
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// OrderDefaults fills order fields the checkout screens never send
type OrderDefaults struct {
	PaymentType string
	OrderType   string
	LeadReason  string
	RedirectURL string
}

// Deps are the collaborators shared by all sessions
type Deps struct {
	API       OrderAPI
	Store     Store
	Metrics   Metrics
	Logger    *logrus.Logger
	Estimator pricing.Estimator
	Defaults  OrderDefaults
	Tokens    TokenSource
	Now       func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.Estimator == (pricing.Estimator{}) {
		d.Estimator = pricing.NewEstimator(pricing.FixedTradeInDiscount)
	}
	if d.Tokens == nil {
		d.Tokens = TokenFromContext
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// PromoHint carries what the promo screen already knows about a code
type PromoHint struct {
	Amount *decimal.Decimal
	Type   pricing.DiscountType
}

// CreateOrderInput is what the checkout screen submits. Nil TradeIn and
// PromoCode use the session's current values.
type CreateOrderInput struct {
	Customer    order.Customer
	Vehicle     order.Vehicle
	Location    *order.Location
	TradeIn     *bool
	PromoCode   *string
	Notes       string
	RedirectURL string
}

// Session is the mutable aggregate behind one checkout. Operations of
// different kinds run concurrently; within a kind only the response to the
// latest issued request is applied.
type Session struct {
	id        string
	userID    uint
	createdAt time.Time
	deps      Deps
	log       *logrus.Entry

	mu           sync.Mutex
	version      uint64
	updatedAt    time.Time
	tokens       requestTokens
	statuses     map[OperationKind]Status
	productID    *product.ProductID
	products     *product.List
	location     *order.Location
	customer     order.Customer
	vehicle      order.Vehicle
	tradeIn      bool
	promo        *Promo
	promoDetails *order.PromoDetails
	latest       *order.Calculation
	result       *order.CreationResult

	persistMu sync.Mutex
	persisted uint64
}

// NewSession creates an empty session owned by userID
func NewSession(id string, userID uint, deps Deps) *Session {
	deps = deps.withDefaults()
	now := deps.Now()
	s := &Session{
		id:        id,
		userID:    userID,
		createdAt: now,
		updatedAt: now,
		deps:      deps,
		tokens:    newRequestTokens(),
		statuses:  make(map[OperationKind]Status, len(OperationKinds)),
	}
	for _, kind := range OperationKinds {
		s.statuses[kind] = idle()
	}
	s.log = deps.Logger.WithField("session_id", id)
	s.version = 1
	return s
}

// RestoreSession rebuilds a session from a snapshot. Requests that were in
// flight died with the process that issued them, so they come back idle.
func RestoreSession(snap *Snapshot, deps Deps) *Session {
	s := NewSession(snap.ID, snap.UserID, deps)
	s.createdAt = snap.CreatedAt
	s.updatedAt = snap.UpdatedAt
	s.version = snap.Version
	s.persisted = snap.Version

	for kind, status := range snap.Statuses {
		if status.IsInFlight() {
			status = idle()
		}
		s.statuses[kind] = status
	}
	if snap.ProductID != nil {
		id := *snap.ProductID
		s.productID = &id
	}
	if snap.Products != nil || snap.BrandID != nil {
		s.products = &product.List{Products: snap.Products, BrandID: snap.BrandID}
	}
	if snap.Location != nil {
		loc := *snap.Location
		s.location = &loc
	}
	s.customer = snap.Customer
	s.vehicle = snap.Vehicle
	s.tradeIn = snap.TradeIn
	s.promo = snap.Promo
	s.promoDetails = snap.PromoDetails
	s.latest = snap.LatestCalculation
	s.result = snap.Order
	return s
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// UserID returns the owning user
func (s *Session) UserID() uint { return s.userID }

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:                s.id,
		UserID:            s.userID,
		Version:           s.version,
		Customer:          s.customer,
		Vehicle:           s.vehicle,
		TradeIn:           s.tradeIn,
		PromoDetails:      s.promoDetails,
		LatestCalculation: s.latest,
		Order:             s.result,
		Statuses:          make(map[OperationKind]Status, len(s.statuses)),
		CreatedAt:         s.createdAt,
		UpdatedAt:         s.updatedAt,
	}
	for kind, status := range s.statuses {
		snap.Statuses[kind] = status
	}
	if s.productID != nil {
		id := *s.productID
		snap.ProductID = &id
	}
	if s.products != nil {
		snap.Products = append([]product.Item(nil), s.products.Products...)
		snap.BrandID = s.products.BrandID
	}
	if s.location != nil {
		loc := *s.location
		snap.Location = &loc
	}
	if s.promo != nil {
		p := *s.promo
		snap.Promo = &p
	}
	return snap
}

// Status returns the status of one operation kind
func (s *Session) Status(kind OperationKind) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[kind]
}

// LatestCalculation returns the last successful server calculation
func (s *Session) LatestCalculation() *order.Calculation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// LocalEstimate is the optimistic total from the selected product, trade-in
// and promo. Delivery fee is unknown until the server prices the order.
func (s *Session) LocalEstimate() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localEstimateLocked()
}

func (s *Session) localEstimateLocked() decimal.Decimal {
	if s.productID == nil {
		return decimal.Zero
	}
	item, ok := s.products.Find(*s.productID)
	if !ok {
		return decimal.Zero
	}
	subtotal := item.Subtotal()
	promoDiscount := decimal.Zero
	if s.promo != nil {
		promoDiscount = pricing.DiscountAmount(pricing.DiscountInfo{Amount: s.promo.DiscountAmount, Type: s.promo.DiscountType}, subtotal)
	}
	return s.deps.Estimator.Estimate(subtotal, decimal.Zero, s.tradeIn, promoDiscount)
}

// DisplayTotal is the server total once one is known, the local estimate before
func (s *Session) DisplayTotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest != nil {
		return s.latest.Total
	}
	return s.localEstimateLocked()
}

// DiscountMessage renders the applied promo, or "" without one
func (s *Session) DiscountMessage(currency string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.promo == nil {
		return ""
	}
	return pricing.FormatDiscountMessage(s.promo.DiscountAmount, s.promo.DiscountType, currency)
}

// SetProduct selects a product and reprices when a location is known. When a
// catalogue is loaded the id must be one of its available items, and the
// catalogue's wire form of the id is kept.
func (s *Session) SetProduct(ctx context.Context, id product.ProductID) error {
	if !id.IsValid() {
		return newValidationError("product_id", "product id is required")
	}

	s.mu.Lock()
	if s.products != nil && len(s.products.Products) > 0 {
		item, ok := s.products.Find(id)
		if !ok {
			s.mu.Unlock()
			return newValidationError("product_id", "product %s is not offered for this vehicle", id)
		}
		if !item.IsSelectable() {
			s.mu.Unlock()
			return newValidationError("product_id", "product %s is not available", id)
		}
		id = item.ID
	}
	s.productID = &id
	s.touchLocked()
	recalc := s.canCalculateLocked()
	s.mu.Unlock()

	s.afterChange(ctx, recalc)
	return nil
}

// SetTradeIn toggles the trade-in and reprices
func (s *Session) SetTradeIn(ctx context.Context, active bool) error {
	s.mu.Lock()
	s.tradeIn = active
	s.touchLocked()
	recalc := s.canCalculateLocked()
	s.mu.Unlock()

	s.afterChange(ctx, recalc)
	return nil
}

// SetLocation stores the location picked by the customer and reprices when a
// product is selected
func (s *Session) SetLocation(ctx context.Context, loc order.Location) error {
	if err := loc.Validate(); err != nil {
		return newValidationError("location", "%v", err)
	}

	s.mu.Lock()
	s.location = &loc
	s.touchLocked()
	recalc := s.canCalculateLocked()
	s.mu.Unlock()

	s.afterChange(ctx, recalc)
	return nil
}

// afterChange persists a selection change and reprices. Calculation failures
// are recorded in the calculation status, not returned to the setter.
func (s *Session) afterChange(ctx context.Context, recalc bool) {
	s.persist(ctx)
	if recalc {
		_ = s.Recalculate(ctx)
	}
}

// Recalculate prices the current selection. On failure the previous
// calculation is kept and the calculation status records the reason.
func (s *Session) Recalculate(ctx context.Context) error {
	s.mu.Lock()
	req, err := s.calculateRequestLocked(s.promoCodeLocked())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	token := s.tokens.issue(OpCalculation)
	s.statuses[OpCalculation] = inFlight()
	s.mu.Unlock()

	log := s.opLog(OpCalculation, token)
	log.Debug("calculating order")

	res, err := s.calculate(ctx, req)

	s.mu.Lock()
	if !s.tokens.isLatest(OpCalculation, token) {
		s.mu.Unlock()
		s.discardStale(ctx, log, OpCalculation)
		return ErrStaleResponse
	}
	if err != nil {
		s.statuses[OpCalculation] = failed(err.Error())
		s.touchLocked()
		s.mu.Unlock()

		log.WithError(err).WithField("outcome", OutcomeFailed).Warn("order calculation failed")
		s.finish(ctx, OpCalculation, OutcomeFailed)
		return err
	}
	s.latest = res.Calculation
	s.statuses[OpCalculation] = succeeded()
	s.touchLocked()
	s.mu.Unlock()

	log.WithFields(logrus.Fields{
		"outcome": OutcomeSucceeded,
		"total":   res.Calculation.Total.StringFixed(2),
	}).Info("order calculated")
	s.finish(ctx, OpCalculation, OutcomeSucceeded)
	return nil
}

// ApplyPromo validates a code by pricing the order with it. On success the
// promo and the calculation are stored together. On failure any previously
// applied promo is left untouched.
func (s *Session) ApplyPromo(ctx context.Context, code string, hint PromoHint) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return newValidationError("code", "promo code is required")
	}

	s.mu.Lock()
	req, err := s.calculateRequestLocked(&code)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	promoToken := s.tokens.issue(OpPromoValidation)
	calcToken := s.tokens.issue(OpCalculation)
	prevCalc := s.statuses[OpCalculation]
	s.statuses[OpPromoValidation] = inFlight()
	s.statuses[OpCalculation] = inFlight()
	s.mu.Unlock()

	log := s.opLog(OpPromoValidation, promoToken).WithField("promo_code", code)
	log.Debug("validating promo code")

	res, err := s.calculate(ctx, req)
	if err == nil && !res.Calculation.IsPromoValid {
		reason := res.Message
		if reason == "" {
			reason = fmt.Sprintf("promo code %s is not valid", code)
		}
		err = &PromoRejectedError{Code: code, Reason: reason}
	}

	s.mu.Lock()
	if !s.tokens.isLatest(OpPromoValidation, promoToken) {
		s.mu.Unlock()
		s.discardStale(ctx, log, OpPromoValidation)
		return ErrStaleResponse
	}

	calcCurrent := s.tokens.isLatest(OpCalculation, calcToken)
	needRecalc := false
	outcome := OutcomeSucceeded
	if err != nil {
		outcome = OutcomeFailed
		s.statuses[OpPromoValidation] = failed(err.Error())
		if calcCurrent {
			// this request superseded a pending recalculation whose inputs
			// are still unpriced
			if prevCalc.IsInFlight() {
				needRecalc = true
			} else {
				s.statuses[OpCalculation] = prevCalc
			}
		}
	} else {
		info := resolvePromoDiscount(res, hint)
		s.promo = &Promo{Code: code, DiscountAmount: info.Amount, DiscountType: info.Type}
		s.promoDetails = res.Details
		if s.promoDetails == nil {
			s.promoDetails = order.PromoDetailsFrom(info)
		}
		s.statuses[OpPromoValidation] = succeeded()
		if calcCurrent {
			s.latest = res.Calculation
			s.statuses[OpCalculation] = succeeded()
		} else {
			// a newer recalculation was issued without this promo
			needRecalc = true
		}
	}
	s.touchLocked()
	s.mu.Unlock()

	if err != nil {
		log.WithError(err).WithField("outcome", outcome).Warn("promo code rejected")
	} else {
		log.WithField("outcome", outcome).Info("promo code applied")
	}
	s.finish(ctx, OpPromoValidation, outcome)

	if needRecalc {
		_ = s.Recalculate(ctx)
	}
	return err
}

// resolvePromoDiscount picks the descriptive discount of an applied promo:
// the hint from a prior standalone validation, then the response itself,
// then the money discount of the calculation.
func resolvePromoDiscount(res *commerce.CalculateResult, hint PromoHint) pricing.DiscountInfo {
	if hint.Amount != nil && hint.Amount.IsPositive() {
		t := hint.Type
		if t == "" {
			t = pricing.DiscountFixed
		}
		return pricing.DiscountInfo{Amount: *hint.Amount, Type: t}
	}
	if res.Discount.Amount.IsPositive() {
		return res.Discount
	}
	return pricing.DiscountInfo{Amount: res.Calculation.PromoDiscount, Type: pricing.DiscountFixed}
}

// RemovePromo drops the promo, including its discount type, and reprices
// without it. An in-flight ApplyPromo is discarded when it returns.
func (s *Session) RemovePromo(ctx context.Context) error {
	s.mu.Lock()
	s.promo = nil
	s.promoDetails = nil
	s.tokens.invalidate(OpPromoValidation)
	s.statuses[OpPromoValidation] = idle()
	s.touchLocked()
	recalc := s.canCalculateLocked()
	s.mu.Unlock()

	s.opLog(OpPromoValidation, 0).Info("promo code removed")
	s.afterChange(ctx, recalc)
	return nil
}

// LoadProducts fetches the catalogue for a customer, vehicle and location.
// On failure the previous catalogue is kept.
func (s *Session) LoadProducts(ctx context.Context, customer order.Customer, vehicle order.Vehicle, loc order.Location) error {
	if err := loc.Validate(); err != nil {
		return newValidationError("location", "%v", err)
	}

	s.mu.Lock()
	token := s.tokens.issue(OpProductLoad)
	s.statuses[OpProductLoad] = inFlight()
	locationChanged := s.location == nil || *s.location != loc
	s.customer = customer
	s.vehicle = vehicle
	s.location = &loc
	s.touchLocked()
	s.mu.Unlock()

	log := s.opLog(OpProductLoad, token)
	log.Debug("loading products")

	list, err := s.deps.API.LoadProducts(ctx, s.deps.Tokens(ctx), commerce.ProductsRequest{
		Customer:           customer,
		Location:           loc,
		VehiclePlateNumber: vehicle.PlateNumber,
	})
	if err == nil && list == nil {
		err = errors.New("empty product list response")
	}

	s.mu.Lock()
	if !s.tokens.isLatest(OpProductLoad, token) {
		s.mu.Unlock()
		s.discardStale(ctx, log, OpProductLoad)
		return ErrStaleResponse
	}
	if err != nil {
		s.statuses[OpProductLoad] = failed(err.Error())
		s.touchLocked()
		recalc := locationChanged && s.canCalculateLocked()
		s.mu.Unlock()

		log.WithError(err).WithField("outcome", OutcomeFailed).Warn("product load failed")
		s.finish(ctx, OpProductLoad, OutcomeFailed)
		if recalc {
			_ = s.Recalculate(ctx)
		}
		return err
	}

	s.products = list
	s.statuses[OpProductLoad] = succeeded()
	if s.productID != nil {
		if item, ok := list.Find(*s.productID); !ok || !item.IsSelectable() {
			// the selection is no longer offered; its price means nothing now
			s.productID = nil
			s.latest = nil
			s.tokens.invalidate(OpCalculation)
			s.statuses[OpCalculation] = idle()
		}
	}
	s.touchLocked()
	recalc := locationChanged && s.canCalculateLocked()
	s.mu.Unlock()

	log.WithFields(logrus.Fields{
		"outcome":  OutcomeSucceeded,
		"products": len(list.Products),
	}).Info("products loaded")
	s.finish(ctx, OpProductLoad, OutcomeSucceeded)
	if recalc {
		_ = s.Recalculate(ctx)
	}
	return nil
}

// CreateOrder places the order. It fails fast without a network call when
// the selection is incomplete, and rejects a second submission while one is
// in flight instead of superseding it.
func (s *Session) CreateOrder(ctx context.Context, in CreateOrderInput) (*order.CreationResult, error) {
	s.mu.Lock()
	if s.statuses[OpOrderCreation].IsInFlight() {
		s.mu.Unlock()
		s.opLog(OpOrderCreation, 0).Warn("rejecting concurrent order submission")
		s.record(ctx, OpOrderCreation, OutcomeRejected)
		return nil, &ConcurrentOperationError{Operation: OpOrderCreation}
	}

	req, err := s.createRequestLocked(in)
	if err != nil {
		s.mu.Unlock()
		s.record(ctx, OpOrderCreation, OutcomeRejected)
		return nil, err
	}
	token := s.tokens.issue(OpOrderCreation)
	s.customer = in.Customer
	s.vehicle = in.Vehicle
	loc := req.Location
	s.location = &loc
	s.statuses[OpOrderCreation] = inFlight()
	s.touchLocked()
	s.mu.Unlock()

	log := s.opLog(OpOrderCreation, token).WithField("product_id", req.ProductID.String())
	log.Info("creating order")

	res, err := s.deps.API.CreateOrder(ctx, s.deps.Tokens(ctx), req)
	if err == nil && res == nil {
		err = errors.New("empty order creation response")
	}

	s.mu.Lock()
	if err != nil {
		s.statuses[OpOrderCreation] = failed(err.Error())
		s.touchLocked()
		s.mu.Unlock()

		log.WithError(err).WithField("outcome", OutcomeFailed).Error("order creation failed")
		s.finish(ctx, OpOrderCreation, OutcomeFailed)
		return nil, err
	}
	s.result = res
	s.statuses[OpOrderCreation] = succeeded()
	s.touchLocked()
	s.mu.Unlock()

	log.WithFields(logrus.Fields{
		"outcome":      OutcomeSucceeded,
		"order_id":     res.OrderID,
		"total_amount": res.TotalAmount.StringFixed(2),
	}).Info("order created")
	s.finish(ctx, OpOrderCreation, OutcomeSucceeded)
	return res, nil
}

func (s *Session) createRequestLocked(in CreateOrderInput) (commerce.CreateOrderRequest, error) {
	if s.productID == nil {
		return commerce.CreateOrderRequest{}, newValidationError("product", "no product selected")
	}
	loc := s.location
	if in.Location != nil {
		loc = in.Location
	}
	if loc == nil {
		return commerce.CreateOrderRequest{}, newValidationError("location", "location is required")
	}
	if err := loc.Validate(); err != nil {
		return commerce.CreateOrderRequest{}, newValidationError("location", "%v", err)
	}
	if field := in.Customer.MissingField(); field != "" {
		return commerce.CreateOrderRequest{}, newValidationError("customer."+field, "is required")
	}
	if field := in.Vehicle.MissingField(); field != "" {
		return commerce.CreateOrderRequest{}, newValidationError("vehicle."+field, "is required")
	}

	tradeIn := s.tradeIn
	if in.TradeIn != nil {
		tradeIn = *in.TradeIn
	}
	promoCode := s.promoCodeLocked()
	if in.PromoCode != nil {
		promoCode = nil
		if code := strings.TrimSpace(*in.PromoCode); code != "" {
			promoCode = &code
		}
	}
	redirectURL := in.RedirectURL
	if redirectURL == "" {
		redirectURL = s.deps.Defaults.RedirectURL
	}

	req := commerce.CreateOrderRequest{
		Customer:    in.Customer,
		Location:    *loc,
		Vehicle:     in.Vehicle,
		ProductID:   *s.productID,
		PaymentType: s.deps.Defaults.PaymentType,
		TradeIn:     tradeIn,
		PromoCode:   promoCode,
		Notes:       in.Notes,
		RedirectURL: redirectURL,
		LeadReason:  s.deps.Defaults.LeadReason,
		OrderType:   s.deps.Defaults.OrderType,
	}
	if s.products != nil {
		req.BrandID = s.products.BrandID
	}
	return req, nil
}

// ClearErrors resets failed operations to idle and keeps all data
func (s *Session) ClearErrors(ctx context.Context) {
	s.mu.Lock()
	changed := false
	for kind, status := range s.statuses {
		if status.IsFailed() {
			s.statuses[kind] = idle()
			changed = true
		}
	}
	if changed {
		s.touchLocked()
	}
	s.mu.Unlock()

	if changed {
		s.persist(ctx)
	}
}

func (s *Session) calculate(ctx context.Context, req commerce.CalculateRequest) (*commerce.CalculateResult, error) {
	res, err := s.deps.API.CalculateOrder(ctx, s.deps.Tokens(ctx), req)
	if err != nil {
		return nil, err
	}
	if res == nil || res.Calculation == nil {
		return nil, errors.New("empty calculation response")
	}
	return res, nil
}

func (s *Session) calculateRequestLocked(promoCode *string) (commerce.CalculateRequest, error) {
	if s.productID == nil {
		return commerce.CalculateRequest{}, newValidationError("product", "no product selected")
	}
	if s.location == nil {
		return commerce.CalculateRequest{}, newValidationError("location", "location is required")
	}
	return commerce.CalculateRequest{
		Location:  *s.location,
		ProductID: *s.productID,
		PromoCode: promoCode,
		TradeIn:   s.tradeIn,
	}, nil
}

func (s *Session) canCalculateLocked() bool {
	return s.productID != nil && s.location != nil
}

func (s *Session) promoCodeLocked() *string {
	if s.promo == nil {
		return nil
	}
	code := s.promo.Code
	return &code
}

func (s *Session) touchLocked() {
	s.version++
	s.updatedAt = s.deps.Now()
}

func (s *Session) opLog(kind OperationKind, token uint64) *logrus.Entry {
	return s.log.WithFields(logrus.Fields{
		"operation": kind,
		"token":     token,
	})
}

func (s *Session) discardStale(ctx context.Context, log *logrus.Entry, kind OperationKind) {
	log.WithField("outcome", OutcomeStale).Info("discarding stale response")
	s.record(ctx, kind, OutcomeStale)
}

func (s *Session) finish(ctx context.Context, kind OperationKind, outcome string) {
	s.record(ctx, kind, outcome)
	s.persist(ctx)
}

func (s *Session) record(ctx context.Context, kind OperationKind, outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordOperation(ctx, kind, outcome)
	}
}

// persist saves the current snapshot unless a newer one was already saved.
// Failures are logged; the in-memory session stays authoritative.
func (s *Session) persist(ctx context.Context) {
	if s.deps.Store == nil {
		return
	}
	snap := s.Snapshot()

	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if snap.Version <= s.persisted {
		return
	}
	if err := s.deps.Store.Save(context.WithoutCancel(ctx), &snap); err != nil {
		s.log.WithError(err).Warn("failed to persist checkout session")
		return
	}
	s.persisted = snap.Version
}
