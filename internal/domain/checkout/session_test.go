package checkout

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/battery-checkout/internal/domain/order"
	"github.com/your-org/battery-checkout/internal/domain/pricing"
	"github.com/your-org/battery-checkout/internal/domain/product"
	"github.com/your-org/battery-checkout/internal/pkg/commerce"
)

const validPromo = "BATTERIUNEWFD"

// fakeAPI prices orders like the commerce backend: RM450 battery, RM15
// delivery, RM20 trade-in and RM50 off for validPromo. Hooks replace the
// default behaviour per test.
type fakeAPI struct {
	calcCalls    atomic.Int32
	productCalls atomic.Int32
	createCalls  atomic.Int32

	mu        sync.Mutex
	calcHook  func(req commerce.CalculateRequest) (*commerce.CalculateResult, error)
	createFn  func(req commerce.CreateOrderRequest) (*order.CreationResult, error)
	products  *product.List
	lastCalc  commerce.CalculateRequest
	lastToken string
}

func (f *fakeAPI) CalculateOrder(ctx context.Context, token string, req commerce.CalculateRequest) (*commerce.CalculateResult, error) {
	f.calcCalls.Add(1)
	f.mu.Lock()
	f.lastCalc = req
	f.lastToken = token
	hook := f.calcHook
	f.mu.Unlock()
	if hook != nil {
		return hook(req)
	}
	return price(req, ""), nil
}

func (f *fakeAPI) LoadProducts(ctx context.Context, token string, req commerce.ProductsRequest) (*product.List, error) {
	f.productCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.products == nil {
		return nil, &commerce.APIError{Status: 500, Message: "catalogue unavailable"}
	}
	return f.products, nil
}

func (f *fakeAPI) CreateOrder(ctx context.Context, token string, req commerce.CreateOrderRequest) (*order.CreationResult, error) {
	f.createCalls.Add(1)
	f.mu.Lock()
	f.lastToken = token
	fn := f.createFn
	f.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	url := "https://pay.example.com/ORD-1"
	return &order.CreationResult{OrderID: "ORD-1", Status: "pending_payment", PaymentURL: &url, TotalAmount: decimal.RequireFromString("395.00")}, nil
}

func (f *fakeAPI) setCalcHook(hook func(req commerce.CalculateRequest) (*commerce.CalculateResult, error)) {
	f.mu.Lock()
	f.calcHook = hook
	f.mu.Unlock()
}

func (f *fakeAPI) lastCalculateRequest() commerce.CalculateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastCalc
}

// price mirrors the backend; a non-empty total overrides the sum
func price(req commerce.CalculateRequest, total string) *commerce.CalculateResult {
	calc := &order.Calculation{
		Subtotal:    decimal.RequireFromString("450.00"),
		DeliveryFee: decimal.RequireFromString("15.00"),
	}
	if req.TradeIn {
		calc.TradeInDiscount = decimal.RequireFromString("20.00")
	}
	res := &commerce.CalculateResult{Calculation: calc}
	if req.PromoCode != nil {
		code := *req.PromoCode
		calc.PromoCode = &code
		if code == validPromo {
			calc.PromoDiscount = decimal.RequireFromString("50.00")
			calc.IsPromoValid = true
			res.Discount = pricing.DiscountInfo{Amount: decimal.RequireFromString("50"), Type: pricing.DiscountFixed}
		} else {
			res.Message = "Promo code is invalid"
		}
	}
	calc.Total = calc.LocalTotal()
	if total != "" {
		calc.Total = decimal.RequireFromString(total)
	}
	return res
}

type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *countingMetrics) RecordOperation(_ context.Context, op OperationKind, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[string(op)+"/"+outcome]++
}

func (m *countingMetrics) count(op OperationKind, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[string(op)+"/"+outcome]
}

func testDeps(api *fakeAPI) Deps {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return Deps{
		API:       api,
		Store:     NewMemoryStore(),
		Logger:    logger,
		Estimator: pricing.NewEstimator(pricing.FixedTradeInDiscount),
		Defaults:  OrderDefaults{PaymentType: "online", OrderType: "battery", RedirectURL: "app://payment"},
	}
}

var (
	kualaLumpur = order.Location{Latitude: 3.139, Longitude: 101.6869, Address: "Jalan Ampang"}
	aina        = order.Customer{Name: "Aina", Phone: "0123456789", Email: "aina@example.com"}
	myvi        = order.Vehicle{PlateNumber: "WXY 1234"}
)

func catalogue() *product.List {
	brand := 3
	return &product.List{
		BrandID: &brand,
		Products: []product.Item{
			{ID: product.NumericID(42), Name: "NS60", PriceCents: 45000, WarrantyPeriod: 12, IsAvailable: true},
			{ID: product.StringID("B-2"), Name: "DIN55", PriceCents: 52000, WarrantyPeriod: 18, IsAvailable: false},
		},
	}
}

// readySession has products loaded, a location and product 42 selected
func readySession(t *testing.T, api *fakeAPI, deps Deps) *Session {
	t.Helper()
	api.products = catalogue()
	s := NewSession("sess-1", 7, deps)
	ctx := context.Background()
	require.NoError(t, s.LoadProducts(ctx, aina, myvi, kualaLumpur))
	require.NoError(t, s.SetProduct(ctx, product.StringID("42")))
	require.Equal(t, StateSucceeded, s.Status(OpCalculation).State)
	return s
}

func TestSetProductKeepsNumericWireForm(t *testing.T) {
	api := &fakeAPI{}
	_ = readySession(t, api, testDeps(api))

	req := api.lastCalculateRequest()
	assert.True(t, req.ProductID.IsNumeric())
	assert.Equal(t, "42", req.ProductID.String())
}

func TestSetProductRejectsUnknownOrUnavailable(t *testing.T) {
	api := &fakeAPI{}
	s := readySession(t, api, testDeps(api))
	ctx := context.Background()

	var vErr *ValidationError
	require.ErrorAs(t, s.SetProduct(ctx, product.StringID("404")), &vErr)
	assert.Equal(t, "product_id", vErr.Field)

	require.ErrorAs(t, s.SetProduct(ctx, product.StringID("B-2")), &vErr)
	require.ErrorAs(t, s.SetProduct(ctx, product.ProductID{}), &vErr)
}

func TestSetProductWithoutLocationDoesNotCalculate(t *testing.T) {
	api := &fakeAPI{}
	s := NewSession("s", 1, testDeps(api))

	require.NoError(t, s.SetProduct(context.Background(), product.NumericID(42)))
	assert.Equal(t, int32(0), api.calcCalls.Load())
	assert.Equal(t, StateIdle, s.Status(OpCalculation).State)

	var vErr *ValidationError
	require.ErrorAs(t, s.Recalculate(context.Background()), &vErr)
	assert.Equal(t, "location", vErr.Field)
	assert.Equal(t, int32(0), api.calcCalls.Load())
}

func TestRecalculateIsIdempotent(t *testing.T) {
	api := &fakeAPI{}
	s := readySession(t, api, testDeps(api))
	ctx := context.Background()

	require.NoError(t, s.Recalculate(ctx))
	first := s.LatestCalculation()
	require.NoError(t, s.Recalculate(ctx))
	second := s.LatestCalculation()

	assert.True(t, first.Equal(second))
	assert.Equal(t, first, second)
}

func TestStaleCalculationIsDiscarded(t *testing.T) {
	api := &fakeAPI{}
	metrics := &countingMetrics{}
	deps := testDeps(api)
	deps.Metrics = metrics
	s := readySession(t, api, deps)
	ctx := context.Background()
	require.NoError(t, s.SetTradeIn(ctx, true))

	started := make(chan struct{})
	release := make(chan struct{})
	api.setCalcHook(func(req commerce.CalculateRequest) (*commerce.CalculateResult, error) {
		if req.PromoCode == nil {
			close(started)
			<-release
		}
		return price(req, ""), nil
	})

	// token N: calculate without promo, held until released
	done := make(chan error, 1)
	go func() { done <- s.Recalculate(ctx) }()
	<-started

	// token N+1: calculate with promo, answered first
	require.NoError(t, s.ApplyPromo(ctx, validPromo, PromoHint{}))
	assert.Equal(t, "395", s.LatestCalculation().Total.String())

	close(release)
	assert.ErrorIs(t, <-done, ErrStaleResponse)

	latest := s.LatestCalculation()
	require.NotNil(t, latest.PromoCode)
	assert.Equal(t, validPromo, *latest.PromoCode)
	assert.Equal(t, "395", latest.Total.String())
	assert.Equal(t, StateSucceeded, s.Status(OpCalculation).State)
	assert.Equal(t, 1, metrics.count(OpCalculation, OutcomeStale))
}

func TestPromoAppliedDuringNewerRecalculationIsRepriced(t *testing.T) {
	api := &fakeAPI{}
	s := readySession(t, api, testDeps(api))
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	api.setCalcHook(func(req commerce.CalculateRequest) (*commerce.CalculateResult, error) {
		if req.PromoCode != nil && !req.TradeIn {
			once.Do(func() { close(started) })
			<-release
		}
		return price(req, ""), nil
	})

	done := make(chan error, 1)
	go func() { done <- s.ApplyPromo(ctx, validPromo, PromoHint{}) }()
	<-started

	// the trade-in toggle reprices before the promo answer arrives
	require.NoError(t, s.SetTradeIn(ctx, true))
	close(release)
	require.NoError(t, <-done)

	latest := s.LatestCalculation()
	require.NotNil(t, latest.PromoCode)
	assert.True(t, latest.IsPromoValid)
	assert.Equal(t, "20", latest.TradeInDiscount.String())
	assert.Equal(t, "395", latest.Total.String())
}

func TestApplyPromoFailureKeepsPreviousPromo(t *testing.T) {
	api := &fakeAPI{}
	s := readySession(t, api, testDeps(api))
	ctx := context.Background()

	require.NoError(t, s.ApplyPromo(ctx, validPromo, PromoHint{}))
	before := s.LatestCalculation()

	err := s.ApplyPromo(ctx, "BOGUS", PromoHint{})
	var rejected *PromoRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "Promo code is invalid", rejected.Error())

	snap := s.Snapshot()
	require.NotNil(t, snap.Promo)
	assert.Equal(t, validPromo, snap.Promo.Code)
	assert.Equal(t, StateFailed, snap.Statuses[OpPromoValidation].State)
	assert.Equal(t, "Promo code is invalid", snap.Statuses[OpPromoValidation].Reason)
	assert.Equal(t, StateSucceeded, snap.Statuses[OpCalculation].State)
	assert.True(t, before.Equal(snap.LatestCalculation))
}

func TestApplyPromoTransportFailure(t *testing.T) {
	api := &fakeAPI{}
	s := readySession(t, api, testDeps(api))
	ctx := context.Background()

	api.setCalcHook(func(req commerce.CalculateRequest) (*commerce.CalculateResult, error) {
		return nil, &commerce.NetworkError{Op: "calculate order", Err: context.DeadlineExceeded, Timeout: true}
	})

	err := s.ApplyPromo(ctx, validPromo, PromoHint{})
	var netErr *commerce.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Nil(t, s.Snapshot().Promo)
	assert.Equal(t, StateFailed, s.Status(OpPromoValidation).State)
	assert.NotNil(t, s.LatestCalculation())
}

func TestApplyPromoUsesHint(t *testing.T) {
	api := &fakeAPI{}
	s := readySession(t, api, testDeps(api))

	ten := decimal.NewFromInt(10)
	require.NoError(t, s.ApplyPromo(context.Background(), validPromo, PromoHint{Amount: &ten, Type: pricing.DiscountPercentage}))

	assert.Equal(t, "10.00% OFF", s.DiscountMessage("RM"))
	snap := s.Snapshot()
	require.NotNil(t, snap.PromoDetails)
	assert.Equal(t, pricing.DiscountPercentage, snap.PromoDetails.DiscountType)
}

func TestApplyPromoRequiresCode(t *testing.T) {
	api := &fakeAPI{}
	s := readySession(t, api, testDeps(api))
	calls := api.calcCalls.Load()

	var vErr *ValidationError
	require.ErrorAs(t, s.ApplyPromo(context.Background(), "  ", PromoHint{}), &vErr)
	assert.Equal(t, calls, api.calcCalls.Load())
}

func TestRemovePromo(t *testing.T) {
	api := &fakeAPI{}
	s := readySession(t, api, testDeps(api))
	ctx := context.Background()

	require.NoError(t, s.ApplyPromo(ctx, validPromo, PromoHint{}))
	assert.Equal(t, "RM50.00 OFF", s.DiscountMessage("RM"))

	require.NoError(t, s.RemovePromo(ctx))

	snap := s.Snapshot()
	assert.Nil(t, snap.Promo)
	assert.Nil(t, snap.PromoDetails)
	assert.Equal(t, StateIdle, snap.Statuses[OpPromoValidation].State)
	assert.Nil(t, snap.LatestCalculation.PromoCode)
	assert.Equal(t, "465", snap.LatestCalculation.Total.String())
	assert.Nil(t, api.lastCalculateRequest().PromoCode)
	assert.Equal(t, "", s.DiscountMessage("RM"))
}

func TestRemovePromoDiscardsInFlightApply(t *testing.T) {
	api := &fakeAPI{}
	s := readySession(t, api, testDeps(api))
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	api.setCalcHook(func(req commerce.CalculateRequest) (*commerce.CalculateResult, error) {
		if req.PromoCode != nil {
			close(started)
			<-release
		}
		return price(req, ""), nil
	})

	done := make(chan error, 1)
	go func() { done <- s.ApplyPromo(ctx, validPromo, PromoHint{}) }()
	<-started

	require.NoError(t, s.RemovePromo(ctx))
	close(release)
	assert.ErrorIs(t, <-done, ErrStaleResponse)

	assert.Nil(t, s.Snapshot().Promo)
	assert.Nil(t, s.LatestCalculation().PromoCode)
}

func TestRecalculateFailureKeepsLastCalculation(t *testing.T) {
	api := &fakeAPI{}
	s := readySession(t, api, testDeps(api))
	ctx := context.Background()
	before := s.LatestCalculation()

	api.setCalcHook(func(req commerce.CalculateRequest) (*commerce.CalculateResult, error) {
		return nil, &commerce.APIError{Status: 422, Message: "Location is outside the delivery area"}
	})

	err := s.Recalculate(ctx)
	var apiErr *commerce.APIError
	require.ErrorAs(t, err, &apiErr)

	status := s.Status(OpCalculation)
	assert.Equal(t, StateFailed, status.State)
	assert.Equal(t, "Location is outside the delivery area", status.Reason)
	assert.Same(t, before, s.LatestCalculation())

	s.ClearErrors(ctx)
	assert.Equal(t, StateIdle, s.Status(OpCalculation).State)
	assert.Same(t, before, s.LatestCalculation())
}

func TestSetterSwallowsCalculationFailure(t *testing.T) {
	api := &fakeAPI{}
	s := readySession(t, api, testDeps(api))

	api.setCalcHook(func(req commerce.CalculateRequest) (*commerce.CalculateResult, error) {
		return nil, errors.New("boom")
	})

	require.NoError(t, s.SetTradeIn(context.Background(), true))
	assert.Equal(t, StateFailed, s.Status(OpCalculation).State)
	assert.True(t, s.Snapshot().TradeIn)
}

func TestLoadProductsFailureKeepsCatalogue(t *testing.T) {
	api := &fakeAPI{}
	s := readySession(t, api, testDeps(api))
	ctx := context.Background()

	api.mu.Lock()
	api.products = nil
	api.mu.Unlock()

	err := s.LoadProducts(ctx, aina, myvi, kualaLumpur)
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Len(t, snap.Products, 2)
	assert.Equal(t, StateFailed, snap.Statuses[OpProductLoad].State)
	assert.Equal(t, "catalogue unavailable", snap.Statuses[OpProductLoad].Reason)
}

func TestLoadProductsDropsSelectionNoLongerOffered(t *testing.T) {
	api := &fakeAPI{}
	s := readySession(t, api, testDeps(api))

	api.mu.Lock()
	api.products = &product.List{Products: []product.Item{{ID: product.StringID("B-9"), Name: "Other", PriceCents: 30000, IsAvailable: true}}}
	api.mu.Unlock()

	require.NoError(t, s.LoadProducts(context.Background(), aina, myvi, kualaLumpur))
	snap := s.Snapshot()
	assert.Nil(t, snap.ProductID)
	assert.Nil(t, snap.LatestCalculation)
}

func TestCreateOrderWithoutProductMakesNoCalls(t *testing.T) {
	api := &fakeAPI{}
	s := NewSession("s", 1, testDeps(api))
	ctx := context.Background()
	require.NoError(t, s.SetLocation(ctx, kualaLumpur))

	_, err := s.CreateOrder(ctx, CreateOrderInput{Customer: aina, Vehicle: myvi})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "product", vErr.Field)

	assert.Equal(t, int32(0), api.createCalls.Load())
	assert.Equal(t, int32(0), api.calcCalls.Load())
	assert.Equal(t, StateIdle, s.Status(OpOrderCreation).State)
}

func TestCreateOrderValidation(t *testing.T) {
	api := &fakeAPI{}
	deps := testDeps(api)

	tests := []struct {
		name  string
		setup func(s *Session)
		in    CreateOrderInput
		field string
	}{
		{
			name:  "missing location",
			setup: func(s *Session) { _ = s.SetProduct(context.Background(), product.NumericID(42)) },
			in:    CreateOrderInput{Customer: aina, Vehicle: myvi},
			field: "location",
		},
		{
			name: "missing email",
			setup: func(s *Session) {
				_ = s.SetProduct(context.Background(), product.NumericID(42))
				_ = s.SetLocation(context.Background(), kualaLumpur)
			},
			in:    CreateOrderInput{Customer: order.Customer{Name: "Aina", Phone: "0123"}, Vehicle: myvi},
			field: "customer.email",
		},
		{
			name: "missing plate",
			setup: func(s *Session) {
				_ = s.SetProduct(context.Background(), product.NumericID(42))
			},
			in:    CreateOrderInput{Customer: aina, Location: &kualaLumpur},
			field: "vehicle.plate_number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("s", 1, deps)
			tt.setup(s)

			_, err := s.CreateOrder(context.Background(), tt.in)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
	assert.Equal(t, int32(0), api.createCalls.Load())
}

func TestCreateOrderRejectsConcurrentSubmission(t *testing.T) {
	api := &fakeAPI{}
	metrics := &countingMetrics{}
	deps := testDeps(api)
	deps.Metrics = metrics
	s := readySession(t, api, deps)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	api.createFn = func(req commerce.CreateOrderRequest) (*order.CreationResult, error) {
		close(started)
		<-release
		return &order.CreationResult{OrderID: "ORD-7", Status: "pending_payment", TotalAmount: decimal.NewFromInt(445)}, nil
	}

	type outcome struct {
		res *order.CreationResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.CreateOrder(ctx, CreateOrderInput{Customer: aina, Vehicle: myvi})
		done <- outcome{res, err}
	}()
	<-started

	_, err := s.CreateOrder(ctx, CreateOrderInput{Customer: aina, Vehicle: myvi})
	var concurrent *ConcurrentOperationError
	require.ErrorAs(t, err, &concurrent)
	assert.Equal(t, OpOrderCreation, concurrent.Operation)

	close(release)
	first := <-done
	require.NoError(t, first.err)
	assert.Equal(t, "ORD-7", first.res.OrderID)

	assert.Equal(t, int32(1), api.createCalls.Load())
	assert.Equal(t, StateSucceeded, s.Status(OpOrderCreation).State)
	assert.Equal(t, 1, metrics.count(OpOrderCreation, OutcomeRejected))
}

func TestCreateOrderRequest(t *testing.T) {
	api := &fakeAPI{}
	s := readySession(t, api, testDeps(api))
	ctx := context.Background()
	require.NoError(t, s.SetTradeIn(ctx, true))
	require.NoError(t, s.ApplyPromo(ctx, validPromo, PromoHint{}))

	var got commerce.CreateOrderRequest
	api.createFn = func(req commerce.CreateOrderRequest) (*order.CreationResult, error) {
		got = req
		return &order.CreationResult{OrderID: "ORD-2", Status: "pending_payment", TotalAmount: decimal.NewFromInt(395)}, nil
	}

	res, err := s.CreateOrder(ContextWithToken(ctx, "bearer-1"), CreateOrderInput{Customer: aina, Vehicle: myvi, Notes: "leave at guard house"})
	require.NoError(t, err)
	assert.Equal(t, "ORD-2", res.OrderID)

	assert.True(t, got.ProductID.IsNumeric())
	assert.True(t, got.TradeIn)
	require.NotNil(t, got.PromoCode)
	assert.Equal(t, validPromo, *got.PromoCode)
	require.NotNil(t, got.BrandID)
	assert.Equal(t, 3, *got.BrandID)
	assert.Equal(t, "online", got.PaymentType)
	assert.Equal(t, "battery", got.OrderType)
	assert.Equal(t, "app://payment", got.RedirectURL)
	assert.Equal(t, kualaLumpur, got.Location)
	assert.Equal(t, "bearer-1", api.lastToken)
}

func TestCreateOrderFailure(t *testing.T) {
	api := &fakeAPI{}
	s := readySession(t, api, testDeps(api))
	api.createFn = func(req commerce.CreateOrderRequest) (*order.CreationResult, error) {
		return nil, &commerce.ParseError{Op: "create order", Err: errors.New("order_id missing")}
	}

	_, err := s.CreateOrder(context.Background(), CreateOrderInput{Customer: aina, Vehicle: myvi})
	var parseErr *commerce.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, StateFailed, s.Status(OpOrderCreation).State)

	// a failed submission can be retried
	api.createFn = nil
	_, err = s.CreateOrder(context.Background(), CreateOrderInput{Customer: aina, Vehicle: myvi})
	require.NoError(t, err)
}

func TestEndToEndServerTotalWins(t *testing.T) {
	for _, serverTotal := range []string{"395.00", "389.90"} {
		t.Run(serverTotal, func(t *testing.T) {
			api := &fakeAPI{products: catalogue()}
			api.setCalcHook(func(req commerce.CalculateRequest) (*commerce.CalculateResult, error) {
				return price(req, serverTotal), nil
			})
			s := NewSession("e2e", 1, testDeps(api))
			ctx := context.Background()

			require.NoError(t, s.LoadProducts(ctx, aina, myvi, kualaLumpur))
			require.NoError(t, s.SetProduct(ctx, product.NumericID(42)))
			require.NoError(t, s.SetTradeIn(ctx, true))
			require.NoError(t, s.ApplyPromo(ctx, validPromo, PromoHint{}))

			latest := s.LatestCalculation()
			want := decimal.RequireFromString(serverTotal)
			assert.True(t, latest.Total.Equal(want))
			assert.True(t, s.DisplayTotal().Equal(want))
			assert.Equal(t, "395", latest.LocalTotal().String())
			assert.Equal(t, "RM50.00 OFF", s.DiscountMessage("RM"))
		})
	}
}

func TestDisplayTotalFallsBackToLocalEstimate(t *testing.T) {
	api := &fakeAPI{products: catalogue()}
	s := NewSession("est", 1, testDeps(api))
	ctx := context.Background()

	require.NoError(t, s.LoadProducts(ctx, aina, myvi, kualaLumpur))
	api.setCalcHook(func(req commerce.CalculateRequest) (*commerce.CalculateResult, error) {
		return nil, errors.New("backend down")
	})
	require.NoError(t, s.SetProduct(ctx, product.NumericID(42)))
	require.NoError(t, s.SetTradeIn(ctx, true))

	assert.Nil(t, s.LatestCalculation())
	// 450 - 20, delivery fee unknown
	assert.Equal(t, "430", s.DisplayTotal().String())
}

func TestClearErrorsOnlyResetsFailures(t *testing.T) {
	api := &fakeAPI{}
	s := readySession(t, api, testDeps(api))
	ctx := context.Background()
	_ = s.ApplyPromo(ctx, "BOGUS", PromoHint{})

	s.ClearErrors(ctx)
	snap := s.Snapshot()
	assert.Equal(t, StateIdle, snap.Statuses[OpPromoValidation].State)
	assert.Equal(t, StateSucceeded, snap.Statuses[OpCalculation].State)
	assert.Equal(t, StateSucceeded, snap.Statuses[OpProductLoad].State)
}

func TestSessionPersistsSnapshots(t *testing.T) {
	api := &fakeAPI{}
	deps := testDeps(api)
	store := deps.Store.(*MemoryStore)
	s := readySession(t, api, deps)
	require.NoError(t, s.ApplyPromo(context.Background(), validPromo, PromoHint{}))

	snap, err := store.Load(context.Background(), s.ID())
	require.NoError(t, err)
	assert.Equal(t, s.Snapshot().Version, snap.Version)
	require.NotNil(t, snap.Promo)
	assert.Equal(t, validPromo, snap.Promo.Code)
	assert.Equal(t, "395", snap.LatestCalculation.Total.String())
}

func TestLocationValidation(t *testing.T) {
	s := NewSession("s", 1, testDeps(&fakeAPI{}))
	var vErr *ValidationError
	require.ErrorAs(t, s.SetLocation(context.Background(), order.Location{Latitude: 120}), &vErr)
	assert.Equal(t, "location", vErr.Field)
}

func TestDepsDefaults(t *testing.T) {
	d := Deps{}.withDefaults()
	assert.NotNil(t, d.Logger)
	assert.NotNil(t, d.Now)
	assert.True(t, d.Estimator.TradeInDiscount.Equal(pricing.FixedTradeInDiscount))
	assert.Equal(t, "tok", d.Tokens(ContextWithToken(context.Background(), "tok")))
	assert.WithinDuration(t, time.Now(), d.Now(), time.Second)
}
