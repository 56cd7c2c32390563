// internal/pkg/telemetry/checkout.go
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/battery-checkout/internal/domain/checkout"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/your-org/battery-checkout"

// CheckoutMetrics counts session transitions and times commerce backend calls
type CheckoutMetrics struct {
	operations metric.Int64Counter
	latency    metric.Float64Histogram
}

// NewCheckoutMetrics creates the instruments on mp, or on the global
// MeterProvider when mp is nil
func NewCheckoutMetrics(mp metric.MeterProvider) (*CheckoutMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	operations, opErr := meter.Int64Counter(
		"checkout_operations",
		metric.WithDescription("Checkout session operations by kind and outcome"),
	)
	latency, latErr := meter.Float64Histogram(
		"commerce_request_duration",
		metric.WithUnit("s"),
		metric.WithDescription("Latency of commerce backend requests"),
	)
	if err := errors.Join(opErr, latErr); err != nil {
		return nil, fmt.Errorf("failed to create checkout metrics: %w", err)
	}

	return &CheckoutMetrics{operations: operations, latency: latency}, nil
}

// RecordOperation implements checkout.Metrics
func (m *CheckoutMetrics) RecordOperation(ctx context.Context, op checkout.OperationKind, outcome string) {
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", string(op)),
		attribute.String("outcome", outcome),
	))
}

// ObserveCommerceRequest implements commerce.Observer
func (m *CheckoutMetrics) ObserveCommerceRequest(ctx context.Context, endpoint string, duration time.Duration, err error) {
	m.latency.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.Bool("error", err != nil),
	))
}
