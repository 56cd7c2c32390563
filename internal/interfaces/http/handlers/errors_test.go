package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/your-org/battery-checkout/internal/domain/checkout"
	"github.com/your-org/battery-checkout/internal/domain/payment"
	"github.com/your-org/battery-checkout/internal/pkg/commerce"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", checkout.ErrSessionNotFound, http.StatusNotFound},
		{"validation", &checkout.ValidationError{Field: "product", Message: "no product selected"}, http.StatusUnprocessableEntity},
		{"promo rejected", &checkout.PromoRejectedError{Code: "X", Reason: "expired"}, http.StatusUnprocessableEntity},
		{"concurrent", &checkout.ConcurrentOperationError{Operation: checkout.OpOrderCreation}, http.StatusConflict},
		{"missing payment url", fmt.Errorf("order ORD-1: %w", payment.ErrMissingPaymentURL), http.StatusFailedDependency},
		{"api", &commerce.APIError{Op: "create order", Status: 422, Message: "Product unavailable"}, http.StatusBadGateway},
		{"parse", &commerce.ParseError{Op: "create order", Err: errors.New("missing order_id")}, http.StatusBadGateway},
		{"network timeout", &commerce.NetworkError{Op: "calculate", Err: context.DeadlineExceeded, Timeout: true}, http.StatusGatewayTimeout},
		{"network", &commerce.NetworkError{Op: "calculate", Err: errors.New("connection refused")}, http.StatusBadGateway},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorStatus(tt.err))
		})
	}
}
