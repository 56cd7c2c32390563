// internal/interfaces/http/handlers/errors.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/battery-checkout/internal/domain/checkout"
	"github.com/your-org/battery-checkout/internal/domain/payment"
	"github.com/your-org/battery-checkout/internal/pkg/commerce"
)

// errorStatus maps domain and backend errors onto HTTP statuses
func errorStatus(err error) int {
	var (
		validationErr *checkout.ValidationError
		concurrentErr *checkout.ConcurrentOperationError
		rejectedErr   *checkout.PromoRejectedError
		apiErr        *commerce.APIError
		networkErr    *commerce.NetworkError
		parseErr      *commerce.ParseError
	)

	switch {
	case errors.Is(err, checkout.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.As(err, &validationErr), errors.As(err, &rejectedErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &concurrentErr):
		return http.StatusConflict
	case errors.Is(err, payment.ErrMissingPaymentURL):
		return http.StatusFailedDependency
	case errors.As(err, &apiErr), errors.As(err, &parseErr):
		return http.StatusBadGateway
	case errors.As(err, &networkErr):
		if networkErr.Timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": ...}. Backend messages are passed
// through verbatim; unexpected errors are logged and hidden.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status := errorStatus(err)
	body := gin.H{"error": err.Error()}

	var validationErr *checkout.ValidationError
	if errors.As(err, &validationErr) && validationErr.Field != "" {
		body["field"] = validationErr.Field
	}

	if status == http.StatusInternalServerError {
		logger.WithError(err).WithField("path", c.FullPath()).Error("unhandled request error")
		body["error"] = "Internal server error"
	}

	_ = c.Error(err)
	c.JSON(status, body)
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request data",
		"details": err.Error(),
	})
}
