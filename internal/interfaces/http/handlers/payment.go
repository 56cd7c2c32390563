// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/battery-checkout/internal/domain/payment"
	"github.com/your-org/battery-checkout/internal/interfaces/http/middleware"
)

// PaymentHandler handles the return from the payment gateway
type PaymentHandler struct {
	payments *payment.Service
	logger   *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *payment.Service, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		logger:   logger,
	}
}

// Redirect handles GET /payment/redirect with the deep-link parameters
func (h *PaymentHandler) Redirect(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	redirect, err := payment.ParseRedirect(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	rec := h.payments.CompleteRedirect(c.Request.Context(), userID, redirect)

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment outcome recorded",
		"data": gin.H{
			"outcome":        redirect.Outcome,
			"payment_status": redirect.Outcome.PaymentStatus(),
			"order_id":       redirect.OrderID,
			"amount":         redirect.Amount,
			"payment_method": redirect.PaymentMethod,
			"service_type":   redirect.ServiceType,
			"order":          rec,
		},
	})
}
