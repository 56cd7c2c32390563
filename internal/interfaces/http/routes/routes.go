// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/battery-checkout/internal/interfaces/http/handlers"
	"github.com/your-org/battery-checkout/internal/interfaces/http/middleware"
	"github.com/your-org/battery-checkout/internal/pkg/auth"
)

// Handlers groups the route handlers
type Handlers struct {
	Checkout *handlers.CheckoutHandler
	Payment  *handlers.PaymentHandler
}

// SetupRoutes configures the authenticated API routes
func SetupRoutes(router *gin.RouterGroup, h Handlers, jwtManager *auth.JWTManager) {
	api := router.Group("")
	api.Use(middleware.AuthMiddleware(jwtManager))

	SetupCheckoutRoutes(api, h.Checkout)
	SetupPaymentRoutes(api, h.Payment)
}

// SetupCheckoutRoutes configures checkout session routes
func SetupCheckoutRoutes(router *gin.RouterGroup, checkoutHandler *handlers.CheckoutHandler) {
	checkout := router.Group("/checkout")
	{
		checkout.POST("/promo/validate", checkoutHandler.ValidatePromo)

		sessions := checkout.Group("/sessions")
		{
			sessions.POST("", checkoutHandler.CreateSession)
			sessions.GET("/:id", checkoutHandler.GetSession)
			sessions.DELETE("/:id", checkoutHandler.DeleteSession)

			sessions.POST("/:id/products", checkoutHandler.LoadProducts)
			sessions.PUT("/:id/product", checkoutHandler.SetProduct)
			sessions.PUT("/:id/location", checkoutHandler.SetLocation)
			sessions.PUT("/:id/trade-in", checkoutHandler.SetTradeIn)
			sessions.POST("/:id/promo", checkoutHandler.ApplyPromo)
			sessions.DELETE("/:id/promo", checkoutHandler.RemovePromo)
			sessions.POST("/:id/recalculate", checkoutHandler.Recalculate)
			sessions.POST("/:id/clear-errors", checkoutHandler.ClearErrors)
			sessions.POST("/:id/orders", checkoutHandler.CreateOrder)
		}
	}
}

// SetupPaymentRoutes configures the payment gateway return route
func SetupPaymentRoutes(router *gin.RouterGroup, paymentHandler *handlers.PaymentHandler) {
	payment := router.Group("/payment")
	{
		payment.GET("/redirect", paymentHandler.Redirect)
	}
}
