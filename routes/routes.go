package routes

import (
	"net/http"
	"time"

	"innkeep/handlers"
	"innkeep/middleware"
	"innkeep/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterAvailabilityRoutes registers read-only calendar queries.
func RegisterAvailabilityRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/availability")
	{
		api.GET("/:property", hb.CheckAvailabilityHandler)
		api.GET("/:property/unavailable", hb.UnavailableDatesHandler)
	}
}

// RegisterPricingRoutes registers quote endpoints.
func RegisterPricingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/pricing")
	{
		api.POST("/:property", hb.GetPricingHandler)
	}
}

// RegisterBookingRoutes sets up the endpoints for the booking engine.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	booking := r.Group("/api/booking")
	{
		booking.POST("/session", hb.StartSessionHandler)
		booking.PUT("/session/:sessionID", hb.UpdateSessionHandler)
		booking.DELETE("/session/:sessionID", hb.CancelSessionHandler)

		booking.POST("", hb.CreateBookingHandler)
		booking.GET("/:id", hb.GetBookingHandler)
		booking.POST("/:id/cancel", hb.CancelBookingHandler)
		booking.POST("/:id/checkout", hb.BookingCheckoutHandler)
	}
}

// RegisterHoldRoutes sets up the endpoints for date holds.
func RegisterHoldRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	hold := r.Group("/api/hold")
	{
		hold.POST("", hb.CreateHoldHandler)
		hold.GET("/:id", hb.GetHoldHandler)
		hold.POST("/:id/cancel", hb.CancelHoldHandler)
	}
}

// RegisterPaymentRoutes registers the payment-gateway callback. The webhook
// authenticates via its signature header, so no other middleware applies.
func RegisterPaymentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/api/payment/webhook", hb.PaymentWebhookHandler)
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, utils.GetHealthStatus())
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware())
	r.Use(utils.ErrorHandler())

	RegisterAvailabilityRoutes(r, hb)
	RegisterPricingRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterHoldRoutes(r, hb)
	RegisterPaymentRoutes(r, hb)
	RegisterHealthRoute(r)
}
