package routes

import (
	"lenslink/handlers"
	"lenslink/middleware"
	"lenslink/models"

	"github.com/gin-gonic/gin"
)

// RegisterBookingRequestRoutes registers the pre-payment request endpoints.
func RegisterBookingRequestRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	h := hb.Booking
	userOnly := middleware.RequireRole(models.RoleUser)

	requests := r.Group("/api/booking-requests")
	requests.Use(middleware.AuthMiddleware())
	{
		requests.POST("", userOnly, h.CreateRequest)
		requests.GET("", userOnly, h.ListMyRequests)
		requests.GET("/:id", h.GetRequest)
		requests.DELETE("/:id", userOnly, h.RevokeRequest)
		requests.POST("/:id/checkout", userOnly, h.StartAdvanceCheckout)
	}

	vendor := r.Group("/api/vendor")
	vendor.Use(middleware.AuthMiddleware(), middleware.RequireRole(models.RoleVendor))
	{
		vendor.GET("/booking-requests", h.ListVendorRequests)
		vendor.PATCH("/booking-requests/:id", h.RespondToRequest)
		vendor.GET("/bookings", h.ListVendorBookings)
	}
}

// RegisterBookingRoutes registers the confirmed booking endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	h := hb.Booking
	userOnly := middleware.RequireRole(models.RoleUser)

	bookings := r.Group("/api/bookings")
	bookings.Use(middleware.AuthMiddleware())
	{
		bookings.GET("", userOnly, h.ListMyBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/:id/checkout", userOnly, h.StartFinalCheckout)
		bookings.POST("/:id/cancel", userOnly, h.CancelBooking)
	}
}

// RegisterPaymentRoutes registers payment confirmation endpoints. The webhook
// authenticates by signature instead of a bearer token.
func RegisterPaymentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	payments := r.Group("/api/payments")
	{
		payments.POST("/confirm", middleware.AuthMiddleware(), hb.Payment.Confirm)
		payments.POST("/webhook", hb.Payment.Webhook)
	}
}
