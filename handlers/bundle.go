package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle aggregates all HTTP handlers for route registration.
type HandlerBundle struct {
	// Availability endpoints
	CheckAvailabilityHandler gin.HandlerFunc
	UnavailableDatesHandler  gin.HandlerFunc

	// Pricing endpoints
	GetPricingHandler gin.HandlerFunc

	// Booking session endpoints
	StartSessionHandler  gin.HandlerFunc
	UpdateSessionHandler gin.HandlerFunc
	CancelSessionHandler gin.HandlerFunc

	// Booking endpoints
	CreateBookingHandler   gin.HandlerFunc
	GetBookingHandler      gin.HandlerFunc
	CancelBookingHandler   gin.HandlerFunc
	BookingCheckoutHandler gin.HandlerFunc

	// Hold endpoints
	CreateHoldHandler gin.HandlerFunc
	GetHoldHandler    gin.HandlerFunc
	CancelHoldHandler gin.HandlerFunc

	// Payment gateway callbacks
	PaymentWebhookHandler gin.HandlerFunc
}

// NewHandlerBundle wires the handler structs into route-ready functions.
func NewHandlerBundle(
	availability *AvailabilityHandler,
	pricing *PricingHandler,
	sessions *SessionHandler,
	bookings *BookingHandler,
	holds *HoldHandler,
	payments *PaymentWebhookHandler,
) *HandlerBundle {
	return &HandlerBundle{
		CheckAvailabilityHandler: availability.CheckAvailability,
		UnavailableDatesHandler:  availability.UnavailableDates,

		GetPricingHandler: pricing.GetPricing,

		StartSessionHandler:  sessions.StartSession,
		UpdateSessionHandler: sessions.UpdateSession,
		CancelSessionHandler: sessions.CancelSession,

		CreateBookingHandler:   bookings.CreateBooking,
		GetBookingHandler:      bookings.GetBooking,
		CancelBookingHandler:   bookings.CancelBooking,
		BookingCheckoutHandler: bookings.OpenCheckout,

		CreateHoldHandler: holds.CreateHold,
		GetHoldHandler:    holds.GetHold,
		CancelHoldHandler: holds.CancelHold,

		PaymentWebhookHandler: payments.HandleWebhook,
	}
}
