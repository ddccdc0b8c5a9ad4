package handlers

import (
	"net/http"

	"innkeep/models"
	"innkeep/services/payment"
	"innkeep/services/reservation"
	"innkeep/services/session"
	"innkeep/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler drives the booking lifecycle endpoints.
type BookingHandler struct {
	Reservations reservation.Service
	Sessions     session.Service
	Checkout     payment.CheckoutService
	logger       *zap.Logger
}

func NewBookingHandler(reservations reservation.Service, sessions session.Service, checkout payment.CheckoutService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{
		Reservations: reservations,
		Sessions:     sessions,
		Checkout:     checkout,
		logger:       logger,
	}
}

type createBookingRequest struct {
	SessionID string `json:"sessionId"`

	// Direct fields, used when no session is supplied.
	PropertySlug       string            `json:"propertySlug"`
	CheckIn            string            `json:"checkIn"`
	CheckOut           string            `json:"checkOut"`
	GuestCount         int               `json:"guestCount"`
	Guest              *models.GuestInfo `json:"guest"`
	CouponCode         string            `json:"couponCode"`
	ExpectedTotalCents int64             `json:"expectedTotalCents"`
}

// CreateBooking creates a pending booking, claiming the dates, and opens a
// payment session for it. A session-backed request reuses the guest info and
// quote recorded in the BookingSession.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var body createBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, utils.WrapDomainError(utils.KindValidation, err, "invalid booking request"))
		return
	}

	req, err := h.buildRequest(c, body)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	booking, err := h.Reservations.CreatePendingBooking(c.Request.Context(), *req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	checkout, err := h.Checkout.CreateBookingCheckout(c.Request.Context(), booking)
	if err != nil {
		// The pending booking stands; the payment-timeout sweep reclaims it
		// if the guest never gets another checkout going.
		h.logger.Error("failed to create checkout for booking",
			zap.String("bookingID", booking.ID), zap.Error(err))
		utils.RespondError(c, err)
		return
	}

	if body.SessionID != "" {
		if err := h.Sessions.Cancel(c.Request.Context(), body.SessionID); err != nil {
			h.logger.Warn("failed to delete booking session",
				zap.String("sessionID", body.SessionID), zap.Error(err))
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"bookingId":   booking.ID,
		"status":      booking.Status,
		"pricing":     booking.Pricing,
		"checkoutId":  checkout.ID,
		"checkoutUrl": checkout.URL,
	})
}

func (h *BookingHandler) buildRequest(c *gin.Context, body createBookingRequest) (*reservation.CreateBookingRequest, error) {
	if body.SessionID != "" {
		sess, err := h.Sessions.Get(c.Request.Context(), body.SessionID)
		if err != nil {
			return nil, err
		}
		req := reservation.CreateBookingRequest{
			PropertySlug: sess.PropertySlug,
			Range:        sess.Range,
			GuestCount:   sess.GuestCount,
			Guest:        sess.Guest,
			CouponCode:   sess.CouponCode,
		}
		if sess.Quote != nil {
			req.ExpectedTotalCents = sess.Quote.TotalCents
		}
		return &req, nil
	}

	if body.Guest == nil {
		return nil, utils.NewDomainError(utils.KindValidation, "guest info is required")
	}
	r, err := models.ParseDateRange(body.CheckIn, body.CheckOut)
	if err != nil {
		return nil, utils.WrapDomainError(utils.KindValidation, err, "invalid date range")
	}
	return &reservation.CreateBookingRequest{
		PropertySlug:       body.PropertySlug,
		Range:              r,
		GuestCount:         body.GuestCount,
		Guest:              *body.Guest,
		CouponCode:         body.CouponCode,
		ExpectedTotalCents: body.ExpectedTotalCents,
	}, nil
}

// OpenCheckout opens a fresh payment session for an existing pending
// booking. Converted holds land here: conversion leaves a pending booking
// with the nights already claimed, and the stay price is collected through
// this endpoint. It also reopens payment when an earlier checkout lapsed
// before the timeout sweep reclaimed the booking.
func (h *BookingHandler) OpenCheckout(c *gin.Context) {
	id := c.Param("id")
	booking, err := h.Reservations.GetBooking(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if booking.Status != models.BookingPending {
		utils.RespondError(c, utils.NewDomainError(utils.KindConflict,
			"booking %s is %s, only pending bookings take payment", id, booking.Status))
		return
	}

	checkout, err := h.Checkout.CreateBookingCheckout(c.Request.Context(), booking)
	if err != nil {
		h.logger.Error("failed to create checkout for booking",
			zap.String("bookingID", id), zap.Error(err))
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"bookingId":   id,
		"totalCents":  booking.Pricing.TotalCents,
		"currency":    booking.Currency,
		"checkoutId":  checkout.ID,
		"checkoutUrl": checkout.URL,
	})
}

// GetBooking returns a booking by id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.Reservations.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// CancelBooking cancels a pending or confirmed booking and frees its dates.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	id := c.Param("id")
	if err := h.Reservations.CancelBooking(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookingId": id, "status": models.BookingCancelled})
}
