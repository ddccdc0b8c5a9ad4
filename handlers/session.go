package handlers

import (
	"net/http"
	"time"

	"innkeep/models"
	"innkeep/services/pricing"
	"innkeep/services/session"
	"innkeep/utils"

	"github.com/gin-gonic/gin"
)

// SessionHandler manages the BookingSession carried across the guest flow.
type SessionHandler struct {
	Sessions session.Service
	Quotes   pricing.QuoteService
}

func NewSessionHandler(sessions session.Service, quotes pricing.QuoteService) *SessionHandler {
	return &SessionHandler{Sessions: sessions, Quotes: quotes}
}

type startSessionRequest struct {
	PropertySlug string `json:"propertySlug" binding:"required"`
	CheckIn      string `json:"checkIn" binding:"required"`
	CheckOut     string `json:"checkOut" binding:"required"`
	GuestCount   int    `json:"guestCount" binding:"required,min=1"`
}

// StartSession opens a new booking session for the chosen dates.
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, utils.WrapDomainError(utils.KindValidation, err, "invalid session request"))
		return
	}
	r, err := models.ParseDateRange(req.CheckIn, req.CheckOut)
	if err != nil {
		utils.RespondError(c, utils.WrapDomainError(utils.KindValidation, err, "invalid date range"))
		return
	}

	sess, err := h.Sessions.Initiate(c.Request.Context(), req.PropertySlug, r, req.GuestCount)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

type updateSessionRequest struct {
	Guest      *models.GuestInfo `json:"guest"`
	CouponCode *string           `json:"couponCode"`
}

// UpdateSession records guest info and coupon choice, then refreshes the
// quote so the session always carries the price the guest last saw.
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	sessionID := c.Param("sessionID")

	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, utils.WrapDomainError(utils.KindValidation, err, "invalid session update"))
		return
	}

	sess, err := h.Sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if req.Guest != nil {
		sess.Guest = *req.Guest
	}
	if req.CouponCode != nil {
		sess.CouponCode = *req.CouponCode
	}

	breakdown, err := h.Quotes.GetPricing(c.Request.Context(), sess.PropertySlug, sess.Range, sess.GuestCount, sess.CouponCode)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	sess.Quote = breakdown
	sess.QuotedAt = time.Now()

	if err := h.Sessions.Update(c.Request.Context(), sess); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// CancelSession abandons the flow; dates were never claimed, so there is
// nothing to release.
func (h *SessionHandler) CancelSession(c *gin.Context) {
	if err := h.Sessions.Cancel(c.Request.Context(), c.Param("sessionID")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}
