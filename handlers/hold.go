package handlers

import (
	"net/http"

	"innkeep/models"
	holdsvc "innkeep/services/hold"
	"innkeep/services/payment"
	"innkeep/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HoldHandler drives the hold lifecycle endpoints.
type HoldHandler struct {
	Holds    holdsvc.Manager
	Checkout payment.CheckoutService
	logger   *zap.Logger
}

func NewHoldHandler(holds holdsvc.Manager, checkout payment.CheckoutService, logger *zap.Logger) *HoldHandler {
	return &HoldHandler{Holds: holds, Checkout: checkout, logger: logger}
}

type createHoldRequest struct {
	PropertySlug string              `json:"propertySlug" binding:"required"`
	CheckIn      string              `json:"checkIn" binding:"required"`
	CheckOut     string              `json:"checkOut" binding:"required"`
	GuestCount   int                 `json:"guestCount" binding:"required,min=1"`
	Contact      models.GuestContact `json:"contact" binding:"required"`
}

// CreateHold claims the dates behind a fee-backed hold and opens a payment
// session for the hold fee.
func (h *HoldHandler) CreateHold(c *gin.Context) {
	var req createHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, utils.WrapDomainError(utils.KindValidation, err, "invalid hold request"))
		return
	}
	r, err := models.ParseDateRange(req.CheckIn, req.CheckOut)
	if err != nil {
		utils.RespondError(c, utils.WrapDomainError(utils.KindValidation, err, "invalid date range"))
		return
	}

	hold, err := h.Holds.CreateHold(c.Request.Context(), req.PropertySlug, r, req.GuestCount, req.Contact)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	checkout, err := h.Checkout.CreateHoldCheckout(c.Request.Context(), hold)
	if err != nil {
		h.logger.Error("failed to create checkout for hold",
			zap.String("holdID", hold.ID), zap.Error(err))
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"holdId":      hold.ID,
		"feeCents":    hold.FeeCents,
		"feeCurrency": hold.FeeCurrency,
		"expiresAt":   hold.ExpiresAt,
		"checkoutId":  checkout.ID,
		"checkoutUrl": checkout.URL,
	})
}

// GetHold returns a hold by id, lazily expiring it if its window lapsed.
func (h *HoldHandler) GetHold(c *gin.Context) {
	hold, err := h.Holds.GetHold(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hold)
}

// CancelHold releases a hold early.
func (h *HoldHandler) CancelHold(c *gin.Context) {
	id := c.Param("id")
	if err := h.Holds.CancelHold(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"holdId": id, "status": models.HoldCancelled})
}
