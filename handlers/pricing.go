package handlers

import (
	"net/http"

	"innkeep/models"
	"innkeep/services/pricing"
	"innkeep/utils"

	"github.com/gin-gonic/gin"
)

// PricingHandler serves price quotes.
type PricingHandler struct {
	Quotes pricing.QuoteService
}

func NewPricingHandler(quotes pricing.QuoteService) *PricingHandler {
	return &PricingHandler{Quotes: quotes}
}

type pricingRequest struct {
	CheckIn         string `json:"checkIn" binding:"required"`
	CheckOut        string `json:"checkOut" binding:"required"`
	GuestCount      int    `json:"guestCount" binding:"required,min=1"`
	CouponCode      string `json:"couponCode"`
	DisplayCurrency string `json:"displayCurrency"`
}

// GetPricing computes a full breakdown in the property's base currency and,
// when a display currency is requested, a converted guest-facing total.
func (h *PricingHandler) GetPricing(c *gin.Context) {
	propertySlug := c.Param("property")

	var req pricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, utils.WrapDomainError(utils.KindValidation, err, "invalid pricing request"))
		return
	}
	r, err := models.ParseDateRange(req.CheckIn, req.CheckOut)
	if err != nil {
		utils.RespondError(c, utils.WrapDomainError(utils.KindValidation, err, "invalid date range"))
		return
	}

	breakdown, err := h.Quotes.GetPricing(c.Request.Context(), propertySlug, r, req.GuestCount, req.CouponCode)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	resp := gin.H{"pricing": breakdown}
	if req.DisplayCurrency != "" && req.DisplayCurrency != breakdown.Currency {
		display, err := h.Quotes.DisplayIn(*breakdown, req.DisplayCurrency)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		resp["display"] = display
	}
	c.JSON(http.StatusOK, resp)
}
