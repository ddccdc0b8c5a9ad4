package handlers

import (
	"net/http"
	"strconv"

	"innkeep/config"
	"innkeep/models"
	"innkeep/services/availability"
	"innkeep/utils"

	"github.com/gin-gonic/gin"
)

// AvailabilityHandler serves read-only availability queries.
type AvailabilityHandler struct {
	Query availability.QueryService
}

func NewAvailabilityHandler(query availability.QueryService) *AvailabilityHandler {
	return &AvailabilityHandler{Query: query}
}

// CheckAvailability answers "is [checkIn, checkOut) free?" with conflicting
// dates and alternative suggestions on a miss.
func (h *AvailabilityHandler) CheckAvailability(c *gin.Context) {
	propertySlug := c.Param("property")

	r, err := models.ParseDateRange(c.Query("checkIn"), c.Query("checkOut"))
	if err != nil {
		utils.RespondError(c, utils.WrapDomainError(utils.KindValidation, err, "invalid date range"))
		return
	}

	result, err := h.Query.CheckAvailability(c.Request.Context(), propertySlug, r)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UnavailableDates lists occupied dates over the requested horizon.
func (h *AvailabilityHandler) UnavailableDates(c *gin.Context) {
	propertySlug := c.Param("property")

	months := config.AppConfig.AvailabilityMonths
	if raw := c.Query("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondError(c, utils.NewDomainError(utils.KindValidation, "invalid months value %q", raw))
			return
		}
		months = parsed
	}

	dates, err := h.Query.UnavailableDates(c.Request.Context(), propertySlug, months)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unavailableDates": dates})
}
