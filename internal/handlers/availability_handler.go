package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maikekai/surf-house-backend/internal/models"
	"github.com/maikekai/surf-house-backend/internal/services"
)

// AvailabilityHandler exposes the public availability search.
type AvailabilityHandler struct {
	availability *services.AvailabilityService
}

// NewAvailabilityHandler creates a new AvailabilityHandler.
func NewAvailabilityHandler(availability *services.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// GetAvailability returns every active room with its free beds for a stay
// GET /api/v1/availability?check_in=2026-01-10&check_out=2026-01-14
func (h *AvailabilityHandler) GetAvailability(c *gin.Context) {
	checkIn, err := models.ParseDate(c.Query("check_in"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_in must be a valid YYYY-MM-DD date"})
		return
	}
	checkOut, err := models.ParseDate(c.Query("check_out"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_out must be a valid YYYY-MM-DD date"})
		return
	}

	rooms, err := h.availability.GetAvailability(c.Request.Context(), checkIn, checkOut)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"check_in":  checkIn.Format(models.DateLayout),
		"check_out": checkOut.Format(models.DateLayout),
		"rooms":     rooms,
	})
}

// GetMonthlyOccupancy returns booked bed-nights per day for one month
// GET /api/v1/availability/occupancy?year=2026&month=1
func (h *AvailabilityHandler) GetMonthlyOccupancy(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year < 2000 || year > 2100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year must be a valid four-digit year"})
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be a number between 1 and 12"})
		return
	}

	occupancy, err := h.availability.GetMonthlyOccupancy(c.Request.Context(), year, time.Month(month))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"year":      year,
		"month":     month,
		"occupancy": occupancy,
	})
}
