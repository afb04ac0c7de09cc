package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/maikekai/surf-house-backend/internal/models"
	"github.com/maikekai/surf-house-backend/internal/services"
)

// PricingHandler exposes the public price quote endpoint.
type PricingHandler struct {
	pricing *services.PricingService
}

// NewPricingHandler creates a new PricingHandler.
func NewPricingHandler(pricing *services.PricingService) *PricingHandler {
	return &PricingHandler{pricing: pricing}
}

// QuoteStay prices a stay for one room without creating anything
// GET /api/v1/pricing/quote?room_id=...&check_in=2026-01-10&check_out=2026-01-14
func (h *PricingHandler) QuoteStay(c *gin.Context) {
	roomID, err := uuid.Parse(c.Query("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_id must be a valid UUID"})
		return
	}
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

	breakdown, err := h.pricing.QuoteRoom(c.Request.Context(), roomID, checkIn, checkOut, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room_id":   roomID,
		"check_in":  checkIn.Format(models.DateLayout),
		"check_out": checkOut.Format(models.DateLayout),
		"breakdown": breakdown,
	})
}
