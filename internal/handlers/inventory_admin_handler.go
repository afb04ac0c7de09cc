package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/maikekai/surf-house-backend/internal/middleware"
	"github.com/maikekai/surf-house-backend/internal/services"
)

// InventoryAdminHandler exposes the staff surface for blocks, season rate
// cards, and the season calendar.
type InventoryAdminHandler struct {
	inventory *services.InventoryAdminService
}

// NewInventoryAdminHandler creates a new InventoryAdminHandler.
func NewInventoryAdminHandler(inventory *services.InventoryAdminService) *InventoryAdminHandler {
	return &InventoryAdminHandler{inventory: inventory}
}

// CreateBlock takes a room or bed off sale for a date range
// POST /api/v1/admin/blocks
func (h *InventoryAdminHandler) CreateBlock(c *gin.Context) {
	var req services.CreateBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	var createdBy *uuid.UUID
	if userCtx, exists := middleware.GetUserContext(c); exists {
		createdBy = &userCtx.UserID
	}

	block, err := h.inventory.CreateBlock(c.Request.Context(), &req, createdBy)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, block)
}

// DeleteBlock puts blocked inventory back on sale
// DELETE /api/v1/admin/blocks/:id
func (h *InventoryAdminHandler) DeleteBlock(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid block ID"})
		return
	}

	if err := h.inventory.DeleteBlock(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Block removed"})
}

// ListBlocks returns a room's blocks
// GET /api/v1/admin/rooms/:room_id/blocks
func (h *InventoryAdminHandler) ListBlocks(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	blocks, err := h.inventory.ListBlocksForRoom(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"blocks": blocks})
}

// UpsertSeasonPricing creates or replaces a (room, season) rate card
// PUT /api/v1/admin/pricing/seasons
func (h *InventoryAdminHandler) UpsertSeasonPricing(c *gin.Context) {
	var req services.UpsertSeasonPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	card, err := h.inventory.UpsertSeasonPricing(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, card)
}

// ListSeasonPricing returns a room's rate cards
// GET /api/v1/admin/rooms/:room_id/pricing
func (h *InventoryAdminHandler) ListSeasonPricing(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	cards, err := h.inventory.ListSeasonPricing(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pricing": cards})
}

// CreateSeasonDate adds a configured season calendar range
// POST /api/v1/admin/pricing/season-dates
func (h *InventoryAdminHandler) CreateSeasonDate(c *gin.Context) {
	var req services.CreateSeasonDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	sd, err := h.inventory.CreateSeasonDate(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sd)
}

// ListSeasonDates returns the active configured season calendar
// GET /api/v1/admin/pricing/season-dates
func (h *InventoryAdminHandler) ListSeasonDates(c *gin.Context) {
	dates, err := h.inventory.ListSeasonDates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"season_dates": dates})
}
