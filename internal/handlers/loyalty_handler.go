package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/maikekai/surf-house-backend/internal/middleware"
	"github.com/maikekai/surf-house-backend/internal/models"
	"github.com/maikekai/surf-house-backend/internal/services"
)

// LoyaltyHandler exposes the guest points ledger.
type LoyaltyHandler struct {
	loyalty *services.LoyaltyService
}

// NewLoyaltyHandler creates a new LoyaltyHandler.
func NewLoyaltyHandler(loyalty *services.LoyaltyService) *LoyaltyHandler {
	return &LoyaltyHandler{loyalty: loyalty}
}

// GetBalance returns the authenticated guest's points balance
// GET /api/v1/loyalty/balance
func (h *LoyaltyHandler) GetBalance(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	balance, err := h.loyalty.Balance(c.Request.Context(), userCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LoyaltyBalanceResponse{
		UserID:  userCtx.UserID,
		Balance: balance,
	})
}

// GetHistory returns the guest's recent ledger entries
// GET /api/v1/loyalty/history?limit=50
func (h *LoyaltyHandler) GetHistory(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	txns, err := h.loyalty.History(c.Request.Context(), userCtx.UserID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

// Redeem spends points from the guest's balance
// POST /api/v1/loyalty/redeem
func (h *LoyaltyHandler) Redeem(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.RedeemPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.loyalty.Redeem(c.Request.Context(), userCtx.UserID, &req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Points redeemed"})
}
