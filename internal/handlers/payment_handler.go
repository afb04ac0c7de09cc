package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/maikekai/surf-house-backend/internal/services"
	"github.com/maikekai/surf-house-backend/internal/utils"
)

// PaymentHandler receives gateway callbacks and reconciliation requests.
type PaymentHandler struct {
	payments *services.PaymentConfirmationService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments *services.PaymentConfirmationService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Webhook handles the asynchronous payment notification from the gateway.
// Replays are acknowledged with 200 so the gateway stops retrying.
// POST /api/v1/payments/webhook
func (h *PaymentHandler) Webhook(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read request body"})
		return
	}

	meta := services.WebhookMeta{
		IPAddress: utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	}

	result, err := h.payments.ProcessWebhook(c.Request.Context(), rawBody, meta)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Reconcile polls the gateway for a booking whose webhook may have been
// lost and applies the same transitions
// POST /api/v1/admin/payments/:booking_id/reconcile
func (h *PaymentHandler) Reconcile(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var req struct {
		StatusIndicator string `json:"status_indicator" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status_indicator is required"})
		return
	}

	result, err := h.payments.ReconcileByStatusCheck(c.Request.Context(), bookingID, req.StatusIndicator)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
