package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/maikekai/surf-house-backend/internal/middleware"
	"github.com/maikekai/surf-house-backend/internal/models"
	"github.com/maikekai/surf-house-backend/internal/services"
)

// BookingHandler exposes checkout and the booking lifecycle.
type BookingHandler struct {
	bookings *services.BookingService
	payments *services.PaymentConfirmationService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookings *services.BookingService, payments *services.PaymentConfirmationService) *BookingHandler {
	return &BookingHandler{bookings: bookings, payments: payments}
}

// CreateBooking runs the guest checkout
// POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	var authUserID *uuid.UUID
	if userCtx, exists := middleware.GetUserContext(c); exists {
		authUserID = &userCtx.UserID
	}

	resp, err := h.bookings.CreateBooking(c.Request.Context(), &req, authUserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetBooking returns one booking with its room and service lines
// GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	booking, err := h.bookings.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// GetBookingByReference looks a booking up by its public reference
// GET /api/v1/bookings/reference/:reference
func (h *BookingHandler) GetBookingByReference(c *gin.Context) {
	reference := c.Param("reference")
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Booking reference is required"})
		return
	}

	booking, err := h.bookings.GetBookingByReference(c.Request.Context(), reference)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// InitiatePayment opens a hosted checkout session for a pending booking
// POST /api/v1/bookings/:id/payment
func (h *BookingHandler) InitiatePayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	resp, err := h.payments.InitiateBookingPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CancelBooking cancels a booking that still holds inventory
// POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	if err := h.bookings.Cancel(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled"})
}

// ConfirmPayment records an out-of-band payment (cash, bank transfer)
// and confirms the booking
// POST /api/v1/admin/bookings/:id/confirm-payment
func (h *BookingHandler) ConfirmPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var input struct {
		Note string `json:"note"`
	}
	_ = c.ShouldBindJSON(&input)

	var staffID uuid.UUID
	if userCtx, exists := middleware.GetUserContext(c); exists {
		staffID = userCtx.UserID
	}

	booking, err := h.payments.ConfirmManually(c.Request.Context(), id, staffID, input.Note)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// CheckIn completes the desk check-in for a confirmed booking
// POST /api/v1/admin/bookings/:id/check-in
func (h *BookingHandler) CheckIn(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var input services.CheckInInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.bookings.CompleteCheckIn(c.Request.Context(), id, input); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Guest checked in"})
}

// CheckOut completes check-out and awards loyalty points
// POST /api/v1/admin/bookings/:id/check-out
func (h *BookingHandler) CheckOut(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	if err := h.bookings.CompleteCheckOut(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Guest checked out"})
}

// MarkNoShow flags a confirmed booking whose guest never arrived
// POST /api/v1/admin/bookings/:id/no-show
func (h *BookingHandler) MarkNoShow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	if err := h.bookings.MarkNoShow(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking marked as no-show"})
}
