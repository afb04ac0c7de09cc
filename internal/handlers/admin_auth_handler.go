package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maikekai/surf-house-backend/internal/middleware"
	"github.com/maikekai/surf-house-backend/internal/models"
	"github.com/maikekai/surf-house-backend/internal/services"
)

// AdminAuthHandler handles staff authentication.
type AdminAuthHandler struct {
	auth *services.AdminAuthService
}

// NewAdminAuthHandler creates a new AdminAuthHandler.
func NewAdminAuthHandler(auth *services.AdminAuthService) *AdminAuthHandler {
	return &AdminAuthHandler{auth: auth}
}

// Login authenticates a staff account and returns a session token
// POST /api/v1/admin/auth/login
func (h *AdminAuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		// Credential failures come back as validation errors; present
		// them as 401 so clients treat login like any auth failure.
		if _, ok := err.(*services.ValidationError); ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated staff account from the token
// GET /api/v1/admin/auth/me
func (h *AdminAuthHandler) Me(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, userCtx)
}
