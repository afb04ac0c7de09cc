package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/maikekai/surf-house-backend/internal/services"
)

// OpsHandler exposes operational endpoints: health, the manual
// expiration sweep, and scheduler status.
type OpsHandler struct {
	db   *sqlx.DB
	cron *services.CronService
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(db *sqlx.DB, cron *services.CronService) *OpsHandler {
	return &OpsHandler{db: db, cron: cron}
}

// Health reports service and database health
// GET /health
func (h *OpsHandler) Health(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// RunExpirationSweep releases inventory held by stale pending bookings,
// outside the schedule. Guarded by the sweep secret.
// POST /api/v1/ops/sweep/expire-bookings
func (h *OpsHandler) RunExpirationSweep(c *gin.Context) {
	count, references, err := h.cron.RunExpireBookingsNow(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"expired_count":              count,
		"expired_booking_references": references,
	})
}

// JobStatus reports the background scheduler state
// GET /api/v1/ops/jobs
func (h *OpsHandler) JobStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.cron.JobStatus())
}
