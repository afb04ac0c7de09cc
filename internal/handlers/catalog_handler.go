package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/maikekai/surf-house-backend/internal/database"
)

// CatalogHandler serves the public room and add-on service catalogs.
type CatalogHandler struct {
	roomRepo    *database.RoomRepository
	serviceRepo *database.ServiceRepository
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(roomRepo *database.RoomRepository, serviceRepo *database.ServiceRepository) *CatalogHandler {
	return &CatalogHandler{roomRepo: roomRepo, serviceRepo: serviceRepo}
}

// ListRooms returns every active room with its beds
// GET /api/v1/rooms
func (h *CatalogHandler) ListRooms(c *gin.Context) {
	rooms, err := h.roomRepo.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load rooms"})
		return
	}

	for i := range rooms {
		beds, err := h.roomRepo.ListBeds(c.Request.Context(), rooms[i].ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load beds"})
			return
		}
		rooms[i].Beds = beds
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// GetRoom returns one room with its beds
// GET /api/v1/rooms/:id
func (h *CatalogHandler) GetRoom(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	room, err := h.roomRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	beds, err := h.roomRepo.ListBeds(c.Request.Context(), room.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load beds"})
		return
	}
	room.Beds = beds

	c.JSON(http.StatusOK, room)
}

// ListServices returns the bookable add-on services
// GET /api/v1/services
func (h *CatalogHandler) ListServices(c *gin.Context) {
	catalog, err := h.serviceRepo.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load services"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"services": catalog})
}
