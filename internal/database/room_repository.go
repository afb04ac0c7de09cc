package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/maikekai/surf-house-backend/internal/models"
)

// RoomRepository handles room and bed inventory reads.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository creates a new RoomRepository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// ListActive returns all active rooms ordered by name.
func (r *RoomRepository) ListActive(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	query := `
		SELECT id, name, type, capacity, sell_unit, base_price, is_active, created_at, updated_at
		FROM rooms
		WHERE is_active = TRUE
		ORDER BY name`

	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

// GetByID returns one room regardless of active flag. Bookings keep
// referencing deactivated rooms, so lookups must not filter on it.
func (r *RoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	query := `
		SELECT id, name, type, capacity, sell_unit, base_price, is_active, created_at, updated_at
		FROM rooms
		WHERE id = $1`

	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, fmt.Errorf("failed to get room %s: %w", id, err)
	}
	return &room, nil
}

// ListBeds returns the active beds of a room ordered by bed number.
func (r *RoomRepository) ListBeds(ctx context.Context, roomID uuid.UUID) ([]models.Bed, error) {
	var beds []models.Bed
	query := `
		SELECT id, room_id, bed_number, bed_type, is_active, created_at
		FROM beds
		WHERE room_id = $1 AND is_active = TRUE
		ORDER BY bed_number`

	if err := r.db.SelectContext(ctx, &beds, query, roomID); err != nil {
		return nil, fmt.Errorf("failed to list beds for room %s: %w", roomID, err)
	}
	return beds, nil
}

// ListBedsForRooms returns active beds for a set of rooms in one query.
func (r *RoomRepository) ListBedsForRooms(ctx context.Context, roomIDs []uuid.UUID) ([]models.Bed, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, room_id, bed_number, bed_type, is_active, created_at
		FROM beds
		WHERE room_id IN (?) AND is_active = TRUE
		ORDER BY room_id, bed_number`, roomIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build beds query: %w", err)
	}

	var beds []models.Bed
	if err := r.db.SelectContext(ctx, &beds, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list beds: %w", err)
	}
	return beds, nil
}
