package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/maikekai/surf-house-backend/internal/models"
)

// BlockRepository handles administrative room/bed blocks.
type BlockRepository struct {
	db *sqlx.DB
}

// NewBlockRepository creates a new BlockRepository.
func NewBlockRepository(db *sqlx.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

// Create inserts a block and returns it with generated fields filled in.
func (r *BlockRepository) Create(ctx context.Context, block *models.RoomBlock) error {
	query := `
		INSERT INTO room_blocks (id, room_id, bed_id, start_date, end_date, reason, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	if block.ID == uuid.Nil {
		block.ID = uuid.New()
	}

	err := r.db.QueryRowxContext(ctx, query,
		block.ID, block.RoomID, block.BedID,
		block.StartDate, block.EndDate,
		block.Reason, block.Notes, block.CreatedBy,
	).Scan(&block.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create room block: %w", err)
	}
	return nil
}

// Delete removes a block. Returns the number of rows removed so the
// caller can distinguish a missing block.
func (r *BlockRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM room_blocks WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete room block %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}

// ListOverlapping returns blocks whose inclusive date range touches
// [start, end]. A block covering even a single queried night counts.
func (r *BlockRepository) ListOverlapping(ctx context.Context, start, end time.Time) ([]models.RoomBlock, error) {
	var blocks []models.RoomBlock
	query := `
		SELECT id, room_id, bed_id, start_date, end_date, reason, notes, created_by, created_at
		FROM room_blocks
		WHERE start_date <= $2 AND end_date >= $1
		ORDER BY start_date`

	if err := r.db.SelectContext(ctx, &blocks, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to list overlapping blocks: %w", err)
	}
	return blocks, nil
}

// ListByRoom returns all blocks for one room, newest range first.
func (r *BlockRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]models.RoomBlock, error) {
	var blocks []models.RoomBlock
	query := `
		SELECT id, room_id, bed_id, start_date, end_date, reason, notes, created_by, created_at
		FROM room_blocks
		WHERE room_id = $1
		ORDER BY start_date DESC`

	if err := r.db.SelectContext(ctx, &blocks, query, roomID); err != nil {
		return nil, fmt.Errorf("failed to list blocks for room %s: %w", roomID, err)
	}
	return blocks, nil
}
