package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/maikekai/surf-house-backend/internal/models"
)

// PricingRepository handles season rate cards and the season calendar.
type PricingRepository struct {
	db *sqlx.DB
}

// NewPricingRepository creates a new PricingRepository.
func NewPricingRepository(db *sqlx.DB) *PricingRepository {
	return &PricingRepository{db: db}
}

// GetSeasonPricing returns the rate card for a (room, season) pair
// whose validity window covers `on`, or nil when none applies. Cards
// without a window always apply.
func (r *PricingRepository) GetSeasonPricing(ctx context.Context, roomID uuid.UUID, season models.Season, on time.Time) (*models.SeasonPricing, error) {
	var sp models.SeasonPricing
	query := `
		SELECT id, room_id, season, base_price, rack_rate, competitive_rate, last_minute_rate,
		       valid_from, valid_to, created_at, updated_at
		FROM season_pricing
		WHERE room_id = $1 AND season = $2
		  AND (valid_from IS NULL OR valid_from <= $3)
		  AND (valid_to IS NULL OR valid_to >= $3)`

	err := r.db.GetContext(ctx, &sp, query, roomID, season, on)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get season pricing for room %s: %w", roomID, err)
	}
	return &sp, nil
}

// UpsertSeasonPricing creates or replaces the rate card for a
// (room, season) pair. The unique constraint on (room_id, season) makes
// the admin edit path idempotent.
func (r *PricingRepository) UpsertSeasonPricing(ctx context.Context, sp *models.SeasonPricing) error {
	if sp.ID == uuid.Nil {
		sp.ID = uuid.New()
	}

	query := `
		INSERT INTO season_pricing (id, room_id, season, base_price, rack_rate, competitive_rate,
		                            last_minute_rate, valid_from, valid_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (room_id, season) DO UPDATE SET
			base_price = EXCLUDED.base_price,
			rack_rate = EXCLUDED.rack_rate,
			competitive_rate = EXCLUDED.competitive_rate,
			last_minute_rate = EXCLUDED.last_minute_rate,
			valid_from = EXCLUDED.valid_from,
			valid_to = EXCLUDED.valid_to,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		sp.ID, sp.RoomID, sp.Season, sp.BasePrice, sp.RackRate,
		sp.CompetitiveRate, sp.LastMinuteRate, sp.ValidFrom, sp.ValidTo,
	).Scan(&sp.ID, &sp.CreatedAt, &sp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert season pricing: %w", err)
	}
	return nil
}

// ListSeasonPricingByRoom returns all rate cards for one room.
func (r *PricingRepository) ListSeasonPricingByRoom(ctx context.Context, roomID uuid.UUID) ([]models.SeasonPricing, error) {
	var cards []models.SeasonPricing
	query := `
		SELECT id, room_id, season, base_price, rack_rate, competitive_rate, last_minute_rate,
		       valid_from, valid_to, created_at, updated_at
		FROM season_pricing
		WHERE room_id = $1
		ORDER BY season`

	if err := r.db.SelectContext(ctx, &cards, query, roomID); err != nil {
		return nil, fmt.Errorf("failed to list season pricing for room %s: %w", roomID, err)
	}
	return cards, nil
}

// ListActiveSeasonDates returns the configured season calendar ranges.
func (r *PricingRepository) ListActiveSeasonDates(ctx context.Context) ([]models.SeasonDate, error) {
	var dates []models.SeasonDate
	query := `
		SELECT id, season, start_date, end_date, is_active, created_at
		FROM season_dates
		WHERE is_active = TRUE
		ORDER BY start_date`

	if err := r.db.SelectContext(ctx, &dates, query); err != nil {
		return nil, fmt.Errorf("failed to list season dates: %w", err)
	}
	return dates, nil
}

// CreateSeasonDate inserts one configured calendar range.
func (r *PricingRepository) CreateSeasonDate(ctx context.Context, sd *models.SeasonDate) error {
	if sd.ID == uuid.Nil {
		sd.ID = uuid.New()
	}

	query := `
		INSERT INTO season_dates (id, season, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		sd.ID, sd.Season, sd.StartDate, sd.EndDate, sd.IsActive,
	).Scan(&sd.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create season date: %w", err)
	}
	return nil
}
