package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/maikekai/surf-house-backend/internal/models"
)

// ServiceRepository reads the add-on service catalog.
type ServiceRepository struct {
	db *sqlx.DB
}

// NewServiceRepository creates a new ServiceRepository.
func NewServiceRepository(db *sqlx.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// ListActive returns the bookable catalog ordered by category and name.
func (r *ServiceRepository) ListActive(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	query := `
		SELECT id, name, description, price, category, is_active, created_at, updated_at
		FROM services
		WHERE is_active = TRUE
		ORDER BY category, name`

	if err := r.db.SelectContext(ctx, &services, query); err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

// GetByIDs returns catalog entries for a set of IDs. Missing or inactive
// IDs are simply absent from the result.
func (r *ServiceRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, name, description, price, category, is_active, created_at, updated_at
		FROM services
		WHERE id IN (?) AND is_active = TRUE`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build services query: %w", err)
	}

	var services []models.Service
	if err := r.db.SelectContext(ctx, &services, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get services: %w", err)
	}
	return services, nil
}
