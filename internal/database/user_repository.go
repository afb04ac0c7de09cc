package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/maikekai/surf-house-backend/internal/models"
)

const userColumns = `
	id, email, full_name, phone, nationality, role, password_hash,
	loyalty_points, is_active, last_login_at, created_at, updated_at`

// UserRepository handles guest and staff account persistence.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByEmail returns the account for an email, or nil when none exists.
// Emails are matched case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`

	err := r.db.GetContext(ctx, &user, query, strings.TrimSpace(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// GetByID returns one account.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return &user, nil
}

// CreateGuest creates a lightweight guest account from checkout contact
// details. Guest accounts have no password and cannot log in.
func (r *UserRepository) CreateGuest(ctx context.Context, contact models.GuestContact) (*models.User, error) {
	user := &models.User{
		ID:          uuid.New(),
		Email:       strings.ToLower(strings.TrimSpace(contact.Email)),
		FullName:    contact.FullName,
		Phone:       contact.Phone,
		Nationality: contact.Nationality,
		Role:        models.RoleGuest,
		IsActive:    true,
	}

	query := `
		INSERT INTO users (id, email, full_name, phone, nationality, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		user.ID, user.Email, user.FullName, user.Phone, user.Nationality, user.Role, user.IsActive,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create guest user: %w", err)
	}
	return user, nil
}

// UpdateContact refreshes an existing account's contact details from a
// later checkout. Only fills fields the account is missing.
func (r *UserRepository) UpdateContact(ctx context.Context, userID uuid.UUID, contact models.GuestContact) error {
	query := `
		UPDATE users
		SET full_name = CASE WHEN full_name = '' THEN $2 ELSE full_name END,
		    phone = COALESCE(phone, $3),
		    nationality = COALESCE(nationality, $4),
		    updated_at = NOW()
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID, contact.FullName, contact.Phone, contact.Nationality); err != nil {
		return fmt.Errorf("failed to update user contact: %w", err)
	}
	return nil
}

// RecordLogin stamps a successful staff login.
func (r *UserRepository) RecordLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	query := `UPDATE users SET last_login_at = $2, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID, at); err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}
