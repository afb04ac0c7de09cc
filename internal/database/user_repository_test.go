package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/maikekai/surf-house-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetByEmailReturnsNilWhenMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`(?s)SELECT.+FROM users WHERE LOWER\(email\) = LOWER\(\$1\)`).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	user, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByEmailTrimsInput(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	userID := uuid.New()
	now := time.Now()
	columns := []string{
		"id", "email", "full_name", "phone", "nationality", "role", "password_hash",
		"loyalty_points", "is_active", "last_login_at", "created_at", "updated_at",
	}

	mock.ExpectQuery(`(?s)SELECT.+FROM users WHERE LOWER\(email\) = LOWER\(\$1\)`).
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			userID, "ana@example.com", "Ana Mora", nil, nil, "guest", nil,
			150, true, nil, now, now,
		))

	user, err := repo.GetByEmail(context.Background(), "  ana@example.com  ")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, models.RoleGuest, user.Role)
	assert.Equal(t, 150, user.LoyaltyPoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGuestNormalizesEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(`(?s)INSERT INTO users`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	user, err := repo.CreateGuest(context.Background(), models.GuestContact{
		Email:    "  Surfer@Example.COM ",
		FullName: "Kai Rivera",
	})
	require.NoError(t, err)
	assert.Equal(t, "surfer@example.com", user.Email)
	assert.Equal(t, models.RoleGuest, user.Role)
	assert.True(t, user.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}
