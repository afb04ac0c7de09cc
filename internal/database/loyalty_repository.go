package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/maikekai/surf-house-backend/internal/models"
)

// ErrInsufficientPoints is returned when a redemption exceeds the
// user's current balance.
var ErrInsufficientPoints = errors.New("insufficient loyalty points")

// LoyaltyRepository handles the append-only points ledger. The cached
// balance on users is updated in the same transaction as the ledger row.
type LoyaltyRepository struct {
	db *sqlx.DB
}

// NewLoyaltyRepository creates a new LoyaltyRepository.
func NewLoyaltyRepository(db *sqlx.DB) *LoyaltyRepository {
	return &LoyaltyRepository{db: db}
}

// Earn appends an earn entry and bumps the cached balance atomically.
func (r *LoyaltyRepository) Earn(ctx context.Context, txn *models.LoyaltyTransaction) error {
	if txn.Points <= 0 {
		return fmt.Errorf("earn points must be positive, got %d", txn.Points)
	}
	txn.Type = models.LoyaltyEarn
	return r.append(ctx, txn, txn.Points)
}

// Redeem appends a redeem entry and decrements the cached balance. The
// balance guard runs inside the transaction so concurrent redemptions
// cannot overdraw.
func (r *LoyaltyRepository) Redeem(ctx context.Context, txn *models.LoyaltyTransaction) error {
	if txn.Points <= 0 {
		return fmt.Errorf("redeem points must be positive, got %d", txn.Points)
	}
	txn.Type = models.LoyaltyRedeem
	return r.append(ctx, txn, -txn.Points)
}

func (r *LoyaltyRepository) append(ctx context.Context, txn *models.LoyaltyTransaction, delta int) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	balanceQuery := `
		UPDATE users
		SET loyalty_points = loyalty_points + $2, updated_at = NOW()
		WHERE id = $1 AND loyalty_points + $2 >= 0`

	res, err := tx.Exec(balanceQuery, txn.UserID, delta)
	if err != nil {
		return fmt.Errorf("failed to update loyalty balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrInsufficientPoints
	}

	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}

	ledgerQuery := `
		INSERT INTO loyalty_transactions (id, user_id, booking_id, type, points, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err = tx.QueryRowx(ledgerQuery,
		txn.ID, txn.UserID, txn.BookingID, txn.Type, txn.Points, txn.Description,
	).Scan(&txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append loyalty transaction: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit loyalty transaction: %w", err)
	}
	return nil
}

// GetBalance returns the user's cached points balance.
func (r *LoyaltyRepository) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	var balance int
	query := `SELECT loyalty_points FROM users WHERE id = $1`

	if err := r.db.GetContext(ctx, &balance, query, userID); err != nil {
		return 0, fmt.Errorf("failed to get loyalty balance: %w", err)
	}
	return balance, nil
}

// ListByUser returns the user's ledger entries, newest first.
func (r *LoyaltyRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.LoyaltyTransaction, error) {
	var txns []models.LoyaltyTransaction
	query := `
		SELECT id, user_id, booking_id, type, points, description, created_at
		FROM loyalty_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &txns, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list loyalty transactions: %w", err)
	}
	return txns, nil
}

// HasEarnedForBooking reports whether checkout points were already
// awarded for a booking, making the award idempotent.
func (r *LoyaltyRepository) HasEarnedForBooking(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM loyalty_transactions
		WHERE booking_id = $1 AND type = 'earn'`

	if err := r.db.GetContext(ctx, &count, query, bookingID); err != nil {
		return false, fmt.Errorf("failed to check loyalty award: %w", err)
	}
	return count > 0, nil
}
