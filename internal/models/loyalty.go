package models

import (
	"time"

	"github.com/google/uuid"
)

// LoyaltyTransactionType marks the direction of a points movement.
type LoyaltyTransactionType string

const (
	LoyaltyEarn   LoyaltyTransactionType = "earn"
	LoyaltyRedeem LoyaltyTransactionType = "redeem"
)

// LoyaltyTransaction is one append-only points movement. The user's
// balance is the sum of earns minus redeems.
type LoyaltyTransaction struct {
	ID          uuid.UUID              `json:"id" db:"id"`
	UserID      uuid.UUID              `json:"user_id" db:"user_id"`
	BookingID   *uuid.UUID             `json:"booking_id,omitempty" db:"booking_id"`
	Type        LoyaltyTransactionType `json:"type" db:"type"`
	Points      int                    `json:"points" db:"points"`
	Description *string                `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time              `json:"created_at" db:"created_at"`
}

// RedeemPointsRequest is the guest-facing redemption payload.
type RedeemPointsRequest struct {
	Points      int     `json:"points" binding:"required,min=1"`
	Description *string `json:"description,omitempty"`
}

// LoyaltyBalanceResponse reports a user's current points balance.
type LoyaltyBalanceResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Balance int       `json:"balance"`
}
