package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/maikekai/surf-house-backend/internal/database"
	"github.com/maikekai/surf-house-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// LoyaltyService manages the guest points ledger. Guests earn one point
// per currency unit spent, awarded once per booking at check-out.
type LoyaltyService struct {
	loyaltyRepo *database.LoyaltyRepository
	logger      *logrus.Logger
}

// NewLoyaltyService creates a new LoyaltyService.
func NewLoyaltyService(loyaltyRepo *database.LoyaltyRepository, logger *logrus.Logger) *LoyaltyService {
	return &LoyaltyService{
		loyaltyRepo: loyaltyRepo,
		logger:      logger,
	}
}

// AwardForCheckout awards floor(total_amount) points for a completed
// stay. Idempotent per booking, so a retried check-out never awards
// twice.
func (s *LoyaltyService) AwardForCheckout(ctx context.Context, booking *models.Booking) error {
	points := int(math.Floor(booking.TotalAmount))
	if points <= 0 {
		return nil
	}

	awarded, err := s.loyaltyRepo.HasEarnedForBooking(ctx, booking.ID)
	if err != nil {
		return NewDataAccessError("check loyalty award", err)
	}
	if awarded {
		return nil
	}

	description := fmt.Sprintf("Stay %s", booking.BookingReference)
	txn := &models.LoyaltyTransaction{
		UserID:      booking.UserID,
		BookingID:   &booking.ID,
		Points:      points,
		Description: &description,
	}
	if err := s.loyaltyRepo.Earn(ctx, txn); err != nil {
		return NewDataAccessError("award loyalty points", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    booking.UserID,
		"booking_id": booking.ID,
		"points":     points,
	}).Info("Loyalty points awarded")
	return nil
}

// Redeem spends points from a guest's balance.
func (s *LoyaltyService) Redeem(ctx context.Context, userID uuid.UUID, req *models.RedeemPointsRequest) error {
	txn := &models.LoyaltyTransaction{
		UserID:      userID,
		Points:      req.Points,
		Description: req.Description,
	}
	err := s.loyaltyRepo.Redeem(ctx, txn)
	if errors.Is(err, database.ErrInsufficientPoints) {
		return NewConflictError("not enough loyalty points")
	}
	if err != nil {
		return NewDataAccessError("redeem loyalty points", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"points":  req.Points,
	}).Info("Loyalty points redeemed")
	return nil
}

// Balance returns the guest's current points balance.
func (s *LoyaltyService) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	balance, err := s.loyaltyRepo.GetBalance(ctx, userID)
	if err != nil {
		return 0, NewNotFoundError("user", userID.String())
	}
	return balance, nil
}

// History returns the guest's recent ledger entries.
func (s *LoyaltyService) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.LoyaltyTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	txns, err := s.loyaltyRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, NewDataAccessError("list loyalty transactions", err)
	}
	return txns, nil
}
