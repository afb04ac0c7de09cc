package services

import (
	"context"
	"time"

	"github.com/maikekai/surf-house-backend/internal/database"
	"github.com/sirupsen/logrus"
)

// ExpirationService releases inventory held by bookings whose payment
// never arrived. A pending booking older than the TTL is cancelled and
// its rooms become bookable again.
type ExpirationService struct {
	bookingRepo *database.BookingRepository
	logger      *logrus.Logger
	pendingTTL  time.Duration
}

// NewExpirationService creates a new ExpirationService.
func NewExpirationService(bookingRepo *database.BookingRepository, pendingTTL time.Duration, logger *logrus.Logger) *ExpirationService {
	return &ExpirationService{
		bookingRepo: bookingRepo,
		logger:      logger,
		pendingTTL:  pendingTTL,
	}
}

// ExpireStale cancels pending bookings older than the TTL and returns
// how many were released along with their references.
func (s *ExpirationService) ExpireStale(ctx context.Context) (int, []string, error) {
	cutoff := time.Now().Add(-s.pendingTTL)

	expired, err := s.bookingRepo.ExpirePending(ctx, cutoff)
	if err != nil {
		return 0, nil, NewDataAccessError("expire pending bookings", err)
	}

	references := make([]string, 0, len(expired))
	for _, booking := range expired {
		references = append(references, booking.BookingReference)
		s.logger.WithFields(logrus.Fields{
			"booking_id":        booking.ID,
			"booking_reference": booking.BookingReference,
			"created_at":        booking.CreatedAt,
		}).Info("Expired unpaid booking")
	}
	if len(expired) > 0 {
		s.logger.WithField("count", len(expired)).Info("Expiration sweep released inventory")
	}
	return len(expired), references, nil
}

// PendingTTL exposes the configured hold duration.
func (s *ExpirationService) PendingTTL() time.Duration {
	return s.pendingTTL
}
