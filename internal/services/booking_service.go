package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maikekai/surf-house-backend/internal/database"
	"github.com/maikekai/surf-house-backend/internal/models"
	"github.com/maikekai/surf-house-backend/pkg/mailer"
	"github.com/sirupsen/logrus"
)

// roomLocker serializes checkouts that touch the same rooms within this
// process. The booking transaction still re-checks conflicts, so this is
// an ordering aid, not the correctness guarantee.
type roomLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newRoomLocker() *roomLocker {
	return &roomLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// lockAll acquires the per-room locks in sorted order so two overlapping
// checkouts can never deadlock. Returns the unlock function.
func (l *roomLocker) lockAll(roomIDs []uuid.UUID) func() {
	unique := make(map[uuid.UUID]struct{}, len(roomIDs))
	for _, id := range roomIDs {
		unique[id] = struct{}{}
	}
	sorted := make([]uuid.UUID, 0, len(unique))
	for id := range unique {
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	acquired := make([]*sync.Mutex, 0, len(sorted))
	for _, id := range sorted {
		l.mu.Lock()
		m, ok := l.locks[id]
		if !ok {
			m = &sync.Mutex{}
			l.locks[id] = m
		}
		l.mu.Unlock()
		m.Lock()
		acquired = append(acquired, m)
	}

	return func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i].Unlock()
		}
	}
}

// BookingService orchestrates checkout and the booking lifecycle.
type BookingService struct {
	bookingRepo  *database.BookingRepository
	roomRepo     *database.RoomRepository
	serviceRepo  *database.ServiceRepository
	userRepo     *database.UserRepository
	availability *AvailabilityService
	pricing      *PricingService
	loyalty      *LoyaltyService
	mail         mailer.Mailer
	logger       *logrus.Logger
	locker       *roomLocker
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	bookingRepo *database.BookingRepository,
	roomRepo *database.RoomRepository,
	serviceRepo *database.ServiceRepository,
	userRepo *database.UserRepository,
	availability *AvailabilityService,
	pricing *PricingService,
	loyalty *LoyaltyService,
	mail mailer.Mailer,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo:  bookingRepo,
		roomRepo:     roomRepo,
		serviceRepo:  serviceRepo,
		userRepo:     userRepo,
		availability: availability,
		pricing:      pricing,
		loyalty:      loyalty,
		mail:         mail,
		logger:       logger,
		locker:       newRoomLocker(),
	}
}

// CreateBooking runs the checkout: resolve the guest, validate and price
// every requested line, then write the booking and its room lines in one
// transaction. Add-on service lines and the check-in placeholder are
// written after commit and never fail the checkout. authUserID is the
// authenticated account when the caller carries a session, nil for
// anonymous checkouts.
func (s *BookingService) CreateBooking(ctx context.Context, req *models.CreateBookingRequest, authUserID *uuid.UUID) (*models.CreateBookingResponse, error) {
	checkIn, checkOut, err := req.Dates()
	if err != nil {
		return nil, NewValidationError("check_in", err.Error())
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if checkIn.Before(today) {
		return nil, NewValidationError("check_in", "cannot be in the past")
	}
	if req.Source == "" {
		req.Source = models.BookingSourceDirect
	}

	user, err := s.resolveGuest(ctx, authUserID, req.Guest)
	if err != nil {
		return nil, err
	}

	roomLines, roomTotal, err := s.buildRoomLines(ctx, req, checkIn, checkOut)
	if err != nil {
		return nil, err
	}

	serviceLines, serviceTotal, err := s.buildServiceLines(ctx, req.Services)
	if err != nil {
		return nil, err
	}

	reference, err := s.bookingRepo.GenerateBookingReference(ctx)
	if err != nil {
		return nil, NewDataAccessError("generate booking reference", err)
	}

	// The 13% tax applies once, to the combined pre-tax subtotal of room
	// and service lines.
	subtotal := round2(roomTotal + serviceTotal)
	taxes := round2(subtotal * TaxRate)

	booking := &models.Booking{
		ID:               uuid.New(),
		BookingReference: reference,
		UserID:           user.ID,
		CheckIn:          checkIn,
		CheckOut:         checkOut,
		GuestsCount:      req.GuestsCount,
		Status:           models.BookingStatusPendingPayment,
		PaymentStatus:    models.PaymentStatusPending,
		TotalAmount:      round2(subtotal + taxes),
		Source:           req.Source,
		SpecialRequests:  req.SpecialRequests,
	}

	roomIDs := make([]uuid.UUID, len(roomLines))
	for i, line := range roomLines {
		roomIDs[i] = line.RoomID
	}
	unlock := s.locker.lockAll(roomIDs)
	defer unlock()

	// Last availability read before the transactional re-check.
	for _, line := range roomLines {
		available, err := s.availability.IsLineAvailable(ctx, line.RoomID, line.BedID, checkIn, checkOut)
		if err != nil {
			return nil, err
		}
		if !available {
			return nil, NewConflictError(fmt.Sprintf("room %s is no longer available for the selected dates", line.RoomID))
		}
	}

	if err := s.bookingRepo.CreateWithRooms(ctx, booking, roomLines); err != nil {
		if errors.Is(err, database.ErrRoomConflict) {
			return nil, NewConflictError("selected room was booked by another guest, please pick different dates or rooms")
		}
		return nil, NewDataAccessError("create booking", err)
	}

	// Post-commit extras: failures are logged, the booking stands.
	for i := range serviceLines {
		serviceLines[i].BookingID = booking.ID
		if err := s.bookingRepo.CreateServiceLine(ctx, &serviceLines[i]); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"booking_id": booking.ID,
				"service_id": serviceLines[i].ServiceID,
			}).Error("Failed to attach service line to booking")
		}
	}
	if err := s.bookingRepo.CreateCheckInPlaceholder(ctx, booking.ID); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Error("Failed to create check-in placeholder")
	}
	s.sendPendingEmail(ctx, user, booking)

	s.logger.WithFields(logrus.Fields{
		"booking_id":        booking.ID,
		"booking_reference": booking.BookingReference,
		"total_amount":      booking.TotalAmount,
		"rooms":             len(roomLines),
	}).Info("Booking created")

	return &models.CreateBookingResponse{
		BookingID:        booking.ID,
		BookingReference: booking.BookingReference,
		Status:           booking.Status,
		TotalAmount:      booking.TotalAmount,
		CheckIn:          checkIn.Format(models.DateLayout),
		CheckOut:         checkOut.Format(models.DateLayout),
	}, nil
}

// resolveGuest picks the booking owner. An authenticated session wins;
// otherwise the account matching the checkout email is reused, or a
// lightweight guest account is created. Existing accounts get missing
// contact fields backfilled.
func (s *BookingService) resolveGuest(ctx context.Context, authUserID *uuid.UUID, contact models.GuestContact) (*models.User, error) {
	if authUserID != nil {
		user, err := s.userRepo.GetByID(ctx, *authUserID)
		if err != nil {
			return nil, NewDataAccessError("load authenticated guest", err)
		}
		return user, nil
	}

	user, err := s.userRepo.GetByEmail(ctx, contact.Email)
	if err != nil {
		return nil, NewDataAccessError("look up guest", err)
	}
	if user == nil {
		user, err = s.userRepo.CreateGuest(ctx, contact)
		if err != nil {
			return nil, NewDataAccessError("create guest", err)
		}
		return user, nil
	}

	if err := s.userRepo.UpdateContact(ctx, user.ID, contact); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to backfill guest contact")
	}
	return user, nil
}

func (s *BookingService) buildRoomLines(ctx context.Context, req *models.CreateBookingRequest, checkIn, checkOut time.Time) ([]models.BookingRoom, float64, error) {
	now := time.Now()
	lines := make([]models.BookingRoom, 0, len(req.Rooms))
	var total float64

	seen := make(map[string]bool)
	for _, input := range req.Rooms {
		key := input.RoomID.String()
		if input.BedID != nil {
			key += ":" + input.BedID.String()
		}
		if seen[key] {
			return nil, 0, NewValidationError("rooms", "duplicate room or bed in request")
		}
		seen[key] = true

		room, err := s.roomRepo.GetByID(ctx, input.RoomID)
		if err != nil {
			return nil, 0, NewNotFoundError("room", input.RoomID.String())
		}
		if !room.IsActive {
			return nil, 0, NewValidationError("rooms", fmt.Sprintf("room %s is not bookable", room.Name))
		}
		if input.BedID != nil && room.SellUnit != models.SellUnitBed {
			return nil, 0, NewValidationError("rooms", fmt.Sprintf("room %s is sold as a whole unit, not per bed", room.Name))
		}
		if input.BedID == nil && room.SellUnit == models.SellUnitBed {
			return nil, 0, NewValidationError("rooms", fmt.Sprintf("room %s is sold per bed, pick a bed", room.Name))
		}

		breakdown, err := s.pricing.QuoteRoom(ctx, input.RoomID, checkIn, checkOut, now)
		if err != nil {
			return nil, 0, err
		}

		// The snapshotted nightly price already carries the season and
		// lead-time adjustments; the line total stays pre-tax.
		pricePerNight := round2(breakdown.Subtotal / float64(breakdown.Nights))
		lines = append(lines, models.BookingRoom{
			RoomID:        input.RoomID,
			BedID:         input.BedID,
			PricePerNight: pricePerNight,
		})
		total += pricePerNight * float64(breakdown.Nights)
	}
	return lines, round2(total), nil
}

func (s *BookingService) buildServiceLines(ctx context.Context, inputs []models.BookingServiceInput) ([]models.BookingService, float64, error) {
	if len(inputs) == 0 {
		return nil, 0, nil
	}

	ids := make([]uuid.UUID, len(inputs))
	for i, in := range inputs {
		ids[i] = in.ServiceID
	}
	catalog, err := s.serviceRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, 0, NewDataAccessError("load service catalog", err)
	}
	byID := make(map[uuid.UUID]models.Service, len(catalog))
	for _, svc := range catalog {
		byID[svc.ID] = svc
	}

	lines := make([]models.BookingService, 0, len(inputs))
	var total float64
	for _, in := range inputs {
		svc, ok := byID[in.ServiceID]
		if !ok {
			return nil, 0, NewNotFoundError("service", in.ServiceID.String())
		}

		var scheduled *time.Time
		if in.ScheduledDate != nil {
			d, err := models.ParseDate(*in.ScheduledDate)
			if err != nil {
				return nil, 0, NewValidationError("services", err.Error())
			}
			scheduled = &d
		}

		lines = append(lines, models.BookingService{
			ServiceID:      svc.ID,
			Quantity:       in.Quantity,
			PriceAtBooking: svc.Price,
			ScheduledDate:  scheduled,
			Notes:          in.Notes,
		})
		total += svc.Price * float64(in.Quantity)
	}
	return lines, round2(total), nil
}

// GetBooking returns one booking with its lines.
func (s *BookingService) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, NewNotFoundError("booking", id.String())
	}
	return booking, nil
}

// GetBookingByReference returns one booking by its public reference.
func (s *BookingService) GetBookingByReference(ctx context.Context, ref string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByReference(ctx, ref)
	if err != nil {
		return nil, NewNotFoundError("booking", ref)
	}
	return booking, nil
}

// Cancel cancels a booking that still holds inventory.
func (s *BookingService) Cancel(ctx context.Context, id uuid.UUID) error {
	n, err := s.bookingRepo.Cancel(ctx, id)
	if err != nil {
		return NewDataAccessError("cancel booking", err)
	}
	if n == 0 {
		return NewConflictError("booking cannot be cancelled in its current state")
	}
	s.logger.WithField("booking_id", id).Info("Booking cancelled")
	return nil
}

// CheckInInput is the desk check-in payload.
type CheckInInput struct {
	PhotoURL      *string `json:"photo_url,omitempty"`
	SignatureURL  *string `json:"signature_url,omitempty"`
	TermsAccepted bool    `json:"terms_accepted"`
}

// CompleteCheckIn transitions a confirmed booking to checked_in and
// fills the check-in record.
func (s *BookingService) CompleteCheckIn(ctx context.Context, id uuid.UUID, input CheckInInput) error {
	if !input.TermsAccepted {
		return NewValidationError("terms_accepted", "guest must accept the house terms")
	}

	n, err := s.bookingRepo.CompleteCheckIn(ctx, id)
	if err != nil {
		return NewDataAccessError("check in booking", err)
	}
	if n == 0 {
		return NewConflictError("booking must be confirmed before check-in")
	}

	if err := s.bookingRepo.UpdateCheckInData(ctx, id, input.PhotoURL, input.SignatureURL, input.TermsAccepted); err != nil {
		s.logger.WithError(err).WithField("booking_id", id).Error("Failed to store check-in data")
	}
	s.logger.WithField("booking_id", id).Info("Guest checked in")
	return nil
}

// CompleteCheckOut transitions a checked-in booking to checked_out and
// awards loyalty points on the booking total.
func (s *BookingService) CompleteCheckOut(ctx context.Context, id uuid.UUID) error {
	n, err := s.bookingRepo.CompleteCheckOut(ctx, id)
	if err != nil {
		return NewDataAccessError("check out booking", err)
	}
	if n == 0 {
		return NewConflictError("booking must be checked in before check-out")
	}

	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.WithError(err).WithField("booking_id", id).Error("Failed to reload booking for loyalty award")
		return nil
	}
	if err := s.loyalty.AwardForCheckout(ctx, booking); err != nil {
		s.logger.WithError(err).WithField("booking_id", id).Error("Failed to award loyalty points")
	}

	s.logger.WithField("booking_id", id).Info("Guest checked out")
	return nil
}

// MarkNoShow flags a confirmed booking whose guest never arrived.
func (s *BookingService) MarkNoShow(ctx context.Context, id uuid.UUID) error {
	n, err := s.bookingRepo.MarkNoShow(ctx, id)
	if err != nil {
		return NewDataAccessError("mark no-show", err)
	}
	if n == 0 {
		return NewConflictError("only confirmed bookings can be marked no-show")
	}
	s.logger.WithField("booking_id", id).Info("Booking marked no-show")
	return nil
}

func (s *BookingService) sendPendingEmail(ctx context.Context, user *models.User, booking *models.Booking) {
	msg := mailer.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Your Mai Ke Kai booking %s is reserved", booking.BookingReference),
		Body: fmt.Sprintf(
			"Hola %s!\n\nWe are holding your spot from %s to %s. Complete the payment within 24 hours to confirm your booking.\n\nTotal: %.2f\nReference: %s\n\nPura vida,\nMai Ke Kai Surf House",
			user.FullName,
			booking.CheckIn.Format(models.DateLayout),
			booking.CheckOut.Format(models.DateLayout),
			booking.TotalAmount,
			booking.BookingReference,
		),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Failed to send pending-booking email")
	}
}
