package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/maikekai/surf-house-backend/internal/models"
)

// ErrRoomConflict is returned when a requested room or bed was taken
// between the availability check and the insert.
var ErrRoomConflict = errors.New("room or bed no longer available for the requested dates")

// activeStatuses are the booking states that hold inventory.
const activeStatuses = `'pending_payment', 'confirmed', 'checked_in'`

// BookingRepository handles booking persistence, including the
// transactional checkout write.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// GenerateBookingReference generates a unique booking reference.
// Format: MKK-YYYYMMDD-XXXXXX (6 char hex).
func (r *BookingRepository) GenerateBookingReference(ctx context.Context) (string, error) {
	todayStr := time.Now().Format("20060102")

	for attempts := 0; attempts < 10; attempts++ {
		randomBytes := make([]byte, 3)
		if _, err := rand.Read(randomBytes); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		newRef := fmt.Sprintf("MKK-%s-%s", todayStr, strings.ToUpper(hex.EncodeToString(randomBytes)))

		var count int
		err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM bookings WHERE booking_reference = $1`, newRef)
		if err != nil {
			return "", fmt.Errorf("failed to check reference uniqueness: %w", err)
		}
		if count == 0 {
			return newRef, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique booking reference after 10 attempts")
}

// CreateWithRooms inserts the booking and its room lines in one
// transaction. Each room line is re-checked for conflicts inside the
// transaction; any conflict aborts the whole write with ErrRoomConflict.
func (r *BookingRepository) CreateWithRooms(ctx context.Context, booking *models.Booking, roomLines []models.BookingRoom) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Re-check every requested line against committed bookings. The
	// availability read happened outside this transaction, so a
	// concurrent checkout may have landed in between.
	conflictQuery := `
		SELECT COUNT(*)
		FROM booking_rooms br
		JOIN bookings b ON b.id = br.booking_id
		WHERE br.room_id = $1
		  AND b.status IN (` + activeStatuses + `)
		  AND b.check_in < $2 AND b.check_out > $3
		  AND (br.bed_id IS NULL OR $4::uuid IS NULL OR br.bed_id = $4)`

	for i := range roomLines {
		var count int
		err := tx.QueryRowx(conflictQuery,
			roomLines[i].RoomID, booking.CheckOut, booking.CheckIn, roomLines[i].BedID,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to re-check availability for room %s: %w", roomLines[i].RoomID, err)
		}
		if count > 0 {
			return fmt.Errorf("room %s: %w", roomLines[i].RoomID, ErrRoomConflict)
		}
	}

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}

	bookingQuery := `
		INSERT INTO bookings (
			id, booking_reference, user_id, check_in, check_out, guests_count,
			status, payment_status, total_amount, paid_amount, source, special_requests
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		) RETURNING created_at, updated_at`

	err = tx.QueryRowx(bookingQuery,
		booking.ID, booking.BookingReference, booking.UserID,
		booking.CheckIn, booking.CheckOut, booking.GuestsCount,
		booking.Status, booking.PaymentStatus,
		booking.TotalAmount, booking.PaidAmount,
		booking.Source, booking.SpecialRequests,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	lineQuery := `
		INSERT INTO booking_rooms (id, booking_id, room_id, bed_id, price_per_night)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	for i := range roomLines {
		if roomLines[i].ID == uuid.Nil {
			roomLines[i].ID = uuid.New()
		}
		roomLines[i].BookingID = booking.ID

		err = tx.QueryRowx(lineQuery,
			roomLines[i].ID, roomLines[i].BookingID,
			roomLines[i].RoomID, roomLines[i].BedID, roomLines[i].PricePerNight,
		).Scan(&roomLines[i].CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create booking room line: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking transaction: %w", err)
	}

	booking.Rooms = roomLines
	return nil
}

// CreateServiceLine inserts one add-on service line. Called outside the
// booking transaction; a failure here must not undo the booking.
func (r *BookingRepository) CreateServiceLine(ctx context.Context, line *models.BookingService) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}

	query := `
		INSERT INTO booking_services (id, booking_id, service_id, quantity, price_at_booking, scheduled_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		line.ID, line.BookingID, line.ServiceID,
		line.Quantity, line.PriceAtBooking, line.ScheduledDate, line.Notes,
	).Scan(&line.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking service line: %w", err)
	}
	return nil
}

// CreateCheckInPlaceholder creates the empty check-in row that the desk
// fills in on arrival.
func (r *BookingRepository) CreateCheckInPlaceholder(ctx context.Context, bookingID uuid.UUID) error {
	query := `
		INSERT INTO check_in_data (id, booking_id, terms_accepted)
		VALUES ($1, $2, FALSE)
		ON CONFLICT (booking_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, uuid.New(), bookingID); err != nil {
		return fmt.Errorf("failed to create check-in placeholder: %w", err)
	}
	return nil
}

const bookingColumns = `
	id, booking_reference, user_id, check_in, check_out, guests_count,
	status, payment_status, total_amount, paid_amount, source, special_requests,
	payment_uid, payment_reference, confirmed_at, checked_in_at, checked_out_at,
	cancelled_at, created_at, updated_at`

// GetByID returns one booking with its room and service lines loaded.
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, fmt.Errorf("failed to get booking %s: %w", id, err)
	}
	if err := r.loadLines(ctx, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetByReference returns one booking by its public reference.
func (r *BookingRepository) GetByReference(ctx context.Context, ref string) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_reference = $1`

	if err := r.db.GetContext(ctx, &booking, query, ref); err != nil {
		return nil, fmt.Errorf("failed to get booking by reference %s: %w", ref, err)
	}
	if err := r.loadLines(ctx, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetByPaymentUID returns the booking linked to a gateway payment UID.
func (r *BookingRepository) GetByPaymentUID(ctx context.Context, paymentUID string) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE payment_uid = $1`

	if err := r.db.GetContext(ctx, &booking, query, paymentUID); err != nil {
		return nil, fmt.Errorf("failed to get booking by payment UID: %w", err)
	}
	return &booking, nil
}

func (r *BookingRepository) loadLines(ctx context.Context, booking *models.Booking) error {
	roomQuery := `
		SELECT id, booking_id, room_id, bed_id, price_per_night, created_at
		FROM booking_rooms WHERE booking_id = $1`
	if err := r.db.SelectContext(ctx, &booking.Rooms, roomQuery, booking.ID); err != nil {
		return fmt.Errorf("failed to load booking room lines: %w", err)
	}

	serviceQuery := `
		SELECT id, booking_id, service_id, quantity, price_at_booking, scheduled_date, notes, created_at
		FROM booking_services WHERE booking_id = $1`
	if err := r.db.SelectContext(ctx, &booking.Services, serviceQuery, booking.ID); err != nil {
		return fmt.Errorf("failed to load booking service lines: %w", err)
	}
	return nil
}

// OccupiedLine is one active room/bed occupation overlapping a queried
// range, used by availability and occupancy reads.
type OccupiedLine struct {
	RoomID   uuid.UUID  `db:"room_id"`
	BedID    *uuid.UUID `db:"bed_id"`
	CheckIn  time.Time  `db:"check_in"`
	CheckOut time.Time  `db:"check_out"`
}

// ListOccupiedLines returns room lines of active bookings that overlap
// the half-open range [start, end). Checkout day does not collide with
// a same-day check-in.
func (r *BookingRepository) ListOccupiedLines(ctx context.Context, start, end time.Time) ([]OccupiedLine, error) {
	var lines []OccupiedLine
	query := `
		SELECT br.room_id, br.bed_id, b.check_in, b.check_out
		FROM booking_rooms br
		JOIN bookings b ON b.id = br.booking_id
		WHERE b.status IN (` + activeStatuses + `)
		  AND b.check_in < $2 AND b.check_out > $1`

	if err := r.db.SelectContext(ctx, &lines, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to list occupied lines: %w", err)
	}
	return lines, nil
}

// SetPaymentInitiated stores the gateway correlation identifiers after a
// checkout session is opened.
func (r *BookingRepository) SetPaymentInitiated(ctx context.Context, bookingID uuid.UUID, paymentUID, paymentRef string) error {
	query := `
		UPDATE bookings
		SET payment_uid = $2, payment_reference = $3, updated_at = NOW()
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, bookingID, paymentUID, paymentRef); err != nil {
		return fmt.Errorf("failed to store payment identifiers: %w", err)
	}
	return nil
}

// ConfirmPayment transitions a pending booking to confirmed/paid. Returns
// the number of rows updated; zero means the booking was not pending.
func (r *BookingRepository) ConfirmPayment(ctx context.Context, bookingID uuid.UUID, amount float64) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'confirmed', payment_status = 'paid',
		    paid_amount = $2, confirmed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending_payment'`

	res, err := r.db.ExecContext(ctx, query, bookingID, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to confirm booking payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}

// MarkPaymentFailed cancels a booking whose provider payment failed or
// was abandoned. Only bookings whose payment is still pending are
// touched, so a partially or fully paid booking is never downgraded.
func (r *BookingRepository) MarkPaymentFailed(ctx context.Context, bookingID uuid.UUID) error {
	query := `
		UPDATE bookings
		SET status = 'cancelled', payment_status = 'failed',
		    cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending'`

	if _, err := r.db.ExecContext(ctx, query, bookingID); err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	return nil
}

// Cancel moves a booking into the cancelled state. Only bookings that
// still hold inventory can be cancelled.
func (r *BookingRepository) Cancel(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('pending_payment', 'confirmed')`

	res, err := r.db.ExecContext(ctx, query, bookingID)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}

// CompleteCheckIn marks a confirmed booking as checked in.
func (r *BookingRepository) CompleteCheckIn(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'checked_in', checked_in_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'`

	res, err := r.db.ExecContext(ctx, query, bookingID)
	if err != nil {
		return 0, fmt.Errorf("failed to check in booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}

// CompleteCheckOut marks a checked-in booking as checked out.
func (r *BookingRepository) CompleteCheckOut(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'checked_out', checked_out_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'checked_in'`

	res, err := r.db.ExecContext(ctx, query, bookingID)
	if err != nil {
		return 0, fmt.Errorf("failed to check out booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}

// MarkNoShow flags a confirmed booking whose guest never arrived.
func (r *BookingRepository) MarkNoShow(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'no_show', updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'`

	res, err := r.db.ExecContext(ctx, query, bookingID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark booking no-show: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}

// UpdateCheckInData fills in the desk check-in record.
func (r *BookingRepository) UpdateCheckInData(ctx context.Context, bookingID uuid.UUID, photoURL, signatureURL *string, termsAccepted bool) error {
	query := `
		UPDATE check_in_data
		SET photo_url = $2, signature_url = $3, terms_accepted = $4,
		    completed_at = NOW(), updated_at = NOW()
		WHERE booking_id = $1`

	if _, err := r.db.ExecContext(ctx, query, bookingID, photoURL, signatureURL, termsAccepted); err != nil {
		return fmt.Errorf("failed to update check-in data: %w", err)
	}
	return nil
}

// ExpirePending cancels unpaid bookings created before the cutoff and
// returns the expired rows so callers can log and notify.
func (r *BookingRepository) ExpirePending(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	var expired []models.Booking
	query := `
		UPDATE bookings
		SET status = 'cancelled', payment_status = 'failed',
		    cancelled_at = NOW(), updated_at = NOW()
		WHERE status = 'pending_payment' AND created_at < $1
		RETURNING ` + bookingColumns

	if err := r.db.SelectContext(ctx, &expired, query, cutoff); err != nil {
		return nil, fmt.Errorf("failed to expire pending bookings: %w", err)
	}
	return expired, nil
}
