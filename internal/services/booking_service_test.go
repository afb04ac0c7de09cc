package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/maikekai/surf-house-backend/internal/database"
	"github.com/maikekai/surf-house-backend/internal/models"
	"github.com/maikekai/surf-house-backend/pkg/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBookingService(t *testing.T) (*BookingService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	logger := newTestLogger()

	roomRepo := database.NewRoomRepository(db)
	bookingRepo := database.NewBookingRepository(db)
	blockRepo := database.NewBlockRepository(db)
	pricingRepo := database.NewPricingRepository(db)

	svc := NewBookingService(
		bookingRepo,
		roomRepo,
		database.NewServiceRepository(db),
		database.NewUserRepository(db),
		NewAvailabilityService(roomRepo, bookingRepo, blockRepo, logger),
		NewPricingService(pricingRepo, roomRepo, logger),
		NewLoyaltyService(database.NewLoyaltyRepository(db), logger),
		mailer.NewLogMailer(logger, "Mai Ke Kai <hola@maikekai.cr>"),
		logger,
	)
	return svc, mock
}

func checkoutRequestFixture(checkIn, checkOut time.Time, roomID uuid.UUID) *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		CheckIn:     checkIn.Format(models.DateLayout),
		CheckOut:    checkOut.Format(models.DateLayout),
		GuestsCount: 2,
		Rooms:       []models.BookingRoomInput{{RoomID: roomID}},
		Source:      models.BookingSourceDirect,
		Guest: models.GuestContact{
			Email:    "ana@example.com",
			FullName: "Ana Mora",
		},
	}
}

func TestCreateBookingRejectsInvalidDates(t *testing.T) {
	svc, mock := newBookingService(t)

	req := checkoutRequestFixture(time.Now(), time.Now(), uuid.New())
	req.CheckIn = "not-a-date"

	_, err := svc.CreateBooking(context.Background(), req, nil)
	require.Error(t, err)
	assert.IsType(t, &ValidationError{}, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingRejectsPastCheckIn(t *testing.T) {
	svc, mock := newBookingService(t)

	checkIn := time.Now().UTC().AddDate(0, 0, -3)
	req := checkoutRequestFixture(checkIn, checkIn.AddDate(0, 0, 2), uuid.New())

	_, err := svc.CreateBooking(context.Background(), req, nil)
	require.Error(t, err)
	assert.IsType(t, &ValidationError{}, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingRejectsCheckOutBeforeCheckIn(t *testing.T) {
	svc, mock := newBookingService(t)

	checkIn := time.Now().UTC().AddDate(0, 0, 30)
	req := checkoutRequestFixture(checkIn, checkIn.AddDate(0, 0, -2), uuid.New())

	_, err := svc.CreateBooking(context.Background(), req, nil)
	require.Error(t, err)
	assert.IsType(t, &ValidationError{}, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingRejectsDuplicateRoomLines(t *testing.T) {
	svc, mock := newBookingService(t)

	checkIn := time.Now().UTC().AddDate(0, 0, 30)
	roomID := uuid.New()
	req := checkoutRequestFixture(checkIn, checkIn.AddDate(0, 0, 3), roomID)
	req.Rooms = append(req.Rooms, models.BookingRoomInput{RoomID: roomID})

	expectExistingGuest(mock, uuid.New())

	// The first line prices normally; the duplicate is caught on the
	// second line before any write.
	expectRoomByID(mock, roomID, models.SellUnitRoom, 120)
	expectRoomByID(mock, roomID, models.SellUnitRoom, 120)
	mock.ExpectQuery(`(?s)SELECT id, season, start_date.+FROM season_dates`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "season", "start_date", "end_date", "is_active", "created_at"}))
	mock.ExpectQuery(`(?s)SELECT.+FROM season_pricing`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.CreateBooking(context.Background(), req, nil)
	require.Error(t, err)
	assert.IsType(t, &ValidationError{}, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// expectExistingGuest mocks the guest lookup and contact backfill that
// run before room validation.
func expectExistingGuest(mock sqlmock.Sqlmock, userID uuid.UUID) {
	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT.+FROM users WHERE LOWER\(email\)`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "full_name", "phone", "nationality", "role", "password_hash",
			"loyalty_points", "is_active", "last_login_at", "created_at", "updated_at",
		}).AddRow(userID, "ana@example.com", "Ana Mora", nil, nil, "guest", nil, 0, true, nil, now, now))
	mock.ExpectExec(`(?s)UPDATE users.+SET full_name`).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func expectRoomByID(mock sqlmock.Sqlmock, roomID uuid.UUID, sellUnit models.SellUnit, basePrice float64) {
	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT id, name, type, capacity.+FROM rooms.+WHERE id = \$1`).
		WithArgs(roomID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type", "capacity", "sell_unit", "base_price", "is_active", "created_at", "updated_at"}).
			AddRow(roomID, "Casa Familia", "family", 4, string(sellUnit), basePrice, true, now, now))
}

func TestCreateBookingConflictWritesNothing(t *testing.T) {
	svc, mock := newBookingService(t)

	roomID := uuid.New()
	checkIn := time.Now().UTC().AddDate(0, 0, 90).Truncate(24 * time.Hour)
	checkOut := checkIn.AddDate(0, 0, 4)
	req := checkoutRequestFixture(checkIn, checkOut, roomID)

	expectExistingGuest(mock, uuid.New())

	// Room validation, then pricing for the line.
	expectRoomByID(mock, roomID, models.SellUnitRoom, 120)
	expectRoomByID(mock, roomID, models.SellUnitRoom, 120)
	mock.ExpectQuery(`(?s)SELECT id, season, start_date.+FROM season_dates`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "season", "start_date", "end_date", "is_active", "created_at"}))
	mock.ExpectQuery(`(?s)SELECT.+FROM season_pricing`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE booking_reference`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	// The pre-check finds a whole-room line already holding the dates,
	// so the checkout stops before any write.
	mock.ExpectQuery(`(?s)SELECT br.room_id, br.bed_id.+FROM booking_rooms`).
		WillReturnRows(sqlmock.NewRows([]string{"room_id", "bed_id", "check_in", "check_out"}).
			AddRow(roomID, nil, checkIn, checkOut))

	_, err := svc.CreateBooking(context.Background(), req, nil)
	require.Error(t, err)
	assert.IsType(t, &ConflictError{}, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingRejectsBedForWholeUnitRoom(t *testing.T) {
	svc, mock := newBookingService(t)

	roomID := uuid.New()
	bedID := uuid.New()
	checkIn := time.Now().UTC().AddDate(0, 0, 30)
	req := checkoutRequestFixture(checkIn, checkIn.AddDate(0, 0, 2), roomID)
	req.Rooms[0].BedID = &bedID

	expectExistingGuest(mock, uuid.New())
	expectRoomByID(mock, roomID, models.SellUnitRoom, 120)

	_, err := svc.CreateBooking(context.Background(), req, nil)
	require.Error(t, err)
	assert.IsType(t, &ValidationError{}, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingPrefersAuthenticatedIdentity(t *testing.T) {
	svc, mock := newBookingService(t)

	userID := uuid.New()
	roomID := uuid.New()
	checkIn := time.Now().UTC().AddDate(0, 0, 30)
	req := checkoutRequestFixture(checkIn, checkIn.AddDate(0, 0, 2), roomID)
	req.Guest.Email = "somebody-else@example.com"

	now := time.Now()
	// The session identity wins; no lookup by email happens.
	mock.ExpectQuery(`(?s)SELECT.+FROM users WHERE id = \$1`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "full_name", "phone", "nationality", "role", "password_hash",
			"loyalty_points", "is_active", "last_login_at", "created_at", "updated_at",
		}).AddRow(userID, "ana@example.com", "Ana Mora", nil, nil, "guest", nil, 0, true, nil, now, now))

	// An inactive room stops the checkout right after guest resolution.
	mock.ExpectQuery(`(?s)SELECT id, name, type, capacity.+FROM rooms.+WHERE id = \$1`).
		WithArgs(roomID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type", "capacity", "sell_unit", "base_price", "is_active", "created_at", "updated_at"}).
			AddRow(roomID, "Casa Familia", "family", 4, "room", 120.0, false, now, now))

	_, err := svc.CreateBooking(context.Background(), req, &userID)
	require.Error(t, err)
	assert.IsType(t, &ValidationError{}, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingTaxesServiceLines(t *testing.T) {
	svc, mock := newBookingService(t)

	roomID := uuid.New()
	serviceID := uuid.New()
	userID := uuid.New()
	now := time.Now()

	checkIn := time.Now().UTC().AddDate(0, 0, 90).Truncate(24 * time.Hour)
	checkOut := checkIn.AddDate(0, 0, 2)
	req := checkoutRequestFixture(checkIn, checkOut, roomID)
	req.Services = []models.BookingServiceInput{{ServiceID: serviceID, Quantity: 1}}

	expectExistingGuest(mock, userID)

	// Room pricing: a configured mid-season range pins the multiplier to
	// 1.0 and the 90-day lead earns no discount, so two nights at 100
	// come to exactly 200 pre-tax.
	expectRoomByID(mock, roomID, models.SellUnitRoom, 100)
	expectRoomByID(mock, roomID, models.SellUnitRoom, 100)
	mock.ExpectQuery(`(?s)SELECT id, season, start_date.+FROM season_dates`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "season", "start_date", "end_date", "is_active", "created_at"}).
			AddRow(uuid.New(), "mid", checkIn.AddDate(0, 0, -1), checkOut, true, now))
	mock.ExpectQuery(`(?s)SELECT.+FROM season_pricing`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	mock.ExpectQuery(`(?s)SELECT id, name, description, price.+FROM services`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "price", "category", "is_active", "created_at", "updated_at"}).
			AddRow(serviceID, "Surf Lesson", nil, 50.0, "activity", true, now, now))

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE booking_reference`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	// Availability pre-check: nothing holds the room.
	mock.ExpectQuery(`(?s)SELECT br.room_id, br.bed_id.+FROM booking_rooms`).
		WillReturnRows(sqlmock.NewRows([]string{"room_id", "bed_id", "check_in", "check_out"}))
	mock.ExpectQuery(`(?s)SELECT.+FROM room_blocks`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "bed_id", "start_date", "end_date", "reason", "notes", "created_by", "created_at"}))

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\).+FROM booking_rooms br.+JOIN bookings b`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`(?s)INSERT INTO bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectQuery(`(?s)INSERT INTO booking_rooms`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectCommit()

	mock.ExpectQuery(`(?s)INSERT INTO booking_services`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectExec(`(?s)INSERT INTO check_in_data`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	resp, err := svc.CreateBooking(context.Background(), req, nil)
	require.NoError(t, err)

	// subtotal = 200 rooms + 50 service, taxed once at 13%.
	assert.InDelta(t, 282.50, resp.TotalAmount, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomLockerLocksInSortedOrderAndDeduplicates(t *testing.T) {
	locker := newRoomLocker()

	a := uuid.New()
	b := uuid.New()

	unlock := locker.lockAll([]uuid.UUID{a, b, a})
	// Re-acquiring from another goroutine must block until released.
	acquired := make(chan struct{})
	go func() {
		inner := locker.lockAll([]uuid.UUID{b})
		close(acquired)
		inner()
	}()

	select {
	case <-acquired:
		t.Fatal("second lockAll acquired a held lock")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lockAll never acquired the released lock")
	}
}

func TestRoomLockerConcurrentDisjointLocks(t *testing.T) {
	locker := newRoomLocker()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := []uuid.UUID{uuid.New(), uuid.New()}
			unlock := locker.lockAll(ids)
			unlock()
		}()
	}
	wg.Wait()
}
