package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/maikekai/surf-house-backend/internal/database"
	"github.com/maikekai/surf-house-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestRoomAvailabilityWholeRoomShadowsBeds(t *testing.T) {
	svc := &AvailabilityService{logger: newTestLogger()}

	roomID := uuid.New()
	bedA := models.Bed{ID: uuid.New(), RoomID: roomID, BedNumber: 1}
	bedB := models.Bed{ID: uuid.New(), RoomID: roomID, BedNumber: 2}
	room := models.Room{ID: roomID, SellUnit: models.SellUnitBed, Capacity: 2}

	// A whole-room booking takes every bed even when no bed line exists.
	idx := buildOccupancyIndex([]database.OccupiedLine{
		{RoomID: roomID, BedID: nil},
	}, nil)

	result := svc.roomAvailability(room, []models.Bed{bedA, bedB}, idx)
	assert.True(t, result.IsFullyBooked)
	assert.Empty(t, result.AvailableBeds)
}

func TestRoomAvailabilityPerBed(t *testing.T) {
	svc := &AvailabilityService{logger: newTestLogger()}

	roomID := uuid.New()
	bedA := models.Bed{ID: uuid.New(), RoomID: roomID, BedNumber: 1}
	bedB := models.Bed{ID: uuid.New(), RoomID: roomID, BedNumber: 2}
	bedC := models.Bed{ID: uuid.New(), RoomID: roomID, BedNumber: 3}
	room := models.Room{ID: roomID, SellUnit: models.SellUnitBed, Capacity: 3}

	idx := buildOccupancyIndex(
		[]database.OccupiedLine{{RoomID: roomID, BedID: &bedA.ID}},
		[]models.RoomBlock{{RoomID: roomID, BedID: &bedB.ID, Reason: models.BlockReasonMaintenance}},
	)

	result := svc.roomAvailability(room, []models.Bed{bedA, bedB, bedC}, idx)
	assert.False(t, result.IsFullyBooked)
	require.Len(t, result.AvailableBeds, 1)
	assert.Equal(t, bedC.ID, result.AvailableBeds[0].ID)
}

func TestRoomAvailabilityWholeUnitRoomWithBedConflict(t *testing.T) {
	svc := &AvailabilityService{logger: newTestLogger()}

	roomID := uuid.New()
	bed := models.Bed{ID: uuid.New(), RoomID: roomID, BedNumber: 1}
	room := models.Room{ID: roomID, SellUnit: models.SellUnitRoom, Capacity: 2}

	// Any occupied bed makes a whole-unit room unavailable.
	idx := buildOccupancyIndex([]database.OccupiedLine{
		{RoomID: roomID, BedID: &bed.ID},
	}, nil)

	result := svc.roomAvailability(room, []models.Bed{bed}, idx)
	assert.True(t, result.IsFullyBooked)
}

func TestRoomAvailabilityBlockedRoom(t *testing.T) {
	svc := &AvailabilityService{logger: newTestLogger()}

	roomID := uuid.New()
	room := models.Room{ID: roomID, SellUnit: models.SellUnitRoom, Capacity: 2}

	idx := buildOccupancyIndex(nil, []models.RoomBlock{
		{RoomID: roomID, Reason: models.BlockReasonOTASync},
	})

	result := svc.roomAvailability(room, nil, idx)
	assert.True(t, result.IsBlocked)
	assert.True(t, result.IsFullyBooked)
	assert.Empty(t, result.AvailableBeds)
}

func TestIsLineAvailableBedPrecedence(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewAvailabilityService(
		database.NewRoomRepository(db),
		database.NewBookingRepository(db),
		database.NewBlockRepository(db),
		newTestLogger(),
	)

	roomID := uuid.New()
	otherBed := uuid.New()
	requestedBed := uuid.New()
	checkIn := date(2026, time.February, 1)
	checkOut := date(2026, time.February, 5)

	// A different bed in the same room does not collide with a bed request.
	mock.ExpectQuery(`(?s)SELECT br.room_id, br.bed_id.+FROM booking_rooms`).
		WithArgs(checkIn, checkOut).
		WillReturnRows(sqlmock.NewRows([]string{"room_id", "bed_id", "check_in", "check_out"}).
			AddRow(roomID, otherBed, checkIn, checkOut))
	mock.ExpectQuery(`(?s)SELECT.+FROM room_blocks`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "bed_id", "start_date", "end_date", "reason", "notes", "created_by", "created_at"}))

	available, err := svc.IsLineAvailable(context.Background(), roomID, &requestedBed, checkIn, checkOut)
	require.NoError(t, err)
	assert.True(t, available)

	// A whole-room line shadows every bed request in that room.
	mock.ExpectQuery(`(?s)SELECT br.room_id, br.bed_id.+FROM booking_rooms`).
		WithArgs(checkIn, checkOut).
		WillReturnRows(sqlmock.NewRows([]string{"room_id", "bed_id", "check_in", "check_out"}).
			AddRow(roomID, nil, checkIn, checkOut))

	available, err = svc.IsLineAvailable(context.Background(), roomID, &requestedBed, checkIn, checkOut)
	require.NoError(t, err)
	assert.False(t, available)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsLineAvailableBlockStartingOnCheckoutDate(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewAvailabilityService(
		database.NewRoomRepository(db),
		database.NewBookingRepository(db),
		database.NewBlockRepository(db),
		newTestLogger(),
	)

	roomID := uuid.New()
	checkIn := date(2026, time.February, 1)
	checkOut := date(2026, time.February, 5)
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT br.room_id, br.bed_id.+FROM booking_rooms`).
		WithArgs(checkIn, checkOut).
		WillReturnRows(sqlmock.NewRows([]string{"room_id", "bed_id", "check_in", "check_out"}))

	// Blocks use the inclusive overlap rule, so the query window runs
	// through the checkout date and a block starting exactly there still
	// makes the room unavailable.
	mock.ExpectQuery(`(?s)SELECT.+FROM room_blocks`).
		WithArgs(checkIn, checkOut).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "bed_id", "start_date", "end_date", "reason", "notes", "created_by", "created_at"}).
			AddRow(uuid.New(), roomID, nil, checkOut, checkOut.AddDate(0, 0, 3), "maintenance", nil, nil, now))

	available, err := svc.IsLineAvailable(context.Background(), roomID, nil, checkIn, checkOut)
	require.NoError(t, err)
	assert.False(t, available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMonthlyOccupancyHalfOpenNights(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewAvailabilityService(
		database.NewRoomRepository(db),
		database.NewBookingRepository(db),
		database.NewBlockRepository(db),
		newTestLogger(),
	)

	dormID := uuid.New()
	familyID := uuid.New()
	bedID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT id, name, type, capacity.+FROM rooms`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type", "capacity", "sell_unit", "base_price", "is_active", "created_at", "updated_at"}).
			AddRow(dormID, "Olas Dorm", "dorm", 6, "bed", 25.0, true, now, now).
			AddRow(familyID, "Casa Familia", "family", 4, "room", 120.0, true, now, now))

	// Ten active beds across the two rooms set the denominator.
	bedRows := sqlmock.NewRows([]string{"id", "room_id", "bed_number", "bed_type", "is_active", "created_at"})
	for i := 1; i <= 6; i++ {
		bedRows.AddRow(uuid.New(), dormID, i, "bunk", true, now)
	}
	for i := 1; i <= 4; i++ {
		bedRows.AddRow(uuid.New(), familyID, i, "single", true, now)
	}
	mock.ExpectQuery(`(?s)SELECT id, room_id, bed_number.+FROM beds`).
		WillReturnRows(bedRows)

	// One bed Jan 10-14, one whole family room Jan 12-13.
	mock.ExpectQuery(`(?s)SELECT br.room_id, br.bed_id.+FROM booking_rooms`).
		WillReturnRows(sqlmock.NewRows([]string{"room_id", "bed_id", "check_in", "check_out"}).
			AddRow(dormID, bedID, date(2026, time.January, 10), date(2026, time.January, 14)).
			AddRow(familyID, nil, date(2026, time.January, 12), date(2026, time.January, 13)))

	occupancy, err := svc.GetMonthlyOccupancy(context.Background(), 2026, time.January)
	require.NoError(t, err)
	require.Len(t, occupancy, 31)

	assert.Equal(t, models.DayOccupancy{Booked: 0, Total: 10}, occupancy["2026-01-09"])
	assert.Equal(t, models.DayOccupancy{Booked: 1, Total: 10}, occupancy["2026-01-10"])
	// Each line item counts once, whole-room or bed-level.
	assert.Equal(t, models.DayOccupancy{Booked: 2, Total: 10}, occupancy["2026-01-12"])
	assert.Equal(t, models.DayOccupancy{Booked: 1, Total: 10}, occupancy["2026-01-13"])
	// Checkout day holds no night.
	assert.Equal(t, models.DayOccupancy{Booked: 0, Total: 10}, occupancy["2026-01-14"])

	assert.NoError(t, mock.ExpectationsWereMet())
}
