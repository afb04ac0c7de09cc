package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maikekai/surf-house-backend/internal/database"
	"github.com/maikekai/surf-house-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// AvailabilityService answers which rooms and beds are free for a stay.
type AvailabilityService struct {
	roomRepo    *database.RoomRepository
	bookingRepo *database.BookingRepository
	blockRepo   *database.BlockRepository
	logger      *logrus.Logger
}

// NewAvailabilityService creates a new AvailabilityService.
func NewAvailabilityService(
	roomRepo *database.RoomRepository,
	bookingRepo *database.BookingRepository,
	blockRepo *database.BlockRepository,
	logger *logrus.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		roomRepo:    roomRepo,
		bookingRepo: bookingRepo,
		blockRepo:   blockRepo,
		logger:      logger,
	}
}

// GetAvailability returns the availability of every active room for the
// half-open stay [checkIn, checkOut). Bookings collide on nights, so a
// checkout day never blocks a same-day check-in; admin blocks are
// inclusive date ranges.
func (s *AvailabilityService) GetAvailability(ctx context.Context, checkIn, checkOut time.Time) ([]models.RoomAvailability, error) {
	if !checkOut.After(checkIn) {
		return nil, NewValidationError("check_out", "must be after check_in")
	}

	rooms, err := s.roomRepo.ListActive(ctx)
	if err != nil {
		return nil, NewDataAccessError("list rooms", err)
	}

	roomIDs := make([]uuid.UUID, len(rooms))
	for i, room := range rooms {
		roomIDs[i] = room.ID
	}

	beds, err := s.roomRepo.ListBedsForRooms(ctx, roomIDs)
	if err != nil {
		return nil, NewDataAccessError("list beds", err)
	}
	bedsByRoom := make(map[uuid.UUID][]models.Bed)
	for _, bed := range beds {
		bedsByRoom[bed.RoomID] = append(bedsByRoom[bed.RoomID], bed)
	}

	occupied, err := s.bookingRepo.ListOccupiedLines(ctx, checkIn, checkOut)
	if err != nil {
		return nil, NewDataAccessError("list occupied lines", err)
	}

	// Blocks are inclusive date ranges: a block starting on the checkout
	// date still makes the room unavailable for the stay.
	blocks, err := s.blockRepo.ListOverlapping(ctx, checkIn, checkOut)
	if err != nil {
		return nil, NewDataAccessError("list blocks", err)
	}

	occupancy := buildOccupancyIndex(occupied, blocks)

	results := make([]models.RoomAvailability, 0, len(rooms))
	for _, room := range rooms {
		results = append(results, s.roomAvailability(room, bedsByRoom[room.ID], occupancy))
	}
	return results, nil
}

// occupancyIndex aggregates bookings and blocks per room for one query
// window. A whole-room entry shadows every bed in that room.
type occupancyIndex struct {
	wholeRoomTaken   map[uuid.UUID]bool
	wholeRoomBlocked map[uuid.UUID]bool
	takenBeds        map[uuid.UUID]bool
	blockedBeds      map[uuid.UUID]bool
}

func buildOccupancyIndex(occupied []database.OccupiedLine, blocks []models.RoomBlock) occupancyIndex {
	idx := occupancyIndex{
		wholeRoomTaken:   make(map[uuid.UUID]bool),
		wholeRoomBlocked: make(map[uuid.UUID]bool),
		takenBeds:        make(map[uuid.UUID]bool),
		blockedBeds:      make(map[uuid.UUID]bool),
	}
	for _, line := range occupied {
		if line.BedID == nil {
			idx.wholeRoomTaken[line.RoomID] = true
		} else {
			idx.takenBeds[*line.BedID] = true
		}
	}
	for _, block := range blocks {
		if block.BedID == nil {
			idx.wholeRoomBlocked[block.RoomID] = true
		} else {
			idx.blockedBeds[*block.BedID] = true
		}
	}
	return idx
}

func (s *AvailabilityService) roomAvailability(room models.Room, beds []models.Bed, idx occupancyIndex) models.RoomAvailability {
	result := models.RoomAvailability{
		Room:          room,
		AvailableBeds: []models.Bed{},
	}

	// A blocked room has no sellable beds; IsBlocked marks the cause.
	if idx.wholeRoomBlocked[room.ID] {
		result.IsBlocked = true
		result.IsFullyBooked = true
		return result
	}
	if idx.wholeRoomTaken[room.ID] {
		result.IsFullyBooked = true
		return result
	}

	if room.SellUnit != models.SellUnitBed {
		// Whole-unit rooms are free only when nothing touches them.
		for _, bed := range beds {
			if idx.takenBeds[bed.ID] {
				result.IsFullyBooked = true
				return result
			}
			if idx.blockedBeds[bed.ID] {
				result.IsBlocked = true
				result.IsFullyBooked = true
				return result
			}
		}
		return result
	}

	for _, bed := range beds {
		if idx.takenBeds[bed.ID] || idx.blockedBeds[bed.ID] {
			continue
		}
		result.AvailableBeds = append(result.AvailableBeds, bed)
	}
	result.IsFullyBooked = len(result.AvailableBeds) == 0
	return result
}

// IsLineAvailable checks one requested room/bed line against the current
// state. Used as the checkout pre-check; the booking transaction re-runs
// the same predicate against committed rows.
func (s *AvailabilityService) IsLineAvailable(ctx context.Context, roomID uuid.UUID, bedID *uuid.UUID, checkIn, checkOut time.Time) (bool, error) {
	occupied, err := s.bookingRepo.ListOccupiedLines(ctx, checkIn, checkOut)
	if err != nil {
		return false, NewDataAccessError("list occupied lines", err)
	}
	for _, line := range occupied {
		if line.RoomID != roomID {
			continue
		}
		// Whole-room on either side collides; bed lines collide per bed.
		if line.BedID == nil || bedID == nil || *line.BedID == *bedID {
			return false, nil
		}
	}

	blocks, err := s.blockRepo.ListOverlapping(ctx, checkIn, checkOut)
	if err != nil {
		return false, NewDataAccessError("list blocks", err)
	}
	for _, block := range blocks {
		if block.RoomID != roomID {
			continue
		}
		if block.BedID == nil || bedID == nil || *block.BedID == *bedID {
			return false, nil
		}
	}
	return true, nil
}

// GetMonthlyOccupancy counts, per day of the month, the booking line
// items holding that night, against the total active bed count. A
// dashboard aggregate only; no availability decisions derive from it.
func (s *AvailabilityService) GetMonthlyOccupancy(ctx context.Context, year int, month time.Month) (map[string]models.DayOccupancy, error) {
	if month < time.January || month > time.December {
		return nil, NewValidationError("month", fmt.Sprintf("invalid month %d", month))
	}

	firstDay := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	firstOfNext := firstDay.AddDate(0, 1, 0)

	rooms, err := s.roomRepo.ListActive(ctx)
	if err != nil {
		return nil, NewDataAccessError("list rooms", err)
	}
	roomIDs := make([]uuid.UUID, len(rooms))
	for i, room := range rooms {
		roomIDs[i] = room.ID
	}
	beds, err := s.roomRepo.ListBedsForRooms(ctx, roomIDs)
	if err != nil {
		return nil, NewDataAccessError("list beds", err)
	}
	total := len(beds)

	occupied, err := s.bookingRepo.ListOccupiedLines(ctx, firstDay, firstOfNext)
	if err != nil {
		return nil, NewDataAccessError("list occupied lines", err)
	}

	result := make(map[string]models.DayOccupancy)
	for day := firstDay; day.Before(firstOfNext); day = day.AddDate(0, 0, 1) {
		booked := 0
		for _, line := range occupied {
			// A stay occupies the night of `day` when check_in <= day < check_out.
			if line.CheckIn.After(day) || !line.CheckOut.After(day) {
				continue
			}
			booked++
		}
		result[day.Format(models.DateLayout)] = models.DayOccupancy{Booked: booked, Total: total}
	}
	return result, nil
}
