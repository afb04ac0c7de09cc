package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format for calendar dates (check-in/check-out,
// block ranges). All date fields are stored normalized to UTC midnight.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.Time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return t.UTC(), nil
}

// SellUnit determines whether a room's inventory is sold per bed, as a
// whole room, or as a group block.
type SellUnit string

const (
	SellUnitBed   SellUnit = "bed"
	SellUnitRoom  SellUnit = "room"
	SellUnitGroup SellUnit = "group"
)

// RoomType classifies a room for the booking UI and reporting.
type RoomType string

const (
	RoomTypeDorm    RoomType = "dorm"
	RoomTypePrivate RoomType = "private"
	RoomTypeFamily  RoomType = "family"
	RoomTypeFemale  RoomType = "female"
)

// Room represents a bookable room. Rooms referenced by bookings are never
// deleted, only deactivated.
type Room struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Type      RoomType  `json:"type" db:"type"`
	Capacity  int       `json:"capacity" db:"capacity"`
	SellUnit  SellUnit  `json:"sell_unit" db:"sell_unit"`
	BasePrice float64   `json:"base_price" db:"base_price"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Loaded separately, not a DB column
	Beds []Bed `json:"beds,omitempty" db:"-"`
}

// Bed belongs to exactly one room for its lifetime. Only meaningful when
// the owning room sells per bed.
type Bed struct {
	ID        uuid.UUID `json:"id" db:"id"`
	RoomID    uuid.UUID `json:"room_id" db:"room_id"`
	BedNumber int       `json:"bed_number" db:"bed_number"`
	BedType   string    `json:"bed_type" db:"bed_type"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Season buckets the calendar for pricing.
type Season string

const (
	SeasonHigh Season = "high"
	SeasonMid  Season = "mid"
	SeasonLow  Season = "low"
)

// SeasonPricing holds the rate card for one (room, season) pair. The
// admin edit path upserts, so at most one active row exists per pair.
type SeasonPricing struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	RoomID          uuid.UUID  `json:"room_id" db:"room_id"`
	Season          Season     `json:"season" db:"season"`
	BasePrice       float64    `json:"base_price" db:"base_price"`
	RackRate        float64    `json:"rack_rate" db:"rack_rate"`
	CompetitiveRate float64    `json:"competitive_rate" db:"competitive_rate"`
	LastMinuteRate  float64    `json:"last_minute_rate" db:"last_minute_rate"`
	ValidFrom       *time.Time `json:"valid_from,omitempty" db:"valid_from"`
	ValidTo         *time.Time `json:"valid_to,omitempty" db:"valid_to"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// SeasonDate is an admin-configurable calendar range for a season. When a
// date falls inside an active range the configured season wins; otherwise
// the built-in calendar rule applies.
type SeasonDate struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Season    Season    `json:"season" db:"season"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BlockReason records why inventory was taken off sale.
type BlockReason string

const (
	BlockReasonMaintenance BlockReason = "maintenance"
	BlockReasonOTASync     BlockReason = "ota_sync"
	BlockReasonPrivate     BlockReason = "private"
	BlockReasonOther       BlockReason = "other"
)

// RoomBlock marks a room (or a single bed) administratively unavailable
// for an inclusive date range. A nil BedID blocks every bed in the room.
type RoomBlock struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	RoomID    uuid.UUID   `json:"room_id" db:"room_id"`
	BedID     *uuid.UUID  `json:"bed_id,omitempty" db:"bed_id"`
	StartDate time.Time   `json:"start_date" db:"start_date"`
	EndDate   time.Time   `json:"end_date" db:"end_date"`
	Reason    BlockReason `json:"reason" db:"reason"`
	Notes     *string     `json:"notes,omitempty" db:"notes"`
	CreatedBy *uuid.UUID  `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// Validate checks the block's date invariant.
func (b *RoomBlock) Validate() error {
	if b.EndDate.Before(b.StartDate) {
		return fmt.Errorf("block end_date must not be before start_date")
	}
	switch b.Reason {
	case BlockReasonMaintenance, BlockReasonOTASync, BlockReasonPrivate, BlockReasonOther:
	default:
		return fmt.Errorf("invalid block reason: %s", b.Reason)
	}
	return nil
}

// RoomAvailability is the per-room result of an availability query.
type RoomAvailability struct {
	Room          Room  `json:"room"`
	AvailableBeds []Bed `json:"available_beds"`
	IsFullyBooked bool  `json:"is_fully_booked"`
	IsBlocked     bool  `json:"is_blocked"`
}

// DayOccupancy is one day's slice of the monthly occupancy aggregate.
type DayOccupancy struct {
	Booked int `json:"booked"`
	Total  int `json:"total"`
}
