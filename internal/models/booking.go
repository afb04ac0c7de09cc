package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the booking lifecycle state.
type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "pending_payment"
	BookingStatusConfirmed      BookingStatus = "confirmed"
	BookingStatusCheckedIn      BookingStatus = "checked_in"
	BookingStatusCheckedOut     BookingStatus = "checked_out"
	BookingStatusCancelled      BookingStatus = "cancelled"
	BookingStatusNoShow         BookingStatus = "no_show"
)

// PaymentStatus tracks money collected against the booking total,
// independently of the lifecycle state.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPartial  PaymentStatus = "partial"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

// BookingSource records which channel produced the booking.
type BookingSource string

const (
	BookingSourceDirect BookingSource = "direct"
	BookingSourceWalkIn BookingSource = "walk_in"
	BookingSourcePhone  BookingSource = "phone"
	BookingSourceOTA    BookingSource = "ota"
)

// Booking is the aggregate root of a stay. Room and service line items
// hang off it; TotalAmount is fixed at creation time.
type Booking struct {
	ID               uuid.UUID     `json:"id" db:"id"`
	BookingReference string        `json:"booking_reference" db:"booking_reference"`
	UserID           uuid.UUID     `json:"user_id" db:"user_id"`
	CheckIn          time.Time     `json:"check_in" db:"check_in"`
	CheckOut         time.Time     `json:"check_out" db:"check_out"`
	GuestsCount      int           `json:"guests_count" db:"guests_count"`
	Status           BookingStatus `json:"status" db:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status" db:"payment_status"`
	TotalAmount      float64       `json:"total_amount" db:"total_amount"`
	PaidAmount       float64       `json:"paid_amount" db:"paid_amount"`
	Source           BookingSource `json:"source" db:"source"`
	SpecialRequests  *string       `json:"special_requests,omitempty" db:"special_requests"`
	PaymentUID       *string       `json:"payment_uid,omitempty" db:"payment_uid"`
	PaymentReference *string       `json:"payment_reference,omitempty" db:"payment_reference"`
	ConfirmedAt      *time.Time    `json:"confirmed_at,omitempty" db:"confirmed_at"`
	CheckedInAt      *time.Time    `json:"checked_in_at,omitempty" db:"checked_in_at"`
	CheckedOutAt     *time.Time    `json:"checked_out_at,omitempty" db:"checked_out_at"`
	CancelledAt      *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`

	// Loaded separately, not DB columns
	Rooms    []BookingRoom    `json:"rooms,omitempty" db:"-"`
	Services []BookingService `json:"services,omitempty" db:"-"`
}

// Nights returns the number of nights between check-in and check-out.
func (b *Booking) Nights() int {
	return int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
}

// BookingRoom is one room (or bed) line on a booking. A nil BedID means
// the whole room is taken, which shadows every bed in it.
type BookingRoom struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	BookingID     uuid.UUID  `json:"booking_id" db:"booking_id"`
	RoomID        uuid.UUID  `json:"room_id" db:"room_id"`
	BedID         *uuid.UUID `json:"bed_id,omitempty" db:"bed_id"`
	PricePerNight float64    `json:"price_per_night" db:"price_per_night"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// BookingService is one add-on service line (surf lesson, yoga class,
// airport pickup). PriceAtBooking snapshots the catalog price.
type BookingService struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	BookingID      uuid.UUID  `json:"booking_id" db:"booking_id"`
	ServiceID      uuid.UUID  `json:"service_id" db:"service_id"`
	Quantity       int        `json:"quantity" db:"quantity"`
	PriceAtBooking float64    `json:"price_at_booking" db:"price_at_booking"`
	ScheduledDate  *time.Time `json:"scheduled_date,omitempty" db:"scheduled_date"`
	Notes          *string    `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// Service is a catalog entry for bookable add-ons.
type Service struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	Price       float64   `json:"price" db:"price"`
	Category    string    `json:"category" db:"category"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CheckInData is the placeholder row created with each booking and filled
// in at the desk during check-in.
type CheckInData struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	BookingID     uuid.UUID  `json:"booking_id" db:"booking_id"`
	PhotoURL      *string    `json:"photo_url,omitempty" db:"photo_url"`
	SignatureURL  *string    `json:"signature_url,omitempty" db:"signature_url"`
	TermsAccepted bool       `json:"terms_accepted" db:"terms_accepted"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// GuestContact identifies the booking guest. Existing accounts are matched
// by email; unknown emails get a lightweight guest account.
type GuestContact struct {
	Email       string  `json:"email" binding:"required,email"`
	FullName    string  `json:"full_name" binding:"required"`
	Phone       *string `json:"phone,omitempty"`
	Nationality *string `json:"nationality,omitempty"`
}

// BookingRoomInput is one requested room/bed line on a create request.
type BookingRoomInput struct {
	RoomID uuid.UUID  `json:"room_id" binding:"required"`
	BedID  *uuid.UUID `json:"bed_id,omitempty"`
}

// BookingServiceInput is one requested add-on line on a create request.
type BookingServiceInput struct {
	ServiceID     uuid.UUID `json:"service_id" binding:"required"`
	Quantity      int       `json:"quantity" binding:"required,min=1"`
	ScheduledDate *string   `json:"scheduled_date,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
}

// CreateBookingRequest is the public checkout payload.
type CreateBookingRequest struct {
	CheckIn         string                `json:"check_in" binding:"required"`
	CheckOut        string                `json:"check_out" binding:"required"`
	GuestsCount     int                   `json:"guests_count" binding:"required,min=1"`
	Rooms           []BookingRoomInput    `json:"rooms" binding:"required,min=1"`
	Services        []BookingServiceInput `json:"services,omitempty"`
	SpecialRequests *string               `json:"special_requests,omitempty"`
	Source          BookingSource         `json:"source,omitempty"`
	Guest           GuestContact          `json:"guest" binding:"required"`
}

// Dates parses and validates the stay range.
func (r *CreateBookingRequest) Dates() (checkIn, checkOut time.Time, err error) {
	checkIn, err = ParseDate(r.CheckIn)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	checkOut, err = ParseDate(r.CheckOut)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !checkOut.After(checkIn) {
		return time.Time{}, time.Time{}, fmt.Errorf("check_out must be after check_in")
	}
	return checkIn, checkOut, nil
}

// PriceBreakdown is the itemized quote for one room over a stay.
type PriceBreakdown struct {
	Nights            int     `json:"nights"`
	BasePricePerNight float64 `json:"base_price_per_night"`
	SeasonAdjustment  float64 `json:"season_adjustment"`
	SeasonAdjusted    float64 `json:"season_adjusted_subtotal"`
	DiscountRate      float64 `json:"discount_rate"`
	LeadTimeDiscount  float64 `json:"lead_time_discount"`
	Subtotal          float64 `json:"subtotal"`
	Taxes             float64 `json:"taxes"`
	Total             float64 `json:"total"`
}

// CreateBookingResponse is returned to the guest after a successful
// checkout. Payment happens in a follow-up call.
type CreateBookingResponse struct {
	BookingID        uuid.UUID     `json:"booking_id"`
	BookingReference string        `json:"booking_reference"`
	Status           BookingStatus `json:"status"`
	TotalAmount      float64       `json:"total_amount"`
	CheckIn          string        `json:"check_in"`
	CheckOut         string        `json:"check_out"`
}
