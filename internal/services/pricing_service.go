package services

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/maikekai/surf-house-backend/internal/database"
	"github.com/maikekai/surf-house-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// Season multipliers and tax applied by the pricing engine.
const (
	HighSeasonMultiplier = 1.3
	MidSeasonMultiplier  = 1.0
	LowSeasonMultiplier  = 0.8

	TaxRate = 0.13
)

// Lead-time discount tiers, keyed by full days between booking time and
// check-in. Booking 60+ days out pays full price; the discount rewards
// shorter-notice direct bookings that OTAs would otherwise capture.
const (
	earlyBookingDays  = 60
	lastMinuteDays    = 10
	midLeadDiscount   = 0.10
	shortLeadDiscount = 0.20
)

// PricingService computes stay quotes. The same code path prices public
// quotes and checkout totals, so the two can never drift apart.
type PricingService struct {
	pricingRepo *database.PricingRepository
	roomRepo    *database.RoomRepository
	logger      *logrus.Logger
}

// NewPricingService creates a new PricingService.
func NewPricingService(pricingRepo *database.PricingRepository, roomRepo *database.RoomRepository, logger *logrus.Logger) *PricingService {
	return &PricingService{
		pricingRepo: pricingRepo,
		roomRepo:    roomRepo,
		logger:      logger,
	}
}

// Season returns the season bucket for a date. Configured calendar rows
// win over the built-in rule; the first covering row applies.
func (s *PricingService) Season(date time.Time, overrides []models.SeasonDate) models.Season {
	for _, sd := range overrides {
		if !date.Before(sd.StartDate) && !date.After(sd.EndDate) {
			return sd.Season
		}
	}
	return seasonFromCalendar(date)
}

// seasonFromCalendar applies the built-in season rule:
// high Dec 27 - Apr 30 (wrapping the year turn), low Sep 1 - Oct 31,
// mid otherwise.
func seasonFromCalendar(date time.Time) models.Season {
	month, day := date.Month(), date.Day()
	switch {
	case month == time.December && day >= 27:
		return models.SeasonHigh
	case month <= time.April:
		return models.SeasonHigh
	case month == time.September || month == time.October:
		return models.SeasonLow
	default:
		return models.SeasonMid
	}
}

// SeasonMultiplier returns the rate multiplier for a season.
func SeasonMultiplier(season models.Season) float64 {
	switch season {
	case models.SeasonHigh:
		return HighSeasonMultiplier
	case models.SeasonLow:
		return LowSeasonMultiplier
	default:
		return MidSeasonMultiplier
	}
}

// LeadTimeDiscountRate returns the discount fraction for the gap between
// booking time and check-in.
func LeadTimeDiscountRate(checkIn, now time.Time) float64 {
	days := int(checkIn.Sub(now).Hours() / 24)
	switch {
	case days >= earlyBookingDays:
		return 0
	case days >= lastMinuteDays:
		return midLeadDiscount
	default:
		return shortLeadDiscount
	}
}

// Quote prices a stay from a base nightly price. Every step rounds to
// two decimals so repeated quotes for the same inputs are identical:
//
//  1. season-adjusted subtotal, summing base x multiplier per night
//  2. lead-time discount rate from the booking gap
//  3. discount amount on the season-adjusted subtotal
//  4. subtotal after discount
//  5. taxes on the subtotal
//  6. grand total
func (s *PricingService) Quote(basePricePerNight float64, checkIn, checkOut, now time.Time, overrides []models.SeasonDate) *models.PriceBreakdown {
	return s.quote(basePricePerNight, LeadTimeDiscountRate(checkIn, now), checkIn, checkOut, overrides)
}

func (s *PricingService) quote(basePricePerNight, discountRate float64, checkIn, checkOut time.Time, overrides []models.SeasonDate) *models.PriceBreakdown {
	nights := int(checkOut.Sub(checkIn).Hours() / 24)

	var seasonAdjusted float64
	for night := 0; night < nights; night++ {
		date := checkIn.AddDate(0, 0, night)
		seasonAdjusted += basePricePerNight * SeasonMultiplier(s.Season(date, overrides))
	}
	seasonAdjusted = round2(seasonAdjusted)
	seasonAdjustment := round2(seasonAdjusted - basePricePerNight*float64(nights))

	discount := round2(seasonAdjusted * discountRate)
	subtotal := round2(seasonAdjusted - discount)
	taxes := round2(subtotal * TaxRate)
	total := round2(subtotal + taxes)

	return &models.PriceBreakdown{
		Nights:            nights,
		BasePricePerNight: basePricePerNight,
		SeasonAdjustment:  seasonAdjustment,
		SeasonAdjusted:    seasonAdjusted,
		DiscountRate:      discountRate,
		LeadTimeDiscount:  discount,
		Subtotal:          subtotal,
		Taxes:             taxes,
		Total:             total,
	}
}

// CalculatePrice loads the season calendar and quotes a stay.
func (s *PricingService) CalculatePrice(ctx context.Context, basePricePerNight float64, checkIn, checkOut, now time.Time) (*models.PriceBreakdown, error) {
	if !checkOut.After(checkIn) {
		return nil, NewValidationError("check_out", "must be after check_in")
	}

	overrides, err := s.pricingRepo.ListActiveSeasonDates(ctx)
	if err != nil {
		return nil, NewDataAccessError("load season calendar", err)
	}

	return s.Quote(basePricePerNight, checkIn, checkOut, now, overrides), nil
}

// QuoteRoom prices a stay for one room. The nightly base comes from the
// room's rate card for the check-in season when one covers the check-in
// date, otherwise from the room's default base price. A rate card's
// tier rate for the booking's lead-time bracket already carries the
// discount, so it is quoted at 0% instead of discounting twice.
func (s *PricingService) QuoteRoom(ctx context.Context, roomID uuid.UUID, checkIn, checkOut, now time.Time) (*models.PriceBreakdown, error) {
	if !checkOut.After(checkIn) {
		return nil, NewValidationError("check_out", "must be after check_in")
	}

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, NewNotFoundError("room", roomID.String())
	}

	overrides, err := s.pricingRepo.ListActiveSeasonDates(ctx)
	if err != nil {
		return nil, NewDataAccessError("load season calendar", err)
	}

	discountRate := LeadTimeDiscountRate(checkIn, now)

	checkInSeason := s.Season(checkIn, overrides)
	card, err := s.pricingRepo.GetSeasonPricing(ctx, roomID, checkInSeason, checkIn)
	if err != nil {
		return nil, NewDataAccessError("load season pricing", err)
	}

	basePrice := room.BasePrice
	if card != nil {
		if rate := tierRate(card, discountRate); rate > 0 {
			return s.quote(rate, 0, checkIn, checkOut, overrides), nil
		}
		if card.BasePrice > 0 {
			basePrice = card.BasePrice
		}
	}

	return s.quote(basePrice, discountRate, checkIn, checkOut, overrides), nil
}

// tierRate picks the rate card column matching a lead-time discount
// bracket: rack at 0%, competitive at 10%, last-minute at 20%.
func tierRate(card *models.SeasonPricing, discountRate float64) float64 {
	switch discountRate {
	case shortLeadDiscount:
		return card.LastMinuteRate
	case midLeadDiscount:
		return card.CompetitiveRate
	default:
		return card.RackRate
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
