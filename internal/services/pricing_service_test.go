package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/maikekai/surf-house-backend/internal/database"
	"github.com/maikekai/surf-house-backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSeasonFromCalendar(t *testing.T) {
	svc := NewPricingService(nil, nil, newTestLogger())

	tests := []struct {
		name string
		day  time.Time
		want models.Season
	}{
		{"december 26 is still mid", date(2025, time.December, 26), models.SeasonMid},
		{"december 27 starts high", date(2025, time.December, 27), models.SeasonHigh},
		{"mid january is high", date(2026, time.January, 15), models.SeasonHigh},
		{"april 30 is the last high day", date(2026, time.April, 30), models.SeasonHigh},
		{"may 1 drops to mid", date(2026, time.May, 1), models.SeasonMid},
		{"september 1 starts low", date(2026, time.September, 1), models.SeasonLow},
		{"october 31 is still low", date(2026, time.October, 31), models.SeasonLow},
		{"november 1 returns to mid", date(2026, time.November, 1), models.SeasonMid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.Season(tt.day, nil))
		})
	}
}

func TestSeasonOverridesWinOverCalendar(t *testing.T) {
	svc := NewPricingService(nil, nil, newTestLogger())

	overrides := []models.SeasonDate{
		{
			Season:    models.SeasonHigh,
			StartDate: date(2026, time.July, 1),
			EndDate:   date(2026, time.July, 31),
		},
	}

	// July is mid by the calendar, high by the configured range.
	assert.Equal(t, models.SeasonHigh, svc.Season(date(2026, time.July, 15), overrides))
	// Range boundaries are inclusive on both ends.
	assert.Equal(t, models.SeasonHigh, svc.Season(date(2026, time.July, 1), overrides))
	assert.Equal(t, models.SeasonHigh, svc.Season(date(2026, time.July, 31), overrides))
	// Outside the range the calendar rule still applies.
	assert.Equal(t, models.SeasonMid, svc.Season(date(2026, time.August, 1), overrides))
}

func TestLeadTimeDiscountRate(t *testing.T) {
	checkIn := date(2026, time.June, 1)

	tests := []struct {
		name string
		now  time.Time
		want float64
	}{
		{"90 days out pays full price", checkIn.AddDate(0, 0, -90), 0},
		{"exactly 60 days out pays full price", checkIn.AddDate(0, 0, -60), 0},
		{"59 days out gets 10%", checkIn.AddDate(0, 0, -59), 0.10},
		{"10 days out gets 10%", checkIn.AddDate(0, 0, -10), 0.10},
		{"9 days out gets 20%", checkIn.AddDate(0, 0, -9), 0.20},
		{"same day gets 20%", checkIn, 0.20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LeadTimeDiscountRate(checkIn, tt.now))
		})
	}
}

func TestQuoteHighSeasonNoDiscount(t *testing.T) {
	svc := NewPricingService(nil, nil, newTestLogger())

	checkIn := date(2026, time.January, 10)
	checkOut := date(2026, time.January, 15)
	now := checkIn.AddDate(0, 0, -90)

	breakdown := svc.Quote(100, checkIn, checkOut, now, nil)
	require.NotNil(t, breakdown)

	assert.Equal(t, 5, breakdown.Nights)
	assert.Equal(t, 100.0, breakdown.BasePricePerNight)
	assert.Equal(t, 150.0, breakdown.SeasonAdjustment)
	assert.Equal(t, 650.0, breakdown.SeasonAdjusted)
	assert.Equal(t, 0.0, breakdown.DiscountRate)
	assert.Equal(t, 0.0, breakdown.LeadTimeDiscount)
	assert.Equal(t, 650.0, breakdown.Subtotal)
	assert.Equal(t, 84.5, breakdown.Taxes)
	assert.Equal(t, 734.5, breakdown.Total)
}

func TestQuoteMixedSeasonsPerNight(t *testing.T) {
	svc := NewPricingService(nil, nil, newTestLogger())

	// Aug 30 and 31 are mid, Sep 1 is low: 100 + 100 + 80.
	checkIn := date(2026, time.August, 30)
	checkOut := date(2026, time.September, 2)
	now := checkIn.AddDate(0, 0, -90)

	breakdown := svc.Quote(100, checkIn, checkOut, now, nil)

	assert.Equal(t, 3, breakdown.Nights)
	assert.Equal(t, -20.0, breakdown.SeasonAdjustment)
	assert.Equal(t, 280.0, breakdown.SeasonAdjusted)
	assert.Equal(t, 280.0, breakdown.Subtotal)
	assert.Equal(t, 36.4, breakdown.Taxes)
	assert.Equal(t, 316.4, breakdown.Total)
}

func TestQuoteAppliesLeadTimeDiscount(t *testing.T) {
	svc := NewPricingService(nil, nil, newTestLogger())

	checkIn := date(2026, time.January, 10)
	checkOut := date(2026, time.January, 12)

	// 5 days before check-in lands in the last-minute tier.
	breakdown := svc.Quote(100, checkIn, checkOut, checkIn.AddDate(0, 0, -5), nil)

	assert.Equal(t, 260.0, breakdown.SeasonAdjusted)
	assert.Equal(t, 0.20, breakdown.DiscountRate)
	assert.Equal(t, 52.0, breakdown.LeadTimeDiscount)
	assert.Equal(t, 208.0, breakdown.Subtotal)
	assert.Equal(t, 27.04, breakdown.Taxes)
	assert.Equal(t, 235.04, breakdown.Total)
}

func TestQuoteRoomUsesSeasonCardTierRates(t *testing.T) {
	roomID := uuid.New()
	now := time.Now()

	// A mid-season stay priced from a rate card: June 10-12, card with
	// every tier filled in.
	checkIn := date(2026, time.June, 10)
	checkOut := date(2026, time.June, 12)

	expectCard := func(mock sqlmock.Sqlmock) {
		mock.ExpectQuery(`(?s)SELECT id, name, type, capacity.+FROM rooms.+WHERE id = \$1`).
			WithArgs(roomID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type", "capacity", "sell_unit", "base_price", "is_active", "created_at", "updated_at"}).
				AddRow(roomID, "Casa Familia", "family", 4, "room", 100.0, true, now, now))
		mock.ExpectQuery(`(?s)SELECT id, season, start_date.+FROM season_dates`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "season", "start_date", "end_date", "is_active", "created_at"}))
		mock.ExpectQuery(`(?s)SELECT.+FROM season_pricing.+WHERE room_id = \$1 AND season = \$2`).
			WithArgs(roomID, models.SeasonMid, checkIn).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "room_id", "season", "base_price", "rack_rate", "competitive_rate", "last_minute_rate",
				"valid_from", "valid_to", "created_at", "updated_at",
			}).AddRow(uuid.New(), roomID, "mid", 90.0, 110.0, 99.0, 88.0, nil, nil, now, now))
	}

	t.Run("rack rate at 90 days out", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewPricingService(database.NewPricingRepository(db), database.NewRoomRepository(db), newTestLogger())
		expectCard(mock)

		breakdown, err := svc.QuoteRoom(context.Background(), roomID, checkIn, checkOut, checkIn.AddDate(0, 0, -90))
		require.NoError(t, err)
		assert.Equal(t, 110.0, breakdown.BasePricePerNight)
		assert.Equal(t, 220.0, breakdown.Subtotal)
		assert.Equal(t, 248.6, breakdown.Total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("last-minute rate carries its own discount", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewPricingService(database.NewPricingRepository(db), database.NewRoomRepository(db), newTestLogger())
		expectCard(mock)

		breakdown, err := svc.QuoteRoom(context.Background(), roomID, checkIn, checkOut, checkIn.AddDate(0, 0, -2))
		require.NoError(t, err)
		assert.Equal(t, 88.0, breakdown.BasePricePerNight)
		// The tiered nightly rate is not discounted a second time.
		assert.Equal(t, 0.0, breakdown.DiscountRate)
		assert.Equal(t, 176.0, breakdown.Subtotal)
		assert.Equal(t, 198.88, breakdown.Total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQuoteIsDeterministic(t *testing.T) {
	svc := NewPricingService(nil, nil, newTestLogger())

	checkIn := date(2026, time.March, 3)
	checkOut := date(2026, time.March, 9)
	now := date(2026, time.January, 20)

	first := svc.Quote(73.99, checkIn, checkOut, now, nil)
	for i := 0; i < 50; i++ {
		again := svc.Quote(73.99, checkIn, checkOut, now, nil)
		assert.Equal(t, first, again)
	}
}
