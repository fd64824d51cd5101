package pricing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ms-booking/internal/models"
	"ms-booking/internal/pricing"
)

func fullRateCard() models.RateCard {
	return models.RateCard{
		HourlyCents:  1500,
		HalfDayCents: 7000,
		DailyCents:   12000,
		WeeklyCents:  50000,
	}
}

func TestComputeBaseHourly(t *testing.T) {
	rc := fullRateCard()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	// Exact whole hours.
	price, err := pricing.ComputeBase(rc, models.BookingHourly, start, start.Add(3*time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, int64(4500), price)

	// Partial hours round up.
	price, err = pricing.ComputeBase(rc, models.BookingHourly, start, start.Add(90*time.Minute))
	assert.NoError(t, err)
	assert.Equal(t, int64(3000), price)

	price, err = pricing.ComputeBase(rc, models.BookingHourly, start, start.Add(2*time.Hour+15*time.Minute))
	assert.NoError(t, err)
	assert.Equal(t, int64(4500), price)
}

func TestComputeBaseFlatRates(t *testing.T) {
	rc := fullRateCard()
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	// A 4-hour booking at the half-day rate still bills the full half day.
	price, err := pricing.ComputeBase(rc, models.BookingHalfDay, start, start.Add(4*time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, int64(7000), price)

	price, err = pricing.ComputeBase(rc, models.BookingDaily, start, start.Add(24*time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, int64(12000), price)

	price, err = pricing.ComputeBase(rc, models.BookingWeekly, start, start.Add(7*24*time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, int64(50000), price)
}

func TestComputeBaseDurationExceedsPeriod(t *testing.T) {
	rc := fullRateCard()
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	_, err := pricing.ComputeBase(rc, models.BookingHalfDay, start, start.Add(13*time.Hour))
	assert.ErrorIs(t, err, pricing.ErrInvalidDurationForType)

	_, err = pricing.ComputeBase(rc, models.BookingDaily, start, start.Add(25*time.Hour))
	assert.ErrorIs(t, err, pricing.ErrInvalidDurationForType)

	_, err = pricing.ComputeBase(rc, models.BookingWeekly, start, start.Add(8*24*time.Hour))
	assert.ErrorIs(t, err, pricing.ErrInvalidDurationForType)
}

func TestComputeBaseRateNotOffered(t *testing.T) {
	// A desk that only offers hourly and daily rates.
	rc := models.RateCard{HourlyCents: 1000, DailyCents: 8000}
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	_, err := pricing.ComputeBase(rc, models.BookingWeekly, start, start.Add(7*24*time.Hour))
	assert.ErrorIs(t, err, pricing.ErrRateNotOffered)

	_, err = pricing.ComputeBase(rc, models.BookingHalfDay, start, start.Add(6*time.Hour))
	assert.ErrorIs(t, err, pricing.ErrRateNotOffered)
}

func TestComputeBaseUnknownType(t *testing.T) {
	rc := fullRateCard()
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	_, err := pricing.ComputeBase(rc, models.BookingType("monthly"), start, start.Add(time.Hour))
	assert.ErrorIs(t, err, pricing.ErrInvalidDurationForType)
}
