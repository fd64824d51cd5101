package pricing

import (
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/models"
)

var (
	// ErrInvalidDurationForType is returned when the requested window does not
	// fit the flat-rate period of the chosen booking type.
	ErrInvalidDurationForType = errors.New("duration not valid for booking type")
	// ErrRateNotOffered is returned when the space does not price the chosen
	// booking type.
	ErrRateNotOffered = errors.New("space does not offer a rate for this booking type")
)

const (
	halfDayPeriod = 12 * time.Hour
	dayPeriod     = 24 * time.Hour
	weekPeriod    = 7 * 24 * time.Hour
)

// ComputeBase derives the base price in cents for a reservation window.
// Hourly bookings bill whole hours, rounded up. Flat-rate bookings
// (half_day/daily/weekly) bill the flat rate and must fit inside the
// corresponding period. Inverted or zero-length ranges are checked upstream
// by the booking engine.
func ComputeBase(rc models.RateCard, bt models.BookingType, start, end time.Time) (int64, error) {
	d := end.Sub(start)

	switch bt {
	case models.BookingHourly:
		if rc.HourlyCents <= 0 {
			return 0, ErrRateNotOffered
		}
		hours := int64(d / time.Hour)
		if d%time.Hour != 0 {
			hours++
		}
		return hours * rc.HourlyCents, nil

	case models.BookingHalfDay:
		return flatRate(rc.HalfDayCents, d, halfDayPeriod)

	case models.BookingDaily:
		return flatRate(rc.DailyCents, d, dayPeriod)

	case models.BookingWeekly:
		return flatRate(rc.WeeklyCents, d, weekPeriod)

	default:
		return 0, fmt.Errorf("unknown booking type %q: %w", bt, ErrInvalidDurationForType)
	}
}

func flatRate(cents int64, d, period time.Duration) (int64, error) {
	if cents <= 0 {
		return 0, ErrRateNotOffered
	}
	if d > period {
		return 0, ErrInvalidDurationForType
	}
	return cents, nil
}
