package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusCompleted ReservationStatus = "completed"
)

type BookingType string

const (
	BookingHourly  BookingType = "hourly"
	BookingHalfDay BookingType = "half_day"
	BookingDaily   BookingType = "daily"
	BookingWeekly  BookingType = "weekly"
)

type Reservation struct {
	bun.BaseModel `bun:"table:reservations"`

	ReservationID string            `bun:"reservation_id,pk" json:"reservation_id"`
	UserID        string            `bun:"user_id" json:"user_id"`
	SpaceID       string            `bun:"space_id" json:"space_id"`
	StartTime     time.Time         `bun:"start_time" json:"start_time"`
	EndTime       time.Time         `bun:"end_time" json:"end_time"`
	Status        ReservationStatus `bun:"status" json:"status"`
	BookingType   BookingType       `bun:"booking_type" json:"booking_type"`
	BaseCents     int64             `bun:"base_cents" json:"base_cents"`
	DiscountCents int64             `bun:"discount_cents" json:"discount_cents"`
	PaidCents     int64             `bun:"paid_cents" json:"paid_cents"`
	PromoCodeID   *string           `bun:"promo_code_id" json:"promo_code_id,omitempty"`
	Participants  int               `bun:"participants" json:"participants"`
	Notes         string            `bun:"notes" json:"notes,omitempty"`
	CancelReason  *string           `bun:"cancel_reason" json:"cancel_reason,omitempty"`
	CreatedAt     time.Time         `bun:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `bun:"updated_at" json:"updated_at"`
}

// Interval is a busy [start, end) window on a space's calendar.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports half-open interval overlap with [start, end).
func (i Interval) Overlaps(start, end time.Time) bool {
	return i.Start.Before(end) && i.End.After(start)
}
