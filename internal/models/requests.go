package models

import "time"

type CreateReservationRequest struct {
	SpaceID      string      `json:"space_id"`
	Start        time.Time   `json:"start"`
	End          time.Time   `json:"end"`
	BookingType  BookingType `json:"booking_type"`
	PromoCode    string      `json:"promo_code,omitempty"`
	Participants int         `json:"participants,omitempty"`
	Notes        string      `json:"notes,omitempty"`
}

type CancelReservationRequest struct {
	Reason string `json:"reason,omitempty"`
}

type AvailabilityResponse struct {
	SpaceID string     `json:"space_id"`
	From    time.Time  `json:"from"`
	To      time.Time  `json:"to"`
	Busy    []Interval `json:"busy"`
}
