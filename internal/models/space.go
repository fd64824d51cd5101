package models

import (
	"time"

	"github.com/uptrace/bun"
)

type SpaceType string

const (
	SpaceDesk        SpaceType = "desk"
	SpaceBooth       SpaceType = "booth"
	SpaceMeetingRoom SpaceType = "meeting_room"
)

// RateCard holds the per-tier prices of a space. All amounts are cents.
type RateCard struct {
	HourlyCents  int64 `bun:"hourly_cents" json:"hourly_cents"`
	HalfDayCents int64 `bun:"half_day_cents" json:"half_day_cents"`
	DailyCents   int64 `bun:"daily_cents" json:"daily_cents"`
	WeeklyCents  int64 `bun:"weekly_cents" json:"weekly_cents"`
}

// HasPositiveRate reports whether at least one tier is actually priced.
// A space with an all-zero rate card is not bookable.
func (rc RateCard) HasPositiveRate() bool {
	return rc.HourlyCents > 0 || rc.HalfDayCents > 0 || rc.DailyCents > 0 || rc.WeeklyCents > 0
}

type Space struct {
	bun.BaseModel `bun:"table:spaces"`

	SpaceID   string    `bun:"space_id,pk" json:"space_id"`
	Name      string    `bun:"name" json:"name"`
	Type      SpaceType `bun:"type" json:"type"`
	Capacity  int       `bun:"capacity" json:"capacity"`
	RateCard  RateCard  `bun:"embed:" json:"rate_card"`
	Available bool      `bun:"available" json:"available"`
	// Disabled marks a space soft-deleted. Spaces referenced by reservations
	// are never hard-deleted.
	Disabled  bool      `bun:"disabled" json:"-"`
	CreatedAt time.Time `bun:"created_at" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at" json:"updated_at"`
}
