package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ms-booking/internal/models"
)

func TestLoadNormalizesPort(t *testing.T) {
	// A bare port number gets the colon prepended.
	t.Setenv("PORT", "9090")
	cfg := Load()
	assert.Equal(t, ":9090", cfg.Server.Port)

	// An already-valid listen address passes through untouched.
	t.Setenv("PORT", ":7070")
	cfg = Load()
	assert.Equal(t, ":7070", cfg.Server.Port)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("BOOKING_DEFAULT_STATUS", "")
	cfg := Load()

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, models.StatusConfirmed, cfg.Booking.DefaultStatus)
	assert.Equal(t, 15*time.Minute, cfg.Booking.SlotGranularity)
	assert.Equal(t, 2*time.Hour, cfg.Booking.CancelMinNotice)
	assert.False(t, cfg.Booking.RefundPromoUsageOnCancel)
}

func TestLoadDefaultStatusOverride(t *testing.T) {
	t.Setenv("BOOKING_DEFAULT_STATUS", "PENDING")
	cfg := Load()
	assert.Equal(t, models.StatusPending, cfg.Booking.DefaultStatus)

	t.Setenv("BOOKING_DEFAULT_STATUS", "nonsense")
	cfg = Load()
	assert.Equal(t, models.StatusConfirmed, cfg.Booking.DefaultStatus)
}
