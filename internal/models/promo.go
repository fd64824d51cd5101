package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed_amount"
)

// UsageKind is the kind of purchase a promo code is redeemed against.
type UsageKind string

const (
	UsageReservation UsageKind = "reservation"
	UsageService     UsageKind = "service"
)

type PromoCode struct {
	bun.BaseModel `bun:"table:promo_codes"`

	PromoCodeID string       `bun:"promo_code_id,pk" json:"promo_code_id"`
	Code        string       `bun:"code" json:"code"`
	Type        DiscountType `bun:"type" json:"type"`
	// Value is a percentage (1-100) for percentage codes and a cent amount
	// for fixed_amount codes.
	Value          int64     `bun:"value" json:"value"`
	StartsAt       time.Time `bun:"starts_at" json:"starts_at"`
	ExpiresAt      time.Time `bun:"expires_at" json:"expires_at"`
	MaxUses        *int      `bun:"max_uses" json:"max_uses,omitempty"`
	CurrentUses    int       `bun:"current_uses" json:"current_uses"`
	MinAmountCents int64     `bun:"min_amount_cents" json:"min_amount_cents"`
	// Scope is a comma-separated list of usage kinds the code applies to.
	// Empty means the code applies everywhere.
	Scope     string    `bun:"scope" json:"scope"`
	Active    bool      `bun:"active" json:"active"`
	CreatedAt time.Time `bun:"created_at" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at" json:"updated_at"`
}

// AppliesTo reports whether the code's scope covers the given usage kind.
func (p *PromoCode) AppliesTo(kind UsageKind) bool {
	if strings.TrimSpace(p.Scope) == "" {
		return true
	}
	for _, s := range strings.Split(p.Scope, ",") {
		if UsageKind(strings.TrimSpace(s)) == kind {
			return true
		}
	}
	return false
}

// Capped reports whether the code has a total-use limit.
func (p *PromoCode) Capped() bool {
	return p.MaxUses != nil
}

// PromoUsageRecord is the immutable ledger entry written each time a code
// successfully discounts a transaction.
type PromoUsageRecord struct {
	bun.BaseModel `bun:"table:promo_usage_records"`

	UsageID       string    `bun:"usage_id,pk" json:"usage_id"`
	PromoCodeID   string    `bun:"promo_code_id" json:"promo_code_id"`
	UserID        string    `bun:"user_id" json:"user_id"`
	ConsumerRef   string    `bun:"consumer_ref" json:"consumer_ref"`
	UsageKind     UsageKind `bun:"usage_kind" json:"usage_kind"`
	AmountBefore  int64     `bun:"amount_before_cents" json:"amount_before_cents"`
	DiscountCents int64     `bun:"discount_cents" json:"discount_cents"`
	AmountAfter   int64     `bun:"amount_after_cents" json:"amount_after_cents"`
	CreatedAt     time.Time `bun:"created_at" json:"created_at"`
}
