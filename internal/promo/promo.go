package promo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

// RejectReason identifies which validation rule a promo code failed.
// Callers branch on the reason, never on message text.
type RejectReason string

const (
	ReasonCodeNotFound   RejectReason = "code_not_found"
	ReasonExpired        RejectReason = "expired"
	ReasonUsageExhausted RejectReason = "usage_exhausted"
	ReasonScopeMismatch  RejectReason = "scope_mismatch"
	ReasonMinimumNotMet  RejectReason = "minimum_not_met"
)

// RejectionError is returned when a code fails validation. It carries the
// specific rule that failed so the UI can show an actionable message.
type RejectionError struct {
	Code   string
	Reason RejectReason
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("promo code %q rejected: %s", e.Code, e.Reason)
}

// AsRejection unwraps err into a *RejectionError if it is one.
func AsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// Result is a successful validation outcome. Validation never consumes a
// usage slot; the booking engine increments the counter when it commits.
type Result struct {
	PromoCode     *models.PromoCode
	DiscountCents int64
}

// CodeStore looks up promo codes. Implementations return (nil, nil) when no
// code matches.
type CodeStore interface {
	GetByCode(ctx context.Context, code string) (*models.PromoCode, error)
}

type Validator struct {
	Store  CodeStore
	Logger *logger.Logger
}

func NewValidator(store CodeStore, log *logger.Logger) *Validator {
	return &Validator{Store: store, Logger: log}
}

// Validate checks a code against its window, usage cap, scope, and minimum
// amount, and computes the discount for orderAmountCents. It has no side
// effects, so a validation-only call (a live price preview) is safe to
// repeat.
func (v *Validator) Validate(ctx context.Context, code, userID string, orderAmountCents int64, kind models.UsageKind, now time.Time) (*Result, error) {
	pc, err := v.Store.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("promo lookup: %w", err)
	}
	if pc == nil || !pc.Active {
		return nil, &RejectionError{Code: code, Reason: ReasonCodeNotFound}
	}

	if now.Before(pc.StartsAt) || now.After(pc.ExpiresAt) {
		return nil, &RejectionError{Code: code, Reason: ReasonExpired}
	}

	if pc.Capped() && pc.CurrentUses >= *pc.MaxUses {
		return nil, &RejectionError{Code: code, Reason: ReasonUsageExhausted}
	}

	if !pc.AppliesTo(kind) {
		return nil, &RejectionError{Code: code, Reason: ReasonScopeMismatch}
	}

	if orderAmountCents < pc.MinAmountCents {
		return nil, &RejectionError{Code: code, Reason: ReasonMinimumNotMet}
	}

	discount := Discount(pc, orderAmountCents)
	if v.Logger != nil {
		v.Logger.LogPromo("VALIDATE", pc.Code, fmt.Sprintf("user=%s amount=%d discount=%d", userID, orderAmountCents, discount))
	}

	return &Result{PromoCode: pc, DiscountCents: discount}, nil
}

// Discount computes the discount in cents for the given order amount,
// clamped so it never exceeds the amount itself. Integer math throughout to
// avoid rounding drift across repeated applications.
func Discount(pc *models.PromoCode, orderAmountCents int64) int64 {
	var d int64
	switch pc.Type {
	case models.DiscountPercentage:
		d = orderAmountCents * pc.Value / 100
	case models.DiscountFixed:
		d = pc.Value
	}
	if d > orderAmountCents {
		d = orderAmountCents
	}
	if d < 0 {
		d = 0
	}
	return d
}
