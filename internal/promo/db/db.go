package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"ms-booking/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// GetByCode fetches a promo code case-insensitively. Returns (nil, nil) when
// no code matches, so the validator can map absence to its own reason.
func (d *DB) GetByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var pc models.PromoCode
	err := d.Bun.NewSelect().
		Model(&pc).
		Where("upper(code) = ?", strings.ToUpper(code)).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

// GetByID fetches a promo code by its primary key.
func (d *DB) GetByID(ctx context.Context, id string) (*models.PromoCode, error) {
	var pc models.PromoCode
	err := d.Bun.NewSelect().
		Model(&pc).
		Where("promo_code_id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

// CreateCode inserts a promo code. Codes are stored uppercase so the
// case-insensitive uniqueness guard holds at the schema level.
func (d *DB) CreateCode(ctx context.Context, pc *models.PromoCode) error {
	pc.Code = strings.ToUpper(pc.Code)
	if pc.CreatedAt.IsZero() {
		pc.CreatedAt = time.Now().UTC()
	}
	pc.UpdatedAt = pc.CreatedAt
	_, err := d.Bun.NewInsert().Model(pc).Exec(ctx)
	return err
}

// ListUsageByCode returns the usage ledger of a code, newest first.
func (d *DB) ListUsageByCode(ctx context.Context, promoCodeID string) ([]models.PromoUsageRecord, error) {
	var records []models.PromoUsageRecord
	err := d.Bun.NewSelect().
		Model(&records).
		Where("promo_code_id = ?", promoCodeID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}
