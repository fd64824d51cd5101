package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-booking/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// GetSpace fetches one space by id. Returns (nil, nil) when absent; the
// catalog service decides how absence and soft-disable surface to callers.
func (d *DB) GetSpace(ctx context.Context, spaceID string) (*models.Space, error) {
	var sp models.Space
	err := d.Bun.NewSelect().
		Model(&sp).
		Where("space_id = ?", spaceID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

// ListSpaces returns all non-disabled spaces ordered by name.
func (d *DB) ListSpaces(ctx context.Context) ([]models.Space, error) {
	var spaces []models.Space
	err := d.Bun.NewSelect().
		Model(&spaces).
		Where("disabled = ?", false).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return spaces, nil
}

// CreateSpace inserts a space. Used by seeding and tests; space
// administration proper lives outside this service.
func (d *DB) CreateSpace(ctx context.Context, sp *models.Space) error {
	if sp.CreatedAt.IsZero() {
		sp.CreatedAt = time.Now().UTC()
	}
	sp.UpdatedAt = sp.CreatedAt
	_, err := d.Bun.NewInsert().Model(sp).Exec(ctx)
	return err
}
