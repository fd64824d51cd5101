package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"ms-booking/internal/booking"
	"ms-booking/internal/models"
	"ms-booking/internal/promo"
)

// DB is the reservation store. Creates and cancels run inside transactions;
// the conflict re-check and the promo usage increment happen in the same
// transaction as the reservation insert, which is what prevents two
// overlapping requests from both committing.
type DB struct {
	Bun *bun.DB
}

var activeStatuses = []models.ReservationStatus{models.StatusPending, models.StatusConfirmed}

// CreateReservationTx locks the space row (Postgres), re-checks the window
// for conflicts, conditionally consumes a promo usage slot, and inserts the
// reservation and its usage record atomically.
func (d *DB) CreateReservationTx(ctx context.Context, res *models.Reservation, usage *models.PromoUsageRecord) error {
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// Row-level lock on the space serializes concurrent creates for the
		// same space on Postgres. SQLite serializes writers globally, so the
		// lock clause is skipped there.
		lock := tx.NewSelect().
			Column("space_id").
			Table("spaces").
			Where("space_id = ?", res.SpaceID)
		if tx.Dialect().Name() == dialect.PG {
			lock = lock.For("UPDATE")
		}
		var lockedID string
		if err := lock.Scan(ctx, &lockedID); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		// Conflict re-check inside the transaction: half-open overlap against
		// pending/confirmed reservations on the same space.
		exists, err := tx.NewSelect().
			Model((*models.Reservation)(nil)).
			Where("space_id = ?", res.SpaceID).
			Where("status IN (?)", bun.In(activeStatuses)).
			Where("start_time < ?", res.EndTime).
			Where("end_time > ?", res.StartTime).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return booking.ErrConflict
		}

		if usage != nil {
			// Conditional increment: two concurrent redemptions at
			// current_uses = max - 1 must not both succeed.
			out, err := tx.NewUpdate().
				Model((*models.PromoCode)(nil)).
				Set("current_uses = current_uses + 1").
				Set("updated_at = ?", time.Now().UTC()).
				Where("promo_code_id = ?", usage.PromoCodeID).
				Where("max_uses IS NULL OR current_uses < max_uses").
				Exec(ctx)
			if err != nil {
				return err
			}
			affected, err := out.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				return &promo.RejectionError{Code: usage.PromoCodeID, Reason: promo.ReasonUsageExhausted}
			}

			if _, err := tx.NewInsert().Model(usage).Exec(ctx); err != nil {
				return err
			}
		}

		if _, err := tx.NewInsert().Model(res).Exec(ctx); err != nil {
			return err
		}
		return nil
	})
	return classify(err)
}

// CancelReservationTx persists a cancellation. When refundPromo is set the
// consumed usage slot is given back; the usage record stays for audit.
// The status guard on the UPDATE is what protects the transition table
// against stale reads: the engine's check happens before this transaction,
// and the row may have been completed by the sweeper in between.
func (d *DB) CancelReservationTx(ctx context.Context, res *models.Reservation, refundPromo bool) error {
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		out, err := tx.NewUpdate().
			Model(res).
			Column("status", "cancel_reason", "updated_at").
			Where("reservation_id = ?", res.ReservationID).
			Where("status IN (?)", bun.In(activeStatuses)).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := out.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// Either the row is gone or it already reached a terminal status.
			exists, err := tx.NewSelect().
				Model((*models.Reservation)(nil)).
				Where("reservation_id = ?", res.ReservationID).
				Exists(ctx)
			if err != nil {
				return err
			}
			if exists {
				return booking.ErrInvalidTransition
			}
			return booking.ErrNotFound
		}

		if refundPromo && res.PromoCodeID != nil {
			if _, err := tx.NewUpdate().
				Model((*models.PromoCode)(nil)).
				Set("current_uses = current_uses - 1").
				Set("updated_at = ?", time.Now().UTC()).
				Where("promo_code_id = ?", *res.PromoCodeID).
				Where("current_uses > 0").
				Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	return classify(err)
}

// GetReservationByID fetches one reservation. Returns (nil, nil) when
// absent; the engine maps that to its NotFound rejection.
func (d *DB) GetReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	var res models.Reservation
	err := d.Bun.NewSelect().
		Model(&res).
		Where("reservation_id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return &res, nil
}

// ListBusyIntervals returns the [start, end) windows of pending/confirmed
// reservations on a space that overlap [from, to), ordered by start.
func (d *DB) ListBusyIntervals(ctx context.Context, spaceID string, from, to time.Time) ([]models.Interval, error) {
	var reservations []models.Reservation
	err := d.Bun.NewSelect().
		Model(&reservations).
		Column("start_time", "end_time").
		Where("space_id = ?", spaceID).
		Where("status IN (?)", bun.In(activeStatuses)).
		Where("start_time < ?", to).
		Where("end_time > ?", from).
		Order("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, classify(err)
	}

	intervals := make([]models.Interval, 0, len(reservations))
	for _, r := range reservations {
		intervals = append(intervals, models.Interval{Start: r.StartTime, End: r.EndTime})
	}
	return intervals, nil
}

// ListByUser returns a user's reservations, newest first.
func (d *DB) ListByUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := d.Bun.NewSelect().
		Model(&reservations).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return reservations, nil
}

// MarkCompleted flips reservations whose end has passed to completed. The
// booking engine never calls this during create or cancel; the completion
// sweeper does.
func (d *DB) MarkCompleted(ctx context.Context, now time.Time) (int64, error) {
	out, err := d.Bun.NewUpdate().
		Model((*models.Reservation)(nil)).
		Set("status = ?", models.StatusCompleted).
		Set("updated_at = ?", now).
		Where("status IN (?)", bun.In(activeStatuses)).
		Where("end_time <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, classify(err)
	}
	return out.RowsAffected()
}

// classify passes business rejections through and wraps everything else as
// a transient store failure, which the engine may retry.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, booking.ErrConflict) || errors.Is(err, booking.ErrNotFound) || errors.Is(err, booking.ErrInvalidTransition) {
		return err
	}
	var rej *promo.RejectionError
	if errors.As(err, &rej) {
		return err
	}
	return &booking.TransientStoreError{Err: err}
}
