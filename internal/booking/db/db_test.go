package db_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-booking/internal/booking"
	"ms-booking/internal/booking/db"
	"ms-booking/internal/models"
	"ms-booking/internal/promo"
)

// setupTestDB builds a SQLite in-memory store with a unique name per test so
// tests never see each other's rows. A single connection keeps concurrent
// transactions serialized instead of failing with SQLITE_BUSY.
func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Space)(nil),
		(*models.Reservation)(nil),
		(*models.PromoCode)(nil),
		(*models.PromoUsageRecord)(nil),
	} {
		require.NoError(t, bunDB.ResetModel(ctx, model))
	}

	_, err = bunDB.NewInsert().Model(&models.Space{
		SpaceID:   "space-1",
		Name:      "Booth B2",
		Type:      models.SpaceBooth,
		Capacity:  4,
		RateCard:  models.RateCard{HourlyCents: 2000, DailyCents: 10000},
		Available: true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}).Exec(ctx)
	require.NoError(t, err)

	return &db.DB{Bun: bunDB}
}

func newReservation(spaceID string, start, end time.Time) *models.Reservation {
	now := time.Now().UTC()
	return &models.Reservation{
		ReservationID: uuid.NewString(),
		UserID:        "user-1",
		SpaceID:       spaceID,
		StartTime:     start,
		EndTime:       end,
		Status:        models.StatusConfirmed,
		BookingType:   models.BookingHourly,
		BaseCents:     4000,
		PaidCents:     4000,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestCreateAndGetReservation(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	res := newReservation("space-1", start, start.Add(2*time.Hour))

	require.NoError(t, store.CreateReservationTx(ctx, res, nil))

	got, err := store.GetReservationByID(ctx, res.ReservationID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, res.ReservationID, got.ReservationID)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, int64(4000), got.BaseCents)

	missing, err := store.GetReservationByID(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateReservationConflict(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	first := newReservation("space-1", start, start.Add(2*time.Hour))
	require.NoError(t, store.CreateReservationTx(ctx, first, nil))

	// 10:00-12:00 overlaps the existing 09:00-11:00.
	overlapping := newReservation("space-1", start.Add(time.Hour), start.Add(3*time.Hour))
	err := store.CreateReservationTx(ctx, overlapping, nil)
	assert.ErrorIs(t, err, booking.ErrConflict)

	// 11:00-13:00 only touches the boundary and must be accepted.
	adjacent := newReservation("space-1", start.Add(2*time.Hour), start.Add(4*time.Hour))
	assert.NoError(t, store.CreateReservationTx(ctx, adjacent, nil))
}

func TestCancelledReservationFreesTheWindow(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	first := newReservation("space-1", start, start.Add(2*time.Hour))
	require.NoError(t, store.CreateReservationTx(ctx, first, nil))

	first.Status = models.StatusCancelled
	first.UpdatedAt = time.Now().UTC()
	require.NoError(t, store.CancelReservationTx(ctx, first, false))

	// The same window is bookable again.
	second := newReservation("space-1", start, start.Add(2*time.Hour))
	assert.NoError(t, store.CreateReservationTx(ctx, second, nil))
}

func TestCancelWithStaleStatusLosesToSweep(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	res := newReservation("space-1", now.Add(-3*time.Hour), now.Add(-time.Hour))
	require.NoError(t, store.CreateReservationTx(ctx, res, nil))

	// The engine read the row as confirmed before the sweep ran.
	stale := *res

	n, err := store.MarkCompleted(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	stale.Status = models.StatusCancelled
	stale.UpdatedAt = now
	err = store.CancelReservationTx(ctx, &stale, false)
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)

	// Completed is terminal; the stale cancel must not overwrite it.
	got, err := store.GetReservationByID(ctx, res.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
}

func TestCancelReservationNotFound(t *testing.T) {
	store := setupTestDB(t)

	ghost := newReservation("space-1", time.Now().UTC(), time.Now().UTC().Add(time.Hour))
	ghost.Status = models.StatusCancelled
	err := store.CancelReservationTx(context.Background(), ghost, false)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func seedPromoCode(t *testing.T, store *db.DB, maxUses *int) *models.PromoCode {
	t.Helper()
	now := time.Now().UTC()
	pc := &models.PromoCode{
		PromoCodeID: uuid.NewString(),
		Code:        "CAPPED",
		Type:        models.DiscountFixed,
		Value:       500,
		StartsAt:    now.Add(-time.Hour),
		ExpiresAt:   now.Add(24 * time.Hour),
		MaxUses:     maxUses,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := store.Bun.NewInsert().Model(pc).Exec(context.Background())
	require.NoError(t, err)
	return pc
}

func usageFor(pc *models.PromoCode, res *models.Reservation) *models.PromoUsageRecord {
	return &models.PromoUsageRecord{
		UsageID:       uuid.NewString(),
		PromoCodeID:   pc.PromoCodeID,
		UserID:        res.UserID,
		ConsumerRef:   res.ReservationID,
		UsageKind:     models.UsageReservation,
		AmountBefore:  res.BaseCents,
		DiscountCents: 500,
		AmountAfter:   res.BaseCents - 500,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestPromoUsageCapEnforcedAtCommit(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	maxUses := 1
	pc := seedPromoCode(t, store, &maxUses)

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	first := newReservation("space-1", start, start.Add(time.Hour))
	require.NoError(t, store.CreateReservationTx(ctx, first, usageFor(pc, first)))

	// Non-overlapping window, so only the usage cap can reject this one.
	second := newReservation("space-1", start.Add(2*time.Hour), start.Add(3*time.Hour))
	err := store.CreateReservationTx(ctx, second, usageFor(pc, second))
	require.Error(t, err)
	rej, ok := promo.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, promo.ReasonUsageExhausted, rej.Reason)

	// The failed attempt left nothing behind: one use, one record, one row.
	var got models.PromoCode
	require.NoError(t, store.Bun.NewSelect().Model(&got).Where("promo_code_id = ?", pc.PromoCodeID).Scan(ctx))
	assert.Equal(t, 1, got.CurrentUses)

	usageCount, err := store.Bun.NewSelect().Model((*models.PromoUsageRecord)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, usageCount)

	missing, err := store.GetReservationByID(ctx, second.ReservationID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCancelRefundsPromoUsageWhenAsked(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	maxUses := 5
	pc := seedPromoCode(t, store, &maxUses)

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	res := newReservation("space-1", start, start.Add(time.Hour))
	res.PromoCodeID = &pc.PromoCodeID
	require.NoError(t, store.CreateReservationTx(ctx, res, usageFor(pc, res)))

	res.Status = models.StatusCancelled
	require.NoError(t, store.CancelReservationTx(ctx, res, true))

	var got models.PromoCode
	require.NoError(t, store.Bun.NewSelect().Model(&got).Where("promo_code_id = ?", pc.PromoCodeID).Scan(ctx))
	assert.Equal(t, 0, got.CurrentUses)

	// The audit record is never deleted.
	usageCount, err := store.Bun.NewSelect().Model((*models.PromoUsageRecord)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, usageCount)
}

func TestListBusyIntervals(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateReservationTx(ctx, newReservation("space-1", start, start.Add(time.Hour)), nil))
	require.NoError(t, store.CreateReservationTx(ctx, newReservation("space-1", start.Add(3*time.Hour), start.Add(4*time.Hour)), nil))

	cancelled := newReservation("space-1", start.Add(5*time.Hour), start.Add(6*time.Hour))
	require.NoError(t, store.CreateReservationTx(ctx, cancelled, nil))
	cancelled.Status = models.StatusCancelled
	require.NoError(t, store.CancelReservationTx(ctx, cancelled, false))

	busy, err := store.ListBusyIntervals(ctx, "space-1", start, start.Add(8*time.Hour))
	require.NoError(t, err)
	require.Len(t, busy, 2)
	assert.True(t, busy[0].Start.Equal(start))
	assert.True(t, busy[1].Start.Equal(start.Add(3*time.Hour)))
}

func TestMarkCompleted(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	past := newReservation("space-1", now.Add(-4*time.Hour), now.Add(-2*time.Hour))
	future := newReservation("space-1", now.Add(2*time.Hour), now.Add(4*time.Hour))
	require.NoError(t, store.CreateReservationTx(ctx, past, nil))
	require.NoError(t, store.CreateReservationTx(ctx, future, nil))

	n, err := store.MarkCompleted(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := store.GetReservationByID(ctx, past.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)

	got, err = store.GetReservationByID(ctx, future.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
}

func TestConcurrentCreatesOnlyOneWins(t *testing.T) {
	store := setupTestDB(t)

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	const contenders = 10
	var wg sync.WaitGroup
	results := make(chan error, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := newReservation("space-1", start, end)
			results <- store.CreateReservationTx(context.Background(), res, nil)
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, conflicted int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		default:
			assert.ErrorIs(t, err, booking.ErrConflict)
			conflicted++
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, contenders-1, conflicted)

	count, err := store.Bun.NewSelect().
		Model((*models.Reservation)(nil)).
		Where("space_id = ?", "space-1").
		Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestConcurrentPromoRedemptionsRespectCap(t *testing.T) {
	store := setupTestDB(t)

	maxUses := 3
	pc := seedPromoCode(t, store, &maxUses)

	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	const contenders = 8
	var wg sync.WaitGroup
	results := make(chan error, contenders)

	// Distinct windows, so the usage cap is the only thing that can reject.
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			start := base.Add(time.Duration(slot) * time.Hour)
			res := newReservation("space-1", start, start.Add(30*time.Minute))
			results <- store.CreateReservationTx(context.Background(), res, usageFor(pc, res))
		}(i)
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		rej, ok := promo.AsRejection(err)
		assert.True(t, ok)
		assert.Equal(t, promo.ReasonUsageExhausted, rej.Reason)
	}
	assert.Equal(t, maxUses, succeeded)

	var got models.PromoCode
	require.NoError(t, store.Bun.NewSelect().Model(&got).Where("promo_code_id = ?", pc.PromoCodeID).Scan(context.Background()))
	assert.Equal(t, maxUses, got.CurrentUses)
}
