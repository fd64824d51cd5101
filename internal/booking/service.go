package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/pricing"
	"ms-booking/internal/promo"
)

type DBLayer interface {
	// CreateReservationTx re-checks for window conflicts, consumes the promo
	// usage slot when usage is non-nil, and inserts the reservation, all in
	// one transaction.
	CreateReservationTx(ctx context.Context, res *models.Reservation, usage *models.PromoUsageRecord) error
	GetReservationByID(ctx context.Context, id string) (*models.Reservation, error)
	// CancelReservationTx persists the cancelled status and, when refundPromo
	// is set, gives back the consumed usage slot.
	CancelReservationTx(ctx context.Context, res *models.Reservation, refundPromo bool) error
	ListBusyIntervals(ctx context.Context, spaceID string, from, to time.Time) ([]models.Interval, error)
	ListByUser(ctx context.Context, userID string) ([]models.Reservation, error)
}

type SpaceLock interface {
	LockSpace(ctx context.Context, spaceID, token string) (bool, error)
	UnlockSpace(ctx context.Context, spaceID, token string) error
}

type Catalog interface {
	IsBookable(ctx context.Context, spaceID string) (bool, error)
	GetRateCard(ctx context.Context, spaceID string) (models.RateCard, error)
}

type PromoValidator interface {
	Validate(ctx context.Context, code, userID string, orderAmountCents int64, kind models.UsageKind, now time.Time) (*promo.Result, error)
}

type EventPublisher interface {
	PublishReservationCreated(res models.Reservation) error
	PublishReservationCancelled(res models.Reservation) error
}

// Service is the booking engine: it validates requested windows, prices
// them, applies promo codes, and drives reservation state transitions. All
// shared state lives behind DBLayer; the service itself is safe for
// concurrent use by independent request handlers.
type Service struct {
	DB      DBLayer
	Lock    SpaceLock
	Kafka   EventPublisher
	Catalog Catalog
	Promo   PromoValidator
	Policy  config.BookingPolicy
	Logger  *logger.Logger

	// Now is the clock; replaceable in tests.
	Now func() time.Time
}

func NewService(db DBLayer, lock SpaceLock, kafka EventPublisher, catalog Catalog, validator PromoValidator, policy config.BookingPolicy, log *logger.Logger) *Service {
	return &Service{
		DB:      db,
		Lock:    lock,
		Kafka:   kafka,
		Catalog: catalog,
		Promo:   validator,
		Policy:  policy,
		Logger:  log,
		Now:     time.Now,
	}
}

// CreateReservation books a space for [start, end). The conflict check runs
// twice: once here for a fast rejection, and again inside the store
// transaction that persists the row, which is the authoritative guard
// against two concurrent bookers.
func (s *Service) CreateReservation(ctx context.Context, userID string, req models.CreateReservationRequest) (*models.Reservation, error) {
	now := s.Now().UTC()

	start, end, err := s.normalizeWindow(req.Start, req.End, now)
	if err != nil {
		return nil, err
	}

	bookable, err := s.Catalog.IsBookable(ctx, req.SpaceID)
	if err != nil {
		return nil, fmt.Errorf("check space %s: %w", req.SpaceID, err)
	}
	if !bookable {
		return nil, ErrSpaceUnavailable
	}

	// Fast conflict pre-check outside the transaction.
	busy, err := s.DB.ListBusyIntervals(ctx, req.SpaceID, start, end)
	if err != nil {
		return nil, err
	}
	for _, iv := range busy {
		if iv.Overlaps(start, end) {
			return nil, ErrConflict
		}
	}

	rateCard, err := s.Catalog.GetRateCard(ctx, req.SpaceID)
	if err != nil {
		return nil, err
	}

	baseCents, err := pricing.ComputeBase(rateCard, req.BookingType, start, end)
	if err != nil {
		return nil, err
	}

	res := &models.Reservation{
		ReservationID: uuid.NewString(),
		UserID:        userID,
		SpaceID:       req.SpaceID,
		StartTime:     start,
		EndTime:       end,
		Status:        s.Policy.DefaultStatus,
		BookingType:   req.BookingType,
		BaseCents:     baseCents,
		PaidCents:     baseCents,
		Participants:  req.Participants,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var usage *models.PromoUsageRecord
	if req.PromoCode != "" {
		// A rejected code fails the whole create; the UI must not silently
		// drop an invalid code.
		result, err := s.Promo.Validate(ctx, req.PromoCode, userID, baseCents, models.UsageReservation, now)
		if err != nil {
			return nil, err
		}
		res.DiscountCents = result.DiscountCents
		res.PaidCents = baseCents - result.DiscountCents
		res.PromoCodeID = &result.PromoCode.PromoCodeID
		usage = &models.PromoUsageRecord{
			UsageID:       uuid.NewString(),
			PromoCodeID:   result.PromoCode.PromoCodeID,
			UserID:        userID,
			ConsumerRef:   res.ReservationID,
			UsageKind:     models.UsageReservation,
			AmountBefore:  baseCents,
			DiscountCents: result.DiscountCents,
			AmountAfter:   baseCents - result.DiscountCents,
			CreatedAt:     now,
		}
	}

	// Advisory per-space lock to shed concurrent contenders cheaply. Best
	// effort: the transactional re-check below stays authoritative, so a
	// failed acquire does not block the create.
	if s.Lock != nil {
		if ok, lockErr := s.Lock.LockSpace(ctx, req.SpaceID, res.ReservationID); lockErr != nil {
			s.logWarn("REDIS", fmt.Sprintf("space lock error for %s: %v", req.SpaceID, lockErr))
		} else if ok {
			defer func() {
				if unlockErr := s.Lock.UnlockSpace(ctx, req.SpaceID, res.ReservationID); unlockErr != nil {
					s.logWarn("REDIS", fmt.Sprintf("space unlock error for %s: %v", req.SpaceID, unlockErr))
				}
			}()
		}
	}

	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.DB.CreateReservationTx(ctx, res, usage)
	})
	if err != nil {
		return nil, err
	}

	s.logBooking("CREATE", res.ReservationID, fmt.Sprintf("space=%s user=%s base=%d discount=%d", res.SpaceID, userID, res.BaseCents, res.DiscountCents))

	// Fire-and-forget: notification failures never roll back the reservation.
	if s.Kafka != nil {
		if pubErr := s.Kafka.PublishReservationCreated(*res); pubErr != nil {
			s.logWarn("KAFKA", fmt.Sprintf("publish reservation created %s: %v", res.ReservationID, pubErr))
		}
	}

	return res, nil
}

// CancelReservation cancels a pending or confirmed reservation, subject to
// ownership and the minimum-notice policy. The consumed promo usage is not
// refunded unless the policy says so.
func (s *Service) CancelReservation(ctx context.Context, reservationID, actorUserID string, isAdmin bool, reason string) (*models.Reservation, error) {
	res, err := s.DB.GetReservationByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrNotFound
	}

	if res.UserID != actorUserID && !isAdmin {
		return nil, ErrForbidden
	}

	if !CanTransition(res.Status, models.StatusCancelled) {
		return nil, ErrInvalidTransition
	}

	now := s.Now().UTC()
	if now.After(res.StartTime.Add(-s.Policy.CancelMinNotice)) {
		return nil, ErrCancellationWindowClosed
	}

	res.Status = models.StatusCancelled
	res.UpdatedAt = now
	if reason != "" {
		res.CancelReason = &reason
	}

	refund := s.Policy.RefundPromoUsageOnCancel && res.PromoCodeID != nil
	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.DB.CancelReservationTx(ctx, res, refund)
	})
	if err != nil {
		return nil, err
	}

	s.logBooking("CANCEL", res.ReservationID, fmt.Sprintf("actor=%s reason=%q", actorUserID, reason))

	if s.Kafka != nil {
		if pubErr := s.Kafka.PublishReservationCancelled(*res); pubErr != nil {
			s.logWarn("KAFKA", fmt.Sprintf("publish reservation cancelled %s: %v", res.ReservationID, pubErr))
		}
	}

	return res, nil
}

// ListAvailability returns the busy intervals on a space's calendar between
// from and to. Purely derived, no mutation.
func (s *Service) ListAvailability(ctx context.Context, spaceID string, from, to time.Time) ([]models.Interval, error) {
	if !from.Before(to) {
		return nil, ErrInvalidRange
	}
	return s.DB.ListBusyIntervals(ctx, spaceID, from, to)
}

// GetReservation loads one reservation with an ownership check.
func (s *Service) GetReservation(ctx context.Context, reservationID, actorUserID string, isAdmin bool) (*models.Reservation, error) {
	res, err := s.DB.GetReservationByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrNotFound
	}
	if res.UserID != actorUserID && !isAdmin {
		return nil, ErrForbidden
	}
	return res, nil
}

func (s *Service) ListUserReservations(ctx context.Context, userID string) ([]models.Reservation, error) {
	return s.DB.ListByUser(ctx, userID)
}

// normalizeWindow aligns start/end to the slot granularity and validates the
// range. Both boundaries truncate down; a range that collapses is rejected.
func (s *Service) normalizeWindow(start, end time.Time, now time.Time) (time.Time, time.Time, error) {
	g := s.Policy.SlotGranularity
	if g > 0 {
		start = start.UTC().Truncate(g)
		end = end.UTC().Truncate(g)
	} else {
		start = start.UTC()
		end = end.UTC()
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	if start.Before(now.Add(-s.Policy.PastStartGrace)) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return start, end, nil
}

// withRetry retries op on transient store failures only, up to 2 extra
// attempts with backoff. Each attempt is bounded by the store timeout;
// business rejections pass through untouched.
func (s *Service) withRetry(ctx context.Context, op func(context.Context) error) error {
	backoff := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	var err error
	for attempt := 0; ; attempt++ {
		err = s.attempt(ctx, op)
		if err == nil || !IsTransient(err) || attempt >= len(backoff) {
			return err
		}
		s.logWarn("DATABASE", fmt.Sprintf("transient store error, retrying: %v", err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff[attempt]):
		}
	}
}

func (s *Service) attempt(ctx context.Context, op func(context.Context) error) error {
	if s.Policy.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Policy.StoreTimeout)
		defer cancel()
	}
	return op(ctx)
}

func (s *Service) logBooking(action, id, msg string) {
	if s.Logger != nil {
		s.Logger.LogBooking(action, id, msg)
	}
}

func (s *Service) logWarn(category, msg string) {
	if s.Logger != nil {
		s.Logger.Warn(category, msg)
	}
}
