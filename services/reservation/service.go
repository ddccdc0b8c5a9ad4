package reservation

import (
	"context"
	"strings"
	"time"

	bookingRepo "innkeep/database/repository/booking"
	calendarRepo "innkeep/database/repository/calendar"
	holdRepo "innkeep/database/repository/hold"
	propertyRepo "innkeep/database/repository/property"
	"innkeep/models"
	"innkeep/services/coupon"
	"innkeep/services/pricing"
	"innkeep/services/tasks"
	"innkeep/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// CreateBookingRequest is the boundary-validated input to a booking attempt.
// The quoted total travels along so a price that moved since the guest saw
// it fails loudly instead of charging something else.
type CreateBookingRequest struct {
	PropertySlug       string
	Range              models.DateRange
	GuestCount         int
	Guest              models.GuestInfo
	CouponCode         string
	ExpectedTotalCents int64 // 0 skips the check
}

// Service orchestrates the booking lifecycle:
// pending -> confirmed -> completed, with cancellation exits from pending
// and confirmed. Entry into pending claims the calendar nights; a conflict
// aborts the whole creation with no partial record.
type Service interface {
	CreatePendingBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID, paymentRef string) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID string) error
	// SweepPendingTimeouts reclaims pending bookings whose payment never
	// arrived, mirroring hold expiry.
	SweepPendingTimeouts(ctx context.Context) (int, error)
	// SweepCompleted moves confirmed bookings past their check-out date to
	// completed. The nights stay claimed for reporting.
	SweepCompleted(ctx context.Context) (int, error)
	// Reconcile heals drift between the calendar index and reservation
	// records for one property.
	Reconcile(ctx context.Context, propertySlug string) error
}

// DefaultService implements Service.
type DefaultService struct {
	Bookings   bookingRepo.BookingRepository
	Holds      holdRepo.HoldRepository
	Calendar   calendarRepo.CalendarRepository
	Properties propertyRepo.PropertyRepository
	Pricer     pricing.QuoteService
	Coupons    coupon.Validator
	Notifier   tasks.Scheduler
	PendingTTL time.Duration    // Pending bookings older than this are reclaimed
	Clock      func() time.Time // Defaults to time.Now
}

func (s *DefaultService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *DefaultService) pendingTTL() time.Duration {
	if s.PendingTTL <= 0 {
		return time.Hour
	}
	return s.PendingTTL
}

func validateGuest(g models.GuestInfo) error {
	if strings.TrimSpace(g.FirstName) == "" {
		return utils.NewDomainError(utils.KindValidation, "guest first name is required")
	}
	if !strings.Contains(g.Email, "@") {
		return utils.NewDomainError(utils.KindValidation, "guest email %q is invalid", g.Email)
	}
	return nil
}

func (s *DefaultService) CreatePendingBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	logger := utils.GetLogger()

	if err := validateGuest(req.Guest); err != nil {
		return nil, err
	}
	now := s.now()
	if req.Range.CheckIn.Before(models.Midnight(now)) {
		return nil, utils.NewDomainError(utils.KindValidation,
			"check-in %s is in the past", req.Range.CheckIn.Format(models.DateLayout))
	}

	// Price is always recomputed server-side; a caller-supplied breakdown is
	// only ever compared against, never trusted.
	breakdown, err := s.Pricer.GetPricing(ctx, req.PropertySlug, req.Range, req.GuestCount, req.CouponCode)
	if err != nil {
		return nil, err
	}
	if req.ExpectedTotalCents > 0 && req.ExpectedTotalCents != breakdown.TotalCents {
		return nil, utils.NewDomainError(utils.KindValidation,
			"price changed: quoted %d, current %d", req.ExpectedTotalCents, breakdown.TotalCents)
	}

	bookingID := uuid.New().String()
	if err := s.Calendar.Reserve(ctx, req.PropertySlug, req.Range, bookingID); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		ID:           bookingID,
		PropertySlug: req.PropertySlug,
		Range:        req.Range,
		GuestCount:   req.GuestCount,
		Guest:        req.Guest,
		Pricing:      *breakdown,
		Currency:     breakdown.Currency,
		CouponCode:   req.CouponCode,
		Status:       models.BookingPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Bookings.Create(ctx, booking); err != nil {
		if relErr := s.Calendar.Release(ctx, req.PropertySlug, bookingID); relErr != nil {
			logger.Error("failed to release claim after booking insert failure",
				zap.String("bookingID", bookingID), zap.Error(relErr))
		}
		return nil, err
	}

	logger.Info("pending booking created",
		zap.String("bookingID", bookingID),
		zap.String("property", req.PropertySlug),
		zap.String("range", req.Range.String()),
		zap.Int64("totalCents", breakdown.TotalCents))
	return booking, nil
}

func (s *DefaultService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.Bookings.GetByID(ctx, id)
}

func (s *DefaultService) ConfirmBooking(ctx context.Context, bookingID, paymentRef string) (*models.Booking, error) {
	logger := utils.GetLogger()

	booking, err := s.Bookings.TransitionStatus(ctx, bookingID,
		models.BookingPending, models.BookingConfirmed,
		bson.M{"payment_ref": paymentRef})
	if err != nil {
		return nil, err
	}

	// Redemption and notifications follow confirmation; neither can undo it.
	if booking.CouponCode != "" {
		if err := s.Coupons.Redeem(ctx, booking.CouponCode); err != nil {
			logger.Error("failed to record coupon redemption",
				zap.String("bookingID", bookingID),
				zap.String("coupon", booking.CouponCode),
				zap.Error(err))
		}
	}
	if s.Notifier != nil {
		if err := s.Notifier.ScheduleBookingNotifications(ctx, booking); err != nil {
			logger.Error("failed to schedule booking notifications",
				zap.String("bookingID", bookingID), zap.Error(err))
		}
	}

	logger.Info("booking confirmed",
		zap.String("bookingID", bookingID), zap.String("paymentRef", paymentRef))
	return booking, nil
}

func (s *DefaultService) CancelBooking(ctx context.Context, bookingID string) error {
	logger := utils.GetLogger()

	booking, err := s.Bookings.TransitionStatus(ctx, bookingID,
		models.BookingPending, models.BookingCancelled, nil)
	if utils.IsKind(err, utils.KindConflict) {
		booking, err = s.Bookings.TransitionStatus(ctx, bookingID,
			models.BookingConfirmed, models.BookingCancelled, nil)
	}
	if err != nil {
		return err
	}

	if err := s.Calendar.Release(ctx, booking.PropertySlug, bookingID); err != nil {
		return err
	}
	logger.Info("booking cancelled", zap.String("bookingID", bookingID))
	return nil
}

func (s *DefaultService) SweepPendingTimeouts(ctx context.Context) (int, error) {
	logger := utils.GetLogger()
	cutoff := s.now().Add(-s.pendingTTL())

	stale, err := s.Bookings.FindPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	reclaimed := 0
	for _, b := range stale {
		if _, err := s.Bookings.TransitionStatus(ctx, b.ID,
			models.BookingPending, models.BookingCancelled, nil); err != nil {
			// A racing confirmation won; leave the booking alone.
			if utils.IsKind(err, utils.KindConflict) {
				continue
			}
			logger.Error("failed to reclaim pending booking",
				zap.String("bookingID", b.ID), zap.Error(err))
			continue
		}
		if err := s.Calendar.Release(ctx, b.PropertySlug, b.ID); err != nil {
			logger.Error("failed to release reclaimed booking",
				zap.String("bookingID", b.ID), zap.Error(err))
			continue
		}
		logger.Warn("pending booking reclaimed after payment timeout",
			zap.String("bookingID", b.ID))
		reclaimed++
	}
	return reclaimed, nil
}

func (s *DefaultService) SweepCompleted(ctx context.Context) (int, error) {
	departed, err := s.Bookings.FindCheckedOut(ctx, s.now())
	if err != nil {
		return 0, err
	}
	completed := 0
	for _, b := range departed {
		if _, err := s.Bookings.TransitionStatus(ctx, b.ID,
			models.BookingConfirmed, models.BookingCompleted, nil); err != nil {
			if utils.IsKind(err, utils.KindConflict) {
				continue
			}
			utils.GetLogger().Error("failed to complete booking",
				zap.String("bookingID", b.ID), zap.Error(err))
			continue
		}
		completed++
	}
	return completed, nil
}

// Reconcile compares calendar claims against live reservation records.
// A claim whose owner is no longer live is released; a live reservation
// without any claim is flagged for investigation rather than silently
// re-reserved, since its dates may have been given away already.
func (s *DefaultService) Reconcile(ctx context.Context, propertySlug string) error {
	logger := utils.GetLogger()

	claimants, err := s.Calendar.ReservationIDs(ctx, propertySlug)
	if err != nil {
		return err
	}
	liveBookings, err := s.Bookings.LiveIDs(ctx, propertySlug)
	if err != nil {
		return err
	}
	liveHolds, err := s.Holds.LiveIDs(ctx, propertySlug)
	if err != nil {
		return err
	}

	claimed := make(map[string]bool, len(claimants))
	for _, id := range claimants {
		claimed[id] = true
		if liveBookings[id] || liveHolds[id] {
			continue
		}
		logger.Warn("releasing orphaned calendar claim",
			zap.String("property", propertySlug), zap.String("reservationID", id))
		if err := s.Calendar.Release(ctx, propertySlug, id); err != nil {
			logger.Error("failed to release orphaned claim",
				zap.String("reservationID", id), zap.Error(err))
		}
	}

	for id := range liveBookings {
		if !claimed[id] {
			logger.Error("live booking holds no calendar claim",
				zap.String("property", propertySlug), zap.String("bookingID", id))
		}
	}
	for id := range liveHolds {
		if !claimed[id] {
			logger.Error("live hold holds no calendar claim",
				zap.String("property", propertySlug), zap.String("holdID", id))
		}
	}
	return nil
}
