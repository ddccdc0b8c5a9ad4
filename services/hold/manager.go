package hold

import (
	"context"
	"time"

	bookingRepo "innkeep/database/repository/booking"
	calendarRepo "innkeep/database/repository/calendar"
	holdRepo "innkeep/database/repository/hold"
	propertyRepo "innkeep/database/repository/property"
	"innkeep/models"
	"innkeep/services/pricing"
	"innkeep/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Manager lets a guest provisionally lock a date range for a bounded time by
// paying a hold fee, without committing to the full booking price.
type Manager interface {
	CreateHold(ctx context.Context, propertySlug string, r models.DateRange, guestCount int, contact models.GuestContact) (*models.Hold, error)
	// GetHold reads a hold, lazily expiring it when its window has lapsed.
	GetHold(ctx context.Context, id string) (*models.Hold, error)
	// Convert promotes a paid hold into a pending booking. The calendar
	// claim is re-keyed to the new booking, never released and re-reserved.
	Convert(ctx context.Context, holdID, paymentRef string) (*models.Booking, error)
	CancelHold(ctx context.Context, id string) error
	ExpireHold(ctx context.Context, id string) error
	// SweepExpired expires every lapsed hold and frees its dates. Safe to
	// run from multiple processes: the status compare-and-set picks one
	// winner and release is idempotent.
	SweepExpired(ctx context.Context) (int, error)
}

// DefaultManager implements Manager.
type DefaultManager struct {
	Holds      holdRepo.HoldRepository
	Bookings   bookingRepo.BookingRepository
	Calendar   calendarRepo.CalendarRepository
	Properties propertyRepo.PropertyRepository
	Pricer     pricing.QuoteService
	Clock      func() time.Time // Defaults to time.Now
}

func (m *DefaultManager) now() time.Time {
	if m.Clock != nil {
		return m.Clock()
	}
	return time.Now()
}

func (m *DefaultManager) CreateHold(ctx context.Context, propertySlug string, r models.DateRange, guestCount int, contact models.GuestContact) (*models.Hold, error) {
	logger := utils.GetLogger()

	property, err := m.Properties.GetBySlug(ctx, propertySlug)
	if err != nil {
		return nil, err
	}
	if !property.HoldEnabled() {
		return nil, utils.NewDomainError(utils.KindValidation,
			"property %s does not accept holds", propertySlug)
	}
	if guestCount < 1 || (property.MaxGuests > 0 && guestCount > property.MaxGuests) {
		return nil, utils.NewDomainError(utils.KindValidation,
			"guest count %d is not allowed for property %s", guestCount, propertySlug)
	}
	now := m.now()
	if r.CheckIn.Before(models.Midnight(now)) {
		return nil, utils.NewDomainError(utils.KindValidation,
			"check-in %s is in the past", r.CheckIn.Format(models.DateLayout))
	}

	hold := &models.Hold{
		ID:           uuid.New().String(),
		PropertySlug: propertySlug,
		Range:        r,
		GuestCount:   guestCount,
		Contact:      contact,
		FeeCents:     property.HoldFeeCents,
		FeeCurrency:  property.BaseCurrency,
		Status:       models.HoldCreated,
		CreatedAt:    now,
		ExpiresAt:    now.Add(property.HoldTTL()),
		UpdatedAt:    now,
	}

	// The claim comes first; a conflict here means someone else holds the
	// nights and no hold record is written at all.
	if err := m.Calendar.Reserve(ctx, propertySlug, r, hold.ID); err != nil {
		return nil, err
	}
	if err := m.Holds.Create(ctx, hold); err != nil {
		if relErr := m.Calendar.Release(ctx, propertySlug, hold.ID); relErr != nil {
			logger.Error("failed to release claim after hold insert failure",
				zap.String("holdID", hold.ID), zap.Error(relErr))
		}
		return nil, err
	}

	logger.Info("hold created",
		zap.String("holdID", hold.ID),
		zap.String("property", propertySlug),
		zap.String("range", r.String()),
		zap.Time("expiresAt", hold.ExpiresAt))
	return hold, nil
}

func (m *DefaultManager) GetHold(ctx context.Context, id string) (*models.Hold, error) {
	hold, err := m.Holds.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if hold.IsExpired(m.now()) {
		if err := m.ExpireHold(ctx, id); err != nil {
			return nil, err
		}
		hold.Status = models.HoldExpired
	}
	return hold, nil
}

func (m *DefaultManager) Convert(ctx context.Context, holdID, paymentRef string) (*models.Booking, error) {
	logger := utils.GetLogger()

	hold, err := m.Holds.GetByID(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if hold.IsExpired(m.now()) {
		// Payment arrived after the window lapsed; expire the hold and let
		// the caller surface the timeout.
		if err := m.ExpireHold(ctx, holdID); err != nil {
			return nil, err
		}
		return nil, utils.NewDomainError(utils.KindPaymentTimeout,
			"hold %s expired before payment confirmation", holdID)
	}

	// Pricing is resolved before the transition so a rate-calendar outage
	// leaves the hold untouched and retryable.
	breakdown, err := m.Pricer.GetPricing(ctx, hold.PropertySlug, hold.Range, hold.GuestCount, "")
	if err != nil {
		return nil, err
	}

	bookingID := uuid.New().String()
	if _, err := m.Holds.TransitionStatus(ctx, holdID, models.HoldCreated, models.HoldConverted, bson.M{
		"payment_ref": paymentRef,
		"booking_id":  bookingID,
	}); err != nil {
		return nil, err
	}

	// Hand the claim to the booking id before inserting the record. At no
	// point are the nights visible as free. If the insert below fails the
	// reconciliation sweep releases the orphaned claim.
	if err := m.Calendar.Rekey(ctx, hold.PropertySlug, holdID, bookingID); err != nil {
		return nil, err
	}

	now := m.now()
	booking := &models.Booking{
		ID:           bookingID,
		PropertySlug: hold.PropertySlug,
		Range:        hold.Range,
		GuestCount:   hold.GuestCount,
		Guest: models.GuestInfo{
			FirstName: hold.Contact.Name,
			Email:     hold.Contact.Email,
			Phone:     hold.Contact.Phone,
		},
		Pricing:           *breakdown,
		Currency:          breakdown.Currency,
		Status:            models.BookingPending,
		PaymentRef:        paymentRef,
		ConvertedFromHold: true,
		HoldID:            holdID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := m.Bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	logger.Info("hold converted",
		zap.String("holdID", holdID),
		zap.String("bookingID", bookingID),
		zap.String("property", hold.PropertySlug))
	return booking, nil
}

func (m *DefaultManager) CancelHold(ctx context.Context, id string) error {
	return m.terminate(ctx, id, models.HoldCancelled)
}

func (m *DefaultManager) ExpireHold(ctx context.Context, id string) error {
	return m.terminate(ctx, id, models.HoldExpired)
}

// terminate moves a hold to a terminal state and frees its dates. A hold
// that already left "created" (converted, or terminated by a concurrent
// sweep) is left alone; release is idempotent either way.
func (m *DefaultManager) terminate(ctx context.Context, id, to string) error {
	hold, err := m.Holds.TransitionStatus(ctx, id, models.HoldCreated, to, nil)
	if err != nil {
		if utils.IsKind(err, utils.KindConflict) {
			return nil
		}
		return err
	}
	if err := m.Calendar.Release(ctx, hold.PropertySlug, id); err != nil {
		return err
	}
	utils.GetLogger().Info("hold released",
		zap.String("holdID", id), zap.String("status", to))
	return nil
}

func (m *DefaultManager) SweepExpired(ctx context.Context) (int, error) {
	holds, err := m.Holds.FindExpired(ctx, m.now())
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, h := range holds {
		if err := m.ExpireHold(ctx, h.ID); err != nil {
			utils.GetLogger().Error("failed to expire hold",
				zap.String("holdID", h.ID), zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}
