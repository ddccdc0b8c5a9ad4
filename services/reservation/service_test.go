package reservation

import (
	"context"
	"sync"
	"testing"
	"time"

	calendarRepo "innkeep/database/repository/calendar"
	"innkeep/models"
	"innkeep/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

const testSlug = "seaside-villa"

type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]models.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[string]models.Booking)}
}

func (m *memBookingRepo) Create(_ context.Context, booking *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[booking.ID] = *booking
	return nil
}

func (m *memBookingRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, utils.NewDomainError(utils.KindNotFound, "booking %s not found", id)
	}
	return &b, nil
}

func (m *memBookingRepo) TransitionStatus(_ context.Context, id, from, to string, set bson.M) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, utils.NewDomainError(utils.KindNotFound, "booking %s not found", id)
	}
	if b.Status != from {
		return nil, utils.NewDomainError(utils.KindConflict,
			"booking %s is %s, expected %s", id, b.Status, from)
	}
	b.Status = to
	if ref, ok := set["payment_ref"].(string); ok {
		b.PaymentRef = ref
	}
	m.bookings[id] = b
	return &b, nil
}

func (m *memBookingRepo) FindPendingBefore(_ context.Context, cutoff time.Time) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.Status == models.BookingPending && b.CreatedAt.Before(cutoff) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBookingRepo) FindCheckedOut(_ context.Context, now time.Time) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.Status == models.BookingConfirmed && !b.Range.CheckOut.After(now) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBookingRepo) LiveIDs(_ context.Context, propertySlug string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[string]bool)
	for _, b := range m.bookings {
		if b.PropertySlug != propertySlug {
			continue
		}
		switch b.Status {
		case models.BookingPending, models.BookingConfirmed, models.BookingCompleted:
			ids[b.ID] = true
		}
	}
	return ids, nil
}

type fakeHoldRepo struct {
	live map[string]bool
}

func (f *fakeHoldRepo) Create(_ context.Context, _ *models.Hold) error { return nil }

func (f *fakeHoldRepo) GetByID(_ context.Context, id string) (*models.Hold, error) {
	return nil, utils.NewDomainError(utils.KindNotFound, "hold %s not found", id)
}

func (f *fakeHoldRepo) TransitionStatus(_ context.Context, id, _, _ string, _ bson.M) (*models.Hold, error) {
	return nil, utils.NewDomainError(utils.KindNotFound, "hold %s not found", id)
}

func (f *fakeHoldRepo) FindExpired(_ context.Context, _ time.Time) ([]models.Hold, error) {
	return nil, nil
}

func (f *fakeHoldRepo) LiveIDs(_ context.Context, _ string) (map[string]bool, error) {
	if f.live == nil {
		return map[string]bool{}, nil
	}
	return f.live, nil
}

type fakeProperties struct{}

func (fakeProperties) GetBySlug(_ context.Context, slug string) (*models.Property, error) {
	if slug != testSlug {
		return nil, utils.NewDomainError(utils.KindNotFound, "property %s not found", slug)
	}
	return &models.Property{
		Slug:          testSlug,
		BaseRateCents: 10000,
		BaseOccupancy: 2,
		MaxGuests:     4,
		BaseCurrency:  "USD",
	}, nil
}

func (fakeProperties) ListSlugs(_ context.Context) ([]string, error) {
	return []string{testSlug}, nil
}

func (fakeProperties) Upsert(_ context.Context, _ *models.Property) error { return nil }

type fakePricer struct{}

func (fakePricer) GetPricing(_ context.Context, propertySlug string, r models.DateRange, guestCount int, couponCode string) (*models.PricingBreakdown, error) {
	if propertySlug != testSlug {
		return nil, utils.NewDomainError(utils.KindNotFound, "property %s not found", propertySlug)
	}
	total := int64(r.Nights()) * 10000
	return &models.PricingBreakdown{
		Nights:        r.Nights(),
		SubtotalCents: total,
		TotalCents:    total,
		CouponCode:    couponCode,
		Currency:      "USD",
	}, nil
}

func (fakePricer) DisplayIn(b models.PricingBreakdown, _ string) (*models.DisplayPrice, error) {
	return &models.DisplayPrice{TotalCents: b.TotalCents, Currency: b.Currency}, nil
}

type fakeCoupons struct {
	redeemed []string
}

func (f *fakeCoupons) Validate(_ context.Context, code string, _ models.DateRange, _ string) (float64, error) {
	return 10, nil
}

func (f *fakeCoupons) Redeem(_ context.Context, code string) error {
	f.redeemed = append(f.redeemed, code)
	return nil
}

type fakeNotifier struct {
	scheduled []string
}

func (f *fakeNotifier) ScheduleBookingNotifications(_ context.Context, booking *models.Booking) error {
	f.scheduled = append(f.scheduled, booking.ID)
	return nil
}

type fixture struct {
	service  *DefaultService
	bookings *memBookingRepo
	calendar *calendarRepo.MemoryCalendarRepo
	coupons  *fakeCoupons
	notifier *fakeNotifier
	now      time.Time
}

func newFixture() *fixture {
	f := &fixture{
		bookings: newMemBookingRepo(),
		calendar: calendarRepo.NewMemoryCalendarRepo(),
		coupons:  &fakeCoupons{},
		notifier: &fakeNotifier{},
		now:      time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service = &DefaultService{
		Bookings:   f.bookings,
		Holds:      &fakeHoldRepo{},
		Calendar:   f.calendar,
		Properties: fakeProperties{},
		Pricer:     fakePricer{},
		Coupons:    f.coupons,
		Notifier:   f.notifier,
		PendingTTL: time.Hour,
		Clock:      func() time.Time { return f.now },
	}
	return f
}

func parseRange(t *testing.T, checkIn, checkOut string) models.DateRange {
	t.Helper()
	r, err := models.ParseDateRange(checkIn, checkOut)
	require.NoError(t, err)
	return r
}

func validRequest(t *testing.T) CreateBookingRequest {
	return CreateBookingRequest{
		PropertySlug: testSlug,
		Range:        parseRange(t, "2025-06-01", "2025-06-05"),
		GuestCount:   2,
		Guest: models.GuestInfo{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
		},
	}
}

func TestCreatePendingBooking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	booking, err := f.service.CreatePendingBooking(ctx, validRequest(t))
	require.NoError(t, err)

	assert.Equal(t, models.BookingPending, booking.Status)
	assert.Equal(t, int64(40000), booking.Pricing.TotalCents)
	assert.Equal(t, "USD", booking.Currency)

	conflicts, err := f.calendar.ConflictingDates(ctx, testSlug, booking.Range)
	require.NoError(t, err)
	assert.Len(t, conflicts, 4, "pending booking claims its nights immediately")
}

func TestCreatePendingBookingConflictWritesNothing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.CreatePendingBooking(ctx, validRequest(t))
	require.NoError(t, err)

	second := validRequest(t)
	second.Range = parseRange(t, "2025-06-04", "2025-06-08")
	_, err = f.service.CreatePendingBooking(ctx, second)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindConflict))
	assert.Len(t, f.bookings.bookings, 1, "losing request leaves no partial record")

	// The nights of the losing request outside the clash stay free.
	free, err := f.calendar.ConflictingDates(ctx, testSlug, parseRange(t, "2025-06-05", "2025-06-08"))
	require.NoError(t, err)
	assert.Empty(t, free)
}

func TestCreatePendingBookingRejectsStaleQuote(t *testing.T) {
	f := newFixture()

	req := validRequest(t)
	req.ExpectedTotalCents = 39000
	_, err := f.service.CreatePendingBooking(context.Background(), req)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindValidation))
	assert.Empty(t, f.bookings.bookings)
}

func TestCreatePendingBookingValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req := validRequest(t)
	req.Guest.Email = "not-an-email"
	_, err := f.service.CreatePendingBooking(ctx, req)
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	req = validRequest(t)
	req.Range = parseRange(t, "2025-04-01", "2025-04-05")
	_, err = f.service.CreatePendingBooking(ctx, req)
	assert.True(t, utils.IsKind(err, utils.KindValidation), "past check-in rejected")
}

func TestConfirmBooking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req := validRequest(t)
	req.CouponCode = "SAVE10"
	booking, err := f.service.CreatePendingBooking(ctx, req)
	require.NoError(t, err)

	confirmed, err := f.service.ConfirmBooking(ctx, booking.ID, "pay_123")
	require.NoError(t, err)

	assert.Equal(t, models.BookingConfirmed, confirmed.Status)
	assert.Equal(t, "pay_123", confirmed.PaymentRef)
	assert.Equal(t, []string{"SAVE10"}, f.coupons.redeemed)
	assert.Equal(t, []string{booking.ID}, f.notifier.scheduled)
}

func TestConfirmBookingRequiresPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	booking, err := f.service.CreatePendingBooking(ctx, validRequest(t))
	require.NoError(t, err)
	require.NoError(t, f.service.CancelBooking(ctx, booking.ID))

	_, err = f.service.ConfirmBooking(ctx, booking.ID, "pay_123")
	assert.True(t, utils.IsKind(err, utils.KindConflict))
}

func TestCancelBookingReleasesDates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	booking, err := f.service.CreatePendingBooking(ctx, validRequest(t))
	require.NoError(t, err)
	require.NoError(t, f.service.CancelBooking(ctx, booking.ID))

	conflicts, err := f.calendar.ConflictingDates(ctx, testSlug, booking.Range)
	require.NoError(t, err)
	assert.Empty(t, conflicts, "cancelled booking frees its nights")

	// Cancel works from confirmed as well.
	booking2, err := f.service.CreatePendingBooking(ctx, validRequest(t))
	require.NoError(t, err)
	_, err = f.service.ConfirmBooking(ctx, booking2.ID, "pay_1")
	require.NoError(t, err)
	require.NoError(t, f.service.CancelBooking(ctx, booking2.ID))

	err = f.service.CancelBooking(ctx, booking2.ID)
	assert.True(t, utils.IsKind(err, utils.KindConflict), "double cancel is a conflict")
}

func TestSweepPendingTimeouts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	stale, err := f.service.CreatePendingBooking(ctx, validRequest(t))
	require.NoError(t, err)

	// Time passes beyond the pending TTL; a newer request arrives.
	f.now = f.now.Add(2 * time.Hour)
	freshReq := validRequest(t)
	freshReq.Range = parseRange(t, "2025-07-01", "2025-07-05")
	fresh, err := f.service.CreatePendingBooking(ctx, freshReq)
	require.NoError(t, err)

	n, err := f.service.SweepPendingTimeouts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.bookings.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, got.Status)

	conflicts, err := f.calendar.ConflictingDates(ctx, testSlug, stale.Range)
	require.NoError(t, err)
	assert.Empty(t, conflicts, "reclaimed booking frees its nights")

	got, err = f.bookings.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, got.Status, "fresh booking untouched")
}

func TestSweepCompleted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	booking, err := f.service.CreatePendingBooking(ctx, validRequest(t))
	require.NoError(t, err)
	_, err = f.service.ConfirmBooking(ctx, booking.ID, "pay_123")
	require.NoError(t, err)

	// Guest has checked out.
	f.now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	n, err := f.service.SweepCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.bookings.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, got.Status)

	conflicts, err := f.calendar.ConflictingDates(ctx, testSlug, booking.Range)
	require.NoError(t, err)
	assert.Len(t, conflicts, 4, "completed stay keeps its nights claimed")
}

func TestReconcileReleasesOrphanedClaims(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	booking, err := f.service.CreatePendingBooking(ctx, validRequest(t))
	require.NoError(t, err)

	// An orphaned claim with no backing record, e.g. a crash mid-conversion.
	orphanRange := parseRange(t, "2025-07-01", "2025-07-05")
	require.NoError(t, f.calendar.Reserve(ctx, testSlug, orphanRange, "ghost-id"))

	require.NoError(t, f.service.Reconcile(ctx, testSlug))

	conflicts, err := f.calendar.ConflictingDates(ctx, testSlug, orphanRange)
	require.NoError(t, err)
	assert.Empty(t, conflicts, "orphaned claim released")

	conflicts, err = f.calendar.ConflictingDates(ctx, testSlug, booking.Range)
	require.NoError(t, err)
	assert.Len(t, conflicts, 4, "live booking keeps its claim")
}

func TestConcurrentBookingsOneWinner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.CreatePendingBooking(ctx, validRequest(t))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.True(t, utils.IsKind(err, utils.KindConflict))
		}
	}
	assert.Equal(t, 1, wins)
	assert.Len(t, f.bookings.bookings, 1)
}
