package hold

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

// memHoldRepo is an in-memory HoldRepository with the same compare-and-set
// contract as the Mongo implementation.
type memHoldRepo struct {
	mu    sync.Mutex
	holds map[string]models.Hold
}

func newMemHoldRepo() *memHoldRepo {
	return &memHoldRepo{holds: make(map[string]models.Hold)}
}

func (m *memHoldRepo) Create(_ context.Context, hold *models.Hold) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holds[hold.ID] = *hold
	return nil
}

func (m *memHoldRepo) GetByID(_ context.Context, id string) (*models.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[id]
	if !ok {
		return nil, utils.NewDomainError(utils.KindNotFound, "hold %s not found", id)
	}
	return &h, nil
}

func (m *memHoldRepo) TransitionStatus(_ context.Context, id, from, to string, set bson.M) (*models.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[id]
	if !ok {
		return nil, utils.NewDomainError(utils.KindNotFound, "hold %s not found", id)
	}
	if h.Status != from {
		return nil, utils.NewDomainError(utils.KindConflict,
			"hold %s is %s, expected %s", id, h.Status, from)
	}
	h.Status = to
	if ref, ok := set["payment_ref"].(string); ok {
		h.PaymentRef = ref
	}
	if bid, ok := set["booking_id"].(string); ok {
		h.BookingID = bid
	}
	m.holds[id] = h
	return &h, nil
}

func (m *memHoldRepo) FindExpired(_ context.Context, now time.Time) ([]models.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Hold
	for _, h := range m.holds {
		if h.IsExpired(now) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memHoldRepo) LiveIDs(_ context.Context, propertySlug string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[string]bool)
	for _, h := range m.holds {
		if h.PropertySlug == propertySlug && h.Status == models.HoldCreated {
			ids[h.ID] = true
		}
	}
	return ids, nil
}

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

type fakeProperties struct {
	properties map[string]models.Property
}

func (f *fakeProperties) GetBySlug(_ context.Context, slug string) (*models.Property, error) {
	p, ok := f.properties[slug]
	if !ok {
		return nil, utils.NewDomainError(utils.KindNotFound, "property %s not found", slug)
	}
	return &p, nil
}

func (f *fakeProperties) ListSlugs(_ context.Context) ([]string, error) {
	var slugs []string
	for slug := range f.properties {
		slugs = append(slugs, slug)
	}
	return slugs, nil
}

func (f *fakeProperties) Upsert(_ context.Context, p *models.Property) error {
	f.properties[p.Slug] = *p
	return nil
}

type fakePricer struct {
	err error
}

func (f *fakePricer) GetPricing(_ context.Context, propertySlug string, r models.DateRange, guestCount int, couponCode string) (*models.PricingBreakdown, error) {
	if f.err != nil {
		return nil, f.err
	}
	total := int64(r.Nights()) * 10000
	return &models.PricingBreakdown{
		Nights:        r.Nights(),
		SubtotalCents: total,
		TotalCents:    total,
		Currency:      "USD",
	}, nil
}

func (f *fakePricer) DisplayIn(b models.PricingBreakdown, currency string) (*models.DisplayPrice, error) {
	return &models.DisplayPrice{TotalCents: b.TotalCents, Currency: b.Currency}, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type holdFixture struct {
	manager  *DefaultManager
	holds    *memHoldRepo
	bookings *memBookingRepo
	calendar *calendarRepo.MemoryCalendarRepo
	clock    *testClock
}

func newHoldFixture() *holdFixture {
	clock := &testClock{now: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
	holds := newMemHoldRepo()
	bookings := newMemBookingRepo()
	calendar := calendarRepo.NewMemoryCalendarRepo()

	properties := &fakeProperties{properties: map[string]models.Property{
		testSlug: {
			Slug:          testSlug,
			BaseRateCents: 10000,
			BaseOccupancy: 2,
			MaxGuests:     4,
			BaseCurrency:  "USD",
			HoldFeeCents:  2500,
			HoldDuration:  24,
		},
		"no-holds-cabin": {
			Slug:          "no-holds-cabin",
			BaseRateCents: 8000,
			BaseOccupancy: 2,
			MaxGuests:     4,
			BaseCurrency:  "USD",
		},
	}}

	return &holdFixture{
		manager: &DefaultManager{
			Holds:      holds,
			Bookings:   bookings,
			Calendar:   calendar,
			Properties: properties,
			Pricer:     &fakePricer{},
			Clock:      clock.Now,
		},
		holds:    holds,
		bookings: bookings,
		calendar: calendar,
		clock:    clock,
	}
}

func parseRange(t *testing.T, checkIn, checkOut string) models.DateRange {
	t.Helper()
	r, err := models.ParseDateRange(checkIn, checkOut)
	require.NoError(t, err)
	return r
}

func testContact() models.GuestContact {
	return models.GuestContact{Name: "Ada", Email: "ada@example.com", Phone: "+15550000"}
}

func TestCreateHoldClaimsDates(t *testing.T) {
	f := newHoldFixture()
	ctx := context.Background()
	r := parseRange(t, "2025-06-01", "2025-06-05")

	hold, err := f.manager.CreateHold(ctx, testSlug, r, 2, testContact())
	require.NoError(t, err)

	assert.Equal(t, models.HoldCreated, hold.Status)
	assert.Equal(t, int64(2500), hold.FeeCents)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), hold.ExpiresAt)

	conflicts, err := f.calendar.ConflictingDates(ctx, testSlug, r)
	require.NoError(t, err)
	assert.Len(t, conflicts, 4, "all nights are claimed")
}

func TestCreateHoldRequiresHoldFee(t *testing.T) {
	f := newHoldFixture()

	_, err := f.manager.CreateHold(context.Background(), "no-holds-cabin",
		parseRange(t, "2025-06-01", "2025-06-05"), 2, testContact())
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestCreateHoldConflictLeavesNoRecord(t *testing.T) {
	f := newHoldFixture()
	ctx := context.Background()

	_, err := f.manager.CreateHold(ctx, testSlug,
		parseRange(t, "2025-06-01", "2025-06-05"), 2, testContact())
	require.NoError(t, err)

	_, err = f.manager.CreateHold(ctx, testSlug,
		parseRange(t, "2025-06-03", "2025-06-08"), 2, testContact())
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindConflict))
	assert.Len(t, f.holds.holds, 1, "losing request writes no hold record")
}

func TestExpiredHoldFreesDates(t *testing.T) {
	f := newHoldFixture()
	ctx := context.Background()
	r := parseRange(t, "2025-06-01", "2025-06-05")

	hold, err := f.manager.CreateHold(ctx, testSlug, r, 2, testContact())
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)

	// Reading the hold lazily expires it and releases its nights.
	got, err := f.manager.GetHold(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HoldExpired, got.Status)

	conflicts, err := f.calendar.ConflictingDates(ctx, testSlug, r)
	require.NoError(t, err)
	assert.Empty(t, conflicts, "expired hold no longer blocks the range")
}

func TestSweepExpired(t *testing.T) {
	f := newHoldFixture()
	ctx := context.Background()

	_, err := f.manager.CreateHold(ctx, testSlug,
		parseRange(t, "2025-06-01", "2025-06-05"), 2, testContact())
	require.NoError(t, err)
	fresh, err := f.manager.CreateHold(ctx, testSlug,
		parseRange(t, "2025-07-01", "2025-07-05"), 2, testContact())
	require.NoError(t, err)

	// Only the first hold lapses; the second is re-created after advancing.
	f.clock.Advance(25 * time.Hour)
	require.NoError(t, f.manager.CancelHold(ctx, fresh.ID))
	fresh, err = f.manager.CreateHold(ctx, testSlug,
		parseRange(t, "2025-07-01", "2025-07-05"), 2, testContact())
	require.NoError(t, err)

	n, err := f.manager.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.manager.GetHold(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HoldCreated, got.Status, "unexpired hold untouched")
}

func TestCancelHoldIsIdempotent(t *testing.T) {
	f := newHoldFixture()
	ctx := context.Background()

	hold, err := f.manager.CreateHold(ctx, testSlug,
		parseRange(t, "2025-06-01", "2025-06-05"), 2, testContact())
	require.NoError(t, err)

	require.NoError(t, f.manager.CancelHold(ctx, hold.ID))
	require.NoError(t, f.manager.CancelHold(ctx, hold.ID), "second cancel is a no-op")
	require.NoError(t, f.manager.ExpireHold(ctx, hold.ID), "expiring a cancelled hold is a no-op")
}

func TestConvertProducesPendingBooking(t *testing.T) {
	f := newHoldFixture()
	ctx := context.Background()
	r := parseRange(t, "2025-06-01", "2025-06-05")

	hold, err := f.manager.CreateHold(ctx, testSlug, r, 2, testContact())
	require.NoError(t, err)

	booking, err := f.manager.Convert(ctx, hold.ID, "pay_123")
	require.NoError(t, err)

	assert.Equal(t, models.BookingPending, booking.Status)
	assert.True(t, booking.ConvertedFromHold)
	assert.Equal(t, hold.ID, booking.HoldID)
	assert.Equal(t, "pay_123", booking.PaymentRef)
	assert.Equal(t, int64(40000), booking.Pricing.TotalCents)

	converted, err := f.holds.GetByID(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HoldConverted, converted.Status)
	assert.Equal(t, booking.ID, converted.BookingID)

	// The claim was re-keyed, never released: the range is still blocked and
	// now owned by the booking.
	conflicts, err := f.calendar.ConflictingDates(ctx, testSlug, r)
	require.NoError(t, err)
	assert.Len(t, conflicts, 4)
	ids, err := f.calendar.ReservationIDs(ctx, testSlug)
	require.NoError(t, err)
	assert.Equal(t, []string{booking.ID}, ids)
}

func TestConvertAfterExpiryIsPaymentTimeout(t *testing.T) {
	f := newHoldFixture()
	ctx := context.Background()
	r := parseRange(t, "2025-06-01", "2025-06-05")

	hold, err := f.manager.CreateHold(ctx, testSlug, r, 2, testContact())
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)

	_, err = f.manager.Convert(ctx, hold.ID, "pay_late")
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindPaymentTimeout))

	conflicts, err := f.calendar.ConflictingDates(ctx, testSlug, r)
	require.NoError(t, err)
	assert.Empty(t, conflicts, "late payment still frees the range")
}

func TestConvertLosesToConcurrentSweep(t *testing.T) {
	f := newHoldFixture()
	ctx := context.Background()

	hold, err := f.manager.CreateHold(ctx, testSlug,
		parseRange(t, "2025-06-01", "2025-06-05"), 2, testContact())
	require.NoError(t, err)

	// A sweep on another process won the status transition first.
	require.NoError(t, f.manager.CancelHold(ctx, hold.ID))

	_, err = f.manager.Convert(ctx, hold.ID, "pay_123")
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindConflict))
	assert.Empty(t, f.bookings.bookings, "no booking record on a lost race")
}

func TestConcurrentHoldsOneWinner(t *testing.T) {
	f := newHoldFixture()
	ctx := context.Background()
	r := parseRange(t, "2025-06-01", "2025-06-05")

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.manager.CreateHold(ctx, testSlug, r, 2, testContact())
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
	assert.Equal(t, 1, wins, "exactly one request claims the range")
}
