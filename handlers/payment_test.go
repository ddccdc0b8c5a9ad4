package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"innkeep/models"
	"innkeep/services/payment"
	"innkeep/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

type stubHolds struct {
	converted  []string
	expired    []string
	convertErr error
	expireErr  error
}

func (s *stubHolds) CreateHold(context.Context, string, models.DateRange, int, models.GuestContact) (*models.Hold, error) {
	return nil, utils.NewDomainError(utils.KindInternal, "not used in this test")
}

func (s *stubHolds) GetHold(_ context.Context, id string) (*models.Hold, error) {
	return nil, utils.NewDomainError(utils.KindNotFound, "hold %s not found", id)
}

func (s *stubHolds) Convert(_ context.Context, holdID, _ string) (*models.Booking, error) {
	if s.convertErr != nil {
		return nil, s.convertErr
	}
	s.converted = append(s.converted, holdID)
	return &models.Booking{ID: "bk-from-" + holdID, Status: models.BookingPending}, nil
}

func (s *stubHolds) CancelHold(context.Context, string) error { return nil }

func (s *stubHolds) ExpireHold(_ context.Context, id string) error {
	if s.expireErr != nil {
		return s.expireErr
	}
	s.expired = append(s.expired, id)
	return nil
}

func (s *stubHolds) SweepExpired(context.Context) (int, error) { return 0, nil }

// checkoutEvent builds the gateway event the webhook dispatches on, with the
// reservation metadata the engine attached at checkout creation.
func checkoutEvent(t *testing.T, eventType, kind, reservationID string) stripe.Event {
	t.Helper()
	sess := map[string]any{"id": "cs_test"}
	if kind != "" {
		sess["metadata"] = map[string]string{
			payment.MetaReservationKind: kind,
			payment.MetaReservationID:   reservationID,
		}
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		t.Fatalf("marshal checkout session: %v", err)
	}
	return stripe.Event{Type: stripe.EventType(eventType), Data: &stripe.EventData{Raw: raw}}
}

func dispatchCheckout(h *PaymentWebhookHandler, event stripe.Event, succeeded bool) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/payment/webhook", nil)
	h.handleCheckout(c, event, succeeded)
	return w
}

func TestCheckoutCompletedConfirmsBooking(t *testing.T) {
	reservations := &stubReservations{bookings: map[string]*models.Booking{
		"bk-1": {ID: "bk-1", Status: models.BookingConfirmed},
	}}
	h := NewPaymentWebhookHandler(reservations, &stubHolds{}, zap.NewNop())

	w := dispatchCheckout(h, checkoutEvent(t, "checkout.session.completed", payment.KindBooking, "bk-1"), true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"bk-1"}, reservations.confirmed)
}

func TestCheckoutCompletedConvertsHold(t *testing.T) {
	holds := &stubHolds{}
	h := NewPaymentWebhookHandler(&stubReservations{}, holds, zap.NewNop())

	w := dispatchCheckout(h, checkoutEvent(t, "checkout.session.completed", payment.KindHold, "hd-1"), true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"hd-1"}, holds.converted)
}

func TestCheckoutExpiredCancelsPendingBooking(t *testing.T) {
	reservations := &stubReservations{bookings: map[string]*models.Booking{
		"bk-1": {ID: "bk-1", Status: models.BookingPending},
	}}
	h := NewPaymentWebhookHandler(reservations, &stubHolds{}, zap.NewNop())

	w := dispatchCheckout(h, checkoutEvent(t, "checkout.session.expired", payment.KindBooking, "bk-1"), false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"bk-1"}, reservations.cancelled)
}

func TestCheckoutExpiredAcknowledgesSettledBooking(t *testing.T) {
	// The timeout sweep already reclaimed the booking, so the cancel
	// transition conflicts. The signal is moot and must still be ACKed or
	// the gateway retries it forever.
	reservations := &stubReservations{
		bookings:  map[string]*models.Booking{"bk-1": {ID: "bk-1", Status: models.BookingCancelled}},
		cancelErr: utils.NewDomainError(utils.KindConflict, "booking bk-1 is not pending"),
	}
	h := NewPaymentWebhookHandler(reservations, &stubHolds{}, zap.NewNop())

	w := dispatchCheckout(h, checkoutEvent(t, "checkout.session.expired", payment.KindBooking, "bk-1"), false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, reservations.cancelled)
}

func TestCheckoutExpiredAcknowledgesSettledHold(t *testing.T) {
	holds := &stubHolds{expireErr: utils.NewDomainError(utils.KindConflict, "hold hd-1 already left created")}
	h := NewPaymentWebhookHandler(&stubReservations{}, holds, zap.NewNop())

	w := dispatchCheckout(h, checkoutEvent(t, "checkout.session.expired", payment.KindHold, "hd-1"), false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCheckoutCompletedConflictStillFails(t *testing.T) {
	// A success signal that cannot apply is a real problem, money changed
	// hands. It must not be swallowed the way abandonment conflicts are.
	reservations := &stubReservations{
		bookings:   map[string]*models.Booking{"bk-1": {ID: "bk-1", Status: models.BookingCancelled}},
		confirmErr: utils.NewDomainError(utils.KindConflict, "booking bk-1 is not pending"),
	}
	h := NewPaymentWebhookHandler(reservations, &stubHolds{}, zap.NewNop())

	w := dispatchCheckout(h, checkoutEvent(t, "checkout.session.completed", payment.KindBooking, "bk-1"), true)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCheckoutWithoutMetadataIsAcknowledged(t *testing.T) {
	reservations := &stubReservations{}
	h := NewPaymentWebhookHandler(reservations, &stubHolds{}, zap.NewNop())

	w := dispatchCheckout(h, checkoutEvent(t, "checkout.session.completed", "", ""), true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, reservations.confirmed)
}
