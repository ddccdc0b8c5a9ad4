package payment

import (
	"context"
	"fmt"
	"strings"

	"innkeep/config"
	"innkeep/models"
	"innkeep/utils"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"go.uber.org/zap"
)

// CheckoutSession links a reservation to an external payment flow. The
// engine only creates the session and records the reference; the checkout
// itself happens on the gateway.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Metadata keys attached to checkout sessions so the webhook can route the
// payment-success signal back to the right reservation.
const (
	MetaReservationKind = "reservation_kind"
	MetaReservationID   = "reservation_id"
	KindBooking         = "booking"
	KindHold            = "hold"
)

// CheckoutService creates payment sessions for holds and pending bookings.
type CheckoutService interface {
	CreateBookingCheckout(ctx context.Context, booking *models.Booking) (*CheckoutSession, error)
	CreateHoldCheckout(ctx context.Context, hold *models.Hold) (*CheckoutSession, error)
}

// StripeCheckout implements CheckoutService on Stripe Checkout.
type StripeCheckout struct{}

func (s *StripeCheckout) CreateBookingCheckout(ctx context.Context, booking *models.Booking) (*CheckoutSession, error) {
	name := fmt.Sprintf("Stay at %s %s", booking.PropertySlug, booking.Range)
	return s.create(ctx, name, booking.Pricing.TotalCents, booking.Currency,
		KindBooking, booking.ID)
}

func (s *StripeCheckout) CreateHoldCheckout(ctx context.Context, hold *models.Hold) (*CheckoutSession, error) {
	name := fmt.Sprintf("Hold fee for %s %s", hold.PropertySlug, hold.Range)
	return s.create(ctx, name, hold.FeeCents, hold.FeeCurrency, KindHold, hold.ID)
}

func (s *StripeCheckout) create(ctx context.Context, name string, amountCents int64, currency, kind, reservationID string) (*CheckoutSession, error) {
	if amountCents <= 0 {
		return nil, utils.NewDomainError(utils.KindValidation,
			"cannot create a checkout for a non-positive amount")
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(currency)),
					UnitAmount: stripe.Int64(amountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(config.AppConfig.CheckoutSuccessURL),
		CancelURL:  stripe.String(config.AppConfig.CheckoutCancelURL),
	}
	params.Context = ctx
	params.AddMetadata(MetaReservationKind, kind)
	params.AddMetadata(MetaReservationID, reservationID)

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session for %s %s: %w", kind, reservationID, err)
	}

	utils.GetLogger().Info("checkout session created",
		zap.String("kind", kind),
		zap.String("reservationID", reservationID),
		zap.String("checkoutID", sess.ID))
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}
