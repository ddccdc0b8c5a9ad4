package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"innkeep/config"
	holdsvc "innkeep/services/hold"
	"innkeep/services/payment"
	"innkeep/services/reservation"
	"innkeep/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// PaymentWebhookHandler receives payment-gateway signals and translates them
// into reservation transitions: success confirms a booking or converts a
// hold, an abandoned checkout cancels the claim.
type PaymentWebhookHandler struct {
	Reservations reservation.Service
	Holds        holdsvc.Manager
	logger       *zap.Logger
}

func NewPaymentWebhookHandler(reservations reservation.Service, holds holdsvc.Manager, logger *zap.Logger) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{Reservations: reservations, Holds: holds, logger: logger}
}

// HandleWebhook verifies and dispatches a Stripe event.
func (h *PaymentWebhookHandler) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 65536))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "failed to read webhook payload", err.Error())
		return
	}

	event, err := webhook.ConstructEvent(payload,
		c.GetHeader("Stripe-Signature"), config.AppConfig.StripeWebhookSecret)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "webhook signature verification failed", err.Error())
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckout(c, event, true)
	case "checkout.session.expired":
		h.handleCheckout(c, event, false)
	default:
		// Unhandled event types are acknowledged so the gateway stops retrying.
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

func (h *PaymentWebhookHandler) handleCheckout(c *gin.Context, event stripe.Event, succeeded bool) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "failed to parse checkout session", err.Error())
		return
	}

	kind := sess.Metadata[payment.MetaReservationKind]
	reservationID := sess.Metadata[payment.MetaReservationID]
	if kind == "" || reservationID == "" {
		h.logger.Warn("checkout session without reservation metadata",
			zap.String("checkoutID", sess.ID))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	ctx := c.Request.Context()
	var err error
	switch {
	case kind == payment.KindBooking && succeeded:
		_, err = h.Reservations.ConfirmBooking(ctx, reservationID, sess.ID)
	case kind == payment.KindBooking && !succeeded:
		err = h.Reservations.CancelBooking(ctx, reservationID)
	case kind == payment.KindHold && succeeded:
		_, err = h.Holds.Convert(ctx, reservationID, sess.ID)
	case kind == payment.KindHold && !succeeded:
		err = h.Holds.ExpireHold(ctx, reservationID)
	}

	// An abandonment signal for a reservation that already left pending,
	// usually reclaimed by the timeout sweep, is moot. Acknowledge it so
	// the gateway stops retrying a transition that can never apply.
	if err != nil && !succeeded && utils.IsKind(err, utils.KindConflict) {
		h.logger.Info("payment abandonment for already settled reservation",
			zap.String("kind", kind), zap.String("reservationID", reservationID))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if err != nil {
		h.logger.Error("failed to apply payment signal",
			zap.String("kind", kind),
			zap.String("reservationID", reservationID),
			zap.Bool("succeeded", succeeded),
			zap.Error(err))
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
