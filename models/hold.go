package models

import "time"

// Hold status lifecycle. Created is the only non-terminal state.
const (
	HoldCreated   = "created"
	HoldExpired   = "expired"
	HoldConverted = "converted"
	HoldCancelled = "cancelled"
)

// GuestContact is the minimal contact captured when a hold is placed.
type GuestContact struct {
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// Hold is a short-lived, fee-backed provisional reservation of a date range.
type Hold struct {
	ID           string       `bson:"_id" json:"id"`
	PropertySlug string       `bson:"property_slug" json:"propertySlug"`
	Range        DateRange    `bson:"range" json:"range"`
	GuestCount   int          `bson:"guest_count" json:"guestCount"`
	Contact      GuestContact `bson:"contact" json:"contact"`
	FeeCents     int64        `bson:"fee_cents" json:"feeCents"`
	FeeCurrency  string       `bson:"fee_currency" json:"feeCurrency"`
	Status       string       `bson:"status" json:"status"`
	PaymentRef   string       `bson:"payment_ref,omitempty" json:"paymentRef,omitempty"`
	BookingID    string       `bson:"booking_id,omitempty" json:"bookingId,omitempty"` // Set on conversion
	CreatedAt    time.Time    `bson:"created_at" json:"createdAt"`
	ExpiresAt    time.Time    `bson:"expires_at" json:"expiresAt"`
	UpdatedAt    time.Time    `bson:"updated_at" json:"updatedAt"`
}

// IsExpired reports whether the hold's window has lapsed without conversion.
// Terminal holds are never "expired" again; the check is used both by the
// background sweep and lazily wherever a hold is read.
func (h Hold) IsExpired(now time.Time) bool {
	return h.Status == HoldCreated && !h.ExpiresAt.After(now)
}
