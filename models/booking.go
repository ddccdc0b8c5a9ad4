package models

import "time"

// Booking status lifecycle. Pending bookings hold their dates but await
// payment; Completed is a bookkeeping state entered after check-out.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
)

// GuestInfo identifies the guest on a booking.
type GuestInfo struct {
	FirstName string `bson:"first_name" json:"firstName"`
	LastName  string `bson:"last_name" json:"lastName"`
	Email     string `bson:"email" json:"email"`
	Phone     string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// Booking is a reservation of a date range for a property.
type Booking struct {
	ID                string           `bson:"_id" json:"id"`
	PropertySlug      string           `bson:"property_slug" json:"propertySlug"`
	Range             DateRange        `bson:"range" json:"range"`
	GuestCount        int              `bson:"guest_count" json:"guestCount"`
	Guest             GuestInfo        `bson:"guest" json:"guest"`
	Pricing           PricingBreakdown `bson:"pricing" json:"pricing"`
	Currency          string           `bson:"currency" json:"currency"`
	CouponCode        string           `bson:"coupon_code,omitempty" json:"couponCode,omitempty"`
	Status            string           `bson:"status" json:"status"`
	PaymentRef        string           `bson:"payment_ref,omitempty" json:"paymentRef,omitempty"`
	ConvertedFromHold bool             `bson:"converted_from_hold,omitempty" json:"convertedFromHold,omitempty"`
	HoldID            string           `bson:"hold_id,omitempty" json:"holdId,omitempty"` // Originating hold, when converted
	CreatedAt         time.Time        `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time        `bson:"updated_at" json:"updatedAt"`
}
