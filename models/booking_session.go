package models

import "time"

// BookingSession carries guest context between availability check, pricing
// and final booking submission. Stored in Redis with a TTL; the engine itself
// stays stateless between calls.
type BookingSession struct {
	SessionID    string            `json:"sessionId"`
	PropertySlug string            `json:"propertySlug"`
	Range        DateRange         `json:"range"`
	GuestCount   int               `json:"guestCount"`
	Guest        GuestInfo         `json:"guest,omitzero"`
	CouponCode   string            `json:"couponCode,omitempty"`
	Quote        *PricingBreakdown `json:"quote,omitempty"` // Last price shown to the guest
	QuotedAt     time.Time         `json:"quotedAt,omitzero"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// AvailabilityResult is the answer to a date-range availability check,
// including alternative ranges when the requested one conflicts.
type AvailabilityResult struct {
	IsAvailable      bool        `json:"isAvailable"`
	ConflictingDates []string    `json:"conflictingDates,omitempty"`
	Suggestions      []DateRange `json:"suggestions,omitempty"`
}
