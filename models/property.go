package models

import "time"

// Property describes a rental unit as stored in the property catalog.
// Rates and fees are integer minor units (cents) in the base currency.
type Property struct {
	Slug             string    `bson:"slug" json:"slug"`                             // Unique property identifier used in URLs
	Name             string    `bson:"name" json:"name"`                             // Display name
	BaseRateCents    int64     `bson:"base_rate_cents" json:"baseRateCents"`         // Nightly rate when no calendar override exists
	CleaningFeeCents int64     `bson:"cleaning_fee_cents" json:"cleaningFeeCents"`   // Flat per-stay cleaning fee
	BaseOccupancy    int       `bson:"base_occupancy" json:"baseOccupancy"`          // Guests included in the base rate
	ExtraGuestCents  int64     `bson:"extra_guest_cents" json:"extraGuestCents"`     // Per extra guest, per night
	MaxGuests        int       `bson:"max_guests" json:"maxGuests"`                  // Hard guest cap
	BaseCurrency     string    `bson:"base_currency" json:"baseCurrency"`            // ISO 4217 code rates are stored in
	HoldFeeCents     int64     `bson:"hold_fee_cents,omitempty" json:"holdFeeCents"` // 0 disables holds for the property
	HoldDuration     int       `bson:"hold_duration_hours,omitempty" json:"holdDurationHours"`
	LOSDiscountTiers []LOSTier `bson:"los_discount_tiers,omitempty" json:"losDiscountTiers,omitempty"`
	CreatedAt        time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `bson:"updated_at" json:"updatedAt"`
}

// LOSTier is one step of the length-of-stay discount function:
// stays of MinNights or more get Percent off the subtotal.
type LOSTier struct {
	MinNights int     `bson:"min_nights" json:"minNights"`
	Percent   float64 `bson:"percent" json:"percent"`
}

// DefaultLOSTiers applies when a property configures none.
var DefaultLOSTiers = []LOSTier{
	{MinNights: 7, Percent: 5},
	{MinNights: 14, Percent: 10},
	{MinNights: 28, Percent: 15},
}

// HoldEnabled reports whether the property accepts fee-backed holds.
func (p Property) HoldEnabled() bool {
	return p.HoldFeeCents > 0
}

// HoldTTL returns the configured hold duration, defaulting to 24 hours.
func (p Property) HoldTTL() time.Duration {
	if p.HoldDuration <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(p.HoldDuration) * time.Hour
}

// RateTable maps "YYYY-MM-DD" dates to nightly rates in cents. Dates absent
// from the table fall back to the property base rate.
type RateTable map[string]int64

// NightlyRate returns the rate for one night, falling back to base.
func (t RateTable) NightlyRate(date string, baseCents int64) int64 {
	if t == nil {
		return baseCents
	}
	if cents, ok := t[date]; ok {
		return cents
	}
	return baseCents
}
