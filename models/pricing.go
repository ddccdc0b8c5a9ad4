package models

// PricingBreakdown decomposes a quoted price. All amounts are integer minor
// units (cents) in Currency; the decomposition stays exact until display.
type PricingBreakdown struct {
	Nights              int     `bson:"nights" json:"nights"`
	AccommodationCents  int64   `bson:"accommodation_cents" json:"accommodationCents"` // Sum of per-night rates
	CleaningFeeCents    int64   `bson:"cleaning_fee_cents" json:"cleaningFeeCents"`
	ExtraGuestFeeCents  int64   `bson:"extra_guest_fee_cents" json:"extraGuestFeeCents"`
	SubtotalCents       int64   `bson:"subtotal_cents" json:"subtotalCents"`
	LOSDiscountPercent  float64 `bson:"los_discount_percent" json:"losDiscountPercent"`
	LOSDiscountCents    int64   `bson:"los_discount_cents" json:"losDiscountCents"`
	CouponCode          string  `bson:"coupon_code,omitempty" json:"couponCode,omitempty"`
	CouponPercent       float64 `bson:"coupon_percent,omitempty" json:"couponPercent,omitempty"`
	CouponDiscountCents int64   `bson:"coupon_discount_cents" json:"couponDiscountCents"`
	TotalCents          int64   `bson:"total_cents" json:"totalCents"`
	Currency            string  `bson:"currency" json:"currency"` // Property base currency
}

// DisplayPrice is the guest-facing rendering of a breakdown, possibly
// converted into another currency. Never persisted as the authoritative price.
type DisplayPrice struct {
	TotalCents int64  `json:"totalCents"`
	Total      string `json:"total"` // Formatted major-unit amount, e.g. "450.00"
	Currency   string `json:"currency"`
}
