package models

import "time"

// Coupon is an administrator-created discount code. The engine only reads
// coupons; redemption counts are incremented when a booking referencing the
// code is confirmed.
type Coupon struct {
	Code         string    `bson:"_id" json:"code"`
	Percent      float64   `bson:"percent" json:"percent"` // Discount percentage, 0 < p <= 100
	ValidFrom    time.Time `bson:"valid_from" json:"validFrom"`
	ValidTo      time.Time `bson:"valid_to" json:"validTo"`
	PropertySlug string    `bson:"property_slug,omitempty" json:"propertySlug,omitempty"` // Empty means any property
	MaxUses      int       `bson:"max_uses" json:"maxUses,omitempty"`                     // 0 means unlimited
	Uses         int       `bson:"uses" json:"uses"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
}

// CoversRange reports whether the whole stay falls inside the validity window.
func (c Coupon) CoversRange(r DateRange) bool {
	lastNight := r.CheckOut.AddDate(0, 0, -1)
	return !r.CheckIn.Before(Midnight(c.ValidFrom)) && !lastNight.After(Midnight(c.ValidTo))
}

// Exhausted reports whether the usage cap has been reached.
func (c Coupon) Exhausted() bool {
	return c.MaxUses > 0 && c.Uses >= c.MaxUses
}
