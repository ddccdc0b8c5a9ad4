package pricing

import (
	"math"
	"sort"

	"innkeep/models"
	"innkeep/utils"
)

// Quote is the input to a price computation. Everything here is resolved
// before the engine runs; the computation itself is pure.
type Quote struct {
	Property      models.Property
	Range         models.DateRange
	GuestCount    int
	RateTable     models.RateTable // Nil means base rate for every night
	CouponCode    string
	CouponPercent float64 // 0 means no coupon applied
}

// ComputeBreakdown turns a quote into a full pricing decomposition. All
// arithmetic happens in integer cents in the property's base currency;
// percentage discounts round half-to-even so the subtotal/discount/total
// identity stays exact.
func ComputeBreakdown(q Quote) (models.PricingBreakdown, error) {
	if q.GuestCount < 1 {
		return models.PricingBreakdown{}, utils.NewDomainError(utils.KindValidation,
			"guest count must be at least 1, got %d", q.GuestCount)
	}
	if q.Property.MaxGuests > 0 && q.GuestCount > q.Property.MaxGuests {
		return models.PricingBreakdown{}, utils.NewDomainError(utils.KindValidation,
			"guest count %d exceeds property maximum %d", q.GuestCount, q.Property.MaxGuests)
	}
	nights := q.Range.Nights()
	if nights < 1 {
		return models.PricingBreakdown{}, utils.NewDomainError(utils.KindValidation,
			"stay must cover at least one night")
	}

	var accommodation int64
	for _, date := range q.Range.Dates() {
		accommodation += q.RateTable.NightlyRate(date, q.Property.BaseRateCents)
	}

	var extraGuestFee int64
	if extra := q.GuestCount - q.Property.BaseOccupancy; extra > 0 {
		extraGuestFee = int64(extra) * q.Property.ExtraGuestCents * int64(nights)
	}

	subtotal := accommodation + extraGuestFee + q.Property.CleaningFeeCents

	losPercent := losDiscountPercent(q.Property.LOSDiscountTiers, nights)
	losDiscount := percentOf(subtotal, losPercent)

	// Coupon applies after the LOS discount, on the reduced amount, so the
	// two percentages never stack additively.
	couponDiscount := percentOf(subtotal-losDiscount, q.CouponPercent)

	total := subtotal - losDiscount - couponDiscount
	if total <= 0 && subtotal > 0 {
		// A non-positive total out of a positive subtotal means the discount
		// model produced garbage; refuse to price rather than guess.
		return models.PricingBreakdown{}, utils.NewDomainError(utils.KindPricingUnavailable,
			"computed total %d is not positive for subtotal %d", total, subtotal)
	}

	return models.PricingBreakdown{
		Nights:              nights,
		AccommodationCents:  accommodation,
		CleaningFeeCents:    q.Property.CleaningFeeCents,
		ExtraGuestFeeCents:  extraGuestFee,
		SubtotalCents:       subtotal,
		LOSDiscountPercent:  losPercent,
		LOSDiscountCents:    losDiscount,
		CouponCode:          q.CouponCode,
		CouponPercent:       q.CouponPercent,
		CouponDiscountCents: couponDiscount,
		TotalCents:          total,
		Currency:            q.Property.BaseCurrency,
	}, nil
}

// losDiscountPercent evaluates the length-of-stay step function: the highest
// tier whose threshold the stay meets. Tiers are sorted so the function is
// monotonic in nights regardless of configuration order.
func losDiscountPercent(tiers []models.LOSTier, nights int) float64 {
	if len(tiers) == 0 {
		tiers = models.DefaultLOSTiers
	}
	sorted := make([]models.LOSTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinNights < sorted[j].MinNights })

	var percent float64
	for _, tier := range sorted {
		if nights >= tier.MinNights && tier.Percent > percent {
			percent = tier.Percent
		}
	}
	return percent
}

// percentOf computes pct% of a cent amount with round-half-to-even.
func percentOf(cents int64, pct float64) int64 {
	if pct <= 0 {
		return 0
	}
	return int64(math.RoundToEven(float64(cents) * pct / 100))
}

// Display converts a breakdown's total into the guest-facing currency using
// the supplied rate function. With matching currencies no conversion or
// rounding beyond formatting occurs. The result is presentation-only.
func Display(b models.PricingBreakdown, currency string, rate utils.RateFunc) (models.DisplayPrice, error) {
	if currency == "" || currency == b.Currency {
		return models.DisplayPrice{
			TotalCents: b.TotalCents,
			Total:      utils.FormatCents(b.TotalCents),
			Currency:   b.Currency,
		}, nil
	}
	factor, err := rate(b.Currency, currency)
	if err != nil {
		return models.DisplayPrice{}, utils.WrapDomainError(utils.KindPricingUnavailable, err,
			"no exchange rate from %s to %s", b.Currency, currency)
	}
	converted := utils.ConvertCents(b.TotalCents, factor)
	return models.DisplayPrice{
		TotalCents: converted,
		Total:      utils.FormatCents(converted),
		Currency:   currency,
	}, nil
}
