package coupon

import (
	"context"
	"strings"

	couponRepo "innkeep/database/repository/coupon"
	"innkeep/models"
	"innkeep/utils"
)

// Validator checks a coupon code against a stay. Validation has no side
// effects; redemption is recorded separately when a booking referencing the
// code is confirmed.
type Validator interface {
	// Validate returns the discount percentage for a valid coupon, or a
	// coupon-rejected error naming the reason.
	Validate(ctx context.Context, code string, r models.DateRange, propertySlug string) (float64, error)
	// Redeem increments the redemption counter for a confirmed booking.
	Redeem(ctx context.Context, code string) error
}

// DefaultValidator implements Validator on the coupon repository.
type DefaultValidator struct {
	Repo couponRepo.CouponRepository
}

func (v *DefaultValidator) Validate(ctx context.Context, code string, r models.DateRange, propertySlug string) (float64, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, utils.NewDomainError(utils.KindValidation, "coupon code is empty")
	}

	c, err := v.Repo.GetByCode(ctx, code)
	if err != nil {
		return 0, err
	}
	if !c.CoversRange(r) {
		return 0, utils.NewDomainError(utils.KindCouponRejected,
			"coupon %q is not valid for stay %s", code, r)
	}
	if c.PropertySlug != "" && c.PropertySlug != propertySlug {
		return 0, utils.NewDomainError(utils.KindCouponRejected,
			"coupon %q does not apply to property %s", code, propertySlug)
	}
	if c.Exhausted() {
		return 0, utils.NewDomainError(utils.KindCouponRejected,
			"coupon %q has reached its usage limit", code)
	}
	if c.Percent <= 0 || c.Percent > 100 {
		return 0, utils.NewDomainError(utils.KindCouponRejected,
			"coupon %q has an invalid discount percentage", code)
	}
	return c.Percent, nil
}

func (v *DefaultValidator) Redeem(ctx context.Context, code string) error {
	return v.Repo.IncrementUses(ctx, code)
}
