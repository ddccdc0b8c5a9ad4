package pricing

import (
	"context"

	propertyRepo "innkeep/database/repository/property"
	ratesRepo "innkeep/database/repository/rates"
	"innkeep/models"
	"innkeep/services/coupon"
	"innkeep/utils"
)

// QuoteService resolves a full price for a stay: property catalog lookup,
// rate-calendar fetch, coupon validation, then the pure breakdown.
type QuoteService interface {
	GetPricing(ctx context.Context, propertySlug string, r models.DateRange, guestCount int, couponCode string) (*models.PricingBreakdown, error)
	// DisplayIn renders a computed breakdown in the guest's currency.
	DisplayIn(b models.PricingBreakdown, currency string) (*models.DisplayPrice, error)
}

// DefaultQuoteService implements QuoteService.
type DefaultQuoteService struct {
	Properties propertyRepo.PropertyRepository
	Rates      ratesRepo.RateTableRepository
	Coupons    coupon.Validator
	Rate       utils.RateFunc
}

func (s *DefaultQuoteService) GetPricing(ctx context.Context, propertySlug string, r models.DateRange, guestCount int, couponCode string) (*models.PricingBreakdown, error) {
	property, err := s.Properties.GetBySlug(ctx, propertySlug)
	if err != nil {
		return nil, err
	}

	// A rate-calendar failure is a hard stop: quoting the base rate when
	// overrides exist would hand out a wrong price.
	table, err := s.Rates.GetRateTable(ctx, propertySlug, r)
	if err != nil {
		return nil, utils.WrapDomainError(utils.KindPricingUnavailable, err,
			"rate calendar unavailable for property %s", propertySlug)
	}

	var couponPercent float64
	if couponCode != "" {
		couponPercent, err = s.Coupons.Validate(ctx, couponCode, r, propertySlug)
		if err != nil {
			return nil, err
		}
	}

	breakdown, err := ComputeBreakdown(Quote{
		Property:      *property,
		Range:         r,
		GuestCount:    guestCount,
		RateTable:     table,
		CouponCode:    couponCode,
		CouponPercent: couponPercent,
	})
	if err != nil {
		return nil, err
	}
	return &breakdown, nil
}

func (s *DefaultQuoteService) DisplayIn(b models.PricingBreakdown, currency string) (*models.DisplayPrice, error) {
	rate := s.Rate
	if rate == nil {
		rate = utils.ExchangeRate
	}
	display, err := Display(b, currency, rate)
	if err != nil {
		return nil, err
	}
	return &display, nil
}
