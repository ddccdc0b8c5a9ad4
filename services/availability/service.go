package availability

import (
	"context"
	"time"

	calendarRepo "innkeep/database/repository/calendar"
	"innkeep/models"
	"innkeep/utils"
)

// maxSuggestions caps how many alternative ranges a conflict answer carries.
const maxSuggestions = 3

// QueryService is the read-only availability façade. It layers the
// "no dates before today" rule and alternative-range suggestions on top of
// raw calendar lookups.
type QueryService interface {
	CheckAvailability(ctx context.Context, propertySlug string, r models.DateRange) (*models.AvailabilityResult, error)
	UnavailableDates(ctx context.Context, propertySlug string, horizonMonths int) ([]string, error)
}

// DefaultQueryService implements QueryService.
type DefaultQueryService struct {
	Calendar calendarRepo.CalendarRepository
	Clock    func() time.Time // Defaults to time.Now
}

func (s *DefaultQueryService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *DefaultQueryService) CheckAvailability(ctx context.Context, propertySlug string, r models.DateRange) (*models.AvailabilityResult, error) {
	today := models.Midnight(s.now())
	if r.CheckIn.Before(today) {
		return nil, utils.NewDomainError(utils.KindValidation,
			"check-in %s is in the past", r.CheckIn.Format(models.DateLayout))
	}

	conflicts, err := s.Calendar.ConflictingDates(ctx, propertySlug, r)
	if err != nil {
		return nil, err
	}
	if len(conflicts) == 0 {
		return &models.AvailabilityResult{IsAvailable: true}, nil
	}

	suggestions, err := s.suggestAlternatives(ctx, propertySlug, r, conflicts, today)
	if err != nil {
		return nil, err
	}
	return &models.AvailabilityResult{
		IsAvailable:      false,
		ConflictingDates: conflicts,
		Suggestions:      suggestions,
	}, nil
}

// suggestAlternatives proposes up to three conflict-free ranges of the same
// length: first the range starting right after the conflicting span, then
// fixed +7 day offsets from the original request.
func (s *DefaultQueryService) suggestAlternatives(ctx context.Context, propertySlug string, r models.DateRange, conflicts []string, today time.Time) ([]models.DateRange, error) {
	var candidates []models.DateRange

	lastConflict, err := time.ParseInLocation(models.DateLayout, conflicts[len(conflicts)-1], time.UTC)
	if err == nil {
		candidates = append(candidates, r.StartingAt(lastConflict.AddDate(0, 0, 1)))
	}
	for offset := 7; offset <= 7*4; offset += 7 {
		candidates = append(candidates, r.Shift(offset))
	}

	var suggestions []models.DateRange
	for _, candidate := range candidates {
		if len(suggestions) == maxSuggestions {
			break
		}
		if candidate.CheckIn.Before(today) {
			continue
		}
		clash, err := s.Calendar.ConflictingDates(ctx, propertySlug, candidate)
		if err != nil {
			return nil, err
		}
		if len(clash) == 0 && !containsRange(suggestions, candidate) {
			suggestions = append(suggestions, candidate)
		}
	}
	return suggestions, nil
}

func containsRange(ranges []models.DateRange, r models.DateRange) bool {
	for _, existing := range ranges {
		if existing.CheckIn.Equal(r.CheckIn) && existing.CheckOut.Equal(r.CheckOut) {
			return true
		}
	}
	return false
}

func (s *DefaultQueryService) UnavailableDates(ctx context.Context, propertySlug string, horizonMonths int) ([]string, error) {
	if horizonMonths < 1 {
		return nil, utils.NewDomainError(utils.KindValidation,
			"horizon must be at least 1 month, got %d", horizonMonths)
	}
	// Past dates are never "occupied" from a booking standpoint; the window
	// starts today.
	from := models.Midnight(s.now())
	to := from.AddDate(0, horizonMonths, 0)
	return s.Calendar.OccupiedDates(ctx, propertySlug, from, to)
}
