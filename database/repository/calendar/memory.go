package calendarRepo

import (
	"context"
	"sync"
	"time"

	"innkeep/models"
	"innkeep/utils"
)

// MemoryCalendarRepo is an in-memory CalendarRepository for tests and local
// development. Reserve performs the same atomic check-and-insert contract as
// the Mongo implementation, guarded by a single mutex.
type MemoryCalendarRepo struct {
	mu   sync.Mutex
	days map[string]models.CalendarDay // keyed by CalendarDayID
}

func NewMemoryCalendarRepo() *MemoryCalendarRepo {
	return &MemoryCalendarRepo{days: make(map[string]models.CalendarDay)}
}

func (m *MemoryCalendarRepo) Reserve(_ context.Context, propertySlug string, r models.DateRange, reservationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dates := r.Dates()
	for _, date := range dates {
		if _, taken := m.days[models.CalendarDayID(propertySlug, date)]; taken {
			return utils.NewDomainError(utils.KindConflict,
				"dates %s are no longer available for property %s", r, propertySlug)
		}
	}
	now := time.Now()
	for _, date := range dates {
		id := models.CalendarDayID(propertySlug, date)
		m.days[id] = models.CalendarDay{
			ID:            id,
			PropertySlug:  propertySlug,
			Date:          date,
			ReservationID: reservationID,
			ReservedAt:    now,
		}
	}
	return nil
}

func (m *MemoryCalendarRepo) Release(_ context.Context, propertySlug, reservationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, day := range m.days {
		if day.PropertySlug == propertySlug && day.ReservationID == reservationID {
			delete(m.days, id)
		}
	}
	return nil
}

func (m *MemoryCalendarRepo) Rekey(_ context.Context, propertySlug, fromID, toID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, day := range m.days {
		if day.PropertySlug == propertySlug && day.ReservationID == fromID {
			day.ReservationID = toID
			m.days[id] = day
		}
	}
	return nil
}

func (m *MemoryCalendarRepo) ConflictingDates(_ context.Context, propertySlug string, r models.DateRange) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var dates []string
	for _, date := range r.Dates() {
		if _, taken := m.days[models.CalendarDayID(propertySlug, date)]; taken {
			dates = append(dates, date)
		}
	}
	return dates, nil
}

func (m *MemoryCalendarRepo) OccupiedDates(_ context.Context, propertySlug string, from, to time.Time) ([]string, error) {
	window := models.DateRange{CheckIn: models.Midnight(from), CheckOut: models.Midnight(to)}
	return m.ConflictingDates(context.Background(), propertySlug, window)
}

func (m *MemoryCalendarRepo) ReservationIDs(_ context.Context, propertySlug string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool)
	var ids []string
	for _, day := range m.days {
		if day.PropertySlug == propertySlug && !seen[day.ReservationID] {
			seen[day.ReservationID] = true
			ids = append(ids, day.ReservationID)
		}
	}
	return ids, nil
}
