package calendarRepo

import (
	"context"
	"sync"
	"time"

	"innkeep/models"
)

// propertyLockStore holds one mutex per property slug.
type propertyLockStore struct {
	locks map[string]*sync.Mutex
	mu    sync.Mutex
}

func (s *propertyLockStore) get(slug string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, exists := s.locks[slug]
	if !exists {
		lock = &sync.Mutex{}
		s.locks[slug] = lock
	}
	return lock
}

// SerializedCalendar wraps a CalendarRepository so that all Reserve, Release
// and Rekey calls for the same property run one at a time within this
// process. The storage layer's unique-key insert stays the cross-process
// guarantee; the mutex keeps in-process contenders from hammering it.
type SerializedCalendar struct {
	inner CalendarRepository
	locks *propertyLockStore
}

func NewSerializedCalendar(inner CalendarRepository) *SerializedCalendar {
	return &SerializedCalendar{
		inner: inner,
		locks: &propertyLockStore{locks: make(map[string]*sync.Mutex)},
	}
}

func (c *SerializedCalendar) Reserve(ctx context.Context, propertySlug string, r models.DateRange, reservationID string) error {
	lock := c.locks.get(propertySlug)
	lock.Lock()
	defer lock.Unlock()
	return c.inner.Reserve(ctx, propertySlug, r, reservationID)
}

func (c *SerializedCalendar) Release(ctx context.Context, propertySlug, reservationID string) error {
	lock := c.locks.get(propertySlug)
	lock.Lock()
	defer lock.Unlock()
	return c.inner.Release(ctx, propertySlug, reservationID)
}

func (c *SerializedCalendar) Rekey(ctx context.Context, propertySlug, fromID, toID string) error {
	lock := c.locks.get(propertySlug)
	lock.Lock()
	defer lock.Unlock()
	return c.inner.Rekey(ctx, propertySlug, fromID, toID)
}

func (c *SerializedCalendar) ConflictingDates(ctx context.Context, propertySlug string, r models.DateRange) ([]string, error) {
	return c.inner.ConflictingDates(ctx, propertySlug, r)
}

func (c *SerializedCalendar) OccupiedDates(ctx context.Context, propertySlug string, from, to time.Time) ([]string, error) {
	return c.inner.OccupiedDates(ctx, propertySlug, from, to)
}

func (c *SerializedCalendar) ReservationIDs(ctx context.Context, propertySlug string) ([]string, error) {
	return c.inner.ReservationIDs(ctx, propertySlug)
}
