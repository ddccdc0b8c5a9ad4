package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"innkeep/models"
	"innkeep/utils"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Service manages the BookingSession carried across the guest flow: dates
// and guest identity chosen step by step, stored in Redis with a TTL so an
// abandoned flow simply evaporates.
type Service interface {
	Initiate(ctx context.Context, propertySlug string, r models.DateRange, guestCount int) (*models.BookingSession, error)
	Get(ctx context.Context, sessionID string) (*models.BookingSession, error)
	// Update overwrites the mutable parts of a session (guest info, coupon,
	// latest quote) and refreshes its TTL.
	Update(ctx context.Context, s *models.BookingSession) error
	Cancel(ctx context.Context, sessionID string) error
}

// DefaultService implements Service on a Redis client.
type DefaultService struct {
	Cache *redis.Client
	TTL   time.Duration
}

func (s *DefaultService) ttl() time.Duration {
	if s.TTL <= 0 {
		return 30 * time.Minute
	}
	return s.TTL
}

func (s *DefaultService) key(sessionID string) string {
	return "session:" + sessionID
}

func (s *DefaultService) Initiate(ctx context.Context, propertySlug string, r models.DateRange, guestCount int) (*models.BookingSession, error) {
	sess := &models.BookingSession{
		SessionID:    uuid.New().String(),
		PropertySlug: propertySlug,
		Range:        r,
		GuestCount:   guestCount,
		CreatedAt:    time.Now(),
	}
	if err := s.store(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *DefaultService) Get(ctx context.Context, sessionID string) (*models.BookingSession, error) {
	data, err := s.Cache.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		return nil, utils.NewDomainError(utils.KindNotFound,
			"booking session %s not found or expired", sessionID)
	}
	var sess models.BookingSession
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("failed to parse booking session: %w", err)
	}
	return &sess, nil
}

func (s *DefaultService) Update(ctx context.Context, sess *models.BookingSession) error {
	// Refuses to resurrect an expired session.
	if _, err := s.Get(ctx, sess.SessionID); err != nil {
		return err
	}
	return s.store(ctx, sess)
}

func (s *DefaultService) Cancel(ctx context.Context, sessionID string) error {
	if err := s.Cache.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete booking session: %w", err)
	}
	return nil
}

func (s *DefaultService) store(ctx context.Context, sess *models.BookingSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal booking session: %w", err)
	}
	if err := s.Cache.Set(ctx, s.key(sess.SessionID), data, s.ttl()).Err(); err != nil {
		return fmt.Errorf("failed to store booking session: %w", err)
	}
	return nil
}
