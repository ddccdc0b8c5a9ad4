package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"innkeep/models"
	"innkeep/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeSendNotification = "notify:send"

// NewNotificationTask wraps a message payload in an asynq task. Delivery is
// handled by the background worker; callers only schedule.
func NewNotificationTask(payload models.NotificationPayload) (*asynq.Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSendNotification, b), nil
}

// Scheduler schedules guest and host messages for a booking event.
type Scheduler interface {
	ScheduleBookingNotifications(ctx context.Context, booking *models.Booking) error
}

// AsynqScheduler implements Scheduler on an asynq client.
type AsynqScheduler struct {
	Client *asynq.Client
}

func (s *AsynqScheduler) ScheduleBookingNotifications(ctx context.Context, booking *models.Booking) error {
	payloads := []models.NotificationPayload{
		{
			Target:       "guest",
			Email:        booking.Guest.Email,
			PropertySlug: booking.PropertySlug,
			BookingID:    booking.ID,
			Subject:      "Booking confirmed",
			Body: fmt.Sprintf("Your stay at %s from %s is confirmed.",
				booking.PropertySlug, booking.Range),
		},
		{
			Target:       "host",
			PropertySlug: booking.PropertySlug,
			BookingID:    booking.ID,
			Subject:      "New confirmed booking",
			Body: fmt.Sprintf("Booking %s for %s nights %s is confirmed.",
				booking.ID, booking.PropertySlug, booking.Range),
		},
	}

	for _, p := range payloads {
		task, err := NewNotificationTask(p)
		if err != nil {
			return fmt.Errorf("failed to build notification task: %w", err)
		}
		if _, err := s.Client.EnqueueContext(ctx, task); err != nil {
			return fmt.Errorf("failed to enqueue notification: %w", err)
		}
		utils.GetLogger().Debug("notification scheduled",
			zap.String("target", p.Target), zap.String("bookingID", p.BookingID))
	}
	return nil
}
