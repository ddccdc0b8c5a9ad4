package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"innkeep/config"
	propertyRepo "innkeep/database/repository/property"
	"innkeep/models"
	holdsvc "innkeep/services/hold"
	"innkeep/services/reservation"
	"innkeep/services/tasks"
	"innkeep/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// InitNotificationWorker runs the async notification worker in background.
func InitNotificationWorker() {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSendNotification, handleNotificationTask)

	// Start async worker with retry logic
	go func() {
		log.Println("[NotifyWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[NotifyWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[NotifyWorker] max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleNotificationTask(ctx context.Context, task *asynq.Task) error {
	logger := utils.GetLogger()

	var p models.NotificationPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		logger.Error("invalid notification payload", zap.Error(err))
		return err
	}

	// Delivery is a log line for now. Swapping in an email or push provider
	// only touches this handler.
	logger.Info("notification delivered",
		zap.String("target", p.Target),
		zap.String("email", p.Email),
		zap.String("property", p.PropertySlug),
		zap.String("bookingID", p.BookingID),
		zap.String("subject", p.Subject),
		zap.String("body", p.Body))
	return nil
}

// StartSweeps runs the periodic maintenance loops: expiring lapsed holds,
// reclaiming unpaid pending bookings, completing past stays, and reconciling
// the calendar index against reservation records.
func StartSweeps(ctx context.Context, reservations reservation.Service, holds holdsvc.Manager, properties propertyRepo.PropertyRepository) {
	interval := time.Duration(config.AppConfig.SweepIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	go func() {
		logger := utils.GetLogger()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("sweep loop stopped")
				return
			case <-ticker.C:
				runSweeps(ctx, reservations, holds, properties)
			}
		}
	}()
}

func runSweeps(ctx context.Context, reservations reservation.Service, holds holdsvc.Manager, properties propertyRepo.PropertyRepository) {
	logger := utils.GetLogger()

	sweepCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if n, err := holds.SweepExpired(sweepCtx); err != nil {
		logger.Error("hold expiry sweep failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("expired holds released", zap.Int("count", n))
	}

	if n, err := reservations.SweepPendingTimeouts(sweepCtx); err != nil {
		logger.Error("pending timeout sweep failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("timed-out pending bookings released", zap.Int("count", n))
	}

	if n, err := reservations.SweepCompleted(sweepCtx); err != nil {
		logger.Error("completion sweep failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("past stays marked completed", zap.Int("count", n))
	}

	slugs, err := properties.ListSlugs(sweepCtx)
	if err != nil {
		logger.Error("failed to list properties for reconciliation", zap.Error(err))
		return
	}
	for _, slug := range slugs {
		if err := reservations.Reconcile(sweepCtx, slug); err != nil {
			logger.Error("reconciliation failed",
				zap.String("property", slug), zap.Error(err))
		}
	}
}
