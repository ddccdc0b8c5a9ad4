// File: innkeep/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"innkeep/config"
	"innkeep/cron"
	"innkeep/database"
	bookingRepoPkg "innkeep/database/repository/booking"
	calendarRepoPkg "innkeep/database/repository/calendar"
	couponRepoPkg "innkeep/database/repository/coupon"
	holdRepoPkg "innkeep/database/repository/hold"
	propertyRepoPkg "innkeep/database/repository/property"
	ratesRepoPkg "innkeep/database/repository/rates"
	"innkeep/handlers"
	"innkeep/routes"
	"innkeep/services/availability"
	couponSvc "innkeep/services/coupon"
	holdSvc "innkeep/services/hold"
	"innkeep/services/payment"
	"innkeep/services/pricing"
	"innkeep/services/reservation"
	sessionSvc "innkeep/services/session"
	"innkeep/services/tasks"
	"innkeep/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()
	stripe.Key = config.AppConfig.StripeKey

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// repositories.
	propertyRepo := propertyRepoPkg.NewMongoPropertyRepo()
	bookingRepo := bookingRepoPkg.NewMongoBookingRepo()
	holdRepo := holdRepoPkg.NewMongoHoldRepo()
	couponRepo := couponRepoPkg.NewMongoCouponRepo()
	ratesRepo := ratesRepoPkg.NewMongoRateTableRepo(utils.GetRatesCacheClient())
	calendarRepo := calendarRepoPkg.NewSerializedCalendar(calendarRepoPkg.NewMongoCalendarRepo())

	// services.
	couponValidator := &couponSvc.DefaultValidator{Repo: couponRepo}
	quoteService := &pricing.DefaultQuoteService{
		Properties: propertyRepo,
		Rates:      ratesRepo,
		Coupons:    couponValidator,
		Rate:       utils.ExchangeRate,
	}
	availabilityService := &availability.DefaultQueryService{
		Calendar: calendarRepo,
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskDB,
	})
	defer asynqClient.Close()
	notifier := &tasks.AsynqScheduler{Client: asynqClient}

	holdManager := &holdSvc.DefaultManager{
		Holds:      holdRepo,
		Bookings:   bookingRepo,
		Calendar:   calendarRepo,
		Properties: propertyRepo,
		Pricer:     quoteService,
	}
	reservationService := &reservation.DefaultService{
		Bookings:   bookingRepo,
		Holds:      holdRepo,
		Calendar:   calendarRepo,
		Properties: propertyRepo,
		Pricer:     quoteService,
		Coupons:    couponValidator,
		Notifier:   notifier,
		PendingTTL: time.Duration(config.AppConfig.PendingTTLMinutes) * time.Minute,
	}
	bookingSessionService := &sessionSvc.DefaultService{
		Cache: utils.GetSessionCacheClient(),
		TTL:   time.Duration(config.AppConfig.SessionTTLMinutes) * time.Minute,
	}
	checkoutService := &payment.StripeCheckout{}

	// Assemble the handler bundle.
	handlerBundle := handlers.NewHandlerBundle(
		handlers.NewAvailabilityHandler(availabilityService),
		handlers.NewPricingHandler(quoteService),
		handlers.NewSessionHandler(bookingSessionService, quoteService),
		handlers.NewBookingHandler(reservationService, bookingSessionService, checkoutService, logger),
		handlers.NewHoldHandler(holdManager, checkoutService, logger),
		handlers.NewPaymentWebhookHandler(reservationService, holdManager, logger),
	)

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Background workers: notification delivery and the maintenance sweeps.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	cron.InitNotificationWorker()
	cron.StartSweeps(workerCtx, reservationService, holdManager, propertyRepo)

	utils.StartHealthMonitor(
		[]*redis.Client{utils.GetSessionCacheClient(), utils.GetRatesCacheClient()},
		database.MongoClient,
	)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	stopWorkers()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
