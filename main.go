package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"seatbook/config"
	"seatbook/database"
	accountRepo "seatbook/database/repository/account"
	auditRepo "seatbook/database/repository/audit"
	bookingRepo "seatbook/database/repository/booking"
	tripRepo "seatbook/database/repository/trip"
	"seatbook/events"
	"seatbook/handlers"
	"seatbook/middleware"
	"seatbook/routes"
	"seatbook/services/booking"
	"seatbook/services/notifier"
	"seatbook/services/seatlock"
	"seatbook/services/session"
	"seatbook/services/tasks"
	"seatbook/utils"
	"seatbook/worker"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer func() { _ = logger.Sync() }()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	database.InitDB()
	utils.InitRedis()
	defer utils.CloseRedis()

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// repositories.
	bookings := bookingRepo.NewMongoBookingRepo()
	trips := tripRepo.NewMongoTripRepo()
	accounts := accountRepo.NewMongoAccountRepo()
	audits := auditRepo.NewMongoAuditRepo()

	idxCtx, idxCancel := context.WithTimeout(rootCtx, 30*time.Second)
	for name, ensure := range map[string]func(context.Context) error{
		"bookings": bookings.EnsureIndexes,
		"trips":    trips.EnsureIndexes,
		"accounts": accounts.EnsureIndexes,
		"audit":    audits.EnsureIndexes,
	} {
		if err := ensure(idxCtx); err != nil {
			logger.Fatal("main: failed to ensure indexes", zap.String("collection", name), zap.Error(err))
		}
	}
	idxCancel()

	// seat locks.
	locks := seatlock.NewStore(utils.GetLockClient(), logger.Named("seatlock"))
	go locks.RunAudit(rootCtx, config.AppConfig.LockAuditInterval)

	// sessions.
	signer, err := session.NewSigner(config.AppConfig.JWTSecret)
	if err != nil {
		logger.Fatal("main: JWT_SECRET must be set", zap.Error(err))
	}
	authority := session.NewAuthority(utils.GetAuthCacheClient(), signer, logger.Named("session"))

	// change notifier, fanned out across processes through Redis.
	notify := notifier.New(booking.NewOperatorStateProvider(bookings), logger.Named("notifier"))
	relay := notifier.NewRelay(utils.GetLockClient(), notify, logger.Named("relay"))
	if err := relay.Start(rootCtx); err != nil {
		logger.Fatal("main: failed to start notifier relay", zap.Error(err))
	}
	notify.UseRelay(relay)

	// jobs.
	queueOpt := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
	queue := asynq.NewClient(queueOpt)
	defer queue.Close()

	var sink events.Sink = events.NopSink{}
	if brokers := config.KafkaBrokerList(); len(brokers) > 0 {
		producer, err := events.NewProducer(brokers, config.AppConfig.KafkaTopic, logger.Named("kafka"))
		if err != nil {
			logger.Fatal("main: failed to create kafka producer", zap.Error(err))
		}
		sink = producer
	}
	defer sink.Close()

	jobServer := worker.Start(queueOpt, config.AppConfig.WorkerConcurrency, &worker.Handlers{
		Mailer: worker.LogMailer{Logger: logger.Named("mailer")},
		Audit:  audits,
		Events: sink,
		Logger: logger.Named("worker"),
	})

	health := utils.NewHealthMonitor(map[string]utils.Pinger{
		"mongo":       utils.MongoPinger(database.MongoClient),
		"redis:cache": utils.RedisPinger(utils.GetCacheClient()),
		"redis:auth":  utils.RedisPinger(utils.GetAuthCacheClient()),
		"redis:lock":  utils.RedisPinger(utils.GetLockClient()),
	}, time.Minute)
	go health.Run(rootCtx)

	// services.
	bookingService, err := booking.NewDefaultBookingService(booking.DefaultBookingService{
		Repo:     bookings,
		Trips:    trips,
		Locks:    locks,
		Cache:    booking.NewRedisReadCache(utils.GetCacheClient()),
		Notifier: notify,
		Jobs:     tasks.NewAsynqDispatcher(queue),
		Logger:   logger.Named("booking"),
		LockTTL:  config.AppConfig.SeatLockTTL,
		CacheTTL: config.AppConfig.CacheTTL,
	})
	if err != nil {
		logger.Fatal("main: failed to build booking service", zap.Error(err))
	}

	authHandler := handlers.NewAuthHandler(accounts, authority, config.AppConfig.BearerTTL, config.IsProduction())
	bookingHandler := handlers.NewBookingHandler(bookingService)
	tripHandler := handlers.NewTripHandler(trips)
	streamHandler := handlers.NewStreamHandler(notify, config.AppConfig.SSEHeartbeatInterval)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		Sessions: authority,

		Register: authHandler.Register,
		Login:    authHandler.Login,
		Logout:   authHandler.Logout,
		Me:       authHandler.Me,

		CreateBooking:    bookingHandler.CreateBooking,
		CancelBooking:    bookingHandler.CancelBooking,
		MyBookings:       bookingHandler.MyBookings,
		TripAvailability: bookingHandler.TripAvailability,

		UpsertTrip:     tripHandler.UpsertTrip,
		OperatorStream: streamHandler.OperatorStream,

		Health: handlers.NewHealthHandler(health).Health,
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin))
	routes.RegisterRoutes(router, handlerBundle)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + config.AppConfig.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
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
	logger.Info("main: server is shutting down...")

	// Open streams end when their subscription closes.
	notify.Close()
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}
	jobServer.Shutdown()
	if err := database.Disconnect(ctx); err != nil {
		logger.Warn("main: mongo disconnect failed", zap.Error(err))
	}

	logger.Info("main: server stopped gracefully")
}
