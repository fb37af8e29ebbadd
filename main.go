package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lenslink/config"
	"lenslink/cron"
	"lenslink/database"
	bookingRepo "lenslink/database/repository/booking"
	requestRepo "lenslink/database/repository/bookingrequest"
	"lenslink/database/repository/memory"
	packageRepo "lenslink/database/repository/servicepackage"
	userRepo "lenslink/database/repository/user"
	vendorRepo "lenslink/database/repository/vendor"
	"lenslink/database/seed"
	"lenslink/handlers"
	"lenslink/middleware"
	"lenslink/routes"
	"lenslink/services/booking"
	"lenslink/services/notification"
	"lenslink/services/payment"
	"lenslink/services/tasks"
	"lenslink/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	deps := booking.Deps{
		Policy:   policyFromConfig(),
		Currency: config.AppConfig.Currency,
		Logger:   logger.Named("booking"),
	}

	// Stores. Memory mode runs without MongoDB and Redis, for local demos.
	var (
		mongoClient  *mongo.Client
		redisClients []*redis.Client
		lease        booking.Locker
	)
	if config.UseMemoryStore() {
		store := memory.NewStore()
		if err := seed.Demo(3, 5, time.Now()).Load(rootCtx, seed.MemorySink{Store: store}); err != nil {
			logger.Fatal("main: failed to seed memory store", zap.Error(err))
		}
		deps.Users, deps.Vendors, deps.Packages = store.Users(), store.Vendors(), store.Packages()
		deps.Requests, deps.Bookings, deps.Tx = store.Requests(), store.Bookings(), store
		locker := memory.NewLocker()
		deps.Locker, lease = locker, locker
		logger.Warn("main: using in-memory store, data is lost on restart")
	} else {
		db, err := database.InitDB(logger)
		if err != nil {
			logger.Fatal("main: failed to connect to MongoDB", zap.Error(err))
		}
		mongoClient = database.MongoClient
		deps.Users = userRepo.NewMongoUserRepo(db, logger)
		deps.Vendors = vendorRepo.NewMongoVendorRepo(db, logger)
		deps.Packages = packageRepo.NewMongoPackageRepo(db, logger)
		deps.Requests = requestRepo.NewMongoRequestRepo(db, logger)
		deps.Bookings = bookingRepo.NewMongoBookingRepo(db, logger)
		deps.Tx = database.NewMongoTransactor(mongoClient)

		utils.InitRedis()
		redisClients = []*redis.Client{utils.GetCacheClient(), utils.GetLockClient()}
		deps.Locker = utils.NewRedisLocker(utils.GetLockClient(), logger)
		lease = utils.NewRedisLocker(utils.GetCacheClient(), logger)
	}

	gateway, err := payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:     config.AppConfig.StripeKey,
		WebhookSecret: config.AppConfig.StripeWebhookKey,
		SuccessURL:    config.AppConfig.CheckoutSuccessURL,
		CancelURL:     config.AppConfig.CheckoutCancelURL,
		Timeout:       config.AppConfig.GatewayTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("main: failed to initialize payment gateway", zap.Error(err))
	}
	deps.Gateway = gateway
	deps.Notifier = newNotifier(rootCtx, deps.Users, deps.Vendors, logger)

	var queueClient *asynq.Client
	if !config.UseMemoryStore() {
		queueClient = asynq.NewClient(cron.QueueRedisOpt())
		deps.Scheduler = tasks.NewAsynqScheduler(queueClient, logger.Named("reminders"))
	}

	bookingService, err := booking.NewBookingService(deps)
	if err != nil {
		logger.Fatal("main: failed to create booking service", zap.Error(err))
	}

	sweeper := cron.NewSweeper(bookingService, lease, config.AppConfig.SweepInterval, logger)
	sweeper.Start(rootCtx)

	var worker *cron.Worker
	if queueClient != nil {
		worker, err = cron.NewWorker(bookingService, sweeper, config.AppConfig.SweepCron, logger)
		if err != nil {
			logger.Fatal("main: failed to create worker", zap.Error(err))
		}
		worker.Start(rootCtx)
	}

	utils.StartHealthMonitor(rootCtx, redisClients, mongoClient)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin, logger))

	handlerBundle := &handlers.HandlerBundle{
		Booking: handlers.NewBookingHandler(bookingService),
		Payment: handlers.NewPaymentHandler(bookingService, gateway),
		Health:  handlers.HealthHandler,
	}
	routes.RegisterRoutes(router, handlerBundle, config.AppConfig.AllowedOrigins)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              "0.0.0.0:" + port,
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
	logger.Sugar().Info("main: server is shutting down...")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}
	if worker != nil {
		worker.Shutdown()
	}
	if queueClient != nil {
		if err := queueClient.Close(); err != nil {
			logger.Warn("main: closing queue client", zap.Error(err))
		}
	}
	for _, c := range redisClients {
		_ = c.Close()
	}
	if err := database.CloseDB(ctx); err != nil {
		logger.Warn("main: closing MongoDB", zap.Error(err))
	}

	logger.Sugar().Info("main: server stopped gracefully")
}

// policyFromConfig applies non-zero overrides on top of the default policy.
func policyFromConfig() booking.Policy {
	p := booking.DefaultPolicy()
	cfg := config.AppConfig
	if cfg.MinLeadTimeDays > 0 {
		p.MinLeadTimeDays = cfg.MinLeadTimeDays
	}
	if cfg.AdvanceDueDays > 0 {
		p.AdvanceDueDays = cfg.AdvanceDueDays
	}
	if cfg.FinalPaymentGraceDays > 0 {
		p.FinalPaymentGraceDays = cfg.FinalPaymentGraceDays
	}
	if cfg.LockTTL > 0 {
		p.LockTTL = cfg.LockTTL
	}
	if cfg.GatewayTimeout > 0 {
		p.GatewayTimeout = cfg.GatewayTimeout
	}
	return p
}

// newNotifier returns an FCM notifier when credentials are configured and a
// logging notifier otherwise.
func newNotifier(ctx context.Context, users booking.UserStore, vendors booking.VendorStore, logger *zap.Logger) booking.Notifier {
	if !config.FirebaseEnabled() {
		logger.Info("main: FCM disabled, notifications are logged only")
		return notification.NewLogNotifier(logger)
	}
	client, err := utils.FirebaseInit(ctx)
	if err != nil {
		logger.Fatal("main: failed to initialize Firebase", zap.Error(err))
	}
	notifier, err := notification.NewPushNotifier(users, vendors, client, logger.Named("notification"))
	if err != nil {
		logger.Fatal("main: failed to create notifier", zap.Error(err))
	}
	return notifier
}
