package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	automationapp "github.com/kontor/backend/internal/application/automation"
	bankingapp "github.com/kontor/backend/internal/application/banking"
	billingapp "github.com/kontor/backend/internal/application/billing"
	companyapp "github.com/kontor/backend/internal/application/company"
	contactapp "github.com/kontor/backend/internal/application/contact"
	"github.com/kontor/backend/internal/application/dashboard"
	invoiceapp "github.com/kontor/backend/internal/application/invoice"
	ledgerapp "github.com/kontor/backend/internal/application/ledger"
	notifyapp "github.com/kontor/backend/internal/application/notification"
	receiptapp "github.com/kontor/backend/internal/application/receipt"
	recurringapp "github.com/kontor/backend/internal/application/recurring"
	referralapp "github.com/kontor/backend/internal/application/referral"
	"github.com/kontor/backend/internal/application/taxexport"
	"github.com/kontor/backend/internal/infrastructure/auth"
	stripebilling "github.com/kontor/backend/internal/infrastructure/billing"
	"github.com/kontor/backend/internal/infrastructure/cache"
	"github.com/kontor/backend/internal/infrastructure/config"
	"github.com/kontor/backend/internal/infrastructure/docai"
	"github.com/kontor/backend/internal/infrastructure/email"
	"github.com/kontor/backend/internal/infrastructure/event"
	"github.com/kontor/backend/internal/infrastructure/finapi"
	"github.com/kontor/backend/internal/infrastructure/logger"
	"github.com/kontor/backend/internal/infrastructure/pdf"
	"github.com/kontor/backend/internal/infrastructure/persistence"
	"github.com/kontor/backend/internal/infrastructure/scheduler"
	"github.com/kontor/backend/internal/infrastructure/storage"
	"github.com/kontor/backend/internal/infrastructure/telemetry"
	"github.com/kontor/backend/internal/interfaces/http/handler"
	"github.com/kontor/backend/internal/interfaces/http/middleware"
	"github.com/kontor/backend/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// notificationDedupTTL bounds how long a delivered event is remembered
const notificationDedupTTL = 24 * time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	// Telemetry: traces, metrics and log export share the collector endpoint
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize log provider", zap.Error(err))
	}
	log = telemetry.NewBridgedLogger(log,
		telemetry.NewZapOTELCore(cfg.Telemetry.ServiceName, loggerProvider, logger.ParseLevel(cfg.Log.Level)))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down log provider", zap.Error(err))
		}
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)
	businessMetrics, err := telemetry.NewBusinessMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}

	log.Info("Starting Kontor API",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel, logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))

	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.NewDBTracingPlugin(cfg.Telemetry, cfg.Database.DBName, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	dbMetrics, err := telemetry.NewDBMetrics(meter, cfg.Telemetry.DBSlowQueryThresh, log)
	if err != nil {
		log.Fatal("Failed to create database metrics", zap.Error(err))
	}
	if err := dbMetrics.Register(db.DB); err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}
	dbMetrics.StartPoolStatsCollection(ctx)
	defer dbMetrics.Stop()
	log.Info("Database connected successfully")

	// Redis is optional; without it idempotency and rate limits are per instance
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis", zap.Error(err))
			}
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}
	idempotencyStore := cache.NewIdempotencyStore(redisClient, log)
	defer func() {
		_ = idempotencyStore.Close()
	}()

	objectStorage, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Initialize repositories
	companyRepo := persistence.NewGormCompanyRepository(db.DB)
	contactRepo := persistence.NewGormContactRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	receiptRepo := persistence.NewGormReceiptRepository(db.DB)
	transactionRepo := persistence.NewGormTransactionRepository(db.DB)
	bankAccountRepo := persistence.NewGormBankAccountRepository(db.DB)
	finAPILinkRepo := persistence.NewGormFinAPILinkRepository(db.DB)
	ruleRepo := persistence.NewGormRuleRepository(db.DB)
	recurringRepo := persistence.NewGormRecurringRepository(db.DB)
	referralRepo := persistence.NewGormReferralRepository(db.DB)
	notificationRepo := persistence.NewGormNotificationRepository(db.DB)
	exportRecordRepo := persistence.NewGormExportRecordRepository(db.DB)
	transactor := persistence.NewGormTransactor(db.DB)

	// External clients. Each one is optional and left nil when unconfigured,
	// the owning service then answers with an "unavailable" error.
	var paymentProvider billingapp.PaymentProvider
	var creditGranter referralapp.CreditGranter
	if cfg.Stripe.Enabled() {
		stripeAdapter, err := stripebilling.NewStripeAdapter(stripebilling.NewStripeConfig(cfg.Stripe, cfg.App.PublicURL), log)
		if err != nil {
			log.Fatal("Failed to initialize Stripe", zap.Error(err))
		}
		paymentProvider = stripeAdapter
		creditGranter = stripeAdapter
	} else {
		log.Warn("Stripe not configured, billing endpoints are disabled")
	}

	var finAPIClient bankingapp.FinAPIClient
	if cfg.FinAPI.Enabled() {
		client, err := finapi.NewClient(cfg.FinAPI, log)
		if err != nil {
			log.Fatal("Failed to initialize FinAPI client", zap.Error(err))
		}
		finAPIClient = client
	} else {
		log.Warn("FinAPI not configured, bank linking is disabled")
	}

	var analyzer receiptapp.Analyzer
	if cfg.AI.Enabled() {
		client, err := docai.NewClient(cfg.AI, log)
		if err != nil {
			log.Fatal("Failed to initialize document analysis client", zap.Error(err))
		}
		analyzer = client
	}

	var renderer invoiceapp.Renderer
	if cfg.PDF.Enabled {
		chrome := pdf.NewChromedpRenderer(cfg.PDF, log)
		defer func() {
			_ = chrome.Close()
		}()
		renderer = pdf.NewInvoiceRenderer(chrome)
	} else {
		log.Warn("PDF rendering disabled, invoices cannot be sent")
	}

	mailer := email.NewSendGridClient(cfg.Email, log)
	if !mailer.Enabled() {
		log.Warn("SendGrid not configured, emails are not delivered")
	}

	referralReward, err := decimal.NewFromString(cfg.Stripe.ReferralReward)
	if err != nil {
		log.Fatal("Invalid referral reward", zap.String("value", cfg.Stripe.ReferralReward), zap.Error(err))
	}

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)

	// Initialize application services
	planGuard := companyapp.NewPlanGuard(companyRepo, invoiceRepo, bankAccountRepo)
	notificationService := notifyapp.NewService(notificationRepo, companyRepo, mailer, cfg.App.PublicURL, log)
	referralService := referralapp.NewService(referralapp.ServiceConfig{
		Referrals: referralRepo,
		Companies: companyRepo,
		Credits:   creditGranter,
		Events:    eventBus,
		Reward:    referralReward,
		PublicURL: cfg.App.PublicURL,
		Logger:    log,
	})
	companyService := companyapp.NewService(companyRepo, referralService, eventBus, log)
	contactService := contactapp.NewService(contactRepo, log)
	invoiceService := invoiceapp.NewService(invoiceapp.ServiceConfig{
		Invoices:  invoiceRepo,
		Contacts:  contactRepo,
		Companies: companyRepo,
		Limits:    planGuard,
		Renderer:  renderer,
		Storage:   objectStorage,
		Mailer:    mailer,
		Events:    eventBus,
		Metrics:   businessMetrics,
		Logger:    log,
	})
	receiptService := receiptapp.NewService(receiptRepo, transactionRepo, objectStorage, analyzer, log)
	ledgerService := ledgerapp.NewService(ledgerapp.ServiceConfig{
		Transactions: transactionRepo,
		Companies:    companyRepo,
		Contacts:     contactRepo,
		Accounts:     bankAccountRepo,
		Receipts:     receiptRepo,
		Invoices:     invoiceService,
		Events:       eventBus,
		Tx:           transactor,
		Logger:       log,
	})
	automationService := automationapp.NewService(ruleRepo, transactionRepo, companyRepo, eventBus, log)
	bankingService := bankingapp.NewService(bankingapp.ServiceConfig{
		Accounts:       bankAccountRepo,
		Links:          finAPILinkRepo,
		Transactions:   transactionRepo,
		FinAPI:         finAPIClient,
		Rules:          automationService,
		Notifier:       notificationService,
		Limits:         planGuard,
		Events:         eventBus,
		Metrics:        businessMetrics,
		Logger:         log,
		MaxConcurrency: cfg.FinAPI.MaxConcurrency,
	})
	recurringService := recurringapp.NewService(recurringapp.ServiceConfig{
		Recurring:    recurringRepo,
		Transactions: transactionRepo,
		Companies:    companyRepo,
		Accounts:     bankAccountRepo,
		Events:       eventBus,
		Metrics:      businessMetrics,
		Tx:           transactor,
		Logger:       log,
	})
	exportService := taxexport.NewService(taxexport.ServiceConfig{
		Transactions: transactionRepo,
		Companies:    companyRepo,
		Invoices:     invoiceRepo,
		Receipts:     receiptRepo,
		Records:      exportRecordRepo,
		Storage:      objectStorage,
		Metrics:      businessMetrics,
		Logger:       log,
		HerstellerID: cfg.Export.HerstellerID,
		ELSTERTest:   cfg.Export.ELSTERTest,
	})
	billingService := billingapp.NewService(billingapp.ServiceConfig{
		Companies:   companyRepo,
		Provider:    paymentProvider,
		Idempotency: idempotencyStore,
		Referrals:   referralService,
		Usage:       planGuard,
		Notifier:    notificationService,
		Events:      eventBus,
		Metrics:     businessMetrics,
		Logger:      log,
	})
	dashboardService := dashboard.NewService(transactionRepo, invoiceRepo, bankAccountRepo, log)

	// Event handlers. Notifications are deduplicated so a redelivered event
	// does not notify twice.
	eventNotifier := event.NewIdempotentHandler(
		notifyapp.NewEventNotifier(notificationService, log),
		idempotencyStore, notificationDedupTTL, log,
	)
	eventBus.Subscribe(eventNotifier)
	log.Info("Event handlers registered",
		zap.Strings("notification_events", eventNotifier.EventTypes()),
	)

	// Start event bus
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := eventBus.Stop(stopCtx); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Daily jobs: recurring transactions, overdue sweep and bank sync
	if cfg.Scheduler.Enabled {
		var bankSyncer scheduler.BankSyncer
		if finAPIClient != nil {
			bankSyncer = bankingService
		}
		executor := scheduler.NewDailyExecutor(recurringService, invoiceService, bankSyncer, log)
		jobScheduler := scheduler.NewScheduler(cfg.Scheduler, executor, log)
		if err := jobScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			if err := jobScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()

		trigger, err := scheduler.NewDailyTrigger(cfg.Scheduler, jobScheduler, companyRepo, log)
		if err != nil {
			log.Fatal("Failed to create daily trigger", zap.Error(err))
		}
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start daily trigger", zap.Error(err))
		}
		defer func() {
			if err := trigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping daily trigger", zap.Error(err))
			}
		}()
		log.Info("Scheduler started",
			zap.String("daily_at", cfg.Scheduler.DailyAt),
			zap.Int("concurrency", cfg.Scheduler.Concurrency),
		)
	}

	// Initialize HTTP handlers
	companyHandler := handler.NewCompanyHandler(companyService)
	contactHandler := handler.NewContactHandler(contactService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	receiptHandler := handler.NewReceiptHandler(receiptService)
	transactionHandler := handler.NewTransactionHandler(ledgerService)
	bankAccountHandler := handler.NewBankAccountHandler(bankingService)
	recurringHandler := handler.NewRecurringHandler(recurringService)
	automationHandler := handler.NewAutomationHandler(automationService)
	exportHandler := handler.NewExportHandler(exportService)
	billingHandler := handler.NewBillingHandler(billingService)
	referralHandler := handler.NewReferralHandler(referralService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	systemHandler := handler.NewSystemHandler(version, readinessChecks(db, redisClient))

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - Request spans
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. Metrics - Request counters and latency
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	securityConfig := middleware.DefaultSecurityConfig()
	securityConfig.HSTSEnabled = cfg.App.Env == "production"
	engine.Use(middleware.SecureWithConfig(securityConfig))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize, cfg.HTTP.MaxUploadSize))
	engine.Use(middleware.HTTPMetrics(meterProvider))

	// Health checks (outside API versioning)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	// Tenant routes: bearer token, tenant from the token claims, then rate limiting per tenant
	tenantChain := []gin.HandlerFunc{
		middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			Validator: auth.NewJWTService(cfg.JWT),
			Logger:    log,
		}),
		middleware.TenantMiddleware(),
	}
	if cfg.HTTP.RateLimitEnabled {
		limiter := cache.NewRateLimiter(redisClient, cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		tenantChain = append(tenantChain, middleware.RateLimit(limiter, log))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
			zap.Bool("shared", redisClient != nil),
		)
	}
	tenantChain = append(tenantChain, middleware.SpanEnricher())

	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithTenantMiddleware(tenantChain...),
		router.WithServiceMiddleware(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			Validator:      auth.NewJWTService(cfg.JWT),
			RequireService: true,
			Logger:         log,
		})),
	)

	// Stripe calls the webhook without a bearer token; the signature authenticates it
	webhookRoutes := router.NewDomainGroup("billing", "/billing")
	webhookRoutes.POST("/webhook", billingHandler.Webhook)
	r.RegisterPublic(webhookRoutes)

	// Company provisioning by the identity provider after signup
	provisioningRoutes := router.NewDomainGroup("companies", "/companies")
	provisioningRoutes.POST("", companyHandler.Register)
	r.RegisterService(provisioningRoutes)

	r.Register(companyHandler).
		Register(contactHandler).
		Register(invoiceHandler).
		Register(receiptHandler).
		Register(transactionHandler).
		Register(bankAccountHandler).
		Register(recurringHandler).
		Register(automationHandler).
		Register(exportHandler).
		Register(billingHandler).
		Register(referralHandler).
		Register(notificationHandler).
		Register(dashboardHandler).
		Register(systemHandler)

	// Setup routes
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// readinessChecks lists the dependencies /ready verifies
func readinessChecks(db *persistence.Database, redisClient *redis.Client) map[string]handler.CheckFunc {
	checks := map[string]handler.CheckFunc{
		"database": db.Ping,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
