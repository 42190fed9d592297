package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	alertingapp "github.com/chantier/backend/internal/application/alerting"
	auditapp "github.com/chantier/backend/internal/application/audit"
	billingapp "github.com/chantier/backend/internal/application/billing"
	budgetapp "github.com/chantier/backend/internal/application/budget"
	companyapp "github.com/chantier/backend/internal/application/company"
	costingapp "github.com/chantier/backend/internal/application/costing"
	appevent "github.com/chantier/backend/internal/application/event"
	purchasingapp "github.com/chantier/backend/internal/application/purchasing"
	domainacl "github.com/chantier/backend/internal/domain/shared/acl"
	"github.com/chantier/backend/internal/infrastructure/acl"
	"github.com/chantier/backend/internal/infrastructure/auth"
	"github.com/chantier/backend/internal/infrastructure/cache"
	"github.com/chantier/backend/internal/infrastructure/config"
	"github.com/chantier/backend/internal/infrastructure/event"
	"github.com/chantier/backend/internal/infrastructure/logger"
	"github.com/chantier/backend/internal/infrastructure/persistence"
	"github.com/chantier/backend/internal/infrastructure/telemetry"
	"github.com/chantier/backend/internal/interfaces/http/handler"
	"github.com/chantier/backend/internal/interfaces/http/middleware"
	"github.com/chantier/backend/internal/interfaces/http/router"
)

//	@title			Chantier Ledger API
//	@version		1.0
//	@description	Financial ledger for construction sites: purchases, budget engagement, situations de travaux, invoicing and margin tracking.

//	@contact.name	API Support
//	@contact.url	https://github.com/chantier/backend

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    "chantier-ledger",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Chantier Ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := persistence.RegisterAuditGuards(db.DB); err != nil {
		log.Fatal("Failed to register audit trail guards", zap.Error(err))
	}

	// Initialize telemetry (tracing, metrics, profiling)
	var businessMetrics *telemetry.BusinessMetrics
	var meterProvider *telemetry.MeterProvider
	var profilingActive bool
	if cfg.Telemetry.Enabled {
		tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
			Enabled:           true,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			SamplingRatio:     cfg.Telemetry.SamplingRatio,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize tracer provider", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				log.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()

		meterProvider, err = telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
			Enabled:           true,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize meter provider", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := meterProvider.Shutdown(shutdownCtx); err != nil {
				log.Error("Error shutting down meter provider", zap.Error(err))
			}
		}()
		meter := meterProvider.Meter("chantier-ledger")

		// Database query tracing
		if cfg.Telemetry.DBTraceEnabled {
			tracingPlugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
				Enabled:          true,
				LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
				SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
				DBSystem:         "postgresql",
				WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
			}, log)
			if err := tracingPlugin.RegisterOtelGorm(db.DB); err != nil {
				log.Warn("Failed to register database tracing", zap.Error(err))
			}
		}

		// Database connection pool and query metrics
		dbMetricsCfg := telemetry.DefaultDBMetricsConfig()
		dbMetricsCfg.Enabled = true
		dbMetricsCfg.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
		dbMetrics, err := telemetry.NewDBMetrics(meter, dbMetricsCfg, log)
		if err != nil {
			log.Warn("Failed to initialize database metrics", zap.Error(err))
		} else if err := db.DB.Use(telemetry.NewDBMetricsPlugin(dbMetrics, log)); err != nil {
			log.Warn("Failed to register database metrics plugin", zap.Error(err))
		}

		// Business metrics with periodic budget gauge collection
		businessMetrics, err = telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:          meter,
			Logger:         log,
			BudgetProvider: telemetry.NewGormBudgetMetricsProvider(db.DB),
		})
		if err != nil {
			log.Fatal("Failed to initialize business metrics", zap.Error(err))
		}
		businessMetrics.StartPeriodicCollection(context.Background(), telemetry.NewGormChantierProvider(db.DB), 0)
		defer businessMetrics.Stop()

		// Continuous profiling
		if cfg.Telemetry.ProfilingEnabled {
			profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
				Enabled:             true,
				ServerAddress:       cfg.Telemetry.PyroscopeEndpoint,
				ApplicationName:     cfg.Telemetry.ServiceName,
				ProfileCPU:          true,
				ProfileAllocObjects: true,
				ProfileAllocSpace:   true,
				ProfileInuseObjects: true,
				ProfileInuseSpace:   true,
				ProfileGoroutines:   true,
			}, log)
			if err != nil {
				log.Warn("Failed to start profiler", zap.Error(err))
			} else {
				profilingActive = true
				defer func() {
					if err := profiler.Stop(); err != nil {
						log.Error("Error stopping profiler", zap.Error(err))
					}
				}()
				if err := tracerProvider.EnableSpanProfiles(); err != nil {
					log.Warn("Failed to enable span profiles", zap.Error(err))
				}
			}
		}

		log.Info("Telemetry initialized",
			zap.String("collector", cfg.Telemetry.CollectorEndpoint),
			zap.Float64("sampling_ratio", cfg.Telemetry.SamplingRatio),
			zap.Bool("db_tracing", cfg.Telemetry.DBTraceEnabled),
			zap.Bool("profiling", profilingActive),
		)
	}

	// Redis backs the chantier state cache. The ledger degrades to direct
	// database reads when Redis is unreachable.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()
	redisAvailable := true
	{
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			redisAvailable = false
			log.Warn("Redis unreachable, chantier state cache disabled", zap.Error(err))
		}
		cancel()
	}

	// Initialize repositories
	achatRepo := persistence.NewGormAchatRepository(db.DB)
	fournisseurRepo := persistence.NewGormFournisseurRepository(db.DB)
	budgetRepo := persistence.NewGormBudgetRepository(db.DB)
	situationRepo := persistence.NewGormSituationRepository(db.DB)
	factureRepo := persistence.NewGormFactureRepository(db.DB)
	alerteRepo := persistence.NewGormAlerteRepository(db.DB)
	configurationRepo := persistence.NewGormConfigurationRepository(db.DB)
	trailRepo := persistence.NewGormTrailRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Anti-corruption layer: chantier state and external costs are owned by
	// other contexts, the ledger only reads them
	var chantierStatus domainacl.ChantierStatusService = acl.NewGormChantierStatusService(db.DB)
	if redisAvailable {
		chantierStatus = acl.NewCachedChantierStatusService(chantierStatus, redisClient, cfg.Chantier.StatutCacheTTL)
	}
	coutProvider := acl.NewGormCoutProvider(db.DB)

	// Initialize the versioned event serializer and register all event
	// types. Versioning lets old outbox payloads deserialize after an
	// event schema changes.
	eventSerializer := event.NewVersionedSerializer(log)
	event.RegisterAllEvents(eventSerializer)
	if err := event.RegisterEventUpgraders(eventSerializer); err != nil {
		log.Fatal("Failed to register event upgraders", zap.Error(err))
	}

	// Create outbox publisher for transactional event saving
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)

	// Inject outbox publisher into repositories that persist domain events
	// in the same transaction as the aggregate
	achatRepo.SetOutboxEventSaver(outboxPublisher)
	budgetRepo.SetOutboxEventSaver(outboxPublisher)
	situationRepo.SetOutboxEventSaver(outboxPublisher)
	factureRepo.SetOutboxEventSaver(outboxPublisher)
	alerteRepo.SetOutboxEventSaver(outboxPublisher)

	// Initialize application services
	achatService := purchasingapp.NewAchatService(achatRepo, fournisseurRepo, chantierStatus)
	fournisseurService := purchasingapp.NewFournisseurService(fournisseurRepo)
	ledgerService := budgetapp.NewLedgerService(
		budgetRepo,
		achatRepo,
		coutProvider,
		coutProvider,
		configurationRepo,
		chantierStatus,
	)
	alerteService := alertingapp.NewAlerteService(alerteRepo, configurationRepo)
	situationService := billingapp.NewSituationService(situationRepo, chantierStatus)
	factureService := billingapp.NewFactureService(factureRepo, situationRepo, chantierStatus)
	configurationService := companyapp.NewConfigurationService(configurationRepo)
	trailService := auditapp.NewTrailService(trailRepo)
	margeService := costingapp.NewMargeService(ledgerService, factureRepo)
	outboxService := appevent.NewOutboxService(outboxRepo, log)

	// Cross-context wiring: purchases drive engagement recomputation, the
	// ledger drives alert evaluation
	achatService.SetEngagementRecomputer(ledgerService)
	ledgerService.SetAlertEvaluator(alerteService)

	// JWT validation for tokens issued by the identity service
	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)

	if businessMetrics != nil {
		// The outbox processor redelivers events after a restart, so the
		// metrics handler is wrapped with an idempotency check.
		storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
		idempotencyStore, err := storeFactory.CreateStore()
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
		defer func() {
			if err := idempotencyStore.Close(); err != nil {
				log.Error("Error closing idempotency store", zap.Error(err))
			}
		}()

		metricsHandler := appevent.NewMetricsHandler(businessMetrics, log)
		eventBus.Subscribe(event.NewIdempotentHandler(metricsHandler, idempotencyStore, log))
		log.Info("Business metrics handler registered",
			zap.Strings("event_types", metricsHandler.EventTypes()),
		)
	}

	// Start event bus
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	ledgerService.SetEventPublisher(eventBus)

	// Initialize and start outbox processor for guaranteed event delivery.
	// The processor reads events from the outbox_events table and publishes
	// them to the event bus.
	if cfg.Event.ProcessorEnabled {
		outboxProcessorConfig := event.DefaultOutboxProcessorConfig()
		if cfg.Event.BatchSize > 0 {
			outboxProcessorConfig.BatchSize = cfg.Event.BatchSize
		}
		if cfg.Event.PollInterval > 0 {
			outboxProcessorConfig.PollInterval = cfg.Event.PollInterval
		}
		outboxProcessorConfig.CleanupEnabled = cfg.Event.CleanupEnabled
		if cfg.Event.CleanupRetention > 0 {
			outboxProcessorConfig.CleanupRetention = cfg.Event.CleanupRetention
		}
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, outboxProcessorConfig, log)
		if err := outboxProcessor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", outboxProcessorConfig.BatchSize),
			zap.Duration("poll_interval", outboxProcessorConfig.PollInterval),
		)
	}

	// Initialize HTTP handlers
	achatHandler := handler.NewAchatHandler(achatService)
	fournisseurHandler := handler.NewFournisseurHandler(fournisseurService)
	budgetHandler := handler.NewBudgetHandler(ledgerService)
	situationHandler := handler.NewSituationHandler(situationService)
	factureHandler := handler.NewFactureHandler(factureService)
	configurationHandler := handler.NewConfigurationHandler(configurationService)
	alerteHandler := handler.NewAlerteHandler(alerteService)
	auditHandler := handler.NewAuditHandler(trailService)
	margeHandler := handler.NewMargeHandler(margeService)
	outboxHandler := handler.NewOutboxHandler(outboxService)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
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
	// 3. Tracing/Metrics/Profiling - Observability (if enabled)
	// 4. Logger - Log requests
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing())
		engine.Use(middleware.SpanErrorMarker())
		if meterProvider != nil {
			engine.Use(middleware.HTTPMetricsWithMeter(meterProvider.Meter("chantier-ledger/http"), true))
		}
		if profilingActive {
			engine.Use(middleware.Profiling())
		}
	}
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, redisClient))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Purchasing context (achats, fournisseurs)
	purchasingRoutes := router.NewDomainGroup("purchasing", "")
	purchasingRoutes.POST("/achats", achatHandler.Create)
	purchasingRoutes.GET("/achats", achatHandler.List)
	purchasingRoutes.GET("/achats/numero/:numero", achatHandler.GetByNumero)
	purchasingRoutes.GET("/achats/:id", achatHandler.GetByID)
	purchasingRoutes.POST("/achats/:id/commander", achatHandler.ConfirmerCommande)
	purchasingRoutes.POST("/achats/:id/livrer", achatHandler.MarquerLivre)
	purchasingRoutes.POST("/achats/:id/facturer", achatHandler.MarquerFacture)
	purchasingRoutes.POST("/achats/:id/payer", achatHandler.MarquerPaye)
	purchasingRoutes.POST("/achats/:id/annuler", achatHandler.Annuler)
	purchasingRoutes.PUT("/achats/:id/taux-tva", achatHandler.DefinirTauxTVA)
	purchasingRoutes.POST("/fournisseurs", fournisseurHandler.Create)
	purchasingRoutes.GET("/fournisseurs", fournisseurHandler.List)
	purchasingRoutes.GET("/fournisseurs/:id", fournisseurHandler.GetByID)
	purchasingRoutes.PUT("/fournisseurs/:id/contact", fournisseurHandler.UpdateContact)
	purchasingRoutes.POST("/fournisseurs/:id/desactiver", fournisseurHandler.Desactiver)

	// Budget context (envelope creation; the rest is chantier-scoped)
	budgetRoutes := router.NewDomainGroup("budget", "")
	budgetRoutes.POST("/budgets", budgetHandler.Create)

	// Billing context (situations de travaux, factures client)
	billingRoutes := router.NewDomainGroup("billing", "")
	billingRoutes.POST("/situations", situationHandler.Create)
	billingRoutes.GET("/situations/:id", situationHandler.GetByID)
	billingRoutes.POST("/factures", factureHandler.Emettre)
	billingRoutes.GET("/factures/:id", factureHandler.GetByID)
	billingRoutes.POST("/factures/:id/payer", factureHandler.MarquerPayee)
	billingRoutes.POST("/factures/:id/annuler", factureHandler.Annuler)

	// Company context (fiscal year configuration)
	companyRoutes := router.NewDomainGroup("company", "")
	companyRoutes.PUT("/configurations", configurationHandler.Upsert)
	companyRoutes.GET("/configurations", configurationHandler.List)
	companyRoutes.GET("/configurations/courante", configurationHandler.GetCourante)
	companyRoutes.GET("/configurations/:annee", configurationHandler.GetByAnnee)

	// Alerting context
	alertingRoutes := router.NewDomainGroup("alerting", "")
	alertingRoutes.GET("/alertes", alerteHandler.List)

	// Audit context
	auditRoutes := router.NewDomainGroup("audit", "/audit")
	auditRoutes.GET("", auditHandler.List)
	auditRoutes.GET("/:entity_type/:entity_id", auditHandler.GetByEntity)

	// Chantier-scoped reads across contexts
	chantierRoutes := router.NewDomainGroup("chantier", "/chantiers/:chantier_id")
	chantierRoutes.GET("/achats", achatHandler.ListByChantier)
	chantierRoutes.GET("/budget", budgetHandler.GetByChantier)
	chantierRoutes.POST("/budget/lots", budgetHandler.AddLot)
	chantierRoutes.DELETE("/budget/lots/:lot_id", budgetHandler.RemoveLot)
	chantierRoutes.PUT("/budget/montant-initial", budgetHandler.UpdateMontantInitial)
	chantierRoutes.GET("/engagement", budgetHandler.GetEngagement)
	chantierRoutes.POST("/engagement/recompute", budgetHandler.RecomputeEngagement)
	chantierRoutes.GET("/situations", situationHandler.ListByChantier)
	chantierRoutes.GET("/factures", factureHandler.ListByChantier)
	chantierRoutes.GET("/marge", margeHandler.GetByChantier)
	chantierRoutes.GET("/alertes/ouverte", alerteHandler.GetOpenByChantier)

	// System routes (info, ping)
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	// Outbox administration, restricted to operators
	outboxRoutes := router.NewDomainGroup("outbox", "/system/outbox")
	outboxRoutes.Use(middleware.RequireResource("outbox"))
	outboxRoutes.GET("/dead", outboxHandler.GetDeadLetterEntries)
	outboxRoutes.POST("/dead/retry-all", outboxHandler.RetryAllDeadEntries)
	outboxRoutes.GET("/stats", outboxHandler.GetStats)
	outboxRoutes.GET("/:id", outboxHandler.GetEntry)
	outboxRoutes.POST("/:id/retry", outboxHandler.RetryDeadEntry)

	// Register all domain groups
	r.Register(purchasingRoutes).
		Register(budgetRoutes).
		Register(billingRoutes).
		Register(companyRoutes).
		Register(alertingRoutes).
		Register(auditRoutes).
		Register(chantierRoutes).
		Register(systemRoutes).
		Register(outboxRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports database and cache health. A dead cache degrades the
// service but does not make it unhealthy.
func healthHandler(db *persistence.Database, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)

		redisStatus := "ok"
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			redisStatus = "error"
		}

		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
				"redis":    redisStatus,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
			"redis":    redisStatus,
		})
	}
}
