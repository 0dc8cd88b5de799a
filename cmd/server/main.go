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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	inventoryapp "github.com/assettrack/backend/internal/application/inventory"
	"github.com/assettrack/backend/internal/domain/anomaly"
	"github.com/assettrack/backend/internal/domain/formula"
	"github.com/assettrack/backend/internal/domain/history"
	"github.com/assettrack/backend/internal/domain/reconcile"
	"github.com/assettrack/backend/internal/infrastructure/auth"
	"github.com/assettrack/backend/internal/infrastructure/cache"
	"github.com/assettrack/backend/internal/infrastructure/config"
	"github.com/assettrack/backend/internal/infrastructure/logger"
	"github.com/assettrack/backend/internal/infrastructure/persistence"
	"github.com/assettrack/backend/internal/infrastructure/persistence/tenant"
	"github.com/assettrack/backend/internal/infrastructure/telemetry"
	"github.com/assettrack/backend/internal/interfaces/http/handler"
	"github.com/assettrack/backend/internal/interfaces/http/middleware"
	"github.com/assettrack/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Backstop for repository scoping: any query that reaches the database
	// without an explicit tenant_id condition is filtered by the tenant
	// carried in the request context.
	if err := tenant.EnableAutoTenantFilter(db.DB, false); err != nil {
		log.Fatal("failed to register tenant filter", zap.Error(err))
	}

	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer provider shutdown failed", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("meter provider shutdown failed", zap.Error(err))
		}
	}()

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:          cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:         "postgresql",
		WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Warn("database tracing registration failed", zap.Error(err))
	}

	dbMetricsCfg := telemetry.DefaultDBMetricsConfig()
	dbMetricsCfg.Enabled = cfg.Telemetry.Enabled
	dbMetricsCfg.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, dbMetricsCfg, log)
	if err != nil {
		log.Warn("database metrics registration failed", zap.Error(err))
	}
	if dbMetrics != nil {
		defer dbMetrics.Stop()
	}

	// Monthly total resolution is read-heavy; Redis keeps resolved totals
	// warm across instances. When Redis is unreachable the server still
	// starts with a per-process cache.
	var totalCache history.TotalCache
	redisCache, err := cache.NewRedisTotalCache(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Report.TotalCacheTTL, log)
	if err != nil {
		log.Warn("redis unavailable, using in-memory total cache", zap.Error(err))
		totalCache = cache.NewInMemoryTotalCache()
	} else {
		totalCache = redisCache
		defer redisCache.Close()
	}

	var blacklist auth.TokenBlacklist
	redisBlacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("redis unavailable, using in-memory token blacklist", zap.Error(err))
		blacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		blacklist = redisBlacklist
	}

	jwtService := auth.NewJWTService(cfg.JWT)

	assetRepo := persistence.NewGormAssetRepository(db.DB)
	recordRepo := persistence.NewGormInventoryRecordRepository(db.DB)
	submissionRepo := persistence.NewGormFormSubmissionRepository(db.DB)
	templateRepo := persistence.NewGormFormTemplateRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)

	evaluator := formula.NewEvaluator(formula.NewCache(cfg.Reconcile.FormulaCacheLimit))
	calculator := reconcile.NewCalculator(evaluator, reconcile.WithPolicy(reconcilePolicy(cfg.Reconcile)))

	var detector *anomaly.Detector
	if cfg.Anomaly.Enabled {
		detector = anomaly.NewDetector()
	}

	assetService := inventoryapp.NewAssetService(assetRepo, recordRepo, log)
	submissionService := inventoryapp.NewSubmissionService(templateRepo, scope, calculator, detector, log)
	correctionService := inventoryapp.NewCorrectionService(scope, log)
	reportingService := inventoryapp.NewReportingService(assetRepo, submissionRepo, recordRepo, totalCache, log)

	if meterProvider.IsEnabled() {
		businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:          meterProvider.Meter("assettrack.business"),
			Logger:         log,
			ReviewProvider: telemetry.NewGormReviewMetricsProvider(db.DB),
		})
		if err != nil {
			log.Warn("business metrics initialization failed", zap.Error(err))
		} else {
			businessMetrics.StartPeriodicCollection(ctx, persistence.NewGormTenantProvider(db.DB), 5*time.Minute)
			defer businessMetrics.Stop()
		}
	}

	assetHandler := handler.NewAssetHandler(assetService)
	submissionHandler := handler.NewSubmissionHandler(submissionService)
	correctionHandler := handler.NewCorrectionHandler(correctionService)
	reportHandler := handler.NewReportHandler(reportingService)
	systemHandler := handler.NewSystemHandler()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("invalid trusted proxies configuration", zap.Error(err))
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
			AllowMethods:     cfg.HTTP.CORSAllowMethods,
			AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	if cfg.HTTP.RateLimitEnabled {
		engine.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)))
	}
	if cfg.Telemetry.Enabled {
		engine.Use(
			middleware.TracingWithConfig(middleware.TracingConfig{
				ServiceName: cfg.Telemetry.ServiceName,
				Enabled:     true,
			}),
			middleware.SpanErrorMarker(),
			middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
				MeterProvider: meterProvider,
				ServiceName:   cfg.Telemetry.ServiceName,
				Enabled:       true,
			}),
		)
	}

	// Health stays outside the authenticated surface.
	engine.GET("/health", healthHandler(db, log))

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.TokenBlacklist = blacklist
	jwtConfig.Logger = log
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	tenantConfig := middleware.DefaultTenantConfig()
	tenantConfig.Logger = log
	tenantConfig.SkipPaths = append(tenantConfig.SkipPaths, "/api/v1/system")
	engine.Use(middleware.TenantMiddlewareWithConfig(tenantConfig))
	if cfg.Telemetry.Enabled {
		// Re-tag spans now that JWT claims are available.
		engine.Use(middleware.TracingAttributeInjector())
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	assets := router.NewDomainGroup("assets", "/assets")
	assets.POST("", assetHandler.Create)
	assets.GET("", assetHandler.List)
	assets.GET("/:id", assetHandler.GetByID)
	assets.PUT("/:id", assetHandler.Update)
	assets.DELETE("/:id", assetHandler.Deactivate)
	assets.GET("/:id/history", assetHandler.History)
	assets.POST("/:id/corrections", correctionHandler.Apply)

	inventoryGroup := router.NewDomainGroup("inventory", "/inventory")
	inventoryGroup.POST("/submissions", submissionHandler.Submit)

	reports := router.NewDomainGroup("reports", "/reports")
	reports.GET("/assets/:id/last-month-total", reportHandler.LastMonthTotal)
	reports.GET("/assets/:id/monthly-totals", reportHandler.MonthlyTotals)
	reports.GET("/assets/:id/consistency", reportHandler.CheckConsistency)
	reports.GET("/assets/:id/usage-forecast", reportHandler.UsageForecast)

	system := router.NewDomainGroup("system", "/system")
	system.GET("/info", systemHandler.GetSystemInfo)
	system.GET("/ping", systemHandler.Ping)

	r.Register(assets).
		Register(inventoryGroup).
		Register(reports).
		Register(system)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}

// reconcilePolicy maps configured thresholds onto the calculator policy,
// falling back to the defaults for anything unset.
func reconcilePolicy(cfg config.ReconcileConfig) reconcile.Policy {
	p := reconcile.DefaultPolicy()
	if cfg.LargeChangeRatio > 0 {
		p.LargeChangeRatio = decimal.NewFromFloat(cfg.LargeChangeRatio)
	}
	if cfg.LargeChangeFromZero > 0 {
		p.LargeChangeFromZero = decimal.NewFromFloat(cfg.LargeChangeFromZero)
	}
	if cfg.HistoryDeltaMultiplier > 0 {
		p.HistoryDeltaMultiplier = decimal.NewFromFloat(cfg.HistoryDeltaMultiplier)
	}
	if cfg.HistoryWindow > 0 {
		p.HistoryWindow = cfg.HistoryWindow
	}
	if cfg.ReviewRatio > 0 {
		p.ReviewRatio = decimal.NewFromFloat(cfg.ReviewRatio)
	}
	return p
}

func healthHandler(db *persistence.Database, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			log.Error("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}
