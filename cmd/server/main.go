package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appprocurement "github.com/erp/supplier-portal/internal/application/procurement"
	"github.com/erp/supplier-portal/internal/infrastructure/auth"
	"github.com/erp/supplier-portal/internal/infrastructure/config"
	"github.com/erp/supplier-portal/internal/infrastructure/lock"
	"github.com/erp/supplier-portal/internal/infrastructure/logger"
	"github.com/erp/supplier-portal/internal/infrastructure/persistence"
	"github.com/erp/supplier-portal/internal/infrastructure/scheduler"
	"github.com/erp/supplier-portal/internal/infrastructure/siesa"
	"github.com/erp/supplier-portal/internal/infrastructure/storage"
	"github.com/erp/supplier-portal/internal/infrastructure/telemetry"
	"github.com/erp/supplier-portal/internal/infrastructure/whatsapp"
	"github.com/erp/supplier-portal/internal/interfaces/http/handler"
	"github.com/erp/supplier-portal/internal/interfaces/http/middleware"
	"github.com/erp/supplier-portal/internal/interfaces/http/router"
)

const (
	version         = "1.0.0"
	shutdownTimeout = 30 * time.Second
	maxBodyBytes    = 1 << 20
	// API requests per client IP per minute
	apiLimit = 120
	// Manual sync triggers allowed per admin subject per window
	triggerLimit  = 6
	triggerWindow = time.Minute
)

//	@title			Supplier Portal API
//	@version		1.0
//	@description	ERP purchase order sync and supplier notification service

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLog, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	collector := telemetry.Collector{
		Endpoint:    cfg.Telemetry.CollectorEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
	}

	// OTEL log bridge: every zap entry is mirrored to the logs pipeline
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Collector: collector,
		Enabled:   cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize OTEL logger provider", zap.Error(err))
	}
	log := telemetry.NewBridgedLogger(baseLog,
		telemetry.NewZapOTELCore(cfg.Telemetry.ServiceName, loggerProvider, logger.ParseLevel(cfg.Log.Level)))
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting supplier portal",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Collector:     collector,
		Enabled:       cfg.Telemetry.Enabled,
		SamplingRatio: cfg.Telemetry.SamplingRatio,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Collector:      collector,
		Enabled:        cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		ExportInterval: cfg.Telemetry.MetricsInterval,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServerAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
		Tags:            map[string]string{"env": cfg.App.Env},
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := db.PrepareSchema(); err != nil {
		log.Fatal("Failed to prepare sqlite schema", zap.Error(err))
	}
	log.Info("Database connected", zap.String("driver", db.Driver()))

	dbTracingCfg := telemetry.DefaultDBTracingConfig()
	dbTracingCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracingCfg.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	if db.Driver() == "sqlite" {
		dbTracingCfg.DBSystem = "sqlite"
	}
	if err := telemetry.NewDBTracingPlugin(dbTracingCfg, log).RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	meter := meterProvider.Meter("supplier-portal")
	if meterProvider.IsEnabled() {
		if _, err := telemetry.RegisterDBPoolMetrics(meter, db.SQL); err != nil {
			log.Warn("Database pool metrics unavailable", zap.Error(err))
		}
	}
	pipelineMetrics, err := telemetry.NewPipelineMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create pipeline metrics", zap.Error(err))
	}

	// Redis backs the page cursor and the token revocation list
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		_ = redisClient.Close()
	}()

	// Repositories
	providerRepo := persistence.NewGormProviderRepository(db.DB)
	orderRepo := persistence.NewGormPurchaseOrderRepository(db.DB)
	lineRepo := persistence.NewGormOrderLineRepository(db.DB)
	syncRunRepo := persistence.NewGormSyncRunRepository(db.DB)

	// External systems
	source, err := newReportClient(cfg, redisClient, log)
	if err != nil {
		log.Fatal("Failed to create ERP report client", zap.Error(err))
	}
	gateway, err := whatsapp.NewGateway(&whatsapp.Config{
		BaseURL:        cfg.WhatsApp.BaseURL,
		Token:          cfg.WhatsApp.Token,
		TimeoutSeconds: int(cfg.WhatsApp.Timeout / time.Second),
		DefaultRegion:  cfg.WhatsApp.DefaultRegion,
	}, log)
	if err != nil {
		log.Fatal("Failed to create messaging gateway", zap.Error(err))
	}
	archive, err := newBatchArchive(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to create batch archive", zap.Error(err))
	}

	// Application services
	syncOpts := []appprocurement.SyncServiceOption{
		appprocurement.WithBatchArchive(archive),
		appprocurement.WithSyncMetrics(pipelineMetrics),
		appprocurement.WithLocation(cfg.Siesa.Location()),
	}
	if cfg.Scheduler.DistributedLock {
		syncOpts = append(syncOpts, appprocurement.WithPassLock(
			lock.NewRedisPassLock(redisClient, lock.DefaultKey, cfg.Scheduler.LockTTL, log)))
	}
	syncService := appprocurement.NewSyncService(source, providerRepo, orderRepo, lineRepo, syncRunRepo, log, syncOpts...)
	notificationService := appprocurement.NewNotificationService(orderRepo, gateway, cfg.WhatsApp.PortalURL, log,
		appprocurement.WithNotificationMetrics(pipelineMetrics),
	)
	decisionNotifier := appprocurement.NewDecisionNotifier(orderRepo, providerRepo, gateway,
		cfg.WhatsApp.PortalURL, cfg.WhatsApp.PurchasingPhone, log)

	pipeline, err := scheduler.NewPipelineScheduler(scheduler.PipelineSchedulerConfig{
		Interval:      cfg.Scheduler.Interval,
		SyncEnabled:   cfg.Scheduler.SyncEnabled,
		NotifyEnabled: cfg.Scheduler.NotifyEnabled,
		RunOnStart:    cfg.Scheduler.RunOnStart,
	}, syncService, notificationService, log)
	if err != nil {
		log.Fatal("Failed to create pipeline scheduler", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := pipeline.Start(ctx); err != nil {
			log.Fatal("Failed to start pipeline scheduler", zap.Error(err))
		}
	} else {
		log.Info("Pipeline scheduler disabled, manual triggers only")
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName))
	engine.Use(middleware.TracingAttributes())
	engine.Use(logger.RequestLogger(log))
	engine.Use(middleware.HTTPMetrics(meterProvider, log))
	engine.Use(middleware.Profiling(profiler.IsEnabled(), "/health"))
	engine.Use(middleware.Secure(middleware.DefaultSecurityConfig()))
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	engine.Use(middleware.BodyLimit(maxBodyBytes))

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, db.SQL)
	engine.GET("/health", systemHandler.Health)

	var revocations auth.RevocationList = auth.NewRedisRevocationList(redisClient, auth.DefaultRevocationPrefix)
	jwtCfg := middleware.DefaultJWTConfig(auth.NewTokenVerifier(cfg.JWT))
	jwtCfg.Revocations = revocations
	jwtCfg.Logger = log

	apiLimiter := middleware.NewRateLimiter(apiLimit, time.Minute)
	defer apiLimiter.Stop()
	triggerLimiter := middleware.NewRateLimiter(triggerLimit, triggerWindow)
	defer triggerLimiter.Stop()

	r := router.NewRouter(engine)
	r.Use(middleware.RateLimit(apiLimiter), middleware.JWTAuth(jwtCfg)).
		Register(handler.NewSyncHandler(pipeline, syncService, middleware.RateLimitBySubject(triggerLimiter))).
		Register(handler.NewOrderHandler(decisionNotifier)).
		Register(systemHandler)
	r.Setup()
	for _, route := range r.Routes() {
		log.Debug("Route mounted", zap.String("method", route.Method), zap.String("path", route.Path))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := pipeline.Stop(shutdownCtx); err != nil {
		log.Error("Pipeline scheduler did not stop cleanly", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Profiler did not stop cleanly", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer provider shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	// Flushed last so the shutdown entries above reach the collector
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		baseLog.Error("Logger provider shutdown failed", zap.Error(err))
	}
}

// newReportClient builds the ERP report client with the configured page cursor
func newReportClient(cfg *config.Config, redisClient *redis.Client, log *zap.Logger) (*siesa.Client, error) {
	var cursor siesa.PageCursor = siesa.NewMemoryPageCursor()
	if cfg.Siesa.CursorStore == "redis" {
		cursor = siesa.NewRedisPageCursor(redisClient, cfg.Siesa.CursorKey)
	}
	return siesa.NewClient(&siesa.Config{
		BaseURL:        cfg.Siesa.BaseURL,
		ConniKey:       cfg.Siesa.ConniKey,
		ConniToken:     cfg.Siesa.ConniToken,
		BaselinePage:   cfg.Siesa.BaselinePage,
		MaxPage:        cfg.Siesa.MaxPage,
		TimeoutSeconds: int(cfg.Siesa.Timeout / time.Second),
	}, log, siesa.WithPageCursor(cursor))
}

// newBatchArchive returns the S3 archive when enabled, otherwise a no-op
func newBatchArchive(ctx context.Context, cfg *config.Config, log *zap.Logger) (appprocurement.BatchArchive, error) {
	if !cfg.Archive.Enabled {
		return storage.NopBatchArchive{}, nil
	}
	archive, err := storage.NewS3BatchArchive(&cfg.Archive, storage.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := archive.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return archive, nil
}
