package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appprocurement "github.com/erp/supplier-portal/internal/application/procurement"
	"github.com/erp/supplier-portal/internal/domain/procurement"
	"github.com/erp/supplier-portal/internal/infrastructure/config"
	"github.com/erp/supplier-portal/internal/infrastructure/lock"
	"github.com/erp/supplier-portal/internal/infrastructure/logger"
	"github.com/erp/supplier-portal/internal/infrastructure/persistence"
	"github.com/erp/supplier-portal/internal/infrastructure/siesa"
	"github.com/erp/supplier-portal/internal/infrastructure/storage"
	"github.com/erp/supplier-portal/internal/infrastructure/telemetry"
	"github.com/erp/supplier-portal/internal/infrastructure/whatsapp"
)

func main() {
	var (
		notify   bool
		logLevel string
		timeout  time.Duration
	)
	flag.BoolVar(&notify, "notify", true, "Dispatch pending new-order notifications after the sync")
	flag.StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "Abort the pass after this long")
	flag.Usage = printUsage
	flag.Parse()

	os.Exit(run(notify, logLevel, timeout))
}

// run performs one sync pass and returns the process exit code
func run(notify bool, logLevel string, timeout time.Duration) int {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Collector: telemetry.Collector{
			Endpoint:    cfg.Telemetry.CollectorEndpoint,
			Insecure:    cfg.Telemetry.Insecure,
			ServiceName: cfg.Telemetry.ServiceName + "-sync",
		},
		Enabled:       cfg.Telemetry.Enabled,
		SamplingRatio: cfg.Telemetry.SamplingRatio,
	}, log)
	if err != nil {
		log.Error("Failed to initialize tracer provider", zap.Error(err))
		return 1
	}
	defer func() {
		_ = tracerProvider.Shutdown(context.Background())
	}()

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel)))
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return 1
	}
	defer func() {
		_ = db.Close()
	}()
	if err := db.PrepareSchema(); err != nil {
		log.Error("Failed to prepare sqlite schema", zap.Error(err))
		return 1
	}

	var redisClient *redis.Client
	if cfg.Siesa.CursorStore == "redis" || cfg.Scheduler.DistributedLock {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			_ = redisClient.Close()
		}()
	}
	var cursor siesa.PageCursor = siesa.NewMemoryPageCursor()
	if cfg.Siesa.CursorStore == "redis" {
		cursor = siesa.NewRedisPageCursor(redisClient, cfg.Siesa.CursorKey)
	}
	source, err := siesa.NewClient(&siesa.Config{
		BaseURL:        cfg.Siesa.BaseURL,
		ConniKey:       cfg.Siesa.ConniKey,
		ConniToken:     cfg.Siesa.ConniToken,
		BaselinePage:   cfg.Siesa.BaselinePage,
		MaxPage:        cfg.Siesa.MaxPage,
		TimeoutSeconds: int(cfg.Siesa.Timeout / time.Second),
	}, log, siesa.WithPageCursor(cursor))
	if err != nil {
		log.Error("Failed to create ERP report client", zap.Error(err))
		return 1
	}

	var archive appprocurement.BatchArchive = storage.NopBatchArchive{}
	if cfg.Archive.Enabled {
		s3Archive, err := storage.NewS3BatchArchive(&cfg.Archive, storage.WithLogger(log))
		if err != nil {
			log.Error("Failed to create batch archive", zap.Error(err))
			return 1
		}
		archive = s3Archive
	}

	syncOpts := []appprocurement.SyncServiceOption{
		appprocurement.WithBatchArchive(archive),
		appprocurement.WithLocation(cfg.Siesa.Location()),
	}
	if cfg.Scheduler.DistributedLock {
		syncOpts = append(syncOpts, appprocurement.WithPassLock(
			lock.NewRedisPassLock(redisClient, lock.DefaultKey, cfg.Scheduler.LockTTL, log)))
	}

	orderRepo := persistence.NewGormPurchaseOrderRepository(db.DB)
	syncService := appprocurement.NewSyncService(
		source,
		persistence.NewGormProviderRepository(db.DB),
		orderRepo,
		persistence.NewGormOrderLineRepository(db.DB),
		persistence.NewGormSyncRunRepository(db.DB),
		log,
		syncOpts...,
	)

	var notifier dispatcher
	if notify {
		gateway, err := whatsapp.NewGateway(&whatsapp.Config{
			BaseURL:        cfg.WhatsApp.BaseURL,
			Token:          cfg.WhatsApp.Token,
			TimeoutSeconds: int(cfg.WhatsApp.Timeout / time.Second),
			DefaultRegion:  cfg.WhatsApp.DefaultRegion,
		}, log)
		if err != nil {
			log.Error("Failed to create messaging gateway", zap.Error(err))
			return 1
		}
		notifier = appprocurement.NewNotificationService(orderRepo, gateway, cfg.WhatsApp.PortalURL, log)
	}

	return runPass(ctx, syncService, notifier, log)
}

type syncer interface {
	Run(ctx context.Context, req appprocurement.SyncRequest) (*appprocurement.SyncResult, error)
}

type dispatcher interface {
	DispatchPending(ctx context.Context) (*appprocurement.DispatchResult, error)
}

// runPass runs the sync then, when notifier is set, the notification pass.
// A failed sync does not stop the notification pass; either failure makes
// the exit code 1. A sync skipped by the pass lock exits 0 without notifying.
func runPass(ctx context.Context, syncSvc syncer, notifier dispatcher, log *zap.Logger) int {
	code := 0

	result, err := syncSvc.Run(ctx, appprocurement.SyncRequest{Trigger: procurement.SyncTriggerCLI})
	if result != nil {
		log.Info("Sync pass finished",
			zap.String("run_id", result.RunID.String()),
			zap.String("status", string(result.Status)),
			zap.Int("records_processed", result.RecordsProcessed),
			zap.Int("orders_created", result.OrdersCreated),
			zap.Int("orders_updated", result.OrdersUpdated),
			zap.Int("groups_skipped", result.GroupsSkipped),
			zap.Int("groups_failed", result.GroupsFailed),
		)
	}
	switch {
	case errors.Is(err, appprocurement.ErrSyncLocked):
		log.Warn("Sync pass skipped, another process holds the lock", zap.Error(err))
		return 0
	case err != nil:
		log.Error("Sync pass failed", zap.Error(err))
		code = 1
	}
	if notifier == nil {
		return code
	}

	dispatch, err := notifier.DispatchPending(ctx)
	if err != nil {
		log.Error("Notification pass failed", zap.Error(err))
		return 1
	}
	log.Info("Notification pass finished",
		zap.Int("pending", dispatch.Pending),
		zap.Int("sent", dispatch.Sent),
		zap.Int("failed", dispatch.Failed),
		zap.Int("skipped", dispatch.Skipped),
	)
	return code
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Supplier portal one-shot sync

Usage:
  sync [flags]

Runs one ERP sync pass, recorded with trigger "cli", then dispatches
pending new-order notifications. Notifications are dispatched even when
the sync fails. Exits non-zero when either pass fails.
Exits zero without syncing while another process holds the sync lock.

Flags:
  -notify               Dispatch notifications after the sync (default: true)
  -log-level string     Log level override: debug, info, warn, error
  -timeout duration     Abort the pass after this long (default: 10m)

Configuration is read from config.toml and PORTAL_* environment variables.`)
}
