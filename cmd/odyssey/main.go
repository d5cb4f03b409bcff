package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-procure/internal/ap"
	"github.com/odyssey-erp/odyssey-procure/internal/app"
	"github.com/odyssey-erp/odyssey-procure/internal/audit"
	audithttp "github.com/odyssey-erp/odyssey-procure/internal/audit/http"
	"github.com/odyssey-erp/odyssey-procure/internal/inventory"
	"github.com/odyssey-erp/odyssey-procure/internal/masterdata/suppliers"
	"github.com/odyssey-erp/odyssey-procure/internal/observability"
	"github.com/odyssey-erp/odyssey-procure/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-procure/internal/platform/db"
	"github.com/odyssey-erp/odyssey-procure/internal/procurement"
	"github.com/odyssey-erp/odyssey-procure/internal/seed"
	"github.com/odyssey-erp/odyssey-procure/internal/shared"
	"github.com/odyssey-erp/odyssey-procure/internal/store"
	"github.com/odyssey-erp/odyssey-procure/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("odyssey stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("odyssey stopped")
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	st := store.New()
	group, ctx := errgroup.WithContext(ctx)

	// Services register their collections on st; the snapshot is restored
	// after that so every table is known.
	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(st, logger)
	approvals := shared.NewApprovalRecorder(st, logger)
	money, err := shared.NewMoneyFormatter(cfg.Locale, cfg.Currency)
	if err != nil {
		return err
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, idempotency keys and job queue disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	var (
		notifier    shared.Notifier = shared.NewLogNotifier(logger)
		idempotency *shared.IdempotencyStore
		inspector   *asynq.Inspector
		jobClient   *jobs.Client
	)
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	if redisClient != nil {
		idempotency = shared.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL)
		jobClient, err = jobs.NewClient(redisOpts, logger)
		if err != nil {
			return err
		}
		defer func() { _ = jobClient.Close() }()
		notifier = jobClient
		inspector = asynq.NewInspector(redisOpts)
		defer func() { _ = inspector.Close() }()
	}

	supplierService := suppliers.NewService(suppliers.NewRepository(st))
	inventoryService := inventory.NewService(inventory.NewRepository(st), auditLogger, logger, inventory.ServiceConfig{})
	payablesService := ap.NewService(ap.NewRepository(st), auditLogger, logger)
	procurementService := procurement.NewService(procurement.NewRepository(st), inventoryService, supplierService, payablesService, notifier, logger)
	procurementService.SetApprovals(approvals)
	procurementService.SetAudit(auditLogger)
	procurementService.SetMetrics(metrics)
	procurementService.SetMoneyFormatter(money)

	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		snapshotter, err := restoreSnapshot(ctx, st, pool, cfg, logger)
		if err != nil {
			return err
		}
		st.OnCommit(snapshotter.Offer)
		group.Go(func() error { return snapshotter.Run(ctx) })
	}

	if cfg.SeedDemo {
		err := seed.Demo(ctx, seed.Services{
			Store:       st,
			Suppliers:   supplierService,
			Inventory:   inventoryService,
			Procurement: procurementService,
			Logger:      logger,
		})
		switch {
		case errors.Is(err, seed.ErrNotEmpty):
			logger.Info("store already populated, skipping demo seed")
		case err != nil:
			return err
		}
	}

	if redisClient != nil {
		worker, err := newWorker(cfg, redisOpts, logger, metrics, payablesService)
		if err != nil {
			return err
		}
		group.Go(func() error { return worker.Run(ctx) })
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Metrics:            metrics,
		ProcurementHandler: procurement.NewHandler(logger, procurementService, idempotency),
		InventoryHandler:   inventory.NewHandler(logger, inventoryService),
		PayablesHandler:    ap.NewHandler(logger, payablesService),
		SuppliersHandler:   suppliers.NewHandler(logger, supplierService),
		AuditHandler:       audithttp.NewHandler(logger, audit.NewService(auditLogger)),
		JobHandler:         jobs.NewHandler(inspector, logger),
	})
	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}
	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func restoreSnapshot(ctx context.Context, st *store.Store, pool *pgxpool.Pool, cfg *app.Config, logger *slog.Logger) (*store.PGSnapshotter, error) {
	snapshotter := store.NewPGSnapshotter(pool, logger, cfg.SnapshotsKept)
	if err := snapshotter.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	snap, ok, err := snapshotter.LoadLatest(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		if err := st.Restore(ctx, snap); err != nil {
			return nil, err
		}
		logger.Info("store restored from snapshot", slog.Int64("seq", snap.Seq))
	}
	return snapshotter, nil
}

func newWorker(cfg *app.Config, redisOpts asynq.RedisClientOpt, logger *slog.Logger, metrics *observability.Metrics, payables *ap.Service) (*jobs.Worker, error) {
	notifyJob := jobs.NewNotifyJob(shared.NewLogNotifier(logger), logger, metrics.Jobs())
	sweepJob := jobs.NewPayablesSweepJob(payables, logger, metrics.Jobs())
	var cron []jobs.CronRegistration
	if cfg.PayablesSweepCron != "" {
		task, err := jobs.NewPayablesSweepTask(time.Time{})
		if err != nil {
			return nil, err
		}
		cron = append(cron, jobs.CronRegistration{Spec: cfg.PayablesSweepCron, Task: task})
	}
	return jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskNotifySend, Handler: notifyJob.Handle},
			{Type: jobs.TaskPayablesOverdueSweep, Handler: sweepJob.Handle},
		},
		Cron: cron,
	})
}
