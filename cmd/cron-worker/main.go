package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/coverledger/api"
	"github.com/angelmondragon/coverledger/api/controllers"
	"github.com/angelmondragon/coverledger/internal/cron"
	"github.com/angelmondragon/coverledger/internal/notifications"
	"github.com/angelmondragon/coverledger/internal/numbering"
	"github.com/angelmondragon/coverledger/pkg/config"
	"github.com/angelmondragon/coverledger/pkg/db"
	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
	"github.com/angelmondragon/coverledger/pkg/instance"
	"github.com/angelmondragon/coverledger/pkg/insurance"
	"github.com/angelmondragon/coverledger/pkg/logger"
	"github.com/angelmondragon/coverledger/pkg/metrics"
	"github.com/angelmondragon/coverledger/pkg/migrate"
	"github.com/angelmondragon/coverledger/pkg/outbox"
	"github.com/angelmondragon/coverledger/pkg/redis"
)

// riskJobs adapts the engine to the reassessment job.
type riskJobs struct {
	engine *insurance.Engine
}

func (r riskJobs) Due(ctx context.Context, now time.Time, limit int) ([]models.RiskAssessment, error) {
	return r.engine.DueRiskAssessments(ctx, now, limit)
}

func (r riskJobs) Assess(ctx context.Context, entityType enums.RiskEntityType, entityID uuid.UUID) (*models.RiskAssessment, error) {
	return r.engine.AssessRisk(ctx, entityType, entityID)
}

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	var backend insurance.NumberBackend
	if strings.EqualFold(cfg.Numbering.Backend, config.NumberingBackendRedis) {
		backend = numbering.NewRedisBackend(redisClient)
	}
	engine, err := insurance.NewEngine(insurance.EngineParams{
		DB:            dbClient,
		Logger:        logg,
		Config:        cfg.Insurance,
		Metrics:       metrics.NewLedgerMetrics(prometheus.DefaultRegisterer),
		NumberBackend: backend,
	})
	if err != nil {
		logg.Error(ctx, "failed to build insurance engine", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, dbClient, engine)
	if err != nil {
		logg.Error(ctx, "failed to register cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redis.Key(redis.KeyspaceLock, "cron-worker", cfg.App.Env), 0)
	if err != nil {
		logg.Error(ctx, "failed to create cron lock", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(logg.WithField(ctx, "failed_jobs", len(multierr.Errors(err))), "cron cycle did not complete cleanly", err)
			os.Exit(1)
		}
		return
	}

	api.StartOps(ctx, cfg, logg,
		controllers.Check{Name: "database", Ping: dbClient.Ping},
		controllers.Check{Name: "redis", Ping: redisClient.Ping},
	)
	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, engine *insurance.Engine) (*cron.Registry, error) {
	notificationSvc, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}

	coverageJob, err := cron.NewCoverageExpiryJob(logg, cron.ExpireFunc(engine.ExpireCoverages))
	if err != nil {
		return nil, err
	}
	warrantyJob, err := cron.NewWarrantyExpiryJob(logg, cron.ExpireFunc(engine.ExpireWarranties))
	if err != nil {
		return nil, err
	}
	riskJob, err := cron.NewRiskReassessmentJob(cron.RiskReassessmentJobParams{
		Logger:    logg,
		Engine:    riskJobs{engine: engine},
		BatchSize: cfg.Cron.RiskReassessBatch,
	})
	if err != nil {
		return nil, err
	}
	outboxJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Events:      outbox.NewRepository(dbClient.DB()),
		DeadLetters: outbox.NewDLQRepository(dbClient.DB()),
		Retention:   cfg.Cron.OutboxRetentionDays,
	})
	if err != nil {
		return nil, err
	}
	notificationJob, err := cron.NewNotificationRetentionJob(cron.NotificationRetentionJobParams{
		Logger:        logg,
		Notifications: notificationSvc,
		Retention:     cfg.Cron.NotificationRetentionDays,
	})
	if err != nil {
		return nil, err
	}

	registry := cron.NewRegistry()
	for _, job := range []cron.Job{coverageJob, warrantyJob, riskJob, outboxJob, notificationJob} {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
