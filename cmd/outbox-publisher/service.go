package main

import (
	"context"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/config"
	"github.com/angelmondragon/coverledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/logger"
	"github.com/angelmondragon/coverledger/pkg/metrics"
	"github.com/angelmondragon/coverledger/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
	Metrics          *metrics.OutboxMetrics
}

// Service relays committed outbox rows to Pub/Sub.
type Service struct {
	logg             *logger.Logger
	db               dbClient
	pubsub           pubSubClient
	repo             outboxRepository
	dlq              dlqRepository
	registry         registryResolver
	metrics          *metrics.OutboxMetrics
	publisherFactory publisherFactory

	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
	now          func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	var missing string
	switch {
	case params.Config == nil:
		missing = "config"
	case params.Logger == nil:
		missing = "logger"
	case params.DB == nil:
		missing = "database client"
	case params.PubSub == nil:
		missing = "pubsub client"
	case params.Repository == nil:
		missing = "outbox repository"
	case params.Registry == nil:
		missing = "event registry"
	case params.DLQRepository == nil:
		missing = "dlq repository"
	}
	if missing != "" {
		return nil, pkgerrors.Newf(pkgerrors.CodeDependency, "%s is required", missing)
	}

	svc := &Service{
		logg:             params.Logger,
		db:               params.DB,
		pubsub:           params.PubSub,
		repo:             params.Repository,
		dlq:              params.DLQRepository,
		registry:         params.Registry,
		metrics:          params.Metrics,
		publisherFactory: params.PublisherFactory,
		batchSize:        defaultBatchSize,
		maxAttempts:      defaultMaxAttempts,
		pollInterval:     defaultPollInterval,
		now:              time.Now,
	}
	if svc.publisherFactory == nil {
		svc.publisherFactory = func(topic string) publisher {
			return newGCPPublisher(params.PubSub.Publisher(topic))
		}
	}

	cfg := params.Config.Outbox
	if cfg.BatchSize > 0 {
		svc.batchSize = cfg.BatchSize
	}
	if cfg.MaxAttempts > 0 {
		svc.maxAttempts = cfg.MaxAttempts
	}
	if cfg.PollIntervalMS > 0 {
		svc.pollInterval = time.Duration(cfg.PollIntervalMS) * time.Millisecond
	}
	return svc, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database ping failed")
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pubsub ping failed")
	}
	return nil
}

// failureBackoff grows from the poll interval up to maxBackoff while batches
// keep failing.
func (s *Service) failureBackoff() retry.Backoff {
	b := retry.NewExponential(s.pollInterval)
	b = retry.WithCappedDuration(maxBackoff, b)
	return retry.WithJitter(jitterWindow, b)
}

// Run drains the outbox until ctx is canceled. Full batches are followed
// immediately by the next one; an empty batch waits one poll interval.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		s.logg.Error(ctx, "outbox publisher not ready", err)
		return err
	}

	backoff := s.failureBackoff()
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		processed, err := s.processBatch(ctx)
		wait := s.pollInterval
		if err != nil {
			s.logg.Error(ctx, "outbox publisher batch error", err)
			wait, _ = backoff.Next()
		} else {
			backoff = s.failureBackoff()
			if processed {
				continue
			}
		}

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
