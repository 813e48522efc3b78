package main

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/config"
	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
	"github.com/angelmondragon/coverledger/pkg/logger"
	"github.com/angelmondragon/coverledger/pkg/outbox"
	"github.com/angelmondragon/coverledger/pkg/outbox/registry"
)

type harness struct {
	svc  *Service
	repo *fakeRepo
	pub  *fakePublisher
	dlq  *fakeDLQRepo
	reg  *fakeRegistry
}

// newHarness wires a service whose every publish goes to one fake publisher.
// Results are consumed in order, one per published row.
func newHarness(t *testing.T, outboxCfg config.OutboxConfig, events ...models.OutboxEvent) *harness {
	t.Helper()
	h := &harness{
		repo: &fakeRepo{events: events},
		pub:  &fakePublisher{},
		dlq:  &fakeDLQRepo{},
		reg:  &fakeRegistry{topic: "notification-topic"},
	}
	svc, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: outboxCfg},
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:               fakeDB{},
		PubSub:           fakePubSubClient{},
		Repository:       h.repo,
		Registry:         h.reg,
		PublisherFactory: func(string) publisher { return h.pub },
		DLQRepository:    h.dlq,
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func defaultOutboxConfig() config.OutboxConfig {
	return config.OutboxConfig{BatchSize: 2, PollIntervalMS: 100, MaxAttempts: 5}
}

func notificationRow(t testing.TB) models.OutboxEvent {
	t.Helper()
	id := uuid.New()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    outbox.CurrentVersion,
		EventID:    id.String(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateNotification,
		AggregateID:   uuid.New(),
		Payload:       raw,
	}
}

type fakeRepo struct {
	events     []models.OutboxEvent
	published  []uuid.UUID
	failed     []uuid.UUID
	terminal   []uuid.UUID
	publishErr error
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakePubSubClient struct{}

func (fakePubSubClient) Ping(context.Context) error { return nil }

func (fakePubSubClient) Publisher(string) *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	errs []error
	sent []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.sent = append(f.sent, msg)
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	return fakePublishResult{err: err}
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "server-id", f.err
}

// fakeRegistry resolves every row to topic unless err is set.
type fakeRegistry struct {
	topic string
	err   error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &registry.ResolvedEvent{
		Topic: f.topic,
		Decoded: registry.Decoded{Envelope: outbox.PayloadEnvelope{
			Version:    outbox.CurrentVersion,
			EventID:    event.ID.String(),
			OccurredAt: event.CreatedAt,
		}},
	}, nil
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}
