package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coverledger/pkg/config"
	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/metrics"
	"github.com/angelmondragon/coverledger/pkg/outbox/registry"
)

func TestFailedRowDoesNotBlockTheBatch(t *testing.T) {
	first, second := notificationRow(t), notificationRow(t)
	h := newHarness(t, defaultOutboxConfig(), first, second)
	h.pub.errs = []error{errors.New("transient")}

	processed, err := h.svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	require.Equal(t, []uuid.UUID{first.ID}, h.repo.failed)
	require.Equal(t, []uuid.UUID{second.ID}, h.repo.published)
	require.Empty(t, h.dlq.entries)
}

func TestEmptyBatchIsNotProcessed(t *testing.T) {
	h := newHarness(t, defaultOutboxConfig())
	processed, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.False(t, processed)
}

func TestPublishCarriesRoutingAttributes(t *testing.T) {
	row := notificationRow(t)
	row.EventType = enums.EventClaimPaymentRequested
	row.AggregateType = enums.AggregateClaim
	row.CreatedAt = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	h := newHarness(t, defaultOutboxConfig(), row)
	h.reg.topic = "payments-topic"

	var topics []string
	h.svc.publisherFactory = func(topic string) publisher {
		topics = append(topics, topic)
		return h.pub
	}

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"payments-topic"}, topics)
	require.Equal(t, []uuid.UUID{row.ID}, h.repo.published)

	require.Len(t, h.pub.sent, 1)
	msg := h.pub.sent[0]
	require.True(t, bytes.Equal(row.Payload, msg.Data))
	require.Equal(t, map[string]string{
		"event_id":       row.ID.String(),
		"event_type":     "claim_payment_requested",
		"aggregate_type": string(enums.AggregateClaim),
		"aggregate_id":   row.AggregateID.String(),
		"created_at":     "2026-10-15T09:00:00Z",
	}, msg.Attributes)
}

func TestUnresolvableRowIsDeadLettered(t *testing.T) {
	row := notificationRow(t)
	h := newHarness(t, defaultOutboxConfig(), row)
	h.reg.err = registry.Permanent(errors.New("invalid payload"))

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Empty(t, h.pub.sent)

	require.Len(t, h.dlq.entries, 1)
	entry := h.dlq.entries[0]
	if entry.EventID != row.ID {
		t.Fatalf("dlq event_id mismatch: %s", entry.EventID)
	}
	if !bytes.Equal(entry.Payload, row.Payload) {
		t.Fatalf("dlq payload mismatch")
	}
	require.Equal(t, enums.OutboxDLQReasonNonRetryable, entry.ErrorReason)
	require.NotNil(t, entry.ErrorMessage)
	require.Contains(t, *entry.ErrorMessage, "invalid payload")
	require.Equal(t, []uuid.UUID{row.ID}, h.repo.terminal)
}

func TestResolveErrorsAreAlwaysTerminal(t *testing.T) {
	h := newHarness(t, defaultOutboxConfig(), notificationRow(t))
	h.reg.err = errors.New("catalog lookup failed")

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, h.dlq.entries, 1)
	require.Empty(t, h.repo.failed)
}

func TestLastAttemptIsDeadLettered(t *testing.T) {
	row := notificationRow(t)
	row.AttemptCount = 1
	h := newHarness(t, config.OutboxConfig{BatchSize: 1, PollIntervalMS: 100, MaxAttempts: 2}, row)
	h.pub.errs = []error{errors.New("transient")}

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, h.dlq.entries, 1)
	require.Equal(t, enums.OutboxDLQReasonMaxAttempts, h.dlq.entries[0].ErrorReason)
	require.Contains(t, *h.dlq.entries[0].ErrorMessage, "transient")
	if len(h.repo.failed) != 0 {
		t.Fatalf("terminal rows should not also be marked failed")
	}
}

func TestMissingPublisherIsPermanent(t *testing.T) {
	row := notificationRow(t)
	h := newHarness(t, defaultOutboxConfig(), row)
	h.svc.publisherFactory = func(string) publisher { return nil }

	outcome, err := h.svc.dispatch(context.Background(), nil, row)
	require.NoError(t, err)
	require.Equal(t, outcomeDeadLettered, outcome)
	require.Len(t, h.dlq.entries, 1)
	require.Equal(t, enums.OutboxDLQReasonNonRetryable, h.dlq.entries[0].ErrorReason)
}

func TestJudge(t *testing.T) {
	svc := &Service{maxAttempts: 3}
	transient := errors.New("deadline exceeded")
	cases := []struct {
		name     string
		attempts int
		err      error
		want     dispatchOutcome
		reason   enums.OutboxDLQErrorReason
	}{
		{name: "published", want: outcomePublished},
		{name: "retry", attempts: 1, err: transient, want: outcomeRetry},
		{name: "exhausted", attempts: 2, err: transient, want: outcomeDeadLettered, reason: enums.OutboxDLQReasonMaxAttempts},
		{name: "permanent", err: registry.Permanent(transient), want: outcomeDeadLettered, reason: enums.OutboxDLQReasonNonRetryable},
	}
	for _, tc := range cases {
		v := svc.judge(models.OutboxEvent{AttemptCount: tc.attempts}, tc.err)
		if v.outcome != tc.want || v.reason != tc.reason {
			t.Fatalf("%s: got outcome %d reason %q", tc.name, v.outcome, v.reason)
		}
		if tc.err != nil {
			require.ErrorIs(t, v.cause, transient, tc.name)
		}
	}
}

func TestOutcomeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newHarness(t, defaultOutboxConfig(), notificationRow(t), notificationRow(t))
	h.pub.errs = []error{nil, errors.New("transient")}
	h.svc.metrics = metrics.NewOutboxMetrics(reg)

	_, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1.0, counterValue(t, reg, "outbox_events_published_total", "notification_requested"))
	require.Equal(t, 1.0, counterValue(t, reg, "outbox_events_retried_total", "notification_requested"))
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, eventType string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "event_type" && label.GetValue() == eventType {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{event_type=%q} not found", name, eventType)
	return 0
}

func TestBookkeepingFailureAbortsBatch(t *testing.T) {
	h := newHarness(t, defaultOutboxConfig(), notificationRow(t))
	h.repo.publishErr = errors.New("db gone")

	_, err := h.svc.processBatch(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "mark published")
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	h := newHarness(t, config.OutboxConfig{})
	require.Equal(t, defaultBatchSize, h.svc.batchSize)
	require.Equal(t, defaultMaxAttempts, h.svc.maxAttempts)
	require.Equal(t, defaultPollInterval, h.svc.pollInterval)

	_, err = NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     h.svc.logg,
		DB:         fakeDB{},
		PubSub:     fakePubSubClient{},
		Repository: h.repo,
		Registry:   h.reg,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "dlq repository")
}

func TestFailureBackoffIsCapped(t *testing.T) {
	svc := &Service{pollInterval: 100 * time.Millisecond}
	b := svc.failureBackoff()

	var last time.Duration
	for i := 0; i < 12; i++ {
		next, stop := b.Next()
		require.False(t, stop)
		require.LessOrEqual(t, next, maxBackoff+jitterWindow)
		last = next
	}
	require.GreaterOrEqual(t, last, maxBackoff-jitterWindow)
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, defaultOutboxConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, h.svc.Run(ctx), context.Canceled)
}
