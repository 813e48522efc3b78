package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type fakeOutboxPurger struct {
	cutoff      time.Time
	minAttempts int
	calls       int
	err         error
}

func (f *fakeOutboxPurger) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	f.minAttempts = minAttemptCount
	if f.err != nil {
		return 0, f.err
	}
	return 7, nil
}

type fakeDeadLetterPurger struct {
	cutoff time.Time
	err    error
}

func (f *fakeDeadLetterPurger) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 2, f.err
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newOutboxRetention(t *testing.T, events *fakeOutboxPurger, dlq *fakeDeadLetterPurger) *retentionJob {
	t.Helper()
	params := OutboxRetentionJobParams{Logger: quietLogger(), DB: passthroughTx{}, Events: events}
	if dlq != nil {
		params.DeadLetters = dlq
	}
	job, err := NewOutboxRetentionJob(params)
	require.NoError(t, err)
	rj := job.(*retentionJob)
	rj.now = func() time.Time { return fixedNow }
	return rj
}

func TestOutboxRetentionPrunesEventsAndDeadLetters(t *testing.T) {
	events := &fakeOutboxPurger{}
	dlq := &fakeDeadLetterPurger{}
	job := newOutboxRetention(t, events, dlq)

	require.NoError(t, job.Run(context.Background()))
	want := fixedNow.AddDate(0, 0, -defaultOutboxRetentionDays)
	require.True(t, events.cutoff.Equal(want))
	require.True(t, dlq.cutoff.Equal(want))
	require.Equal(t, defaultOutboxMinAttempts, events.minAttempts)
	require.Equal(t, "outbox-retention", job.Name())
}

func TestOutboxRetentionKeepsGoingAfterFailure(t *testing.T) {
	events := &fakeOutboxPurger{err: errors.New("lock timeout")}
	dlq := &fakeDeadLetterPurger{}
	job := newOutboxRetention(t, events, dlq)

	err := job.Run(context.Background())
	require.Error(t, err)
	require.Len(t, multierr.Errors(errors.Unwrap(err)), 1)
	require.False(t, dlq.cutoff.IsZero())
}

func TestOutboxRetentionWithoutDeadLetters(t *testing.T) {
	events := &fakeOutboxPurger{}
	job := newOutboxRetention(t, events, nil)
	require.Len(t, job.targets, 1)
	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 1, events.calls)
}

func TestRetentionJobsRequireDependencies(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: quietLogger(), DB: passthroughTx{}})
	require.Error(t, err)
	_, err = NewNotificationRetentionJob(NotificationRetentionJobParams{Logger: quietLogger()})
	require.Error(t, err)
}
