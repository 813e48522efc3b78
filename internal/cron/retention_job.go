package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/logger"
)

const (
	defaultOutboxRetentionDays       = 30
	defaultNotificationRetentionDays = 90
	defaultOutboxMinAttempts         = 5
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEventPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type deadLetterPurger interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationPurger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type purgeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

type purgeTarget struct {
	table string
	purge purgeFunc
}

// retentionJob applies one window to several tables. A failing table does
// not stop the rest from being pruned.
type retentionJob struct {
	name    string
	logg    *logger.Logger
	days    int
	targets []purgeTarget
	now     func() time.Time
}

type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Events      outboxEventPurger
	DeadLetters deadLetterPurger
	Retention   int
	MinAttempts int
}

// NewOutboxRetentionJob prunes published or abandoned outbox rows and, when
// configured, dead letters older than the window.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Events == nil:
		return nil, fmt.Errorf("outbox repository required")
	}
	minAttempts := params.MinAttempts
	if minAttempts <= 0 {
		minAttempts = defaultOutboxMinAttempts
	}
	targets := []purgeTarget{{
		table: "outbox_events",
		purge: func(ctx context.Context, cutoff time.Time) (int64, error) {
			var n int64
			err := params.DB.WithTx(ctx, func(tx *gorm.DB) error {
				var err error
				n, err = params.Events.DeletePublishedBefore(ctx, tx, cutoff, minAttempts)
				return err
			})
			return n, err
		},
	}}
	if params.DeadLetters != nil {
		targets = append(targets, purgeTarget{table: "outbox_dlq", purge: params.DeadLetters.DeleteBefore})
	}
	return newRetentionJob("outbox-retention", params.Logger, params.Retention, defaultOutboxRetentionDays, targets), nil
}

type NotificationRetentionJobParams struct {
	Logger        *logger.Logger
	Notifications notificationPurger
	Retention     int
}

func NewNotificationRetentionJob(params NotificationRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	targets := []purgeTarget{{table: "notifications", purge: params.Notifications.PurgeOlderThan}}
	return newRetentionJob("notification-retention", params.Logger, params.Retention, defaultNotificationRetentionDays, targets), nil
}

func newRetentionJob(name string, logg *logger.Logger, days, fallback int, targets []purgeTarget) *retentionJob {
	if days <= 0 {
		days = fallback
	}
	return &retentionJob{name: name, logg: logg, days: days, targets: targets, now: time.Now}
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.days)
	fields := map[string]any{"cutoff": cutoff, "retention_days": j.days}

	var errs error
	for _, target := range j.targets {
		n, err := target.purge(ctx, cutoff)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("purge %s: %w", target.table, err))
			continue
		}
		fields["deleted_"+target.table] = n
	}
	if errs != nil {
		return fmt.Errorf("%s: %w", j.name, errs)
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "retention pass complete")
	return nil
}
