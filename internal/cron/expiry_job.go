package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/coverledger/pkg/logger"
)

// expirer is satisfied by the coverage and warranty services.
type expirer interface {
	ExpireEnded(ctx context.Context, now time.Time) (int, error)
}

// NewCoverageExpiryJob deactivates coverages past their end date.
func NewCoverageExpiryJob(logg *logger.Logger, coverages expirer) (Job, error) {
	job, err := newExpiryJob("coverage-expiry", logg, coverages)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// NewWarrantyExpiryJob deactivates service and delivery warranties past their end date.
func NewWarrantyExpiryJob(logg *logger.Logger, warranties expirer) (Job, error) {
	job, err := newExpiryJob("warranty-expiry", logg, warranties)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func newExpiryJob(name string, logg *logger.Logger, target expirer) (*expiryJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if target == nil {
		return nil, fmt.Errorf("%s target required", name)
	}
	return &expiryJob{name: name, logg: logg, target: target, now: time.Now}, nil
}

type expiryJob struct {
	name   string
	logg   *logger.Logger
	target expirer
	now    func() time.Time
}

func (j *expiryJob) Name() string { return j.name }

func (j *expiryJob) Run(ctx context.Context) error {
	expired, err := j.target.ExpireEnded(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithField(ctx, "expired", expired), "expiry sweep complete")
	return nil
}

// ExpireFunc adapts a plain function to the expiry jobs.
type ExpireFunc func(ctx context.Context, now time.Time) (int, error)

func (f ExpireFunc) ExpireEnded(ctx context.Context, now time.Time) (int, error) {
	return f(ctx, now)
}
