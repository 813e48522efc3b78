package cron

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/coverledger/pkg/logger"
	"github.com/angelmondragon/coverledger/pkg/metrics"
)

type fakeLock struct {
	held     bool
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestRunOnceRunsEveryJobEvenOnFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	ok := &testJob{name: "coverage-expiry"}
	bad := &testJob{name: "warranty-expiry", err: errors.New("boom")}
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{
		Logger:   quietLogger(),
		Registry: NewRegistry(ok, bad),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	err = svc.RunOnce(context.Background())
	if got := multierr.Errors(err); len(got) != 1 {
		t.Fatalf("expected one failed job, got %v", got)
	}
	if !errors.Is(err, bad.err) || !strings.Contains(err.Error(), "warranty-expiry: boom") {
		t.Fatalf("failure should name the job: %v", err)
	}
	if ok.runs != 1 || bad.runs != 1 {
		t.Fatalf("expected each job to run once, got %d and %d", ok.runs, bad.runs)
	}
	if lock.held || lock.releases != 1 {
		t.Fatalf("lock should be released after the cycle")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected cron metrics to be exported")
	}
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "outbox-retention"}
	svc, err := NewService(ServiceParams{
		Logger:   quietLogger(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{held: true},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job ran without the lock")
	}
}

func TestRunOnceSurfacesLockErrors(t *testing.T) {
	job := &testJob{name: "coverage-expiry"}
	svc, err := NewService(ServiceParams{Logger: quietLogger(), Registry: NewRegistry(job), Lock: brokenLock{}})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected lock error")
	}
	if job.runs != 0 {
		t.Fatalf("job ran without the lock")
	}
}

type brokenLock struct{}

func (brokenLock) Acquire(context.Context) (bool, error) { return false, errors.New("redis down") }
func (brokenLock) Release(context.Context) error         { return nil }

func TestNewServiceValidatesParams(t *testing.T) {
	if _, err := NewService(ServiceParams{Lock: &fakeLock{}}); err == nil {
		t.Fatalf("expected logger error")
	}
	if _, err := NewService(ServiceParams{Logger: quietLogger()}); err == nil {
		t.Fatalf("expected lock error")
	}
	svc, err := NewService(ServiceParams{Logger: quietLogger(), Lock: &fakeLock{}})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if svc.interval != defaultInterval {
		t.Fatalf("expected default interval, got %s", svc.interval)
	}
}
