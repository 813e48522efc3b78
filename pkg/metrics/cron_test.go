package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsRecordsRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.now = func() time.Time { return time.Unix(1_760_000_000, 0) }

	job := "coverage-expiry"
	m.ObserveRun(job, 250*time.Millisecond, nil)
	m.ObserveRun(job, time.Second, errors.New("db down"))
	m.ObserveRun(job, -time.Second, nil)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got := mustValue(t, mfs, "cron_job_runs_total", map[string]string{"job": job, "result": "success"}); got != 2 {
		t.Fatalf("expected 2 successes, got %f", got)
	}
	if got := mustValue(t, mfs, "cron_job_runs_total", map[string]string{"job": job, "result": "failure"}); got != 1 {
		t.Fatalf("expected 1 failure, got %f", got)
	}
	if got := mustValue(t, mfs, "cron_job_last_success_timestamp_seconds", map[string]string{"job": job}); got != 1_760_000_000 {
		t.Fatalf("unexpected last success %f", got)
	}
	if got := mustValue(t, mfs, "cron_job_duration_seconds", map[string]string{"job": job}); got != 1.25 {
		t.Fatalf("expected duration sum 1.25 with negatives clamped, got %f", got)
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveRun("x", time.Second, nil)
	NewCronJobMetrics(nil).ObserveRun("x", time.Second, errors.New("boom"))
}

// mustValue returns the counter, gauge or histogram-sum value for the series
// matching every label in want.
func mustValue(t *testing.T, mfs []*dto.MetricFamily, name string, want map[string]string) float64 {
	t.Helper()
	v, err := seriesValue(mfs, name, want)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func seriesValue(mfs []*dto.MetricFamily, name string, want map[string]string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if !hasLabels(metric.GetLabel(), want) {
				continue
			}
			switch {
			case metric.Counter != nil:
				return metric.GetCounter().GetValue(), nil
			case metric.Gauge != nil:
				return metric.GetGauge().GetValue(), nil
			case metric.Histogram != nil:
				return metric.GetHistogram().GetSampleSum(), nil
			}
		}
		return 0, fmt.Errorf("metric %q has no series %v", name, want)
	}
	return 0, fmt.Errorf("metric %q not found", name)
}

func hasLabels(labels []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, label := range labels {
		if v, ok := want[label.GetName()]; ok && v == label.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
