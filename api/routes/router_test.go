package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coverledger/api/controllers"
	"github.com/angelmondragon/coverledger/api/responses"
	"github.com/angelmondragon/coverledger/pkg/config"
	"github.com/angelmondragon/coverledger/pkg/db/dbtest"
	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
	"github.com/angelmondragon/coverledger/pkg/logger"
	"github.com/angelmondragon/coverledger/pkg/metrics"
	"github.com/angelmondragon/coverledger/pkg/outbox"
)

func newTestRouter(t *testing.T, reg *prometheus.Registry, checks ...controllers.Check) chi.Router {
	t.Helper()
	cfg := &config.Config{
		App:     config.AppConfig{Env: "test"},
		Service: config.ServiceConfig{Kind: "cron-worker"},
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewOpsRouter(cfg, logg, reg, checks...)
}

func okCheck(name string) controllers.Check {
	return controllers.Check{Name: name, Ping: func(context.Context) error { return nil }}
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, prometheus.NewRegistry())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "test", w.Header().Get("X-Coverledger-Env"))
	require.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	router := newTestRouter(t, prometheus.NewRegistry(),
		okCheck("database"),
		controllers.Check{Name: "redis", Ping: func(context.Context) error { return errors.New("dial tcp: refused") }},
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body responses.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, "DEPENDENCY_ERROR", body.Error.Code)
	require.Equal(t, map[string]any{"dependency": "redis"}, body.Error.Details)
}

func TestHealthReadyAllGreen(t *testing.T) {
	router := newTestRouter(t, prometheus.NewRegistry(), okCheck("database"), okCheck("pubsub"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpointExposesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewCronJobMetrics(reg).ObserveRun("coverage-expiry", time.Second, nil)
	router := newTestRouter(t, reg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `cron_job_runs_total{job="coverage-expiry",result="success"} 1`)
}

func TestUnknownRouteIs404(t *testing.T) {
	router := newTestRouter(t, prometheus.NewRegistry())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/claims", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

type deadLetterListing struct {
	Data struct {
		Items []struct {
			EventID     string `json:"eventId"`
			ErrorReason string `json:"errorReason"`
		} `json:"items"`
		NextCursor string `json:"nextCursor"`
	} `json:"data"`
}

func getJSON(t *testing.T, router http.Handler, path string, out any) int {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && w.Code == http.StatusOK {
		require.NoError(t, json.NewDecoder(w.Body).Decode(out))
	}
	return w.Code
}

func TestDeadLetterInspection(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewDLQRepository(client.DB())
	base := time.Date(2026, time.October, 15, 8, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		id := uuid.New()
		ids = append(ids, id)
		require.NoError(t, repo.InsertTx(client.DB(), models.OutboxDLQ{
			EventID:       id,
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   uuid.New(),
			Payload:       []byte(`{}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			AttemptCount:  10,
			FailedAt:      base.Add(time.Duration(i) * time.Minute),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}

	router := newTestRouter(t, prometheus.NewRegistry())
	MountDeadLetters(router, logger.New(logger.Options{Output: io.Discard}), repo)

	var first deadLetterListing
	require.Equal(t, http.StatusOK, getJSON(t, router, "/outbox/dlq?limit=2", &first))
	require.Len(t, first.Data.Items, 2)
	require.Equal(t, ids[2].String(), first.Data.Items[0].EventID)
	require.Equal(t, ids[1].String(), first.Data.Items[1].EventID)
	require.Equal(t, "max_attempts", first.Data.Items[0].ErrorReason)
	require.NotEmpty(t, first.Data.NextCursor)

	var second deadLetterListing
	require.Equal(t, http.StatusOK, getJSON(t, router, "/outbox/dlq?limit=2&cursor="+first.Data.NextCursor, &second))
	require.Len(t, second.Data.Items, 1)
	require.Equal(t, ids[0].String(), second.Data.Items[0].EventID)
	require.Empty(t, second.Data.NextCursor)

	require.Equal(t, http.StatusOK, getJSON(t, router, "/outbox/dlq/"+ids[1].String(), nil))
	require.Equal(t, http.StatusNotFound, getJSON(t, router, "/outbox/dlq/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusBadRequest, getJSON(t, router, "/outbox/dlq/not-a-uuid", nil))
	require.Equal(t, http.StatusBadRequest, getJSON(t, router, "/outbox/dlq?cursor=bm90LWpzb24", nil))
	require.Equal(t, http.StatusBadRequest, getJSON(t, router, "/outbox/dlq?limit=ten", nil))
}
