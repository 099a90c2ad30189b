package jobs

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func jobsRouter(t *testing.T, client *Client) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, client, logger).MountRoutes)
	return r
}

func TestHealthWithoutInspectorReportsEmptyQueue(t *testing.T) {
	rec := httptest.NewRecorder()
	jobsRouter(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())
}

func TestTriggerWarmupWithoutClientRefuses(t *testing.T) {
	rec := httptest.NewRecorder()
	jobsRouter(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/insights-warmup", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTriggerWarmupRejectsBadPayload(t *testing.T) {
	srv := miniredis.RunT(t)
	client, err := NewClient(asynq.RedisClientOpt{Addr: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs/insights-warmup", strings.NewReader("{not json"))
	jobsRouter(t, client).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerWarmupEnqueuesTask(t *testing.T) {
	srv := miniredis.RunT(t)
	client, err := NewClient(asynq.RedisClientOpt{Addr: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs/insights-warmup", strings.NewReader(`{"months":["2026-08"]}`))
	jobsRouter(t, client).ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), TaskInsightsWarmup)
}
