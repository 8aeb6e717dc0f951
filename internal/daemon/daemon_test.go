package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"git.home.luguber.info/inful/refbuilder/internal/config"
	"git.home.luguber.info/inful/refbuilder/internal/metrics"
	"git.home.luguber.info/inful/refbuilder/internal/store"
)

type fakeRuns struct {
	run store.Run
	ok  bool
	err error
}

func (f fakeRuns) LastRun(context.Context) (store.Run, bool, error) { return f.run, f.ok, f.err }

func TestNewValidates(t *testing.T) {
	_, err := New(config.DaemonConfig{Interval: time.Minute}, nil)
	require.Error(t, err)

	_, err = New(config.DaemonConfig{}, func(context.Context) error { return nil })
	require.Error(t, err)
}

func TestRunBuildsImmediatelyAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	started := make(chan struct{}, 1)
	d, err := New(config.DaemonConfig{Interval: time.Hour}, func(context.Context) error {
		calls.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatalf("scheduled build did not start")
	}
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("daemon did not stop")
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, d.Builds())
}

func TestMetricsEndpoint(t *testing.T) {
	reg := metrics.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	d, err := New(config.DaemonConfig{Interval: time.Hour}, func(context.Context) error {
		rec.IncBuildOutcome("success")
		return nil
	}, WithRegistry(reg))
	require.NoError(t, err)
	d.runBuild(context.Background())

	rr := httptest.NewRecorder()
	d.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "refbuilder_build_outcomes_total")
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestRunFailsOnBusyAddress(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	d, err := New(config.DaemonConfig{Interval: time.Hour, MetricsAddr: strings.TrimPrefix(srv.URL, "http://")},
		func(context.Context) error { return nil })
	require.NoError(t, err)
	require.Error(t, d.Run(context.Background()))
}

func TestHealth(t *testing.T) {
	build := func(context.Context) error { return nil }
	tests := []struct {
		name   string
		runs   RunSource
		code   int
		status HealthStatus
	}{
		{"no store", nil, http.StatusOK, HealthStatusHealthy},
		{"no runs yet", fakeRuns{}, http.StatusOK, HealthStatusHealthy},
		{"success", fakeRuns{run: store.Run{ID: "r1", Outcome: store.OutcomeSuccess}, ok: true}, http.StatusOK, HealthStatusHealthy},
		{"partial", fakeRuns{run: store.Run{ID: "r2", Outcome: store.OutcomePartial}, ok: true}, http.StatusOK, HealthStatusDegraded},
		{"failed", fakeRuns{run: store.Run{ID: "r3", Outcome: store.OutcomeFailed}, ok: true}, http.StatusServiceUnavailable, HealthStatusUnhealthy},
		{"store error", fakeRuns{err: errors.New("disk gone")}, http.StatusServiceUnavailable, HealthStatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.runs != nil {
				opts = append(opts, WithRunSource(tt.runs))
			}
			d, err := New(config.DaemonConfig{Interval: time.Minute}, build, opts...)
			require.NoError(t, err)

			rr := httptest.NewRecorder()
			d.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			require.Equal(t, tt.code, rr.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.status, resp.Status)
		})
	}
}

func TestHealthReportsBuildError(t *testing.T) {
	d, err := New(config.DaemonConfig{Interval: time.Minute}, func(context.Context) error {
		return errors.New("spec missing")
	})
	require.NoError(t, err)
	d.runBuild(context.Background())

	rr := httptest.NewRecorder()
	d.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, HealthStatusDegraded, resp.Status)
	assert.Equal(t, "spec missing", resp.LastError)
	assert.NotNil(t, resp.LastBuild)
}
