package daemon

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/refbuilder/internal/logfields"
	"git.home.luguber.info/inful/refbuilder/internal/store"
	"git.home.luguber.info/inful/refbuilder/internal/version"
)

// HealthStatus represents the overall health of the daemon.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status    HealthStatus `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Uptime    string       `json:"uptime"`
	Version   string       `json:"version"`
	Building  bool         `json:"building"`
	LastBuild *time.Time   `json:"last_build,omitempty"`
	LastError string       `json:"last_error,omitempty"`
	LastRun   *store.Run   `json:"last_run,omitempty"`
}

// Health derives the daemon status. A failed last run is unhealthy, a partial one degraded.
func (d *Daemon) Health(r *http.Request) HealthResponse {
	resp := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   version.Resolved(),
	}
	if !d.started.IsZero() {
		resp.Uptime = time.Since(d.started).Round(time.Second).String()
	}

	d.mu.Lock()
	resp.Building = d.building
	if !d.lastBuild.IsZero() {
		t := d.lastBuild
		resp.LastBuild = &t
	}
	if d.lastErr != nil {
		resp.LastError = d.lastErr.Error()
		resp.Status = HealthStatusDegraded
	}
	d.mu.Unlock()

	if d.runs == nil {
		return resp
	}
	run, ok, err := d.runs.LastRun(r.Context())
	switch {
	case err != nil:
		resp.Status = HealthStatusUnhealthy
		resp.LastError = err.Error()
	case !ok:
	default:
		resp.LastRun = &run
		switch run.Outcome {
		case store.OutcomeFailed:
			resp.Status = HealthStatusUnhealthy
		case store.OutcomePartial:
			resp.Status = HealthStatusDegraded
		}
	}
	return resp
}

func (d *Daemon) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := d.Health(r)
	w.Header().Set("Content-Type", "application/json")
	if resp.Status == HealthStatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to write health response", logfields.Error(err))
	}
}
