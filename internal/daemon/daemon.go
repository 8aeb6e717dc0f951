// Package daemon rebuilds on a schedule and serves metrics and health endpoints.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/refbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/refbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/refbuilder/internal/logfields"
	"git.home.luguber.info/inful/refbuilder/internal/metrics"
	"git.home.luguber.info/inful/refbuilder/internal/store"
)

// BuildFunc performs one full build.
type BuildFunc func(ctx context.Context) error

// RunSource reports the most recent build run. *store.SQLiteStore implements it.
type RunSource interface {
	LastRun(ctx context.Context) (store.Run, bool, error)
}

// Daemon runs BuildFunc every interval and serves /metrics and /healthz.
type Daemon struct {
	interval time.Duration
	addr     string
	build    BuildFunc
	runs     RunSource
	registry *prom.Registry
	started  time.Time

	mu        sync.Mutex
	building  bool
	lastBuild time.Time
	lastErr   error
	builds    int
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithRunSource makes /healthz report the last persisted run.
func WithRunSource(r RunSource) Option {
	return func(d *Daemon) { d.runs = r }
}

// WithRegistry serves metrics from reg instead of a fresh registry.
func WithRegistry(reg *prom.Registry) Option {
	return func(d *Daemon) { d.registry = reg }
}

// New creates a daemon from the daemon configuration section.
func New(cfg config.DaemonConfig, build BuildFunc, opts ...Option) (*Daemon, error) {
	if build == nil {
		return nil, ferrors.ValidationError("build function is required").Build()
	}
	if cfg.Interval <= 0 {
		return nil, ferrors.ValidationError("daemon interval must be > 0").
			WithContext("interval", cfg.Interval.String()).Build()
	}
	d := &Daemon{interval: cfg.Interval, addr: cfg.MetricsAddr, build: build}
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = metrics.NewRegistry()
	}
	return d, nil
}

// Handler returns the HTTP endpoints.
func (d *Daemon) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(d.registry))
	mux.HandleFunc("/healthz", d.handleHealth)
	return mux
}

// Run starts the scheduler (first build immediately) and the HTTP server, and blocks
// until ctx is canceled. A build in progress when the next tick fires delays that tick.
func (d *Daemon) Run(ctx context.Context) error {
	d.started = time.Now()

	var srv *http.Server
	serveErr := make(chan error, 1)
	if d.addr != "" {
		ln, err := net.Listen("tcp", d.addr)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryRuntime, "listen for metrics").
				WithContext("addr", d.addr).Fatal().Build()
		}
		srv = &http.Server{Handler: d.Handler(), ReadHeaderTimeout: 10 * time.Second, IdleTimeout: 120 * time.Second}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()
		slog.Info("Metrics server started", slog.String("addr", ln.Addr().String()))
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		d.shutdownServer(srv)
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(d.interval),
		gocron.NewTask(d.runBuild, ctx),
		gocron.WithName("refbuilder-build"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		d.shutdownServer(srv)
		_ = s.Shutdown()
		return fmt.Errorf("failed to create periodic build job: %w", err)
	}
	slog.Info("Starting scheduler", slog.Duration("interval", d.interval))
	s.Start()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = ferrors.WrapError(err, ferrors.CategoryRuntime, "metrics server failed").Build()
		}
	}

	slog.Info("Stopping scheduler")
	if err := s.Shutdown(); err != nil {
		slog.Warn("Scheduler shutdown failed", logfields.Error(err))
	}
	d.shutdownServer(srv)
	return runErr
}

func (d *Daemon) shutdownServer(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("Metrics server shutdown failed", logfields.Error(err))
	}
}

// runBuild is the scheduled task.
func (d *Daemon) runBuild(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	d.mu.Lock()
	d.building = true
	d.mu.Unlock()

	slog.Info("Executing scheduled build")
	err := d.build(ctx)

	d.mu.Lock()
	d.building = false
	d.lastBuild = time.Now()
	d.lastErr = err
	d.builds++
	d.mu.Unlock()

	if err != nil {
		slog.Error("Scheduled build failed", logfields.Error(err))
	}
}

// Builds returns how many scheduled builds have completed.
func (d *Daemon) Builds() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.builds
}
