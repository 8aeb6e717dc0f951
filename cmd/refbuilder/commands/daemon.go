package commands

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/refbuilder/internal/daemon"
	"git.home.luguber.info/inful/refbuilder/internal/metrics"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	Library  []string      `short:"l" help:"Build only the given library ids (repeatable)"`
	Interval time.Duration `help:"Override daemon.interval"`
	Addr     string        `help:"Override daemon.metrics_addr"`
}

func (c *DaemonCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if c.Interval > 0 {
		cfg.Daemon.Interval = c.Interval
	}
	if c.Addr != "" {
		cfg.Daemon.MetricsAddr = c.Addr
	}
	libs, err := selectLibraries(cfg, c.Library)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	r, err := newRunner(cfg, metrics.NewPrometheusRecorder(reg))
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	d, err := daemon.New(cfg.Daemon, func(ctx context.Context) error {
		dirs, err := r.sourceDirs(ctx, true)
		if err != nil {
			return err
		}
		report, err := r.build(ctx, libs, dirs)
		if report != nil {
			slog.Info("Scheduled build summary", slog.String("summary", report.Summary()))
		}
		return err
	}, daemon.WithRunSource(r.store), daemon.WithRegistry(reg))
	if err != nil {
		return err
	}
	return d.Run(g.Ctx)
}
