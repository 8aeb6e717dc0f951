package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/refbuilder/internal/config"
	"git.home.luguber.info/inful/refbuilder/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output  string   `short:"o" help:"Override output.directory"`
	Library []string `short:"l" help:"Build only the given library ids (repeatable)"`
	Full    bool     `help:"Rebuild every library even when its inputs are unchanged"`
	NoFetch bool     `name:"no-fetch" help:"Use existing source clones instead of fetching"`
}

func (b *BuildCmd) apply(cfg *config.Config) error {
	if b.Output != "" {
		abs, err := filepath.Abs(b.Output)
		if err != nil {
			return fmt.Errorf("resolve output directory: %w", err)
		}
		cfg.Output.Directory = abs
	}
	if b.Full {
		cfg.Build.Incremental = false
	}
	return nil
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if err := b.apply(cfg); err != nil {
		return err
	}
	libs, err := selectLibraries(cfg, b.Library)
	if err != nil {
		return err
	}

	r, err := newRunner(cfg, metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	dirs, err := r.sourceDirs(g.Ctx, !b.NoFetch)
	if err != nil {
		return err
	}
	report, err := r.build(g.Ctx, libs, dirs)
	if report != nil {
		_, _ = fmt.Fprintln(g.Stdout, report.Summary())
	}
	return err
}
