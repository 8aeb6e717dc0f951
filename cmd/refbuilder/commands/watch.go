package commands

import (
	"context"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"

	"git.home.luguber.info/inful/refbuilder/internal/config"
	"git.home.luguber.info/inful/refbuilder/internal/libspec"
	"git.home.luguber.info/inful/refbuilder/internal/logfields"
	"git.home.luguber.info/inful/refbuilder/internal/metrics"
	"git.home.luguber.info/inful/refbuilder/internal/pipeline"
	"git.home.luguber.info/inful/refbuilder/internal/sources"
	"git.home.luguber.info/inful/refbuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Library []string `short:"l" help:"Watch only the given library ids (repeatable)"`
	NoFetch bool     `name:"no-fetch" help:"Use existing source clones instead of fetching"`
}

func (c *WatchCmd) Run(g *Global, root *CLI) error {
	for {
		reload, err := c.session(g, root)
		if err != nil || !reload {
			return err
		}
		slog.Info("Watched inputs changed; reloading")
	}
}

// session builds once and then rebuilds on change until ctx ends. It returns reload
// when the config file changed or a rebuild changed the set of watched inputs.
func (c *WatchCmd) session(g *Global, root *CLI) (reload bool, err error) {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return false, err
	}
	libs, err := selectLibraries(cfg, c.Library)
	if err != nil {
		return false, err
	}
	r, err := newRunner(cfg, metrics.NoopRecorder{})
	if err != nil {
		return false, err
	}
	defer func() { _ = r.Close() }()

	dirs, err := r.sourceDirs(g.Ctx, !c.NoFetch)
	if err != nil {
		return false, err
	}
	inputs := libraryInputs(libs, dirs)

	rebuild := func(ctx context.Context, libs []config.Library) {
		report, err := r.build(ctx, libs, dirs)
		if report != nil {
			slog.Info("Rebuild finished", logfields.Outcome(string(report.Outcome)))
		}
		if err != nil {
			slog.Error("Rebuild failed", logfields.Error(err))
		}
	}
	rebuild(g.Ctx, libs)

	configPath, err := filepath.Abs(root.Config)
	if err != nil {
		return false, err
	}
	paths := []string{configPath}
	for _, files := range inputs {
		paths = append(paths, files...)
	}

	ctx, cancel := context.WithCancel(g.Ctx)
	defer cancel()
	w, err := watch.New(paths, cfg.Watch.Debounce, cfg.Watch.Ignore, func(ctx context.Context, changed []string) {
		if slices.Contains(changed, configPath) {
			reload = true
			cancel()
			return
		}
		affected := affectedLibraries(libs, inputs, changed)
		if len(affected) == 0 {
			return
		}
		slog.Info("Inputs changed", logfields.Count(len(changed)), slog.Int("libraries", len(affected)))
		rebuild(ctx, affected)
		// An edited spec may name a different definition file.
		if !maps.EqualFunc(inputs, libraryInputs(libs, dirs), slices.Equal[[]string]) {
			reload = true
			cancel()
		}
	})
	if err != nil {
		return false, err
	}
	if err := w.Run(ctx); err != nil {
		return false, err
	}
	return reload && g.Ctx.Err() == nil, nil
}

// libraryInputs maps each library id to the absolute paths of the files its build
// reads, including a TypeDoc file named by the spec's definition. Inputs inside
// unknown sources are skipped.
func libraryInputs(libs []config.Library, dirs map[string]string) map[string][]string {
	out := make(map[string][]string, len(libs))
	add := func(id, path string) {
		p, err := sources.Resolve(path, dirs)
		if err != nil {
			return
		}
		if abs, err := filepath.Abs(p); err == nil && !slices.Contains(out[id], abs) {
			out[id] = append(out[id], abs)
		}
	}
	for _, lib := range libs {
		for _, in := range lib.Inputs() {
			add(lib.ID, in)
		}
		if def := definitionPath(lib, dirs); def != "" {
			add(lib.ID, def)
		}
	}
	return out
}

// definitionPath returns the TypeDoc file a client library falls back to, or "" when
// one is configured or the spec cannot be read.
func definitionPath(lib config.Library, dirs map[string]string) string {
	if lib.TypeDoc != "" || lib.Kind != libspec.KindClientLib {
		return ""
	}
	specPath, err := sources.Resolve(lib.Spec, dirs)
	if err != nil {
		return ""
	}
	spec, err := libspec.Load(lib.Kind, specPath)
	if err != nil {
		slog.Debug("Cannot read spec for its definition file", logfields.Library(lib.ID), logfields.Error(err))
		return ""
	}
	return pipeline.TypeDocPath(lib, spec)
}

// affectedLibraries returns the libraries reading any changed path.
func affectedLibraries(libs []config.Library, inputs map[string][]string, changed []string) []config.Library {
	var out []config.Library
	for _, lib := range libs {
		for _, p := range changed {
			if slices.Contains(inputs[lib.ID], p) {
				out = append(out, lib)
				break
			}
		}
	}
	return out
}
