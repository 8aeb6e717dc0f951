package commands

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"git.home.luguber.info/inful/refbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/refbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/refbuilder/internal/logfields"
	"git.home.luguber.info/inful/refbuilder/internal/metrics"
	"git.home.luguber.info/inful/refbuilder/internal/pipeline"
	"git.home.luguber.info/inful/refbuilder/internal/search"
	"git.home.luguber.info/inful/refbuilder/internal/sources"
	"git.home.luguber.info/inful/refbuilder/internal/store"
)

// runner owns the long-lived resources shared by build, watch and daemon.
type runner struct {
	cfg      *config.Config
	store    *store.SQLiteStore
	recorder metrics.Recorder
	fetcher  *sources.Fetcher
	sink     search.Sink
}

func newRunner(cfg *config.Config, rec metrics.Recorder) (*runner, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	r := &runner{
		cfg:      cfg,
		store:    st,
		recorder: rec,
		fetcher:  sources.NewFetcher(cfg.Build.Workspace, cfg.Retry.Policy(), sources.WithRecorder(rec)),
	}
	sinks := search.MultiSink{search.NewFileSink(cfg.Output.Directory)}
	if cfg.Search.Enabled && cfg.Search.NATS.URL != "" {
		ns, err := search.NewNATSSink(cfg.Search.NATS.URL, cfg.Search.NATS.Subject, cfg.Retry.Policy())
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		sinks = append(sinks, ns)
		slog.Info("Publishing search records to NATS", logfields.URL(cfg.Search.NATS.URL))
	}
	r.sink = sinks
	return r, nil
}

// sourceDirs fetches every configured source, or only maps names onto existing
// clones when fetch is false.
func (r *runner) sourceDirs(ctx context.Context, fetch bool) (map[string]string, error) {
	if fetch {
		return r.fetcher.FetchAll(ctx, r.cfg.Sources)
	}
	dirs := make(map[string]string, len(r.cfg.Sources))
	for _, src := range r.cfg.Sources {
		dirs[src.Name] = r.fetcher.Path(src.Name)
	}
	return dirs, nil
}

func (r *runner) build(ctx context.Context, libs []config.Library, dirs map[string]string) (*pipeline.Report, error) {
	b := pipeline.NewBuilder(r.cfg,
		pipeline.WithStore(r.store),
		pipeline.WithRecorder(r.recorder),
		pipeline.WithSink(r.sink),
		pipeline.WithSourceDirs(dirs),
	)
	return b.Build(ctx, libs)
}

func (r *runner) Close() error {
	return errors.Join(r.sink.Close(), r.store.Close())
}

// selectLibraries returns the configured libraries named by ids, in config order.
// No ids selects every library.
func selectLibraries(cfg *config.Config, ids []string) ([]config.Library, error) {
	if len(ids) == 0 {
		return cfg.Libraries, nil
	}
	for _, id := range ids {
		if _, ok := cfg.Library(id); !ok {
			return nil, ferrors.NotFoundError("library not configured").WithContext("library", id).Build()
		}
	}
	var out []config.Library
	for _, lib := range cfg.Libraries {
		if slices.Contains(ids, lib.ID) {
			out = append(out, lib)
		}
	}
	return out, nil
}
