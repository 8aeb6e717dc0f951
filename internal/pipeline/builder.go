// Package pipeline builds the navigation, reference and search artifacts of every
// configured library.
package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/refbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/refbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/refbuilder/internal/logfields"
	"git.home.luguber.info/inful/refbuilder/internal/metrics"
	"git.home.luguber.info/inful/refbuilder/internal/observability"
	"git.home.luguber.info/inful/refbuilder/internal/search"
	"git.home.luguber.info/inful/refbuilder/internal/sections"
	"git.home.luguber.info/inful/refbuilder/internal/store"
)

// Artifact file names written per library and for the whole build.
const (
	MenuFileName           = "menu.json"
	SectionsFileName       = "sections.json"
	ReferenceFileName      = "reference.json"
	CommonSectionsFileName = "common-sections.json"
)

// StateStore persists run and library results. *store.SQLiteStore implements it.
type StateStore interface {
	BeginRun(ctx context.Context) (store.Run, error)
	RecordLibrary(ctx context.Context, res store.LibraryResult) error
	FinishRun(ctx context.Context, runID string, outcome store.Outcome) error
	LastSuccessfulHash(ctx context.Context, library string) (string, bool, error)
}

// Builder runs the library build stages.
type Builder struct {
	outputDir     string
	clean         bool
	concurrency   int
	incremental   bool
	searchEnabled bool

	recorder   metrics.Recorder
	store      StateStore
	sink       search.Sink
	ids        sections.IDGenerator
	sourceDirs map[string]string
	now        func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithStore enables run persistence and incremental builds.
func WithStore(s StateStore) Option {
	return func(b *Builder) { b.store = s }
}

// WithSink replaces the default file sink for search records.
func WithSink(s search.Sink) Option {
	return func(b *Builder) { b.sink = s }
}

// WithIDs sets the menu item id generator.
func WithIDs(g sections.IDGenerator) Option {
	return func(b *Builder) { b.ids = g }
}

// WithSourceDirs maps source names to fetched clone directories for source:// paths.
func WithSourceDirs(dirs map[string]string) Option {
	return func(b *Builder) { b.sourceDirs = dirs }
}

// NewBuilder creates a builder from the loaded configuration.
func NewBuilder(cfg *config.Config, opts ...Option) *Builder {
	b := &Builder{
		outputDir:     cfg.Output.Directory,
		clean:         cfg.Output.Clean,
		concurrency:   cfg.Build.Concurrency,
		incremental:   cfg.Build.Incremental,
		searchEnabled: cfg.Search.Enabled,
		recorder:      metrics.NoopRecorder{},
		ids:           sections.UUIDGenerator{},
		now:           time.Now,
	}
	if b.concurrency < 1 {
		b.concurrency = 1
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.sink == nil {
		b.sink = search.NewFileSink(b.outputDir)
	}
	return b
}

// Build builds libs concurrently. A failing library is reported without stopping its
// siblings. The returned report is always non-nil; the error is set when the run was
// canceled, could not be set up, or any library failed.
func (b *Builder) Build(ctx context.Context, libs []config.Library) (*Report, error) {
	report := &Report{Start: b.now(), Libraries: []LibraryReport{}}

	if b.clean {
		if err := os.RemoveAll(b.outputDir); err != nil {
			return b.abort(report, ferrors.WrapError(err, ferrors.CategoryFileSystem, "clean output directory").
				WithContext("path", b.outputDir).Build())
		}
	}
	if err := os.MkdirAll(b.outputDir, 0o755); err != nil {
		return b.abort(report, ferrors.WrapError(err, ferrors.CategoryFileSystem, "create output directory").
			WithContext("path", b.outputDir).Build())
	}

	report.RunID = uuid.NewString()
	if b.store != nil {
		run, err := b.store.BeginRun(ctx)
		if err != nil {
			return b.abort(report, err)
		}
		report.RunID = run.ID
	}
	ctx = observability.WithRunID(ctx, report.RunID)
	observability.InfoContext(ctx, "Build started", logfields.Count(len(libs)))

	states := make([]*libraryState, len(libs))
	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i, lib := range libs {
		g.Go(func() error {
			states[i] = b.buildLibrary(ctx, report.RunID, lib)
			return nil
		})
	}
	_ = g.Wait()

	for _, ls := range states {
		report.Libraries = append(report.Libraries, ls.report)
	}

	var runErr error
	if err := b.writeCommonSections(states); err != nil {
		observability.ErrorContext(ctx, "Failed to write common sections", logfields.Error(err))
		runErr = err
	}

	report.End = b.now()
	report.deriveOutcome(ctx.Err() != nil)
	if runErr != nil && report.Outcome == OutcomeSuccess {
		report.Outcome = OutcomePartial
	}
	b.finish(ctx, report)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if runErr != nil {
		return report, runErr
	}
	if failed := report.Failed(); len(failed) > 0 {
		ids := make([]string, 0, len(failed))
		for _, f := range failed {
			ids = append(ids, f.ID)
		}
		return report, ferrors.BuildError("library build failed").
			WithContext("libraries", strings.Join(ids, ",")).
			WithContext("failed", len(failed)).
			WithContext("total", len(libs)).Build()
	}
	return report, nil
}

// abort finishes a run that failed before any library was built.
func (b *Builder) abort(report *Report, err error) (*Report, error) {
	report.End = b.now()
	report.Outcome = OutcomeFailed
	b.recorder.IncBuildOutcome(string(report.Outcome))
	return report, err
}

// finish records the run outcome in metrics, the store and the persisted report.
func (b *Builder) finish(ctx context.Context, report *Report) {
	b.recorder.ObserveBuildDuration(report.End.Sub(report.Start))
	b.recorder.IncBuildOutcome(string(report.Outcome))

	// Bookkeeping still happens when the build itself was canceled.
	bg := context.WithoutCancel(ctx)
	if b.store != nil {
		if err := b.store.FinishRun(bg, report.RunID, report.storeOutcome()); err != nil {
			observability.WarnContext(ctx, "Failed to record run outcome", logfields.Error(err))
		}
	}
	if err := report.Persist(b.outputDir); err != nil {
		observability.WarnContext(ctx, "Failed to persist build report", logfields.Error(err))
	}
	observability.InfoContext(ctx, "Build finished",
		logfields.Outcome(string(report.Outcome)),
		logfields.Diagnostics(report.Diagnostics()),
		logfields.DurationMS(float64(report.End.Sub(report.Start).Microseconds())/1000))
}

// buildLibrary runs every stage for one library and records its outcome.
func (b *Builder) buildLibrary(ctx context.Context, runID string, lib config.Library) *libraryState {
	ls := newLibraryState(lib, filepath.Join(b.outputDir, lib.ID))
	ctx = observability.WithLibrary(ctx, lib.ID)

	start := time.Now()
	err := b.runStages(ctx, ls, b.stages())
	ls.report.Duration = time.Since(start)

	label := metrics.ResultSuccess
	switch {
	case err != nil:
		ls.report.Outcome = store.OutcomeFailed
		ls.report.Error = err.Error()
		var se *StageError
		if errors.As(err, &se) {
			ls.report.FailedStage = se.Stage
		}
		label = metrics.ResultFailed
		if ctx.Err() != nil {
			label = metrics.ResultCanceled
		}
		observability.ErrorContext(ctx, "Library build failed", logfields.Error(err))
	case ls.unchanged:
		ls.report.Outcome = store.OutcomeSkipped
		label = metrics.ResultSkipped
	default:
		ls.report.Outcome = store.OutcomeSuccess
		if ls.report.Diagnostics > 0 {
			label = metrics.ResultWarning
		}
		observability.InfoContext(ctx, "Library built",
			logfields.Count(ls.report.MenuItems),
			logfields.Diagnostics(ls.report.Diagnostics),
			logfields.DurationMS(float64(ls.report.Duration.Microseconds())/1000))
	}
	b.recorder.IncLibraryResult(lib.ID, label)
	b.recorder.AddDiagnostics(lib.ID, ls.report.Diagnostics)
	b.recorder.AddSearchRecords(lib.ID, ls.report.Records)

	if b.store != nil {
		res := store.LibraryResult{
			RunID:       runID,
			Library:     lib.ID,
			InputHash:   ls.report.InputHash,
			Outcome:     ls.report.Outcome,
			MenuItems:   ls.report.MenuItems,
			Records:     ls.report.Records,
			Diagnostics: ls.report.Diagnostics,
			FinishedAt:  b.now(),
		}
		if err := b.store.RecordLibrary(context.WithoutCancel(ctx), res); err != nil {
			observability.WarnContext(ctx, "Failed to record library result", logfields.Error(err))
		}
	}
	return ls
}

// writeCommonSections writes the flattened, unfiltered sections of each distinct
// sections file, taken from the first library (in build order) that loaded it.
func (b *Builder) writeCommonSections(states []*libraryState) error {
	common := make(map[string][]sections.Section)
	for _, ls := range states {
		if ls == nil || ls.common == nil {
			continue
		}
		key := commonSectionsKey(ls.lib.Sections)
		if _, seen := common[key]; seen {
			continue
		}
		common[key] = ls.common
	}
	if len(common) == 0 {
		return nil
	}
	return search.WriteJSON(filepath.Join(b.outputDir, CommonSectionsFileName), common)
}

// commonSectionsKey names a sections file by its base name without extension.
func commonSectionsKey(path string) string {
	base := filepath.Base(filepath.FromSlash(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
