package pipeline

import (
	"context"
	"errors"
	"time"

	"git.home.luguber.info/inful/refbuilder/internal/logfields"
	"git.home.luguber.info/inful/refbuilder/internal/metrics"
	"git.home.luguber.info/inful/refbuilder/internal/observability"
)

// StageName is a strongly-typed identifier for a library build stage.
type StageName string

// Canonical stage names, in execution order.
const (
	StageLoadInputs     StageName = "load_inputs"
	StageFilterSections StageName = "filter_sections"
	StageCollectMenu    StageName = "collect_menu"
	StageResolveRefs    StageName = "resolve_refs"
	StageBuildSearch    StageName = "build_search"
	StageWriteArtifacts StageName = "write_artifacts"
)

// Stage is one step of a library build.
type Stage func(ctx context.Context, ls *libraryState) error

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

func (b *Builder) stages() []StageDef {
	return []StageDef{
		{StageLoadInputs, b.stageLoadInputs},
		{StageFilterSections, b.stageFilterSections},
		{StageCollectMenu, b.stageCollectMenu},
		{StageResolveRefs, b.stageResolveRefs},
		{StageBuildSearch, b.stageBuildSearch},
		{StageWriteArtifacts, b.stageWriteArtifacts},
	}
}

// StageError records the stage a library build failed in.
type StageError struct {
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return string(e.Stage) + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// runStages executes stages in order, recording timing and stopping on the first error.
// A library whose inputs are unchanged stops after load_inputs.
func (b *Builder) runStages(ctx context.Context, ls *libraryState, stages []StageDef) error {
	for _, st := range stages {
		select {
		case <-ctx.Done():
			b.recorder.IncStageResult(string(st.Name), metrics.ResultCanceled)
			return &StageError{Stage: st.Name, Err: ctx.Err()}
		default:
		}

		sctx := observability.WithStage(ctx, string(st.Name))
		t0 := time.Now()
		err := st.Fn(sctx, ls)
		dur := time.Since(t0)
		ls.report.StageDurations[string(st.Name)] = dur
		b.recorder.ObserveStageDuration(string(st.Name), dur)

		if err != nil {
			result := metrics.ResultFailed
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				result = metrics.ResultCanceled
			}
			b.recorder.IncStageResult(string(st.Name), result)
			return &StageError{Stage: st.Name, Err: err}
		}
		b.recorder.IncStageResult(string(st.Name), metrics.ResultSuccess)
		observability.DebugContext(sctx, "Stage complete", logfields.DurationMS(float64(dur.Microseconds())/1000))

		if st.Name == StageLoadInputs && ls.unchanged {
			observability.InfoContext(ctx, "Inputs unchanged and artifacts present; skipping library",
				logfields.InputHash(ls.report.InputHash))
			return nil
		}
	}
	return nil
}
