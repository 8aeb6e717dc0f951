package metrics

import "time"

// ResultLabel enumerates stage and library result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFailed   ResultLabel = "failed"
	ResultSkipped  ResultLabel = "skipped"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for builds, stages, libraries and source fetches.
// Implementations must be safe for concurrent use: libraries are built in parallel.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome string) // outcome: success|partial|failed|canceled
	IncLibraryResult(library string, result ResultLabel)
	AddDiagnostics(library string, n int)
	AddSearchRecords(library string, n int)
	ObserveFetchDuration(source string, d time.Duration, success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not served).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)        {}
func (NoopRecorder) IncStageResult(string, ResultLabel)                {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)                {}
func (NoopRecorder) IncBuildOutcome(string)                            {}
func (NoopRecorder) IncLibraryResult(string, ResultLabel)              {}
func (NoopRecorder) AddDiagnostics(string, int)                        {}
func (NoopRecorder) AddSearchRecords(string, int)                      {}
func (NoopRecorder) ObserveFetchDuration(string, time.Duration, bool) {}
