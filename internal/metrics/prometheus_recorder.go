package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "refbuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration  *prom.HistogramVec
	stageResults   *prom.CounterVec
	buildDuration  prom.Histogram
	buildOutcome   *prom.CounterVec
	libraryResults *prom.CounterVec
	diagnostics    *prom.CounterVec
	searchRecords  *prom.CounterVec
	fetchDuration  *prom.HistogramVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg
// (a fresh registry when reg is nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual library build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		libraryResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "library_results_total",
			Help:      "Per-library build results",
		}, []string{"library", "result"}),
		diagnostics: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reference_diagnostics_total",
			Help:      "Reference resolution diagnostics per library",
		}, []string{"library"}),
		searchRecords: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "search_records_total",
			Help:      "Search records produced per library",
		}, []string{"library"}),
		fetchDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Duration of git source fetches",
			Buckets:   prom.DefBuckets,
		}, []string{"source", "result"}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.buildDuration, pr.buildOutcome,
		pr.libraryResults, pr.diagnostics, pr.searchRecords, pr.fetchDuration)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncLibraryResult(library string, result ResultLabel) {
	if p == nil {
		return
	}
	p.libraryResults.WithLabelValues(library, string(result)).Inc()
}

func (p *PrometheusRecorder) AddDiagnostics(library string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.diagnostics.WithLabelValues(library).Add(float64(n))
}

func (p *PrometheusRecorder) AddSearchRecords(library string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.searchRecords.WithLabelValues(library).Add(float64(n))
}

func (p *PrometheusRecorder) ObserveFetchDuration(source string, d time.Duration, success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.fetchDuration.WithLabelValues(source, res).Observe(d.Seconds())
}
