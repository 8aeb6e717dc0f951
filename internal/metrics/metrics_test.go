package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("resolve_refs", 150*time.Millisecond)
	pr.IncStageResult("resolve_refs", ResultSuccess)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncBuildOutcome("success")
	pr.IncLibraryResult("javascript", ResultSuccess)
	pr.AddDiagnostics("javascript", 3)
	pr.AddDiagnostics("javascript", 0)
	pr.AddSearchRecords("javascript", 42)
	pr.ObserveFetchDuration("supabase", time.Second, true)

	if got := testutil.ToFloat64(pr.diagnostics.WithLabelValues("javascript")); got != 3 {
		t.Fatalf("expected 3 diagnostics, got %v", got)
	}
	if got := testutil.ToFloat64(pr.searchRecords.WithLabelValues("javascript")); got != 42 {
		t.Fatalf("expected 42 records, got %v", got)
	}
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) != 8 {
		t.Fatalf("expected 8 metric families, got %d", len(mfs))
	}
}

func TestPrometheusRecorderConcurrent(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pr.IncLibraryResult("cli", ResultFailed)
		}()
	}
	wg.Wait()
	if got := testutil.ToFloat64(pr.libraryResults.WithLabelValues("cli", string(ResultFailed))); got != 8 {
		t.Fatalf("expected 8 failures, got %v", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncBuildOutcome("failed")
	pr.ObserveFetchDuration("x", time.Second, false)
}

func TestHTTPHandlerServesRegistry(t *testing.T) {
	reg := NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncBuildOutcome("success")

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Result().Body)
	if !strings.Contains(string(body), `refbuilder_build_outcomes_total{outcome="success"} 1`) {
		t.Fatalf("metrics output missing build outcome:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatalf("expected go collector metrics")
	}
}
