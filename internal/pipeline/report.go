package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/refbuilder/internal/store"
)

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomePartial  BuildOutcome = "partial"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// ReportFileName is the JSON report written next to the artifacts.
const ReportFileName = "build-report.json"

// LibraryReport captures the result of building one library.
type LibraryReport struct {
	ID             string                   `json:"id"`
	Outcome        store.Outcome            `json:"outcome"`
	InputHash      string                   `json:"input_hash,omitempty"`
	MenuItems      int                      `json:"menu_items"`
	References     int                      `json:"references"`
	Records        int                      `json:"records"`
	Diagnostics    int                      `json:"diagnostics"`
	FailedStage    StageName                `json:"failed_stage,omitempty"`
	Error          string                   `json:"error,omitempty"`
	Duration       time.Duration            `json:"duration_ns"`
	StageDurations map[string]time.Duration `json:"stage_durations_ns,omitempty"`
}

// Report summarizes a build run.
type Report struct {
	RunID     string          `json:"run_id,omitempty"`
	Start     time.Time       `json:"start"`
	End       time.Time       `json:"end"`
	Outcome   BuildOutcome    `json:"outcome"`
	Libraries []LibraryReport `json:"libraries"`
}

// Counts returns how many libraries ended in each outcome.
func (r *Report) Counts() map[store.Outcome]int {
	out := make(map[store.Outcome]int)
	for _, l := range r.Libraries {
		out[l.Outcome]++
	}
	return out
}

// Diagnostics returns the total diagnostic count across libraries.
func (r *Report) Diagnostics() int {
	n := 0
	for _, l := range r.Libraries {
		n += l.Diagnostics
	}
	return n
}

// Failed returns the reports of failed libraries.
func (r *Report) Failed() []LibraryReport {
	var out []LibraryReport
	for _, l := range r.Libraries {
		if l.Outcome == store.OutcomeFailed {
			out = append(out, l)
		}
	}
	return out
}

func (r *Report) deriveOutcome(canceled bool) {
	counts := r.Counts()
	switch {
	case canceled:
		r.Outcome = OutcomeCanceled
	case counts[store.OutcomeFailed] == 0:
		r.Outcome = OutcomeSuccess
	case counts[store.OutcomeFailed] == len(r.Libraries):
		r.Outcome = OutcomeFailed
	default:
		r.Outcome = OutcomePartial
	}
}

// storeOutcome maps the build outcome onto the persisted run outcome.
func (r *Report) storeOutcome() store.Outcome {
	switch r.Outcome {
	case OutcomeSuccess:
		return store.OutcomeSuccess
	case OutcomePartial:
		return store.OutcomePartial
	default:
		return store.OutcomeFailed
	}
}

// Summary returns a human-readable one-line summary.
func (r *Report) Summary() string {
	c := r.Counts()
	var b strings.Builder
	fmt.Fprintf(&b, "outcome=%s libraries=%d built=%d skipped=%d failed=%d diagnostics=%d duration=%s",
		r.Outcome, len(r.Libraries), c[store.OutcomeSuccess], c[store.OutcomeSkipped], c[store.OutcomeFailed],
		r.Diagnostics(), r.End.Sub(r.Start).Round(time.Millisecond))
	for _, f := range r.Failed() {
		fmt.Fprintf(&b, "\n  %s failed in %s: %s", f.ID, f.FailedStage, f.Error)
	}
	return b.String()
}

// Persist writes build-report.json atomically under root.
func (r *Report) Persist(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("ensure root for report: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	path := filepath.Join(root, ReportFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename json: %w", err)
	}
	return nil
}
