package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyLibrary     = "library"
	KeyStage       = "stage"
	KeyDurationMS  = "duration_ms"
	KeyRunID       = "run_id"
	KeySource      = "source"
	KeySection     = "section"
	KeyRef         = "ref"
	KeyPath        = "path"
	KeyURL         = "url"
	KeyCount       = "count"
	KeyOutcome     = "outcome"
	KeyDiagnostics = "diagnostics"
	KeyError       = "error"
	KeyInputHash   = "input_hash"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Library(id string) slog.Attr     { return slog.String(KeyLibrary, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Source(name string) slog.Attr    { return slog.String(KeySource, name) }
func Section(id string) slog.Attr     { return slog.String(KeySection, id) }
func Ref(path string) slog.Attr       { return slog.String(KeyRef, path) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func Diagnostics(n int) slog.Attr     { return slog.Int(KeyDiagnostics, n) }
func InputHash(h string) slog.Attr    { return slog.String(KeyInputHash, h) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
