package errors

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "refbuilder.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		file, exists := err.Context().GetString("file")
		if !exists || file != "refbuilder.yaml" {
			t.Errorf("expected context file=refbuilder.yaml, got %v", file)
		}
	})

	t.Run("Chain detection", func(t *testing.T) {
		inner := SpecError("bad yaml").Build()
		wrapped := fmt.Errorf("library js: %w", inner)

		if !HasCategory(wrapped, CategorySpec) {
			t.Error("expected wrapped error to have spec category")
		}
		if GetCategory(wrapped) != CategorySpec {
			t.Errorf("expected spec category, got %s", GetCategory(wrapped))
		}
		if GetCategory(errors.New("plain")) != CategoryInternal {
			t.Error("expected plain errors to default to internal")
		}
	})

	t.Run("WithContext copies", func(t *testing.T) {
		base := TypeDocError("missing node").Build()
		derived := base.WithContext("ref", "a.b.c")
		if _, ok := base.Context().Get("ref"); ok {
			t.Error("expected base context to stay untouched")
		}
		if ref, _ := derived.Context().GetString("ref"); ref != "a.b.c" {
			t.Errorf("expected ref context, got %q", ref)
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	original := errors.New("connection refused")
	err := WrapError(original, CategoryPublish, "publish search records").
		Warning().
		Retryable().
		WithContext("subject", "refbuilder.search.js").
		Build()

	if !errors.Is(err, original) {
		t.Error("expected error to wrap original error")
	}
	if !err.CanRetry() {
		t.Error("expected retryable error")
	}
	if err.IsFatal() {
		t.Error("warning must not be fatal")
	}

	tests := []struct {
		name     string
		builder  *ErrorBuilder
		category ErrorCategory
		severity ErrorSeverity
		retry    RetryStrategy
	}{
		{"ConfigError", ConfigError("x"), CategoryConfig, SeverityFatal, RetryUserAction},
		{"ValidationError", ValidationError("x"), CategoryValidation, SeverityFatal, RetryUserAction},
		{"SpecError", SpecError("x"), CategorySpec, SeverityError, RetryNever},
		{"TypeDocError", TypeDocError("x"), CategoryTypeDoc, SeverityError, RetryNever},
		{"GitError", GitError("x"), CategoryGit, SeverityError, RetryBackoff},
		{"StoreError", StoreError("x"), CategoryStore, SeverityError, RetryNever},
		{"BuildError", BuildError("x"), CategoryBuild, SeverityFatal, RetryNever},
		{"FileSystemError", FileSystemError("x"), CategoryFileSystem, SeverityError, RetryBackoff},
		{"InternalError", InternalError("x"), CategoryInternal, SeverityFatal, RetryNever},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder.Build()
			if err.Category() != tt.category || err.Severity() != tt.severity || err.RetryStrategy() != tt.retry {
				t.Errorf("got %s/%s/%s, want %s/%s/%s", err.Category(), err.Severity(), err.RetryStrategy(), tt.category, tt.severity, tt.retry)
			}
		})
	}
}

func TestCLIErrorAdapter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	adapter := NewCLIErrorAdapter(false, logger)

	tests := []struct {
		err  error
		code int
	}{
		{nil, 0},
		{errors.New("boom"), 1},
		{ValidationError("bad flag").Build(), 2},
		{SpecError("bad spec").Build(), 4},
		{ConfigError("bad config").Build(), 7},
		{fmt.Errorf("wrapped: %w", GitError("clone").Build()), 8},
		{BuildError("write").Build(), 11},
	}
	for _, tt := range tests {
		if got := adapter.ExitCodeFor(tt.err); got != tt.code {
			t.Errorf("ExitCodeFor(%v) = %d, want %d", tt.err, got, tt.code)
		}
	}

	var out bytes.Buffer
	code := adapter.Report(&out, ConfigError("config file not found").WithContext("path", "x.yaml").Build())
	if code != 7 {
		t.Errorf("expected exit code 7, got %d", code)
	}
	if out.String() != "Error: config file not found\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}
