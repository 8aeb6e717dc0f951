package errors

import "maps"

// ErrorCategory is the broad class of a failure, used for exit codes and log routing.
type ErrorCategory string

const (
	// User input.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"

	// Input documents.
	CategorySpec    ErrorCategory = "spec"
	CategoryTypeDoc ErrorCategory = "typedoc"

	// External systems.
	CategoryGit     ErrorCategory = "git"
	CategoryPublish ErrorCategory = "publish"
	CategoryStore   ErrorCategory = "store"

	// Build processing.
	CategoryBuild      ErrorCategory = "build"
	CategoryFileSystem ErrorCategory = "filesystem"

	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops the whole build
	SeverityError   ErrorSeverity = "error"   // Fails the current library
	SeverityWarning ErrorSeverity = "warning" // Output is degraded but written
	SeverityInfo    ErrorSeverity = "info"
)

// RetryStrategy indicates whether retrying the failed operation can help.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryBackoff    RetryStrategy = "backoff"
	RetryUserAction RetryStrategy = "user"
)

// ErrorContext carries structured key/value details alongside an error.
type ErrorContext map[string]any

// Set stores value under key, allocating when c is nil.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = ErrorContext{}
	}
	c[key] = value
	return c
}

func (c ErrorContext) Get(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}

// GetString returns the value under key when it holds a string.
func (c ErrorContext) GetString(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

// Merge returns a fresh context with other's entries overriding c's.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	out := make(ErrorContext, len(c)+len(other))
	maps.Copy(out, c)
	maps.Copy(out, other)
	return out
}
