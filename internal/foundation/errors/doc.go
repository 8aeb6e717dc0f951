// Package errors provides classified errors used across refbuilder.
//
// A ClassifiedError carries a category (config, spec, typedoc, git, ...), a severity
// and a retry hint. The CLI adapter maps categories to process exit codes.
//
//	err := errors.SpecError("client library spec is not valid YAML").
//		WithContext("path", path).
//		Build()
package errors
