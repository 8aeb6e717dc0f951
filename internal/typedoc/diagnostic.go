package typedoc

import "fmt"

// DiagnosticCode classifies a non-fatal resolution problem.
type DiagnosticCode string

const (
	DiagInvalidPath         DiagnosticCode = "invalid_path"
	DiagMissingSegment      DiagnosticCode = "missing_segment"
	DiagNoSignature         DiagnosticCode = "no_signature"
	DiagUnsupportedType     DiagnosticCode = "unsupported_type"
	DiagUnresolvedReference DiagnosticCode = "unresolved_reference"
	DiagUnresolvedGeneric   DiagnosticCode = "unresolved_generic"
	DiagCycle               DiagnosticCode = "cycle"
	DiagDepthExceeded       DiagnosticCode = "depth_exceeded"
)

// Diagnostic records why part of a reference could not be resolved.
type Diagnostic struct {
	Code    DiagnosticCode `json:"code"`
	Ref     string         `json:"ref"`
	Param   string         `json:"param,omitempty"`
	Message string         `json:"message"`
}

func (d *Diagnostic) Error() string {
	if d.Param != "" {
		return fmt.Sprintf("%s: %s (param %s): %s", d.Code, d.Ref, d.Param, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Code, d.Ref, d.Message)
}
