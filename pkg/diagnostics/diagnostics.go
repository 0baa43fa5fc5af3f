// Package diagnostics defines Toy diagnostic types for scan/parse/resolve/runtime errors
// and the Reporter that accumulates them across a run.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Diagnostic code constants.
const (
	EScan    = "E_SCAN"
	EParse   = "E_PARSE"
	EResolve = "E_RESOLVE"
	ERuntime = "E_RUNTIME"
	EAssert  = "E_ASSERT"
	EIO      = "E_IO"
	EDenied  = "E_DENIED"
)

// Diagnostic represents a single reported problem.
// Line is -1 when no source location is known.
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line"`
	Where   string `json:"where,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, line int, where, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Line:    line,
		Where:   where,
		Hint:    hint,
	}
}

func (d Diagnostic) Error() string {
	return FormatDiagnostic(d, true)
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	var out string
	switch {
	case d.Line < 0:
		out = fmt.Sprintf("[%s] Error: %s", d.Code, d.Message)
	case d.Where != "":
		out = fmt.Sprintf("[line %d] Error %s: %s", d.Line, d.Where, d.Message)
	default:
		out = fmt.Sprintf("[line %d] Error: %s", d.Line, d.Message)
	}
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n")
}

// Reporter collects diagnostics and carries the sticky error flag. Once an
// error is reported the flag stays set until Reset is called.
type Reporter struct {
	diags    []Diagnostic
	hadError bool
}

// NewReporter returns an empty reporter.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Report records d and sets the error flag.
func (r *Reporter) Report(d Diagnostic) {
	r.diags = append(r.diags, d)
	r.hadError = true
}

// Error is shorthand for reporting a diagnostic without a hint.
func (r *Reporter) Error(code string, line int, where, message string) {
	r.Report(MakeDiag(code, message, line, where, ""))
}

// HadError reports whether any diagnostic was recorded since the last Reset.
func (r *Reporter) HadError() bool {
	return r.hadError
}

// Diagnostics returns the recorded diagnostics in report order.
func (r *Reporter) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(r.diags))
	copy(out, r.diags)
	return out
}

// Reset clears the flag and drops every recorded diagnostic.
func (r *Reporter) Reset() {
	r.diags = nil
	r.hadError = false
}
