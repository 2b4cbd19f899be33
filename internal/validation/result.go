// Package validation defines the result envelope, error taxonomy, and
// per-call context shared by every validation stage: model validators, the
// business rule engine, foreign-key checks, and the integrity monitor all
// speak in these types.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Error describes a single blocking validation failure on a field.
// Context carries structured diagnostic payload (ids, thresholds, offending
// values) for programmatic consumption, not just display.
type Error struct {
	Field    string                 `json:"field"`
	Code     Code                   `json:"code"`
	Message  string                 `json:"message"`
	Severity Severity               `json:"severity,omitempty"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface.
func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning describes a non-blocking validation finding. Warnings are
// reported alongside errors but never affect Result.OK.
type Warning struct {
	Field    string                 `json:"field"`
	Code     Code                   `json:"code"`
	Message  string                 `json:"message"`
	Severity Severity               `json:"severity,omitempty"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// Result is the envelope returned by every validation stage. Success is
// derived, not stored: a result is OK exactly when it holds no errors, so
// the two can never drift apart.
type Result struct {
	Errors   []Error   `json:"errors"`
	Warnings []Warning `json:"warnings"`
}

// NewResult creates an empty, passing Result.
func NewResult() *Result {
	return &Result{}
}

// OK reports whether the result contains no errors. Warnings do not count.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

// AddError appends a blocking error. A zero Severity defaults to
// SeverityError.
func (r *Result) AddError(e Error) {
	if e.Severity == "" {
		e.Severity = SeverityError
	}
	r.Errors = append(r.Errors, e)
}

// AddWarning appends a non-blocking warning. A zero Severity defaults to
// SeverityWarning.
func (r *Result) AddWarning(w Warning) {
	if w.Severity == "" {
		w.Severity = SeverityWarning
	}
	r.Warnings = append(r.Warnings, w)
}

// Fail is shorthand for AddError with just a field, code, and message.
func (r *Result) Fail(field string, code Code, message string) {
	r.AddError(Error{Field: field, Code: code, Message: message})
}

// Warn is shorthand for AddWarning with just a field, code, and message.
func (r *Result) Warn(field string, code Code, message string) {
	r.AddWarning(Warning{Field: field, Code: code, Message: message})
}

// Merge appends all errors and warnings from other, preserving order.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Count returns the total number of errors.
func (r *Result) Count() int {
	return len(r.Errors)
}

// Error implements the error interface so a failed Result can be passed
// around as an error value for logging.
func (r *Result) Error() string {
	if r.OK() {
		return "validation passed"
	}

	if len(r.Errors) == 1 {
		return fmt.Sprintf("validation failed: %s: %s", r.Errors[0].Field, r.Errors[0].Message)
	}

	var messages []string
	for _, e := range r.Errors {
		messages = append(messages, fmt.Sprintf("  - %s: %s", e.Field, e.Message))
	}
	return fmt.Sprintf("validation failed:\n%s", strings.Join(messages, "\n"))
}

// MarshalJSON serializes the result with a derived success flag so API
// consumers see the familiar { success, errors, warnings } shape.
func (r *Result) MarshalJSON() ([]byte, error) {
	errs := r.Errors
	if errs == nil {
		errs = []Error{}
	}
	warns := r.Warnings
	if warns == nil {
		warns = []Warning{}
	}
	return json.Marshal(struct {
		Success  bool      `json:"success"`
		Errors   []Error   `json:"errors"`
		Warnings []Warning `json:"warnings"`
	}{
		Success:  r.OK(),
		Errors:   errs,
		Warnings: warns,
	})
}

// Messages returns the error messages flattened to plain strings, prefixed
// with the field name, in report order.
func (r *Result) Messages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		if e.Field == "" {
			out = append(out, e.Message)
			continue
		}
		out = append(out, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return out
}
