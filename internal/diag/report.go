package diag

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Schema is the identifier embedded in every serialized report.
const Schema = "solvent.error/v1"

// Report is the canonical structured diagnostic. Error builders return
// *Report; wrap as ReportError to pass one through an error chain.
type Report struct {
	Schema  string         `json:"schema"`
	Code    string         `json:"code"`
	Phase   string         `json:"phase"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// New builds a report for a phase and code.
func New(code, phase, message string) *Report {
	return &Report{
		Schema:  Schema,
		Code:    code,
		Phase:   phase,
		Message: message,
	}
}

// With attaches a structured data field and returns the report for
// chaining.
func (r *Report) With(key string, value any) *Report {
	if r.Data == nil {
		r.Data = make(map[string]any)
	}
	r.Data[key] = value
	return r
}

// ToJSON serializes the report deterministically (struct field order;
// Data keys sorted by encoding/json).
func (r *Report) ToJSON(compact bool) (string, error) {
	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(r)
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	return string(data), nil
}

// ReportError wraps a Report as an error so structure survives
// errors.As unwrapping.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown error"
	}
	return e.Rep.Code + ": " + e.Rep.Message
}

// WrapReport wraps a Report as an error.
func WrapReport(r *Report) error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// AsReport extracts a Report from an error chain.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}
