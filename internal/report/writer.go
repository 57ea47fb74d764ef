// Package report serialises match reports.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"iocwatch/internal/correlate"
)

const indent = "    "

// WriteError reports a match report that could not be persisted.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("write report: %v", e.Err)
	}
	return fmt.Sprintf("write report %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Encode renders the report as an indented JSON array.
func Encode(r correlate.MatchReport) ([]byte, error) {
	if r == nil {
		r = correlate.MatchReport{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write writes the report to w in a single call.
func Write(w io.Writer, r correlate.MatchReport) error {
	data, err := Encode(r)
	if err != nil {
		return &WriteError{Err: err}
	}
	if _, err := w.Write(data); err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

// WriteFile replaces the file at path with the encoded report.
func WriteFile(path string, r correlate.MatchReport) error {
	data, err := Encode(r)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
