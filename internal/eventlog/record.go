// Package eventlog reads newline-delimited JSON alert/flow logs such as
// Suricata's eve.json.
package eventlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultSignature is used when a record carries no alert signature.
const DefaultSignature = "N/A"

// LogRecord is one parsed log line. Absent fields are nil rather than empty
// strings so they can never match an indicator.
type LogRecord struct {
	Timestamp      *string
	SrcIP          *string
	DestIP         *string
	AlertSignature string
}

type rawRecord struct {
	Timestamp *string `json:"timestamp"`
	SrcIP     *string `json:"src_ip"`
	DestIP    *string `json:"dest_ip"`
	Alert     *struct {
		Signature *string `json:"signature"`
	} `json:"alert"`
}

var errNotObject = errors.New("line is not a JSON object")

// ParseLine decodes one log line.
func ParseLine(line []byte) (LogRecord, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return LogRecord{}, errNotObject
	}

	var raw rawRecord
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return LogRecord{}, err
	}

	rec := LogRecord{
		Timestamp:      raw.Timestamp,
		SrcIP:          raw.SrcIP,
		DestIP:         raw.DestIP,
		AlertSignature: DefaultSignature,
	}
	if raw.Alert != nil && raw.Alert.Signature != nil {
		rec.AlertSignature = *raw.Alert.Signature
	}
	return rec, nil
}

// ParseError reports a single malformed line. It is not fatal to a read.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// String returns a pointer to s, for building records by hand.
func String(s string) *string { return &s }
