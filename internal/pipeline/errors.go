package pipeline

import (
	"errors"
	"fmt"

	"iocwatch/internal/eventlog"
	"iocwatch/internal/report"
	"iocwatch/internal/threat"
)

// Diagnostic codes for fatal errors.
const (
	CodeMissingCredential = "E100"
	CodeFetch             = "E101"
	CodeSourceNotFound    = "E201"
	CodeRead              = "E202"
	CodeWrite             = "E401"
	CodeUnknown           = "E999"
)

// Code classifies a fatal pipeline error. When several causes are joined the
// first class in the order above wins.
func Code(err error) string {
	var (
		fetchErr *threat.FetchError
		writeErr *report.WriteError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, threat.ErrMissingCredential):
		return CodeMissingCredential
	case errors.As(err, &fetchErr):
		return CodeFetch
	case errors.Is(err, eventlog.ErrSourceNotFound):
		return CodeSourceNotFound
	case errors.Is(err, eventlog.ErrSourceUnreadable):
		return CodeRead
	case errors.As(err, &writeErr):
		return CodeWrite
	}
	return CodeUnknown
}

var summaries = map[string]string{
	CodeMissingCredential: "OTX API key is not configured (set OTX_API_KEY)",
	CodeFetch:             "failed to fetch indicators from OTX",
	CodeSourceNotFound:    "event log file not found",
	CodeRead:              "failed to read event log",
	CodeWrite:             "failed to write match report",
}

// Diagnose renders a fatal error for the operator. In debug mode, and for
// errors outside the taxonomy, the full wrapped cause chain is included.
func Diagnose(err error, debug bool) string {
	code := Code(err)
	summary, ok := summaries[code]
	switch {
	case !ok:
		return fmt.Sprintf("%s: %v", code, err)
	case debug:
		return fmt.Sprintf("%s: %s: %v", code, summary, err)
	}
	return fmt.Sprintf("%s: %s", code, summary)
}
