// Package correlate matches log records against a set of known-bad
// indicators.
package correlate

import (
	"iocwatch/internal/eventlog"
)

// Indicators is a read-only membership test over indicator strings.
type Indicators interface {
	Contains(indicator string) bool
}

// MatchRecord is a log record that touched a known indicator.
// Field order is the key order of the written report.
type MatchRecord struct {
	Timestamp      *string `json:"timestamp"`
	SrcIP          *string `json:"src_ip"`
	DestIP         *string `json:"dest_ip"`
	AlertSignature string  `json:"alert_signature"`
}

// MatchReport holds matches in the order their records were read.
type MatchReport []MatchRecord

func (r MatchReport) Len() int { return len(r) }

// Correlate returns a MatchRecord for every record whose source or
// destination address is in indicators. A record matches at most once and
// nil addresses never match. The result is empty, never nil, when nothing
// matches.
func Correlate(records []eventlog.LogRecord, indicators Indicators) MatchReport {
	report := MatchReport{}
	if indicators == nil {
		return report
	}
	for _, rec := range records {
		if !matches(rec.SrcIP, indicators) && !matches(rec.DestIP, indicators) {
			continue
		}
		report = append(report, MatchRecord{
			Timestamp:      rec.Timestamp,
			SrcIP:          rec.SrcIP,
			DestIP:         rec.DestIP,
			AlertSignature: rec.AlertSignature,
		})
	}
	return report
}

func matches(ip *string, indicators Indicators) bool {
	return ip != nil && indicators.Contains(*ip)
}
