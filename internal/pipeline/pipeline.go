// Package pipeline runs one correlation pass: fetch indicators and read the
// event log concurrently, correlate once both are complete, and persist the
// match report.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"iocwatch/internal/correlate"
	"iocwatch/internal/eventlog"
	"iocwatch/internal/metrics"
	"iocwatch/internal/report"
	"iocwatch/internal/threat"
)

// Source produces the indicator set for a run. *threat.ETLController
// satisfies it.
type Source interface {
	Run(ctx context.Context) (*threat.IndicatorSet, error)
}

// Pipeline wires the indicator source, event log and report destination.
type Pipeline struct {
	Source     Source
	LogPath    string
	OutputPath string
	Logger     *slog.Logger
	Debug      bool
}

// Result summarises a completed run.
type Result struct {
	Indicators int
	Records    int
	Malformed  int
	Matches    correlate.MatchReport
	OutputPath string
}

// Run executes the pipeline once.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	log := p.logger()

	var (
		wg        sync.WaitGroup
		set       *threat.IndicatorSet
		fetchErr  error
		records   []eventlog.LogRecord
		malformed []*eventlog.ParseError
		readErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		log.Info("fetching indicators")
		set, fetchErr = p.Source.Run(ctx)
		if fetchErr == nil {
			log.Info("retrieved indicators", "count", set.Len())
		}
	}()
	go func() {
		defer wg.Done()
		log.Info("loading event log", "path", p.LogPath)
		records, malformed, readErr = readLog(p.LogPath)
		if readErr == nil {
			log.Info("loaded log entries", "count", len(records), "malformed", len(malformed))
		}
	}()
	wg.Wait()

	if err := errors.Join(fetchErr, readErr); err != nil {
		return nil, err
	}

	for _, perr := range malformed {
		log.Warn("skipping malformed log line", "line", perr.Line, "err", perr.Err)
	}
	metrics.ParseErrors.Add(float64(len(malformed)))

	res, err := p.finish(records, set)
	if err != nil {
		return nil, err
	}
	res.Malformed = len(malformed)
	return res, nil
}

func (p *Pipeline) finish(records []eventlog.LogRecord, set *threat.IndicatorSet) (*Result, error) {
	log := p.logger()
	metrics.RecordsRead.Add(float64(len(records)))

	log.Info("correlating indicators with event log")
	start := time.Now()
	matches := correlate.Correlate(records, set)
	metrics.CorrelationDuration.Observe(time.Since(start).Seconds())
	metrics.Matches.Add(float64(matches.Len()))

	if p.Debug {
		for _, m := range matches {
			log.Debug("match found",
				"timestamp", deref(m.Timestamp),
				"src_ip", deref(m.SrcIP),
				"dest_ip", deref(m.DestIP),
				"alert_signature", m.AlertSignature)
		}
	}
	log.Info("correlation complete", "matches", matches.Len())

	if err := report.WriteFile(p.OutputPath, matches); err != nil {
		return nil, err
	}
	log.Info("results written", "path", p.OutputPath)

	return &Result{
		Indicators: set.Len(),
		Records:    len(records),
		Matches:    matches,
		OutputPath: p.OutputPath,
	}, nil
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func readLog(path string) ([]eventlog.LogRecord, []*eventlog.ParseError, error) {
	r, err := eventlog.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()
	return eventlog.Collect(r.Records())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
