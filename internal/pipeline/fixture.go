package pipeline

import (
	"log/slog"

	"iocwatch/internal/eventlog"
	"iocwatch/internal/threat"
)

// FixtureRecords is the fixed two-record log used by test mode.
func FixtureRecords() []eventlog.LogRecord {
	return []eventlog.LogRecord{
		{
			Timestamp:      eventlog.String("2025-01-01T00:00:00Z"),
			SrcIP:          eventlog.String("1.2.3.4"),
			DestIP:         eventlog.String("5.6.7.8"),
			AlertSignature: "Test Sig",
		},
		{
			Timestamp:      eventlog.String("2025-01-01T01:00:00Z"),
			SrcIP:          eventlog.String("10.0.0.1"),
			DestIP:         eventlog.String("8.8.8.8"),
			AlertSignature: "DNS Leak",
		},
	}
}

// FixtureIndicators is the fixed indicator set used by test mode.
func FixtureIndicators() *threat.IndicatorSet {
	return threat.NewIndicatorSet("1.2.3.4", "8.8.8.8")
}

// RunFixture correlates the fixture against its indicators and writes the
// result to outputPath. No network or log file is touched.
func RunFixture(outputPath string, logger *slog.Logger, debug bool) (*Result, error) {
	p := &Pipeline{OutputPath: outputPath, Logger: logger, Debug: debug}
	p.logger().Info("running test pipeline with mock data")
	return p.finish(FixtureRecords(), FixtureIndicators())
}
