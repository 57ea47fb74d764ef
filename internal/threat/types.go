package threat

import (
	"context"
)

// ThreatIndicator represents a single indicator reported by a feed.
type ThreatIndicator struct {
	Indicator   string
	Type        string
	Source      string
	Pulse       string
	Description string
	Created     string
}

// ThreatFetcher fetches threat indicators from a source.
type ThreatFetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]ThreatIndicator, error)
}

// ThreatStore persists indicators.
type ThreatStore interface {
	SaveIndicators(ctx context.Context, indicators []ThreatIndicator) error
}
