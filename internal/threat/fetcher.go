package threat

import (
	"context"
	"log/slog"
)

// PulseFetcher flattens the indicators of the subscribed OTX pulses.
// Limit bounds the number of pulses requested, not the number of indicators.
type PulseFetcher struct {
	client *OTXClient
	limit  int
}

func NewPulseFetcher(client *OTXClient, limit int) *PulseFetcher {
	return &PulseFetcher{client: client, limit: limit}
}

func (p *PulseFetcher) Name() string { return "otx_pulses" }

func (p *PulseFetcher) Fetch(ctx context.Context) ([]ThreatIndicator, error) {
	pulses, err := p.client.SubscribedPulses(ctx, p.limit)
	if err != nil {
		return nil, err
	}

	var out []ThreatIndicator
	for _, pulse := range pulses {
		for _, ind := range pulse.Indicators {
			out = append(out, ThreatIndicator{
				Indicator:   ind.Indicator,
				Type:        ind.Type,
				Source:      p.Name(),
				Pulse:       pulse.Name,
				Description: ind.Description,
				Created:     ind.Created,
			})
		}
	}
	slog.Debug("fetched pulses", "source", p.Name(), "pulses", len(pulses), "indicators", len(out))
	return out, nil
}

// ExportFetcher lists recently exported indicators of one type.
type ExportFetcher struct {
	client        *OTXClient
	indicatorType string
	limit         int
}

func NewExportFetcher(client *OTXClient, indicatorType string, limit int) *ExportFetcher {
	return &ExportFetcher{client: client, indicatorType: indicatorType, limit: limit}
}

func (e *ExportFetcher) Name() string { return "otx_export" }

func (e *ExportFetcher) Fetch(ctx context.Context) ([]ThreatIndicator, error) {
	exported, err := e.client.ExportIndicators(ctx, e.indicatorType, e.limit)
	if err != nil {
		return nil, err
	}

	out := make([]ThreatIndicator, 0, len(exported))
	for _, ind := range exported {
		typ := ind.Type
		if typ == "" {
			typ = e.indicatorType
		}
		out = append(out, ThreatIndicator{
			Indicator:   ind.Indicator,
			Type:        typ,
			Source:      e.Name(),
			Description: ind.Description,
			Created:     ind.Created,
		})
	}
	return out, nil
}
