package threat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"iocwatch/internal/metrics"
)

// ETLController coordinates fetching threat intelligence into one set.
type ETLController struct {
	fetchers []ThreatFetcher
	store    ThreatStore
}

// NewETLController creates a new controller. store may be nil.
func NewETLController(store ThreatStore) *ETLController {
	return &ETLController{store: store}
}

// Register adds a fetcher to the controller.
func (c *ETLController) Register(f ThreatFetcher) {
	c.fetchers = append(c.fetchers, f)
}

// Run executes all fetchers concurrently and merges their indicators. If any
// fetcher fails the run fails with every cause joined and no set is returned.
func (c *ETLController) Run(ctx context.Context) (*IndicatorSet, error) {
	if len(c.fetchers) == 0 {
		return nil, errors.New("no threat fetchers registered")
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		gathered []ThreatIndicator
		errs     []error
	)
	for _, f := range c.fetchers {
		wg.Add(1)
		go func(fetcher ThreatFetcher) {
			defer wg.Done()
			indicators, err := fetcher.Fetch(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				metrics.FetchFailures.WithLabelValues(fetcher.Name()).Inc()
				slog.Error("fetch failed", "source", fetcher.Name(), "err", err)
				errs = append(errs, err)
				return
			}
			gathered = append(gathered, indicators...)
		}(f)
	}
	wg.Wait()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	set := SetFromIndicators(gathered)
	if c.store != nil {
		if err := c.store.SaveIndicators(ctx, gathered); err != nil {
			return nil, fmt.Errorf("store indicators: %w", err)
		}
	}
	metrics.IndicatorsLoaded.Set(float64(set.Len()))
	return set, nil
}

// FetchIndicators fetches the indicators of up to limit subscribed pulses.
func FetchIndicators(ctx context.Context, client *OTXClient, limit int) (*IndicatorSet, error) {
	c := NewETLController(nil)
	c.Register(NewPulseFetcher(client, limit))
	return c.Run(ctx)
}

// MemoryStore keeps the most recently saved indicator set.
type MemoryStore struct {
	mu  sync.RWMutex
	set *IndicatorSet
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{set: NewIndicatorSet()} }

// Replace swaps in a new set. A nil set is ignored.
func (m *MemoryStore) Replace(set *IndicatorSet) {
	if set == nil {
		return
	}
	m.mu.Lock()
	m.set = set
	m.mu.Unlock()
}

// Current returns the latest set. The returned set is never mutated.
func (m *MemoryStore) Current() *IndicatorSet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.set
}
