package threat

import (
	"sort"

	"github.com/willf/bloom"
)

// bloomFalsePositiveRate sizes the prefilter; a false positive only costs one
// extra map lookup.
const bloomFalsePositiveRate = 0.01

// IndicatorSet is an immutable set of indicator strings. Membership is exact
// string equality; the bloom filter only short-circuits definite misses.
type IndicatorSet struct {
	members map[string]struct{}
	filter  *bloom.BloomFilter
}

// NewIndicatorSet builds a set from raw values. Empty strings are dropped.
func NewIndicatorSet(values ...string) *IndicatorSet {
	members := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		members[v] = struct{}{}
	}

	n := uint(len(members))
	if n == 0 {
		n = 1
	}
	filter := bloom.NewWithEstimates(n, bloomFalsePositiveRate)
	for v := range members {
		filter.AddString(v)
	}
	return &IndicatorSet{members: members, filter: filter}
}

// SetFromIndicators flattens feed indicators into a set.
func SetFromIndicators(indicators []ThreatIndicator) *IndicatorSet {
	values := make([]string, 0, len(indicators))
	for _, ind := range indicators {
		values = append(values, ind.Indicator)
	}
	return NewIndicatorSet(values...)
}

// Contains reports whether v is in the set.
func (s *IndicatorSet) Contains(v string) bool {
	if s == nil || len(s.members) == 0 {
		return false
	}
	if !s.filter.TestString(v) {
		return false
	}
	_, ok := s.members[v]
	return ok
}

// Len returns the number of distinct indicators.
func (s *IndicatorSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.members)
}

// Values returns the indicators in sorted order.
func (s *IndicatorSet) Values() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.members))
	for v := range s.members {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
