package classify

import (
	"context"
	"strings"
)

// Result is the relevance assessment of a single news entry.
type Result struct {
	Relevant  bool
	Markets   []string
	Score     int
	Summary   string
	Reasons   []string
	Extractor string // name of the classifier that produced the result
}

type Classifier interface {
	Name() string
	Classify(ctx context.Context, title, summary string) (Result, error)
}

// MatchMarkets maps candidates onto the configured vocabulary ignoring case.
// Unknown candidates are dropped; the result keeps vocabulary spelling and
// has no duplicates.
func MatchMarkets(vocabulary, candidates []string) []string {
	matched := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		for _, market := range vocabulary {
			if strings.EqualFold(market, candidate) && !seen[market] {
				seen[market] = true
				matched = append(matched, market)
				break
			}
		}
	}
	return matched
}
