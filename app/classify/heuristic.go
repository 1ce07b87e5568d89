package classify

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lysyi3m/regnews/app/news"
)

const (
	HeuristicName = "heuristic"

	heuristicSummaryLength = 180
)

var relevanceKeywords = []string{
	"regulat",
	"policy",
	"central bank",
	"interest rate",
	"inflation",
	"bank",
	"capital",
	"invest",
}

// Heuristic classifies by keyword presence. It never fails and is
// deterministic for a given input and market vocabulary.
type Heuristic struct {
	markets []string
}

func NewHeuristic(markets []string) *Heuristic {
	return &Heuristic{markets: markets}
}

func (h *Heuristic) Name() string {
	return HeuristicName
}

func (h *Heuristic) Classify(_ context.Context, title, summary string) (Result, error) {
	// Casers carry state, so one is built per call.
	lower := cases.Lower(language.Und)
	text := lower.String(title + " " + summary)

	result := Result{
		Markets:   []string{},
		Reasons:   []string{},
		Extractor: HeuristicName,
	}

	for _, keyword := range relevanceKeywords {
		if strings.Contains(text, keyword) {
			result.Relevant = true
			break
		}
	}

	for _, market := range h.markets {
		if strings.Contains(text, lower.String(market)) {
			result.Markets = append(result.Markets, market)
		}
	}

	if result.Relevant {
		result.Summary = brief(title, heuristicSummaryLength)
	}

	return result, nil
}

func brief(title string, limit int) string {
	if len([]rune(title)) < limit {
		return title
	}
	return news.Truncate(title, limit-3) + "..."
}
