package classify

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

var testMarkets = []string{"Energy", "Technology", "Climate Change", "Healthcare", "Real Estate"}

func TestHeuristicClassify(t *testing.T) {
	h := NewHeuristic(testMarkets)

	tests := []struct {
		name            string
		title           string
		summary         string
		expectRelevant  bool
		expectedMarkets []string
	}{
		{"keyword in title", "Central Bank raises rates", "", true, []string{}},
		{"keyword in summary", "Weekly digest", "New REGULATION for energy producers", true, []string{"Energy"}},
		{"market only", "Technology fair opens", "Gadgets everywhere", false, []string{"Technology"}},
		{"nothing", "Football results", "The home team won", false, []string{}},
		{"multiple markets", "Investment in healthcare and real estate", "", true, []string{"Healthcare", "Real Estate"}},
		{"climate change", "Climate change policy", "", true, []string{"Climate Change"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.Classify(context.Background(), tt.title, tt.summary)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}

			if result.Relevant != tt.expectRelevant {
				t.Errorf("Expected relevant %v, got %v", tt.expectRelevant, result.Relevant)
			}
			if !reflect.DeepEqual(result.Markets, tt.expectedMarkets) {
				t.Errorf("Expected markets %v, got %v", tt.expectedMarkets, result.Markets)
			}
			if result.Score != 0 {
				t.Errorf("Expected score 0, got %d", result.Score)
			}
			if len(result.Reasons) != 0 {
				t.Errorf("Expected no reasons, got %v", result.Reasons)
			}
			if result.Extractor != HeuristicName {
				t.Errorf("Expected extractor '%s', got '%s'", HeuristicName, result.Extractor)
			}

			if tt.expectRelevant && result.Summary != tt.title {
				t.Errorf("Expected summary to be the title, got '%s'", result.Summary)
			}
			if !tt.expectRelevant && result.Summary != "" {
				t.Errorf("Expected empty summary, got '%s'", result.Summary)
			}
		})
	}
}

func TestHeuristicSummaryTruncated(t *testing.T) {
	h := NewHeuristic(testMarkets)
	title := "Inflation " + strings.Repeat("é", 200)

	result, _ := h.Classify(context.Background(), title, "")

	if n := len([]rune(result.Summary)); n != 180 {
		t.Errorf("Expected summary of 180 runes, got %d", n)
	}
	if !strings.HasSuffix(result.Summary, "...") {
		t.Errorf("Expected ellipsis suffix, got '%s'", result.Summary)
	}
}

func TestHeuristicDeterministic(t *testing.T) {
	h := NewHeuristic(testMarkets)
	title := "ECB policy shift hits real estate and energy"
	summary := "Interest rate path revised"

	first, _ := h.Classify(context.Background(), title, summary)
	for i := 0; i < 10; i++ {
		next, _ := h.Classify(context.Background(), title, summary)
		if !reflect.DeepEqual(first, next) {
			t.Fatalf("Expected identical results, got %+v and %+v", first, next)
		}
	}
}

func TestMatchMarkets(t *testing.T) {
	got := MatchMarkets(testMarkets, []string{"energy", " REAL ESTATE ", "Crypto", "Energy"})
	expected := []string{"Energy", "Real Estate"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}

	if got := MatchMarkets(testMarkets, nil); len(got) != 0 {
		t.Errorf("Expected no markets, got %v", got)
	}
}

func TestHeuristicSummaryAtLimit(t *testing.T) {
	h := NewHeuristic(testMarkets)

	short := "Policy " + strings.Repeat("a", heuristicSummaryLength-8)
	result, _ := h.Classify(context.Background(), short, "")
	if result.Summary != short {
		t.Errorf("Expected title below the limit kept whole, got '%s'", result.Summary)
	}

	exact := "Policy " + strings.Repeat("a", heuristicSummaryLength-7)
	result, _ = h.Classify(context.Background(), exact, "")
	if n := len([]rune(result.Summary)); n != heuristicSummaryLength {
		t.Errorf("Expected summary of %d runes, got %d", heuristicSummaryLength, n)
	}
	if result.Summary != exact[:heuristicSummaryLength-3]+"..." {
		t.Errorf("Expected title at the limit truncated with ellipsis, got '%s'", result.Summary)
	}
}
