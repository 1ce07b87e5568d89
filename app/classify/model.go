package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lysyi3m/regnews/app/news"
)

const (
	MaxScore        = 5
	MaxReasons      = 5
	MaxReasonLength = 200
)

const analysisPrompt = `You are an analyst for a sovereign wealth fund. Decide whether the news below is relevant to any of the listed markets.
Only if it is relevant, list every market that could be affected, give an impact score from 1 to 5 (5 is the highest impact, 1 is low but still significant) and write a 2-3 sentence summary focused on the regulatory or central bank policy impact.
Answer with strict JSON using the keys relevant (true/false), markets (array of strings), score (integer), summary (string) and reasons (array of strings).
Example: {"relevant": true, "markets": ["Market 1", "Market 2"], "score": 5, "summary": "Short summary.", "reasons": ["Reason 1", "Reason 2"]}
Do not output anything besides the JSON.
`

var ErrMalformedResponse = errors.New("malformed model response")

// ResponseError reports a model answer that could not be interpreted.
type ResponseError struct {
	Model   string
	Content string
	Err     error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("model %s returned a malformed response: %v", e.Model, e.Err)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

func (e *ResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

type CompletionRequest struct {
	Model       string
	Prompt      string
	Temperature float64
}

// Completer sends a single prompt to a language model and returns the raw
// text of its answer.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Model classifies entries by asking a language model. Failures are returned
// as errors; callers decide what to fall back to.
type Model struct {
	completer Completer
	model     string
	markets   []string
}

func NewModel(completer Completer, model string, markets []string) *Model {
	return &Model{
		completer: completer,
		model:     model,
		markets:   markets,
	}
}

func (m *Model) Name() string {
	return m.model
}

func (m *Model) Classify(ctx context.Context, title, summary string) (Result, error) {
	content, err := m.completer.Complete(ctx, CompletionRequest{
		Model:       m.model,
		Prompt:      BuildPrompt(title, summary, m.markets),
		Temperature: 0,
	})
	if err != nil {
		return Result{}, fmt.Errorf("model %s: %w", m.model, err)
	}

	result, err := ParseResponse(content, m.markets)
	if err != nil {
		return Result{}, &ResponseError{Model: m.model, Content: content, Err: err}
	}

	result.Extractor = m.model
	return result, nil
}

// BuildPrompt embeds the entry and the full market vocabulary into the
// analysis instructions.
func BuildPrompt(title, summary string, markets []string) string {
	var b strings.Builder
	b.WriteString(analysisPrompt)
	fmt.Fprintf(&b, "News: TITLE='%s'. SUMMARY='%s'. MARKETS='%s'.", title, summary, strings.Join(markets, ", "))
	return b.String()
}

type modelResponse struct {
	Relevant json.RawMessage `json:"relevant"`
	Markets  []string        `json:"markets"`
	Score    json.RawMessage `json:"score"`
	Summary  string          `json:"summary"`
	Reasons  []string        `json:"reasons"`
}

// ParseResponse decodes a model answer. The content is parsed as JSON first;
// when that fails, three characters are stripped from both ends (a code
// fence) and parsing is retried once.
func ParseResponse(content string, markets []string) (Result, error) {
	content = strings.TrimSpace(content)

	var resp modelResponse
	err := decodeObject(content, &resp)
	if err != nil {
		inner, ok := stripFence(content)
		if !ok {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		resp = modelResponse{}
		if err := decodeObject(inner, &resp); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}

	relevant, err := parseBool(resp.Relevant)
	if err != nil {
		return Result{}, fmt.Errorf("%w: relevant: %v", ErrMalformedResponse, err)
	}

	score, err := parseScore(resp.Score)
	if err != nil {
		return Result{}, fmt.Errorf("%w: score: %v", ErrMalformedResponse, err)
	}

	result := Result{
		Relevant: relevant,
		Markets:  MatchMarkets(markets, resp.Markets),
		Score:    score,
		Summary:  strings.TrimSpace(resp.Summary),
		Reasons:  boundReasons(resp.Reasons),
	}
	if !result.Relevant {
		result.Score = 0
	}

	return result, nil
}

// decodeObject unmarshals payload into resp. Only a JSON object is accepted,
// so literals like null never decode into a zero answer.
func decodeObject(payload string, resp *modelResponse) error {
	if !strings.HasPrefix(payload, "{") {
		return errors.New("expected a JSON object")
	}
	return json.Unmarshal([]byte(payload), resp)
}

func stripFence(content string) (string, bool) {
	if len(content) < 6 {
		return "", false
	}
	inner := content[3 : len(content)-3]
	inner = strings.TrimPrefix(inner, "json")
	return strings.TrimSpace(inner), true
}

func parseBool(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, fmt.Errorf("unexpected value %s", raw)
	}
	return strconv.ParseBool(strings.TrimSpace(s))
}

// parseScore accepts a JSON number or a numeric string and clamps it to
// 0..MaxScore.
func parseScore(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("unexpected value %s", raw)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, fmt.Errorf("unexpected value %q", s)
		}
	}

	if math.IsNaN(f) {
		return 0, fmt.Errorf("unexpected value %s", raw)
	}

	return int(math.Round(math.Max(0, math.Min(f, MaxScore)))), nil
}

func boundReasons(reasons []string) []string {
	bounded := make([]string, 0, min(len(reasons), MaxReasons))
	for _, reason := range reasons {
		if len(bounded) == MaxReasons {
			break
		}
		reason = strings.TrimSpace(reason)
		if reason == "" {
			continue
		}
		bounded = append(bounded, news.Truncate(reason, MaxReasonLength))
	}
	return bounded
}
