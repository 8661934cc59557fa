package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"earnings-tracker/internal/errors"
	"earnings-tracker/internal/models"
	"earnings-tracker/internal/resilience"
)

// Summary is what an LLM extracts from a report.
type Summary struct {
	Summary      string           `json:"summary"`
	Sentiment    models.Sentiment `json:"sentiment"`
	KeyTakeaways []string         `json:"keyTakeaways"`
}

// Analyzer summarizes report text for a ticker.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, symbol, text string) (Summary, error)
}

const systemPrompt = `You are a financial analyst. Read the earnings report you are given and reply with a single JSON object:
{"summary": "<three to five sentence summary>", "sentiment": "positive" | "neutral" | "negative", "keyTakeaways": ["<point>", ...]}
Give between three and five key takeaways. Reply with JSON only.`

func userPrompt(symbol, text string) string {
	return fmt.Sprintf("Earnings report for %s:\n\n%s", symbol, text)
}

// ParseSummary decodes an LLM reply, tolerating markdown code fences.
func ParseSummary(reply string) (Summary, error) {
	reply = stripCodeFence(reply)
	if start, end := strings.Index(reply, "{"), strings.LastIndex(reply, "}"); start >= 0 && end > start {
		reply = reply[start : end+1]
	}

	var raw struct {
		Summary      string   `json:"summary"`
		Sentiment    string   `json:"sentiment"`
		KeyTakeaways []string `json:"keyTakeaways"`
	}
	if err := json.Unmarshal([]byte(reply), &raw); err != nil {
		return Summary{}, errors.Wrap(err, "decoding analysis reply")
	}
	if strings.TrimSpace(raw.Summary) == "" {
		return Summary{}, errors.New("analysis reply has no summary")
	}

	takeaways := make([]string, 0, len(raw.KeyTakeaways))
	for _, t := range raw.KeyTakeaways {
		if t = strings.TrimSpace(t); t != "" {
			takeaways = append(takeaways, t)
		}
	}
	return Summary{
		Summary:      strings.TrimSpace(raw.Summary),
		Sentiment:    NormalizeSentiment(raw.Sentiment),
		KeyTakeaways: takeaways,
	}, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// NormalizeSentiment maps free-form labels onto positive, neutral or negative.
func NormalizeSentiment(s string) models.Sentiment {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(s, "positive"), strings.Contains(s, "bullish"):
		return models.SentimentPositive
	case strings.Contains(s, "negative"), strings.Contains(s, "bearish"):
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// Guarded wraps an Analyzer with a circuit breaker so a failing provider is
// skipped for a cool-down period instead of being hit on every request.
type Guarded struct {
	next    Analyzer
	breaker *resilience.CircuitBreaker
}

// NewGuarded guards next with breaker. Context cancellation does not count as
// a provider failure.
func NewGuarded(next Analyzer, cfg resilience.CircuitBreakerConfig) *Guarded {
	cfg.IsFailure = func(err error) bool {
		return !errors.Is(err, context.Canceled)
	}
	return &Guarded{
		next:    next,
		breaker: resilience.NewCircuitBreaker(next.Name(), cfg),
	}
}

// Name implements Analyzer.
func (g *Guarded) Name() string { return g.next.Name() }

// Analyze implements Analyzer.
func (g *Guarded) Analyze(ctx context.Context, symbol, text string) (Summary, error) {
	return resilience.ExecuteWithResult(g.breaker, ctx, func(ctx context.Context) (Summary, error) {
		return g.next.Analyze(ctx, symbol, text)
	})
}

// Breaker exposes the circuit breaker for status reporting.
func (g *Guarded) Breaker() *resilience.CircuitBreaker { return g.breaker }
