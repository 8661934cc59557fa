package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"earnings-tracker/internal/errors"
	"earnings-tracker/internal/models"
	"earnings-tracker/internal/resilience"
)

func TestCurrentQuarter(t *testing.T) {
	tests := []struct {
		month time.Month
		want  string
	}{
		{time.January, "Q4 2025"},
		{time.March, "Q4 2025"},
		{time.April, "Q1 2026"},
		{time.June, "Q1 2026"},
		{time.July, "Q2 2026"},
		{time.September, "Q2 2026"},
		{time.October, "Q3 2026"},
		{time.December, "Q3 2026"},
	}
	for _, tt := range tests {
		now := time.Date(2026, tt.month, 15, 12, 0, 0, 0, time.UTC)
		assert.Equal(t, tt.want, CurrentQuarter(now), tt.month.String())
	}
}

func TestPickReportURL(t *testing.T) {
	results := []SearchResult{
		{Link: "https://www.example.com/aapl"},
		{Link: "https://seekingalpha.com/news/aapl-q3"},
		{Link: "https://investor.apple.com/news/q3-2026"},
	}
	assert.Equal(t, "https://investor.apple.com/news/q3-2026", PickReportURL(results))
	assert.Equal(t, "https://www.example.com/aapl", PickReportURL(results[:2]), "falls back to the first hit")
	assert.Empty(t, PickReportURL(nil))
}

func TestSerperFinder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "serper-key", r.Header.Get("X-API-KEY"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "MSFT Q3 2026 earnings press release investor relations", body["q"])

		_, _ = w.Write([]byte(`{"organic": [
			{"title": "MSFT", "link": "https://www.fool.com/msft"},
			{"title": "Press", "link": "https://news.microsoft.com/fy27q1"}
		]}`))
	}))
	defer srv.Close()

	url, err := NewSerperFinder(srv.URL, "serper-key").Find(context.Background(), "MSFT", "Q3 2026")
	require.NoError(t, err)
	assert.Equal(t, "https://news.microsoft.com/fy27q1", url)

	url, err = NewSerperFinder(srv.URL, "").Find(context.Background(), "MSFT", "Q3 2026")
	require.NoError(t, err)
	assert.Empty(t, url, "no key means no search")
}

func longReport() string {
	return "<html><head><style>body{color:red}</style><script>var x = 1;</script></head><body><h1>Q3 Results</h1>" +
		strings.Repeat("<p>Revenue grew   strongly in every segment.</p>\n", 20) + "</body></html>"
}

func TestHTMLFetcher(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/release", func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Accept"), "text/html"), r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(longReport()))
	})
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>Coming soon</body></html>"))
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.7\n1 0 obj\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewHTMLFetcher(DefaultMinContentChars, 0)
	ctx := context.Background()

	text, err := f.Fetch(ctx, srv.URL+"/release")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Q3 Results Revenue grew strongly"), text[:40])
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, "color:red")

	_, err = f.Fetch(ctx, srv.URL+"/short")
	assert.ErrorIs(t, err, errors.ErrContentTooShort)

	_, err = f.Fetch(ctx, srv.URL+"/download")
	assert.ErrorIs(t, err, errors.ErrUnsupportedFormat, "sniffed pdf")

	_, err = f.Fetch(ctx, srv.URL+"/report.PDF")
	assert.ErrorIs(t, err, errors.ErrUnsupportedFormat, "pdf suffix is rejected before download")

	_, err = f.Fetch(ctx, "not a url")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	truncated, err := NewHTMLFetcher(10, 600).Fetch(ctx, srv.URL+"/release")
	require.NoError(t, err)
	assert.Len(t, truncated, 600)
}

func TestHTMLFetcherCountsCharactersNotBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>" + strings.Repeat("€", 400) + "</p></body></html>"))
	}))
	defer srv.Close()
	ctx := context.Background()

	_, err := NewHTMLFetcher(DefaultMinContentChars, 0).Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, errors.ErrContentTooShort, "400 characters is too short even at 1200 bytes")

	text, err := NewHTMLFetcher(10, 333).Fetch(ctx, srv.URL)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(text))
	assert.Equal(t, 333, utf8.RuneCountInString(text))
}

func TestParseSummary(t *testing.T) {
	reply := "```json\n{\"summary\": \" Strong quarter. \", \"sentiment\": \"Bullish\", \"keyTakeaways\": [\"EPS beat\", \" \", \"Guidance raised\"]}\n```"
	s, err := ParseSummary(reply)
	require.NoError(t, err)
	assert.Equal(t, "Strong quarter.", s.Summary)
	assert.Equal(t, models.SentimentPositive, s.Sentiment)
	assert.Equal(t, []string{"EPS beat", "Guidance raised"}, s.KeyTakeaways)

	_, err = ParseSummary(`{"sentiment": "neutral"}`)
	assert.Error(t, err)
	_, err = ParseSummary("I cannot help with that.")
	assert.Error(t, err)
}

func TestNormalizeSentiment(t *testing.T) {
	assert.Equal(t, models.SentimentPositive, NormalizeSentiment("POSITIVE"))
	assert.Equal(t, models.SentimentNegative, NormalizeSentiment("mostly negative"))
	assert.Equal(t, models.SentimentNegative, NormalizeSentiment("bearish"))
	assert.Equal(t, models.SentimentNeutral, NormalizeSentiment("mixed"))
	assert.Equal(t, models.SentimentNeutral, NormalizeSentiment(""))
}

func TestOpenAIAnalyzer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "Earnings report for NVDA")

		content := `{"summary": "Record data center revenue.", "sentiment": "positive", "keyTakeaways": ["Data center up", "Margins up", "Guidance above consensus"]}`
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	a := NewOpenAIAnalyzerWithConfig(cfg, "gpt-4o-mini")

	s, err := a.Analyze(context.Background(), "NVDA", "report text")
	require.NoError(t, err)
	assert.Equal(t, "Record data center revenue.", s.Summary)
	assert.Equal(t, models.SentimentPositive, s.Sentiment)
	assert.Len(t, s.KeyTakeaways, 3)
}

type fakeFinder struct {
	url string
	err error
}

func (f fakeFinder) Find(ctx context.Context, symbol, quarter string) (string, error) {
	return f.url, f.err
}

type fakeFetcher struct {
	text string
	err  error
	got  string
}

func (f *fakeFetcher) Fetch(ctx context.Context, reportURL string) (string, error) {
	f.got = reportURL
	return f.text, f.err
}

type fakeAnalyzer struct {
	calls int
	err   error
}

func (a *fakeAnalyzer) Name() string { return "fake" }

func (a *fakeAnalyzer) Analyze(ctx context.Context, symbol, text string) (Summary, error) {
	a.calls++
	if a.err != nil {
		return Summary{}, a.err
	}
	return Summary{Summary: symbol + ": " + text, Sentiment: models.SentimentNegative, KeyTakeaways: []string{"a"}}, nil
}

var october = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }

func TestServiceAnalyze(t *testing.T) {
	fetcher := &fakeFetcher{text: "body"}
	s := NewService(fakeFinder{url: "https://ir.example.com/q3"}, fetcher, &fakeAnalyzer{}, WithClock(october))

	got, err := s.Analyze(context.Background(), " tsla ")
	require.NoError(t, err)
	assert.Equal(t, "TSLA", got.Symbol)
	assert.Equal(t, "TSLA: body", got.Summary)
	assert.Equal(t, "https://ir.example.com/q3", got.ReportURL)
	assert.Equal(t, "Q3 2026", got.Quarter)
	assert.Equal(t, "https://ir.example.com/q3", fetcher.got)

	_, err = s.Analyze(context.Background(), "")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestServiceNoReport(t *testing.T) {
	ctx := context.Background()
	finder := fakeFinder{err: errors.New("search down")}

	_, err := NewService(finder, &fakeFetcher{}, &fakeAnalyzer{}, WithClock(october)).Analyze(ctx, "AAPL")
	assert.ErrorIs(t, err, errors.ErrReportNotFound)
	var aerr *errors.AnalysisError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, "search", aerr.Stage)

	got, err := NewService(finder, &fakeFetcher{}, &fakeAnalyzer{}, WithClock(october), WithMockFallback(true)).Analyze(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, models.SentimentNeutral, got.Sentiment)
	assert.Equal(t, "https://example.com/mock-report", got.ReportURL)
	assert.Equal(t, "Q3 2026", got.Quarter)
}

func TestServiceFailures(t *testing.T) {
	ctx := context.Background()
	finder := fakeFinder{url: "https://ir.example.com/q3.pdf"}

	_, err := NewService(finder, &fakeFetcher{err: errors.ErrUnsupportedFormat}, &fakeAnalyzer{}).Analyze(ctx, "AAPL")
	assert.ErrorIs(t, err, errors.ErrUnsupportedFormat)

	_, err = NewService(finder, &fakeFetcher{text: "body"}, nil).Analyze(ctx, "AAPL")
	assert.ErrorIs(t, err, errors.ErrNotConfigured)
}

func TestGuardedAnalyzerOpensCircuit(t *testing.T) {
	inner := &fakeAnalyzer{err: errors.New("rate limited")}
	g := NewGuarded(inner, resilience.CircuitBreakerConfig{FailureThreshold: 2, Timeout: time.Hour})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := g.Analyze(ctx, "AAPL", "text")
		require.Error(t, err)
	}
	_, err := g.Analyze(ctx, "AAPL", "text")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, resilience.CircuitOpen, g.Breaker().State())
	assert.Equal(t, "fake", g.Name())
}
