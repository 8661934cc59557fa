package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"earnings-tracker/internal/config"
	"earnings-tracker/internal/earnings"
	"earnings-tracker/internal/errors"
	"earnings-tracker/internal/models"
)

func mockConfig() *config.Config {
	cfg := config.Default()
	cfg.Mock.Enabled = true
	cfg.Fetcher.ChunkDelay = 0
	return cfg
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(cfg, zerolog.Nop())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, mockConfig(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Earnings Tracker v"+Version)
}

func TestBoardJSON(t *testing.T) {
	out, err := run(t, mockConfig(), "board", "--date", "2026-10-19", "--json")
	require.NoError(t, err)

	var board earnings.Board
	require.NoError(t, json.Unmarshal([]byte(out), &board))
	assert.Equal(t, "2026-10-19", board.Date)
	assert.True(t, board.Partitioned)
	assert.Len(t, board.Stocks(), 8)
	assert.Empty(t, board.Failures)
	assert.Equal(t, "JPM", board.Major[0].Symbol, "before-open reports sort first")
}

func TestBoardText(t *testing.T) {
	out, err := run(t, mockConfig(), "board", "--date", "2026-10-19")
	require.NoError(t, err)
	assert.Contains(t, out, "Earnings for 2026-10-19")
	assert.Contains(t, out, "S&P 500 (8)")
	assert.Contains(t, out, "NVIDIA Corporation")
	assert.NotContains(t, out, "\x1b[", "no color when not a terminal")
}

func TestBoardRejectsBadDate(t *testing.T) {
	_, err := run(t, mockConfig(), "board", "--date", "tomorrow")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestStock(t *testing.T) {
	out, err := run(t, mockConfig(), "stock", "nvda", "--date", "2026-10-19", "--json")
	require.NoError(t, err)

	var stock models.EnrichedStock
	require.NoError(t, json.Unmarshal([]byte(out), &stock))
	assert.Equal(t, "NVDA", stock.Symbol)
	assert.Equal(t, models.EarningsReleased, stock.Earnings.Status)
	require.NotEmpty(t, stock.PriceHistory)
	first, last := stock.PriceHistory[0], stock.PriceHistory[len(stock.PriceHistory)-1]
	assert.Less(t, first.Date, last.Date, "history is oldest first")

	_, err = run(t, mockConfig(), "stock", "ZZZZ", "--date", "2026-10-19")
	assert.ErrorIs(t, err, errors.ErrSymbolNotFound)
}

func TestQuotesJSON(t *testing.T) {
	out, err := run(t, mockConfig(), "quotes", "aapl", "MSFT", "AAPL", "--json")
	require.NoError(t, err)

	var res struct {
		Quotes   []models.Quote    `json:"quotes"`
		Failures map[string]string `json:"failures"`
		Chunks   int               `json:"chunks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Quotes, 2)
	assert.Equal(t, "AAPL", res.Quotes[0].Symbol)
	assert.Equal(t, 1, res.Chunks)
	assert.Empty(t, res.Failures)
}

func TestSP500(t *testing.T) {
	out, err := run(t, mockConfig(), "sp500", "aapl", "SHOP", "--json")
	require.NoError(t, err)

	var res struct {
		Members map[string]bool `json:"members"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, map[string]bool{"AAPL": true, "SHOP": false}, res.Members)
}

func TestSessionJSON(t *testing.T) {
	out, err := run(t, mockConfig(), "session", "--json")
	require.NoError(t, err)

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Contains(t, []interface{}{"pre-market", "market-hours", "after-hours", "closed"}, res["status"])
	assert.NotEqual(t, res["status"], res["nextStatus"])
}

func TestAnalyzeFallsBackToMockReport(t *testing.T) {
	out, err := run(t, mockConfig(), "analyze", "tsla", "--json")
	require.NoError(t, err)

	var report models.ReportAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "TSLA", report.Symbol)
	assert.Equal(t, models.SentimentNeutral, report.Sentiment)
	assert.Len(t, report.KeyTakeaways, 3)
}

func TestWatchStopsAfterIterations(t *testing.T) {
	out, err := run(t, mockConfig(), "watch", "--date", "2026-10-19", "--iterations", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Earnings for 2026-10-19")
	assert.NotContains(t, out, "Next refresh")
}

func TestConfigShowHidesCredentials(t *testing.T) {
	cfg := mockConfig()
	cfg.Credentials.OpenAI.APIKey = "sk-secret"

	out, err := run(t, cfg, "config", "show", "--json")
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-secret")
	assert.Contains(t, out, `"openai": true`)

	out, err = run(t, cfg, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Mock Mode:       true")
	assert.NotContains(t, out, "sk-secret")
}

func TestConfigValidate(t *testing.T) {
	out, err := run(t, mockConfig(), "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	bad := mockConfig()
	bad.Fetcher.Mode = "parallel"
	_, err = run(t, bad, "config", "validate")
	assert.Error(t, err)
}
