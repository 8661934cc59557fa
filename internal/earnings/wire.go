package earnings

import (
	"context"

	"github.com/rs/zerolog"

	"earnings-tracker/internal/apiclient"
	"earnings-tracker/internal/config"
	"earnings-tracker/internal/gateway"
	"earnings-tracker/internal/logging"
	"earnings-tracker/internal/mock"
	"earnings-tracker/internal/quotes"
	"earnings-tracker/internal/session"
	"earnings-tracker/internal/sp500"
)

// Sources is everything a Service reads from. Both the gateway and mock
// mode provide it.
type Sources interface {
	CalendarSource
	HistorySource
	quotes.Source
	quotes.BatchSource
	SP500(ctx context.Context) ([]string, error)
}

var (
	_ Sources = (*gateway.Gateway)(nil)
	_ Sources = (*mock.Provider)(nil)
)

// NewSources returns mock data in mock mode and the gateway otherwise.
func NewSources(cfg *config.Config, logger zerolog.Logger) (Sources, error) {
	if cfg.IsMockMode() {
		logger.Info().Int64("seed", cfg.Mock.Seed).Msg("Mock mode: using synthetic market data")
		return mock.New(cfg.Mock.Seed), nil
	}
	return gateway.NewFromConfig(cfg, logger)
}

// NewFromConfig wires a Service and the sources behind it.
func NewFromConfig(cfg *config.Config, logger zerolog.Logger) (*Service, Sources, error) {
	src, err := NewSources(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	clock, err := session.NewClock(cfg.Session.Timezone, cfg.Session.Holidays)
	if err != nil {
		return nil, nil, err
	}

	fetchOpts := []quotes.Option{
		quotes.WithChunkSize(cfg.Fetcher.ChunkSize),
		quotes.WithChunkDelay(cfg.Fetcher.ChunkDelay),
		quotes.WithLogger(logging.WithComponent(logger, "quotes")),
	}
	if cfg.Fetcher.Mode == "batch" {
		fetchOpts = append(fetchOpts, quotes.WithBatchSource(src))
	}

	var loader sp500.Loader = sp500.LoaderFunc(src.SP500)
	if cfg.SP500.Source == "csv" && !cfg.IsMockMode() {
		loader = sp500.NewCSVSource(cfg.SP500.CSVURL,
			apiclient.WithTimeout(cfg.API.Timeout),
			apiclient.WithLogger(logger),
		)
	}

	svc := NewService(src, src, quotes.NewFetcher(src, fetchOpts...), clock,
		WithHistory(src, cfg.Fetcher.HistoryDays, cfg.Fetcher.IncludeHistory),
		WithMembership(sp500.NewCache(loader, logging.WithComponent(logger, "sp500"))),
		WithPrimaryOnly(cfg.Calendar.PrimaryOnly),
		WithLogger(logging.WithComponent(logger, "earnings")),
	)
	return svc, src, nil
}
