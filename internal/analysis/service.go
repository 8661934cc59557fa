package analysis

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"earnings-tracker/internal/apiclient"
	"earnings-tracker/internal/config"
	"earnings-tracker/internal/errors"
	"earnings-tracker/internal/logging"
	"earnings-tracker/internal/mock"
	"earnings-tracker/internal/models"
	"earnings-tracker/internal/resilience"
	"earnings-tracker/internal/security"
)

// Service runs the find, fetch, analyze pipeline for one symbol.
type Service struct {
	finder       ReportFinder
	fetcher      ReportFetcher
	analyzer     Analyzer
	mockFallback bool
	now          func() time.Time
	logger       zerolog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMockFallback returns a canned analysis when no report can be found.
func WithMockFallback(enabled bool) ServiceOption {
	return func(s *Service) {
		s.mockFallback = enabled
	}
}

// WithClock sets the time source used to pick the quarter.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets a logger.
func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService assembles a Service. A nil analyzer means no AI provider is
// configured; Analyze then fails with ErrNotConfigured once a report is found.
func NewService(finder ReportFinder, fetcher ReportFetcher, analyzer Analyzer, opts ...ServiceOption) *Service {
	s := &Service{
		finder:   finder,
		fetcher:  fetcher,
		analyzer: analyzer,
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewServiceFromConfig wires the configured search, fetch and LLM backends.
func NewServiceFromConfig(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Service, error) {
	logger = logging.WithComponent(logger, "analysis")
	httpOpts := []apiclient.Option{
		apiclient.WithTimeout(cfg.Analysis.Timeout),
		apiclient.WithLogger(logger),
	}

	finder := NewSerperFinder(cfg.Analysis.SearchURL, cfg.Credentials.Serper.APIKey, httpOpts...)
	fetcher := NewHTMLFetcher(cfg.Analysis.MinContentChars, cfg.Analysis.MaxInputChars, httpOpts...)

	var analyzer Analyzer
	switch cfg.Analysis.Provider {
	case "openai":
		if key := cfg.Credentials.OpenAI.APIKey; key != "" {
			analyzer = NewOpenAIAnalyzer(key, cfg.Analysis.OpenAIModel)
		}
	case "gemini":
		if key := cfg.Credentials.Gemini.APIKey; key != "" {
			g, err := NewGeminiAnalyzer(ctx, key, cfg.Analysis.GeminiModel)
			if err != nil {
				return nil, err
			}
			analyzer = g
		}
	default:
		return nil, errors.Wrapf(errors.ErrUnknownProvider, "analysis provider %q", cfg.Analysis.Provider)
	}
	if analyzer != nil {
		analyzer = NewGuarded(analyzer, resilience.DefaultCircuitBreakerConfig())
	} else {
		logger.Debug().Str("provider", cfg.Analysis.Provider).Msg("No API key for analysis provider")
	}

	return NewService(finder, fetcher, analyzer,
		WithMockFallback(cfg.IsMockMode()),
		WithLogger(logger),
	), nil
}

// Analyze summarizes the most recent earnings report for symbol.
func (s *Service) Analyze(ctx context.Context, symbol string) (models.ReportAnalysis, error) {
	symbol, err := security.NormalizeSymbol(symbol)
	if err != nil {
		return models.ReportAnalysis{}, err
	}
	quarter := CurrentQuarter(s.now())
	log := logging.WithSymbol(s.logger, symbol).With().Str("quarter", quarter).Logger()

	reportURL, err := s.finder.Find(ctx, symbol, quarter)
	if err != nil {
		log.Warn().Err(err).Msg("Report search failed")
		reportURL = ""
	}
	if reportURL == "" {
		if s.mockFallback {
			log.Info().Msg("No report found, returning mock analysis")
			return mock.Analysis(symbol, quarter), nil
		}
		return models.ReportAnalysis{}, errors.NewAnalysisError(symbol, "search",
			errors.Wrapf(errors.ErrReportNotFound, "%s %s", symbol, quarter))
	}
	log.Debug().Str("url", reportURL).Msg("Found report")

	text, err := s.fetcher.Fetch(ctx, reportURL)
	if err != nil {
		return models.ReportAnalysis{}, errors.NewAnalysisError(symbol, "fetch", err)
	}

	if s.analyzer == nil {
		return models.ReportAnalysis{}, errors.NewAnalysisError(symbol, "analyze",
			errors.Wrap(errors.ErrNotConfigured, "no AI provider API key"))
	}

	start := time.Now()
	summary, err := s.analyzer.Analyze(ctx, symbol, text)
	if err != nil {
		return models.ReportAnalysis{}, errors.NewAnalysisError(symbol, "analyze", err)
	}
	log.Info().
		Str("provider", s.analyzer.Name()).
		Str("sentiment", string(summary.Sentiment)).
		Dur("duration", time.Since(start)).
		Msg("Report analyzed")

	return models.ReportAnalysis{
		Symbol:       symbol,
		Summary:      summary.Summary,
		Sentiment:    summary.Sentiment,
		KeyTakeaways: summary.KeyTakeaways,
		ReportURL:    reportURL,
		Quarter:      quarter,
	}, nil
}
