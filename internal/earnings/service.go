// Package earnings assembles the daily earnings board: calendar, live quotes,
// price history and index membership merged into one view.
package earnings

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"earnings-tracker/internal/calendar"
	"earnings-tracker/internal/enrich"
	"earnings-tracker/internal/errors"
	"earnings-tracker/internal/logging"
	"earnings-tracker/internal/models"
	"earnings-tracker/internal/quotes"
	"earnings-tracker/internal/security"
	"earnings-tracker/internal/session"
	"earnings-tracker/internal/sp500"
)

const (
	dateLayout     = "2006-01-02"
	historyWorkers = 5
)

// CalendarSource returns normalized calendar entries for a date.
type CalendarSource interface {
	Calendar(ctx context.Context, date string) ([]models.CalendarEntry, error)
}

// HistorySource returns daily bars, oldest first.
type HistorySource interface {
	History(ctx context.Context, symbol string, days int) ([]models.PriceBar, error)
}

// Failure is a symbol left off the board and why.
type Failure struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// Board is one refresh of the dashboard.
type Board struct {
	Date        string                 `json:"date"`
	Session     models.MarketStatus    `json:"session"`
	Major       []models.EnrichedStock `json:"major"`
	Other       []models.EnrichedStock `json:"other"`
	Partitioned bool                   `json:"partitioned"`
	Failures    []Failure              `json:"failures"`
	RunID       string                 `json:"runId"`
	GeneratedAt time.Time              `json:"generatedAt"`
}

// Stocks returns every stock on the board, members first.
func (b Board) Stocks() []models.EnrichedStock {
	out := make([]models.EnrichedStock, 0, len(b.Major)+len(b.Other))
	out = append(out, b.Major...)
	return append(out, b.Other...)
}

// Service runs refreshes. It holds no per-refresh state.
type Service struct {
	calendar    CalendarSource
	quote       quotes.Source
	fetcher     *quotes.Fetcher
	history     HistorySource
	members     *sp500.Cache
	clock       *session.Clock
	primaryOnly bool
	historyDays int
	withHistory bool
	logger      zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithHistory attaches days of price history to every board stock.
func WithHistory(src HistorySource, days int, onBoard bool) Option {
	return func(s *Service) {
		s.history = src
		s.historyDays = days
		s.withHistory = onBoard
	}
}

// WithMembership splits boards into S&P 500 members and the rest.
func WithMembership(c *sp500.Cache) Option {
	return func(s *Service) {
		s.members = c
	}
}

// WithPrimaryOnly drops foreign listings from the calendar.
func WithPrimaryOnly(enabled bool) Option {
	return func(s *Service) {
		s.primaryOnly = enabled
	}
}

// WithLogger sets a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a Service. quote serves single-symbol lookups and fetcher
// serves the board.
func NewService(cal CalendarSource, quote quotes.Source, fetcher *quotes.Fetcher, clock *session.Clock, opts ...Option) *Service {
	s := &Service{
		calendar:    cal,
		quote:       quote,
		fetcher:     fetcher,
		clock:       clock,
		primaryOnly: true,
		historyDays: 30,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the exchange-local date.
func (s *Service) Today() string {
	return s.clock.Now().Format(dateLayout)
}

// RefreshInterval is how long a dashboard should wait before the next refresh.
func (s *Service) RefreshInterval(now time.Time) time.Duration {
	return s.clock.RefreshInterval(now)
}

// Clock returns the session clock boards are stamped with.
func (s *Service) Clock() *session.Clock {
	return s.clock
}

// Quotes fetches quotes for arbitrary symbols through the chunked fetcher.
func (s *Service) Quotes(ctx context.Context, symbols []string) (quotes.Result, error) {
	return s.fetcher.FetchQuotes(ctx, symbols)
}

// Membership returns the S&P 500 constituent set.
func (s *Service) Membership(ctx context.Context) (sp500.SymbolSet, error) {
	if s.members == nil {
		return nil, errors.Wrap(errors.ErrNotConfigured, "sp500 membership")
	}
	return s.members.Get(ctx)
}

// ForDate builds the board for date (YYYY-MM-DD); empty means today.
// Calendar failures are returned; symbols whose quote cannot be fetched are
// left off the board and listed in Failures.
func (s *Service) ForDate(ctx context.Context, date string) (Board, error) {
	if date == "" {
		date = s.Today()
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return Board{}, errors.Wrapf(errors.ErrInvalidInput, "date %q", date)
	}

	ctx, runID := logging.WithRunID(ctx)
	log := s.logger.With().Str("run_id", runID).Str("date", date).Logger()
	start := time.Now()

	entries, err := s.entries(ctx, date)
	if err != nil {
		return Board{}, err
	}

	board := Board{
		Date:     date,
		Major:    []models.EnrichedStock{},
		Other:    []models.EnrichedStock{},
		Failures: []Failure{},
		RunID:    runID,
	}

	var stocks []models.EnrichedStock
	if len(entries) > 0 {
		res, err := s.fetcher.FetchQuotes(ctx, calendar.Symbols(entries))
		if err != nil {
			return Board{}, err
		}
		for _, f := range res.Failures {
			board.Failures = append(board.Failures, Failure{Symbol: f.Symbol, Error: f.Err.Error()})
		}

		byQuote := res.BySymbol()
		var bars map[string][]models.PriceBar
		if s.withHistory && s.history != nil {
			bars = s.histories(ctx, res.Quotes, log)
		}

		now := s.clock.Now()
		status := s.clock.StatusAt(now)
		board.Session = status
		for _, e := range entries {
			q, ok := byQuote[e.Symbol]
			if !ok {
				continue
			}
			stocks = append(stocks, enrich.MergeWithHistory(e, q, bars[e.Symbol], status, now))
		}
	} else {
		board.Session = s.clock.Status()
	}

	var set sp500.SymbolSet
	if s.members != nil && len(stocks) > 0 {
		if set, err = s.members.Get(ctx); err != nil {
			log.Warn().Err(err).Msg("Showing a single list without S&P 500 split")
		}
	}
	board.Major, board.Other, board.Partitioned = sp500.Partition(stocks, set)
	board.GeneratedAt = s.clock.Now()

	log.Info().
		Int("entries", len(entries)).
		Int("stocks", len(stocks)).
		Int("failed", len(board.Failures)).
		Bool("partitioned", board.Partitioned).
		Dur("duration", time.Since(start)).
		Msg("Earnings board refreshed")
	return board, nil
}

// Stock builds the record for one symbol scheduled on date, with history.
// Unlike ForDate, any failure is returned.
func (s *Service) Stock(ctx context.Context, symbol, date string) (models.EnrichedStock, error) {
	symbol, err := security.NormalizeSymbol(symbol)
	if err != nil {
		return models.EnrichedStock{}, err
	}
	if date == "" {
		date = s.Today()
	}

	entries, err := s.entries(ctx, date)
	if err != nil {
		return models.EnrichedStock{}, err
	}
	var entry *models.CalendarEntry
	for i := range entries {
		if entries[i].Symbol == symbol {
			entry = &entries[i]
			break
		}
	}
	if entry == nil {
		return models.EnrichedStock{}, errors.NewDataError("calendar", symbol, "no earnings scheduled on "+date, errors.ErrSymbolNotFound)
	}

	q, err := s.quote.Quote(ctx, symbol)
	if err != nil {
		return models.EnrichedStock{}, err
	}

	var bars []models.PriceBar
	if s.history != nil {
		if bars, err = s.history.History(ctx, symbol, s.historyDays); err != nil {
			return models.EnrichedStock{}, err
		}
	}

	now := s.clock.Now()
	return enrich.MergeWithHistory(*entry, q, bars, s.clock.StatusAt(now), now), nil
}

func (s *Service) entries(ctx context.Context, date string) ([]models.CalendarEntry, error) {
	entries, err := s.calendar.Calendar(ctx, date)
	if err != nil {
		return nil, errors.Wrapf(err, "earnings calendar for %s", date)
	}
	if s.primaryOnly {
		entries = calendar.FilterPrimary(entries)
	}
	return entries, nil
}

// histories fetches bars for every quoted symbol, at most historyWorkers at a
// time. A failed lookup leaves that stock without history.
func (s *Service) histories(ctx context.Context, qs []models.Quote, log zerolog.Logger) map[string][]models.PriceBar {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, historyWorkers)
		out = make(map[string][]models.PriceBar, len(qs))
	)
	for _, q := range qs {
		wg.Add(1)
		sem <- struct{}{}
		go func(symbol string) {
			defer func() {
				<-sem
				wg.Done()
			}()
			bars, err := s.history.History(ctx, symbol, s.historyDays)
			if err != nil {
				symLogger := logging.WithSymbol(log, symbol)
				symLogger.Warn().Err(err).Msg("Price history unavailable")
				return
			}
			mu.Lock()
			out[symbol] = bars
			mu.Unlock()
		}(q.Symbol)
	}
	wg.Wait()
	return out
}
