// Package gateway adapts the data gateway's REST endpoints to the pipeline's
// source interfaces, with optional response caching.
package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"earnings-tracker/internal/apiclient"
	"earnings-tracker/internal/cache"
	"earnings-tracker/internal/calendar"
	"earnings-tracker/internal/config"
	"earnings-tracker/internal/errors"
	"earnings-tracker/internal/logging"
	"earnings-tracker/internal/models"
)

// Gateway endpoints.
const (
	EndpointQuote       = "/quote"
	EndpointBatchQuotes = "/batch-quotes"
	EndpointCalendar    = "/earnings-calendar"
	EndpointHistory     = "/stock-history"
	EndpointSP500       = "/sp500"
)

// TTLs sets how long each kind of response stays cached. Zero disables
// caching for that kind.
type TTLs struct {
	Calendar time.Duration
	Quote    time.Duration
	History  time.Duration
	SP500    time.Duration
}

// Gateway serves quotes, calendars, price history and the S&P-500 list from
// the gateway API.
type Gateway struct {
	client     *apiclient.Client
	normalizer calendar.Normalizer
	cache      cache.Cache
	ttl        TTLs
	logger     zerolog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithCache caches responses in c for the given durations.
func WithCache(c cache.Cache, ttl TTLs) Option {
	return func(g *Gateway) {
		g.cache = c
		g.ttl = ttl
	}
}

// WithLogger sets a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// New creates a Gateway. Calendar payloads are parsed with normalizer.
func New(client *apiclient.Client, normalizer calendar.Normalizer, opts ...Option) *Gateway {
	g := &Gateway{
		client:     client,
		normalizer: normalizer,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewFromConfig wires a Gateway from configuration.
func NewFromConfig(cfg *config.Config, logger zerolog.Logger) (*Gateway, error) {
	normalizer, err := calendar.New(cfg.Calendar.Provider)
	if err != nil {
		return nil, err
	}
	logger = logging.WithComponent(logger, "gateway")
	return New(
		apiclient.NewFromConfig(cfg, logger),
		normalizer,
		WithCache(cache.New(cfg.Cache, logger), TTLs{
			Calendar: cfg.Cache.CalendarTTL,
			Quote:    cfg.Cache.QuoteTTL,
			History:  cfg.Cache.HistoryTTL,
			SP500:    cfg.Cache.SP500TTL,
		}),
		WithLogger(logger),
	), nil
}

// Quote fetches one symbol. An empty response is ErrSymbolNotFound.
func (g *Gateway) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return models.Quote{}, errors.Wrap(errors.ErrInvalidInput, "empty symbol")
	}

	return cache.Fetch(ctx, g.cache, "quote:"+symbol, g.ttl.Quote, func(ctx context.Context) (models.Quote, error) {
		raw, err := g.client.GetRaw(ctx, EndpointQuote, url.Values{"symbol": {symbol}})
		if err != nil {
			return models.Quote{}, err
		}
		q, ok, err := decodeQuote(raw)
		if err != nil {
			return models.Quote{}, errors.NewDataError("quote", symbol, "unexpected response shape", err)
		}
		if !ok {
			return models.Quote{}, errors.NewDataError("quote", symbol, "no quote returned", errors.ErrSymbolNotFound)
		}
		if q.Symbol == "" {
			q.Symbol = symbol
		}
		return q, nil
	})
}

// Quotes fetches many symbols in one request. Cached symbols are served
// locally and only the rest are requested. The result may be shorter than
// the input.
func (g *Gateway) Quotes(ctx context.Context, symbols []string) ([]models.Quote, error) {
	cached := make(map[string]models.Quote)
	var missing []string
	for _, sym := range symbols {
		var q models.Quote
		if g.ttl.Quote > 0 && cache.GetJSON(ctx, g.cache, "quote:"+sym, &q) {
			cached[sym] = q
			continue
		}
		missing = append(missing, sym)
	}

	fetched := make(map[string]models.Quote)
	if len(missing) > 0 {
		raw, err := g.client.Do(ctx, http.MethodPost, EndpointBatchQuotes, nil, map[string][]string{"symbols": missing})
		if err != nil {
			return nil, err
		}
		quotes, err := decodeQuotes(raw)
		if err != nil {
			return nil, errors.NewDataError("quote", strings.Join(missing, ","), "unexpected batch response shape", err)
		}
		for _, q := range quotes {
			sym := strings.ToUpper(q.Symbol)
			fetched[sym] = q
			_ = cache.SetJSON(ctx, g.cache, "quote:"+sym, q, g.ttl.Quote)
		}
	}

	out := make([]models.Quote, 0, len(symbols))
	for _, sym := range symbols {
		if q, ok := cached[sym]; ok {
			out = append(out, q)
		} else if q, ok := fetched[sym]; ok {
			out = append(out, q)
		}
	}
	g.logger.Debug().Int("requested", len(symbols)).Int("cached", len(cached)).Int("returned", len(out)).Msg("Batch quotes")
	return out, nil
}

// Calendar returns the normalized earnings calendar for date (YYYY-MM-DD).
// A payload in the wrong shape yields an empty calendar, not an error, and is
// not cached so the next call asks the provider again.
func (g *Gateway) Calendar(ctx context.Context, date string) ([]models.CalendarEntry, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "calendar date %q", date)
	}

	key := "calendar:" + g.normalizer.Provider() + ":" + date
	entries, err := cache.Fetch(ctx, g.cache, key, g.ttl.Calendar, func(ctx context.Context) ([]models.CalendarEntry, error) {
		raw, err := g.client.GetRaw(ctx, EndpointCalendar, url.Values{"date": {date}})
		if err != nil {
			return nil, err
		}
		return calendar.Parse(g.normalizer, raw)
	})
	if errors.Is(err, errors.ErrShapeMismatch) {
		calendar.WarnShapeMismatch(g.logger, g.normalizer, err)
		return []models.CalendarEntry{}, nil
	}
	return entries, err
}

// History returns up to days daily bars for symbol, oldest first.
func (g *Gateway) History(ctx context.Context, symbol string, days int) ([]models.PriceBar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || days <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "history for %q over %d days", symbol, days)
	}

	key := "history:" + symbol + ":" + strconv.Itoa(days)
	return cache.Fetch(ctx, g.cache, key, g.ttl.History, func(ctx context.Context) ([]models.PriceBar, error) {
		raw, err := g.client.GetRaw(ctx, EndpointHistory, url.Values{
			"symbol": {symbol},
			"days":   {strconv.Itoa(days)},
		})
		if err != nil {
			return nil, err
		}
		bars, err := decodeHistory(raw)
		if err != nil {
			return nil, errors.NewDataError("history", symbol, "unexpected response shape", err)
		}
		return models.SortBars(bars), nil
	})
}

// SP500 returns the index constituents.
func (g *Gateway) SP500(ctx context.Context) ([]string, error) {
	return cache.Fetch(ctx, g.cache, "sp500", g.ttl.SP500, func(ctx context.Context) ([]string, error) {
		raw, err := g.client.GetRaw(ctx, EndpointSP500, nil)
		if err != nil {
			return nil, err
		}
		symbols, err := decodeSymbols(raw)
		if err != nil {
			return nil, errors.NewDataError("sp500", "", "unexpected response shape", err)
		}
		return symbols, nil
	})
}
