// Package mock serves deterministic synthetic market data in place of the
// gateway. The same seed always produces the same calendar, quotes and history.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"

	"earnings-tracker/internal/calendar"
	"earnings-tracker/internal/errors"
	"earnings-tracker/internal/models"
	"earnings-tracker/internal/session"
)

const (
	defaultBasePrice = 100.0
	volatility       = 0.02
	dateLayout       = "2006-01-02"
)

type company struct {
	symbol        string
	name          string
	industry      string
	timing        models.Timing
	scheduledTime string
	epsEstimate   float64
	revEstimate   float64
	basePrice     float64
	shares        float64
}

var companies = []company{
	{"AAPL", "Apple Inc.", "Technology", models.TimingAfterClose, "16:30", 1.54, 89.5e9, 185.92, 15.4e9},
	{"MSFT", "Microsoft Corporation", "Technology", models.TimingAfterClose, "16:00", 2.65, 56.2e9, 374.58, 7.43e9},
	{"GOOGL", "Alphabet Inc.", "Communication Services", models.TimingAfterClose, "16:15", 1.45, 74.8e9, 141.80, 12.4e9},
	{"AMZN", "Amazon.com Inc.", "Consumer Cyclical", models.TimingAfterClose, "16:30", 0.95, 145.4e9, 178.25, 10.4e9},
	{"TSLA", "Tesla Inc.", "Consumer Cyclical", models.TimingAfterClose, "17:00", 0.85, 24.5e9, 242.84, 3.18e9},
	{"NVDA", "NVIDIA Corporation", "Technology", models.TimingBeforeOpen, "07:00", 4.12, 18.2e9, 495.22, 2.46e9},
	{"META", "Meta Platforms Inc.", "Communication Services", models.TimingAfterClose, "16:00", 4.25, 34.1e9, 482.32, 2.57e9},
	{"JPM", "JPMorgan Chase & Co.", "Financial Services", models.TimingBeforeOpen, "07:30", 3.97, 38.5e9, 194.67, 2.87e9},
}

// sp500Subset is the constituent list served in mock mode.
var sp500Subset = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "JPM", "TSLA",
	"BRK.B", "V", "JNJ", "WMT", "XOM", "UNH", "PG", "HD",
}

func lookup(symbol string) (company, bool) {
	for _, c := range companies {
		if c.symbol == symbol {
			return c, true
		}
	}
	return company{symbol: symbol, name: symbol, basePrice: defaultBasePrice}, false
}

// Provider implements every data source with synthetic values.
type Provider struct {
	seed int64
	now  func() time.Time
}

// Option configures a Provider.
type Option func(*Provider)

// WithNow sets the clock used for history dates and session-dependent fields.
func WithNow(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// New creates a provider. Equal seeds give equal data.
func New(seed int64, opts ...Option) *Provider {
	p := &Provider{seed: seed, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// rng derives an independent generator per (seed, scope) so results do not
// depend on call order.
func (p *Provider) rng(scope ...string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.Join(scope, "|")))
	return rand.New(rand.NewSource(p.seed ^ int64(h.Sum64())))
}

// Calendar lists the fixed mock companies for date. Before-open reports are
// already released.
func (p *Provider) Calendar(ctx context.Context, date string) ([]models.CalendarEntry, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "calendar date %q", date)
	}

	entries := make([]models.CalendarEntry, 0, len(companies))
	for _, c := range companies {
		e := models.CalendarEntry{
			Symbol:          c.symbol,
			CompanyName:     c.name,
			Timing:          c.timing,
			Date:            date,
			ScheduledTime:   c.scheduledTime,
			EPSEstimate:     models.Float(c.epsEstimate),
			RevenueEstimate: models.Float(c.revEstimate),
		}
		if c.timing == models.TimingBeforeOpen {
			r := p.rng("actual", c.symbol, date)
			e.EPSActual = models.Float(round(c.epsEstimate*(0.9+r.Float64()*0.2), 2))
			e.RevenueActual = models.Float(math.Round(c.revEstimate * (0.95 + r.Float64()*0.1)))
		}
		entries = append(entries, e)
	}
	calendar.SortEntries(entries)
	return entries, nil
}

// Quote returns a price near the symbol's base price. After-hours fields are
// always present; the merge step decides whether to show them.
func (p *Provider) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return models.Quote{}, errors.Wrap(errors.ErrInvalidInput, "empty symbol")
	}

	c, known := lookup(symbol)
	r := p.rng("quote", symbol, p.now().Format(dateLayout))

	change := round((r.Float64()-0.5)*10, 2)
	current := round(c.basePrice+change, 2)
	prev := c.basePrice
	ahChange := round((r.Float64()-0.5)*5, 2)

	q := models.Quote{
		Symbol:        symbol,
		CurrentPrice:  current,
		Change:        change,
		ChangePercent: round(change/prev*100, 2),
		Open:          round(prev+(r.Float64()-0.5)*2, 2),
		PreviousClose: prev,
		Timestamp:     p.now().Unix(),
		CompanyName:   c.name,
		AfterHours: &models.AfterHours{
			Price:         round(current+ahChange, 2),
			Change:        ahChange,
			ChangePercent: round(ahChange/current*100, 2),
		},
	}
	q.DayHigh = round(math.Max(q.Open, current)*(1+r.Float64()*volatility), 2)
	q.DayLow = round(math.Min(q.Open, current)*(1-r.Float64()*volatility), 2)
	if known {
		q.Industry = c.industry
		q.SharesOutstanding = models.Float(c.shares)
		q.MarketCap = models.Float(math.Round(c.shares * current))
	}
	return q, nil
}

// Quotes is the batch form of Quote.
func (p *Provider) Quotes(ctx context.Context, symbols []string) ([]models.Quote, error) {
	out := make([]models.Quote, 0, len(symbols))
	for _, s := range symbols {
		q, err := p.Quote(ctx, s)
		if err != nil {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// History returns days+1 daily bars ending today, oldest first, as a random
// walk from the symbol's base price.
func (p *Provider) History(ctx context.Context, symbol string, days int) ([]models.PriceBar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || days <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "history for %q over %d days", symbol, days)
	}

	c, _ := lookup(symbol)
	today := p.now().In(session.NewYork)
	r := p.rng("history", symbol, today.Format(dateLayout))

	bars := make([]models.PriceBar, 0, days+1)
	price := c.basePrice
	for i := days; i >= 0; i-- {
		price += (r.Float64() - 0.5) * 2 * volatility * price
		open := price + (r.Float64()-0.5)*volatility*price
		high := math.Max(open, price) * (1 + r.Float64()*volatility)
		low := math.Min(open, price) * (1 - r.Float64()*volatility)

		bars = append(bars, models.PriceBar{
			Date:   today.AddDate(0, 0, -i).Format(dateLayout),
			Open:   round(open, 2),
			High:   round(high, 2),
			Low:    round(low, 2),
			Close:  round(price, 2),
			Volume: r.Int63n(10_000_000) + 1_000_000,
		})
	}
	return bars, nil
}

// SP500 returns a fixed subset of the index.
func (p *Provider) SP500(ctx context.Context) ([]string, error) {
	return append([]string(nil), sp500Subset...), nil
}

// Analysis returns a canned report summary.
func Analysis(symbol, quarter string) models.ReportAnalysis {
	symbol = strings.ToUpper(symbol)
	return models.ReportAnalysis{
		Symbol:    symbol,
		Summary:   "This is a MOCK summary of the " + quarter + " earnings report for " + symbol + ". Configure an AI provider and search key for real analysis.",
		Sentiment: models.SentimentNeutral,
		KeyTakeaways: []string{
			"Revenue growth driven by core product lines",
			"Operating margin improved year over year",
			"Management reiterated full-year guidance",
		},
		ReportURL: "https://example.com/mock-report",
		Quarter:   quarter,
	}
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
