// Package enrich reconciles calendar entries with live quotes.
package enrich

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"earnings-tracker/internal/models"
)

// epsPlaces is the precision at which reported and estimated EPS are compared.
const epsPlaces = 4

// Merge combines one calendar entry and its quote into an enriched record.
// It never mutates its inputs and every field except LastUpdated depends only
// on entry, quote and session.
func Merge(entry models.CalendarEntry, quote models.Quote, session models.MarketStatus, now time.Time) models.EnrichedStock {
	name := companyName(entry, quote)

	stock := models.EnrichedStock{
		Symbol:       entry.Symbol,
		CompanyName:  name,
		Industry:     quote.Industry,
		MarketCap:    models.CopyFloat(quote.MarketCap),
		MarketStatus: session,
		Price: models.Price{
			Current:       quote.CurrentPrice,
			Change:        quote.Change,
			ChangePercent: quote.ChangePercent,
		},
		Earnings:     earningsReport(entry),
		PriceHistory: []models.PriceBar{},
		LastUpdated:  now,
	}

	if session == models.MarketAfterHours && quote.AfterHours != nil {
		ah := *quote.AfterHours
		stock.Price.AfterHours = &ah
	}

	return stock
}

// companyName prefers the calendar's name. Calendars and batch quotes that
// only know the ticker report it as the name, so a name equal to the symbol
// gives way to the next source.
func companyName(entry models.CalendarEntry, quote models.Quote) string {
	for _, name := range []string{entry.CompanyName, quote.CompanyName} {
		if name != "" && !strings.EqualFold(name, entry.Symbol) {
			return name
		}
	}
	return entry.Symbol
}

// MergeWithHistory is Merge plus daily bars, stored oldest first.
func MergeWithHistory(entry models.CalendarEntry, quote models.Quote, bars []models.PriceBar, session models.MarketStatus, now time.Time) models.EnrichedStock {
	stock := Merge(entry, quote, session, now)
	stock.PriceHistory = models.SortBars(bars)
	return stock
}

func earningsReport(entry models.CalendarEntry) models.EarningsReport {
	report := models.EarningsReport{
		Status:        models.EarningsPending,
		Timing:        entry.Timing,
		ScheduledTime: entry.ScheduledTime,
	}

	if entry.EPSEstimate != nil || entry.RevenueEstimate != nil {
		report.Estimate = &models.Estimate{
			EPS:     models.CopyFloat(entry.EPSEstimate),
			Revenue: models.CopyFloat(entry.RevenueEstimate),
		}
	}

	if entry.EPSActual == nil {
		return report
	}

	report.Status = models.EarningsReleased
	report.Actual = &models.Actual{
		EPS:             *entry.EPSActual,
		Revenue:         models.CopyFloat(entry.RevenueActual),
		EPSEstimate:     models.CopyFloat(entry.EPSEstimate),
		RevenueEstimate: models.CopyFloat(entry.RevenueEstimate),
	}
	report.BeatStatus = ClassifyBeat(*entry.EPSActual, entry.EPSEstimate)
	return report
}

// ClassifyBeat compares reported EPS with the estimate at four decimal places.
func ClassifyBeat(actual float64, estimate *float64) models.BeatStatus {
	if estimate == nil {
		return models.BeatStatusUnknown
	}
	a := decimal.NewFromFloat(actual).Round(epsPlaces)
	e := decimal.NewFromFloat(*estimate).Round(epsPlaces)
	switch a.Cmp(e) {
	case 1:
		return models.BeatStatusBeat
	case -1:
		return models.BeatStatusMiss
	default:
		return models.BeatStatusMeet
	}
}

// Surprise returns (actual-estimate)/|estimate| as a percentage, rounded to
// two places. ok is false without an estimate or when the estimate is zero.
func Surprise(actual float64, estimate *float64) (pct float64, ok bool) {
	if estimate == nil || *estimate == 0 {
		return 0, false
	}
	a := decimal.NewFromFloat(actual)
	e := decimal.NewFromFloat(*estimate)
	pct, _ = a.Sub(e).Div(e.Abs()).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return pct, true
}

// IsStale reports whether stock was last updated more than threshold before now.
func IsStale(stock models.EnrichedStock, now time.Time, threshold time.Duration) bool {
	return now.Sub(stock.LastUpdated) > threshold
}
