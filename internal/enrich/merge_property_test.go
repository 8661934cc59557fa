package enrich

import (
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"earnings-tracker/internal/models"
)

var sessions = []models.MarketStatus{
	models.MarketPreMarket,
	models.MarketHours,
	models.MarketAfterHours,
	models.MarketClosed,
}

func optional(v float64, present bool) *float64 {
	if !present {
		return nil
	}
	return models.Float(v)
}

func buildInputs(eps, est, price float64, hasActual, hasEstimate, hasAH bool) (models.CalendarEntry, models.Quote) {
	entry := models.CalendarEntry{
		Symbol:      "AAPL",
		CompanyName: "Apple Inc.",
		Timing:      models.TimingAfterClose,
		Date:        "2026-10-29",
		EPSEstimate: optional(est, hasEstimate),
		EPSActual:   optional(eps, hasActual),
	}
	quote := models.Quote{
		Symbol:        "AAPL",
		CurrentPrice:  price,
		Change:        1.5,
		ChangePercent: 0.8,
		MarketCap:     models.Float(2.9e12),
	}
	if hasAH {
		quote.AfterHours = &models.AfterHours{Price: price + 2, Change: 2, ChangePercent: 1.1}
	}
	return entry, quote
}

// Property 4: Merge is pure apart from LastUpdated and never mutates inputs
func TestProperty4_MergePurity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("same inputs give the same record except lastUpdated", prop.ForAll(
		func(eps, est, price float64, hasActual, hasEstimate, hasAH bool, s int) bool {
			entry, quote := buildInputs(eps, est, price, hasActual, hasEstimate, hasAH)
			entryBefore, quoteBefore := buildInputs(eps, est, price, hasActual, hasEstimate, hasAH)
			session := sessions[s]

			t1 := time.Date(2026, 10, 19, 16, 5, 0, 0, time.UTC)
			t2 := t1.Add(90 * time.Minute)
			a := Merge(entry, quote, session, t1)
			b := Merge(entry, quote, session, t2)

			if !a.LastUpdated.Equal(t1) || !b.LastUpdated.Equal(t2) {
				return false
			}
			b.LastUpdated = a.LastUpdated
			if !reflect.DeepEqual(a, b) {
				return false
			}
			return reflect.DeepEqual(entry, entryBefore) && reflect.DeepEqual(quote, quoteBefore)
		},
		gen.Float64Range(-5, 10),
		gen.Float64Range(-5, 10),
		gen.Float64Range(1, 1000),
		gen.Bool(),
		gen.Bool(),
		gen.Bool(),
		gen.IntRange(0, len(sessions)-1),
	))

	properties.Property("released iff actual EPS is present", prop.ForAll(
		func(eps, est float64, hasActual, hasEstimate bool) bool {
			entry, quote := buildInputs(eps, est, 100, hasActual, hasEstimate, false)
			got := Merge(entry, quote, models.MarketHours, time.Time{})

			released := got.Earnings.Status == models.EarningsReleased
			if released != hasActual || (got.Earnings.Actual != nil) != hasActual {
				return false
			}
			return (got.Earnings.BeatStatus != "") == hasActual
		},
		gen.Float64Range(-5, 10),
		gen.Float64Range(-5, 10),
		gen.Bool(),
		gen.Bool(),
	))

	properties.Property("after-hours pricing only in the after-hours session", prop.ForAll(
		func(hasAH bool, s int) bool {
			entry, quote := buildInputs(1, 1, 100, false, true, hasAH)
			got := Merge(entry, quote, sessions[s], time.Time{})
			want := hasAH && sessions[s] == models.MarketAfterHours
			return (got.Price.AfterHours != nil) == want
		},
		gen.Bool(),
		gen.IntRange(0, len(sessions)-1),
	))

	properties.TestingRun(t)
}

func TestMergeOutputDoesNotAliasInputs(t *testing.T) {
	entry, quote := buildInputs(1.62, 1.40, 190, true, true, true)
	got := Merge(entry, quote, models.MarketAfterHours, time.Now())

	*got.Earnings.Actual.EPSEstimate = 99
	*got.MarketCap = 1
	got.Price.AfterHours.Price = 0

	if *entry.EPSEstimate != 1.40 {
		t.Errorf("entry estimate changed to %v", *entry.EPSEstimate)
	}
	if *quote.MarketCap != 2.9e12 {
		t.Errorf("quote market cap changed to %v", *quote.MarketCap)
	}
	if quote.AfterHours.Price != 192 {
		t.Errorf("quote after-hours price changed to %v", quote.AfterHours.Price)
	}
}
