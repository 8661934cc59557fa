package enrich

import (
	"testing"
	"time"

	"earnings-tracker/internal/models"
)

func TestBeatMissMeetUnknownScenario(t *testing.T) {
	tests := []struct {
		name     string
		actual   float64
		estimate *float64
		want     models.BeatStatus
	}{
		{"beat", 1.62, models.Float(1.54), models.BeatStatusBeat},
		{"miss", 1.40, models.Float(1.54), models.BeatStatusMiss},
		{"meet", 1.54, models.Float(1.54), models.BeatStatusMeet},
		{"unknown", 1.54, nil, models.BeatStatusUnknown},
		{"meet despite float noise", 0.1 + 0.2, models.Float(0.3), models.BeatStatusMeet},
		{"negative beat", -0.10, models.Float(-0.25), models.BeatStatusBeat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := models.CalendarEntry{
				Symbol:      "AAPL",
				Timing:      models.TimingAfterClose,
				EPSEstimate: tt.estimate,
				EPSActual:   models.Float(tt.actual),
			}
			got := Merge(entry, models.Quote{Symbol: "AAPL", CurrentPrice: 185.92}, models.MarketAfterHours, time.Now())

			if got.Earnings.Status != models.EarningsReleased {
				t.Fatalf("status = %s, want released", got.Earnings.Status)
			}
			if got.Earnings.BeatStatus != tt.want {
				t.Errorf("beat status = %s, want %s", got.Earnings.BeatStatus, tt.want)
			}
		})
	}
}

func TestPendingEntryHasNoActual(t *testing.T) {
	entry := models.CalendarEntry{
		Symbol:        "MSFT",
		CompanyName:   "Microsoft",
		Timing:        models.TimingAfterClose,
		ScheduledTime: "16:00",
		EPSEstimate:   models.Float(2.65),
	}
	got := Merge(entry, models.Quote{Symbol: "MSFT"}, models.MarketHours, time.Now())

	if got.Earnings.Status != models.EarningsPending {
		t.Errorf("status = %s, want pending", got.Earnings.Status)
	}
	if got.Earnings.Actual != nil || got.Earnings.BeatStatus != "" {
		t.Errorf("pending entry carries actual=%v beat=%q", got.Earnings.Actual, got.Earnings.BeatStatus)
	}
	if got.Earnings.Estimate == nil || *got.Earnings.Estimate.EPS != 2.65 {
		t.Errorf("estimate = %+v", got.Earnings.Estimate)
	}
	if got.Earnings.ScheduledTime != "16:00" || got.Earnings.Timing != models.TimingAfterClose {
		t.Errorf("timing = %s at %s", got.Earnings.Timing, got.Earnings.ScheduledTime)
	}
}

func TestCompanyNamePrecedence(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		entryName string
		quoteName string
		want      string
	}{
		{"calendar name wins over ticker-only quote", "Apple Inc.", "AAPL", "Apple Inc."},
		{"calendar name wins over quote name", "Apple Inc.", "Apple Inc. (NASDAQ)", "Apple Inc."},
		{"ticker-only calendar falls back to quote", "AAPL", "Apple Inc.", "Apple Inc."},
		{"missing calendar name falls back to quote", "", "Apple Inc.", "Apple Inc."},
		{"symbol is the last resort", "", "", "AAPL"},
		{"both ticker-only", "AAPL", "aapl", "AAPL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := models.CalendarEntry{Symbol: "AAPL", CompanyName: tt.entryName}
			got := Merge(entry, models.Quote{Symbol: "AAPL", CompanyName: tt.quoteName}, models.MarketHours, now)
			if got.CompanyName != tt.want {
				t.Errorf("CompanyName = %q, want %q", got.CompanyName, tt.want)
			}
		})
	}
}

func TestMergeWithHistorySortsOldestFirst(t *testing.T) {
	bars := []models.PriceBar{
		{Date: "2026-10-16", Close: 3},
		{Date: "2026-10-14", Close: 1},
		{Date: "2026-10-15", Close: 2},
	}
	got := MergeWithHistory(models.CalendarEntry{Symbol: "TSLA"}, models.Quote{}, bars, models.MarketHours, time.Now())

	for i, want := range []string{"2026-10-14", "2026-10-15", "2026-10-16"} {
		if got.PriceHistory[i].Date != want {
			t.Errorf("PriceHistory[%d] = %s, want %s", i, got.PriceHistory[i].Date, want)
		}
	}
	if bars[0].Date != "2026-10-16" {
		t.Error("input bars were reordered in place")
	}
}

func TestSurprise(t *testing.T) {
	if pct, ok := Surprise(1.62, models.Float(1.50)); !ok || pct != 8 {
		t.Errorf("Surprise(1.62, 1.50) = %v, %v; want 8, true", pct, ok)
	}
	if pct, ok := Surprise(-0.10, models.Float(-0.20)); !ok || pct != 50 {
		t.Errorf("Surprise(-0.10, -0.20) = %v, %v; want 50, true", pct, ok)
	}
	if _, ok := Surprise(1, nil); ok {
		t.Error("no estimate should not produce a surprise")
	}
	if _, ok := Surprise(1, models.Float(0)); ok {
		t.Error("zero estimate should not produce a surprise")
	}
}

func TestIsStale(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	stock := models.EnrichedStock{LastUpdated: now.Add(-2 * time.Minute)}

	if !IsStale(stock, now, time.Minute) {
		t.Error("two-minute-old record should be stale at a one-minute threshold")
	}
	if IsStale(stock, now, 5*time.Minute) {
		t.Error("two-minute-old record should be fresh at a five-minute threshold")
	}
}
