package calendar

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"

	"earnings-tracker/internal/errors"
	"earnings-tracker/internal/models"
)

const finnhubPayloadJSON = `{
  "earningsCalendar": [
    {"symbol": "aapl", "date": "2026-10-29", "hour": "amc", "epsEstimate": 1.54, "epsActual": null, "revenueEstimate": 89500000000, "quarter": 4, "year": 2026},
    {"symbol": "JPM", "date": "2026-10-29", "hour": "bmo", "epsEstimate": 3.97, "epsActual": 4.12, "quarter": 3, "year": 2026},
    {"symbol": "XYZ", "date": "2026-10-29", "hour": "", "epsEstimate": null}
  ]
}`

const fmpPayload = `[
  {"symbol": "MSFT", "name": "Microsoft Corporation", "date": "2026-10-29", "time": "After Market Close", "eps": null, "epsEstimated": 2.65},
  {"symbol": "NVDA", "date": "2026-10-29", "time": "Before Market Open", "eps": 4.2, "epsEstimated": 4.12},
  {"symbol": "KO", "date": "2026-10-29", "time": "--", "eps": null, "epsEstimated": null}
]`

func countTimings(entries []models.CalendarEntry) map[models.Timing]int {
	counts := make(map[models.Timing]int)
	for _, e := range entries {
		counts[e.Timing]++
	}
	return counts
}

func TestNormalizeOneOfEachTiming(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		payload  string
	}{
		{"finnhub", ProviderFinnhub, finnhubPayloadJSON},
		{"fmp", ProviderFMP, fmpPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := New(tt.provider)
			if err != nil {
				t.Fatalf("New(%q) error = %v", tt.provider, err)
			}

			entries := Normalize(n, []byte(tt.payload), zerolog.Nop())
			if len(entries) != 3 {
				t.Fatalf("got %d entries, want 3", len(entries))
			}

			counts := countTimings(entries)
			for _, timing := range []models.Timing{models.TimingBeforeOpen, models.TimingAfterClose, models.TimingDuringHours} {
				if counts[timing] != 1 {
					t.Errorf("timing %s count = %d, want 1", timing, counts[timing])
				}
			}
		})
	}
}

func TestFinnhubFields(t *testing.T) {
	entries, err := FinnhubNormalizer{}.Parse([]byte(finnhubPayloadJSON))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	aapl := entries[0]
	if aapl.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want uppercased AAPL", aapl.Symbol)
	}
	if aapl.EPSEstimate == nil || *aapl.EPSEstimate != 1.54 {
		t.Errorf("EPSEstimate = %v, want 1.54", aapl.EPSEstimate)
	}
	if aapl.Released() {
		t.Error("null epsActual must stay absent")
	}
	if aapl.Quarter != 4 || aapl.Year != 2026 {
		t.Errorf("quarter/year = %d/%d", aapl.Quarter, aapl.Year)
	}

	jpm := entries[1]
	if !jpm.Released() || *jpm.EPSActual != 4.12 {
		t.Errorf("JPM EPSActual = %v, want 4.12", jpm.EPSActual)
	}
}

func TestFMPFields(t *testing.T) {
	entries, err := FMPNormalizer{}.Parse([]byte(fmpPayload))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if entries[0].CompanyName != "Microsoft Corporation" {
		t.Errorf("CompanyName = %q", entries[0].CompanyName)
	}
	if entries[1].CompanyName != "NVDA" {
		t.Errorf("missing name should fall back to symbol, got %q", entries[1].CompanyName)
	}
	if entries[1].EPSActual == nil || *entries[1].EPSActual != 4.2 {
		t.Errorf("NVDA EPSActual = %v", entries[1].EPSActual)
	}
}

func TestNormalizeSortsByTimingThenSymbol(t *testing.T) {
	n, _ := New(ProviderFinnhub)
	entries := Normalize(n, []byte(finnhubPayloadJSON), zerolog.Nop())

	want := []string{"JPM", "XYZ", "AAPL"}
	for i, sym := range want {
		if entries[i].Symbol != sym {
			t.Errorf("entries[%d] = %s, want %s", i, entries[i].Symbol, sym)
		}
	}
}

func TestShapeMismatchYieldsEmptyWithWarning(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		payload  string
	}{
		{"finnhub given array", ProviderFinnhub, fmpPayload},
		{"fmp given object", ProviderFMP, finnhubPayloadJSON},
		{"finnhub missing key", ProviderFinnhub, `{"data": []}`},
		{"finnhub calendar not array", ProviderFinnhub, `{"earningsCalendar": {"symbol": "AAPL"}}`},
		{"empty body", ProviderFMP, ``},
		{"garbage", ProviderFMP, `not json`},
		{"no content object", ProviderFMP, `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, _ := New(tt.provider)

			if _, err := n.Parse([]byte(tt.payload)); !errors.Is(err, errors.ErrShapeMismatch) {
				t.Errorf("Parse() error = %v, want ErrShapeMismatch", err)
			}

			var buf bytes.Buffer
			entries := Normalize(n, []byte(tt.payload), zerolog.New(&buf))
			if entries == nil || len(entries) != 0 {
				t.Errorf("Normalize() = %v, want empty non-nil slice", entries)
			}
			if !bytes.Contains(buf.Bytes(), []byte(`"level":"warn"`)) {
				t.Errorf("expected a warning, log was %q", buf.String())
			}
		})
	}
}

func TestEmptyCalendarIsNotAMismatch(t *testing.T) {
	n, _ := New(ProviderFinnhub)
	entries, err := n.Parse([]byte(`{"earningsCalendar": []}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestUnknownProvider(t *testing.T) {
	if _, err := New("yahoo"); !errors.Is(err, errors.ErrUnknownProvider) {
		t.Errorf("New(yahoo) error = %v, want ErrUnknownProvider", err)
	}
}

func TestInferTiming(t *testing.T) {
	tests := map[string]models.Timing{
		"bmo":                models.TimingBeforeOpen,
		"BMO":                models.TimingBeforeOpen,
		"Before Market Open": models.TimingBeforeOpen,
		"amc":                models.TimingAfterClose,
		"After Market Close": models.TimingAfterClose,
		"AMC ":               models.TimingAfterClose,
		"dmh":                models.TimingDuringHours,
		"":                   models.TimingDuringHours,
		"--":                 models.TimingDuringHours,
		"time-not-supplied":  models.TimingDuringHours,
	}
	for in, want := range tests {
		if got := InferTiming(in); got != want {
			t.Errorf("InferTiming(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		in        string
		timing    models.Timing
		scheduled string
	}{
		{"16:30", models.TimingAfterClose, "16:30"},
		{"16:00:00", models.TimingAfterClose, "16:00"},
		{"08:00", models.TimingBeforeOpen, "08:00"},
		{"9:29 am", models.TimingBeforeOpen, "09:29"},
		{"09:30", models.TimingDuringHours, "09:30"},
		{"12:15 PM", models.TimingDuringHours, "12:15"},
		{"4:05 PM", models.TimingAfterClose, "16:05"},
		{"amc", models.TimingAfterClose, ""},
		{"Before Market Open", models.TimingBeforeOpen, ""},
		{"", models.TimingDuringHours, ""},
		{"25:00", models.TimingDuringHours, ""},
	}
	for _, tt := range tests {
		timing, scheduled := ParseSchedule(tt.in)
		if timing != tt.timing || scheduled != tt.scheduled {
			t.Errorf("ParseSchedule(%q) = %s %q, want %s %q", tt.in, timing, scheduled, tt.timing, tt.scheduled)
		}
	}
}

func TestNormalizersFillScheduledTime(t *testing.T) {
	fmp, err := FMPNormalizer{}.Parse([]byte(`[{"symbol": "ORCL", "date": "2026-12-10", "time": "16:05:00"}]`))
	if err != nil {
		t.Fatalf("fmp Parse() error = %v", err)
	}
	if fmp[0].ScheduledTime != "16:05" || fmp[0].Timing != models.TimingAfterClose {
		t.Errorf("fmp entry = %s at %q", fmp[0].Timing, fmp[0].ScheduledTime)
	}

	fh, err := FinnhubNormalizer{}.Parse([]byte(`{"earningsCalendar": [{"symbol": "DAL", "date": "2026-10-09", "hour": "06:30"}]}`))
	if err != nil {
		t.Fatalf("finnhub Parse() error = %v", err)
	}
	if fh[0].ScheduledTime != "06:30" || fh[0].Timing != models.TimingBeforeOpen {
		t.Errorf("finnhub entry = %s at %q", fh[0].Timing, fh[0].ScheduledTime)
	}

	words, _ := FinnhubNormalizer{}.Parse([]byte(finnhubPayloadJSON))
	for _, e := range words {
		if e.ScheduledTime != "" {
			t.Errorf("%s: bmo/amc text should not set a scheduled time, got %q", e.Symbol, e.ScheduledTime)
		}
	}
}
