// Package calendar turns provider-specific earnings calendar payloads into
// canonical calendar entries.
package calendar

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"earnings-tracker/internal/errors"
	"earnings-tracker/internal/models"
)

// Supported provider shapes.
const (
	ProviderFinnhub = "finnhub"
	ProviderFMP     = "fmp"
)

// Normalizer parses one provider's calendar payload.
type Normalizer interface {
	// Provider names the payload shape this normalizer accepts.
	Provider() string
	// Parse decodes raw into canonical entries, failing with ErrShapeMismatch
	// when the payload is not the expected shape.
	Parse(raw []byte) ([]models.CalendarEntry, error)
}

// New returns the normalizer for provider.
func New(provider string) (Normalizer, error) {
	switch strings.ToLower(provider) {
	case ProviderFinnhub:
		return FinnhubNormalizer{}, nil
	case ProviderFMP:
		return FMPNormalizer{}, nil
	default:
		return nil, errors.Wrapf(errors.ErrUnknownProvider, "calendar provider %q", provider)
	}
}

// Normalize parses raw with n. A payload of the wrong shape yields an empty
// result and a warning, never an error. Entries are sorted by timing, then symbol.
func Normalize(n Normalizer, raw []byte, logger zerolog.Logger) []models.CalendarEntry {
	entries, err := Parse(n, raw)
	if err != nil {
		WarnShapeMismatch(logger, n, err)
		return []models.CalendarEntry{}
	}
	return entries
}

// Parse is Normalize without the recovery: a payload of the wrong shape is
// returned as ErrShapeMismatch. Callers that cache results use it so a bad
// payload is never stored.
func Parse(n Normalizer, raw []byte) ([]models.CalendarEntry, error) {
	entries, err := n.Parse(raw)
	if err != nil {
		return nil, err
	}
	SortEntries(entries)
	return entries, nil
}

// WarnShapeMismatch logs a payload that Parse rejected.
func WarnShapeMismatch(logger zerolog.Logger, n Normalizer, err error) {
	logger.Warn().
		Err(err).
		Str("provider", n.Provider()).
		Msg("Calendar payload has unexpected shape, returning no entries")
}

var timingOrder = map[models.Timing]int{
	models.TimingBeforeOpen:  0,
	models.TimingDuringHours: 1,
	models.TimingAfterClose:  2,
}

// SortEntries orders entries by timing (BMO, DMH, AMC), then symbol.
func SortEntries(entries []models.CalendarEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timing != entries[j].Timing {
			return timingOrder[entries[i].Timing] < timingOrder[entries[j].Timing]
		}
		return entries[i].Symbol < entries[j].Symbol
	})
}

// FinnhubNormalizer accepts {"earningsCalendar": [...]} with an "hour" timing field.
type FinnhubNormalizer struct{}

type finnhubPayload struct {
	EarningsCalendar json.RawMessage `json:"earningsCalendar"`
}

type finnhubEntry struct {
	Symbol          string   `json:"symbol"`
	Date            string   `json:"date"`
	Hour            string   `json:"hour"`
	EPSEstimate     *float64 `json:"epsEstimate"`
	EPSActual       *float64 `json:"epsActual"`
	RevenueEstimate *float64 `json:"revenueEstimate"`
	RevenueActual   *float64 `json:"revenueActual"`
	Quarter         int      `json:"quarter"`
	Year            int      `json:"year"`
}

// Provider implements Normalizer.
func (FinnhubNormalizer) Provider() string { return ProviderFinnhub }

// Parse implements Normalizer.
func (FinnhubNormalizer) Parse(raw []byte) ([]models.CalendarEntry, error) {
	if !isJSONObject(raw) {
		return nil, errors.Wrap(errors.ErrShapeMismatch, "expected an object with earningsCalendar")
	}
	var payload finnhubPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.Wrapf(errors.ErrShapeMismatch, "decoding finnhub payload: %v", err)
	}
	if !isJSONArray(payload.EarningsCalendar) {
		return nil, errors.Wrap(errors.ErrShapeMismatch, "earningsCalendar is not an array")
	}

	var items []finnhubEntry
	if err := json.Unmarshal(payload.EarningsCalendar, &items); err != nil {
		return nil, errors.Wrapf(errors.ErrShapeMismatch, "decoding earningsCalendar: %v", err)
	}

	entries := make([]models.CalendarEntry, 0, len(items))
	for _, it := range items {
		symbol := normalizeSymbol(it.Symbol)
		if symbol == "" {
			continue
		}
		timing, scheduled := ParseSchedule(it.Hour)
		entries = append(entries, models.CalendarEntry{
			Symbol:          symbol,
			CompanyName:     symbol,
			Timing:          timing,
			ScheduledTime:   scheduled,
			Date:            it.Date,
			EPSEstimate:     it.EPSEstimate,
			EPSActual:       it.EPSActual,
			RevenueEstimate: it.RevenueEstimate,
			RevenueActual:   it.RevenueActual,
			Quarter:         it.Quarter,
			Year:            it.Year,
		})
	}
	return entries, nil
}

// FMPNormalizer accepts a bare array with a "time" timing field.
type FMPNormalizer struct{}

type fmpEntry struct {
	Symbol           string   `json:"symbol"`
	Name             string   `json:"name"`
	Date             string   `json:"date"`
	Time             string   `json:"time"`
	EPS              *float64 `json:"eps"`
	EPSEstimated     *float64 `json:"epsEstimated"`
	Revenue          *float64 `json:"revenue"`
	RevenueEstimated *float64 `json:"revenueEstimated"`
}

// Provider implements Normalizer.
func (FMPNormalizer) Provider() string { return ProviderFMP }

// Parse implements Normalizer.
func (FMPNormalizer) Parse(raw []byte) ([]models.CalendarEntry, error) {
	if !isJSONArray(raw) {
		return nil, errors.Wrap(errors.ErrShapeMismatch, "expected a bare array")
	}
	var items []fmpEntry
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrapf(errors.ErrShapeMismatch, "decoding fmp payload: %v", err)
	}

	entries := make([]models.CalendarEntry, 0, len(items))
	for _, it := range items {
		symbol := normalizeSymbol(it.Symbol)
		if symbol == "" {
			continue
		}
		name := strings.TrimSpace(it.Name)
		if name == "" {
			name = symbol
		}
		timing, scheduled := ParseSchedule(it.Time)
		entries = append(entries, models.CalendarEntry{
			Symbol:          symbol,
			CompanyName:     name,
			Timing:          timing,
			ScheduledTime:   scheduled,
			Date:            it.Date,
			EPSEstimate:     it.EPSEstimated,
			EPSActual:       it.EPS,
			RevenueEstimate: it.RevenueEstimated,
			RevenueActual:   it.Revenue,
		})
	}
	return entries, nil
}

// clockLayouts are the wall-clock forms providers put in their timing field.
var clockLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM", "3:04:05 PM"}

// ParseSchedule reads a provider timing field. A wall-clock time in exchange
// local time ("16:30", "08:00:00", "4:30 PM") becomes the scheduled time as
// HH:MM and places the announcement against the regular session: before
// 09:30 is before the open, 16:00 and later is after the close. Anything else
// is left to InferTiming with no scheduled time.
func ParseSchedule(text string) (models.Timing, string) {
	t := strings.ToUpper(strings.TrimSpace(text))
	for _, layout := range clockLayouts {
		at, err := time.Parse(layout, t)
		if err != nil {
			continue
		}
		minute := at.Hour()*60 + at.Minute()
		switch {
		case minute < 9*60+30:
			return models.TimingBeforeOpen, at.Format("15:04")
		case minute >= 16*60:
			return models.TimingAfterClose, at.Format("15:04")
		default:
			return models.TimingDuringHours, at.Format("15:04")
		}
	}
	return InferTiming(text), ""
}

// InferTiming maps free text to an announcement timing by case-insensitive
// substring: "bmo"/"before" is before the open, "amc"/"after" is after the
// close, and anything else, empty included, is during hours. It is a heuristic,
// not a parser: "before close" reads as before the open.
func InferTiming(text string) models.Timing {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "bmo") || strings.Contains(t, "before"):
		return models.TimingBeforeOpen
	case strings.Contains(t, "amc") || strings.Contains(t, "after"):
		return models.TimingAfterClose
	default:
		return models.TimingDuringHours
	}
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func isJSONArray(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '['
}

func isJSONObject(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '{'
}
