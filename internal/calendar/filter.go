package calendar

import (
	"strings"

	"earnings-tracker/internal/models"
)

// foreignSuffixes are exchange codes that look like share-class suffixes:
// Toronto, Canadian Securities Exchange, Xetra, Paris, London, Helsinki,
// Shanghai and Shenzhen.
var foreignSuffixes = map[string]bool{
	"TO": true,
	"CN": true,
	"DE": true,
	"PA": true,
	"L":  true,
	"HE": true,
	"SS": true,
	"SZ": true,
}

// IsPrimaryListing is a best-effort US-market filter. Plain tickers pass; a
// single dot passes for a suffix of at most two characters, such as BRK.B or a
// trailing "AAPL.", that is not a known foreign exchange code. Anything with
// more dots, or with nothing before the dot, is dropped.
func IsPrimaryListing(symbol string) bool {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(symbol)), ".")
	switch len(parts) {
	case 1:
		return parts[0] != ""
	case 2:
		suffix := parts[1]
		return parts[0] != "" && len(suffix) <= 2 && !foreignSuffixes[suffix]
	default:
		return false
	}
}

// FilterPrimary returns the entries whose symbol passes IsPrimaryListing.
func FilterPrimary(entries []models.CalendarEntry) []models.CalendarEntry {
	out := make([]models.CalendarEntry, 0, len(entries))
	for _, e := range entries {
		if IsPrimaryListing(e.Symbol) {
			out = append(out, e)
		}
	}
	return out
}

// Symbols lists entry symbols in order, without duplicates.
func Symbols(entries []models.CalendarEntry) []string {
	seen := make(map[string]bool, len(entries))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if !seen[e.Symbol] {
			seen[e.Symbol] = true
			out = append(out, e.Symbol)
		}
	}
	return out
}
