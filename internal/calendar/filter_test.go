package calendar

import (
	"testing"

	"earnings-tracker/internal/models"
)

func TestIsPrimaryListing(t *testing.T) {
	tests := []struct {
		symbol string
		want   bool
	}{
		{"AAPL", true},
		{"brk.b", true},
		{"BF.A", true},
		{"RDS.AB", true},
		{"SHOP.TO", false},
		{"WEED.CN", false},
		{"SAP.DE", false},
		{"MC.PA", false},
		{"VOD.L", false},
		{"NOKIA.HE", false},
		{"600519.SS", false},
		{"000001.SZ", false},
		{"PETR4.SA1", false},
		{"A.B.C", false},
		{"AAPL.", true},
		{".A", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsPrimaryListing(tt.symbol); got != tt.want {
			t.Errorf("IsPrimaryListing(%q) = %v, want %v", tt.symbol, got, tt.want)
		}
	}
}

func TestFilterPrimaryAndSymbols(t *testing.T) {
	entries := []models.CalendarEntry{
		{Symbol: "AAPL"},
		{Symbol: "SHOP.TO"},
		{Symbol: "BRK.B"},
		{Symbol: "AAPL"},
	}

	filtered := FilterPrimary(entries)
	if len(filtered) != 3 {
		t.Fatalf("FilterPrimary() kept %d, want 3", len(filtered))
	}

	symbols := Symbols(filtered)
	want := []string{"AAPL", "BRK.B"}
	if len(symbols) != len(want) {
		t.Fatalf("Symbols() = %v, want %v", symbols, want)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Errorf("Symbols()[%d] = %s, want %s", i, symbols[i], want[i])
		}
	}
}
