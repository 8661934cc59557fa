package cli

import (
	"fmt"
	"strings"
	"time"

	"earnings-tracker/internal/models"
	"earnings-tracker/pkg/utils"
)

const placeholder = "-"

// FormatOptionalUSD formats a possibly missing dollar amount.
func FormatOptionalUSD(v *float64) string {
	if v == nil {
		return placeholder
	}
	return utils.FormatUSD(*v)
}

// FormatEPS formats a per-share figure, which keeps cents even below a dollar.
func FormatEPS(v *float64) string {
	if v == nil {
		return placeholder
	}
	if *v < 0 {
		return fmt.Sprintf("-$%.2f", -*v)
	}
	return fmt.Sprintf("$%.2f", *v)
}

// FormatMarketCap formats market caps and revenues as $1.23B.
func FormatMarketCap(v *float64) string {
	if v == nil {
		return placeholder
	}
	return "$" + utils.FormatLargeNumber(*v)
}

// FormatTiming spells out a report timing code.
func FormatTiming(t models.Timing, scheduled string) string {
	var label string
	switch t {
	case models.TimingBeforeOpen:
		label = "Before open"
	case models.TimingAfterClose:
		label = "After close"
	case models.TimingDuringHours:
		label = "During market"
	default:
		label = string(t)
	}
	if scheduled != "" {
		return label + " " + scheduled
	}
	return label
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// TruncateString truncates a string to max runes with ellipsis.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// PadRight pads a string to the right.
func PadRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}
