// Package analysis finds a company's latest earnings report, extracts its
// text and summarizes it with an LLM.
package analysis

import (
	"fmt"
	"time"
)

// CurrentQuarter names the fiscal quarter most likely being reported at now.
// Reports trail the quarter they cover, so January to March reports Q4 of
// the previous year.
func CurrentQuarter(now time.Time) string {
	year := now.Year()
	switch m := now.Month(); {
	case m <= time.March:
		return fmt.Sprintf("Q4 %d", year-1)
	case m <= time.June:
		return fmt.Sprintf("Q1 %d", year)
	case m <= time.September:
		return fmt.Sprintf("Q2 %d", year)
	default:
		return fmt.Sprintf("Q3 %d", year)
	}
}
