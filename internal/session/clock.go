// Package session derives the US equity trading-session phase from wall-clock time.
package session

import (
	"fmt"
	"time"

	"earnings-tracker/internal/models"
)

// Session boundaries in minutes since midnight. Each boundary belongs to the
// interval it starts.
const (
	PreMarketStart  = 4 * 60    // 04:00
	MarketOpen      = 9*60 + 30 // 09:30
	MarketClose     = 16 * 60   // 16:00
	AfterHoursEnd   = 20 * 60   // 20:00
	minutesInADay   = 24 * 60
	dateLayout      = "2006-01-02"
	defaultTimezone = "America/New_York"
)

// Refresh cadences for dashboard polling.
const (
	RefreshMarketHours  = 60 * time.Second
	RefreshEarningsTime = 30 * time.Second
	RefreshOffHours     = 5 * time.Minute
)

// NewYork is the exchange timezone.
var NewYork *time.Location

func init() {
	var err error
	NewYork, err = time.LoadLocation(defaultTimezone)
	if err != nil {
		// Fallback to UTC-5 (no DST)
		NewYork = time.FixedZone("EST", -5*60*60)
	}
}

// StateAt returns the session phase for now, read in now's own location.
// Saturday and Sunday are always closed.
func StateAt(now time.Time) models.MarketStatus {
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return models.MarketClosed
	}
	return stateForMinute(now.Hour()*60 + now.Minute())
}

func stateForMinute(m int) models.MarketStatus {
	switch {
	case m >= PreMarketStart && m < MarketOpen:
		return models.MarketPreMarket
	case m >= MarketOpen && m < MarketClose:
		return models.MarketHours
	case m >= MarketClose && m < AfterHoursEnd:
		return models.MarketAfterHours
	default:
		return models.MarketClosed
	}
}

// Clock reads session state in a fixed exchange timezone and honors full-day holidays.
type Clock struct {
	loc      *time.Location
	holidays map[string]bool
	now      func() time.Time
}

// Option configures a Clock.
type Option func(*Clock)

// WithNow replaces the time source.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) {
		c.now = now
	}
}

// NewClock creates a clock for timezone (empty means New York) and the given
// YYYY-MM-DD holidays.
func NewClock(timezone string, holidays []string, opts ...Option) (*Clock, error) {
	loc := NewYork
	if timezone != "" && timezone != defaultTimezone {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
		}
	}

	c := &Clock{
		loc:      loc,
		holidays: make(map[string]bool, len(holidays)),
		now:      time.Now,
	}
	for _, h := range holidays {
		d, err := time.ParseInLocation(dateLayout, h, loc)
		if err != nil {
			return nil, fmt.Errorf("parsing holiday %q: %w", h, err)
		}
		c.AddHoliday(d)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AddHoliday marks date as a full-day closure.
func (c *Clock) AddHoliday(date time.Time) {
	c.holidays[date.Format(dateLayout)] = true
}

// IsHoliday checks if t falls on a configured holiday in the clock's timezone.
func (c *Clock) IsHoliday(t time.Time) bool {
	return c.holidays[t.In(c.loc).Format(dateLayout)]
}

// Location returns the clock's timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Now returns the current time in the clock's timezone.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Status returns the current session phase.
func (c *Clock) Status() models.MarketStatus {
	return c.StatusAt(c.now())
}

// StatusAt returns the session phase at t, converted to the clock's timezone.
func (c *Clock) StatusAt(t time.Time) models.MarketStatus {
	t = t.In(c.loc)
	if c.IsHoliday(t) {
		return models.MarketClosed
	}
	return StateAt(t)
}

// IsMarketOpen reports whether any trading session, extended hours included, is active.
func (c *Clock) IsMarketOpen() bool {
	return c.Status().IsTrading()
}

// RefreshInterval returns how often a dashboard should poll at t. Announcement
// windows (07:00-09:30 and 16:00-17:30 on trading days) poll fastest.
func (c *Clock) RefreshInterval(t time.Time) time.Duration {
	t = t.In(c.loc)
	status := c.StatusAt(t)
	if status == models.MarketClosed {
		return RefreshOffHours
	}

	m := t.Hour()*60 + t.Minute()
	if (m >= 7*60 && m < MarketOpen) || (m >= MarketClose && m < 17*60+30) {
		return RefreshEarningsTime
	}
	if status == models.MarketHours {
		return RefreshMarketHours
	}
	return RefreshOffHours
}

// NextTransition returns the first minute after t at which the session phase changes.
func (c *Clock) NextTransition(t time.Time) time.Time {
	t = t.In(c.loc)
	current := c.StatusAt(t)
	next := t.Truncate(time.Minute).Add(time.Minute)
	// A week of minutes always contains a transition.
	for i := 0; i < 7*minutesInADay; i++ {
		if c.StatusAt(next) != current {
			return next
		}
		next = next.Add(time.Minute)
	}
	return next
}
