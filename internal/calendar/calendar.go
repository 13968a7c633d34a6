// Package calendar implements the trading-calendar oracle used to resolve
// trade settlement dates. A trading day is any weekday that is not in the
// configured holiday set.
package calendar

import "time"

// Calendar answers trading-day questions for one market.
type Calendar struct {
	loc      *time.Location
	holidays map[string]bool // YYYY-MM-DD
}

// New creates a Calendar for the given market timezone and holiday list.
// Holiday dates are YYYY-MM-DD strings; weekends are always non-trading.
func New(loc *time.Location, holidays []string) *Calendar {
	set := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		set[h] = true
	}
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{loc: loc, holidays: set}
}

// IsTradingDay reports whether t's calendar day (in the market timezone)
// is a trading day.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	t = t.In(c.loc)
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.holidays[t.Format("2006-01-02")]
}

// NextTradingDay returns the first trading day strictly after t's
// calendar day. This is the T+1 settlement rule: a trade entered on any
// day settles at the NAV published on the following trading day,
// regardless of time of day.
func (c *Calendar) NextTradingDay(t time.Time) time.Time {
	day := t.In(c.loc)
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, c.loc)
	for {
		day = day.AddDate(0, 0, 1)
		if c.IsTradingDay(day) {
			return day
		}
	}
}
