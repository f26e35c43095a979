// Package holiday answers whether a day key is a working day.
package holiday

import (
	"time"

	"attendance/clock"
)

// National holidays observed by the office. Refreshed by editing this list
// or through the holidays.extra setting; never changed at runtime.
var defaultHolidays = []string{
	"2025-01-26",
	"2025-08-15",
	"2025-10-02",
	"2025-10-20",
	"2025-12-25",
	"2026-01-26",
	"2026-08-15",
	"2026-10-02",
	"2026-11-08",
	"2026-12-25",
}

// Calendar is an immutable set of holiday day keys plus the Saturday/Sunday
// weekend rule.
type Calendar struct {
	dates map[string]struct{}
}

func New(dates []string) *Calendar {
	c := &Calendar{dates: make(map[string]struct{}, len(dates))}
	for _, d := range dates {
		c.dates[d] = struct{}{}
	}
	return c
}

// Default returns the built-in holiday list merged with extra.
func Default(extra ...string) *Calendar {
	dates := make([]string, 0, len(defaultHolidays)+len(extra))
	dates = append(dates, defaultHolidays...)
	dates = append(dates, extra...)
	return New(dates)
}

func (c *Calendar) IsHoliday(dateKey string) bool {
	_, ok := c.dates[dateKey]
	return ok
}

// IsWeekend reports whether dateKey is a Saturday or Sunday. Malformed keys
// are never weekends.
func (c *Calendar) IsWeekend(dateKey string) bool {
	t, err := clock.ParseDateKey(dateKey)
	if err != nil {
		return false
	}
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (c *Calendar) IsNonWorkingDay(dateKey string) bool {
	return c.IsWeekend(dateKey) || c.IsHoliday(dateKey)
}

// Dates returns the configured holidays in no particular order.
func (c *Calendar) Dates() []string {
	out := make([]string, 0, len(c.dates))
	for d := range c.dates {
		out = append(out, d)
	}
	return out
}
