package clock

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"
)

const (
	// DateLayout is the day key used for records, leave ranges and holidays.
	DateLayout = "2006-01-02"
	// TimeLayout is the 24-hour wall-clock time stored on day records.
	TimeLayout = "15:04:05"
)

// ErrInvalidRange is returned for malformed times or dates and for ranges
// whose end precedes their start.
var ErrInvalidRange = errors.New("invalid time range")

// Elapsed returns the whole hours and minutes between two same-day HH:MM:SS
// times. An end earlier than start is rejected rather than wrapped.
func Elapsed(start, end string) (hours, minutes int, err error) {
	a, err := time.Parse(TimeLayout, start)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: start %q", ErrInvalidRange, start)
	}
	b, err := time.Parse(TimeLayout, end)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: end %q", ErrInvalidRange, end)
	}
	if b.Before(a) {
		return 0, 0, fmt.Errorf("%w: %s is before %s", ErrInvalidRange, end, start)
	}

	diff := int(b.Sub(a) / time.Second)
	return diff / 3600, (diff % 3600) / 60, nil
}

// FormatHours renders a duration the way day records store it, e.g. "8h 5m".
func FormatHours(hours, minutes int) string {
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// TotalHours is Elapsed followed by FormatHours.
func TotalHours(start, end string) (string, error) {
	h, m, err := Elapsed(start, end)
	if err != nil {
		return "", err
	}
	return FormatHours(h, m), nil
}

// DateKey formats t as a day key in loc.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// TimeOfDay formats t as HH:MM:SS in loc.
func TimeOfDay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(TimeLayout)
}

// ParseDateKey parses a YYYY-MM-DD key.
func ParseDateKey(key string) (time.Time, error) {
	t, err := time.Parse(DateLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidRange, key)
	}
	return t, nil
}

// DateRange validates an inclusive [from, to] range of day keys.
func DateRange(from, to string) error {
	a, err := ParseDateKey(from)
	if err != nil {
		return err
	}
	b, err := ParseDateKey(to)
	if err != nil {
		return err
	}
	if b.Before(a) {
		return fmt.Errorf("%w: %s is before %s", ErrInvalidRange, to, from)
	}
	return nil
}

// Countdown yields seconds straight away and then one decremented value per
// second elapsed on clk, finishing with 0. Each range over the returned
// sequence starts a fresh countdown. Cancelling ctx ends it early.
func Countdown(ctx context.Context, clk Clock, seconds int) iter.Seq[int] {
	return func(yield func(int) bool) {
		if seconds < 0 {
			seconds = 0
		}
		for remaining := seconds; ; remaining-- {
			if !yield(remaining) || remaining == 0 {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-clk.After(time.Second):
			}
		}
	}
}
