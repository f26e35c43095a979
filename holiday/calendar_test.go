package holiday

import "testing"

func TestIsNonWorkingDay(t *testing.T) {
	cal := Default("2026-10-21")

	tests := []struct {
		date string
		want bool
	}{
		{"2026-10-19", false}, // Monday
		{"2026-10-17", true},  // Saturday
		{"2026-10-18", true},  // Sunday
		{"2026-10-02", true},  // Gandhi Jayanti, a Friday
		{"2026-10-21", true},  // extra
		{"2026-10-22", false},
		{"not-a-date", false},
	}
	for _, tt := range tests {
		if got := cal.IsNonWorkingDay(tt.date); got != tt.want {
			t.Errorf("IsNonWorkingDay(%q) = %v, want %v", tt.date, got, tt.want)
		}
	}
}

func TestHolidayAndWeekendAreSeparate(t *testing.T) {
	cal := New([]string{"2026-11-08"})

	// 2026-11-08 is a Sunday and a configured holiday.
	if !cal.IsHoliday("2026-11-08") || !cal.IsWeekend("2026-11-08") {
		t.Fatal("2026-11-08 should be both holiday and weekend")
	}
	if cal.IsHoliday("2026-12-25") {
		t.Error("New without the default list should not know 2026-12-25")
	}
	if got := len(cal.Dates()); got != 1 {
		t.Errorf("Dates() has %d entries, want 1", got)
	}
}
