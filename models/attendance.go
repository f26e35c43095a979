package models

import (
	"time"
)

type BreakKind string

const (
	BreakTea      BreakKind = "tea"
	BreakLunch    BreakKind = "lunch"
	BreakEvening  BreakKind = "evening"
	BreakBreather BreakKind = "breather"
)

// BreakKinds lists the kinds in display order.
var BreakKinds = []BreakKind{BreakTea, BreakLunch, BreakEvening, BreakBreather}

// DefaultBreakMinutes is the allotted duration of each kind unless configured
// otherwise.
var DefaultBreakMinutes = map[BreakKind]int{
	BreakTea:      15,
	BreakLunch:    30,
	BreakEvening:  15,
	BreakBreather: 5,
}

func (k BreakKind) Valid() bool {
	_, ok := DefaultBreakMinutes[k]
	return ok
}

// Column is the attendance_records column holding the cumulative minutes.
func (k BreakKind) Column() string {
	return string(k) + "_minutes"
}

// AttendanceRecord is one employee's day. ClockIn and ClockOut are HH:MM:SS
// in the office timezone, empty when unset. TotalHours is set only while both
// are present.
type AttendanceRecord struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Date             string    `gorm:"not null;size:10;uniqueIndex:idx_record_day_employee" json:"date"`
	EmployeeID       string    `gorm:"not null;size:32;uniqueIndex:idx_record_day_employee" json:"employee_id"`
	EmployeeName     string    `gorm:"size:200" json:"employee_name"`
	ClockIn          string    `gorm:"size:8" json:"clock_in"`
	ClockOut         string    `gorm:"size:8" json:"clock_out"`
	TotalHours       string    `gorm:"size:16" json:"total_hours"`
	TeaMinutes       int       `gorm:"not null;default:0" json:"-"`
	LunchMinutes     int       `gorm:"not null;default:0" json:"-"`
	EveningMinutes   int       `gorm:"not null;default:0" json:"-"`
	BreatherMinutes  int       `gorm:"not null;default:0" json:"-"`
	BreatherOverruns int       `gorm:"not null;default:0" json:"breather_overruns"`
	Notes            string    `gorm:"size:1000" json:"notes"`
}

// BreakMinutes returns the cumulative minutes recorded for kind.
func (r *AttendanceRecord) BreakMinutes(kind BreakKind) int {
	switch kind {
	case BreakTea:
		return r.TeaMinutes
	case BreakLunch:
		return r.LunchMinutes
	case BreakEvening:
		return r.EveningMinutes
	case BreakBreather:
		return r.BreatherMinutes
	}
	return 0
}

func (r *AttendanceRecord) Breaks() map[BreakKind]int {
	out := make(map[BreakKind]int, len(BreakKinds))
	for _, k := range BreakKinds {
		out[k] = r.BreakMinutes(k)
	}
	return out
}

func (r *AttendanceRecord) ClockedIn() bool {
	return r.ClockIn != ""
}
