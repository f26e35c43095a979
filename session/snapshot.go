package session

import (
	"time"

	"attendance/clock"
	"attendance/models"
)

type BreakSnapshot struct {
	Kind             models.BreakKind `json:"kind"`
	StartedAt        time.Time        `json:"started_at"`
	EndsAt           time.Time        `json:"ends_at"`
	Minutes          int              `json:"minutes"`
	RemainingSeconds int              `json:"remaining_seconds"`
	Expired          bool             `json:"expired"`
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	State         State          `json:"state"`
	EmployeeID    string         `json:"employee_id,omitempty"`
	EmployeeName  string         `json:"employee_name,omitempty"`
	ShiftWindow   string         `json:"shift_window,omitempty"`
	ShiftStart    *time.Time     `json:"shift_start,omitempty"`
	ShiftEnd      *time.Time     `json:"shift_end,omitempty"`
	Break         *BreakSnapshot `json:"break,omitempty"`
	BreakMinutes  int            `json:"break_minutes"`
	Today         string         `json:"today"`
	NonWorkingDay bool           `json:"non_working_day"`
	Warnings      []string       `json:"warnings,omitempty"`
}

// State reports the current state without touching pending warnings.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Employee returns the selected employee, or false while idle.
func (m *Machine) Employee() (models.Employee, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.employee, m.state != Idle
}

// Today is the current day key in the session's location.
func (m *Machine) Today() string {
	return clock.DateKey(m.opts.Clock.Now(), m.opts.Location)
}

// Snapshot returns the current session. Pending warnings are handed over
// once and then cleared.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.Clock.Now()
	today := clock.DateKey(now, m.opts.Location)
	s := Snapshot{
		State:         m.state,
		EmployeeID:    m.employee.ID,
		EmployeeName:  m.employee.Name,
		ShiftWindow:   m.employee.ShiftWindow,
		BreakMinutes:  m.breakMinutes,
		Today:         today,
		NonWorkingDay: m.opts.Calendar.IsNonWorkingDay(today),
		Warnings:      m.warnings,
	}
	m.warnings = nil

	if !m.shiftStart.IsZero() {
		t := m.shiftStart
		s.ShiftStart = &t
	}
	if !m.shiftEnd.IsZero() {
		t := m.shiftEnd
		s.ShiftEnd = &t
	}
	if b := m.brk; b != nil {
		s.Break = &BreakSnapshot{
			Kind:             b.kind,
			StartedAt:        b.start,
			EndsAt:           b.endsAt,
			Minutes:          b.minutes,
			RemainingSeconds: remainingSeconds(b, now),
			Expired:          b.expired,
		}
	}
	return s
}
