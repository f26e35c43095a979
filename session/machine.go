// Package session implements the per-device attendance state machine: shift
// start and end, clock events and timed breaks, with every accepted
// transition written to the local store and mirrored to the remote log.
package session

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"go.uber.org/zap"

	"attendance/clock"
	"attendance/models"
	"attendance/roster"
	"attendance/store"
)

type State string

const (
	Idle             State = "idle"
	EmployeeSelected State = "employee_selected"
	ShiftActive      State = "shift_active"
	OnBreak          State = "on_break"
	ShiftEnded       State = "shift_ended"
)

// Journal receives the log entries of accepted transitions. remotelog.Log
// and remotelog.Queue both satisfy it.
type Journal interface {
	Append(ctx context.Context, entry models.AttendanceLogEntry) error
	AppendLeave(ctx context.Context, entry models.LeaveLogEntry) error
}

// Directory resolves employee ids.
type Directory interface {
	Lookup(ctx context.Context, id string) (models.Employee, error)
}

// Calendar reports days on which clock events and leave filing are refused.
type Calendar interface {
	IsNonWorkingDay(dateKey string) bool
}

type Options struct {
	Store    *store.Store
	Roster   Directory
	Calendar Calendar
	Journal  Journal
	Clock    clock.Clock
	Location *time.Location
	Logger   *zap.Logger

	// Breaks overrides the allotted minutes per kind.
	Breaks map[models.BreakKind]int

	// AutoEndBreaks ends a break when its timer fires. When false the timer
	// only raises a warning and the employee stops the break by hand.
	AutoEndBreaks bool
}

type activeBreak struct {
	kind    models.BreakKind
	start   time.Time
	endsAt  time.Time
	minutes int
	gen     uint64
	expired bool
}

// Machine is one device's session. All methods are safe for concurrent use;
// transitions are serialized.
type Machine struct {
	opts Options

	mu           sync.Mutex
	state        State
	employee     models.Employee
	shiftStart   time.Time
	shiftEnd     time.Time
	brk          *activeBreak
	timer        *clock.Timer
	gen          uint64
	breakMinutes int
	warnings     []string
	lastStamp    time.Time
}

func New(opts Options) *Machine {
	return &Machine{opts: opts.withDefaults(), state: Idle}
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

func (m *Machine) SelectEmployee(ctx context.Context, employeeID string) error {
	if employeeID == "" {
		return ErrMissingIdentity
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case ShiftActive, OnBreak:
		return ErrShiftInProgress
	}

	emp, err := m.opts.Roster.Lookup(ctx, employeeID)
	if errors.Is(err, roster.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrUnknownEmployee, employeeID)
	}
	if err != nil {
		return err
	}

	m.employee = emp
	m.state = EmployeeSelected
	m.shiftStart = time.Time{}
	m.shiftEnd = time.Time{}
	m.breakMinutes = 0
	return nil
}

func (m *Machine) StartShift(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case Idle:
		return ErrMissingIdentity
	case ShiftActive, OnBreak:
		return ErrShiftAlreadyActive
	}

	now := m.opts.Clock.Now()
	m.state = ShiftActive
	m.shiftStart = now
	m.shiftEnd = time.Time{}
	m.breakMinutes = 0
	m.emit(ctx, now, models.ActionShiftStart, "")
	return nil
}

func (m *Machine) ClockIn(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.Clock.Now()
	today, err := m.clockGuard(now)
	if err != nil {
		return err
	}
	if _, err := m.opts.Store.ClockIn(ctx, today, m.employee.ID); err != nil {
		return err
	}
	m.emit(ctx, now, models.ActionClockIn, "")
	return nil
}

func (m *Machine) ClockOut(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.Clock.Now()
	today, err := m.clockGuard(now)
	if err != nil {
		return err
	}
	rec, err := m.opts.Store.ClockOut(ctx, today, m.employee.ID)
	if errors.Is(err, store.ErrNotClockedIn) {
		return fmt.Errorf("%w: %w", ErrGuardViolation, err)
	}
	if err != nil {
		return err
	}
	m.emit(ctx, now, models.ActionClockOut, rec.TotalHours)
	return nil
}

func (m *Machine) clockGuard(now time.Time) (string, error) {
	switch m.state {
	case Idle:
		return "", ErrMissingIdentity
	case OnBreak:
		return "", ErrOnBreak
	case EmployeeSelected, ShiftEnded:
		return "", ErrShiftNotActive
	}
	today := clock.DateKey(now, m.opts.Location)
	if m.opts.Calendar.IsNonWorkingDay(today) {
		return "", ErrNonWorkingDay
	}
	return today, nil
}

// StartBreak starts a break of kind lasting minutes. A non-positive minutes
// uses the allotted duration for kind; a break may be shorter than its
// allotment but never longer.
func (m *Machine) StartBreak(ctx context.Context, kind models.BreakKind, minutes int) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", store.ErrUnknownBreakKind, kind)
	}
	allotted := m.allotted(kind)
	if minutes <= 0 {
		minutes = allotted
	}
	if minutes > allotted {
		return fmt.Errorf("%w: %s break of %d minutes exceeds %d", clock.ErrInvalidRange, kind, minutes, allotted)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case Idle:
		return ErrMissingIdentity
	case OnBreak:
		m.opts.Logger.Warn("break already active",
			zap.String("employee_id", m.employee.ID),
			zap.String("active", string(m.brk.kind)),
			zap.String("requested", string(kind)),
		)
		return ErrBreakActive
	case EmployeeSelected, ShiftEnded:
		return ErrShiftNotActive
	}

	now := m.opts.Clock.Now()
	m.gen++
	b := &activeBreak{
		kind:    kind,
		start:   now,
		endsAt:  now.Add(time.Duration(minutes) * time.Minute),
		minutes: minutes,
		gen:     m.gen,
	}
	m.brk = b
	m.state = OnBreak
	m.timer = m.opts.Clock.AfterFunc(b.endsAt.Sub(now), func() { m.expire(b.gen) })
	m.emit(ctx, now, models.ActionBreakStart, string(kind))
	return nil
}

// EndBreak stops the active break now.
func (m *Machine) EndBreak(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case Idle:
		return ErrMissingIdentity
	case OnBreak:
	default:
		return ErrNoActiveBreak
	}
	return m.endBreakLocked(ctx, m.opts.Clock.Now())
}

// expire runs on the break timer. A stale generation means the break was
// already ended by hand or by the shift ending.
func (m *Machine) expire(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.brk
	if b == nil || b.gen != gen {
		return
	}
	if !m.opts.AutoEndBreaks {
		b.expired = true
		m.warnings = append(m.warnings, fmt.Sprintf("%s break time is over", b.kind))
		return
	}
	if err := m.endBreakLocked(context.Background(), b.endsAt); err != nil {
		m.opts.Logger.Error("end expired break",
			zap.String("employee_id", m.employee.ID),
			zap.String("kind", string(b.kind)),
			zap.Error(err),
		)
	}
}

// endBreakLocked records the break as ending at end. The recorded minutes are
// the actual duration rounded up to a whole minute.
func (m *Machine) endBreakLocked(ctx context.Context, end time.Time) error {
	b := m.brk
	actual := end.Sub(b.start)
	if actual < 0 {
		actual = 0
	}
	elapsed := int((actual + time.Minute - 1) / time.Minute)
	today := clock.DateKey(b.start, m.opts.Location)

	if _, err := m.opts.Store.AddBreakMinutes(ctx, today, m.employee.ID, b.kind, elapsed); err != nil {
		return err
	}
	if b.kind == models.BreakBreather && actual > time.Duration(b.minutes)*time.Minute {
		if _, err := m.opts.Store.RecordBreatherOverrun(ctx, today, m.employee.ID); err != nil {
			m.opts.Logger.Error("record breather overrun",
				zap.String("employee_id", m.employee.ID),
				zap.Error(err),
			)
		}
	}

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.brk = nil
	m.gen++
	m.breakMinutes += elapsed
	m.state = ShiftActive
	m.emit(ctx, end, models.ActionBreakEnd, fmt.Sprintf("%s - %dmin", b.kind, elapsed))
	return nil
}

// EndShift ends the shift. An active break is ended first and logged on its
// own.
func (m *Machine) EndShift(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case Idle:
		return ErrMissingIdentity
	case EmployeeSelected, ShiftEnded:
		return ErrShiftNotActive
	}

	now := m.opts.Clock.Now()
	if m.state == OnBreak {
		if err := m.endBreakLocked(ctx, now); err != nil {
			return err
		}
	}
	m.state = ShiftEnded
	m.shiftEnd = now
	m.emit(ctx, now, models.ActionShiftEnd, "")
	return nil
}

// FileLeave files a pending leave for the selected employee. It does not
// change the shift state.
func (m *Machine) FileLeave(ctx context.Context, from, to, reason string) (*models.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Idle {
		return nil, ErrMissingIdentity
	}
	now := m.opts.Clock.Now()
	if m.opts.Calendar.IsNonWorkingDay(clock.DateKey(now, m.opts.Location)) {
		return nil, ErrNonWorkingDay
	}

	leave, err := m.opts.Store.FileLeave(ctx, m.employee.ID, from, to, reason)
	if err != nil {
		return nil, err
	}
	if err := m.opts.Journal.AppendLeave(ctx, leave.LogEntry(m.stamp(now))); err != nil {
		m.syncFailed("append leave", err)
	}
	m.emit(ctx, now, models.ActionLeaveApplied, reason)
	return leave, nil
}

// SetNote replaces today's note. Notes are not logged.
func (m *Machine) SetNote(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Idle {
		return ErrMissingIdentity
	}
	today := clock.DateKey(m.opts.Clock.Now(), m.opts.Location)
	_, err := m.opts.Store.SetNote(ctx, today, m.employee.ID, text)
	return err
}

// Countdown yields the active break's remaining seconds down to zero. It is
// empty when no break is active.
func (m *Machine) Countdown(ctx context.Context) iter.Seq[int] {
	m.mu.Lock()
	b := m.brk
	now := m.opts.Clock.Now()
	m.mu.Unlock()

	if b == nil {
		return func(func(int) bool) {}
	}
	return clock.Countdown(ctx, m.opts.Clock, remainingSeconds(b, now))
}

// Close ends an active break at the current time so its minutes and its
// BREAK_END entry are recorded, then stops any pending timer.
func (m *Machine) Close(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == OnBreak {
		if err := m.endBreakLocked(ctx, m.opts.Clock.Now()); err != nil {
			m.opts.Logger.Error("end break on close",
				zap.String("employee_id", m.employee.ID),
				zap.String("kind", string(m.brk.kind)),
				zap.Error(err),
			)
		}
	}
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
}

func (m *Machine) allotted(kind models.BreakKind) int {
	if n, ok := m.opts.Breaks[kind]; ok && n > 0 {
		return n
	}
	return models.DefaultBreakMinutes[kind]
}

// emit appends one log entry. It runs under m.mu so entries leave in
// transition order. Sync failures never undo the transition.
func (m *Machine) emit(ctx context.Context, now time.Time, action models.Action, details string) {
	entry := models.AttendanceLogEntry{
		Date:         clock.DateKey(now, m.opts.Location),
		Time:         clock.TimeOfDay(now, m.opts.Location),
		EmployeeID:   m.employee.ID,
		EmployeeName: m.employee.Name,
		Action:       action,
		Details:      details,
		CreatedAt:    m.stamp(now),
	}
	if err := m.opts.Journal.Append(ctx, entry); err != nil {
		m.syncFailed(string(action), err)
	}
}

// stamp returns a creation time strictly after the previous one. Databases
// keep microseconds, so ties are broken by one microsecond.
func (m *Machine) stamp(now time.Time) time.Time {
	now = now.Round(0).Truncate(time.Microsecond)
	if !now.After(m.lastStamp) {
		now = m.lastStamp.Add(time.Microsecond)
	}
	m.lastStamp = now
	return now
}

func (m *Machine) syncFailed(op string, err error) {
	m.opts.Logger.Warn("remote log sync failed",
		zap.String("employee_id", m.employee.ID),
		zap.String("op", op),
		zap.Error(err),
	)
	m.warnings = append(m.warnings, fmt.Sprintf("could not sync %s: %v", op, err))
}

func remainingSeconds(b *activeBreak, now time.Time) int {
	left := b.endsAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}
