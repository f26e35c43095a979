package session

import (
	"fmt"
	"sort"

	"attendance/models"
)

// Replay rebuilds the states one employee's session passed through from its
// log entries. Entries are taken in CreatedAt order; the session is assumed
// to start with the employee selected. It returns the state after each
// entry.
func Replay(entries []models.AttendanceLogEntry) ([]State, error) {
	ordered := append([]models.AttendanceLogEntry(nil), entries...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	states := make([]State, 0, len(ordered))
	state := EmployeeSelected
	for i, e := range ordered {
		if e.EmployeeID != ordered[0].EmployeeID {
			return states, fmt.Errorf("%w: entry %d belongs to %s, not %s",
				ErrGuardViolation, i, e.EmployeeID, ordered[0].EmployeeID)
		}
		next, ok := replayStep(state, e.Action)
		if !ok {
			return states, fmt.Errorf("%w: %s in state %s at entry %d", ErrGuardViolation, e.Action, state, i)
		}
		state = next
		states = append(states, state)
	}
	return states, nil
}

func replayStep(from State, action models.Action) (State, bool) {
	switch action {
	case models.ActionShiftStart:
		if from == EmployeeSelected || from == ShiftEnded {
			return ShiftActive, true
		}
	case models.ActionClockIn, models.ActionClockOut:
		if from == ShiftActive {
			return ShiftActive, true
		}
	case models.ActionBreakStart:
		if from == ShiftActive {
			return OnBreak, true
		}
	case models.ActionBreakEnd:
		if from == OnBreak {
			return ShiftActive, true
		}
	case models.ActionShiftEnd:
		if from == ShiftActive {
			return ShiftEnded, true
		}
	case models.ActionLeaveApplied:
		return from, true
	}
	return from, false
}
