package session

import (
	"errors"
	"fmt"
)

// ErrGuardViolation is the parent of every rejected transition. A rejected
// transition changes no state and emits nothing.
var ErrGuardViolation = errors.New("transition not allowed")

var (
	ErrShiftInProgress    = fmt.Errorf("%w: a shift is in progress", ErrGuardViolation)
	ErrShiftNotActive     = fmt.Errorf("%w: no active shift", ErrGuardViolation)
	ErrShiftAlreadyActive = fmt.Errorf("%w: shift already started", ErrGuardViolation)
	ErrBreakActive        = fmt.Errorf("%w: a break is already active", ErrGuardViolation)
	ErrNoActiveBreak      = fmt.Errorf("%w: no active break", ErrGuardViolation)
	ErrOnBreak            = fmt.Errorf("%w: on a break", ErrGuardViolation)
	ErrNonWorkingDay      = fmt.Errorf("%w: today is not a working day", ErrGuardViolation)
)

var (
	ErrMissingIdentity = errors.New("no employee selected")
	ErrUnknownEmployee = errors.New("unknown employee")
)
