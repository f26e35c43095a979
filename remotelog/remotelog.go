// Package remotelog mirrors session events to the authoritative,
// append-only attendance and leave logs used for reporting.
package remotelog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"attendance/models"
)

// Log is an append-only pair of collections. Entries are never updated or
// deleted once written.
type Log interface {
	Append(ctx context.Context, entry models.AttendanceLogEntry) error
	AppendLeave(ctx context.Context, entry models.LeaveLogEntry) error
	// FetchAll returns every attendance entry ordered by CreatedAt.
	FetchAll(ctx context.Context) ([]models.AttendanceLogEntry, error)
	// FetchLeaves returns every leave entry ordered by CreatedAt.
	FetchLeaves(ctx context.Context) ([]models.LeaveLogEntry, error)
}

var ErrQueueFull = errors.New("sync queue is full")

// SyncError wraps a failed remote read or write. Callers surface it as a
// warning; local state is already committed when it is returned.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("remote log %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

func syncErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *SyncError
	if errors.As(err, &se) {
		return err
	}
	return &SyncError{Op: op, Err: err}
}

func sortEntries(entries []models.AttendanceLogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}

func sortLeaves(entries []models.LeaveLogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}
