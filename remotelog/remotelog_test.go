package remotelog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"attendance/database/dbtest"
	"attendance/models"
)

var base = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func entry(offset time.Duration, action models.Action, details string) models.AttendanceLogEntry {
	at := base.Add(offset)
	return models.AttendanceLogEntry{
		Date:         "2026-10-19",
		Time:         at.Format("15:04:05"),
		EmployeeID:   "NTS-001",
		EmployeeName: "Prathamesh Shinde",
		Action:       action,
		Details:      details,
		CreatedAt:    at,
	}
}

func newRedisLog(t *testing.T) (*RedisLog, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLog(client, "test"), mr
}

func newGormLog(t *testing.T) *GormLog {
	t.Helper()
	l, err := NewGormLog(dbtest.OpenRemote(t))
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestBackends(t *testing.T) {
	backends := map[string]func(t *testing.T) Log{
		"gorm": func(t *testing.T) Log {
			return newGormLog(t)
		},
		"redis": func(t *testing.T) Log {
			l, _ := newRedisLog(t)
			return l
		},
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			l := open(t)
			ctx := context.Background()

			// Appended out of order; fetches come back by CreatedAt.
			appends := []models.AttendanceLogEntry{
				entry(0, models.ActionShiftStart, ""),
				entry(2*time.Minute, models.ActionBreakStart, "tea"),
				entry(time.Minute, models.ActionClockIn, ""),
			}
			for _, e := range appends {
				if err := l.Append(ctx, e); err != nil {
					t.Fatal(err)
				}
			}

			got, err := l.FetchAll(ctx)
			if err != nil {
				t.Fatal(err)
			}
			want := []models.Action{models.ActionShiftStart, models.ActionClockIn, models.ActionBreakStart}
			if len(got) != len(want) {
				t.Fatalf("FetchAll returned %d entries, want %d", len(got), len(want))
			}
			for i, e := range got {
				if e.Action != want[i] {
					t.Errorf("entry %d action = %s, want %s", i, e.Action, want[i])
				}
				if e.ID == "" {
					t.Errorf("entry %d has no id", i)
				}
			}
			if !got[2].CreatedAt.Equal(base.Add(2*time.Minute)) || got[2].Details != "tea" {
				t.Errorf("last entry = %+v", got[2])
			}

			leave := models.LeaveRequest{
				EmployeeID:   "NTS-001",
				EmployeeName: "Prathamesh Shinde",
				From:         "2026-10-22",
				To:           "2026-10-23",
				Reason:       "family",
				AppliedOn:    "2026-10-19",
				Status:       models.LeaveStatusPending,
			}
			if err := l.AppendLeave(ctx, leave.LogEntry(base)); err != nil {
				t.Fatal(err)
			}
			leaves, err := l.FetchLeaves(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(leaves) != 1 || leaves[0].From != "2026-10-22" || leaves[0].Status != models.LeaveStatusPending {
				t.Errorf("FetchLeaves = %+v", leaves)
			}
		})
	}
}

func TestRedisFailureIsSyncError(t *testing.T) {
	l, mr := newRedisLog(t)
	mr.Close()

	err := l.Append(context.Background(), entry(0, models.ActionShiftStart, ""))
	var se *SyncError
	if !errors.As(err, &se) {
		t.Fatalf("Append err = %v, want *SyncError", err)
	}
	if se.Op != "append" {
		t.Errorf("Op = %q", se.Op)
	}
	if _, err := l.FetchAll(context.Background()); !errors.As(err, &se) {
		t.Errorf("FetchAll err = %v, want *SyncError", err)
	}
}

func TestGormFailureIsSyncError(t *testing.T) {
	l := newGormLog(t)
	sqlDB, err := l.db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.Close()

	var se *SyncError
	if err := l.Append(context.Background(), entry(0, models.ActionShiftStart, "")); !errors.As(err, &se) {
		t.Fatalf("Append err = %v, want *SyncError", err)
	}
}
