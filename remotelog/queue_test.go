package remotelog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"attendance/clock"
	"attendance/config"
	"attendance/models"
)

// fakeLog records appends. failures makes the next n appends fail; block,
// when set, holds every append until it is closed.
type fakeLog struct {
	mu       sync.Mutex
	entries  []models.AttendanceLogEntry
	leaves   []models.LeaveLogEntry
	calls    int
	failures int
	started  chan struct{}
	block    chan struct{}
}

func (f *fakeLog) Append(ctx context.Context, e models.AttendanceLogEntry) error {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("connection refused")
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeLog) AppendLeave(ctx context.Context, e models.LeaveLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves = append(f.leaves, e)
	return nil
}

func (f *fakeLog) FetchAll(ctx context.Context) ([]models.AttendanceLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AttendanceLogEntry(nil), f.entries...), nil
}

func (f *fakeLog) FetchLeaves(ctx context.Context) ([]models.LeaveLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.LeaveLogEntry(nil), f.leaves...), nil
}

func syncConfig(size, attempts int) config.SyncConfig {
	return config.SyncConfig{
		Async:       true,
		QueueSize:   size,
		MaxAttempts: attempts,
		Backoff:     2 * time.Second,
	}
}

func closeQueue(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestQueueDeliversInOrder(t *testing.T) {
	log := &fakeLog{}
	q := NewQueue(log, clock.Fake(base), syncConfig(16, 3), zap.NewNop(), nil)
	ctx := context.Background()

	actions := []models.Action{models.ActionShiftStart, models.ActionClockIn, models.ActionBreakStart, models.ActionBreakEnd}
	for i, a := range actions {
		if err := q.Append(ctx, entry(time.Duration(i)*time.Minute, a, "")); err != nil {
			t.Fatal(err)
		}
	}
	if err := q.AppendLeave(ctx, models.LeaveLogEntry{EmployeeID: "NTS-001"}); err != nil {
		t.Fatal(err)
	}
	closeQueue(t, q)

	got, _ := q.FetchAll(ctx)
	if len(got) != len(actions) {
		t.Fatalf("delivered %d entries, want %d", len(got), len(actions))
	}
	for i, e := range got {
		if e.Action != actions[i] {
			t.Errorf("entry %d = %s, want %s", i, e.Action, actions[i])
		}
	}
	if leaves, _ := q.FetchLeaves(ctx); len(leaves) != 1 {
		t.Errorf("delivered %d leaves, want 1", len(leaves))
	}

	var se *SyncError
	if err := q.Append(ctx, entry(0, models.ActionShiftEnd, "")); !errors.As(err, &se) {
		t.Errorf("Append after Close err = %v, want *SyncError", err)
	}
}

func TestQueueRetriesWithBackoff(t *testing.T) {
	log := &fakeLog{failures: 1}
	clk := clock.Fake(base)
	q := NewQueue(log, clk, syncConfig(4, 3), zap.NewNop(), func(string, error) {
		t.Error("onFailure called for a write that succeeded on retry")
	})

	if err := q.Append(context.Background(), entry(0, models.ActionShiftStart, "")); err != nil {
		t.Fatal(err)
	}
	clk.WaitForTimers(1)
	clk.Advance(2 * time.Second)
	closeQueue(t, q)

	if log.calls != 2 || len(log.entries) != 1 {
		t.Errorf("calls = %d, delivered = %d; want 2 and 1", log.calls, len(log.entries))
	}
}

func TestQueueReportsExhaustedRetries(t *testing.T) {
	log := &fakeLog{failures: 10}
	clk := clock.Fake(base)

	var mu sync.Mutex
	var failed []error
	q := NewQueue(log, clk, syncConfig(4, 2), zap.NewNop(), func(op string, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, err)
	})

	if err := q.Append(context.Background(), entry(0, models.ActionClockIn, "")); err != nil {
		t.Fatal(err)
	}
	clk.WaitForTimers(1)
	clk.Advance(2 * time.Second)
	closeQueue(t, q)

	if log.calls != 2 {
		t.Errorf("calls = %d, want 2", log.calls)
	}
	if len(failed) != 1 {
		t.Fatalf("onFailure called %d times, want 1", len(failed))
	}
	var se *SyncError
	if !errors.As(failed[0], &se) || se.Op != "append" {
		t.Errorf("failure = %v, want *SyncError for append", failed[0])
	}
}

func TestQueueFull(t *testing.T) {
	log := &fakeLog{started: make(chan struct{}, 4), block: make(chan struct{})}
	q := NewQueue(log, clock.Fake(base), syncConfig(1, 1), zap.NewNop(), nil)
	ctx := context.Background()

	if err := q.Append(ctx, entry(0, models.ActionShiftStart, "")); err != nil {
		t.Fatal(err)
	}
	<-log.started // worker holds the first entry
	if err := q.Append(ctx, entry(time.Second, models.ActionClockIn, "")); err != nil {
		t.Fatal(err)
	}
	err := q.Append(ctx, entry(2*time.Second, models.ActionClockOut, ""))
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("third Append err = %v, want ErrQueueFull", err)
	}

	close(log.block)
	closeQueue(t, q)
	if len(log.entries) != 2 {
		t.Errorf("delivered %d entries, want 2", len(log.entries))
	}
}
