package remotelog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"attendance/clock"
	"attendance/config"
	"attendance/models"
)

type job struct {
	op   string
	send func(ctx context.Context) error
}

// Queue is a bounded retry queue in front of a Log. Appends return once the
// entry is queued; a single worker delivers them in FIFO order.
type Queue struct {
	log    Log
	clock  clock.Clock
	logger *zap.Logger
	cfg    config.SyncConfig
	onFail func(op string, err error)
	jobs   chan job
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewQueue starts the delivery worker. onFailure is called from the worker
// goroutine after the last attempt fails; it may be nil.
func NewQueue(log Log, clk clock.Clock, cfg config.SyncConfig, logger *zap.Logger, onFailure func(op string, err error)) *Queue {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	q := &Queue{
		log:    log,
		clock:  clk,
		logger: logger,
		cfg:    cfg,
		onFail: onFailure,
		jobs:   make(chan job, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) Append(_ context.Context, entry models.AttendanceLogEntry) error {
	return q.enqueue(job{op: "append", send: func(ctx context.Context) error {
		return q.log.Append(ctx, entry)
	}})
}

func (q *Queue) AppendLeave(_ context.Context, entry models.LeaveLogEntry) error {
	return q.enqueue(job{op: "append leave", send: func(ctx context.Context) error {
		return q.log.AppendLeave(ctx, entry)
	}})
}

func (q *Queue) FetchAll(ctx context.Context) ([]models.AttendanceLogEntry, error) {
	return q.log.FetchAll(ctx)
}

func (q *Queue) FetchLeaves(ctx context.Context) ([]models.LeaveLogEntry, error) {
	return q.log.FetchLeaves(ctx)
}

// Close stops accepting entries and waits for the queued ones to be
// delivered or for ctx to end.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) enqueue(j job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return &SyncError{Op: j.op, Err: ErrQueueFull}
	}
	select {
	case q.jobs <- j:
		return nil
	default:
		return &SyncError{Op: j.op, Err: ErrQueueFull}
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for j := range q.jobs {
		q.deliver(j)
	}
}

func (q *Queue) deliver(j job) {
	var err error
	for attempt := 1; attempt <= q.cfg.MaxAttempts; attempt++ {
		err = q.send(j)
		if err == nil {
			return
		}
		q.logger.Warn("remote log write failed",
			zap.String("op", j.op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < q.cfg.MaxAttempts {
			q.clock.Sleep(q.cfg.Backoff * time.Duration(attempt))
		}
	}

	q.logger.Error("remote log write dropped",
		zap.String("op", j.op),
		zap.Int("attempts", q.cfg.MaxAttempts),
		zap.Error(err),
	)
	if q.onFail != nil {
		q.onFail(j.op, syncErr(j.op, err))
	}
}

func (q *Queue) send(j job) error {
	ctx := context.Background()
	if q.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.cfg.Timeout)
		defer cancel()
	}
	return j.send(ctx)
}
