package remotelog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"attendance/models"
)

const payloadField = "entry"

// RedisLog keeps each collection in a redis stream. Streams are append-only,
// which matches the log's contract.
type RedisLog struct {
	client *redis.Client
	prefix string
}

func NewRedisLog(client *redis.Client, prefix string) *RedisLog {
	if prefix == "" {
		prefix = "attendance"
	}
	return &RedisLog{client: client, prefix: prefix}
}

func (l *RedisLog) attendanceKey() string { return l.prefix + ":attendance" }
func (l *RedisLog) leavesKey() string     { return l.prefix + ":leaves" }

func (l *RedisLog) Append(ctx context.Context, entry models.AttendanceLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	return syncErr("append", l.add(ctx, l.attendanceKey(), entry))
}

func (l *RedisLog) AppendLeave(ctx context.Context, entry models.LeaveLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	return syncErr("append leave", l.add(ctx, l.leavesKey(), entry))
}

func (l *RedisLog) FetchAll(ctx context.Context) ([]models.AttendanceLogEntry, error) {
	entries, err := fetch[models.AttendanceLogEntry](ctx, l.client, l.attendanceKey())
	if err != nil {
		return nil, syncErr("fetch", err)
	}
	sortEntries(entries)
	return entries, nil
}

func (l *RedisLog) FetchLeaves(ctx context.Context) ([]models.LeaveLogEntry, error) {
	entries, err := fetch[models.LeaveLogEntry](ctx, l.client, l.leavesKey())
	if err != nil {
		return nil, syncErr("fetch leaves", err)
	}
	sortLeaves(entries)
	return entries, nil
}

func (l *RedisLog) add(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	return l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		Values: map[string]any{payloadField: string(payload)},
	}).Err()
}

func fetch[T any](ctx context.Context, client *redis.Client, key string) ([]T, error) {
	msgs, err := client.XRange(ctx, key, "-", "+").Result()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values[payloadField].(string)
		if !ok {
			return nil, fmt.Errorf("stream %s message %s has no %s field", key, msg.ID, payloadField)
		}
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode stream %s message %s: %w", key, msg.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}
