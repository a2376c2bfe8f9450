package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ofarooq21/AI-Fitness-Tracker/pkg/models"
	"github.com/redis/go-redis/v9"
)

const reservePollInterval = 100 * time.Millisecond

// RedisBroker keeps pending tasks in a Redis list, in-flight tasks in a hash
// keyed by task id with their lease deadlines in a sorted set, and task state
// in one hash per task id. A worker that dies mid-task stops extending its
// lease, and RestoreUnacked hands the task to someone else once it expires.
type RedisBroker struct {
	client    *redis.Client
	name      string
	resultTTL time.Duration
	lease     time.Duration
}

// NewRedisBroker creates a broker whose keys are prefixed with name.
func NewRedisBroker(client *redis.Client, name string, resultTTL time.Duration) *RedisBroker {
	return &RedisBroker{client: client, name: name, resultTTL: resultTTL, lease: DefaultLease}
}

// WithLease sets how long a reservation survives without Extend.
func (b *RedisBroker) WithLease(d time.Duration) *RedisBroker {
	if d > 0 {
		b.lease = d
	}
	return b
}

var _ Broker = (*RedisBroker)(nil)

func (b *RedisBroker) pendingKey() string  { return b.name + ":pending" }
func (b *RedisBroker) leasesKey() string   { return b.name + ":inflight" }
func (b *RedisBroker) inflightKey() string { return b.name + ":inflight:tasks" }
func (b *RedisBroker) stateKey(taskID string) string {
	return fmt.Sprintf("%s:task:%s", b.name, taskID)
}

// leaseDeadline is the lease expiry in unix milliseconds.
func (b *RedisBroker) leaseDeadline() int64 {
	return time.Now().Add(b.lease).UnixMilli()
}

// KEYS: pending, leases, inflight. ARGV: deadline.
var claimScript = redis.NewScript(`
local raw = redis.call('RPOP', KEYS[1])
if not raw then return false end
local id = cjson.decode(raw)['id']
redis.call('ZADD', KEYS[2], ARGV[1], id)
redis.call('HSET', KEYS[3], id, raw)
return raw
`)

// KEYS: state. ARGV: status, result, error, updated_at, ttl ms.
var setStateScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'status')
if cur == 'SUCCESS' or cur == 'FAILURE' then return 0 end
redis.call('HSET', KEYS[1], 'status', ARGV[1], 'result', ARGV[2], 'error', ARGV[3], 'updated_at', ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

// KEYS: leases, inflight, pending. ARGV: id, now ms, held raw, restored raw.
var restoreScript = redis.NewScript(`
local score = redis.call('ZSCORE', KEYS[1], ARGV[1])
if (not score) or tonumber(score) > tonumber(ARGV[2]) then return 0 end
if redis.call('HGET', KEYS[2], ARGV[1]) ~= ARGV[3] then return 0 end
redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('HDEL', KEYS[2], ARGV[1])
redis.call('LPUSH', KEYS[3], ARGV[4])
return 1
`)

func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBroker) Enqueue(ctx context.Context, name string, payload any) (string, error) {
	task, err := NewTask(name, payload)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", name, err)
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("encode task: %w", err)
	}

	key := b.stateKey(task.ID)
	pipe := b.client.TxPipeline()
	pipe.HSet(ctx, key,
		"status", string(models.TaskPending),
		"updated_at", time.Now().UTC().Format(time.RFC3339Nano),
	)
	pipe.Expire(ctx, key, b.resultTTL)
	pipe.LPush(ctx, b.pendingKey(), raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", name, err)
	}
	return task.ID, nil
}

func (b *RedisBroker) State(ctx context.Context, taskID string) (State, error) {
	fields, err := b.client.HGetAll(ctx, b.stateKey(taskID)).Result()
	if err != nil {
		return State{}, fmt.Errorf("read task state: %w", err)
	}
	if len(fields) == 0 {
		return State{Status: models.TaskPending}, nil
	}

	st := State{
		Status: models.TaskStatus(fields["status"]),
		Error:  fields["error"],
	}
	if r := fields["result"]; r != "" {
		st.Result = json.RawMessage(r)
	}
	if ts := fields["updated_at"]; ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			st.UpdatedAt = t
		}
	}
	return st, nil
}

func (b *RedisBroker) SetState(ctx context.Context, taskID string, st State) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	written, err := setStateScript.Run(ctx, b.client, []string{b.stateKey(taskID)},
		string(st.Status), string(st.Result), st.Error,
		st.UpdatedAt.Format(time.RFC3339Nano), b.resultTTL.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("write task state: %w", err)
	}
	if written == 0 {
		return ErrTaskFinished
	}
	return nil
}

func (b *RedisBroker) Reserve(ctx context.Context, timeout time.Duration) (*Task, error) {
	keys := []string{b.pendingKey(), b.leasesKey(), b.inflightKey()}
	deadline := time.Now().Add(timeout)

	for {
		raw, err := claimScript.Run(ctx, b.client, keys, b.leaseDeadline()).Text()
		switch {
		case err == nil:
			var task Task
			if err := json.Unmarshal([]byte(raw), &task); err != nil {
				return nil, fmt.Errorf("decode task: %w", err)
			}
			return &task, nil
		case !errors.Is(err, redis.Nil):
			return nil, fmt.Errorf("reserve task: %w", err)
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, nil
		}
		t := time.NewTimer(min(wait, reservePollInterval))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (b *RedisBroker) Extend(ctx context.Context, task *Task) error {
	// XX: a lease that was already restored is not resurrected.
	err := b.client.ZAddArgs(ctx, b.leasesKey(), redis.ZAddArgs{
		XX:      true,
		Members: []redis.Z{{Score: float64(b.leaseDeadline()), Member: task.ID}},
	}).Err()
	if err != nil {
		return fmt.Errorf("extend lease on task %s: %w", task.ID, err)
	}
	return nil
}

func (b *RedisBroker) Ack(ctx context.Context, task *Task) error {
	pipe := b.client.TxPipeline()
	pipe.ZRem(ctx, b.leasesKey(), task.ID)
	pipe.HDel(ctx, b.inflightKey(), task.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ack task %s: %w", task.ID, err)
	}
	return nil
}

func (b *RedisBroker) Requeue(ctx context.Context, task *Task) error {
	next := *task
	next.Attempts++
	raw, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.ZRem(ctx, b.leasesKey(), task.ID)
	pipe.HDel(ctx, b.inflightKey(), task.ID)
	pipe.LPush(ctx, b.pendingKey(), raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("requeue task %s: %w", task.ID, err)
	}
	return nil
}

func (b *RedisBroker) RestoreUnacked(ctx context.Context) (int, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	expired, err := b.client.ZRangeByScore(ctx, b.leasesKey(), &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil {
		return 0, fmt.Errorf("list expired leases: %w", err)
	}

	restored := 0
	keys := []string{b.leasesKey(), b.inflightKey(), b.pendingKey()}
	for _, id := range expired {
		held, err := b.client.HGet(ctx, b.inflightKey(), id).Result()
		if errors.Is(err, redis.Nil) {
			// Lease without a body: drop it.
			b.client.ZRem(ctx, b.leasesKey(), id)
			continue
		}
		if err != nil {
			return restored, fmt.Errorf("load in-flight task %s: %w", id, err)
		}

		var task Task
		if err := json.Unmarshal([]byte(held), &task); err != nil {
			return restored, fmt.Errorf("decode in-flight task %s: %w", id, err)
		}
		task.Attempts++
		next, err := json.Marshal(&task)
		if err != nil {
			return restored, fmt.Errorf("encode task: %w", err)
		}

		moved, err := restoreScript.Run(ctx, b.client, keys, id, now, held, next).Int()
		if err != nil {
			return restored, fmt.Errorf("restore task %s: %w", id, err)
		}
		restored += moved
	}
	return restored, nil
}
