package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
)

type stubJob struct {
	err   error
	panic bool
	got   json.RawMessage
}

func (j *stubJob) Name() string { return "stub" }
func (j *stubJob) Type() string { return "stub.run" }
func (j *stubJob) Handle(_ context.Context, p json.RawMessage) error {
	j.got = p
	if j.panic {
		panic("boom")
	}
	return j.err
}

type recordingObserver struct{ statuses []string }

func (o *recordingObserver) RecordJob(_ string, status string) {
	o.statuses = append(o.statuses, status)
}

func newTestQueue(t *testing.T, job Job, obs Observer) *RedisQueue {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })
	q := NewRedisQueue(nil, Config{RetryLimit: 2}, client, WithKeyPrefix("test:q"), WithObserver(obs))
	if job != nil {
		q.RegisterJob(job)
	}
	return q
}

func TestHandle_Outcomes(t *testing.T) {
	obs := &recordingObserver{}
	job := &stubJob{}
	q := newTestQueue(t, job, obs)

	msg := Message{ID: "1", Type: "stub.run", Payload: json.RawMessage(`{"user_id":"u1"}`)}
	if got := q.handle(msg); got != outcomeOK {
		t.Fatalf("ok outcome = %v", got)
	}
	if string(job.got) != `{"user_id":"u1"}` {
		t.Fatalf("payload = %s", job.got)
	}

	job.err = errors.New("ledger down")
	if got := q.handle(msg); got != outcomeRetry {
		t.Fatalf("first failure = %v, want retry", got)
	}
	msg.Attempts = 2
	if got := q.handle(msg); got != outcomeDead {
		t.Fatalf("exhausted = %v, want dead", got)
	}

	job.err = nil
	job.panic = true
	msg.Attempts = 0
	if got := q.handle(msg); got != outcomeRetry {
		t.Fatalf("panic = %v, want retry", got)
	}

	want := []string{"ok", "retry", "dead", "retry"}
	if len(obs.statuses) != len(want) {
		t.Fatalf("statuses = %v", obs.statuses)
	}
	for i := range want {
		if obs.statuses[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", obs.statuses, want)
		}
	}
}

func TestHandle_UnknownTypeIsDead(t *testing.T) {
	q := newTestQueue(t, nil, nil)
	if got := q.handle(Message{ID: "x", Type: "missing"}); got != outcomeDead {
		t.Fatalf("unknown type = %v, want dead", got)
	}
}

func TestEnqueue_NotRunning(t *testing.T) {
	q := newTestQueue(t, &stubJob{}, nil)
	if err := q.Enqueue(context.Background(), "stub.run", map[string]string{"a": "b"}); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("err = %v, want ErrNotRunning", err)
	}
	if err := q.Stop(context.Background()); err != nil {
		t.Fatalf("stop on idle queue: %v", err)
	}
}

func TestKeys(t *testing.T) {
	q := newTestQueue(t, nil, nil)
	if q.queueKey() != "test:q:messages" || q.retryKey() != "test:q:retry" || q.deadLetterKey() != "test:q:dlq" {
		t.Fatalf("unexpected keys %s %s %s", q.queueKey(), q.retryKey(), q.deadLetterKey())
	}
}

func TestDecode(t *testing.T) {
	type payload struct {
		UserID string `json:"user_id"`
	}
	p, err := Decode[payload](json.RawMessage(`{"user_id":"u9"}`))
	if err != nil || p.UserID != "u9" {
		t.Fatalf("decode = %+v, %v", p, err)
	}
	if _, err := Decode[payload](nil); err == nil {
		t.Fatalf("expected error on empty payload")
	}
	if _, err := Decode[payload](json.RawMessage(`{`)); err == nil {
		t.Fatalf("expected error on bad json")
	}
}

type pushed struct {
	op, key string
	msg     Message
}

// recordingStore captures the writes settle makes; other Cmdable methods are not used.
type recordingStore struct {
	redis.Cmdable
	writes []pushed
}

func (s *recordingStore) record(ctx context.Context, op, key string, v any) *redis.IntCmd {
	var m Message
	switch d := v.(type) {
	case []byte:
		_ = json.Unmarshal(d, &m)
	case redis.Z:
		_ = json.Unmarshal(d.Member.([]byte), &m)
	}
	s.writes = append(s.writes, pushed{op: op, key: key, msg: m})
	return redis.NewIntCmd(ctx)
}

func (s *recordingStore) RPush(ctx context.Context, key string, values ...any) *redis.IntCmd {
	return s.record(ctx, "rpush", key, values[0])
}

func (s *recordingStore) LPush(ctx context.Context, key string, values ...any) *redis.IntCmd {
	return s.record(ctx, "lpush", key, values[0])
}

func (s *recordingStore) ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd {
	return s.record(ctx, "zadd", key, members[0])
}

type blockingJob struct{}

func (blockingJob) Name() string { return "blocking" }
func (blockingJob) Type() string { return "stub.run" }
func (blockingJob) Handle(ctx context.Context, _ json.RawMessage) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestShutdownRequeuesInterruptedMessage(t *testing.T) {
	obs := &recordingObserver{}
	q := newTestQueue(t, blockingJob{}, obs)
	store := &recordingStore{}
	q.store = store

	msg := Message{ID: "m1", Type: "stub.run", Attempts: 1, Payload: json.RawMessage(`{"user_id":"u1"}`)}
	q.cancel()
	o := q.handle(msg)
	if o != outcomeCancelled {
		t.Fatalf("outcome = %v, want cancelled", o)
	}
	q.settle(msg, o)

	if len(store.writes) != 1 {
		t.Fatalf("writes = %+v, want one requeue", store.writes)
	}
	w := store.writes[0]
	if w.op != "rpush" || w.key != "test:q:messages" {
		t.Fatalf("requeue went to %s %s", w.op, w.key)
	}
	if w.msg.ID != "m1" || w.msg.Attempts != 1 || string(w.msg.Payload) != `{"user_id":"u1"}` {
		t.Fatalf("requeued message = %+v", w.msg)
	}
	if len(obs.statuses) != 1 || obs.statuses[0] != "cancelled" {
		t.Fatalf("statuses = %v", obs.statuses)
	}
}

func TestSettleDestinations(t *testing.T) {
	q := newTestQueue(t, nil, nil)
	store := &recordingStore{}
	q.store = store

	msg := Message{ID: "m2", Type: "stub.run"}
	q.settle(msg, outcomeOK)
	q.settle(msg, outcomeRetry)
	q.settle(msg, outcomeDead)

	if len(store.writes) != 2 {
		t.Fatalf("writes = %+v", store.writes)
	}
	if w := store.writes[0]; w.op != "zadd" || w.key != "test:q:retry" || w.msg.Attempts != 1 {
		t.Fatalf("retry write = %+v", w)
	}
	if w := store.writes[1]; w.op != "lpush" || w.key != "test:q:dlq" || w.msg.Attempts != 0 {
		t.Fatalf("dead write = %+v", w)
	}
}
