package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"CashPilot/internal/domain/models"
	"CashPilot/pkg/cache"
)

func TestRefreshJob_PublishesAlerts(t *testing.T) {
	uc := newUseCase(t, workedLedger(), false, nil)
	locks := cache.NewMemoryCache()
	defer locks.Close()
	pub := &fakeAlertPublisher{}
	job := NewRefreshJob(uc, locks, pub, nil, 0)
	job.now = func() time.Time { return workedNow }

	if err := job.Handle(context.Background(), json.RawMessage(`{"user_id":"u1"}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("events = %d, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.UserID != "u1" || ev.HealthScore != 95 || ev.RunwayMonths != 1 || len(ev.Alerts) != 3 {
		t.Fatalf("event = %+v", ev)
	}
	if !ev.GeneratedAt.Equal(workedNow) {
		t.Fatalf("generated_at = %s", ev.GeneratedAt)
	}

	// lock released
	ok, err := locks.TryLock(context.Background(), cache.Key("lock", "refresh", "u1"), "test", time.Second)
	if err != nil || !ok {
		t.Fatalf("lock still held: %v %v", ok, err)
	}
}

func TestRefreshJob_SkipsWhenLocked(t *testing.T) {
	ledger := workedLedger()
	uc := newUseCase(t, ledger, false, nil)
	locks := cache.NewMemoryCache()
	defer locks.Close()
	pub := &fakeAlertPublisher{}
	job := NewRefreshJob(uc, locks, pub, nil, 0)

	if ok, _ := locks.TryLock(context.Background(), cache.Key("lock", "refresh", "u1"), "other-worker", time.Minute); !ok {
		t.Fatalf("could not take lock")
	}
	if err := job.Handle(context.Background(), json.RawMessage(`{"user_id":"u1"}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if ledger.calls.Load() != 0 || len(pub.events) != 0 {
		t.Fatalf("locked refresh still ran")
	}
}

func TestRefreshJob_NoAlertsForNewUser(t *testing.T) {
	uc := newUseCase(t, &fakeLedger{}, false, nil)
	pub := &fakeAlertPublisher{}
	job := NewRefreshJob(uc, nil, pub, nil, 0)
	if err := job.Handle(context.Background(), json.RawMessage(`{"user_id":"new"}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("published for insufficient data")
	}
}

func TestRefreshJob_Errors(t *testing.T) {
	ledger := workedLedger()
	ledger.errOn = "ad_spend"
	ledger.err = errors.New("down")
	uc := newUseCase(t, ledger, false, nil)
	job := NewRefreshJob(uc, nil, &fakeAlertPublisher{}, nil, 0)

	if err := job.Handle(context.Background(), json.RawMessage(`{"user_id":"u1"}`)); !errors.Is(err, ledger.err) {
		t.Fatalf("err = %v, want ledger error", err)
	}
	if err := job.Handle(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Fatalf("expected error for missing user_id")
	}
	if err := job.Handle(context.Background(), json.RawMessage(`{"user_id":"*"}`)); !errors.Is(err, models.ErrInvalidUserID) {
		t.Fatalf("err = %v, want invalid user id", err)
	}
	if err := job.Handle(context.Background(), json.RawMessage(`nope`)); err == nil {
		t.Fatalf("expected decode error")
	}

	pubErr := errors.New("broker down")
	job = NewRefreshJob(newUseCase(t, workedLedger(), false, nil), nil, &fakeAlertPublisher{err: pubErr}, nil, 0)
	if err := job.Handle(context.Background(), json.RawMessage(`{"user_id":"u1"}`)); !errors.Is(err, pubErr) {
		t.Fatalf("err = %v, want publish error", err)
	}
}

type fakePublisher struct {
	msgType string
	payload any
}

func (p *fakePublisher) Enqueue(_ context.Context, msgType string, payload any) error {
	p.msgType, p.payload = msgType, payload
	return nil
}

func TestQueueRefreshEnqueuer(t *testing.T) {
	p := &fakePublisher{}
	e := NewQueueRefreshEnqueuer(p)
	if err := e.EnqueueRefresh(context.Background(), "u7"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if p.msgType != RefreshJobType || p.payload.(RefreshPayload).UserID != "u7" {
		t.Fatalf("enqueued %s %+v", p.msgType, p.payload)
	}
	if err := e.EnqueueRefresh(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty user")
	}
}

type lockCall struct {
	op, key, owner string
	ttl            time.Duration
}

// recordingLocks wraps a MemoryCache and records lock traffic.
type recordingLocks struct {
	*cache.MemoryCache
	calls []lockCall
}

func (r *recordingLocks) TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	r.calls = append(r.calls, lockCall{op: "lock", key: key, owner: owner, ttl: ttl})
	return r.MemoryCache.TryLock(ctx, key, owner, ttl)
}

func (r *recordingLocks) Unlock(ctx context.Context, key, owner string) error {
	r.calls = append(r.calls, lockCall{op: "unlock", key: key, owner: owner})
	return r.MemoryCache.Unlock(ctx, key, owner)
}

func TestRefreshJob_LockOwnedPerRun(t *testing.T) {
	uc := newUseCase(t, workedLedger(), false, nil)
	mem := cache.NewMemoryCache()
	defer mem.Close()
	locks := &recordingLocks{MemoryCache: mem}
	job := NewRefreshJob(uc, locks, nil, nil, 90*time.Second)

	for i := 0; i < 2; i++ {
		if err := job.Handle(context.Background(), json.RawMessage(`{"user_id":"u1"}`)); err != nil {
			t.Fatalf("handle %d: %v", i, err)
		}
	}
	if len(locks.calls) != 4 {
		t.Fatalf("lock calls = %+v", locks.calls)
	}
	first, second := locks.calls[0], locks.calls[2]
	if first.ttl != 90*time.Second || first.key != "lock:refresh:u1" {
		t.Fatalf("lock call = %+v", first)
	}
	if first.owner == "" || first.owner == second.owner {
		t.Fatalf("owners not unique per run: %q %q", first.owner, second.owner)
	}
	if locks.calls[1].op != "unlock" || locks.calls[1].owner != first.owner {
		t.Fatalf("unlock used owner %q, locked with %q", locks.calls[1].owner, first.owner)
	}
}

func TestRefreshJob_DefaultLockTTL(t *testing.T) {
	job := NewRefreshJob(nil, nil, nil, nil, 0)
	if job.lockTTL != time.Minute {
		t.Fatalf("lock ttl = %v", job.lockTTL)
	}
}
