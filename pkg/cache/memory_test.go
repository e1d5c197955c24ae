package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type payload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestMemoryCacheRoundTripTyped(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", payload{Name: "a", Value: 1.5}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got payload
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "a" || got.Value != 1.5 {
		t.Fatalf("got %+v", got)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "k", 1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	var v int
	if err := mc.Get(ctx, "k", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	for _, k := range []string{"cashflow:u1:insights", "cashflow:u1:history:12", "cashflow:u2:insights"} {
		_ = mc.Set(ctx, k, k, time.Minute)
	}
	if err := mc.DeleteByPattern(ctx, "cashflow:u1:*"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mc.Len() != 1 {
		t.Fatalf("len = %d, want 1", mc.Len())
	}
	var s string
	if err := mc.Get(ctx, "cashflow:u2:insights", &s); err != nil {
		t.Fatalf("u2 entry removed: %v", err)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", 1, time.Minute)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "b", 2, time.Minute)
	time.Sleep(time.Millisecond)
	var v int
	_ = mc.Get(ctx, "a", &v) // a is now more recent than b
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "c", 3, time.Minute)

	if err := mc.Get(ctx, "b", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected b evicted, got %v", err)
	}
	if err := mc.Get(ctx, "a", &v); err != nil || v != 1 {
		t.Fatalf("a should survive: %v %d", err, v)
	}
}

func TestMemoryCacheTryLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	ok, _ := mc.TryLock(ctx, "lock", "w1", time.Minute)
	if !ok {
		t.Fatalf("first lock should succeed")
	}
	if ok, _ := mc.TryLock(ctx, "lock", "w2", time.Minute); ok {
		t.Fatalf("second lock should fail")
	}
	if err := mc.Unlock(ctx, "lock", "w1"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if ok, _ := mc.TryLock(ctx, "lock", "w2", time.Minute); !ok {
		t.Fatalf("lock after unlock should succeed")
	}
}

func TestMemoryCacheUnlockKeepsNewOwner(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if ok, _ := mc.TryLock(ctx, "lock", "slow", 20*time.Millisecond); !ok {
		t.Fatalf("first lock should succeed")
	}
	time.Sleep(40 * time.Millisecond)
	if ok, _ := mc.TryLock(ctx, "lock", "fast", time.Minute); !ok {
		t.Fatalf("expired lock should be taken over")
	}

	// the first holder finishes late and must not release the new holder's lock
	if err := mc.Unlock(ctx, "lock", "slow"); !errors.Is(err, ErrLockNotHeld) {
		t.Fatalf("stale unlock err = %v, want ErrLockNotHeld", err)
	}
	if ok, _ := mc.TryLock(ctx, "lock", "third", time.Minute); ok {
		t.Fatalf("lock was released by a stale owner")
	}
	if err := mc.Unlock(ctx, "lock", "fast"); err != nil {
		t.Fatalf("owner unlock: %v", err)
	}
	if err := mc.Unlock(ctx, "missing", "fast"); !errors.Is(err, ErrLockNotHeld) {
		t.Fatalf("unlock of absent key err = %v", err)
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern, key string
		want         bool
	}{
		{"a:*", "a:b:c", true},
		{"a:*", "b:a", false},
		{"*:insights", "cashflow:u1:insights", true},
		{"cashflow:*:history:*", "cashflow:u1:history:12", true},
		{"cashflow:*:history:*", "cashflow:u1:insights", false},
		{"exact", "exact", true},
		{"exact", "exactly", false},
	}
	for _, tc := range tests {
		if got := matchPattern(tc.pattern, tc.key); got != tc.want {
			t.Fatalf("matchPattern(%q, %q) = %v, want %v", tc.pattern, tc.key, got, tc.want)
		}
	}
}

func TestGetOrLoadCachesResult(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (payload, error) {
		calls++
		return payload{Name: "x", Value: 2}, nil
	}
	for i := 0; i < 3; i++ {
		v, hit, err := GetOrLoad(ctx, mc, "key", time.Minute, load, nil)
		if err != nil || v.Name != "x" {
			t.Fatalf("iteration %d: %v %+v", i, err, v)
		}
		if hit != (i > 0) {
			t.Fatalf("iteration %d: hit = %v", i, hit)
		}
	}
	if calls != 1 {
		t.Fatalf("load called %d times", calls)
	}
}

func TestGetOrLoadPropagatesLoadError(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	boom := errors.New("boom")
	_, _, err := GetOrLoad(context.Background(), mc, "key", time.Minute, func(context.Context) (int, error) {
		return 0, boom
	}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if mc.Len() != 0 {
		t.Fatalf("failed load must not be cached")
	}
}
