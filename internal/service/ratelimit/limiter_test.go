package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterRefills(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(2, 1)
	l.now = func() time.Time { return clock }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("burst of capacity should pass")
	}
	if l.Allow("a") {
		t.Fatalf("third call should be limited")
	}
	if !l.Allow("b") {
		t.Fatalf("keys are independent")
	}

	clock = clock.Add(1500 * time.Millisecond)
	if !l.Allow("a") {
		t.Fatalf("token should refill after a second")
	}
	if l.Allow("a") {
		t.Fatalf("only one token refilled")
	}
}

func TestLimiterDropsIdleKeys(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 0.01)
	l.now = func() time.Time { return clock }

	l.Allow("idle")
	clock = clock.Add(time.Hour)
	l.Allow("fresh")
	if _, ok := l.m["idle"]; ok {
		t.Fatalf("idle key should be swept")
	}
}
