package usecase

import (
	"context"
	"errors"
	"testing"

	"CashPilot/internal/domain/models"
)

type fakeInvalidator struct {
	users []string
	err   error
}

func (f *fakeInvalidator) InvalidateUser(_ context.Context, userID string) error {
	f.users = append(f.users, userID)
	return f.err
}

func TestLedgerEventsHandler(t *testing.T) {
	inv := &fakeInvalidator{}
	jobs := &fakeEnqueuer{}
	h := NewLedgerEventsHandler("ledger.events", inv, jobs, nil)

	if h.Topic() != "ledger.events" {
		t.Fatalf("topic = %s", h.Topic())
	}
	err := h.Handle(context.Background(), []byte(`{"user_id":"u1","kind":"sale","occurred_at":"2024-06-01T10:00:00Z"}`))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(inv.users) != 1 || inv.users[0] != "u1" {
		t.Fatalf("invalidated %v", inv.users)
	}
	if len(jobs.users) != 1 || jobs.users[0] != "u1" {
		t.Fatalf("enqueued %v", jobs.users)
	}
}

func TestLedgerEventsHandler_RejectsBadEvents(t *testing.T) {
	h := NewLedgerEventsHandler("t", &fakeInvalidator{}, &fakeEnqueuer{}, nil)
	cases := []string{
		`not json`,
		`{"kind":"sale"}`,
		`{"user_id":"u1","kind":"refund"}`,
	}
	for _, c := range cases {
		if err := h.Handle(context.Background(), []byte(c)); err == nil {
			t.Fatalf("expected error for %s", c)
		}
	}
}

func TestLedgerEventsHandler_RejectsPatternUserIDs(t *testing.T) {
	inv := &fakeInvalidator{}
	jobs := &fakeEnqueuer{}
	h := NewLedgerEventsHandler("t", inv, jobs, nil)
	for _, id := range []string{"*", "a:b", "a?", "[ab]"} {
		ev := `{"user_id":"` + id + `","kind":"sale"}`
		if err := h.Handle(context.Background(), []byte(ev)); !errors.Is(err, models.ErrInvalidUserID) {
			t.Fatalf("%s: err = %v", ev, err)
		}
	}
	if len(inv.users) != 0 || len(jobs.users) != 0 {
		t.Fatalf("rejected events reached cache %v or queue %v", inv.users, jobs.users)
	}
}

func TestLedgerEventsHandler_CacheErrorIsNotFatal(t *testing.T) {
	inv := &fakeInvalidator{err: errors.New("redis down")}
	jobs := &fakeEnqueuer{}
	h := NewLedgerEventsHandler("t", inv, jobs, nil)
	if err := h.Handle(context.Background(), []byte(`{"user_id":"u1","kind":"expense"}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(jobs.users) != 1 {
		t.Fatalf("refresh not enqueued")
	}

	jobs.err = errors.New("queue down")
	if err := h.Handle(context.Background(), []byte(`{"user_id":"u1","kind":"ad_spend"}`)); !errors.Is(err, jobs.err) {
		t.Fatalf("err = %v, want enqueue error", err)
	}
}
