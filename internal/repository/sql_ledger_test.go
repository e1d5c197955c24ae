package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newSQLiteLedger(t *testing.T) *SQLLedger {
	t.Helper()
	d, err := DialectFor("sqlite")
	if err != nil {
		t.Fatalf("dialect: %v", err)
	}
	db, err := sql.Open(d.DriverName, filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	l := NewSQLLedger(db, d)
	l.SetQueryTimeout(5 * time.Second)
	if err := l.InitSchema(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	// second run must be a no-op
	if err := l.InitSchema(context.Background()); err != nil {
		t.Fatalf("init schema twice: %v", err)
	}
	return l
}

func mustInsert(t *testing.T, l *SQLLedger, s Stream, user, amount string, at time.Time, status string) {
	t.Helper()
	if err := l.Insert(context.Background(), s, user, decimal.RequireFromString(amount), at, status); err != nil {
		t.Fatalf("insert %s: %v", s, err)
	}
}

func TestSQLLedger_FetchSalesApprovedOnly(t *testing.T) {
	l := newSQLiteLedger(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	mustInsert(t, l, StreamSales, "u1", "100.25", at, "approved")
	mustInsert(t, l, StreamSales, "u1", "999", at, "pending")
	mustInsert(t, l, StreamSales, "u2", "50", at, "approved")

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	got, err := l.FetchSales(ctx, "u1", from, to)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 approved sale, got %d", len(got))
	}
	if !got[0].Amount.Equal(decimal.RequireFromString("100.25")) {
		t.Fatalf("amount = %s", got[0].Amount)
	}
	if !got[0].Date.Equal(at) {
		t.Fatalf("date = %s, want %s", got[0].Date, at)
	}
}

func TestSQLLedger_WindowIsHalfOpen(t *testing.T) {
	l := newSQLiteLedger(t)
	ctx := context.Background()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	mustInsert(t, l, StreamExpenses, "u1", "10", from, "")
	mustInsert(t, l, StreamExpenses, "u1", "20", to.Add(-time.Millisecond), "")
	mustInsert(t, l, StreamExpenses, "u1", "30", to, "")
	mustInsert(t, l, StreamExpenses, "u1", "40", from.Add(-time.Millisecond), "")

	got, err := l.FetchExpenses(ctx, "u1", from, to)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records in window, got %d", len(got))
	}
	if !got[0].Date.Before(got[1].Date) {
		t.Fatalf("records not ordered by date: %v", got)
	}
}

func TestSQLLedger_AdSpendAndEmpty(t *testing.T) {
	l := newSQLiteLedger(t)
	ctx := context.Background()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	got, err := l.FetchAdSpend(ctx, "nobody", from, to)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no records, got %d", len(got))
	}

	mustInsert(t, l, StreamAdSpend, "u1", "75.5", from.AddDate(0, 2, 3), "")
	got, err = l.FetchAdSpend(ctx, "u1", from, to)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 1 || got[0].Amount.InexactFloat64() != 75.5 {
		t.Fatalf("unexpected ad spend: %+v", got)
	}
}

func TestSQLLedger_ActiveUsers(t *testing.T) {
	l := newSQLiteLedger(t)
	ctx := context.Background()
	old := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mustInsert(t, l, StreamSales, "zed", "1", recent, "")
	mustInsert(t, l, StreamExpenses, "amy", "1", recent, "")
	mustInsert(t, l, StreamAdSpend, "amy", "1", recent, "")
	mustInsert(t, l, StreamExpenses, "old", "1", old, "")

	users, err := l.ActiveUsers(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("active users: %v", err)
	}
	if strings.Join(users, ",") != "amy,zed" {
		t.Fatalf("users = %v", users)
	}
}

func TestSQLLedger_InsertUnknownStream(t *testing.T) {
	l := newSQLiteLedger(t)
	err := l.Insert(context.Background(), Stream("refunds"), "u1", decimal.NewFromInt(1), time.Now(), "")
	if err == nil {
		t.Fatalf("expected error for unknown stream")
	}
}

func TestDialectFor(t *testing.T) {
	for _, name := range []string{"clickhouse", "postgres", "mysql", "sqlite"} {
		d, err := DialectFor(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if d.Name != name || len(d.schema) == 0 {
			t.Fatalf("%s: incomplete dialect %+v", name, d.Name)
		}
	}
	if _, err := DialectFor("oracle"); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
	pg, _ := DialectFor("postgres")
	if pg.ph(3) != "$3" {
		t.Fatalf("postgres placeholder = %s", pg.ph(3))
	}
}

func TestNormalizeDSN(t *testing.T) {
	out, err := NormalizeDSN("mysql", "user:pw@tcp(localhost:3306)/ledger")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !strings.Contains(out, "parseTime=true") {
		t.Fatalf("parseTime not set: %s", out)
	}
	same, err := NormalizeDSN("postgres", "postgres://x")
	if err != nil || same != "postgres://x" {
		t.Fatalf("postgres dsn changed: %q %v", same, err)
	}
	if _, err := NormalizeDSN("mysql", "::bad"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFlexTimeScan(t *testing.T) {
	want := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	cases := []any{
		want,
		want.Unix(),
		want.Format(sqliteTimeLayout),
		[]byte(want.Format(time.RFC3339)),
	}
	for _, src := range cases {
		var f flexTime
		if err := f.Scan(src); err != nil {
			t.Fatalf("scan %T: %v", src, err)
		}
		if !f.Equal(want) {
			t.Fatalf("scan %T = %s", src, f.Time)
		}
	}
	var f flexTime
	if err := f.Scan(nil); err == nil {
		t.Fatalf("expected error for nil")
	}
}
