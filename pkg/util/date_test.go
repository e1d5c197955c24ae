package util

import (
	"testing"
	"time"
)

func TestMonthWindowCrossesYear(t *testing.T) {
	now := time.Date(2025, 2, 17, 13, 45, 0, 0, time.UTC)
	from, to := MonthWindow(now, 6, time.UTC)

	wantFrom := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !from.Equal(wantFrom) || !to.Equal(wantTo) {
		t.Fatalf("window = [%v, %v), want [%v, %v)", from, to, wantFrom, wantTo)
	}
	if n := MonthsBetween(from, to); n != 6 {
		t.Fatalf("months between = %d, want 6", n)
	}
}

func TestAddMonthsNormalises(t *testing.T) {
	start := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
	got := AddMonths(start, 3)
	if got.Year() != 2025 || got.Month() != time.February {
		t.Fatalf("unexpected month %v", got)
	}
	if MonthIndex(got) != 1 {
		t.Fatalf("month index = %d, want 1", MonthIndex(got))
	}
}
