package cashflow

import (
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"CashPilot/internal/domain/models"
)

func TestBuildInsightsWorkedExample(t *testing.T) {
	history := bucketsFrom(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), workedExample)
	res := BuildInsights(history, AnalyzeTrend(history))
	if !res.IsComputed() {
		t.Fatalf("expected computed result, got %s", res.Status)
	}
	ins := res.Insights

	if ins.CurrentBalance != 80000 {
		t.Fatalf("current balance = %v", ins.CurrentBalance)
	}
	if !approx(ins.MonthlyBurnRate, 134000.0/3) {
		t.Fatalf("burn = %v, want 44666.67", ins.MonthlyBurnRate)
	}
	if !approx(ins.MonthlyRevenue, 58000) {
		t.Fatalf("revenue = %v, want 58000", ins.MonthlyRevenue)
	}
	if ins.RunwayMonths != 1 {
		t.Fatalf("runway = %d, want 1", ins.RunwayMonths)
	}
	// 50 base, +20 balance, +15 inflow growing, +10 revenue above burn
	if ins.HealthScore != 95 {
		t.Fatalf("health = %d, want 95", ins.HealthScore)
	}

	want := []models.Alert{
		{Severity: models.SeverityDanger, Message: msgLowBalanceDanger, Priority: 1},
		{Severity: models.SeverityDanger, Message: "Critical runway: 1 months.", Priority: 1},
		{Severity: models.SeverityWarning, Message: msgExpensesUp, Priority: 2},
	}
	if len(ins.Alerts) != len(want) {
		t.Fatalf("alerts = %+v", ins.Alerts)
	}
	for i := range want {
		if ins.Alerts[i] != want[i] {
			t.Fatalf("alert %d = %+v, want %+v", i, ins.Alerts[i], want[i])
		}
	}

	recs := strings.Join(ins.Recommendations, "\n")
	for _, r := range []string{recReviewExpenses, recSeasonReserve, recExtendRunway} {
		if !strings.Contains(recs, r) {
			t.Fatalf("missing recommendation %q", r)
		}
	}
	if strings.Contains(recs, recGrowRevenue) || strings.Contains(recs, recInvestGrowth) {
		t.Fatalf("unexpected recommendations: %v", ins.Recommendations)
	}
}

func TestBuildInsightsInsufficientData(t *testing.T) {
	history := bucketsFrom(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), [][2]float64{{0, 0}, {0, 0}, {0, 0}, {0, 0}})
	res := BuildInsights(history, AnalyzeTrend(history))
	if res.Status != models.InsightsInsufficientData || res.Insights != nil {
		t.Fatalf("expected insufficient data, got %+v", res)
	}
	if res := BuildInsights(nil, models.TrendAnalysis{}); res.IsComputed() {
		t.Fatalf("nil history must not be computed")
	}
}

func TestTrailingRatesShortHistory(t *testing.T) {
	history := bucketsFrom(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), [][2]float64{{100, 40}, {300, 60}})
	burn, revenue := TrailingRates(history, RateWindow)
	if burn != 50 || revenue != 200 {
		t.Fatalf("burn/revenue = %v/%v, want 50/200", burn, revenue)
	}
	if burn, revenue := TrailingRates(nil, RateWindow); burn != 0 || revenue != 0 {
		t.Fatalf("empty history should yield zeros")
	}
}

func TestRunwayMonths(t *testing.T) {
	tests := []struct {
		balance, burn float64
		want          int
	}{
		{balance: 1000, burn: 0, want: 12},
		{balance: -500, burn: 0, want: 12},
		{balance: 1000, burn: -10, want: 12},
		{balance: -1000, burn: 100, want: 0},
		{balance: 350, burn: 100, want: 3},
		{balance: 99, burn: 100, want: 0},
		{balance: 1e9, burn: 100, want: 12},
	}
	for _, tc := range tests {
		if got := RunwayMonths(tc.balance, tc.burn); got != tc.want {
			t.Fatalf("RunwayMonths(%v, %v) = %d, want %d", tc.balance, tc.burn, got, tc.want)
		}
	}
}

func TestHealthScoreClampsAtHundred(t *testing.T) {
	analysis := models.TrendAnalysis{
		InflowTrend:  models.TrendResult{Slope: 10, IsGrowing: true},
		OutflowTrend: models.TrendResult{Slope: -5},
	}
	if got := HealthScore(100000, 1000, 5000, 12, analysis); got != 100 {
		t.Fatalf("score = %d, want 100", got)
	}
	// 50 + 10 (outflow not growing) only
	if got := HealthScore(-1, 1000, 10, 0, models.TrendAnalysis{}); got != 60 {
		t.Fatalf("score = %d, want 60", got)
	}
}

func TestAlertsRevenueDownAndWarningBalance(t *testing.T) {
	analysis := models.TrendAnalysis{InflowTrend: models.TrendResult{Slope: -120}}
	alerts := Alerts(4000, 1000, 4, analysis)
	if len(alerts) != 2 {
		t.Fatalf("alerts = %+v", alerts)
	}
	if alerts[0].Message != msgLowBalanceWarning || alerts[0].Severity != models.SeverityWarning {
		t.Fatalf("first alert = %+v", alerts[0])
	}
	if alerts[1].Message != msgRevenueDown || alerts[1].Priority != 2 {
		t.Fatalf("second alert = %+v", alerts[1])
	}
}

func TestInsightsBoundsHoldForArbitraryHistories(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 42))
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for iter := 0; iter < 500; iter++ {
		n := 1 + rng.IntN(24)
		pairs := make([][2]float64, n)
		for i := range pairs {
			pairs[i] = [2]float64{rng.Float64() * 100000, rng.Float64() * 120000}
		}
		history := bucketsFrom(start, pairs)
		res := BuildInsights(history, AnalyzeTrend(history))
		if !res.IsComputed() {
			continue
		}
		ins := res.Insights
		if ins.HealthScore < 0 || ins.HealthScore > 100 {
			t.Fatalf("health score out of bounds: %d", ins.HealthScore)
		}
		if ins.RunwayMonths < 0 || ins.RunwayMonths > RunwayCap {
			t.Fatalf("runway out of bounds: %d", ins.RunwayMonths)
		}
		if ins.MonthlyBurnRate <= 0 && ins.RunwayMonths != RunwayCap {
			t.Fatalf("zero burn must give full runway")
		}
		for i := 1; i < len(ins.Alerts); i++ {
			if ins.Alerts[i-1].Priority > ins.Alerts[i].Priority {
				t.Fatalf("alerts not sorted: %+v", ins.Alerts)
			}
		}
	}
}

func TestRecommendationsInvestWhenCashRich(t *testing.T) {
	analysis := models.TrendAnalysis{InflowTrend: models.TrendResult{Slope: 1, IsGrowing: true}}
	recs := Recommendations(130000, 10000, 12, analysis)
	if len(recs) != 1 || recs[0] != recInvestGrowth {
		t.Fatalf("recs = %v", recs)
	}
}
