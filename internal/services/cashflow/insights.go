package cashflow

import (
	"fmt"
	"math"
	"sort"

	"CashPilot/internal/domain/models"
)

const (
	msgLowBalanceDanger  = "Low balance: less than 2 months of runway at the current burn rate."
	msgLowBalanceWarning = "Low balance: less than 6 months of runway at the current burn rate."
	msgExpensesUp        = "Expenses are trending up."
	msgRevenueDown       = "Revenue is trending down."
	msgCriticalRunway    = "Critical runway: %d months."

	recGrowRevenue    = "Revenue is not growing. Test new offers, pricing or channels to lift monthly sales."
	recReviewExpenses = "Expenses keep rising. Review recurring costs and ad spend for items that no longer pay back."
	recSeasonReserve  = "Sales are seasonal. Set aside part of peak-month revenue to cover the low months."
	recExtendRunway   = "Runway is six months or less. Prioritise revenue and cut non-essential spending."
	recInvestGrowth   = "Cash covers more than a year of spending. Consider investing the surplus in growth."
)

// BuildInsights derives insights from a history and its trend analysis.
// A history without any activity yields InsufficientData.
func BuildInsights(history []models.MonthlyBucket, analysis models.TrendAnalysis) models.InsightsResult {
	if !HasActivity(history) {
		return models.InsightsResult{Status: models.InsightsInsufficientData}
	}
	ins := ComputeInsights(history, analysis)
	return models.InsightsResult{Status: models.InsightsComputed, Insights: &ins}
}

func ComputeInsights(history []models.MonthlyBucket, analysis models.TrendAnalysis) models.Insights {
	var balance float64
	if len(history) > 0 {
		balance = history[len(history)-1].CumulativeBalance
	}
	burn, revenue := TrailingRates(history, RateWindow)
	runway := RunwayMonths(balance, burn)

	return models.Insights{
		CurrentBalance:  balance,
		MonthlyBurnRate: burn,
		MonthlyRevenue:  revenue,
		RunwayMonths:    runway,
		HealthScore:     HealthScore(balance, burn, revenue, runway, analysis),
		Alerts:          Alerts(balance, burn, runway, analysis),
		Recommendations: Recommendations(balance, burn, runway, analysis),
	}
}

// TrailingRates averages outflow (burn) and inflow (revenue) over the last `window` buckets.
func TrailingRates(history []models.MonthlyBucket, window int) (burn, revenue float64) {
	if len(history) == 0 || window <= 0 {
		return 0, 0
	}
	if window > len(history) {
		window = len(history)
	}
	for _, b := range history[len(history)-window:] {
		burn += b.Outflow
		revenue += b.Inflow
	}
	n := float64(window)
	return burn / n, revenue / n
}

// RunwayMonths is how many whole months balance covers at burn, within [0, RunwayCap].
func RunwayMonths(balance, burn float64) int {
	if burn <= 0 {
		return RunwayCap
	}
	months := math.Floor(balance / burn)
	switch {
	case months <= 0 || math.IsNaN(months):
		return 0
	case months >= RunwayCap:
		return RunwayCap
	default:
		return int(months)
	}
}

func HealthScore(balance, burn, revenue float64, runway int, analysis models.TrendAnalysis) int {
	score := HealthBaseScore
	if balance > 0 {
		score += HealthPositiveBalance
	}
	if analysis.InflowTrend.IsGrowing {
		score += HealthInflowGrowing
	}
	if !analysis.OutflowTrend.IsGrowing {
		score += HealthOutflowFlat
	}
	switch {
	case runway >= LongRunwayMonths:
		score += HealthLongRunway
	case runway >= MediumRunwayMonths:
		score += HealthMediumRunway
	}
	if revenue > burn {
		score += HealthProfitable
	}
	return max(0, min(100, score))
}

// Alerts are sorted by priority, most urgent first. Equal priorities keep rule order.
func Alerts(balance, burn float64, runway int, analysis models.TrendAnalysis) []models.Alert {
	alerts := make([]models.Alert, 0, 4)
	switch {
	case balance < LowBalanceDangerMonths*burn:
		alerts = append(alerts, models.Alert{Severity: models.SeverityDanger, Message: msgLowBalanceDanger, Priority: 1})
	case balance < LowBalanceWarningMonths*burn:
		alerts = append(alerts, models.Alert{Severity: models.SeverityWarning, Message: msgLowBalanceWarning, Priority: 2})
	}
	if analysis.OutflowTrend.IsGrowing {
		alerts = append(alerts, models.Alert{Severity: models.SeverityWarning, Message: msgExpensesUp, Priority: 2})
	}
	if !analysis.InflowTrend.IsGrowing && analysis.InflowTrend.Slope < 0 {
		alerts = append(alerts, models.Alert{Severity: models.SeverityWarning, Message: msgRevenueDown, Priority: 2})
	}
	if runway <= CriticalRunwayMonths {
		alerts = append(alerts, models.Alert{
			Severity: models.SeverityDanger,
			Message:  fmt.Sprintf(msgCriticalRunway, runway),
			Priority: 1,
		})
	}
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].Priority < alerts[j].Priority })
	return alerts
}

func Recommendations(balance, burn float64, runway int, analysis models.TrendAnalysis) []string {
	recs := make([]string, 0, 5)
	if !analysis.InflowTrend.IsGrowing {
		recs = append(recs, recGrowRevenue)
	}
	if analysis.OutflowTrend.IsGrowing {
		recs = append(recs, recReviewExpenses)
	}
	if analysis.Seasonality.HasSeasonality {
		recs = append(recs, recSeasonReserve)
	}
	if runway <= CutbackRunwayMonths {
		recs = append(recs, recExtendRunway)
	}
	if balance > InvestBalanceMonths*burn {
		recs = append(recs, recInvestGrowth)
	}
	return recs
}
