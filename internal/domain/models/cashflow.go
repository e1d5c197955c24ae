package models

import "time"

// MonthlyBucket is one calendar month of aggregated cash movement.
// Date is the first instant of the month.
type MonthlyBucket struct {
	Date              time.Time `json:"date"`
	Inflow            float64   `json:"inflow"`
	Outflow           float64   `json:"outflow"`
	Balance           float64   `json:"balance"`
	CumulativeBalance float64   `json:"cumulative_balance"`
}

// TrendResult is an ordinary least squares fit of a monthly series against its index.
type TrendResult struct {
	Slope       float64 `json:"slope"`
	Intercept   float64 `json:"intercept"`
	Correlation float64 `json:"correlation"`
	IsGrowing   bool    `json:"is_growing"`
}

// SeasonalityResult lists calendar months (0 = January) whose inflow deviates from the mean.
type SeasonalityResult struct {
	HasSeasonality bool  `json:"has_seasonality"`
	PeakMonths     []int `json:"peak_months"`
	LowMonths      []int `json:"low_months"`
}

// IsPeak reports whether month (0-11) is a peak month.
func (s SeasonalityResult) IsPeak(month int) bool { return containsMonth(s.PeakMonths, month) }

// IsLow reports whether month (0-11) is a low month.
func (s SeasonalityResult) IsLow(month int) bool { return containsMonth(s.LowMonths, month) }

func containsMonth(months []int, m int) bool {
	for _, v := range months {
		if v == m {
			return true
		}
	}
	return false
}

type TrendAnalysis struct {
	InflowTrend  TrendResult       `json:"inflow_trend"`
	OutflowTrend TrendResult       `json:"outflow_trend"`
	Seasonality  SeasonalityResult `json:"seasonality"`
}

type Scenario string

const (
	ScenarioPessimistic Scenario = "pessimistic"
	ScenarioRealistic   Scenario = "realistic"
	ScenarioOptimistic  Scenario = "optimistic"
)

type ProjectionSummary struct {
	TotalInflow  float64 `json:"total_inflow"`
	TotalOutflow float64 `json:"total_outflow"`
	FinalBalance float64 `json:"final_balance"`
	RunwayMonths int     `json:"runway_months"`
}

type ScenarioProjection struct {
	Scenario    Scenario          `json:"scenario"`
	Multiplier  float64           `json:"multiplier"`
	Projections []MonthlyBucket   `json:"projections"`
	Summary     ProjectionSummary `json:"summary"`
}

// Baseline tells where a projection set started from.
type Baseline string

const (
	BaselineHistorical Baseline = "historical"
	BaselineSeed       Baseline = "seed"
)

// ProjectionSet holds the three scenarios in ascending multiplier order.
type ProjectionSet struct {
	Baseline  Baseline             `json:"baseline"`
	Scenarios []ScenarioProjection `json:"scenarios"`
}

// Find returns the projection for a scenario.
func (p ProjectionSet) Find(s Scenario) (ScenarioProjection, bool) {
	for _, sp := range p.Scenarios {
		if sp.Scenario == s {
			return sp, true
		}
	}
	return ScenarioProjection{}, false
}

type Severity string

const (
	SeverityDanger  Severity = "danger"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Alert priority: lower is more urgent.
type Alert struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Priority int      `json:"priority"`
}

type Insights struct {
	CurrentBalance  float64  `json:"current_balance"`
	MonthlyBurnRate float64  `json:"monthly_burn_rate"`
	MonthlyRevenue  float64  `json:"monthly_revenue"`
	RunwayMonths    int      `json:"runway_months"`
	HealthScore     int      `json:"health_score"`
	Alerts          []Alert  `json:"alerts"`
	Recommendations []string `json:"recommendations"`
}

type InsightsStatus string

const (
	InsightsComputed         InsightsStatus = "computed"
	InsightsInsufficientData InsightsStatus = "insufficient_data"
)

// InsightsResult is either Computed with Insights set, or InsufficientData with Insights nil.
type InsightsResult struct {
	Status   InsightsStatus `json:"status"`
	Insights *Insights      `json:"insights,omitempty"`
}

func (r InsightsResult) IsComputed() bool {
	return r.Status == InsightsComputed && r.Insights != nil
}

// Dashboard bundles every view of one user's cash flow computed from a single history fetch.
type Dashboard struct {
	UserID      string          `json:"user_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	History     []MonthlyBucket `json:"history"`
	Trend       TrendAnalysis   `json:"trend"`
	Projections ProjectionSet   `json:"projections"`
	Insights    InsightsResult  `json:"insights"`
}
