// Package cashflow turns monthly ledger totals into trends, scenario projections and insights.
// Everything here is pure and safe for concurrent use.
package cashflow

import "errors"

var (
	ErrInvalidMonths  = errors.New("months must be positive")
	ErrInvalidPeriods = errors.New("periods must be positive")
)

// Trend and seasonality.
const (
	MinTrendPoints            = 3
	MinSeasonalityPoints      = 6
	SeasonalityThresholdRatio = 0.5
	PeakSeasonFactor          = 1.2
	LowSeasonFactor           = 0.8
)

// Scenario multipliers.
const (
	PessimisticMultiplier = 0.8
	RealisticMultiplier   = 1.0
	OptimisticMultiplier  = 1.3
)

// RunwayCap is the largest runway the insights report; anything longer means healthy beyond a year.
const RunwayCap = 12

// ProjectionRunwayHorizon bounds how many projected periods are scanned for depletion.
// It is also the runway reported when none of them depletes cash. Kept separate from RunwayCap
// even though both are 12 today.
const ProjectionRunwayHorizon = 12

// Seed baseline used for projections when a user has no ledger activity yet.
const (
	SeedBaselineInflow  = 5000.0
	SeedBaselineOutflow = 4000.0
)

// Insights rubric.
const (
	RateWindow = 3

	HealthBaseScore       = 50
	HealthPositiveBalance = 20
	HealthInflowGrowing   = 15
	HealthOutflowFlat     = 10
	HealthLongRunway      = 15
	HealthMediumRunway    = 10
	HealthProfitable      = 10

	LongRunwayMonths     = 6
	MediumRunwayMonths   = 3
	CriticalRunwayMonths = 3

	LowBalanceDangerMonths  = 2
	LowBalanceWarningMonths = 6
	CutbackRunwayMonths     = 6
	InvestBalanceMonths     = 12
)
