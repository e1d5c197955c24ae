package cashflow

import (
	"fmt"
	"math"
	"time"

	"CashPilot/internal/domain/models"
	"CashPilot/pkg/util"
)

type ScenarioSpec struct {
	Scenario   models.Scenario
	Multiplier float64
}

// Scenarios in ascending multiplier order. Callers rely on this order.
var Scenarios = []ScenarioSpec{
	{Scenario: models.ScenarioPessimistic, Multiplier: PessimisticMultiplier},
	{Scenario: models.ScenarioRealistic, Multiplier: RealisticMultiplier},
	{Scenario: models.ScenarioOptimistic, Multiplier: OptimisticMultiplier},
}

type baseline struct {
	kind         models.Baseline
	start        time.Time
	inflow       float64
	outflow      float64
	cumulative   float64
	inflowSlope  float64
	outflowSlope float64
	season       models.SeasonalityResult
}

// Project extrapolates `periods` future months for every scenario.
// History with no activity falls back to the seed baseline starting after the month of now.
func Project(history []models.MonthlyBucket, analysis models.TrendAnalysis, periods int, now time.Time, loc *time.Location) (models.ProjectionSet, error) {
	if periods <= 0 {
		return models.ProjectionSet{}, fmt.Errorf("%w: got %d", ErrInvalidPeriods, periods)
	}

	base := newBaseline(history, analysis, now, loc)
	set := models.ProjectionSet{
		Baseline:  base.kind,
		Scenarios: make([]models.ScenarioProjection, 0, len(Scenarios)),
	}
	for _, spec := range Scenarios {
		set.Scenarios = append(set.Scenarios, projectScenario(base, spec, periods))
	}
	return set, nil
}

func newBaseline(history []models.MonthlyBucket, analysis models.TrendAnalysis, now time.Time, loc *time.Location) baseline {
	if !HasActivity(history) {
		return baseline{
			kind:    models.BaselineSeed,
			start:   util.MonthStart(now, loc),
			inflow:  SeedBaselineInflow,
			outflow: SeedBaselineOutflow,
			season:  noSeasonality(),
		}
	}
	last := history[len(history)-1]
	return baseline{
		kind:         models.BaselineHistorical,
		start:        last.Date,
		inflow:       last.Inflow,
		outflow:      last.Outflow,
		cumulative:   last.CumulativeBalance,
		inflowSlope:  analysis.InflowTrend.Slope,
		outflowSlope: analysis.OutflowTrend.Slope,
		season:       analysis.Seasonality,
	}
}

func projectScenario(base baseline, spec ScenarioSpec, periods int) models.ScenarioProjection {
	out := models.ScenarioProjection{
		Scenario:    spec.Scenario,
		Multiplier:  spec.Multiplier,
		Projections: make([]models.MonthlyBucket, 0, periods),
	}

	cumulative := base.cumulative
	for i := 1; i <= periods; i++ {
		month := util.AddMonths(base.start, i)
		step := float64(i)

		inflow := math.Max(0, (base.inflow+base.inflowSlope*step)*spec.Multiplier*SeasonalityFactor(base.season, util.MonthIndex(month)))
		outflow := math.Max(0, (base.outflow+base.outflowSlope*step)*spec.Multiplier)
		balance := inflow - outflow
		cumulative += balance

		out.Projections = append(out.Projections, models.MonthlyBucket{
			Date:              month,
			Inflow:            inflow,
			Outflow:           outflow,
			Balance:           balance,
			CumulativeBalance: cumulative,
		})
		out.Summary.TotalInflow += inflow
		out.Summary.TotalOutflow += outflow
	}
	out.Summary.FinalBalance = cumulative
	out.Summary.RunwayMonths = projectedRunway(out.Projections)
	return out
}

// projectedRunway is the 1-based period where cumulative cash first reaches zero.
func projectedRunway(projections []models.MonthlyBucket) int {
	for i := 0; i < len(projections) && i < ProjectionRunwayHorizon; i++ {
		if projections[i].CumulativeBalance <= 0 {
			return i + 1
		}
	}
	return ProjectionRunwayHorizon
}
