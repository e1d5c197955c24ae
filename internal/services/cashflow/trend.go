package cashflow

import (
	"math"

	"CashPilot/internal/domain/models"
	"CashPilot/pkg/util"
)

// varianceEpsilon treats a relative inflow spread below this as no seasonality.
const varianceEpsilon = 1e-12

// AnalyzeTrend fits inflow and outflow trends and classifies seasonal months.
// With fewer than MinTrendPoints buckets everything is neutral.
func AnalyzeTrend(buckets []models.MonthlyBucket) models.TrendAnalysis {
	if len(buckets) < MinTrendPoints {
		return models.TrendAnalysis{Seasonality: noSeasonality()}
	}
	inflows := make([]float64, len(buckets))
	outflows := make([]float64, len(buckets))
	for i, b := range buckets {
		inflows[i] = b.Inflow
		outflows[i] = b.Outflow
	}
	return models.TrendAnalysis{
		InflowTrend:  LinearTrend(inflows),
		OutflowTrend: LinearTrend(outflows),
		Seasonality:  DetectSeasonality(buckets),
	}
}

// LinearTrend regresses ys on their index 0..n-1 by ordinary least squares.
// Sums are taken around the means so large, nearly flat series keep their precision.
// Correlation is Pearson's r, 0 when either variance is zero.
func LinearTrend(ys []float64) models.TrendResult {
	n := len(ys)
	if n < MinTrendPoints {
		return models.TrendResult{}
	}

	if constant(ys) {
		return models.TrendResult{Intercept: ys[0]}
	}

	fn := float64(n)
	meanX := (fn - 1) / 2
	meanY := 0.0
	for _, y := range ys {
		meanY += y
	}
	meanY /= fn

	var sxx, syy, sxy float64
	for i, y := range ys {
		dx := float64(i) - meanX
		dy := y - meanY
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}

	slope := sxy / sxx
	var corr float64
	if den := math.Sqrt(sxx * syy); den > 0 && !math.IsInf(den, 0) && !math.IsNaN(den) {
		corr = math.Max(-1, math.Min(1, sxy/den))
	}

	return models.TrendResult{
		Slope:       slope,
		Intercept:   meanY - slope*meanX,
		Correlation: corr,
		IsGrowing:   slope > 0,
	}
}

// DetectSeasonality compares each calendar month's average inflow with the series mean.
// Months more than SeasonalityThresholdRatio standard deviations above the mean are peaks,
// as far below are lows. Needs MinSeasonalityPoints buckets.
func DetectSeasonality(buckets []models.MonthlyBucket) models.SeasonalityResult {
	res := noSeasonality()
	if len(buckets) < MinSeasonalityPoints {
		return res
	}

	values := make([]float64, len(buckets))
	for i, b := range buckets {
		values[i] = b.Inflow
	}
	mean, std := meanStdDev(values)
	if std <= varianceEpsilon*math.Max(1, math.Abs(mean)) {
		return res
	}
	threshold := SeasonalityThresholdRatio * std

	var sums [12]float64
	var counts [12]int
	for _, b := range buckets {
		m := util.MonthIndex(b.Date)
		sums[m] += b.Inflow
		counts[m]++
	}
	for m := 0; m < 12; m++ {
		if counts[m] == 0 {
			continue
		}
		dev := sums[m]/float64(counts[m]) - mean
		switch {
		case dev > threshold:
			res.PeakMonths = append(res.PeakMonths, m)
		case dev < -threshold:
			res.LowMonths = append(res.LowMonths, m)
		}
	}
	res.HasSeasonality = len(res.PeakMonths) > 0 || len(res.LowMonths) > 0
	return res
}

// SeasonalityFactor is the inflow multiplier for a calendar month (0-11).
func SeasonalityFactor(s models.SeasonalityResult, month int) float64 {
	switch {
	case s.IsPeak(month):
		return PeakSeasonFactor
	case s.IsLow(month):
		return LowSeasonFactor
	default:
		return 1.0
	}
}

// meanStdDev returns the mean and population standard deviation.
func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(values)))
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func noSeasonality() models.SeasonalityResult {
	return models.SeasonalityResult{PeakMonths: []int{}, LowMonths: []int{}}
}
