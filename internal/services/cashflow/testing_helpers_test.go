package cashflow

import (
	"math"
	"time"

	"CashPilot/internal/domain/models"
	"CashPilot/pkg/util"

	"github.com/shopspring/decimal"
)

const eps = 1e-6

func approx(a, b float64) bool { return math.Abs(a-b) <= eps }

// bucketsFrom builds a contiguous series starting at start from (inflow, outflow) pairs.
func bucketsFrom(start time.Time, pairs [][2]float64) []models.MonthlyBucket {
	out := make([]models.MonthlyBucket, len(pairs))
	cum := 0.0
	for i, p := range pairs {
		bal := p[0] - p[1]
		cum += bal
		out[i] = models.MonthlyBucket{
			Date:              util.AddMonths(start, i),
			Inflow:            p[0],
			Outflow:           p[1],
			Balance:           bal,
			CumulativeBalance: cum,
		}
	}
	return out
}

func record(amount float64, date time.Time) models.LedgerRecord {
	return models.LedgerRecord{Amount: decimal.NewFromFloat(amount), Date: date}
}

var workedExample = [][2]float64{
	{45000, 32000},
	{52000, 35000},
	{48000, 38000},
	{58000, 42000},
	{61000, 45000},
	{55000, 47000},
}
