package cashflow

import (
	"fmt"
	"time"

	"CashPilot/internal/domain/models"
	"CashPilot/pkg/util"

	"github.com/shopspring/decimal"
)

// AggregateMonthly buckets records into the `months` calendar months ending with the month of now,
// oldest first. Inflow is the sum of sales, outflow the sum of expenses and ad spend.
// Records outside the window are ignored and months without records are zero.
// The cumulative balance starts at the first bucket of the window.
func AggregateMonthly(now time.Time, months int, loc *time.Location, sales, expenses, adSpend []models.LedgerRecord) ([]models.MonthlyBucket, error) {
	if months <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMonths, months)
	}
	if loc == nil {
		loc = time.UTC
	}
	from, to := util.MonthWindow(now, months, loc)

	inflow := make([]decimal.Decimal, months)
	outflow := make([]decimal.Decimal, months)
	sumInto(inflow, sales, from, to, loc)
	sumInto(outflow, expenses, from, to, loc)
	sumInto(outflow, adSpend, from, to, loc)

	buckets := make([]models.MonthlyBucket, months)
	cumulative := decimal.Zero
	for i := 0; i < months; i++ {
		balance := inflow[i].Sub(outflow[i])
		cumulative = cumulative.Add(balance)
		buckets[i] = models.MonthlyBucket{
			Date:              util.AddMonths(from, i),
			Inflow:            inflow[i].InexactFloat64(),
			Outflow:           outflow[i].InexactFloat64(),
			Balance:           balance.InexactFloat64(),
			CumulativeBalance: cumulative.InexactFloat64(),
		}
	}
	return buckets, nil
}

func sumInto(dst []decimal.Decimal, records []models.LedgerRecord, from, to time.Time, loc *time.Location) {
	for _, r := range records {
		if r.Date.Before(from) || !r.Date.Before(to) {
			continue
		}
		idx := util.MonthsBetween(from, util.MonthStart(r.Date, loc))
		if idx < 0 || idx >= len(dst) {
			continue
		}
		dst[idx] = dst[idx].Add(r.Amount)
	}
}

// HasActivity reports whether any bucket saw money move.
func HasActivity(buckets []models.MonthlyBucket) bool {
	for _, b := range buckets {
		if b.Inflow != 0 || b.Outflow != 0 {
			return true
		}
	}
	return false
}
