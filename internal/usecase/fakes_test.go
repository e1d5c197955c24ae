package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"CashPilot/internal/domain/models"

	"github.com/shopspring/decimal"
)

// fakeLedger serves records from memory and counts reads.
type fakeLedger struct {
	sales, expenses, adSpend []models.LedgerRecord
	errOn                    string
	err                      error
	calls                    atomic.Int32
}

func (f *fakeLedger) pick(stream string, recs []models.LedgerRecord, from, to time.Time) ([]models.LedgerRecord, error) {
	f.calls.Add(1)
	if f.errOn == stream {
		return nil, f.err
	}
	out := make([]models.LedgerRecord, 0, len(recs))
	for _, r := range recs {
		if !r.Date.Before(from) && r.Date.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLedger) FetchSales(_ context.Context, _ string, from, to time.Time) ([]models.LedgerRecord, error) {
	return f.pick("sales", f.sales, from, to)
}

func (f *fakeLedger) FetchExpenses(_ context.Context, _ string, from, to time.Time) ([]models.LedgerRecord, error) {
	return f.pick("expenses", f.expenses, from, to)
}

func (f *fakeLedger) FetchAdSpend(_ context.Context, _ string, from, to time.Time) ([]models.LedgerRecord, error) {
	return f.pick("ad_spend", f.adSpend, from, to)
}

// workedLedger holds Jan..Jun 2024 with the inflow/outflow pairs of the reference example.
// Each month's outflow is split between an expense and a 1000 ad spend.
func workedLedger() *fakeLedger {
	pairs := [][2]int64{
		{45000, 32000}, {52000, 35000}, {48000, 38000},
		{58000, 42000}, {61000, 45000}, {55000, 47000},
	}
	f := &fakeLedger{}
	for i, p := range pairs {
		d := time.Date(2024, time.Month(i+1), 10, 12, 0, 0, 0, time.UTC)
		f.sales = append(f.sales, models.LedgerRecord{Amount: decimal.NewFromInt(p[0]), Date: d})
		f.expenses = append(f.expenses, models.LedgerRecord{Amount: decimal.NewFromInt(p[1] - 1000), Date: d})
		f.adSpend = append(f.adSpend, models.LedgerRecord{Amount: decimal.NewFromInt(1000), Date: d.Add(time.Hour)})
	}
	return f
}

var workedNow = time.Date(2024, 6, 20, 9, 0, 0, 0, time.UTC)

type fakeMetrics struct {
	mu     sync.Mutex
	hits   map[string]int
	misses map[string]int
	errs   map[string]int
	scores []int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{hits: map[string]int{}, misses: map[string]int{}, errs: map[string]int{}}
}

func (m *fakeMetrics) RecordComputation(string, float64) {}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[kind]++
}

func (m *fakeMetrics) RecordCacheResult(kind string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits[kind]++
	} else {
		m.misses[kind]++
	}
}

func (m *fakeMetrics) RecordHealthScore(score int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, score)
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	users []string
	err   error
}

func (e *fakeEnqueuer) EnqueueRefresh(_ context.Context, userID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.users = append(e.users, userID)
	return nil
}

type fakeAlertPublisher struct {
	events []*models.AlertEvent
	err    error
}

func (p *fakeAlertPublisher) PublishAlerts(_ context.Context, ev *models.AlertEvent) error {
	if p.err != nil {
		return p.err
	}
	ev.EventID = "evt-1"
	p.events = append(p.events, ev)
	return nil
}

func (p *fakeAlertPublisher) Close() error { return nil }
