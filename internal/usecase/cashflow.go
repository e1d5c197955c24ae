package usecase

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"CashPilot/internal/domain/models"
	domrepo "CashPilot/internal/domain/repository"
	"CashPilot/internal/services/cashflow"
	"CashPilot/pkg/cache"
	"CashPilot/pkg/logger"
	"CashPilot/pkg/util"
)

// CashFlowConfig tunes CashFlowUseCase. Zero values fall back to the defaults below.
type CashFlowConfig struct {
	HistoryMonths     int
	ProjectionPeriods int
	CacheTTL      time.Duration
	Timeout       time.Duration
	Location      *time.Location
}

// CashFlowUseCase reads a user's ledger and derives history, trend, projections and insights.
type CashFlowUseCase struct {
	ledger  domrepo.LedgerReader
	cache   cache.Service
	metrics domrepo.Metrics
	log     *logger.Logger

	historyMonths int
	periods       int
	ttl           time.Duration
	timeout       time.Duration
	loc           *time.Location
	now           func() time.Time
}

// NewCashFlowUseCase wires the engine. c and m may be nil.
func NewCashFlowUseCase(ledger domrepo.LedgerReader, c cache.Service, m domrepo.Metrics, log *logger.Logger, cfg CashFlowConfig) *CashFlowUseCase {
	if cfg.HistoryMonths <= 0 {
		cfg.HistoryMonths = 12
	}
	if cfg.ProjectionPeriods <= 0 {
		cfg.ProjectionPeriods = 6
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if m == nil {
		m = nopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CashFlowUseCase{
		ledger:        ledger,
		cache:         c,
		metrics:       m,
		log:           log,
		historyMonths: cfg.HistoryMonths,
		periods:       cfg.ProjectionPeriods,
		ttl:           cfg.CacheTTL,
		timeout:       cfg.Timeout,
		loc:           cfg.Location,
		now:           time.Now,
	}
}

// HistoryMonths is the window used for projections and insights, and the default history length.
func (uc *CashFlowUseCase) HistoryMonths() int { return uc.historyMonths }

// ProjectionPeriods is the default projection length.
func (uc *CashFlowUseCase) ProjectionPeriods() int { return uc.periods }

// GetHistoricalData returns `months` monthly buckets ending with the current month, oldest first.
func (uc *CashFlowUseCase) GetHistoricalData(ctx context.Context, userID string, months int) ([]models.MonthlyBucket, error) {
	if err := models.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if months <= 0 {
		return nil, fmt.Errorf("%w: got %d", cashflow.ErrInvalidMonths, months)
	}
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()
	defer uc.observe("history", time.Now())

	return uc.history(ctx, userID, months)
}

// AnalyzeTrend fits inflow and outflow trends and detects seasonality over `months` of history.
func (uc *CashFlowUseCase) AnalyzeTrend(ctx context.Context, userID string, months int) (models.TrendAnalysis, error) {
	if err := models.ValidateUserID(userID); err != nil {
		return models.TrendAnalysis{}, err
	}
	if months <= 0 {
		return models.TrendAnalysis{}, fmt.Errorf("%w: got %d", cashflow.ErrInvalidMonths, months)
	}
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()
	defer uc.observe("trend", time.Now())

	history, err := uc.history(ctx, userID, months)
	if err != nil {
		return models.TrendAnalysis{}, err
	}
	return cashflow.AnalyzeTrend(history), nil
}

// GenerateProjections projects `periods` months ahead under every scenario.
func (uc *CashFlowUseCase) GenerateProjections(ctx context.Context, userID string, periods int) (models.ProjectionSet, error) {
	if err := models.ValidateUserID(userID); err != nil {
		return models.ProjectionSet{}, err
	}
	if periods <= 0 {
		return models.ProjectionSet{}, fmt.Errorf("%w: got %d", cashflow.ErrInvalidPeriods, periods)
	}
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()
	defer uc.observe("projections", time.Now())

	key := uc.key(userID, "projections", strconv.Itoa(periods))
	set, hit, err := cache.GetOrLoad(ctx, uc.cache, key, uc.ttl, func(ctx context.Context) (models.ProjectionSet, error) {
		history, err := uc.history(ctx, userID, uc.historyMonths)
		if err != nil {
			return models.ProjectionSet{}, err
		}
		return cashflow.Project(history, cashflow.AnalyzeTrend(history), periods, uc.now(), uc.loc)
	}, uc.cacheErr(key))
	uc.recordCache("projections", hit, err)
	return set, err
}

// GenerateInsights returns the insights result over the configured history window.
func (uc *CashFlowUseCase) GenerateInsights(ctx context.Context, userID string) (models.InsightsResult, error) {
	if err := models.ValidateUserID(userID); err != nil {
		return models.InsightsResult{}, err
	}
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()
	defer uc.observe("insights", time.Now())

	key := uc.key(userID, "insights", strconv.Itoa(uc.historyMonths))
	res, hit, err := cache.GetOrLoad(ctx, uc.cache, key, uc.ttl, func(ctx context.Context) (models.InsightsResult, error) {
		return uc.computeInsights(ctx, userID)
	}, uc.cacheErr(key))
	uc.recordCache("insights", hit, err)
	return res, err
}

// RefreshInsights recomputes insights from the ledger, bypassing and then repopulating the cache.
func (uc *CashFlowUseCase) RefreshInsights(ctx context.Context, userID string) (models.InsightsResult, error) {
	if err := models.ValidateUserID(userID); err != nil {
		return models.InsightsResult{}, err
	}
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()
	defer uc.observe("refresh", time.Now())

	if err := uc.InvalidateUser(ctx, userID); err != nil {
		uc.log.Warn("invalidate before refresh failed", logger.String("user_id", userID), logger.Error(err))
	}
	res, err := uc.computeInsights(ctx, userID)
	if err != nil {
		return res, err
	}
	if uc.cache != nil {
		key := uc.key(userID, "insights", strconv.Itoa(uc.historyMonths))
		if err := uc.cache.Set(ctx, key, res, uc.ttl); err != nil {
			uc.cacheErr(key)("set", err)
		}
	}
	return res, nil
}

// Dashboard reads the ledger once and assembles the same views the standalone operations return:
// history and trend over `months`, projections and insights over the engine window.
// Any failure fails the whole call.
func (uc *CashFlowUseCase) Dashboard(ctx context.Context, userID string, months, periods int) (*models.Dashboard, error) {
	if err := models.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if months <= 0 {
		return nil, fmt.Errorf("%w: got %d", cashflow.ErrInvalidMonths, months)
	}
	if periods <= 0 {
		return nil, fmt.Errorf("%w: got %d", cashflow.ErrInvalidPeriods, periods)
	}
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()
	defer uc.observe("dashboard", time.Now())

	now := uc.now()
	recs, err := uc.readLedger(ctx, userID, now, max(months, uc.historyMonths))
	if err != nil {
		return nil, err
	}
	history, err := recs.aggregate(now, months, uc.loc)
	if err != nil {
		return nil, err
	}
	trend := cashflow.AnalyzeTrend(history)

	engineHistory, engineTrend := history, trend
	if months != uc.historyMonths {
		if engineHistory, err = recs.aggregate(now, uc.historyMonths, uc.loc); err != nil {
			return nil, err
		}
		engineTrend = cashflow.AnalyzeTrend(engineHistory)
	}

	res := &models.Dashboard{
		UserID:      userID,
		GeneratedAt: now.UTC(),
		History:     history,
		Trend:       trend,
	}

	var (
		wg      sync.WaitGroup
		projErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.Projections, projErr = cashflow.Project(engineHistory, engineTrend, periods, now, uc.loc)
	}()
	go func() {
		defer wg.Done()
		res.Insights = cashflow.BuildInsights(engineHistory, engineTrend)
	}()
	wg.Wait()

	if projErr != nil {
		return nil, fmt.Errorf("projections: %w", projErr)
	}
	uc.recordHealth(res.Insights)
	return res, nil
}

// InvalidateUser drops every cached result of one user.
// The id is validated first so the pattern can never reach another user's keys.
func (uc *CashFlowUseCase) InvalidateUser(ctx context.Context, userID string) error {
	if err := models.ValidateUserID(userID); err != nil {
		return err
	}
	if uc.cache == nil {
		return nil
	}
	if err := uc.cache.DeleteByPattern(ctx, cache.Key("cashflow", userID, "*")); err != nil {
		return fmt.Errorf("invalidate %s: %w", userID, err)
	}
	return nil
}

func (uc *CashFlowUseCase) computeInsights(ctx context.Context, userID string) (models.InsightsResult, error) {
	history, err := uc.history(ctx, userID, uc.historyMonths)
	if err != nil {
		return models.InsightsResult{}, err
	}
	res := cashflow.BuildInsights(history, cashflow.AnalyzeTrend(history))
	uc.recordHealth(res)
	return res, nil
}

// history serves buckets from cache or aggregates them from a fresh ledger read.
func (uc *CashFlowUseCase) history(ctx context.Context, userID string, months int) ([]models.MonthlyBucket, error) {
	key := uc.key(userID, "history", strconv.Itoa(months))
	buckets, hit, err := cache.GetOrLoad(ctx, uc.cache, key, uc.ttl, func(ctx context.Context) ([]models.MonthlyBucket, error) {
		return uc.loadHistory(ctx, userID, months)
	}, uc.cacheErr(key))
	uc.recordCache("history", hit, err)
	return buckets, err
}

func (uc *CashFlowUseCase) loadHistory(ctx context.Context, userID string, months int) ([]models.MonthlyBucket, error) {
	now := uc.now()
	recs, err := uc.readLedger(ctx, userID, now, months)
	if err != nil {
		return nil, err
	}
	return recs.aggregate(now, months, uc.loc)
}

// ledgerRecords holds one read of the three streams.
type ledgerRecords struct {
	sales, expenses, adSpend []models.LedgerRecord
}

func (r ledgerRecords) aggregate(now time.Time, months int, loc *time.Location) ([]models.MonthlyBucket, error) {
	return cashflow.AggregateMonthly(now, months, loc, r.sales, r.expenses, r.adSpend)
}

// readLedger fetches the `months` calendar months ending with the month of now.
func (uc *CashFlowUseCase) readLedger(ctx context.Context, userID string, now time.Time, months int) (ledgerRecords, error) {
	from, to := util.MonthWindow(now, months, uc.loc)
	sales, expenses, adSpend, err := uc.fetchAll(ctx, userID, from, to)
	if err != nil {
		uc.metrics.RecordError("ledger")
		uc.log.Error("ledger fetch failed",
			logger.String("user_id", userID),
			logger.Int("months", months),
			logger.Error(err),
		)
		return ledgerRecords{}, err
	}
	return ledgerRecords{sales: sales, expenses: expenses, adSpend: adSpend}, nil
}

// fetchAll reads the three streams concurrently; the first error wins and cancels the rest.
func (uc *CashFlowUseCase) fetchAll(ctx context.Context, userID string, from, to time.Time) (sales, expenses, adSpend []models.LedgerRecord, err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type item struct {
		name    string
		records []models.LedgerRecord
		err     error
	}
	ch := make(chan item, 3)
	var wg sync.WaitGroup
	fetch := func(name string, f func(context.Context, string, time.Time, time.Time) ([]models.LedgerRecord, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recs, err := f(ctx, userID, from, to)
			ch <- item{name, recs, err}
		}()
	}
	fetch("sales", uc.ledger.FetchSales)
	fetch("expenses", uc.ledger.FetchExpenses)
	fetch("ad_spend", uc.ledger.FetchAdSpend)

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			if err == nil {
				err = fmt.Errorf("fetch %s: %w", it.name, it.err)
				cancel()
			}
			continue
		}
		switch it.name {
		case "sales":
			sales = it.records
		case "expenses":
			expenses = it.records
		case "ad_spend":
			adSpend = it.records
		}
	}
	if err != nil {
		return nil, nil, nil, err
	}
	return sales, expenses, adSpend, nil
}

func (uc *CashFlowUseCase) key(userID, kind, params string) string {
	return cache.Key("cashflow", userID, kind, params)
}

func (uc *CashFlowUseCase) cacheErr(key string) func(op string, err error) {
	return func(op string, err error) {
		uc.metrics.RecordError("cache_" + op)
		uc.log.Warn("cache error",
			logger.String("op", op),
			logger.String("key", key),
			logger.Error(err),
		)
	}
}

func (uc *CashFlowUseCase) recordCache(kind string, hit bool, err error) {
	if uc.cache == nil || err != nil {
		return
	}
	uc.metrics.RecordCacheResult(kind, hit)
}

func (uc *CashFlowUseCase) recordHealth(res models.InsightsResult) {
	if res.IsComputed() {
		uc.metrics.RecordHealthScore(res.Insights.HealthScore)
	}
}

func (uc *CashFlowUseCase) observe(op string, start time.Time) {
	uc.metrics.RecordComputation(op, time.Since(start).Seconds())
}

func (uc *CashFlowUseCase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, uc.timeout)
}

type nopMetrics struct{}

func (nopMetrics) RecordComputation(string, float64) {}
func (nopMetrics) RecordError(string)                {}
func (nopMetrics) RecordCacheResult(string, bool)    {}
func (nopMetrics) RecordHealthScore(int)             {}
