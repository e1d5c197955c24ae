package repository

import (
	"context"
	"time"

	"CashPilot/internal/domain/models"
)

// LedgerReader supplies a user's raw records with from <= date < to.
// FetchSales returns approved sales only.
type LedgerReader interface {
	FetchSales(ctx context.Context, userID string, from, to time.Time) ([]models.LedgerRecord, error)
	FetchExpenses(ctx context.Context, userID string, from, to time.Time) ([]models.LedgerRecord, error)
	FetchAdSpend(ctx context.Context, userID string, from, to time.Time) ([]models.LedgerRecord, error)
}

// UserDirectory lists users with ledger activity.
type UserDirectory interface {
	ActiveUsers(ctx context.Context, since time.Time) ([]string, error)
}

type AlertPublisher interface {
	PublishAlerts(ctx context.Context, ev *models.AlertEvent) error
	Close() error
}

// JobEnqueuer schedules background recomputation for a user.
type JobEnqueuer interface {
	EnqueueRefresh(ctx context.Context, userID string) error
}

type Metrics interface {
	RecordComputation(op string, seconds float64)
	RecordError(kind string)
	RecordCacheResult(kind string, hit bool)
	RecordHealthScore(score int)
}
