package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CashPilot/internal/domain/models"
	domrepo "CashPilot/internal/domain/repository"
	"CashPilot/pkg/cache"
	"CashPilot/pkg/logger"
	"CashPilot/pkg/queue"

	"github.com/google/uuid"
)

const RefreshJobType = "insights.refresh"

// RefreshPayload is the queue payload of RefreshJobType.
type RefreshPayload struct {
	UserID string `json:"user_id"`
}

// QueueRefreshEnqueuer implements JobEnqueuer on top of a queue publisher.
type QueueRefreshEnqueuer struct {
	pub queue.Publisher
}

func NewQueueRefreshEnqueuer(pub queue.Publisher) *QueueRefreshEnqueuer {
	return &QueueRefreshEnqueuer{pub: pub}
}

func (e *QueueRefreshEnqueuer) EnqueueRefresh(ctx context.Context, userID string) error {
	if err := models.ValidateUserID(userID); err != nil {
		return fmt.Errorf("enqueue refresh: %w", err)
	}
	return e.pub.Enqueue(ctx, RefreshJobType, RefreshPayload{UserID: userID})
}

var _ queue.Job = (*RefreshJob)(nil)

// RefreshJob recomputes one user's insights, caches them and publishes any alerts.
// A per-user lock keeps concurrent workers from refreshing the same user twice.
type RefreshJob struct {
	uc        *CashFlowUseCase
	locks     cache.Service
	publisher domrepo.AlertPublisher
	log       *logger.Logger
	lockTTL   time.Duration
	now       func() time.Time
}

// NewRefreshJob builds the job. locks may be nil, which disables locking.
// lockTTL bounds how long a crashed worker can block a user; it defaults to a minute.
func NewRefreshJob(uc *CashFlowUseCase, locks cache.Service, publisher domrepo.AlertPublisher, log *logger.Logger, lockTTL time.Duration) *RefreshJob {
	if log == nil {
		log = logger.Nop()
	}
	if lockTTL <= 0 {
		lockTTL = time.Minute
	}
	return &RefreshJob{
		uc:        uc,
		locks:     locks,
		publisher: publisher,
		log:       log,
		lockTTL:   lockTTL,
		now:       time.Now,
	}
}

func (j *RefreshJob) Name() string { return "insights-refresh" }
func (j *RefreshJob) Type() string { return RefreshJobType }

func (j *RefreshJob) Handle(ctx context.Context, payload json.RawMessage) error {
	p, err := queue.Decode[RefreshPayload](payload)
	if err != nil {
		return err
	}
	if err := models.ValidateUserID(p.UserID); err != nil {
		return fmt.Errorf("refresh payload: %w", err)
	}

	if j.locks != nil {
		lockKey := cache.Key("lock", "refresh", p.UserID)
		owner := uuid.NewString()
		ok, err := j.locks.TryLock(ctx, lockKey, owner, j.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire refresh lock: %w", err)
		}
		if !ok {
			j.log.Debug("refresh already running", logger.String("user_id", p.UserID))
			return nil
		}
		defer func() {
			if err := j.locks.Unlock(context.Background(), lockKey, owner); err != nil {
				j.log.Warn("release refresh lock", logger.String("user_id", p.UserID), logger.Error(err))
			}
		}()
	}

	res, err := j.uc.RefreshInsights(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", p.UserID, err)
	}
	if !res.IsComputed() || len(res.Insights.Alerts) == 0 || j.publisher == nil {
		return nil
	}

	ev := &models.AlertEvent{
		UserID:       p.UserID,
		GeneratedAt:  j.now().UTC(),
		HealthScore:  res.Insights.HealthScore,
		RunwayMonths: res.Insights.RunwayMonths,
		Alerts:       res.Insights.Alerts,
	}
	if err := j.publisher.PublishAlerts(ctx, ev); err != nil {
		return err
	}
	j.log.Info("alerts published",
		logger.String("user_id", p.UserID),
		logger.String("event_id", ev.EventID),
		logger.Int("alerts", len(ev.Alerts)),
		logger.Int("health_score", ev.HealthScore),
	)
	return nil
}
