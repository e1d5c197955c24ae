package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"CashPilot/internal/domain/models"
	domrepo "CashPilot/internal/domain/repository"
	"CashPilot/pkg/logger"
)

type userInvalidator interface {
	InvalidateUser(ctx context.Context, userID string) error
}

// LedgerEventsHandler reacts to ledger changes: it drops the user's cached results
// and schedules a background refresh. It implements pkg/kafka.MessageHandler.
type LedgerEventsHandler struct {
	topic string
	cache userInvalidator
	jobs  domrepo.JobEnqueuer
	log   *logger.Logger
}

func NewLedgerEventsHandler(topic string, c userInvalidator, jobs domrepo.JobEnqueuer, log *logger.Logger) *LedgerEventsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &LedgerEventsHandler{topic: topic, cache: c, jobs: jobs, log: log}
}

func (h *LedgerEventsHandler) Topic() string { return h.topic }

// Handle returns an error for undecodable or incomplete events so the consumer can park them.
func (h *LedgerEventsHandler) Handle(ctx context.Context, data []byte) error {
	var ev models.LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("decode ledger event: %w", err)
	}
	if err := models.ValidateUserID(ev.UserID); err != nil {
		return fmt.Errorf("ledger event: %w", err)
	}
	switch ev.Kind {
	case models.LedgerEventSale, models.LedgerEventExpense, models.LedgerEventAdSpend:
	default:
		return fmt.Errorf("unknown ledger event kind %q", ev.Kind)
	}

	if err := h.cache.InvalidateUser(ctx, ev.UserID); err != nil {
		h.log.Warn("cache invalidation failed", logger.String("user_id", ev.UserID), logger.Error(err))
	}
	if h.jobs == nil {
		return nil
	}
	if err := h.jobs.EnqueueRefresh(ctx, ev.UserID); err != nil {
		return fmt.Errorf("enqueue refresh for %s: %w", ev.UserID, err)
	}
	h.log.Debug("ledger event handled",
		logger.String("user_id", ev.UserID),
		logger.String("kind", string(ev.Kind)),
	)
	return nil
}
