package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerRecord is a single dated money movement: an approved sale, an expense or an ad spend.
type LedgerRecord struct {
	Amount decimal.Decimal
	Date   time.Time
}

type LedgerEventKind string

const (
	LedgerEventSale    LedgerEventKind = "sale"
	LedgerEventExpense LedgerEventKind = "expense"
	LedgerEventAdSpend LedgerEventKind = "ad_spend"
)

// LedgerEvent is published upstream whenever a user's ledger changes.
type LedgerEvent struct {
	UserID     string          `json:"user_id"`
	Kind       LedgerEventKind `json:"kind"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// AlertEvent is emitted after a background refresh produced alerts for a user.
type AlertEvent struct {
	EventID      string    `json:"event_id"`
	UserID       string    `json:"user_id"`
	GeneratedAt  time.Time `json:"generated_at"`
	HealthScore  int       `json:"health_score"`
	RunwayMonths int       `json:"runway_months"`
	Alerts       []Alert   `json:"alerts"`
}
