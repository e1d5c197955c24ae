package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"time"

	"CashPilot/internal/domain/models"
	domrepo "CashPilot/internal/domain/repository"
	applogger "CashPilot/pkg/logger"

	"github.com/shopspring/decimal"
)

// Stream names one of the three record tables.
type Stream string

const (
	StreamSales    Stream = "sales"
	StreamExpenses Stream = "expenses"
	StreamAdSpend  Stream = "ad_spend"
)

const saleStatusApproved = "approved"

type ledgerTable struct {
	name         string
	dateCol      string
	approvedOnly bool
}

var ledgerTables = map[Stream]ledgerTable{
	StreamSales:    {name: "sales", dateCol: "sold_at", approvedOnly: true},
	StreamExpenses: {name: "expenses", dateCol: "spent_at"},
	StreamAdSpend:  {name: "ad_spend", dateCol: "spent_at"},
}

var (
	_ domrepo.LedgerReader  = (*SQLLedger)(nil)
	_ domrepo.UserDirectory = (*SQLLedger)(nil)
)

// SQLLedger reads ledger records from any database/sql backend with a known Dialect.
type SQLLedger struct {
	db      *sql.DB
	dialect Dialect
	timeout time.Duration
	l       *applogger.Logger
}

func NewSQLLedger(db *sql.DB, dialect Dialect) *SQLLedger {
	return &SQLLedger{db: db, dialect: dialect, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *SQLLedger) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

// SetQueryTimeout bounds every query; zero disables the bound.
func (s *SQLLedger) SetQueryTimeout(d time.Duration) { s.timeout = d }

// InitSchema creates the ledger tables if they do not exist (idempotent).
func (s *SQLLedger) InitSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLLedger) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLLedger) FetchSales(ctx context.Context, userID string, from, to time.Time) ([]models.LedgerRecord, error) {
	return s.fetch(ctx, StreamSales, userID, from, to)
}

func (s *SQLLedger) FetchExpenses(ctx context.Context, userID string, from, to time.Time) ([]models.LedgerRecord, error) {
	return s.fetch(ctx, StreamExpenses, userID, from, to)
}

func (s *SQLLedger) FetchAdSpend(ctx context.Context, userID string, from, to time.Time) ([]models.LedgerRecord, error) {
	return s.fetch(ctx, StreamAdSpend, userID, from, to)
}

func (s *SQLLedger) fetch(ctx context.Context, stream Stream, userID string, from, to time.Time) ([]models.LedgerRecord, error) {
	start := time.Now()
	t := ledgerTables[stream]
	d := s.dialect

	q := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE user_id = %s AND %s >= %s AND %s < %s`,
		d.amountExpr, t.dateCol, t.name, d.ph(1), t.dateCol, d.ph(2), t.dateCol, d.ph(3))
	args := []any{userID, d.timeArg(from), d.timeArg(to)}
	if t.approvedOnly {
		q += " AND status = " + d.ph(4)
		args = append(args, saleStatusApproved)
	}
	q += " ORDER BY " + t.dateCol + " ASC"

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("ledger query error",
			applogger.String("driver", d.Name),
			applogger.String("stream", string(stream)),
			applogger.String("user_id", userID),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query %s: %w", stream, err)
	}
	defer rows.Close()

	out := make([]models.LedgerRecord, 0, 64)
	for rows.Next() {
		var (
			amount decimal.Decimal
			at     flexTime
		)
		if err := rows.Scan(&amount, &at); err != nil {
			s.l.Error("ledger scan error",
				applogger.String("driver", d.Name),
				applogger.String("stream", string(stream)),
				applogger.Error(err),
			)
			return nil, fmt.Errorf("scan %s: %w", stream, err)
		}
		out = append(out, models.LedgerRecord{Amount: amount, Date: at.Time})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows %s: %w", stream, err)
	}

	s.l.Debug("ledger fetch ok",
		applogger.String("driver", d.Name),
		applogger.String("stream", string(stream)),
		applogger.String("user_id", userID),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// ActiveUsers lists users with any record dated at or after since, sorted.
func (s *SQLLedger) ActiveUsers(ctx context.Context, since time.Time) ([]string, error) {
	d := s.dialect
	q := fmt.Sprintf(`SELECT user_id FROM sales WHERE sold_at >= %s %s SELECT user_id FROM expenses WHERE spent_at >= %s %s SELECT user_id FROM ad_spend WHERE spent_at >= %s`,
		d.ph(1), d.unionDistinct, d.ph(2), d.unionDistinct, d.ph(3))
	arg := d.timeArg(since)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, q, arg, arg, arg)
	if err != nil {
		return nil, fmt.Errorf("active users: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		seen[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows users: %w", err)
	}

	users := make([]string, 0, len(seen))
	for id := range seen {
		users = append(users, id)
	}
	sort.Strings(users)
	return users, nil
}

// Insert appends one record to a stream. Sales are written with the given status.
func (s *SQLLedger) Insert(ctx context.Context, stream Stream, userID string, amount decimal.Decimal, at time.Time, status string) error {
	t, ok := ledgerTables[stream]
	if !ok {
		return fmt.Errorf("unknown stream %q", stream)
	}
	d := s.dialect

	var (
		q    string
		args []any
	)
	if t.approvedOnly {
		if status == "" {
			status = saleStatusApproved
		}
		q = fmt.Sprintf(`INSERT INTO %s (user_id, amount, status, %s) VALUES (%s, %s, %s, %s)`,
			t.name, t.dateCol, d.ph(1), d.ph(2), d.ph(3), d.ph(4))
		args = []any{userID, amount.String(), status, d.timeArg(at)}
	} else {
		q = fmt.Sprintf(`INSERT INTO %s (user_id, amount, %s) VALUES (%s, %s, %s)`,
			t.name, t.dateCol, d.ph(1), d.ph(2), d.ph(3))
		args = []any{userID, amount.String(), d.timeArg(at)}
	}

	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert %s: %w", stream, err)
	}
	return nil
}

func (s *SQLLedger) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// flexTime scans timestamps whether the driver yields time.Time, text or unix seconds.
type flexTime struct {
	time.Time
}

var flexTimeLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.DateTime,
	time.DateOnly,
}

func (f *flexTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		f.Time = v.UTC()
		return nil
	case int64:
		f.Time = time.Unix(v, 0).UTC()
		return nil
	case []byte:
		return f.parse(string(v))
	case string:
		return f.parse(v)
	case nil:
		return fmt.Errorf("null timestamp")
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (f *flexTime) parse(s string) error {
	for _, layout := range flexTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			f.Time = t.UTC()
			return nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		f.Time = time.Unix(secs, 0).UTC()
		return nil
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}
