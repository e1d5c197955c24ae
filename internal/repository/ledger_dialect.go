package repository

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect captures what differs between the SQL backends a ledger can live in.
type Dialect struct {
	Name       string
	DriverName string
	// amountExpr selects the amount column in a form every driver scans into decimal.
	amountExpr    string
	unionDistinct string
	placeholder   func(i int) string
	timeArg       func(t time.Time) any
	schema        []string
}

func (d Dialect) ph(i int) string { return d.placeholder(i) }

func questionMark(int) string { return "?" }

func dollar(i int) string { return "$" + strconv.Itoa(i) }

func utcTime(t time.Time) any { return t.UTC() }

// sqliteTimeLayout is fixed width so stored text compares in time order.
const sqliteTimeLayout = "2006-01-02 15:04:05.000"

var dialects = map[string]Dialect{
	"clickhouse": {
		Name:          "clickhouse",
		DriverName:    "clickhouse",
		amountExpr:    "toString(amount)",
		unionDistinct: "UNION DISTINCT",
		placeholder:   questionMark,
		timeArg:       utcTime,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS sales (
				user_id String,
				amount Decimal(18, 2),
				status LowCardinality(String),
				sold_at DateTime64(3, 'UTC')
			) ENGINE = MergeTree ORDER BY (user_id, sold_at)`,
			`CREATE TABLE IF NOT EXISTS expenses (
				user_id String,
				amount Decimal(18, 2),
				spent_at DateTime64(3, 'UTC')
			) ENGINE = MergeTree ORDER BY (user_id, spent_at)`,
			`CREATE TABLE IF NOT EXISTS ad_spend (
				user_id String,
				amount Decimal(18, 2),
				spent_at DateTime64(3, 'UTC')
			) ENGINE = MergeTree ORDER BY (user_id, spent_at)`,
		},
	},
	"postgres": {
		Name:          "postgres",
		DriverName:    "postgres",
		amountExpr:    "amount",
		unionDistinct: "UNION DISTINCT",
		placeholder:   dollar,
		timeArg:       utcTime,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS sales (
				user_id VARCHAR(64) NOT NULL,
				amount NUMERIC(18, 2) NOT NULL,
				status VARCHAR(32) NOT NULL DEFAULT 'approved',
				sold_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sales_user_date ON sales (user_id, sold_at)`,
			`CREATE TABLE IF NOT EXISTS expenses (
				user_id VARCHAR(64) NOT NULL,
				amount NUMERIC(18, 2) NOT NULL,
				spent_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_expenses_user_date ON expenses (user_id, spent_at)`,
			`CREATE TABLE IF NOT EXISTS ad_spend (
				user_id VARCHAR(64) NOT NULL,
				amount NUMERIC(18, 2) NOT NULL,
				spent_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_ad_spend_user_date ON ad_spend (user_id, spent_at)`,
		},
	},
	"mysql": {
		Name:          "mysql",
		DriverName:    "mysql",
		amountExpr:    "amount",
		unionDistinct: "UNION DISTINCT",
		placeholder:   questionMark,
		timeArg:       utcTime,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS sales (
				user_id VARCHAR(64) NOT NULL,
				amount DECIMAL(18, 2) NOT NULL,
				status VARCHAR(32) NOT NULL DEFAULT 'approved',
				sold_at DATETIME(3) NOT NULL,
				INDEX idx_sales_user_date (user_id, sold_at)
			)`,
			`CREATE TABLE IF NOT EXISTS expenses (
				user_id VARCHAR(64) NOT NULL,
				amount DECIMAL(18, 2) NOT NULL,
				spent_at DATETIME(3) NOT NULL,
				INDEX idx_expenses_user_date (user_id, spent_at)
			)`,
			`CREATE TABLE IF NOT EXISTS ad_spend (
				user_id VARCHAR(64) NOT NULL,
				amount DECIMAL(18, 2) NOT NULL,
				spent_at DATETIME(3) NOT NULL,
				INDEX idx_ad_spend_user_date (user_id, spent_at)
			)`,
		},
	},
	"sqlite": {
		Name:          "sqlite",
		DriverName:    "sqlite",
		amountExpr:    "amount",
		unionDistinct: "UNION",
		placeholder:   questionMark,
		timeArg:       func(t time.Time) any { return t.UTC().Format(sqliteTimeLayout) },
		schema: []string{
			`CREATE TABLE IF NOT EXISTS sales (
				user_id TEXT NOT NULL,
				amount NUMERIC NOT NULL,
				status TEXT NOT NULL DEFAULT 'approved',
				sold_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sales_user_date ON sales (user_id, sold_at)`,
			`CREATE TABLE IF NOT EXISTS expenses (
				user_id TEXT NOT NULL,
				amount NUMERIC NOT NULL,
				spent_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_expenses_user_date ON expenses (user_id, spent_at)`,
			`CREATE TABLE IF NOT EXISTS ad_spend (
				user_id TEXT NOT NULL,
				amount NUMERIC NOT NULL,
				spent_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_ad_spend_user_date ON ad_spend (user_id, spent_at)`,
		},
	},
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return Dialect{}, fmt.Errorf("unsupported ledger driver %q", name)
	}
	return d, nil
}

// NormalizeDSN adjusts driver DSNs so timestamps scan as time.Time in UTC.
func NormalizeDSN(driver, dsn string) (string, error) {
	if driver != "mysql" {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}
