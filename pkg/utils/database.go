package utils

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "pgx"     // jackc/pgx/v5/stdlib
	DriverSQLite   = "sqlite3" // mattn/go-sqlite3
)

// PoolConfig controls database/sql pool behavior.
// Keep it config-driven; defaults should be safe and conservative.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

func (c PoolConfig) withDefaults(driverName string) PoolConfig {
	out := c
	if out.MaxOpenConns <= 0 {
		out.MaxOpenConns = 25
		if driverName == DriverSQLite {
			out.MaxOpenConns = 4
		}
	}
	if out.MaxIdleConns <= 0 {
		out.MaxIdleConns = 2
	}
	if out.ConnMaxLifetime <= 0 {
		out.ConnMaxLifetime = 30 * time.Minute
	}
	if out.ConnMaxIdleTime <= 0 {
		out.ConnMaxIdleTime = 1 * time.Minute
	}
	if out.PingTimeout <= 0 {
		out.PingTimeout = 5 * time.Second
	}
	return out
}

// OpenPool configures a handle without connecting. Connections are made on
// first use, so a database that is down at startup can come back later.
func OpenPool(driverName, dsn string, pool PoolConfig) (*sql.DB, error) {
	pool = pool.withDefaults(driverName)

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	return db, nil
}

// HealthCheck pings the DB with a timeout.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("db ping failed: %w", err)
	}
	return nil
}

// Rebind rewrites '?' placeholders into the driver's bind style.
// Queries are written with '?'; Postgres needs $1..$n.
// Question marks inside quoted literals are left alone.
func Rebind(driverName, query string) string {
	if driverName != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// sqliteTimeLayout is what SQLite's datetime() produces.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// TimeExpr wraps a timestamp column or placeholder so comparisons happen on
// instants. SQLite keeps timestamps as text in the writer's format
// ("2006-01-02 15:04:05-07:00", "2006-01-02T15:04:05Z"); datetime() brings
// them to UTC "YYYY-MM-DD HH:MM:SS" before comparing.
func TimeExpr(driverName, expr string) string {
	if driverName == DriverSQLite {
		return "datetime(" + expr + ")"
	}
	return expr
}

// DateExpr is TimeExpr for calendar dates.
func DateExpr(driverName, expr string) string {
	if driverName == DriverSQLite {
		return "date(" + expr + ")"
	}
	return expr
}

// TimeArg binds t for comparison against a TimeExpr.
func TimeArg(driverName string, t time.Time) any {
	if driverName == DriverSQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

// Placeholders returns "?, ?, ?" for n arguments.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
