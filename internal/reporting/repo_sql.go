package reporting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ringba-sync-dashboard/internal/calls"
	"ringba-sync-dashboard/internal/revenue"
	"ringba-sync-dashboard/internal/scrape"
	"ringba-sync-dashboard/internal/synclog"
	"ringba-sync-dashboard/pkg/utils"
)

// NOTE: This repository assumes the following tables exist (written by the scraper):
// - scraping_sessions
// - ringba_sync_logs (append-only)
// - elocal_call_data (append-only)
// - adjustment_details (append-only)
// - revenue_summary (UNIQUE (date))
//
// Queries are written with '?' placeholders and rebound per driver. Time windows
// are computed in Go and passed as parameters; window comparisons go through
// utils.TimeExpr/DateExpr so text timestamps compare as instants on sqlite.

// SQLSource hands out dedicated *sql.Conn handles from a database/sql pool.
type SQLSource struct {
	db     *sql.DB
	driver string
}

func NewSQLSource(db *sql.DB, driverName string) *SQLSource {
	return &SQLSource{db: db, driver: driverName}
}

func (s *SQLSource) Acquire(ctx context.Context) (Conn, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("database not configured")
	}
	c, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.PingContext(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &sqlConn{c: c, driver: s.driver}, nil
}

type sqlConn struct {
	c      *sql.Conn
	driver string
}

func (q *sqlConn) Close() error { return q.c.Close() }

func (q *sqlConn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.c.QueryContext(ctx, utils.Rebind(q.driver, query), args...)
}

func (q *sqlConn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.c.QueryRowContext(ctx, utils.Rebind(q.driver, query), args...)
}

func (q *sqlConn) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := q.queryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// --- sessions ---

const sessionColumns = `session_id, status, started_at, completed_at,
COALESCE(calls_scraped, 0), COALESCE(adjustments_scraped, 0), error_message`

func scanSession(rows *sql.Rows) (scrape.Session, error) {
	var (
		s         scrape.Session
		completed sql.NullTime
		errMsg    sql.NullString
	)
	if err := rows.Scan(
		&s.SessionID,
		&s.Status,
		&s.StartedAt,
		&completed,
		&s.CallsScraped,
		&s.AdjustmentsScraped,
		&errMsg,
	); err != nil {
		return scrape.Session{}, err
	}
	s.CompletedAt = nullTimePtr(completed)
	s.ErrorMessage = nullStringPtr(errMsg)
	return s, nil
}

func (q *sqlConn) EachSessionByRecency(ctx context.Context, fn func(scrape.Session) bool) error {
	rows, err := q.query(ctx, `SELECT `+sessionColumns+` FROM `+tableSessions+` ORDER BY started_at DESC`)
	if err != nil {
		return fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return fmt.Errorf("scan session: %w", err)
		}
		if !fn(s) {
			return nil
		}
	}
	return rows.Err()
}

func (q *sqlConn) RecentSessions(ctx context.Context, limit int) ([]scrape.Session, error) {
	rows, err := q.query(ctx, `SELECT `+sessionColumns+` FROM `+tableSessions+` ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}
	defer rows.Close()
	out := make([]scrape.Session, 0, limit)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q *sqlConn) SessionCounts(ctx context.Context) (int, int, error) {
	const stmt = `SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) FROM ` + tableSessions
	var total, completed int
	if err := q.queryRow(ctx, stmt).Scan(&total, &completed); err != nil {
		return 0, 0, fmt.Errorf("count sessions: %w", err)
	}
	return total, completed, nil
}

// --- sync logs ---

const syncLogColumns = `id, sync_status, sync_attempted_at, sync_completed_at, caller_id, date_of_call, error_message`

func scanSyncLog(scan func(dest ...any) error) (synclog.Entry, error) {
	var (
		e         synclog.Entry
		completed sql.NullTime
		callerID  sql.NullString
		errMsg    sql.NullString
	)
	if err := scan(
		&e.ID,
		&e.SyncStatus,
		&e.SyncAttemptedAt,
		&completed,
		&callerID,
		&e.DateOfCall,
		&errMsg,
	); err != nil {
		return synclog.Entry{}, err
	}
	e.SyncCompletedAt = nullTimePtr(completed)
	e.CallerID = callerID.String
	e.ErrorMessage = nullStringPtr(errMsg)
	return e, nil
}

func (q *sqlConn) LatestSyncLog(ctx context.Context) (*synclog.Entry, error) {
	const stmt = `SELECT ` + syncLogColumns + ` FROM ` + tableSyncLogs + `
ORDER BY CASE WHEN sync_completed_at IS NULL THEN 1 ELSE 0 END, sync_completed_at DESC, id DESC
LIMIT 1`
	e, err := scanSyncLog(q.queryRow(ctx, stmt).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest sync log: %w", err)
	}
	return &e, nil
}

func (q *sqlConn) SyncStatusCounts(ctx context.Context, since *time.Time) (map[synclog.Status]int, error) {
	stmt := `SELECT sync_status, COUNT(*) FROM ` + tableSyncLogs
	var args []any
	if since != nil {
		stmt += ` WHERE ` + utils.TimeExpr(q.driver, "sync_attempted_at") + ` >= ` + utils.TimeExpr(q.driver, "?")
		args = append(args, utils.TimeArg(q.driver, *since))
	}
	stmt += ` GROUP BY sync_status`

	rows, err := q.query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("count sync statuses: %w", err)
	}
	defer rows.Close()
	out := map[synclog.Status]int{}
	for rows.Next() {
		var (
			status sql.NullString
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan sync status count: %w", err)
		}
		out[synclog.Status(status.String)] += n
	}
	return out, rows.Err()
}

func (q *sqlConn) LastSyncAttempt(ctx context.Context) (*time.Time, error) {
	// ORDER BY + LIMIT instead of MAX() keeps the column type for sqlite's timestamp parsing.
	const stmt = `SELECT sync_attempted_at FROM ` + tableSyncLogs + ` ORDER BY sync_attempted_at DESC LIMIT 1`
	var t time.Time
	if err := q.queryRow(ctx, stmt).Scan(&t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query last sync attempt: %w", err)
	}
	return &t, nil
}

func (q *sqlConn) ListSyncLogs(ctx context.Context, statuses []synclog.Status, limit int) ([]synclog.Entry, error) {
	stmt := `SELECT ` + syncLogColumns + ` FROM ` + tableSyncLogs
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		stmt += ` WHERE sync_status IN (` + utils.Placeholders(len(statuses)) + `)`
		for _, s := range statuses {
			args = append(args, string(s))
		}
	}
	stmt += ` ORDER BY sync_attempted_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := q.query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query sync logs: %w", err)
	}
	defer rows.Close()
	out := make([]synclog.Entry, 0, limit)
	for rows.Next() {
		e, err := scanSyncLog(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan sync log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- calls & adjustments ---

func (q *sqlConn) CallTotals(ctx context.Context) (int, utils.Money, error) {
	var (
		n      int
		payout utils.Money
	)
	if err := q.queryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(payout), 0) FROM `+tableCalls).Scan(&n, &payout); err != nil {
		return 0, utils.Money{}, fmt.Errorf("call totals: %w", err)
	}
	return n, payout, nil
}

func (q *sqlConn) CountCallsBetween(ctx context.Context, from, to utils.Date) (int, error) {
	day := utils.DateExpr(q.driver, "date_of_call")
	arg := utils.DateExpr(q.driver, "?")
	stmt := `SELECT COUNT(*) FROM ` + tableCalls + ` WHERE ` + day + ` >= ` + arg + ` AND ` + day + ` <= ` + arg
	n, err := q.count(ctx, stmt, from.String(), to.String())
	if err != nil {
		return 0, fmt.Errorf("count calls by date: %w", err)
	}
	return n, nil
}

func (q *sqlConn) CountCallsCreatedSince(ctx context.Context, since time.Time) (int, error) {
	stmt := `SELECT COUNT(*) FROM ` + tableCalls + ` WHERE ` + utils.TimeExpr(q.driver, "created_at") + ` >= ` + utils.TimeExpr(q.driver, "?")
	n, err := q.count(ctx, stmt, utils.TimeArg(q.driver, since))
	if err != nil {
		return 0, fmt.Errorf("count recent calls: %w", err)
	}
	return n, nil
}

func (q *sqlConn) CountAdjustments(ctx context.Context) (int, error) {
	n, err := q.count(ctx, `SELECT COUNT(*) FROM `+tableAdjustments)
	if err != nil {
		return 0, fmt.Errorf("count adjustments: %w", err)
	}
	return n, nil
}

func (q *sqlConn) TopCallers(ctx context.Context, limit int) ([]calls.CallerTotal, error) {
	const stmt = `SELECT caller_id, COUNT(*) AS call_count, COALESCE(SUM(payout), 0) AS total_payout
FROM ` + tableCalls + `
GROUP BY caller_id
ORDER BY call_count DESC
LIMIT ?`
	rows, err := q.query(ctx, stmt, limit)
	if err != nil {
		return nil, fmt.Errorf("query top callers: %w", err)
	}
	defer rows.Close()
	out := make([]calls.CallerTotal, 0, limit)
	for rows.Next() {
		var (
			ct       calls.CallerTotal
			callerID sql.NullString
		)
		if err := rows.Scan(&callerID, &ct.CallCount, &ct.TotalPayout); err != nil {
			return nil, fmt.Errorf("scan top caller: %w", err)
		}
		ct.CallerID = callerID.String
		out = append(out, ct)
	}
	return out, rows.Err()
}

func (q *sqlConn) RecentCalls(ctx context.Context, limit int) ([]calls.Call, error) {
	const stmt = `SELECT id, date_of_call, caller_id, payout, created_at FROM ` + tableCalls + ` ORDER BY created_at DESC LIMIT ?`
	rows, err := q.query(ctx, stmt, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent calls: %w", err)
	}
	defer rows.Close()
	out := make([]calls.Call, 0, limit)
	for rows.Next() {
		var (
			c        calls.Call
			callerID sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.DateOfCall, &callerID, &c.Payout, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		c.CallerID = callerID.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *sqlConn) RecentAdjustments(ctx context.Context, limit int) ([]calls.Adjustment, error) {
	const stmt = `SELECT id, time_of_call, caller_id, amount, created_at FROM ` + tableAdjustments + ` ORDER BY created_at DESC LIMIT ?`
	rows, err := q.query(ctx, stmt, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent adjustments: %w", err)
	}
	defer rows.Close()
	out := make([]calls.Adjustment, 0, limit)
	for rows.Next() {
		var (
			a        calls.Adjustment
			callerID sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.TimeOfCall, &callerID, &a.Amount, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		a.CallerID = callerID.String
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- revenue ---

func (q *sqlConn) RevenueSummaries(ctx context.Context, since *utils.Date) ([]revenue.DailySummary, error) {
	stmt := `SELECT date, ringba_static, ringba_api, elocal_static, elocal_api FROM ` + tableRevenue
	var args []any
	if since != nil {
		stmt += ` WHERE ` + utils.DateExpr(q.driver, "date") + ` >= ` + utils.DateExpr(q.driver, "?")
		args = append(args, since.String())
	}
	stmt += ` ORDER BY date DESC`

	rows, err := q.query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query revenue summaries: %w", err)
	}
	defer rows.Close()
	out := make([]revenue.DailySummary, 0)
	for rows.Next() {
		var d revenue.DailySummary
		if err := rows.Scan(&d.Date, &d.RingbaStatic, &d.RingbaAPI, &d.ElocalStatic, &d.ElocalAPI); err != nil {
			return nil, fmt.Errorf("scan revenue summary: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
