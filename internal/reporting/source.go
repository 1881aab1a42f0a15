package reporting

import (
	"context"
	"errors"
	"time"

	"ringba-sync-dashboard/internal/calls"
	"ringba-sync-dashboard/internal/revenue"
	"ringba-sync-dashboard/internal/scrape"
	"ringba-sync-dashboard/internal/synclog"
	"ringba-sync-dashboard/pkg/utils"
)

// ErrUnavailable reports that no data-source connection could be acquired.
// Payload assembly stops before any query runs.
var ErrUnavailable = errors.New("reporting: data source unavailable")

// Table names. The schema is owned by the external scraper/sync writer.
const (
	tableSessions    = "scraping_sessions"
	tableSyncLogs    = "ringba_sync_logs"
	tableCalls       = "elocal_call_data"
	tableAdjustments = "adjustment_details"
	tableRevenue     = "revenue_summary"
)

// Source hands out connections scoped to one payload assembly.
type Source interface {
	Acquire(ctx context.Context) (Conn, error)
}

// Conn is the set of read-only aggregation queries.
//
// A Conn belongs to exactly one payload assembly and must be closed by it.
// Implementations never mutate the rows they return.
type Conn interface {
	// EachSessionByRecency streams sessions by started_at DESC until fn returns false.
	EachSessionByRecency(ctx context.Context, fn func(scrape.Session) bool) error
	RecentSessions(ctx context.Context, limit int) ([]scrape.Session, error)
	SessionCounts(ctx context.Context) (total, completed int, err error)

	// LatestSyncLog orders by sync_completed_at DESC then id DESC; null completion times sort last.
	LatestSyncLog(ctx context.Context) (*synclog.Entry, error)
	// SyncStatusCounts counts logs attempted at or after since; nil since means all time.
	SyncStatusCounts(ctx context.Context, since *time.Time) (map[synclog.Status]int, error)
	LastSyncAttempt(ctx context.Context) (*time.Time, error)
	ListSyncLogs(ctx context.Context, statuses []synclog.Status, limit int) ([]synclog.Entry, error)

	CallTotals(ctx context.Context) (count int, payout utils.Money, err error)
	// CountCallsBetween counts calls whose date_of_call lies in [from, to].
	CountCallsBetween(ctx context.Context, from, to utils.Date) (int, error)
	CountCallsCreatedSince(ctx context.Context, since time.Time) (int, error)
	CountAdjustments(ctx context.Context) (int, error)
	TopCallers(ctx context.Context, limit int) ([]calls.CallerTotal, error)
	RecentCalls(ctx context.Context, limit int) ([]calls.Call, error)
	RecentAdjustments(ctx context.Context, limit int) ([]calls.Adjustment, error)

	// RevenueSummaries returns daily rows by date DESC, restricted to date >= since when set.
	RevenueSummaries(ctx context.Context, since *utils.Date) ([]revenue.DailySummary, error)

	Close() error
}
