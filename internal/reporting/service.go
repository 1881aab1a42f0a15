package reporting

import (
	"context"
	"fmt"
	"math"
	"runtime/debug"
	"time"

	"ringba-sync-dashboard/internal/revenue"
	"ringba-sync-dashboard/internal/scrape"
	"ringba-sync-dashboard/internal/synclog"
	"ringba-sync-dashboard/pkg/logger"
	"ringba-sync-dashboard/pkg/utils"
)

// Service assembles dashboard payloads.
//
// Every payload runs on its own Conn, released on every exit path. A payload is
// either returned whole or not at all.
type Service struct {
	src Source
	// clock is injectable for deterministic tests. Calendar windows use its location.
	clock func() time.Time
}

func NewService(src Source) *Service { return &Service{src: src, clock: time.Now} }

// assemble runs fn on a freshly acquired Conn. Acquisition failures wrap
// ErrUnavailable; a panic inside fn is converted into an error.
func assemble[T any](ctx context.Context, s *Service, name string, fn func(Conn) (T, error)) (out T, err error) {
	if s.src == nil {
		return out, fmt.Errorf("%w: source not configured", ErrUnavailable)
	}
	conn, aerr := s.src.Acquire(ctx)
	if aerr != nil {
		return out, fmt.Errorf("%w: %v", ErrUnavailable, aerr)
	}
	defer func() {
		if r := recover(); r != nil {
			logger.From(ctx).Error("payload assembly panicked", "payload", name, "panic", r, "stack", string(debug.Stack()))
			var zero T
			out, err = zero, fmt.Errorf("reporting: %s: panic: %v", name, r)
		}
		_ = conn.Close()
	}()

	out, err = fn(conn)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("reporting: %s: %w", name, err)
	}
	return out, nil
}

func (s *Service) Health(ctx context.Context) (Health, error) {
	return assemble(ctx, s, "health", func(conn Conn) (Health, error) {
		out := Health{Status: HealthStatusHealthy, Database: DatabaseConnected}

		seen := 0
		err := conn.EachSessionByRecency(ctx, func(sess scrape.Session) bool {
			v := scrape.Annotate(sess)
			slot := out.Services.slot(v.ServiceType)
			if slot == nil || *slot != nil {
				return true
			}
			*slot = &v
			seen++
			return seen < len(scrape.Categories)
		})
		if err != nil {
			return Health{}, err
		}

		latest, err := conn.LatestSyncLog(ctx)
		if err != nil {
			return Health{}, err
		}
		out.Services.Ringba = latest

		total, completed, err := conn.SessionCounts(ctx)
		if err != nil {
			return Health{}, err
		}
		out.SuccessRate = rate(completed, total)

		recent, err := conn.RecentSessions(ctx, recentSessionsLimit)
		if err != nil {
			return Health{}, err
		}
		out.RecentSessions = annotateAll(recent)
		return out, nil
	})
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	now := s.clock()
	today := utils.NewDate(now)

	return assemble(ctx, s, "stats", func(conn Conn) (Stats, error) {
		var (
			out Stats
			err error
		)
		if out.TotalCalls, out.TotalPayout, err = conn.CallTotals(ctx); err != nil {
			return Stats{}, err
		}
		if out.TotalAdjustments, err = conn.CountAdjustments(ctx); err != nil {
			return Stats{}, err
		}
		if out.CallsToday, err = conn.CountCallsBetween(ctx, today, today); err != nil {
			return Stats{}, err
		}
		if out.CallsThisWeek, err = conn.CountCallsBetween(ctx, today.AddDays(-6), today); err != nil {
			return Stats{}, err
		}
		if out.RecentActivity, err = conn.CountCallsCreatedSince(ctx, now.Add(-24*time.Hour)); err != nil {
			return Stats{}, err
		}
		if out.Ringba, err = ringbaStats(ctx, conn, now); err != nil {
			return Stats{}, err
		}
		if out.TopCallers, err = conn.TopCallers(ctx, topCallersLimit); err != nil {
			return Stats{}, err
		}
		return out, nil
	})
}

// ringbaStats counts the trailing day of sync attempts, or all time when the
// trailing day is empty. Statuses outside the three buckets are not counted,
// so Total is always Success+Failed+Pending.
func ringbaStats(ctx context.Context, conn Conn, now time.Time) (RingbaStats, error) {
	since := now.Add(-24 * time.Hour)
	counts, err := conn.SyncStatusCounts(ctx, &since)
	if err != nil {
		return RingbaStats{}, err
	}
	out := tally(counts)
	out.Window = WindowDay
	if out.Total == 0 {
		if counts, err = conn.SyncStatusCounts(ctx, nil); err != nil {
			return RingbaStats{}, err
		}
		out = tally(counts)
		out.Window = WindowAll
	}
	out.SuccessRate = rate(out.Success, out.Total)

	if out.LastSyncTime, err = conn.LastSyncAttempt(ctx); err != nil {
		return RingbaStats{}, err
	}
	return out, nil
}

func tally(counts map[synclog.Status]int) RingbaStats {
	var out RingbaStats
	for status, n := range counts {
		switch synclog.BucketOf(status) {
		case synclog.BucketSuccess:
			out.Success += n
		case synclog.BucketFailed:
			out.Failed += n
		case synclog.BucketPending:
			out.Pending += n
		default:
			continue
		}
		out.Total += n
	}
	return out
}

func (s *Service) History(ctx context.Context, req HistoryRequest) (History, error) {
	limit := NormalizeLimit(req.Limit, DefaultHistoryLimit)
	family := ""
	switch req.Service {
	case "historical", "current":
		family = req.Service
	}

	return assemble(ctx, s, "history", func(conn Conn) (History, error) {
		out := History{Sessions: make([]scrape.View, 0, limit)}
		err := conn.EachSessionByRecency(ctx, func(sess scrape.Session) bool {
			v := scrape.Annotate(sess)
			if family != "" && v.ServiceType.Family() != family {
				return true
			}
			out.Sessions = append(out.Sessions, v)
			return len(out.Sessions) < limit
		})
		if err != nil {
			return History{}, err
		}
		out.Count = len(out.Sessions)
		return out, nil
	})
}

func (s *Service) RingbaLogs(ctx context.Context, req RingbaLogsRequest) (RingbaLogs, error) {
	limit := NormalizeLimit(req.Limit, DefaultRingbaLogsLimit)
	var statuses []synclog.Status
	if st, ok := synclog.ParseStatus(req.Status); ok {
		statuses = synclog.Expand(st)
	}

	return assemble(ctx, s, "ringba-logs", func(conn Conn) (RingbaLogs, error) {
		logs, err := conn.ListSyncLogs(ctx, statuses, limit)
		if err != nil {
			return RingbaLogs{}, err
		}
		if logs == nil {
			logs = []synclog.Entry{}
		}
		return RingbaLogs{Logs: logs, Count: len(logs)}, nil
	})
}

func (s *Service) Activity(ctx context.Context, req ActivityRequest) (Activity, error) {
	limit := NormalizeLimit(req.Limit, DefaultActivityLimit)

	return assemble(ctx, s, "activity", func(conn Conn) (Activity, error) {
		var out Activity
		callRows, err := conn.RecentCalls(ctx, limit)
		if err != nil {
			return Activity{}, err
		}
		adjRows, err := conn.RecentAdjustments(ctx, limit)
		if err != nil {
			return Activity{}, err
		}
		sessions, err := conn.RecentSessions(ctx, limit)
		if err != nil {
			return Activity{}, err
		}
		out.Calls = callRows
		out.Adjustments = adjRows
		out.Sessions = annotateAll(sessions)
		return out, nil
	})
}

func (s *Service) Chargeback(ctx context.Context, req ChargebackRequest) (Chargeback, error) {
	today := utils.NewDate(s.clock())
	var since *utils.Date
	if start, ok := revenue.WindowStart(today, req.Days); ok {
		since = &start
	}

	return assemble(ctx, s, "chargeback", func(conn Conn) (Chargeback, error) {
		rows, err := conn.RevenueSummaries(ctx, since)
		if err != nil {
			return Chargeback{}, err
		}
		rows = revenue.TrailingDays(rows, today, req.Days)
		res := revenue.Reconcile(rows)
		return Chargeback{
			Rows:      res.Rows,
			Summary:   res.Summary,
			DateRange: revenue.RangeOf(rows, today),
		}, nil
	})
}

func annotateAll(in []scrape.Session) []scrape.View {
	out := make([]scrape.View, 0, len(in))
	for _, s := range in {
		out = append(out, scrape.Annotate(s))
	}
	return out
}

// rate returns part/whole as a percentage rounded to two decimals, 0 when whole is 0.
func rate(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*100*100) / 100
}
