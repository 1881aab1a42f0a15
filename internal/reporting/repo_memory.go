package reporting

import (
	"context"
	"sort"
	"sync"
	"time"

	"ringba-sync-dashboard/internal/calls"
	"ringba-sync-dashboard/internal/revenue"
	"ringba-sync-dashboard/internal/scrape"
	"ringba-sync-dashboard/internal/synclog"
	"ringba-sync-dashboard/pkg/utils"

	"github.com/shopspring/decimal"
)

// MemoryStore is a simple in-memory Source for tests and local development.
// It follows the same ordering rules as the SQL store.
//
// AcquireErr fails every Acquire; QueryErr fails every query; PanicIn names a
// query method that panics. Opened and Closed count connection lifecycles.

type MemoryStore struct {
	mu sync.Mutex

	Sessions    []scrape.Session
	SyncLogs    []synclog.Entry
	Calls       []calls.Call
	Adjustments []calls.Adjustment
	Revenue     []revenue.DailySummary

	AcquireErr error
	QueryErr   error
	PanicIn    string

	Opened int
	Closed int
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Acquire(ctx context.Context) (Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AcquireErr != nil {
		return nil, m.AcquireErr
	}
	m.Opened++
	return &memConn{m: m}, nil
}

// Open reports connections acquired but not yet closed.
func (m *MemoryStore) Open() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Opened - m.Closed
}

type memConn struct {
	m      *MemoryStore
	closed bool
}

func (c *memConn) Close() error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.m.Closed++
	}
	return nil
}

// enter locks the store and applies the failure hooks for method.
// The caller must call the returned unlock.
func (c *memConn) enter(method string) (func(), error) {
	c.m.mu.Lock()
	if c.m.PanicIn == method {
		c.m.mu.Unlock()
		panic("memory store: injected panic in " + method)
	}
	if c.m.QueryErr != nil {
		err := c.m.QueryErr
		c.m.mu.Unlock()
		return func() {}, err
	}
	return c.m.mu.Unlock, nil
}

func (c *memConn) sessionsByRecency() []scrape.Session {
	out := append([]scrape.Session(nil), c.m.Sessions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

func (c *memConn) EachSessionByRecency(ctx context.Context, fn func(scrape.Session) bool) error {
	unlock, err := c.enter("EachSessionByRecency")
	if err != nil {
		return err
	}
	rows := c.sessionsByRecency()
	unlock()

	for _, s := range rows {
		if !fn(s) {
			break
		}
	}
	return nil
}

func (c *memConn) RecentSessions(ctx context.Context, limit int) ([]scrape.Session, error) {
	unlock, err := c.enter("RecentSessions")
	if err != nil {
		return nil, err
	}
	defer unlock()
	return head(c.sessionsByRecency(), limit), nil
}

func (c *memConn) SessionCounts(ctx context.Context) (int, int, error) {
	unlock, err := c.enter("SessionCounts")
	if err != nil {
		return 0, 0, err
	}
	defer unlock()
	completed := 0
	for _, s := range c.m.Sessions {
		if s.Status == scrape.SessionStatusCompleted {
			completed++
		}
	}
	return len(c.m.Sessions), completed, nil
}

func (c *memConn) LatestSyncLog(ctx context.Context) (*synclog.Entry, error) {
	unlock, err := c.enter("LatestSyncLog")
	if err != nil {
		return nil, err
	}
	defer unlock()
	if len(c.m.SyncLogs) == 0 {
		return nil, nil
	}
	rows := append([]synclog.Entry(nil), c.m.SyncLogs...)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].SyncCompletedAt, rows[j].SyncCompletedAt
		switch {
		case a == nil && b == nil:
			return rows[i].ID > rows[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.After(*b)
		default:
			return rows[i].ID > rows[j].ID
		}
	})
	e := rows[0]
	return &e, nil
}

func (c *memConn) SyncStatusCounts(ctx context.Context, since *time.Time) (map[synclog.Status]int, error) {
	unlock, err := c.enter("SyncStatusCounts")
	if err != nil {
		return nil, err
	}
	defer unlock()
	out := map[synclog.Status]int{}
	for _, e := range c.m.SyncLogs {
		if since != nil && e.SyncAttemptedAt.Before(*since) {
			continue
		}
		out[e.SyncStatus]++
	}
	return out, nil
}

func (c *memConn) LastSyncAttempt(ctx context.Context) (*time.Time, error) {
	unlock, err := c.enter("LastSyncAttempt")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var last *time.Time
	for _, e := range c.m.SyncLogs {
		if last == nil || e.SyncAttemptedAt.After(*last) {
			t := e.SyncAttemptedAt
			last = &t
		}
	}
	return last, nil
}

func (c *memConn) ListSyncLogs(ctx context.Context, statuses []synclog.Status, limit int) ([]synclog.Entry, error) {
	unlock, err := c.enter("ListSyncLogs")
	if err != nil {
		return nil, err
	}
	defer unlock()
	want := map[synclog.Status]bool{}
	for _, s := range statuses {
		want[s] = true
	}
	out := make([]synclog.Entry, 0)
	for _, e := range c.m.SyncLogs {
		if len(want) > 0 && !want[e.SyncStatus] {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SyncAttemptedAt.Equal(out[j].SyncAttemptedAt) {
			return out[i].SyncAttemptedAt.After(out[j].SyncAttemptedAt)
		}
		return out[i].ID > out[j].ID
	})
	return head(out, limit), nil
}

func (c *memConn) CallTotals(ctx context.Context) (int, utils.Money, error) {
	unlock, err := c.enter("CallTotals")
	if err != nil {
		return 0, utils.Money{}, err
	}
	defer unlock()
	sum := decimal.Zero
	for _, call := range c.m.Calls {
		sum = sum.Add(call.Payout.Decimal)
	}
	return len(c.m.Calls), utils.NewMoney(sum), nil
}

func (c *memConn) CountCallsBetween(ctx context.Context, from, to utils.Date) (int, error) {
	unlock, err := c.enter("CountCallsBetween")
	if err != nil {
		return 0, err
	}
	defer unlock()
	n := 0
	for _, call := range c.m.Calls {
		if call.DateOfCall.Before(from) || call.DateOfCall.After(to) {
			continue
		}
		n++
	}
	return n, nil
}

func (c *memConn) CountCallsCreatedSince(ctx context.Context, since time.Time) (int, error) {
	unlock, err := c.enter("CountCallsCreatedSince")
	if err != nil {
		return 0, err
	}
	defer unlock()
	n := 0
	for _, call := range c.m.Calls {
		if !call.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (c *memConn) CountAdjustments(ctx context.Context) (int, error) {
	unlock, err := c.enter("CountAdjustments")
	if err != nil {
		return 0, err
	}
	defer unlock()
	return len(c.m.Adjustments), nil
}

func (c *memConn) TopCallers(ctx context.Context, limit int) ([]calls.CallerTotal, error) {
	unlock, err := c.enter("TopCallers")
	if err != nil {
		return nil, err
	}
	defer unlock()
	idx := map[string]int{}
	out := make([]calls.CallerTotal, 0)
	for _, call := range c.m.Calls {
		i, ok := idx[call.CallerID]
		if !ok {
			i = len(out)
			idx[call.CallerID] = i
			out = append(out, calls.CallerTotal{CallerID: call.CallerID})
		}
		out[i].CallCount++
		out[i].TotalPayout = utils.NewMoney(out[i].TotalPayout.Add(call.Payout.Decimal))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CallCount > out[j].CallCount })
	return head(out, limit), nil
}

func (c *memConn) RecentCalls(ctx context.Context, limit int) ([]calls.Call, error) {
	unlock, err := c.enter("RecentCalls")
	if err != nil {
		return nil, err
	}
	defer unlock()
	out := append([]calls.Call{}, c.m.Calls...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return head(out, limit), nil
}

func (c *memConn) RecentAdjustments(ctx context.Context, limit int) ([]calls.Adjustment, error) {
	unlock, err := c.enter("RecentAdjustments")
	if err != nil {
		return nil, err
	}
	defer unlock()
	out := append([]calls.Adjustment{}, c.m.Adjustments...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return head(out, limit), nil
}

func (c *memConn) RevenueSummaries(ctx context.Context, since *utils.Date) ([]revenue.DailySummary, error) {
	unlock, err := c.enter("RevenueSummaries")
	if err != nil {
		return nil, err
	}
	defer unlock()
	out := make([]revenue.DailySummary, 0, len(c.m.Revenue))
	for _, d := range c.m.Revenue {
		if since != nil && d.Date.Before(*since) {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func head[T any](in []T, n int) []T {
	if n >= 0 && len(in) > n {
		return in[:n]
	}
	return in
}
