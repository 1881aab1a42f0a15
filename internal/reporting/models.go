package reporting

import (
	"time"

	"ringba-sync-dashboard/internal/calls"
	"ringba-sync-dashboard/internal/revenue"
	"ringba-sync-dashboard/internal/scrape"
	"ringba-sync-dashboard/internal/synclog"
	"ringba-sync-dashboard/pkg/utils"
)

// Default page sizes for the listing payloads.
const (
	DefaultHistoryLimit    = 50
	DefaultRingbaLogsLimit = 50
	DefaultActivityLimit   = 20
	MaxLimit               = 1000

	recentSessionsLimit = 10
	topCallersLimit     = 10
)

const (
	HealthStatusHealthy = "healthy"
	DatabaseConnected   = "connected"
)

// Health is the service health rollup.

type Health struct {
	Status         string        `json:"status"`
	Database       string        `json:"database"`
	Services       Services      `json:"services"`
	SuccessRate    float64       `json:"successRate"`
	RecentSessions []scrape.View `json:"recentSessions"`
}

// Services holds the latest session per service category and the latest sync attempt.
// A nil member means nothing has been recorded for it yet.
type Services struct {
	Historical    *scrape.View   `json:"historical"`
	HistoricalAPI *scrape.View   `json:"historicalAPI"`
	Current       *scrape.View   `json:"current"`
	CurrentAPI    *scrape.View   `json:"currentAPI"`
	Ringba        *synclog.Entry `json:"ringba"`
}

func (s *Services) slot(c scrape.ServiceCategory) **scrape.View {
	switch c {
	case scrape.CategoryHistorical:
		return &s.Historical
	case scrape.CategoryHistoricalAPI:
		return &s.HistoricalAPI
	case scrape.CategoryCurrent:
		return &s.Current
	case scrape.CategoryCurrentAPI:
		return &s.CurrentAPI
	default:
		return nil
	}
}

type Stats struct {
	TotalCalls       int                 `json:"totalCalls"`
	TotalAdjustments int                 `json:"totalAdjustments"`
	TotalPayout      utils.Money         `json:"totalPayout"`
	CallsToday       int                 `json:"callsToday"`
	CallsThisWeek    int                 `json:"callsThisWeek"`
	RecentActivity   int                 `json:"recentActivity"`
	Ringba           RingbaStats         `json:"ringba"`
	TopCallers       []calls.CallerTotal `json:"topCallers"`
}

// RingbaStats buckets sync outcomes. Window is "24h" when the trailing day had
// attempts and "all" when the counts fell back to all time.
type RingbaStats struct {
	Total        int        `json:"total"`
	Success      int        `json:"success"`
	Failed       int        `json:"failed"`
	Pending      int        `json:"pending"`
	SuccessRate  float64    `json:"successRate"`
	LastSyncTime *time.Time `json:"lastSyncTime"`
	Window       string     `json:"window"`
}

const (
	WindowDay = "24h"
	WindowAll = "all"
)

// HistoryRequest filters the session listing.
// Service is a family name ("historical" or "current"); anything else lists all sessions.

type HistoryRequest struct {
	Limit   int
	Service string
}

type History struct {
	Sessions []scrape.View `json:"sessions"`
	Count    int           `json:"count"`
}

// RingbaLogsRequest filters the sync log listing. Unknown statuses are ignored.

type RingbaLogsRequest struct {
	Limit  int
	Status string
}

type RingbaLogs struct {
	Logs  []synclog.Entry `json:"logs"`
	Count int             `json:"count"`
}

type ActivityRequest struct {
	Limit int
}

type Activity struct {
	Calls       []calls.Call       `json:"calls"`
	Adjustments []calls.Adjustment `json:"adjustments"`
	Sessions    []scrape.View      `json:"sessions"`
}

// ChargebackRequest selects a trailing window of Days calendar days ending today.
// Days <= 0 means all time.

type ChargebackRequest struct {
	Days int
}

type Chargeback struct {
	Rows      []revenue.Row     `json:"rows"`
	Summary   revenue.Summary   `json:"summary"`
	DateRange revenue.DateRange `json:"dateRange"`
}

// NormalizeLimit maps a missing, non-positive or oversized limit onto the accepted range.
func NormalizeLimit(n, def int) int {
	if n <= 0 {
		return def
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}
