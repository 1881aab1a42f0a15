package synclog

import (
	"time"

	"ringba-sync-dashboard/pkg/utils"
)

// Entry is one attempt to reconcile a call record against Ringba.
//
// Append-only: the sync process inserts a row per attempt and never rewrites history.
// ID is monotonic and breaks ties between entries with equal completion times.
type Entry struct {
	ID              int64      `json:"id" db:"id"`
	SyncStatus      Status     `json:"sync_status" db:"sync_status"`
	SyncAttemptedAt time.Time  `json:"sync_attempted_at" db:"sync_attempted_at"`
	SyncCompletedAt *time.Time `json:"sync_completed_at" db:"sync_completed_at"`
	CallerID        string     `json:"caller_id" db:"caller_id"`
	DateOfCall      utils.Date `json:"date_of_call" db:"date_of_call"`
	ErrorMessage    *string    `json:"error_message" db:"error_message"`
}

type Status string

const (
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusPending    Status = "pending"
	StatusNotFound   Status = "not_found"
	StatusCannotSync Status = "cannot_sync"
)

// Bucket is the outcome class reported on the dashboard.
type Bucket string

const (
	BucketSuccess Bucket = "success"
	BucketFailed  Bucket = "failed"
	BucketPending Bucket = "pending"
	BucketOther   Bucket = "other"
)

// BucketOf collapses a raw status into its outcome class.
// pending, not_found and cannot_sync all count as pending.
func BucketOf(s Status) Bucket {
	switch s {
	case StatusSuccess:
		return BucketSuccess
	case StatusFailed:
		return BucketFailed
	case StatusPending, StatusNotFound, StatusCannotSync:
		return BucketPending
	default:
		return BucketOther
	}
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, bool) {
	switch s := Status(raw); s {
	case StatusSuccess, StatusFailed, StatusPending, StatusNotFound, StatusCannotSync:
		return s, true
	default:
		return "", false
	}
}

// Expand returns the raw statuses a filter value selects.
// Filtering by "pending" selects the whole pending class.
func Expand(s Status) []Status {
	if s == StatusPending {
		return []Status{StatusPending, StatusNotFound, StatusCannotSync}
	}
	return []Status{s}
}
