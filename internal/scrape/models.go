package scrape

import "time"

// Session is one scraper run as recorded by the external scraper process.
//
// Rows are written by the scraper: created when a run starts, updated once on
// completion or failure. This service only reads them.
//
// SessionID is not guaranteed unique across runs but is treated as the lookup key.
type Session struct {
	SessionID          string        `json:"session_id" db:"session_id"`
	Status             SessionStatus `json:"status" db:"status"`
	StartedAt          time.Time     `json:"started_at" db:"started_at"`
	CompletedAt        *time.Time    `json:"completed_at" db:"completed_at"`
	CallsScraped       int           `json:"calls_scraped" db:"calls_scraped"`
	AdjustmentsScraped int           `json:"adjustments_scraped" db:"adjustments_scraped"`
	ErrorMessage       *string       `json:"error_message" db:"error_message"`
}

type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
)

// View is a session annotated with its service classification.
type View struct {
	Session
	ServiceType ServiceCategory `json:"serviceType"`
}

// Annotate classifies s by its session id.
func Annotate(s Session) View {
	return View{Session: s, ServiceType: Classify(s.SessionID)}
}
