package calls

import (
	"time"

	"ringba-sync-dashboard/pkg/utils"
)

// Call is one scraped eLocal call event.
//
// Append-only ledger: the scraper inserts rows and never updates them.
// Payout is a money amount; it stays a decimal end to end.
type Call struct {
	ID         int64       `json:"id" db:"id"`
	DateOfCall utils.Date  `json:"date_of_call" db:"date_of_call"`
	CallerID   string      `json:"caller_id" db:"caller_id"`
	Payout     utils.Money `json:"payout" db:"payout"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// Adjustment is a payout correction scraped for a previously reported call.
type Adjustment struct {
	ID         int64       `json:"id" db:"id"`
	TimeOfCall time.Time   `json:"time_of_call" db:"time_of_call"`
	CallerID   string      `json:"caller_id" db:"caller_id"`
	Amount     utils.Money `json:"amount" db:"amount"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// CallerTotal is one row of the top-callers ranking.
type CallerTotal struct {
	CallerID    string      `json:"caller_id"`
	CallCount   int         `json:"call_count"`
	TotalPayout utils.Money `json:"total_payout"`
}
