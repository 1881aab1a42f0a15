package revenue

import (
	"ringba-sync-dashboard/pkg/utils"
)

// DailySummary is one calendar day of revenue as reported by both sources.
//
// The ringba_* and elocal_* halves are produced independently by two upstream
// systems. Date is the unique key. Missing components read as zero.
type DailySummary struct {
	Date         utils.Date  `json:"date" db:"date"`
	RingbaStatic utils.Money `json:"ringba_static" db:"ringba_static"`
	RingbaAPI    utils.Money `json:"ringba_api" db:"ringba_api"`
	ElocalStatic utils.Money `json:"elocal_static" db:"elocal_static"`
	ElocalAPI    utils.Money `json:"elocal_api" db:"elocal_api"`
}

// Row is a daily summary with its derived adjustment figures.
type Row struct {
	Date                 utils.Date  `json:"date"`
	RingbaStatic         utils.Money `json:"ringbaStatic"`
	RingbaAPI            utils.Money `json:"ringbaApi"`
	ElocalStatic         utils.Money `json:"elocalStatic"`
	ElocalAPI            utils.Money `json:"elocalApi"`
	RingbaTotal          utils.Money `json:"ringbaTotal"`
	ElocalTotal          utils.Money `json:"elocalTotal"`
	Adjustment           utils.Money `json:"adjustment"`
	AdjustmentStatic     utils.Money `json:"adjustmentStatic"`
	AdjustmentAPI        utils.Money `json:"adjustmentApi"`
	AdjustmentPercentage float64     `json:"adjustmentPercentage"`
}

// Summary aggregates a set of rows.
type Summary struct {
	RingbaStatic         utils.Money `json:"ringbaStatic"`
	RingbaAPI            utils.Money `json:"ringbaApi"`
	ElocalStatic         utils.Money `json:"elocalStatic"`
	ElocalAPI            utils.Money `json:"elocalApi"`
	TotalRingba          utils.Money `json:"totalRingba"`
	TotalElocal          utils.Money `json:"totalElocal"`
	Adjustment           utils.Money `json:"adjustment"`
	AdjustmentStatic     utils.Money `json:"adjustmentStatic"`
	AdjustmentAPI        utils.Money `json:"adjustmentApi"`
	AdjustmentPercentage float64     `json:"adjustmentPercentage"`
}

// Result is the output of Reconcile.
type Result struct {
	Rows    []Row   `json:"rows"`
	Summary Summary `json:"summary"`
}

// DateRange is the inclusive span covered by a result.
type DateRange struct {
	StartDate utils.Date `json:"startDate"`
	EndDate   utils.Date `json:"endDate"`
}
