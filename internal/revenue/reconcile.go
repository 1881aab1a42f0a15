package revenue

import (
	"ringba-sync-dashboard/pkg/utils"

	"github.com/shopspring/decimal"
)

// subUnitScale converts the static/API sub-component deltas into the unit the
// dashboard reports them in. It is deliberately not applied to the combined
// adjustment.
var subUnitScale = decimal.NewFromInt(100)

var hundred = decimal.NewFromInt(100)

// Reconcile computes per-row and summary adjustments.
// It is a pure function of the input rows; row order is preserved.
func Reconcile(in []DailySummary) Result {
	out := Result{Rows: make([]Row, 0, len(in))}

	var (
		rs, ra, es, ea  decimal.Decimal
		adj, adjS, adjA decimal.Decimal
	)
	for _, d := range in {
		row := reconcileRow(d)
		out.Rows = append(out.Rows, row)

		rs = rs.Add(d.RingbaStatic.Decimal)
		ra = ra.Add(d.RingbaAPI.Decimal)
		es = es.Add(d.ElocalStatic.Decimal)
		ea = ea.Add(d.ElocalAPI.Decimal)
		adj = adj.Add(row.Adjustment.Decimal)
		adjS = adjS.Add(row.AdjustmentStatic.Decimal)
		adjA = adjA.Add(row.AdjustmentAPI.Decimal)
	}

	totalRingba := rs.Add(ra)
	totalElocal := es.Add(ea)
	out.Summary = Summary{
		RingbaStatic:         utils.NewMoney(rs),
		RingbaAPI:            utils.NewMoney(ra),
		ElocalStatic:         utils.NewMoney(es),
		ElocalAPI:            utils.NewMoney(ea),
		TotalRingba:          utils.NewMoney(totalRingba),
		TotalElocal:          utils.NewMoney(totalElocal),
		Adjustment:           utils.NewMoney(adj),
		AdjustmentStatic:     utils.NewMoney(adjS),
		AdjustmentAPI:        utils.NewMoney(adjA),
		AdjustmentPercentage: percentage(totalRingba.Sub(totalElocal), totalRingba),
	}
	return out
}

func reconcileRow(d DailySummary) Row {
	ringbaTotal := d.RingbaStatic.Add(d.RingbaAPI.Decimal)
	elocalTotal := d.ElocalStatic.Add(d.ElocalAPI.Decimal)
	adjustment := ringbaTotal.Sub(elocalTotal)

	return Row{
		Date:                 d.Date,
		RingbaStatic:         d.RingbaStatic,
		RingbaAPI:            d.RingbaAPI,
		ElocalStatic:         d.ElocalStatic,
		ElocalAPI:            d.ElocalAPI,
		RingbaTotal:          utils.NewMoney(ringbaTotal),
		ElocalTotal:          utils.NewMoney(elocalTotal),
		Adjustment:           utils.NewMoney(adjustment),
		AdjustmentStatic:     utils.NewMoney(d.RingbaStatic.Sub(d.ElocalStatic.Decimal).Div(subUnitScale)),
		AdjustmentAPI:        utils.NewMoney(d.RingbaAPI.Sub(d.ElocalAPI.Decimal).Div(subUnitScale)),
		AdjustmentPercentage: percentage(adjustment, ringbaTotal),
	}
}

// percentage returns part/whole*100, or 0 when whole is zero.
func percentage(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(hundred).InexactFloat64()
}

// RangeOf returns the min/max date of rows, or today..today when rows is empty.
func RangeOf(rows []DailySummary, today utils.Date) DateRange {
	if len(rows) == 0 {
		return DateRange{StartDate: today, EndDate: today}
	}
	r := DateRange{StartDate: rows[0].Date, EndDate: rows[0].Date}
	for _, d := range rows[1:] {
		if d.Date.Before(r.StartDate) {
			r.StartDate = d.Date
		}
		if d.Date.After(r.EndDate) {
			r.EndDate = d.Date
		}
	}
	return r
}

// WindowStart returns the first date of a trailing window of days ending today.
// ok is false when days <= 0 (no window).
func WindowStart(today utils.Date, days int) (utils.Date, bool) {
	if days <= 0 {
		return utils.Date{}, false
	}
	return today.AddDays(-(days - 1)), true
}

// TrailingDays keeps rows inside the trailing window of days ending today.
// days <= 0 keeps everything. Apply before Reconcile.
func TrailingDays(rows []DailySummary, today utils.Date, days int) []DailySummary {
	start, ok := WindowStart(today, days)
	if !ok {
		return rows
	}
	out := make([]DailySummary, 0, len(rows))
	for _, d := range rows {
		if d.Date.Before(start) {
			continue
		}
		out = append(out, d)
	}
	return out
}
