package export

import (
	"fmt"
	"io"

	"ringba-sync-dashboard/internal/reporting"
	"ringba-sync-dashboard/pkg/utils"

	"github.com/xuri/excelize/v2"
)

// ContentTypeXLSX is the media type of the exported workbook.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SheetName is the worksheet holding the reconciliation.
const SheetName = "Chargeback"

// Headings are the column titles, in column order.
var Headings = []string{
	"Date",
	"Ringba Static",
	"Ringba API",
	"Ringba Total",
	"eLocal Static",
	"eLocal API",
	"eLocal Total",
	"Adjustment",
	"Adjustment Static",
	"Adjustment API",
	"Adjustment %",
}

// Filename returns the attachment name for a chargeback covering the given range.
func Filename(cb reporting.Chargeback) string {
	return fmt.Sprintf("chargeback_%s_%s.xlsx", cb.DateRange.StartDate, cb.DateRange.EndDate)
}

// WriteChargeback writes one row per day followed by a "Total" summary row.
func WriteChargeback(w io.Writer, cb reporting.Chargeback) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}

	header := make([]interface{}, 0, len(Headings))
	for _, h := range Headings {
		header = append(header, h)
	}
	if err := setRow(f, 1, header); err != nil {
		return err
	}

	rowNo := 2
	for _, r := range cb.Rows {
		values := []interface{}{
			r.Date.String(),
			num(r.RingbaStatic), num(r.RingbaAPI), num(r.RingbaTotal),
			num(r.ElocalStatic), num(r.ElocalAPI), num(r.ElocalTotal),
			num(r.Adjustment), num(r.AdjustmentStatic), num(r.AdjustmentAPI),
			r.AdjustmentPercentage,
		}
		if err := setRow(f, rowNo, values); err != nil {
			return err
		}
		rowNo++
	}

	s := cb.Summary
	total := []interface{}{
		"Total",
		num(s.RingbaStatic), num(s.RingbaAPI), num(s.TotalRingba),
		num(s.ElocalStatic), num(s.ElocalAPI), num(s.TotalElocal),
		num(s.Adjustment), num(s.AdjustmentStatic), num(s.AdjustmentAPI),
		s.AdjustmentPercentage,
	}
	if err := setRow(f, rowNo, total); err != nil {
		return err
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("export: freeze header: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, rowNo int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return fmt.Errorf("export: cell name: %w", err)
	}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("export: row %d: %w", rowNo, err)
	}
	return nil
}

func num(m utils.Money) float64 { return m.InexactFloat64() }
