package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// XLSXWriter implements Writer by saving the report to a local XLSX file.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates an XLSXWriter that saves to path on every Write.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

// Write renders the SALES and TOTALS sheets and saves the workbook.
func (w *XLSXWriter) Write(_ context.Context, rows []Row, totals Totals) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // best-effort cleanup

	f.SetSheetName("Sheet1", salesSheet)
	if err := writeSheet(f, salesSheet, buildSalesValues(rows)); err != nil {
		return err
	}

	if _, err := f.NewSheet(totalsSheet); err != nil {
		return fmt.Errorf("creating %s sheet: %w", totalsSheet, err)
	}
	if err := writeSheet(f, totalsSheet, buildTotalsValues(totals)); err != nil {
		return err
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving report to %s: %w", w.path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, values [][]any) error {
	for i, row := range values {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("addressing row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
