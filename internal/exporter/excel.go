package exporter

import (
	"fmt"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"
)

const summarySheet = "Summary"

// WorkbookExporter writes reports as Excel workbooks: a summary sheet
// with station metadata and per-index statistics, then one sheet per
// granularity table.
type WorkbookExporter struct{}

// NewWorkbookExporter creates a workbook exporter
func NewWorkbookExporter() *WorkbookExporter {
	return &WorkbookExporter{}
}

// WriteWorkbook writes the report to path, overwriting any existing file.
func (e *WorkbookExporter) WriteWorkbook(path string, report *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to rename summary sheet: %w", err)
	}
	if err := e.writeSummary(f, report); err != nil {
		return err
	}

	for _, table := range report.Tables {
		if table.IsEmpty() {
			continue
		}
		if err := e.writeTable(f, table); err != nil {
			return err
		}
	}

	index, err := f.GetSheetIndex(summarySheet)
	if err != nil {
		return fmt.Errorf("failed to look up summary sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (e *WorkbookExporter) writeSummary(f *excelize.File, report *Report) error {
	meta := [][2]any{
		{"Station", report.Meta.StationID},
		{"Name", report.Meta.StationName},
		{"Calendar", report.Meta.Calendar},
		{"Base period", report.Meta.BaseRange},
		{"Generated", report.Meta.GeneratedAt.Format("2006-01-02 15:04:05")},
	}
	for i, pair := range meta {
		if err := setCell(f, summarySheet, 1, i+1, pair[0]); err != nil {
			return err
		}
		if err := setCell(f, summarySheet, 2, i+1, pair[1]); err != nil {
			return err
		}
	}

	headerRow := len(meta) + 2
	headers := []string{"Index", "Granularity", "Count", "Mean", "StdDev", "Min", "Max", "Trend"}
	for col, h := range headers {
		if err := setCell(f, summarySheet, col+1, headerRow, h); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	first, _ := excelize.CoordinatesToCellName(1, headerRow)
	last, _ := excelize.CoordinatesToCellName(len(headers), headerRow)
	if err := f.SetCellStyle(summarySheet, first, last, bold); err != nil {
		return fmt.Errorf("failed to style summary header: %w", err)
	}

	for i, s := range report.Summaries {
		row := headerRow + 1 + i
		cells := []any{s.Index, s.Granularity, s.Count, s.Mean, s.StdDev, s.Min, s.Max, s.Trend}
		for col, v := range cells {
			if fv, ok := v.(float64); ok && math.IsNaN(fv) {
				continue
			}
			if err := setCell(f, summarySheet, col+1, row, v); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(summarySheet, "A", "B", 18); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return nil
}

func (e *WorkbookExporter) writeTable(f *excelize.File, table *IndexTable) error {
	sheet := sheetTitle(table.Granularity)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	if err := setCell(f, sheet, 1, 1, "group"); err != nil {
		return err
	}
	for col, name := range table.Columns {
		if err := setCell(f, sheet, col+2, 1, name); err != nil {
			return err
		}
	}

	for ri, label := range table.Labels {
		if err := setCell(f, sheet, 1, ri+2, label); err != nil {
			return err
		}
		for ci, v := range table.Cells[ri] {
			// Masked cells stay empty.
			if math.IsNaN(v) {
				continue
			}
			if err := setCell(f, sheet, ci+2, ri+2, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to resolve cell %d,%d: %w", col, row, err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s!%s: %w", sheet, cell, err)
	}
	return nil
}

// sheetTitle maps a granularity name to its sheet name
func sheetTitle(granularity string) string {
	switch granularity {
	case "annual":
		return "Annual"
	case "halfyear":
		return "Half-year"
	case "seasonal":
		return "Seasonal"
	case "monthly":
		return "Monthly"
	default:
		if granularity == "" {
			return "Results"
		}
		return strings.ToUpper(granularity[:1]) + granularity[1:]
	}
}
