package exporter

import (
	"fmt"
	"path/filepath"

	"climex/internal/indices"
)

// ReportExporter writes index tables and long-format result listings as
// CSV files.
type ReportExporter struct {
	csv *CSVWriter
}

// NewReportExporter creates a report exporter writing through the given
// CSV writer.
func NewReportExporter(csv *CSVWriter) *ReportExporter {
	return &ReportExporter{csv: csv}
}

// WriteTable writes one granularity table: a group column followed by
// one column per index.
func (e *ReportExporter) WriteTable(filePath string, table *IndexTable) error {
	headers := append([]string{"group"}, table.Columns...)

	records := make([][]string, len(table.Labels))
	for i, label := range table.Labels {
		row := make([]string, 0, len(table.Columns)+1)
		row = append(row, label)
		for _, v := range table.Cells[i] {
			row = append(row, formatValue(v))
		}
		records[i] = row
	}

	if err := e.csv.WriteSimpleCSV(filePath, headers, records); err != nil {
		return fmt.Errorf("failed to write %s table: %w", table.Granularity, err)
	}
	return nil
}

// WriteTables writes every non-empty table to its own file named
// indices_<granularity>.csv under dir.
func (e *ReportExporter) WriteTables(dir string, tables []*IndexTable) error {
	for _, table := range tables {
		if table.IsEmpty() {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("indices_%s.csv", table.Granularity))
		if err := e.WriteTable(path, table); err != nil {
			return err
		}
	}
	return nil
}

// longHeaders is the column layout of the long-format listing.
var longHeaders = []string{"index", "variable", "granularity", "group", "value"}

// WriteResults writes every computed series in long format: one row per
// (index, group) pair.
func (e *ReportExporter) WriteResults(filePath string, series []*indices.Series) error {
	var records [][]string
	for _, s := range series {
		if s == nil {
			continue
		}
		for i, label := range s.Labels {
			records = append(records, []string{
				s.Index,
				s.Variable,
				s.Granularity.String(),
				label,
				formatValue(s.Values[i]),
			})
		}
	}
	return e.csv.WriteSimpleCSV(filePath, longHeaders, records)
}

// StreamResults writes series in long format through the streaming
// writer, for result sets too large to buffer.
func (e *ReportExporter) StreamResults(filePath string, series []*indices.Series) error {
	stream, err := e.csv.CreateStreamWriter(filePath, longHeaders)
	if err != nil {
		return err
	}
	for _, s := range series {
		if s == nil {
			continue
		}
		for i, label := range s.Labels {
			record := []string{
				s.Index,
				s.Variable,
				s.Granularity.String(),
				label,
				formatValue(s.Values[i]),
			}
			if err := stream.WriteRecord(record); err != nil {
				stream.Close()
				return fmt.Errorf("failed to write record: %w", err)
			}
		}
	}
	return stream.Close()
}
