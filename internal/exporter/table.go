package exporter

import (
	"math"
	"time"

	"climex/internal/climate"
	"climex/internal/indices"
)

// IndexTable is one granularity's results pivoted into a grid: one row
// per group label, one column per index. Cells with no value carry NaN.
type IndexTable struct {
	Granularity string
	Columns     []string
	Labels      []string
	Cells       [][]float64
}

// BuildTable pivots the series computed at granularity g into a table.
// Series at other granularities are ignored. Labels keep first-seen
// order, so series grouped by rotated years align by label rather than
// by position.
func BuildTable(g climate.Granularity, series []*indices.Series) *IndexTable {
	table := &IndexTable{Granularity: g.String()}

	rowFor := make(map[string]int)
	for _, s := range series {
		if s == nil || s.Granularity != g {
			continue
		}
		table.Columns = append(table.Columns, s.Index)
		for _, label := range s.Labels {
			if _, ok := rowFor[label]; !ok {
				rowFor[label] = len(table.Labels)
				table.Labels = append(table.Labels, label)
			}
		}
	}

	table.Cells = make([][]float64, len(table.Labels))
	for i := range table.Cells {
		row := make([]float64, len(table.Columns))
		for j := range row {
			row[j] = math.NaN()
		}
		table.Cells[i] = row
	}

	col := 0
	for _, s := range series {
		if s == nil || s.Granularity != g {
			continue
		}
		for i, label := range s.Labels {
			table.Cells[rowFor[label]][col] = s.Values[i]
		}
		col++
	}
	return table
}

// IsEmpty reports whether the table has no columns
func (t *IndexTable) IsEmpty() bool {
	return len(t.Columns) == 0
}

// ReportMeta carries the station and configuration context echoed into
// report headers.
type ReportMeta struct {
	StationID   string
	StationName string
	Calendar    string
	BaseRange   string
	GeneratedAt time.Time
}

// SummaryRow is one index's descriptive statistics over a computed
// series: count of valid groups, moments, range and the least-squares
// trend per group step.
type SummaryRow struct {
	Index       string
	Granularity string
	Count       int
	Mean        float64
	StdDev      float64
	Min         float64
	Max         float64
	Trend       float64
}

// Report bundles everything a report export needs.
type Report struct {
	Meta      ReportMeta
	Tables    []*IndexTable
	Summaries []SummaryRow
}
