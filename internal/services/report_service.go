package services

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"climex/internal/climate"
	"climex/internal/exporter"
	"climex/internal/indices"
	"climex/internal/store"
)

// ReportService assembles exportable station reports: per-granularity
// index tables plus descriptive statistics for every series.
type ReportService struct {
	logger *slog.Logger
}

// NewReportService creates a ReportService.
func NewReportService(logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{logger: logger.With(slog.String("component", "report_service"))}
}

// BuildReport pivots the series into one table per granularity and
// computes a summary row per series. Granularity order follows the
// engine's canonical list; empty tables are dropped.
func (s *ReportService) BuildReport(meta exporter.ReportMeta, series []*indices.Series) *exporter.Report {
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now().UTC()
	}

	report := &exporter.Report{Meta: meta}
	for _, g := range climate.Granularities() {
		table := exporter.BuildTable(g, series)
		if !table.IsEmpty() {
			report.Tables = append(report.Tables, table)
		}
	}
	for _, sr := range series {
		if sr == nil {
			continue
		}
		report.Summaries = append(report.Summaries, Summarize(sr))
	}
	return report
}

// Summarize computes descriptive statistics over a series' valid groups.
// Trend is the least-squares slope per group step; it needs at least two
// valid groups, and the moments need at least one, otherwise the fields
// are NaN.
func Summarize(sr *indices.Series) exporter.SummaryRow {
	row := exporter.SummaryRow{
		Index:       sr.Index,
		Granularity: sr.Granularity.String(),
		Mean:        math.NaN(),
		StdDev:      math.NaN(),
		Min:         math.NaN(),
		Max:         math.NaN(),
		Trend:       math.NaN(),
	}

	var xs, ys []float64
	for i, v := range sr.Values {
		if math.IsNaN(v) {
			continue
		}
		xs = append(xs, float64(i))
		ys = append(ys, v)
	}
	row.Count = len(ys)
	if len(ys) == 0 {
		return row
	}

	row.Mean = stat.Mean(ys, nil)
	row.Min = floats.Min(ys)
	row.Max = floats.Max(ys)
	if len(ys) >= 2 {
		row.StdDev = stat.StdDev(ys, nil)
		_, row.Trend = stat.LinearRegression(xs, ys, nil, false)
	}
	return row
}

// ResultsToSeries rebuilds index series from stored run results so
// reports can be generated for past runs. Rows are grouped by index and
// granularity in their stored order.
func ResultsToSeries(results []store.IndexResult) ([]*indices.Series, error) {
	type seriesKey struct {
		index       string
		granularity string
	}
	grouped := make(map[seriesKey]*indices.Series)
	var order []seriesKey

	for _, res := range results {
		g, err := climate.ParseGranularity(res.Granularity)
		if err != nil {
			return nil, err
		}
		key := seriesKey{index: res.Index, granularity: res.Granularity}
		sr, ok := grouped[key]
		if !ok {
			sr = &indices.Series{
				Index:       res.Index,
				Variable:    res.Variable,
				Granularity: g,
			}
			grouped[key] = sr
			order = append(order, key)
		}
		value := math.NaN()
		if res.Value != nil {
			value = *res.Value
		}
		sr.Labels = append(sr.Labels, res.GroupLabel)
		sr.Values = append(sr.Values, value)
	}

	out := make([]*indices.Series, 0, len(order))
	for _, key := range order {
		out = append(out, grouped[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return out[i].Granularity < out[j].Granularity
	})
	return out, nil
}
