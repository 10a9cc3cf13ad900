package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"climex/internal/climate"
	"climex/internal/config"
	"climex/internal/exporter"
	"climex/internal/indices"
	"climex/internal/infrastructure"
	"climex/internal/services"
	"climex/internal/store"
)

func main() {
	station := flag.String("station", "", "station id to read from the database")
	runID := flag.String("run", "", "rebuild the report from a stored run's results")
	tmaxPath := flag.String("tmax", "", "daily maximum temperature CSV (date,value)")
	tminPath := flag.String("tmin", "", "daily minimum temperature CSV (date,value)")
	tavgPath := flag.String("tavg", "", "daily mean temperature CSV (date,value)")
	precPath := flag.String("prec", "", "daily precipitation CSV (date,value)")
	calendarName := flag.String("calendar", "gregorian", "calendar for file input: gregorian, 365_day, 360_day")
	indexList := flag.String("indices", "", "comma-separated index names (default: full catalog)")
	granList := flag.String("granularities", "annual", "comma-separated granularities: annual, halfyear, seasonal, monthly")
	baseFlag := flag.String("base", "", "base period override, e.g. 1961-1990")
	thresholdsPath := flag.String("thresholds", "", "precomputed threshold CSV from climex-thresholds")
	outDir := flag.String("out", "report", "output directory for CSV files")
	xlsxPath := flag.String("xlsx", "", "also write an Excel workbook to this path")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(infrastructure.LoggerConfig{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		Output:   cfg.Logging.Output,
		FilePath: cfg.Logging.FilePath,
	})
	if err != nil {
		slog.Warn("failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	names := splitList(*indexList)
	if len(names) == 0 {
		names = indices.Names()
	}
	grans, err := parseGranularities(*granList)
	if err != nil {
		logger.Error("invalid granularity list", "error", err)
		os.Exit(1)
	}

	base := cfg.BaseRange()
	if override, err := parseBaseFlag(*baseFlag); err != nil {
		logger.Error("invalid base period", "error", err)
		os.Exit(1)
	} else if override != nil {
		base = *override
	}

	files := make(map[string]string)
	for name, path := range map[string]string{
		indices.VarTmax: *tmaxPath,
		indices.VarTmin: *tminPath,
		indices.VarTavg: *tavgPath,
		indices.VarPrec: *precPath,
	} {
		if path != "" {
			files[name] = path
		}
	}

	ctx := context.Background()

	var (
		vars     []climate.VariableSeries
		series   []*indices.Series
		meta     exporter.ReportMeta
		calendar string
	)
	switch {
	case *runID != "" && (*station != "" || len(files) > 0):
		logger.Error("-run replaces -station and observation files")
		os.Exit(1)
	case *station != "" && len(files) > 0:
		logger.Error("pass either -station or observation files, not both")
		os.Exit(1)
	case *runID != "":
		series, meta, err = runInput(ctx, cfg, *runID)
	case *station != "":
		vars, meta, err = databaseInput(ctx, cfg, *station, names)
	case len(files) > 0:
		vars, meta, err = fileInput(files, *calendarName)
	default:
		fmt.Fprintln(os.Stderr, "climex-report needs -station, -run, or at least one observation file")
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("failed to load input", "error", err)
		os.Exit(1)
	}
	calendar = meta.Calendar
	if meta.BaseRange == "" {
		meta.BaseRange = base.String()
	}
	meta.GeneratedAt = time.Now().UTC()

	if series == nil {
		engineCfg, err := cfg.ClimateConfig()
		if err != nil {
			logger.Error("invalid engine configuration", "error", err)
			os.Exit(1)
		}

		session, err := climate.NewSession(vars, base, engineCfg, logger)
		if err != nil {
			logger.Error("failed to build session", "error", err)
			os.Exit(1)
		}

		if *thresholdsPath != "" {
			if err := applyThresholds(session, *thresholdsPath, vars); err != nil {
				logger.Error("failed to apply precomputed thresholds", "path", *thresholdsPath, "error", err)
				os.Exit(1)
			}
			logger.Info("precomputed thresholds applied", slog.String("path", *thresholdsPath))
		}

		series = computeSeries(session, names, grans, logger)
	}
	if len(series) == 0 {
		logger.Error("no indices could be computed")
		os.Exit(1)
	}

	reportSvc := services.NewReportService(logger)
	report := reportSvc.BuildReport(meta, series)

	csvw := exporter.NewCSVWriter(*outDir)
	rep := exporter.NewReportExporter(csvw)
	if err := rep.WriteTables("", report.Tables); err != nil {
		logger.Error("failed to write index tables", "error", err)
		os.Exit(1)
	}
	if err := rep.WriteResults("results.csv", series); err != nil {
		logger.Error("failed to write results listing", "error", err)
		os.Exit(1)
	}
	if err := writeSummary(csvw, report.Summaries); err != nil {
		logger.Error("failed to write summary", "error", err)
		os.Exit(1)
	}

	if *xlsxPath != "" {
		if err := exporter.NewWorkbookExporter().WriteWorkbook(*xlsxPath, report); err != nil {
			logger.Error("failed to write workbook", "path", *xlsxPath, "error", err)
			os.Exit(1)
		}
	}

	logger.Info("report written",
		slog.String("dir", *outDir),
		slog.String("calendar", calendar),
		slog.String("base", meta.BaseRange),
		slog.Int("series", len(series)),
		slog.Int("tables", len(report.Tables)))
}

// runInput rebuilds the series of a completed run from its stored
// results so the report can be regenerated without recomputing.
func runInput(ctx context.Context, cfg *config.Config, runID string) ([]*indices.Series, exporter.ReportMeta, error) {
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, exporter.ReportMeta{}, fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	runs := store.NewRunRepository(pool)
	run, err := runs.GetByID(ctx, runID)
	if err != nil {
		return nil, exporter.ReportMeta{}, fmt.Errorf("run %s: %w", runID, err)
	}
	if run.Status != store.RunCompleted {
		return nil, exporter.ReportMeta{}, fmt.Errorf("run %s is %s, not completed", runID, run.Status)
	}
	results, err := runs.ListResults(ctx, runID)
	if err != nil {
		return nil, exporter.ReportMeta{}, fmt.Errorf("run %s results: %w", runID, err)
	}
	series, err := services.ResultsToSeries(results)
	if err != nil {
		return nil, exporter.ReportMeta{}, err
	}

	station, err := store.NewStationRepository(pool).GetByID(ctx, run.StationID)
	if err != nil {
		return nil, exporter.ReportMeta{}, fmt.Errorf("station %s: %w", run.StationID, err)
	}
	base := climate.BaseRange{StartYear: run.BaseStart, EndYear: run.BaseEnd}
	meta := exporter.ReportMeta{
		StationID:   station.ID,
		StationName: station.Name,
		Calendar:    station.Calendar,
		BaseRange:   base.String(),
	}
	return series, meta, nil
}

// databaseInput loads the variables the requested indices need from the
// station's stored series.
func databaseInput(ctx context.Context, cfg *config.Config, stationID string, names []string) ([]climate.VariableSeries, exporter.ReportMeta, error) {
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, exporter.ReportMeta{}, fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	stations := store.NewStationRepository(pool)
	observations := store.NewObservationRepository(pool)

	station, err := stations.GetByID(ctx, stationID)
	if err != nil {
		return nil, exporter.ReportMeta{}, fmt.Errorf("station %s: %w", stationID, err)
	}
	cal, err := climate.ParseCalendar(station.Calendar)
	if err != nil {
		return nil, exporter.ReportMeta{}, err
	}

	var vars []climate.VariableSeries
	for _, name := range neededVariables(names) {
		rows, err := observations.ListSeries(ctx, stationID, name)
		if err != nil {
			return nil, exporter.ReportMeta{}, fmt.Errorf("load %s: %w", name, err)
		}
		if len(rows) == 0 {
			continue
		}
		vars = append(vars, climate.VariableSeries{
			Name:         name,
			Class:        classForVariable(name),
			Calendar:     cal,
			Observations: toClimateObservations(rows),
		})
	}

	meta := exporter.ReportMeta{
		StationID:   station.ID,
		StationName: station.Name,
		Calendar:    station.Calendar,
	}
	return vars, meta, nil
}

// fileInput loads each flagged observation file as one variable series.
func fileInput(files map[string]string, calendarName string) ([]climate.VariableSeries, exporter.ReportMeta, error) {
	cal, err := climate.ParseCalendar(calendarName)
	if err != nil {
		return nil, exporter.ReportMeta{}, err
	}

	var vars []climate.VariableSeries
	for variable, path := range files {
		rows, err := loadSeriesCSV(path, variable)
		if err != nil {
			return nil, exporter.ReportMeta{}, fmt.Errorf("load %s: %w", path, err)
		}
		vars = append(vars, climate.VariableSeries{
			Name:         variable,
			Class:        classForVariable(variable),
			Calendar:     cal,
			Observations: toClimateObservations(rows),
		})
	}

	meta := exporter.ReportMeta{
		StationID:   "local",
		StationName: "local input",
		Calendar:    calendarName,
	}
	return vars, meta, nil
}

// applyThresholds loads a climex-thresholds CSV and pins its curves on
// the session, replacing in-base computation for the covered variables.
func applyThresholds(session *climate.Session, path string, vars []climate.VariableSeries) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("threshold file is empty")
	}
	records[0][0] = strings.TrimPrefix(records[0][0], "\uFEFF")

	sets, err := services.ParseThresholdRecords(records[0], records[1:])
	if err != nil {
		return err
	}

	loaded := make(map[string]bool, len(vars))
	for _, v := range vars {
		loaded[v.Name] = true
	}
	for _, set := range sets {
		if !loaded[set.Variable] {
			continue
		}
		qs, err := set.ToQuantileSet()
		if err != nil {
			return err
		}
		if err := session.SetPrecomputedQuantiles(set.Variable, qs); err != nil {
			return fmt.Errorf("variable %s: %w", set.Variable, err)
		}
	}
	return nil
}

// computeSeries evaluates every requested index and granularity pair.
// Unsupported pairs are skipped; a failing index is logged and dropped
// so one bad series does not sink the report.
func computeSeries(session *climate.Session, names []string, grans []climate.Granularity, logger *slog.Logger) []*indices.Series {
	var out []*indices.Series
	for _, name := range names {
		def, ok := indices.Lookup(name)
		if !ok {
			logger.Warn("unknown index", slog.String("index", name))
			continue
		}
		for _, g := range grans {
			if !def.SupportsGranularity(g) {
				continue
			}
			s, err := indices.Compute(session, def.Name, g)
			if err != nil {
				logger.Warn("index failed",
					slog.String("index", def.Name),
					slog.String("granularity", g.String()),
					slog.String("error", err.Error()))
				continue
			}
			out = append(out, s)
		}
	}
	return out
}

// neededVariables is the union of input variables over the requested
// indices, in catalog order.
func neededVariables(names []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range names {
		def, ok := indices.Lookup(name)
		if !ok {
			continue
		}
		for _, v := range def.Variables {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

func classForVariable(name string) climate.VariableClass {
	switch name {
	case indices.VarTmax, indices.VarTmin:
		return climate.ClassTemperature
	case indices.VarPrec:
		return climate.ClassPrecipitation
	default:
		return climate.ClassOther
	}
}

func toClimateObservations(rows []store.Observation) []climate.Observation {
	out := make([]climate.Observation, len(rows))
	for i, row := range rows {
		value := math.NaN()
		if row.Value != nil {
			value = *row.Value
		}
		out[i] = climate.Observation{
			Date:  climate.NewDate(row.Year, time.Month(row.Month), row.Day),
			Value: value,
		}
	}
	return out
}

func writeSummary(csvw *exporter.CSVWriter, rows []exporter.SummaryRow) error {
	headers := []string{"index", "granularity", "count", "mean", "stddev", "min", "max", "trend"}
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = []string{
			r.Index,
			r.Granularity,
			strconv.Itoa(r.Count),
			formatFloat(r.Mean),
			formatFloat(r.StdDev),
			formatFloat(r.Min),
			formatFloat(r.Max),
			formatFloat(r.Trend),
		}
	}
	return csvw.WriteSimpleCSV("summary.csv", headers, records)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// loadSeriesCSV reads date,value rows. An empty or NA value cell marks
// the day missing. Dates are split by hand so 360-day calendar dates
// like 1961-02-30 load without a Go time parse.
func loadSeriesCSV(path, variable string) ([]store.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var rows []store.Observation
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("row %d: want date,value", line)
		}

		year, month, day, err := parseObsDate(record[0])
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("row %d: %w", line, err)
		}

		obs := store.Observation{
			StationID: "local",
			Variable:  variable,
			Year:      year,
			Month:     month,
			Day:       day,
		}
		cell := strings.TrimSpace(record[1])
		if cell != "" && !strings.EqualFold(cell, "na") {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: value %q: %w", line, cell, err)
			}
			obs.Value = &v
		}
		rows = append(rows, obs)
	}
	return rows, nil
}

func parseObsDate(s string) (year, month, day int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("date %q is not YYYY-MM-DD", s)
	}
	if year, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, 0, fmt.Errorf("date %q: %w", s, err)
	}
	if month, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, 0, fmt.Errorf("date %q: %w", s, err)
	}
	if day, err = strconv.Atoi(parts[2]); err != nil {
		return 0, 0, 0, fmt.Errorf("date %q: %w", s, err)
	}
	return year, month, day, nil
}

func parseGranularities(s string) ([]climate.Granularity, error) {
	parts := splitList(s)
	if len(parts) == 0 {
		return []climate.Granularity{climate.GranularityAnnual}, nil
	}
	out := make([]climate.Granularity, 0, len(parts))
	for _, p := range parts {
		g, err := climate.ParseGranularity(p)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func parseBaseFlag(s string) (*climate.BaseRange, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return nil, fmt.Errorf("base period must be start-end, e.g. 1961-1990")
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("base start year: %w", err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("base end year: %w", err)
	}
	base := climate.BaseRange{StartYear: start, EndYear: end}
	if !base.IsValid() {
		return nil, fmt.Errorf("base period %q is not a valid year range", s)
	}
	return &base, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
