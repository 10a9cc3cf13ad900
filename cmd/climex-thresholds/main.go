package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"climex/internal/climate"
	"climex/internal/config"
	"climex/internal/exporter"
	"climex/internal/infrastructure"
	"climex/internal/services"
	"climex/internal/store"
)

func main() {
	station := flag.String("station", "", "station id to read from the database")
	variables := flag.String("variables", "", "comma-separated variables (default: every stored variable with a default quantile list)")
	tmaxPath := flag.String("tmax", "", "daily maximum temperature CSV (date,value)")
	tminPath := flag.String("tmin", "", "daily minimum temperature CSV (date,value)")
	tavgPath := flag.String("tavg", "", "daily mean temperature CSV (date,value)")
	precPath := flag.String("prec", "", "daily precipitation CSV (date,value)")
	calendarName := flag.String("calendar", "gregorian", "calendar for file input: gregorian, 365_day, 360_day")
	baseFlag := flag.String("base", "", "base period override, e.g. 1961-1990")
	out := flag.String("out", "thresholds.csv", "output CSV path")
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

	base, err := parseBaseFlag(*baseFlag)
	if err != nil {
		logger.Error("invalid base period", "error", err)
		os.Exit(1)
	}

	files := make(map[string]string)
	for name, path := range map[string]string{
		"tmax": *tmaxPath,
		"tmin": *tminPath,
		"tavg": *tavgPath,
		"prec": *precPath,
	} {
		if path != "" {
			files[name] = path
		}
	}

	ctx := context.Background()
	vars := splitList(*variables)

	var sets []*services.ThresholdSet
	switch {
	case *station != "" && len(files) > 0:
		logger.Error("pass either -station or observation files, not both")
		os.Exit(1)
	case *station != "":
		sets, err = databaseThresholds(ctx, cfg, logger, *station, vars, base)
	case len(files) > 0:
		sets, err = fileThresholds(ctx, cfg, logger, files, *calendarName, vars, base)
	default:
		fmt.Fprintln(os.Stderr, "climex-thresholds needs -station or at least one observation file")
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("threshold computation failed", "error", err)
		os.Exit(1)
	}

	headers, rows := services.ThresholdRecords(sets)
	csvw := exporter.NewCSVWriter("")
	if err := csvw.WriteSimpleCSV(*out, headers, rows); err != nil {
		logger.Error("failed to write thresholds", "path", *out, "error", err)
		os.Exit(1)
	}

	logger.Info("thresholds written",
		slog.String("path", *out),
		slog.Int("sets", len(sets)),
		slog.Int("rows", len(rows)))
}

func databaseThresholds(ctx context.Context, cfg *config.Config, logger *slog.Logger, stationID string, vars []string, base *climate.BaseRange) ([]*services.ThresholdSet, error) {
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	svc := services.NewThresholdService(
		store.NewStationRepository(pool),
		store.NewObservationRepository(pool),
		cfg, logger)
	return svc.StationThresholds(ctx, stationID, vars, base)
}

// fileThresholds serves observation files through an in-memory store so
// the same threshold service handles both input modes.
func fileThresholds(ctx context.Context, cfg *config.Config, logger *slog.Logger, files map[string]string, calendar string, vars []string, base *climate.BaseRange) ([]*services.ThresholdSet, error) {
	ms := &memStore{
		station: &store.Station{ID: "local", Name: "local input", Calendar: calendar},
		series:  make(map[string][]store.Observation),
	}
	for variable, path := range files {
		rows, err := loadSeriesCSV(path, variable)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		ms.series[variable] = rows
	}

	svc := services.NewThresholdService(ms, ms, cfg, logger)
	return svc.StationThresholds(ctx, ms.station.ID, vars, base)
}

// memStore is a single-station observation source backed by loaded files.
type memStore struct {
	station *store.Station
	series  map[string][]store.Observation
}

func (m *memStore) GetByID(_ context.Context, id string) (*store.Station, error) {
	if id != m.station.ID {
		return nil, store.ErrNotFound
	}
	return m.station, nil
}

func (m *memStore) List(context.Context) ([]*store.Station, error) {
	return []*store.Station{m.station}, nil
}

func (m *memStore) ListSeries(_ context.Context, _, variable string) ([]store.Observation, error) {
	return m.series[variable], nil
}

func (m *memStore) Variables(_ context.Context, _ string) ([]string, error) {
	names := make([]string, 0, len(m.series))
	for name := range m.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
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
