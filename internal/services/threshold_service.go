package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"climex/internal/climate"
	"climex/internal/config"
)

// ErrNoObservations is returned when a requested variable has no stored
// series.
var ErrNoObservations = errors.New("no observations")

// ThresholdSet is the exportable view of one variable's percentile
// thresholds: one out-of-base curve per quantile, indexed by day of
// year. Sets survive a CSV or JSON round trip and can be rebuilt into
// engine quantile sets for precomputed-threshold runs.
type ThresholdSet struct {
	StationID   string               `json:"station_id"`
	Variable    string               `json:"variable"`
	Calendar    string               `json:"calendar"`
	Base        climate.BaseRange    `json:"base"`
	DaysPerYear int                  `json:"days_per_year"`
	Quantiles   []float64            `json:"quantiles"`
	Curves      map[string][]float64 `json:"curves"`
}

// quantileKey names a curve after its percentile, e.g. 0.9 -> "q90".
func quantileKey(p float64) string {
	return "q" + strconv.FormatFloat(p*100, 'g', -1, 64)
}

// ToQuantileSet rebuilds an engine quantile set from the exported form.
// The result carries no bootstrap cube: precomputed thresholds apply
// uniformly, which is exactly the caller-supplied-threshold contract.
func (t *ThresholdSet) ToQuantileSet() (*climate.QuantileSet, error) {
	outbase := make([][]float64, len(t.Quantiles))
	for i, p := range t.Quantiles {
		curve, ok := t.Curves[quantileKey(p)]
		if !ok {
			return nil, fmt.Errorf("threshold set %s/%s: missing curve %s",
				t.StationID, t.Variable, quantileKey(p))
		}
		outbase[i] = curve
	}
	return climate.NewQuantileSet(t.DaysPerYear, t.Quantiles, outbase, nil)
}

// ThresholdService computes percentile threshold curves for stored
// stations. Results are memoized per session through the engine's
// quantile cache.
type ThresholdService struct {
	stations StationStore
	obs      ObservationStore
	cfg      *config.Config
	logger   *slog.Logger
}

// NewThresholdService creates a ThresholdService.
func NewThresholdService(stations StationStore, obs ObservationStore, cfg *config.Config, logger *slog.Logger) *ThresholdService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ThresholdService{
		stations: stations,
		obs:      obs,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "threshold_service")),
	}
}

// StationThresholds computes the out-of-base percentile curves for a
// station. An empty variables list selects every stored variable with a
// default quantile list; base nil uses the configured default period.
func (s *ThresholdService) StationThresholds(ctx context.Context, stationID string, variables []string, base *climate.BaseRange) ([]*ThresholdSet, error) {
	defer s.logIfSlow(stationID, time.Now())

	station, err := s.stations.GetByID(ctx, stationID)
	if err != nil {
		return nil, fmt.Errorf("station %s: %w", stationID, err)
	}
	calendar, err := climate.ParseCalendar(station.Calendar)
	if err != nil {
		return nil, fmt.Errorf("station %s: %w", stationID, err)
	}

	explicit := len(variables) > 0
	if !explicit {
		stored, err := s.obs.Variables(ctx, stationID)
		if err != nil {
			return nil, err
		}
		for _, v := range stored {
			if classForVariable(v) != climate.ClassOther {
				variables = append(variables, v)
			}
		}
	}
	if len(variables) == 0 {
		return nil, fmt.Errorf("station %s: %w", stationID, ErrNoObservations)
	}

	var vars []climate.VariableSeries
	for _, name := range variables {
		rows, err := s.obs.ListSeries(ctx, stationID, name)
		if err != nil {
			return nil, fmt.Errorf("load %s series: %w", name, err)
		}
		if len(rows) == 0 {
			if explicit {
				return nil, fmt.Errorf("station %s variable %s: %w", stationID, name, ErrNoObservations)
			}
			continue
		}
		vars = append(vars, climate.VariableSeries{
			Name:         name,
			Class:        classForVariable(name),
			Calendar:     calendar,
			Observations: toObservations(rows),
		})
	}
	if len(vars) == 0 {
		return nil, fmt.Errorf("station %s: %w", stationID, ErrNoObservations)
	}

	cc, err := s.cfg.ClimateConfig()
	if err != nil {
		return nil, err
	}
	cc.NorthernHemisphere = station.Latitude >= 0

	baseRange := s.cfg.BaseRange()
	if base != nil {
		baseRange = *base
	}
	session, err := climate.NewSession(vars, baseRange, cc, s.logger)
	if err != nil {
		return nil, err
	}

	sets := make([]*ThresholdSet, 0, len(vars))
	for _, v := range vars {
		quantiles := cc.QuantilesFor(v.Class)
		if quantiles == nil {
			return nil, climate.ValidationError{
				Field:   "variable",
				Message: fmt.Sprintf("variable %q has no default quantile list", v.Name),
				Value:   v.Name,
			}
		}
		// Export carries out-of-base curves only, so the cube is skipped.
		qs, err := session.QuantilesWith(v.Name, quantiles, true)
		if err != nil {
			return nil, err
		}
		sets = append(sets, flattenQuantileSet(stationID, v.Name, calendar, baseRange, qs))
	}
	return sets, nil
}

func flattenQuantileSet(stationID, variable string, calendar climate.Calendar, base climate.BaseRange, qs *climate.QuantileSet) *ThresholdSet {
	curves := make(map[string][]float64, len(qs.Quantiles()))
	for _, p := range qs.Quantiles() {
		curve, _ := qs.Outbase(p)
		curves[quantileKey(p)] = curve
	}
	return &ThresholdSet{
		StationID:   stationID,
		Variable:    variable,
		Calendar:    calendar.String(),
		Base:        base,
		DaysPerYear: qs.DaysPerYear(),
		Quantiles:   qs.Quantiles(),
		Curves:      curves,
	}
}

// thresholdHeaders is the flat CSV layout threshold sets are dumped in.
var thresholdHeaders = []string{
	"station_id", "variable", "calendar",
	"base_start", "base_end", "days_per_year",
	"quantile", "day", "value",
}

// ThresholdRecords flattens sets into CSV headers and records. Missing
// thresholds (masked window days) become empty cells.
func ThresholdRecords(sets []*ThresholdSet) ([]string, [][]string) {
	var rows [][]string
	for _, set := range sets {
		for _, p := range set.Quantiles {
			curve := set.Curves[quantileKey(p)]
			for day, value := range curve {
				cell := ""
				if !math.IsNaN(value) {
					cell = strconv.FormatFloat(value, 'g', -1, 64)
				}
				rows = append(rows, []string{
					set.StationID,
					set.Variable,
					set.Calendar,
					strconv.Itoa(set.Base.StartYear),
					strconv.Itoa(set.Base.EndYear),
					strconv.Itoa(set.DaysPerYear),
					strconv.FormatFloat(p, 'g', -1, 64),
					strconv.Itoa(day + 1),
					cell,
				})
			}
		}
	}
	return thresholdHeaders, rows
}

// ParseThresholdRecords rebuilds threshold sets from records produced by
// ThresholdRecords. headers must match the dump layout.
func ParseThresholdRecords(headers []string, rows [][]string) ([]*ThresholdSet, error) {
	if len(headers) != len(thresholdHeaders) {
		return nil, fmt.Errorf("threshold records: expected %d columns, got %d", len(thresholdHeaders), len(headers))
	}
	for i, h := range thresholdHeaders {
		if headers[i] != h {
			return nil, fmt.Errorf("threshold records: column %d is %q, want %q", i, headers[i], h)
		}
	}

	type setKey struct{ station, variable string }
	sets := make(map[setKey]*ThresholdSet)
	var order []setKey

	for i, row := range rows {
		if len(row) != len(thresholdHeaders) {
			return nil, fmt.Errorf("threshold records: row %d has %d fields", i+1, len(row))
		}
		baseStart, err := strconv.Atoi(row[3])
		if err != nil {
			return nil, fmt.Errorf("threshold records: row %d base_start: %w", i+1, err)
		}
		baseEnd, err := strconv.Atoi(row[4])
		if err != nil {
			return nil, fmt.Errorf("threshold records: row %d base_end: %w", i+1, err)
		}
		days, err := strconv.Atoi(row[5])
		if err != nil {
			return nil, fmt.Errorf("threshold records: row %d days_per_year: %w", i+1, err)
		}
		p, err := strconv.ParseFloat(row[6], 64)
		if err != nil {
			return nil, fmt.Errorf("threshold records: row %d quantile: %w", i+1, err)
		}
		day, err := strconv.Atoi(row[7])
		if err != nil {
			return nil, fmt.Errorf("threshold records: row %d day: %w", i+1, err)
		}
		if day < 1 || day > days {
			return nil, fmt.Errorf("threshold records: row %d day %d out of range 1..%d", i+1, day, days)
		}

		key := setKey{station: row[0], variable: row[1]}
		set, ok := sets[key]
		if !ok {
			set = &ThresholdSet{
				StationID:   row[0],
				Variable:    row[1],
				Calendar:    row[2],
				Base:        climate.BaseRange{StartYear: baseStart, EndYear: baseEnd},
				DaysPerYear: days,
				Curves:      make(map[string][]float64),
			}
			sets[key] = set
			order = append(order, key)
		}

		curveKey := quantileKey(p)
		curve, ok := set.Curves[curveKey]
		if !ok {
			curve = make([]float64, days)
			for d := range curve {
				curve[d] = math.NaN()
			}
			set.Curves[curveKey] = curve
			set.Quantiles = append(set.Quantiles, p)
		}

		value := math.NaN()
		if row[8] != "" {
			value, err = strconv.ParseFloat(row[8], 64)
			if err != nil {
				return nil, fmt.Errorf("threshold records: row %d value: %w", i+1, err)
			}
		}
		curve[day-1] = value
	}

	out := make([]*ThresholdSet, 0, len(order))
	for _, key := range order {
		set := sets[key]
		sort.Float64s(set.Quantiles)
		out = append(out, set)
	}
	return out, nil
}

// logIfSlow logs when threshold computation is likely to dominate a
// request, so operators can see why a call is slow.
func (s *ThresholdService) logIfSlow(stationID string, started time.Time) {
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		s.logger.Info("threshold computation was slow",
			slog.String("station_id", stationID),
			slog.Duration("elapsed", elapsed))
	}
}
