package climate

import (
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Session is the immutable product of ingesting one or more variable series:
// a canonical gap-filled date axis, NaN-densified per-variable values,
// precomputed grouping factors and a shared quantile cache. A Session is
// safe for concurrent readers once constructed.
type Session struct {
	calendar  Calendar
	dates     []Date
	dayOfYear []int
	years     []int
	months    []time.Month
	inBase    []bool

	factors       map[Granularity]*DateFactor
	rotatedAnnual *DateFactor

	names   []string
	values  map[string][]float64
	classes map[string]VariableClass

	base   BaseRange
	cfg    Config
	logger *slog.Logger

	cache       *QuantileCache
	precomputed map[string]*QuantileSet
}

// NewSession validates the inputs once and builds the canonical series. The
// date axis runs from January 1 of the earliest observed year through the
// last day of the latest observed year; days without an observation carry
// NaN. All variables must share one calendar.
func NewSession(vars []VariableSeries, base BaseRange, cfg Config, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !base.IsValid() {
		return nil, ValidationError{Field: "base_range", Message: fmt.Sprintf("invalid base range %s", base), Value: base}
	}
	if len(vars) == 0 {
		return nil, ValidationError{Field: "variables", Message: "at least one variable series is required"}
	}

	calendar := vars[0].Calendar
	if !calendar.IsValid() {
		return nil, ValidationError{Field: "calendar", Message: fmt.Sprintf("invalid calendar value %d", int(calendar)), Value: calendar}
	}

	seen := make(map[string]bool, len(vars))
	minYear, maxYear := 0, 0
	for _, v := range vars {
		if v.Name == "" {
			return nil, ValidationError{Field: "name", Message: "variable name must not be empty"}
		}
		if seen[v.Name] {
			return nil, ValidationError{Field: "name", Message: fmt.Sprintf("duplicate variable %q", v.Name), Value: v.Name}
		}
		seen[v.Name] = true
		if !v.Class.IsValid() {
			return nil, ValidationError{Field: "class", Message: fmt.Sprintf("variable %q has invalid class", v.Name), Value: v.Class}
		}
		if v.Calendar != calendar {
			return nil, &CalendarMismatchError{Variable: v.Name, Got: v.Calendar, Want: calendar}
		}
		if len(v.Observations) == 0 {
			return nil, ValidationError{Field: "observations", Message: fmt.Sprintf("variable %q has no observations", v.Name)}
		}
		for _, obs := range v.Observations {
			if !calendar.ValidDate(obs.Date) {
				return nil, ValidationError{
					Field:   "date",
					Message: fmt.Sprintf("variable %q: date %s is not valid in calendar %s", v.Name, obs.Date, calendar),
					Value:   obs.Date,
				}
			}
			if minYear == 0 || obs.Date.Year < minYear {
				minYear = obs.Date.Year
			}
			if obs.Date.Year > maxYear {
				maxYear = obs.Date.Year
			}
		}
	}

	first := calendar.YearStart(minYear)
	last := calendar.YearEnd(maxYear)
	n := calendar.DaysBetween(first, last) + 1

	s := &Session{
		calendar:    calendar,
		dates:       make([]Date, n),
		dayOfYear:   make([]int, n),
		years:       make([]int, n),
		months:      make([]time.Month, n),
		inBase:      make([]bool, n),
		names:       make([]string, 0, len(vars)),
		values:      make(map[string][]float64, len(vars)),
		classes:     make(map[string]VariableClass, len(vars)),
		base:        base,
		cfg:         cfg,
		logger:      logger,
		cache:       NewQuantileCache(),
		precomputed: make(map[string]*QuantileSet),
	}

	d := first
	for i := 0; i < n; i++ {
		s.dates[i] = d
		s.dayOfYear[i] = calendar.DayOfYear(d)
		s.years[i] = d.Year
		s.months[i] = d.Month
		s.inBase[i] = base.ContainsYear(d.Year)
		d = calendar.Next(d)
	}

	for _, v := range vars {
		values := make([]float64, n)
		for i := range values {
			values[i] = math.NaN()
		}
		filled := make([]bool, n)
		for _, obs := range v.Observations {
			pos := calendar.DaysBetween(first, obs.Date)
			if filled[pos] {
				return nil, ValidationError{
					Field:   "date",
					Message: fmt.Sprintf("variable %q: duplicate observation for %s", v.Name, obs.Date),
					Value:   obs.Date,
				}
			}
			filled[pos] = true
			values[pos] = obs.Value
		}
		s.names = append(s.names, v.Name)
		s.values[v.Name] = values
		s.classes[v.Name] = v.Class
	}

	s.factors = map[Granularity]*DateFactor{
		GranularityAnnual:   AnnualFactor(s.dates),
		GranularityHalfYear: HalfYearFactor(s.dates),
		GranularitySeasonal: SeasonalFactor(s.dates),
		GranularityMonthly:  MonthlyFactor(s.dates),
	}
	s.rotatedAnnual = RotatedAnnualFactor(s.dates)

	logger.Info("climate session created",
		"calendar", calendar.String(),
		"variables", len(vars),
		"days", n,
		"span", fmt.Sprintf("%d-%d", minYear, maxYear),
		"base_range", base.String(),
	)
	return s, nil
}

// Len returns the number of days on the canonical date axis
func (s *Session) Len() int {
	return len(s.dates)
}

// Calendar returns the session calendar
func (s *Session) Calendar() Calendar {
	return s.calendar
}

// Base returns the baseline year range
func (s *Session) Base() BaseRange {
	return s.base
}

// Config returns the session configuration
func (s *Session) Config() Config {
	return s.cfg
}

// Dates returns the canonical date axis. Callers must not modify the
// returned slice.
func (s *Session) Dates() []Date {
	return s.dates
}

// DayOfYear returns the folded 1-based day-of-year index per day. Callers
// must not modify the returned slice.
func (s *Session) DayOfYear() []int {
	return s.dayOfYear
}

// Years returns the calendar year per day. Callers must not modify the
// returned slice.
func (s *Session) Years() []int {
	return s.years
}

// Months returns the month per day. Callers must not modify the returned
// slice.
func (s *Session) Months() []time.Month {
	return s.months
}

// InBase returns per-day baseline membership. Callers must not modify the
// returned slice.
func (s *Session) InBase() []bool {
	return s.inBase
}

// Variables returns the variable names in insertion order
func (s *Session) Variables() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Class returns the class of a variable
func (s *Session) Class(variable string) (VariableClass, bool) {
	c, ok := s.classes[variable]
	return c, ok
}

// Values returns the densified daily values of a variable aligned with
// Dates(). Callers must not modify the returned slice.
func (s *Session) Values(variable string) ([]float64, error) {
	v, ok := s.values[variable]
	if !ok {
		return nil, &UnknownVariableError{Variable: variable}
	}
	return v, nil
}

// Factor returns the precomputed grouping factor for a granularity
func (s *Session) Factor(g Granularity) *DateFactor {
	return s.factors[g]
}

// HemisphereAnnualFactor returns the calendar-year factor for northern
// sessions and the July-to-June rotated factor for southern ones.
func (s *Session) HemisphereAnnualFactor() *DateFactor {
	if s.cfg.NorthernHemisphere {
		return s.factors[GranularityAnnual]
	}
	return s.rotatedAnnual
}

// TransitionMonth returns the month that opens the second half of the
// growing-season year: July in the north, January in the rotated southern
// year.
func (s *Session) TransitionMonth() time.Month {
	if s.cfg.NorthernHemisphere {
		return time.July
	}
	return time.January
}

// ValidMask returns the per-group validity mask of a variable at a
// granularity, applying the configured missing-day tolerance.
func (s *Session) ValidMask(variable string, g Granularity) ([]bool, error) {
	values, err := s.Values(variable)
	if err != nil {
		return nil, err
	}
	missing := MissingMask(values)
	return GroupValidMask(missing, s.factors[g], s.cfg.Tolerances.For(g)), nil
}

// GrowingSeasonValidMask returns the annual validity mask used for
// growing-season values: the annual tolerance must hold and every
// constituent month must also pass the monthly tolerance.
func (s *Session) GrowingSeasonValidMask(variable string) ([]bool, error) {
	values, err := s.Values(variable)
	if err != nil {
		return nil, err
	}
	missing := MissingMask(values)
	return AnnualValidMaskWithMonths(
		missing,
		s.HemisphereAnnualFactor(),
		s.factors[GranularityMonthly],
		s.cfg.Tolerances.Annual,
		s.cfg.Tolerances.Monthly,
	), nil
}

// SetPrecomputedQuantiles installs a caller-supplied threshold set for a
// variable, bypassing computation from the session data. The set must match
// the session calendar's days-per-year.
func (s *Session) SetPrecomputedQuantiles(variable string, qs *QuantileSet) error {
	if _, ok := s.values[variable]; !ok {
		return &UnknownVariableError{Variable: variable}
	}
	if qs == nil {
		return ValidationError{Field: "quantiles", Message: "precomputed quantile set must not be nil"}
	}
	if qs.DaysPerYear() != s.calendar.DaysPerYear() {
		return ValidationError{
			Field:   "quantiles",
			Message: fmt.Sprintf("precomputed set covers %d days per year, calendar %s needs %d", qs.DaysPerYear(), s.calendar, s.calendar.DaysPerYear()),
			Value:   qs.DaysPerYear(),
		}
	}
	s.precomputed[variable] = qs
	return nil
}

// Quantiles returns the threshold set for a variable using its class
// default quantile list. Precomputed sets installed with
// SetPrecomputedQuantiles take precedence; otherwise results are memoized
// in the session cache. The bootstrap cube is computed for temperature
// variables only.
func (s *Session) Quantiles(variable string) (*QuantileSet, error) {
	class, ok := s.classes[variable]
	if !ok {
		return nil, &UnknownVariableError{Variable: variable}
	}
	quantiles := s.cfg.QuantilesFor(class)
	if quantiles == nil {
		return nil, ValidationError{
			Field:   "quantiles",
			Message: fmt.Sprintf("variable %q has no default quantile list; use QuantilesWith", variable),
			Value:   variable,
		}
	}
	return s.QuantilesWith(variable, quantiles, class != ClassTemperature)
}

// QuantilesWith returns the threshold set for a variable with an explicit
// quantile list. skipBootstrap suppresses the within-base cube for indices
// that never compare base-period days against their own thresholds.
func (s *Session) QuantilesWith(variable string, quantiles []float64, skipBootstrap bool) (*QuantileSet, error) {
	if qs, ok := s.precomputed[variable]; ok {
		return qs, nil
	}
	values, err := s.Values(variable)
	if err != nil {
		return nil, err
	}
	if err := validateQuantileList("quantiles", quantiles); err != nil {
		return nil, err
	}
	key := NewCacheKey(s.calendar, s.base, s.cfg.WindowN, variable, quantiles)
	return s.cache.GetOrCompute(key, func() (*QuantileSet, error) {
		start := time.Now()
		qs, err := ComputeQuantiles(values, s.dayOfYear, s.years, s.calendar.DaysPerYear(), QuantileParams{
			Base:               s.base,
			WindowN:            s.cfg.WindowN,
			Quantiles:          quantiles,
			MinFractionPresent: s.cfg.MinFractionPresent,
			SkipBootstrap:      skipBootstrap,
			Variable:           variable,
		})
		if err != nil {
			return nil, err
		}
		s.logger.Debug("quantile thresholds computed",
			"variable", variable,
			"quantiles", len(quantiles),
			"bootstrap", qs.HasBootstrap(),
			"duration", time.Since(start).String(),
		)
		return qs, nil
	})
}

// CacheStats reports quantile cache hits and misses for the session
func (s *Session) CacheStats() (hits, misses int64) {
	return s.cache.Stats()
}
