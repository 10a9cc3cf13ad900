package climate

import (
	"fmt"
	"strconv"
	"time"
)

// Calendar identifies the calendar system a daily series is recorded in.
// Model output frequently uses fixed-length calendars, so the engine cannot
// assume Gregorian dates.
type Calendar int

const (
	// CalendarGregorian is the standard civil calendar with leap years.
	CalendarGregorian Calendar = iota
	// Calendar365Day is the "noleap" model calendar: every year has 365 days.
	Calendar365Day
	// Calendar360Day is the model calendar with twelve 30-day months.
	Calendar360Day
)

// ParseCalendar maps the common CF-convention calendar names onto the
// supported calendar set.
func ParseCalendar(s string) (Calendar, error) {
	switch s {
	case "gregorian", "standard", "proleptic_gregorian":
		return CalendarGregorian, nil
	case "365_day", "noleap":
		return Calendar365Day, nil
	case "360_day":
		return Calendar360Day, nil
	default:
		return 0, ValidationError{
			Field:   "calendar",
			Message: fmt.Sprintf("unsupported calendar %q", s),
			Value:   s,
		}
	}
}

// String returns the canonical CF name of the calendar
func (c Calendar) String() string {
	switch c {
	case CalendarGregorian:
		return "gregorian"
	case Calendar365Day:
		return "365_day"
	case Calendar360Day:
		return "360_day"
	default:
		return "unknown"
	}
}

// DaysPerYear returns the fixed day-of-year index length for the calendar.
// Gregorian leap days fold onto day 59, so the index length is 365 even in
// leap years.
func (c Calendar) DaysPerYear() int {
	if c == Calendar360Day {
		return 360
	}
	return 365
}

// IsValid checks the calendar is one of the supported values
func (c Calendar) IsValid() bool {
	return c == CalendarGregorian || c == Calendar365Day || c == Calendar360Day
}

// Date is a calendar-agnostic civil date. In a 360-day calendar dates such
// as February 30 are legal, so time.Time cannot represent the full domain.
type Date struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// NewDate constructs a Date without validation; use Calendar.ValidDate to
// check a date against a specific calendar.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(s string) (Date, error) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return Date{}, ValidationError{Field: "date", Message: fmt.Sprintf("invalid date %q, want YYYY-MM-DD", s), Value: s}
	}
	year, err := strconv.Atoi(s[0:4])
	if err != nil {
		return Date{}, ValidationError{Field: "date", Message: fmt.Sprintf("invalid year in %q", s), Value: s}
	}
	month, err := strconv.Atoi(s[5:7])
	if err != nil || month < 1 || month > 12 {
		return Date{}, ValidationError{Field: "date", Message: fmt.Sprintf("invalid month in %q", s), Value: s}
	}
	day, err := strconv.Atoi(s[8:10])
	if err != nil || day < 1 {
		return Date{}, ValidationError{Field: "date", Message: fmt.Sprintf("invalid day in %q", s), Value: s}
	}
	return Date{Year: year, Month: time.Month(month), Day: day}, nil
}

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Before reports whether d is chronologically before o
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// After reports whether d is chronologically after o
func (d Date) After(o Date) bool {
	return o.Before(d)
}

// Granularity is an aggregation bucket size for grouped index values.
type Granularity int

const (
	// GranularityAnnual groups by calendar year
	GranularityAnnual Granularity = iota
	// GranularityHalfYear groups October-March vs April-September with the
	// October-December months shifted into the following year's bucket
	GranularityHalfYear
	// GranularitySeasonal groups by meteorological season with December
	// shifted into the following year's DJF bucket
	GranularitySeasonal
	// GranularityMonthly groups by year and month
	GranularityMonthly
)

// Granularities lists all supported aggregation granularities in coarse to
// fine order.
func Granularities() []Granularity {
	return []Granularity{GranularityAnnual, GranularityHalfYear, GranularitySeasonal, GranularityMonthly}
}

// String returns the lowercase name of the granularity
func (g Granularity) String() string {
	switch g {
	case GranularityAnnual:
		return "annual"
	case GranularityHalfYear:
		return "halfyear"
	case GranularitySeasonal:
		return "seasonal"
	case GranularityMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// ParseGranularity maps a granularity name back to its enum value.
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "annual":
		return GranularityAnnual, nil
	case "halfyear":
		return GranularityHalfYear, nil
	case "seasonal":
		return GranularitySeasonal, nil
	case "monthly":
		return GranularityMonthly, nil
	default:
		return 0, ValidationError{Field: "granularity", Message: fmt.Sprintf("unknown granularity %q", s), Value: s}
	}
}

// IsValid checks the granularity is one of the supported values
func (g Granularity) IsValid() bool {
	return g >= GranularityAnnual && g <= GranularityMonthly
}

// VariableClass selects the default quantile list for a variable.
type VariableClass int

const (
	// ClassTemperature covers mean, maximum and minimum temperature series
	ClassTemperature VariableClass = iota
	// ClassPrecipitation covers daily precipitation totals
	ClassPrecipitation
	// ClassOther covers variables with no default quantile list (wind,
	// radiation); callers must supply quantiles explicitly
	ClassOther
)

// String returns the lowercase name of the variable class
func (vc VariableClass) String() string {
	switch vc {
	case ClassTemperature:
		return "temperature"
	case ClassPrecipitation:
		return "precipitation"
	case ClassOther:
		return "other"
	default:
		return "unknown"
	}
}

// ParseVariableClass maps a class name back to its enum value.
func ParseVariableClass(s string) (VariableClass, error) {
	switch s {
	case "temperature":
		return ClassTemperature, nil
	case "precipitation":
		return ClassPrecipitation, nil
	case "other":
		return ClassOther, nil
	default:
		return 0, ValidationError{Field: "class", Message: fmt.Sprintf("unknown variable class %q", s), Value: s}
	}
}

// IsValid checks the class is one of the supported values
func (vc VariableClass) IsValid() bool {
	return vc >= ClassTemperature && vc <= ClassOther
}

// Observation is a single dated value of one variable. Missing observations
// are simply absent from the input; the series builder fills the gaps with
// NaN markers.
type Observation struct {
	Date  Date    `json:"date"`
	Value float64 `json:"value"`
}

// VariableSeries is the raw input for one variable: a named, classed series
// of daily observations recorded against one calendar.
type VariableSeries struct {
	Name         string        `json:"name"`
	Class        VariableClass `json:"class"`
	Calendar     Calendar      `json:"calendar"`
	Observations []Observation `json:"observations"`
}

// BaseRange is the inclusive year range of the baseline period used for
// percentile thresholds.
type BaseRange struct {
	StartYear int `json:"start_year"`
	EndYear   int `json:"end_year"`
}

// IsValid checks the range is non-empty and chronologically ordered
func (b BaseRange) IsValid() bool {
	return b.StartYear > 0 && b.StartYear <= b.EndYear
}

// Years returns the number of years in the base range
func (b BaseRange) Years() int {
	return b.EndYear - b.StartYear + 1
}

// ContainsYear reports whether year falls inside the base range
func (b BaseRange) ContainsYear(year int) bool {
	return year >= b.StartYear && year <= b.EndYear
}

// String formats the range as "start-end"
func (b BaseRange) String() string {
	return fmt.Sprintf("%d-%d", b.StartYear, b.EndYear)
}

// MissingTolerances holds the maximum number of missing days a group may
// contain, per granularity, before its aggregate is invalidated.
type MissingTolerances struct {
	Annual   int `json:"annual"`
	HalfYear int `json:"halfyear"`
	Seasonal int `json:"seasonal"`
	Monthly  int `json:"monthly"`
}

// DefaultTolerances returns the conventional ETCCDI missing-day tolerances.
func DefaultTolerances() MissingTolerances {
	return MissingTolerances{
		Annual:   DefaultAnnualTolerance,
		HalfYear: DefaultHalfYearTolerance,
		Seasonal: DefaultSeasonalTolerance,
		Monthly:  DefaultMonthlyTolerance,
	}
}

// For returns the tolerance for the given granularity
func (t MissingTolerances) For(g Granularity) int {
	switch g {
	case GranularityHalfYear:
		return t.HalfYear
	case GranularitySeasonal:
		return t.Seasonal
	case GranularityMonthly:
		return t.Monthly
	default:
		return t.Annual
	}
}

// IsValid checks all tolerances are non-negative
func (t MissingTolerances) IsValid() bool {
	return t.Annual >= 0 && t.HalfYear >= 0 && t.Seasonal >= 0 && t.Monthly >= 0
}

// Config carries the tunable parameters of a computation session.
type Config struct {
	// WindowN is the width in days of the centered day-of-year window used
	// for percentile thresholds; must be odd
	WindowN int `json:"window_n"`

	// TemperatureQuantiles and PrecipitationQuantiles are the default
	// quantile lists per variable class, strictly increasing in (0, 1)
	TemperatureQuantiles   []float64 `json:"temperature_quantiles"`
	PrecipitationQuantiles []float64 `json:"precipitation_quantiles"`

	// MinFractionPresent is the minimum fraction of non-missing values a
	// day-of-year window must contain for its quantile to be defined
	MinFractionPresent float64 `json:"min_fraction_present"`

	// MinSpellLength is the minimum run length for duration indices and the
	// growing-season automaton
	MinSpellLength int `json:"min_spell_length"`

	// Tolerances are the per-granularity missing-day limits
	Tolerances MissingTolerances `json:"tolerances"`

	// NorthernHemisphere selects the July-first-based year rotation for
	// growing-season computation when false
	NorthernHemisphere bool `json:"northern_hemisphere"`
}

// DefaultConfig returns the conventional ETCCDI parameterization.
func DefaultConfig() Config {
	return Config{
		WindowN:                DefaultWindowN,
		TemperatureQuantiles:   []float64{0.10, 0.25, 0.75, 0.90},
		PrecipitationQuantiles: []float64{0.25, 0.75, 0.95, 0.99},
		MinFractionPresent:     DefaultMinFractionPresent,
		MinSpellLength:         DefaultMinSpellLength,
		Tolerances:             DefaultTolerances(),
		NorthernHemisphere:     true,
	}
}

// Validate checks every configuration invariant once; a Config that passes
// is safe for the lifetime of a session.
func (c Config) Validate() error {
	if c.WindowN < 1 || c.WindowN%2 == 0 {
		return ValidationError{Field: "window_n", Message: fmt.Sprintf("window width must be odd and positive, got %d", c.WindowN), Value: c.WindowN}
	}
	if err := validateQuantileList("temperature_quantiles", c.TemperatureQuantiles); err != nil {
		return err
	}
	if err := validateQuantileList("precipitation_quantiles", c.PrecipitationQuantiles); err != nil {
		return err
	}
	if c.MinFractionPresent < 0 || c.MinFractionPresent > 1 {
		return ValidationError{Field: "min_fraction_present", Message: fmt.Sprintf("minimum fraction present must be in [0, 1], got %g", c.MinFractionPresent), Value: c.MinFractionPresent}
	}
	if c.MinSpellLength < 1 {
		return ValidationError{Field: "min_spell_length", Message: fmt.Sprintf("minimum spell length must be positive, got %d", c.MinSpellLength), Value: c.MinSpellLength}
	}
	if !c.Tolerances.IsValid() {
		return ValidationError{Field: "tolerances", Message: "missing-day tolerances must be non-negative", Value: c.Tolerances}
	}
	return nil
}

// QuantilesFor returns the default quantile list for a variable class.
// ClassOther has no default; callers must pass explicit quantiles.
func (c Config) QuantilesFor(class VariableClass) []float64 {
	switch class {
	case ClassTemperature:
		return c.TemperatureQuantiles
	case ClassPrecipitation:
		return c.PrecipitationQuantiles
	default:
		return nil
	}
}

func validateQuantileList(field string, quantiles []float64) error {
	for i, q := range quantiles {
		if q <= 0 || q >= 1 {
			return ValidationError{Field: field, Message: fmt.Sprintf("quantile %g out of range (0, 1)", q), Value: q}
		}
		if i > 0 && q <= quantiles[i-1] {
			return ValidationError{Field: field, Message: "quantiles must be strictly increasing", Value: quantiles}
		}
	}
	return nil
}

// Constants for default values
const (
	// DefaultWindowN is the centered day-of-year window width
	DefaultWindowN = 5

	// DefaultMinFractionPresent is the minimum non-missing window fraction
	// below which a day's quantile is undefined
	DefaultMinFractionPresent = 0.10

	// DefaultMinSpellLength is the minimum run length for duration indices
	DefaultMinSpellLength = 6

	// Default missing-day tolerances per granularity
	DefaultAnnualTolerance   = 15
	DefaultHalfYearTolerance = 10
	DefaultSeasonalTolerance = 8
	DefaultMonthlyTolerance  = 3

	// DefaultGrowingSeasonThreshold is the mean-temperature threshold in
	// degrees Celsius for growing-season runs
	DefaultGrowingSeasonThreshold = 5.0

	// DefaultWetDayThreshold is the precipitation amount in millimetres at
	// or above which a day counts as wet
	DefaultWetDayThreshold = 1.0

	// baseYearSlack is subtracted from days-per-year to form the per-year
	// coverage floor below which threshold computation refuses to proceed
	// (359 of 365, 354 of 360)
	baseYearSlack = 6
)
