// Package indices defines the catalog of supported climate extreme
// indices and computes them from a climate session. Input variables are
// bound by canonical name: tmax and tmin for daily extremes, tavg for
// daily mean temperature, and prec for daily precipitation totals.
package indices

import (
	"errors"
	"fmt"
	"strings"

	"climex/internal/climate"
)

// Canonical variable names the catalog binds to.
const (
	VarTmax = "tmax"
	VarTmin = "tmin"
	VarTavg = "tavg"
	VarPrec = "prec"
)

var (
	// ErrUnknownIndex is returned for names outside the catalog.
	ErrUnknownIndex = errors.New("unknown index")
	// ErrUnsupportedGranularity is returned when an index does not
	// support the requested grouping.
	ErrUnsupportedGranularity = errors.New("unsupported granularity")
)

// computeFunc evaluates one index, returning the per-group values and
// the factor that produced the grouping.
type computeFunc func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error)

// Definition describes one catalog index.
type Definition struct {
	// Name is the canonical lowercase short name, e.g. "tx90p".
	Name string
	// Description is a one-line human summary.
	Description string
	// Variables lists the input series the index consumes.
	Variables []string
	// Granularities lists the supported groupings.
	Granularities []climate.Granularity

	compute computeFunc
}

// SupportsGranularity reports whether g is available for this index.
func (d Definition) SupportsGranularity(g climate.Granularity) bool {
	for _, have := range d.Granularities {
		if have == g {
			return true
		}
	}
	return false
}

// Series is one computed index: aligned labels and values per group.
type Series struct {
	Index       string
	Variable    string
	Granularity climate.Granularity
	Labels      []string
	Values      []float64
}

var (
	catalog []Definition
	byName  map[string]Definition
)

func register(d Definition) {
	catalog = append(catalog, d)
	byName[d.Name] = d
}

func init() {
	byName = make(map[string]Definition)
	registerTemperature()
	registerPrecipitation()
}

// Catalog returns the definitions in registration order.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a definition by name.
func Lookup(name string) (Definition, bool) {
	d, ok := byName[strings.ToLower(name)]
	return d, ok
}

// Names returns the catalog index names in order.
func Names() []string {
	out := make([]string, len(catalog))
	for i, d := range catalog {
		out[i] = d.Name
	}
	return out
}

// Compute evaluates the named index over the session.
func Compute(s *climate.Session, name string, g climate.Granularity) (*Series, error) {
	def, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIndex, name)
	}
	if !def.SupportsGranularity(g) {
		return nil, fmt.Errorf("%w: %s does not support %s", ErrUnsupportedGranularity, def.Name, g)
	}

	values, f, err := def.compute(s, g)
	if err != nil {
		return nil, fmt.Errorf("compute %s: %w", def.Name, err)
	}
	return &Series{
		Index:       def.Name,
		Variable:    strings.Join(def.Variables, "+"),
		Granularity: g,
		Labels:      f.Labels(),
		Values:      values,
	}, nil
}

// annualOnly is the granularity set for indices defined per year.
func annualOnly() []climate.Granularity {
	return []climate.Granularity{climate.GranularityAnnual}
}

// allGranularities is the full grouping set.
func allGranularities() []climate.Granularity {
	return climate.Granularities()
}

// maskedAggregate applies agg per group and masks groups that exceed the
// missing-day tolerance for g.
func maskedAggregate(s *climate.Session, variable string, g climate.Granularity,
	agg func([]float64, *climate.DateFactor) []float64) ([]float64, *climate.DateFactor, error) {

	values, err := s.Values(variable)
	if err != nil {
		return nil, nil, err
	}
	mask, err := s.ValidMask(variable, g)
	if err != nil {
		return nil, nil, err
	}
	f := s.Factor(g)
	return climate.ApplyMask(agg(values, f), mask), f, nil
}

// maskedCountWhere counts qualifying days per group under the missing
// tolerance.
func maskedCountWhere(s *climate.Session, variable string, g climate.Granularity,
	keep func(float64) bool) ([]float64, *climate.DateFactor, error) {

	return maskedAggregate(s, variable, g, func(values []float64, f *climate.DateFactor) []float64 {
		return climate.GroupCountWhere(values, f, keep)
	})
}

// percentileDays computes the percentage of days beyond the class
// percentile threshold, bootstrap-corrected inside the base period.
func percentileDays(s *climate.Session, variable string, p float64, op climate.Comparator,
	g climate.Granularity) ([]float64, *climate.DateFactor, error) {

	values, err := s.Values(variable)
	if err != nil {
		return nil, nil, err
	}
	qs, err := s.Quantiles(variable)
	if err != nil {
		return nil, nil, err
	}
	thresholds, ok := qs.Outbase(p)
	if !ok {
		return nil, nil, fmt.Errorf("quantile %v not configured for %s", p, variable)
	}
	cube, _ := qs.Bootstrap(p)

	f := s.Factor(g)
	out, err := climate.ExceedancePercent(values, s.DayOfYear(), s.Years(), f,
		climate.ExceedanceParams{
			Thresholds: thresholds,
			Bootstrap:  cube,
			Base:       s.Base(),
			Op:         op,
		},
		s.Config().Tolerances.For(g),
	)
	if err != nil {
		return nil, nil, err
	}
	return out, f, nil
}

// spellDuration computes WSDI/CSDI-style duration sums against the
// out-of-base percentile thresholds.
func spellDuration(s *climate.Session, variable string, p float64, op climate.Comparator) ([]float64, *climate.DateFactor, error) {
	values, err := s.Values(variable)
	if err != nil {
		return nil, nil, err
	}
	qs, err := s.Quantiles(variable)
	if err != nil {
		return nil, nil, err
	}
	thresholds, ok := qs.Outbase(p)
	if !ok {
		return nil, nil, fmt.Errorf("quantile %v not configured for %s", p, variable)
	}

	f := s.Factor(climate.GranularityAnnual)
	out, err := climate.ThresholdExceedanceDuration(values, s.DayOfYear(), f,
		climate.DurationParams{
			Thresholds: thresholds,
			Op:         op,
			MinLength:  s.Config().MinSpellLength,
			SpansYears: false,
			MaxMissing: s.Config().Tolerances.Annual,
		},
	)
	if err != nil {
		return nil, nil, err
	}
	return out, f, nil
}
