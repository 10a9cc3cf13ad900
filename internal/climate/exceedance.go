package climate

import (
	"fmt"
	"math"
)

// ExceedanceParams bundles the threshold inputs of exceedance computation.
type ExceedanceParams struct {
	// Thresholds are the out-of-base day-of-year thresholds, indexed
	// dayOfYear-1
	Thresholds []float64
	// Bootstrap is the optional within-base cube indexed
	// [dayOfYear-1][baseYear][replacement]. When nil every day is compared
	// against Thresholds.
	Bootstrap [][][]float64
	// Base locates base years inside the series; required when Bootstrap is
	// set
	Base BaseRange
	// Op is the comparison applied between value and threshold
	Op Comparator
}

// Validate checks the parameter invariants
func (p ExceedanceParams) Validate() error {
	if len(p.Thresholds) == 0 {
		return ValidationError{Field: "thresholds", Message: "day-of-year thresholds are required"}
	}
	if !p.Op.IsValid() {
		return ValidationError{Field: "op", Message: fmt.Sprintf("invalid comparator %d", int(p.Op)), Value: p.Op}
	}
	if p.Bootstrap != nil {
		if len(p.Bootstrap) != len(p.Thresholds) {
			return ValidationError{Field: "bootstrap", Message: fmt.Sprintf("bootstrap covers %d days, thresholds %d", len(p.Bootstrap), len(p.Thresholds))}
		}
		if !p.Base.IsValid() {
			return ValidationError{Field: "base_range", Message: fmt.Sprintf("invalid base range %s", p.Base), Value: p.Base}
		}
	}
	return nil
}

// DailyExceedance computes the per-day exceedance fraction of a series
// against day-of-year thresholds. Outside the base period each day yields 0
// or 1. Inside the base period, when a bootstrap cube is present, the day
// is compared against every replacement profile of its own year and the
// fraction of matches among defined profile entries returned. Days with a
// missing value, a missing threshold, or an all-NaN profile yield NaN.
func DailyExceedance(values []float64, dayOfYear, years []int, p ExceedanceParams) ([]float64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(values) != len(dayOfYear) || len(values) != len(years) {
		return nil, ValidationError{Field: "values", Message: fmt.Sprintf("series length mismatch: %d values, %d day indices, %d years", len(values), len(dayOfYear), len(years))}
	}
	dpy := len(p.Thresholds)
	for i, d := range dayOfYear {
		if d < 1 || d > dpy {
			return nil, ValidationError{Field: "day_of_year", Message: fmt.Sprintf("day-of-year %d at position %d out of range 1..%d", d, i, dpy)}
		}
	}

	out := make([]float64, len(values))
	for i, v := range values {
		d := dayOfYear[i] - 1

		if p.Bootstrap != nil && p.Base.ContainsYear(years[i]) {
			if math.IsNaN(v) {
				out[i] = math.NaN()
				continue
			}
			yi := years[i] - p.Base.StartYear
			if yi >= len(p.Bootstrap[d]) {
				return nil, ValidationError{Field: "bootstrap", Message: fmt.Sprintf("base year %d outside bootstrap cube of %d years", years[i], len(p.Bootstrap[d]))}
			}
			profile := p.Bootstrap[d][yi]
			defined, matches := 0, 0
			for _, threshold := range profile {
				if math.IsNaN(threshold) {
					continue
				}
				defined++
				if p.Op.Apply(v, threshold) {
					matches++
				}
			}
			if defined == 0 {
				out[i] = math.NaN()
			} else {
				out[i] = float64(matches) / float64(defined)
			}
			continue
		}

		threshold := p.Thresholds[d]
		if math.IsNaN(v) || math.IsNaN(threshold) {
			out[i] = math.NaN()
			continue
		}
		if p.Op.Apply(v, threshold) {
			out[i] = 1
		} else {
			out[i] = 0
		}
	}
	return out, nil
}

// PercentDays aggregates a daily exceedance fraction series to per-group
// percentages: the mean of defined daily fractions times 100. Groups whose
// count of undefined days exceeds maxMissing, or with no defined days at
// all, yield NaN.
func PercentDays(daily []float64, f *DateFactor, maxMissing int) []float64 {
	missing := MissingMask(daily)
	valid := GroupValidMask(missing, f, maxMissing)

	sums := make([]float64, f.NumGroups())
	counts := make([]int, f.NumGroups())
	for i, v := range daily {
		if math.IsNaN(v) {
			continue
		}
		g := f.GroupIndex(i)
		sums[g] += v
		counts[g]++
	}

	out := make([]float64, f.NumGroups())
	for g := range out {
		if !valid[g] || counts[g] == 0 {
			out[g] = math.NaN()
			continue
		}
		out[g] = sums[g] / float64(counts[g]) * 100
	}
	return out
}

// ExceedancePercent is the full pipeline for percentile threshold indices:
// daily exceedance fractions aggregated to per-group percentages.
func ExceedancePercent(values []float64, dayOfYear, years []int, f *DateFactor, p ExceedanceParams, maxMissing int) ([]float64, error) {
	daily, err := DailyExceedance(values, dayOfYear, years, p)
	if err != nil {
		return nil, err
	}
	if f.Len() != len(daily) {
		return nil, ValidationError{Field: "factor", Message: fmt.Sprintf("factor covers %d days, series has %d", f.Len(), len(daily))}
	}
	return PercentDays(daily, f, maxMissing), nil
}
