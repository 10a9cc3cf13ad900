package climate

import "math"

// MissingMask returns a per-day indicator of missing values.
func MissingMask(values []float64) []bool {
	missing := make([]bool, len(values))
	for i, v := range values {
		missing[i] = math.IsNaN(v)
	}
	return missing
}

// GroupValidMask counts missing days per group and returns per-group
// validity: a group with more than maxMissing missing days is invalid.
func GroupValidMask(missing []bool, f *DateFactor, maxMissing int) []bool {
	counts := make([]int, f.NumGroups())
	for i, m := range missing {
		if m {
			counts[f.GroupIndex(i)]++
		}
	}
	valid := make([]bool, f.NumGroups())
	for g, c := range counts {
		valid[g] = c <= maxMissing
	}
	return valid
}

// ApplyMask returns a copy of the per-group aggregates with invalid groups
// replaced by NaN.
func ApplyMask(agg []float64, valid []bool) []float64 {
	out := make([]float64, len(agg))
	for i, v := range agg {
		if valid[i] {
			out[i] = v
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// AnnualValidMaskWithMonths computes the stricter annual validity used for
// growing-season values: the annual missing tolerance must hold and every
// month inside the year must also pass the monthly tolerance. A month
// belongs to the annual group containing its first day, which keeps the
// rule meaningful for rotated July-to-June years.
func AnnualValidMaskWithMonths(missing []bool, annual, monthly *DateFactor, tolAnnual, tolMonthly int) []bool {
	valid := GroupValidMask(missing, annual, tolAnnual)
	monthValid := GroupValidMask(missing, monthly, tolMonthly)

	seen := make([]bool, monthly.NumGroups())
	for i := 0; i < monthly.Len(); i++ {
		mg := monthly.GroupIndex(i)
		if seen[mg] {
			continue
		}
		seen[mg] = true
		if !monthValid[mg] {
			valid[annual.GroupIndex(i)] = false
		}
	}
	return valid
}
