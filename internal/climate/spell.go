package climate

import (
	"fmt"
	"math"
)

// SelectBlocksAtLeast keeps only runs of consecutive true values of at
// least minLength, clearing shorter runs. minLength <= 1 returns a copy;
// minLength greater than the series length clears everything. The operation
// is idempotent.
func SelectBlocksAtLeast(runs []bool, minLength int) []bool {
	out := make([]bool, len(runs))
	if minLength <= 1 {
		copy(out, runs)
		return out
	}
	if minLength > len(runs) {
		return out
	}
	i := 0
	for i < len(runs) {
		if !runs[i] {
			i++
			continue
		}
		j := i
		for j < len(runs) && runs[j] {
			j++
		}
		if j-i >= minLength {
			for k := i; k < j; k++ {
				out[k] = true
			}
		}
		i = j
	}
	return out
}

// SeriesLengthsAtEnds returns, at the last position of each maximal run of
// true values, the length of that run; every other position is zero.
func SeriesLengthsAtEnds(runs []bool) []float64 {
	out := make([]float64, len(runs))
	length := 0
	for i, r := range runs {
		if r {
			length++
			if i == len(runs)-1 || !runs[i+1] {
				out[i] = float64(length)
			}
		} else {
			length = 0
		}
	}
	return out
}

// SpellParams bundles the inputs of maximum spell length computation.
type SpellParams struct {
	// Threshold is the fixed value compared against
	Threshold float64
	// Op is the comparison defining spell membership
	Op Comparator
	// SpansYears lets spells cross group boundaries: each spell is
	// attributed whole to the group containing its first day. When false
	// each group is evaluated independently and a boundary-crossing spell
	// counts separately in both.
	SpansYears bool
}

// SpellLengthMax computes the per-group maximum spell length of values
// against a fixed threshold. Missing values break spells. A group with no
// spell yields 0; a group every single day of which lies inside a spell
// attributed elsewhere yields NaN, since its true maximum is unknowable
// from within the group.
func SpellLengthMax(values []float64, f *DateFactor, p SpellParams) ([]float64, error) {
	if f.Len() != len(values) {
		return nil, ValidationError{Field: "factor", Message: fmt.Sprintf("factor covers %d days, series has %d", f.Len(), len(values))}
	}
	if !p.Op.IsValid() {
		return nil, ValidationError{Field: "op", Message: fmt.Sprintf("invalid comparator %d", int(p.Op)), Value: p.Op}
	}

	bools := make([]bool, len(values))
	for i, v := range values {
		bools[i] = p.Op.Apply(v, p.Threshold)
	}

	out := make([]float64, f.NumGroups())
	if !p.SpansYears {
		// Independent per-group scan over each group's subseries.
		runLength := make([]int, f.NumGroups())
		for i, b := range bools {
			g := f.GroupIndex(i)
			if !b {
				runLength[g] = 0
				continue
			}
			runLength[g]++
			if float64(runLength[g]) > out[g] {
				out[g] = float64(runLength[g])
			}
		}
		return out, nil
	}

	allTrue := make([]bool, f.NumGroups())
	for g := range allTrue {
		allTrue[g] = true
	}
	for i, b := range bools {
		if !b {
			allTrue[f.GroupIndex(i)] = false
		}
	}

	i := 0
	for i < len(bools) {
		if !bools[i] {
			i++
			continue
		}
		j := i
		for j < len(bools) && bools[j] {
			j++
		}
		g := f.GroupIndex(i)
		if float64(j-i) > out[g] {
			out[g] = float64(j - i)
		}
		i = j
	}

	// Factor groups are never empty, so allTrue with no attributed spell
	// means every day of the group sits inside a spell counted elsewhere.
	for g := range out {
		if out[g] == 0 && allTrue[g] {
			out[g] = math.NaN()
		}
	}
	return out, nil
}

// DurationParams bundles the inputs of threshold exceedance duration
// computation.
type DurationParams struct {
	// Thresholds are day-of-year thresholds indexed dayOfYear-1
	Thresholds []float64
	// Op is the comparison defining run membership
	Op Comparator
	// MinLength is the minimum run length a run must reach to be counted
	MinLength int
	// SpansYears applies run selection across group boundaries before
	// summation; when false selection runs within each group independently
	SpansYears bool
	// MaxMissing is the per-group missing-day tolerance
	MaxMissing int
}

// Validate checks the parameter invariants
func (p DurationParams) Validate() error {
	if len(p.Thresholds) == 0 {
		return ValidationError{Field: "thresholds", Message: "day-of-year thresholds are required"}
	}
	if !p.Op.IsValid() {
		return ValidationError{Field: "op", Message: fmt.Sprintf("invalid comparator %d", int(p.Op)), Value: p.Op}
	}
	if p.MinLength < 1 {
		return ValidationError{Field: "min_length", Message: fmt.Sprintf("minimum run length must be positive, got %d", p.MinLength), Value: p.MinLength}
	}
	if p.MaxMissing < 0 {
		return ValidationError{Field: "max_missing", Message: fmt.Sprintf("missing-day tolerance must be non-negative, got %d", p.MaxMissing), Value: p.MaxMissing}
	}
	return nil
}

// ThresholdExceedanceDuration counts, per group, the days belonging to runs
// of at least MinLength consecutive days satisfying the comparison against
// day-of-year thresholds. Days with a missing value or a missing threshold
// never satisfy the comparison and count toward the group's missing-day
// tolerance; groups over tolerance yield NaN.
func ThresholdExceedanceDuration(values []float64, dayOfYear []int, f *DateFactor, p DurationParams) ([]float64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(values) != len(dayOfYear) {
		return nil, ValidationError{Field: "values", Message: fmt.Sprintf("series length mismatch: %d values, %d day indices", len(values), len(dayOfYear))}
	}
	if f.Len() != len(values) {
		return nil, ValidationError{Field: "factor", Message: fmt.Sprintf("factor covers %d days, series has %d", f.Len(), len(values))}
	}
	dpy := len(p.Thresholds)
	for i, d := range dayOfYear {
		if d < 1 || d > dpy {
			return nil, ValidationError{Field: "day_of_year", Message: fmt.Sprintf("day-of-year %d at position %d out of range 1..%d", d, i, dpy)}
		}
	}

	bools := make([]bool, len(values))
	missing := make([]bool, len(values))
	for i, v := range values {
		threshold := p.Thresholds[dayOfYear[i]-1]
		missing[i] = math.IsNaN(v) || math.IsNaN(threshold)
		bools[i] = p.Op.Apply(v, threshold)
	}

	out := make([]float64, f.NumGroups())
	if p.SpansYears {
		kept := SelectBlocksAtLeast(bools, p.MinLength)
		for i, k := range kept {
			if k {
				out[f.GroupIndex(i)]++
			}
		}
	} else {
		for _, indices := range f.groupIndices() {
			sub := make([]bool, len(indices))
			for j, i := range indices {
				sub[j] = bools[i]
			}
			kept := SelectBlocksAtLeast(sub, p.MinLength)
			for j, k := range kept {
				if k {
					out[f.GroupIndex(indices[j])]++
				}
			}
		}
	}

	valid := GroupValidMask(missing, f, p.MaxMissing)
	return ApplyMask(out, valid), nil
}
