package climate

import "math"

// GroupSum returns the per-group sum of defined values. A group with no
// defined values yields 0; pair with GroupValidMask to invalidate groups
// over the missing-day tolerance.
func GroupSum(values []float64, f *DateFactor) []float64 {
	out := make([]float64, f.NumGroups())
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		out[f.GroupIndex(i)] += v
	}
	return out
}

// GroupMean returns the per-group mean of defined values; NaN for groups
// with none.
func GroupMean(values []float64, f *DateFactor) []float64 {
	sums := make([]float64, f.NumGroups())
	counts := make([]int, f.NumGroups())
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		g := f.GroupIndex(i)
		sums[g] += v
		counts[g]++
	}
	out := make([]float64, f.NumGroups())
	for g := range out {
		if counts[g] == 0 {
			out[g] = math.NaN()
		} else {
			out[g] = sums[g] / float64(counts[g])
		}
	}
	return out
}

// GroupMax returns the per-group maximum of defined values; NaN for groups
// with none.
func GroupMax(values []float64, f *DateFactor) []float64 {
	out := make([]float64, f.NumGroups())
	seen := make([]bool, f.NumGroups())
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		g := f.GroupIndex(i)
		if !seen[g] || v > out[g] {
			out[g] = v
			seen[g] = true
		}
	}
	for g := range out {
		if !seen[g] {
			out[g] = math.NaN()
		}
	}
	return out
}

// GroupMin returns the per-group minimum of defined values; NaN for groups
// with none.
func GroupMin(values []float64, f *DateFactor) []float64 {
	out := make([]float64, f.NumGroups())
	seen := make([]bool, f.NumGroups())
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		g := f.GroupIndex(i)
		if !seen[g] || v < out[g] {
			out[g] = v
			seen[g] = true
		}
	}
	for g := range out {
		if !seen[g] {
			out[g] = math.NaN()
		}
	}
	return out
}

// GroupCount returns the per-group count of true days.
func GroupCount(bools []bool, f *DateFactor) []float64 {
	out := make([]float64, f.NumGroups())
	for i, b := range bools {
		if b {
			out[f.GroupIndex(i)]++
		}
	}
	return out
}

// GroupMeanWhere returns the per-group mean over defined values satisfying
// keep; NaN for groups with none. The canonical use is the wet-day mean:
// keep selects days at or above the wet-day threshold.
func GroupMeanWhere(values []float64, f *DateFactor, keep func(float64) bool) []float64 {
	sums := make([]float64, f.NumGroups())
	counts := make([]int, f.NumGroups())
	for i, v := range values {
		if math.IsNaN(v) || !keep(v) {
			continue
		}
		g := f.GroupIndex(i)
		sums[g] += v
		counts[g]++
	}
	out := make([]float64, f.NumGroups())
	for g := range out {
		if counts[g] == 0 {
			out[g] = math.NaN()
		} else {
			out[g] = sums[g] / float64(counts[g])
		}
	}
	return out
}

// GroupSumWhere returns the per-group sum over defined values satisfying
// keep. The canonical use is total precipitation above a percentile
// threshold.
func GroupSumWhere(values []float64, f *DateFactor, keep func(float64) bool) []float64 {
	out := make([]float64, f.NumGroups())
	for i, v := range values {
		if math.IsNaN(v) || !keep(v) {
			continue
		}
		out[f.GroupIndex(i)] += v
	}
	return out
}

// GroupCountWhere returns the per-group count of defined values satisfying
// keep.
func GroupCountWhere(values []float64, f *DateFactor, keep func(float64) bool) []float64 {
	out := make([]float64, f.NumGroups())
	for i, v := range values {
		if math.IsNaN(v) || !keep(v) {
			continue
		}
		out[f.GroupIndex(i)]++
	}
	return out
}
