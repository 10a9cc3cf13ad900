package climate

import (
	"fmt"
	"math"
	"sort"
)

// typeEightSorted computes the type-8 quantile of sorted, NaN-free data.
// Type 8 interpolates between order statistics at h = (n + 1/3)p + 1/3 and
// is approximately median-unbiased regardless of distribution.
func typeEightSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := (float64(n)+1.0/3.0)*p + 1.0/3.0
	if h < 1 {
		return sorted[0]
	}
	if h >= float64(n) {
		return sorted[n-1]
	}
	fl := math.Floor(h)
	lo := sorted[int(fl)-1]
	hi := sorted[int(fl)]
	return lo + (h-fl)*(hi-lo)
}

// Quantile computes the type-8 quantile of values, ignoring NaN entries.
// Returns NaN when p is outside [0, 1] or no finite values remain.
func Quantile(values []float64, p float64) float64 {
	if p < 0 || p > 1 {
		return math.NaN()
	}
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	sort.Float64s(clean)
	return typeEightSorted(clean, p)
}

// QuantileSet holds the day-of-year percentile thresholds of one variable:
// the out-of-base thresholds computed from the full baseline, and optionally
// the within-base bootstrap cube used when baseline days are compared
// against thresholds derived from their own data.
type QuantileSet struct {
	quantiles   []float64
	daysPerYear int
	baseYears   int
	outbase     [][]float64
	bootstrap   [][][][]float64
}

// NewQuantileSet assembles a threshold set from externally computed arrays,
// validating their shapes. outbase is indexed [quantile][dayOfYear-1]; the
// optional bootstrap cube is indexed [quantile][dayOfYear-1][baseYear][replacement]
// with N base years and N-1 replacements per withheld year.
func NewQuantileSet(daysPerYear int, quantiles []float64, outbase [][]float64, bootstrap [][][][]float64) (*QuantileSet, error) {
	if daysPerYear <= 0 {
		return nil, ValidationError{Field: "days_per_year", Message: fmt.Sprintf("days per year must be positive, got %d", daysPerYear), Value: daysPerYear}
	}
	if err := validateQuantileList("quantiles", quantiles); err != nil {
		return nil, err
	}
	if len(outbase) != len(quantiles) {
		return nil, ValidationError{Field: "outbase", Message: fmt.Sprintf("outbase has %d quantile rows, want %d", len(outbase), len(quantiles))}
	}
	for qi, row := range outbase {
		if len(row) != daysPerYear {
			return nil, ValidationError{Field: "outbase", Message: fmt.Sprintf("outbase row %d has %d days, want %d", qi, len(row), daysPerYear)}
		}
	}
	baseYears := 0
	if bootstrap != nil {
		if len(bootstrap) != len(quantiles) {
			return nil, ValidationError{Field: "bootstrap", Message: fmt.Sprintf("bootstrap has %d quantile rows, want %d", len(bootstrap), len(quantiles))}
		}
		for qi, cube := range bootstrap {
			if len(cube) != daysPerYear {
				return nil, ValidationError{Field: "bootstrap", Message: fmt.Sprintf("bootstrap row %d has %d days, want %d", qi, len(cube), daysPerYear)}
			}
			for d, years := range cube {
				if baseYears == 0 {
					baseYears = len(years)
				}
				if len(years) != baseYears {
					return nil, ValidationError{Field: "bootstrap", Message: fmt.Sprintf("bootstrap day %d has %d years, want %d", d+1, len(years), baseYears)}
				}
				for _, repl := range years {
					if len(repl) != baseYears-1 {
						return nil, ValidationError{Field: "bootstrap", Message: fmt.Sprintf("bootstrap day %d has %d replacements, want %d", d+1, len(repl), baseYears-1)}
					}
				}
			}
		}
		if baseYears < 2 {
			return nil, ValidationError{Field: "bootstrap", Message: "bootstrap cube requires at least two base years"}
		}
	}

	qs := &QuantileSet{
		quantiles:   make([]float64, len(quantiles)),
		daysPerYear: daysPerYear,
		baseYears:   baseYears,
		outbase:     outbase,
		bootstrap:   bootstrap,
	}
	copy(qs.quantiles, quantiles)
	return qs, nil
}

// Quantiles returns the quantile list the set was computed for
func (q *QuantileSet) Quantiles() []float64 {
	out := make([]float64, len(q.quantiles))
	copy(out, q.quantiles)
	return out
}

// DaysPerYear returns the length of the day-of-year axis
func (q *QuantileSet) DaysPerYear() int {
	return q.daysPerYear
}

// BaseYears returns the number of baseline years behind the bootstrap cube,
// or zero when the set carries no cube
func (q *QuantileSet) BaseYears() int {
	return q.baseYears
}

// HasBootstrap reports whether the set carries a within-base cube
func (q *QuantileSet) HasBootstrap() bool {
	return q.bootstrap != nil
}

func (q *QuantileSet) quantileIndex(p float64) int {
	for i, qq := range q.quantiles {
		if qq == p {
			return i
		}
	}
	return -1
}

// Outbase returns the out-of-base day-of-year thresholds for quantile p,
// indexed by dayOfYear-1. The second return is false when the set was not
// computed for p. Days with too little data carry NaN.
func (q *QuantileSet) Outbase(p float64) ([]float64, bool) {
	i := q.quantileIndex(p)
	if i < 0 {
		return nil, false
	}
	return q.outbase[i], true
}

// Bootstrap returns the within-base cube for quantile p, indexed
// [dayOfYear-1][baseYear][replacement], or nil when the set carries no cube
// or was not computed for p.
func (q *QuantileSet) Bootstrap(p float64) ([][][]float64, bool) {
	if q.bootstrap == nil {
		return nil, false
	}
	i := q.quantileIndex(p)
	if i < 0 {
		return nil, false
	}
	return q.bootstrap[i], true
}
