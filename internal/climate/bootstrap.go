package climate

import (
	"fmt"
	"math"
	"sort"
)

// QuantileParams bundles the inputs of windowed threshold computation.
type QuantileParams struct {
	// Base is the baseline year range the thresholds are drawn from
	Base BaseRange
	// WindowN is the centered day-of-year window width; must be odd
	WindowN int
	// Quantiles is the strictly increasing list of quantiles to compute
	Quantiles []float64
	// MinFractionPresent is the minimum non-missing fraction a window must
	// reach for its quantile to be defined
	MinFractionPresent float64
	// SkipBootstrap suppresses the within-base cube
	SkipBootstrap bool
	// Variable names the series in errors; it does not affect computation
	Variable string
}

// Validate checks the parameter invariants
func (p QuantileParams) Validate() error {
	if !p.Base.IsValid() {
		return ValidationError{Field: "base_range", Message: fmt.Sprintf("invalid base range %s", p.Base), Value: p.Base}
	}
	if p.WindowN < 1 || p.WindowN%2 == 0 {
		return ValidationError{Field: "window_n", Message: fmt.Sprintf("window width must be odd and positive, got %d", p.WindowN), Value: p.WindowN}
	}
	if len(p.Quantiles) == 0 {
		return ValidationError{Field: "quantiles", Message: "at least one quantile is required"}
	}
	if err := validateQuantileList("quantiles", p.Quantiles); err != nil {
		return err
	}
	if p.MinFractionPresent < 0 || p.MinFractionPresent > 1 {
		return ValidationError{Field: "min_fraction_present", Message: fmt.Sprintf("minimum fraction present must be in [0, 1], got %g", p.MinFractionPresent), Value: p.MinFractionPresent}
	}
	return nil
}

// dayBuckets holds the baseline values split by folded day-of-year and base
// year. vals keeps only finite values; totals counts every series slot so
// window coverage fractions account for missing days. In Gregorian leap
// years the folded day 59 bucket holds two slots.
type dayBuckets struct {
	vals   [][][]float64
	totals [][]int
	years  int
	dpy    int
}

func newDayBuckets(values []float64, dayOfYear, years []int, daysPerYear int, base BaseRange) *dayBuckets {
	n := base.Years()
	b := &dayBuckets{
		vals:   make([][][]float64, daysPerYear),
		totals: make([][]int, daysPerYear),
		years:  n,
		dpy:    daysPerYear,
	}
	for d := 0; d < daysPerYear; d++ {
		b.vals[d] = make([][]float64, n)
		b.totals[d] = make([]int, n)
	}
	for i, v := range values {
		if !base.ContainsYear(years[i]) {
			continue
		}
		d := dayOfYear[i] - 1
		yi := years[i] - base.StartYear
		b.totals[d][yi]++
		if !math.IsNaN(v) {
			b.vals[d][yi] = append(b.vals[d][yi], v)
		}
	}
	return b
}

// presentPerYear returns the non-missing day count of each base year.
func (b *dayBuckets) presentPerYear() []int {
	present := make([]int, b.years)
	for d := 0; d < b.dpy; d++ {
		for yi := 0; yi < b.years; yi++ {
			present[yi] += len(b.vals[d][yi])
		}
	}
	return present
}

// windowDays returns the folded day indices of the centered window around
// day d, wrapping across the year boundary.
func windowDays(d, half, dpy int) []int {
	days := make([]int, 0, 2*half+1)
	for off := -half; off <= half; off++ {
		days = append(days, ((d+off)%dpy+dpy)%dpy)
	}
	return days
}

// ComputeQuantiles computes the day-of-year threshold set for one variable.
// For each folded day of year, values inside a centered window across every
// base year are pooled and the type-8 quantile taken; windows with a
// non-missing fraction below MinFractionPresent yield NaN for that day.
//
// Unless skipped, the within-base bootstrap cube is computed per Zhang et
// al. (2005): for each base year withheld, its data is replaced in turn by
// each of the remaining years' data and the windowed quantile recomputed,
// giving N-1 threshold profiles per withheld year. Requires at least two
// base years; with fewer the cube is omitted.
//
// Any base year with fewer than daysPerYear-6 non-missing days aborts the
// computation with InsufficientBaseDataError.
func ComputeQuantiles(values []float64, dayOfYear, years []int, daysPerYear int, p QuantileParams) (*QuantileSet, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if daysPerYear <= 0 {
		return nil, ValidationError{Field: "days_per_year", Message: fmt.Sprintf("days per year must be positive, got %d", daysPerYear), Value: daysPerYear}
	}
	if len(values) != len(dayOfYear) || len(values) != len(years) {
		return nil, ValidationError{Field: "values", Message: fmt.Sprintf("series length mismatch: %d values, %d day indices, %d years", len(values), len(dayOfYear), len(years))}
	}
	for i, d := range dayOfYear {
		if d < 1 || d > daysPerYear {
			return nil, ValidationError{Field: "day_of_year", Message: fmt.Sprintf("day-of-year %d at position %d out of range 1..%d", d, i, daysPerYear)}
		}
	}

	buckets := newDayBuckets(values, dayOfYear, years, daysPerYear, p.Base)

	floor := daysPerYear - baseYearSlack
	for yi, present := range buckets.presentPerYear() {
		if present < floor {
			return nil, &InsufficientBaseDataError{
				Variable: p.Variable,
				Year:     p.Base.StartYear + yi,
				Present:  present,
				Floor:    floor,
			}
		}
	}

	n := buckets.years
	half := p.WindowN / 2
	nq := len(p.Quantiles)

	outbase := make([][]float64, nq)
	for qi := range outbase {
		outbase[qi] = make([]float64, daysPerYear)
	}

	withBootstrap := !p.SkipBootstrap && n >= 2
	var bootstrap [][][][]float64
	if withBootstrap {
		bootstrap = make([][][][]float64, nq)
		for qi := range bootstrap {
			bootstrap[qi] = make([][][]float64, daysPerYear)
			for d := range bootstrap[qi] {
				bootstrap[qi][d] = make([][]float64, n)
				for yi := range bootstrap[qi][d] {
					bootstrap[qi][d][yi] = make([]float64, n-1)
				}
			}
		}
	}

	// Reused per-day scratch: window values per base year, pooled sample.
	perYear := make([][]float64, n)
	perYearTotal := make([]int, n)
	pooled := make([]float64, 0, p.WindowN*(n+1)*2)
	sample := make([]float64, 0, cap(pooled))

	for d := 0; d < daysPerYear; d++ {
		window := windowDays(d, half, daysPerYear)

		for yi := 0; yi < n; yi++ {
			perYear[yi] = perYear[yi][:0]
			perYearTotal[yi] = 0
			for _, wd := range window {
				perYear[yi] = append(perYear[yi], buckets.vals[wd][yi]...)
				perYearTotal[yi] += buckets.totals[wd][yi]
			}
		}

		pooled = pooled[:0]
		total := 0
		for yi := 0; yi < n; yi++ {
			pooled = append(pooled, perYear[yi]...)
			total += perYearTotal[yi]
		}

		if total == 0 || float64(len(pooled))/float64(total) < p.MinFractionPresent {
			for qi := range outbase {
				outbase[qi][d] = math.NaN()
			}
		} else {
			sort.Float64s(pooled)
			for qi, q := range p.Quantiles {
				outbase[qi][d] = typeEightSorted(pooled, q)
			}
		}

		if !withBootstrap {
			continue
		}
		for omit := 0; omit < n; omit++ {
			restTotal := 0
			rest := sample[:0]
			for yi := 0; yi < n; yi++ {
				if yi == omit {
					continue
				}
				rest = append(rest, perYear[yi]...)
				restTotal += perYearTotal[yi]
			}
			ri := 0
			for repl := 0; repl < n; repl++ {
				if repl == omit {
					continue
				}
				s := append(rest, perYear[repl]...)
				sTotal := restTotal + perYearTotal[repl]
				if sTotal == 0 || float64(len(s))/float64(sTotal) < p.MinFractionPresent {
					for qi := range bootstrap {
						bootstrap[qi][d][omit][ri] = math.NaN()
					}
				} else {
					sorted := append([]float64(nil), s...)
					sort.Float64s(sorted)
					for qi, q := range p.Quantiles {
						bootstrap[qi][d][omit][ri] = typeEightSorted(sorted, q)
					}
				}
				ri++
			}
			sample = rest[:0]
		}
	}

	qs := &QuantileSet{
		quantiles:   append([]float64(nil), p.Quantiles...),
		daysPerYear: daysPerYear,
		baseYears:   n,
		outbase:     outbase,
		bootstrap:   bootstrap,
	}
	return qs, nil
}
