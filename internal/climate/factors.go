package climate

import (
	"fmt"
	"time"
)

// DateFactor maps each day of a series onto an aggregation group. Group
// labels are ordered by first occurrence, which is chronological order for
// any factor built from a contiguous daily series.
type DateFactor struct {
	labels []string
	index  []int
}

// NewDateFactor builds a factor from one group key per day. Labels are
// deduplicated in order of first occurrence.
func NewDateFactor(keys []string) *DateFactor {
	labels := make([]string, 0, 8)
	positions := make(map[string]int, 8)
	index := make([]int, len(keys))
	for i, k := range keys {
		pos, ok := positions[k]
		if !ok {
			pos = len(labels)
			positions[k] = pos
			labels = append(labels, k)
		}
		index[i] = pos
	}
	return &DateFactor{labels: labels, index: index}
}

// Len returns the number of days the factor covers
func (f *DateFactor) Len() int {
	return len(f.index)
}

// NumGroups returns the number of distinct groups
func (f *DateFactor) NumGroups() int {
	return len(f.labels)
}

// Labels returns a copy of the group labels in chronological order
func (f *DateFactor) Labels() []string {
	out := make([]string, len(f.labels))
	copy(out, f.labels)
	return out
}

// Label returns the label of the given group
func (f *DateFactor) Label(group int) string {
	return f.labels[group]
}

// GroupIndex returns the group the i-th day belongs to
func (f *DateFactor) GroupIndex(i int) int {
	return f.index[i]
}

// GroupSizes returns the number of days in each group
func (f *DateFactor) GroupSizes() []int {
	sizes := make([]int, len(f.labels))
	for _, g := range f.index {
		sizes[g]++
	}
	return sizes
}

// groupIndices returns the day indices of every group in order. Groups of a
// chronological factor are contiguous runs, but nothing below depends on
// that.
func (f *DateFactor) groupIndices() [][]int {
	sizes := f.GroupSizes()
	out := make([][]int, len(f.labels))
	for g, n := range sizes {
		out[g] = make([]int, 0, n)
	}
	for i, g := range f.index {
		out[g] = append(out[g], i)
	}
	return out
}

// AnnualFactor groups days by calendar year with labels like "1981".
func AnnualFactor(dates []Date) *DateFactor {
	keys := make([]string, len(dates))
	for i, d := range dates {
		keys[i] = fmt.Sprintf("%04d", d.Year)
	}
	return NewDateFactor(keys)
}

// MonthlyFactor groups days by year and month with labels like "1981-01".
func MonthlyFactor(dates []Date) *DateFactor {
	keys := make([]string, len(dates))
	for i, d := range dates {
		keys[i] = fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
	}
	return NewDateFactor(keys)
}

// SeasonalFactor groups days by meteorological season with labels like
// "1982-DJF". December is assigned to the following year's DJF so each
// season is one contiguous block.
func SeasonalFactor(dates []Date) *DateFactor {
	keys := make([]string, len(dates))
	for i, d := range dates {
		name, shift := season(d.Month)
		keys[i] = fmt.Sprintf("%04d-%s", d.Year+shift, name)
	}
	return NewDateFactor(keys)
}

// HalfYearFactor groups days into ONDJFM and AMJJAS half-years with labels
// like "1982-ONDJFM". October through December are assigned to the
// following year's ONDJFM so each half-year is one contiguous block.
func HalfYearFactor(dates []Date) *DateFactor {
	keys := make([]string, len(dates))
	for i, d := range dates {
		name, shift := halfYear(d.Month)
		keys[i] = fmt.Sprintf("%04d-%s", d.Year+shift, name)
	}
	return NewDateFactor(keys)
}

// RotatedAnnualFactor groups days into July-to-June years, labeled by the
// calendar year the rotated year ends in. Southern-hemisphere growing
// seasons straddle the calendar year boundary, so the annual grouping must
// rotate with them.
func RotatedAnnualFactor(dates []Date) *DateFactor {
	keys := make([]string, len(dates))
	for i, d := range dates {
		year := d.Year
		if d.Month >= time.July {
			year++
		}
		keys[i] = fmt.Sprintf("%04d", year)
	}
	return NewDateFactor(keys)
}

// FactorFor builds the factor for a granularity over the given dates.
func FactorFor(g Granularity, dates []Date) *DateFactor {
	switch g {
	case GranularityMonthly:
		return MonthlyFactor(dates)
	case GranularitySeasonal:
		return SeasonalFactor(dates)
	case GranularityHalfYear:
		return HalfYearFactor(dates)
	default:
		return AnnualFactor(dates)
	}
}
