package climate

import (
	"fmt"
	"math"
	"time"
)

// GrowingSeasonMode selects how growing-season runs are summarized.
type GrowingSeasonMode int

const (
	// GSLModeDefault is the canonical season: from the first warm run
	// before midyear to the first cold run after it
	GSLModeDefault GrowingSeasonMode = iota
	// GSLModeFirst reports the length of the first qualifying warm period
	GSLModeFirst
	// GSLModeLongest reports the length of the longest qualifying warm
	// period
	GSLModeLongest
	// GSLModeSum reports the total days across all qualifying warm periods
	GSLModeSum
)

// String returns the lowercase name of the mode
func (m GrowingSeasonMode) String() string {
	switch m {
	case GSLModeDefault:
		return "default"
	case GSLModeFirst:
		return "first"
	case GSLModeLongest:
		return "longest"
	case GSLModeSum:
		return "sum"
	default:
		return "unknown"
	}
}

// ParseGrowingSeasonMode maps a mode name back to its enum value.
func ParseGrowingSeasonMode(s string) (GrowingSeasonMode, error) {
	switch s {
	case "default":
		return GSLModeDefault, nil
	case "first":
		return GSLModeFirst, nil
	case "longest":
		return GSLModeLongest, nil
	case "sum":
		return GSLModeSum, nil
	default:
		return 0, ValidationError{Field: "mode", Message: fmt.Sprintf("unknown growing season mode %q", s), Value: s}
	}
}

// IsValid checks the mode is one of the supported values
func (m GrowingSeasonMode) IsValid() bool {
	return m >= GSLModeDefault && m <= GSLModeSum
}

// GrowingSeasonParams bundles the inputs of growing-season computation.
type GrowingSeasonParams struct {
	// TempThreshold is the mean-temperature threshold in degrees Celsius
	TempThreshold float64
	// MinLength is the minimum run length for warm and cold runs
	MinLength int
	// Mode selects the summary reported per year
	Mode GrowingSeasonMode
	// Transition is the month opening the second half of the year: July for
	// calendar years, January for rotated southern years
	Transition time.Month
}

// DefaultGrowingSeasonParams returns the canonical northern-hemisphere
// parameterization.
func DefaultGrowingSeasonParams() GrowingSeasonParams {
	return GrowingSeasonParams{
		TempThreshold: DefaultGrowingSeasonThreshold,
		MinLength:     DefaultMinSpellLength,
		Mode:          GSLModeDefault,
		Transition:    time.July,
	}
}

// Validate checks the parameter invariants
func (p GrowingSeasonParams) Validate() error {
	if p.MinLength < 1 {
		return ValidationError{Field: "min_length", Message: fmt.Sprintf("minimum run length must be positive, got %d", p.MinLength), Value: p.MinLength}
	}
	if !p.Mode.IsValid() {
		return ValidationError{Field: "mode", Message: fmt.Sprintf("invalid growing season mode %d", int(p.Mode)), Value: p.Mode}
	}
	if p.Transition < time.January || p.Transition > time.December {
		return ValidationError{Field: "transition", Message: fmt.Sprintf("invalid transition month %d", int(p.Transition)), Value: p.Transition}
	}
	return nil
}

// GrowingSeasonLength computes the per-group growing season summary of a
// mean-temperature series. In the default mode the season starts at the
// first day of the first run of at least MinLength days at or above
// TempThreshold that completes before the transition month, and ends the
// day before the first run of at least MinLength days below TempThreshold
// found from the transition month onward; without a cold run the season
// extends to the end of the group. Missing temperatures break both warm and
// cold runs. Groups without the transition month yield NaN; groups with no
// season start yield 0.
//
// The alternate modes ignore the transition split: warm runs of at least
// MinLength are selected across the full series, gaps shorter than
// MinLength between selected runs are annealed shut, and each group
// reports the first, longest, or total length of the resulting periods.
func GrowingSeasonLength(temps []float64, months []time.Month, f *DateFactor, p GrowingSeasonParams) ([]float64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(temps) != len(months) {
		return nil, ValidationError{Field: "temps", Message: fmt.Sprintf("series length mismatch: %d temperatures, %d months", len(temps), len(months))}
	}
	if f.Len() != len(temps) {
		return nil, ValidationError{Field: "factor", Message: fmt.Sprintf("factor covers %d days, series has %d", f.Len(), len(temps))}
	}

	if p.Mode != GSLModeDefault {
		return growingSeasonRuns(temps, f, p)
	}

	out := make([]float64, f.NumGroups())
	for g, indices := range f.groupIndices() {
		out[g] = growingSeasonDefault(temps, months, indices, p)
	}
	return out, nil
}

// growingSeasonDefault runs the two-phase automaton over one group's days.
func growingSeasonDefault(temps []float64, months []time.Month, indices []int, p GrowingSeasonParams) float64 {
	mid := -1
	for pos, i := range indices {
		if months[i] == p.Transition {
			mid = pos
			break
		}
	}
	if mid < 0 {
		return math.NaN()
	}

	// Phase one: first warm run completing before the transition.
	seasonStart := -1
	warm := 0
	for pos := 0; pos < mid; pos++ {
		v := temps[indices[pos]]
		if !math.IsNaN(v) && v >= p.TempThreshold {
			warm++
			if warm == p.MinLength {
				seasonStart = pos - p.MinLength + 1
				break
			}
		} else {
			warm = 0
		}
	}
	if seasonStart < 0 {
		return 0
	}

	// Phase two: first cold run from the transition onward.
	cold := 0
	for pos := mid; pos < len(indices); pos++ {
		v := temps[indices[pos]]
		if !math.IsNaN(v) && v < p.TempThreshold {
			cold++
			if cold == p.MinLength {
				coldStart := pos - p.MinLength + 1
				return float64(coldStart - seasonStart)
			}
		} else {
			cold = 0
		}
	}
	return float64(len(indices) - seasonStart)
}

// growingSeasonRuns implements the first/longest/sum modes: select warm
// runs across the whole series, anneal sub-MinLength gaps between them,
// then summarize run lengths within each group.
func growingSeasonRuns(temps []float64, f *DateFactor, p GrowingSeasonParams) ([]float64, error) {
	warm := make([]bool, len(temps))
	for i, v := range temps {
		warm[i] = !math.IsNaN(v) && v >= p.TempThreshold
	}
	selected := SelectBlocksAtLeast(warm, p.MinLength)

	gaps := make([]bool, len(selected))
	for i, s := range selected {
		gaps[i] = !s
	}
	keptGaps := SelectBlocksAtLeast(gaps, p.MinLength)
	inSeason := make([]bool, len(keptGaps))
	for i, gap := range keptGaps {
		inSeason[i] = !gap
	}

	out := make([]float64, f.NumGroups())
	for g, indices := range f.groupIndices() {
		sub := make([]bool, len(indices))
		for j, i := range indices {
			sub[j] = inSeason[i]
		}
		lengths := SeriesLengthsAtEnds(sub)

		switch p.Mode {
		case GSLModeFirst:
			out[g] = 0
			for _, l := range lengths {
				if l > 0 {
					out[g] = l
					break
				}
			}
		case GSLModeLongest:
			max := 0.0
			for _, l := range lengths {
				if l > max {
					max = l
				}
			}
			out[g] = max
		case GSLModeSum:
			sum := 0.0
			for _, l := range lengths {
				sum += l
			}
			out[g] = sum
		}
	}
	return out, nil
}
