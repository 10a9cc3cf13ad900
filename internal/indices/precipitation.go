package indices

import (
	"math"

	"climex/internal/climate"
)

// Fixed precipitation thresholds in millimetres.
const (
	heavyPrecThreshold     = 10.0
	veryHeavyPrecThreshold = 20.0
)

func registerPrecipitation() {
	register(Definition{
		Name:          "rx1day",
		Description:   "Highest one-day precipitation amount",
		Variables:     []string{VarPrec},
		Granularities: allGranularities(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return maskedAggregate(s, VarPrec, g, climate.GroupMax)
		},
	})
	register(Definition{
		Name:          "rx5day",
		Description:   "Highest consecutive five-day precipitation amount",
		Variables:     []string{VarPrec},
		Granularities: allGranularities(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return maskedAggregate(s, VarPrec, g, func(values []float64, f *climate.DateFactor) []float64 {
				return climate.GroupMax(centeredRunningSum(values, 5), f)
			})
		},
	})
	register(Definition{
		Name:          "sdii",
		Description:   "Simple precipitation intensity index, mean precipitation on wet days",
		Variables:     []string{VarPrec},
		Granularities: annualOnly(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return maskedAggregate(s, VarPrec, g, func(values []float64, f *climate.DateFactor) []float64 {
				return climate.GroupMeanWhere(values, f, isWetDay)
			})
		},
	})
	register(Definition{
		Name:          "r10mm",
		Description:   "Count of heavy precipitation days, at least 10 mm",
		Variables:     []string{VarPrec},
		Granularities: annualOnly(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return maskedCountWhere(s, VarPrec, g, func(v float64) bool { return v >= heavyPrecThreshold })
		},
	})
	register(Definition{
		Name:          "r20mm",
		Description:   "Count of very heavy precipitation days, at least 20 mm",
		Variables:     []string{VarPrec},
		Granularities: annualOnly(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return maskedCountWhere(s, VarPrec, g, func(v float64) bool { return v >= veryHeavyPrecThreshold })
		},
	})
	register(Definition{
		Name:          "cdd",
		Description:   "Maximum length of dry spell, consecutive days below 1 mm",
		Variables:     []string{VarPrec},
		Granularities: annualOnly(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return maskedSpellMax(s, g, climate.CmpLT)
		},
	})
	register(Definition{
		Name:          "cwd",
		Description:   "Maximum length of wet spell, consecutive days at or above 1 mm",
		Variables:     []string{VarPrec},
		Granularities: annualOnly(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return maskedSpellMax(s, g, climate.CmpGE)
		},
	})
	register(Definition{
		Name:          "prcptot",
		Description:   "Total precipitation on wet days",
		Variables:     []string{VarPrec},
		Granularities: annualOnly(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return maskedAggregate(s, VarPrec, g, func(values []float64, f *climate.DateFactor) []float64 {
				return climate.GroupSumWhere(values, f, isWetDay)
			})
		},
	})
	register(Definition{
		Name:          "r95ptot",
		Description:   "Total precipitation on days above the 95th percentile of base-period wet days",
		Variables:     []string{VarPrec},
		Granularities: annualOnly(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return wetQuantileTotal(s, g, 0.95)
		},
	})
	register(Definition{
		Name:          "r99ptot",
		Description:   "Total precipitation on days above the 99th percentile of base-period wet days",
		Variables:     []string{VarPrec},
		Granularities: annualOnly(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return wetQuantileTotal(s, g, 0.99)
		},
	})
}

func isWetDay(v float64) bool {
	return v >= climate.DefaultWetDayThreshold
}

// centeredRunningSum returns per-day sums over a centered width-day window.
// Missing days count as zero and the half-window at each end of the record
// is zero, so edge days never carry a partial window.
func centeredRunningSum(values []float64, width int) []float64 {
	out := make([]float64, len(values))
	half := width / 2
	for i := half; i < len(values)-half; i++ {
		sum := 0.0
		for j := i - half; j <= i+half; j++ {
			if !math.IsNaN(values[j]) {
				sum += values[j]
			}
		}
		out[i] = sum
	}
	return out
}

// maskedSpellMax computes the longest precipitation spell per group. Spells
// span group boundaries, so a run is attributed to the group it started in.
func maskedSpellMax(s *climate.Session, g climate.Granularity, op climate.Comparator) ([]float64, *climate.DateFactor, error) {
	values, err := s.Values(VarPrec)
	if err != nil {
		return nil, nil, err
	}
	f := s.Factor(g)
	out, err := climate.SpellLengthMax(values, f, climate.SpellParams{
		Threshold:  climate.DefaultWetDayThreshold,
		Op:         op,
		SpansYears: true,
	})
	if err != nil {
		return nil, nil, err
	}
	mask, err := s.ValidMask(VarPrec, g)
	if err != nil {
		return nil, nil, err
	}
	return climate.ApplyMask(out, mask), f, nil
}

// wetQuantileTotal sums precipitation on days exceeding the flat quantile of
// base-period wet days. Unlike temperature thresholds the cut is a single
// scalar, not a day-of-year curve.
func wetQuantileTotal(s *climate.Session, g climate.Granularity, p float64) ([]float64, *climate.DateFactor, error) {
	values, err := s.Values(VarPrec)
	if err != nil {
		return nil, nil, err
	}
	inBase := s.InBase()

	baseWet := make([]float64, 0, len(values))
	for i, v := range values {
		if inBase[i] && !math.IsNaN(v) && isWetDay(v) {
			baseWet = append(baseWet, v)
		}
	}
	threshold := climate.Quantile(baseWet, p)

	f := s.Factor(g)
	mask, err := s.ValidMask(VarPrec, g)
	if err != nil {
		return nil, nil, err
	}

	if math.IsNaN(threshold) {
		out := make([]float64, f.NumGroups())
		for i := range out {
			out[i] = math.NaN()
		}
		return out, f, nil
	}

	out := climate.GroupSumWhere(values, f, func(v float64) bool { return v > threshold })
	return climate.ApplyMask(out, mask), f, nil
}
