package indices

import (
	"math"

	"climex/internal/climate"
)

// Fixed temperature thresholds in degrees Celsius.
const (
	frostThreshold    = 0.0
	summerThreshold   = 25.0
	icingThreshold    = 0.0
	tropicalThreshold = 20.0
)

func registerTemperature() {
	register(Definition{
		Name:          "fd",
		Description:   "Count of frost days, daily minimum temperature below 0 C",
		Variables:     []string{VarTmin},
		Granularities: allGranularities(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return maskedCountWhere(s, VarTmin, g, func(v float64) bool { return v < frostThreshold })
		},
	})
	register(Definition{
		Name:          "su",
		Description:   "Count of summer days, daily maximum temperature above 25 C",
		Variables:     []string{VarTmax},
		Granularities: allGranularities(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return maskedCountWhere(s, VarTmax, g, func(v float64) bool { return v > summerThreshold })
		},
	})
	register(Definition{
		Name:          "id",
		Description:   "Count of icing days, daily maximum temperature below 0 C",
		Variables:     []string{VarTmax},
		Granularities: allGranularities(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return maskedCountWhere(s, VarTmax, g, func(v float64) bool { return v < icingThreshold })
		},
	})
	register(Definition{
		Name:          "tr",
		Description:   "Count of tropical nights, daily minimum temperature above 20 C",
		Variables:     []string{VarTmin},
		Granularities: allGranularities(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return maskedCountWhere(s, VarTmin, g, func(v float64) bool { return v > tropicalThreshold })
		},
	})
	register(Definition{
		Name:          "gsl",
		Description:   "Growing season length in days, based on daily mean temperature",
		Variables:     []string{VarTavg},
		Granularities: annualOnly(),
		compute:       computeGSL,
	})
	register(Definition{
		Name:          "txx",
		Description:   "Highest daily maximum temperature",
		Variables:     []string{VarTmax},
		Granularities: allGranularities(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return maskedAggregate(s, VarTmax, g, climate.GroupMax)
		},
	})
	register(Definition{
		Name:          "tnx",
		Description:   "Highest daily minimum temperature",
		Variables:     []string{VarTmin},
		Granularities: allGranularities(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return maskedAggregate(s, VarTmin, g, climate.GroupMax)
		},
	})
	register(Definition{
		Name:          "txn",
		Description:   "Lowest daily maximum temperature",
		Variables:     []string{VarTmax},
		Granularities: allGranularities(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return maskedAggregate(s, VarTmax, g, climate.GroupMin)
		},
	})
	register(Definition{
		Name:          "tnn",
		Description:   "Lowest daily minimum temperature",
		Variables:     []string{VarTmin},
		Granularities: allGranularities(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return maskedAggregate(s, VarTmin, g, climate.GroupMin)
		},
	})
	register(Definition{
		Name:          "tn10p",
		Description:   "Percentage of days with daily minimum temperature below the 10th percentile",
		Variables:     []string{VarTmin},
		Granularities: allGranularities(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return percentileDays(s, VarTmin, 0.10, climate.CmpLT, g)
		},
	})
	register(Definition{
		Name:          "tx10p",
		Description:   "Percentage of days with daily maximum temperature below the 10th percentile",
		Variables:     []string{VarTmax},
		Granularities: allGranularities(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return percentileDays(s, VarTmax, 0.10, climate.CmpLT, g)
		},
	})
	register(Definition{
		Name:          "tn90p",
		Description:   "Percentage of days with daily minimum temperature above the 90th percentile",
		Variables:     []string{VarTmin},
		Granularities: allGranularities(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return percentileDays(s, VarTmin, 0.90, climate.CmpGT, g)
		},
	})
	register(Definition{
		Name:          "tx90p",
		Description:   "Percentage of days with daily maximum temperature above the 90th percentile",
		Variables:     []string{VarTmax},
		Granularities: allGranularities(),
		compute: func(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return percentileDays(s, VarTmax, 0.90, climate.CmpGT, g)
		},
	})
	register(Definition{
		Name:          "wsdi",
		Description:   "Warm spell duration, days in runs of at least the minimum spell length above the 90th percentile of daily maximum temperature",
		Variables:     []string{VarTmax},
		Granularities: annualOnly(),
		compute: func(s *climate.Session, _ climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return spellDuration(s, VarTmax, 0.90, climate.CmpGT)
		},
	})
	register(Definition{
		Name:          "csdi",
		Description:   "Cold spell duration, days in runs of at least the minimum spell length below the 10th percentile of daily minimum temperature",
		Variables:     []string{VarTmin},
		Granularities: annualOnly(),
		compute: func(s *climate.Session, _ climate.Granularity) ([]float64, *climate.DateFactor, error) {
			return spellDuration(s, VarTmin, 0.10, climate.CmpLT)
		},
	})
	register(Definition{
		Name:          "dtr",
		Description:   "Mean diurnal temperature range",
		Variables:     []string{VarTmax, VarTmin},
		Granularities: allGranularities(),
		compute:       computeDTR,
	})
}

// computeGSL runs the growing-season automaton over the hemisphere-rotated
// annual grouping and masks years with too many missing days.
func computeGSL(s *climate.Session, _ climate.Granularity) ([]float64, *climate.DateFactor, error) {
	temps, err := s.Values(VarTavg)
	if err != nil {
		return nil, nil, err
	}
	f := s.HemisphereAnnualFactor()
	out, err := climate.GrowingSeasonLength(temps, s.Months(), f, climate.GrowingSeasonParams{
		TempThreshold: climate.DefaultGrowingSeasonThreshold,
		MinLength:     s.Config().MinSpellLength,
		Mode:          climate.GSLModeDefault,
		Transition:    s.TransitionMonth(),
	})
	if err != nil {
		return nil, nil, err
	}
	mask, err := s.GrowingSeasonValidMask(VarTavg)
	if err != nil {
		return nil, nil, err
	}
	return climate.ApplyMask(out, mask), f, nil
}

// computeDTR averages the per-day tmax-tmin difference. A day missing
// either extreme drops out, and the missing-day tolerance applies to the
// difference series rather than to the inputs separately.
func computeDTR(s *climate.Session, g climate.Granularity) ([]float64, *climate.DateFactor, error) {
	tmax, err := s.Values(VarTmax)
	if err != nil {
		return nil, nil, err
	}
	tmin, err := s.Values(VarTmin)
	if err != nil {
		return nil, nil, err
	}

	diff := make([]float64, len(tmax))
	for i := range tmax {
		if math.IsNaN(tmax[i]) || math.IsNaN(tmin[i]) {
			diff[i] = math.NaN()
			continue
		}
		diff[i] = tmax[i] - tmin[i]
	}

	f := s.Factor(g)
	valid := climate.GroupValidMask(climate.MissingMask(diff), f, s.Config().Tolerances.For(g))
	return climate.ApplyMask(climate.GroupMean(diff, f), valid), f, nil
}
