// Package climate implements the core computation engine for standardized
// climate-extremes indices over daily observation series.
//
// The engine covers the algorithmically subtle parts of ETCCDI-style index
// computation: calendar-aware temporal bucketing, windowed percentile
// thresholds with the Zhang et al. (2005) in-base bootstrap, threshold
// exceedance with in-base/out-base blending, run-length ("spell") detection,
// and missing-data masking. The ~80 named index wrappers (frost days, summer
// days, and so on) are thin compositions over these primitives and live with
// the callers, not here.
//
// # Core Components
//
//  1. Calendar & date factors: mapping dates to a fixed-length day-of-year
//     index (leap days fold onto day 59) and to annual/monthly/seasonal/
//     half-year group keys with the December year-shift rule.
//  2. Missing-data masks: per-group validity given a missing-day tolerance,
//     propagated multiplicatively into aggregates.
//  3. Windowed quantiles: per day-of-year percentiles over an n-day centered
//     window pooled across the base years, using the type-8 (Hazen/Cunnane)
//     estimator, plus the leave-one-year-out in-base cube.
//  4. Threshold exceedance: daily boolean/fractional exceedance against
//     day-of-year thresholds, averaging over withheld-year counterfactuals
//     inside the base period.
//  5. Spell engine: run filtering, run lengths at run ends, per-group
//     maximum spell length and warm/cold spell duration counts.
//  6. Growing season: a warm-run/cold-run automaton with hemisphere-aware
//     year rotation performed by the caller.
//
// # Architecture
//
// The package is purely functional: every operation takes fully materialized
// day/value arrays plus factor arrays and returns new arrays. There is no
// shared mutable state and no I/O. Missing observations are math.NaN; an
// invalid aggregate is NaN in the result slice.
//
//   - types.go: calendars, dates, granularities, configuration
//   - errors.go: engine error kinds
//   - comparator.go: the closed comparator enum
//   - calendar.go: day-of-year arithmetic and date iteration
//   - factors.go: date factor construction
//   - series.go: the validated session builder
//   - mask.go: missing-data masks
//   - quantile.go: type-8 estimator and the QuantileSet container
//   - bootstrap.go: windowed thresholds and the year-replacement cube
//   - exceedance.go: threshold exceedance and grouped percentages
//   - spell.go: run-length primitives and spell aggregates
//   - growing.go: the growing-season state machine
//   - aggregate.go: grouped sums/means with mask application
//   - cache.go: memoized quantile sets
//
// # Usage Example
//
//	vars := []climate.VariableSeries{{
//	    Name:     "tmax",
//	    Class:    climate.ClassTemperature,
//	    Calendar: climate.CalendarGregorian,
//	    Observations: obs,
//	}}
//	session, err := climate.NewSession(vars, climate.BaseRange{StartYear: 1981, EndYear: 1990},
//	    climate.DefaultConfig(), slog.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	qs, err := session.Quantiles("tmax")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	warm, _ := qs.Outbase(0.90)
//	cube, _ := qs.Bootstrap(0.90)
//	values, _ := session.Values("tmax")
//	pct, err := climate.ExceedancePercent(values, session.DayOfYear(), session.Years(),
//	    session.Factor(climate.GranularityMonthly),
//	    climate.ExceedanceParams{Thresholds: warm, Bootstrap: cube, Base: session.Base(), Op: climate.CmpGT},
//	    climate.DefaultMonthlyTolerance)
//
// # References
//
// The percentile bootstrap follows Zhang, X. et al. (2005), "Avoiding
// inhomogeneity in percentile-based indices of temperature extremes",
// J. Climate 18. Index definitions follow the ETCCDI recommendations.
package climate
