package services

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climex/internal/climate"
	"climex/internal/indices"
	"climex/internal/store"
)

func newThresholdFixture(t *testing.T) (*ThresholdService, *fakeObservations) {
	t.Helper()

	obs := newFakeObservations()
	obs.put("st-1", indices.VarTmax, obsRows("st-1", indices.VarTmax, 2001, 2004, rampValue(10)))
	obs.put("st-1", indices.VarTmin, obsRows("st-1", indices.VarTmin, 2001, 2004, rampValue(3)))
	obs.put("st-1", indices.VarTavg, obsRows("st-1", indices.VarTavg, 2001, 2004, rampValue(6.5)))
	obs.put("st-1", indices.VarPrec, obsRows("st-1", indices.VarPrec, 2001, 2004, rampValue(0)))

	svc := NewThresholdService(newFakeStations(testStation()), obs, testConfig(), discardLogger())
	return svc, obs
}

func TestThresholdService_StationThresholds(t *testing.T) {
	svc, _ := newThresholdFixture(t)

	sets, err := svc.StationThresholds(context.Background(), "st-1", []string{indices.VarTmax}, nil)
	require.NoError(t, err)
	require.Len(t, sets, 1)

	set := sets[0]
	assert.Equal(t, "st-1", set.StationID)
	assert.Equal(t, indices.VarTmax, set.Variable)
	assert.Equal(t, "365_day", set.Calendar)
	assert.Equal(t, climate.BaseRange{StartYear: 2001, EndYear: 2002}, set.Base)
	assert.Equal(t, 365, set.DaysPerYear)
	assert.Equal(t, []float64{0.10, 0.25, 0.75, 0.90}, set.Quantiles)

	for _, key := range []string{"q10", "q25", "q75", "q90"} {
		require.Contains(t, set.Curves, key)
		assert.Len(t, set.Curves[key], 365)
	}

	// Day 181 (index 180) draws on days 179..183 of two identical base
	// years; the 0.90 cut lands on the top pair.
	assert.InDelta(t, 11.83, set.Curves["q90"][180], 1e-9)
}

func TestThresholdService_AutoDiscoversVariables(t *testing.T) {
	svc, _ := newThresholdFixture(t)

	sets, err := svc.StationThresholds(context.Background(), "st-1", nil, nil)
	require.NoError(t, err)

	// tavg has no default quantile list and is skipped.
	got := make(map[string][]float64)
	for _, set := range sets {
		got[set.Variable] = set.Quantiles
	}
	require.Len(t, got, 3)
	assert.Equal(t, []float64{0.25, 0.75, 0.95, 0.99}, got[indices.VarPrec])
	assert.Equal(t, []float64{0.10, 0.25, 0.75, 0.90}, got[indices.VarTmax])
	assert.Equal(t, []float64{0.10, 0.25, 0.75, 0.90}, got[indices.VarTmin])
}

func TestThresholdService_ExplicitMissingVariable(t *testing.T) {
	svc, obs := newThresholdFixture(t)
	obs.put("st-1", indices.VarTmax, nil)

	_, err := svc.StationThresholds(context.Background(), "st-1", []string{indices.VarTmax}, nil)
	require.ErrorIs(t, err, ErrNoObservations)
}

func TestThresholdService_UnknownStation(t *testing.T) {
	svc, _ := newThresholdFixture(t)

	_, err := svc.StationThresholds(context.Background(), "ghost", nil, nil)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestThresholdService_InsufficientBaseData(t *testing.T) {
	svc, obs := newThresholdFixture(t)

	gap := nilValueRows(obsRows("st-1", indices.VarTmax, 2001, 2001, rampValue(10)))
	rest := obsRows("st-1", indices.VarTmax, 2002, 2004, rampValue(10))
	obs.put("st-1", indices.VarTmax, append(gap, rest...))

	_, err := svc.StationThresholds(context.Background(), "st-1", []string{indices.VarTmax}, nil)
	var baseErr *climate.InsufficientBaseDataError
	require.ErrorAs(t, err, &baseErr)
	assert.Equal(t, indices.VarTmax, baseErr.Variable)
	assert.Equal(t, 2001, baseErr.Year)
}

func TestThresholdService_ExplicitBaseOverride(t *testing.T) {
	svc, _ := newThresholdFixture(t)

	base := &climate.BaseRange{StartYear: 2003, EndYear: 2004}
	sets, err := svc.StationThresholds(context.Background(), "st-1", []string{indices.VarTmin}, base)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, *base, sets[0].Base)
}

func TestThresholdRecords_RoundTrip(t *testing.T) {
	svc, _ := newThresholdFixture(t)

	sets, err := svc.StationThresholds(context.Background(), "st-1", []string{indices.VarTmax}, nil)
	require.NoError(t, err)

	headers, rows := ThresholdRecords(sets)
	assert.Equal(t, thresholdHeaders, headers)
	assert.Len(t, rows, 4*365)

	parsed, err := ParseThresholdRecords(headers, rows)
	require.NoError(t, err)
	require.Len(t, parsed, 1)

	want, got := sets[0], parsed[0]
	assert.Equal(t, want.StationID, got.StationID)
	assert.Equal(t, want.Variable, got.Variable)
	assert.Equal(t, want.Calendar, got.Calendar)
	assert.Equal(t, want.Base, got.Base)
	assert.Equal(t, want.DaysPerYear, got.DaysPerYear)
	assert.Equal(t, want.Quantiles, got.Quantiles)

	for key, wantCurve := range want.Curves {
		gotCurve := got.Curves[key]
		require.Len(t, gotCurve, len(wantCurve))
		for i := range wantCurve {
			if math.IsNaN(wantCurve[i]) {
				assert.True(t, math.IsNaN(gotCurve[i]), "day %d of %s", i+1, key)
				continue
			}
			assert.Equal(t, wantCurve[i], gotCurve[i], "day %d of %s", i+1, key)
		}
	}
}

func TestThresholdSet_ToQuantileSet_Precedence(t *testing.T) {
	svc, obs := newThresholdFixture(t)

	sets, err := svc.StationThresholds(context.Background(), "st-1", []string{indices.VarTmax}, nil)
	require.NoError(t, err)

	qs, err := sets[0].ToQuantileSet()
	require.NoError(t, err)
	assert.False(t, qs.HasBootstrap())

	// Installing the rebuilt set short-circuits threshold computation.
	rows, err := obs.ListSeries(context.Background(), "st-1", indices.VarTmax)
	require.NoError(t, err)
	session, err := climate.NewSession([]climate.VariableSeries{{
		Name:         indices.VarTmax,
		Class:        climate.ClassTemperature,
		Calendar:     climate.Calendar365Day,
		Observations: toObservations(rows),
	}}, climate.BaseRange{StartYear: 2001, EndYear: 2002}, climate.DefaultConfig(), discardLogger())
	require.NoError(t, err)

	require.NoError(t, session.SetPrecomputedQuantiles(indices.VarTmax, qs))
	fromSession, err := session.Quantiles(indices.VarTmax)
	require.NoError(t, err)
	assert.Same(t, qs, fromSession)

	hits, misses := session.CacheStats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}

func TestThresholdSet_ToQuantileSet_MissingCurve(t *testing.T) {
	set := &ThresholdSet{
		StationID:   "st-1",
		Variable:    "tmax",
		DaysPerYear: 365,
		Quantiles:   []float64{0.9},
		Curves:      map[string][]float64{},
	}
	_, err := set.ToQuantileSet()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "q90")
}

func TestParseThresholdRecords_RejectsBadInput(t *testing.T) {
	_, err := ParseThresholdRecords([]string{"nope"}, nil)
	require.Error(t, err)

	headers, rows := ThresholdRecords([]*ThresholdSet{{
		StationID:   "st-1",
		Variable:    "tmax",
		Calendar:    "365_day",
		Base:        climate.BaseRange{StartYear: 2001, EndYear: 2002},
		DaysPerYear: 365,
		Quantiles:   []float64{0.9},
		Curves:      map[string][]float64{"q90": make([]float64, 365)},
	}})
	rows[0] = rows[0][:4]
	_, err = ParseThresholdRecords(headers, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
}
