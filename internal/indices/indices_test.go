package indices

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climex/internal/climate"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// dailySeries builds whole years of observations on the 365-day calendar
// from a date-valued function.
func dailySeries(name string, class climate.VariableClass, startYear, endYear int, value func(climate.Date) float64) climate.VariableSeries {
	cal := climate.Calendar365Day
	var obs []climate.Observation
	for d := cal.YearStart(startYear); !d.After(cal.YearEnd(endYear)); d = cal.Next(d) {
		obs = append(obs, climate.Observation{Date: d, Value: value(d)})
	}
	return climate.VariableSeries{Name: name, Class: class, Calendar: cal, Observations: obs}
}

func newSession(t *testing.T, base climate.BaseRange, vars ...climate.VariableSeries) *climate.Session {
	t.Helper()
	s, err := climate.NewSession(vars, base, climate.DefaultConfig(), discardLogger())
	require.NoError(t, err)
	return s
}

// labelIndex finds the position of a group label in a computed series.
func labelIndex(t *testing.T, series *Series, label string) int {
	t.Helper()
	for i, l := range series.Labels {
		if l == label {
			return i
		}
	}
	t.Fatalf("label %q not found in %v", label, series.Labels)
	return -1
}

func TestCatalog_WellFormed(t *testing.T) {
	defs := Catalog()
	require.NotEmpty(t, defs)

	seen := make(map[string]bool)
	for _, d := range defs {
		assert.False(t, seen[d.Name], "duplicate index %s", d.Name)
		seen[d.Name] = true

		assert.Equal(t, strings.ToLower(d.Name), d.Name)
		assert.NotEmpty(t, d.Description, d.Name)
		assert.NotEmpty(t, d.Variables, d.Name)
		assert.NotEmpty(t, d.Granularities, d.Name)
		assert.True(t, d.SupportsGranularity(climate.GranularityAnnual),
			"%s must support annual grouping", d.Name)
	}
}

func TestCatalog_ContainsCoreIndices(t *testing.T) {
	for _, name := range []string{
		"fd", "su", "id", "tr", "gsl",
		"txx", "tnx", "txn", "tnn",
		"tn10p", "tx10p", "tn90p", "tx90p",
		"wsdi", "csdi", "dtr",
		"rx1day", "rx5day", "sdii", "r10mm", "r20mm",
		"cdd", "cwd", "prcptot", "r95ptot", "r99ptot",
	} {
		_, ok := Lookup(name)
		assert.True(t, ok, name)
	}
}

func TestLookup_CaseInsensitive(t *testing.T) {
	d, ok := Lookup("TX90P")
	require.True(t, ok)
	assert.Equal(t, "tx90p", d.Name)
}

func TestLookup_Unknown(t *testing.T) {
	_, ok := Lookup("huglin")
	assert.False(t, ok)
}

func TestNames_MatchesCatalog(t *testing.T) {
	names := Names()
	defs := Catalog()
	require.Len(t, names, len(defs))
	for i, d := range defs {
		assert.Equal(t, d.Name, names[i])
	}
}

func TestCompute_UnknownIndex(t *testing.T) {
	s := newSession(t, climate.BaseRange{StartYear: 2001, EndYear: 2001},
		dailySeries(VarTmin, climate.ClassTemperature, 2001, 2001, func(climate.Date) float64 { return 5 }))

	_, err := Compute(s, "nope", climate.GranularityAnnual)
	require.ErrorIs(t, err, ErrUnknownIndex)
}

func TestCompute_UnsupportedGranularity(t *testing.T) {
	s := newSession(t, climate.BaseRange{StartYear: 2001, EndYear: 2001},
		dailySeries(VarTavg, climate.ClassTemperature, 2001, 2001, func(climate.Date) float64 { return 5 }))

	_, err := Compute(s, "gsl", climate.GranularityMonthly)
	require.ErrorIs(t, err, ErrUnsupportedGranularity)
}

func TestCompute_SeriesShape(t *testing.T) {
	tmin := dailySeries(VarTmin, climate.ClassTemperature, 2001, 2002, func(d climate.Date) float64 {
		frost := 10
		if d.Year == 2002 {
			frost = 20
		}
		if d.Month == time.January && d.Day <= frost {
			return -5
		}
		return 5
	})
	s := newSession(t, climate.BaseRange{StartYear: 2001, EndYear: 2002}, tmin)

	series, err := Compute(s, "fd", climate.GranularityAnnual)
	require.NoError(t, err)

	assert.Equal(t, "fd", series.Index)
	assert.Equal(t, VarTmin, series.Variable)
	assert.Equal(t, climate.GranularityAnnual, series.Granularity)
	assert.Equal(t, []string{"2001", "2002"}, series.Labels)
	assert.Equal(t, []float64{10, 20}, series.Values)
}

func TestCompute_MissingVariable(t *testing.T) {
	s := newSession(t, climate.BaseRange{StartYear: 2001, EndYear: 2001},
		dailySeries(VarTmin, climate.ClassTemperature, 2001, 2001, func(climate.Date) float64 { return 5 }))

	_, err := Compute(s, "su", climate.GranularityAnnual)
	require.Error(t, err)

	var unknown *climate.UnknownVariableError
	assert.ErrorAs(t, err, &unknown)
}
