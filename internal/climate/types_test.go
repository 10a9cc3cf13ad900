package climate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5, cfg.WindowN)
	assert.Equal(t, []float64{0.10, 0.25, 0.75, 0.90}, cfg.TemperatureQuantiles)
	assert.Equal(t, []float64{0.25, 0.75, 0.95, 0.99}, cfg.PrecipitationQuantiles)
	assert.Equal(t, 0.10, cfg.MinFractionPresent)
	assert.Equal(t, 6, cfg.MinSpellLength)
	assert.True(t, cfg.NorthernHemisphere)
}

func TestConfig_ValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "even window", mutate: func(c *Config) { c.WindowN = 6 }},
		{name: "negative window", mutate: func(c *Config) { c.WindowN = -1 }},
		{name: "quantile at zero", mutate: func(c *Config) { c.TemperatureQuantiles = []float64{0, 0.5} }},
		{name: "quantiles decreasing", mutate: func(c *Config) { c.PrecipitationQuantiles = []float64{0.9, 0.1} }},
		{name: "fraction negative", mutate: func(c *Config) { c.MinFractionPresent = -0.5 }},
		{name: "zero spell length", mutate: func(c *Config) { c.MinSpellLength = 0 }},
		{name: "negative tolerance", mutate: func(c *Config) { c.Tolerances.Monthly = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var verr ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestMissingTolerances_For(t *testing.T) {
	tol := DefaultTolerances()

	assert.Equal(t, 15, tol.For(GranularityAnnual))
	assert.Equal(t, 10, tol.For(GranularityHalfYear))
	assert.Equal(t, 8, tol.For(GranularitySeasonal))
	assert.Equal(t, 3, tol.For(GranularityMonthly))
}

func TestConfig_QuantilesFor(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, cfg.TemperatureQuantiles, cfg.QuantilesFor(ClassTemperature))
	assert.Equal(t, cfg.PrecipitationQuantiles, cfg.QuantilesFor(ClassPrecipitation))
	assert.Nil(t, cfg.QuantilesFor(ClassOther))
}

func TestBaseRange(t *testing.T) {
	b := BaseRange{StartYear: 1981, EndYear: 1990}

	assert.True(t, b.IsValid())
	assert.Equal(t, 10, b.Years())
	assert.True(t, b.ContainsYear(1981))
	assert.True(t, b.ContainsYear(1990))
	assert.False(t, b.ContainsYear(1991))
	assert.Equal(t, "1981-1990", b.String())

	assert.False(t, BaseRange{StartYear: 1990, EndYear: 1981}.IsValid())
	assert.False(t, BaseRange{}.IsValid())
	assert.True(t, BaseRange{StartYear: 1990, EndYear: 1990}.IsValid())
}

func TestGranularity_ParseRoundTrip(t *testing.T) {
	for _, g := range Granularities() {
		parsed, err := ParseGranularity(g.String())
		require.NoError(t, err)
		assert.Equal(t, g, parsed)
	}

	_, err := ParseGranularity("weekly")
	assert.Error(t, err)
}

func TestVariableClass_ParseRoundTrip(t *testing.T) {
	for _, c := range []VariableClass{ClassTemperature, ClassPrecipitation, ClassOther} {
		parsed, err := ParseVariableClass(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	_, err := ParseVariableClass("humidity")
	assert.Error(t, err)
}
