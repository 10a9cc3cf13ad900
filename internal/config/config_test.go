package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climex/internal/climate"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 1961, cfg.Engine.BaseStart)
	assert.Equal(t, 1990, cfg.Engine.BaseEnd)
	assert.Equal(t, "northern", cfg.Engine.Hemisphere)
}

func TestDefault_EngineMatchesClimateDefaults(t *testing.T) {
	cfg := Default()
	cc, err := cfg.ClimateConfig()
	require.NoError(t, err)

	assert.Equal(t, 5, cc.WindowN)
	assert.Equal(t, []float64{0.10, 0.25, 0.75, 0.90}, cc.TemperatureQuantiles)
	assert.Equal(t, []float64{0.25, 0.75, 0.95, 0.99}, cc.PrecipitationQuantiles)
	assert.Equal(t, climate.DefaultTolerances(), cc.Tolerances)
	assert.True(t, cc.NorthernHemisphere)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CLIMEX_SERVER_PORT", "9999")
	t.Setenv("CLIMEX_LOGGING_LEVEL", "debug")
	t.Setenv("CLIMEX_ENGINE_BASE_START", "1981")
	t.Setenv("CLIMEX_ENGINE_BASE_END", "2010")
	t.Setenv("CLIMEX_ENGINE_HEMISPHERE", "southern")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "1981-2010", cfg.BaseRange().String())

	cc, err := cfg.ClimateConfig()
	require.NoError(t, err)
	assert.False(t, cc.NorthernHemisphere)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "climex.yaml")
	content := `
server:
  port: 8181
engine:
  base_start: 1971
  base_end: 2000
  hemisphere: southern
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("CLIMEX_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 1971, cfg.Engine.BaseStart)
	assert.Equal(t, "southern", cfg.Engine.Hemisphere)
	// Untouched sections keep defaults.
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "climex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8181\n"), 0644))
	t.Setenv("CLIMEX_CONFIG", path)
	t.Setenv("CLIMEX_SERVER_PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	t.Setenv("CLIMEX_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"file output without path", func(c *Config) { c.Logging.Output = "file" }},
		{"inverted base range", func(c *Config) { c.Engine.BaseStart = 1990; c.Engine.BaseEnd = 1961 }},
		{"even window", func(c *Config) { c.Engine.WindowN = 4 }},
		{"quantile out of range", func(c *Config) { c.Engine.TemperatureQuantiles = []float64{0.1, 1.0} }},
		{"bad hemisphere", func(c *Config) { c.Engine.Hemisphere = "equatorial" }},
		{"min conns above max", func(c *Config) { c.Database.MinConns = 10; c.Database.MaxConns = 2 }},
		{"bcrypt cost too low", func(c *Config) { c.Security.BcryptCost = 2 }},
		{"sample ratio above one", func(c *Config) { c.Telemetry.SampleRatio = 1.5 }},
		{"negative tolerance", func(c *Config) { c.Engine.MonthlyTolerance = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestListenAddr(t *testing.T) {
	cfg := Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8080
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr())
}
