package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Training.NEstimators)
	assert.Equal(t, int64(42), cfg.Training.Seed)
	assert.Equal(t, 0.2, cfg.Training.TestSize)
	assert.Equal(t, -2.0, cfg.Vaccine.SafeMinTemp)
	assert.Equal(t, 5.0, cfg.Vaccine.SafeMaxTemp)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "models", cfg.Output.ModelsDir)
	assert.False(t, cfg.Output.Plots)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
data:
  vaccine_csv: /tmp/readings.csv
training:
  n_estimators: 25
  test_size: 0.3
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/readings.csv", cfg.Data.VaccineCSV)
	assert.Equal(t, 25, cfg.Training.NEstimators)
	assert.Equal(t, 0.3, cfg.Training.TestSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Unset keys keep their defaults.
	assert.Equal(t, int64(42), cfg.Training.Seed)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("COLDCHAIN_TRAINING_N_ESTIMATORS", "7")
	t.Setenv("COLDCHAIN_VACCINE_SAFE_MAX_TEMP", "8")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Training.NEstimators)
	assert.Equal(t, 8.0, cfg.Vaccine.SafeMaxTemp)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero estimators", mutate: func(c *Config) { c.Training.NEstimators = 0 }},
		{name: "test size too large", mutate: func(c *Config) { c.Training.TestSize = 1.0 }},
		{name: "test size negative", mutate: func(c *Config) { c.Training.TestSize = -0.1 }},
		{name: "inverted safe range", mutate: func(c *Config) { c.Vaccine.SafeMinTemp = 10 }},
		{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
