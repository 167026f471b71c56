// Package config loads tool configuration from an optional YAML file and
// COLDCHAIN_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/coldchain-ml/coldchain/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the full tool configuration.
type Config struct {
	Data     DataConfig     `mapstructure:"data"`
	Output   OutputConfig   `mapstructure:"output"`
	Training TrainingConfig `mapstructure:"training"`
	Vaccine  VaccineConfig  `mapstructure:"vaccine"`
	Log      LogConfig      `mapstructure:"log"`
}

// DataConfig locates the input datasets.
type DataConfig struct {
	VaccineCSV string `mapstructure:"vaccine_csv"`
	FruitCSV   string `mapstructure:"fruit_csv"`
}

// OutputConfig locates the written artifacts.
type OutputConfig struct {
	ModelsDir    string `mapstructure:"models_dir"`
	ProcessedDir string `mapstructure:"processed_dir"`
	PlotsDir     string `mapstructure:"plots_dir"`
	Plots        bool   `mapstructure:"plots"`
}

// TrainingConfig holds the shared training hyperparameters.
type TrainingConfig struct {
	NEstimators int     `mapstructure:"n_estimators"`
	Seed        int64   `mapstructure:"seed"`
	TestSize    float64 `mapstructure:"test_size"`
}

// VaccineConfig holds the safe shipper temperature range in °C.
type VaccineConfig struct {
	SafeMinTemp float64 `mapstructure:"safe_min_temp"`
	SafeMaxTemp float64 `mapstructure:"safe_max_temp"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.vaccine_csv", "data/input_data.csv")
	v.SetDefault("data.fruit_csv", "data/Dataset.csv")
	v.SetDefault("output.models_dir", "models")
	v.SetDefault("output.processed_dir", "processed_data")
	v.SetDefault("output.plots_dir", "plots")
	v.SetDefault("output.plots", false)
	v.SetDefault("training.n_estimators", 100)
	v.SetDefault("training.seed", 42)
	v.SetDefault("training.test_size", 0.2)
	v.SetDefault("vaccine.safe_min_temp", -2.0)
	v.SetDefault("vaccine.safe_max_temp", 5.0)
	v.SetDefault("log.level", "info")
}

// Load reads configuration from the given file (optional, "" skips the file)
// plus the environment, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("COLDCHAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable for training.
func (c *Config) Validate() error {
	if c.Training.NEstimators < 1 {
		return errors.NewValidationError("training.n_estimators",
			"must be at least 1", c.Training.NEstimators)
	}
	if c.Training.TestSize <= 0 || c.Training.TestSize >= 1 {
		return errors.NewValidationError("training.test_size",
			"must be in (0, 1)", c.Training.TestSize)
	}
	if c.Vaccine.SafeMinTemp >= c.Vaccine.SafeMaxTemp {
		return errors.NewValidationError("vaccine.safe_min_temp",
			fmt.Sprintf("must be below vaccine.safe_max_temp %g", c.Vaccine.SafeMaxTemp),
			c.Vaccine.SafeMinTemp)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.NewValidationError("log.level",
			"must be one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
