package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"trgmatch/pkg/trigger"
)

type Tolerance struct {
	// Pt is the maximum relative transverse-momentum difference.
	Pt float64 `mapstructure:"pt"`
	// DeltaR is the maximum angular distance in the (eta, phi) plane.
	DeltaR float64 `mapstructure:"delta_r"`
}

type Config struct {
	Input          string    `mapstructure:"input"`
	Output         string    `mapstructure:"output"`
	Filters        string    `mapstructure:"filters"`
	FullRecoFormat bool      `mapstructure:"full_reco_format"`
	Tolerance      Tolerance `mapstructure:"tolerance"`
	MetricsAddr    string    `mapstructure:"metrics_addr"`
	SkipBadEvents  bool      `mapstructure:"skip_bad_events"`
	Verbose        bool      `mapstructure:"verbose"`
}

const EnvPrefix = "TRGMATCH"

func Defaults() Config {
	return Config{
		Input:          "-",
		Output:         "-",
		FullRecoFormat: false,
		Tolerance: Tolerance{
			Pt:     0.5,
			DeltaR: 0.3,
		},
	}
}

// Load resolves the configuration from v: defaults, then the config file
// (if one is set on v), then TRGMATCH_* environment variables, then any flags
// bound by the caller.
func Load(v *viper.Viper) (Config, error) {
	d := Defaults()
	v.SetDefault("input", d.Input)
	v.SetDefault("output", d.Output)
	v.SetDefault("filters", d.Filters)
	v.SetDefault("full_reco_format", d.FullRecoFormat)
	v.SetDefault("tolerance.pt", d.Tolerance.Pt)
	v.SetDefault("tolerance.delta_r", d.Tolerance.DeltaR)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("skip_bad_events", d.SkipBadEvents)
	v.SetDefault("verbose", d.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if !(c.Tolerance.Pt > 0) {
		errs = append(errs, fmt.Errorf("tolerance.pt must be positive, got %v", c.Tolerance.Pt))
	}
	if !(c.Tolerance.DeltaR > 0) {
		errs = append(errs, fmt.Errorf("tolerance.delta_r must be positive, got %v", c.Tolerance.DeltaR))
	}
	if c.Input == "" {
		errs = append(errs, errors.New("input is required"))
	}
	if c.Output == "" {
		errs = append(errs, errors.New("output is required"))
	}
	return errors.Join(errs...)
}

func (c Config) Tolerances() trigger.Tolerances {
	return trigger.Tolerances{Pt: c.Tolerance.Pt, DeltaR: c.Tolerance.DeltaR}
}

// TaggerOptions maps the run configuration onto the trigger tagger.
func (c Config) TaggerOptions() trigger.Options {
	return trigger.Options{
		Tolerances: c.Tolerances(),
		FullFormat: c.FullRecoFormat,
	}
}

func (c Config) Format() string {
	if c.FullRecoFormat {
		return "aod"
	}
	return "miniaod"
}
