// Package config loads batch options and logging settings from a config
// file and ITEMBATCH_* environment variables using Viper.
package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/n8nkit/itembatch/batch"
	"github.com/n8nkit/itembatch/textutil"
)

// EnvPrefix is the prefix of environment variables overriding config keys.
// Dots in keys become underscores: compat.settle_delay is read from
// ITEMBATCH_COMPAT_SETTLE_DELAY.
const EnvPrefix = "ITEMBATCH"

// Config is the file representation of batch.Options plus logging.
type Config struct {
	LogErrors     bool         `mapstructure:"log_errors"`
	StopOnError   bool         `mapstructure:"stop_on_error"`
	SampleErrors  int          `mapstructure:"sample_errors"`
	ContextFields []string     `mapstructure:"context_fields"`
	Concurrency   int          `mapstructure:"concurrency"`
	Compat        CompatConfig `mapstructure:"compat"`
	Log           LogConfig    `mapstructure:"log"`
}

// CompatConfig configures the host compatibility shim.
type CompatConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// SettleDelay accepts Go durations ("150ms"), human durations
	// ("2 seconds") and bare numbers of milliseconds.
	SettleDelay time.Duration `mapstructure:"-"`

	Retry RetryConfig `mapstructure:"retry"`
}

// RetryConfig configures accessor retries. MaxAttempts 0 disables them.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"-"`
	Multiplier  float64       `mapstructure:"multiplier"`
	MaxDelay    time.Duration `mapstructure:"-"`
}

// LogConfig configures the logger built by NewLogger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// SetDefaults configures default values for all configuration options. They
// mirror batch.DefaultOptions and batch.N8NCompat.
func SetDefaults(v *viper.Viper) {
	retry := batch.DefaultRetryPolicy()

	v.SetDefault("log_errors", true)
	v.SetDefault("stop_on_error", false)
	v.SetDefault("sample_errors", batch.DefaultSampleErrors)
	v.SetDefault("context_fields", batch.DefaultContextFields)
	v.SetDefault("concurrency", batch.DefaultConcurrency)

	v.SetDefault("compat.enabled", false)
	v.SetDefault("compat.settle_delay", batch.DefaultSettleDelay.String())
	v.SetDefault("compat.retry.max_attempts", retry.MaxAttempts)
	v.SetDefault("compat.retry.base_delay", retry.BaseDelay.String())
	v.SetDefault("compat.retry.multiplier", retry.Multiplier)
	v.SetDefault("compat.retry.max_delay", retry.MaxDelay.String())

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// New returns a Viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads the config file at path, if any, on top of the defaults and
// applies environment overrides. The format follows the file extension
// (TOML, YAML or JSON).
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}
	return LoadWithViper(v)
}

// LoadWithViper loads configuration using a provided Viper instance and
// validates it.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"compat.settle_delay", &config.Compat.SettleDelay},
		{"compat.retry.base_delay", &config.Compat.Retry.BaseDelay},
		{"compat.retry.max_delay", &config.Compat.Retry.MaxDelay},
	}
	for _, d := range durations {
		parsed, err := duration(v.Get(d.key))
		if err != nil {
			return nil, errors.Wrapf(err, "%s", d.key)
		}
		*d.dst = parsed
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func duration(raw interface{}) (time.Duration, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return textutil.ParseDuration(s)
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if _, err := batch.ParseLogLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	if c.Compat.Retry.MaxAttempts < 0 {
		return errors.Newf("compat.retry.max_attempts must be >= 0, got %d", c.Compat.Retry.MaxAttempts)
	}
	if err := c.Options().Validate(); err != nil {
		return errors.Wrap(err, "invalid batch options")
	}
	return nil
}

// Options converts the configuration into batch.Options. Retries are only
// configured when compat is enabled and max_attempts is positive.
func (c *Config) Options() *batch.Options {
	opts := &batch.Options{
		LogErrors:     c.LogErrors,
		StopOnError:   c.StopOnError,
		SampleErrors:  c.SampleErrors,
		ContextFields: append([]string(nil), c.ContextFields...),
		Concurrency:   c.Concurrency,
	}

	if c.Compat.Enabled {
		opts.Compat = &batch.Compat{SettleDelay: c.Compat.SettleDelay}
		if c.Compat.Retry.MaxAttempts > 0 {
			opts.Compat.Retry = &batch.RetryPolicy{
				MaxAttempts: c.Compat.Retry.MaxAttempts,
				BaseDelay:   c.Compat.Retry.BaseDelay,
				Multiplier:  c.Compat.Retry.Multiplier,
				MaxDelay:    c.Compat.Retry.MaxDelay,
			}
		}
	}
	return opts
}

// NewLogger builds the zap logger described by the log section.
func (c *Config) NewLogger() (batch.Logger, error) {
	level, err := batch.ParseLogLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	if c.Log.JSON {
		return batch.NewJSONLogger(level)
	}
	return batch.NewConsoleLogger(level), nil
}
