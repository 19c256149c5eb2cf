// Package config loads hwpcat settings from defaults, an optional YAML file,
// HWPCAT_* environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hanpama/hwptext/internal/convert"
	"github.com/hanpama/hwptext/internal/extract"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "HWPCAT"

// Config holds the resolved settings.
type Config struct {
	Strategy    string        `mapstructure:"strategy"`
	Timeout     time.Duration `mapstructure:"timeout"`
	HWP5Txt     string        `mapstructure:"hwp5txt"`
	LibreOffice string        `mapstructure:"libreoffice"`
	LogLevel    string        `mapstructure:"log_level"`
}

// DefaultConfig returns the settings used when nothing else is configured.
func DefaultConfig() Config {
	return Config{
		Strategy:    string(extract.Auto),
		Timeout:     convert.DefaultTimeout,
		HWP5Txt:     convert.DefaultHWP5TxtBin,
		LibreOffice: convert.DefaultLibreOfficeBin,
		LogLevel:    "warn",
	}
}

// Setup registers defaults, the environment binding and the config file
// search path on v. Flags bound to v afterwards take precedence over all of
// them.
func Setup(v *viper.Viper, cfgFile string) error {
	defaults := DefaultConfig()
	v.SetDefault("strategy", defaults.Strategy)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("hwp5txt", defaults.HWP5Txt)
	v.SetDefault("libreoffice", defaults.LibreOffice)
	v.SetDefault("log_level", defaults.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("hwpcat")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/hwpcat")
	}

	// The config file is optional unless named explicitly.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if _, err := extract.ParseStrategy(cfg.Strategy); err != nil {
		return cfg, err
	}
	if cfg.Timeout <= 0 {
		return cfg, fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	return cfg, nil
}
