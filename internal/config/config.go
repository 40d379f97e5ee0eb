// Package config resolves the run configuration from defaults, an optional
// config file, CASS_CHECK_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/spachava753/casscheck/internal/logging"
	"github.com/spachava753/casscheck/internal/models"
)

const (
	// EnvPrefix prefixes every environment override, e.g. CASS_CHECK_FAIL_FAST.
	EnvPrefix = "CASS_CHECK"

	// ConfigName is the config file base name searched for when no file is
	// given explicitly.
	ConfigName = "cass-check"

	// CheckNameLayout formats the default run name from the start time.
	CheckNameLayout = "2006-01-02T15:04"
)

// Config keys, shared with flag bindings.
const (
	KeyOutputBase = "output_base"
	KeyCheckName  = "check_name"
	KeyCheckDir   = "check_dir"
	KeyFailFast   = "fail_fast"
	KeyLogLevel   = "log_level"
	KeyLogFile    = "log_file"
	KeyLogFormat  = "log_format"
	KeyCatalogs   = "catalogs"
)

// DefaultRunConfig returns a RunConfig with default values. The check name is
// derived from the current local time.
func DefaultRunConfig() models.RunConfig {
	return models.RunConfig{
		OutputBase: filepath.Join(os.TempDir(), "cass-check"),
		CheckName:  time.Now().Format(CheckNameLayout),
		FailFast:   false,
		LogLevel:   "debug",
		LogFile:    "./cass-check.log",
		LogFormat:  "auto",
	}
}

// SetDefaults registers the defaults on v. Every key gets a default so that
// environment overrides are seen by Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := DefaultRunConfig()
	v.SetDefault(KeyOutputBase, d.OutputBase)
	v.SetDefault(KeyCheckName, d.CheckName)
	v.SetDefault(KeyCheckDir, d.CheckDir)
	v.SetDefault(KeyFailFast, d.FailFast)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogFile, d.LogFile)
	v.SetDefault(KeyLogFormat, d.LogFormat)
	v.SetDefault(KeyCatalogs, []string{})
}

// Load merges the configuration sources into a RunConfig.
// Precedence (highest to lowest): flags bound on v, CASS_CHECK_* environment
// variables, the config file, defaults. configFile may be empty, in which
// case cass-check.yaml is looked up in the working directory and in
// $HOME/.config/cass-check; a missing file is not an error.
func Load(v *viper.Viper, configFile string) (models.RunConfig, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", ConfigName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return models.RunConfig{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg models.RunConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return models.RunConfig{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return models.RunConfig{}, err
	}
	return cfg, nil
}

// Validate checks the fields a run cannot start without.
func Validate(cfg models.RunConfig) error {
	if cfg.CheckDir == "" {
		if strings.TrimSpace(cfg.OutputBase) == "" {
			return errors.New("output base must not be empty")
		}
		if strings.TrimSpace(cfg.CheckName) == "" {
			return errors.New("check name must not be empty")
		}
		if strings.ContainsAny(cfg.CheckName, `/\`) {
			return fmt.Errorf("check name %q must not contain path separators", cfg.CheckName)
		}
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	switch cfg.LogFormat {
	case "auto", "text", "json", "":
	default:
		return fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}
	return nil
}
