// Package config loads settings from defaults, an optional config file and
// PATIENTS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. PATIENTS_DATA_FILE.
const EnvPrefix = "PATIENTS"

type Config struct {
	DataFile    string `mapstructure:"data_file"`
	DatabaseURL string `mapstructure:"database_url"`
	LockID      int64  `mapstructure:"lock_id"`
	CSVFile     string `mapstructure:"csv_file"`
	XLSXFile    string `mapstructure:"xlsx_file"`
	HTTPAddr    string `mapstructure:"http_addr"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

var keys = []string{
	"data_file",
	"database_url",
	"lock_id",
	"csv_file",
	"xlsx_file",
	"http_addr",
	"log_level",
	"log_format",
}

// Load reads configuration. path may be empty; a missing file at an explicit
// path is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data_file", "patients.csv")
	v.SetDefault("lock_id", 7_310_442)
	v.SetDefault("csv_file", "patients.csv")
	v.SetDefault("xlsx_file", "patients.xlsx")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log_format %q", c.LogFormat)
	}
	if c.LockID == 0 {
		return errors.New("lock_id must not be zero")
	}
	if c.HTTPAddr == "" {
		return errors.New("http_addr must not be empty")
	}
	return nil
}

// HasDatabase reports whether a snapshot database is configured.
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}
