package config

import (
	"os"
	"strings"

	"github.com/diskvigil/diskvigil/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultInterval    = 6 // hours between coordination cycles
	DefaultHistoryDays = 30
	DefaultLogLevel    = "info"
	DefaultDataSource  = "auto"
	defaultDatabase    = "/var/lib/diskvigil/diskvigil.db"
)

type Config struct {
	Interval    int      `mapstructure:"interval"`
	HistoryDays int      `mapstructure:"history_days"`
	DataSource  string   `mapstructure:"data_source"`
	ScanPaths   []string `mapstructure:"scan_paths"`
	Database    string   `mapstructure:"database"`
	ModelPath   string   `mapstructure:"model_path"`
	NormParams  string   `mapstructure:"norm_params"`
	LogLevel    string   `mapstructure:"log_level"`
	Monitor     bool     `mapstructure:"monitor"`
	Debug       bool     `mapstructure:"debug"`
	Verbose     bool     `mapstructure:"verbose"`
}

func Load() (*Config, error) {
	errFactory := errors.New()

	flags := pflag.NewFlagSet("diskvigild", pflag.ContinueOnError)
	flags.Int("interval", DefaultInterval, "Hours between coordination cycles")
	flags.Int("history-days", DefaultHistoryDays, "Telemetry history window length in days")
	flags.String("data-source", DefaultDataSource, "Telemetry source: auto or simulated")
	flags.StringSlice("scan-paths", nil, "Filesystem roots for the compressibility scan")
	flags.String("database", defaultDatabase, "Path to the intervention ledger database")
	flags.String("model-path", "", "Path to the trained failure model artifact")
	flags.String("norm-params", "", "Path to the model normalization parameters")
	flags.String("log-level", DefaultLogLevel, "Log level: debug, info, warning or error")
	flags.Bool("monitor", false, "Only assess health, never intervene")
	flags.Bool("debug", false, "Enable debugging mode")
	flags.Bool("verbose", false, "Enable verbose logging")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("history_days", DefaultHistoryDays)
	v.SetDefault("data_source", DefaultDataSource)
	v.SetDefault("database", defaultDatabase)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("scan_paths", defaultScanPaths())

	if explicit := os.Getenv("DISKVIGIL_CONFIG"); explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("diskvigil")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err).
				WithMessage("Failed to read config file")
		}
	}

	// Command line flags override config file values
	flags.Visit(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		switch f.Value.Type() {
		case "stringSlice":
			values, _ := flags.GetStringSlice(f.Name)
			v.Set(key, values)
		default:
			v.Set(key, f.Value.String())
		}
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.HistoryDays <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, c.HistoryDays).
			WithMessage("history_days must be positive")
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	switch c.DataSource {
	case "auto", "simulated":
	default:
		return errFactory.WithData(errors.ErrInvalidConfig, c.DataSource).
			WithMessage("data_source must be auto or simulated")
	}
	if c.Database == "" {
		return errFactory.WithMessage(errors.ErrMissingConfig, "database path is required")
	}

	return nil
}

func defaultScanPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		home + "/Documents",
		home + "/Downloads",
	}
}
