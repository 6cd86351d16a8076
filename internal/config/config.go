package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jwtly10/crossbot/internal/optimizer"
	"github.com/jwtly10/crossbot/internal/types"
)

// Config holds all application configuration.
type Config struct {
	Data struct {
		// CSVPath takes precedence over the exchange when set.
		CSVPath  string `yaml:"csv_path"`
		BaseURL  string `yaml:"base_url"`
		Symbol   string `yaml:"symbol"`
		Interval string `yaml:"interval"`
		Limit    int    `yaml:"limit"`
		Retry    struct {
			MaxAttempts    int           `yaml:"max_attempts"`
			InitialBackoff time.Duration `yaml:"initial_backoff"`
			MaxBackoff     time.Duration `yaml:"max_backoff"`
		} `yaml:"retry"`
	} `yaml:"data"`
	Backtest struct {
		InitialEquity float64      `yaml:"initial_equity"`
		RSIPeriod     int          `yaml:"rsi_period"`
		Params        types.Params `yaml:"params"`
	} `yaml:"backtest"`
	Optimizer struct {
		Workers int            `yaml:"workers"`
		TopK    int            `yaml:"top_k"`
		Grid    optimizer.Grid `yaml:"grid"`
	} `yaml:"optimizer"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CROSSBOT_SYMBOL"); v != "" {
		c.Data.Symbol = v
	}
	if v := os.Getenv("CROSSBOT_CSV"); v != "" {
		c.Data.CSVPath = v
	}
	if v := os.Getenv("CROSSBOT_BASE_URL"); v != "" {
		c.Data.BaseURL = v
	}
	if v := os.Getenv("CROSSBOT_SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("CROSSBOT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CROSSBOT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse CROSSBOT_WORKERS: %w", err)
		}
		c.Optimizer.Workers = n
	}
	if v := os.Getenv("CROSSBOT_INITIAL_EQUITY"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse CROSSBOT_INITIAL_EQUITY: %w", err)
		}
		c.Backtest.InitialEquity = f
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Data.Symbol == "" {
		c.Data.Symbol = "ETHUSDT"
	}
	if c.Data.Interval == "" {
		c.Data.Interval = "4h"
	}
	if c.Data.Limit == 0 {
		c.Data.Limit = 750
	}
	if c.Data.Retry.MaxAttempts == 0 {
		c.Data.Retry.MaxAttempts = 3
	}
	if c.Data.Retry.InitialBackoff == 0 {
		c.Data.Retry.InitialBackoff = time.Second
	}
	if c.Data.Retry.MaxBackoff == 0 {
		c.Data.Retry.MaxBackoff = 30 * time.Second
	}
	if c.Backtest.InitialEquity == 0 {
		c.Backtest.InitialEquity = 1000
	}
	if c.Backtest.RSIPeriod == 0 {
		c.Backtest.RSIPeriod = 14
	}
	if c.Backtest.Params == (types.Params{}) {
		c.Backtest.Params = types.DefaultParams()
	}
	if c.Optimizer.TopK == 0 {
		c.Optimizer.TopK = 5
	}
	// A partially specified grid is kept as is so Validate can name the gaps.
	if c.Optimizer.Grid.Empty() {
		c.Optimizer.Grid = optimizer.DefaultGrid()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	var errs []error
	if c.Data.CSVPath == "" && c.Data.Symbol == "" {
		errs = append(errs, errors.New("data.csv_path or data.symbol is required"))
	}
	if c.Data.Limit < 0 {
		errs = append(errs, errors.New("data.limit must not be negative"))
	}
	if c.Data.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("data.retry.max_attempts must be at least 1"))
	}
	if c.Backtest.InitialEquity <= 0 {
		errs = append(errs, errors.New("backtest.initial_equity must be positive"))
	}
	if c.Backtest.RSIPeriod < 1 {
		errs = append(errs, errors.New("backtest.rsi_period must be positive"))
	}
	if err := c.Backtest.Params.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("backtest.params: %w", err))
	}
	if c.Optimizer.Workers < 0 {
		errs = append(errs, errors.New("optimizer.workers must not be negative"))
	}
	if err := c.Optimizer.Grid.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
