// Package config provides configuration management for the backtester.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/eddiefleurent/apobacktest/internal/engine"
)

const (
	// dateLayout is the format of run.start and run.end
	dateLayout = "2006-01-02"

	defaultParallelism = 2
	defaultTimeout     = "30s"
	defaultOutputDir   = "out"
	defaultPort        = 8080
	defaultLogLevel    = "info"
	defaultMaxRetries  = 3
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Data        DataConfig        `yaml:"data"`
	Run         RunConfig         `yaml:"run"`
	Strategy    engine.Config     `yaml:"strategy"`
	Storage     StorageConfig     `yaml:"storage"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// DataConfig selects where price bars come from.
type DataConfig struct {
	Provider      string     `yaml:"provider"` // file | http | mock
	Dir           string     `yaml:"dir"`      // file provider: <dir>/<SYMBOL>.csv
	Endpoint      string     `yaml:"endpoint"` // http provider base URL
	AdjustedClose bool       `yaml:"adjusted_close"`
	Timeout       string     `yaml:"timeout"`     // per-request HTTP timeout, e.g. "30s"
	MaxRetries    int        `yaml:"max_retries"` // 0 uses the default of 3
	Mock          MockConfig `yaml:"mock"`
}

// MockConfig shapes the synthetic random walk of the mock provider.
type MockConfig struct {
	Seed       int64   `yaml:"seed"`
	StartPrice float64 `yaml:"start_price"`
	Volatility float64 `yaml:"volatility"` // daily stdev of log returns
}

// RunConfig defines which series are backtested and where results go.
type RunConfig struct {
	Symbols     []string `yaml:"symbols"`
	Start       string   `yaml:"start"` // YYYY-MM-DD, empty for open range
	End         string   `yaml:"end"`
	Parallelism int      `yaml:"parallelism"`
	OutputDir   string   `yaml:"output_dir"`
}

// StorageConfig defines storage settings for cached series and run history.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// DashboardConfig defines the read-only results API.
type DashboardConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Validate config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks that all configuration values are valid and consistent.
// Unset optional fields are filled with defaults first.
func (c *Config) Validate() error {
	c.normalize()

	// Environment validation
	switch c.Environment.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("environment.log_level must be one of debug, info, warn, error")
	}

	// Data validation
	switch c.Data.Provider {
	case "file":
		if c.Data.Dir == "" {
			return fmt.Errorf("data.dir is required for the file provider")
		}
	case "http":
		u, err := url.Parse(c.Data.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("data.endpoint must be an http(s) URL for the http provider")
		}
	case "mock":
		if c.Data.Mock.StartPrice < 0 || c.Data.Mock.Volatility < 0 {
			return fmt.Errorf("data.mock.start_price and data.mock.volatility must be >= 0")
		}
	default:
		return fmt.Errorf("data.provider must be 'file', 'http' or 'mock'")
	}
	if d, err := time.ParseDuration(c.Data.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("data.timeout must be a positive duration")
	}
	if c.Data.MaxRetries < 0 {
		return fmt.Errorf("data.max_retries must be >= 0")
	}

	// Run validation
	for i, s := range c.Run.Symbols {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("run.symbols[%d] must not be empty", i)
		}
	}
	start, err := c.StartDate()
	if err != nil {
		return fmt.Errorf("run.start invalid: %w", err)
	}
	end, err := c.EndDate()
	if err != nil {
		return fmt.Errorf("run.end invalid: %w", err)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("run.end (%s) must not be before run.start (%s)", c.Run.End, c.Run.Start)
	}
	if c.Run.Parallelism <= 0 {
		return fmt.Errorf("run.parallelism must be > 0")
	}

	// Strategy validation
	if err := c.Strategy.Validate(); err != nil {
		return err
	}

	// Storage validation
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}

	// Dashboard validation
	if c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard.port must be between 1 and 65535")
	}

	return nil
}

// normalize sets default values for optional non-strategy settings
func (c *Config) normalize() {
	if c.Environment.LogLevel == "" {
		c.Environment.LogLevel = defaultLogLevel
	}
	c.Environment.LogLevel = strings.ToLower(c.Environment.LogLevel)
	c.Data.Provider = strings.ToLower(c.Data.Provider)
	if c.Data.Timeout == "" {
		c.Data.Timeout = defaultTimeout
	}
	if c.Data.MaxRetries == 0 {
		c.Data.MaxRetries = defaultMaxRetries
	}
	if c.Run.Parallelism == 0 {
		c.Run.Parallelism = defaultParallelism
	}
	if c.Run.OutputDir == "" {
		c.Run.OutputDir = defaultOutputDir
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = defaultPort
	}
	for i, s := range c.Run.Symbols {
		c.Run.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
}

// StartDate returns run.start, or the zero time when unset.
func (c *Config) StartDate() (time.Time, error) {
	return parseDate(c.Run.Start)
}

// EndDate returns run.end, or the zero time when unset.
func (c *Config) EndDate() (time.Time, error) {
	return parseDate(c.Run.End)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

// GetDataTimeout returns the configured HTTP timeout, falling back to 30s if unparsable
func (c *Config) GetDataTimeout() time.Duration {
	d, err := time.ParseDuration(c.Data.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// ParseSymbols splits a comma separated symbol list, dropping blanks.
func ParseSymbols(list string) []string {
	var out []string
	for _, s := range strings.Split(list, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
