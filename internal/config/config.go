package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix of every environment variable read by Load
const EnvPrefix = "CCASS"

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server" envconfig:"SERVER"`
	Security    SecurityConfig    `yaml:"security" envconfig:"SECURITY"`
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" envconfig:"TELEMETRY"`
	Store       StoreConfig       `yaml:"store" envconfig:"STORE"`
	Scraper     ScraperConfig     `yaml:"scraper" envconfig:"SCRAPER"`
	Prepopulate PrepopulateConfig `yaml:"prepopulate" envconfig:"PREPOPULATE"`
	Analytics   AnalyticsConfig   `yaml:"analytics" envconfig:"ANALYTICS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	// RequestTimeout bounds a query that has to scrape missing dates first
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
	// Rotation settings for the file output
	MaxSizeMB  int  `yaml:"max_size_mb" envconfig:"MAX_SIZE_MB"`
	MaxBackups int  `yaml:"max_backups" envconfig:"MAX_BACKUPS"`
	MaxAgeDays int  `yaml:"max_age_days" envconfig:"MAX_AGE_DAYS"`
	Compress   bool `yaml:"compress" envconfig:"COMPRESS"`
}

// TelemetryConfig selects the OpenTelemetry exporters
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// StoreConfig contains the SQLite store configuration
type StoreConfig struct {
	Path        string        `yaml:"path" envconfig:"DB_PATH"`
	BusyTimeout time.Duration `yaml:"busy_timeout" envconfig:"BUSY_TIMEOUT"`
}

// ScraperConfig controls the browser session against the depository portal
type ScraperConfig struct {
	URL      string `yaml:"url" envconfig:"URL"`
	Headless bool   `yaml:"headless" envconfig:"HEADLESS"`
	// RemoteURL points at a running browser's DevTools websocket. When set
	// no local browser is launched.
	RemoteURL        string        `yaml:"remote_url" envconfig:"REMOTE_URL"`
	ReadyTimeout     time.Duration `yaml:"ready_timeout" envconfig:"READY_TIMEOUT"`
	QueryTimeout     time.Duration `yaml:"query_timeout" envconfig:"QUERY_TIMEOUT"`
	MinInterval      time.Duration `yaml:"min_interval" envconfig:"MIN_INTERVAL"`
	IgnoreCertErrors bool          `yaml:"ignore_cert_errors" envconfig:"IGNORE_CERT_ERRORS"`
	UserAgent        string        `yaml:"user_agent" envconfig:"USER_AGENT"`
}

// PrepopulateConfig drives the batch entry point
type PrepopulateConfig struct {
	// StartDate and EndDate are ISO dates; empty means a window ending yesterday
	StartDate  string `yaml:"start_date" envconfig:"START_DATE"`
	EndDate    string `yaml:"end_date" envconfig:"END_DATE"`
	WindowDays int    `yaml:"window_days" envconfig:"WINDOW_DAYS"`
	FromCode   int    `yaml:"from_code" envconfig:"FROM_CODE"`
	ToCode     int    `yaml:"to_code" envconfig:"TO_CODE"`
	Workers    int    `yaml:"workers" envconfig:"WORKERS"`
	Concurrent bool   `yaml:"concurrent" envconfig:"CONCURRENT"`
}

// AnalyticsConfig holds defaults for the derived views
type AnalyticsConfig struct {
	TopN                int     `yaml:"top_n" envconfig:"TOP_N"`
	DefaultThresholdPct float64 `yaml:"default_threshold_pct" envconfig:"DEFAULT_THRESHOLD_PCT"`
	DefaultWindowDays   int     `yaml:"default_window_days" envconfig:"DEFAULT_WINDOW_DAYS"`
	MaxLookbackDays     int     `yaml:"max_lookback_days" envconfig:"MAX_LOOKBACK_DAYS"`
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment, in increasing order of precedence. A .env file in the
// working directory is read into the environment first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", configFile, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys missing from the file
// keep their current value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// resolvePaths anchors relative store and log paths at the application home
func (c *Config) resolvePaths() error {
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}

	if c.Store.Path == "" {
		c.Store.Path = paths.DatabaseFile
	} else if !filepath.IsAbs(c.Store.Path) {
		c.Store.Path = filepath.Join(paths.DataDir, c.Store.Path)
	}

	if c.Logging.FilePath != "" && !filepath.IsAbs(c.Logging.FilePath) {
		c.Logging.FilePath = filepath.Join(paths.HomeDir, c.Logging.FilePath)
	}

	return nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Scraper.URL == "" {
		return fmt.Errorf("scraper url must be set")
	}

	if c.Scraper.QueryTimeout <= 0 || c.Scraper.ReadyTimeout <= 0 {
		return fmt.Errorf("scraper timeouts must be positive")
	}

	if c.Prepopulate.FromCode <= 0 || c.Prepopulate.ToCode < c.Prepopulate.FromCode {
		return fmt.Errorf("invalid prepopulate code range %d-%d", c.Prepopulate.FromCode, c.Prepopulate.ToCode)
	}

	if c.Prepopulate.Workers <= 0 {
		c.Prepopulate.Workers = 1
	}

	if c.Analytics.TopN <= 0 {
		return fmt.Errorf("analytics top_n must be positive")
	}

	// JSON is the only supported log format
	c.Logging.Format = "json"

	switch strings.ToLower(c.Logging.Output) {
	case "console", "stdout", "file", "both":
	default:
		c.Logging.Output = "both"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Minute,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  10 * time.Minute,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   10,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "both",
			FilePath:   filepath.Join("logs", "ccass.log"),
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Telemetry: TelemetryConfig{
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
		Store: StoreConfig{
			BusyTimeout: 5 * time.Second,
		},
		Scraper: ScraperConfig{
			URL:              PortalSearchURL,
			Headless:         true,
			ReadyTimeout:     10 * time.Second,
			QueryTimeout:     10 * time.Second,
			MinInterval:      500 * time.Millisecond,
			IgnoreCertErrors: true,
		},
		Prepopulate: PrepopulateConfig{
			WindowDays: 365,
			FromCode:   1,
			ToCode:     10,
			Workers:    4,
			Concurrent: true,
		},
		Analytics: AnalyticsConfig{
			TopN:                10,
			DefaultThresholdPct: 2,
			DefaultWindowDays:   8,
			MaxLookbackDays:     365,
		},
	}
}
