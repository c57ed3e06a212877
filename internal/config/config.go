package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/lasqc/internal/fetcher"
	"github.com/sells-group/lasqc/internal/filter"
	"github.com/sells-group/lasqc/internal/pipeline"
	"github.com/sells-group/lasqc/internal/processor"
	"github.com/sells-group/lasqc/internal/resilience"
	"github.com/sells-group/lasqc/internal/store"
	"github.com/sells-group/lasqc/internal/uncertainty"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" mapstructure:"rate_limit"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Processing  ProcessingConfig  `yaml:"processing" mapstructure:"processing"`
	Registry    RegistryConfig    `yaml:"registry" mapstructure:"registry"`
	Certify     CertifyConfig     `yaml:"certify" mapstructure:"certify"`
	Uncertainty UncertaintyConfig `yaml:"uncertainty" mapstructure:"uncertainty"`
	Retry       RetryConfig       `yaml:"retry" mapstructure:"retry"`
	Monitoring  MonitoringConfig  `yaml:"monitoring" mapstructure:"monitoring"`
	Fetch       FetchConfig       `yaml:"fetch" mapstructure:"fetch"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// CacheConfig configures the in-memory file and limiter caches.
type CacheConfig struct {
	TTLMinutes   int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
	SweepSeconds int `yaml:"sweep_seconds" mapstructure:"sweep_seconds"`
	MaxEntries   int `yaml:"max_entries" mapstructure:"max_entries"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentFiles int `yaml:"max_concurrent_files" mapstructure:"max_concurrent_files"`
}

// ProcessingConfig selects the pipeline stages and their parameters.
type ProcessingConfig struct {
	MaxFileSizeMB int            `yaml:"max_file_size_mb" mapstructure:"max_file_size_mb"`
	Standardize   bool           `yaml:"standardize" mapstructure:"standardize"`
	Denoise       DenoiseConfig  `yaml:"denoise" mapstructure:"denoise"`
	Despike       DespikeConfig  `yaml:"despike" mapstructure:"despike"`
	Baseline      BaselineConfig `yaml:"baseline" mapstructure:"baseline"`
}

// DenoiseConfig configures the denoise stage.
type DenoiseConfig struct {
	Enabled         bool    `yaml:"enabled" mapstructure:"enabled"`
	Method          string  `yaml:"method" mapstructure:"method"`
	WindowSize      int     `yaml:"window_size" mapstructure:"window_size"`
	PolynomialOrder int     `yaml:"polynomial_order" mapstructure:"polynomial_order"`
	Strength        float64 `yaml:"strength" mapstructure:"strength"`
	PreserveSpikes  bool    `yaml:"preserve_spikes" mapstructure:"preserve_spikes"`
}

// DespikeConfig configures the despike stage.
type DespikeConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	Method            string  `yaml:"method" mapstructure:"method"`
	Threshold         float64 `yaml:"threshold" mapstructure:"threshold"`
	WindowSize        int     `yaml:"window_size" mapstructure:"window_size"`
	ReplacementMethod string  `yaml:"replacement_method" mapstructure:"replacement_method"`
}

// BaselineConfig configures the baseline correction stage.
type BaselineConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	Method          string `yaml:"method" mapstructure:"method"`
	PolynomialOrder int    `yaml:"polynomial_order" mapstructure:"polynomial_order"`
}

// RegistryConfig points at optional physical-range and mnemonic overrides.
type RegistryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CertifyConfig configures certificate signing. An empty key selects the
// FNV-1a content hash.
type CertifyConfig struct {
	SigningKey string `yaml:"signing_key" mapstructure:"signing_key"`
}

// UncertaintyConfig holds per-operation uncertainty rates (percent).
type UncertaintyConfig struct {
	Parse             float64            `yaml:"parse" mapstructure:"parse"`
	Standardize       float64            `yaml:"standardize" mapstructure:"standardize"`
	Denoise           map[string]float64 `yaml:"denoise" mapstructure:"denoise"`
	DespikeBase       float64            `yaml:"despike_base" mapstructure:"despike_base"`
	DespikePerPercent float64            `yaml:"despike_per_percent" mapstructure:"despike_per_percent"`
	BaselineBase      float64            `yaml:"baseline_base" mapstructure:"baseline_base"`
	BaselinePerOrder  float64            `yaml:"baseline_per_order" mapstructure:"baseline_per_order"`
	DataDivisor       float64            `yaml:"data_divisor" mapstructure:"data_divisor"`
}

// RetryConfig configures retries around the parser and store writes.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// MonitoringConfig configures run-health alerting.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	MinFinalQuality      float64 `yaml:"min_final_quality" mapstructure:"min_final_quality"`
}

// FetchConfig configures remote (HTTP and FTP) input.
type FetchConfig struct {
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	FTPUser           string  `yaml:"ftp_user" mapstructure:"ftp_user"`
	FTPPassword       string  `yaml:"ftp_password" mapstructure:"ftp_password"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LASQC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "lasqc.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("rate_limit.requests_per_second", 5.0)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("cache.ttl_minutes", 60)
	v.SetDefault("cache.sweep_seconds", 60)
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("batch.max_concurrent_files", 4)
	v.SetDefault("processing.max_file_size_mb", 50)
	v.SetDefault("processing.standardize", true)
	v.SetDefault("processing.denoise.enabled", true)
	v.SetDefault("processing.denoise.method", string(filter.SavitzkyGolayMethod))
	v.SetDefault("processing.denoise.window_size", 7)
	v.SetDefault("processing.denoise.polynomial_order", 2)
	v.SetDefault("processing.denoise.strength", 1.0)
	v.SetDefault("processing.denoise.preserve_spikes", false)
	v.SetDefault("processing.despike.enabled", true)
	v.SetDefault("processing.despike.method", string(filter.HampelMethod))
	v.SetDefault("processing.despike.threshold", 3.0)
	v.SetDefault("processing.despike.window_size", 7)
	v.SetDefault("processing.despike.replacement_method", string(filter.ReplaceMedian))
	v.SetDefault("processing.baseline.enabled", false)
	v.SetDefault("processing.baseline.method", string(processor.BaselinePolynomial))
	v.SetDefault("processing.baseline.polynomial_order", 2)
	v.SetDefault("registry.path", "")
	v.SetDefault("certify.signing_key", "")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 100)
	v.SetDefault("retry.max_backoff_ms", 5000)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.10)
	v.SetDefault("monitoring.min_final_quality", 60.0)
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.user_agent", "lasqc/1.0")
	v.SetDefault("fetch.requests_per_second", 5.0)
	v.SetDefault("fetch.ftp_user", "")
	v.SetDefault("fetch.ftp_password", "")

	rates := uncertainty.DefaultRates()
	v.SetDefault("uncertainty.parse", rates.Parse)
	v.SetDefault("uncertainty.standardize", rates.Standardize)
	v.SetDefault("uncertainty.denoise", rates.Denoise)
	v.SetDefault("uncertainty.despike_base", rates.DespikeBase)
	v.SetDefault("uncertainty.despike_per_percent", rates.DespikePerPercent)
	v.SetDefault("uncertainty.baseline_base", rates.BaselineBase)
	v.SetDefault("uncertainty.baseline_per_order", rates.BaselinePerOrder)
	v.SetDefault("uncertainty.data_divisor", rates.DataDivisor)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs and reports every problem at
// once. Commands: "process", "qc", "certify", "export", "runs", "serve".
func (c *Config) Validate(command string) error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		add("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
	if c.Store.DatabaseURL == "" && (command == "runs" || command == "serve") {
		add("store.database_url is required for %s", command)
	}

	if c.Processing.MaxFileSizeMB < 0 {
		add("processing.max_file_size_mb must not be negative")
	}
	if c.Processing.Denoise.Enabled {
		if err := c.DenoiseOptions().Validate(); err != nil {
			add("processing.denoise: %s", err)
		}
	}
	if c.Processing.Despike.Enabled {
		if err := c.DespikeOptions().Validate(); err != nil {
			add("processing.despike: %s", err)
		}
	}
	if c.Processing.Baseline.Enabled {
		if err := c.BaselineOptions().Validate(); err != nil {
			add("processing.baseline: %s", err)
		}
	}
	if c.Fetch.TimeoutSecs < 0 {
		add("fetch.timeout_secs must not be negative")
	}
	if c.Uncertainty.DataDivisor <= 0 {
		add("uncertainty.data_divisor must be positive")
	}

	if c.Monitoring.Enabled || command == "runs" {
		if c.Monitoring.LookbackWindowHours < 1 {
			add("monitoring.lookback_window_hours must be at least 1")
		}
		if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
			add("monitoring.failure_rate_threshold must be in [0, 1]")
		}
		if c.Monitoring.MinFinalQuality < 0 || c.Monitoring.MinFinalQuality > 100 {
			add("monitoring.min_final_quality must be in [0, 100]")
		}
	}

	switch command {
	case "process":
		if c.Batch.MaxConcurrentFiles < 1 {
			add("batch.max_concurrent_files must be at least 1")
		}
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			add("server.port must be in 1..65535, got %d", c.Server.Port)
		}
		if c.RateLimit.RequestsPerSecond <= 0 {
			add("rate_limit.requests_per_second must be positive")
		}
		if c.RateLimit.Burst < 1 {
			add("rate_limit.burst must be at least 1")
		}
		if c.Cache.TTLMinutes < 1 {
			add("cache.ttl_minutes must be at least 1")
		}
		if c.Cache.SweepSeconds < 1 {
			add("cache.sweep_seconds must be at least 1")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid for %s: %s", command, strings.Join(errs, "; "))
	}
	return nil
}

// DenoiseOptions converts the denoise settings.
func (c *Config) DenoiseOptions() processor.DenoiseOptions {
	d := c.Processing.Denoise
	return processor.DenoiseOptions{
		Method:          filter.DenoiseMethod(d.Method),
		WindowSize:      d.WindowSize,
		PolynomialOrder: d.PolynomialOrder,
		Strength:        d.Strength,
		PreserveSpikes:  d.PreserveSpikes,
	}
}

// DespikeOptions converts the despike settings.
func (c *Config) DespikeOptions() processor.DespikeOptions {
	d := c.Processing.Despike
	return processor.DespikeOptions{
		Method:            filter.DespikeMethod(d.Method),
		Threshold:         d.Threshold,
		WindowSize:        d.WindowSize,
		ReplacementMethod: filter.Replacement(d.ReplacementMethod),
	}
}

// BaselineOptions converts the baseline settings.
func (c *Config) BaselineOptions() processor.BaselineOptions {
	b := c.Processing.Baseline
	return processor.BaselineOptions{
		Method:          processor.BaselineMethod(b.Method),
		PolynomialOrder: b.PolynomialOrder,
	}
}

// Pipeline converts the processing settings into a pipeline configuration.
func (c *Config) Pipeline() pipeline.Config {
	pc := pipeline.Config{
		MaxFileSize: int64(c.Processing.MaxFileSizeMB) << 20,
		Standardize: c.Processing.Standardize,
	}
	if c.Processing.Denoise.Enabled {
		o := c.DenoiseOptions()
		pc.Denoise = &o
	}
	if c.Processing.Despike.Enabled {
		o := c.DespikeOptions()
		pc.Despike = &o
	}
	if c.Processing.Baseline.Enabled {
		o := c.BaselineOptions()
		pc.Baseline = &o
	}
	return pc
}

// Rates converts the uncertainty settings.
func (c *Config) Rates() uncertainty.Rates {
	u := c.Uncertainty
	return uncertainty.Rates{
		Parse:             u.Parse,
		Standardize:       u.Standardize,
		Denoise:           u.Denoise,
		DespikeBase:       u.DespikeBase,
		DespikePerPercent: u.DespikePerPercent,
		BaselineBase:      u.BaselineBase,
		BaselinePerOrder:  u.BaselinePerOrder,
		DataDivisor:       u.DataDivisor,
	}
}

// RetryPolicy converts the retry settings.
func (c *Config) RetryPolicy() resilience.RetryConfig {
	return resilience.FromRetryConfig(c.Retry.MaxAttempts, c.Retry.InitialBackoffMs, c.Retry.MaxBackoffMs)
}

// FetchOptions builds the input loader options. Downloads and archive
// members share the processing size limit.
func (c *Config) FetchOptions() fetcher.Options {
	return fetcher.Options{
		MaxBytes: int64(c.Processing.MaxFileSizeMB) << 20,
		HTTP: fetcher.HTTPOptions{
			UserAgent:         c.Fetch.UserAgent,
			Timeout:           time.Duration(c.Fetch.TimeoutSecs) * time.Second,
			RequestsPerSecond: c.Fetch.RequestsPerSecond,
			Retry:             c.RetryPolicy(),
		},
		FTP: fetcher.FTPOptions{
			Timeout:  time.Duration(c.Fetch.TimeoutSecs) * time.Second,
			User:     c.Fetch.FTPUser,
			Password: c.Fetch.FTPPassword,
		},
	}
}

// PoolConfig returns the Postgres pool sizing.
func (c *Config) PoolConfig() *store.PoolConfig {
	return &store.PoolConfig{MaxConns: c.Store.MaxConns, MinConns: c.Store.MinConns}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
