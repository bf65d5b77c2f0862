package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"2m"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"25"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// PipelineConfig contains the options recognized by the analysis pipeline.
type PipelineConfig struct {
	// MaxUploadBytes is the ingestion size ceiling. Uploads above it fail
	// with a size-exceeded error before any parsing happens.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"52428800"`

	// MissingTokens are the sentinel strings treated as missing values in
	// addition to genuinely empty cells. Matching is case-insensitive.
	MissingTokens []string `yaml:"missing_tokens" envconfig:"MISSING_TOKENS" default:",NA,N/A,null,-"`

	// TopCategoriesLimit caps frequency tables and pie slices.
	TopCategoriesLimit int `yaml:"top_categories_limit" envconfig:"TOP_CATEGORIES_LIMIT" default:"10"`

	// OutlierIQRMultiplier widens the Tukey fence around [Q1, Q3].
	OutlierIQRMultiplier float64 `yaml:"outlier_iqr_multiplier" envconfig:"OUTLIER_IQR_MULTIPLIER" default:"1.5"`

	// HistogramBins fixes the bin count; zero selects Sturges' rule.
	HistogramBins int `yaml:"histogram_bins" envconfig:"HISTOGRAM_BINS" default:"0"`

	// DateFormats are the layouts tried during datetime inference, in order.
	DateFormats []string `yaml:"date_formats" envconfig:"DATE_FORMATS" default:"2006-01-02,02/01/2006,01/02/2006,2006-01-02 15:04:05,2006/01/02,02.01.2006"`

	// Language tags reports for the UI layer. Display-only; it never
	// affects computation.
	Language string `yaml:"language" envconfig:"LANGUAGE" default:"en"`
}

// Load loads configuration from environment variables and an optional
// config file. Environment variables take precedence.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("SALESPULSE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := findConfigFile(); configFile != "" {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileCfg, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence;
// env zero values fall back to the file).
func mergeConfigs(fileCfg, envCfg Config) Config {
	if envCfg.Server.Port == 0 {
		envCfg.Server.Port = fileCfg.Server.Port
	}
	if envCfg.Server.ReadTimeout == 0 {
		envCfg.Server.ReadTimeout = fileCfg.Server.ReadTimeout
	}
	if envCfg.Server.WriteTimeout == 0 {
		envCfg.Server.WriteTimeout = fileCfg.Server.WriteTimeout
	}
	if envCfg.Pipeline.MaxUploadBytes == 0 {
		envCfg.Pipeline.MaxUploadBytes = fileCfg.Pipeline.MaxUploadBytes
	}
	if len(envCfg.Pipeline.MissingTokens) == 0 {
		envCfg.Pipeline.MissingTokens = fileCfg.Pipeline.MissingTokens
	}
	if envCfg.Pipeline.TopCategoriesLimit == 0 {
		envCfg.Pipeline.TopCategoriesLimit = fileCfg.Pipeline.TopCategoriesLimit
	}
	if envCfg.Pipeline.OutlierIQRMultiplier == 0 {
		envCfg.Pipeline.OutlierIQRMultiplier = fileCfg.Pipeline.OutlierIQRMultiplier
	}
	return envCfg
}

// validate checks the configuration for invalid values.
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
	if c.Pipeline.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}
	if c.Pipeline.TopCategoriesLimit <= 0 {
		return fmt.Errorf("top categories limit must be positive")
	}
	if c.Pipeline.OutlierIQRMultiplier <= 0 {
		return fmt.Errorf("outlier IQR multiplier must be positive")
	}
	if c.Pipeline.Language != "en" && c.Pipeline.Language != "uz" {
		return fmt.Errorf("unsupported language: %s", c.Pipeline.Language)
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// findConfigFile returns the first config file found in common locations.
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  2 * time.Minute,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   25,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: "logs/app.log",
		},
		Pipeline: DefaultPipeline(),
	}
}

// DefaultPipeline returns the default pipeline options.
func DefaultPipeline() PipelineConfig {
	return PipelineConfig{
		MaxUploadBytes:       50 * 1024 * 1024,
		MissingTokens:        []string{"", "NA", "N/A", "null", "-"},
		TopCategoriesLimit:   10,
		OutlierIQRMultiplier: 1.5,
		HistogramBins:        0,
		DateFormats: []string{
			"2006-01-02",
			"02/01/2006",
			"01/02/2006",
			"2006-01-02 15:04:05",
			"2006/01/02",
			"02.01.2006",
		},
		Language: "en",
	}
}
