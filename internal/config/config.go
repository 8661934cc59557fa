// Package config provides configuration management for the earnings tracker.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"earnings-tracker/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	API         APIConfig      `mapstructure:"api"`
	Fetcher     FetcherConfig  `mapstructure:"fetcher"`
	Calendar    CalendarConfig `mapstructure:"calendar"`
	Session     SessionConfig  `mapstructure:"session"`
	Cache       CacheConfig    `mapstructure:"cache"`
	SP500       SP500Config    `mapstructure:"sp500"`
	Analysis    AnalysisConfig `mapstructure:"analysis"`
	Mock        MockConfig     `mapstructure:"mock"`
	Logging     LoggingConfig  `mapstructure:"logging"`
	UI          UIConfig       `mapstructure:"ui"`
	Credentials Credentials    `mapstructure:"-"` // Loaded separately
}

// APIConfig configures the gateway client.
type APIConfig struct {
	BaseURL       string        `mapstructure:"base_url" validate:"required,url"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RetryAttempts int           `mapstructure:"retry_attempts" validate:"gte=0,lte=10"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
	Backoff       string        `mapstructure:"backoff" validate:"oneof=linear exponential"`
	MaxDelay      time.Duration `mapstructure:"max_delay" validate:"gte=0"`
}

// FetcherConfig configures chunked quote fetching.
type FetcherConfig struct {
	ChunkSize         int           `mapstructure:"chunk_size" validate:"gte=1,lte=30"`
	ChunkDelay        time.Duration `mapstructure:"chunk_delay" validate:"gte=0"`
	Mode              string        `mapstructure:"mode" validate:"oneof=per-symbol batch"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gte=0"`
	HistoryDays       int           `mapstructure:"history_days" validate:"gte=1,lte=365"`
	IncludeHistory    bool          `mapstructure:"include_history"`
}

// CalendarConfig selects the calendar payload shape.
type CalendarConfig struct {
	Provider    string `mapstructure:"provider" validate:"oneof=finnhub fmp"`
	PrimaryOnly bool   `mapstructure:"primary_only"`
}

// SessionConfig configures the market session clock.
type SessionConfig struct {
	Timezone string   `mapstructure:"timezone" validate:"required"`
	Holidays []string `mapstructure:"holidays" validate:"dive,datetime=2006-01-02"`
}

// CacheConfig configures response caching.
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	RedisURL    string        `mapstructure:"redis_url" validate:"omitempty,url"`
	CalendarTTL time.Duration `mapstructure:"calendar_ttl" validate:"gte=0"`
	QuoteTTL    time.Duration `mapstructure:"quote_ttl" validate:"gte=0"`
	HistoryTTL  time.Duration `mapstructure:"history_ttl" validate:"gte=0"`
	SP500TTL    time.Duration `mapstructure:"sp500_ttl" validate:"gte=0"`
}

// SP500Config selects where index membership comes from.
type SP500Config struct {
	Source string `mapstructure:"source" validate:"oneof=gateway csv"`
	CSVURL string `mapstructure:"csv_url" validate:"omitempty,url"`
}

// AnalysisConfig configures earnings report analysis.
type AnalysisConfig struct {
	Provider        string        `mapstructure:"provider" validate:"oneof=openai gemini"`
	OpenAIModel     string        `mapstructure:"openai_model"`
	GeminiModel     string        `mapstructure:"gemini_model"`
	SearchURL       string        `mapstructure:"search_url" validate:"required,url"`
	MinContentChars int           `mapstructure:"min_content_chars" validate:"gte=0"`
	MaxInputChars   int           `mapstructure:"max_input_chars" validate:"gte=1000"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// MockConfig toggles synthetic data in place of every network source.
type MockConfig struct {
	Enabled bool  `mapstructure:"enabled"`
	Seed    int64 `mapstructure:"seed"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAge     int    `mapstructure:"max_age" validate:"gte=0"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	TimeFormat   string `mapstructure:"time_format"`
}

// Credentials holds API credentials.
type Credentials struct {
	Gateway GatewayCredentials `mapstructure:"gateway"`
	OpenAI  APIKeyCredentials  `mapstructure:"openai"`
	Gemini  APIKeyCredentials  `mapstructure:"gemini"`
	Serper  APIKeyCredentials  `mapstructure:"serper"`
}

// GatewayCredentials holds the optional key sent to the gateway as X-API-Key.
type GatewayCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// APIKeyCredentials holds a single provider API key.
type APIKeyCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/earnings-tracker"
	}
	return filepath.Join(home, ".config", "earnings-tracker")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. Missing files are
// created from templates and defaults apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	// .env files are optional; values already in the environment win.
	_ = godotenv.Load(".env", ".env.local", filepath.Join(configDir, ".env"))

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration built from defaults only.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

// ConfigPath returns the path of config.toml inside configDir.
func ConfigPath(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	v.SetEnvPrefix("EARNINGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplateConfig(configDir); err != nil {
			return err
		}
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func setDefaults(v *viper.Viper) {
	// Gateway client
	v.SetDefault("api.base_url", "http://localhost:3000/api")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.retry_attempts", 3)
	v.SetDefault("api.retry_delay", "1s")
	v.SetDefault("api.backoff", "linear")
	v.SetDefault("api.max_delay", "0s")

	// Quote fetching
	v.SetDefault("fetcher.chunk_size", 5)
	v.SetDefault("fetcher.chunk_delay", "500ms")
	v.SetDefault("fetcher.mode", "per-symbol")
	v.SetDefault("fetcher.requests_per_second", 0.0) // 0 = unlimited
	v.SetDefault("fetcher.history_days", 30)
	v.SetDefault("fetcher.include_history", false)

	v.SetDefault("calendar.provider", "finnhub")
	v.SetDefault("calendar.primary_only", true)

	v.SetDefault("session.timezone", "America/New_York")
	v.SetDefault("session.holidays", []string{})

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.calendar_ttl", "1h")
	v.SetDefault("cache.quote_ttl", "60s")
	v.SetDefault("cache.history_ttl", "5m")
	v.SetDefault("cache.sp500_ttl", "24h")

	v.SetDefault("sp500.source", "gateway")
	v.SetDefault("sp500.csv_url", "https://raw.githubusercontent.com/datasets/s-and-p-500-companies/main/data/constituents.csv")

	v.SetDefault("analysis.provider", "gemini")
	v.SetDefault("analysis.openai_model", "gpt-4o-mini")
	v.SetDefault("analysis.gemini_model", "gemini-2.0-flash")
	v.SetDefault("analysis.search_url", "https://google.serper.dev/search")
	v.SetDefault("analysis.min_content_chars", 500)
	v.SetDefault("analysis.max_input_chars", 30000)
	v.SetDefault("analysis.timeout", "60s")

	v.SetDefault("mock.enabled", false)
	v.SetDefault("mock.seed", 0)

	defaults := logging.DefaultLogConfig()
	v.SetDefault("logging.level", defaults.Level)
	v.SetDefault("logging.console", defaults.Console)
	v.SetDefault("logging.file", defaults.File)
	v.SetDefault("logging.file_path", defaults.FilePath)
	v.SetDefault("logging.max_size", defaults.MaxSize)
	v.SetDefault("logging.max_backups", defaults.MaxBackups)
	v.SetDefault("logging.max_age", defaults.MaxAge)

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.time_format", "15:04:05")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EARNINGS_GATEWAY_API_KEY"); v != "" {
		cfg.Credentials.Gateway.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Credentials.Gemini.APIKey = v
	}
	if v := os.Getenv("SERPER_API_KEY"); v != "" {
		cfg.Credentials.Serper.APIKey = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.RedisURL = v
	}
	if v := os.Getenv("USE_MOCK_DATA"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Mock.Enabled = enabled
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.API.Backoff == "exponential" && c.API.MaxDelay == 0 {
		return fmt.Errorf("api.max_delay must be set when api.backoff is exponential")
	}
	if c.SP500.Source == "csv" && c.SP500.CSVURL == "" {
		return fmt.Errorf("sp500.csv_url is required when sp500.source is csv")
	}
	if _, err := time.LoadLocation(c.Session.Timezone); err != nil {
		return fmt.Errorf("session.timezone %q: %w", c.Session.Timezone, err)
	}
	if c.Logging.File && c.Logging.FilePath == "" {
		return fmt.Errorf("logging.file_path is required when file logging is enabled")
	}

	return nil
}

// LogConfig converts the logging section for the logging package.
func (c *Config) LogConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    c.Logging.Console,
		File:       c.Logging.File,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}

// IsMockMode returns true if synthetic data replaces network sources.
func (c *Config) IsMockMode() bool {
	return c.Mock.Enabled
}
