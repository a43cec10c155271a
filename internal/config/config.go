package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Server   ServerConfig   `mapstructure:"server"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ArchiveConfig holds the draw notice API and sync schedule
type ArchiveConfig struct {
	APIURL            string        `mapstructure:"api_url"`
	PageSize          int           `mapstructure:"page_size"`
	MaxPages          int           `mapstructure:"max_pages"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelayBase    time.Duration `mapstructure:"retry_delay_base"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	BreakerFailures   int           `mapstructure:"breaker_failures"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
	SyncInterval      time.Duration `mapstructure:"sync_interval"`
	BackupPath        string        `mapstructure:"backup_path"`
}

// StorageConfig holds the SQLite archive location
type StorageConfig struct {
	DBPath     string `mapstructure:"db_path"`
	ExportPath string `mapstructure:"export_path"`
}

// EngineConfig holds plan generation parameters
type EngineConfig struct {
	Singles             int   `mapstructure:"singles"`
	CoverageSets        int   `mapstructure:"coverage_sets"`
	CandidateMultiplier int   `mapstructure:"candidate_multiplier"`
	StrategySeed        int64 `mapstructure:"strategy_seed"`
	CandidateSeed       int64 `mapstructure:"candidate_seed"`
}

// ServerConfig holds the HTTP API configuration
type ServerConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Addr               string `mapstructure:"addr"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute"`
	HistoryPageSize    int    `mapstructure:"history_page_size"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// An empty path uses defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// SSQ_PLANNER_ENGINE_SINGLES overrides engine.singles
	v.SetEnvPrefix("SSQ_PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Archive defaults
	v.SetDefault("archive.api_url", "https://www.cwl.gov.cn/cwl_admin/front/cwlkj/search/kjxx/findDrawNotice")
	v.SetDefault("archive.page_size", 30)
	v.SetDefault("archive.max_pages", 0)
	v.SetDefault("archive.timeout", "30s")
	v.SetDefault("archive.max_retries", 5)
	v.SetDefault("archive.retry_delay_base", "1s")
	v.SetDefault("archive.requests_per_second", 2.0)
	v.SetDefault("archive.breaker_failures", 5)
	v.SetDefault("archive.breaker_timeout", "1m")
	v.SetDefault("archive.sync_interval", "6h")
	v.SetDefault("archive.backup_path", "./data/ssq_history.json")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/ssq.db")
	v.SetDefault("storage.export_path", "")

	// Engine defaults
	v.SetDefault("engine.singles", 8)
	v.SetDefault("engine.coverage_sets", 20)
	v.SetDefault("engine.candidate_multiplier", 8)
	v.SetDefault("engine.strategy_seed", 42)
	v.SetDefault("engine.candidate_seed", 12345)

	// Server defaults
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rate_limit_per_minute", 60)
	v.SetDefault("server.history_page_size", 50)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "2s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Archive.APIURL == "" {
		return fmt.Errorf("archive.api_url is required")
	}
	if c.Archive.PageSize < 1 || c.Archive.PageSize > 100 {
		return fmt.Errorf("archive.page_size must be between 1 and 100")
	}
	if c.Archive.MaxPages < 0 {
		return fmt.Errorf("archive.max_pages must not be negative")
	}
	if c.Archive.Timeout < time.Second {
		return fmt.Errorf("archive.timeout must be at least 1 second")
	}
	if c.Archive.MaxRetries < 1 {
		return fmt.Errorf("archive.max_retries must be at least 1")
	}
	if c.Archive.BreakerFailures < 1 {
		return fmt.Errorf("archive.breaker_failures must be at least 1")
	}
	if c.Archive.SyncInterval < time.Minute {
		return fmt.Errorf("archive.sync_interval must be at least 1 minute")
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}

	if c.Engine.Singles < 1 || c.Engine.Singles > 8 {
		return fmt.Errorf("engine.singles must be between 1 and 8")
	}
	if c.Engine.CoverageSets < 1 {
		return fmt.Errorf("engine.coverage_sets must be at least 1")
	}
	if c.Engine.CandidateMultiplier < 1 {
		return fmt.Errorf("engine.candidate_multiplier must be at least 1")
	}
	if c.Engine.StrategySeed < 1 || c.Engine.CandidateSeed < 1 {
		return fmt.Errorf("engine seeds must be at least 1")
	}

	if c.Server.Enabled {
		if c.Server.Addr == "" {
			return fmt.Errorf("server.addr is required when the server is enabled")
		}
		if c.Server.RateLimitPerMinute < 0 {
			return fmt.Errorf("server.rate_limit_per_minute must not be negative")
		}
		if c.Server.HistoryPageSize < 1 {
			return fmt.Errorf("server.history_page_size must be at least 1")
		}
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
