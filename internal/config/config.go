// Package config provides configuration management for the monitor.
// It handles loading, validation, and access to configuration values from
// YAML files and environment variables via viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultCheckInterval        = 2 * time.Minute
	defaultInitialBackfillCount = 10
	defaultMaxPostsPerPage      = 15
	defaultMinPostLength        = 50
	defaultDeliveryDelay        = time.Second
	defaultKeywordDelay         = 5 * time.Second
	defaultSeenRetention        = 4 * 24 * time.Hour
	defaultSeenMaxEntries       = 5000
	defaultFetchTimeout         = 30 * time.Second
)

// Common configuration errors.
var (
	ErrMissingRedisAddr = errors.New("redis address is required")
	ErrMissingBotToken  = errors.New("telegram bot token is required")
)

// RedisConfig holds the Redis connection settings for the seen-set store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// TelegramConfig holds the delivery channel settings.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	// APIBaseURL overrides the Bot API endpoint, mainly for tests.
	APIBaseURL string `yaml:"api_base_url"`
}

// FetchConfig holds the search-surface session settings.
type FetchConfig struct {
	BaseURL     string        `yaml:"base_url"`
	CookiesFile string        `yaml:"cookies_file"`
	Timeout     time.Duration `yaml:"timeout"`
}

// MonitorConfig holds the cycle and fan-out behavior settings.
type MonitorConfig struct {
	CheckInterval        time.Duration `yaml:"check_interval"`
	InitialBackfillCount int           `yaml:"initial_backfill_count"`
	MaxPostsPerPage      int           `yaml:"max_posts_per_page"`
	MinPostLength        int           `yaml:"min_post_length"`
	DeliveryDelay        time.Duration `yaml:"delivery_delay"`
	KeywordDelay         time.Duration `yaml:"keyword_delay"`
	SeenRetention        time.Duration `yaml:"seen_retention"`
	SeenMaxEntries       int           `yaml:"seen_max_entries"`
}

// StorageConfig holds snapshot persistence settings.
type StorageConfig struct {
	DataDir      string `yaml:"data_dir"`
	SnapshotFile string `yaml:"snapshot_file"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Encoding    string `yaml:"encoding"`
	Development bool   `yaml:"development"`
}

// Config represents the application configuration.
type Config struct {
	Redis    RedisConfig    `yaml:"redis"`
	Telegram TelegramConfig `yaml:"telegram"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SetDefaults registers default values on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("telegram.api_base_url", "https://api.telegram.org")

	v.SetDefault("fetch.base_url", "https://www.facebook.com")
	v.SetDefault("fetch.cookies_file", "fb_cookies.json")
	v.SetDefault("fetch.timeout", defaultFetchTimeout)

	v.SetDefault("monitor.check_interval", defaultCheckInterval)
	v.SetDefault("monitor.initial_backfill_count", defaultInitialBackfillCount)
	v.SetDefault("monitor.max_posts_per_page", defaultMaxPostsPerPage)
	v.SetDefault("monitor.min_post_length", defaultMinPostLength)
	v.SetDefault("monitor.delivery_delay", defaultDeliveryDelay)
	v.SetDefault("monitor.keyword_delay", defaultKeywordDelay)
	v.SetDefault("monitor.seen_retention", defaultSeenRetention)
	v.SetDefault("monitor.seen_max_entries", defaultSeenMaxEntries)

	v.SetDefault("storage.data_dir", ".")
	v.SetDefault("storage.snapshot_file", "destinations.json")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", false)
}

// Load builds a Config from the given viper instance.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Telegram: TelegramConfig{
			BotToken:   v.GetString("telegram.bot_token"),
			APIBaseURL: v.GetString("telegram.api_base_url"),
		},
		Fetch: FetchConfig{
			BaseURL:     v.GetString("fetch.base_url"),
			CookiesFile: v.GetString("fetch.cookies_file"),
			Timeout:     v.GetDuration("fetch.timeout"),
		},
		Monitor: MonitorConfig{
			CheckInterval:        v.GetDuration("monitor.check_interval"),
			InitialBackfillCount: v.GetInt("monitor.initial_backfill_count"),
			MaxPostsPerPage:      v.GetInt("monitor.max_posts_per_page"),
			MinPostLength:        v.GetInt("monitor.min_post_length"),
			DeliveryDelay:        v.GetDuration("monitor.delivery_delay"),
			KeywordDelay:         v.GetDuration("monitor.keyword_delay"),
			SeenRetention:        v.GetDuration("monitor.seen_retention"),
			SeenMaxEntries:       v.GetInt("monitor.seen_max_entries"),
		},
		Storage: StorageConfig{
			DataDir:      v.GetString("storage.data_dir"),
			SnapshotFile: v.GetString("storage.snapshot_file"),
		},
		Logging: LoggingConfig{
			Level:       v.GetString("logging.level"),
			Encoding:    v.GetString("logging.encoding"),
			Development: v.GetBool("logging.development"),
		},
	}

	return cfg, nil
}

// Validate checks that the configuration is usable for the monitor command.
func (c *Config) Validate() error {
	if c.Redis.Addr == "" {
		return ErrMissingRedisAddr
	}
	if c.Telegram.BotToken == "" {
		return ErrMissingBotToken
	}
	if c.Monitor.InitialBackfillCount < 0 {
		return fmt.Errorf("initial_backfill_count must be >= 0, got %d", c.Monitor.InitialBackfillCount)
	}
	if c.Monitor.MaxPostsPerPage <= 0 {
		return fmt.Errorf("max_posts_per_page must be > 0, got %d", c.Monitor.MaxPostsPerPage)
	}
	if c.Monitor.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be > 0, got %s", c.Monitor.CheckInterval)
	}
	return nil
}
