package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"thinkpad-price-tracker/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Ebay      EbayConfig      `mapstructure:"ebay"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SchedulerConfig governs the periodic sync cadence.
type SchedulerConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
}

// EbayConfig covers marketplace Browse API access.
type EbayConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	AuthURL        string        `mapstructure:"auth_url"`
	ClientID       string        `mapstructure:"client_id"`
	ClientSecret   string        `mapstructure:"client_secret"`
	CampaignID     string        `mapstructure:"campaign_id"`
	CategoryID     string        `mapstructure:"category_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SyncConfig tunes the reconcile pipeline.
type SyncConfig struct {
	Query              string        `mapstructure:"query"`
	Limit              int           `mapstructure:"limit"`
	Marketplaces       []string      `mapstructure:"marketplaces"`
	BatchSize          int           `mapstructure:"batch_size"`
	StalenessThreshold time.Duration `mapstructure:"staleness_threshold"`
	MaxRetries         int           `mapstructure:"max_retries"`
	FailLogPath        string        `mapstructure:"fail_log_path"`
	DeadLetterPath     string        `mapstructure:"dead_letter_path"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("THINKWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "thinkwatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("ebay.base_url", "https://api.ebay.com")
	v.SetDefault("ebay.auth_url", "https://api.ebay.com/identity/v1/oauth2/token")
	v.SetDefault("ebay.category_id", "177")
	v.SetDefault("ebay.request_timeout", "10s")

	v.SetDefault("sync.query", "thinkpad")
	v.SetDefault("sync.limit", 100)
	v.SetDefault("sync.marketplaces", []string{"EBAY_US"})
	v.SetDefault("sync.batch_size", 50)
	v.SetDefault("sync.staleness_threshold", "24h")
	v.SetDefault("sync.max_retries", 3)
	v.SetDefault("sync.fail_log_path", "failed_items.jsonl")
	v.SetDefault("sync.dead_letter_path", "dead_letter.jsonl")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync.batch_size must be greater than zero")
	}
	if c.Sync.StalenessThreshold <= 0 {
		return fmt.Errorf("sync.staleness_threshold must be greater than zero")
	}
	if c.Sync.MaxRetries <= 0 {
		return fmt.Errorf("sync.max_retries must be greater than zero")
	}
	if c.Sync.Limit <= 0 {
		return fmt.Errorf("sync.limit must be greater than zero")
	}
	if len(c.Sync.Marketplaces) == 0 {
		return fmt.Errorf("sync.marketplaces must name at least one marketplace")
	}
	if c.Sync.FailLogPath == "" || c.Sync.DeadLetterPath == "" {
		return fmt.Errorf("sync.fail_log_path and sync.dead_letter_path are required")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
