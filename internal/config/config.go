package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"bist-returns/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Universe  UniverseConfig  `mapstructure:"universe"`
	History   HistoryConfig   `mapstructure:"history"`
	Quotes    QuotesConfig    `mapstructure:"quotes"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	Service   ServiceConfig   `mapstructure:"service"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Timezone    string `mapstructure:"timezone"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for the run archive.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs watch-mode cadence.
type SchedulerConfig struct {
	Cron            string        `mapstructure:"cron"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// UniverseConfig selects where the ticker universe comes from. A file path
// wins over the remote listing; with neither, the built-in list is used.
type UniverseConfig struct {
	FilePath       string        `mapstructure:"file_path"`
	URL            string        `mapstructure:"url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// HistoryConfig parameterises the daily-bar history provider.
type HistoryConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	SymbolSuffix   string        `mapstructure:"symbol_suffix"`
	LookbackDays   int           `mapstructure:"lookback_days"`
	BatchSize      int           `mapstructure:"batch_size"`
	BatchPause     time.Duration `mapstructure:"batch_pause"`
	Workers        int           `mapstructure:"workers"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay  time.Duration `mapstructure:"retry_max_delay"`
}

// QuotesConfig parameterises the secondary quote-table provider.
type QuotesConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	URL            string        `mapstructure:"url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// SnapshotConfig locates the fallback snapshot file.
type SnapshotConfig struct {
	Path string `mapstructure:"path"`
}

// ServiceConfig bounds a single acquisition run.
type ServiceConfig struct {
	RunTimeout time.Duration `mapstructure:"run_timeout"`
}

// AlertingConfig defines operational alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxRecords int `mapstructure:"max_records"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BISTWATCHER")
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
	v.SetDefault("app.name", "bistwatcher")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.timezone", "Europe/Istanbul")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Weekdays shortly after the BIST close.
	v.SetDefault("scheduler.cron", "30 18 * * 1-5")
	v.SetDefault("scheduler.advisory_lock_key", int64(0x42495354))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("universe.url", "https://www.isyatirim.com.tr/_layouts/15/IsYatirim.Website/Common/Handlers/StockHandler.ashx?action=allstocks")
	v.SetDefault("universe.request_timeout", "20s")
	v.SetDefault("universe.user_agent", "bistwatcher/1.0")

	v.SetDefault("history.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("history.symbol_suffix", ".IS")
	v.SetDefault("history.lookback_days", 400)
	v.SetDefault("history.batch_size", 50)
	v.SetDefault("history.batch_pause", "700ms")
	v.SetDefault("history.workers", 8)
	v.SetDefault("history.request_timeout", "15s")
	v.SetDefault("history.user_agent", "bistwatcher/1.0")
	v.SetDefault("history.max_attempts", 3)
	v.SetDefault("history.retry_base_delay", "2s")
	v.SetDefault("history.retry_max_delay", "10s")

	v.SetDefault("quotes.enabled", false)
	v.SetDefault("quotes.url", "https://www.bloomberght.com/borsa/hisseler")
	v.SetDefault("quotes.request_timeout", "15s")
	v.SetDefault("quotes.user_agent", "bistwatcher/1.0")

	v.SetDefault("snapshot.path", ".cache/bist_latest.json")

	v.SetDefault("service.run_timeout", "10m")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_records", 5000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
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
	if c.App.Timezone == "" {
		return fmt.Errorf("app.timezone must be set")
	}
	if c.History.BaseURL == "" {
		return fmt.Errorf("history.base_url must be set")
	}
	if c.History.LookbackDays < 370 {
		return fmt.Errorf("history.lookback_days must cover the 360d window plus a resolution margin (>= 370)")
	}
	if c.History.BatchSize <= 0 {
		return fmt.Errorf("history.batch_size must be greater than zero")
	}
	if c.History.Workers <= 0 {
		return fmt.Errorf("history.workers must be greater than zero")
	}
	if c.History.MaxAttempts < 1 {
		return fmt.Errorf("history.max_attempts must be at least one")
	}
	if c.Quotes.Enabled && c.Quotes.URL == "" {
		return fmt.Errorf("quotes.url must be set when quotes.enabled is true")
	}
	if c.Snapshot.Path == "" {
		return fmt.Errorf("snapshot.path must be set")
	}
	if c.Service.RunTimeout <= 0 {
		return fmt.Errorf("service.run_timeout must be greater than zero")
	}
	if c.Scheduler.Cron == "" {
		return fmt.Errorf("scheduler.cron must be set")
	}
	if c.Export.MaxRecords <= 0 {
		return fmt.Errorf("export.max_records must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// ResolveMaxRecords returns either the CLI override or config default.
func (c *Config) ResolveMaxRecords(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxRecords
}
