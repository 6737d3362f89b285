package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cuemby/viewsync/pkg/log"
	"github.com/cuemby/viewsync/pkg/notify"
	"github.com/cuemby/viewsync/pkg/registry"
	"github.com/cuemby/viewsync/pkg/store"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. VIEWSYNC_STORE_ADDR
const EnvPrefix = "VIEWSYNC"

// Config is the full viewsync configuration
type Config struct {
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Window  WindowConfig  `mapstructure:"window" yaml:"window"`
	Views   ViewsConfig   `mapstructure:"views" yaml:"views"`
	Notify  NotifyConfig  `mapstructure:"notify" yaml:"notify"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Serve   ServeConfig   `mapstructure:"serve" yaml:"serve"`
}

// StoreConfig configures the ClickHouse connection
type StoreConfig struct {
	Addr          []string      `mapstructure:"addr" yaml:"addr"`
	Database      string        `mapstructure:"database" yaml:"database"`
	SourceTable   string        `mapstructure:"source_table" yaml:"source_table"`
	DayColumn     string        `mapstructure:"day_column" yaml:"day_column"`
	TimeColumn    string        `mapstructure:"time_column" yaml:"time_column"`
	Username      string        `mapstructure:"username" yaml:"username"`
	Password      string        `mapstructure:"password" yaml:"-"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	QueryTimeout  time.Duration `mapstructure:"query_timeout" yaml:"query_timeout"`
	MutationsSync int           `mapstructure:"mutations_sync" yaml:"mutations_sync"`
	Breaker       BreakerConfig `mapstructure:"breaker" yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker around store calls
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests" yaml:"max_requests"`
	Interval         time.Duration `mapstructure:"interval" yaml:"interval"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold" yaml:"failure_threshold"`
}

// WindowConfig defines the reconciliation window
type WindowConfig struct {
	Days      int    `mapstructure:"days" yaml:"days"`
	EndOffset int    `mapstructure:"end_offset" yaml:"end_offset"`
	Timezone  string `mapstructure:"timezone" yaml:"timezone"`
}

// ViewsConfig selects and shapes the reconciled views
type ViewsConfig struct {
	HiddenPrefixes []string               `mapstructure:"hidden_prefixes" yaml:"hidden_prefixes"`
	Include        []string               `mapstructure:"include" yaml:"include"`
	Exclude        []string               `mapstructure:"exclude" yaml:"exclude"`
	Suppressed     []string               `mapstructure:"suppressed" yaml:"suppressed"`
	Rewrites       []registry.RewriteRule `mapstructure:"rewrites" yaml:"rewrites"`
}

// NotifyConfig configures delivery of run reports
type NotifyConfig struct {
	Telegram    TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
	ReportChat  string         `mapstructure:"report_chat" yaml:"report_chat"`
	StatusChat  string         `mapstructure:"status_chat" yaml:"status_chat"`
	MinInterval time.Duration  `mapstructure:"min_interval" yaml:"min_interval"`
}

// TelegramConfig holds Bot API credentials
type TelegramConfig struct {
	Token   string        `mapstructure:"token" yaml:"-"`
	APIURL  string        `mapstructure:"api_url" yaml:"api_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// HistoryConfig configures the local run journal
type HistoryConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
	Keep int    `mapstructure:"keep" yaml:"keep"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// ServeConfig configures the long-running mode
type ServeConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Addr     string        `mapstructure:"addr" yaml:"addr"`
}

// New returns a viper instance with defaults and environment binding.
// Callers may bind command-line flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.addr", []string{"localhost:9000"})
	v.SetDefault("store.database", "public")
	v.SetDefault("store.source_table", "zoon.stat")
	v.SetDefault("store.day_column", "event_date")
	v.SetDefault("store.time_column", "event_time")
	v.SetDefault("store.username", "default")
	v.SetDefault("store.password", "")
	v.SetDefault("store.dial_timeout", "10s")
	v.SetDefault("store.query_timeout", "5m")
	v.SetDefault("store.mutations_sync", 2)
	v.SetDefault("store.breaker.max_requests", 1)
	v.SetDefault("store.breaker.interval", "0s")
	v.SetDefault("store.breaker.timeout", "30s")
	v.SetDefault("store.breaker.failure_threshold", 5)

	v.SetDefault("window.days", 30)
	v.SetDefault("window.end_offset", 1)
	v.SetDefault("window.timezone", "UTC")

	v.SetDefault("views.hidden_prefixes", []string{"."})
	v.SetDefault("views.include", []string{})
	v.SetDefault("views.exclude", []string{})
	v.SetDefault("views.suppressed", []string{"stat_corp"})

	v.SetDefault("notify.telegram.token", "")
	v.SetDefault("notify.telegram.api_url", notify.DefaultTelegramAPI)
	v.SetDefault("notify.telegram.timeout", "10s")
	v.SetDefault("notify.report_chat", "")
	v.SetDefault("notify.status_chat", "")
	v.SetDefault("notify.min_interval", "1s")

	v.SetDefault("history.path", "/var/lib/viewsync/history.db")
	v.SetDefault("history.keep", 500)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("serve.interval", "24h")
	v.SetDefault("serve.addr", ":9090")
}

// Load reads the optional config file at path into v and decodes the result.
// An empty path searches the working directory and /etc/viewsync for
// viewsync.yaml; a missing file there is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("viewsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/viewsync")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values no run could work with
func (c *Config) Validate() error {
	var errs []error

	if len(c.Store.Addr) == 0 {
		errs = append(errs, errors.New("store.addr is required"))
	}
	if c.Store.Database == "" {
		errs = append(errs, errors.New("store.database is required"))
	}
	if c.Store.SourceTable == "" {
		errs = append(errs, errors.New("store.source_table is required"))
	}
	if c.Store.DayColumn == "" || c.Store.TimeColumn == "" {
		errs = append(errs, errors.New("store.day_column and store.time_column are required"))
	}
	if c.Window.Days <= 0 {
		errs = append(errs, fmt.Errorf("window.days must be positive, got %d", c.Window.Days))
	}
	if c.Window.EndOffset < 1 {
		errs = append(errs, fmt.Errorf("window.end_offset must be at least 1, got %d", c.Window.EndOffset))
	}
	if c.Window.Days > 0 && c.Window.EndOffset > c.Window.Days {
		errs = append(errs, fmt.Errorf("window.end_offset %d must not exceed window.days %d", c.Window.EndOffset, c.Window.Days))
	}
	if _, err := time.LoadLocation(c.Window.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("window.timezone: %w", err))
	}
	if c.History.Keep < 0 {
		errs = append(errs, errors.New("history.keep must not be negative"))
	}
	if c.Serve.Interval <= 0 {
		errs = append(errs, errors.New("serve.interval must be positive"))
	}
	if c.Notify.Telegram.Token != "" && c.Notify.ReportChat == "" {
		errs = append(errs, errors.New("notify.report_chat is required when a telegram token is set"))
	}

	return errors.Join(errs...)
}

// Location returns the time zone the window is computed in
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Window.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ClickHouse converts to the ClickHouse adapter settings
func (c *Config) ClickHouse() store.ClickHouseConfig {
	return store.ClickHouseConfig{
		Addr:          c.Store.Addr,
		Database:      c.Store.Database,
		Username:      c.Store.Username,
		Password:      c.Store.Password,
		SourceTable:   c.Store.SourceTable,
		DayColumn:     c.Store.DayColumn,
		TimeColumn:    c.Store.TimeColumn,
		DialTimeout:   c.Store.DialTimeout,
		QueryTimeout:  c.Store.QueryTimeout,
		MutationsSync: c.Store.MutationsSync,
		Breaker: store.BreakerConfig{
			MaxRequests:      c.Store.Breaker.MaxRequests,
			Interval:         c.Store.Breaker.Interval,
			Timeout:          c.Store.Breaker.Timeout,
			FailureThreshold: c.Store.Breaker.FailureThreshold,
		},
	}
}

// Registry converts to view discovery settings
func (c *Config) Registry() registry.Config {
	return registry.Config{
		HiddenPrefixes: c.Views.HiddenPrefixes,
		Include:        c.Views.Include,
		Exclude:        c.Views.Exclude,
		Suppressed:     c.Views.Suppressed,
		Rewrites:       c.Views.Rewrites,
	}
}

// Telegram converts to Bot API sender settings
func (c *Config) Telegram() notify.TelegramConfig {
	return notify.TelegramConfig{
		Token:       c.Notify.Telegram.Token,
		APIURL:      c.Notify.Telegram.APIURL,
		Timeout:     c.Notify.Telegram.Timeout,
		MinInterval: c.Notify.MinInterval,
	}
}

// Channels returns the chat routing for run messages
func (c *Config) Channels() notify.Channels {
	return notify.Channels{
		Report: c.Notify.ReportChat,
		Status: c.Notify.StatusChat,
	}
}

// Logging converts to logger settings
func (c *Config) Logging() log.Config {
	return log.Config{
		Level:      c.Log.Level,
		JSONOutput: c.Log.JSON,
	}
}
