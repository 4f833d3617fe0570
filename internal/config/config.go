// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	DB       DBConfig       `mapstructure:"db"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Logs     LogsConfig     `mapstructure:"logs"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// UpstreamConfig describes the job-board search endpoint and how politely
// we hit it.
type UpstreamConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	UserAgent      string `mapstructure:"user_agent"`
	Referer        string `mapstructure:"referer"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	DelayMinMs     int    `mapstructure:"delay_min_ms"`
	DelayMaxMs     int    `mapstructure:"delay_max_ms"`
}

// DBConfig selects and configures the storage backend.
type DBConfig struct {
	Backend string `mapstructure:"backend"` // "sqlite" or "postgres"
	DSN     string `mapstructure:"dsn"`     // postgres connection string
	Path    string `mapstructure:"path"`    // sqlite file path
}

// IngestConfig holds the keyword/region sweep sets and per-task pacing.
type IngestConfig struct {
	Keywords           []string `mapstructure:"keywords"`
	HotKeywords        []string `mapstructure:"hot_keywords"`
	Areas              []string `mapstructure:"areas"`
	DefaultArea        string   `mapstructure:"default_area"`
	RefreshKeyword     string   `mapstructure:"refresh_keyword"`
	SweepPages         int      `mapstructure:"sweep_pages"`
	RegionPages        int      `mapstructure:"region_pages"`
	SweepDelaySeconds  int      `mapstructure:"sweep_delay_seconds"`
	RegionDelaySeconds int      `mapstructure:"region_delay_seconds"`
	RetentionDays      int      `mapstructure:"retention_days"`
}

// ScheduleConfig holds the cron specs for the recurring tasks and the tick
// period of the runner loop.
type ScheduleConfig struct {
	TickSeconds int    `mapstructure:"tick_seconds"`
	FullSweep   string `mapstructure:"full_sweep"`
	RegionSweep string `mapstructure:"region_sweep"`
	Purge       string `mapstructure:"purge"`
	Report      string `mapstructure:"report"`
	Refresh     string `mapstructure:"refresh"`
}

// LogsConfig sets the directory of the append-only JSONL stat logs.
type LogsConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("upstream.endpoint", "https://www.104.com.tw/jobs/search/list")
	v.SetDefault("upstream.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("upstream.referer", "https://www.104.com.tw/jobs/search/")
	v.SetDefault("upstream.timeout_seconds", 15)
	v.SetDefault("upstream.delay_min_ms", 1000)
	v.SetDefault("upstream.delay_max_ms", 3000)
	v.SetDefault("db.backend", "sqlite")
	v.SetDefault("db.path", "jobs.db")
	v.SetDefault("ingest.keywords", []string{
		"Python", "JavaScript", "Java", "C++", "Go", "Rust",
		"前端工程師", "後端工程師", "全端工程師", "資料工程師",
		"機器學習", "人工智慧", "DevOps", "SRE", "產品經理",
	})
	v.SetDefault("ingest.hot_keywords", []string{"Python", "JavaScript", "前端工程師", "後端工程師"})
	v.SetDefault("ingest.areas", []string{
		"6001001000", "6001002000", "6001003000",
		"6001004000", "6001005000", "6001006000",
	})
	v.SetDefault("ingest.default_area", "6001001000")
	v.SetDefault("ingest.refresh_keyword", "Python")
	v.SetDefault("ingest.sweep_pages", 2)
	v.SetDefault("ingest.region_pages", 1)
	v.SetDefault("ingest.sweep_delay_seconds", 5)
	v.SetDefault("ingest.region_delay_seconds", 3)
	v.SetDefault("ingest.retention_days", 30)
	v.SetDefault("schedule.tick_seconds", 60)
	v.SetDefault("schedule.full_sweep", "0 9 * * *")
	v.SetDefault("schedule.region_sweep", "0 15 * * *")
	v.SetDefault("schedule.purge", "0 2 * * 0")
	v.SetDefault("schedule.report", "0 23 * * *")
	v.SetDefault("schedule.refresh", "@hourly")
	v.SetDefault("logs.dir", "logs")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. A missing
// connection parameter for the selected backend is fatal: the process must
// not start half-configured.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Upstream.Endpoint == "" {
		return fmt.Errorf("upstream.endpoint must be set")
	}
	if c.Upstream.DelayMinMs < 0 || c.Upstream.DelayMaxMs < c.Upstream.DelayMinMs {
		return fmt.Errorf("upstream delay bounds invalid: min=%d max=%d",
			c.Upstream.DelayMinMs, c.Upstream.DelayMaxMs)
	}
	switch c.DB.Backend {
	case "sqlite":
		if c.DB.Path == "" {
			return fmt.Errorf("db.path must be set for the sqlite backend")
		}
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("unsupported db.backend %q", c.DB.Backend)
	}
	if c.Ingest.RetentionDays <= 0 {
		return fmt.Errorf("ingest.retention_days must be > 0")
	}
	if c.Schedule.TickSeconds <= 0 {
		return fmt.Errorf("schedule.tick_seconds must be > 0")
	}
	return nil
}

// UpstreamTimeout returns the fetch timeout as a duration.
func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

// TickPeriod returns the scheduler tick period as a duration.
func (c Config) TickPeriod() time.Duration {
	return time.Duration(c.Schedule.TickSeconds) * time.Second
}
