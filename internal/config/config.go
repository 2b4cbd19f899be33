// Package config loads taskward configuration from taskward.yml and
// TASKWARD_* environment variables. Every numeric policy threshold in the
// validation core is configurable here; the defaults mirror the policies
// the rules shipped with.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full taskward configuration.
type Config struct {
	Store            StoreConfig      `mapstructure:"store"`
	Cache            CacheConfig      `mapstructure:"cache"`
	Validation       ValidationConfig `mapstructure:"validation"`
	Integrity        IntegrityConfig  `mapstructure:"integrity"`
	Logging          LoggingConfig    `mapstructure:"logging"`
	OperationTimeout time.Duration    `mapstructure:"operation_timeout"`
}

// StoreConfig configures the PostgreSQL connection.
type StoreConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// CacheConfig configures the optional Redis existence cache.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ValidationConfig carries the policy thresholds used by constraints and
// business rules.
type ValidationConfig struct {
	// MaxNestingDepth is the hard ceiling on list hierarchy depth.
	MaxNestingDepth int `mapstructure:"max_nesting_depth"`
	// NestingWarnRatio of the ceiling triggers an approaching-limit
	// warning.
	NestingWarnRatio float64 `mapstructure:"nesting_warn_ratio"`
	// WorkloadThreshold is the open-item count above which an
	// assignee is considered overloaded.
	WorkloadThreshold int `mapstructure:"workload_threshold"`
	// LongTaskMinutes flags implausibly large duration estimates.
	LongTaskMinutes int `mapstructure:"long_task_minutes"`
	// DurationOverrunFactor flags actual durations exceeding the
	// estimate by this factor.
	DurationOverrunFactor float64 `mapstructure:"duration_overrun_factor"`
	// DueDateHorizonDays flags due dates further out than this.
	DueDateHorizonDays int `mapstructure:"due_date_horizon_days"`
	// RetentionMinAge blocks deletion of records younger than this.
	// Zero disables the retention gate.
	RetentionMinAge time.Duration `mapstructure:"retention_min_age"`

	EnableForeignKeyChecks bool `mapstructure:"enable_foreign_key_checks"`
	EnableBusinessRules    bool `mapstructure:"enable_business_rules"`
}

// ScheduleConfig declares one named scheduled integrity check. The core
// only registers these; an external runner triggers them.
type ScheduleConfig struct {
	Name       string   `mapstructure:"name"`
	Cron       string   `mapstructure:"cron"`
	Tables     []string `mapstructure:"tables"`
	Categories []string `mapstructure:"categories"`
}

// IntegrityConfig configures the integrity monitor.
type IntegrityConfig struct {
	Enabled   bool             `mapstructure:"enabled"`
	BatchSize int              `mapstructure:"batch_size"`
	MaxErrors int              `mapstructure:"max_errors"`
	Tables    []string         `mapstructure:"tables"`
	Schedules []ScheduleConfig `mapstructure:"schedules"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Default returns the configuration with every default applied and no file
// or environment consulted.
func Default() *Config {
	cfg := &Config{}
	v := viper.New()
	setDefaults(v)
	// Defaults only; Unmarshal cannot fail on them.
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads taskward.yml from the current directory (or the explicit path
// when non-empty) plus TASKWARD_* environment variables. A missing config
// file is not an error; defaults cover everything.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("taskward")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TASKWARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.max_open_conns", 10)
	v.SetDefault("store.max_idle_conns", 5)
	v.SetDefault("store.conn_max_lifetime", time.Hour)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.prefix", "taskward:exists:")
	v.SetDefault("cache.ttl", 30*time.Second)

	v.SetDefault("validation.max_nesting_depth", 5)
	v.SetDefault("validation.nesting_warn_ratio", 0.8)
	v.SetDefault("validation.workload_threshold", 20)
	v.SetDefault("validation.long_task_minutes", 2400)
	v.SetDefault("validation.duration_overrun_factor", 2.0)
	v.SetDefault("validation.due_date_horizon_days", 365)
	v.SetDefault("validation.retention_min_age", time.Duration(0))
	v.SetDefault("validation.enable_foreign_key_checks", true)
	v.SetDefault("validation.enable_business_rules", true)

	v.SetDefault("integrity.enabled", true)
	v.SetDefault("integrity.batch_size", 100)
	v.SetDefault("integrity.max_errors", 1000)
	v.SetDefault("integrity.tables", []string{"lists", "items"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetDefault("operation_timeout", time.Duration(0))
}

// validateConfig rejects configurations the core cannot run with.
func validateConfig(cfg *Config) error {
	if cfg.Validation.MaxNestingDepth < 1 {
		return fmt.Errorf("validation.max_nesting_depth must be at least 1, got %d", cfg.Validation.MaxNestingDepth)
	}
	if cfg.Validation.NestingWarnRatio <= 0 || cfg.Validation.NestingWarnRatio > 1 {
		return fmt.Errorf("validation.nesting_warn_ratio must be in (0, 1], got %g", cfg.Validation.NestingWarnRatio)
	}
	if cfg.Validation.DurationOverrunFactor <= 0 {
		return fmt.Errorf("validation.duration_overrun_factor must be positive, got %g", cfg.Validation.DurationOverrunFactor)
	}
	if cfg.Integrity.BatchSize < 1 {
		return fmt.Errorf("integrity.batch_size must be at least 1, got %d", cfg.Integrity.BatchSize)
	}
	if cfg.Integrity.MaxErrors < 1 {
		return fmt.Errorf("integrity.max_errors must be at least 1, got %d", cfg.Integrity.MaxErrors)
	}
	for _, s := range cfg.Integrity.Schedules {
		if s.Name == "" {
			return fmt.Errorf("integrity.schedules entries must have a name")
		}
		if s.Cron == "" {
			return fmt.Errorf("integrity schedule %q must have a cron expression", s.Name)
		}
	}
	return nil
}
