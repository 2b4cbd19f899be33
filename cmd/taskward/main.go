package main

import (
	"database/sql"
	"fmt"
	"os"

	// Registers the pgx driver with database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/taskward/taskward/internal/config"
	"github.com/taskward/taskward/internal/integrity"
	"github.com/taskward/taskward/internal/metrics"
	"github.com/taskward/taskward/internal/rules"
	"github.com/taskward/taskward/internal/store"
	"github.com/taskward/taskward/internal/system"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskward",
		Short: "Data-integrity toolkit for the taskward backend",
		Long: `Taskward validates task and list data against business rules and
referential-integrity constraints, and runs system-wide integrity scans.
The scan command is the external runner for scheduled checks; the core
library never runs timers itself.`,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to taskward.yml")

	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(checksCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles everything a command needs, with a Close that releases the
// database and flushes logs.
type app struct {
	cfg     *config.Config
	db      *sql.DB
	system  *system.System
	monitor *integrity.Monitor
	logger  *zap.Logger
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// buildApp loads configuration and wires the full validation system.
func buildApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	dsn := cfg.Store.DSN
	if env := os.Getenv("DATABASE_URL"); env != "" {
		dsn = env
	}
	if dsn == "" {
		return nil, fmt.Errorf("no database configured: set store.dsn or DATABASE_URL")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Store.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Store.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Store.ConnMaxLifetime)

	var access store.Access = store.NewSQL(db, logger)
	if cfg.Cache.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		access = store.NewCache(access, client, store.CacheConfig{
			Prefix: cfg.Cache.Prefix,
			TTL:    cfg.Cache.TTL,
		}, logger)
	}

	collector := metrics.NewCollector()
	engine := rules.NewEngine(logger)
	fk := store.NewForeignKeyManager(access, logger)
	monitor := integrity.NewMonitor(access, fk, engine, cfg.Integrity, logger, collector)

	sys := system.New(cfg, access, fk, engine, monitor, logger, collector)
	if err := sys.Initialize(); err != nil {
		db.Close()
		return nil, err
	}

	registerSchedules(monitor, cfg)

	return &app{cfg: cfg, db: db, system: sys, monitor: monitor, logger: logger}, nil
}

// registerSchedules loads the configured scheduled checks into the
// monitor's registry.
func registerSchedules(monitor *integrity.Monitor, cfg *config.Config) {
	for _, s := range cfg.Integrity.Schedules {
		var categories []integrity.Category
		for _, raw := range s.Categories {
			if c, ok := integrity.ParseCategory(raw); ok {
				categories = append(categories, c)
			}
		}
		_ = monitor.AddScheduledCheck(&integrity.ScheduledCheck{
			Name:     s.Name,
			CronExpr: s.Cron,
			Enabled:  true,
			Config: integrity.CheckConfig{
				Categories: categories,
				Tables:     s.Tables,
				BatchSize:  cfg.Integrity.BatchSize,
				MaxErrors:  cfg.Integrity.MaxErrors,
			},
		})
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}
