package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Database
		Global
		Import
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}
	Database struct {
		Path string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Import struct {
		// Enrichment settings shared by all jobs.
		EnrichTimeout   time.Duration // Per-lookup timeout (default: 10s)
		RateLimitCalls  int           // Provider calls allowed per window (default: 60)
		RateLimitWindow time.Duration // Rate limit window (default: 1m)

		// Ledger retention.
		RetentionHours  int    // Hours to keep terminal jobs (default: 720 = 30 days)
		CleanupSchedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8288)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 10)
	v.SetDefault("database_path", "./shelfmark.db")

	// Import defaults
	v.SetDefault("import_enrich_timeout", "10s")
	v.SetDefault("import_rate_limit_calls", 60)
	v.SetDefault("import_rate_limit_window", "1m")
	v.SetDefault("import_retention_hours", 720)
	v.SetDefault("import_cleanup_schedule", "0 3 * * *")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Import: Import{
			EnrichTimeout:   v.GetDuration("IMPORT_ENRICH_TIMEOUT"),
			RateLimitCalls:  v.GetInt("IMPORT_RATE_LIMIT_CALLS"),
			RateLimitWindow: v.GetDuration("IMPORT_RATE_LIMIT_WINDOW"),
			RetentionHours:  v.GetInt("IMPORT_RETENTION_HOURS"),
			CleanupSchedule: v.GetString("IMPORT_CLEANUP_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
	}
}
