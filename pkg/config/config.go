package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the pipeline.
// Configuration comes from a YAML file with environment variable
// overrides. Environment variables always win for fields that support
// both. Secrets (the warehouse password) must only come from
// environment variables.
type Config struct {
	Env string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`

	// Schedule is an optional cron expression. When set, the process
	// stays up and runs the pipeline on that schedule; when empty, the
	// process performs a single ad-hoc run and exits.
	Schedule string `yaml:"schedule" env:"PIPELINE_SCHEDULE" env-default:""`

	// Warehouse configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Advisory data-quality thresholds; breaches are logged, never
	// block the run.
	Quality QualityConfig `yaml:"quality"`

	// Load phase tuning.
	Load LoadConfig `yaml:"load"`

	// DataSources maps source names to descriptors, in declaration
	// order. Sources are extracted strictly in this order.
	DataSources Sources `yaml:"data_sources"`
}

// DatabaseConfig holds PostgreSQL warehouse configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"warehouse"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"commerce_dw"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// QualityConfig holds advisory data-quality thresholds.
type QualityConfig struct {
	// MaxDuplicatePct is the duplicate-row percentage above which a
	// warning is logged for a source.
	MaxDuplicatePct float64 `yaml:"max_duplicate_pct" env:"QUALITY_MAX_DUPLICATE_PCT" env-default:"5"`
	// MaxNullPct is the per-column null percentage above which a
	// warning is logged for a source.
	MaxNullPct float64 `yaml:"max_null_pct" env:"QUALITY_MAX_NULL_PCT" env-default:"10"`
}

// LoadConfig holds load-phase tuning.
type LoadConfig struct {
	// BatchSize is the number of rows written to the warehouse per
	// bulk-insert chunk.
	BatchSize int `yaml:"batch_size" env:"LOAD_BATCH_SIZE" env-default:"10000"`
}

// Load reads configuration from the given YAML file with environment
// variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
