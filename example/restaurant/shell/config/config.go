package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Engine selects the event store engine.
type Engine string

const (
	EngineMemory   Engine = "memory"
	EngineSQLite   Engine = "sqlite"
	EnginePostgres Engine = "postgres"
)

// Mode selects the runtime that handles commands.
type Mode string

const (
	ModeEventSourced Mode = "eventsourced"
	ModeStateStored  Mode = "statestored"
)

// PostgresDriver selects how the PostgreSQL engine connects.
type PostgresDriver string

const (
	DriverPGXPool PostgresDriver = "pgxpool"
	DriverSQLDB   PostgresDriver = "sqldb"
	DriverSQLX    PostgresDriver = "sqlx"
)

var (
	// ErrInvalidConfig is returned when the environment holds an invalid combination of values.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config is the configuration of the restaurant example.
type Config struct {
	Engine         Engine         `env:"RESTAURANT_ENGINE"           envDefault:"memory"`
	Mode           Mode           `env:"RESTAURANT_MODE"             envDefault:"eventsourced"`
	PostgresDSN    string         `env:"RESTAURANT_POSTGRES_DSN"`
	PostgresDriver PostgresDriver `env:"RESTAURANT_POSTGRES_DRIVER"  envDefault:"pgxpool"`
	SQLitePath     string         `env:"RESTAURANT_SQLITE_PATH"      envDefault:"restaurant.db"`
	MaxSagaDepth   int            `env:"RESTAURANT_MAX_SAGA_DEPTH"   envDefault:"8"`
	LogLevel       slog.Level     `env:"RESTAURANT_LOG_LEVEL"        envDefault:"INFO"`
	Telemetry      bool           `env:"RESTAURANT_TELEMETRY"        envDefault:"false"`
	Restaurants    int            `env:"RESTAURANT_DEMO_RESTAURANTS" envDefault:"4"`
	Pool           PoolConfig     `envPrefix:"RESTAURANT_POOL_"`
}

// PoolConfig sizes the PostgreSQL connection pool.
type PoolConfig struct {
	MaxConns        int           `env:"MAX_CONNS"         envDefault:"20"`
	MinConns        int           `env:"MIN_CONNS"         envDefault:"2"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"    envDefault:"5"`
	MaxConnLifetime time.Duration `env:"MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime time.Duration `env:"MAX_CONN_IDLE"     envDefault:"5m"`
	ConnectTimeout  time.Duration `env:"CONNECT_TIMEOUT"   envDefault:"5s"`
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	return cfg, cfg.Validate()
}

// LoadFrom reads the configuration from the given variables instead of the process environment.
func LoadFrom(environment map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the combination of values.
func (c Config) Validate() error {
	switch c.Engine {
	case EngineMemory:
	case EngineSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: RESTAURANT_SQLITE_PATH is required for the sqlite engine", ErrInvalidConfig)
		}
	case EnginePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: RESTAURANT_POSTGRES_DSN is required for the postgres engine", ErrInvalidConfig)
		}
		switch c.PostgresDriver {
		case DriverPGXPool, DriverSQLDB, DriverSQLX:
		default:
			return fmt.Errorf("%w: unknown postgres driver %q", ErrInvalidConfig, c.PostgresDriver)
		}
	default:
		return fmt.Errorf("%w: unknown engine %q", ErrInvalidConfig, c.Engine)
	}

	switch c.Mode {
	case ModeEventSourced, ModeStateStored:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}

	if c.MaxSagaDepth < 1 {
		return fmt.Errorf("%w: RESTAURANT_MAX_SAGA_DEPTH must be positive", ErrInvalidConfig)
	}

	if c.Restaurants < 1 {
		return fmt.Errorf("%w: RESTAURANT_DEMO_RESTAURANTS must be positive", ErrInvalidConfig)
	}

	return nil
}
