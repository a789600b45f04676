// Package config loads server configuration from the environment
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/KirkDiggler/tabletop-api/internal/errors"
)

// Config holds everything the server command needs to wire itself together
type Config struct {
	HTTPAddr string `env:"TABLETOP_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"TABLETOP_GRPC_HEALTH_ADDR" envDefault:":50051"`

	DatabasePath string `env:"TABLETOP_DB_PATH" envDefault:"tabletop.db"`

	RedisAddr     string `env:"TABLETOP_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisUseTLS   bool   `env:"TABLETOP_REDIS_TLS" envDefault:"false"`
	RedisPoolSize int    `env:"TABLETOP_REDIS_POOL_SIZE" envDefault:"10"`

	JWTSecret   string `env:"TABLETOP_JWT_SECRET"`
	JWTIssuer   string `env:"TABLETOP_JWT_ISSUER"`
	JWTAudience string `env:"TABLETOP_JWT_AUDIENCE"`

	// RulesetPath is optional; the built-in ruleset is used when empty
	RulesetPath string `env:"TABLETOP_RULESET_PATH"`

	LogLevel string `env:"TABLETOP_LOG_LEVEL" envDefault:"info"`

	SnapshotTTL    time.Duration `env:"TABLETOP_SNAPSHOT_TTL" envDefault:"10m"`
	RollSessionTTL time.Duration `env:"TABLETOP_ROLL_SESSION_TTL" envDefault:"30m"`
	PollInterval   time.Duration `env:"TABLETOP_POLL_INTERVAL" envDefault:"3s"`

	OTELEndpoint string `env:"TABLETOP_OTEL_ENDPOINT"`
	OTELEnabled  bool   `env:"TABLETOP_OTEL_ENABLED" envDefault:"true"`
}

// Load parses the environment into a Config
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate ensures the configuration can be used to start a server
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	errors.ValidateRequired("httpAddr", c.HTTPAddr, vb)
	errors.ValidateRequired("databasePath", c.DatabasePath, vb)
	errors.ValidateRequired("redisAddr", c.RedisAddr, vb)
	errors.ValidateRequired("jwtSecret", c.JWTSecret, vb)
	errors.ValidateEnum("logLevel", strings.ToLower(c.LogLevel), []string{"debug", "info", "warn", "error"}, vb)

	errors.ValidateRange("redisPoolSize", c.RedisPoolSize, 0, 1000, vb)
	if c.SnapshotTTL <= 0 {
		vb.Field("snapshotTTL", "must be positive")
	}
	if c.RollSessionTTL <= 0 {
		vb.Field("rollSessionTTL", "must be positive")
	}
	if c.PollInterval <= 0 {
		vb.Field("pollInterval", "must be positive")
	}

	return vb.Build()
}

// SlogLevel converts LogLevel into a slog.Level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
