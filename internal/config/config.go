// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// InstrumentMode selects which payment instrument variant a deployment runs.
const (
	InstrumentModeBankAccount = "bank_account"
	InstrumentModeCreditCard  = "credit_card"
)

// Config is the full runtime configuration.
type Config struct {
	Server struct {
		Host            string        `env:"SERVER_HOST,default=0.0.0.0"`
		Port            int           `env:"SERVER_PORT,default=8080"`
		ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT,default=15s"`
		WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT,default=15s"`
		ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	}

	Database struct {
		DSN             string        `env:"DATABASE_URL"`
		MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS,default=20"`
		MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS,default=5"`
		ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME,default=30m"`
	}

	Auth struct {
		JWTSecret  string        `env:"JWT_SECRET,default=insecure-dev-secret"`
		AccessTTL  time.Duration `env:"AUTH_ACCESS_TTL,default=15m"`
		RefreshTTL time.Duration `env:"AUTH_REFRESH_TTL,default=168h"`
	}

	// Redis backs the token revocation store when configured; empty Addr
	// falls back to the in-process store.
	Redis struct {
		Addr     string `env:"REDIS_ADDR"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB,default=0"`
	}

	Logging struct {
		Level  string `env:"LOG_LEVEL,default=info"`
		Format string `env:"LOG_FORMAT,default=json"`
	}

	Instrument struct {
		Mode string `env:"INSTRUMENT_MODE,default=bank_account"`
	}

	// Classification optionally points at a YAML rule file overriding the
	// built-in status classification table.
	Classification struct {
		RulesPath string `env:"CLASSIFICATION_RULES_PATH"`
	}

	RateLimit struct {
		RequestsPerSecond int `env:"RATE_LIMIT_RPS,default=50"`
		Burst             int `env:"RATE_LIMIT_BURST,default=100"`
	}

	CORS struct {
		AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS,default=*"`
	}

	Fines struct {
		SweepSchedule string `env:"FINE_SWEEP_SCHEDULE,default=@hourly"`
	}

	// Audit optionally mirrors the in-memory request trail to a JSON-lines
	// file.
	Audit struct {
		LogFile string `env:"AUDIT_LOG_FILE"`
	}
}

// Load reads .env when present, then decodes the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	switch cfg.Instrument.Mode {
	case InstrumentModeBankAccount, InstrumentModeCreditCard:
	default:
		return nil, fmt.Errorf("INSTRUMENT_MODE must be %q or %q, got %q",
			InstrumentModeBankAccount, InstrumentModeCreditCard, cfg.Instrument.Mode)
	}

	return &cfg, nil
}
