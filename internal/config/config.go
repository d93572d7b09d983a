// internal/config/config.go
//
// Process configuration read from the environment (and an optional .env file).

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds every tunable of the server.
type Config struct {
	Port            string        `env:"PORT"             envDefault:"5175"`
	LogLevel        string        `env:"LOG_LEVEL"        envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT"       envDefault:"json"`
	ClientOrigin    string        `env:"CLIENT_ORIGIN"    envDefault:"http://localhost:5173"`
	CookieSecure    bool          `env:"COOKIE_SECURE"    envDefault:"false"`
	JWTSecret       string        `env:"JWT_SECRET"       envDefault:"dev_secret_change_me"`
	SessionTTL      time.Duration `env:"SESSION_TTL"      envDefault:"24h"`
	JournalDSN      string        `env:"JOURNAL_DSN"      envDefault:"file:rps_journal?mode=memory&cache=shared"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT"  envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads .env (if present) and parses the environment into a Config.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse parses the current environment into a Config and validates it.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}
	switch cfg.LogFormat {
	case "json", "console":
	default:
		return Config{}, fmt.Errorf("invalid LOG_FORMAT %q", cfg.LogFormat)
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	return cfg, nil
}

// Level returns the configured zerolog level.
func (c Config) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// Addr returns the listen address for Port.
func (c Config) Addr() string { return ":" + c.Port }
