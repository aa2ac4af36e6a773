package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/draftlock/internal/observability"
	"github.com/davidbz/draftlock/internal/pricing"
	"github.com/davidbz/draftlock/internal/provider/echo"
	"github.com/davidbz/draftlock/internal/provider/openai"
	"github.com/davidbz/draftlock/internal/provider/registry"
	"github.com/davidbz/draftlock/internal/secrets"
	"github.com/davidbz/draftlock/internal/storage"
	"github.com/davidbz/draftlock/internal/templates"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Estimate  EstimateConfig
	Log       observability.Config
	LLM       registry.Config
	OpenAI    openai.Config
	Echo      echo.Config
	Secrets   secrets.Config
	Storage   storage.Config
	Pricing   pricing.Config
	Templates templates.Config
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"30"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// RateLimitConfig caps requests per client. A zero rate disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `env:"RATE_LIMIT_RPS"   envDefault:"20"`
	Burst             int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
}

// EstimateConfig tunes the live estimate.
type EstimateConfig struct {
	// Debounce is the quiet period before a token count query is issued.
	Debounce time.Duration `env:"ESTIMATE_DEBOUNCE" envDefault:"350ms"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*RateLimitConfig
	*EstimateConfig
	*observability.Config
	*registry.Config
	*openai.Config
	*echo.Config
	*secrets.Config
	*storage.Config
	*pricing.Config
	*templates.Config
}

// Load loads environment files and parses configuration.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.RateLimit,
		&cfg.Estimate,
		&cfg.Log,
		&cfg.LLM,
		&cfg.OpenAI,
		&cfg.Echo,
		&cfg.Secrets,
		&cfg.Storage,
		&cfg.Pricing,
		&cfg.Templates,
	}
}
