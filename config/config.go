package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	// used only when JWT_SECRET is missing outside production
	devJWTSecret = "dev-only-insecure-jwt-secret"
)

type Config struct {
	AppEnv     string `env:"APP_ENV" env-default:"development"`
	Port       string `env:"PORT" env-default:"8080"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info"`
	CORSOrigin string `env:"CORS_ORIGIN" env-default:"http://localhost:3000"`

	DatabaseURL string `env:"DB_URL"`

	JWTSecret    string `env:"JWT_SECRET"`
	JWTExpiresIn string `env:"JWT_EXPIRES_IN" env-default:"7d"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	StripePriceID       string `env:"STRIPE_PRICE_ID"`

	RedisURL         string        `env:"REDIS_URL"`
	WebhookDedupeTTL time.Duration `env:"WEBHOOK_DEDUPE_TTL" env-default:"72h"`

	GoogleClientID         string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret     string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL      string `env:"GOOGLE_REDIRECT_URL"`
	GoogleFrontendRedirect string `env:"GOOGLE_FRONTEND_REDIRECT"`

	// TokenTTL is parsed from JWTExpiresIn by Load.
	TokenTTL time.Duration
}

// Load reads an optional .env file and then the process environment.
// The returned warnings list every setting that was degraded to a development fallback.
func Load() (*Config, []string, error) {
	// a missing .env is fine, the process environment still applies
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, nil, fmt.Errorf("config.Load: %w", err)
	}

	warnings, err := cfg.Validate()
	if err != nil {
		return nil, nil, err
	}
	return &cfg, warnings, nil
}

// Validate parses derived values and applies the environment policy:
// production aborts on missing critical settings, anything else degrades.
func (c *Config) Validate() ([]string, error) {
	c.AppEnv = strings.ToLower(strings.TrimSpace(c.AppEnv))
	if c.AppEnv == "" {
		c.AppEnv = EnvDevelopment
	}

	ttl, err := ParseExpiry(c.JWTExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("config: JWT_EXPIRES_IN: %w", err)
	}
	c.TokenTTL = ttl

	missing := c.missingCritical()
	if c.IsProduction() && len(missing) > 0 {
		return nil, fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}

	var warnings []string
	if c.DatabaseURL == "" {
		warnings = append(warnings, "DB_URL not set: using in-memory user store, data is lost on restart")
	}
	if c.JWTSecret == "" {
		c.JWTSecret = devJWTSecret
		warnings = append(warnings, "JWT_SECRET not set: using insecure development secret")
	}
	if !c.PaymentsEnabled() {
		warnings = append(warnings, "STRIPE_SECRET_KEY/STRIPE_WEBHOOK_SECRET not set: payments run in mock mode")
	}
	return warnings, nil
}

func (c *Config) missingCritical() []string {
	var missing []string
	for _, kv := range []struct{ key, value string }{
		{"DB_URL", c.DatabaseURL},
		{"JWT_SECRET", c.JWTSecret},
		{"STRIPE_SECRET_KEY", c.StripeSecretKey},
		{"STRIPE_WEBHOOK_SECRET", c.StripeWebhookSecret},
	} {
		if strings.TrimSpace(kv.value) == "" {
			missing = append(missing, kv.key)
		}
	}
	return missing
}

func (c *Config) IsProduction() bool { return c.AppEnv == EnvProduction }
func (c *Config) IsDevelopment() bool { return c.AppEnv == EnvDevelopment }

func (c *Config) PaymentsEnabled() bool {
	return c.StripeSecretKey != "" && c.StripeWebhookSecret != ""
}

func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// ParseExpiry accepts Go durations ("12h", "90m") plus a day suffix ("7d").
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 7 * 24 * time.Hour, nil
	}
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		if days <= 0 {
			return 0, errors.New("expiry must be positive")
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("expiry must be positive")
	}
	return d, nil
}
