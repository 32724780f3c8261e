package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	// AuthTokenSecret signs and verifies bearer tokens from the identity
	// provider. OrderWebhookSecret authorizes status updates pushed by the
	// payment processor; PaymentWebhookSecret verifies signed webhook events.
	AuthTokenSecret      string `env:"AUTH_TOKEN_SECRET,required" validate:"required,min=32"`
	OrderWebhookSecret   string `env:"ORDER_WEBHOOK_SECRET,required" validate:"required,min=16"`
	PaymentWebhookSecret string `env:"PAYMENT_WEBHOOK_SECRET,required" validate:"required"`

	// CatalogPath enables catalog re-pricing of order payloads when set.
	// The default (empty) trusts client-computed prices.
	CatalogPath string `env:"CATALOG_PATH"`

	// StrictStatusTransitions turns on the guarded transition table for
	// order status updates. Off by default: any status may move to any
	// other status.
	StrictStatusTransitions bool `env:"STRICT_STATUS_TRANSITIONS" envDefault:"false"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`

	EmailProvider string `env:"EMAIL_PROVIDER" envDefault:"log" validate:"omitempty,oneof=log resend"`
	EmailAPIKey   string `env:"EMAIL_API_KEY"`
	EmailFrom     string `env:"EMAIL_FROM" validate:"omitempty,email"`

	SentryDSN string `env:"SENTRY_DSN"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	if c.EmailProvider == "resend" {
		if strings.TrimSpace(c.EmailAPIKey) == "" {
			return fmt.Errorf("EMAIL_API_KEY is required when EMAIL_PROVIDER is resend")
		}
		if strings.TrimSpace(c.EmailFrom) == "" {
			return fmt.Errorf("EMAIL_FROM is required when EMAIL_PROVIDER is resend")
		}
	}

	if c.AuthTokenSecret == c.OrderWebhookSecret {
		return fmt.Errorf("AUTH_TOKEN_SECRET and ORDER_WEBHOOK_SECRET must differ")
	}

	return nil
}
