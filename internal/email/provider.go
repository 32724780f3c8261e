// Package email provides the notification sender interface.
package email

import (
	"context"
	"fmt"
	"log/slog"
)

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
}

type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Config struct {
	Provider string
	APIKey   string
	From     string
}

func NewProvider(cfg Config, logger *slog.Logger) (Provider, error) {
	switch cfg.Provider {
	case "resend":
		return NewResendProvider(cfg.APIKey, cfg.From), nil
	case "log", "":
		return NewLogProvider(logger), nil
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be either 'resend' or 'log'")
	}
}
