package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL:          "postgres://localhost:5432/cartage",
		AuthTokenSecret:      strings.Repeat("a", 32),
		OrderWebhookSecret:   strings.Repeat("w", 16),
		PaymentWebhookSecret: "whsec_test",
		CacheProvider:        "memory",
		EmailProvider:        "log",
		LogFormat:            "text",
		Port:                 "8080",
	}
}

func TestValidateAuthTokenSecretLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{
			name:    "valid 32-byte secret",
			secret:  strings.Repeat("k", 32),
			wantErr: false,
		},
		{
			name:    "too short",
			secret:  "short",
			wantErr: true,
		},
		{
			name:    "empty",
			secret:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			cfg.AuthTokenSecret = tt.secret

			err := cfg.validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateCacheProvider(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.CacheProvider = "memcached"

	err := cfg.validate()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "CacheProvider") || !strings.Contains(err.Error(), "oneof") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateResendRequiresCredentials(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.EmailProvider = "resend"

	if err := cfg.validate(); err == nil {
		t.Fatalf("expected error for resend without api key")
	}

	cfg.EmailAPIKey = "re_test"
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected error for resend without from address")
	}

	cfg.EmailFrom = "orders@example.com"
	if err := cfg.validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsSharedSecrets(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.OrderWebhookSecret = cfg.AuthTokenSecret

	if err := cfg.validate(); err == nil {
		t.Fatalf("expected error when auth and webhook secrets match")
	}
}
