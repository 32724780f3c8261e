package email

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// LogProvider writes notifications to the log instead of sending them.
// Used in development and as the default when no sender is configured.
type LogProvider struct {
	logger *slog.Logger
}

func NewLogProvider(logger *slog.Logger) *LogProvider {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogProvider{logger: logger}
}

func (p *LogProvider) SendEmail(ctx context.Context, email *Email) error {
	if email == nil {
		return fmt.Errorf("email is required")
	}
	p.logger.InfoContext(ctx, "email notification (log provider)",
		"to", email.To,
		"subject", email.Subject,
	)
	return nil
}
