package services

import (
	"context"
	"fmt"

	"github.com/cartageapp/cartage/internal/email"
	"github.com/cartageapp/cartage/internal/models"
)

// EmailStatusNotifier sends a status-change email through the configured
// provider. Statuses without a template are silently skipped.
type EmailStatusNotifier struct {
	provider email.Provider
}

func NewEmailStatusNotifier(provider email.Provider) *EmailStatusNotifier {
	return &EmailStatusNotifier{provider: provider}
}

func (n *EmailStatusNotifier) NotifyStatusChange(ctx context.Context, order *models.Order) error {
	if n.provider == nil {
		return fmt.Errorf("email provider not configured")
	}

	msg, ok := email.StatusEmail(order)
	if !ok {
		return nil
	}
	if err := n.provider.SendEmail(ctx, msg); err != nil {
		return fmt.Errorf("failed to send status email: %w", err)
	}
	return nil
}
