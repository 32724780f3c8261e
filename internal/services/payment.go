package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cartageapp/cartage/internal/apperr"
	"github.com/cartageapp/cartage/internal/models"
	"github.com/cartageapp/cartage/internal/observability"
)

type PaymentEventKind string

const (
	PaymentEventSucceeded PaymentEventKind = "succeeded"
	PaymentEventFailed    PaymentEventKind = "failed"
	PaymentEventRefunded  PaymentEventKind = "refunded"
)

// ApplyPaymentEvent reconciles a processor event with the order that
// carries the payment id. A successful payment also confirms an order
// still sitting in pending.
func (s *OrderService) ApplyPaymentEvent(ctx context.Context, kind PaymentEventKind, paymentID string) (*models.Order, error) {
	meter := observability.MeterFromContext(ctx)

	order, err := s.store.GetByPaymentID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "no order for payment id")
		}
		return nil, apperr.Wrap(apperr.KindStorage, "failed to load order by payment id", err)
	}

	patch := StatusPatchInput{}
	switch kind {
	case PaymentEventSucceeded:
		paid := models.PaymentPaid
		patch.PaymentStatus = &paid
		if order.Status == models.StatusPending {
			confirmed := models.StatusConfirmed
			patch.Status = &confirmed
		}
	case PaymentEventFailed:
		failed := models.PaymentFailed
		patch.PaymentStatus = &failed
	case PaymentEventRefunded:
		refunded := models.PaymentRefunded
		patch.PaymentStatus = &refunded
	default:
		return nil, apperr.New(apperr.KindInvalidInput, fmt.Sprintf("unknown payment event: %s", kind))
	}

	updated, err := s.UpdateStatus(ctx, Actor{Webhook: true}, order.ID, patch)
	if err != nil {
		return nil, err
	}

	meter.Count("order.payment_event.applied", 1)
	return updated, nil
}
