package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/cartageapp/cartage/internal/apperr"
	"github.com/cartageapp/cartage/internal/logging"
	"github.com/cartageapp/cartage/internal/observability"
	"github.com/cartageapp/cartage/internal/services"
)

// PaymentEventRouter dispatches verified processor events to the order
// service.
type PaymentEventRouter struct {
	service *services.OrderService
	logger  *slog.Logger
}

func NewPaymentEventRouter(service *services.OrderService, logger *slog.Logger) *PaymentEventRouter {
	return &PaymentEventRouter{
		service: service,
		logger:  logger,
	}
}

func (r *PaymentEventRouter) Handle(ctx context.Context, event *stripeapi.Event) error {
	span := sentry.StartSpan(
		ctx,
		"handler.payment_router.handle",
		sentry.WithOpName("handler.payment_router"),
		sentry.WithDescription("PaymentEventRouter.Handle"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("webhook.provider", "payment"))
	meter.Count("webhook.router.received", 1)
	recordFailed := func(reason string) {
		meter.Count("webhook.router.failed", 1, sentry.WithAttributes(attribute.String("reason", reason)))
	}

	if event == nil {
		recordFailed("missing_event")
		return fmt.Errorf("missing payment event")
	}
	if event.Data == nil {
		recordFailed("missing_event_data")
		return fmt.Errorf("missing payment event data")
	}
	meter.SetAttributes(attribute.String("webhook.event_type", string(event.Type)))

	logger := logging.FromContext(ctx, r.logger)

	var kind services.PaymentEventKind
	var paymentID string
	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var intent stripeapi.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			recordFailed("bad_payment_intent_payload")
			return fmt.Errorf("failed to decode payment intent: %w", err)
		}
		paymentID = intent.ID
		kind = services.PaymentEventSucceeded
		if event.Type == "payment_intent.payment_failed" {
			kind = services.PaymentEventFailed
		}
	case "charge.refunded":
		var charge stripeapi.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			recordFailed("bad_charge_payload")
			return fmt.Errorf("failed to decode charge: %w", err)
		}
		if charge.PaymentIntent != nil {
			paymentID = charge.PaymentIntent.ID
		}
		kind = services.PaymentEventRefunded
	default:
		logger.Info("unhandled payment event type", "type", event.Type)
		meter.Count("webhook.router.unhandled", 1)
		span.Status = sentry.SpanStatusOK
		return nil
	}

	if paymentID == "" {
		recordFailed("missing_payment_id")
		return fmt.Errorf("payment event %s carries no payment id", event.Type)
	}

	if _, err := r.service.ApplyPaymentEvent(ctx, kind, paymentID); err != nil {
		// An event for a payment we never recorded is not retriable.
		if apperr.IsKind(err, apperr.KindNotFound) {
			logger.Warn("payment event matched no order", "payment_id", paymentID, "type", event.Type)
			meter.Count("webhook.router.unmatched", 1)
			span.Status = sentry.SpanStatusOK
			return nil
		}
		recordFailed("apply_payment_event_failed")
		return err
	}

	meter.Count("webhook.router.processed", 1)
	span.Status = sentry.SpanStatusOK
	return nil
}
