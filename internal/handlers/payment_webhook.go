package handlers

import (
	"net/http"
	"time"

	"github.com/cartageapp/cartage/internal/cache"
	"github.com/cartageapp/cartage/internal/payments"
)

// paymentWebhookIdempotencyTTL is how long webhook event IDs are kept for
// deduplication.
const paymentWebhookIdempotencyTTL = 24 * time.Hour

func (h *Handlers) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)

	event, err := payments.ReadEvent(r, h.config.PaymentWebhookSecret)
	if err != nil {
		logger.Error("failed to read payment webhook payload", "error", err)
		http.Error(w, "Invalid webhook", http.StatusBadRequest)
		return
	}

	if event == nil || event.ID == "" {
		logger.Error("missing payment event ID")
		http.Error(w, "Missing event ID", http.StatusBadRequest)
		return
	}

	cacheKey := cache.WebhookKey("payment", event.ID)
	_, err = h.cacheProvider.Get(ctx, cacheKey)
	if err == nil {
		logger.Info("webhook already processed", "event_id", event.ID)
		w.WriteHeader(http.StatusOK)
		return
	}

	processErr := h.paymentRouter.Handle(ctx, event)
	if processErr == nil {
		if err := h.cacheProvider.Set(ctx, cacheKey, "processed", paymentWebhookIdempotencyTTL); err != nil {
			logger.Error("failed to mark webhook as processed in cache", "error", err)
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	logger.Error("failed to process payment webhook", "error", processErr, "type", event.Type)
	http.Error(w, "Processing failed", http.StatusInternalServerError)
}
