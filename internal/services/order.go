package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cartageapp/cartage/internal/apperr"
	"github.com/cartageapp/cartage/internal/auth"
	"github.com/cartageapp/cartage/internal/db"
	"github.com/cartageapp/cartage/internal/logging"
	"github.com/cartageapp/cartage/internal/models"
	"github.com/cartageapp/cartage/internal/observability"
)

// OrderStore is the persistence contract for orders. *db.OrderStore is
// the production implementation.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetByIDForUser(ctx context.Context, orderID uuid.UUID, userID string) (*models.Order, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Order, error)
	List(ctx context.Context, filter db.ListFilter) ([]*models.Order, int, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, patch db.StatusPatch) (*models.Order, error)
	CustomerSummary(ctx context.Context, userID string) (*models.CustomerSummary, error)
}

// PriceValidator re-prices order items against the catalog. Nil means
// client-computed prices are trusted as given.
type PriceValidator interface {
	ValidateItems(items []models.LineItem) error
}

// StatusNotifier delivers best-effort status-change notifications.
type StatusNotifier interface {
	NotifyStatusChange(ctx context.Context, order *models.Order) error
}

type noopStatusNotifier struct{}

func (noopStatusNotifier) NotifyStatusChange(context.Context, *models.Order) error { return nil }

type OrderService struct {
	store             OrderStore
	priceValidator    PriceValidator
	notifier          StatusNotifier
	strictTransitions bool
	logger            *slog.Logger
}

func NewOrderService(store OrderStore, priceValidator PriceValidator, notifier StatusNotifier, strictTransitions bool, logger *slog.Logger) *OrderService {
	if notifier == nil {
		notifier = noopStatusNotifier{}
	}

	return &OrderService{
		store:             store,
		priceValidator:    priceValidator,
		notifier:          notifier,
		strictTransitions: strictTransitions,
		logger:            logger,
	}
}

func (s *OrderService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// Actor is the authorization context for order mutations: either an
// authenticated identity or the payment processor's webhook credential.
type Actor struct {
	Identity *auth.Identity
	Webhook  bool
}

func (a Actor) authenticated() bool {
	return a.Webhook || (a.Identity != nil && a.Identity.UserID != "")
}

func (a Actor) canManageOrders() bool {
	return a.Webhook || a.Identity.IsAdmin()
}

type CreateOrderInput struct {
	Items           []models.LineItem
	TotalCents      int
	ShippingAddress models.Address
	BillingAddress  *models.Address
	PaymentMethod   string
	PaymentID       string
	PaymentStatus   models.PaymentStatus
}

// CreateOrder validates the payment gate and persists a new order owned
// by caller. The payload's notion of ownership is never consulted: the
// order belongs to the authenticated caller, full stop.
func (s *OrderService) CreateOrder(ctx context.Context, caller *auth.Identity, input CreateOrderInput) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.create",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("CreateOrder"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)
	meter.Count("order.create.received", 1)
	recordRejected := func(reason string) {
		meter.Count("order.create.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}

	if caller == nil || strings.TrimSpace(caller.UserID) == "" {
		recordRejected("unauthenticated")
		return nil, apperr.New(apperr.KindUnauthorized, "authentication required")
	}

	if err := validateCreateInput(input); err != nil {
		recordRejected("invalid_payload")
		return nil, err
	}

	// The payment gate: an order never exists without payment evidence,
	// either a processor payment id or an explicit paid flag.
	if strings.TrimSpace(input.PaymentID) == "" && input.PaymentStatus != models.PaymentPaid {
		recordRejected("payment_required")
		return nil, apperr.New(apperr.KindPaymentRequired, "order requires payment evidence")
	}

	if s.priceValidator != nil {
		if err := s.priceValidator.ValidateItems(input.Items); err != nil {
			recordRejected("price_mismatch")
			return nil, apperr.Wrap(apperr.KindInvalidInput, "order items disagree with catalog", err)
		}
	}

	paymentStatus := input.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = models.PaymentPaid
	}

	order := &models.Order{
		ID:              uuid.New(),
		UserID:          caller.UserID,
		Items:           input.Items,
		TotalCents:      input.TotalCents,
		Status:          models.StatusConfirmed,
		PaymentStatus:   paymentStatus,
		PaymentMethod:   strings.TrimSpace(input.PaymentMethod),
		PaymentID:       strings.TrimSpace(input.PaymentID),
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  input.BillingAddress,
	}

	if err := s.store.Create(ctx, order); err != nil {
		meter.Count("order.create.failed", 1)
		return nil, apperr.Wrap(apperr.KindStorage, "failed to persist order", err)
	}

	meter.Count("order.created", 1)
	s.loggerFromContext(ctx).Info("order created",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"user_id", order.UserID,
	)
	return order, nil
}

func validateCreateInput(input CreateOrderInput) error {
	if len(input.Items) == 0 {
		return apperr.New(apperr.KindInvalidInput, "order has no items")
	}
	for i, item := range input.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return apperr.New(apperr.KindInvalidInput, fmt.Sprintf("item %d has no product id", i))
		}
		if item.Quantity <= 0 {
			return apperr.New(apperr.KindInvalidInput, fmt.Sprintf("item %d has non-positive quantity", i))
		}
		if item.UnitPriceCents < 0 {
			return apperr.New(apperr.KindInvalidInput, fmt.Sprintf("item %d has negative unit price", i))
		}
	}
	if input.TotalCents < 0 {
		return apperr.New(apperr.KindInvalidInput, "total amount is negative")
	}
	if err := validateAddress(input.ShippingAddress); err != nil {
		return err
	}
	if input.PaymentStatus != "" && !input.PaymentStatus.Valid() {
		return apperr.New(apperr.KindInvalidInput, fmt.Sprintf("unknown payment status: %s", input.PaymentStatus))
	}
	return nil
}

func validateAddress(addr models.Address) error {
	switch {
	case strings.TrimSpace(addr.Line1) == "":
		return apperr.New(apperr.KindInvalidInput, "shipping address line1 is required")
	case strings.TrimSpace(addr.City) == "":
		return apperr.New(apperr.KindInvalidInput, "shipping address city is required")
	case strings.TrimSpace(addr.PostalCode) == "":
		return apperr.New(apperr.KindInvalidInput, "shipping address postal code is required")
	case strings.TrimSpace(addr.Country) == "":
		return apperr.New(apperr.KindInvalidInput, "shipping address country is required")
	default:
		return nil
	}
}

// StatusPatchInput is the caller-facing partial update. EstimatedDelivery
// accepts RFC 3339 or a bare date and is normalized to a timestamp.
// Carrier normalizes known carriers to display names; an explicit empty
// string clears the stored carrier.
type StatusPatchInput struct {
	Status            *models.OrderStatus
	PaymentStatus     *models.PaymentStatus
	TrackingNumber    *string
	Carrier           *string
	EstimatedDelivery *string
	Notes             *string
}

// UpdateStatus applies a partial patch to an order. Any status may move
// to any other status unless strict transitions are enabled.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input StatusPatchInput) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.update_status",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("UpdateStatus"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)
	meter.Count("order.status_update.received", 1)

	if !actor.authenticated() {
		return nil, apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	if !actor.canManageOrders() {
		meter.Count("order.status_update.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", "forbidden"),
		))
		return nil, apperr.New(apperr.KindForbidden, "admin or webhook credential required")
	}

	patch, err := buildStatusPatch(input)
	if err != nil {
		meter.Count("order.status_update.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", "invalid_patch"),
		))
		return nil, err
	}

	trackingChanged := input.TrackingNumber != nil || patch.Carrier != nil
	needsCurrent := s.strictTransitions && patch.Status != nil
	if trackingChanged && (input.TrackingNumber == nil || patch.Carrier == nil) {
		needsCurrent = true
	}

	var current *models.Order
	if needsCurrent {
		current, err = s.store.GetByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperr.New(apperr.KindNotFound, "order not found")
			}
			return nil, apperr.Wrap(apperr.KindStorage, "failed to load order", err)
		}
	}

	if s.strictTransitions && patch.Status != nil {
		if !transitionAllowed(current.Status, *patch.Status) {
			meter.Count("order.status_update.rejected", 1, sentry.WithAttributes(
				attribute.String("reason", "invalid_transition"),
			))
			return nil, apperr.New(apperr.KindConflict,
				fmt.Sprintf("cannot move order from %s to %s", current.Status, *patch.Status))
		}
	}

	// The tracking link is re-derived whenever carrier or tracking number
	// changes so it never points at a stale number.
	if trackingChanged {
		carrier := ""
		if patch.Carrier != nil {
			carrier = *patch.Carrier
		} else if current != nil {
			carrier = current.Carrier
		}
		number := ""
		if input.TrackingNumber != nil {
			number = *input.TrackingNumber
		} else if current != nil {
			number = current.TrackingNumber
		}
		url := BuildTrackingURL(carrier, number)
		patch.TrackingURL = &url
	}

	updated, err := s.store.UpdateStatus(ctx, orderID, patch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "order not found")
		}
		meter.Count("order.status_update.failed", 1)
		return nil, apperr.Wrap(apperr.KindStorage, "failed to update order", err)
	}

	meter.Count("order.status_updated", 1)
	if input.Status != nil {
		s.notifyStatusChange(ctx, updated)
	}
	return updated, nil
}

func buildStatusPatch(input StatusPatchInput) (db.StatusPatch, error) {
	patch := db.StatusPatch{
		TrackingNumber: input.TrackingNumber,
		Notes:          input.Notes,
	}

	if input.Status != nil {
		if !input.Status.Valid() {
			return patch, apperr.New(apperr.KindInvalidInput, fmt.Sprintf("unknown order status: %s", *input.Status))
		}
		patch.Status = input.Status
	}
	if input.PaymentStatus != nil {
		if !input.PaymentStatus.Valid() {
			return patch, apperr.New(apperr.KindInvalidInput, fmt.Sprintf("unknown payment status: %s", *input.PaymentStatus))
		}
		patch.PaymentStatus = input.PaymentStatus
	}
	if input.Carrier != nil {
		carrier := NormalizeCarrierName(*input.Carrier)
		patch.Carrier = &carrier
	}
	if input.EstimatedDelivery != nil {
		delivery, err := parseDeliveryEstimate(*input.EstimatedDelivery)
		if err != nil {
			return patch, apperr.Wrap(apperr.KindInvalidInput, "invalid estimated delivery date", err)
		}
		patch.EstimatedDelivery = &delivery
	}

	return patch, nil
}

func parseDeliveryEstimate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// transitionAllowed is the opt-in guarded table. Re-asserting the current
// status is always allowed.
func transitionAllowed(from, to models.OrderStatus) bool {
	if from == to {
		return true
	}
	allowed, ok := statusTransitions[from]
	if !ok {
		return false
	}
	for _, next := range allowed {
		if next == to {
			return true
		}
	}
	return false
}

var statusTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPending:    {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed:  {models.StatusProcessing, models.StatusCancelled},
	models.StatusProcessing: {models.StatusShipped, models.StatusCancelled},
	models.StatusShipped:    {models.StatusDelivered},
	models.StatusDelivered:  {},
	models.StatusCancelled:  {},
}

func (s *OrderService) notifyStatusChange(ctx context.Context, order *models.Order) {
	logger := s.loggerFromContext(ctx)

	if order.Customer == nil {
		summary, err := s.store.CustomerSummary(ctx, order.UserID)
		if err != nil {
			logger.Warn("failed to load customer for notification", "error", err, "order_id", order.ID)
			return
		}
		order.Customer = summary
	}

	if err := s.notifier.NotifyStatusChange(ctx, order); err != nil {
		logger.Warn("failed to send status notification", "error", err, "order_id", order.ID, "status", order.Status)
	}
}

// GetOrder returns one order. Non-admin callers only see their own; a
// foreign order id reads as not found so existence is never confirmed.
func (s *OrderService) GetOrder(ctx context.Context, caller *auth.Identity, orderID uuid.UUID) (*models.Order, error) {
	if caller == nil || strings.TrimSpace(caller.UserID) == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "authentication required")
	}

	var (
		order *models.Order
		err   error
	)
	if caller.IsAdmin() {
		order, err = s.store.GetByID(ctx, orderID)
	} else {
		order, err = s.store.GetByIDForUser(ctx, orderID, caller.UserID)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "order not found")
		}
		return nil, apperr.Wrap(apperr.KindStorage, "failed to load order", err)
	}
	return order, nil
}

// ListMyOrders returns the caller's own orders, newest first.
func (s *OrderService) ListMyOrders(ctx context.Context, caller *auth.Identity) ([]*models.Order, error) {
	if caller == nil || strings.TrimSpace(caller.UserID) == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "authentication required")
	}

	orders, err := s.store.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "failed to list orders", err)
	}
	return orders, nil
}

// ListOrders is the admin listing: optional status filter, pagination,
// joined customer summaries.
func (s *OrderService) ListOrders(ctx context.Context, caller *auth.Identity, filter db.ListFilter) ([]*models.Order, int, error) {
	if caller == nil || strings.TrimSpace(caller.UserID) == "" {
		return nil, 0, apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	if !caller.IsAdmin() {
		return nil, 0, apperr.New(apperr.KindForbidden, "admin credential required")
	}
	if filter.Status != "" && !models.OrderStatus(filter.Status).Valid() {
		return nil, 0, apperr.New(apperr.KindInvalidInput, fmt.Sprintf("unknown order status: %s", filter.Status))
	}

	orders, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindStorage, "failed to list orders", err)
	}
	return orders, total, nil
}
