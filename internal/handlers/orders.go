package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/cartageapp/cartage/internal/apperr"
	"github.com/cartageapp/cartage/internal/auth"
	"github.com/cartageapp/cartage/internal/db"
	"github.com/cartageapp/cartage/internal/models"
	"github.com/cartageapp/cartage/internal/services"
)

// createOrderRequest mirrors the checkout payload. UserID is accepted for
// wire compatibility but never trusted; ownership comes from the bearer
// token.
type createOrderRequest struct {
	Items           []models.LineItem `json:"items"`
	TotalCents      int               `json:"total_cents"`
	ShippingAddress models.Address    `json:"shipping_address"`
	BillingAddress  *models.Address   `json:"billing_address"`
	PaymentMethod   string            `json:"payment_method"`
	PaymentID       string            `json:"payment_id"`
	PaymentStatus   string            `json:"payment_status"`
	UserID          string            `json:"user_id"`
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.orderService.CreateOrder(r.Context(), identityFromContext(r.Context()), services.CreateOrderInput{
		Items:           req.Items,
		TotalCents:      req.TotalCents,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentID:       req.PaymentID,
		PaymentStatus:   models.PaymentStatus(req.PaymentStatus),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDFromRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), identityFromContext(r.Context()), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *Handlers) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.ListMyOrders(r.Context(), identityFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if orders == nil {
		orders = []*models.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// ListOrders is the admin listing with optional status filter and paging.
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := db.ListFilter{Status: query.Get("status")}

	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			h.writeError(w, r, apperr.New(apperr.KindInvalidInput, "page must be a positive integer"))
			return
		}
		filter.Page = page
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			h.writeError(w, r, apperr.New(apperr.KindInvalidInput, "limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}

	orders, total, err := h.orderService.ListOrders(r.Context(), identityFromContext(r.Context()), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if orders == nil {
		orders = []*models.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"total":  total,
	})
}

type updateStatusRequest struct {
	Status            *models.OrderStatus   `json:"status"`
	PaymentStatus     *models.PaymentStatus `json:"payment_status"`
	TrackingNumber    *string               `json:"tracking_number"`
	Carrier           *string               `json:"carrier"`
	EstimatedDelivery *string               `json:"estimated_delivery"`
	Notes             *string               `json:"notes"`
}

// UpdateOrderStatus accepts either an admin bearer token or the payment
// processor's shared webhook secret.
func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDFromRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	actor := services.Actor{Identity: identityFromContext(r.Context())}
	if auth.SecretEqual(r.Header.Get("X-Webhook-Secret"), h.config.OrderWebhookSecret) {
		actor.Webhook = true
	}

	order, err := h.orderService.UpdateStatus(r.Context(), actor, orderID, services.StatusPatchInput{
		Status:            req.Status,
		PaymentStatus:     req.PaymentStatus,
		TrackingNumber:    req.TrackingNumber,
		Carrier:           req.Carrier,
		EstimatedDelivery: req.EstimatedDelivery,
		Notes:             req.Notes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func orderIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := mux.Vars(r)["id"]
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.New(apperr.KindInvalidInput, "order id must be a UUID")
	}
	return orderID, nil
}
