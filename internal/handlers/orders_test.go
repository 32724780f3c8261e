package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"

	"github.com/cartageapp/cartage/internal/auth"
	"github.com/cartageapp/cartage/internal/config"
	"github.com/cartageapp/cartage/internal/db"
	"github.com/cartageapp/cartage/internal/models"
	"github.com/cartageapp/cartage/internal/services"
)

type fakeOrderStore struct {
	orders  map[uuid.UUID]*models.Order
	seq     int
	updates int

	paymentLookupErr error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[uuid.UUID]*models.Order)}
}

func (f *fakeOrderStore) Create(_ context.Context, order *models.Order) error {
	f.seq++
	order.OrderNumber = fmt.Sprintf("ORD-%06d", 100000+f.seq)
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt
	stored := *order
	f.orders[order.ID] = &stored
	return nil
}

func (f *fakeOrderStore) GetByID(_ context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrderStore) GetByIDForUser(_ context.Context, orderID uuid.UUID, userID string) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok || order.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrderStore) GetByPaymentID(_ context.Context, paymentID string) (*models.Order, error) {
	if f.paymentLookupErr != nil {
		return nil, f.paymentLookupErr
	}
	for _, order := range f.orders {
		if order.PaymentID == paymentID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeOrderStore) ListByUser(_ context.Context, userID string) ([]*models.Order, error) {
	var out []*models.Order
	for _, order := range f.orders {
		if order.UserID == userID {
			copied := *order
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) List(_ context.Context, filter db.ListFilter) ([]*models.Order, int, error) {
	var out []*models.Order
	for _, order := range f.orders {
		if filter.Status != "" && string(order.Status) != filter.Status {
			continue
		}
		copied := *order
		out = append(out, &copied)
	}
	return out, len(out), nil
}

func (f *fakeOrderStore) UpdateStatus(_ context.Context, orderID uuid.UUID, patch db.StatusPatch) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	f.updates++
	if patch.Status != nil {
		order.Status = *patch.Status
	}
	if patch.PaymentStatus != nil {
		order.PaymentStatus = *patch.PaymentStatus
	}
	if patch.TrackingNumber != nil {
		order.TrackingNumber = *patch.TrackingNumber
	}
	if patch.TrackingURL != nil {
		order.TrackingURL = *patch.TrackingURL
	}
	if patch.Carrier != nil {
		order.Carrier = *patch.Carrier
	}
	if patch.Notes != nil {
		order.Notes = *patch.Notes
	}
	if patch.EstimatedDelivery != nil {
		delivery := *patch.EstimatedDelivery
		order.EstimatedDelivery = &delivery
	}
	order.UpdatedAt = time.Now().UTC()
	copied := *order
	return &copied, nil
}

func (f *fakeOrderStore) CustomerSummary(context.Context, string) (*models.CustomerSummary, error) {
	return nil, nil
}

const testWebhookSecret = "whse_orders_shared_secret"

func newTestHandlers(t *testing.T, store services.OrderStore) (*Handlers, *auth.TokenVerifier) {
	t.Helper()

	verifier, err := auth.NewTokenVerifier("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("NewTokenVerifier: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Handlers{
		config: &config.Config{
			OrderWebhookSecret: testWebhookSecret,
		},
		orderService:  services.NewOrderService(store, nil, nil, false, logger),
		tokenVerifier: verifier,
		logger:        logger,
	}, verifier
}

func bearerToken(t *testing.T, verifier *auth.TokenVerifier, userID string, role auth.Role) string {
	t.Helper()
	token, err := verifier.Issue(&auth.Identity{UserID: userID, Role: role}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return "Bearer " + token
}

func createOrderBody() string {
	return `{
		"items": [{"product_id": "tee-classic", "unit_price_cents": 2600, "quantity": 2}],
		"total_cents": 5200,
		"payment_id": "pi_123",
		"shipping_address": {"line1": "1 Main St", "city": "Springfield", "postal_code": "12345", "country": "US"}
	}`
}

func doRequest(h *Handlers, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/orders":
			h.CreateOrder(w, r)
		case r.Method == http.MethodGet && r.URL.Path == "/orders/mine":
			h.ListMyOrders(w, r)
		case r.Method == http.MethodGet && r.URL.Path == "/orders":
			h.ListOrders(w, r)
		case r.Method == http.MethodGet:
			h.GetOrder(w, r)
		case r.Method == http.MethodPut:
			h.UpdateOrderStatus(w, r)
		default:
			http.NotFound(w, r)
		}
	})).ServeHTTP(rec, req)
	return rec
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body.Error.Kind
}

func TestCreateOrderEndpoint(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	h, verifier := newTestHandlers(t, store)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(createOrderBody()))
	req.Header.Set("Authorization", bearerToken(t, verifier, "alice", auth.RoleCustomer))
	rec := doRequest(h, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}

	var order models.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.UserID != "alice" {
		t.Fatalf("user id = %q, want alice", order.UserID)
	}
	if order.Status != models.StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", order.Status)
	}
}

func TestCreateOrderEndpoint_OwnershipFromToken(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	h, verifier := newTestHandlers(t, store)

	// A payload claiming someone else's user id is accepted but ignored.
	body := strings.Replace(createOrderBody(), `"total_cents": 5200,`, `"total_cents": 5200, "user_id": "mallory",`, 1)
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, verifier, "alice", auth.RoleCustomer))
	rec := doRequest(h, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
	var order models.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.UserID != "alice" {
		t.Fatalf("user id = %q, want alice", order.UserID)
	}
}

func TestCreateOrderEndpoint_Unauthenticated(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers(t, newFakeOrderStore())

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(createOrderBody()))
	rec := doRequest(h, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if kind := errorKind(t, rec); kind != "unauthorized" {
		t.Fatalf("kind = %q, want unauthorized", kind)
	}
}

func TestCreateOrderEndpoint_InvalidToken(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers(t, newFakeOrderStore())

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(createOrderBody()))
	req.Header.Set("Authorization", "Bearer garbage")
	rec := doRequest(h, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCreateOrderEndpoint_PaymentRequired(t *testing.T) {
	t.Parallel()

	h, verifier := newTestHandlers(t, newFakeOrderStore())

	body := strings.Replace(createOrderBody(), `"payment_id": "pi_123",`, "", 1)
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, verifier, "alice", auth.RoleCustomer))
	rec := doRequest(h, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (%s)", rec.Code, rec.Body.String())
	}
	if kind := errorKind(t, rec); kind != "payment_required" {
		t.Fatalf("kind = %q, want payment_required", kind)
	}
}

func TestCreateOrderEndpoint_UnknownField(t *testing.T) {
	t.Parallel()

	h, verifier := newTestHandlers(t, newFakeOrderStore())

	body := strings.Replace(createOrderBody(), `"total_cents": 5200,`, `"total_cents": 5200, "gift_wrap": true,`, 1)
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, verifier, "alice", auth.RoleCustomer))
	rec := doRequest(h, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (%s)", rec.Code, rec.Body.String())
	}
	if kind := errorKind(t, rec); kind != "invalid_input" {
		t.Fatalf("kind = %q, want invalid_input", kind)
	}
}

func seedOrder(t *testing.T, h *Handlers, verifier *auth.TokenVerifier, userID string) *models.Order {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(createOrderBody()))
	req.Header.Set("Authorization", bearerToken(t, verifier, userID, auth.RoleCustomer))
	rec := doRequest(h, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed order: status = %d (%s)", rec.Code, rec.Body.String())
	}

	var order models.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode seeded order: %v", err)
	}
	return &order
}

func TestGetOrderEndpoint_CrossUserReadsAsNotFound(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	h, verifier := newTestHandlers(t, store)
	order := seedOrder(t, h, verifier, "alice")

	req := httptest.NewRequest(http.MethodGet, "/orders/"+order.ID.String(), nil)
	req = mux.SetURLVars(req, map[string]string{"id": order.ID.String()})
	req.Header.Set("Authorization", bearerToken(t, verifier, "mallory", auth.RoleCustomer))
	rec := doRequest(h, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (%s)", rec.Code, rec.Body.String())
	}
	if kind := errorKind(t, rec); kind != "not_found" {
		t.Fatalf("kind = %q, want not_found", kind)
	}
}

func TestGetOrderEndpoint_Owner(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	h, verifier := newTestHandlers(t, store)
	order := seedOrder(t, h, verifier, "alice")

	req := httptest.NewRequest(http.MethodGet, "/orders/"+order.ID.String(), nil)
	req = mux.SetURLVars(req, map[string]string{"id": order.ID.String()})
	req.Header.Set("Authorization", bearerToken(t, verifier, "alice", auth.RoleCustomer))
	rec := doRequest(h, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
}

func TestListMyOrdersEndpoint(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	h, verifier := newTestHandlers(t, store)
	seedOrder(t, h, verifier, "alice")
	seedOrder(t, h, verifier, "bob")

	req := httptest.NewRequest(http.MethodGet, "/orders/mine", nil)
	req.Header.Set("Authorization", bearerToken(t, verifier, "alice", auth.RoleCustomer))
	rec := doRequest(h, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Orders []*models.Order `json:"orders"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(body.Orders) != 1 || body.Orders[0].UserID != "alice" {
		t.Fatalf("unexpected listing: %+v", body.Orders)
	}
}

func TestListOrdersEndpoint_AdminOnly(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	h, verifier := newTestHandlers(t, store)
	seedOrder(t, h, verifier, "alice")
	seedOrder(t, h, verifier, "bob")

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", bearerToken(t, verifier, "root", auth.RoleAdmin))
	rec := doRequest(h, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d (%s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Orders []*models.Order `json:"orders"`
		Total  int             `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if body.Total != 2 {
		t.Fatalf("total = %d, want 2", body.Total)
	}

	req = httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", bearerToken(t, verifier, "alice", auth.RoleCustomer))
	rec = doRequest(h, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("customer status = %d, want 403", rec.Code)
	}
}

func TestUpdateOrderStatusEndpoint_WebhookSecret(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	h, verifier := newTestHandlers(t, store)
	order := seedOrder(t, h, verifier, "alice")

	body := `{"status": "shipped", "tracking_number": "TRK1", "carrier": "fedex"}`
	req := httptest.NewRequest(http.MethodPut, "/orders/"+order.ID.String()+"/status", strings.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"id": order.ID.String()})
	req.Header.Set("X-Webhook-Secret", testWebhookSecret)
	rec := doRequest(h, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}

	var updated models.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if updated.Status != models.StatusShipped {
		t.Fatalf("status = %s, want shipped", updated.Status)
	}
	if updated.Carrier != "FedEx" {
		t.Fatalf("carrier = %q, want FedEx", updated.Carrier)
	}
	if updated.TrackingURL == "" {
		t.Fatalf("tracking URL not derived")
	}
}

func TestUpdateOrderStatusEndpoint_WrongSecret(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	h, verifier := newTestHandlers(t, store)
	order := seedOrder(t, h, verifier, "alice")

	req := httptest.NewRequest(http.MethodPut, "/orders/"+order.ID.String()+"/status", strings.NewReader(`{"status": "shipped"}`))
	req = mux.SetURLVars(req, map[string]string{"id": order.ID.String()})
	req.Header.Set("X-Webhook-Secret", "guessed")
	rec := doRequest(h, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 (%s)", rec.Code, rec.Body.String())
	}
}

func TestUpdateOrderStatusEndpoint_OwnerForbidden(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	h, verifier := newTestHandlers(t, store)
	order := seedOrder(t, h, verifier, "alice")

	req := httptest.NewRequest(http.MethodPut, "/orders/"+order.ID.String()+"/status", strings.NewReader(`{"status": "cancelled"}`))
	req = mux.SetURLVars(req, map[string]string{"id": order.ID.String()})
	req.Header.Set("Authorization", bearerToken(t, verifier, "alice", auth.RoleCustomer))
	rec := doRequest(h, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 (%s)", rec.Code, rec.Body.String())
	}
}

func TestUpdateOrderStatusEndpoint_Admin(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	h, verifier := newTestHandlers(t, store)
	order := seedOrder(t, h, verifier, "alice")

	req := httptest.NewRequest(http.MethodPut, "/orders/"+order.ID.String()+"/status", strings.NewReader(`{"status": "cancelled"}`))
	req = mux.SetURLVars(req, map[string]string{"id": order.ID.String()})
	req.Header.Set("Authorization", bearerToken(t, verifier, "root", auth.RoleAdmin))
	rec := doRequest(h, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
}

func TestGetOrderEndpoint_BadID(t *testing.T) {
	t.Parallel()

	h, verifier := newTestHandlers(t, newFakeOrderStore())

	req := httptest.NewRequest(http.MethodGet, "/orders/not-a-uuid", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "not-a-uuid"})
	req.Header.Set("Authorization", bearerToken(t, verifier, "alice", auth.RoleCustomer))
	rec := doRequest(h, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}
