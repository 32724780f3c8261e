package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartageapp/cartage/internal/models"
)

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// StatusPatch is a partial update to an order. Nil fields keep their
// stored values; the whole patch is applied in a single UPDATE so a
// failed update leaves the row untouched.
type StatusPatch struct {
	Status            *models.OrderStatus
	PaymentStatus     *models.PaymentStatus
	TrackingNumber    *string
	TrackingURL       *string
	Carrier           *string
	EstimatedDelivery *time.Time
	Notes             *string
}

// ListFilter controls the admin listing. Page is 1-based.
type ListFilter struct {
	Status string
	Page   int
	Limit  int
}

const orderColumns = `id, order_number, user_id, items, total_cents, status, payment_status,
	payment_method, payment_id, tracking_number, tracking_url, carrier,
	estimated_delivery, shipping_address, billing_address, notes, created_at, updated_at`

func (s *OrderStore) Create(ctx context.Context, order *models.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}
	shippingJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to encode shipping address: %w", err)
	}
	var billingJSON []byte
	if order.BillingAddress != nil {
		billingJSON, err = json.Marshal(order.BillingAddress)
		if err != nil {
			return fmt.Errorf("failed to encode billing address: %w", err)
		}
	}

	query := `
		INSERT INTO orders (id, user_id, items, total_cents, status, payment_status,
			payment_method, payment_id, shipping_address, billing_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING order_number, created_at, updated_at
	`
	var orderNumber int64
	var createdAt, updatedAt pgtype.Timestamptz
	err = s.pool.QueryRow(ctx, query,
		order.ID,
		order.UserID,
		itemsJSON,
		order.TotalCents,
		string(order.Status),
		string(order.PaymentStatus),
		textOrNil(order.PaymentMethod),
		textOrNil(order.PaymentID),
		shippingJSON,
		billingJSON,
	).Scan(&orderNumber, &createdAt, &updatedAt)
	if err != nil {
		return err
	}

	order.OrderNumber = formatOrderNumber(orderNumber)
	order.CreatedAt = createdAt.Time
	order.UpdatedAt = updatedAt.Time
	return nil
}

func (s *OrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return s.scanOrder(s.pool.QueryRow(ctx, query, orderID))
}

// GetByIDForUser applies the ownership predicate in the query itself so a
// foreign order is indistinguishable from a missing one.
func (s *OrderStore) GetByIDForUser(ctx context.Context, orderID uuid.UUID, userID string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2`
	return s.scanOrder(s.pool.QueryRow(ctx, query, orderID, userID))
}

func (s *OrderStore) GetByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_id = $1 ORDER BY created_at DESC LIMIT 1`
	return s.scanOrder(s.pool.QueryRow(ctx, query, paymentID))
}

func (s *OrderStore) ListByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.collectOrders(rows)
}

// List returns a page of orders for admin callers, with the owning user's
// name and email joined in.
func (s *OrderStore) List(ctx context.Context, filter ListFilter) ([]*models.Order, int, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	var total int
	countQuery := `SELECT COUNT(*) FROM orders WHERE ($1 = '' OR status = $1)`
	if err := s.pool.QueryRow(ctx, countQuery, filter.Status).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + prefixColumns("o", orderColumns) + `,
			COALESCE(u.name, ''), COALESCE(u.email, '')
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		WHERE ($1 = '' OR o.status = $1)
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.pool.Query(ctx, query, filter.Status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := make([]*models.Order, 0, limit)
	for rows.Next() {
		var row orderRow
		var customerName, customerEmail string
		if err := rows.Scan(row.dest(&customerName, &customerEmail)...); err != nil {
			return nil, 0, err
		}
		order, err := row.toOrder()
		if err != nil {
			return nil, 0, err
		}
		order.Customer = &models.CustomerSummary{Name: customerName, Email: customerEmail}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// UpdateStatus applies patch and returns the updated order. Returns
// pgx.ErrNoRows when the order does not exist.
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID uuid.UUID, patch StatusPatch) (*models.Order, error) {
	query := `
		UPDATE orders SET
			status = COALESCE($2, status),
			payment_status = COALESCE($3, payment_status),
			tracking_number = COALESCE($4, tracking_number),
			tracking_url = COALESCE($5, tracking_url),
			carrier = COALESCE($6, carrier),
			estimated_delivery = COALESCE($7, estimated_delivery),
			notes = COALESCE($8, notes),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + orderColumns + `
	`
	return s.scanOrder(s.pool.QueryRow(ctx, query,
		orderID,
		statusOrNil(patch.Status),
		paymentStatusOrNil(patch.PaymentStatus),
		patch.TrackingNumber,
		patch.TrackingURL,
		patch.Carrier,
		patch.EstimatedDelivery,
		patch.Notes,
	))
}

type orderRow struct {
	ID                uuid.UUID
	OrderNumber       int64
	UserID            string
	Items             []byte
	TotalCents        int
	Status            string
	PaymentStatus     string
	PaymentMethod     pgtype.Text
	PaymentID         pgtype.Text
	TrackingNumber    pgtype.Text
	TrackingURL       pgtype.Text
	Carrier           pgtype.Text
	EstimatedDelivery pgtype.Timestamptz
	ShippingAddress   []byte
	BillingAddress    []byte
	Notes             pgtype.Text
	CreatedAt         pgtype.Timestamptz
	UpdatedAt         pgtype.Timestamptz
}

func (r *orderRow) dest(extra ...any) []any {
	dest := []any{
		&r.ID, &r.OrderNumber, &r.UserID, &r.Items, &r.TotalCents, &r.Status,
		&r.PaymentStatus, &r.PaymentMethod, &r.PaymentID, &r.TrackingNumber,
		&r.TrackingURL, &r.Carrier, &r.EstimatedDelivery, &r.ShippingAddress,
		&r.BillingAddress, &r.Notes, &r.CreatedAt, &r.UpdatedAt,
	}
	return append(dest, extra...)
}

func (r *orderRow) toOrder() (*models.Order, error) {
	order := &models.Order{
		ID:            r.ID,
		OrderNumber:   formatOrderNumber(r.OrderNumber),
		UserID:        r.UserID,
		TotalCents:    r.TotalCents,
		Status:        models.OrderStatus(r.Status),
		PaymentStatus: models.PaymentStatus(r.PaymentStatus),
		CreatedAt:     r.CreatedAt.Time,
		UpdatedAt:     r.UpdatedAt.Time,
	}

	if r.PaymentMethod.Valid {
		order.PaymentMethod = r.PaymentMethod.String
	}
	if r.PaymentID.Valid {
		order.PaymentID = r.PaymentID.String
	}
	if r.TrackingNumber.Valid {
		order.TrackingNumber = r.TrackingNumber.String
	}
	if r.TrackingURL.Valid {
		order.TrackingURL = r.TrackingURL.String
	}
	if r.Carrier.Valid {
		order.Carrier = r.Carrier.String
	}
	if r.EstimatedDelivery.Valid {
		delivery := r.EstimatedDelivery.Time
		order.EstimatedDelivery = &delivery
	}
	if r.Notes.Valid {
		order.Notes = r.Notes.String
	}

	if r.Items != nil {
		if err := json.Unmarshal(r.Items, &order.Items); err != nil {
			return nil, fmt.Errorf("failed to decode order items: %w", err)
		}
	}
	if r.ShippingAddress != nil {
		if err := json.Unmarshal(r.ShippingAddress, &order.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode shipping address: %w", err)
		}
	}
	if r.BillingAddress != nil {
		var billing models.Address
		if err := json.Unmarshal(r.BillingAddress, &billing); err != nil {
			return nil, fmt.Errorf("failed to decode billing address: %w", err)
		}
		order.BillingAddress = &billing
	}

	return order, nil
}

func (s *OrderStore) scanOrder(row pgx.Row) (*models.Order, error) {
	var r orderRow
	if err := row.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return r.toOrder()
}

func (s *OrderStore) collectOrders(rows pgx.Rows) ([]*models.Order, error) {
	var orders []*models.Order
	for rows.Next() {
		var r orderRow
		if err := rows.Scan(r.dest()...); err != nil {
			return nil, err
		}
		order, err := r.toOrder()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// CustomerSummary returns the name and email for a user id, or nil when
// the user is unknown. Used to address status notifications.
func (s *OrderStore) CustomerSummary(ctx context.Context, userID string) (*models.CustomerSummary, error) {
	query := `SELECT COALESCE(name, ''), COALESCE(email, '') FROM users WHERE id = $1`
	var summary models.CustomerSummary
	err := s.pool.QueryRow(ctx, query, userID).Scan(&summary.Name, &summary.Email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}

func formatOrderNumber(n int64) string {
	return fmt.Sprintf("ORD-%06d", n)
}

func textOrNil(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func statusOrNil(status *models.OrderStatus) *string {
	if status == nil {
		return nil
	}
	s := string(*status)
	return &s
}

func paymentStatusOrNil(status *models.PaymentStatus) *string {
	if status == nil {
		return nil
	}
	s := string(*status)
	return &s
}

func prefixColumns(alias, columns string) string {
	out := ""
	for i, col := range splitColumns(columns) {
		if i > 0 {
			out += ", "
		}
		out += alias + "." + col
	}
	return out
}

func splitColumns(columns string) []string {
	var out []string
	field := ""
	for _, r := range columns {
		switch r {
		case ',':
			out = append(out, field)
			field = ""
		case ' ', '\n', '\t':
		default:
			field += string(r)
		}
	}
	if field != "" {
		out = append(out, field)
	}
	return out
}
