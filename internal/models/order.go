package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	default:
		return false
	}
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// LineItem is a single purchased product. Unit price is captured at order
// time and never re-read from the catalog afterwards.
type LineItem struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name,omitempty"`
	UnitPriceCents int    `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
	Size           string `json:"size,omitempty"`
	Color          string `json:"color,omitempty"`
}

// CustomerSummary is the joined owner info attached to admin order listings.
type CustomerSummary struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Order struct {
	ID                uuid.UUID        `json:"id"`
	OrderNumber       string           `json:"order_number"`
	UserID            string           `json:"user_id"`
	Items             []LineItem       `json:"items"`
	TotalCents        int              `json:"total_cents"`
	Status            OrderStatus      `json:"status"`
	PaymentStatus     PaymentStatus    `json:"payment_status"`
	PaymentMethod     string           `json:"payment_method,omitempty"`
	PaymentID         string           `json:"payment_id,omitempty"`
	TrackingNumber    string           `json:"tracking_number,omitempty"`
	TrackingURL       string           `json:"tracking_url,omitempty"`
	Carrier           string           `json:"carrier,omitempty"`
	EstimatedDelivery *time.Time       `json:"estimated_delivery,omitempty"`
	ShippingAddress   Address          `json:"shipping_address"`
	BillingAddress    *Address         `json:"billing_address,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	Customer          *CustomerSummary `json:"customer,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}
