package email

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/cartageapp/cartage/internal/models"
)

// StatusEmail renders the notification for an order status change.
// The second return value is false when no notification is defined for
// the status (nothing is sent for pending/confirmed-by-webhook noise).
func StatusEmail(order *models.Order) (*Email, bool) {
	if order == nil || order.Customer == nil || strings.TrimSpace(order.Customer.Email) == "" {
		return nil, false
	}

	tmpl, ok := statusTemplates[order.Status]
	if !ok {
		return nil, false
	}

	data := statusEmailData{
		OrderNumber:    order.OrderNumber,
		CustomerName:   displayName(order),
		TrackingNumber: order.TrackingNumber,
		TrackingURL:    order.TrackingURL,
		Carrier:        order.Carrier,
		Total:          formatPrice(order.TotalCents),
	}
	if order.EstimatedDelivery != nil {
		data.EstimatedDelivery = order.EstimatedDelivery.Format("January 2, 2006")
	}

	var body bytes.Buffer
	if err := tmpl.body.Execute(&body, data); err != nil {
		return nil, false
	}

	return &Email{
		To:      order.Customer.Email,
		Subject: fmt.Sprintf(tmpl.subject, order.OrderNumber),
		Text:    body.String(),
	}, true
}

type statusEmailData struct {
	OrderNumber       string
	CustomerName      string
	TrackingNumber    string
	TrackingURL       string
	Carrier           string
	EstimatedDelivery string
	Total             string
}

type statusTemplate struct {
	subject string
	body    *template.Template
}

var statusTemplates = map[models.OrderStatus]statusTemplate{
	models.StatusProcessing: {
		subject: "Order %s is being prepared",
		body: template.Must(template.New("processing").Parse(
			`Hi {{.CustomerName}},

Your order {{.OrderNumber}} is now being prepared for shipment.

Total: {{.Total}}
`)),
	},
	models.StatusShipped: {
		subject: "Order %s has shipped",
		body: template.Must(template.New("shipped").Parse(
			`Hi {{.CustomerName}},

Your order {{.OrderNumber}} is on its way.
{{- if .Carrier}}
Carrier: {{.Carrier}}{{end}}
{{- if .TrackingNumber}}
Tracking number: {{.TrackingNumber}}{{end}}
{{- if .TrackingURL}}
Track it here: {{.TrackingURL}}{{end}}
{{- if .EstimatedDelivery}}
Estimated delivery: {{.EstimatedDelivery}}{{end}}
`)),
	},
	models.StatusDelivered: {
		subject: "Order %s was delivered",
		body: template.Must(template.New("delivered").Parse(
			`Hi {{.CustomerName}},

Your order {{.OrderNumber}} has been delivered. Enjoy!
`)),
	},
	models.StatusCancelled: {
		subject: "Order %s was cancelled",
		body: template.Must(template.New("cancelled").Parse(
			`Hi {{.CustomerName}},

Your order {{.OrderNumber}} has been cancelled. If a payment was taken,
a refund will follow through your original payment method.
`)),
	},
}

func displayName(order *models.Order) string {
	if order.Customer != nil && strings.TrimSpace(order.Customer.Name) != "" {
		return strings.TrimSpace(order.Customer.Name)
	}
	return "there"
}

func formatPrice(cents int) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100.0)
}
