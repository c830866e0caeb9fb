// internal/domain/producer/client.go
package producer

import (
	"context"
)

// Key identifies a fulfillment partner.
type Key string

const (
	KeyKiendler Key = "kiendler"
	KeyHernach  Key = "hernach"
)

// Method is the transport used to hand an order to a producer.
type Method string

const (
	MethodAPI   Method = "api"
	MethodEmail Method = "email"
)

// DispatchResult is the outcome of one SendOrder attempt. Ordinary failure
// modes (network error, non-2xx, missing config) are reported here, never
// as a Go error, so the dispatcher can apply a uniform retry policy.
type DispatchResult struct {
	Success    bool   `json:"success"`
	ExternalID string `json:"external_id,omitempty"`
	Method     Method `json:"method"`
	Error      string `json:"error,omitempty"`
}

// OrderPayload is the producer-facing view of one fulfillment task.
type OrderPayload struct {
	ExternalReference string   `json:"external_reference"`
	OrderNumber       string   `json:"order_number"`
	Items             []Item   `json:"items"`
	ShippingAddress   Address  `json:"shipping_address"`
	CustomerEmail     string   `json:"customer_email,omitempty"`
	Notes             string   `json:"notes,omitempty"`
}

// Item is one order line scoped to the receiving producer.
type Item struct {
	SKU         string `json:"sku"`
	Quantity    int    `json:"quantity"`
	ProductName string `json:"product_name"`
	Size        string `json:"size,omitempty"`
	WeightGrams int    `json:"weight_grams,omitempty"`
}

// Address is the wire format of a shipping address.
type Address struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Company      string `json:"company,omitempty"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone,omitempty"`
}

// Client is the capability a producer integration must provide.
// SendOrder never fails with a Go error; GetStatus may, since it is only
// used by manual reconciliation, not the dispatch hot path.
type Client interface {
	SendOrder(ctx context.Context, payload OrderPayload) DispatchResult
	GetStatus(ctx context.Context, externalID string) (string, error)
	Method() Method
}

// Mailer sends a plain-text email. Satisfied by the email package's
// service; defined here so email-mode clients stay decoupled from it.
type Mailer interface {
	SendText(ctx context.Context, to, subject, body string) error
}
