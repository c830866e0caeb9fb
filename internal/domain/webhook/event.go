// internal/domain/webhook/event.go
package webhook

import (
	json "github.com/goccy/go-json"
)

// Event types the processor understands. Anything else is acknowledged
// and ignored.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventChargeRefunded    = "charge.refunded"
	EventPaymentSucceeded  = "payment_intent.succeeded"
)

// Event is the envelope shared by all provider notifications. The inner
// object is decoded lazily per event type.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutPayload is the object of a checkout.session.completed event.
type CheckoutPayload struct {
	SessionID       string `json:"id"`
	PaymentIntentID string `json:"payment_intent"`
	CustomerEmail   string `json:"customer_email"`
	AmountTotal     int64  `json:"amount_total"`
	ShippingCents   int64  `json:"shipping_cents"`
	PaymentFeeCents int64  `json:"payment_fee_cents"`

	Lines []CheckoutLine `json:"lines"`

	ShippingAddress AddressPayload `json:"shipping_address"`
	BillingAddress  AddressPayload `json:"billing_address"`

	CustomerID          *uint  `json:"customer_id"`
	AttributionSource   string `json:"attribution_source"`
	AttributionCampaign string `json:"attribution_campaign"`
	Notes               string `json:"notes"`
}

// CheckoutLine is one purchased line within a checkout session.
type CheckoutLine struct {
	VariantID uint `json:"variant_id"`
	Quantity  int  `json:"quantity"`
}

// AddressPayload is the address shape used by the payment provider.
type AddressPayload struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Company    string `json:"company"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

// RefundPayload is the object of a charge.refunded event. AmountRefunded
// is the cumulative refunded amount on the charge; RefundID identifies
// the individual refund for idempotency.
type RefundPayload struct {
	ChargeID        string `json:"id"`
	PaymentIntentID string `json:"payment_intent"`
	RefundID        string `json:"refund_id"`
	AmountRefunded  int64  `json:"amount_refunded"`
	AmountCents     int64  `json:"amount_cents"`
	Reason          string `json:"reason"`
}

// PaymentPayload is the object of a payment_intent.succeeded event.
type PaymentPayload struct {
	PaymentIntentID string `json:"id"`
	SessionID       string `json:"checkout_session"`
	AmountCents     int64  `json:"amount"`
}
