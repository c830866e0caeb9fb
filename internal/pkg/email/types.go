// internal/pkg/email/types.go
package email

// EmailType identifies the kind of email being sent
type EmailType string

const (
	EmailTypeOrderConfirmation EmailType = "order_confirmation"
	EmailTypeProducerOrder     EmailType = "producer_order"
	EmailTypeRefundNotice      EmailType = "refund_notice"
)

// Email represents an outgoing email. Exactly one of HTMLContent and
// TextContent is expected to be set.
type Email struct {
	To          []string
	Subject     string
	HTMLContent string
	TextContent string
	Type        EmailType
}

// OrderConfirmationData carries everything the confirmation mail needs.
type OrderConfirmationData struct {
	OrderNumber   string
	CustomerEmail string
	FirstName     string
	Items         []OrderConfirmationItem
	SubtotalCents int64
	ShippingCents int64
	TotalCents    int64
}

// OrderConfirmationItem is one line of the confirmation mail.
type OrderConfirmationItem struct {
	Name           string
	VariantName    string
	Quantity       int
	LineTotalCents int64
}
