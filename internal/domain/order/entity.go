// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/your-org/farmshop-backend/internal/domain/producer"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "pending"
	OrderStatusPaid             OrderStatus = "paid"
	OrderStatusProcessing       OrderStatus = "processing"
	OrderStatusPartiallyShipped OrderStatus = "partially_shipped"
	OrderStatusShipped          OrderStatus = "shipped"
	OrderStatusDelivered        OrderStatus = "delivered"
	OrderStatusCancelled        OrderStatus = "cancelled"
	OrderStatusRefunded         OrderStatus = "refunded"
)

// TaskStatus represents the fulfillment task status
type TaskStatus string

const (
	TaskStatusPending        TaskStatus = "pending"
	TaskStatusSentToProducer TaskStatus = "sent_to_producer"
	TaskStatusConfirmed      TaskStatus = "confirmed"
	TaskStatusShipped        TaskStatus = "shipped"
	TaskStatusDelivered      TaskStatus = "delivered"
	TaskStatusFailed         TaskStatus = "failed"
	TaskStatusCancelled      TaskStatus = "cancelled"
)

// Order represents one customer purchase. Created exactly once per
// checkout session; never deleted. Address snapshots are denormalized at
// creation time and never re-derived.
type Order struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OrderNumber string `gorm:"uniqueIndex;not null;size:50" json:"order_number"`

	// Customer identity: registered customer id or guest email.
	CustomerID *uint  `gorm:"index" json:"customer_id"`
	Email      string `gorm:"not null;size:255" json:"email"`

	Status OrderStatus `gorm:"not null;default:'pending'" json:"status"`

	// Financial information, in cents
	SubtotalCents int64 `gorm:"not null" json:"subtotal_cents"`
	ShippingCents int64 `gorm:"not null;default:0" json:"shipping_cents"`
	TotalCents    int64 `gorm:"not null" json:"total_cents"`

	// Addresses
	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	BillingAddress  Address `gorm:"embedded;embeddedPrefix:billing_" json:"billing_address"`

	// External payment references. The checkout session id is the
	// idempotency guard against webhook redelivery.
	CheckoutSessionID string `gorm:"uniqueIndex;not null;size:255" json:"checkout_session_id"`
	PaymentIntentID   string `gorm:"index;size:255" json:"payment_intent_id"`

	// Attribution metadata
	AttributionSource   string `gorm:"size:100" json:"attribution_source"`
	AttributionCampaign string `gorm:"size:100" json:"attribution_campaign"`

	Notes string `gorm:"type:text" json:"notes"`

	// Timestamps
	PaidAt    *time.Time `json:"paid_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Relationships
	Items []OrderItem       `gorm:"foreignKey:OrderID" json:"items"`
	Tasks []FulfillmentTask `gorm:"foreignKey:OrderID" json:"tasks,omitempty"`
}

// OrderItem represents one line item. Prices are captured at order time
// and stay immutable even when the catalog price changes later.
type OrderItem struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	OrderID        uint         `gorm:"not null;index" json:"order_id"`
	VariantID      uint         `gorm:"not null;index" json:"variant_id"`
	SKU            string       `gorm:"not null;size:100" json:"sku"`
	Name           string       `gorm:"not null;size:255" json:"name"`
	VariantName    string       `gorm:"size:255" json:"variant_name"`
	Producer       producer.Key `gorm:"not null;size:50;index" json:"producer"`
	Quantity       int          `gorm:"not null" json:"quantity"`
	UnitPriceCents int64        `gorm:"not null" json:"unit_price_cents"`
	LineTotalCents int64        `gorm:"not null" json:"line_total_cents"`
	WeightGrams    int          `gorm:"not null;default:0" json:"weight_grams"`
	CreatedAt      time.Time    `json:"created_at"`
}

// FulfillmentTask is one unit of work sent to one producer for one order.
// Exactly one task exists per distinct producer among the order's items.
// Created by order creation with status pending; mutated only by the
// dispatcher and operator status overrides.
type FulfillmentTask struct {
	ID       uint         `gorm:"primaryKey" json:"id"`
	OrderID  uint         `gorm:"not null;index;uniqueIndex:idx_tasks_order_producer" json:"order_id"`
	Producer producer.Key `gorm:"not null;size:50;uniqueIndex:idx_tasks_order_producer" json:"producer"`
	Status   TaskStatus   `gorm:"not null;default:'pending'" json:"status"`

	// ExternalID is empty for email-mode producers.
	ExternalID     string `gorm:"size:255" json:"external_id"`
	TrackingNumber string `gorm:"size:100" json:"tracking_number"`
	TrackingURL    string `gorm:"size:500" json:"tracking_url"`

	RetryCount int    `gorm:"not null;default:0" json:"retry_count"`
	LastError  string `gorm:"type:text" json:"last_error"`

	SentAt      *time.Time `json:"sent_at"`
	ConfirmedAt *time.Time `json:"confirmed_at"`
	ShippedAt   *time.Time `json:"shipped_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// FulfillmentEvent is one entry in a task's dispatch trail.
type FulfillmentEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TaskID    uint      `gorm:"not null;index" json:"task_id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	EventType string    `gorm:"not null;size:50" json:"event_type"`
	Detail    string    `gorm:"type:text" json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// Address represents shipping/billing address (embedded in Order)
type Address struct {
	FirstName    string `gorm:"size:100" json:"first_name"`
	LastName     string `gorm:"size:100" json:"last_name"`
	Company      string `gorm:"size:100" json:"company"`
	AddressLine1 string `gorm:"size:255" json:"address_line1"`
	AddressLine2 string `gorm:"size:255" json:"address_line2"`
	City         string `gorm:"size:100" json:"city"`
	PostalCode   string `gorm:"size:20" json:"postal_code"`
	Country      string `gorm:"size:2" json:"country"`
	Phone        string `gorm:"size:20" json:"phone"`
}

// TableName overrides
func (Order) TableName() string            { return "orders" }
func (OrderItem) TableName() string        { return "order_items" }
func (FulfillmentTask) TableName() string  { return "fulfillment_tasks" }
func (FulfillmentEvent) TableName() string { return "fulfillment_events" }

// ToWire converts an address to the producer wire format.
func (a Address) ToWire() producer.Address {
	return producer.Address{
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Company:      a.Company,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
		Phone:        a.Phone,
	}
}

// Producers returns the distinct producers among the order's items, in
// first-seen order.
func (o *Order) Producers() []producer.Key {
	seen := make(map[producer.Key]bool, len(o.Items))
	var keys []producer.Key
	for i := range o.Items {
		key := o.Items[i].Producer
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

// ItemsForProducer returns the order's items belonging to one producer.
func (o *Order) ItemsForProducer(key producer.Key) []OrderItem {
	var items []OrderItem
	for i := range o.Items {
		if o.Items[i].Producer == key {
			items = append(items, o.Items[i])
		}
	}
	return items
}

// IsTerminal reports whether the order reached a terminal status.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusCancelled || o.Status == OrderStatusRefunded
}
