// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/farmshop-backend/internal/config"
	"github.com/your-org/farmshop-backend/internal/domain/catalog"
	"github.com/your-org/farmshop-backend/internal/domain/ledger"
	"github.com/your-org/farmshop-backend/internal/domain/producer"
	"github.com/your-org/farmshop-backend/internal/pkg/errs"
)

// Service handles order business logic
type Service struct {
	db             *gorm.DB
	config         *config.Config
	catalogService *catalog.Service
	ledgerService  *ledger.Service
	logger         *logrus.Logger
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config, catalogService *catalog.Service, ledgerService *ledger.Service, logger *logrus.Logger) *Service {
	return &Service{
		db:             db,
		config:         cfg,
		catalogService: catalogService,
		ledgerService:  ledgerService,
		logger:         logger,
	}
}

// CartLine is one requested line of a paid checkout.
type CartLine struct {
	VariantID uint `json:"variant_id"`
	Quantity  int  `json:"quantity"`
}

// CreateOrderInput carries everything needed to record a paid checkout.
// Prices are NOT part of the input; they are snapshotted from the catalog.
type CreateOrderInput struct {
	CustomerID *uint
	GuestEmail string

	Lines []CartLine

	ShippingAddress Address
	BillingAddress  Address

	ShippingCents   int64
	PaymentFeeCents int64

	CheckoutSessionID string
	PaymentIntentID   string

	AttributionSource   string
	AttributionCampaign string
	Notes               string

	PerformedBy string
}

// CreateOrderResult reports what the creation transaction produced.
type CreateOrderResult struct {
	Order         *Order
	LedgerEntryID uint
	TaskIDs       []uint
	// AlreadyExists is set when the checkout session was processed
	// before; Order then holds the prior order and nothing was written.
	AlreadyExists bool
}

// CreateFromCheckout atomically records an order with its items, one
// fulfillment task per distinct producer, the sale ledger entry and an
// audit entry. Everything happens in one transaction; any failure rolls
// the whole order back. A redelivered checkout session is answered with
// the previously created order.
func (s *Service) CreateFromCheckout(ctx context.Context, in *CreateOrderInput) (*CreateOrderResult, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	// Fast path for webhook redelivery: the unique index on the session
	// id below remains the authoritative guard.
	if existing, err := s.GetByCheckoutSession(ctx, in.CheckoutSessionID); err == nil {
		return &CreateOrderResult{Order: existing, AlreadyExists: true}, nil
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin order transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	// Resolve variants; unknown ids fail the whole call.
	variantIDs := make([]uint, 0, len(in.Lines))
	for _, line := range in.Lines {
		variantIDs = append(variantIDs, line.VariantID)
	}
	variants, err := s.catalogService.ResolveVariants(tx, variantIDs)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// Snapshot prices from the catalog, never from client input.
	var subtotal int64
	items := make([]OrderItem, 0, len(in.Lines))
	for _, line := range in.Lines {
		v := variants[line.VariantID]
		lineTotal := v.PriceCents * int64(line.Quantity)
		subtotal += lineTotal
		items = append(items, OrderItem{
			VariantID:      v.ID,
			SKU:            v.SKU,
			Name:           v.Product.Name,
			VariantName:    v.Name,
			Producer:       v.Product.Producer,
			Quantity:       line.Quantity,
			UnitPriceCents: v.PriceCents,
			LineTotalCents: lineTotal,
			WeightGrams:    v.WeightGrams * line.Quantity,
		})
	}

	now := time.Now().UTC()
	ord := Order{
		OrderNumber:         s.generateOrderNumber(),
		CustomerID:          in.CustomerID,
		Email:               s.contactEmail(in),
		Status:              OrderStatusPaid,
		SubtotalCents:       subtotal,
		ShippingCents:       in.ShippingCents,
		TotalCents:          subtotal + in.ShippingCents,
		ShippingAddress:     in.ShippingAddress,
		BillingAddress:      in.BillingAddress,
		CheckoutSessionID:   in.CheckoutSessionID,
		PaymentIntentID:     in.PaymentIntentID,
		AttributionSource:   in.AttributionSource,
		AttributionCampaign: in.AttributionCampaign,
		Notes:               in.Notes,
		PaidAt:              &now,
	}

	if err := tx.Create(&ord).Error; err != nil {
		tx.Rollback()
		// A duplicate session id means another delivery of the same
		// checkout won the race; answer with its order.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if existing, lookupErr := s.GetByCheckoutSession(ctx, in.CheckoutSessionID); lookupErr == nil {
				return &CreateOrderResult{Order: existing, AlreadyExists: true}, nil
			}
			return nil, errs.Conflict("checkout session %q already processed", in.CheckoutSessionID)
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// Order items, each tagged with its producer.
	var producerCost int64
	for i := range items {
		items[i].OrderID = ord.ID

		unitCost, err := catalog.ProducerUnitCost(items[i].SKU)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		producerCost += unitCost * int64(items[i].Quantity)

		if err := tx.Create(&items[i]).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}
	ord.Items = items

	// One fulfillment task per distinct producer (bundle split).
	taskIDs := make([]uint, 0, 2)
	var tasks []FulfillmentTask
	for _, key := range ord.Producers() {
		task := FulfillmentTask{
			OrderID:  ord.ID,
			Producer: key,
			Status:   TaskStatusPending,
		}
		if err := tx.Create(&task).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create fulfillment task for producer %s: %w", key, err)
		}
		taskIDs = append(taskIDs, task.ID)
		tasks = append(tasks, task)
	}
	ord.Tasks = tasks

	// Sale ledger entry from the assembled cost breakdown.
	entry, err := s.ledgerService.RecordSale(tx, ledger.SaleInput{
		OrderID: ord.ID,
		Costs: ledger.CostBreakdown{
			RevenueCents:      ord.TotalCents,
			ProducerCostCents: producerCost,
			PackagingCents:    s.config.Ledger.PackagingCentsPerOrder,
			ShippingCents:     in.ShippingCents,
			PaymentFeeCents:   in.PaymentFeeCents,
			CustomsCents:      0,
		},
		Notes:       fmt.Sprintf("sale for order %s", ord.OrderNumber),
		PerformedBy: in.PerformedBy,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// Order-level audit summary.
	if err := s.ledgerService.WriteAudit(tx, "order", ord.ID, "create_order", nil, map[string]interface{}{
		"order_number": ord.OrderNumber,
		"total_cents":  ord.TotalCents,
		"item_count":   len(items),
		"task_count":   len(taskIDs),
	}, in.PerformedBy); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit order transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     ord.ID,
		"order_number": ord.OrderNumber,
		"total_cents":  ord.TotalCents,
		"tasks":        len(taskIDs),
	}).Info("Order created")

	return &CreateOrderResult{
		Order:         &ord,
		LedgerEntryID: entry.ID,
		TaskIDs:       taskIDs,
	}, nil
}

func (s *Service) validateInput(in *CreateOrderInput) error {
	if in.CheckoutSessionID == "" {
		return errs.Validation("checkout session id is required")
	}
	if in.CustomerID == nil && in.GuestEmail == "" {
		return errs.Validation("either customer id or guest email is required")
	}
	if len(in.Lines) == 0 {
		return errs.Validation("cart is empty")
	}
	for _, line := range in.Lines {
		if line.Quantity < 1 {
			return errs.Validation("quantity for variant %d must be at least 1", line.VariantID)
		}
	}
	if in.ShippingCents < 0 || in.PaymentFeeCents < 0 {
		return errs.Validation("shipping and payment fee must not be negative")
	}
	return nil
}

func (s *Service) contactEmail(in *CreateOrderInput) string {
	if in.GuestEmail != "" {
		return in.GuestEmail
	}
	return ""
}

// generateOrderNumber builds a human-readable order number. The random
// suffix makes collisions negligible; the unique index on order_number is
// the real guarantee.
func (s *Service) generateOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page      int          `form:"page,default=1"`
	Limit     int          `form:"limit,default=20"`
	Status    OrderStatus  `form:"status"`
	Producer  producer.Key `form:"producer"`
	DateFrom  string       `form:"date_from"`
	DateTo    string       `form:"date_to"`
	SortOrder string       `form:"sort_order,default=desc"`
}

// OrderResponse represents order response with pagination
type OrderResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// GetOrders retrieves orders with filtering and pagination
func (s *Service) GetOrders(ctx context.Context, req *OrderListRequest) (*OrderResponse, error) {
	var orders []Order
	var total int64

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&Order{}).
		Preload("Items").
		Preload("Tasks")

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Producer != "" {
		query = query.Where("id IN (?)", s.db.Model(&OrderItem{}).
			Select("order_id").Where("producer = ?", req.Producer))
	}
	if req.DateFrom != "" {
		query = query.Where("created_at >= ?", req.DateFrom)
	}
	if req.DateTo != "" {
		query = query.Where("created_at <= ?", req.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	sortOrder := "DESC"
	if req.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at " + sortOrder).Offset(offset).Limit(req.Limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &OrderResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// GetOrder retrieves a single order by ID
func (s *Service) GetOrder(ctx context.Context, id uint) (*Order, error) {
	var ord Order
	result := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Tasks").
		Where("id = ?", id).
		First(&ord)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.Validation("order %d not found", id)
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}

	return &ord, nil
}

// GetByCheckoutSession retrieves an order by its payment session id.
func (s *Service) GetByCheckoutSession(ctx context.Context, sessionID string) (*Order, error) {
	var ord Order
	result := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Tasks").
		Where("checkout_session_id = ?", sessionID).
		First(&ord)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.Validation("no order for checkout session %q", sessionID)
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}

	return &ord, nil
}

// GetByPaymentIntent retrieves an order by its payment intent id. An
// empty id is rejected: orders created before their payment intent is
// known store an empty string, which must never be matchable.
func (s *Service) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*Order, error) {
	if paymentIntentID == "" {
		return nil, errs.Validation("payment intent id is required")
	}
	var ord Order
	result := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Tasks").
		Where("payment_intent_id = ?", paymentIntentID).
		First(&ord)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.Validation("no order for payment intent %q", paymentIntentID)
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}

	return &ord, nil
}

// MarkPaid advances a pending order to paid.
func (s *Service) MarkPaid(ctx context.Context, orderID uint) error {
	var ord Order
	if err := s.db.WithContext(ctx).First(&ord, orderID).Error; err != nil {
		return fmt.Errorf("order not found: %w", err)
	}
	if ord.Status != OrderStatusPending {
		return nil
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&ord).Updates(map[string]interface{}{
		"status":  OrderStatusPaid,
		"paid_at": now,
	}).Error; err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	return nil
}

// validTransitions describes the order status state machine. Cancelled
// and refunded are terminal.
var validTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:          {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:             {OrderStatusProcessing, OrderStatusPartiallyShipped, OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusProcessing:       {OrderStatusPartiallyShipped, OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusPartiallyShipped: {OrderStatusShipped, OrderStatusRefunded},
	OrderStatusShipped:          {OrderStatusDelivered, OrderStatusRefunded},
	OrderStatusDelivered:        {OrderStatusRefunded},
}

// CanTransition reports whether an order status change is allowed.
func CanTransition(from, to OrderStatus) bool {
	for _, status := range validTransitions[from] {
		if status == to {
			return true
		}
	}
	return false
}
