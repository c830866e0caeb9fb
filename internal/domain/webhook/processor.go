// internal/domain/webhook/processor.go
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/farmshop-backend/internal/config"
	"github.com/your-org/farmshop-backend/internal/domain/fulfillment"
	"github.com/your-org/farmshop-backend/internal/domain/ledger"
	"github.com/your-org/farmshop-backend/internal/domain/order"
	"github.com/your-org/farmshop-backend/internal/pkg/errs"
)

// Notifier sends customer-facing order mail. Failures are logged, never
// surfaced to the payment provider.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, ord *order.Order) error
}

// Processor turns verified payment provider events into domain actions.
// Every event is processed at most once; redeliveries are acknowledged
// without side effects.
type Processor struct {
	db            *gorm.DB
	config        *config.Config
	orderService  *order.Service
	ledgerService *ledger.Service
	dispatcher    *fulfillment.Dispatcher
	notifier      Notifier
	logger        *logrus.Logger

	// seen shortcuts the dedup lookup for events redelivered within
	// minutes; the unique index on processed_external_events is the
	// durable guard.
	seen *cache.Cache
}

// NewProcessor creates a new webhook processor
func NewProcessor(db *gorm.DB, cfg *config.Config, orderService *order.Service, ledgerService *ledger.Service, dispatcher *fulfillment.Dispatcher, notifier Notifier, logger *logrus.Logger) *Processor {
	return &Processor{
		db:            db,
		config:        cfg,
		orderService:  orderService,
		ledgerService: ledgerService,
		dispatcher:    dispatcher,
		notifier:      notifier,
		logger:        logger,
		seen:          cache.New(15*time.Minute, 30*time.Minute),
	}
}

// VerifySignature checks the HMAC-SHA256 hex signature over the raw
// request body in constant time.
func (p *Processor) VerifySignature(body []byte, signature string) bool {
	if p.config.Payment.WebhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(p.config.Payment.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Result reports what processing an event did.
type Result struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Handled   bool   `json:"handled"`
	Duplicate bool   `json:"duplicate"`
	OrderID   uint   `json:"order_id,omitempty"`
}

// Process decodes and routes one event. The dedup record is written only
// after the handler succeeds, so a failed event stays unprocessed and a
// provider redelivery gets another chance.
func (p *Processor) Process(ctx context.Context, body []byte) (*Result, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, errs.Validation("malformed event payload: %v", err)
	}
	if event.ID == "" {
		return nil, errs.Validation("event id is required")
	}

	if p.isDuplicate(ctx, event.ID) {
		p.logger.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).Info("Duplicate event acknowledged")
		return &Result{EventID: event.ID, EventType: event.Type, Duplicate: true}, nil
	}

	result := &Result{EventID: event.ID, EventType: event.Type}
	var err error
	switch event.Type {
	case EventCheckoutCompleted:
		result.OrderID, err = p.handleCheckoutCompleted(ctx, &event)
		result.Handled = err == nil
	case EventChargeRefunded:
		result.OrderID, err = p.handleChargeRefunded(ctx, &event)
		result.Handled = err == nil
	case EventPaymentSucceeded:
		err = p.handlePaymentSucceeded(ctx, &event)
		result.Handled = err == nil
	default:
		p.logger.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).Info("Ignoring unhandled event type")
	}
	if err != nil {
		return nil, err
	}

	if err := p.markProcessed(ctx, &event); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Processor) isDuplicate(ctx context.Context, eventID string) bool {
	if _, found := p.seen.Get(eventID); found {
		return true
	}
	var count int64
	if err := p.db.WithContext(ctx).Model(&ProcessedExternalEvent{}).
		Where("event_id = ?", eventID).Count(&count).Error; err != nil {
		p.logger.WithError(err).Warn("Dedup lookup failed, treating event as new")
		return false
	}
	return count > 0
}

func (p *Processor) markProcessed(ctx context.Context, event *Event) error {
	record := ProcessedExternalEvent{
		EventID:     event.ID,
		EventType:   event.Type,
		ProcessedAt: time.Now().UTC(),
	}
	if err := p.db.WithContext(ctx).Create(&record).Error; err != nil {
		// A concurrent delivery beat us to the marker; the work is done.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return fmt.Errorf("failed to record processed event: %w", err)
	}
	p.seen.Set(event.ID, struct{}{}, cache.DefaultExpiration)
	return nil
}

// handleCheckoutCompleted creates the order, triggers producer dispatch
// and sends the confirmation mail. Dispatch and mail failures do not
// fail the event: the order exists, retries happen on their own tracks.
func (p *Processor) handleCheckoutCompleted(ctx context.Context, event *Event) (uint, error) {
	var payload CheckoutPayload
	if err := json.Unmarshal(event.Data.Object, &payload); err != nil {
		return 0, errs.Validation("malformed checkout payload: %v", err)
	}
	if payload.SessionID == "" {
		return 0, errs.Validation("checkout session id is required")
	}

	lines := make([]order.CartLine, 0, len(payload.Lines))
	for _, l := range payload.Lines {
		lines = append(lines, order.CartLine{VariantID: l.VariantID, Quantity: l.Quantity})
	}

	created, err := p.orderService.CreateFromCheckout(ctx, &order.CreateOrderInput{
		CustomerID:          payload.CustomerID,
		GuestEmail:          payload.CustomerEmail,
		Lines:               lines,
		ShippingAddress:     toAddress(payload.ShippingAddress),
		BillingAddress:      toAddress(payload.BillingAddress),
		ShippingCents:       payload.ShippingCents,
		PaymentFeeCents:     payload.PaymentFeeCents,
		CheckoutSessionID:   payload.SessionID,
		PaymentIntentID:     payload.PaymentIntentID,
		AttributionSource:   payload.AttributionSource,
		AttributionCampaign: payload.AttributionCampaign,
		Notes:               payload.Notes,
		PerformedBy:         "webhook",
	})
	if err != nil {
		return 0, err
	}
	if created.AlreadyExists {
		return created.Order.ID, nil
	}

	if _, err := p.dispatcher.DispatchPendingTasks(ctx, created.Order.ID); err != nil {
		p.logger.WithError(err).WithField("order_id", created.Order.ID).Error("Producer dispatch after checkout failed")
	}

	if p.notifier != nil {
		if err := p.notifier.SendOrderConfirmation(ctx, created.Order); err != nil {
			p.logger.WithError(err).WithField("order_id", created.Order.ID).Error("Order confirmation mail failed")
		}
	}

	return created.Order.ID, nil
}

func (p *Processor) handleChargeRefunded(ctx context.Context, event *Event) (uint, error) {
	var payload RefundPayload
	if err := json.Unmarshal(event.Data.Object, &payload); err != nil {
		return 0, errs.Validation("malformed refund payload: %v", err)
	}
	if payload.RefundID == "" {
		return 0, errs.Validation("refund id is required")
	}
	// An empty payment intent would match orders whose checkout never
	// carried one, booking the refund against an unrelated order.
	if payload.PaymentIntentID == "" {
		return 0, errs.Validation("payment intent id is required")
	}
	amount := payload.AmountCents
	if amount == 0 {
		amount = payload.AmountRefunded
	}
	if amount <= 0 {
		return 0, errs.Validation("refund amount must be positive")
	}

	ord, err := p.orderService.GetByPaymentIntent(ctx, payload.PaymentIntentID)
	if err != nil {
		return 0, err
	}

	result, err := p.ledgerService.ProcessRefund(ctx, ledger.RefundInput{
		OrderID:          ord.ID,
		AmountCents:      amount,
		ExternalRefundID: payload.RefundID,
		Reason:           payload.Reason,
		PerformedBy:      "webhook",
	})
	if err != nil {
		return 0, err
	}
	if result.AlreadyProcessed {
		p.logger.WithFields(logrus.Fields{
			"order_id":  ord.ID,
			"refund_id": payload.RefundID,
		}).Info("Refund already recorded")
	}
	return ord.ID, nil
}

// handlePaymentSucceeded backfills the payment intent id and marks a
// pending order paid. When the order does not exist yet the event is a
// no-op: checkout.session.completed carries the authoritative creation.
func (p *Processor) handlePaymentSucceeded(ctx context.Context, event *Event) error {
	var payload PaymentPayload
	if err := json.Unmarshal(event.Data.Object, &payload); err != nil {
		return errs.Validation("malformed payment payload: %v", err)
	}

	ord, err := p.orderService.GetByCheckoutSession(ctx, payload.SessionID)
	if err != nil {
		if errs.IsValidation(err) {
			p.logger.WithField("session_id", payload.SessionID).Info("Payment succeeded before order creation, ignoring")
			return nil
		}
		return err
	}

	if ord.PaymentIntentID == "" && payload.PaymentIntentID != "" {
		if err := p.db.WithContext(ctx).Model(&order.Order{}).Where("id = ?", ord.ID).
			Update("payment_intent_id", payload.PaymentIntentID).Error; err != nil {
			return fmt.Errorf("failed to backfill payment intent: %w", err)
		}
	}
	return p.orderService.MarkPaid(ctx, ord.ID)
}

func toAddress(a AddressPayload) order.Address {
	return order.Address{
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Company:      a.Company,
		AddressLine1: a.Street,
		City:         a.City,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
		Phone:        a.Phone,
	}
}
