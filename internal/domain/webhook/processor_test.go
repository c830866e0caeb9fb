package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/farmshop-backend/internal/config"
	"github.com/your-org/farmshop-backend/internal/domain/catalog"
	"github.com/your-org/farmshop-backend/internal/domain/fulfillment"
	"github.com/your-org/farmshop-backend/internal/domain/ledger"
	"github.com/your-org/farmshop-backend/internal/domain/order"
	"github.com/your-org/farmshop-backend/internal/domain/producer"
	"github.com/your-org/farmshop-backend/internal/pkg/errs"
)

const testWebhookSecret = "whsec_test_secret"

type fakeProducerClient struct {
	calls int
	fail  bool
}

func (f *fakeProducerClient) SendOrder(context.Context, producer.OrderPayload) producer.DispatchResult {
	f.calls++
	if f.fail {
		return producer.DispatchResult{Success: false, Method: producer.MethodAPI, Error: "unreachable"}
	}
	return producer.DispatchResult{Success: true, ExternalID: fmt.Sprintf("EXT-%d", f.calls), Method: producer.MethodAPI}
}

func (f *fakeProducerClient) GetStatus(context.Context, string) (string, error) { return "", nil }
func (f *fakeProducerClient) Method() producer.Method                           { return producer.MethodAPI }

type fakeNotifier struct {
	sent []uint
}

func (n *fakeNotifier) SendOrderConfirmation(_ context.Context, ord *order.Order) error {
	n.sent = append(n.sent, ord.ID)
	return nil
}

type processorFixture struct {
	processor *Processor
	db        *gorm.DB
	notifier  *fakeNotifier
	producers map[producer.Key]*fakeProducerClient
	oilID     uint
	kernelID  uint
}

func newFixture(t *testing.T) *processorFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&catalog.Product{}, &catalog.ProductVariant{},
		&order.Order{}, &order.OrderItem{}, &order.FulfillmentTask{}, &order.FulfillmentEvent{},
		&ledger.LedgerEntry{}, &ledger.AuditLogEntry{},
		&ProcessedExternalEvent{},
	))

	oil := catalog.Product{Name: "Cold-Pressed Rapeseed Oil", Slug: "rapeseed-oil", Producer: producer.KeyKiendler, IsActive: true}
	require.NoError(t, db.Create(&oil).Error)
	oilV := catalog.ProductVariant{ProductID: oil.ID, SKU: "KOL-250", Name: "250 ml", PriceCents: 1790, WeightGrams: 480, IsActive: true}
	require.NoError(t, db.Create(&oilV).Error)

	kernels := catalog.Product{Name: "Pumpkin Seed Kernels", Slug: "pumpkin-seed-kernels", Producer: producer.KeyHernach, IsActive: true}
	require.NoError(t, db.Create(&kernels).Error)
	kernelV := catalog.ProductVariant{ProductID: kernels.ID, SKU: "KRN-100", Name: "100 g", PriceCents: 490, WeightGrams: 120, IsActive: true}
	require.NoError(t, db.Create(&kernelV).Error)

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{
		Payment:  config.PaymentConfig{WebhookSecret: testWebhookSecret, SignatureHeader: "X-Webhook-Signature"},
		Ledger:   config.LedgerConfig{PlatformTakeRateBps: 1000},
		Dispatch: config.DispatchConfig{MaxAttempts: 5},
	}

	producers := map[producer.Key]*fakeProducerClient{
		producer.KeyKiendler: {},
		producer.KeyHernach:  {},
	}
	registry := &producer.Registry{}
	for key, client := range producers {
		registry.Register(key, client)
	}

	catalogService := catalog.NewService(db)
	ledgerService := ledger.NewService(db, cfg, log)
	orderService := order.NewService(db, cfg, catalogService, ledgerService, log)
	dispatcher := fulfillment.NewDispatcher(db, registry, cfg, ledgerService, log)
	notifier := &fakeNotifier{}

	return &processorFixture{
		processor: NewProcessor(db, cfg, orderService, ledgerService, dispatcher, notifier, log),
		db:        db,
		notifier:  notifier,
		producers: producers,
		oilID:     oilV.ID,
		kernelID:  kernelV.ID,
	}
}

func (f *processorFixture) checkoutEvent(eventID, sessionID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "checkout.session.completed",
		"created": 1756512000,
		"data": {"object": {
			"id": %q,
			"payment_intent": "pi_100",
			"customer_email": "customer@example.com",
			"amount_total": 4570,
			"shipping_cents": 500,
			"payment_fee_cents": 120,
			"lines": [
				{"variant_id": %d, "quantity": 2},
				{"variant_id": %d, "quantity": 1}
			],
			"shipping_address": {
				"first_name": "Anna", "last_name": "Huber",
				"street": "Hauptstrasse 1", "city": "Graz",
				"postal_code": "8010", "country": "AT"
			}
		}}
	}`, eventID, sessionID, f.oilID, f.kernelID))
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"id":"evt_1"}`)

	assert.True(t, f.processor.VerifySignature(body, sign(body)))
	assert.False(t, f.processor.VerifySignature(body, "deadbeef"))
	assert.False(t, f.processor.VerifySignature(body, ""))
	assert.False(t, f.processor.VerifySignature([]byte(`{"id":"evt_2"}`), sign(body)))
}

func TestVerifySignatureWithoutSecret(t *testing.T) {
	f := newFixture(t)
	f.processor.config.Payment.WebhookSecret = ""
	body := []byte(`{"id":"evt_1"}`)
	assert.False(t, f.processor.VerifySignature(body, sign(body)))
}

func TestProcessCheckoutCompleted(t *testing.T) {
	f := newFixture(t)

	result, err := f.processor.Process(context.Background(), f.checkoutEvent("evt_1", "cs_100"))
	require.NoError(t, err)
	assert.True(t, result.Handled)
	assert.False(t, result.Duplicate)
	require.NotZero(t, result.OrderID)

	var ord order.Order
	require.NoError(t, f.db.Preload("Items").Preload("Tasks").First(&ord, result.OrderID).Error)
	assert.Equal(t, "cs_100", ord.CheckoutSessionID)
	assert.Equal(t, "pi_100", ord.PaymentIntentID)
	assert.Equal(t, int64(4570), ord.TotalCents)
	assert.Equal(t, "Hauptstrasse 1", ord.ShippingAddress.AddressLine1)
	require.Len(t, ord.Tasks, 2)

	// Dispatch runs right after creation.
	for _, task := range ord.Tasks {
		assert.Equal(t, order.TaskStatusSentToProducer, task.Status)
	}
	assert.Equal(t, []uint{ord.ID}, f.notifier.sent)

	var marker ProcessedExternalEvent
	require.NoError(t, f.db.Where("event_id = ?", "evt_1").First(&marker).Error)
	assert.Equal(t, EventCheckoutCompleted, marker.EventType)
}

func TestProcessDuplicateEvent(t *testing.T) {
	f := newFixture(t)

	_, err := f.processor.Process(context.Background(), f.checkoutEvent("evt_1", "cs_100"))
	require.NoError(t, err)

	second, err := f.processor.Process(context.Background(), f.checkoutEvent("evt_1", "cs_100"))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.False(t, second.Handled)

	var orderCount int64
	require.NoError(t, f.db.Model(&order.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(1), orderCount)
}

func TestProcessRedeliveredSessionUnderNewEventID(t *testing.T) {
	f := newFixture(t)

	first, err := f.processor.Process(context.Background(), f.checkoutEvent("evt_1", "cs_100"))
	require.NoError(t, err)

	// Same session redelivered under a fresh event id: the order guard
	// catches what the event dedup cannot.
	second, err := f.processor.Process(context.Background(), f.checkoutEvent("evt_2", "cs_100"))
	require.NoError(t, err)
	assert.False(t, second.Duplicate)
	assert.Equal(t, first.OrderID, second.OrderID)

	var orderCount int64
	require.NoError(t, f.db.Model(&order.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(1), orderCount)
	assert.Equal(t, []uint{first.OrderID}, f.notifier.sent)
}

func TestProcessMalformedEvents(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "not json at all"},
		{"missing event id", `{"type":"checkout.session.completed"}`},
		{"missing session id", `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.processor.Process(context.Background(), []byte(tt.body))
			require.Error(t, err)
			assert.True(t, errs.IsValidation(err))
		})
	}

	var markerCount int64
	require.NoError(t, f.db.Model(&ProcessedExternalEvent{}).Count(&markerCount).Error)
	assert.Equal(t, int64(0), markerCount)
}

func TestProcessUnknownEventType(t *testing.T) {
	f := newFixture(t)

	result, err := f.processor.Process(context.Background(), []byte(`{"id":"evt_9","type":"customer.updated","data":{"object":{}}}`))
	require.NoError(t, err)
	assert.False(t, result.Handled)
	assert.False(t, result.Duplicate)

	// Even ignored events are acknowledged durably.
	var markerCount int64
	require.NoError(t, f.db.Model(&ProcessedExternalEvent{}).Where("event_id = ?", "evt_9").Count(&markerCount).Error)
	assert.Equal(t, int64(1), markerCount)
}

func TestProcessHandlerFailureLeavesEventUnrecorded(t *testing.T) {
	f := newFixture(t)

	body := []byte(`{
		"id": "evt_bad",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_bad",
			"customer_email": "customer@example.com",
			"lines": [{"variant_id": 9999, "quantity": 1}]
		}}
	}`)
	_, err := f.processor.Process(context.Background(), body)
	require.Error(t, err)

	var markerCount int64
	require.NoError(t, f.db.Model(&ProcessedExternalEvent{}).Where("event_id = ?", "evt_bad").Count(&markerCount).Error)
	assert.Equal(t, int64(0), markerCount)

	// A later redelivery of the same event id is processed, not deduplicated.
	result, err := f.processor.Process(context.Background(), f.checkoutEvent("evt_bad", "cs_100"))
	require.NoError(t, err)
	assert.True(t, result.Handled)
	assert.False(t, result.Duplicate)
}

func TestProcessChargeRefunded(t *testing.T) {
	f := newFixture(t)

	created, err := f.processor.Process(context.Background(), f.checkoutEvent("evt_1", "cs_100"))
	require.NoError(t, err)

	refund := []byte(`{
		"id": "evt_2",
		"type": "charge.refunded",
		"data": {"object": {
			"id": "ch_100",
			"payment_intent": "pi_100",
			"refund_id": "re_100",
			"amount_cents": 2000,
			"reason": "damaged in transit"
		}}
	}`)
	result, err := f.processor.Process(context.Background(), refund)
	require.NoError(t, err)
	assert.True(t, result.Handled)
	assert.Equal(t, created.OrderID, result.OrderID)

	var entries []ledger.LedgerEntry
	require.NoError(t, f.db.Where("order_id = ?", created.OrderID).Order("id ASC").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, ledger.EntryTypePartialRefund, entries[1].EntryType)
	assert.Equal(t, int64(-2000), entries[1].RevenueCents)

	// Redelivered refund events change nothing.
	redelivered := []byte(`{
		"id": "evt_3",
		"type": "charge.refunded",
		"data": {"object": {
			"id": "ch_100",
			"payment_intent": "pi_100",
			"refund_id": "re_100",
			"amount_cents": 2000
		}}
	}`)
	_, err = f.processor.Process(context.Background(), redelivered)
	require.NoError(t, err)
	var entryCount int64
	require.NoError(t, f.db.Model(&ledger.LedgerEntry{}).Where("order_id = ?", created.OrderID).Count(&entryCount).Error)
	assert.Equal(t, int64(2), entryCount)
}

func TestProcessChargeRefundedWithoutPaymentIntent(t *testing.T) {
	f := newFixture(t)

	// An order whose checkout carried no payment intent stores "".
	checkout := []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_100",
			"customer_email": "customer@example.com",
			"shipping_cents": 500,
			"lines": [{"variant_id": %d, "quantity": 1}]
		}}
	}`, f.oilID))
	created, err := f.processor.Process(context.Background(), checkout)
	require.NoError(t, err)

	// A refund event without a payment intent must not resolve to it.
	refund := []byte(`{
		"id": "evt_2",
		"type": "charge.refunded",
		"data": {"object": {
			"id": "ch_other",
			"refund_id": "re_ghost",
			"amount_cents": 1000
		}}
	}`)
	_, err = f.processor.Process(context.Background(), refund)
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))

	var refundCount int64
	require.NoError(t, f.db.Model(&ledger.LedgerEntry{}).
		Where("order_id = ? AND entry_type <> ?", created.OrderID, ledger.EntryTypeSale).
		Count(&refundCount).Error)
	assert.Equal(t, int64(0), refundCount)

	var markerCount int64
	require.NoError(t, f.db.Model(&ProcessedExternalEvent{}).Where("event_id = ?", "evt_2").Count(&markerCount).Error)
	assert.Equal(t, int64(0), markerCount)
}

func TestProcessChargeRefundedAmountFallback(t *testing.T) {
	f := newFixture(t)

	created, err := f.processor.Process(context.Background(), f.checkoutEvent("evt_1", "cs_100"))
	require.NoError(t, err)

	refund := []byte(`{
		"id": "evt_2",
		"type": "charge.refunded",
		"data": {"object": {
			"payment_intent": "pi_100",
			"refund_id": "re_100",
			"amount_refunded": 1500
		}}
	}`)
	_, err = f.processor.Process(context.Background(), refund)
	require.NoError(t, err)

	var entry ledger.LedgerEntry
	require.NoError(t, f.db.Where("order_id = ? AND entry_type = ?", created.OrderID, ledger.EntryTypePartialRefund).First(&entry).Error)
	assert.Equal(t, int64(-1500), entry.RevenueCents)
}

func TestProcessPaymentSucceeded(t *testing.T) {
	f := newFixture(t)

	// A pending order waiting for its payment confirmation.
	ord := order.Order{
		OrderNumber:       "ORD-20260830-AB12CD",
		Email:             "customer@example.com",
		Status:            order.OrderStatusPending,
		CheckoutSessionID: "cs_pending",
	}
	require.NoError(t, f.db.Create(&ord).Error)

	body := []byte(`{
		"id": "evt_pay",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_200", "checkout_session": "cs_pending", "amount": 4570}}
	}`)
	result, err := f.processor.Process(context.Background(), body)
	require.NoError(t, err)
	assert.True(t, result.Handled)

	var updated order.Order
	require.NoError(t, f.db.First(&updated, ord.ID).Error)
	assert.Equal(t, order.OrderStatusPaid, updated.Status)
	assert.Equal(t, "pi_200", updated.PaymentIntentID)
	assert.NotNil(t, updated.PaidAt)
}

func TestProcessPaymentSucceededWithoutOrder(t *testing.T) {
	f := newFixture(t)

	body := []byte(`{
		"id": "evt_pay",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_999", "checkout_session": "cs_unknown"}}
	}`)
	result, err := f.processor.Process(context.Background(), body)
	require.NoError(t, err)
	assert.True(t, result.Handled)

	var orderCount int64
	require.NoError(t, f.db.Model(&order.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(0), orderCount)
}
