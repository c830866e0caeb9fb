package order

import (
	"context"
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
	"github.com/your-org/farmshop-backend/internal/domain/ledger"
	"github.com/your-org/farmshop-backend/internal/domain/producer"
	"github.com/your-org/farmshop-backend/internal/pkg/errs"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&catalog.Product{}, &catalog.ProductVariant{},
		&Order{}, &OrderItem{}, &FulfillmentTask{}, &FulfillmentEvent{},
		&ledger.LedgerEntry{}, &ledger.AuditLogEntry{},
	))

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{
		Ledger: config.LedgerConfig{PlatformTakeRateBps: 1000},
	}

	catalogService := catalog.NewService(db)
	ledgerService := ledger.NewService(db, cfg, log)
	return NewService(db, cfg, catalogService, ledgerService, log), db
}

func seedCatalog(t *testing.T, db *gorm.DB) (oilVariant, kernelVariant uint) {
	t.Helper()

	oil := catalog.Product{Name: "Cold-Pressed Rapeseed Oil", Slug: "rapeseed-oil", Producer: producer.KeyKiendler, IsActive: true}
	require.NoError(t, db.Create(&oil).Error)
	oilV := catalog.ProductVariant{ProductID: oil.ID, SKU: "KOL-250", Name: "250 ml", PriceCents: 1790, WeightGrams: 480, IsActive: true}
	require.NoError(t, db.Create(&oilV).Error)

	kernels := catalog.Product{Name: "Pumpkin Seed Kernels", Slug: "pumpkin-seed-kernels", Producer: producer.KeyHernach, IsActive: true}
	require.NoError(t, db.Create(&kernels).Error)
	kernelV := catalog.ProductVariant{ProductID: kernels.ID, SKU: "KRN-100", Name: "100 g", PriceCents: 490, WeightGrams: 120, IsActive: true}
	require.NoError(t, db.Create(&kernelV).Error)

	return oilV.ID, kernelV.ID
}

func checkoutInput(oilVariant, kernelVariant uint) *CreateOrderInput {
	return &CreateOrderInput{
		GuestEmail: "customer@example.com",
		Lines: []CartLine{
			{VariantID: oilVariant, Quantity: 2},
			{VariantID: kernelVariant, Quantity: 1},
		},
		ShippingAddress: Address{
			FirstName:    "Anna",
			LastName:     "Huber",
			AddressLine1: "Hauptstrasse 1",
			City:         "Graz",
			PostalCode:   "8010",
			Country:      "AT",
		},
		ShippingCents:     500,
		PaymentFeeCents:   120,
		CheckoutSessionID: "cs_test_123",
		PaymentIntentID:   "pi_test_123",
		PerformedBy:       "webhook",
	}
}

func TestCreateFromCheckout(t *testing.T) {
	svc, db := newTestService(t)
	oilVariant, kernelVariant := seedCatalog(t, db)

	result, err := svc.CreateFromCheckout(context.Background(), checkoutInput(oilVariant, kernelVariant))
	require.NoError(t, err)
	require.False(t, result.AlreadyExists)

	ord := result.Order
	assert.Equal(t, OrderStatusPaid, ord.Status)
	assert.NotNil(t, ord.PaidAt)
	assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{6}$`, ord.OrderNumber)
	assert.Equal(t, int64(4070), ord.SubtotalCents)
	assert.Equal(t, int64(4570), ord.TotalCents)
	assert.Equal(t, "customer@example.com", ord.Email)

	// Prices come from the catalog, never from the request.
	require.Len(t, ord.Items, 2)
	assert.Equal(t, int64(1790), ord.Items[0].UnitPriceCents)
	assert.Equal(t, int64(3580), ord.Items[0].LineTotalCents)
	assert.Equal(t, producer.KeyKiendler, ord.Items[0].Producer)
	assert.Equal(t, producer.KeyHernach, ord.Items[1].Producer)

	// One task per distinct producer.
	require.Len(t, result.TaskIDs, 2)
	var tasks []FulfillmentTask
	require.NoError(t, db.Where("order_id = ?", ord.ID).Order("id ASC").Find(&tasks).Error)
	require.Len(t, tasks, 2)
	assert.Equal(t, producer.KeyKiendler, tasks[0].Producer)
	assert.Equal(t, producer.KeyHernach, tasks[1].Producer)
	assert.Equal(t, TaskStatusPending, tasks[0].Status)
	assert.Equal(t, TaskStatusPending, tasks[1].Status)

	// The sale ledger entry is written in the same transaction.
	var entry ledger.LedgerEntry
	require.NoError(t, db.First(&entry, result.LedgerEntryID).Error)
	assert.Equal(t, ledger.EntryTypeSale, entry.EntryType)
	assert.Equal(t, int64(4570), entry.RevenueCents)
	assert.Equal(t, int64(1270), entry.ProducerCostCents)
	assert.Equal(t, int64(2680), entry.GrossProfitCents)
	assert.NoError(t, entry.CheckIntegrity())
}

func TestCreateFromCheckoutDuplicateSession(t *testing.T) {
	svc, db := newTestService(t)
	oilVariant, kernelVariant := seedCatalog(t, db)

	first, err := svc.CreateFromCheckout(context.Background(), checkoutInput(oilVariant, kernelVariant))
	require.NoError(t, err)

	second, err := svc.CreateFromCheckout(context.Background(), checkoutInput(oilVariant, kernelVariant))
	require.NoError(t, err)
	assert.True(t, second.AlreadyExists)
	assert.Equal(t, first.Order.ID, second.Order.ID)

	var orderCount, entryCount int64
	require.NoError(t, db.Model(&Order{}).Count(&orderCount).Error)
	require.NoError(t, db.Model(&ledger.LedgerEntry{}).Count(&entryCount).Error)
	assert.Equal(t, int64(1), orderCount)
	assert.Equal(t, int64(1), entryCount)
}

func TestCreateFromCheckoutUnknownVariant(t *testing.T) {
	svc, db := newTestService(t)
	oilVariant, _ := seedCatalog(t, db)

	in := checkoutInput(oilVariant, 9999)
	_, err := svc.CreateFromCheckout(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))

	// Nothing may survive a failed creation.
	var orderCount int64
	require.NoError(t, db.Model(&Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(0), orderCount)
}

func TestCreateFromCheckoutValidation(t *testing.T) {
	svc, db := newTestService(t)
	oilVariant, kernelVariant := seedCatalog(t, db)

	tests := []struct {
		name   string
		mutate func(*CreateOrderInput)
	}{
		{"missing session id", func(in *CreateOrderInput) { in.CheckoutSessionID = "" }},
		{"no customer identity", func(in *CreateOrderInput) { in.GuestEmail = ""; in.CustomerID = nil }},
		{"empty cart", func(in *CreateOrderInput) { in.Lines = nil }},
		{"zero quantity", func(in *CreateOrderInput) { in.Lines[0].Quantity = 0 }},
		{"negative shipping", func(in *CreateOrderInput) { in.ShippingCents = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := checkoutInput(oilVariant, kernelVariant)
			tt.mutate(in)
			_, err := svc.CreateFromCheckout(context.Background(), in)
			require.Error(t, err)
			assert.True(t, errs.IsValidation(err))
		})
	}
}

func TestGetOrdersProducerFilter(t *testing.T) {
	svc, db := newTestService(t)
	oilVariant, kernelVariant := seedCatalog(t, db)

	oilOnly := checkoutInput(oilVariant, kernelVariant)
	oilOnly.Lines = []CartLine{{VariantID: oilVariant, Quantity: 1}}
	oilOnly.CheckoutSessionID = "cs_oil"
	_, err := svc.CreateFromCheckout(context.Background(), oilOnly)
	require.NoError(t, err)

	kernelsOnly := checkoutInput(oilVariant, kernelVariant)
	kernelsOnly.Lines = []CartLine{{VariantID: kernelVariant, Quantity: 1}}
	kernelsOnly.CheckoutSessionID = "cs_kernels"
	kernelResult, err := svc.CreateFromCheckout(context.Background(), kernelsOnly)
	require.NoError(t, err)

	resp, err := svc.GetOrders(context.Background(), &OrderListRequest{Producer: producer.KeyHernach})
	require.NoError(t, err)
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, kernelResult.Order.ID, resp.Orders[0].ID)
	assert.Equal(t, int64(1), resp.Pagination.Total)

	resp, err = svc.GetOrders(context.Background(), &OrderListRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Orders, 2)
}

func TestOrderProducersFirstSeenOrder(t *testing.T) {
	ord := Order{Items: []OrderItem{
		{Producer: producer.KeyHernach},
		{Producer: producer.KeyKiendler},
		{Producer: producer.KeyHernach},
	}}
	assert.Equal(t, []producer.Key{producer.KeyHernach, producer.KeyKiendler}, ord.Producers())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(OrderStatusPaid, OrderStatusProcessing))
	assert.True(t, CanTransition(OrderStatusShipped, OrderStatusDelivered))
	assert.False(t, CanTransition(OrderStatusRefunded, OrderStatusPaid))
	assert.False(t, CanTransition(OrderStatusDelivered, OrderStatusPending))
}
