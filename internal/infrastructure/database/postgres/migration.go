// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/your-org/farmshop-backend/internal/domain/catalog"
	"github.com/your-org/farmshop-backend/internal/domain/ledger"
	"github.com/your-org/farmshop-backend/internal/domain/operator"
	"github.com/your-org/farmshop-backend/internal/domain/order"
	"github.com/your-org/farmshop-backend/internal/domain/producer"
	"github.com/your-org/farmshop-backend/internal/domain/webhook"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("Running database auto-migrations...")

	// Dependency order matters: orders before their items and tasks,
	// ledger entries after orders.
	models := []interface{}{
		&operator.Operator{},

		&catalog.Product{},
		&catalog.ProductVariant{},

		&order.Order{},
		&order.OrderItem{},
		&order.FulfillmentTask{},
		&order.FulfillmentEvent{},

		&ledger.LedgerEntry{},
		&ledger.AuditLogEntry{},
		&ledger.PeriodReport{},

		&webhook.ProcessedExternalEvent{},
	}

	for _, model := range models {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_email ON orders(email)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",

		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_sku ON order_items(sku)",

		"CREATE INDEX IF NOT EXISTS idx_tasks_status ON fulfillment_tasks(status)",
		"CREATE INDEX IF NOT EXISTS idx_tasks_producer_status ON fulfillment_tasks(producer, status)",
		"CREATE INDEX IF NOT EXISTS idx_fulfillment_events_task ON fulfillment_events(task_id, created_at DESC)",

		"CREATE INDEX IF NOT EXISTS idx_ledger_entries_order ON ledger_entries(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_ledger_entries_type_created ON ledger_entries(entry_type, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_audit_log_entity ON audit_log_entries(entity_type, entity_id)",
		"CREATE INDEX IF NOT EXISTS idx_period_reports_period ON period_reports(period_start, period_end)",
	}

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("Failed to create index: %v", err)
		}
	}

	return nil
}

// SeedInitialData inserts the catalog and a development operator.
func (m *Migration) SeedInitialData() error {
	if err := m.seedCatalog(); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	if err := m.seedDevOperator(); err != nil {
		return fmt.Errorf("failed to seed operator: %w", err)
	}
	return nil
}

// seedCatalog inserts the product catalog. SKUs are stable identifiers
// shared with the producers, so they are created here rather than
// through an admin surface.
func (m *Migration) seedCatalog() error {
	type seedVariant struct {
		sku         string
		name        string
		priceCents  int64
		weightGrams int
	}
	type seedProduct struct {
		name     string
		slug     string
		producer producer.Key
		variants []seedVariant
	}

	seeds := []seedProduct{
		{
			name:     "Cold-Pressed Rapeseed Oil",
			slug:     "rapeseed-oil",
			producer: producer.KeyKiendler,
			variants: []seedVariant{
				{sku: "KOL-100", name: "100 ml", priceCents: 890, weightGrams: 220},
				{sku: "KOL-250", name: "250 ml", priceCents: 1790, weightGrams: 480},
				{sku: "KOL-500", name: "500 ml", priceCents: 2890, weightGrams: 900},
			},
		},
		{
			name:     "Pumpkin Seed Kernels",
			slug:     "pumpkin-seed-kernels",
			producer: producer.KeyHernach,
			variants: []seedVariant{
				{sku: "KRN-100", name: "100 g", priceCents: 490, weightGrams: 120},
				{sku: "KRN-250", name: "250 g", priceCents: 990, weightGrams: 280},
			},
		},
		{
			name:     "Blossom Honey",
			slug:     "blossom-honey",
			producer: producer.KeyHernach,
			variants: []seedVariant{
				{sku: "HON-500", name: "500 g", priceCents: 990, weightGrams: 750},
			},
		},
	}

	for _, seed := range seeds {
		var existing catalog.Product
		result := m.db.Where("slug = ?", seed.slug).First(&existing)
		if result.Error == nil {
			continue
		}

		p := catalog.Product{
			Name:     seed.name,
			Slug:     seed.slug,
			Producer: seed.producer,
			IsActive: true,
		}
		if err := m.db.Create(&p).Error; err != nil {
			return err
		}
		for _, v := range seed.variants {
			variant := catalog.ProductVariant{
				ProductID:   p.ID,
				SKU:         v.sku,
				Name:        v.name,
				PriceCents:  v.priceCents,
				WeightGrams: v.weightGrams,
				IsActive:    true,
			}
			if err := m.db.Create(&variant).Error; err != nil {
				return err
			}
		}
		log.Printf("Seeded product: %s", seed.name)
	}

	return nil
}

// seedDevOperator creates a local login so the dashboard is usable right
// after the first migration. Production operators are provisioned with
// scripts/generate_password.go.
func (m *Migration) seedDevOperator() error {
	var existing operator.Operator
	result := m.db.Where("email = ?", "operator@example.com").First(&existing)
	if result.Error == nil {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("Operator123"), 10)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	op := operator.Operator{
		Email:        "operator@example.com",
		Name:         "Dev Operator",
		PasswordHash: string(hashedPassword),
		IsActive:     true,
	}
	if err := m.db.Create(&op).Error; err != nil {
		return fmt.Errorf("failed to create operator: %w", err)
	}

	log.Println("Seeded dev operator: operator@example.com")
	return nil
}
