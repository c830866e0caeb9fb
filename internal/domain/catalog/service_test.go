package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

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
	require.NoError(t, db.AutoMigrate(&Product{}, &ProductVariant{}))

	oil := Product{Name: "Cold-Pressed Rapeseed Oil", Slug: "rapeseed-oil", Producer: producer.KeyKiendler, IsActive: true}
	require.NoError(t, db.Create(&oil).Error)
	oilV := ProductVariant{ProductID: oil.ID, SKU: "KOL-250", Name: "250 ml", PriceCents: 1790, WeightGrams: 480, IsActive: true}
	require.NoError(t, db.Create(&oilV).Error)

	inactive := ProductVariant{ProductID: oil.ID, SKU: "KOL-OLD", Name: "old bottle", PriceCents: 1490, IsActive: false}
	require.NoError(t, db.Create(&inactive).Error)

	return NewService(db), db
}

func TestVariantBySKU(t *testing.T) {
	svc, _ := newTestService(t)

	variant, err := svc.VariantBySKU("KOL-250")
	require.NoError(t, err)
	assert.Equal(t, int64(1790), variant.PriceCents)
	assert.Equal(t, producer.KeyKiendler, variant.Product.Producer)

	_, err = svc.VariantBySKU("NOPE-1")
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}

func TestVariantBySKUServesFromCache(t *testing.T) {
	svc, db := newTestService(t)

	first, err := svc.VariantBySKU("KOL-250")
	require.NoError(t, err)

	// With the row gone, a repeat lookup can only come from the cache.
	require.NoError(t, db.Where("sku = ?", "KOL-250").Delete(&ProductVariant{}).Error)

	second, err := svc.VariantBySKU("KOL-250")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestResolveVariants(t *testing.T) {
	svc, db := newTestService(t)

	var active ProductVariant
	require.NoError(t, db.Where("sku = ?", "KOL-250").First(&active).Error)
	var inactive ProductVariant
	require.NoError(t, db.Where("sku = ?", "KOL-OLD").First(&inactive).Error)

	resolved, err := svc.ResolveVariants(db, []uint{active.ID})
	require.NoError(t, err)
	require.Contains(t, resolved, active.ID)
	assert.Equal(t, "KOL-250", resolved[active.ID].SKU)

	// Inactive and unknown ids fail the whole call, naming the offenders.
	_, err = svc.ResolveVariants(db, []uint{active.ID, inactive.ID, 9999})
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
	assert.Contains(t, err.Error(), "9999")

	_, err = svc.ResolveVariants(db, nil)
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}
