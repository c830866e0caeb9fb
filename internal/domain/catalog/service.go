// internal/domain/catalog/service.go
package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"github.com/your-org/farmshop-backend/internal/pkg/errs"
)

// Service handles catalog lookups
type Service struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewService creates a new catalog service
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:    db,
		cache: cache.New(5*time.Minute, 10*time.Minute),
	}
}

// ResolveVariants loads the given variant ids with their owning products
// through the supplied transaction handle. Every id must resolve to an
// existing, active variant of an active product; otherwise the whole call
// fails listing the offending ids.
func (s *Service) ResolveVariants(tx *gorm.DB, variantIDs []uint) (map[uint]*ProductVariant, error) {
	if len(variantIDs) == 0 {
		return nil, errs.Validation("no variant ids given")
	}

	var variants []ProductVariant
	if err := tx.Preload("Product").Where("id IN ?", variantIDs).Find(&variants).Error; err != nil {
		return nil, fmt.Errorf("failed to load product variants: %w", err)
	}

	resolved := make(map[uint]*ProductVariant, len(variants))
	for i := range variants {
		v := &variants[i]
		if !v.IsActive || !v.Product.IsActive {
			continue
		}
		resolved[v.ID] = v
	}

	var missing []string
	for _, id := range variantIDs {
		if _, ok := resolved[id]; !ok {
			missing = append(missing, fmt.Sprintf("%d", id))
		}
	}
	if len(missing) > 0 {
		return nil, errs.Validation("unknown variant(s): %s", strings.Join(missing, ", "))
	}

	return resolved, nil
}

// VariantBySKU looks a variant up by SKU on the read path, with a short
// in-process cache. Not used inside write transactions, which go through
// ResolveVariants on their own handle.
func (s *Service) VariantBySKU(sku string) (*ProductVariant, error) {
	if cached, ok := s.cache.Get("sku:" + sku); ok {
		return cached.(*ProductVariant), nil
	}

	var variant ProductVariant
	if err := s.db.Preload("Product").Where("sku = ?", sku).First(&variant).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.Validation("unknown SKU %q", sku)
		}
		return nil, fmt.Errorf("failed to load variant %q: %w", sku, err)
	}

	s.cache.Set("sku:"+sku, &variant, cache.DefaultExpiration)
	return &variant, nil
}
