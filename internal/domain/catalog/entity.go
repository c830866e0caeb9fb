// internal/domain/catalog/entity.go
package catalog

import (
	"time"

	"github.com/your-org/farmshop-backend/internal/domain/producer"
)

// Product is one sellable product owned by exactly one producer. The
// producer assignment on order items derives from here, never from
// client input.
type Product struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null;size:255" json:"name"`
	Slug      string       `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Producer  producer.Key `gorm:"not null;size:50;index" json:"producer"`
	IsActive  bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`

	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
}

// ProductVariant is one purchasable variant (size/weight) of a product.
// Unit price is snapshotted onto order items at order time.
type ProductVariant struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProductID   uint      `gorm:"not null;index" json:"product_id"`
	SKU         string    `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name        string    `gorm:"not null;size:255" json:"name"` // e.g. "250 ml"
	PriceCents  int64     `gorm:"not null" json:"price_cents"`
	WeightGrams int       `gorm:"not null;default:0" json:"weight_grams"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName overrides
func (Product) TableName() string        { return "products" }
func (ProductVariant) TableName() string { return "product_variants" }
