// internal/domain/ledger/entity.go
package ledger

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// EntryType classifies a ledger entry
type EntryType string

const (
	EntryTypeSale          EntryType = "sale"
	EntryTypePartialRefund EntryType = "partial_refund"
	EntryTypeFullRefund    EntryType = "full_refund"
	EntryTypeAdjustment    EntryType = "adjustment"
)

// LedgerEntry is one immutable financial fact tied to an order. All money
// fields are signed integer cents: positive for a sale, the proportional
// negative for a refund. Rows are append-only; corrections are new
// adjustment entries, never updates.
type LedgerEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	EntryType EntryType `gorm:"not null;size:20" json:"entry_type"`

	// Cost breakdown
	RevenueCents      int64 `gorm:"not null" json:"revenue_cents"`
	ProducerCostCents int64 `gorm:"not null;default:0" json:"producer_cost_cents"`
	PackagingCents    int64 `gorm:"not null;default:0" json:"packaging_cents"`
	ShippingCents     int64 `gorm:"not null;default:0" json:"shipping_cents"`
	PaymentFeeCents   int64 `gorm:"not null;default:0" json:"payment_fee_cents"`
	CustomsCents      int64 `gorm:"not null;default:0" json:"customs_cents"`

	// Derived figures. The three shares always sum to gross profit.
	GrossProfitCents   int64 `gorm:"not null" json:"gross_profit_cents"`
	PlatformShareCents int64 `gorm:"not null;default:0" json:"platform_share_cents"`
	PartnerAShareCents int64 `gorm:"not null;default:0" json:"partner_a_share_cents"`
	PartnerBShareCents int64 `gorm:"not null;default:0" json:"partner_b_share_cents"`

	// Notes carries free text plus the external refund id marker used for
	// idempotency matching on refund entries.
	Notes string `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeUpdate blocks any update to a ledger entry.
func (LedgerEntry) BeforeUpdate(tx *gorm.DB) error {
	return fmt.Errorf("ledger entries are append-only")
}

// BeforeDelete blocks any delete of a ledger entry.
func (LedgerEntry) BeforeDelete(tx *gorm.DB) error {
	return fmt.Errorf("ledger entries are append-only")
}

// Costs returns the entry's cost breakdown.
func (e *LedgerEntry) Costs() CostBreakdown {
	return CostBreakdown{
		RevenueCents:      e.RevenueCents,
		ProducerCostCents: e.ProducerCostCents,
		PackagingCents:    e.PackagingCents,
		ShippingCents:     e.ShippingCents,
		PaymentFeeCents:   e.PaymentFeeCents,
		CustomsCents:      e.CustomsCents,
	}
}

// CheckIntegrity verifies the arithmetic invariants of the entry. A
// violation here means financial corruption and must abort the enclosing
// transaction.
func (e *LedgerEntry) CheckIntegrity() error {
	if got, want := e.GrossProfitCents, e.Costs().GrossProfit(); got != want {
		return fmt.Errorf("gross profit %d does not match cost breakdown (want %d)", got, want)
	}
	if sum := e.PlatformShareCents + e.PartnerAShareCents + e.PartnerBShareCents; sum != e.GrossProfitCents {
		return fmt.Errorf("profit-split shares sum to %d, gross profit is %d", sum, e.GrossProfitCents)
	}
	return nil
}

// AuditLogEntry records one state-changing action. Write-only from the
// core's point of view.
type AuditLogEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	EntityType  string    `gorm:"not null;size:50;index" json:"entity_type"`
	EntityID    uint      `gorm:"not null;index" json:"entity_id"`
	Action      string    `gorm:"not null;size:100" json:"action"`
	OldValue    string    `gorm:"type:text" json:"old_value,omitempty"`
	NewValue    string    `gorm:"type:text" json:"new_value,omitempty"`
	PerformedBy string    `gorm:"not null;size:255" json:"performed_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReportStatus marks whether a period report is the current one for its
// period or has been superseded.
type ReportStatus string

const (
	ReportStatusActive   ReportStatus = "active"
	ReportStatusArchived ReportStatus = "archived"
)

// PeriodReport is an immutable aggregate over the ledger entries of a
// closed date range. A newer report for the same period archives the
// prior one instead of overwriting it.
type PeriodReport struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	PeriodStart time.Time    `gorm:"not null;index:idx_period_reports_range" json:"period_start"`
	PeriodEnd   time.Time    `gorm:"not null;index:idx_period_reports_range" json:"period_end"`
	Status      ReportStatus `gorm:"not null;default:'active'" json:"status"`

	EntryCount         int   `gorm:"not null" json:"entry_count"`
	RevenueCents       int64 `gorm:"not null" json:"revenue_cents"`
	ProducerCostCents  int64 `gorm:"not null" json:"producer_cost_cents"`
	PackagingCents     int64 `gorm:"not null" json:"packaging_cents"`
	ShippingCents      int64 `gorm:"not null" json:"shipping_cents"`
	PaymentFeeCents    int64 `gorm:"not null" json:"payment_fee_cents"`
	CustomsCents       int64 `gorm:"not null" json:"customs_cents"`
	GrossProfitCents   int64 `gorm:"not null" json:"gross_profit_cents"`
	PlatformShareCents int64 `gorm:"not null" json:"platform_share_cents"`
	PartnerAShareCents int64 `gorm:"not null" json:"partner_a_share_cents"`
	PartnerBShareCents int64 `gorm:"not null" json:"partner_b_share_cents"`

	// ContentHash is a SHA-256 over the canonical aggregate, for tamper
	// evidence.
	ContentHash string `gorm:"not null;size:64" json:"content_hash"`

	GeneratedBy string    `gorm:"not null;size:255" json:"generated_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName overrides
func (LedgerEntry) TableName() string   { return "ledger_entries" }
func (AuditLogEntry) TableName() string { return "audit_log_entries" }
func (PeriodReport) TableName() string  { return "period_reports" }
