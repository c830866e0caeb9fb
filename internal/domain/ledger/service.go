// internal/domain/ledger/service.go
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/farmshop-backend/internal/config"
	"github.com/your-org/farmshop-backend/internal/pkg/errs"
)

// Matches order.OrderStatusRefunded. Written through a raw table update to
// keep the ledger package free of an order-package import.
const orderStatusRefunded = "refunded"

// Service handles ledger bookkeeping: sale entries, refund reversals and
// audit records.
type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logrus.Logger
}

// NewService creates a new ledger service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// SaleInput describes the sale entry recorded when an order is created.
type SaleInput struct {
	OrderID     uint
	Costs       CostBreakdown
	Notes       string
	PerformedBy string
}

// RecordSale books the sale entry for an order inside the caller's
// transaction. The order-creation transaction owns commit and rollback.
func (s *Service) RecordSale(tx *gorm.DB, in SaleInput) (*LedgerEntry, error) {
	if in.Costs.RevenueCents <= 0 {
		return nil, errs.Validation("sale revenue must be positive, got %d", in.Costs.RevenueCents)
	}

	grossProfit := in.Costs.GrossProfit()
	split := SplitProfit(grossProfit, in.Costs.NetBasis(), s.config.Ledger.PlatformTakeRateBps)

	entry := LedgerEntry{
		OrderID:            in.OrderID,
		EntryType:          EntryTypeSale,
		RevenueCents:       in.Costs.RevenueCents,
		ProducerCostCents:  in.Costs.ProducerCostCents,
		PackagingCents:     in.Costs.PackagingCents,
		ShippingCents:      in.Costs.ShippingCents,
		PaymentFeeCents:    in.Costs.PaymentFeeCents,
		CustomsCents:       in.Costs.CustomsCents,
		GrossProfitCents:   grossProfit,
		PlatformShareCents: split.PlatformCents,
		PartnerAShareCents: split.PartnerACents,
		PartnerBShareCents: split.PartnerBCents,
		Notes:              in.Notes,
	}

	if err := entry.CheckIntegrity(); err != nil {
		return nil, errs.Integrity("sale entry for order %d: %v", in.OrderID, err)
	}

	if err := tx.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create sale ledger entry: %w", err)
	}

	if err := s.writeAudit(tx, "ledger_entry", entry.ID, "record_sale", nil, &entry, in.PerformedBy); err != nil {
		return nil, err
	}

	return &entry, nil
}

// RefundInput describes one refund to apply against an order.
type RefundInput struct {
	OrderID          uint
	AmountCents      int64
	ExternalRefundID string
	Reason           string
	PerformedBy      string
}

// RefundResult reports the ledger entry a refund produced, or the prior
// entry when the external refund id was already processed.
type RefundResult struct {
	Entry            *LedgerEntry
	AlreadyProcessed bool
}

// refundMarker embeds the external refund id in the entry notes so a
// redelivered refund event matches its prior entry.
func refundMarker(externalRefundID string) string {
	return fmt.Sprintf("[refund:%s]", externalRefundID)
}

// ProcessRefund reverses part or all of a prior sale by appending a
// negative ledger entry. The original entries are never touched. A refund
// exceeding the order's remaining net revenue is rejected outright.
func (s *Service) ProcessRefund(ctx context.Context, in RefundInput) (*RefundResult, error) {
	if in.AmountCents <= 0 {
		return nil, errs.Validation("refund amount must be positive, got %d", in.AmountCents)
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin refund transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var entries []LedgerEntry
	if err := tx.Where("order_id = ?", in.OrderID).Order("id ASC").Find(&entries).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load ledger entries for order %d: %w", in.OrderID, err)
	}
	if len(entries) == 0 {
		tx.Rollback()
		return nil, errs.Validation("order %d has no ledger entries to refund against", in.OrderID)
	}

	// Redelivery of the same external refund id is a no-op.
	if in.ExternalRefundID != "" {
		marker := refundMarker(in.ExternalRefundID)
		for i := range entries {
			if strings.Contains(entries[i].Notes, marker) {
				tx.Rollback()
				return &RefundResult{Entry: &entries[i], AlreadyProcessed: true}, nil
			}
		}
	}

	var sale *LedgerEntry
	var netRevenue int64
	reversed := CostBreakdown{}
	for i := range entries {
		netRevenue += entries[i].RevenueCents
		switch entries[i].EntryType {
		case EntryTypeSale:
			if sale == nil {
				sale = &entries[i]
			}
		case EntryTypePartialRefund, EntryTypeFullRefund:
			c := entries[i].Costs()
			reversed.ProducerCostCents += c.ProducerCostCents
			reversed.PackagingCents += c.PackagingCents
			reversed.ShippingCents += c.ShippingCents
			reversed.PaymentFeeCents += c.PaymentFeeCents
			reversed.CustomsCents += c.CustomsCents
		}
	}
	if sale == nil {
		tx.Rollback()
		return nil, errs.Validation("order %d has no sale entry to refund against", in.OrderID)
	}
	if in.AmountCents > netRevenue {
		tx.Rollback()
		return nil, errs.Validation("refund of %d cents exceeds remaining net revenue of %d cents for order %d",
			in.AmountCents, netRevenue, in.OrderID)
	}

	// Every cost field is reversed proportionally to the refunded share of
	// the original sale revenue; the revenue field is the exact refund
	// amount so repeated partial refunds cannot drift.
	costs := CostBreakdown{
		RevenueCents:      -in.AmountCents,
		ProducerCostCents: reversalFor(sale.ProducerCostCents, reversed.ProducerCostCents, in.AmountCents, sale.RevenueCents),
		PackagingCents:    reversalFor(sale.PackagingCents, reversed.PackagingCents, in.AmountCents, sale.RevenueCents),
		ShippingCents:     reversalFor(sale.ShippingCents, reversed.ShippingCents, in.AmountCents, sale.RevenueCents),
		PaymentFeeCents:   reversalFor(sale.PaymentFeeCents, reversed.PaymentFeeCents, in.AmountCents, sale.RevenueCents),
		CustomsCents:      reversalFor(sale.CustomsCents, reversed.CustomsCents, in.AmountCents, sale.RevenueCents),
	}

	entryType := EntryTypePartialRefund
	if in.AmountCents == netRevenue {
		entryType = EntryTypeFullRefund
	}

	grossProfit := costs.GrossProfit()
	split := SplitProfit(grossProfit, costs.NetBasis(), s.config.Ledger.PlatformTakeRateBps)

	notes := strings.TrimSpace(in.Reason)
	if in.ExternalRefundID != "" {
		if notes != "" {
			notes += " "
		}
		notes += refundMarker(in.ExternalRefundID)
	}

	entry := LedgerEntry{
		OrderID:            in.OrderID,
		EntryType:          entryType,
		RevenueCents:       costs.RevenueCents,
		ProducerCostCents:  costs.ProducerCostCents,
		PackagingCents:     costs.PackagingCents,
		ShippingCents:      costs.ShippingCents,
		PaymentFeeCents:    costs.PaymentFeeCents,
		CustomsCents:       costs.CustomsCents,
		GrossProfitCents:   grossProfit,
		PlatformShareCents: split.PlatformCents,
		PartnerAShareCents: split.PartnerACents,
		PartnerBShareCents: split.PartnerBCents,
		Notes:              notes,
	}

	if err := entry.CheckIntegrity(); err != nil {
		tx.Rollback()
		return nil, errs.Integrity("refund entry for order %d: %v", in.OrderID, err)
	}

	if err := tx.Create(&entry).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create refund ledger entry: %w", err)
	}

	// A full reversal moves the order to its terminal refunded status;
	// partial refunds leave order status untouched.
	if entryType == EntryTypeFullRefund {
		if err := tx.Table("orders").Where("id = ?", in.OrderID).Updates(map[string]interface{}{
			"status":     orderStatusRefunded,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to mark order %d refunded: %w", in.OrderID, err)
		}
	}

	if err := s.writeAudit(tx, "ledger_entry", entry.ID, "process_refund", nil, &entry, in.PerformedBy); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit refund transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":   in.OrderID,
		"entry_id":   entry.ID,
		"entry_type": entry.EntryType,
		"amount":     in.AmountCents,
	}).Info("Refund booked")

	return &RefundResult{Entry: &entry}, nil
}

// reversalFor computes the (negative) reversal of one sale cost field,
// capped so the cumulative reversals across refunds never exceed the
// original field in magnitude.
func reversalFor(saleField, alreadyReversed, refundAmount, saleRevenue int64) int64 {
	v := ProportionalCents(saleField, refundAmount, saleRevenue)

	// alreadyReversed holds the (negative) sum of prior refund entries'
	// field; what is left of the sale field is saleField + alreadyReversed.
	remaining := saleField + alreadyReversed
	if v > 0 && v > remaining {
		v = remaining
	}
	if v < 0 && v < remaining {
		v = remaining
	}
	return -v
}

// EntriesForOrder returns all ledger entries of an order, oldest first.
func (s *Service) EntriesForOrder(ctx context.Context, orderID uint) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load ledger entries for order %d: %w", orderID, err)
	}
	return entries, nil
}

// NetRevenueForOrder sums the revenue of all entries of an order.
func (s *Service) NetRevenueForOrder(ctx context.Context, orderID uint) (int64, error) {
	entries, err := s.EntriesForOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}
	var net int64
	for i := range entries {
		net += entries[i].RevenueCents
	}
	return net, nil
}

// WriteAudit records one state-changing action. Old and new values are
// stored as JSON snapshots.
func (s *Service) WriteAudit(tx *gorm.DB, entityType string, entityID uint, action string, oldValue, newValue interface{}, performedBy string) error {
	return s.writeAudit(tx, entityType, entityID, action, oldValue, newValue, performedBy)
}

func (s *Service) writeAudit(tx *gorm.DB, entityType string, entityID uint, action string, oldValue, newValue interface{}, performedBy string) error {
	entry := AuditLogEntry{
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		PerformedBy: performedBy,
	}
	if oldValue != nil {
		data, err := json.Marshal(oldValue)
		if err != nil {
			return fmt.Errorf("failed to marshal audit old value: %w", err)
		}
		entry.OldValue = string(data)
	}
	if newValue != nil {
		data, err := json.Marshal(newValue)
		if err != nil {
			return fmt.Errorf("failed to marshal audit new value: %w", err)
		}
		entry.NewValue = string(data)
	}

	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}
	return nil
}
