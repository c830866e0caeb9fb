// internal/domain/ledger/report.go
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/your-org/farmshop-backend/internal/pkg/errs"
)

// ReportInput describes a period report request over a closed date range.
type ReportInput struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	GeneratedBy string
}

// GeneratePeriodReport aggregates all ledger entries created inside the
// period, hashes the aggregate for tamper evidence and stores it as the
// active report for that period. A prior active report for the same
// period is archived, never overwritten.
func (s *Service) GeneratePeriodReport(ctx context.Context, in ReportInput) (*PeriodReport, error) {
	if !in.PeriodEnd.After(in.PeriodStart) {
		return nil, errs.Validation("report period end must be after period start")
	}
	if in.PeriodEnd.After(time.Now().UTC()) {
		return nil, errs.Validation("report period must be closed; end is in the future")
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin report transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var entries []LedgerEntry
	if err := tx.
		Where("created_at >= ? AND created_at < ?", in.PeriodStart, in.PeriodEnd).
		Order("id ASC").
		Find(&entries).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load ledger entries for report: %w", err)
	}

	report := PeriodReport{
		PeriodStart: in.PeriodStart,
		PeriodEnd:   in.PeriodEnd,
		Status:      ReportStatusActive,
		EntryCount:  len(entries),
		GeneratedBy: in.GeneratedBy,
	}
	for i := range entries {
		e := &entries[i]
		report.RevenueCents += e.RevenueCents
		report.ProducerCostCents += e.ProducerCostCents
		report.PackagingCents += e.PackagingCents
		report.ShippingCents += e.ShippingCents
		report.PaymentFeeCents += e.PaymentFeeCents
		report.CustomsCents += e.CustomsCents
		report.GrossProfitCents += e.GrossProfitCents
		report.PlatformShareCents += e.PlatformShareCents
		report.PartnerAShareCents += e.PartnerAShareCents
		report.PartnerBShareCents += e.PartnerBShareCents
	}
	report.ContentHash = reportContentHash(&report, entries)

	// Archive the prior active report for the same period.
	if err := tx.Model(&PeriodReport{}).
		Where("period_start = ? AND period_end = ? AND status = ?", in.PeriodStart, in.PeriodEnd, ReportStatusActive).
		Update("status", ReportStatusArchived).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to archive prior report: %w", err)
	}

	if err := tx.Create(&report).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create period report: %w", err)
	}

	if err := s.writeAudit(tx, "period_report", report.ID, "generate_report", nil, &report, in.GeneratedBy); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit report transaction: %w", err)
	}

	return &report, nil
}

// ListReports returns period reports, newest first.
func (s *Service) ListReports(ctx context.Context) ([]PeriodReport, error) {
	var reports []PeriodReport
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to load period reports: %w", err)
	}
	return reports, nil
}

// reportContentHash builds a SHA-256 over a canonical text form of the
// aggregate and every entry it covers. Same entries in, same hash out.
func reportContentHash(report *PeriodReport, entries []LedgerEntry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "period %s..%s\n",
		report.PeriodStart.UTC().Format(time.RFC3339),
		report.PeriodEnd.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "totals %d %d %d %d %d %d %d gp=%d split=%d/%d/%d\n",
		report.EntryCount,
		report.RevenueCents, report.ProducerCostCents, report.PackagingCents,
		report.ShippingCents, report.PaymentFeeCents, report.CustomsCents,
		report.GrossProfitCents,
		report.PlatformShareCents, report.PartnerAShareCents, report.PartnerBShareCents)
	for i := range entries {
		e := &entries[i]
		fmt.Fprintf(&b, "entry %d order=%d type=%s %d %d %d %d %d %d gp=%d\n",
			e.ID, e.OrderID, e.EntryType,
			e.RevenueCents, e.ProducerCostCents, e.PackagingCents,
			e.ShippingCents, e.PaymentFeeCents, e.CustomsCents,
			e.GrossProfitCents)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
