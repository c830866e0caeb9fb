// internal/domain/ledger/accounting.go
package ledger

// Pure profit arithmetic. Everything here works on signed integer cents;
// no I/O, no floats.

// CostBreakdown holds the six money fields of a ledger entry.
type CostBreakdown struct {
	RevenueCents      int64
	ProducerCostCents int64
	PackagingCents    int64
	ShippingCents     int64
	PaymentFeeCents   int64
	CustomsCents      int64
}

// GrossProfit is revenue minus the five cost fields. No clamping; a loss
// comes back negative.
func (c CostBreakdown) GrossProfit() int64 {
	return c.RevenueCents -
		c.ProducerCostCents -
		c.PackagingCents -
		c.ShippingCents -
		c.PaymentFeeCents -
		c.CustomsCents
}

// NetBasis is the net-revenue basis the platform take is computed from:
// revenue minus shipping and payment fee (goods revenue net of
// pass-through costs). Distinct from gross profit on purpose.
func (c CostBreakdown) NetBasis() int64 {
	return c.RevenueCents - c.ShippingCents - c.PaymentFeeCents
}

// ProfitSplit is the deterministic division of gross profit. The three
// shares always sum exactly to the gross profit they were computed from.
type ProfitSplit struct {
	PlatformCents int64
	PartnerACents int64
	PartnerBCents int64
}

// Sum returns the total of all shares.
func (p ProfitSplit) Sum() int64 {
	return p.PlatformCents + p.PartnerACents + p.PartnerBCents
}

// SplitProfit divides grossProfitCents between the platform and the two
// partners. Order of operations is fixed and not commutative with
// rounding:
//
//  1. platform share = netBasisCents * takeRateBps / 10000, truncated
//     toward zero
//  2. remainder = grossProfitCents - platform share
//  3. partner B = remainder / 2, truncated toward zero; partner A gets
//     the rest, so the odd cent always lands on partner A
//
// Works for negative inputs (refund clawbacks) the same way.
func SplitProfit(grossProfitCents, netBasisCents int64, takeRateBps int) ProfitSplit {
	platform := netBasisCents * int64(takeRateBps) / 10000

	remainder := grossProfitCents - platform
	partnerB := remainder / 2
	partnerA := remainder - partnerB

	return ProfitSplit{
		PlatformCents: platform,
		PartnerACents: partnerA,
		PartnerBCents: partnerB,
	}
}

// ProportionalCents scales fieldCents by numerator/denominator, rounding
// half away from zero. Used for per-field refund reversal; denominator
// must be positive.
func ProportionalCents(fieldCents, numerator, denominator int64) int64 {
	if denominator <= 0 {
		return 0
	}

	negative := fieldCents < 0
	abs := fieldCents
	if negative {
		abs = -abs
	}

	scaled := (2*abs*numerator + denominator) / (2 * denominator)
	if negative {
		return -scaled
	}
	return scaled
}
