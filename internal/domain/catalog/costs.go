// internal/domain/catalog/costs.go
package catalog

import (
	"github.com/your-org/farmshop-backend/internal/pkg/errs"
)

// producerUnitCostCents is the static per-unit cost each producer charges
// us, keyed by SKU. These figures feed the ledger, so an unknown SKU is a
// hard integrity error, never a silent zero.
var producerUnitCostCents = map[string]int64{
	// kiendler
	"KOL-250": 540,
	"KOL-500": 890,
	"KOL-100": 290,

	// hernach
	"KRN-100": 190,
	"KRN-250": 360,
	"HON-500": 450,
}

// ProducerUnitCost returns the producer's per-unit cost for a SKU.
func ProducerUnitCost(sku string) (int64, error) {
	cost, ok := producerUnitCostCents[sku]
	if !ok {
		return 0, errs.Integrity("no producer cost configured for SKU %q", sku)
	}
	return cost, nil
}
