package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingEvent is one invoiceable period for a contract: the span actually
// billed, the nominal period it belongs to, and the fraction of the nominal
// period covered. ProrationFactor is 1 for full periods and in (0, 1] for
// partial ones.
type BillingEvent struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	// NominalStart and NominalEnd bound the full nominal period the event
	// was cut from. Item window clipping recomputes the proration factor
	// against these bounds.
	NominalStart time.Time `json:"nominal_start"`
	NominalEnd   time.Time `json:"nominal_end"`

	ProrationFactor decimal.Decimal `json:"proration_factor"`
}

// IsProrated reports whether the event covers less than its nominal period.
func (e BillingEvent) IsProrated() bool {
	return e.ProrationFactor.LessThan(decimal.NewFromInt(1))
}
