package pricing

import (
	"time"

	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/shopspring/decimal"
)

// PriceEntry is a price list entry. Entries with a customer ID are
// customer-specific agreement prices; entries without one are standard
// list prices.
type PriceEntry struct {
	ID         string          `db:"id" json:"id"`
	ProductID  string          `db:"product_id" json:"product_id"`
	CustomerID *string         `db:"customer_id" json:"customer_id,omitempty"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
	Currency   string          `db:"currency" json:"currency"`
	ValidFrom  time.Time       `db:"valid_from" json:"valid_from"`
	ValidTo    *time.Time      `db:"valid_to" json:"valid_to,omitempty"`
	types.BaseModel
}

// IsCustomerSpecific reports whether the entry is a customer agreement price.
func (p *PriceEntry) IsCustomerSpecific() bool {
	return p.CustomerID != nil && *p.CustomerID != ""
}

// ValidOn reports whether the entry is valid on the given date.
func (p *PriceEntry) ValidOn(date time.Time) bool {
	if p.ValidFrom.After(date) {
		return false
	}
	return p.ValidTo == nil || !p.ValidTo.Before(date)
}

// ScheduledPriceChange is a time-anchored override of a contract item's
// unit price, e.g. a one-off future price change agreed with the customer.
type ScheduledPriceChange struct {
	ID             string          `db:"id" json:"id"`
	ContractItemID string          `db:"contract_item_id" json:"contract_item_id"`
	NewUnitPrice   decimal.Decimal `db:"new_unit_price" json:"new_unit_price"`
	EffectiveDate  time.Time       `db:"effective_date" json:"effective_date"`
	ExpiryDate     *time.Time      `db:"expiry_date" json:"expiry_date,omitempty"`
	types.BaseModel
}

// AppliesOn reports whether the change is effective and unexpired on date.
func (s *ScheduledPriceChange) AppliesOn(date time.Time) bool {
	if s.EffectiveDate.After(date) {
		return false
	}
	return s.ExpiryDate == nil || !s.ExpiryDate.Before(date)
}

// AdjustmentRule is a multiplicative adjustment applied on top of the
// resolved base price, such as an inflation clause. The most specific rule
// wins: contract-specific beats customer-specific beats tenant default.
type AdjustmentRule struct {
	ID         string                `db:"id" json:"id"`
	Scope      types.AdjustmentScope `db:"scope" json:"scope"`
	ContractID *string               `db:"contract_id" json:"contract_id,omitempty"`
	CustomerID *string               `db:"customer_id" json:"customer_id,omitempty"`
	Factor     decimal.Decimal       `db:"factor" json:"factor"`
	ValidFrom  time.Time             `db:"valid_from" json:"valid_from"`
	ValidTo    *time.Time            `db:"valid_to" json:"valid_to,omitempty"`
	types.BaseModel
}

// ValidOn reports whether the rule is valid on the given date.
func (r *AdjustmentRule) ValidOn(date time.Time) bool {
	if r.ValidFrom.After(date) {
		return false
	}
	return r.ValidTo == nil || !r.ValidTo.Before(date)
}

func (r *AdjustmentRule) Validate() error {
	if r.Factor.LessThanOrEqual(decimal.Zero) {
		return ierr.NewError("invalid adjustment factor").
			WithHint("Adjustment factor must be positive").
			Mark(ierr.ErrValidation)
	}
	switch r.Scope {
	case types.AdjustmentScopeContract:
		if r.ContractID == nil {
			return ierr.NewError("missing contract id").
				WithHint("Contract scoped adjustment rules require a contract id").
				Mark(ierr.ErrValidation)
		}
	case types.AdjustmentScopeCustomer:
		if r.CustomerID == nil {
			return ierr.NewError("missing customer id").
				WithHint("Customer scoped adjustment rules require a customer id").
				Mark(ierr.ErrValidation)
		}
	case types.AdjustmentScopeTenant:
		// tenant default, no reference needed
	default:
		return ierr.NewError("invalid adjustment scope").
			WithHint("Please provide a valid adjustment scope").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PreferRule reports whether rule a wins over rule b among equally valid
// rules: higher specificity first, then the later valid_from, then the
// smaller id. The same comparator is used everywhere precedence between
// rules is decided so forecasts stay reproducible.
func PreferRule(a, b *AdjustmentRule) bool {
	if a.Scope.Specificity() != b.Scope.Specificity() {
		return a.Scope.Specificity() < b.Scope.Specificity()
	}
	return PreferByValidity(a.ValidFrom, a.ID, b.ValidFrom, b.ID)
}

// PreferByValidity is the shared tie-break for equally specific pricing
// records: the later valid_from wins; if still tied, the smaller id wins.
func PreferByValidity(aValidFrom time.Time, aID string, bValidFrom time.Time, bID string) bool {
	if !aValidFrom.Equal(bValidFrom) {
		return aValidFrom.After(bValidFrom)
	}
	return aID < bID
}
