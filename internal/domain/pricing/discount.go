package pricing

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/shopspring/decimal"
)

// Discount reduces either an item's unit price or a contract's line totals.
// The value is a tagged variant: exactly one of the kind-specific fields is
// set, discriminated by Kind.
type Discount struct {
	ID             string              `db:"id" json:"id"`
	Scope          types.DiscountScope `db:"scope" json:"scope"`
	ContractID     string              `db:"contract_id" json:"contract_id"`
	ContractItemID *string             `db:"contract_item_id" json:"contract_item_id,omitempty"`

	// ProductCategory selects the matched items for CATEGORY scoped discounts
	ProductCategory *string `db:"product_category" json:"product_category,omitempty"`

	Kind     types.DiscountKind     `db:"kind" json:"kind"`
	Value    DiscountValue          `db:"value" json:"value"`
	Validity types.DiscountValidity `db:"validity" json:"validity"`

	ValidFrom *time.Time `db:"valid_from" json:"valid_from,omitempty"`
	ValidTo   *time.Time `db:"valid_to" json:"valid_to,omitempty"`
	types.BaseModel
}

// DiscountValue holds the kind-specific discount parameters, stored as JSONB.
type DiscountValue struct {
	// Percent is the percentage for PERCENT discounts, 0-100
	Percent *decimal.Decimal `json:"percent,omitempty"`
	// Amount is the fixed reduction for ABSOLUTE discounts
	Amount *decimal.Decimal `json:"amount,omitempty"`
	// Tiers are the quantity brackets for TIERED discounts
	Tiers []DiscountTier `json:"tiers,omitempty"`
	// FreeUnits is the non-billable quantity for FREE_UNITS discounts
	FreeUnits *decimal.Decimal `json:"free_units,omitempty"`
}

// DiscountTier is one bracket of a tiered discount. The bracket whose
// MinQuantity is the highest one not exceeding the item quantity applies.
type DiscountTier struct {
	MinQuantity decimal.Decimal `json:"min_quantity"`
	Percent     decimal.Decimal `json:"percent"`
}

// Scan implements the sql.Scanner interface for DiscountValue
func (v *DiscountValue) Scan(value interface{}) error {
	if value == nil {
		*v = DiscountValue{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal JSONB value: %v", value)
	}
	return json.Unmarshal(bytes, v)
}

// Value implements the driver.Valuer interface for DiscountValue
func (v DiscountValue) Value() (driver.Value, error) {
	return json.Marshal(v)
}

// ValidOn reports whether the discount is valid on the given date.
// A discount without validity bounds is permanent.
func (d *Discount) ValidOn(date time.Time) bool {
	if d.ValidFrom != nil && d.ValidFrom.After(date) {
		return false
	}
	return d.ValidTo == nil || !d.ValidTo.Before(date)
}

// AppliesTo reports whether the discount applies to the billing period
// [periodStart, periodEnd]. A one time discount hits exactly the period
// containing its valid_from date and no other, so it surfaces on a single
// invoice.
func (d *Discount) AppliesTo(periodStart, periodEnd time.Time) bool {
	switch d.Validity {
	case types.DiscountValidityOneTime:
		return d.ValidFrom != nil && !d.ValidFrom.Before(periodStart) && !d.ValidFrom.After(periodEnd)
	case types.DiscountValidityTimeLimited:
		return d.ValidOn(periodStart)
	default:
		return true
	}
}

// TierFor returns the tier percent matching the given quantity, or zero when
// no bracket matches.
func (v DiscountValue) TierFor(quantity decimal.Decimal) decimal.Decimal {
	tiers := make([]DiscountTier, len(v.Tiers))
	copy(tiers, v.Tiers)
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].MinQuantity.LessThan(tiers[j].MinQuantity)
	})
	percent := decimal.Zero
	for _, tier := range tiers {
		if quantity.GreaterThanOrEqual(tier.MinQuantity) {
			percent = tier.Percent
		}
	}
	return percent
}

// Validate checks the variant invariant: the field matching Kind is set and
// the others are not.
func (d *Discount) Validate() error {
	if err := d.Scope.Validate(); err != nil {
		return err
	}
	if err := d.Kind.Validate(); err != nil {
		return err
	}
	if err := d.Validity.Validate(); err != nil {
		return err
	}
	if d.Scope == types.DiscountScopeLineItem && d.ContractItemID == nil {
		return ierr.NewError("missing contract item id").
			WithHint("Line item discounts require a contract item id").
			Mark(ierr.ErrValidation)
	}
	if d.Scope == types.DiscountScopeCategory && (d.ProductCategory == nil || *d.ProductCategory == "") {
		return ierr.NewError("missing product category").
			WithHint("Category discounts require a product category").
			Mark(ierr.ErrValidation)
	}
	if d.Validity == types.DiscountValidityOneTime && d.ValidFrom == nil {
		return ierr.NewError("missing valid from date").
			WithHint("One time discounts require a valid from date").
			Mark(ierr.ErrValidation)
	}

	switch d.Kind {
	case types.DiscountKindPercent:
		if d.Value.Percent == nil {
			return invalidDiscountValue("percent discounts require a percent value")
		}
		if d.Value.Percent.IsNegative() || d.Value.Percent.GreaterThan(decimal.NewFromInt(100)) {
			return invalidDiscountValue("percent must be between 0 and 100")
		}
	case types.DiscountKindAbsolute:
		if d.Value.Amount == nil {
			return invalidDiscountValue("absolute discounts require an amount")
		}
		if d.Value.Amount.IsNegative() {
			return invalidDiscountValue("amount must not be negative")
		}
	case types.DiscountKindTiered:
		if len(d.Value.Tiers) == 0 {
			return invalidDiscountValue("tiered discounts require at least one tier")
		}
	case types.DiscountKindFreeUnits:
		if d.Value.FreeUnits == nil {
			return invalidDiscountValue("free units discounts require a unit count")
		}
		if d.Value.FreeUnits.IsNegative() {
			return invalidDiscountValue("free units must not be negative")
		}
		if d.Scope != types.DiscountScopeLineItem {
			return invalidDiscountValue("free units discounts must be line item scoped")
		}
	}
	return nil
}

func invalidDiscountValue(hint string) error {
	return ierr.NewError("invalid discount value").
		WithHint(hint).
		Mark(ierr.ErrValidation)
}
