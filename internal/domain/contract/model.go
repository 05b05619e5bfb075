package contract

import (
	"time"

	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/shopspring/decimal"
)

// Contract represents a customer contract and its billing parameters.
// Once items on it have been billed it is immutable except through
// recorded amendments.
type Contract struct {
	ID         string `db:"id" json:"id"`
	CustomerID string `db:"customer_id" json:"customer_id"`

	BillingInterval types.BillingInterval `db:"billing_interval" json:"billing_interval"`
	// BillingAnchorDay anchors monthly and quarterly period starts to a day
	// of month. Days beyond the end of a shorter month clamp to its last day.
	BillingAnchorDay int `db:"billing_anchor_day" json:"billing_anchor_day"`
	// BillingAlignmentDate anchors semiannual and longer intervals to a
	// fixed calendar date.
	BillingAlignmentDate *time.Time `db:"billing_alignment_date" json:"billing_alignment_date,omitempty"`

	StartDate             time.Time  `db:"start_date" json:"start_date"`
	EndDate               *time.Time `db:"end_date" json:"end_date,omitempty"`
	MinimumDurationMonths int        `db:"minimum_duration_months" json:"minimum_duration_months"`
	NoticePeriodDays      int        `db:"notice_period_days" json:"notice_period_days"`

	ContractStatus types.ContractStatus `db:"contract_status" json:"contract_status"`
	Currency       string               `db:"currency" json:"currency"`
	Metadata       types.Metadata       `db:"metadata" json:"metadata,omitempty"`

	Items []*ContractItem `db:"-" json:"items,omitempty"`
	types.BaseModel
}

// ContractItem is a single billed position on a contract.
type ContractItem struct {
	ID          string `db:"id" json:"id"`
	ContractID  string `db:"contract_id" json:"contract_id"`
	ProductID   string `db:"product_id" json:"product_id"`
	Description string `db:"description" json:"description"`

	// ProductCategory groups items for category scoped discounts
	ProductCategory string `db:"product_category" json:"product_category,omitempty"`

	Quantity decimal.Decimal `db:"quantity" json:"quantity"`

	// FixedUnitPrice is the unit price captured on the item at the time it
	// was priced. When set it wins over every other price source.
	FixedUnitPrice *decimal.Decimal `db:"fixed_unit_price" json:"fixed_unit_price,omitempty"`

	// BillingStartDate and BillingEndDate clip the item's billing events to a
	// sub-range of the contract's life. Events fully outside are omitted.
	BillingStartDate *time.Time `db:"billing_start_date" json:"billing_start_date,omitempty"`
	BillingEndDate   *time.Time `db:"billing_end_date" json:"billing_end_date,omitempty"`

	// ProrationAnchor overrides the date the first partial period is
	// measured from, when it differs from the item's billing start.
	ProrationAnchor *time.Time `db:"proration_anchor" json:"proration_anchor,omitempty"`

	types.BaseModel
}

// Validate checks the contract's billing parameters.
func (c *Contract) Validate() error {
	if err := c.BillingInterval.Validate(); err != nil {
		return err
	}
	if err := c.ContractStatus.Validate(); err != nil {
		return err
	}
	if c.BillingAnchorDay < 1 || c.BillingAnchorDay > 31 {
		return ierr.NewError("invalid billing anchor day").
			WithHint("Billing anchor day must be between 1 and 31").
			WithReportableDetails(map[string]any{
				"billing_anchor_day": c.BillingAnchorDay,
			}).
			Mark(ierr.ErrValidation)
	}
	if c.BillingInterval.UsesAlignmentDate() && c.BillingAlignmentDate == nil {
		return ierr.NewError("missing billing alignment date").
			WithHintf("Interval %s requires a billing alignment date", c.BillingInterval).
			Mark(ierr.ErrValidation)
	}
	if c.EndDate != nil && c.EndDate.Before(c.StartDate) {
		return ierr.NewError("invalid contract dates").
			WithHint("Contract end date must not precede its start date").
			Mark(ierr.ErrValidation)
	}
	return c.validateItemWindows()
}

// validateItemWindows rejects overlapping per-item billing windows for the
// same product, so an item contributes to at most one billing event per
// covered period.
func (c *Contract) validateItemWindows() error {
	byProduct := make(map[string][]*ContractItem)
	for _, item := range c.Items {
		byProduct[item.ProductID] = append(byProduct[item.ProductID], item)
	}
	for productID, items := range byProduct {
		for i := 0; i < len(items); i++ {
			for j := i + 1; j < len(items); j++ {
				if itemWindowsOverlap(items[i], items[j]) {
					return ierr.NewError("overlapping item billing windows").
						WithHintf("Items %s and %s for product %s have overlapping billing windows", items[i].ID, items[j].ID, productID).
						Mark(ierr.ErrValidation)
				}
			}
		}
	}
	return nil
}

func itemWindowsOverlap(a, b *ContractItem) bool {
	aStart, aEnd := a.windowBounds()
	bStart, bEnd := b.windowBounds()
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

func (i *ContractItem) windowBounds() (time.Time, time.Time) {
	start := time.Time{}
	if i.BillingStartDate != nil {
		start = *i.BillingStartDate
	}
	end := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	if i.BillingEndDate != nil {
		end = *i.BillingEndDate
	}
	return start, end
}

// EffectiveEnd returns the latest date the contract can bill up to, or the
// far future when it is open-ended.
func (c *Contract) EffectiveEnd() time.Time {
	if c.EndDate != nil {
		return *c.EndDate
	}
	return time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
}

// IsBillable reports whether the contract produces billing events at all.
func (c *Contract) IsBillable() bool {
	return c.ContractStatus.IsBillable() && len(c.Items) > 0
}
