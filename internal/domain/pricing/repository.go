package pricing

import (
	"context"
)

// Repository defines the interface for pricing persistence operations.
// Readers return every record for the given reference; validity filtering
// happens in the resolution pipeline so it stays unit-testable.
type Repository interface {
	// CreatePriceEntry creates a price list entry
	CreatePriceEntry(ctx context.Context, entry *PriceEntry) error

	// ListPriceEntries retrieves all price entries for a product, both list
	// prices and customer agreement prices
	ListPriceEntries(ctx context.Context, productID string) ([]*PriceEntry, error)

	// CreateScheduledPriceChange creates a scheduled price change
	CreateScheduledPriceChange(ctx context.Context, change *ScheduledPriceChange) error

	// ListScheduledPriceChanges retrieves all scheduled changes for the
	// given contract items
	ListScheduledPriceChanges(ctx context.Context, contractItemIDs []string) ([]*ScheduledPriceChange, error)

	// CreateAdjustmentRule creates a price adjustment rule
	CreateAdjustmentRule(ctx context.Context, rule *AdjustmentRule) error

	// ListAdjustmentRules retrieves the adjustment rules that could apply to
	// a contract: contract-scoped, customer-scoped and tenant defaults
	ListAdjustmentRules(ctx context.Context, contractID, customerID string) ([]*AdjustmentRule, error)

	// CreateDiscount creates a discount
	CreateDiscount(ctx context.Context, discount *Discount) error

	// ListDiscounts retrieves all discounts recorded on a contract
	ListDiscounts(ctx context.Context, contractID string) ([]*Discount, error)
}
