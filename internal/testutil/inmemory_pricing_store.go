package testutil

import (
	"context"

	"github.com/contractdesk/contractdesk/internal/domain/pricing"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/samber/lo"
)

// InMemoryPricingStore implements pricing.Repository
type InMemoryPricingStore struct {
	priceEntries     *InMemoryStore[*pricing.PriceEntry]
	scheduledChanges *InMemoryStore[*pricing.ScheduledPriceChange]
	adjustmentRules  *InMemoryStore[*pricing.AdjustmentRule]
	discounts        *InMemoryStore[*pricing.Discount]
}

// NewInMemoryPricingStore creates a new in-memory pricing store
func NewInMemoryPricingStore() *InMemoryPricingStore {
	return &InMemoryPricingStore{
		priceEntries:     NewInMemoryStore[*pricing.PriceEntry](),
		scheduledChanges: NewInMemoryStore[*pricing.ScheduledPriceChange](),
		adjustmentRules:  NewInMemoryStore[*pricing.AdjustmentRule](),
		discounts:        NewInMemoryStore[*pricing.Discount](),
	}
}

func (s *InMemoryPricingStore) CreatePriceEntry(ctx context.Context, entry *pricing.PriceEntry) error {
	if entry == nil {
		return ierr.NewError("price entry cannot be nil").
			Mark(ierr.ErrValidation)
	}
	clone := *entry
	return s.priceEntries.Create(ctx, entry.ID, &clone)
}

func (s *InMemoryPricingStore) ListPriceEntries(ctx context.Context, productID string) ([]*pricing.PriceEntry, error) {
	return s.priceEntries.List(ctx, nil, func(ctx context.Context, e *pricing.PriceEntry, _ interface{}) bool {
		return CheckTenantAccess(ctx, e.TenantID) && e.ProductID == productID
	}, func(i, j *pricing.PriceEntry) bool {
		return i.ID < j.ID
	})
}

func (s *InMemoryPricingStore) CreateScheduledPriceChange(ctx context.Context, change *pricing.ScheduledPriceChange) error {
	if change == nil {
		return ierr.NewError("scheduled price change cannot be nil").
			Mark(ierr.ErrValidation)
	}
	clone := *change
	return s.scheduledChanges.Create(ctx, change.ID, &clone)
}

func (s *InMemoryPricingStore) ListScheduledPriceChanges(ctx context.Context, contractItemIDs []string) ([]*pricing.ScheduledPriceChange, error) {
	return s.scheduledChanges.List(ctx, nil, func(ctx context.Context, c *pricing.ScheduledPriceChange, _ interface{}) bool {
		return CheckTenantAccess(ctx, c.TenantID) && lo.Contains(contractItemIDs, c.ContractItemID)
	}, func(i, j *pricing.ScheduledPriceChange) bool {
		return i.ID < j.ID
	})
}

func (s *InMemoryPricingStore) CreateAdjustmentRule(ctx context.Context, rule *pricing.AdjustmentRule) error {
	if rule == nil {
		return ierr.NewError("adjustment rule cannot be nil").
			Mark(ierr.ErrValidation)
	}
	clone := *rule
	return s.adjustmentRules.Create(ctx, rule.ID, &clone)
}

func (s *InMemoryPricingStore) ListAdjustmentRules(ctx context.Context, contractID, customerID string) ([]*pricing.AdjustmentRule, error) {
	return s.adjustmentRules.List(ctx, nil, func(ctx context.Context, r *pricing.AdjustmentRule, _ interface{}) bool {
		if !CheckTenantAccess(ctx, r.TenantID) {
			return false
		}
		if r.ContractID != nil && *r.ContractID != contractID {
			return false
		}
		if r.CustomerID != nil && *r.CustomerID != customerID {
			return false
		}
		return true
	}, func(i, j *pricing.AdjustmentRule) bool {
		return i.ID < j.ID
	})
}

func (s *InMemoryPricingStore) CreateDiscount(ctx context.Context, discount *pricing.Discount) error {
	if discount == nil {
		return ierr.NewError("discount cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := discount.Validate(); err != nil {
		return err
	}
	clone := *discount
	return s.discounts.Create(ctx, discount.ID, &clone)
}

func (s *InMemoryPricingStore) ListDiscounts(ctx context.Context, contractID string) ([]*pricing.Discount, error) {
	return s.discounts.List(ctx, nil, func(ctx context.Context, d *pricing.Discount, _ interface{}) bool {
		return CheckTenantAccess(ctx, d.TenantID) && d.ContractID == contractID
	}, func(i, j *pricing.Discount) bool {
		return i.ID < j.ID
	})
}

// Clear removes all pricing records
func (s *InMemoryPricingStore) Clear() {
	s.priceEntries.Clear()
	s.scheduledChanges.Clear()
	s.adjustmentRules.Clear()
	s.discounts.Clear()
}
