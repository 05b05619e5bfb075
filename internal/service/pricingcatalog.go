package service

import (
	"context"

	"github.com/contractdesk/contractdesk/internal/domain/pricing"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/types"
)

// PricingCatalogService manages the records the price resolver reads: list
// and agreement prices, scheduled changes, adjustment rules and discounts.
type PricingCatalogService interface {
	CreatePriceEntry(ctx context.Context, entry *pricing.PriceEntry) (*pricing.PriceEntry, error)
	CreateScheduledPriceChange(ctx context.Context, change *pricing.ScheduledPriceChange) (*pricing.ScheduledPriceChange, error)
	CreateAdjustmentRule(ctx context.Context, rule *pricing.AdjustmentRule) (*pricing.AdjustmentRule, error)
	CreateDiscount(ctx context.Context, discount *pricing.Discount) (*pricing.Discount, error)
}

type pricingCatalogService struct {
	pricingRepo pricing.Repository
	logger      *logger.Logger
}

func NewPricingCatalogService(pricingRepo pricing.Repository, logger *logger.Logger) PricingCatalogService {
	return &pricingCatalogService{
		pricingRepo: pricingRepo,
		logger:      logger,
	}
}

func (s *pricingCatalogService) CreatePriceEntry(ctx context.Context, entry *pricing.PriceEntry) (*pricing.PriceEntry, error) {
	if entry.ProductID == "" {
		return nil, ierr.NewError("missing product id").
			WithHint("Please provide a product id").
			Mark(ierr.ErrValidation)
	}
	if err := types.ValidateCurrency(entry.Currency); err != nil {
		return nil, err
	}
	if entry.UnitPrice.IsNegative() {
		return nil, ierr.NewError("invalid unit price").
			WithHint("The unit price must not be negative").
			Mark(ierr.ErrValidation)
	}
	if entry.ValidTo != nil && entry.ValidTo.Before(entry.ValidFrom) {
		return nil, ierr.NewError("invalid validity window").
			WithHint("valid_to must not be before valid_from").
			Mark(ierr.ErrValidation)
	}

	if entry.ID == "" {
		entry.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PRICE_ENTRY)
	}
	entry.BaseModel = types.GetDefaultBaseModel(ctx)
	if err := s.pricingRepo.CreatePriceEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *pricingCatalogService) CreateScheduledPriceChange(ctx context.Context, change *pricing.ScheduledPriceChange) (*pricing.ScheduledPriceChange, error) {
	if change.ContractItemID == "" {
		return nil, ierr.NewError("missing contract item id").
			WithHint("Please provide a contract item id").
			Mark(ierr.ErrValidation)
	}
	if change.NewUnitPrice.IsNegative() {
		return nil, ierr.NewError("invalid unit price").
			WithHint("The new unit price must not be negative").
			Mark(ierr.ErrValidation)
	}
	if change.ExpiryDate != nil && change.ExpiryDate.Before(change.EffectiveDate) {
		return nil, ierr.NewError("invalid validity window").
			WithHint("expiry_date must not be before effective_date").
			Mark(ierr.ErrValidation)
	}

	if change.ID == "" {
		change.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PRICE_CHANGE)
	}
	change.BaseModel = types.GetDefaultBaseModel(ctx)
	if err := s.pricingRepo.CreateScheduledPriceChange(ctx, change); err != nil {
		return nil, err
	}
	return change, nil
}

func (s *pricingCatalogService) CreateAdjustmentRule(ctx context.Context, rule *pricing.AdjustmentRule) (*pricing.AdjustmentRule, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if rule.ID == "" {
		rule.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ADJUSTMENT_RULE)
	}
	rule.BaseModel = types.GetDefaultBaseModel(ctx)
	if err := s.pricingRepo.CreateAdjustmentRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *pricingCatalogService) CreateDiscount(ctx context.Context, discount *pricing.Discount) (*pricing.Discount, error) {
	if discount.ContractID == "" {
		return nil, ierr.NewError("missing contract id").
			WithHint("Please provide a contract id").
			Mark(ierr.ErrValidation)
	}
	// an omitted validity follows the window when one is set
	if discount.Validity == "" {
		if discount.ValidFrom != nil || discount.ValidTo != nil {
			discount.Validity = types.DiscountValidityTimeLimited
		} else {
			discount.Validity = types.DiscountValidityPermanent
		}
	}
	if err := discount.Validate(); err != nil {
		return nil, err
	}

	if discount.ID == "" {
		discount.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DISCOUNT)
	}
	discount.BaseModel = types.GetDefaultBaseModel(ctx)
	if err := s.pricingRepo.CreateDiscount(ctx, discount); err != nil {
		return nil, err
	}
	return discount, nil
}
