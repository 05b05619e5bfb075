package service

import (
	"context"
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/contract"
	"github.com/contractdesk/contractdesk/internal/domain/pricing"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ResolvedPrice is the outcome of walking the price hierarchy for one item
// on one billing date.
type ResolvedPrice struct {
	UnitPrice decimal.Decimal   `json:"unit_price"`
	Source    types.PriceSource `json:"source"`
}

// PricingData is everything the resolution pipeline needs, loaded up front
// so the walk itself stays pure and reproducible.
type PricingData struct {
	// PriceEntries by product ID, both list and customer agreement prices
	PriceEntries map[string][]*pricing.PriceEntry
	// ScheduledChanges by contract item ID
	ScheduledChanges map[string][]*pricing.ScheduledPriceChange
	// AdjustmentRules candidates for the contract (all scopes)
	AdjustmentRules []*pricing.AdjustmentRule
	// Discounts recorded on the contract
	Discounts []*pricing.Discount
}

// PriceResolutionService resolves the effective unit price for a contract
// item on a billing date by walking the price hierarchy.
type PriceResolutionService interface {
	// ResolvePrice loads pricing data and resolves a single item's price.
	ResolvePrice(ctx context.Context, c *contract.Contract, item *contract.ContractItem, billingDate time.Time) (*ResolvedPrice, error)

	// LoadPricingData fetches every pricing record the contract's items can
	// reference, for batch resolution during assembly and forecasting.
	LoadPricingData(ctx context.Context, c *contract.Contract) (*PricingData, error)

	// Resolve walks the hierarchy against preloaded data. Pure.
	Resolve(c *contract.Contract, item *contract.ContractItem, data *PricingData, billingDate time.Time) (*ResolvedPrice, error)
}

type priceResolutionService struct {
	pricingRepo pricing.Repository
	logger      *logger.Logger
}

func NewPriceResolutionService(pricingRepo pricing.Repository, logger *logger.Logger) PriceResolutionService {
	return &priceResolutionService{
		pricingRepo: pricingRepo,
		logger:      logger,
	}
}

// resolutionStep is one tier of the price hierarchy. It either resolves the
// price or defers to the next step by returning nil.
type resolutionStep struct {
	source  types.PriceSource
	resolve func(c *contract.Contract, item *contract.ContractItem, data *PricingData, date time.Time) *decimal.Decimal
}

// resolutionPipeline is the full hierarchy in precedence order. Keeping the
// tiers as an explicit ordered list makes the precedence auditable and each
// step testable in isolation.
var resolutionPipeline = []resolutionStep{
	{source: types.PriceSourceContractFixed, resolve: resolveContractFixed},
	{source: types.PriceSourceScheduledChange, resolve: resolveScheduledChange},
	{source: types.PriceSourceCustomerAgreement, resolve: resolveCustomerAgreement},
	{source: types.PriceSourceListPrice, resolve: resolveListPrice},
}

func (s *priceResolutionService) ResolvePrice(ctx context.Context, c *contract.Contract, item *contract.ContractItem, billingDate time.Time) (*ResolvedPrice, error) {
	data, err := s.LoadPricingData(ctx, c)
	if err != nil {
		return nil, err
	}
	return s.Resolve(c, item, data, billingDate)
}

func (s *priceResolutionService) LoadPricingData(ctx context.Context, c *contract.Contract) (*PricingData, error) {
	data := &PricingData{
		PriceEntries:     make(map[string][]*pricing.PriceEntry),
		ScheduledChanges: make(map[string][]*pricing.ScheduledPriceChange),
	}

	productIDs := lo.Uniq(lo.Map(c.Items, func(item *contract.ContractItem, _ int) string {
		return item.ProductID
	}))
	for _, productID := range productIDs {
		entries, err := s.pricingRepo.ListPriceEntries(ctx, productID)
		if err != nil {
			return nil, err
		}
		data.PriceEntries[productID] = entries
	}

	itemIDs := lo.Map(c.Items, func(item *contract.ContractItem, _ int) string {
		return item.ID
	})
	changes, err := s.pricingRepo.ListScheduledPriceChanges(ctx, itemIDs)
	if err != nil {
		return nil, err
	}
	data.ScheduledChanges = lo.GroupBy(changes, func(chg *pricing.ScheduledPriceChange) string {
		return chg.ContractItemID
	})

	rules, err := s.pricingRepo.ListAdjustmentRules(ctx, c.ID, c.CustomerID)
	if err != nil {
		return nil, err
	}
	data.AdjustmentRules = rules

	discounts, err := s.pricingRepo.ListDiscounts(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	data.Discounts = discounts

	return data, nil
}

func (s *priceResolutionService) Resolve(c *contract.Contract, item *contract.ContractItem, data *PricingData, billingDate time.Time) (*ResolvedPrice, error) {
	date := types.DateOnly(billingDate)
	for _, step := range resolutionPipeline {
		price := step.resolve(c, item, data, date)
		if price == nil {
			continue
		}
		adjusted := applyAdjustmentRules(*price, data.AdjustmentRules, c.ID, c.CustomerID, date)
		return &ResolvedPrice{UnitPrice: adjusted, Source: step.source}, nil
	}

	// no tier resolved: surface the item instead of silently billing zero
	return nil, ierr.NewError("no applicable price found").
		WithHintf("No price could be resolved for product %s on %s", item.ProductID, date.Format("2006-01-02")).
		WithReportableDetails(map[string]any{
			"contract_id":      c.ID,
			"contract_item_id": item.ID,
			"product_id":       item.ProductID,
			"billing_date":     date.Format("2006-01-02"),
		}).
		Mark(ierr.ErrPricing)
}

func resolveContractFixed(_ *contract.Contract, item *contract.ContractItem, _ *PricingData, _ time.Time) *decimal.Decimal {
	return item.FixedUnitPrice
}

func resolveScheduledChange(_ *contract.Contract, item *contract.ContractItem, data *PricingData, date time.Time) *decimal.Decimal {
	var best *pricing.ScheduledPriceChange
	for _, chg := range data.ScheduledChanges[item.ID] {
		if !chg.AppliesOn(date) {
			continue
		}
		// the latest applicable effective date wins, smaller id breaks ties
		if best == nil || pricing.PreferByValidity(chg.EffectiveDate, chg.ID, best.EffectiveDate, best.ID) {
			best = chg
		}
	}
	if best == nil {
		return nil
	}
	return &best.NewUnitPrice
}

func resolveCustomerAgreement(c *contract.Contract, item *contract.ContractItem, data *PricingData, date time.Time) *decimal.Decimal {
	return resolvePriceEntry(data.PriceEntries[item.ProductID], date, func(e *pricing.PriceEntry) bool {
		return e.IsCustomerSpecific() && *e.CustomerID == c.CustomerID
	})
}

func resolveListPrice(_ *contract.Contract, item *contract.ContractItem, data *PricingData, date time.Time) *decimal.Decimal {
	return resolvePriceEntry(data.PriceEntries[item.ProductID], date, func(e *pricing.PriceEntry) bool {
		return !e.IsCustomerSpecific()
	})
}

func resolvePriceEntry(entries []*pricing.PriceEntry, date time.Time, match func(*pricing.PriceEntry) bool) *decimal.Decimal {
	var best *pricing.PriceEntry
	for _, entry := range entries {
		if !match(entry) || !entry.ValidOn(date) {
			continue
		}
		if best == nil || pricing.PreferByValidity(entry.ValidFrom, entry.ID, best.ValidFrom, best.ID) {
			best = entry
		}
	}
	if best == nil {
		return nil
	}
	return &best.UnitPrice
}

// applyAdjustmentRules multiplies the resolved base price by the single most
// specific applicable rule: contract > customer > tenant, latest valid_from,
// then smallest id.
func applyAdjustmentRules(price decimal.Decimal, rules []*pricing.AdjustmentRule, contractID, customerID string, date time.Time) decimal.Decimal {
	var best *pricing.AdjustmentRule
	for _, rule := range rules {
		if !rule.ValidOn(date) || !ruleAppliesTo(rule, contractID, customerID) {
			continue
		}
		if best == nil || pricing.PreferRule(rule, best) {
			best = rule
		}
	}
	if best == nil {
		return price
	}
	return price.Mul(best.Factor)
}

func ruleAppliesTo(rule *pricing.AdjustmentRule, contractID, customerID string) bool {
	switch rule.Scope {
	case types.AdjustmentScopeContract:
		return rule.ContractID != nil && *rule.ContractID == contractID
	case types.AdjustmentScopeCustomer:
		return rule.CustomerID != nil && *rule.CustomerID == customerID
	case types.AdjustmentScopeTenant:
		return true
	default:
		return false
	}
}
