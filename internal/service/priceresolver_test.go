package service

import (
	"context"
	"testing"
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/contract"
	"github.com/contractdesk/contractdesk/internal/domain/pricing"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/testutil"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PriceResolutionServiceSuite struct {
	suite.Suite
	ctx         context.Context
	service     PriceResolutionService
	pricingRepo *testutil.InMemoryPricingStore
}

func TestPriceResolutionService(t *testing.T) {
	suite.Run(t, new(PriceResolutionServiceSuite))
}

func (s *PriceResolutionServiceSuite) SetupTest() {
	log, err := logger.NewLogger()
	s.Require().NoError(err)
	s.ctx = testutil.SetupContext()
	s.pricingRepo = testutil.NewInMemoryPricingStore()
	s.service = NewPriceResolutionService(s.pricingRepo, log)
}

func (s *PriceResolutionServiceSuite) contractWithItem() (*contract.Contract, *contract.ContractItem) {
	item := &contract.ContractItem{
		ID:         "item-1",
		ContractID: "contract-1",
		ProductID:  "product-1",
		Quantity:   decimal.NewFromInt(1),
	}
	c := &contract.Contract{
		ID:               "contract-1",
		CustomerID:       "customer-1",
		BillingInterval:  types.BILLING_INTERVAL_MONTHLY,
		BillingAnchorDay: 1,
		StartDate:        date(2025, time.January, 1),
		ContractStatus:   types.ContractStatusActive,
		Currency:         "EUR",
		Items:            []*contract.ContractItem{item},
	}
	return c, item
}

func (s *PriceResolutionServiceSuite) emptyData() *PricingData {
	return &PricingData{
		PriceEntries:     make(map[string][]*pricing.PriceEntry),
		ScheduledChanges: make(map[string][]*pricing.ScheduledPriceChange),
	}
}

func (s *PriceResolutionServiceSuite) TestContractFixedPriceWins() {
	c, item := s.contractWithItem()
	item.FixedUnitPrice = lo.ToPtr(decimal.NewFromInt(80))

	data := s.emptyData()
	data.ScheduledChanges["item-1"] = []*pricing.ScheduledPriceChange{
		{ID: "chg-1", ContractItemID: "item-1", NewUnitPrice: decimal.NewFromInt(70), EffectiveDate: date(2025, time.January, 1)},
	}
	data.PriceEntries["product-1"] = []*pricing.PriceEntry{
		{ID: "pe-1", ProductID: "product-1", UnitPrice: decimal.NewFromInt(100), ValidFrom: date(2024, time.January, 1)},
	}

	resolved, err := s.service.Resolve(c, item, data, date(2025, time.June, 1))
	s.NoError(err)
	s.Equal(types.PriceSourceContractFixed, resolved.Source)
	s.True(resolved.UnitPrice.Equal(decimal.NewFromInt(80)))
}

func (s *PriceResolutionServiceSuite) TestScheduledChangeBeatsAgreementAndList() {
	c, item := s.contractWithItem()

	data := s.emptyData()
	data.ScheduledChanges["item-1"] = []*pricing.ScheduledPriceChange{
		{ID: "chg-1", ContractItemID: "item-1", NewUnitPrice: decimal.NewFromInt(70), EffectiveDate: date(2025, time.March, 1)},
	}
	data.PriceEntries["product-1"] = []*pricing.PriceEntry{
		{ID: "pe-1", ProductID: "product-1", CustomerID: lo.ToPtr("customer-1"), UnitPrice: decimal.NewFromInt(90), ValidFrom: date(2024, time.January, 1)},
		{ID: "pe-2", ProductID: "product-1", UnitPrice: decimal.NewFromInt(100), ValidFrom: date(2024, time.January, 1)},
	}

	// before the effective date the agreement price applies
	resolved, err := s.service.Resolve(c, item, data, date(2025, time.February, 1))
	s.NoError(err)
	s.Equal(types.PriceSourceCustomerAgreement, resolved.Source)
	s.True(resolved.UnitPrice.Equal(decimal.NewFromInt(90)))

	// from the effective date on the scheduled change wins
	resolved, err = s.service.Resolve(c, item, data, date(2025, time.March, 1))
	s.NoError(err)
	s.Equal(types.PriceSourceScheduledChange, resolved.Source)
	s.True(resolved.UnitPrice.Equal(decimal.NewFromInt(70)))
}

func (s *PriceResolutionServiceSuite) TestListPriceFallback() {
	c, item := s.contractWithItem()

	data := s.emptyData()
	data.PriceEntries["product-1"] = []*pricing.PriceEntry{
		{ID: "pe-1", ProductID: "product-1", CustomerID: lo.ToPtr("other-customer"), UnitPrice: decimal.NewFromInt(90), ValidFrom: date(2024, time.January, 1)},
		{ID: "pe-2", ProductID: "product-1", UnitPrice: decimal.NewFromInt(100), ValidFrom: date(2024, time.January, 1)},
	}

	// another customer's agreement price never leaks into this contract
	resolved, err := s.service.Resolve(c, item, data, date(2025, time.June, 1))
	s.NoError(err)
	s.Equal(types.PriceSourceListPrice, resolved.Source)
	s.True(resolved.UnitPrice.Equal(decimal.NewFromInt(100)))
}

func (s *PriceResolutionServiceSuite) TestOverlappingEntriesLatestValidFromWins() {
	c, item := s.contractWithItem()

	data := s.emptyData()
	data.PriceEntries["product-1"] = []*pricing.PriceEntry{
		{ID: "pe-1", ProductID: "product-1", UnitPrice: decimal.NewFromInt(100), ValidFrom: date(2024, time.January, 1)},
		{ID: "pe-2", ProductID: "product-1", UnitPrice: decimal.NewFromInt(110), ValidFrom: date(2025, time.January, 1)},
	}

	resolved, err := s.service.Resolve(c, item, data, date(2025, time.June, 1))
	s.NoError(err)
	s.True(resolved.UnitPrice.Equal(decimal.NewFromInt(110)))
}

func (s *PriceResolutionServiceSuite) TestEqualValidFromSmallerIDWins() {
	c, item := s.contractWithItem()

	data := s.emptyData()
	data.PriceEntries["product-1"] = []*pricing.PriceEntry{
		{ID: "pe-2", ProductID: "product-1", UnitPrice: decimal.NewFromInt(110), ValidFrom: date(2025, time.January, 1)},
		{ID: "pe-1", ProductID: "product-1", UnitPrice: decimal.NewFromInt(100), ValidFrom: date(2025, time.January, 1)},
	}

	resolved, err := s.service.Resolve(c, item, data, date(2025, time.June, 1))
	s.NoError(err)
	s.True(resolved.UnitPrice.Equal(decimal.NewFromInt(100)))
}

func (s *PriceResolutionServiceSuite) TestExpiredEntryIsSkipped() {
	c, item := s.contractWithItem()

	data := s.emptyData()
	data.PriceEntries["product-1"] = []*pricing.PriceEntry{
		{ID: "pe-1", ProductID: "product-1", UnitPrice: decimal.NewFromInt(100), ValidFrom: date(2024, time.January, 1), ValidTo: lo.ToPtr(date(2024, time.December, 31))},
		{ID: "pe-2", ProductID: "product-1", UnitPrice: decimal.NewFromInt(120), ValidFrom: date(2024, time.June, 1)},
	}

	resolved, err := s.service.Resolve(c, item, data, date(2025, time.June, 1))
	s.NoError(err)
	s.True(resolved.UnitPrice.Equal(decimal.NewFromInt(120)))
}

func (s *PriceResolutionServiceSuite) TestAdjustmentRuleSpecificity() {
	c, item := s.contractWithItem()

	data := s.emptyData()
	data.PriceEntries["product-1"] = []*pricing.PriceEntry{
		{ID: "pe-1", ProductID: "product-1", UnitPrice: decimal.NewFromInt(100), ValidFrom: date(2024, time.January, 1)},
	}
	data.AdjustmentRules = []*pricing.AdjustmentRule{
		{ID: "adj-1", Scope: types.AdjustmentScopeTenant, Factor: decimal.NewFromFloat(1.10), ValidFrom: date(2024, time.January, 1)},
		{ID: "adj-2", Scope: types.AdjustmentScopeContract, ContractID: lo.ToPtr("contract-1"), Factor: decimal.NewFromFloat(1.03), ValidFrom: date(2024, time.January, 1)},
	}

	// the contract scoped rule wins over the tenant default; exactly one
	// rule applies, they do not stack
	resolved, err := s.service.Resolve(c, item, data, date(2025, time.June, 1))
	s.NoError(err)
	s.True(resolved.UnitPrice.Equal(decimal.NewFromInt(103)), "expected 103, got %s", resolved.UnitPrice)
}

func (s *PriceResolutionServiceSuite) TestNoPriceFound() {
	c, item := s.contractWithItem()

	_, err := s.service.Resolve(c, item, s.emptyData(), date(2025, time.June, 1))
	s.Error(err)
	s.True(ierr.IsPricing(err))
}

func (s *PriceResolutionServiceSuite) TestResolvePriceThroughRepository() {
	c, item := s.contractWithItem()

	entry := &pricing.PriceEntry{
		ID:        "pe-1",
		ProductID: "product-1",
		UnitPrice: decimal.NewFromInt(100),
		Currency:  "EUR",
		ValidFrom: date(2024, time.January, 1),
		BaseModel: types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.pricingRepo.CreatePriceEntry(s.ctx, entry))

	resolved, err := s.service.ResolvePrice(s.ctx, c, item, date(2025, time.June, 1))
	s.NoError(err)
	s.Equal(types.PriceSourceListPrice, resolved.Source)
	s.True(resolved.UnitPrice.Equal(decimal.NewFromInt(100)))
}
