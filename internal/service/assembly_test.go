package service

import (
	"context"
	"testing"
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/contract"
	"github.com/contractdesk/contractdesk/internal/domain/pricing"
	"github.com/contractdesk/contractdesk/internal/domain/tenant"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/testutil"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InvoiceAssemblySuite struct {
	suite.Suite
	ctx         context.Context
	service     InvoiceAssemblyService
	pricingRepo *testutil.InMemoryPricingStore
	tenantRepo  *testutil.InMemoryTenantStore
	settings    tenant.Settings
}

func TestInvoiceAssemblyService(t *testing.T) {
	suite.Run(t, new(InvoiceAssemblySuite))
}

func (s *InvoiceAssemblySuite) SetupTest() {
	log, err := logger.NewLogger()
	s.Require().NoError(err)
	s.ctx = testutil.SetupContext()
	s.pricingRepo = testutil.NewInMemoryPricingStore()
	s.tenantRepo = testutil.NewInMemoryTenantStore()

	s.settings = tenant.Settings{
		Currency:       "EUR",
		DefaultTaxRate: decimal.NewFromFloat(0.19),
	}
	s.Require().NoError(s.tenantRepo.Create(s.ctx, &tenant.Tenant{
		ID:       types.DefaultTenantID,
		Name:     "Test Tenant",
		Settings: s.settings,
		Status:   types.StatusPublished,
	}))

	periodService := NewBillingPeriodService(log)
	priceService := NewPriceResolutionService(s.pricingRepo, log)
	s.service = NewInvoiceAssemblyService(periodService, priceService, s.tenantRepo, log)
}

func fixedPriceContract(items ...*contract.ContractItem) *contract.Contract {
	return &contract.Contract{
		ID:               "contract-1",
		CustomerID:       "customer-1",
		BillingInterval:  types.BILLING_INTERVAL_MONTHLY,
		BillingAnchorDay: 1,
		StartDate:        date(2025, time.January, 1),
		ContractStatus:   types.ContractStatusActive,
		Currency:         "EUR",
		Items:            items,
	}
}

func fullMonthEvent(y int, m time.Month) types.BillingEvent {
	start := date(y, m, 1)
	end := types.EndOfMonth(start)
	return types.BillingEvent{
		PeriodStart:     start,
		PeriodEnd:       end,
		NominalStart:    start,
		NominalEnd:      end,
		ProrationFactor: decimal.NewFromInt(1),
	}
}

func emptyPricingData() *PricingData {
	return &PricingData{
		PriceEntries:     make(map[string][]*pricing.PriceEntry),
		ScheduledChanges: make(map[string][]*pricing.ScheduledPriceChange),
	}
}

func (s *InvoiceAssemblySuite) TestDiscountOrdering() {
	// 1000 with a 10% line item discount and a 50 contract discount must
	// come out at 850: percent on the unit price first, then the absolute
	// contract discount on the line total
	c := fixedPriceContract(&contract.ContractItem{
		ID:             "item-1",
		ContractID:     "contract-1",
		ProductID:      "product-1",
		Quantity:       decimal.NewFromInt(1),
		FixedUnitPrice: lo.ToPtr(decimal.NewFromInt(1000)),
	})

	data := emptyPricingData()
	data.Discounts = []*pricing.Discount{
		{
			ID:         "disc-2",
			Scope:      types.DiscountScopeContract,
			ContractID: "contract-1",
			Kind:       types.DiscountKindAbsolute,
			Value:      pricing.DiscountValue{Amount: lo.ToPtr(decimal.NewFromInt(50))},
		},
		{
			ID:             "disc-1",
			Scope:          types.DiscountScopeLineItem,
			ContractID:     "contract-1",
			ContractItemID: lo.ToPtr("item-1"),
			Kind:           types.DiscountKindPercent,
			Value:          pricing.DiscountValue{Percent: lo.ToPtr(decimal.NewFromInt(10))},
		},
	}

	result, err := s.service.AssembleForEvent(c, fullMonthEvent(2025, time.January), data, s.settings, types.ForecastModeBilling)
	s.NoError(err)
	s.Require().Len(result.LineItems, 1)

	s.True(result.LineItems[0].UnitPrice.Equal(decimal.NewFromInt(900)))
	s.True(result.NetTotal.Equal(decimal.NewFromInt(850)), "expected 850, got %s", result.NetTotal)
	s.True(result.TaxAmount.Equal(decimal.NewFromFloat(161.50)), "expected 161.50, got %s", result.TaxAmount)
	s.True(result.GrossTotal.Equal(decimal.NewFromFloat(1011.50)))
}

func (s *InvoiceAssemblySuite) TestLineLevelRounding() {
	// three lines of 33.335 each round at line level to 33.34; the total is
	// the sum of rounded lines, 100.02, never a re-rounded aggregate
	var items []*contract.ContractItem
	for _, id := range []string{"item-1", "item-2", "item-3"} {
		items = append(items, &contract.ContractItem{
			ID:             id,
			ContractID:     "contract-1",
			ProductID:      "product-" + id,
			Quantity:       decimal.NewFromInt(1),
			FixedUnitPrice: lo.ToPtr(decimal.NewFromFloat(33.335)),
		})
	}
	c := fixedPriceContract(items...)

	result, err := s.service.AssembleForEvent(c, fullMonthEvent(2025, time.January), emptyPricingData(), s.settings, types.ForecastModeBilling)
	s.NoError(err)
	s.Require().Len(result.LineItems, 3)

	for _, line := range result.LineItems {
		s.True(line.NetAmount.Equal(decimal.NewFromFloat(33.34)), "expected 33.34, got %s", line.NetAmount)
	}
	s.True(result.NetTotal.Equal(decimal.NewFromFloat(100.02)), "expected 100.02, got %s", result.NetTotal)
}

func (s *InvoiceAssemblySuite) TestFreeUnitsReduceQuantity() {
	c := fixedPriceContract(&contract.ContractItem{
		ID:             "item-1",
		ContractID:     "contract-1",
		ProductID:      "product-1",
		Quantity:       decimal.NewFromInt(10),
		FixedUnitPrice: lo.ToPtr(decimal.NewFromInt(5)),
	})

	data := emptyPricingData()
	data.Discounts = []*pricing.Discount{
		{
			ID:             "disc-1",
			Scope:          types.DiscountScopeLineItem,
			ContractID:     "contract-1",
			ContractItemID: lo.ToPtr("item-1"),
			Kind:           types.DiscountKindFreeUnits,
			Value:          pricing.DiscountValue{FreeUnits: lo.ToPtr(decimal.NewFromInt(4))},
		},
	}

	result, err := s.service.AssembleForEvent(c, fullMonthEvent(2025, time.January), data, s.settings, types.ForecastModeBilling)
	s.NoError(err)
	s.Require().Len(result.LineItems, 1)

	// 6 billable units at the untouched unit price
	s.True(result.LineItems[0].Quantity.Equal(decimal.NewFromInt(6)))
	s.True(result.LineItems[0].UnitPrice.Equal(decimal.NewFromInt(5)))
	s.True(result.NetTotal.Equal(decimal.NewFromInt(30)))
}

func (s *InvoiceAssemblySuite) TestTieredDiscountSelectsBracket() {
	c := fixedPriceContract(&contract.ContractItem{
		ID:             "item-1",
		ContractID:     "contract-1",
		ProductID:      "product-1",
		Quantity:       decimal.NewFromInt(25),
		FixedUnitPrice: lo.ToPtr(decimal.NewFromInt(10)),
	})

	data := emptyPricingData()
	data.Discounts = []*pricing.Discount{
		{
			ID:             "disc-1",
			Scope:          types.DiscountScopeLineItem,
			ContractID:     "contract-1",
			ContractItemID: lo.ToPtr("item-1"),
			Kind:           types.DiscountKindTiered,
			Value: pricing.DiscountValue{Tiers: []pricing.DiscountTier{
				{MinQuantity: decimal.NewFromInt(10), Percent: decimal.NewFromInt(5)},
				{MinQuantity: decimal.NewFromInt(20), Percent: decimal.NewFromInt(10)},
			}},
		},
	}

	result, err := s.service.AssembleForEvent(c, fullMonthEvent(2025, time.January), data, s.settings, types.ForecastModeBilling)
	s.NoError(err)
	s.Require().Len(result.LineItems, 1)

	// quantity 25 lands in the 10% bracket
	s.True(result.LineItems[0].UnitPrice.Equal(decimal.NewFromInt(9)))
	s.True(result.NetTotal.Equal(decimal.NewFromInt(225)))
}

func (s *InvoiceAssemblySuite) TestAbsoluteContractDiscountAllocation() {
	c := fixedPriceContract(
		&contract.ContractItem{
			ID:             "item-1",
			ContractID:     "contract-1",
			ProductID:      "product-1",
			Quantity:       decimal.NewFromInt(1),
			FixedUnitPrice: lo.ToPtr(decimal.NewFromInt(100)),
		},
		&contract.ContractItem{
			ID:             "item-2",
			ContractID:     "contract-1",
			ProductID:      "product-2",
			Quantity:       decimal.NewFromInt(1),
			FixedUnitPrice: lo.ToPtr(decimal.NewFromInt(200)),
		},
	)

	data := emptyPricingData()
	data.Discounts = []*pricing.Discount{
		{
			ID:         "disc-1",
			Scope:      types.DiscountScopeContract,
			ContractID: "contract-1",
			Kind:       types.DiscountKindAbsolute,
			Value:      pricing.DiscountValue{Amount: lo.ToPtr(decimal.NewFromInt(50))},
		},
	}

	result, err := s.service.AssembleForEvent(c, fullMonthEvent(2025, time.January), data, s.settings, types.ForecastModeBilling)
	s.NoError(err)
	s.Require().Len(result.LineItems, 2)

	// allocated by share of the net total: 50 * 100/300 and the remainder
	s.True(result.LineItems[0].NetAmount.Equal(decimal.NewFromFloat(83.33)), "got %s", result.LineItems[0].NetAmount)
	s.True(result.LineItems[1].NetAmount.Equal(decimal.NewFromFloat(166.67)), "got %s", result.LineItems[1].NetAmount)
	s.True(result.NetTotal.Equal(decimal.NewFromInt(250)))
}

func (s *InvoiceAssemblySuite) TestCategoryDiscountMatchesItems() {
	c := fixedPriceContract(
		&contract.ContractItem{
			ID:              "item-1",
			ContractID:      "contract-1",
			ProductID:       "product-1",
			ProductCategory: "SAAS",
			Quantity:        decimal.NewFromInt(1),
			FixedUnitPrice:  lo.ToPtr(decimal.NewFromInt(100)),
		},
		&contract.ContractItem{
			ID:              "item-2",
			ContractID:      "contract-1",
			ProductID:       "product-2",
			ProductCategory: "HARDWARE",
			Quantity:        decimal.NewFromInt(1),
			FixedUnitPrice:  lo.ToPtr(decimal.NewFromInt(100)),
		},
	)

	data := emptyPricingData()
	data.Discounts = []*pricing.Discount{
		{
			ID:              "disc-1",
			Scope:           types.DiscountScopeCategory,
			ContractID:      "contract-1",
			ProductCategory: lo.ToPtr("SAAS"),
			Kind:            types.DiscountKindPercent,
			Value:           pricing.DiscountValue{Percent: lo.ToPtr(decimal.NewFromInt(20))},
		},
	}

	result, err := s.service.AssembleForEvent(c, fullMonthEvent(2025, time.January), data, s.settings, types.ForecastModeBilling)
	s.NoError(err)
	s.Require().Len(result.LineItems, 2)

	// only the matching category is reduced
	s.True(result.LineItems[0].UnitPrice.Equal(decimal.NewFromInt(80)), "got %s", result.LineItems[0].UnitPrice)
	s.True(result.LineItems[1].UnitPrice.Equal(decimal.NewFromInt(100)))
	s.True(result.NetTotal.Equal(decimal.NewFromInt(180)))
}

func (s *InvoiceAssemblySuite) TestPriceListDiscountOnListPricedLines() {
	c := fixedPriceContract(
		&contract.ContractItem{
			ID:         "item-1",
			ContractID: "contract-1",
			ProductID:  "product-1",
			Quantity:   decimal.NewFromInt(1),
		},
		&contract.ContractItem{
			ID:             "item-2",
			ContractID:     "contract-1",
			ProductID:      "product-2",
			Quantity:       decimal.NewFromInt(1),
			FixedUnitPrice: lo.ToPtr(decimal.NewFromInt(100)),
		},
	)

	data := emptyPricingData()
	data.PriceEntries["product-1"] = []*pricing.PriceEntry{
		{
			ID:        "price-1",
			ProductID: "product-1",
			UnitPrice: decimal.NewFromInt(100),
			Currency:  "EUR",
			ValidFrom: date(2024, time.January, 1),
		},
	}
	data.Discounts = []*pricing.Discount{
		{
			ID:         "disc-1",
			Scope:      types.DiscountScopePriceList,
			ContractID: "contract-1",
			Kind:       types.DiscountKindPercent,
			Value:      pricing.DiscountValue{Percent: lo.ToPtr(decimal.NewFromInt(15))},
		},
	}

	result, err := s.service.AssembleForEvent(c, fullMonthEvent(2025, time.January), data, s.settings, types.ForecastModeBilling)
	s.NoError(err)
	s.Require().Len(result.LineItems, 2)

	// only the list priced line is reduced, the contract fixed one is not
	s.Equal(types.PriceSourceListPrice, result.LineItems[0].PriceSource)
	s.True(result.LineItems[0].UnitPrice.Equal(decimal.NewFromInt(85)), "got %s", result.LineItems[0].UnitPrice)
	s.Equal(types.PriceSourceContractFixed, result.LineItems[1].PriceSource)
	s.True(result.LineItems[1].UnitPrice.Equal(decimal.NewFromInt(100)))
}

func (s *InvoiceAssemblySuite) TestOneTimeDiscountSinglePeriod() {
	c := fixedPriceContract(&contract.ContractItem{
		ID:             "item-1",
		ContractID:     "contract-1",
		ProductID:      "product-1",
		Quantity:       decimal.NewFromInt(1),
		FixedUnitPrice: lo.ToPtr(decimal.NewFromInt(100)),
	})

	data := emptyPricingData()
	data.Discounts = []*pricing.Discount{
		{
			ID:         "disc-1",
			Scope:      types.DiscountScopeContract,
			ContractID: "contract-1",
			Kind:       types.DiscountKindAbsolute,
			Value:      pricing.DiscountValue{Amount: lo.ToPtr(decimal.NewFromInt(30))},
			Validity:   types.DiscountValidityOneTime,
			ValidFrom:  lo.ToPtr(date(2025, time.January, 15)),
		},
	}

	// the discount hits exactly the period containing its valid from date
	january, err := s.service.AssembleForEvent(c, fullMonthEvent(2025, time.January), data, s.settings, types.ForecastModeBilling)
	s.NoError(err)
	s.True(january.NetTotal.Equal(decimal.NewFromInt(70)), "expected 70, got %s", january.NetTotal)

	february, err := s.service.AssembleForEvent(c, fullMonthEvent(2025, time.February), data, s.settings, types.ForecastModeBilling)
	s.NoError(err)
	s.True(february.NetTotal.Equal(decimal.NewFromInt(100)), "expected 100, got %s", february.NetTotal)
}

func (s *InvoiceAssemblySuite) TestProratedLineAmount() {
	c := fixedPriceContract(&contract.ContractItem{
		ID:             "item-1",
		ContractID:     "contract-1",
		ProductID:      "product-1",
		Quantity:       decimal.NewFromInt(1),
		FixedUnitPrice: lo.ToPtr(decimal.NewFromInt(300)),
	})
	c.StartDate = date(2025, time.April, 15)

	event := types.BillingEvent{
		PeriodStart:     date(2025, time.April, 15),
		PeriodEnd:       date(2025, time.April, 30),
		NominalStart:    date(2025, time.April, 1),
		NominalEnd:      date(2025, time.April, 30),
		ProrationFactor: decimal.NewFromInt(16).Div(decimal.NewFromInt(30)),
	}

	result, err := s.service.AssembleForEvent(c, event, emptyPricingData(), s.settings, types.ForecastModeBilling)
	s.NoError(err)
	s.Require().Len(result.LineItems, 1)

	// 300 * 16/30 = 160
	s.True(result.NetTotal.Equal(decimal.NewFromInt(160)), "expected 160, got %s", result.NetTotal)
}

func (s *InvoiceAssemblySuite) TestRecognitionSpread() {
	c := fixedPriceContract(&contract.ContractItem{
		ID:             "item-1",
		ContractID:     "contract-1",
		ProductID:      "product-1",
		Quantity:       decimal.NewFromInt(1),
		FixedUnitPrice: lo.ToPtr(decimal.NewFromInt(100)),
	})
	c.BillingInterval = types.BILLING_INTERVAL_QUARTERLY

	event := types.BillingEvent{
		PeriodStart:     date(2025, time.January, 1),
		PeriodEnd:       date(2025, time.March, 31),
		NominalStart:    date(2025, time.January, 1),
		NominalEnd:      date(2025, time.March, 31),
		ProrationFactor: decimal.NewFromInt(1),
	}

	result, err := s.service.AssembleForEvent(c, event, emptyPricingData(), s.settings, types.ForecastModeRecognition)
	s.NoError(err)
	s.Require().Len(result.Recognition, 3)

	// 100 over three months: the remainder cent lands in the first month
	s.Equal(date(2025, time.January, 1), result.Recognition[0].Month)
	s.True(result.Recognition[0].Amount.Equal(decimal.NewFromFloat(33.34)), "got %s", result.Recognition[0].Amount)
	s.True(result.Recognition[1].Amount.Equal(decimal.NewFromFloat(33.33)))
	s.True(result.Recognition[2].Amount.Equal(decimal.NewFromFloat(33.33)))

	total := decimal.Zero
	for _, m := range result.Recognition {
		total = total.Add(m.Amount)
	}
	s.True(total.Equal(result.NetTotal))
}

func (s *InvoiceAssemblySuite) TestItemWindowExcludesLine() {
	c := fixedPriceContract(
		&contract.ContractItem{
			ID:             "item-1",
			ContractID:     "contract-1",
			ProductID:      "product-1",
			Quantity:       decimal.NewFromInt(1),
			FixedUnitPrice: lo.ToPtr(decimal.NewFromInt(100)),
		},
		&contract.ContractItem{
			ID:             "item-2",
			ContractID:     "contract-1",
			ProductID:      "product-2",
			Quantity:       decimal.NewFromInt(1),
			FixedUnitPrice: lo.ToPtr(decimal.NewFromInt(50)),
			BillingEndDate: lo.ToPtr(date(2024, time.December, 31)),
		},
	)

	result, err := s.service.AssembleForEvent(c, fullMonthEvent(2025, time.January), emptyPricingData(), s.settings, types.ForecastModeBilling)
	s.NoError(err)

	// the expired item produces no line at all
	s.Require().Len(result.LineItems, 1)
	s.Equal("product-1", result.LineItems[0].ProductID)
}

func (s *InvoiceAssemblySuite) TestAssembleInvoiceNoEventOnDate() {
	c := fixedPriceContract(&contract.ContractItem{
		ID:             "item-1",
		ContractID:     "contract-1",
		ProductID:      "product-1",
		Quantity:       decimal.NewFromInt(1),
		FixedUnitPrice: lo.ToPtr(decimal.NewFromInt(100)),
	})

	_, err := s.service.AssembleInvoice(s.ctx, c, date(2025, time.January, 15), types.ForecastModeBilling)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceAssemblySuite) TestAssembleInvoiceOnBillingDate() {
	c := fixedPriceContract(&contract.ContractItem{
		ID:             "item-1",
		ContractID:     "contract-1",
		ProductID:      "product-1",
		Quantity:       decimal.NewFromInt(2),
		FixedUnitPrice: lo.ToPtr(decimal.NewFromInt(40)),
	})

	result, err := s.service.AssembleInvoice(s.ctx, c, date(2025, time.February, 1), types.ForecastModeBilling)
	s.NoError(err)
	s.Equal(date(2025, time.February, 1), result.BillingDate)
	s.True(result.NetTotal.Equal(decimal.NewFromInt(80)))
	s.True(result.TaxRate.Equal(s.settings.DefaultTaxRate))
}
