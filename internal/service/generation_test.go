package service

import (
	"context"
	"testing"
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/contract"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/testutil"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InvoiceGenerationSuite struct {
	testutil.BaseServiceTestSuite
	service InvoiceGenerationService
}

func TestInvoiceGenerationService(t *testing.T) {
	suite.Run(t, new(InvoiceGenerationSuite))
}

func (s *InvoiceGenerationSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	periodService := NewBillingPeriodService(s.GetLogger())
	priceService := NewPriceResolutionService(stores.PricingRepo, s.GetLogger())
	assemblyService := NewInvoiceAssemblyService(periodService, priceService, stores.TenantRepo, s.GetLogger())
	numberService := NewInvoiceNumberService(stores.SchemeRepo, s.GetLogger())

	s.service = NewInvoiceGenerationService(
		s.GetDB(),
		stores.ContractRepo,
		stores.InvoiceRepo,
		stores.TenantRepo,
		periodService,
		priceService,
		assemblyService,
		numberService,
		s.GetLogger(),
	)
}

func (s *InvoiceGenerationSuite) seedContract() *contract.Contract {
	c := &contract.Contract{
		ID:               "contract-1",
		CustomerID:       "customer-1",
		BillingInterval:  types.BILLING_INTERVAL_MONTHLY,
		BillingAnchorDay: 1,
		StartDate:        date(2025, time.January, 1),
		ContractStatus:   types.ContractStatusActive,
		Currency:         "EUR",
		Items: []*contract.ContractItem{
			{
				ID:             "item-1",
				ContractID:     "contract-1",
				ProductID:      "product-1",
				Description:    "Managed hosting",
				Quantity:       decimal.NewFromInt(2),
				FixedUnitPrice: lo.ToPtr(decimal.NewFromInt(50)),
				BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
			},
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().ContractRepo.Create(s.GetContext(), c))
	return c
}

func (s *InvoiceGenerationSuite) TestGenerateAndPersist() {
	s.seedContract()

	invoices, err := s.service.GenerateAndPersist(s.GetContext(), 2025, time.March)
	s.NoError(err)
	s.Require().Len(invoices, 1)

	inv := invoices[0]
	s.Equal("2025-0001", inv.InvoiceNumber)
	s.Equal(types.InvoiceStatusFinalized, inv.InvoiceStatus)
	s.Equal(date(2025, time.March, 1), inv.PeriodStart)
	s.Equal(date(2025, time.March, 31), inv.PeriodEnd)
	s.True(inv.NetTotal.Equal(decimal.NewFromInt(100)))
	s.True(inv.TaxAmount.Equal(decimal.NewFromInt(19)))
	s.True(inv.GrossTotal.Equal(decimal.NewFromInt(119)))
	s.NotNil(inv.FinalizedAt)

	// the snapshot freezes line items and seller legal data
	s.Require().Len(inv.Snapshot.LineItems, 1)
	s.Equal("product-1", inv.Snapshot.LineItems[0].ProductID)
	s.Equal("Test Tenant GmbH", inv.Snapshot.Seller.CompanyName)

	stored, err := s.service.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(inv.InvoiceNumber, stored.InvoiceNumber)
	s.Require().Len(stored.LineItems, 1)
	s.Equal(inv.ID, stored.LineItems[0].InvoiceID)
}

func (s *InvoiceGenerationSuite) TestRepeatedGenerationIsIdempotent() {
	s.seedContract()

	first, err := s.service.GenerateAndPersist(s.GetContext(), 2025, time.March)
	s.NoError(err)
	s.Len(first, 1)

	// the period already has a finalized record, so nothing new is written
	second, err := s.service.GenerateAndPersist(s.GetContext(), 2025, time.March)
	s.NoError(err)
	s.Empty(second)

	count, err := s.GetStores().InvoiceRepo.Count(s.GetContext(), types.NewInvoiceFilter())
	s.NoError(err)
	s.Equal(1, count)
}

func (s *InvoiceGenerationSuite) TestCancelAndRegenerate() {
	s.seedContract()

	first, err := s.service.GenerateAndPersist(s.GetContext(), 2025, time.March)
	s.NoError(err)
	s.Require().Len(first, 1)

	cancelled, err := s.service.CancelInvoice(s.GetContext(), first[0].ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusCancelled, cancelled.InvoiceStatus)
	s.NotNil(cancelled.CancelledAt)

	// regeneration yields a fresh record under a new, higher number; the
	// cancelled number is never reused
	second, err := s.service.GenerateAndPersist(s.GetContext(), 2025, time.March)
	s.NoError(err)
	s.Require().Len(second, 1)
	s.Equal("2025-0002", second[0].InvoiceNumber)
	s.NotEqual(first[0].ID, second[0].ID)

	// the cancelled record stays queryable for history
	stored, err := s.service.GetInvoice(s.GetContext(), first[0].ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusCancelled, stored.InvoiceStatus)
}

func (s *InvoiceGenerationSuite) TestCancelTwiceFails() {
	s.seedContract()

	invoices, err := s.service.GenerateAndPersist(s.GetContext(), 2025, time.March)
	s.NoError(err)
	s.Require().Len(invoices, 1)

	_, err = s.service.CancelInvoice(s.GetContext(), invoices[0].ID)
	s.NoError(err)

	_, err = s.service.CancelInvoice(s.GetContext(), invoices[0].ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceGenerationSuite) TestNewContractInGeneratedMonthGetsNumbered() {
	s.seedContract()

	_, err := s.service.GenerateAndPersist(s.GetContext(), 2025, time.March)
	s.NoError(err)

	// a contract added after the first run still gets billed on retry
	c2 := &contract.Contract{
		ID:               "contract-2",
		CustomerID:       "customer-2",
		BillingInterval:  types.BILLING_INTERVAL_MONTHLY,
		BillingAnchorDay: 1,
		StartDate:        date(2025, time.January, 1),
		ContractStatus:   types.ContractStatusActive,
		Currency:         "EUR",
		Items: []*contract.ContractItem{
			{
				ID:             "item-2",
				ContractID:     "contract-2",
				ProductID:      "product-1",
				Quantity:       decimal.NewFromInt(1),
				FixedUnitPrice: lo.ToPtr(decimal.NewFromInt(10)),
				BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
			},
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().ContractRepo.Create(s.GetContext(), c2))

	invoices, err := s.service.GenerateAndPersist(s.GetContext(), 2025, time.March)
	s.NoError(err)
	s.Require().Len(invoices, 1)
	s.Equal("contract-2", invoices[0].ContractID)
	s.Equal("2025-0002", invoices[0].InvoiceNumber)
}

// staleReadInvoiceStore answers every existence check negatively, the way a
// concurrent run sees the period before the other writer commits. The write
// itself still enforces uniqueness.
type staleReadInvoiceStore struct {
	*testutil.InMemoryInvoiceStore
}

func (s *staleReadInvoiceStore) ExistsForPeriod(context.Context, string, time.Time, time.Time) (bool, error) {
	return false, nil
}

func (s *InvoiceGenerationSuite) TestConcurrentGenerationLosesRaceQuietly() {
	s.seedContract()

	stores := s.GetStores()
	periodService := NewBillingPeriodService(s.GetLogger())
	priceService := NewPriceResolutionService(stores.PricingRepo, s.GetLogger())
	assemblyService := NewInvoiceAssemblyService(periodService, priceService, stores.TenantRepo, s.GetLogger())
	numberService := NewInvoiceNumberService(stores.SchemeRepo, s.GetLogger())
	racing := NewInvoiceGenerationService(
		s.GetDB(),
		stores.ContractRepo,
		&staleReadInvoiceStore{InMemoryInvoiceStore: stores.InvoiceRepo.(*testutil.InMemoryInvoiceStore)},
		stores.TenantRepo,
		periodService,
		priceService,
		assemblyService,
		numberService,
		s.GetLogger(),
	)

	first, err := s.service.GenerateAndPersist(s.GetContext(), 2025, time.March)
	s.NoError(err)
	s.Require().Len(first, 1)

	// the run with the stale existence read loses the unique index race and
	// treats the period as already billed instead of failing
	second, err := racing.GenerateAndPersist(s.GetContext(), 2025, time.March)
	s.NoError(err)
	s.Empty(second)

	count, err := stores.InvoiceRepo.Count(s.GetContext(), types.NewInvoiceFilter())
	s.NoError(err)
	s.Equal(1, count)
}

func (s *InvoiceGenerationSuite) TestGenerateFailsWithoutPrice() {
	c := s.seedContract()
	c.Items[0].FixedUnitPrice = nil
	s.Require().NoError(s.GetStores().ContractRepo.Update(s.GetContext(), c))

	_, err := s.service.GenerateAndPersist(s.GetContext(), 2025, time.March)
	s.Error(err)
	s.True(ierr.IsPricing(err))
}

func (s *InvoiceGenerationSuite) TestGenerateInvalidMonth() {
	_, err := s.service.GenerateAndPersist(s.GetContext(), 2025, time.Month(13))
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceGenerationSuite) TestListInvoicesByPeriod() {
	s.seedContract()

	_, err := s.service.GenerateAndPersist(s.GetContext(), 2025, time.February)
	s.NoError(err)
	_, err = s.service.GenerateAndPersist(s.GetContext(), 2025, time.March)
	s.NoError(err)

	filter := types.NewInvoiceFilter()
	filter.Year = 2025
	filter.Month = 3
	invoices, count, err := s.service.ListInvoices(s.GetContext(), filter)
	s.NoError(err)
	s.Equal(1, count)
	s.Require().Len(invoices, 1)
	s.Equal(date(2025, time.March, 1), invoices[0].BillingDate)
}
