package service

import (
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

type ForecastServiceSuite struct {
	testutil.BaseServiceTestSuite
	service ForecastService
}

func TestForecastService(t *testing.T) {
	suite.Run(t, new(ForecastServiceSuite))
}

func (s *ForecastServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	periodService := NewBillingPeriodService(s.GetLogger())
	priceService := NewPriceResolutionService(stores.PricingRepo, s.GetLogger())
	assemblyService := NewInvoiceAssemblyService(periodService, priceService, stores.TenantRepo, s.GetLogger())

	s.service = NewForecastService(
		stores.ContractRepo,
		stores.TenantRepo,
		periodService,
		priceService,
		assemblyService,
		s.GetLogger(),
	)
}

func (s *ForecastServiceSuite) seedContract(id string, interval types.BillingInterval, start time.Time, unitPrice int64) {
	c := &contract.Contract{
		ID:               id,
		CustomerID:       "customer-" + id,
		BillingInterval:  interval,
		BillingAnchorDay: 1,
		StartDate:        start,
		ContractStatus:   types.ContractStatusActive,
		Currency:         "EUR",
		Items: []*contract.ContractItem{
			{
				ID:             id + "-item",
				ContractID:     id,
				ProductID:      "product-1",
				Quantity:       decimal.NewFromInt(1),
				FixedUnitPrice: lo.ToPtr(decimal.NewFromInt(unitPrice)),
				BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
			},
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().ContractRepo.Create(s.GetContext(), c))
}

func (s *ForecastServiceSuite) TestBillingModeMonthly() {
	s.seedContract("contract-1", types.BILLING_INTERVAL_MONTHLY, date(2025, time.January, 1), 100)

	result, err := s.service.Forecast(s.GetContext(), &ForecastRequest{
		From:   date(2025, time.March, 1),
		Months: 3,
		Mode:   types.ForecastModeBilling,
	})
	s.NoError(err)

	s.Len(result.Months, 3)
	s.Require().Len(result.Cells, 3)
	for _, cell := range result.Cells {
		s.Equal("contract-1", cell.ContractID)
		s.True(cell.Amount.Equal(decimal.NewFromInt(100)), "got %s", cell.Amount)
	}
	s.True(result.MonthTotals["2025-03"].Equal(decimal.NewFromInt(100)))
	s.True(result.GrandTotal.Equal(decimal.NewFromInt(300)))
	s.Equal("EUR", result.Currency)
}

func (s *ForecastServiceSuite) TestBillingVsRecognitionQuarterly() {
	s.seedContract("contract-1", types.BILLING_INTERVAL_QUARTERLY, date(2025, time.January, 1), 300)

	// billing mode attributes the whole quarter to its billing month
	billing, err := s.service.Forecast(s.GetContext(), &ForecastRequest{
		From:   date(2025, time.January, 1),
		Months: 3,
		Mode:   types.ForecastModeBilling,
	})
	s.NoError(err)
	s.True(billing.MonthTotals["2025-01"].Equal(decimal.NewFromInt(300)))
	s.True(billing.MonthTotals["2025-02"].IsZero())
	s.True(billing.MonthTotals["2025-03"].IsZero())

	// recognition mode spreads it over the covered months
	recognition, err := s.service.Forecast(s.GetContext(), &ForecastRequest{
		From:   date(2025, time.January, 1),
		Months: 3,
		Mode:   types.ForecastModeRecognition,
	})
	s.NoError(err)
	s.True(recognition.MonthTotals["2025-01"].Equal(decimal.NewFromInt(100)))
	s.True(recognition.MonthTotals["2025-02"].Equal(decimal.NewFromInt(100)))
	s.True(recognition.MonthTotals["2025-03"].Equal(decimal.NewFromInt(100)))
	s.True(recognition.GrandTotal.Equal(billing.GrandTotal))
}

func (s *ForecastServiceSuite) TestProRataToggle() {
	s.seedContract("contract-1", types.BILLING_INTERVAL_MONTHLY, date(2025, time.April, 15), 100)

	prorated, err := s.service.Forecast(s.GetContext(), &ForecastRequest{
		From:    date(2025, time.April, 1),
		Months:  1,
		Mode:    types.ForecastModeBilling,
		ProRata: true,
	})
	s.NoError(err)
	// 100 * 16/30 rounded at line level
	s.True(prorated.GrandTotal.Equal(decimal.NewFromFloat(53.33)), "got %s", prorated.GrandTotal)

	full, err := s.service.Forecast(s.GetContext(), &ForecastRequest{
		From:    date(2025, time.April, 1),
		Months:  1,
		Mode:    types.ForecastModeBilling,
		ProRata: false,
	})
	s.NoError(err)
	s.True(full.GrandTotal.Equal(decimal.NewFromInt(100)), "got %s", full.GrandTotal)
}

func (s *ForecastServiceSuite) TestMultipleContractsMatrix() {
	s.seedContract("contract-1", types.BILLING_INTERVAL_MONTHLY, date(2025, time.January, 1), 100)
	s.seedContract("contract-2", types.BILLING_INTERVAL_MONTHLY, date(2025, time.January, 1), 40)

	result, err := s.service.Forecast(s.GetContext(), &ForecastRequest{
		From:   date(2025, time.June, 1),
		Months: 2,
		Mode:   types.ForecastModeBilling,
	})
	s.NoError(err)

	s.Equal([]string{"contract-1", "contract-2"}, result.ContractIDs)
	s.Len(result.Cells, 4)
	s.True(result.MonthTotals["2025-06"].Equal(decimal.NewFromInt(140)))
	s.True(result.MonthTotals["2025-07"].Equal(decimal.NewFromInt(140)))
	s.True(result.GrandTotal.Equal(decimal.NewFromInt(280)))
}

func (s *ForecastServiceSuite) TestContractEndLimitsForecast() {
	s.seedContract("contract-1", types.BILLING_INTERVAL_MONTHLY, date(2025, time.January, 1), 100)

	c, err := s.GetStores().ContractRepo.Get(s.GetContext(), "contract-1")
	s.Require().NoError(err)
	c.EndDate = lo.ToPtr(date(2025, time.June, 30))
	s.Require().NoError(s.GetStores().ContractRepo.Update(s.GetContext(), c))

	result, err := s.service.Forecast(s.GetContext(), &ForecastRequest{
		From:   date(2025, time.May, 1),
		Months: 4,
		Mode:   types.ForecastModeBilling,
	})
	s.NoError(err)

	// only May and June bill; the horizon still spans four months
	s.Len(result.Months, 4)
	s.Len(result.Cells, 2)
	s.True(result.GrandTotal.Equal(decimal.NewFromInt(200)))
}

func (s *ForecastServiceSuite) TestInvalidHorizon() {
	_, err := s.service.Forecast(s.GetContext(), &ForecastRequest{
		From:   date(2025, time.January, 1),
		Months: 0,
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
