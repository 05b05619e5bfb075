package service

import (
	"testing"
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/contract"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type BillingPeriodServiceSuite struct {
	suite.Suite
	service BillingPeriodService
}

func TestBillingPeriodService(t *testing.T) {
	suite.Run(t, new(BillingPeriodServiceSuite))
}

func (s *BillingPeriodServiceSuite) SetupTest() {
	log, err := logger.NewLogger()
	s.Require().NoError(err)
	s.service = NewBillingPeriodService(log)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func monthlyContract(start time.Time, anchorDay int) *contract.Contract {
	return &contract.Contract{
		ID:               "contract-1",
		CustomerID:       "customer-1",
		BillingInterval:  types.BILLING_INTERVAL_MONTHLY,
		BillingAnchorDay: anchorDay,
		StartDate:        start,
		ContractStatus:   types.ContractStatusActive,
		Currency:         "EUR",
		Items: []*contract.ContractItem{
			{ID: "item-1", ContractID: "contract-1", ProductID: "product-1", Quantity: decimal.NewFromInt(1)},
		},
	}
}

func (s *BillingPeriodServiceSuite) TestMonthlyFullPeriods() {
	c := monthlyContract(date(2025, time.January, 1), 1)

	events, err := s.service.ComputeBillingEvents(c, date(2025, time.January, 1), date(2025, time.March, 31))
	s.NoError(err)
	s.Len(events, 3)

	s.Equal(date(2025, time.January, 1), events[0].PeriodStart)
	s.Equal(date(2025, time.January, 31), events[0].PeriodEnd)
	s.Equal(date(2025, time.February, 1), events[1].PeriodStart)
	s.Equal(date(2025, time.February, 28), events[1].PeriodEnd)
	s.Equal(date(2025, time.March, 1), events[2].PeriodStart)
	s.Equal(date(2025, time.March, 31), events[2].PeriodEnd)

	for _, event := range events {
		s.True(event.ProrationFactor.Equal(decimal.NewFromInt(1)), "expected factor 1, got %s", event.ProrationFactor)
	}
}

func (s *BillingPeriodServiceSuite) TestMidMonthStartProration() {
	// contract starts April 15, periods anchored at day 1: the first period
	// bills April 15 through April 30, both days counted, 16 of 30 days
	c := monthlyContract(date(2025, time.April, 15), 1)

	events, err := s.service.ComputeBillingEvents(c, date(2025, time.April, 1), date(2025, time.April, 30))
	s.NoError(err)
	s.Require().Len(events, 1)

	event := events[0]
	s.Equal(date(2025, time.April, 15), event.PeriodStart)
	s.Equal(date(2025, time.April, 30), event.PeriodEnd)
	s.Equal(date(2025, time.April, 1), event.NominalStart)
	s.Equal(date(2025, time.April, 30), event.NominalEnd)

	expected := decimal.NewFromInt(16).Div(decimal.NewFromInt(30))
	s.True(event.ProrationFactor.Equal(expected), "expected 16/30, got %s", event.ProrationFactor)
	s.True(event.IsProrated())
}

func (s *BillingPeriodServiceSuite) TestProRataDisabled() {
	c := monthlyContract(date(2025, time.April, 15), 1)

	events, err := s.service.ComputeBillingEventsProRata(c, date(2025, time.April, 1), date(2025, time.April, 30), false)
	s.NoError(err)
	s.Require().Len(events, 1)

	// the billed window is unchanged, only the factor is forced to 1
	s.Equal(date(2025, time.April, 15), events[0].PeriodStart)
	s.True(events[0].ProrationFactor.Equal(decimal.NewFromInt(1)))
}

func (s *BillingPeriodServiceSuite) TestAnchorDayClampsAndReturns() {
	// anchor day 31 clamps to Feb 28 and returns to 31 in March
	c := monthlyContract(date(2025, time.January, 31), 31)

	events, err := s.service.ComputeBillingEvents(c, date(2025, time.January, 1), date(2025, time.April, 30))
	s.NoError(err)
	s.Require().Len(events, 4)

	starts := lo.Map(events, func(e types.BillingEvent, _ int) time.Time { return e.PeriodStart })
	s.Equal([]time.Time{
		date(2025, time.January, 31),
		date(2025, time.February, 28),
		date(2025, time.March, 31),
		date(2025, time.April, 30),
	}, starts)
	s.Equal(date(2025, time.February, 27), events[0].PeriodEnd)
	s.Equal(date(2025, time.March, 30), events[1].PeriodEnd)
}

func (s *BillingPeriodServiceSuite) TestQuarterlyMidPeriodStart() {
	c := monthlyContract(date(2025, time.February, 10), 1)
	c.BillingInterval = types.BILLING_INTERVAL_QUARTERLY

	events, err := s.service.ComputeBillingEvents(c, date(2025, time.February, 1), date(2025, time.December, 31))
	s.NoError(err)
	s.Require().Len(events, 4)

	s.Equal(date(2025, time.February, 10), events[0].PeriodStart)
	s.Equal(date(2025, time.April, 30), events[0].PeriodEnd)
	// Feb 10 through Apr 30 inclusive is 80 days of an 89 day quarter
	expected := decimal.NewFromInt(80).Div(decimal.NewFromInt(89))
	s.True(events[0].ProrationFactor.Equal(expected), "expected 80/89, got %s", events[0].ProrationFactor)

	s.Equal(date(2025, time.May, 1), events[1].PeriodStart)
	s.Equal(date(2025, time.August, 1), events[2].PeriodStart)
	s.Equal(date(2025, time.November, 1), events[3].PeriodStart)
}

func (s *BillingPeriodServiceSuite) TestAnnualAlignmentDate() {
	c := monthlyContract(date(2025, time.July, 1), 1)
	c.BillingInterval = types.BILLING_INTERVAL_ANNUAL
	c.BillingAlignmentDate = lo.ToPtr(date(2025, time.January, 1))

	events, err := s.service.ComputeBillingEvents(c, date(2025, time.July, 1), date(2026, time.December, 31))
	s.NoError(err)
	s.Require().Len(events, 2)

	s.Equal(date(2025, time.July, 1), events[0].PeriodStart)
	s.Equal(date(2025, time.December, 31), events[0].PeriodEnd)
	expected := decimal.NewFromInt(184).Div(decimal.NewFromInt(365))
	s.True(events[0].ProrationFactor.Equal(expected), "expected 184/365, got %s", events[0].ProrationFactor)

	s.Equal(date(2026, time.January, 1), events[1].PeriodStart)
	s.Equal(date(2026, time.December, 31), events[1].PeriodEnd)
	s.True(events[1].ProrationFactor.Equal(decimal.NewFromInt(1)))
}

func (s *BillingPeriodServiceSuite) TestAlignmentDateAfterContractStart() {
	// an alignment date in the future still anchors periods; the calculator
	// steps it backwards to find the period containing the start
	c := monthlyContract(date(2025, time.March, 1), 1)
	c.BillingInterval = types.BILLING_INTERVAL_SEMIANNUAL
	c.BillingAlignmentDate = lo.ToPtr(date(2026, time.January, 1))

	events, err := s.service.ComputeBillingEvents(c, date(2025, time.March, 1), date(2025, time.December, 31))
	s.NoError(err)
	s.Require().Len(events, 2)

	s.Equal(date(2025, time.March, 1), events[0].PeriodStart)
	s.Equal(date(2025, time.June, 30), events[0].PeriodEnd)
	s.Equal(date(2025, time.July, 1), events[1].PeriodStart)
	s.Equal(date(2025, time.December, 31), events[1].PeriodEnd)
}

func (s *BillingPeriodServiceSuite) TestMissingAlignmentDate() {
	c := monthlyContract(date(2025, time.January, 1), 1)
	c.BillingInterval = types.BILLING_INTERVAL_ANNUAL

	_, err := s.service.ComputeBillingEvents(c, date(2025, time.January, 1), date(2025, time.December, 31))
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *BillingPeriodServiceSuite) TestContractEndClipsLastPeriod() {
	c := monthlyContract(date(2025, time.January, 1), 1)
	c.EndDate = lo.ToPtr(date(2025, time.March, 15))

	events, err := s.service.ComputeBillingEvents(c, date(2025, time.January, 1), date(2025, time.April, 30))
	s.NoError(err)
	s.Require().Len(events, 3)

	last := events[2]
	s.Equal(date(2025, time.March, 1), last.PeriodStart)
	s.Equal(date(2025, time.March, 15), last.PeriodEnd)
	expected := decimal.NewFromInt(15).Div(decimal.NewFromInt(31))
	s.True(last.ProrationFactor.Equal(expected), "expected 15/31, got %s", last.ProrationFactor)
}

func (s *BillingPeriodServiceSuite) TestPausedContractHasNoEvents() {
	c := monthlyContract(date(2025, time.January, 1), 1)
	c.ContractStatus = types.ContractStatusPaused

	events, err := s.service.ComputeBillingEvents(c, date(2025, time.January, 1), date(2025, time.December, 31))
	s.NoError(err)
	s.Empty(events)
}

func (s *BillingPeriodServiceSuite) TestInvalidRange() {
	c := monthlyContract(date(2025, time.January, 1), 1)

	_, err := s.service.ComputeBillingEvents(c, date(2025, time.February, 1), date(2025, time.January, 1))
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *BillingPeriodServiceSuite) TestClipToItemWindow() {
	event := types.BillingEvent{
		PeriodStart:     date(2025, time.January, 1),
		PeriodEnd:       date(2025, time.January, 31),
		NominalStart:    date(2025, time.January, 1),
		NominalEnd:      date(2025, time.January, 31),
		ProrationFactor: decimal.NewFromInt(1),
	}

	item := &contract.ContractItem{
		ID:               "item-1",
		BillingStartDate: lo.ToPtr(date(2025, time.January, 10)),
	}
	clipped := s.service.ClipToItemWindow([]types.BillingEvent{event}, item)
	s.Require().Len(clipped, 1)
	s.Equal(date(2025, time.January, 10), clipped[0].PeriodStart)
	expected := decimal.NewFromInt(22).Div(decimal.NewFromInt(31))
	s.True(clipped[0].ProrationFactor.Equal(expected), "expected 22/31, got %s", clipped[0].ProrationFactor)

	// a window that ends before the event omits the event entirely
	outside := &contract.ContractItem{
		ID:             "item-2",
		BillingEndDate: lo.ToPtr(date(2024, time.December, 31)),
	}
	s.Empty(s.service.ClipToItemWindow([]types.BillingEvent{event}, outside))

	// no window passes events through untouched
	s.Len(s.service.ClipToItemWindow([]types.BillingEvent{event}, &contract.ContractItem{ID: "item-3"}), 1)
}

func (s *BillingPeriodServiceSuite) TestClipToItemWindowProrationAnchor() {
	event := types.BillingEvent{
		PeriodStart:     date(2025, time.April, 15),
		PeriodEnd:       date(2025, time.April, 30),
		NominalStart:    date(2025, time.April, 1),
		NominalEnd:      date(2025, time.April, 30),
		ProrationFactor: decimal.NewFromInt(16).Div(decimal.NewFromInt(30)),
	}
	next := types.BillingEvent{
		PeriodStart:     date(2025, time.May, 1),
		PeriodEnd:       date(2025, time.May, 31),
		NominalStart:    date(2025, time.May, 1),
		NominalEnd:      date(2025, time.May, 31),
		ProrationFactor: decimal.NewFromInt(1),
	}

	// the anchor moves the measured start of the period it falls in
	item := &contract.ContractItem{
		ID:              "item-1",
		ProrationAnchor: lo.ToPtr(date(2025, time.April, 21)),
	}
	clipped := s.service.ClipToItemWindow([]types.BillingEvent{event, next}, item)
	s.Require().Len(clipped, 2)
	s.Equal(date(2025, time.April, 21), clipped[0].PeriodStart)
	expected := decimal.NewFromInt(10).Div(decimal.NewFromInt(30))
	s.True(clipped[0].ProrationFactor.Equal(expected), "expected 10/30, got %s", clipped[0].ProrationFactor)

	// later periods are untouched
	s.Equal(date(2025, time.May, 1), clipped[1].PeriodStart)
	s.True(clipped[1].ProrationFactor.Equal(decimal.NewFromInt(1)))

	// an anchor before the billed start has no effect
	early := &contract.ContractItem{
		ID:              "item-2",
		ProrationAnchor: lo.ToPtr(date(2025, time.April, 1)),
	}
	unchanged := s.service.ClipToItemWindow([]types.BillingEvent{event}, early)
	s.Require().Len(unchanged, 1)
	s.Equal(date(2025, time.April, 15), unchanged[0].PeriodStart)
	s.True(unchanged[0].ProrationFactor.Equal(event.ProrationFactor))
}
