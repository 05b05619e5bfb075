package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/invoice"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/testutil"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/stretchr/testify/suite"
)

type InvoiceNumberServiceSuite struct {
	suite.Suite
	ctx        context.Context
	service    InvoiceNumberService
	schemeRepo *testutil.InMemorySchemeStore
}

func TestInvoiceNumberService(t *testing.T) {
	suite.Run(t, new(InvoiceNumberServiceSuite))
}

func (s *InvoiceNumberServiceSuite) SetupTest() {
	log, err := logger.NewLogger()
	s.Require().NoError(err)
	s.ctx = testutil.SetupContext()
	s.schemeRepo = testutil.NewInMemorySchemeStore()
	s.service = NewInvoiceNumberService(s.schemeRepo, log)
}

func (s *InvoiceNumberServiceSuite) TestDefaultSchemeOnFirstIssue() {
	// a tenant that never configured a scheme still gets numbers, from the
	// lazily created default
	number, err := s.service.NextNumber(s.ctx, date(2025, time.March, 10))
	s.NoError(err)
	s.Equal("2025-0001", number)

	number, err = s.service.NextNumber(s.ctx, date(2025, time.March, 11))
	s.NoError(err)
	s.Equal("2025-0002", number)
}

func (s *InvoiceNumberServiceSuite) TestYearlyReset() {
	for i := 1; i <= 3; i++ {
		_, err := s.service.NextNumber(s.ctx, date(2025, time.December, i))
		s.NoError(err)
	}

	// crossing the year boundary restarts the counter
	number, err := s.service.NextNumber(s.ctx, date(2026, time.January, 5))
	s.NoError(err)
	s.Equal("2026-0001", number)
}

func (s *InvoiceNumberServiceSuite) TestMonthlyResetWithCustomPattern() {
	_, err := s.service.SaveScheme(s.ctx, "INV-{YY}{MM}-{NNN}", types.InvoiceNumberResetMonthly, 1)
	s.NoError(err)

	number, err := s.service.NextNumber(s.ctx, date(2025, time.April, 20))
	s.NoError(err)
	s.Equal("INV-2504-001", number)

	number, err = s.service.NextNumber(s.ctx, date(2025, time.April, 25))
	s.NoError(err)
	s.Equal("INV-2504-002", number)

	number, err = s.service.NextNumber(s.ctx, date(2025, time.May, 2))
	s.NoError(err)
	s.Equal("INV-2505-001", number)
}

func (s *InvoiceNumberServiceSuite) TestNeverReset() {
	_, err := s.service.SaveScheme(s.ctx, "{NNNNN}", types.InvoiceNumberResetNever, 1)
	s.NoError(err)

	number, err := s.service.NextNumber(s.ctx, date(2025, time.December, 31))
	s.NoError(err)
	s.Equal("00001", number)

	number, err = s.service.NextNumber(s.ctx, date(2026, time.January, 1))
	s.NoError(err)
	s.Equal("00002", number)
}

func (s *InvoiceNumberServiceSuite) TestPreviewDoesNotConsume() {
	preview, err := s.service.PreviewNextNumber(s.ctx)
	s.NoError(err)

	again, err := s.service.PreviewNextNumber(s.ctx)
	s.NoError(err)
	s.Equal(preview, again)

	issued, err := s.service.NextNumber(s.ctx, time.Now().UTC())
	s.NoError(err)
	s.Equal(preview, issued)
}

func (s *InvoiceNumberServiceSuite) TestInvalidPatternRejected() {
	testCases := []struct {
		name    string
		pattern string
		counter int64
	}{
		{name: "no_counter_placeholder", pattern: "INV-{YYYY}", counter: 1},
		{name: "two_counter_placeholders", pattern: "{NNN}-{NNNN}", counter: 1},
		{name: "zero_starting_counter", pattern: "{NNNN}", counter: 0},
		{name: "negative_starting_counter", pattern: "{NNNN}", counter: -3},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := s.service.SaveScheme(s.ctx, tc.pattern, types.InvoiceNumberResetYearly, tc.counter)
			s.Error(err)
			s.True(ierr.IsValidation(err))
		})
	}
}

func (s *InvoiceNumberServiceSuite) TestSaveSchemePreservesCounterPosition() {
	for i := 1; i <= 5; i++ {
		_, err := s.service.NextNumber(s.ctx, date(2025, time.June, i))
		s.NoError(err)
	}

	// changing the pattern must not rewind the counter
	scheme, err := s.service.SaveScheme(s.ctx, "R-{YYYY}-{NNNN}", types.InvoiceNumberResetYearly, 1)
	s.NoError(err)
	s.Equal(int64(6), scheme.NextCounter)

	number, err := s.service.NextNumber(s.ctx, date(2025, time.June, 10))
	s.NoError(err)
	s.Equal("R-2025-0006", number)
}

func (s *InvoiceNumberServiceSuite) TestGetSchemeFallsBackToDefault() {
	scheme, err := s.service.GetScheme(s.ctx)
	s.NoError(err)
	s.Equal(invoice.DefaultSchemePattern, scheme.Pattern)
	s.Equal(int64(1), scheme.NextCounter)
}

func (s *InvoiceNumberServiceSuite) TestConcurrentIssuanceIsUnique() {
	billingDate := date(2025, time.July, 1)
	const n = 50

	var wg sync.WaitGroup
	numbers := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := s.service.NextNumber(s.ctx, billingDate)
			s.NoError(err)
			numbers <- number
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]bool)
	for number := range numbers {
		s.False(seen[number], "duplicate number %s", number)
		seen[number] = true
	}
	s.Len(seen, n)
}

func (s *InvoiceNumberServiceSuite) TestTenantsAreIsolated() {
	number, err := s.service.NextNumber(s.ctx, date(2025, time.March, 1))
	s.NoError(err)
	s.Equal("2025-0001", number)

	otherCtx := context.WithValue(context.Background(), types.CtxTenantID, fmt.Sprintf("tenant-%s", types.GenerateUUID()))
	number, err = s.service.NextNumber(otherCtx, date(2025, time.March, 1))
	s.NoError(err)
	s.Equal("2025-0001", number)

	// the first tenant's counter is unaffected
	number, err = s.service.NextNumber(s.ctx, date(2025, time.March, 2))
	s.NoError(err)
	s.Equal("2025-0002", number)
}
