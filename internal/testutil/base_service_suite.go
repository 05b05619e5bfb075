package testutil

import (
	"context"
	"time"

	"github.com/contractdesk/contractdesk/internal/config"
	"github.com/contractdesk/contractdesk/internal/domain/contract"
	"github.com/contractdesk/contractdesk/internal/domain/invoice"
	"github.com/contractdesk/contractdesk/internal/domain/pricing"
	"github.com/contractdesk/contractdesk/internal/domain/tenant"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/postgres"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/contractdesk/contractdesk/internal/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	ContractRepo contract.Repository
	PricingRepo  pricing.Repository
	InvoiceRepo  invoice.Repository
	SchemeRepo   invoice.SchemeRepository
	TenantRepo   tenant.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	db     postgres.IClient
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	s.config = config.GetDefaultConfig()

	var err error
	s.logger, err = logger.NewLogger()
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.ClearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		ContractRepo: NewInMemoryContractStore(),
		PricingRepo:  NewInMemoryPricingStore(),
		InvoiceRepo:  NewInMemoryInvoiceStore(),
		SchemeRepo:   NewInMemorySchemeStore(),
		TenantRepo:   NewInMemoryTenantStore(),
	}
	s.db = NewMockPostgresClient(s.logger)

	// every suite gets the default tenant with EUR billing settings
	err := s.stores.TenantRepo.Create(s.ctx, &tenant.Tenant{
		ID:   types.DefaultTenantID,
		Name: "Test Tenant",
		Settings: tenant.Settings{
			Currency:       "EUR",
			DefaultTaxRate: decimal.NewFromFloat(0.19),
			LegalData: tenant.LegalData{
				CompanyName:  "Test Tenant GmbH",
				AddressLine1: "Musterstr. 1",
				PostalCode:   "10115",
				City:         "Berlin",
				Country:      "DE",
				VatID:        "DE123456789",
			},
		},
		Status:    types.StatusPublished,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.T().Fatalf("failed to seed tenant: %v", err)
	}
}

// ClearStores resets every store to empty
func (s *BaseServiceTestSuite) ClearStores() {
	s.stores.ContractRepo.(*InMemoryContractStore).Clear()
	s.stores.PricingRepo.(*InMemoryPricingStore).Clear()
	s.stores.InvoiceRepo.(*InMemoryInvoiceStore).Clear()
	s.stores.SchemeRepo.(*InMemorySchemeStore).Clear()
	s.stores.TenantRepo.(*InMemoryTenantStore).Clear()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStores returns the in-memory repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the mock database client
func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
