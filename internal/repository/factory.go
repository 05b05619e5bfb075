package repository

import (
	"github.com/contractdesk/contractdesk/internal/domain/contract"
	"github.com/contractdesk/contractdesk/internal/domain/invoice"
	"github.com/contractdesk/contractdesk/internal/domain/pricing"
	"github.com/contractdesk/contractdesk/internal/domain/tenant"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/postgres"
	postgresRepo "github.com/contractdesk/contractdesk/internal/repository/postgres"
)

func NewContractRepository(db postgres.IClient, logger *logger.Logger) contract.Repository {
	return postgresRepo.NewContractRepository(db, logger)
}

func NewPricingRepository(db postgres.IClient, logger *logger.Logger) pricing.Repository {
	return postgresRepo.NewPricingRepository(db, logger)
}

func NewInvoiceRepository(db postgres.IClient, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, logger)
}

func NewSchemeRepository(db postgres.IClient, logger *logger.Logger) invoice.SchemeRepository {
	return postgresRepo.NewSchemeRepository(db, logger)
}

func NewTenantRepository(db postgres.IClient, logger *logger.Logger) tenant.Repository {
	return postgresRepo.NewTenantRepository(db, logger)
}
