package service

import (
	"context"
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/tenant"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/types"
)

// TenantService exposes the tenant settings that feed invoice snapshots:
// currency, default tax rate and seller legal data.
type TenantService interface {
	CreateTenant(ctx context.Context, name string, settings tenant.Settings) (*tenant.Tenant, error)
	GetTenant(ctx context.Context) (*tenant.Tenant, error)
	UpdateSettings(ctx context.Context, settings tenant.Settings) (*tenant.Tenant, error)
}

type tenantService struct {
	tenantRepo tenant.Repository
	logger     *logger.Logger
}

func NewTenantService(tenantRepo tenant.Repository, logger *logger.Logger) TenantService {
	return &tenantService{
		tenantRepo: tenantRepo,
		logger:     logger,
	}
}

func (s *tenantService) CreateTenant(ctx context.Context, name string, settings tenant.Settings) (*tenant.Tenant, error) {
	if name == "" {
		return nil, ierr.NewError("missing tenant name").
			WithHint("Please provide a tenant name").
			Mark(ierr.ErrValidation)
	}
	if err := validateSettings(settings); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &tenant.Tenant{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TENANT),
		Name:      name,
		Settings:  settings,
		Status:    types.StatusPublished,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.tenantRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Infow("created tenant", "tenant_id", t.ID, "name", name)
	return t, nil
}

func (s *tenantService) GetTenant(ctx context.Context) (*tenant.Tenant, error) {
	return s.tenantRepo.Get(ctx, types.GetTenantID(ctx))
}

func (s *tenantService) UpdateSettings(ctx context.Context, settings tenant.Settings) (*tenant.Tenant, error) {
	if err := validateSettings(settings); err != nil {
		return nil, err
	}

	id := types.GetTenantID(ctx)
	if err := s.tenantRepo.UpdateSettings(ctx, id, settings); err != nil {
		return nil, err
	}
	return s.tenantRepo.Get(ctx, id)
}

func validateSettings(settings tenant.Settings) error {
	if err := types.ValidateCurrency(settings.Currency); err != nil {
		return err
	}
	if settings.DefaultTaxRate.IsNegative() {
		return ierr.NewError("invalid tax rate").
			WithHint("The default tax rate must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}
