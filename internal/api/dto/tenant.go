package dto

import (
	"github.com/contractdesk/contractdesk/internal/domain/tenant"
)

type CreateTenantRequest struct {
	Name     string          `json:"name" binding:"required"`
	Settings tenant.Settings `json:"settings" binding:"required"`
}

type UpdateTenantSettingsRequest struct {
	Settings tenant.Settings `json:"settings" binding:"required"`
}

type TenantResponse struct {
	*tenant.Tenant
}

func ToTenantResponse(t *tenant.Tenant) *TenantResponse {
	return &TenantResponse{Tenant: t}
}
