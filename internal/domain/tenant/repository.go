package tenant

import (
	"context"
)

// Repository defines the interface for tenant persistence operations
type Repository interface {
	// Create creates a new tenant
	Create(ctx context.Context, tenant *Tenant) error

	// Get retrieves a tenant by ID
	Get(ctx context.Context, id string) (*Tenant, error)

	// UpdateSettings replaces the tenant's billing settings
	UpdateSettings(ctx context.Context, id string, settings Settings) error
}
