package contract

import (
	"context"

	"github.com/contractdesk/contractdesk/internal/types"
)

// Repository defines the interface for contract persistence operations
type Repository interface {
	// Create creates a new contract together with its items
	Create(ctx context.Context, contract *Contract) error

	// Get retrieves a contract by ID including its items
	Get(ctx context.Context, id string) (*Contract, error)

	// Update updates an existing contract and replaces its items
	Update(ctx context.Context, contract *Contract) error

	// List retrieves contracts based on filter criteria, items included
	List(ctx context.Context, filter *types.ContractFilter) ([]*Contract, error)

	// Count returns the total count of contracts matching the filter
	Count(ctx context.Context, filter *types.ContractFilter) (int, error)

	// ListBillable retrieves all contracts of the current tenant that can
	// produce billing events (active, or cancelled/ended with periods left)
	ListBillable(ctx context.Context) ([]*Contract, error)
}
