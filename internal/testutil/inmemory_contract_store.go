package testutil

import (
	"context"

	"github.com/contractdesk/contractdesk/internal/domain/contract"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/samber/lo"
)

// InMemoryContractStore implements contract.Repository
type InMemoryContractStore struct {
	*InMemoryStore[*contract.Contract]
}

// NewInMemoryContractStore creates a new in-memory contract store
func NewInMemoryContractStore() *InMemoryContractStore {
	return &InMemoryContractStore{
		InMemoryStore: NewInMemoryStore[*contract.Contract](),
	}
}

func copyContract(c *contract.Contract) *contract.Contract {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Items = make([]*contract.ContractItem, len(c.Items))
	for i, item := range c.Items {
		itemClone := *item
		clone.Items[i] = &itemClone
	}
	return &clone
}

func (s *InMemoryContractStore) Create(ctx context.Context, c *contract.Contract) error {
	if c == nil {
		return ierr.NewError("contract cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, c.ID, copyContract(c))
}

func (s *InMemoryContractStore) Get(ctx context.Context, id string) (*contract.Contract, error) {
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Contract with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	if !CheckTenantAccess(ctx, c.TenantID) {
		return nil, ierr.NewError("contract not found").
			WithHintf("Contract with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyContract(c), nil
}

func (s *InMemoryContractStore) Update(ctx context.Context, c *contract.Contract) error {
	if c == nil {
		return ierr.NewError("contract cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if _, err := s.Get(ctx, c.ID); err != nil {
		return err
	}
	return s.InMemoryStore.Update(ctx, c.ID, copyContract(c))
}

func contractFilterFn(ctx context.Context, c *contract.Contract, filter interface{}) bool {
	if c == nil {
		return false
	}
	if !CheckTenantAccess(ctx, c.TenantID) {
		return false
	}

	f, ok := filter.(*types.ContractFilter)
	if !ok || f == nil {
		return true
	}

	if f.QueryFilter != nil && f.GetStatus() != "" && c.Status != f.GetStatus() {
		return false
	}
	if f.CustomerID != "" && c.CustomerID != f.CustomerID {
		return false
	}
	if len(f.ContractStatus) > 0 && !lo.Contains(f.ContractStatus, c.ContractStatus) {
		return false
	}
	return true
}

func contractSortFn(i, j *contract.Contract) bool {
	return i.CreatedAt.After(j.CreatedAt)
}

func (s *InMemoryContractStore) List(ctx context.Context, filter *types.ContractFilter) ([]*contract.Contract, error) {
	contracts, err := s.InMemoryStore.List(ctx, filter, contractFilterFn, contractSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(contracts, func(c *contract.Contract, _ int) *contract.Contract {
		return copyContract(c)
	}), nil
}

func (s *InMemoryContractStore) Count(ctx context.Context, filter *types.ContractFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, contractFilterFn)
}

func (s *InMemoryContractStore) ListBillable(ctx context.Context) ([]*contract.Contract, error) {
	contracts, err := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, c *contract.Contract, _ interface{}) bool {
		return CheckTenantAccess(ctx, c.TenantID) &&
			c.Status == types.StatusPublished &&
			c.IsBillable()
	}, contractSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(contracts, func(c *contract.Contract, _ int) *contract.Contract {
		return copyContract(c)
	}), nil
}
