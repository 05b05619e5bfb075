package service

import (
	"context"
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/contract"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/types"
)

// ContractService manages the contract records the billing core reads. It
// owns validation and defaulting; billing semantics live in the period and
// assembly services.
type ContractService interface {
	CreateContract(ctx context.Context, c *contract.Contract) (*contract.Contract, error)
	GetContract(ctx context.Context, id string) (*contract.Contract, error)
	ListContracts(ctx context.Context, filter *types.ContractFilter) ([]*contract.Contract, int, error)
	UpdateContract(ctx context.Context, c *contract.Contract) (*contract.Contract, error)
	TerminateContract(ctx context.Context, id string, endDate time.Time) (*contract.Contract, error)
}

type contractService struct {
	contractRepo contract.Repository
	logger       *logger.Logger
}

func NewContractService(contractRepo contract.Repository, logger *logger.Logger) ContractService {
	return &contractService{
		contractRepo: contractRepo,
		logger:       logger,
	}
}

func (s *contractService) CreateContract(ctx context.Context, c *contract.Contract) (*contract.Contract, error) {
	if c.ID == "" {
		c.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CONTRACT)
	}
	if c.ContractStatus == "" {
		c.ContractStatus = types.ContractStatusActive
	}
	c.BaseModel = types.GetDefaultBaseModel(ctx)
	for _, item := range c.Items {
		if item.ID == "" {
			item.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CONTRACT_ITEM)
		}
		item.ContractID = c.ID
		item.BaseModel = types.GetDefaultBaseModel(ctx)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	if err := s.contractRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Infow("created contract",
		"contract_id", c.ID,
		"customer_id", c.CustomerID,
		"items", len(c.Items))
	return c, nil
}

func (s *contractService) GetContract(ctx context.Context, id string) (*contract.Contract, error) {
	return s.contractRepo.Get(ctx, id)
}

func (s *contractService) ListContracts(ctx context.Context, filter *types.ContractFilter) ([]*contract.Contract, int, error) {
	if filter == nil {
		filter = types.NewContractFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	contracts, err := s.contractRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.contractRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return contracts, count, nil
}

func (s *contractService) UpdateContract(ctx context.Context, c *contract.Contract) (*contract.Contract, error) {
	existing, err := s.contractRepo.Get(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	c.BaseModel = existing.BaseModel
	c.UpdatedAt = time.Now().UTC()
	c.UpdatedBy = types.GetUserID(ctx)
	for _, item := range c.Items {
		if item.ID == "" {
			item.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CONTRACT_ITEM)
		}
		item.ContractID = c.ID
		if item.TenantID == "" {
			item.BaseModel = types.GetDefaultBaseModel(ctx)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	if err := s.contractRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *contractService) TerminateContract(ctx context.Context, id string, endDate time.Time) (*contract.Contract, error) {
	c, err := s.contractRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if c.ContractStatus == types.ContractStatusEnded || c.ContractStatus == types.ContractStatusCancelled {
		return nil, ierr.NewError("contract already terminated").
			WithHintf("Contract %s is already %s", id, c.ContractStatus).
			Mark(ierr.ErrInvalidOperation)
	}
	if endDate.Before(c.StartDate) {
		return nil, ierr.NewError("invalid end date").
			WithHint("The end date must not be before the contract start date").
			Mark(ierr.ErrValidation)
	}

	c.EndDate = &endDate
	c.ContractStatus = types.ContractStatusCancelled
	c.UpdatedAt = time.Now().UTC()
	c.UpdatedBy = types.GetUserID(ctx)

	if err := s.contractRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Infow("terminated contract", "contract_id", id, "end_date", endDate)
	return c, nil
}
