package dto

import (
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/contract"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type CreateContractRequest struct {
	CustomerID            string                      `json:"customer_id" binding:"required"`
	BillingInterval       types.BillingInterval       `json:"billing_interval" binding:"required"`
	BillingAnchorDay      int                         `json:"billing_anchor_day"`
	BillingAlignmentDate  *time.Time                  `json:"billing_alignment_date,omitempty"`
	StartDate             time.Time                   `json:"start_date" binding:"required"`
	EndDate               *time.Time                  `json:"end_date,omitempty"`
	MinimumDurationMonths int                         `json:"minimum_duration_months"`
	NoticePeriodDays      int                         `json:"notice_period_days"`
	Currency              string                      `json:"currency" binding:"required"`
	Metadata              types.Metadata              `json:"metadata,omitempty"`
	Items                 []CreateContractItemRequest `json:"items" binding:"required,min=1"`
}

type CreateContractItemRequest struct {
	ProductID        string           `json:"product_id" binding:"required"`
	Description      string           `json:"description"`
	ProductCategory  string           `json:"product_category,omitempty"`
	Quantity         decimal.Decimal  `json:"quantity" binding:"required"`
	FixedUnitPrice   *decimal.Decimal `json:"fixed_unit_price,omitempty"`
	BillingStartDate *time.Time       `json:"billing_start_date,omitempty"`
	BillingEndDate   *time.Time       `json:"billing_end_date,omitempty"`
	ProrationAnchor  *time.Time       `json:"proration_anchor,omitempty"`
}

// ToContract converts the request into an unvalidated domain contract.
// IDs and base model fields are assigned by the service.
func (r *CreateContractRequest) ToContract() *contract.Contract {
	return &contract.Contract{
		CustomerID:            r.CustomerID,
		BillingInterval:       r.BillingInterval,
		BillingAnchorDay:      r.BillingAnchorDay,
		BillingAlignmentDate:  r.BillingAlignmentDate,
		StartDate:             r.StartDate,
		EndDate:               r.EndDate,
		MinimumDurationMonths: r.MinimumDurationMonths,
		NoticePeriodDays:      r.NoticePeriodDays,
		Currency:              r.Currency,
		Metadata:              r.Metadata,
		Items: lo.Map(r.Items, func(item CreateContractItemRequest, _ int) *contract.ContractItem {
			return &contract.ContractItem{
				ProductID:        item.ProductID,
				Description:      item.Description,
				ProductCategory:  item.ProductCategory,
				Quantity:         item.Quantity,
				FixedUnitPrice:   item.FixedUnitPrice,
				BillingStartDate: item.BillingStartDate,
				BillingEndDate:   item.BillingEndDate,
				ProrationAnchor:  item.ProrationAnchor,
			}
		}),
	}
}

type TerminateContractRequest struct {
	EndDate time.Time `json:"end_date" binding:"required"`
}

type ContractResponse struct {
	*contract.Contract
}

func ToContractResponse(c *contract.Contract) *ContractResponse {
	return &ContractResponse{Contract: c}
}

type ListContractsResponse struct {
	Items []*ContractResponse `json:"items"`
	Total int                 `json:"total"`
}

func ToListContractsResponse(contracts []*contract.Contract, total int) *ListContractsResponse {
	return &ListContractsResponse{
		Items: lo.Map(contracts, func(c *contract.Contract, _ int) *ContractResponse {
			return ToContractResponse(c)
		}),
		Total: total,
	}
}
