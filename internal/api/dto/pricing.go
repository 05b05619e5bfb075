package dto

import (
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/pricing"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/shopspring/decimal"
)

type CreatePriceEntryRequest struct {
	ProductID  string          `json:"product_id" binding:"required"`
	CustomerID *string         `json:"customer_id,omitempty"`
	UnitPrice  decimal.Decimal `json:"unit_price" binding:"required"`
	Currency   string          `json:"currency" binding:"required"`
	ValidFrom  time.Time       `json:"valid_from" binding:"required"`
	ValidTo    *time.Time      `json:"valid_to,omitempty"`
}

func (r *CreatePriceEntryRequest) ToPriceEntry() *pricing.PriceEntry {
	return &pricing.PriceEntry{
		ProductID:  r.ProductID,
		CustomerID: r.CustomerID,
		UnitPrice:  r.UnitPrice,
		Currency:   r.Currency,
		ValidFrom:  r.ValidFrom,
		ValidTo:    r.ValidTo,
	}
}

type CreateScheduledPriceChangeRequest struct {
	ContractItemID string          `json:"contract_item_id" binding:"required"`
	NewUnitPrice   decimal.Decimal `json:"new_unit_price" binding:"required"`
	EffectiveDate  time.Time       `json:"effective_date" binding:"required"`
	ExpiryDate     *time.Time      `json:"expiry_date,omitempty"`
}

func (r *CreateScheduledPriceChangeRequest) ToScheduledPriceChange() *pricing.ScheduledPriceChange {
	return &pricing.ScheduledPriceChange{
		ContractItemID: r.ContractItemID,
		NewUnitPrice:   r.NewUnitPrice,
		EffectiveDate:  r.EffectiveDate,
		ExpiryDate:     r.ExpiryDate,
	}
}

type CreateAdjustmentRuleRequest struct {
	Scope      types.AdjustmentScope `json:"scope" binding:"required"`
	ContractID *string               `json:"contract_id,omitempty"`
	CustomerID *string               `json:"customer_id,omitempty"`
	Factor     decimal.Decimal       `json:"factor" binding:"required"`
	ValidFrom  time.Time             `json:"valid_from" binding:"required"`
	ValidTo    *time.Time            `json:"valid_to,omitempty"`
}

func (r *CreateAdjustmentRuleRequest) ToAdjustmentRule() *pricing.AdjustmentRule {
	return &pricing.AdjustmentRule{
		Scope:      r.Scope,
		ContractID: r.ContractID,
		CustomerID: r.CustomerID,
		Factor:     r.Factor,
		ValidFrom:  r.ValidFrom,
		ValidTo:    r.ValidTo,
	}
}

type CreateDiscountRequest struct {
	Scope           types.DiscountScope    `json:"scope" binding:"required"`
	ContractID      string                 `json:"contract_id" binding:"required"`
	ContractItemID  *string                `json:"contract_item_id,omitempty"`
	ProductCategory *string                `json:"product_category,omitempty"`
	Kind            types.DiscountKind     `json:"kind" binding:"required"`
	Value           pricing.DiscountValue  `json:"value" binding:"required"`
	Validity        types.DiscountValidity `json:"validity,omitempty"`
	ValidFrom       *time.Time             `json:"valid_from,omitempty"`
	ValidTo         *time.Time             `json:"valid_to,omitempty"`
}

func (r *CreateDiscountRequest) ToDiscount() *pricing.Discount {
	return &pricing.Discount{
		Scope:           r.Scope,
		ContractID:      r.ContractID,
		ContractItemID:  r.ContractItemID,
		ProductCategory: r.ProductCategory,
		Kind:            r.Kind,
		Value:           r.Value,
		Validity:        r.Validity,
		ValidFrom:       r.ValidFrom,
		ValidTo:         r.ValidTo,
	}
}

type ResolvePriceRequest struct {
	ContractID     string    `json:"contract_id" form:"contract_id" binding:"required"`
	ContractItemID string    `json:"contract_item_id" form:"contract_item_id" binding:"required"`
	BillingDate    time.Time `json:"billing_date" form:"billing_date" time_format:"2006-01-02" binding:"required"`
}

type ResolvePriceResponse struct {
	ContractID     string            `json:"contract_id"`
	ContractItemID string            `json:"contract_item_id"`
	BillingDate    time.Time         `json:"billing_date"`
	UnitPrice      decimal.Decimal   `json:"unit_price"`
	Source         types.PriceSource `json:"source"`
}
