package dto

import (
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/invoice"
	"github.com/contractdesk/contractdesk/internal/service"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/samber/lo"
)

type GenerateInvoicesRequest struct {
	Year  int `json:"year" binding:"required"`
	Month int `json:"month" binding:"required"`
}

type GenerateInvoicesResponse struct {
	Invoices []*InvoiceResponse `json:"invoices"`
	Count    int                `json:"count"`
}

func ToGenerateInvoicesResponse(invoices []*invoice.Invoice) *GenerateInvoicesResponse {
	return &GenerateInvoicesResponse{
		Invoices: lo.Map(invoices, func(inv *invoice.Invoice, _ int) *InvoiceResponse {
			return ToInvoiceResponse(inv)
		}),
		Count: len(invoices),
	}
}

type InvoiceResponse struct {
	*invoice.Invoice
}

func ToInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	return &InvoiceResponse{Invoice: inv}
}

type ListInvoicesResponse struct {
	Items []*InvoiceResponse `json:"items"`
	Total int                `json:"total"`
}

func ToListInvoicesResponse(invoices []*invoice.Invoice, total int) *ListInvoicesResponse {
	return &ListInvoicesResponse{
		Items: lo.Map(invoices, func(inv *invoice.Invoice, _ int) *InvoiceResponse {
			return ToInvoiceResponse(inv)
		}),
		Total: total,
	}
}

type InvoicePreviewRequest struct {
	ContractID  string             `json:"contract_id" binding:"required"`
	BillingDate time.Time          `json:"billing_date" binding:"required"`
	Mode        types.ForecastMode `json:"mode"`
}

// InvoicePreviewResponse is the assembled draft: computed but never
// numbered or persisted.
type InvoicePreviewResponse struct {
	*service.AssembledInvoice
}

type BillingEventsPreviewRequest struct {
	ContractID string    `json:"contract_id" form:"contract_id" binding:"required"`
	From       time.Time `json:"from" form:"from" time_format:"2006-01-02" binding:"required"`
	To         time.Time `json:"to" form:"to" time_format:"2006-01-02" binding:"required"`
	ProRata    *bool     `json:"pro_rata" form:"pro_rata"`
}

type BillingEventsPreviewResponse struct {
	ContractID string               `json:"contract_id"`
	Events     []types.BillingEvent `json:"events"`
}
