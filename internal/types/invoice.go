package types

import (
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/samber/lo"
)

// InvoiceStatus represents the current state of an invoice in its lifecycle.
// Draft invoices exist only in memory; only finalized and cancelled invoices
// are persisted. There is no transition back to draft, and a cancelled
// invoice can never become finalized again.
type InvoiceStatus string

const (
	// InvoiceStatusDraft indicates a calculated invoice that has not been persisted
	InvoiceStatusDraft InvoiceStatus = "DRAFT"
	// InvoiceStatusFinalized indicates the invoice is persisted, numbered and immutable
	InvoiceStatusFinalized InvoiceStatus = "FINALIZED"
	// InvoiceStatusCancelled indicates the invoice was cancelled; its number is never reused
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	allowed := []InvoiceStatus{
		InvoiceStatusDraft,
		InvoiceStatusFinalized,
		InvoiceStatusCancelled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice status").
			WithHint("Please provide a valid invoice status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceNumberResetPeriod controls when a tenant's invoice counter restarts
type InvoiceNumberResetPeriod string

const (
	InvoiceNumberResetYearly  InvoiceNumberResetPeriod = "YEARLY"
	InvoiceNumberResetMonthly InvoiceNumberResetPeriod = "MONTHLY"
	InvoiceNumberResetNever   InvoiceNumberResetPeriod = "NEVER"
)

func (p InvoiceNumberResetPeriod) String() string {
	return string(p)
}

func (p InvoiceNumberResetPeriod) Validate() error {
	allowed := []InvoiceNumberResetPeriod{
		InvoiceNumberResetYearly,
		InvoiceNumberResetMonthly,
		InvoiceNumberResetNever,
	}
	if !lo.Contains(allowed, p) {
		return ierr.NewError("invalid reset period").
			WithHint("Please provide a valid invoice number reset period").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceFilter narrows invoice listing queries
type InvoiceFilter struct {
	*QueryFilter
	ContractID    string          `json:"contract_id,omitempty" form:"contract_id"`
	CustomerID    string          `json:"customer_id,omitempty" form:"customer_id"`
	InvoiceStatus []InvoiceStatus `json:"invoice_status,omitempty" form:"invoice_status"`
	Year          int             `json:"year,omitempty" form:"year"`
	Month         int             `json:"month,omitempty" form:"month"`
}

func NewInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

func (f *InvoiceFilter) Validate() error {
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return err
		}
	}
	for _, s := range f.InvoiceStatus {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	if f.Month < 0 || f.Month > 12 {
		return ierr.NewError("invalid month").
			WithHint("Month must be between 1 and 12").
			Mark(ierr.ErrValidation)
	}
	return nil
}
