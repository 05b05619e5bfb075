package dto

import (
	"github.com/contractdesk/contractdesk/internal/domain/invoice"
	"github.com/contractdesk/contractdesk/internal/types"
)

type SaveSchemeRequest struct {
	Pattern     string                         `json:"pattern" binding:"required"`
	ResetPeriod types.InvoiceNumberResetPeriod `json:"reset_period" binding:"required"`
	// StartingCounter is a pointer so an omitted field defaults to 1 while
	// an explicit zero still reaches validation and is rejected.
	StartingCounter *int64 `json:"starting_counter"`
}

func (r *SaveSchemeRequest) StartingCounterOrDefault() int64 {
	if r.StartingCounter == nil {
		return 1
	}
	return *r.StartingCounter
}

type SchemeResponse struct {
	*invoice.NumberScheme
}

func ToSchemeResponse(scheme *invoice.NumberScheme) *SchemeResponse {
	return &SchemeResponse{NumberScheme: scheme}
}

type PreviewNumberResponse struct {
	InvoiceNumber string `json:"invoice_number"`
}
