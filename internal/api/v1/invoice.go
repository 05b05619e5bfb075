package v1

import (
	"net/http"
	"time"

	"github.com/contractdesk/contractdesk/internal/api/dto"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/service"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	generation service.InvoiceGenerationService
	assembly   service.InvoiceAssemblyService
	periods    service.BillingPeriodService
	contracts  service.ContractService
	log        *logger.Logger
}

func NewInvoiceHandler(
	generation service.InvoiceGenerationService,
	assembly service.InvoiceAssemblyService,
	periods service.BillingPeriodService,
	contracts service.ContractService,
	log *logger.Logger,
) *InvoiceHandler {
	return &InvoiceHandler{
		generation: generation,
		assembly:   assembly,
		periods:    periods,
		contracts:  contracts,
		log:        log,
	}
}

// GenerateInvoices writes finalized invoices for every billable contract
// with a billing event in the requested month. Already invoiced periods
// are skipped, so the call is safe to repeat.
func (h *InvoiceHandler) GenerateInvoices(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.GenerateInvoicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	invoices, err := h.generation.GenerateAndPersist(ctx, req.Year, time.Month(req.Month))
	if err != nil {
		h.log.Error("Failed to generate invoices", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToGenerateInvoicesResponse(invoices))
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	ctx := c.Request.Context()
	invoice, err := h.generation.GetInvoice(ctx, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice))
}

func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	ctx := c.Request.Context()
	filter := types.NewInvoiceFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	invoices, total, err := h.generation.ListInvoices(ctx, filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ToListInvoicesResponse(invoices, total))
}

func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	ctx := c.Request.Context()
	invoice, err := h.generation.CancelInvoice(ctx, c.Param("id"))
	if err != nil {
		h.log.Error("Failed to cancel invoice", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice))
}

// PreviewInvoice assembles a draft for one contract and billing date
// without numbering or persisting anything.
func (h *InvoiceHandler) PreviewInvoice(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.InvoicePreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	mode := req.Mode
	if mode == "" {
		mode = types.ForecastModeBilling
	}
	if err := mode.Validate(); err != nil {
		c.Error(err)
		return
	}

	contract, err := h.contracts.GetContract(ctx, req.ContractID)
	if err != nil {
		c.Error(err)
		return
	}

	assembled, err := h.assembly.AssembleInvoice(ctx, contract, req.BillingDate, mode)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, &dto.InvoicePreviewResponse{AssembledInvoice: assembled})
}

// PreviewBillingEvents returns the raw billing periods a contract produces
// in a date range, before any pricing is applied.
func (h *InvoiceHandler) PreviewBillingEvents(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.BillingEventsPreviewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid preview parameters").
			Mark(ierr.ErrValidation))
		return
	}

	contract, err := h.contracts.GetContract(ctx, req.ContractID)
	if err != nil {
		c.Error(err)
		return
	}

	proRata := true
	if req.ProRata != nil {
		proRata = *req.ProRata
	}
	events, err := h.periods.ComputeBillingEventsProRata(contract, req.From, req.To, proRata)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, &dto.BillingEventsPreviewResponse{
		ContractID: req.ContractID,
		Events:     events,
	})
}
