package v1

import (
	"net/http"

	"github.com/contractdesk/contractdesk/internal/api/dto"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/service"
	"github.com/gin-gonic/gin"
)

type SchemeHandler struct {
	service service.InvoiceNumberService
	log     *logger.Logger
}

func NewSchemeHandler(service service.InvoiceNumberService, log *logger.Logger) *SchemeHandler {
	return &SchemeHandler{service: service, log: log}
}

func (h *SchemeHandler) GetScheme(c *gin.Context) {
	ctx := c.Request.Context()
	scheme, err := h.service.GetScheme(ctx)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ToSchemeResponse(scheme))
}

func (h *SchemeHandler) SaveScheme(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.SaveSchemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	scheme, err := h.service.SaveScheme(ctx, req.Pattern, req.ResetPeriod, req.StartingCounterOrDefault())
	if err != nil {
		h.log.Error("Failed to save number scheme", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ToSchemeResponse(scheme))
}

func (h *SchemeHandler) PreviewNextNumber(c *gin.Context) {
	ctx := c.Request.Context()
	number, err := h.service.PreviewNextNumber(ctx)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, &dto.PreviewNumberResponse{InvoiceNumber: number})
}
