package v1

import (
	"net/http"

	"github.com/contractdesk/contractdesk/internal/api/dto"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/service"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/gin-gonic/gin"
)

type ContractHandler struct {
	service service.ContractService
	log     *logger.Logger
}

func NewContractHandler(service service.ContractService, log *logger.Logger) *ContractHandler {
	return &ContractHandler{service: service, log: log}
}

func (h *ContractHandler) CreateContract(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	created, err := h.service.CreateContract(ctx, req.ToContract())
	if err != nil {
		h.log.Error("Failed to create contract", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToContractResponse(created))
}

func (h *ContractHandler) GetContract(c *gin.Context) {
	ctx := c.Request.Context()
	contract, err := h.service.GetContract(ctx, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ToContractResponse(contract))
}

func (h *ContractHandler) ListContracts(c *gin.Context) {
	ctx := c.Request.Context()
	filter := types.NewContractFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	contracts, total, err := h.service.ListContracts(ctx, filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ToListContractsResponse(contracts, total))
}

func (h *ContractHandler) TerminateContract(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.TerminateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	contract, err := h.service.TerminateContract(ctx, c.Param("id"), req.EndDate)
	if err != nil {
		h.log.Error("Failed to terminate contract", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ToContractResponse(contract))
}
