package v1

import (
	"net/http"

	"github.com/contractdesk/contractdesk/internal/api/dto"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/service"
	"github.com/gin-gonic/gin"
)

type TenantHandler struct {
	service service.TenantService
	log     *logger.Logger
}

func NewTenantHandler(service service.TenantService, log *logger.Logger) *TenantHandler {
	return &TenantHandler{service: service, log: log}
}

func (h *TenantHandler) CreateTenant(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	t, err := h.service.CreateTenant(ctx, req.Name, req.Settings)
	if err != nil {
		h.log.Error("Failed to create tenant", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToTenantResponse(t))
}

func (h *TenantHandler) GetTenant(c *gin.Context) {
	ctx := c.Request.Context()
	t, err := h.service.GetTenant(ctx)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTenantResponse(t))
}

func (h *TenantHandler) UpdateSettings(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.UpdateTenantSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	t, err := h.service.UpdateSettings(ctx, req.Settings)
	if err != nil {
		h.log.Error("Failed to update tenant settings", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTenantResponse(t))
}
