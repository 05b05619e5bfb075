package v1

import (
	"net/http"

	"github.com/contractdesk/contractdesk/internal/api/dto"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/service"
	"github.com/gin-gonic/gin"
)

type ForecastHandler struct {
	service service.ForecastService
	log     *logger.Logger
}

func NewForecastHandler(service service.ForecastService, log *logger.Logger) *ForecastHandler {
	return &ForecastHandler{service: service, log: log}
}

func (h *ForecastHandler) Forecast(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.ForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	result, err := h.service.Forecast(ctx, req.ToServiceRequest())
	if err != nil {
		h.log.Error("Failed to compute forecast", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ToForecastResponse(result))
}
