package dto

import (
	"time"

	"github.com/contractdesk/contractdesk/internal/service"
	"github.com/contractdesk/contractdesk/internal/types"
)

type ForecastRequest struct {
	From    time.Time          `json:"from" binding:"required"`
	Months  int                `json:"months" binding:"required"`
	Mode    types.ForecastMode `json:"mode"`
	ProRata bool               `json:"pro_rata"`
}

func (r *ForecastRequest) ToServiceRequest() *service.ForecastRequest {
	return &service.ForecastRequest{
		From:    r.From,
		Months:  r.Months,
		Mode:    r.Mode,
		ProRata: r.ProRata,
	}
}

type ForecastResponse struct {
	*service.ForecastResult
}

func ToForecastResponse(result *service.ForecastResult) *ForecastResponse {
	return &ForecastResponse{ForecastResult: result}
}
