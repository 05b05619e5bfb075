package v1

import (
	"net/http"

	"github.com/contractdesk/contractdesk/internal/api/dto"
	domaincontract "github.com/contractdesk/contractdesk/internal/domain/contract"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type PricingHandler struct {
	catalog   service.PricingCatalogService
	resolver  service.PriceResolutionService
	contracts service.ContractService
	log       *logger.Logger
}

func NewPricingHandler(
	catalog service.PricingCatalogService,
	resolver service.PriceResolutionService,
	contracts service.ContractService,
	log *logger.Logger,
) *PricingHandler {
	return &PricingHandler{
		catalog:   catalog,
		resolver:  resolver,
		contracts: contracts,
		log:       log,
	}
}

func (h *PricingHandler) CreatePriceEntry(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CreatePriceEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	entry, err := h.catalog.CreatePriceEntry(ctx, req.ToPriceEntry())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *PricingHandler) CreateScheduledPriceChange(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CreateScheduledPriceChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	change, err := h.catalog.CreateScheduledPriceChange(ctx, req.ToScheduledPriceChange())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, change)
}

func (h *PricingHandler) CreateAdjustmentRule(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CreateAdjustmentRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	rule, err := h.catalog.CreateAdjustmentRule(ctx, req.ToAdjustmentRule())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (h *PricingHandler) CreateDiscount(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CreateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	discount, err := h.catalog.CreateDiscount(ctx, req.ToDiscount())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, discount)
}

func (h *PricingHandler) ResolvePrice(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.ResolvePriceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid resolution parameters").
			Mark(ierr.ErrValidation))
		return
	}

	contract, err := h.contracts.GetContract(ctx, req.ContractID)
	if err != nil {
		c.Error(err)
		return
	}
	item, found := lo.Find(contract.Items, func(item *domaincontract.ContractItem) bool {
		return item.ID == req.ContractItemID
	})
	if !found {
		c.Error(ierr.NewError("contract item not found").
			WithHintf("Contract %s has no item %s", req.ContractID, req.ContractItemID).
			Mark(ierr.ErrNotFound))
		return
	}

	resolved, err := h.resolver.ResolvePrice(ctx, contract, item, req.BillingDate)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, &dto.ResolvePriceResponse{
		ContractID:     req.ContractID,
		ContractItemID: req.ContractItemID,
		BillingDate:    req.BillingDate,
		UnitPrice:      resolved.UnitPrice,
		Source:         resolved.Source,
	})
}
