package router

import (
	v1 "github.com/contractdesk/contractdesk/internal/api/v1"
	"github.com/contractdesk/contractdesk/internal/config"
	"github.com/contractdesk/contractdesk/internal/rest/middleware"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/gin-gonic/gin"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Health   *v1.HealthHandler
	Tenant   *v1.TenantHandler
	Contract *v1.ContractHandler
	Pricing  *v1.PricingHandler
	Invoice  *v1.InvoiceHandler
	Scheme   *v1.SchemeHandler
	Forecast *v1.ForecastHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Logger(),
		gin.Recovery(),
		middleware.CORSMiddleware,
		middleware.RequestIDMiddleware,
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	// Tenant creation is the only operation that does not require an
	// existing tenant in context.
	router.POST("/v1/tenants", handlers.Tenant.CreateTenant)

	api := router.Group("/v1", middleware.TenantMiddleware)
	{
		api.GET("/tenant", handlers.Tenant.GetTenant)
		api.PUT("/tenant/settings", handlers.Tenant.UpdateSettings)

		api.POST("/contracts", handlers.Contract.CreateContract)
		api.GET("/contracts", handlers.Contract.ListContracts)
		api.GET("/contracts/:id", handlers.Contract.GetContract)
		api.POST("/contracts/:id/terminate", handlers.Contract.TerminateContract)

		api.POST("/prices", handlers.Pricing.CreatePriceEntry)
		api.POST("/prices/changes", handlers.Pricing.CreateScheduledPriceChange)
		api.POST("/prices/adjustments", handlers.Pricing.CreateAdjustmentRule)
		api.POST("/discounts", handlers.Pricing.CreateDiscount)
		api.GET("/prices/resolve", handlers.Pricing.ResolvePrice)

		api.GET("/billing-events", handlers.Invoice.PreviewBillingEvents)
		api.POST("/invoices/preview", handlers.Invoice.PreviewInvoice)
		api.POST("/invoices/generate", handlers.Invoice.GenerateInvoices)
		api.GET("/invoices", handlers.Invoice.ListInvoices)
		api.GET("/invoices/:id", handlers.Invoice.GetInvoice)
		api.POST("/invoices/:id/cancel", handlers.Invoice.CancelInvoice)

		api.GET("/number-scheme", handlers.Scheme.GetScheme)
		api.PUT("/number-scheme", handlers.Scheme.SaveScheme)
		api.GET("/number-scheme/preview", handlers.Scheme.PreviewNextNumber)

		api.POST("/forecast", handlers.Forecast.Forecast)
	}

	return router
}
