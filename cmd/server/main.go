package main

import (
	"context"
	"net/http"
	"time"

	v1 "github.com/contractdesk/contractdesk/internal/api/v1"
	"github.com/contractdesk/contractdesk/internal/config"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/postgres"
	"github.com/contractdesk/contractdesk/internal/repository"
	"github.com/contractdesk/contractdesk/internal/router"
	"github.com/contractdesk/contractdesk/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

func init() {
	// Billing date arithmetic assumes one timezone for the whole process.
	time.Local = time.UTC
}

func main() {
	_ = godotenv.Load()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,

			postgres.NewDB,
			func(db *postgres.DB) postgres.IClient { return db },

			repository.NewContractRepository,
			repository.NewPricingRepository,
			repository.NewInvoiceRepository,
			repository.NewSchemeRepository,
			repository.NewTenantRepository,

			service.NewBillingPeriodService,
			service.NewPriceResolutionService,
			service.NewInvoiceAssemblyService,
			service.NewInvoiceNumberService,
			service.NewInvoiceGenerationService,
			service.NewForecastService,
			service.NewContractService,
			service.NewPricingCatalogService,
			service.NewTenantService,

			v1.NewHealthHandler,
			v1.NewTenantHandler,
			v1.NewContractHandler,
			v1.NewPricingHandler,
			v1.NewInvoiceHandler,
			v1.NewSchemeHandler,
			v1.NewForecastHandler,

			newHandlers,
			router.NewRouter,
			newServer,
		),
		fx.Invoke(startServer),
	)

	app.Run()
}

func newHandlers(
	health *v1.HealthHandler,
	tenant *v1.TenantHandler,
	contract *v1.ContractHandler,
	pricing *v1.PricingHandler,
	invoice *v1.InvoiceHandler,
	scheme *v1.SchemeHandler,
	forecast *v1.ForecastHandler,
) router.Handlers {
	return router.Handlers{
		Health:   health,
		Tenant:   tenant,
		Contract: contract,
		Pricing:  pricing,
		Invoice:  invoice,
		Scheme:   scheme,
		Forecast: forecast,
	}
}

func newServer(cfg *config.Configuration, engine *gin.Engine) *http.Server {
	return &http.Server{
		Addr:    cfg.Server.Address,
		Handler: engine,
	}
}

func startServer(lc fx.Lifecycle, srv *http.Server, db *postgres.DB, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting server", "address", srv.Addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalw("server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server")
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
			db.Close()
			return nil
		},
	})
}
