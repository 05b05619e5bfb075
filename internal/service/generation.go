package service

import (
	"context"
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/contract"
	"github.com/contractdesk/contractdesk/internal/domain/invoice"
	"github.com/contractdesk/contractdesk/internal/domain/tenant"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/postgres"
	"github.com/contractdesk/contractdesk/internal/types"
)

// InvoiceGenerationService turns assembled invoices into immutable finalized
// records. It is the only part of the billing core that writes.
type InvoiceGenerationService interface {
	// GenerateAndPersist generates finalized invoices for every billable
	// contract with a billing event in the given month that does not already
	// have a non-cancelled record for that exact period. Each contract's
	// number assignment and record write happen in one transaction, so a
	// failed write can never leave a half-numbered record. Repeated calls
	// are idempotent per contract and period.
	GenerateAndPersist(ctx context.Context, year int, month time.Month) ([]*invoice.Invoice, error)

	// CancelInvoice transitions a finalized invoice to cancelled. The
	// invoice number is never returned to the pool; regenerating the period
	// produces a new, higher number.
	CancelInvoice(ctx context.Context, id string) (*invoice.Invoice, error)

	// GetInvoice retrieves a persisted invoice by ID
	GetInvoice(ctx context.Context, id string) (*invoice.Invoice, error)

	// ListInvoices retrieves persisted invoices matching the filter
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, int, error)
}

type invoiceGenerationService struct {
	db              postgres.IClient
	logger          *logger.Logger
	contractRepo    contract.Repository
	invoiceRepo     invoice.Repository
	tenantRepo      tenant.Repository
	periodService   BillingPeriodService
	priceService    PriceResolutionService
	assemblyService InvoiceAssemblyService
	numberService   InvoiceNumberService
}

func NewInvoiceGenerationService(
	db postgres.IClient,
	contractRepo contract.Repository,
	invoiceRepo invoice.Repository,
	tenantRepo tenant.Repository,
	periodService BillingPeriodService,
	priceService PriceResolutionService,
	assemblyService InvoiceAssemblyService,
	numberService InvoiceNumberService,
	logger *logger.Logger,
) InvoiceGenerationService {
	return &invoiceGenerationService{
		db:              db,
		logger:          logger,
		contractRepo:    contractRepo,
		invoiceRepo:     invoiceRepo,
		tenantRepo:      tenantRepo,
		periodService:   periodService,
		priceService:    priceService,
		assemblyService: assemblyService,
		numberService:   numberService,
	}
}

func (s *invoiceGenerationService) GenerateAndPersist(ctx context.Context, year int, month time.Month) ([]*invoice.Invoice, error) {
	if month < time.January || month > time.December {
		return nil, ierr.NewError("invalid month").
			WithHint("Month must be between 1 and 12").
			Mark(ierr.ErrValidation)
	}

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := types.EndOfMonth(from)

	contracts, err := s.contractRepo.ListBillable(ctx)
	if err != nil {
		return nil, err
	}

	t, err := s.tenantRepo.Get(ctx, types.GetTenantID(ctx))
	if err != nil {
		return nil, err
	}

	var generated []*invoice.Invoice
	for _, c := range contracts {
		events, err := s.periodService.ComputeBillingEvents(c, from, to)
		if err != nil {
			return generated, err
		}

		for _, event := range events {
			record, err := s.generateOne(ctx, c, event, t)
			if err != nil {
				// already written records stand; the failed contract can be
				// retried in a later call thanks to duplicate prevention
				s.logger.Errorw("invoice generation failed for contract",
					"contract_id", c.ID,
					"period_start", event.PeriodStart,
					"period_end", event.PeriodEnd,
					"error", err)
				return generated, err
			}
			if record != nil {
				generated = append(generated, record)
			}
		}
	}

	s.logger.Infow("invoice generation run complete",
		"tenant_id", types.GetTenantID(ctx),
		"year", year,
		"month", int(month),
		"generated", len(generated))

	return generated, nil
}

// generateOne assembles, numbers and persists a single contract period
// within one transaction. Returns nil when a non-cancelled record already
// exists for the period.
func (s *invoiceGenerationService) generateOne(ctx context.Context, c *contract.Contract, event types.BillingEvent, t *tenant.Tenant) (*invoice.Invoice, error) {
	exists, err := s.invoiceRepo.ExistsForPeriod(ctx, c.ID, event.PeriodStart, event.PeriodEnd)
	if err != nil {
		return nil, err
	}
	if exists {
		// duplicate generation is a no-op, not an error
		return nil, nil
	}

	data, err := s.priceService.LoadPricingData(ctx, c)
	if err != nil {
		return nil, err
	}

	assembled, err := s.assemblyService.AssembleForEvent(c, event, data, t.Settings, types.ForecastModeBilling)
	if err != nil {
		return nil, err
	}
	if len(assembled.LineItems) == 0 {
		return nil, nil
	}

	var record *invoice.Invoice
	err = s.db.WithTx(ctx, func(txCtx context.Context) error {
		// number assignment and record write form one atomic unit; if the
		// write fails the issued number is permanently skipped
		number, err := s.numberService.NextNumber(txCtx, assembled.BillingDate)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		record = &invoice.Invoice{
			ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
			InvoiceNumber: number,
			ContractID:    c.ID,
			CustomerID:    c.CustomerID,
			BillingDate:   assembled.BillingDate,
			PeriodStart:   assembled.PeriodStart,
			PeriodEnd:     assembled.PeriodEnd,
			Currency:      assembled.Currency,
			NetTotal:      assembled.NetTotal,
			TaxRate:       assembled.TaxRate,
			TaxAmount:     assembled.TaxAmount,
			GrossTotal:    assembled.GrossTotal,
			InvoiceStatus: types.InvoiceStatusFinalized,
			FinalizedAt:   &now,
			LineItems:     assembled.LineItems,
			Snapshot:      buildSnapshot(assembled, t.Settings),
			BaseModel:     types.GetDefaultBaseModel(txCtx),
		}
		for _, line := range record.LineItems {
			line.InvoiceID = record.ID
			line.BaseModel = types.GetDefaultBaseModel(txCtx)
		}

		if err := record.Validate(); err != nil {
			return err
		}

		return s.invoiceRepo.CreateWithLineItems(txCtx, record)
	})
	if err != nil {
		// a concurrent run that won the unique index race counts as the
		// existing record; the losing write is the same no-op as the
		// up-front existence check
		if ierr.IsAlreadyExists(err) {
			s.logger.Infow("invoice written concurrently, skipping",
				"contract_id", c.ID,
				"period_start", event.PeriodStart,
				"period_end", event.PeriodEnd)
			return nil, nil
		}
		return nil, err
	}

	s.logger.Infow("generated invoice",
		"invoice_id", record.ID,
		"invoice_number", record.InvoiceNumber,
		"contract_id", c.ID,
		"period_start", record.PeriodStart,
		"period_end", record.PeriodEnd)

	return record, nil
}

// buildSnapshot freezes the assembled line items together with the seller's
// legal data at this instant.
func buildSnapshot(assembled *AssembledInvoice, settings tenant.Settings) invoice.Snapshot {
	snapshot := invoice.Snapshot{
		Seller:  settings.LegalData,
		TaxRate: settings.DefaultTaxRate,
	}
	for _, line := range assembled.LineItems {
		snapshot.LineItems = append(snapshot.LineItems, line.ToSnapshotLine())
	}
	return snapshot
}

func (s *invoiceGenerationService) CancelInvoice(ctx context.Context, id string) (*invoice.Invoice, error) {
	record, err := s.invoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := record.Cancel(time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Update(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Infow("cancelled invoice",
		"invoice_id", record.ID,
		"invoice_number", record.InvoiceNumber)

	return record, nil
}

func (s *invoiceGenerationService) GetInvoice(ctx context.Context, id string) (*invoice.Invoice, error) {
	return s.invoiceRepo.Get(ctx, id)
}

func (s *invoiceGenerationService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, int, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}
	records, err := s.invoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.invoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return records, count, nil
}
