package service

import (
	"context"
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/invoice"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/types"
)

// InvoiceNumberService issues unique, sequential, tenant scoped invoice
// numbers. Issuance is the only serializing operation in the billing core;
// the repository guarantees the locked read-modify-write.
type InvoiceNumberService interface {
	// NextNumber atomically issues the next invoice number for the tenant in
	// context, applying a reset when billingDate crosses the scheme's reset
	// boundary. A default scheme is created lazily on first use.
	NextNumber(ctx context.Context, billingDate time.Time) (string, error)

	// PreviewNextNumber returns the number the next issuance would produce
	// without consuming it.
	PreviewNextNumber(ctx context.Context) (string, error)

	// GetScheme returns the tenant's scheme, or the lazily defaulted one
	// when none was saved yet.
	GetScheme(ctx context.Context) (*invoice.NumberScheme, error)

	// SaveScheme validates and persists the tenant's numbering
	// configuration. Misconfigured patterns are rejected here so issuance
	// never sees them.
	SaveScheme(ctx context.Context, pattern string, resetPeriod types.InvoiceNumberResetPeriod, startingCounter int64) (*invoice.NumberScheme, error)
}

type invoiceNumberService struct {
	schemeRepo invoice.SchemeRepository
	logger     *logger.Logger
}

func NewInvoiceNumberService(schemeRepo invoice.SchemeRepository, logger *logger.Logger) InvoiceNumberService {
	return &invoiceNumberService{
		schemeRepo: schemeRepo,
		logger:     logger,
	}
}

func (s *invoiceNumberService) NextNumber(ctx context.Context, billingDate time.Time) (string, error) {
	number, err := s.schemeRepo.NextInvoiceNumber(ctx, billingDate)
	if err != nil {
		return "", err
	}
	s.logger.Infow("issued invoice number",
		"tenant_id", types.GetTenantID(ctx),
		"invoice_number", number,
		"billing_date", billingDate.Format("2006-01-02"))
	return number, nil
}

func (s *invoiceNumberService) PreviewNextNumber(ctx context.Context) (string, error) {
	return s.schemeRepo.PeekInvoiceNumber(ctx, time.Now().UTC())
}

func (s *invoiceNumberService) GetScheme(ctx context.Context) (*invoice.NumberScheme, error) {
	scheme, err := s.schemeRepo.GetScheme(ctx)
	if err != nil {
		if ierr.IsNotFound(err) {
			return invoice.DefaultScheme(types.GetTenantID(ctx), time.Now().UTC()), nil
		}
		return nil, err
	}
	return scheme, nil
}

func (s *invoiceNumberService) SaveScheme(ctx context.Context, pattern string, resetPeriod types.InvoiceNumberResetPeriod, startingCounter int64) (*invoice.NumberScheme, error) {
	now := time.Now().UTC()
	scheme := &invoice.NumberScheme{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_NUMBER_SCHEME),
		Pattern:        pattern,
		NextCounter:    startingCounter,
		ResetPeriod:    resetPeriod,
		LastResetYear:  now.Year(),
		LastResetMonth: int(now.Month()),
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	if err := scheme.Validate(); err != nil {
		return nil, err
	}

	// keep the existing counter position when only the pattern changes
	if existing, err := s.schemeRepo.GetScheme(ctx); err == nil {
		scheme.ID = existing.ID
		scheme.LastResetYear = existing.LastResetYear
		scheme.LastResetMonth = existing.LastResetMonth
		if startingCounter <= existing.NextCounter {
			scheme.NextCounter = existing.NextCounter
		}
	} else if !ierr.IsNotFound(err) {
		return nil, err
	}

	if err := s.schemeRepo.SaveScheme(ctx, scheme); err != nil {
		return nil, err
	}
	s.logger.Infow("saved invoice number scheme",
		"tenant_id", types.GetTenantID(ctx),
		"pattern", scheme.Pattern,
		"reset_period", scheme.ResetPeriod)
	return scheme, nil
}
