package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/invoice"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/types"
)

// InMemorySchemeStore implements invoice.SchemeRepository. One scheme per
// tenant; a single mutex stands in for the per-tenant row lock of the real
// store, which is fine for tests.
type InMemorySchemeStore struct {
	mu      sync.Mutex
	schemes map[string]*invoice.NumberScheme
}

// NewInMemorySchemeStore creates a new in-memory number scheme store
func NewInMemorySchemeStore() *InMemorySchemeStore {
	return &InMemorySchemeStore{
		schemes: make(map[string]*invoice.NumberScheme),
	}
}

func copyScheme(s *invoice.NumberScheme) *invoice.NumberScheme {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

func (s *InMemorySchemeStore) GetScheme(ctx context.Context) (*invoice.NumberScheme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scheme, exists := s.schemes[types.GetTenantID(ctx)]
	if !exists {
		return nil, ierr.NewError("number scheme not found").
			WithHint("The tenant has no invoice number scheme configured").
			Mark(ierr.ErrNotFound)
	}
	return copyScheme(scheme), nil
}

func (s *InMemorySchemeStore) SaveScheme(ctx context.Context, scheme *invoice.NumberScheme) error {
	if scheme == nil {
		return ierr.NewError("scheme cannot be nil").
			Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.schemes[types.GetTenantID(ctx)] = copyScheme(scheme)
	return nil
}

func (s *InMemorySchemeStore) NextInvoiceNumber(ctx context.Context, billingDate time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenantID := types.GetTenantID(ctx)
	scheme, exists := s.schemes[tenantID]
	if !exists {
		scheme = invoice.DefaultScheme(tenantID, time.Now().UTC())
		s.schemes[tenantID] = scheme
	}

	if scheme.NeedsReset(billingDate) {
		scheme.ApplyReset(billingDate)
	}

	number := scheme.FormatNumber(scheme.NextCounter, billingDate)
	scheme.NextCounter++
	return number, nil
}

func (s *InMemorySchemeStore) PeekInvoiceNumber(ctx context.Context, billingDate time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenantID := types.GetTenantID(ctx)
	scheme, exists := s.schemes[tenantID]
	if !exists {
		scheme = invoice.DefaultScheme(tenantID, time.Now().UTC())
	} else {
		scheme = copyScheme(scheme)
	}

	if scheme.NeedsReset(billingDate) {
		scheme.ApplyReset(billingDate)
	}
	return scheme.FormatNumber(scheme.NextCounter, billingDate), nil
}

// Clear removes all schemes
func (s *InMemorySchemeStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemes = make(map[string]*invoice.NumberScheme)
}
