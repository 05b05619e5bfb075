package invoice

import (
	"context"
	"time"

	"github.com/contractdesk/contractdesk/internal/types"
)

// Repository defines the interface for invoice persistence operations
type Repository interface {
	// CreateWithLineItems creates a finalized invoice and its line items in
	// one transaction
	CreateWithLineItems(ctx context.Context, invoice *Invoice) error

	// Get retrieves an invoice by ID including its line items
	Get(ctx context.Context, id string) (*Invoice, error)

	// Update persists an invoice status transition (finalized -> cancelled)
	Update(ctx context.Context, invoice *Invoice) error

	// List retrieves invoices based on filter criteria
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)

	// Count returns the total count of invoices matching the filter
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)

	// ExistsForPeriod reports whether a non-cancelled invoice already exists
	// for the exact contract and period
	ExistsForPeriod(ctx context.Context, contractID string, periodStart, periodEnd time.Time) (bool, error)
}

// SchemeRepository defines the interface for invoice number scheme operations.
// NextInvoiceNumber is the single serializing operation in the billing core;
// every other read is lock free.
type SchemeRepository interface {
	// GetScheme retrieves the tenant's number scheme, or ErrNotFound
	GetScheme(ctx context.Context) (*NumberScheme, error)

	// SaveScheme creates or replaces the tenant's number scheme. The scheme
	// must already be validated.
	SaveScheme(ctx context.Context, scheme *NumberScheme) error

	// NextInvoiceNumber atomically issues the next invoice number for the
	// tenant: a single locked read-modify-write that applies a pending
	// counter reset, formats the number and advances the counter. Concurrent
	// calls for different tenants must not block each other. A scheme is
	// created lazily with defaults when the tenant has none.
	NextInvoiceNumber(ctx context.Context, billingDate time.Time) (string, error)

	// PeekInvoiceNumber returns the number the next issuance would produce
	// without incrementing the counter
	PeekInvoiceNumber(ctx context.Context, billingDate time.Time) (string, error)
}
