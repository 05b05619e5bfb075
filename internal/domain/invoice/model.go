package invoice

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/tenant"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice represents the invoice domain model. Draft invoices are an
// in-memory result of assembly; only finalized and cancelled invoices are
// persisted, and a finalized invoice is never mutated. Correction means
// cancelling it and generating a new invoice with a new number.
type Invoice struct {
	ID            string `db:"id" json:"id"`
	InvoiceNumber string `db:"invoice_number" json:"invoice_number"`
	ContractID    string `db:"contract_id" json:"contract_id"`
	CustomerID    string `db:"customer_id" json:"customer_id"`

	BillingDate time.Time `db:"billing_date" json:"billing_date"`
	PeriodStart time.Time `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time `db:"period_end" json:"period_end"`

	Currency   string          `db:"currency" json:"currency"`
	NetTotal   decimal.Decimal `db:"net_total" json:"net_total"`
	TaxRate    decimal.Decimal `db:"tax_rate" json:"tax_rate"`
	TaxAmount  decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	GrossTotal decimal.Decimal `db:"gross_total" json:"gross_total"`

	InvoiceStatus types.InvoiceStatus `db:"invoice_status" json:"invoice_status"`
	Snapshot      Snapshot            `db:"snapshot" json:"snapshot"`

	FinalizedAt *time.Time `db:"finalized_at" json:"finalized_at,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`

	LineItems []*LineItem `db:"-" json:"line_items,omitempty"`
	types.BaseModel
}

// Snapshot is the immutable copy of computed line items and seller legal
// data captured at finalization time. It is written once and never
// re-derived from source records.
type Snapshot struct {
	LineItems []SnapshotLine   `json:"line_items"`
	Seller    tenant.LegalData `json:"seller"`
	TaxRate   decimal.Decimal  `json:"tax_rate"`
}

// SnapshotLine is one line of the frozen invoice content.
type SnapshotLine struct {
	ProductID       string            `json:"product_id"`
	Description     string            `json:"description"`
	Quantity        decimal.Decimal   `json:"quantity"`
	UnitPrice       decimal.Decimal   `json:"unit_price"`
	PriceSource     types.PriceSource `json:"price_source"`
	ProrationFactor decimal.Decimal   `json:"proration_factor"`
	NetAmount       decimal.Decimal   `json:"net_amount"`
	TaxAmount       decimal.Decimal   `json:"tax_amount"`
	PeriodStart     time.Time         `json:"period_start"`
	PeriodEnd       time.Time         `json:"period_end"`
}

// Scan implements the sql.Scanner interface for Snapshot
func (s *Snapshot) Scan(value interface{}) error {
	if value == nil {
		*s = Snapshot{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal JSONB value: %v", value)
	}
	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for Snapshot
func (s Snapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// CanCancel reports whether the invoice may transition to cancelled.
func (i *Invoice) CanCancel() bool {
	return i.InvoiceStatus == types.InvoiceStatusFinalized
}

// Cancel transitions the invoice to cancelled. The invoice number is not
// returned to the pool.
func (i *Invoice) Cancel(at time.Time) error {
	if !i.CanCancel() {
		return ierr.NewError("invalid invoice status transition").
			WithHintf("Cannot cancel an invoice in status %s", i.InvoiceStatus).
			WithReportableDetails(map[string]any{
				"invoice_id":     i.ID,
				"invoice_status": i.InvoiceStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	i.InvoiceStatus = types.InvoiceStatusCancelled
	i.CancelledAt = &at
	return nil
}

func (i *Invoice) Validate() error {
	if err := i.InvoiceStatus.Validate(); err != nil {
		return err
	}
	if i.PeriodEnd.Before(i.PeriodStart) {
		return ierr.NewError("invalid invoice period").
			WithHint("Invoice period end must not precede period start").
			Mark(ierr.ErrValidation)
	}
	if i.NetTotal.IsNegative() || i.GrossTotal.IsNegative() {
		return ierr.NewError("invalid invoice amount").
			WithHint("Invoice totals must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}
