package invoice

import (
	"time"

	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/shopspring/decimal"
)

// LineItem represents a single line item in an invoice
type LineItem struct {
	ID             string  `db:"id" json:"id"`
	InvoiceID      string  `db:"invoice_id" json:"invoice_id"`
	ContractItemID *string `db:"contract_item_id" json:"contract_item_id,omitempty"`
	ProductID      string  `db:"product_id" json:"product_id"`
	Description    string  `db:"description" json:"description"`

	Quantity        decimal.Decimal   `db:"quantity" json:"quantity"`
	UnitPrice       decimal.Decimal   `db:"unit_price" json:"unit_price"`
	PriceSource     types.PriceSource `db:"price_source" json:"price_source"`
	ProrationFactor decimal.Decimal   `db:"proration_factor" json:"proration_factor"`
	NetAmount       decimal.Decimal   `db:"net_amount" json:"net_amount"`
	TaxAmount       decimal.Decimal   `db:"tax_amount" json:"tax_amount"`
	Currency        string            `db:"currency" json:"currency"`

	PeriodStart time.Time `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time `db:"period_end" json:"period_end"`

	types.BaseModel
}

// ToSnapshotLine freezes the line item into the invoice snapshot form.
func (l *LineItem) ToSnapshotLine() SnapshotLine {
	return SnapshotLine{
		ProductID:       l.ProductID,
		Description:     l.Description,
		Quantity:        l.Quantity,
		UnitPrice:       l.UnitPrice,
		PriceSource:     l.PriceSource,
		ProrationFactor: l.ProrationFactor,
		NetAmount:       l.NetAmount,
		TaxAmount:       l.TaxAmount,
		PeriodStart:     l.PeriodStart,
		PeriodEnd:       l.PeriodEnd,
	}
}
