package tenant

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/shopspring/decimal"
)

// Tenant represents an organization within the system.
type Tenant struct {
	ID        string       `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	Settings  Settings     `db:"settings" json:"settings"`
	Status    types.Status `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// Settings holds tenant-wide billing configuration stored as JSONB.
type Settings struct {
	Currency       string          `json:"currency"`
	DefaultTaxRate decimal.Decimal `json:"default_tax_rate"`
	LegalData      LegalData       `json:"legal_data"`
}

// LegalData is the seller company data snapshotted onto every finalized
// invoice. Changing it later never affects already written invoices.
type LegalData struct {
	CompanyName  string `json:"company_name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	PostalCode   string `json:"postal_code"`
	City         string `json:"city"`
	Country      string `json:"country"`
	VatID        string `json:"vat_id,omitempty"`
	TaxNumber    string `json:"tax_number,omitempty"`
	IBAN         string `json:"iban,omitempty"`
	BIC          string `json:"bic,omitempty"`
}

// Scan implements the sql.Scanner interface for Settings
func (s *Settings) Scan(value interface{}) error {
	if value == nil {
		*s = Settings{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal JSONB value: %v", value)
	}
	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for Settings
func (s Settings) Value() (driver.Value, error) {
	return json.Marshal(s)
}
