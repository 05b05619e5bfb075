package invoice

import (
	"fmt"
	"strings"
	"time"

	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/types"
)

// DefaultSchemePattern is used when a tenant issues its first invoice
// without having configured a scheme.
const DefaultSchemePattern = "{YYYY}-{NNNN}"

// counterPlaceholders maps counter placeholders to their zero-padded width.
var counterPlaceholders = map[string]int{
	"{NNN}":   3,
	"{NNNN}":  4,
	"{NNNNN}": 5,
}

// NumberScheme is a tenant's invoice numbering configuration: a pattern with
// placeholders, the next counter value, and the reset policy. One scheme
// exists per tenant.
type NumberScheme struct {
	ID       string `db:"id" json:"id"`
	Pattern  string `db:"pattern" json:"pattern"`
	// NextCounter is the value the next issued number will carry
	NextCounter    int64                          `db:"next_counter" json:"next_counter"`
	ResetPeriod    types.InvoiceNumberResetPeriod `db:"reset_period" json:"reset_period"`
	LastResetYear  int                            `db:"last_reset_year" json:"last_reset_year"`
	LastResetMonth int                            `db:"last_reset_month" json:"last_reset_month"`
	types.BaseModel
}

// DefaultScheme returns the scheme created lazily on a tenant's first
// issuance: {YYYY}-{NNNN}, yearly reset, counter starting at 1.
func DefaultScheme(tenantID string, now time.Time) *NumberScheme {
	return &NumberScheme{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_NUMBER_SCHEME),
		Pattern:        DefaultSchemePattern,
		NextCounter:    1,
		ResetPeriod:    types.InvoiceNumberResetYearly,
		LastResetYear:  now.Year(),
		LastResetMonth: int(now.Month()),
		BaseModel: types.BaseModel{
			TenantID:  tenantID,
			Status:    types.StatusPublished,
			CreatedAt: now.UTC(),
			UpdatedAt: now.UTC(),
		},
	}
}

// Validate rejects misconfigured schemes at save time so issuance never has
// to deal with them.
func (s *NumberScheme) Validate() error {
	if err := s.ResetPeriod.Validate(); err != nil {
		return err
	}
	if s.NextCounter < 1 {
		return ierr.NewError("invalid starting counter").
			WithHint("The invoice counter must start at 1 or higher").
			WithReportableDetails(map[string]any{
				"next_counter": s.NextCounter,
			}).
			Mark(ierr.ErrValidation)
	}
	count := 0
	for placeholder := range counterPlaceholders {
		count += strings.Count(s.Pattern, placeholder)
	}
	if count != 1 {
		return ierr.NewError("invalid number pattern").
			WithHint("The pattern must contain exactly one counter placeholder ({NNN}, {NNNN} or {NNNNN})").
			WithReportableDetails(map[string]any{
				"pattern": s.Pattern,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// NeedsReset reports whether issuing a number on billingDate crosses the
// scheme's reset boundary.
func (s *NumberScheme) NeedsReset(billingDate time.Time) bool {
	switch s.ResetPeriod {
	case types.InvoiceNumberResetYearly:
		return billingDate.Year() != s.LastResetYear
	case types.InvoiceNumberResetMonthly:
		return billingDate.Year() != s.LastResetYear || int(billingDate.Month()) != s.LastResetMonth
	default:
		return false
	}
}

// ApplyReset restarts the counter at 1 and records the reset window. It
// must happen within the same atomic operation as the increment.
func (s *NumberScheme) ApplyReset(billingDate time.Time) {
	s.NextCounter = 1
	s.LastResetYear = billingDate.Year()
	s.LastResetMonth = int(billingDate.Month())
}

// FormatNumber expands the pattern for the given counter value and billing
// date. The scheme must have been validated before.
func (s *NumberScheme) FormatNumber(counter int64, billingDate time.Time) string {
	out := s.Pattern
	out = strings.ReplaceAll(out, "{YYYY}", fmt.Sprintf("%04d", billingDate.Year()))
	out = strings.ReplaceAll(out, "{YY}", fmt.Sprintf("%02d", billingDate.Year()%100))
	out = strings.ReplaceAll(out, "{MM}", fmt.Sprintf("%02d", int(billingDate.Month())))
	for placeholder, width := range counterPlaceholders {
		if strings.Contains(out, placeholder) {
			out = strings.ReplaceAll(out, placeholder, fmt.Sprintf("%0*d", width, counter))
		}
	}
	return out
}
