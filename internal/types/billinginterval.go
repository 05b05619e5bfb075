package types

import (
	"time"

	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/samber/lo"
)

// BillingInterval represents how often a contract is billed
type BillingInterval string

const (
	BILLING_INTERVAL_MONTHLY    BillingInterval = "MONTHLY"
	BILLING_INTERVAL_QUARTERLY  BillingInterval = "QUARTERLY"
	BILLING_INTERVAL_SEMIANNUAL BillingInterval = "SEMIANNUAL"
	BILLING_INTERVAL_ANNUAL     BillingInterval = "ANNUAL"
	BILLING_INTERVAL_BIENNIAL   BillingInterval = "BIENNIAL"
)

func (i BillingInterval) String() string {
	return string(i)
}

// Months returns the length of one billing period in calendar months.
func (i BillingInterval) Months() int {
	switch i {
	case BILLING_INTERVAL_MONTHLY:
		return 1
	case BILLING_INTERVAL_QUARTERLY:
		return 3
	case BILLING_INTERVAL_SEMIANNUAL:
		return 6
	case BILLING_INTERVAL_ANNUAL:
		return 12
	case BILLING_INTERVAL_BIENNIAL:
		return 24
	default:
		return 0
	}
}

// UsesAlignmentDate reports whether period stepping is anchored at the
// contract's alignment date rather than the monthly anchor day. Longer
// intervals align to a fixed calendar date.
func (i BillingInterval) UsesAlignmentDate() bool {
	switch i {
	case BILLING_INTERVAL_SEMIANNUAL, BILLING_INTERVAL_ANNUAL, BILLING_INTERVAL_BIENNIAL:
		return true
	default:
		return false
	}
}

func (i BillingInterval) Validate() error {
	allowed := []BillingInterval{
		BILLING_INTERVAL_MONTHLY,
		BILLING_INTERVAL_QUARTERLY,
		BILLING_INTERVAL_SEMIANNUAL,
		BILLING_INTERVAL_ANNUAL,
		BILLING_INTERVAL_BIENNIAL,
	}
	if !lo.Contains(allowed, i) {
		return ierr.NewError("invalid billing interval").
			WithHint("Please provide a valid billing interval").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// AddClampedDate adds the given years, months and days to t, clamping the day
// of month to the last valid day of the target month instead of overflowing
// into the next month the way time.AddDate does.
func AddClampedDate(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	newY := y + years
	newM := time.Month(int(m) + months)

	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	// Find the last valid day of the new month
	firstOfNextMonth := time.Date(newY, newM+1, 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfNextMonth.Add(-24 * time.Hour).Day()

	newD := d + days
	if newD > lastDay {
		newD = lastDay
	}

	return time.Date(newY, newM, newD, h, min, sec, t.Nanosecond(), t.Location())
}
