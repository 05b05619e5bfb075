package postgres

import (
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/samber/lo"
)

// wrapDBError marks a driver error as a database failure with a stable hint.
func wrapDBError(err error, hint string) error {
	return ierr.WithError(err).
		WithHint(hint).
		Mark(ierr.ErrDatabase)
}

// sortColumns is the allow list for ORDER BY; anything else falls back to
// created_at so filter input can never reach the SQL text.
var sortColumns = []string{"created_at", "updated_at", "id", "start_date", "billing_date", "invoice_number"}

func sanitizeSort(sort string) string {
	if lo.Contains(sortColumns, sort) {
		return sort
	}
	return types.FILTER_DEFAULT_SORT
}

func sanitizeOrder(order string) string {
	if order == types.OrderAsc {
		return "ASC"
	}
	return "DESC"
}
