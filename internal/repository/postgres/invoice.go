package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/invoice"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/postgres"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/lib/pq"
	"github.com/samber/lo"
)

type invoiceRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewInvoiceRepository creates a new instance of invoice repository
func NewInvoiceRepository(db postgres.IClient, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{
		db:     db,
		logger: logger,
	}
}

const invoiceColumns = `
	id, invoice_number, contract_id, customer_id,
	billing_date, period_start, period_end,
	currency, net_total, tax_rate, tax_amount, gross_total,
	invoice_status, snapshot, finalized_at, cancelled_at,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

const lineItemColumns = `
	id, invoice_id, contract_item_id, product_id, description,
	quantity, unit_price, price_source, proration_factor,
	net_amount, tax_amount, currency, period_start, period_end,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *invoiceRepository) CreateWithLineItems(ctx context.Context, inv *invoice.Invoice) error {
	r.logger.Debugw("creating invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"contract_id", inv.ContractID,
		"tenant_id", types.GetTenantID(ctx))

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.GetQuerier(ctx)
		_, err := q.ExecContext(ctx, `
			INSERT INTO invoices (`+invoiceColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
				$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
			inv.ID, inv.InvoiceNumber, inv.ContractID, inv.CustomerID,
			inv.BillingDate, inv.PeriodStart, inv.PeriodEnd,
			inv.Currency, inv.NetTotal, inv.TaxRate, inv.TaxAmount, inv.GrossTotal,
			inv.InvoiceStatus, inv.Snapshot, inv.FinalizedAt, inv.CancelledAt,
			inv.TenantID, inv.Status, inv.CreatedAt, inv.UpdatedAt, inv.CreatedBy, inv.UpdatedBy)
		if err != nil {
			if isUniqueViolation(err) {
				return ierr.WithError(err).
					WithHint("An invoice already exists for this contract and period").
					Mark(ierr.ErrAlreadyExists)
			}
			return wrapDBError(err, "failed to insert invoice")
		}

		for _, line := range inv.LineItems {
			_, err := q.ExecContext(ctx, `
				INSERT INTO invoice_line_items (`+lineItemColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
					$11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
				line.ID, inv.ID, line.ContractItemID, line.ProductID, line.Description,
				line.Quantity, line.UnitPrice, line.PriceSource, line.ProrationFactor,
				line.NetAmount, line.TaxAmount, line.Currency, line.PeriodStart, line.PeriodEnd,
				line.TenantID, line.Status, line.CreatedAt, line.UpdatedAt, line.CreatedBy, line.UpdatedBy)
			if err != nil {
				return wrapDBError(err, "failed to insert invoice line item")
			}
		}
		return nil
	})
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	q := r.db.GetQuerier(ctx)

	var inv invoice.Invoice
	err := q.GetContext(ctx, &inv, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE id = $1 AND tenant_id = $2 AND status = $3`,
		id, types.GetTenantID(ctx), types.StatusPublished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("invoice not found").
				WithHintf("Invoice with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, wrapDBError(err, "failed to query invoice")
	}

	if err := r.loadLineItems(ctx, []*invoice.Invoice{&inv}); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepository) loadLineItems(ctx context.Context, invoices []*invoice.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	q := r.db.GetQuerier(ctx)

	ids := lo.Map(invoices, func(inv *invoice.Invoice, _ int) string { return inv.ID })
	var lines []*invoice.LineItem
	err := q.SelectContext(ctx, &lines, `
		SELECT `+lineItemColumns+` FROM invoice_line_items
		WHERE invoice_id = ANY($1) AND tenant_id = $2 AND status = $3
		ORDER BY created_at, id`,
		pq.Array(ids), types.GetTenantID(ctx), types.StatusPublished)
	if err != nil {
		return wrapDBError(err, "failed to query invoice line items")
	}

	byInvoice := lo.GroupBy(lines, func(line *invoice.LineItem) string { return line.InvoiceID })
	for _, inv := range invoices {
		inv.LineItems = byInvoice[inv.ID]
	}
	return nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	q := r.db.GetQuerier(ctx)

	result, err := q.ExecContext(ctx, `
		UPDATE invoices
		SET invoice_status = $1, cancelled_at = $2, updated_at = $3, updated_by = $4
		WHERE id = $5 AND tenant_id = $6 AND status = $7`,
		inv.InvoiceStatus, inv.CancelledAt, inv.UpdatedAt, inv.UpdatedBy,
		inv.ID, types.GetTenantID(ctx), types.StatusPublished)
	if err != nil {
		return wrapDBError(err, "failed to update invoice")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return wrapDBError(err, "failed to read update result")
	}
	if rows == 0 {
		return ierr.NewError("invoice not found").
			WithHintf("Invoice with ID %s was not found", inv.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	query, args := buildInvoiceQuery(ctx, "SELECT "+invoiceColumns+" FROM invoices", filter, true)

	q := r.db.GetQuerier(ctx)
	var invoices []*invoice.Invoice
	if err := q.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, wrapDBError(err, "failed to query invoices")
	}

	if err := r.loadLineItems(ctx, invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	query, args := buildInvoiceQuery(ctx, "SELECT COUNT(*) FROM invoices", filter, false)

	q := r.db.GetQuerier(ctx)
	var count int
	if err := q.GetContext(ctx, &count, query, args...); err != nil {
		return 0, wrapDBError(err, "failed to count invoices")
	}
	return count, nil
}

func buildInvoiceQuery(ctx context.Context, base string, filter *types.InvoiceFilter, paginate bool) (string, []interface{}) {
	query := base + " WHERE tenant_id = $1 AND status = $2"
	args := []interface{}{types.GetTenantID(ctx), types.StatusPublished}

	if filter.ContractID != "" {
		args = append(args, filter.ContractID)
		query += fmt.Sprintf(" AND contract_id = $%d", len(args))
	}
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		query += fmt.Sprintf(" AND customer_id = $%d", len(args))
	}
	if len(filter.InvoiceStatus) > 0 {
		statuses := lo.Map(filter.InvoiceStatus, func(s types.InvoiceStatus, _ int) string { return string(s) })
		args = append(args, pq.Array(statuses))
		query += fmt.Sprintf(" AND invoice_status = ANY($%d)", len(args))
	}
	if filter.Year != 0 {
		args = append(args, filter.Year)
		query += fmt.Sprintf(" AND EXTRACT(YEAR FROM billing_date) = $%d", len(args))
	}
	if filter.Month != 0 {
		args = append(args, filter.Month)
		query += fmt.Sprintf(" AND EXTRACT(MONTH FROM billing_date) = $%d", len(args))
	}

	if paginate {
		query += fmt.Sprintf(" ORDER BY %s %s", sanitizeSort(filter.GetSort()), sanitizeOrder(filter.GetOrder()))
		if !filter.IsUnlimited() {
			args = append(args, filter.GetLimit())
			query += fmt.Sprintf(" LIMIT $%d", len(args))
			args = append(args, filter.GetOffset())
			query += fmt.Sprintf(" OFFSET $%d", len(args))
		}
	}
	return query, args
}

func (r *invoiceRepository) ExistsForPeriod(ctx context.Context, contractID string, periodStart, periodEnd time.Time) (bool, error) {
	q := r.db.GetQuerier(ctx)

	var exists bool
	err := q.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM invoices
			WHERE contract_id = $1 AND period_start = $2 AND period_end = $3
			AND invoice_status != $4 AND tenant_id = $5 AND status = $6
		)`,
		contractID, periodStart, periodEnd,
		types.InvoiceStatusCancelled, types.GetTenantID(ctx), types.StatusPublished)
	if err != nil {
		return false, wrapDBError(err, "failed to check for existing invoice")
	}
	return exists, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
