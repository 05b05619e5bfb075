package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/contractdesk/contractdesk/internal/domain/contract"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/postgres"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/lib/pq"
	"github.com/samber/lo"
)

type contractRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewContractRepository creates a new instance of contract repository
func NewContractRepository(db postgres.IClient, logger *logger.Logger) contract.Repository {
	return &contractRepository{
		db:     db,
		logger: logger,
	}
}

const contractColumns = `
	id, customer_id, billing_interval, billing_anchor_day, billing_alignment_date,
	start_date, end_date, minimum_duration_months, notice_period_days,
	contract_status, currency, metadata,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

const contractItemColumns = `
	id, contract_id, product_id, description, product_category, quantity,
	fixed_unit_price, billing_start_date, billing_end_date, proration_anchor,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *contractRepository) Create(ctx context.Context, c *contract.Contract) error {
	r.logger.Debugw("creating contract",
		"contract_id", c.ID,
		"customer_id", c.CustomerID,
		"tenant_id", types.GetTenantID(ctx))

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.GetQuerier(ctx)
		_, err := q.ExecContext(ctx, `
			INSERT INTO contracts (`+contractColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			c.ID, c.CustomerID, c.BillingInterval, c.BillingAnchorDay, c.BillingAlignmentDate,
			c.StartDate, c.EndDate, c.MinimumDurationMonths, c.NoticePeriodDays,
			c.ContractStatus, c.Currency, c.Metadata,
			c.TenantID, c.Status, c.CreatedAt, c.UpdatedAt, c.CreatedBy, c.UpdatedBy)
		if err != nil {
			return wrapDBError(err, "failed to insert contract")
		}
		return r.insertItems(ctx, c)
	})
}

func (r *contractRepository) insertItems(ctx context.Context, c *contract.Contract) error {
	q := r.db.GetQuerier(ctx)
	for _, item := range c.Items {
		_, err := q.ExecContext(ctx, `
			INSERT INTO contract_items (`+contractItemColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			item.ID, c.ID, item.ProductID, item.Description, item.ProductCategory, item.Quantity,
			item.FixedUnitPrice, item.BillingStartDate, item.BillingEndDate, item.ProrationAnchor,
			item.TenantID, item.Status, item.CreatedAt, item.UpdatedAt, item.CreatedBy, item.UpdatedBy)
		if err != nil {
			return wrapDBError(err, "failed to insert contract item")
		}
	}
	return nil
}

func (r *contractRepository) Get(ctx context.Context, id string) (*contract.Contract, error) {
	q := r.db.GetQuerier(ctx)

	var c contract.Contract
	err := q.GetContext(ctx, &c, `
		SELECT `+contractColumns+` FROM contracts
		WHERE id = $1 AND tenant_id = $2 AND status = $3`,
		id, types.GetTenantID(ctx), types.StatusPublished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("contract not found").
				WithHintf("Contract with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, wrapDBError(err, "failed to query contract")
	}

	if err := r.loadItems(ctx, []*contract.Contract{&c}); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *contractRepository) loadItems(ctx context.Context, contracts []*contract.Contract) error {
	if len(contracts) == 0 {
		return nil
	}
	q := r.db.GetQuerier(ctx)

	ids := lo.Map(contracts, func(c *contract.Contract, _ int) string { return c.ID })
	var items []*contract.ContractItem
	err := q.SelectContext(ctx, &items, `
		SELECT `+contractItemColumns+` FROM contract_items
		WHERE contract_id = ANY($1) AND tenant_id = $2 AND status = $3
		ORDER BY created_at, id`,
		pq.Array(ids), types.GetTenantID(ctx), types.StatusPublished)
	if err != nil {
		return wrapDBError(err, "failed to query contract items")
	}

	byContract := lo.GroupBy(items, func(item *contract.ContractItem) string { return item.ContractID })
	for _, c := range contracts {
		c.Items = byContract[c.ID]
	}
	return nil
}

func (r *contractRepository) Update(ctx context.Context, c *contract.Contract) error {
	r.logger.Debugw("updating contract",
		"contract_id", c.ID,
		"tenant_id", types.GetTenantID(ctx))

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.GetQuerier(ctx)
		result, err := q.ExecContext(ctx, `
			UPDATE contracts SET
				customer_id = $1, billing_interval = $2, billing_anchor_day = $3,
				billing_alignment_date = $4, start_date = $5, end_date = $6,
				minimum_duration_months = $7, notice_period_days = $8,
				contract_status = $9, currency = $10, metadata = $11,
				updated_at = NOW(), updated_by = $12
			WHERE id = $13 AND tenant_id = $14 AND status = $15`,
			c.CustomerID, c.BillingInterval, c.BillingAnchorDay,
			c.BillingAlignmentDate, c.StartDate, c.EndDate,
			c.MinimumDurationMonths, c.NoticePeriodDays,
			c.ContractStatus, c.Currency, c.Metadata,
			types.GetUserID(ctx),
			c.ID, types.GetTenantID(ctx), types.StatusPublished)
		if err != nil {
			return wrapDBError(err, "failed to update contract")
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return wrapDBError(err, "failed to read update result")
		}
		if affected == 0 {
			return ierr.NewError("contract not found").
				WithHintf("Contract with ID %s was not found", c.ID).
				Mark(ierr.ErrNotFound)
		}

		// items are replaced as a set
		_, err = q.ExecContext(ctx, `
			DELETE FROM contract_items WHERE contract_id = $1 AND tenant_id = $2`,
			c.ID, types.GetTenantID(ctx))
		if err != nil {
			return wrapDBError(err, "failed to delete contract items")
		}
		return r.insertItems(ctx, c)
	})
}

func (r *contractRepository) List(ctx context.Context, filter *types.ContractFilter) ([]*contract.Contract, error) {
	if filter == nil {
		filter = types.NewContractFilter()
	}
	q := r.db.GetQuerier(ctx)

	query, args := buildContractQuery(`SELECT `+contractColumns+` FROM contracts`, ctx, filter)
	query += fmt.Sprintf(" ORDER BY %s %s", sanitizeSort(filter.GetSort()), sanitizeOrder(filter.GetOrder()))
	if !filter.IsUnlimited() {
		args = append(args, filter.GetLimit(), filter.GetOffset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	var contracts []*contract.Contract
	if err := q.SelectContext(ctx, &contracts, query, args...); err != nil {
		return nil, wrapDBError(err, "failed to query contracts")
	}
	if err := r.loadItems(ctx, contracts); err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *contractRepository) Count(ctx context.Context, filter *types.ContractFilter) (int, error) {
	if filter == nil {
		filter = types.NewContractFilter()
	}
	q := r.db.GetQuerier(ctx)

	query, args := buildContractQuery(`SELECT COUNT(*) FROM contracts`, ctx, filter)
	var count int
	if err := q.GetContext(ctx, &count, query, args...); err != nil {
		return 0, wrapDBError(err, "failed to count contracts")
	}
	return count, nil
}

func buildContractQuery(base string, ctx context.Context, filter *types.ContractFilter) (string, []interface{}) {
	query := base + ` WHERE tenant_id = $1 AND status = $2`
	args := []interface{}{types.GetTenantID(ctx), filter.GetStatus()}

	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		query += fmt.Sprintf(" AND customer_id = $%d", len(args))
	}
	if len(filter.ContractStatus) > 0 {
		statuses := lo.Map(filter.ContractStatus, func(s types.ContractStatus, _ int) string { return string(s) })
		args = append(args, pq.Array(statuses))
		query += fmt.Sprintf(" AND contract_status = ANY($%d)", len(args))
	}
	return query, args
}

func (r *contractRepository) ListBillable(ctx context.Context) ([]*contract.Contract, error) {
	q := r.db.GetQuerier(ctx)

	billable := pq.Array([]string{
		string(types.ContractStatusActive),
		string(types.ContractStatusCancelled),
		string(types.ContractStatusEnded),
	})
	var contracts []*contract.Contract
	err := q.SelectContext(ctx, &contracts, `
		SELECT `+contractColumns+` FROM contracts
		WHERE tenant_id = $1 AND status = $2 AND contract_status = ANY($3)
		ORDER BY created_at, id`,
		types.GetTenantID(ctx), types.StatusPublished, billable)
	if err != nil {
		return nil, wrapDBError(err, "failed to query billable contracts")
	}
	if err := r.loadItems(ctx, contracts); err != nil {
		return nil, err
	}

	// contracts without items cannot produce billing events
	return lo.Filter(contracts, func(c *contract.Contract, _ int) bool {
		return len(c.Items) > 0
	}), nil
}
