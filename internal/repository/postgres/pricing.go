package postgres

import (
	"context"

	"github.com/contractdesk/contractdesk/internal/domain/pricing"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/postgres"
	"github.com/contractdesk/contractdesk/internal/types"
	"github.com/lib/pq"
)

type pricingRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewPricingRepository creates a new instance of pricing repository
func NewPricingRepository(db postgres.IClient, logger *logger.Logger) pricing.Repository {
	return &pricingRepository{
		db:     db,
		logger: logger,
	}
}

const priceEntryColumns = `
	id, product_id, customer_id, unit_price, currency, valid_from, valid_to,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

const scheduledChangeColumns = `
	id, contract_item_id, new_unit_price, effective_date, expiry_date,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

const adjustmentRuleColumns = `
	id, scope, contract_id, customer_id, factor, valid_from, valid_to,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

const discountColumns = `
	id, scope, contract_id, contract_item_id, product_category, kind, value,
	validity, valid_from, valid_to,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *pricingRepository) CreatePriceEntry(ctx context.Context, entry *pricing.PriceEntry) error {
	q := r.db.GetQuerier(ctx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO price_entries (`+priceEntryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		entry.ID, entry.ProductID, entry.CustomerID, entry.UnitPrice, entry.Currency,
		entry.ValidFrom, entry.ValidTo,
		entry.TenantID, entry.Status, entry.CreatedAt, entry.UpdatedAt, entry.CreatedBy, entry.UpdatedBy)
	if err != nil {
		return wrapDBError(err, "failed to insert price entry")
	}
	return nil
}

func (r *pricingRepository) ListPriceEntries(ctx context.Context, productID string) ([]*pricing.PriceEntry, error) {
	q := r.db.GetQuerier(ctx)

	var entries []*pricing.PriceEntry
	err := q.SelectContext(ctx, &entries, `
		SELECT `+priceEntryColumns+` FROM price_entries
		WHERE product_id = $1 AND tenant_id = $2 AND status = $3
		ORDER BY id`,
		productID, types.GetTenantID(ctx), types.StatusPublished)
	if err != nil {
		return nil, wrapDBError(err, "failed to query price entries")
	}
	return entries, nil
}

func (r *pricingRepository) CreateScheduledPriceChange(ctx context.Context, change *pricing.ScheduledPriceChange) error {
	q := r.db.GetQuerier(ctx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO scheduled_price_changes (`+scheduledChangeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		change.ID, change.ContractItemID, change.NewUnitPrice, change.EffectiveDate, change.ExpiryDate,
		change.TenantID, change.Status, change.CreatedAt, change.UpdatedAt, change.CreatedBy, change.UpdatedBy)
	if err != nil {
		return wrapDBError(err, "failed to insert scheduled price change")
	}
	return nil
}

func (r *pricingRepository) ListScheduledPriceChanges(ctx context.Context, contractItemIDs []string) ([]*pricing.ScheduledPriceChange, error) {
	if len(contractItemIDs) == 0 {
		return nil, nil
	}
	q := r.db.GetQuerier(ctx)

	var changes []*pricing.ScheduledPriceChange
	err := q.SelectContext(ctx, &changes, `
		SELECT `+scheduledChangeColumns+` FROM scheduled_price_changes
		WHERE contract_item_id = ANY($1) AND tenant_id = $2 AND status = $3
		ORDER BY id`,
		pq.Array(contractItemIDs), types.GetTenantID(ctx), types.StatusPublished)
	if err != nil {
		return nil, wrapDBError(err, "failed to query scheduled price changes")
	}
	return changes, nil
}

func (r *pricingRepository) CreateAdjustmentRule(ctx context.Context, rule *pricing.AdjustmentRule) error {
	q := r.db.GetQuerier(ctx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO adjustment_rules (`+adjustmentRuleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rule.ID, rule.Scope, rule.ContractID, rule.CustomerID, rule.Factor,
		rule.ValidFrom, rule.ValidTo,
		rule.TenantID, rule.Status, rule.CreatedAt, rule.UpdatedAt, rule.CreatedBy, rule.UpdatedBy)
	if err != nil {
		return wrapDBError(err, "failed to insert adjustment rule")
	}
	return nil
}

func (r *pricingRepository) ListAdjustmentRules(ctx context.Context, contractID, customerID string) ([]*pricing.AdjustmentRule, error) {
	q := r.db.GetQuerier(ctx)

	var rules []*pricing.AdjustmentRule
	err := q.SelectContext(ctx, &rules, `
		SELECT `+adjustmentRuleColumns+` FROM adjustment_rules
		WHERE tenant_id = $1 AND status = $2
		AND (scope = $3 OR contract_id = $4 OR customer_id = $5)
		ORDER BY id`,
		types.GetTenantID(ctx), types.StatusPublished,
		types.AdjustmentScopeTenant, contractID, customerID)
	if err != nil {
		return nil, wrapDBError(err, "failed to query adjustment rules")
	}
	return rules, nil
}

func (r *pricingRepository) CreateDiscount(ctx context.Context, discount *pricing.Discount) error {
	if err := discount.Validate(); err != nil {
		return err
	}
	q := r.db.GetQuerier(ctx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO discounts (`+discountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		discount.ID, discount.Scope, discount.ContractID, discount.ContractItemID,
		discount.ProductCategory, discount.Kind, discount.Value, discount.Validity,
		discount.ValidFrom, discount.ValidTo,
		discount.TenantID, discount.Status, discount.CreatedAt, discount.UpdatedAt,
		discount.CreatedBy, discount.UpdatedBy)
	if err != nil {
		return wrapDBError(err, "failed to insert discount")
	}
	return nil
}

func (r *pricingRepository) ListDiscounts(ctx context.Context, contractID string) ([]*pricing.Discount, error) {
	q := r.db.GetQuerier(ctx)

	var discounts []*pricing.Discount
	err := q.SelectContext(ctx, &discounts, `
		SELECT `+discountColumns+` FROM discounts
		WHERE contract_id = $1 AND tenant_id = $2 AND status = $3
		ORDER BY id`,
		contractID, types.GetTenantID(ctx), types.StatusPublished)
	if err != nil {
		return nil, wrapDBError(err, "failed to query discounts")
	}
	return discounts, nil
}
