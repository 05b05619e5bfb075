package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/invoice"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/postgres"
	"github.com/contractdesk/contractdesk/internal/types"
)

type schemeRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewSchemeRepository creates a new instance of invoice number scheme repository
func NewSchemeRepository(db postgres.IClient, logger *logger.Logger) invoice.SchemeRepository {
	return &schemeRepository{
		db:     db,
		logger: logger,
	}
}

const schemeColumns = `
	id, pattern, next_counter, reset_period, last_reset_year, last_reset_month,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *schemeRepository) GetScheme(ctx context.Context) (*invoice.NumberScheme, error) {
	q := r.db.GetQuerier(ctx)

	var scheme invoice.NumberScheme
	err := q.GetContext(ctx, &scheme, `
		SELECT `+schemeColumns+` FROM invoice_number_schemes
		WHERE tenant_id = $1 AND status = $2`,
		types.GetTenantID(ctx), types.StatusPublished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("number scheme not found").
				WithHint("The tenant has no invoice number scheme configured").
				Mark(ierr.ErrNotFound)
		}
		return nil, wrapDBError(err, "failed to query number scheme")
	}
	return &scheme, nil
}

func (r *schemeRepository) SaveScheme(ctx context.Context, scheme *invoice.NumberScheme) error {
	q := r.db.GetQuerier(ctx)

	// One scheme row per tenant, enforced by a unique index on tenant_id.
	_, err := q.ExecContext(ctx, `
		INSERT INTO invoice_number_schemes (`+schemeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (tenant_id) DO UPDATE SET
			pattern = EXCLUDED.pattern,
			next_counter = EXCLUDED.next_counter,
			reset_period = EXCLUDED.reset_period,
			last_reset_year = EXCLUDED.last_reset_year,
			last_reset_month = EXCLUDED.last_reset_month,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by`,
		scheme.ID, scheme.Pattern, scheme.NextCounter, scheme.ResetPeriod,
		scheme.LastResetYear, scheme.LastResetMonth,
		scheme.TenantID, scheme.Status, scheme.CreatedAt, scheme.UpdatedAt,
		scheme.CreatedBy, scheme.UpdatedBy)
	if err != nil {
		return wrapDBError(err, "failed to save number scheme")
	}
	return nil
}

func (r *schemeRepository) NextInvoiceNumber(ctx context.Context, billingDate time.Time) (string, error) {
	var number string
	err := r.db.WithTx(ctx, func(ctx context.Context) error {
		scheme, err := r.lockScheme(ctx)
		if err != nil {
			return err
		}

		if scheme.NeedsReset(billingDate) {
			scheme.ApplyReset(billingDate)
		}
		number = scheme.FormatNumber(scheme.NextCounter, billingDate)

		q := r.db.GetQuerier(ctx)
		_, err = q.ExecContext(ctx, `
			UPDATE invoice_number_schemes
			SET next_counter = $1, last_reset_year = $2, last_reset_month = $3, updated_at = $4
			WHERE id = $5 AND tenant_id = $6`,
			scheme.NextCounter+1, scheme.LastResetYear, scheme.LastResetMonth,
			time.Now().UTC(), scheme.ID, types.GetTenantID(ctx))
		if err != nil {
			return wrapDBError(err, "failed to advance invoice counter")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return number, nil
}

// lockScheme reads the tenant's scheme row under a row lock, creating the
// default scheme first when the tenant has none. The lock serializes
// issuance per tenant; other tenants lock different rows and do not block.
func (r *schemeRepository) lockScheme(ctx context.Context) (*invoice.NumberScheme, error) {
	q := r.db.GetQuerier(ctx)
	tenantID := types.GetTenantID(ctx)

	var scheme invoice.NumberScheme
	err := q.GetContext(ctx, &scheme, `
		SELECT `+schemeColumns+` FROM invoice_number_schemes
		WHERE tenant_id = $1 AND status = $2
		FOR UPDATE`,
		tenantID, types.StatusPublished)
	if err == nil {
		return &scheme, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, wrapDBError(err, "failed to lock number scheme")
	}

	r.logger.Infow("creating default number scheme", "tenant_id", tenantID)
	def := invoice.DefaultScheme(tenantID, time.Now().UTC())
	// A concurrent first issuance can insert the same tenant row; the
	// conflict clause makes the insert a no-op and the locked re-read
	// returns whichever row won.
	_, err = q.ExecContext(ctx, `
		INSERT INTO invoice_number_schemes (`+schemeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (tenant_id) DO NOTHING`,
		def.ID, def.Pattern, def.NextCounter, def.ResetPeriod,
		def.LastResetYear, def.LastResetMonth,
		def.TenantID, def.Status, def.CreatedAt, def.UpdatedAt,
		def.CreatedBy, def.UpdatedBy)
	if err != nil {
		return nil, wrapDBError(err, "failed to create default number scheme")
	}

	err = q.GetContext(ctx, &scheme, `
		SELECT `+schemeColumns+` FROM invoice_number_schemes
		WHERE tenant_id = $1 AND status = $2
		FOR UPDATE`,
		tenantID, types.StatusPublished)
	if err != nil {
		return nil, wrapDBError(err, "failed to lock number scheme")
	}
	return &scheme, nil
}

func (r *schemeRepository) PeekInvoiceNumber(ctx context.Context, billingDate time.Time) (string, error) {
	scheme, err := r.GetScheme(ctx)
	if err != nil {
		if ierr.IsNotFound(err) {
			scheme = invoice.DefaultScheme(types.GetTenantID(ctx), time.Now().UTC())
		} else {
			return "", err
		}
	}

	if scheme.NeedsReset(billingDate) {
		scheme.ApplyReset(billingDate)
	}
	return scheme.FormatNumber(scheme.NextCounter, billingDate), nil
}
