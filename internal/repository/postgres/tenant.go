package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/contractdesk/contractdesk/internal/domain/tenant"
	ierr "github.com/contractdesk/contractdesk/internal/errors"
	"github.com/contractdesk/contractdesk/internal/logger"
	"github.com/contractdesk/contractdesk/internal/postgres"
	"github.com/contractdesk/contractdesk/internal/types"
)

type tenantRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewTenantRepository creates a new instance of tenant repository
func NewTenantRepository(db postgres.IClient, logger *logger.Logger) tenant.Repository {
	return &tenantRepository{
		db:     db,
		logger: logger,
	}
}

const tenantColumns = `id, name, settings, status, created_at, updated_at`

func (r *tenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	q := r.db.GetQuerier(ctx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO tenants (`+tenantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Name, t.Settings, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHintf("Tenant with ID %s already exists", t.ID).
				Mark(ierr.ErrAlreadyExists)
		}
		return wrapDBError(err, "failed to insert tenant")
	}
	return nil
}

func (r *tenantRepository) Get(ctx context.Context, id string) (*tenant.Tenant, error) {
	q := r.db.GetQuerier(ctx)

	var t tenant.Tenant
	err := q.GetContext(ctx, &t, `
		SELECT `+tenantColumns+` FROM tenants
		WHERE id = $1 AND status = $2`,
		id, types.StatusPublished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("tenant not found").
				WithHintf("Tenant with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, wrapDBError(err, "failed to query tenant")
	}
	return &t, nil
}

func (r *tenantRepository) UpdateSettings(ctx context.Context, id string, settings tenant.Settings) error {
	q := r.db.GetQuerier(ctx)

	result, err := q.ExecContext(ctx, `
		UPDATE tenants SET settings = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		settings, time.Now().UTC(), id, types.StatusPublished)
	if err != nil {
		return wrapDBError(err, "failed to update tenant settings")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return wrapDBError(err, "failed to read update result")
	}
	if rows == 0 {
		return ierr.NewError("tenant not found").
			WithHintf("Tenant with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
