package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/license-service/internal/domain"
)

// LicenseRepository defines persistence access for licenses. The conditional
// mutators (BindHWID, ResetHWID) push compare-and-set semantics into the
// store so concurrent binds and resets resolve there rather than in process.
type LicenseRepository interface {
	Create(ctx context.Context, license *domain.License) error
	Update(ctx context.Context, license *domain.License) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.License, error)
	GetByKey(ctx context.Context, key string) (*domain.License, error)
	GetByIDAndUser(ctx context.Context, id, userID string) (*domain.License, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.License, error)
	BindHWID(ctx context.Context, id, hwid string) error
	ResetHWID(ctx context.Context, id string, now time.Time) error
	KeyExists(ctx context.Context, key string) (bool, error)
}

type licenseRepository struct {
	pool *pgxpool.Pool
}

// NewLicenseRepository returns a Postgres-backed implementation.
func NewLicenseRepository(pool *pgxpool.Pool) LicenseRepository {
	return &licenseRepository{pool: pool}
}

const licenseColumns = `id, license_key, product_name, active, hwid, last_reset_date, expires_at, user_id, created_at, updated_at`

func scanLicense(row pgx.Row) (*domain.License, error) {
	var license domain.License
	if err := row.Scan(
		&license.ID,
		&license.LicenseKey,
		&license.ProductName,
		&license.Active,
		&license.HWID,
		&license.LastResetDate,
		&license.ExpiresAt,
		&license.UserID,
		&license.CreatedAt,
		&license.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &license, nil
}

func (r *licenseRepository) Create(ctx context.Context, license *domain.License) error {
	const query = `
        INSERT INTO licenses (license_key, product_name, active, expires_at, user_id)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		license.LicenseKey,
		license.ProductName,
		license.Active,
		license.ExpiresAt,
		license.UserID,
	).Scan(&license.ID, &license.CreatedAt, &license.UpdatedAt)
}

func (r *licenseRepository) Update(ctx context.Context, license *domain.License) error {
	const query = `
        UPDATE licenses SET product_name=$1, active=$2, hwid=$3, last_reset_date=$4, expires_at=$5, updated_at=NOW()
        WHERE id=$6`

	cmd, err := r.pool.Exec(ctx, query,
		license.ProductName,
		license.Active,
		license.HWID,
		license.LastResetDate,
		license.ExpiresAt,
		license.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *licenseRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM licenses WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *licenseRepository) GetByID(ctx context.Context, id string) (*domain.License, error) {
	return scanLicense(r.pool.QueryRow(ctx,
		`SELECT `+licenseColumns+` FROM licenses WHERE id=$1`, id))
}

func (r *licenseRepository) GetByKey(ctx context.Context, key string) (*domain.License, error) {
	return scanLicense(r.pool.QueryRow(ctx,
		`SELECT `+licenseColumns+` FROM licenses WHERE license_key=$1`, key))
}

func (r *licenseRepository) GetByIDAndUser(ctx context.Context, id, userID string) (*domain.License, error) {
	return scanLicense(r.pool.QueryRow(ctx,
		`SELECT `+licenseColumns+` FROM licenses WHERE id=$1 AND user_id=$2`, id, userID))
}

func (r *licenseRepository) ListByUser(ctx context.Context, userID string) ([]*domain.License, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+licenseColumns+` FROM licenses WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var licenses []*domain.License
	for rows.Next() {
		license, err := scanLicense(rows)
		if err != nil {
			return nil, err
		}
		licenses = append(licenses, license)
	}
	return licenses, rows.Err()
}

// BindHWID sets the hardware identity only when none is bound yet or the same
// identity is already bound. A zero row count means another device won the
// race; callers re-read and surface the mismatch.
func (r *licenseRepository) BindHWID(ctx context.Context, id, hwid string) error {
	const query = `
        UPDATE licenses SET hwid=$1, updated_at=NOW()
        WHERE id=$2 AND (hwid IS NULL OR hwid='' OR hwid=$1)`

	cmd, err := r.pool.Exec(ctx, query, hwid, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *licenseRepository) ResetHWID(ctx context.Context, id string, now time.Time) error {
	const query = `
        UPDATE licenses SET hwid='', last_reset_date=$1, updated_at=NOW()
        WHERE id=$2`

	cmd, err := r.pool.Exec(ctx, query, now, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *licenseRepository) KeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM licenses WHERE license_key=$1)`, key).Scan(&exists)
	return exists, err
}
