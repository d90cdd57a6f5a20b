package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/license-service/internal/domain"
)

// RoleRepository defines persistence access for authorization roles.
// A user has at most one role row; absence implies the default role.
type RoleRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.AuthorizationRole, error)
	Upsert(ctx context.Context, role *domain.AuthorizationRole) error
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository returns a Postgres-backed implementation.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

func (r *roleRepository) GetByUserID(ctx context.Context, userID string) (*domain.AuthorizationRole, error) {
	const query = `
        SELECT user_id, role_name, created_at, updated_at
        FROM user_roles WHERE user_id=$1`

	var role domain.AuthorizationRole
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&role.UserID,
		&role.RoleName,
		&role.CreatedAt,
		&role.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) Upsert(ctx context.Context, role *domain.AuthorizationRole) error {
	const query = `
        INSERT INTO user_roles (user_id, role_name)
        VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE SET role_name=EXCLUDED.role_name, updated_at=NOW()
        RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query, role.UserID, role.RoleName).
		Scan(&role.CreatedAt, &role.UpdatedAt)
}
