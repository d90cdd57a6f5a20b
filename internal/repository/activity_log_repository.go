package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/license-service/internal/domain"
)

// ActivityLogRepository defines the audit sink. Inserts are invoked
// fire-and-forget by the activity service.
type ActivityLogRepository interface {
	Insert(ctx context.Context, log *domain.ActivityLog) error
	ListRecentByUser(ctx context.Context, userID string, limit int) ([]*domain.ActivityLog, error)
}

type activityLogRepository struct {
	pool *pgxpool.Pool
}

// NewActivityLogRepository returns a Postgres-backed implementation.
func NewActivityLogRepository(pool *pgxpool.Pool) ActivityLogRepository {
	return &activityLogRepository{pool: pool}
}

func (r *activityLogRepository) Insert(ctx context.Context, log *domain.ActivityLog) error {
	const query = `
        INSERT INTO activity_logs (id, user_id, event_type, details, metadata)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		log.ID,
		log.UserID,
		log.EventType,
		log.Details,
		log.Metadata,
	).Scan(&log.CreatedAt)
}

func (r *activityLogRepository) ListRecentByUser(ctx context.Context, userID string, limit int) ([]*domain.ActivityLog, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
        SELECT id, user_id, event_type, details, metadata, created_at
        FROM activity_logs WHERE user_id=$1
        ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.ActivityLog
	for rows.Next() {
		var log domain.ActivityLog
		if err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.EventType,
			&log.Details,
			&log.Metadata,
			&log.CreatedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, &log)
	}
	return logs, rows.Err()
}
