package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fixdesk/repair-service/internal/domain"
)

// NotificationLogRepository stores one row per attempted outbound send.
type NotificationLogRepository interface {
	Create(ctx context.Context, entry *domain.NotificationLogEntry) error
	ListRecent(ctx context.Context, limit int) ([]domain.NotificationLogEntry, error)
}

type notificationLogRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationLogRepository builds repository.
func NewNotificationLogRepository(pool *pgxpool.Pool) NotificationLogRepository {
	return &notificationLogRepository{pool: pool}
}

func (r *notificationLogRepository) Create(ctx context.Context, entry *domain.NotificationLogEntry) error {
	const query = `
        INSERT INTO notification_log (target, type, title, message, status, error)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.Target,
		entry.Type,
		entry.Title,
		entry.Message,
		entry.Status,
		entry.Error,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *notificationLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.NotificationLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, target, type, title, message, status, error, created_at
        FROM notification_log ORDER BY created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.NotificationLogEntry
	for rows.Next() {
		var entry domain.NotificationLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Target,
			&entry.Type,
			&entry.Title,
			&entry.Message,
			&entry.Status,
			&entry.Error,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
