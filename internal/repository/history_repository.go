package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fixdesk/repair-service/internal/domain"
)

// HistoryRepository stores append-only assignment audit entries.
type HistoryRepository interface {
	Create(ctx context.Context, entry *domain.AssignmentHistoryEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.AssignmentHistoryEntry, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) Create(ctx context.Context, entry *domain.AssignmentHistoryEntry) error {
	const query = `
        INSERT INTO assignment_history (ticket_id, action, actor_id, actor_name, assignee_id, note)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.Action,
		entry.ActorID,
		entry.ActorName,
		entry.AssigneeID,
		entry.Note,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *historyRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.AssignmentHistoryEntry, error) {
	const query = `
        SELECT id, ticket_id, action, actor_id, actor_name, assignee_id, note, created_at
        FROM assignment_history WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AssignmentHistoryEntry
	for rows.Next() {
		var entry domain.AssignmentHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.Action,
			&entry.ActorID,
			&entry.ActorName,
			&entry.AssigneeID,
			&entry.Note,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
